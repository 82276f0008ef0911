// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"periph.io/x/gpiocdev/uapi"
)

// LineRequest is the kernel-backed reservation of a set of lines on one
// chip.
//
// It exclusively owns the kernel request descriptor shared by all lines
// in the bulk; there is exactly one descriptor per request and it is
// never shared between request objects. All value I/O, reconfiguration
// and edge event delivery for the requested lines goes through the
// LineRequest until it is released, after which every accessor fails
// with ErrReleased.
type LineRequest struct {
	chip    string
	offsets []int
	// position of each offset within the request, the bit index used on
	// the wire.
	index map[int]int

	// mu covers the fields below. It is never held across a blocking
	// call, so Release can always proceed and cancel a pending read by
	// closing the descriptor.
	mu       sync.Mutex
	fd       int
	released bool
	// effective settings per offset, tracking the output value cache.
	settings map[int]*LineSettings

	// evMu serializes edge event reads and guards eventBuf.
	evMu sync.Mutex
	// read buffer for edge events, sized at request time.
	eventBuf []byte
}

func newLineRequest(chip string, fd int, offsets []int, settings map[int]*LineSettings, eventBufSize int) *LineRequest {
	r := LineRequest{
		chip:     chip,
		offsets:  offsets,
		index:    make(map[int]int, len(offsets)),
		fd:       fd,
		settings: settings,
		eventBuf: make([]byte, eventBufSize*uapi.LineEventSize),
	}
	for i, o := range offsets {
		r.index[o] = i
	}
	return &r
}

// Chip returns the name of the chip the lines were requested from.
func (r *LineRequest) Chip() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return "", ErrReleased
	}
	return r.chip, nil
}

// Offsets returns the requested offsets in request order.
//
// The order is established at request time and is the positional order
// used by SetValues and Values. Returns ErrReleased once the request has
// been released.
func (r *LineRequest) Offsets() ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil, ErrReleased
	}
	return append([]int(nil), r.offsets...), nil
}

// Fd returns the request descriptor, for use with Wait or external event
// loops.
//
// Returns -1 if the request has been released. Ownership stays with the
// LineRequest; do not close it.
func (r *LineRequest) Fd() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return -1
	}
	return r.fd
}

// Release returns the lines to the kernel, invalidating the request.
//
// Release is idempotent; repeated calls are no-ops. Closing the
// descriptor is also the cancellation path for a blocked
// ReadEdgeEvents, which then fails with ErrReleased.
func (r *LineRequest) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.released = true
	return unix.Close(r.fd)
}

// subsetMask builds the wire mask for a subset of the requested
// offsets. Fails fast if any offset is not part of the request.
func (r *LineRequest) subsetMask(offsets []int) (uapi.LineBitmap, error) {
	var mask uapi.LineBitmap
	for _, o := range offsets {
		i, ok := r.index[o]
		if !ok {
			return 0, fmt.Errorf("%w: %d not in request", ErrInvalidOffset, o)
		}
		mask = mask.Set(i, 1)
	}
	return mask, nil
}

// Value returns the current logical value of the line at offset.
func (r *LineRequest) Value(offset int) (LineValue, error) {
	vv, err := r.ValuesSubset([]int{offset})
	if err != nil {
		return LineValueInactive, err
	}
	return vv[0], nil
}

// ValuesSubset returns the current logical values of the given requested
// offsets, in the given order, in a single kernel round-trip.
func (r *LineRequest) ValuesSubset(offsets []int) ([]LineValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil, ErrReleased
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("%w: empty offset set", ErrInvalidArgument)
	}
	mask, err := r.subsetMask(offsets)
	if err != nil {
		return nil, err
	}
	lv := uapi.LineValues{Mask: mask}
	if err = uapi.GetLineValues(uintptr(r.fd), &lv); err != nil {
		return nil, fmt.Errorf("reading values: %w", err)
	}
	vv := make([]LineValue, len(offsets))
	for i, o := range offsets {
		vv[i] = LineValue(lv.Bits.Get(r.index[o]))
	}
	return vv, nil
}

// Values returns the current logical values of all requested lines, in
// request order, in a single kernel round-trip.
func (r *LineRequest) Values() ([]LineValue, error) {
	return r.ValuesSubset(r.offsets)
}

// SetValue sets the logical value of the output line at offset.
func (r *LineRequest) SetValue(offset int, value LineValue) error {
	return r.SetValuesSubset([]int{offset}, []LineValue{value})
}

// SetValuesSubset sets the logical values of the given requested offsets,
// matched positionally to values, in a single kernel round-trip.
//
// Lines outside the subset are unaffected. On success the output value
// cache for the affected lines is updated so later reconfiguration
// preserves the last written outputs.
func (r *LineRequest) SetValuesSubset(offsets []int, values []LineValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	if len(offsets) == 0 {
		return fmt.Errorf("%w: empty offset set", ErrInvalidArgument)
	}
	if len(offsets) != len(values) {
		return fmt.Errorf("%w: %d offsets but %d values",
			ErrInvalidArgument, len(offsets), len(values))
	}
	mask, err := r.subsetMask(offsets)
	if err != nil {
		return err
	}
	var bits uapi.LineBitmap
	for i, o := range offsets {
		bits = bits.Set(r.index[o], int(values[i]))
	}
	if err = uapi.SetLineValues(uintptr(r.fd), uapi.LineValues{Bits: bits, Mask: mask}); err != nil {
		return fmt.Errorf("setting values: %w", err)
	}
	for i, o := range offsets {
		r.settings[o].outputValue = values[i]
	}
	return nil
}

// SetValues sets the logical values of all requested lines.
//
// values are matched positionally to Offsets; a length mismatch is an
// error.
func (r *LineRequest) SetValues(values []LineValue) error {
	if len(values) != len(r.offsets) {
		return fmt.Errorf("%w: %d values for %d requested lines",
			ErrInvalidArgument, len(values), len(r.offsets))
	}
	return r.SetValuesSubset(r.offsets, values)
}

// Reconfigure applies new settings to the requested lines in a single
// kernel operation.
//
// Settings in lc completely replace those of the offsets they name.
// Requested offsets absent from lc keep their current effective settings,
// re-applied from the cache rather than left unspecified. Entries in lc
// for offsets outside the request are silently ignored, so one LineConfig
// may be shared across several requests. The settings cache is only
// updated if the kernel accepts the whole configuration.
func (r *LineRequest) Reconfigure(lc *LineConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	if lc == nil {
		return fmt.Errorf("%w: nil line config", ErrInvalidArgument)
	}
	merged := NewLineConfig()
	for _, o := range r.offsets {
		s := lc.lineSettings(o)
		if s == nil {
			s = r.settings[o]
		}
		if err := merged.AddLineSettings([]int{o}, s); err != nil {
			return err
		}
	}
	ulc, err := merged.toUapi(r.offsets)
	if err != nil {
		return err
	}
	if err = uapi.SetLineConfig(uintptr(r.fd), &ulc); err != nil {
		return fmt.Errorf("reconfiguring lines: %w", err)
	}
	for _, o := range r.offsets {
		s, _ := merged.LineSettings(o)
		r.settings[o] = s
	}
	return nil
}

// ReadEdgeEvents reads pending edge events into the request's buffer, in
// one kernel read, returning up to max events.
//
// Blocks until at least one event is available. max values below 1, or
// above the buffer capacity fixed at request time, read up to the full
// buffer capacity. Use Wait, or WaitForEdgeEvent, to avoid blocking.
func (r *LineRequest) ReadEdgeEvents(max int) ([]EdgeEvent, error) {
	r.evMu.Lock()
	defer r.evMu.Unlock()
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return nil, ErrReleased
	}
	fd := r.fd
	buf := r.eventBuf
	r.mu.Unlock()
	if max > 0 && max*uapi.LineEventSize < len(buf) {
		buf = buf[:max*uapi.LineEventSize]
	}

	// The read blocks without holding mu, so a concurrent Release can
	// close the descriptor and cancel it.
	evts, err := uapi.ReadLineEvents(uintptr(fd), buf)

	r.mu.Lock()
	released := r.released
	r.mu.Unlock()
	if released {
		return nil, ErrReleased
	}
	if err != nil {
		return nil, fmt.Errorf("reading edge events: %w", err)
	}
	ee := make([]EdgeEvent, len(evts))
	for i, le := range evts {
		ee[i] = newEdgeEvent(le)
	}
	return ee, nil
}

// ReadEdgeEvent reads a single edge event.
//
// Blocks until an event is available.
func (r *LineRequest) ReadEdgeEvent() (EdgeEvent, error) {
	ee, err := r.ReadEdgeEvents(1)
	if err != nil {
		return EdgeEvent{}, err
	}
	return ee[0], nil
}
