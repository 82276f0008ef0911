// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"periph.io/x/gpiocdev/uapi"
)

// Chip is an open handle to one GPIO controller character device.
//
// A Chip provides chip and line metadata, watches on line status, and is
// the factory for LineRequests. The underlying descriptor is exclusively
// owned by the Chip. Once closed the Chip is inert and all operations
// fail with ErrClosed.
type Chip struct {
	path  string
	name  string
	label string
	lines int

	// mu covers the fields below.
	mu      sync.Mutex
	fd      int
	watched map[int]bool
	closed  bool
}

// IsChipDevice checks that the path denotes a GPIO character device.
//
// Symlinks are resolved, the target must be a character device, and its
// device numbers must match those the GPIO subsystem publishes in sysfs.
// Usable without opening the device.
func IsChipDevice(path string) error {
	rp, err := filepath.EvalSymlinks(path)
	if err != nil {
		return err
	}
	var stat unix.Stat_t
	if err = unix.Lstat(rp, &stat); err != nil {
		return err
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFCHR {
		return fmt.Errorf("%s: %w", path, ErrNotCharacterDevice)
	}
	// The device numbers must correspond to a device the GPIO subsystem
	// knows about, or this is some other character device squatting on
	// the name.
	sysfsdev, err := os.ReadFile(fmt.Sprintf("/sys/bus/gpio/devices/%s/dev", filepath.Base(rp)))
	if err != nil {
		return fmt.Errorf("%s: %w", path, ErrNotCharacterDevice)
	}
	devstr := fmt.Sprintf("%d:%d", unix.Major(uint64(stat.Rdev)), unix.Minor(uint64(stat.Rdev)))
	if strings.TrimSpace(string(sysfsdev)) != devstr {
		return fmt.Errorf("%s: device number mismatch: %w", path, ErrNotCharacterDevice)
	}
	return nil
}

// OpenChip opens the GPIO character device at path.
func OpenChip(path string) (*Chip, error) {
	if err := IsChipDevice(path); err != nil {
		return nil, err
	}
	// Non-blocking so info event reads can fail fast with ErrWouldBlock;
	// ioctls are unaffected.
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	ci, err := uapi.GetChipInfo(uintptr(fd))
	if err != nil {
		unix.Close(fd)
		if err == unix.ENOTTY {
			// Mirrors the historical behaviour of probing with the first
			// real ioctl.
			return nil, fmt.Errorf("%s: %w", path, ErrNotCharacterDevice)
		}
		return nil, fmt.Errorf("reading chip info from %s: %w", path, err)
	}
	c := Chip{
		path:    path,
		name:    uapi.BytesToString(ci.Name[:]),
		label:   uapi.BytesToString(ci.Label[:]),
		lines:   int(ci.Lines),
		fd:      fd,
		watched: map[int]bool{},
	}
	if len(c.label) == 0 {
		c.label = "unknown"
	}
	return &c, nil
}

// FindChip opens the chip identified by name, which may be a full device
// path, a device name such as "gpiochip0", or a driver label.
func FindChip(name string) (*Chip, error) {
	if strings.HasPrefix(name, "/") {
		return OpenChip(name)
	}
	path := "/dev/" + name
	if IsChipDevice(path) == nil {
		return OpenChip(path)
	}
	paths, err := ChipPaths()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		c, err := OpenChip(p)
		if err != nil {
			continue
		}
		if c.Name() == name || c.Label() == name {
			return c, nil
		}
		c.Close()
	}
	return nil, fmt.Errorf("no chip named %q: %w", name, ErrNotFound)
}

// Close releases the chip descriptor and any in-flight line info watches.
//
// Close is idempotent. Line requests made from the chip are independent
// and remain valid.
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.watched = nil
	return unix.Close(c.fd)
}

// Name returns the system name of the chip, e.g. "gpiochip0".
func (c *Chip) Name() string {
	return c.name
}

// Label returns the driver label of the chip, or "unknown" if the kernel
// reports none.
func (c *Chip) Label() string {
	return c.label
}

// Lines returns the number of lines on the chip.
func (c *Chip) Lines() int {
	return c.lines
}

// Path returns the device path the chip was opened from.
func (c *Chip) Path() string {
	return c.path
}

// Fd returns the chip descriptor, for use with Wait.
//
// Returns -1 if the chip is closed. Ownership stays with the Chip; do not
// close it.
func (c *Chip) Fd() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return -1
	}
	return c.fd
}

// LineInfo returns a fresh snapshot of the state of the line at offset.
func (c *Chip) LineInfo(offset int) (LineInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return LineInfo{}, ErrClosed
	}
	if offset < 0 || offset >= c.lines {
		return LineInfo{}, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidOffset, offset, c.lines)
	}
	uli, err := uapi.GetLineInfo(uintptr(c.fd), offset)
	if err != nil {
		return LineInfo{}, fmt.Errorf("reading line %d info: %w", offset, err)
	}
	return newLineInfo(uli), nil
}

// WatchLineInfo returns a fresh snapshot of the line at offset and
// registers the offset for info event delivery on the chip descriptor.
//
// Events are collected with ReadInfoEvent, typically gated by Wait.
func (c *Chip) WatchLineInfo(offset int) (LineInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return LineInfo{}, ErrClosed
	}
	if offset < 0 || offset >= c.lines {
		return LineInfo{}, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidOffset, offset, c.lines)
	}
	uli := uapi.LineInfo{Offset: uint32(offset)}
	if err := uapi.WatchLineInfo(uintptr(c.fd), &uli); err != nil {
		return LineInfo{}, fmt.Errorf("watching line %d: %w", offset, err)
	}
	c.watched[offset] = true
	return newLineInfo(uli), nil
}

// UnwatchLineInfo stops info event delivery for the line at offset.
//
// A no-op if the offset is not watched.
func (c *Chip) UnwatchLineInfo(offset int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.watched[offset] {
		return nil
	}
	delete(c.watched, offset)
	if err := uapi.UnwatchLineInfo(uintptr(c.fd), uint32(offset)); err != nil {
		return fmt.Errorf("unwatching line %d: %w", offset, err)
	}
	return nil
}

// ReadInfoEvent reads a single pending info event from the chip.
//
// Non-blocking: returns ErrWouldBlock when no event is pending. Combine
// with Wait, or WaitForInfoEvent, for blocking semantics.
func (c *Chip) ReadInfoEvent() (InfoEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return InfoEvent{}, ErrClosed
	}
	lic, err := uapi.ReadLineInfoChanged(uintptr(c.fd))
	if err != nil {
		if err == unix.EAGAIN {
			return InfoEvent{}, ErrWouldBlock
		}
		return InfoEvent{}, fmt.Errorf("reading info event: %w", err)
	}
	return newInfoEvent(lic), nil
}

// LineOffsetFromName returns the offset of the first line with the given
// name, scanning offsets in ascending order.
//
// Line names are not guaranteed unique; with duplicates the lowest
// matching offset wins. Returns ErrNotFound if no line carries the name.
func (c *Chip) LineOffsetFromName(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty line name", ErrInvalidArgument)
	}
	for offset := 0; offset < c.Lines(); offset++ {
		li, err := c.LineInfo(offset)
		if err != nil {
			return 0, err
		}
		if li.Name == name {
			return offset, nil
		}
	}
	return 0, fmt.Errorf("no line named %q: %w", name, ErrNotFound)
}

// RequestLines reserves the lines configured in lc for exclusive use and
// returns the LineRequest that owns them.
//
// The requested offsets are those of lc, deduplicated, in the order first
// added; rc may be nil for defaults. On success ownership of the kernel
// request descriptor rests solely with the returned LineRequest.
func (c *Chip) RequestLines(rc *RequestConfig, lc *LineConfig) (*LineRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if lc == nil {
		return nil, fmt.Errorf("%w: nil line config", ErrInvalidArgument)
	}
	offsets := lc.Offsets()
	if len(offsets) == 0 {
		return nil, fmt.Errorf("%w: empty line config", ErrInvalidArgument)
	}
	for _, o := range offsets {
		if o < 0 || o >= c.lines {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidOffset, o, c.lines)
		}
	}

	var ulr uapi.LineRequest
	ulc, err := lc.toUapi(offsets)
	if err != nil {
		return nil, err
	}
	ulr.Config = ulc
	ulr.Lines = uint32(len(offsets))
	for i, o := range offsets {
		ulr.Offsets[i] = uint32(o)
	}
	if err = rc.applyTo(&ulr); err != nil {
		return nil, err
	}
	if err = uapi.GetLine(uintptr(c.fd), &ulr); err != nil {
		return nil, fmt.Errorf("requesting lines %v: %w", offsets, err)
	}

	bufSize := int(ulr.EventBufferSize)
	if bufSize == 0 {
		bufSize = 16 * len(offsets)
	}
	settings := make(map[int]*LineSettings, len(offsets))
	for _, o := range offsets {
		settings[o] = lc.lineSettings(o).Copy()
	}
	return newLineRequest(c.name, int(ulr.Fd), offsets, settings, bufSize), nil
}
