// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

// Package uapi provides the Linux GPIO character device v2 uAPI: the ioctl
// request codes, the packed kernel struct layouts, and thin wrappers over
// the corresponding syscalls.
//
// Only the v2 ("line config/attribute") protocol generation is implemented.
// The v1 handle/event structures are a distinct, incompatible layout and
// must never be mixed with these.
//
// https://docs.kernel.org/userspace-api/gpio/chardev.html
package uapi

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"
)

// From the linux /usr/include/asm-generic/ioctl.h file.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

type ioctl uintptr

func ioc(dir, typ, nr, size uintptr) ioctl {
	return ioctl(dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift)
}

func ior(typ, nr, size uintptr) ioctl {
	return ioc(iocRead, typ, nr, size)
}

func iorw(typ, nr, size uintptr) ioctl {
	return ioc(iocRead|iocWrite, typ, nr, size)
}

// From the /usr/include/linux/gpio.h header file.
const (
	// NameSize is the size of the kernel name and consumer byte arrays.
	NameSize = 32

	// LinesMax is the maximum number of lines in one request.
	LinesMax = 64

	// NumAttrsMax is the maximum number of config attributes in one request.
	NumAttrsMax = 10
)

var (
	getChipInfoIoctl     ioctl
	getLineInfoIoctl     ioctl
	watchLineInfoIoctl   ioctl
	unwatchLineInfoIoctl ioctl
	getLineIoctl         ioctl
	setLineConfigIoctl   ioctl
	getLineValuesIoctl   ioctl
	setLineValuesIoctl   ioctl
)

// nativeEndian is the byte order the kernel writes event records in.
var nativeEndian binary.ByteOrder

func init() {
	// ioctls require struct sizes which are only available at runtime.
	var ci ChipInfo
	getChipInfoIoctl = ior(0xB4, 0x01, unsafe.Sizeof(ci))
	var li LineInfo
	getLineInfoIoctl = iorw(0xB4, 0x05, unsafe.Sizeof(li))
	watchLineInfoIoctl = iorw(0xB4, 0x06, unsafe.Sizeof(li))
	unwatchLineInfoIoctl = iorw(0xB4, 0x0C, unsafe.Sizeof(li.Offset))
	var lr LineRequest
	getLineIoctl = iorw(0xB4, 0x07, unsafe.Sizeof(lr))
	var lc LineConfig
	setLineConfigIoctl = iorw(0xB4, 0x0D, unsafe.Sizeof(lc))
	var lv LineValues
	getLineValuesIoctl = iorw(0xB4, 0x0E, unsafe.Sizeof(lv))
	setLineValuesIoctl = iorw(0xB4, 0x0F, unsafe.Sizeof(lv))

	probe := uint16(1)
	if *(*byte)(unsafe.Pointer(&probe)) == 1 {
		nativeEndian = binary.LittleEndian
	} else {
		nativeEndian = binary.BigEndian
	}
}

// ChipInfo contains the details of a GPIO chip.
type ChipInfo struct {
	// The system name of the device.
	Name [NameSize]byte

	// An identifying label added by the device driver.
	Label [NameSize]byte

	// The number of lines supported by this chip.
	Lines uint32
}

// LineFlagV2 are the flags for a line, as reported in line info and applied
// by line config.
type LineFlagV2 uint64

const (
	// LineFlagV2Used indicates the line is in use, not necessarily by this
	// process.
	LineFlagV2Used LineFlagV2 = 1 << iota

	// LineFlagV2ActiveLow indicates the line active state is physical low.
	LineFlagV2ActiveLow

	// LineFlagV2Input indicates the line is an input.
	LineFlagV2Input

	// LineFlagV2Output indicates the line is an output.
	LineFlagV2Output

	// LineFlagV2EdgeRising indicates the line has rising edge detection
	// enabled.
	LineFlagV2EdgeRising

	// LineFlagV2EdgeFalling indicates the line has falling edge detection
	// enabled.
	LineFlagV2EdgeFalling

	// LineFlagV2OpenDrain indicates the line is an open drain output.
	LineFlagV2OpenDrain

	// LineFlagV2OpenSource indicates the line is an open source output.
	LineFlagV2OpenSource

	// LineFlagV2BiasPullUp indicates the internal pull up is enabled.
	LineFlagV2BiasPullUp

	// LineFlagV2BiasPullDown indicates the internal pull down is enabled.
	LineFlagV2BiasPullDown

	// LineFlagV2BiasDisabled indicates the internal bias is disabled.
	LineFlagV2BiasDisabled

	// LineFlagV2EventClockRealtime indicates edge events are timestamped
	// with CLOCK_REALTIME.
	LineFlagV2EventClockRealtime

	// LineFlagV2EventClockHTE indicates edge events are timestamped by the
	// hardware timestamp engine.
	LineFlagV2EventClockHTE

	// LineFlagV2EdgeBoth is a helper value for both edges.
	LineFlagV2EdgeBoth = LineFlagV2EdgeRising | LineFlagV2EdgeFalling
)

// IsAvailable returns true if the line is available to be requested.
func (f LineFlagV2) IsAvailable() bool {
	return f&LineFlagV2Used == 0
}

// IsUsed returns true if the line is in use.
func (f LineFlagV2) IsUsed() bool {
	return f&LineFlagV2Used != 0
}

// IsActiveLow returns true if the line is active low.
func (f LineFlagV2) IsActiveLow() bool {
	return f&LineFlagV2ActiveLow != 0
}

// IsInput returns true if the line is an input.
func (f LineFlagV2) IsInput() bool {
	return f&LineFlagV2Input != 0
}

// IsOutput returns true if the line is an output.
func (f LineFlagV2) IsOutput() bool {
	return f&LineFlagV2Output != 0
}

// IsRisingEdge returns true if the line has rising edge detection enabled.
func (f LineFlagV2) IsRisingEdge() bool {
	return f&LineFlagV2EdgeRising != 0
}

// IsFallingEdge returns true if the line has falling edge detection enabled.
func (f LineFlagV2) IsFallingEdge() bool {
	return f&LineFlagV2EdgeFalling != 0
}

// IsBothEdges returns true if the line has both edge detections enabled.
func (f LineFlagV2) IsBothEdges() bool {
	return f&LineFlagV2EdgeBoth == LineFlagV2EdgeBoth
}

// IsOpenDrain returns true if the line is an open drain output.
func (f LineFlagV2) IsOpenDrain() bool {
	return f&LineFlagV2OpenDrain != 0
}

// IsOpenSource returns true if the line is an open source output.
func (f LineFlagV2) IsOpenSource() bool {
	return f&LineFlagV2OpenSource != 0
}

// IsBiasPullUp returns true if the line has pull up enabled.
func (f LineFlagV2) IsBiasPullUp() bool {
	return f&LineFlagV2BiasPullUp != 0
}

// IsBiasPullDown returns true if the line has pull down enabled.
func (f LineFlagV2) IsBiasPullDown() bool {
	return f&LineFlagV2BiasPullDown != 0
}

// IsBiasDisabled returns true if the line has bias disabled.
func (f LineFlagV2) IsBiasDisabled() bool {
	return f&LineFlagV2BiasDisabled != 0
}

// LineAttributeID identifies the type of a line attribute.
type LineAttributeID uint32

const (
	// LineAttributeIDFlags indicates the attribute carries LineFlagV2.
	LineAttributeIDFlags LineAttributeID = iota + 1

	// LineAttributeIDOutputValues indicates the attribute carries a bitmap
	// of output values.
	LineAttributeIDOutputValues

	// LineAttributeIDDebounce indicates the attribute carries a debounce
	// period in microseconds.
	LineAttributeIDDebounce
)

// LineAttribute defines a configuration attribute for a line.
//
// The value field is a union in the kernel struct; which interpretation
// applies depends on the ID.
type LineAttribute struct {
	ID LineAttributeID

	Padding [1]uint32

	Value [8]byte
}

// Encode32 stores a 32-bit value in the attribute.
func (la *LineAttribute) Encode32(id LineAttributeID, value uint32) {
	la.ID = id
	nativeEndian.PutUint32(la.Value[:4], value)
}

// Encode64 stores a 64-bit value in the attribute.
func (la *LineAttribute) Encode64(id LineAttributeID, value uint64) {
	la.ID = id
	nativeEndian.PutUint64(la.Value[:], value)
}

// Value32 returns the attribute value interpreted as a 32-bit value.
func (la LineAttribute) Value32() uint32 {
	return nativeEndian.Uint32(la.Value[:4])
}

// Value64 returns the attribute value interpreted as a 64-bit value.
func (la LineAttribute) Value64() uint64 {
	return nativeEndian.Uint64(la.Value[:])
}

// LineConfigAttribute associates a LineAttribute with the lines it applies
// to, the mask being indexed by position within the request, not by offset.
type LineConfigAttribute struct {
	// Attr is the attribute to be applied.
	Attr LineAttribute

	// Mask identifies the lines the attribute applies to.
	Mask LineBitmap
}

// LineConfig contains the configuration of a set of lines.
type LineConfig struct {
	// Flags defines the default flags applied to all lines in the request
	// that are not overridden by an attribute.
	Flags LineFlagV2

	// NumAttrs is the number of attributes in Attrs.
	NumAttrs uint32

	Padding [5]uint32

	Attrs [NumAttrsMax]LineConfigAttribute
}

// AddAttribute appends an attribute to the config.
//
// Returns false if the attribute table is already full.
func (lc *LineConfig) AddAttribute(lca LineConfigAttribute) bool {
	if lc.NumAttrs >= NumAttrsMax {
		return false
	}
	lc.Attrs[lc.NumAttrs] = lca
	lc.NumAttrs++
	return true
}

// LineRequest is a request for control of a set of lines.
// The lines must all be on the same GPIO chip.
type LineRequest struct {
	// Offsets contains the lines to be requested.
	Offsets [LinesMax]uint32

	// Consumer is the string identifying the requester.
	Consumer [NameSize]byte

	// Config is the requested configuration for the lines.
	Config LineConfig

	// Lines is the number of lines being requested.
	Lines uint32

	// EventBufferSize requests a minimum kernel edge event buffer size.
	// Zero selects the kernel default. The kernel may clamp the value.
	EventBufferSize uint32

	Padding [5]uint32

	// Fd is the file handle for the requested lines.
	// Set by the kernel if the request is successful.
	Fd int32
}

// LineValues contains the logical values of a set of lines, both indexed by
// position within the request.
type LineValues struct {
	// Bits holds the values, one bit per line.
	Bits LineBitmap

	// Mask identifies the lines the operation applies to.
	Mask LineBitmap
}

// LineInfo contains the details of a single line of a GPIO chip.
type LineInfo struct {
	// The system name for this line.
	Name [NameSize]byte

	// If requested, a string added by the requester to identify the
	// owner of the request.
	Consumer [NameSize]byte

	// The offset of the line within the chip.
	Offset uint32

	// The number of attributes in Attrs.
	NumAttrs uint32

	// The line flags applied to this line.
	Flags LineFlagV2

	// The attributes applied to this line.
	Attrs [NumAttrsMax]LineAttribute

	Padding [4]uint32
}

// ChangeType indicates the type of change that has occurred to a line.
type ChangeType uint32

const (
	_ ChangeType = iota

	// LineChangedRequested indicates the line has been requested.
	LineChangedRequested

	// LineChangedReleased indicates the line has been released.
	LineChangedReleased

	// LineChangedConfig indicates the line configuration has changed.
	LineChangedConfig
)

// LineInfoChanged contains the details of a change to line info.
//
// This is read from the chip fd in response to changes to watched lines.
type LineInfoChanged struct {
	// Info is the updated line info.
	Info LineInfo

	// Timestamp is the time the change occurred, in nanoseconds of
	// CLOCK_MONOTONIC.
	Timestamp uint64

	// Type is the type of change.
	Type ChangeType

	Padding [5]uint32
}

// LineEventID indicates the type of a line edge event.
type LineEventID uint32

const (
	// LineEventRisingEdge indicates the line transitioned from inactive to
	// active.
	LineEventRisingEdge LineEventID = iota + 1

	// LineEventFallingEdge indicates the line transitioned from active to
	// inactive.
	LineEventFallingEdge
)

// LineEvent contains the details of a particular line edge event.
//
// This is read from the request fd in response to events.
type LineEvent struct {
	// Timestamp is the time the event was detected, in nanoseconds of the
	// clock selected by the line config event clock flags.
	Timestamp uint64

	// ID is the type of event detected.
	ID LineEventID

	// Offset is the offset of the line that triggered the event.
	Offset uint32

	// Seqno is the sequence number of the event across all lines in the
	// request.
	Seqno uint32

	// LineSeqno is the sequence number of the event on this particular
	// line.
	LineSeqno uint32

	Padding [6]uint32
}

// LineEventSize is the size of a single encoded LineEvent record.
const LineEventSize = int(unsafe.Sizeof(LineEvent{}))

// LineInfoChangedSize is the size of a single encoded LineInfoChanged
// record.
const LineInfoChangedSize = int(unsafe.Sizeof(LineInfoChanged{}))

func callIoctl(fd uintptr, req ioctl, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// GetChipInfo returns the ChipInfo for the GPIO character device.
//
// The fd is an open GPIO character device.
func GetChipInfo(fd uintptr) (ChipInfo, error) {
	var ci ChipInfo
	err := callIoctl(fd, getChipInfoIoctl, unsafe.Pointer(&ci))
	if err != nil {
		return ChipInfo{}, err
	}
	return ci, nil
}

// GetLineInfo returns the LineInfo for one line of the GPIO character
// device.
//
// The offset is zero based.
func GetLineInfo(fd uintptr, offset int) (LineInfo, error) {
	li := LineInfo{Offset: uint32(offset)}
	err := callIoctl(fd, getLineInfoIoctl, unsafe.Pointer(&li))
	if err != nil {
		return LineInfo{}, err
	}
	return li, nil
}

// WatchLineInfo sets a watch on the line identified by info.Offset.
//
// If successful the current line info is returned in info.
func WatchLineInfo(fd uintptr, info *LineInfo) error {
	return callIoctl(fd, watchLineInfoIoctl, unsafe.Pointer(info))
}

// UnwatchLineInfo clears a watch on the line at the given offset.
func UnwatchLineInfo(fd uintptr, offset uint32) error {
	return callIoctl(fd, unwatchLineInfoIoctl, unsafe.Pointer(&offset))
}

// GetLine requests a set of lines from the GPIO character device.
//
// The lines must not already be requested. If successful, the fd for the
// request is returned in request.Fd and ownership of that descriptor
// passes to the caller.
func GetLine(fd uintptr, request *LineRequest) error {
	return callIoctl(fd, getLineIoctl, unsafe.Pointer(request))
}

// SetLineConfig applies a new configuration to an existing line request.
//
// The fd is a request fd, as returned by GetLine. The config completely
// replaces the previous configuration of the requested lines.
func SetLineConfig(fd uintptr, config *LineConfig) error {
	return callIoctl(fd, setLineConfigIoctl, unsafe.Pointer(config))
}

// GetLineValues reads the values of the lines selected by values.Mask.
//
// The fd is a request fd, as returned by GetLine.
func GetLineValues(fd uintptr, values *LineValues) error {
	return callIoctl(fd, getLineValuesIoctl, unsafe.Pointer(values))
}

// SetLineValues writes values.Bits to the lines selected by values.Mask.
//
// The fd is a request fd, as returned by GetLine.
func SetLineValues(fd uintptr, values LineValues) error {
	return callIoctl(fd, setLineValuesIoctl, unsafe.Pointer(&values))
}

// BytesToString converts the kernel's NUL-padded byte arrays, as found in
// ChipInfo and LineInfo, into strings.
func BytesToString(a []byte) string {
	n := bytes.IndexByte(a, 0)
	if n == -1 {
		return string(a)
	}
	return string(a[:n])
}

// ReadLineEvents reads as many complete edge event records as are
// available, up to the capacity of buf, decoding them in place.
//
// The fd is a request fd. The read blocks until at least one event is
// available unless the fd is non-blocking, in which case unix.EAGAIN is
// returned when no events are pending. buf must hold at least one record.
func ReadLineEvents(fd uintptr, buf []byte) ([]LineEvent, error) {
	n, err := unix.Read(int(fd), buf[:len(buf)-len(buf)%LineEventSize])
	if err != nil {
		return nil, err
	}
	evts := make([]LineEvent, 0, n/LineEventSize)
	for i := 0; i+LineEventSize <= n; i += LineEventSize {
		var le LineEvent
		if err := binary.Read(bytes.NewReader(buf[i:i+LineEventSize]), nativeEndian, &le); err != nil {
			return evts, err
		}
		evts = append(evts, le)
	}
	return evts, nil
}

// ReadLineInfoChanged reads a single line info changed event from a chip
// fd.
//
// The read blocks until an event is available unless the fd is
// non-blocking, in which case unix.EAGAIN is returned when no event is
// pending.
func ReadLineInfoChanged(fd uintptr) (LineInfoChanged, error) {
	buf := make([]byte, LineInfoChangedSize)
	_, err := unix.Read(int(fd), buf)
	if err != nil {
		return LineInfoChanged{}, err
	}
	var lic LineInfoChanged
	if err := binary.Read(bytes.NewReader(buf), nativeEndian, &lic); err != nil {
		return LineInfoChanged{}, err
	}
	return lic, nil
}
