// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"time"

	"periph.io/x/gpiocdev/uapi"
)

// LineInfo is an immutable snapshot of the publicly visible state of one
// line.
//
// It is produced on demand by Chip.LineInfo and attached to info events; a
// fresh snapshot replaces it, it is never updated in place.
type LineInfo struct {
	// Offset is the offset of the line within the chip.
	Offset int

	// Name is the system name for the line, if any.
	Name string

	// Used indicates the line is in use, not necessarily by this process.
	Used bool

	// Consumer identifies the owner of the line, if it is requested.
	Consumer string

	// Direction is the direction of the line.
	Direction LineDirection

	// EdgeDetection is the edge detection active on the line.
	EdgeDetection LineEdge

	// Bias is the bias applied to the line.
	Bias LineBias

	// Drive is the drive of the line.
	Drive LineDrive

	// ActiveLow indicates the line active state is physical low.
	ActiveLow bool

	// Debounced indicates the line is being debounced.
	Debounced bool

	// DebouncePeriod is the period the line is debounced with.
	DebouncePeriod time.Duration

	// EventClock is the clock timestamping edge events on the line.
	EventClock LineEventClock
}

func newLineInfo(uli uapi.LineInfo) LineInfo {
	li := LineInfo{
		Offset:    int(uli.Offset),
		Name:      uapi.BytesToString(uli.Name[:]),
		Consumer:  uapi.BytesToString(uli.Consumer[:]),
		Used:      uli.Flags.IsUsed(),
		ActiveLow: uli.Flags.IsActiveLow(),
	}

	if uli.Flags.IsOutput() {
		li.Direction = LineDirectionOutput
		if uli.Flags.IsOpenDrain() {
			li.Drive = LineDriveOpenDrain
		} else if uli.Flags.IsOpenSource() {
			li.Drive = LineDriveOpenSource
		}
	} else {
		li.Direction = LineDirectionInput
	}

	if uli.Flags.IsRisingEdge() {
		li.EdgeDetection |= LineEdgeRising
	}
	if uli.Flags.IsFallingEdge() {
		li.EdgeDetection |= LineEdgeFalling
	}

	switch {
	case uli.Flags.IsBiasPullUp():
		li.Bias = LineBiasPullUp
	case uli.Flags.IsBiasPullDown():
		li.Bias = LineBiasPullDown
	case uli.Flags.IsBiasDisabled():
		li.Bias = LineBiasDisabled
	default:
		li.Bias = LineBiasUnknown
	}

	switch {
	case uli.Flags&uapi.LineFlagV2EventClockRealtime != 0:
		li.EventClock = LineEventClockRealtime
	case uli.Flags&uapi.LineFlagV2EventClockHTE != 0:
		li.EventClock = LineEventClockHTE
	}

	for i := 0; i < int(uli.NumAttrs) && i < uapi.NumAttrsMax; i++ {
		if uli.Attrs[i].ID == uapi.LineAttributeIDDebounce {
			li.Debounced = true
			li.DebouncePeriod = time.Duration(uli.Attrs[i].Value32()) * time.Microsecond
		}
	}
	return li
}
