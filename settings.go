// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"fmt"
	"math"
	"time"

	"periph.io/x/gpiocdev/uapi"
)

// LineDirection indicates the direction of a line.
type LineDirection int

const (
	// LineDirectionAsIs leaves the direction unchanged.
	LineDirectionAsIs LineDirection = iota

	// LineDirectionInput requests the line as an input.
	LineDirectionInput

	// LineDirectionOutput requests the line as an output.
	LineDirectionOutput
)

// LineEdge indicates the edges detected on a line.
type LineEdge int

const (
	// LineEdgeNone disables edge detection.
	LineEdgeNone LineEdge = 0

	// LineEdgeRising enables rising edge detection, i.e. inactive to
	// active transitions.
	LineEdgeRising LineEdge = 1

	// LineEdgeFalling enables falling edge detection, i.e. active to
	// inactive transitions.
	LineEdgeFalling LineEdge = 2

	// LineEdgeBoth enables detection of both edges.
	LineEdgeBoth LineEdge = LineEdgeRising | LineEdgeFalling
)

// LineBias indicates the bias applied to a line.
type LineBias int

const (
	// LineBiasAsIs leaves the bias unchanged.
	LineBiasAsIs LineBias = iota

	// LineBiasUnknown indicates the bias is unknown. Only reported in
	// line info, never requested.
	LineBiasUnknown

	// LineBiasDisabled requests the internal bias be disabled.
	LineBiasDisabled

	// LineBiasPullUp requests the internal pull up be enabled.
	LineBiasPullUp

	// LineBiasPullDown requests the internal pull down be enabled.
	LineBiasPullDown
)

// LineDrive indicates the drive of an output line.
type LineDrive int

const (
	// LineDrivePushPull indicates the line is driven both high and low.
	LineDrivePushPull LineDrive = iota

	// LineDriveOpenDrain indicates the line is only driven low.
	LineDriveOpenDrain

	// LineDriveOpenSource indicates the line is only driven high.
	LineDriveOpenSource
)

// LineEventClock indicates the clock used to timestamp edge events.
type LineEventClock int

const (
	// LineEventClockMonotonic indicates CLOCK_MONOTONIC.
	LineEventClockMonotonic LineEventClock = iota

	// LineEventClockRealtime indicates CLOCK_REALTIME.
	LineEventClockRealtime

	// LineEventClockHTE indicates the hardware timestamp engine.
	LineEventClockHTE
)

// LineValue is the logical state of a line.
type LineValue int

const (
	// LineValueInactive is the logical low state.
	LineValueInactive LineValue = iota

	// LineValueActive is the logical high state.
	LineValueActive
)

// LineSettings describes the desired electrical and behavioural
// configuration of a single line.
//
// The zero value, and the value returned by NewLineSettings, requests the
// line "as-is": direction unchanged, no edge detection, bias unchanged,
// push-pull drive, active high, no debounce, monotonic event clock,
// inactive output value.
//
// Setters validate their argument. On an invalid value the field is reset
// to its default, not left stale, and an error wrapping ErrInvalidArgument
// is returned.
type LineSettings struct {
	direction      LineDirection
	edge           LineEdge
	bias           LineBias
	drive          LineDrive
	activeLow      bool
	debouncePeriod time.Duration
	eventClock     LineEventClock
	outputValue    LineValue
}

// NewLineSettings returns settings with all fields at their defaults.
func NewLineSettings() *LineSettings {
	return &LineSettings{}
}

// Reset returns all fields to their defaults.
func (s *LineSettings) Reset() {
	*s = LineSettings{}
}

// Copy returns an independent copy of the settings.
func (s *LineSettings) Copy() *LineSettings {
	c := *s
	return &c
}

// SetDirection sets the line direction.
func (s *LineSettings) SetDirection(d LineDirection) error {
	switch d {
	case LineDirectionAsIs, LineDirectionInput, LineDirectionOutput:
		s.direction = d
		return nil
	}
	s.direction = LineDirectionAsIs
	return fmt.Errorf("%w: unknown direction %d", ErrInvalidArgument, d)
}

// Direction returns the line direction.
func (s *LineSettings) Direction() LineDirection {
	return s.direction
}

// SetEdgeDetection sets the edges detected on the line.
func (s *LineSettings) SetEdgeDetection(e LineEdge) error {
	switch e {
	case LineEdgeNone, LineEdgeRising, LineEdgeFalling, LineEdgeBoth:
		s.edge = e
		return nil
	}
	s.edge = LineEdgeNone
	return fmt.Errorf("%w: unknown edge detection %d", ErrInvalidArgument, e)
}

// EdgeDetection returns the edges detected on the line.
func (s *LineSettings) EdgeDetection() LineEdge {
	return s.edge
}

// SetBias sets the line bias.
//
// LineBiasUnknown is only ever reported in line info and is rejected here.
func (s *LineSettings) SetBias(b LineBias) error {
	switch b {
	case LineBiasAsIs, LineBiasDisabled, LineBiasPullUp, LineBiasPullDown:
		s.bias = b
		return nil
	}
	s.bias = LineBiasAsIs
	return fmt.Errorf("%w: unknown bias %d", ErrInvalidArgument, b)
}

// Bias returns the line bias.
func (s *LineSettings) Bias() LineBias {
	return s.bias
}

// SetDrive sets the output drive of the line.
func (s *LineSettings) SetDrive(d LineDrive) error {
	switch d {
	case LineDrivePushPull, LineDriveOpenDrain, LineDriveOpenSource:
		s.drive = d
		return nil
	}
	s.drive = LineDrivePushPull
	return fmt.Errorf("%w: unknown drive %d", ErrInvalidArgument, d)
}

// Drive returns the output drive of the line.
func (s *LineSettings) Drive() LineDrive {
	return s.drive
}

// SetActiveLow sets whether the line is active low.
func (s *LineSettings) SetActiveLow(v bool) {
	s.activeLow = v
}

// ActiveLow returns true if the line is active low.
func (s *LineSettings) ActiveLow() bool {
	return s.activeLow
}

// maxDebouncePeriod is the largest period the kernel's 32 bit
// microsecond debounce attribute can carry.
const maxDebouncePeriod = time.Duration(math.MaxUint32) * time.Microsecond

// SetDebouncePeriod sets the debounce period of the line.
//
// Zero disables debouncing. The period is stored with microsecond
// granularity, matching the kernel, and is limited to the range of the
// kernel's 32 bit microsecond attribute.
func (s *LineSettings) SetDebouncePeriod(period time.Duration) error {
	if period < 0 {
		s.debouncePeriod = 0
		return fmt.Errorf("%w: negative debounce period", ErrInvalidArgument)
	}
	if period > maxDebouncePeriod {
		s.debouncePeriod = 0
		return fmt.Errorf("%w: debounce period %s exceeds %s",
			ErrInvalidArgument, period, maxDebouncePeriod)
	}
	s.debouncePeriod = period.Truncate(time.Microsecond)
	return nil
}

// DebouncePeriod returns the debounce period of the line.
func (s *LineSettings) DebouncePeriod() time.Duration {
	return s.debouncePeriod
}

// SetEventClock sets the clock used to timestamp edge events on the line.
func (s *LineSettings) SetEventClock(c LineEventClock) error {
	switch c {
	case LineEventClockMonotonic, LineEventClockRealtime, LineEventClockHTE:
		s.eventClock = c
		return nil
	}
	s.eventClock = LineEventClockMonotonic
	return fmt.Errorf("%w: unknown event clock %d", ErrInvalidArgument, c)
}

// EventClock returns the clock used to timestamp edge events on the line.
func (s *LineSettings) EventClock() LineEventClock {
	return s.eventClock
}

// SetOutputValue sets the value driven on the line when it is requested
// as an output.
func (s *LineSettings) SetOutputValue(v LineValue) error {
	switch v {
	case LineValueInactive, LineValueActive:
		s.outputValue = v
		return nil
	}
	s.outputValue = LineValueInactive
	return fmt.Errorf("%w: unknown output value %d", ErrInvalidArgument, v)
}

// OutputValue returns the value driven on the line when it is requested
// as an output.
func (s *LineSettings) OutputValue() LineValue {
	return s.outputValue
}

// uapiFlags maps the settings onto v2 line flags. The debounce period and
// output value are carried by attributes, not flags.
func (s *LineSettings) uapiFlags() uapi.LineFlagV2 {
	var f uapi.LineFlagV2
	if s.activeLow {
		f |= uapi.LineFlagV2ActiveLow
	}
	switch s.direction {
	case LineDirectionInput:
		f |= uapi.LineFlagV2Input
	case LineDirectionOutput:
		f |= uapi.LineFlagV2Output
	}
	if s.edge&LineEdgeRising != 0 {
		f |= uapi.LineFlagV2EdgeRising
	}
	if s.edge&LineEdgeFalling != 0 {
		f |= uapi.LineFlagV2EdgeFalling
	}
	switch s.bias {
	case LineBiasDisabled:
		f |= uapi.LineFlagV2BiasDisabled
	case LineBiasPullUp:
		f |= uapi.LineFlagV2BiasPullUp
	case LineBiasPullDown:
		f |= uapi.LineFlagV2BiasPullDown
	}
	switch s.drive {
	case LineDriveOpenDrain:
		f |= uapi.LineFlagV2OpenDrain
	case LineDriveOpenSource:
		f |= uapi.LineFlagV2OpenSource
	}
	switch s.eventClock {
	case LineEventClockRealtime:
		f |= uapi.LineFlagV2EventClockRealtime
	case LineEventClockHTE:
		f |= uapi.LineFlagV2EventClockHTE
	}
	return f
}
