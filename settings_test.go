// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLineSettingsDefaults(t *testing.T) {
	s := NewLineSettings()
	assert.Equal(t, LineDirectionAsIs, s.Direction())
	assert.Equal(t, LineEdgeNone, s.EdgeDetection())
	assert.Equal(t, LineBiasAsIs, s.Bias())
	assert.Equal(t, LineDrivePushPull, s.Drive())
	assert.False(t, s.ActiveLow())
	assert.Equal(t, time.Duration(0), s.DebouncePeriod())
	assert.Equal(t, LineEventClockMonotonic, s.EventClock())
	assert.Equal(t, LineValueInactive, s.OutputValue())
}

func TestLineSettingsSetDirection(t *testing.T) {
	s := NewLineSettings()
	require.NoError(t, s.SetDirection(LineDirectionOutput))
	assert.Equal(t, LineDirectionOutput, s.Direction())

	err := s.SetDirection(LineDirection(42))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	// An invalid value resets the field to its default.
	assert.Equal(t, LineDirectionAsIs, s.Direction())
}

func TestLineSettingsSetEdgeDetection(t *testing.T) {
	s := NewLineSettings()
	for _, e := range []LineEdge{LineEdgeRising, LineEdgeFalling, LineEdgeBoth, LineEdgeNone} {
		require.NoError(t, s.SetEdgeDetection(e))
		assert.Equal(t, e, s.EdgeDetection())
	}
	err := s.SetEdgeDetection(LineEdge(42))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, LineEdgeNone, s.EdgeDetection())
}

func TestLineSettingsSetBias(t *testing.T) {
	s := NewLineSettings()
	for _, b := range []LineBias{LineBiasDisabled, LineBiasPullUp, LineBiasPullDown, LineBiasAsIs} {
		require.NoError(t, s.SetBias(b))
		assert.Equal(t, b, s.Bias())
	}
	// Unknown is only ever reported in line info, never configured.
	err := s.SetBias(LineBiasUnknown)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, LineBiasAsIs, s.Bias())
}

func TestLineSettingsSetDrive(t *testing.T) {
	s := NewLineSettings()
	for _, d := range []LineDrive{LineDriveOpenDrain, LineDriveOpenSource, LineDrivePushPull} {
		require.NoError(t, s.SetDrive(d))
		assert.Equal(t, d, s.Drive())
	}
	err := s.SetDrive(LineDrive(42))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, LineDrivePushPull, s.Drive())
}

func TestLineSettingsSetDebouncePeriod(t *testing.T) {
	s := NewLineSettings()
	require.NoError(t, s.SetDebouncePeriod(10*time.Millisecond))
	assert.Equal(t, 10*time.Millisecond, s.DebouncePeriod())

	// Sub-microsecond precision is truncated to the microsecond the
	// kernel understands.
	require.NoError(t, s.SetDebouncePeriod(1500*time.Nanosecond))
	assert.Equal(t, 1*time.Microsecond, s.DebouncePeriod())

	err := s.SetDebouncePeriod(-time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, time.Duration(0), s.DebouncePeriod())

	// Periods beyond the kernel's 32 bit microsecond attribute are
	// rejected rather than silently wrapped.
	require.NoError(t, s.SetDebouncePeriod(maxDebouncePeriod))
	err = s.SetDebouncePeriod(maxDebouncePeriod + time.Microsecond)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, time.Duration(0), s.DebouncePeriod())
}

func TestLineSettingsSetEventClock(t *testing.T) {
	s := NewLineSettings()
	for _, c := range []LineEventClock{LineEventClockRealtime, LineEventClockHTE, LineEventClockMonotonic} {
		require.NoError(t, s.SetEventClock(c))
		assert.Equal(t, c, s.EventClock())
	}
	err := s.SetEventClock(LineEventClock(42))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, LineEventClockMonotonic, s.EventClock())
}

func TestLineSettingsSetOutputValue(t *testing.T) {
	s := NewLineSettings()
	require.NoError(t, s.SetOutputValue(LineValueActive))
	assert.Equal(t, LineValueActive, s.OutputValue())

	err := s.SetOutputValue(LineValue(42))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, LineValueInactive, s.OutputValue())
}

func TestLineSettingsReset(t *testing.T) {
	s := NewLineSettings()
	require.NoError(t, s.SetDirection(LineDirectionInput))
	require.NoError(t, s.SetEdgeDetection(LineEdgeBoth))
	s.SetActiveLow(true)
	s.Reset()
	assert.Equal(t, LineDirectionAsIs, s.Direction())
	assert.Equal(t, LineEdgeNone, s.EdgeDetection())
	assert.False(t, s.ActiveLow())
}

func TestLineSettingsCopy(t *testing.T) {
	s := NewLineSettings()
	require.NoError(t, s.SetDirection(LineDirectionOutput))
	require.NoError(t, s.SetOutputValue(LineValueActive))

	c := s.Copy()
	assert.Equal(t, s.Direction(), c.Direction())
	assert.Equal(t, s.OutputValue(), c.OutputValue())

	// The copy is independent.
	require.NoError(t, c.SetDirection(LineDirectionInput))
	assert.Equal(t, LineDirectionOutput, s.Direction())
}
