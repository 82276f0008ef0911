// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// testRequestPipe builds a LineRequest around the read end of a pipe so
// Release has a real descriptor to close, returning the write end for
// tests that need to unblock a pending read. Only paths that fail before
// reaching the kernel can be exercised this way; value and event
// operations against real lines are covered by the hardware tests in
// chip_test.go.
func testRequestPipe(t *testing.T, offsets ...int) (*LineRequest, int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	t.Cleanup(func() { unix.Close(p[1]) })
	settings := map[int]*LineSettings{}
	for _, o := range offsets {
		settings[o] = NewLineSettings()
	}
	return newLineRequest("gpiochip0", p[0], offsets, settings, 16), p[1]
}

func testRequest(t *testing.T, offsets ...int) *LineRequest {
	t.Helper()
	r, _ := testRequestPipe(t, offsets...)
	return r
}

func TestLineRequestOffsets(t *testing.T) {
	r := testRequest(t, 3, 1, 4)
	defer r.Release()
	oo, err := r.Offsets()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 4}, oo)
	// The returned slice is a copy.
	oo[0] = 99
	oo, err = r.Offsets()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 4}, oo)

	chip, err := r.Chip()
	require.NoError(t, err)
	assert.Equal(t, "gpiochip0", chip)
}

func TestLineRequestRelease(t *testing.T) {
	r := testRequest(t, 0)
	assert.NotEqual(t, -1, r.Fd())
	require.NoError(t, r.Release())
	assert.Equal(t, -1, r.Fd())
	// Idempotent.
	assert.NoError(t, r.Release())
}

func TestLineRequestReleasedErrors(t *testing.T) {
	r := testRequest(t, 0, 1)
	require.NoError(t, r.Release())

	_, err := r.Value(0)
	assert.ErrorIs(t, err, ErrReleased)
	_, err = r.Values()
	assert.ErrorIs(t, err, ErrReleased)
	err = r.SetValue(0, LineValueActive)
	assert.ErrorIs(t, err, ErrReleased)
	err = r.Reconfigure(NewLineConfig())
	assert.ErrorIs(t, err, ErrReleased)
	_, err = r.ReadEdgeEvents(1)
	assert.ErrorIs(t, err, ErrReleased)
	_, err = r.Chip()
	assert.ErrorIs(t, err, ErrReleased)
	_, err = r.Offsets()
	assert.ErrorIs(t, err, ErrReleased)
}

func TestLineRequestReleaseUnblocksRead(t *testing.T) {
	r, w := testRequestPipe(t, 0)

	readErr := make(chan error, 1)
	go func() {
		_, err := r.ReadEdgeEvents(1)
		readErr <- err
	}()
	// Give the reader time to block in the kernel.
	time.Sleep(10 * time.Millisecond)

	// Release must not queue behind the blocked read.
	released := make(chan error, 1)
	go func() { released <- r.Release() }()
	select {
	case err := <-released:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Release blocked behind a pending edge read")
	}
	assert.Equal(t, -1, r.Fd())

	// Wake the reader; it must observe the release.
	_, err := unix.Write(w, []byte{0})
	require.NoError(t, err)
	select {
	case err := <-readErr:
		assert.ErrorIs(t, err, ErrReleased)
	case <-time.After(time.Second):
		t.Fatal("pending edge read did not observe the release")
	}
}

func TestLineRequestSubsetValidation(t *testing.T) {
	r := testRequest(t, 2, 5)
	defer r.Release()

	_, err := r.ValuesSubset(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Offsets outside the request fail fast, before any ioctl.
	_, err = r.ValuesSubset([]int{2, 7})
	assert.ErrorIs(t, err, ErrInvalidOffset)

	err = r.SetValuesSubset([]int{7}, []LineValue{LineValueActive})
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestLineRequestSetValuesLengthMismatch(t *testing.T) {
	r := testRequest(t, 2, 5)
	defer r.Release()

	err := r.SetValues([]LineValue{LineValueActive})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	err = r.SetValuesSubset([]int{2}, []LineValue{LineValueActive, LineValueInactive})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLineRequestReconfigureNil(t *testing.T) {
	r := testRequest(t, 0)
	defer r.Release()
	err := r.Reconfigure(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSubsetMask(t *testing.T) {
	r := testRequest(t, 8, 4, 2)
	defer r.Release()

	// Mask bits are positional within the request, not kernel offsets.
	mask, err := r.subsetMask([]int{4})
	require.NoError(t, err)
	assert.Equal(t, uint64(0b010), uint64(mask))

	mask, err = r.subsetMask([]int{2, 8})
	require.NoError(t, err)
	assert.Equal(t, uint64(0b101), uint64(mask))

	_, err = r.subsetMask([]int{3})
	assert.ErrorIs(t, err, ErrInvalidOffset)
}
