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

func testPipe(t *testing.T) (int, int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	t.Cleanup(func() {
		unix.Close(p[0])
		unix.Close(p[1])
	})
	return p[0], p[1]
}

func TestWaitNoneReady(t *testing.T) {
	r, _ := testPipe(t)
	// Zero timeout polls and returns immediately.
	ready, err := Wait([]int{r}, 0)
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestWaitReady(t *testing.T) {
	r, w := testPipe(t)
	_, err := unix.Write(w, []byte{1})
	require.NoError(t, err)
	ready, err := Wait([]int{r}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []int{r}, ready)
}

func TestWaitTimeout(t *testing.T) {
	r, _ := testPipe(t)
	start := time.Now()
	ready, err := Wait([]int{r}, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, ready)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWaitMultiple(t *testing.T) {
	r1, w1 := testPipe(t)
	r2, w2 := testPipe(t)
	_, err := unix.Write(w1, []byte{1})
	require.NoError(t, err)
	_, err = unix.Write(w2, []byte{1})
	require.NoError(t, err)

	// Ready descriptors come back in input order.
	ready, err := Wait([]int{r2, r1}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []int{r2, r1}, ready)
}

func TestWaitUnblocks(t *testing.T) {
	r, w := testPipe(t)
	go func() {
		time.Sleep(10 * time.Millisecond)
		unix.Write(w, []byte{1})
	}()
	// Negative timeout blocks until a descriptor is ready.
	ready, err := Wait([]int{r}, -1)
	require.NoError(t, err)
	assert.Equal(t, []int{r}, ready)
}

func TestWaitInvalidFd(t *testing.T) {
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	unix.Close(p[0])
	unix.Close(p[1])
	_, err := Wait([]int{p[0]}, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWaitForEdgeEventReleased(t *testing.T) {
	r := testRequest(t, 0)
	require.NoError(t, r.Release())
	_, err := WaitForEdgeEvent(r, 0)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestWaitEmpty(t *testing.T) {
	_, err := Wait(nil, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
