// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"periph.io/x/gpiocdev/uapi"
)

func TestDefaultConsumer(t *testing.T) {
	c := defaultConsumer()
	assert.Contains(t, c, "@")
	assert.NotEqual(t, "@", c[:1])
}

func TestRequestConfigApplyTo(t *testing.T) {
	var ulr uapi.LineRequest
	rc := RequestConfig{Consumer: "test-consumer", EventBufferSize: 42}
	require.NoError(t, rc.applyTo(&ulr))
	assert.Equal(t, "test-consumer", uapi.BytesToString(ulr.Consumer[:]))
	assert.Equal(t, uint32(42), ulr.EventBufferSize)
}

func TestRequestConfigApplyToNil(t *testing.T) {
	var ulr uapi.LineRequest
	var rc *RequestConfig
	require.NoError(t, rc.applyTo(&ulr))
	assert.Equal(t, defaultConsumer(), uapi.BytesToString(ulr.Consumer[:]))
	assert.Equal(t, uint32(0), ulr.EventBufferSize)
}

func TestRequestConfigApplyToClamp(t *testing.T) {
	var ulr uapi.LineRequest
	rc := RequestConfig{EventBufferSize: maxEventBufferSize * 2}
	require.NoError(t, rc.applyTo(&ulr))
	assert.Equal(t, uint32(maxEventBufferSize), ulr.EventBufferSize)
}

func TestRequestConfigApplyToNegative(t *testing.T) {
	var ulr uapi.LineRequest
	rc := RequestConfig{EventBufferSize: -1}
	err := rc.applyTo(&ulr)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRequestConfigApplyToTruncatesConsumer(t *testing.T) {
	var ulr uapi.LineRequest
	long := strings.Repeat("x", 2*uapi.NameSize)
	rc := RequestConfig{Consumer: long}
	require.NoError(t, rc.applyTo(&ulr))
	got := uapi.BytesToString(ulr.Consumer[:])
	assert.Len(t, got, uapi.NameSize-1)
	// The final byte stays NUL so the kernel sees a terminated string.
	assert.Equal(t, byte(0), ulr.Consumer[uapi.NameSize-1])
}
