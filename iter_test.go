// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChipPaths(t *testing.T) {
	paths, err := ChipPaths()
	require.NoError(t, err)
	assert.True(t, sort.StringsAreSorted(paths))
	for _, p := range paths {
		assert.NoError(t, IsChipDevice(p))
	}
}

func TestChipIter(t *testing.T) {
	it, err := NewChipIter()
	require.NoError(t, err)
	defer it.Close()

	n := 0
	var last *Chip
	for it.Next() {
		c := it.Chip()
		require.NotNil(t, c)
		assert.NotEmpty(t, c.Name())
		if last != nil {
			// Advancing closed the previous chip.
			assert.Equal(t, -1, last.Fd())
		}
		last = c
		n++
	}
	require.NoError(t, it.Err())
	assert.False(t, it.Next())

	paths, err := ChipPaths()
	require.NoError(t, err)
	assert.Equal(t, len(paths), n)
}

func TestChipIterDetach(t *testing.T) {
	it, err := NewChipIter()
	require.NoError(t, err)
	defer it.Close()
	if !it.Next() {
		require.NoError(t, it.Err())
		t.Skip("no GPIO chips present")
	}
	c := it.Detach()
	require.NotNil(t, c)
	defer c.Close()

	// A detached chip survives both advancing and closing the iterator.
	for it.Next() {
	}
	it.Close()
	assert.NotEqual(t, -1, c.Fd())
	_, err = c.LineInfo(0)
	assert.NoError(t, err)
}

func TestLineInfoIter(t *testing.T) {
	c := openTestChip(t)
	it := c.LineInfos()
	offset := 0
	for it.Next() {
		assert.Equal(t, offset, it.Info().Offset)
		offset++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, c.Lines(), offset)
}

func TestLineInfoIterClosedChip(t *testing.T) {
	c := openTestChip(t)
	require.NoError(t, c.Close())
	it := c.LineInfos()
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrClosed)
}
