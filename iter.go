// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"path/filepath"
	"sort"
)

// ChipPaths returns the device paths of all GPIO chips in /dev, sorted by
// device node name for determinism.
//
// Candidates matching the chip name prefix that fail the character device
// check are silently skipped.
func ChipPaths() ([]string, error) {
	items, err := filepath.Glob("/dev/gpiochip*")
	if err != nil {
		return nil, err
	}
	sort.Strings(items)
	var paths []string
	for _, p := range items {
		if IsChipDevice(p) == nil {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// ChipIter is a lazy, single-pass iterator over the GPIO chips on the
// system.
//
// The iterator owns the chip it yields: advancing closes the previous
// chip unless Detach was called. Callers that want to keep a chip open
// past the next advance must Detach it first.
type ChipIter struct {
	paths    []string
	next     int
	cur      *Chip
	detached bool
	err      error
}

// NewChipIter returns an iterator over the chips found on the system.
func NewChipIter() (*ChipIter, error) {
	paths, err := ChipPaths()
	if err != nil {
		return nil, err
	}
	return &ChipIter{paths: paths}, nil
}

// Next advances to the next chip, closing the previously yielded chip if
// it is still attached.
//
// Returns false when the sequence is exhausted or opening a chip failed;
// the two are distinguished by Err.
func (it *ChipIter) Next() bool {
	if it.cur != nil && !it.detached {
		it.cur.Close()
	}
	it.cur = nil
	it.detached = false
	if it.err != nil || it.next >= len(it.paths) {
		return false
	}
	c, err := OpenChip(it.paths[it.next])
	it.next++
	if err != nil {
		it.err = err
		return false
	}
	it.cur = c
	return true
}

// Chip returns the chip at the current iterator position.
func (it *ChipIter) Chip() *Chip {
	return it.cur
}

// Detach transfers ownership of the current chip to the caller, so the
// iterator will not close it on the next advance.
func (it *ChipIter) Detach() *Chip {
	it.detached = true
	return it.cur
}

// Err returns the first error encountered while iterating, if any.
func (it *ChipIter) Err() error {
	return it.err
}

// Close releases the iterator and the current chip, if still attached.
func (it *ChipIter) Close() {
	if it.cur != nil && !it.detached {
		it.cur.Close()
	}
	it.cur = nil
	it.next = len(it.paths)
}

// LineInfoIter is a lazy iterator over the line info snapshots of one
// chip.
//
// Restart by calling Chip.LineInfos again.
type LineInfoIter struct {
	chip   *Chip
	offset int
	info   LineInfo
	err    error
}

// LineInfos returns an iterator over fresh info snapshots for every line
// on the chip, in offset order.
func (c *Chip) LineInfos() *LineInfoIter {
	return &LineInfoIter{chip: c, offset: -1}
}

// Next advances to the next line, fetching its info snapshot.
//
// Returns false when all lines have been visited or a fetch failed; the
// two are distinguished by Err.
func (it *LineInfoIter) Next() bool {
	if it.err != nil {
		return false
	}
	it.offset++
	if it.offset >= it.chip.Lines() {
		return false
	}
	info, err := it.chip.LineInfo(it.offset)
	if err != nil {
		it.err = err
		return false
	}
	it.info = info
	return true
}

// Info returns the snapshot at the current iterator position.
func (it *LineInfoIter) Info() LineInfo {
	return it.info
}

// Err returns the first error encountered while iterating, if any.
func (it *LineInfoIter) Err() error {
	return it.err
}
