// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package uapi

// LineBitmap carries one bit of state per line in a request.
//
// Bit n corresponds to the line at position n in the request's offset
// order, not to the kernel offset value of that line.
type LineBitmap uint64

// NewLineBitmap creates a bitmap from an array of bit values.
//
// Values are truncated to the lowest bit; position 0 is the least
// significant bit.
func NewLineBitmap(vv ...int) LineBitmap {
	var b LineBitmap
	for i, v := range vv {
		b = b.Set(i, v)
	}
	return b
}

// NewLineBitMask returns a mask with the lowest n bits set.
func NewLineBitMask(n int) LineBitmap {
	if n >= LinesMax {
		return ^LineBitmap(0)
	}
	if n < 0 {
		return 0
	}
	return LineBitmap(1)<<uint(n) - 1
}

// Get returns the value of the bit at position n.
func (b LineBitmap) Get(n int) int {
	if b&(LineBitmap(1)<<uint(n)) != 0 {
		return 1
	}
	return 0
}

// Set returns the bitmap with the bit at position n set to the lowest bit
// of v.
func (b LineBitmap) Set(n, v int) LineBitmap {
	mask := LineBitmap(1) << uint(n)
	if v&1 != 0 {
		return b | mask
	}
	return b &^ mask
}
