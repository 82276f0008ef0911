// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import "errors"

var (
	// ErrClosed indicates the chip has been closed.
	ErrClosed = errors.New("chip closed")

	// ErrReleased indicates the line request has been released.
	ErrReleased = errors.New("line request released")

	// ErrInvalidOffset indicates a line offset does not exist on the chip
	// or is not part of the request.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrInvalidArgument indicates a parameter is outside its valid
	// domain, such as an unknown enum value, an empty offset set, or a
	// value slice of the wrong length.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates the requested chip or line name does not
	// exist.
	ErrNotFound = errors.New("not found")

	// ErrNotCharacterDevice indicates the path does not denote a GPIO
	// character device.
	ErrNotCharacterDevice = errors.New("not a GPIO character device")

	// ErrConfigOverflow indicates the line configuration is too complex
	// to fit the kernel's attribute table.
	//
	// Reduce the number of distinct per-line settings or split the
	// request.
	ErrConfigOverflow = errors.New("configuration too complex to map to kernel uAPI")

	// ErrWouldBlock indicates a non-blocking read found no pending data.
	ErrWouldBlock = errors.New("would block")
)
