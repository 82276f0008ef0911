// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpiocdev provides access to GPIO lines through the Linux GPIO
// character device.
//
// https://docs.kernel.org/userspace-api/gpio/chardev.html
//
// A Chip is an open handle to one GPIO controller device, such as
// /dev/gpiochip0, and provides line metadata, line info watches and
// enumeration. Lines are driven through a LineRequest, obtained from
// Chip.RequestLines, which reserves up to 64 lines on the chip and owns
// all value I/O and edge event delivery for them until released.
//
// Line behaviour is described by LineSettings (direction, edge detection,
// bias, drive, debounce, event clock, output value), grouped per offset in
// a LineConfig. RequestConfig carries the request-scoped consumer label
// and kernel event buffer size.
//
// The library uses the v2 uAPI exclusively; the raw protocol lives in the
// uapi subpackage. GPIO lines can also be used as periph.io pins through
// the periphgpio subpackage.
package gpiocdev

// Version is the human-readable version of the library.
const Version = "0.9.0"
