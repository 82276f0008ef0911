// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"fmt"
	"os"
	"path"

	"periph.io/x/gpiocdev/uapi"
)

// maxEventBufferSize caps the client-side event buffer request, matching
// the kernel's own 16-events-per-line scheme at the 64 line maximum.
const maxEventBufferSize = 16 * uapi.LinesMax

// RequestConfig carries the request-scoped parameters of a line request.
type RequestConfig struct {
	// Consumer is the label identifying the requester on the requested
	// lines. Truncated to the kernel's 31 byte maximum at request time.
	//
	// If empty, "<progname>@<pid>" is used.
	Consumer string

	// EventBufferSize is the minimum number of edge events the kernel
	// should buffer for the request. Zero selects the kernel default of
	// 16 events per requested line; the kernel may clamp the value
	// upward. Values above 1024 are clamped down before being passed to
	// the kernel.
	EventBufferSize int
}

// defaultConsumer identifies this process on requested lines when no
// consumer label is configured.
func defaultConsumer() string {
	return fmt.Sprintf("%s@%d", path.Base(os.Args[0]), os.Getpid())
}

// applyTo copies the validated request parameters into the wire request.
func (rc *RequestConfig) applyTo(ulr *uapi.LineRequest) error {
	consumer := ""
	size := 0
	if rc != nil {
		if rc.EventBufferSize < 0 {
			return fmt.Errorf("%w: negative event buffer size", ErrInvalidArgument)
		}
		consumer = rc.Consumer
		size = rc.EventBufferSize
	}
	if consumer == "" {
		consumer = defaultConsumer()
	}
	if size > maxEventBufferSize {
		size = maxEventBufferSize
	}
	// Leave the final byte as the NUL terminator.
	copy(ulr.Consumer[:uapi.NameSize-1], consumer)
	ulr.EventBufferSize = uint32(size)
	return nil
}
