// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Wait blocks until at least one of the descriptors has data to read, or
// the timeout expires.
//
// The descriptors are chip descriptors (Chip.Fd) or request descriptors
// (LineRequest.Fd), in any mix; dozens of independent requests may be
// multiplexed in one call. A negative timeout blocks indefinitely; zero
// polls without blocking.
//
// Returns every descriptor that became ready within the call, in input
// order; an empty result means the timeout expired. An invalid descriptor
// in the set is an error.
func Wait(fds []int, timeout time.Duration) ([]int, error) {
	if len(fds) == 0 {
		return nil, fmt.Errorf("%w: empty descriptor set", ErrInvalidArgument)
	}
	pfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN | unix.POLLPRI}
	}

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		var ts *unix.Timespec
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			t := unix.NsecToTimespec(remaining.Nanoseconds())
			ts = &t
		}
		n, err := unix.Ppoll(pfds, ts, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("waiting on descriptors: %w", err)
		}
		if n == 0 {
			return nil, nil
		}
		break
	}

	var ready []int
	for i := range pfds {
		if pfds[i].Revents&unix.POLLNVAL != 0 {
			return nil, fmt.Errorf("%w: descriptor %d is not open", ErrInvalidArgument, fds[i])
		}
		if pfds[i].Revents != 0 {
			ready = append(ready, fds[i])
		}
	}
	return ready, nil
}

// WaitForEdgeEvent blocks until the request has an edge event to read, or
// the timeout expires.
//
// Returns true if an event is pending. A negative timeout blocks
// indefinitely; zero polls.
func WaitForEdgeEvent(r *LineRequest, timeout time.Duration) (bool, error) {
	fd := r.Fd()
	if fd < 0 {
		return false, ErrReleased
	}
	ready, err := Wait([]int{fd}, timeout)
	return len(ready) != 0, err
}

// WaitForInfoEvent blocks until the chip has an info event to read, or the
// timeout expires.
//
// Returns true if an event is pending. A negative timeout blocks
// indefinitely; zero polls.
func WaitForInfoEvent(c *Chip, timeout time.Duration) (bool, error) {
	fd := c.Fd()
	if fd < 0 {
		return false, ErrClosed
	}
	ready, err := Wait([]int{fd}, timeout)
	return len(ready) != 0, err
}
