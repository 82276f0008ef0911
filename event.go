// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"time"

	"periph.io/x/gpiocdev/uapi"
)

// EdgeEventType indicates the direction of a line state transition.
type EdgeEventType int

const (
	_ EdgeEventType = iota

	// EdgeRising indicates an inactive to active transition.
	EdgeRising

	// EdgeFalling indicates an active to inactive transition.
	EdgeFalling
)

// EdgeEvent is a single state transition on a requested line.
//
// Events are immutable values and are safe to copy and share freely.
type EdgeEvent struct {
	// Type is the direction of the transition.
	Type EdgeEventType

	// Timestamp is the time the event was detected, as nanoseconds of
	// the clock selected by the line's event clock setting, monotonic by
	// default.
	Timestamp time.Duration

	// Offset is the chip offset of the line that changed.
	Offset int

	// Seqno is the sequence number of the event across all lines in the
	// request. Strictly increasing for the lifetime of the request.
	Seqno uint32

	// LineSeqno is the sequence number of the event on this line only.
	// Strictly increasing for the lifetime of the request.
	LineSeqno uint32
}

func newEdgeEvent(ule uapi.LineEvent) EdgeEvent {
	ee := EdgeEvent{
		Timestamp: time.Duration(ule.Timestamp),
		Offset:    int(ule.Offset),
		Seqno:     ule.Seqno,
		LineSeqno: ule.LineSeqno,
	}
	switch ule.ID {
	case uapi.LineEventRisingEdge:
		ee.Type = EdgeRising
	case uapi.LineEventFallingEdge:
		ee.Type = EdgeFalling
	}
	return ee
}

// InfoEventType indicates the type of change to a line's status.
type InfoEventType int

const (
	_ InfoEventType = iota

	// LineRequested indicates the line has been requested.
	LineRequested

	// LineReleased indicates the line has been released.
	LineReleased

	// LineConfigChanged indicates the line configuration has changed.
	LineConfigChanged
)

// InfoEvent is a change to the status of a watched line, visible to any
// watcher regardless of who holds the request.
type InfoEvent struct {
	// Type is the type of change.
	Type InfoEventType

	// Timestamp is the time the change occurred, as nanoseconds of
	// CLOCK_MONOTONIC.
	Timestamp time.Duration

	// Info is a snapshot of the line state after the change.
	Info LineInfo
}

func newInfoEvent(lic uapi.LineInfoChanged) InfoEvent {
	ie := InfoEvent{
		Timestamp: time.Duration(lic.Timestamp),
		Info:      newLineInfo(lic.Info),
	}
	switch lic.Type {
	case uapi.LineChangedRequested:
		ie.Type = LineRequested
	case uapi.LineChangedReleased:
		ie.Type = LineReleased
	case uapi.LineChangedConfig:
		ie.Type = LineConfigChanged
	}
	return ie
}
