// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiocdev

import (
	"fmt"
	"time"

	"periph.io/x/gpiocdev/uapi"
)

// LineConfig maps sets of line offsets to the settings to apply to them.
//
// Entries are ordered. The same offset may appear in multiple entries, in
// which case the settings added last win for that offset when the config
// is encoded.
type LineConfig struct {
	entries []configEntry
}

type configEntry struct {
	offsets  []int
	settings LineSettings
}

// NewLineConfig returns an empty line config.
func NewLineConfig() *LineConfig {
	return &LineConfig{}
}

// Reset removes all entries from the config.
func (c *LineConfig) Reset() {
	c.entries = nil
}

// AddLineSettings associates a snapshot of settings with a set of offsets.
//
// The offsets must be non-empty and non-negative. A nil settings applies
// the defaults. The settings are copied; later mutation of settings does
// not affect the config.
func (c *LineConfig) AddLineSettings(offsets []int, settings *LineSettings) error {
	if len(offsets) == 0 {
		return fmt.Errorf("%w: empty offset set", ErrInvalidArgument)
	}
	for _, o := range offsets {
		if o < 0 {
			return fmt.Errorf("%w: negative offset %d", ErrInvalidOffset, o)
		}
	}
	e := configEntry{offsets: append([]int(nil), offsets...)}
	if settings != nil {
		e.settings = *settings
	}
	c.entries = append(c.entries, e)
	return nil
}

// LineSettings returns a copy of the settings that the config would apply
// to the given offset.
//
// Returns ErrNotFound if the offset appears in no entry.
func (c *LineConfig) LineSettings(offset int) (*LineSettings, error) {
	s := c.lineSettings(offset)
	if s == nil {
		return nil, fmt.Errorf("%w: no settings for offset %d", ErrNotFound, offset)
	}
	return s.Copy(), nil
}

// lineSettings returns the effective settings for offset, or nil if the
// config has none. Later entries shadow earlier ones.
func (c *LineConfig) lineSettings(offset int) *LineSettings {
	var s *LineSettings
	for i := range c.entries {
		e := &c.entries[i]
		for _, o := range e.offsets {
			if o == offset {
				s = &e.settings
				break
			}
		}
	}
	return s
}

// Offsets returns all configured offsets, deduplicated, in the order they
// were first added.
func (c *LineConfig) Offsets() []int {
	var oo []int
	seen := map[int]bool{}
	for i := range c.entries {
		for _, o := range c.entries[i].offsets {
			if !seen[o] {
				seen[o] = true
				oo = append(oo, o)
			}
		}
	}
	return oo
}

// toUapi encodes the config into the kernel wire format for exactly the
// given request offsets, in request order.
//
// Every offset must have settings in the config. The flag set shared by
// the most lines becomes the config's base flags; minority flag sets,
// output values and debounce periods are carried as attributes. If the
// attribute table overflows, ErrConfigOverflow is returned.
func (c *LineConfig) toUapi(offsets []int) (uapi.LineConfig, error) {
	var ulc uapi.LineConfig
	n := len(offsets)
	if n == 0 {
		return ulc, fmt.Errorf("%w: empty offset set", ErrInvalidArgument)
	}
	if n > uapi.LinesMax {
		return ulc, fmt.Errorf("%w: %d offsets exceeds maximum of %d",
			ErrInvalidArgument, n, uapi.LinesMax)
	}

	flags := make([]uapi.LineFlagV2, n)
	var outMask, outBits uapi.LineBitmap
	var debouncePeriods []time.Duration
	debounceMasks := map[time.Duration]uapi.LineBitmap{}
	for i, o := range offsets {
		s := c.lineSettings(o)
		if s == nil {
			return ulc, fmt.Errorf("%w: no settings for offset %d", ErrInvalidArgument, o)
		}
		flags[i] = s.uapiFlags()
		if s.direction == LineDirectionOutput {
			outMask = outMask.Set(i, 1)
			outBits = outBits.Set(i, int(s.outputValue))
		}
		if s.debouncePeriod > 0 {
			if _, ok := debounceMasks[s.debouncePeriod]; !ok {
				debouncePeriods = append(debouncePeriods, s.debouncePeriod)
			}
			debounceMasks[s.debouncePeriod] = debounceMasks[s.debouncePeriod].Set(i, 1)
		}
	}

	// The most common flag set becomes the base; ties go to the set seen
	// first so encoding is deterministic.
	var distinct []uapi.LineFlagV2
	counts := map[uapi.LineFlagV2]int{}
	for _, f := range flags {
		if _, ok := counts[f]; !ok {
			distinct = append(distinct, f)
		}
		counts[f]++
	}
	base := distinct[0]
	for _, f := range distinct[1:] {
		if counts[f] > counts[base] {
			base = f
		}
	}
	ulc.Flags = base

	for _, f := range distinct {
		if f == base {
			continue
		}
		var mask uapi.LineBitmap
		for i := range flags {
			if flags[i] == f {
				mask = mask.Set(i, 1)
			}
		}
		var attr uapi.LineAttribute
		attr.Encode64(uapi.LineAttributeIDFlags, uint64(f))
		if !ulc.AddAttribute(uapi.LineConfigAttribute{Attr: attr, Mask: mask}) {
			return uapi.LineConfig{}, ErrConfigOverflow
		}
	}
	if outMask != 0 {
		var attr uapi.LineAttribute
		attr.Encode64(uapi.LineAttributeIDOutputValues, uint64(outBits))
		if !ulc.AddAttribute(uapi.LineConfigAttribute{Attr: attr, Mask: outMask}) {
			return uapi.LineConfig{}, ErrConfigOverflow
		}
	}
	for _, period := range debouncePeriods {
		var attr uapi.LineAttribute
		attr.Encode32(uapi.LineAttributeIDDebounce, uint32(period/time.Microsecond))
		if !ulc.AddAttribute(uapi.LineConfigAttribute{Attr: attr, Mask: debounceMasks[period]}) {
			return uapi.LineConfig{}, ErrConfigOverflow
		}
	}
	return ulc, nil
}
