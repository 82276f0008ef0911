// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package periphgpio

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"

	"periph.io/x/gpiocdev"
)

// Group exposes a set of lines requested as a unit as a periph.io
// gpio.Group. All lines in the group are read and written atomically
// with a single kernel operation.
//
// The Group owns the underlying request; Close releases it.
type Group struct {
	req     *gpiocdev.LineRequest
	chip    string
	offsets []int
	lines   []*GroupLine

	mu sync.Mutex
	// pipe used to interrupt a pending WaitForEdge.
	haltR *os.File
	haltW *os.File
}

// NewGroup wraps an existing line request as a gpio.Group. Line names
// are resolved from the chip the request was made on. The request must
// not have been released.
func NewGroup(c *gpiocdev.Chip, req *gpiocdev.LineRequest) (*Group, error) {
	chip, err := req.Chip()
	if err != nil {
		return nil, err
	}
	offsets, err := req.Offsets()
	if err != nil {
		return nil, err
	}
	g := &Group{req: req, chip: chip, offsets: offsets}
	for _, offset := range offsets {
		name := fmt.Sprintf("%s-%d", chip, offset)
		if c != nil {
			if li, err := c.LineInfo(offset); err == nil && li.Name != "" {
				name = li.Name
			}
		}
		g.lines = append(g.lines, &GroupLine{group: g, offset: offset, name: name})
	}
	return g, nil
}

// RequestGroup requests the given lines on the chip and returns them as
// a Group. All lines share the direction and, for inputs, the edge and
// pull supplied.
func RequestGroup(c *gpiocdev.Chip, direction gpiocdev.LineDirection, edge gpio.Edge, pull gpio.Pull, offsets ...int) (*Group, error) {
	s := gpiocdev.NewLineSettings()
	if err := s.SetDirection(direction); err != nil {
		return nil, err
	}
	if direction == gpiocdev.LineDirectionInput {
		if err := s.SetEdgeDetection(edgeToEdge(edge)); err != nil {
			return nil, err
		}
		if err := s.SetBias(pullToBias(pull)); err != nil {
			return nil, err
		}
	}
	lc := gpiocdev.NewLineConfig()
	if err := lc.AddLineSettings(offsets, s); err != nil {
		return nil, err
	}
	req, err := c.RequestLines(nil, lc)
	if err != nil {
		return nil, err
	}
	return NewGroup(c, req)
}

// Close releases the underlying line request.
func (g *Group) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.haltR != nil {
		g.haltR.Close()
		g.haltW.Close()
		g.haltR = nil
		g.haltW = nil
	}
	return g.req.Release()
}

// String implements conn.Resource.
func (g *Group) String() string {
	return fmt.Sprintf("%s%v", g.chip, g.offsets)
}

// Pins returns the lines in the group. Implements gpio.Group.
func (g *Group) Pins() []pin.Pin {
	pins := make([]pin.Pin, len(g.lines))
	for i, l := range g.lines {
		pins[i] = l
	}
	return pins
}

// ByOffset returns the line at the given position within the group, or
// nil. Implements gpio.Group.
func (g *Group) ByOffset(offset int) pin.Pin {
	if offset < 0 || offset >= len(g.lines) {
		return nil
	}
	return g.lines[offset]
}

// ByName returns the line with the given name, or nil. Implements
// gpio.Group.
func (g *Group) ByName(name string) pin.Pin {
	for _, l := range g.lines {
		if l.name == name {
			return l
		}
	}
	return nil
}

// ByNumber returns the line with the given chip offset, or nil.
// Implements gpio.Group.
func (g *Group) ByNumber(number int) pin.Pin {
	for _, l := range g.lines {
		if l.offset == number {
			return l
		}
	}
	return nil
}

// Out writes bits to the lines selected by mask. Bit position i of bits
// and mask corresponds to the line at position i in the group. A mask
// of 0 writes all lines. Implements gpio.Group.
func (g *Group) Out(bits, mask gpio.GPIOValue) error {
	if mask == 0 {
		mask = (1 << uint(len(g.lines))) - 1
	}
	var offsets []int
	var values []gpiocdev.LineValue
	for i, l := range g.lines {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		v := gpiocdev.LineValueInactive
		if bits&(1<<uint(i)) != 0 {
			v = gpiocdev.LineValueActive
		}
		offsets = append(offsets, l.offset)
		values = append(values, v)
	}
	return g.req.SetValuesSubset(offsets, values)
}

// Read returns the value of the lines selected by mask. Bit position i
// of the result corresponds to the line at position i in the group. A
// mask of 0 reads all lines. Implements gpio.Group.
func (g *Group) Read(mask gpio.GPIOValue) (gpio.GPIOValue, error) {
	if mask == 0 {
		mask = (1 << uint(len(g.lines))) - 1
	}
	var offsets []int
	var positions []int
	for i, l := range g.lines {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		offsets = append(offsets, l.offset)
		positions = append(positions, i)
	}
	values, err := g.req.ValuesSubset(offsets)
	if err != nil {
		return 0, err
	}
	var bits gpio.GPIOValue
	for i, v := range values {
		if v == gpiocdev.LineValueActive {
			bits |= 1 << uint(positions[i])
		}
	}
	return bits, nil
}

// WaitForEdge blocks until an edge is detected on any line in the
// group, or the timeout expires. It returns the chip offset of the line
// the edge was detected on, and the edge type. A timeout of 0 waits
// forever. To interrupt a wait, call Halt(). Implements gpio.Group.
func (g *Group) WaitForEdge(timeout time.Duration) (int, gpio.Edge, error) {
	g.mu.Lock()
	if g.haltR == nil {
		r, w, err := os.Pipe()
		if err != nil {
			g.mu.Unlock()
			return -1, gpio.NoEdge, err
		}
		g.haltR, g.haltW = r, w
	}
	// Copied under the lock so a concurrent Close cannot nil it out
	// from underneath the wait.
	haltR := g.haltR
	haltFd := int(haltR.Fd())
	g.mu.Unlock()

	d := timeout
	if timeout == 0 {
		d = -1
	}
	ready, err := gpiocdev.Wait([]int{g.req.Fd(), haltFd}, d)
	if err != nil {
		return -1, gpio.NoEdge, err
	}
	if len(ready) == 0 {
		return -1, gpio.NoEdge, errors.New("timeout waiting for edge")
	}
	for _, fd := range ready {
		if fd == haltFd {
			var b [1]byte
			_, _ = haltR.Read(b[:])
			return -1, gpio.NoEdge, errors.New("halted")
		}
	}
	ev, err := g.req.ReadEdgeEvent()
	if err != nil {
		return -1, gpio.NoEdge, err
	}
	edge := gpio.RisingEdge
	if ev.Type == gpiocdev.EdgeFalling {
		edge = gpio.FallingEdge
	}
	return ev.Offset, edge, nil
}

// Halt interrupts a pending WaitForEdge. Implements conn.Resource.
func (g *Group) Halt() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.haltW != nil {
		_, err := g.haltW.Write([]byte{0})
		return err
	}
	return nil
}

// GroupLine is a single line within a Group. It implements gpio.PinIO,
// with reads and writes routed through the owning group's request.
type GroupLine struct {
	group  *Group
	offset int
	name   string
}

// String implements conn.Resource.
func (l *GroupLine) String() string {
	return fmt.Sprintf("%s(%d)", l.name, l.offset)
}

// Halt interrupts a pending group wait. Implements conn.Resource.
func (l *GroupLine) Halt() error {
	return l.group.Halt()
}

// Name returns the line name. Implements gpio.Pin.
func (l *GroupLine) Name() string {
	return l.name
}

// Number returns the line offset within the chip. Implements gpio.Pin.
func (l *GroupLine) Number() int {
	return l.offset
}

// Deprecated: Use PinFunc.Func. Function implements pin.Pin.
func (l *GroupLine) Function() string {
	return string(gpio.IN)
}

// In returns an error; lines in a group cannot be reconfigured
// individually. Implements gpio.PinIn.
func (l *GroupLine) In(pull gpio.Pull, edge gpio.Edge) error {
	return errors.New("a GroupLine can't be individually configured - use the Group")
}

// Read returns the current level of the line. Implements gpio.PinIn.
func (l *GroupLine) Read() gpio.Level {
	v, err := l.group.req.Value(l.offset)
	if err != nil {
		log.Println("GroupLine.Read(): ", err)
		return gpio.Low
	}
	return v == gpiocdev.LineValueActive
}

// WaitForEdge waits on the whole group and returns true if the edge was
// detected on this line. Implements gpio.PinIn.
func (l *GroupLine) WaitForEdge(timeout time.Duration) bool {
	number, _, err := l.group.WaitForEdge(timeout)
	return err == nil && number == l.offset
}

// Pull implements gpio.PinIn.
func (l *GroupLine) Pull() gpio.Pull {
	return gpio.PullNoChange
}

// DefaultPull implements gpio.PinIn.
func (l *GroupLine) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// Out drives the line to the specified level. Implements gpio.PinOut.
func (l *GroupLine) Out(level gpio.Level) error {
	v := gpiocdev.LineValueInactive
	if level {
		v = gpiocdev.LineValueActive
	}
	return l.group.req.SetValue(l.offset, v)
}

// PWM is not supported by the GPIO character device.
func (l *GroupLine) PWM(gpio.Duty, physic.Frequency) error {
	return errors.New("PWM() not implemented")
}

// Ensure that Interfaces for these types are implemented fully.
var _ gpio.Group = &Group{}
var _ gpio.PinIO = &GroupLine{}
