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

// Pin exposes a single GPIO line as a periph.io pin. Pin implements
// gpio.PinIO and pin.PinFunc.
//
// The line is requested lazily on the first In, Out or Read, and the
// request is held until Close. The Chip is borrowed, not owned; closing
// the chip does not invalidate an already requested Pin.
type Pin struct {
	chip *gpiocdev.Chip
	// The offset of this line on the chip. Note that this has NO
	// RELATIONSHIP to the pin numbering scheme that may be in use on a
	// board.
	offset int
	name   string

	mu        sync.Mutex
	req       *gpiocdev.LineRequest
	direction gpiocdev.LineDirection
	edge      gpio.Edge
	pull      gpio.Pull
	// pipe used to interrupt a pending WaitForEdge.
	haltR *os.File
	haltW *os.File
}

// NewPin returns a Pin for the line at offset on the chip.
//
// The pin name is the kernel line name, or "<chip>-<offset>" for unnamed
// lines.
func NewPin(c *gpiocdev.Chip, offset int) (*Pin, error) {
	li, err := c.LineInfo(offset)
	if err != nil {
		return nil, err
	}
	name := li.Name
	if name == "" {
		name = fmt.Sprintf("%s-%d", c.Name(), offset)
	}
	return &Pin{chip: c, offset: offset, name: name}, nil
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return fmt.Sprintf("%s(%d)", p.name, p.offset)
}

// Name returns the line name. Implements gpio.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number returns the line offset within the chip. Implements gpio.Pin.
func (p *Pin) Number() int {
	return p.offset
}

// Close releases the line request, if any.
func (p *Pin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.req != nil {
		err = p.req.Release()
		p.req = nil
	}
	if p.haltR != nil {
		p.haltR.Close()
		p.haltW.Close()
		p.haltR = nil
		p.haltW = nil
	}
	p.direction = gpiocdev.LineDirectionAsIs
	p.edge = gpio.NoEdge
	p.pull = gpio.PullNoChange
	return err
}

func pullToBias(pull gpio.Pull) gpiocdev.LineBias {
	switch pull {
	case gpio.PullUp:
		return gpiocdev.LineBiasPullUp
	case gpio.PullDown:
		return gpiocdev.LineBiasPullDown
	case gpio.Float:
		return gpiocdev.LineBiasDisabled
	}
	return gpiocdev.LineBiasAsIs
}

func edgeToEdge(edge gpio.Edge) gpiocdev.LineEdge {
	switch edge {
	case gpio.RisingEdge:
		return gpiocdev.LineEdgeRising
	case gpio.FallingEdge:
		return gpiocdev.LineEdgeFalling
	case gpio.BothEdges:
		return gpiocdev.LineEdgeBoth
	}
	return gpiocdev.LineEdgeNone
}

// apply requests the line with the given settings, or reconfigures an
// existing request. Callers must hold p.mu.
func (p *Pin) apply(s *gpiocdev.LineSettings) error {
	lc := gpiocdev.NewLineConfig()
	if err := lc.AddLineSettings([]int{p.offset}, s); err != nil {
		return err
	}
	if p.req != nil {
		return p.req.Reconfigure(lc)
	}
	req, err := p.chip.RequestLines(nil, lc)
	if err != nil {
		return err
	}
	p.req = req
	return nil
}

// In configures the line as an input. Implements gpio.PinIn.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := gpiocdev.NewLineSettings()
	if err := s.SetDirection(gpiocdev.LineDirectionInput); err != nil {
		return err
	}
	if err := s.SetBias(pullToBias(pull)); err != nil {
		return err
	}
	if err := s.SetEdgeDetection(edgeToEdge(edge)); err != nil {
		return err
	}
	if err := p.apply(s); err != nil {
		return fmt.Errorf("Pin.In(): %w", err)
	}
	p.direction = gpiocdev.LineDirectionInput
	p.edge = edge
	p.pull = pull
	return nil
}

// Read returns the current level of the line. Implements gpio.PinIn.
func (p *Pin) Read() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.direction != gpiocdev.LineDirectionInput && p.req == nil {
		s := gpiocdev.NewLineSettings()
		_ = s.SetDirection(gpiocdev.LineDirectionInput)
		if err := p.apply(s); err != nil {
			log.Println("Pin.Read(): ", err)
			return gpio.Low
		}
		p.direction = gpiocdev.LineDirectionInput
	}
	v, err := p.req.Value(p.offset)
	if err != nil {
		log.Println("Pin.Read(): ", err)
		return gpio.Low
	}
	return v == gpiocdev.LineValueActive
}

// Out drives the line to the specified level. Implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	value := gpiocdev.LineValueInactive
	if l {
		value = gpiocdev.LineValueActive
	}
	if p.direction != gpiocdev.LineDirectionOutput {
		s := gpiocdev.NewLineSettings()
		if err := s.SetDirection(gpiocdev.LineDirectionOutput); err != nil {
			return err
		}
		if err := s.SetOutputValue(value); err != nil {
			return err
		}
		if err := p.apply(s); err != nil {
			return fmt.Errorf("Pin.Out(): %w", err)
		}
		p.direction = gpiocdev.LineDirectionOutput
		p.edge = gpio.NoEdge
		p.pull = gpio.PullNoChange
		return nil
	}
	return p.req.SetValue(p.offset, value)
}

// WaitForEdge blocks until an edge is detected on the line, or the
// timeout expires. You must call In() with a valid edge for this to
// work. To interrupt a waiting pin, call Halt(). Implements gpio.PinIn.
//
// A timeout of 0 waits forever.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	p.mu.Lock()
	if p.edge == gpio.NoEdge || p.req == nil {
		p.mu.Unlock()
		log.Println("call to WaitForEdge() when pin hasn't been configured for edge detection.")
		return false
	}
	if p.haltR == nil {
		r, w, err := os.Pipe()
		if err != nil {
			p.mu.Unlock()
			log.Println("Pin.WaitForEdge() pipe: ", err)
			return false
		}
		p.haltR, p.haltW = r, w
	}
	req := p.req
	// Copied under the lock so a concurrent Close cannot nil it out
	// from underneath the wait.
	haltR := p.haltR
	haltFd := int(haltR.Fd())
	p.mu.Unlock()

	d := timeout
	if timeout == 0 {
		d = -1
	}
	ready, err := gpiocdev.Wait([]int{req.Fd(), haltFd}, d)
	if err != nil || len(ready) == 0 {
		return false
	}
	for _, fd := range ready {
		if fd == haltFd {
			var b [1]byte
			_, _ = haltR.Read(b[:])
			return false
		}
	}
	_, err = req.ReadEdgeEvent()
	return err == nil
}

// Halt interrupts a pending WaitForEdge. Implements conn.Resource.
func (p *Pin) Halt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.haltW != nil {
		_, err := p.haltW.Write([]byte{0})
		return err
	}
	return nil
}

// Pull returns the configured line bias.
func (p *Pin) Pull() gpio.Pull {
	return p.pull
}

// DefaultPull returns gpio.PullNoChange; the GPIO uAPI cannot report a
// line's power-on default.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// PWM is not supported by the GPIO character device.
func (p *Pin) PWM(gpio.Duty, physic.Frequency) error {
	return errors.New("PWM() not implemented")
}

// Deprecated: Use PinFunc.Func. Function implements pin.Pin.
func (p *Pin) Function() string {
	return string(p.Func())
}

// Func implements pin.PinFunc.
func (p *Pin) Func() pin.Func {
	switch p.direction {
	case gpiocdev.LineDirectionInput:
		if p.Read() {
			return gpio.IN_HIGH
		}
		return gpio.IN_LOW
	case gpiocdev.LineDirectionOutput:
		if p.Read() {
			return gpio.OUT_HIGH
		}
		return gpio.OUT_LOW
	}
	return pin.FuncNone
}

// SupportedFuncs implements pin.PinFunc.
func (p *Pin) SupportedFuncs() []pin.Func {
	return []pin.Func{gpio.IN, gpio.OUT}
}

// SetFunc implements pin.PinFunc.
func (p *Pin) SetFunc(f pin.Func) error {
	switch f {
	case gpio.IN:
		return p.In(gpio.PullNoChange, gpio.NoEdge)
	case gpio.OUT_HIGH:
		return p.Out(gpio.High)
	case gpio.OUT, gpio.OUT_LOW:
		return p.Out(gpio.Low)
	default:
		return errors.New("unsupported function")
	}
}

// Ensure that Interfaces for these types are implemented fully.
var _ gpio.PinIO = &Pin{}
var _ gpio.PinIn = &Pin{}
var _ gpio.PinOut = &Pin{}
var _ pin.PinFunc = &Pin{}
