// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package periphgpio

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"periph.io/x/gpiocdev"
)

func TestPullToBias(t *testing.T) {
	tests := []struct {
		pull gpio.Pull
		want gpiocdev.LineBias
	}{
		{gpio.PullUp, gpiocdev.LineBiasPullUp},
		{gpio.PullDown, gpiocdev.LineBiasPullDown},
		{gpio.Float, gpiocdev.LineBiasDisabled},
		{gpio.PullNoChange, gpiocdev.LineBiasAsIs},
	}
	for _, tc := range tests {
		if got := pullToBias(tc.pull); got != tc.want {
			t.Errorf("pullToBias(%v) = %v, want %v", tc.pull, got, tc.want)
		}
	}
}

func TestEdgeToEdge(t *testing.T) {
	tests := []struct {
		edge gpio.Edge
		want gpiocdev.LineEdge
	}{
		{gpio.RisingEdge, gpiocdev.LineEdgeRising},
		{gpio.FallingEdge, gpiocdev.LineEdgeFalling},
		{gpio.BothEdges, gpiocdev.LineEdgeBoth},
		{gpio.NoEdge, gpiocdev.LineEdgeNone},
	}
	for _, tc := range tests {
		if got := edgeToEdge(tc.edge); got != tc.want {
			t.Errorf("edgeToEdge(%v) = %v, want %v", tc.edge, got, tc.want)
		}
	}
}

func TestGroupHaltAndClose(t *testing.T) {
	paths, err := gpiocdev.ChipPaths()
	if err != nil || len(paths) == 0 {
		t.Skip("no GPIO chips present")
	}
	c, err := gpiocdev.OpenChip(paths[0])
	if err != nil {
		t.Skip("chip not openable: ", err)
	}
	defer c.Close()
	g, err := RequestGroup(c, gpiocdev.LineDirectionInput, gpio.BothEdges, gpio.PullNoChange, 0)
	if err != nil {
		t.Skip("line 0 not requestable: ", err)
	}

	done := make(chan struct{})
	go func() {
		g.WaitForEdge(5 * time.Second)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	if err := g.Halt(); err != nil {
		t.Fatal("Halt: ", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Halt did not interrupt WaitForEdge")
	}
	// Closing after an interrupted wait must be safe.
	if err := g.Close(); err != nil {
		t.Fatal("Close: ", err)
	}
}

func TestDriverMetadata(t *testing.T) {
	if drvGPIO.String() != "gpiocdev" {
		t.Errorf("driver name = %q", drvGPIO.String())
	}
	if drvGPIO.Prerequisites() != nil {
		t.Error("unexpected prerequisites")
	}
	if drvGPIO.After() != nil {
		t.Error("unexpected after list")
	}
}
