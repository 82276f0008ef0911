// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package periphgpio exposes GPIO character device lines through the
// periph.io conn/v3 interfaces.
//
// On init the driver enumerates /dev/gpiochip* and registers every
// named line with gpioreg, so boards and utilities built on conn/v3 can
// resolve lines with gpioreg.ByName(). Lines are requested lazily on
// first use and held until the Pin is closed.
//
// # Uses Linux gpio ioctl as described at
//
// https://docs.kernel.org/userspace-api/gpio/chardev.html
package periphgpio

import (
	"errors"
	"log"
	"runtime"
	"sort"
	"strings"

	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"periph.io/x/gpiocdev"
)

// Chips are the chips found during driver init, in registration order.
// They remain open for the life of the process.
var Chips []*gpiocdev.Chip

// driverGPIO implements periph.Driver.
type driverGPIO struct {
	_ string
}

func (d *driverGPIO) String() string {
	return "gpiocdev"
}

func (d *driverGPIO) Prerequisites() []string {
	return nil
}

func (d *driverGPIO) After() []string {
	return nil
}

// Init enumerates the GPIO character devices and registers their named
// lines with gpioreg.
func (d *driverGPIO) Init() (bool, error) {
	if runtime.GOOS != "linux" {
		return true, nil
	}
	paths, err := gpiocdev.ChipPaths()
	if err != nil {
		return true, err
	}
	if len(paths) == 0 {
		return false, errors.New("no GPIO chips found")
	}
	var chips []*gpiocdev.Chip
	for _, path := range paths {
		chip, err := gpiocdev.OpenChip(path)
		if err != nil {
			log.Println("periphgpio.driverGPIO.Init() Error", err)
			continue
		}
		chips = append(chips, chip)
	}
	// Sort the chips so that those labeled with pinctrl- (a Pi kernel
	// standard) come first, then alphabetically by label. This _should_
	// protect us from any random changes in chip naming/ordering.
	sort.Slice(chips, func(i, j int) bool {
		I, J := chips[i], chips[j]
		iPinCtrl := strings.HasPrefix(I.Label(), "pinctrl-")
		jPinCtrl := strings.HasPrefix(J.Label(), "pinctrl-")
		if iPinCtrl != jPinCtrl {
			return iPinCtrl
		}
		return I.Label() < J.Label()
	})

	mName := make(map[string]struct{})
	// Get a list of already registered GPIO Line names.
	registeredPins := make(map[string]struct{})
	for _, pin := range gpioreg.All() {
		registeredPins[pin.Name()] = struct{}{}
	}

	for _, chip := range chips {
		// On a pi, gpiochip0 is also symlinked to gpiochip4, checking
		// the map ensures we don't duplicate the chip.
		if _, found := mName[chip.Name()]; found {
			chip.Close()
			continue
		}
		Chips = append(Chips, chip)
		mName[chip.Name()] = struct{}{}
		infos := chip.LineInfos()
		for infos.Next() {
			li := infos.Info()
			// If the line has some sort of reasonable name...
			if len(li.Name) == 0 || li.Name == "_" || li.Name == "-" {
				continue
			}
			p, err := NewPin(chip, li.Offset)
			if err != nil {
				continue
			}
			// See if the name is already registered. On the Pi5, there
			// are at least two chips that export "2712_WAKE" as the
			// line name.
			if _, ok := registeredPins[p.Name()]; ok {
				// This is a duplicate name. Prefix the line name with
				// the chip name.
				p.name = chip.Name() + "-" + p.name
				if _, found := registeredPins[p.Name()]; found {
					// It's still not unique. Skip it.
					continue
				}
			}
			registeredPins[p.Name()] = struct{}{}
			if err = gpioreg.Register(p); err != nil {
				log.Println("chip", chip.Name(), " gpioreg.Register(line) ", p, " returned ", err)
			}
		}
		if err := infos.Err(); err != nil {
			log.Println("chip", chip.Name(), " line enumeration: ", err)
		}
	}
	return len(Chips) > 0, nil
}

var drvGPIO driverGPIO

func init() {
	driverreg.MustRegister(&drvGPIO)
}
