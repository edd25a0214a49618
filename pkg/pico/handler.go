//go:build pico

// Package pico is the TinyGo handler for RP2040 boards: the hub sits on a
// machine.I2C peripheral and RESET_N on a GPIO pin.
package pico

import (
	"fmt"
	"machine"
	"sync"
	"time"

	"github.com/mbalug7/go-usb251x/pkg/hal"
)

const (
	resetPulse  = 2 * time.Millisecond
	resetSettle = 10 * time.Millisecond
)

type HWHandler struct {
	bus       *machine.I2C // I2C peripheral the hub is wired to
	ResetLine machine.Pin  // RESET_N, active low
	hasReset  bool
	mu        sync.Mutex // one bus transaction at a time
}

// NewHWHandler configures i2c on the given pins at 100kHz and drives
// resetPin high. Pass machine.NoPin when RESET_N is not wired.
func NewHWHandler(i2c *machine.I2C, sda, scl machine.Pin, resetPin machine.Pin) (*HWHandler, error) {
	handler := &HWHandler{
		bus:       i2c,
		ResetLine: resetPin,
		hasReset:  resetPin != machine.NoPin,
	}
	err := i2c.Configure(machine.I2CConfig{
		Frequency: 100 * machine.KHz,
		SDA:       sda,
		SCL:       scl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure i2c: %w", err)
	}
	if handler.hasReset {
		resetPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		resetPin.High()
	}
	return handler, nil
}

func (obj *HWHandler) Close() error {
	return nil
}

func (obj *HWHandler) Reset() error {
	if !obj.hasReset {
		return fmt.Errorf("reset line not configured")
	}
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.ResetLine.Low()
	time.Sleep(resetPulse)
	obj.ResetLine.High()
	time.Sleep(resetSettle)
	return nil
}

func (obj *HWHandler) Probe(addr uint16) error {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.bus.Tx(addr, nil, nil)
}

func (obj *HWHandler) Write(addr uint16, w []byte) error {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	err := obj.bus.Tx(addr, w, nil)
	if err != nil {
		return fmt.Errorf("failed to send data, err: %w", err)
	}
	return nil
}

// WriteRead uses a single Tx, which keeps the bus with a repeated start
// between the write and the read.
func (obj *HWHandler) WriteRead(addr uint16, w, r []byte) (int, error) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	err := obj.bus.Tx(addr, w, r)
	if err != nil {
		return 0, fmt.Errorf("failed to receive data: %w", err)
	}
	return len(r), nil
}

var _ hal.BusCloser = (*HWHandler)(nil)
var _ hal.Resetter = (*HWHandler)(nil)
