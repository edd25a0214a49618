// Package periphbus exposes a periph.io I2C bus as a hal.Bus.
package periphbus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/mbalug7/go-usb251x/pkg/hal"
)

type Bus struct {
	bus    i2c.Bus
	closer i2c.BusCloser
}

// New wraps an already opened periph.io bus.
func New(bus i2c.Bus) *Bus {
	return &Bus{bus: bus}
}

// Open initialises the periph.io host drivers and opens the named I2C bus.
// An empty name selects the first bus found.
func Open(name string) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise periph host drivers: %w", err)
	}
	bc, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", name, err)
	}
	hal.LogDebug(hal.ComponentBus, "periph bus opened", "bus", bc.String())
	return &Bus{bus: bc, closer: bc}, nil
}

func (obj *Bus) Close() error {
	if obj.closer == nil {
		return nil
	}
	return obj.closer.Close()
}

func (obj *Bus) String() string {
	return obj.bus.String()
}

// Probe reads one byte from addr. periph drops transactions with neither a
// write nor a read buffer before they reach the wire.
func (obj *Bus) Probe(addr uint16) error {
	return obj.bus.Tx(addr, nil, make([]byte, 1))
}

func (obj *Bus) Write(addr uint16, w []byte) error {
	return obj.bus.Tx(addr, w, nil)
}

// WriteRead maps onto a single periph Tx, which issues a repeated start
// between the write and the read. periph reads are all or nothing.
func (obj *Bus) WriteRead(addr uint16, w, r []byte) (int, error) {
	if err := obj.bus.Tx(addr, w, r); err != nil {
		return 0, err
	}
	return len(r), nil
}

var _ hal.BusCloser = (*Bus)(nil)
