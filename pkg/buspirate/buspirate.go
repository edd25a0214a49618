// Package buspirate drives an I2C bus through a Bus Pirate in binary I2C
// mode over a serial port.
package buspirate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/mbalug7/go-usb251x/pkg/hal"
)

// binary I2C mode commands
const (
	cmdReset       byte = 0x00
	cmdEnterI2C    byte = 0x02
	cmdStart       byte = 0x02
	cmdStop        byte = 0x03
	cmdReadByte    byte = 0x04
	cmdAck         byte = 0x06
	cmdNack        byte = 0x07
	cmdBulkWrite   byte = 0x10 // low nibble: byte count - 1
	cmdPeripherals byte = 0x40 // power 0x08, pullups 0x04
	cmdSpeed       byte = 0x60 // low bits: Speed

	rspOK   byte = 0x01
	rspAck  byte = 0x00
	rspNack byte = 0x01

	maxBulkWrite = 16
	resetTries   = 20
)

var (
	bbioBanner = []byte("BBIO1")
	i2cBanner  = []byte("I2C1")

	ErrNack     = errors.New("buspirate: address or data not acknowledged")
	ErrResponse = errors.New("buspirate: unexpected response")
)

type Speed uint8

const (
	Speed5kHz Speed = iota
	Speed50kHz
	Speed100kHz
	Speed400kHz
)

type Config struct {
	Speed   Speed
	Power   bool // switch on the 3.3V/5V supplies
	Pullups bool // enable on-board pull-up resistors
}

var DefaultConfig = Config{Speed: Speed100kHz, Power: true, Pullups: true}

type Bridge struct {
	port io.ReadWriter
	mu   sync.Mutex // one bus transaction at a time
}

// Open opens the serial port at 115200 8N1 and switches the Bus Pirate into
// binary I2C mode.
func Open(ttyName string, cfg Config) (*Bridge, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        ttyName,
		Baud:        115200,
		Size:        8,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port, err: %w", err)
	}
	bridge, err := New(port, cfg)
	if err != nil {
		port.Close()
		return nil, err
	}
	return bridge, nil
}

// New switches a Bus Pirate reachable through port into binary I2C mode.
func New(port io.ReadWriter, cfg Config) (*Bridge, error) {
	obj := &Bridge{port: port}
	err := obj.enterBinaryMode()
	if err != nil {
		return nil, err
	}
	err = obj.command(cmdEnterI2C, i2cBanner)
	if err != nil {
		return nil, fmt.Errorf("failed to enter I2C mode: %w", err)
	}
	peripherals := cmdPeripherals
	if cfg.Power {
		peripherals |= 0x08
	}
	if cfg.Pullups {
		peripherals |= 0x04
	}
	err = obj.command(peripherals, []byte{rspOK})
	if err != nil {
		return nil, fmt.Errorf("failed to configure peripherals: %w", err)
	}
	err = obj.command(cmdSpeed|byte(cfg.Speed&0x03), []byte{rspOK})
	if err != nil {
		return nil, fmt.Errorf("failed to set bus speed: %w", err)
	}
	hal.LogDebug(hal.ComponentBus, "bus pirate in I2C mode", "speed", cfg.Speed)
	return obj, nil
}

// Close returns the Bus Pirate to its terminal and closes the port when the
// bridge owns it.
func (obj *Bridge) Close() error {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	_, err := obj.port.Write([]byte{cmdReset, 0x0F})
	if err != nil {
		return fmt.Errorf("failed to reset bus pirate: %w", err)
	}
	if c, ok := obj.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (obj *Bridge) enterBinaryMode() error {
	rsp := make([]byte, len(bbioBanner))
	for i := 0; i < resetTries; i++ {
		if _, err := obj.port.Write([]byte{cmdReset}); err != nil {
			return fmt.Errorf("failed to write to bus pirate: %w", err)
		}
		if _, err := io.ReadFull(obj.port, rsp); err != nil {
			continue
		}
		if bytes.Equal(rsp, bbioBanner) {
			return nil
		}
	}
	return fmt.Errorf("%w: no binary mode banner after %d tries", ErrResponse, resetTries)
}

// command writes one command byte and checks the reply.
func (obj *Bridge) command(cmd byte, want []byte) error {
	if _, err := obj.port.Write([]byte{cmd}); err != nil {
		return fmt.Errorf("failed to write command %#02x: %w", cmd, err)
	}
	rsp := make([]byte, len(want))
	if _, err := io.ReadFull(obj.port, rsp); err != nil {
		return fmt.Errorf("failed to read reply to %#02x: %w", cmd, err)
	}
	if !bytes.Equal(rsp, want) {
		return fmt.Errorf("%w to %#02x: % x", ErrResponse, cmd, rsp)
	}
	return nil
}

// writeBytes clocks data out in bulk writes and reports whether every byte
// was acknowledged.
func (obj *Bridge) writeBytes(data []byte) (bool, error) {
	acked := true
	for len(data) > 0 {
		chunk := data
		if len(chunk) > maxBulkWrite {
			chunk = chunk[:maxBulkWrite]
		}
		data = data[len(chunk):]

		frame := append([]byte{cmdBulkWrite | byte(len(chunk)-1)}, chunk...)
		if _, err := obj.port.Write(frame); err != nil {
			return false, fmt.Errorf("failed to write bulk data: %w", err)
		}
		rsp := make([]byte, 1+len(chunk))
		if _, err := io.ReadFull(obj.port, rsp); err != nil {
			return false, fmt.Errorf("failed to read bulk write status: %w", err)
		}
		if rsp[0] != rspOK {
			return false, fmt.Errorf("%w to bulk write: %#02x", ErrResponse, rsp[0])
		}
		for _, status := range rsp[1:] {
			if status == rspNack {
				acked = false
			}
		}
		if !acked {
			return false, nil
		}
	}
	return true, nil
}

// readBytes reads len(r) bytes, acknowledging all but the last.
func (obj *Bridge) readBytes(r []byte) error {
	one := make([]byte, 1)
	for i := range r {
		if _, err := obj.port.Write([]byte{cmdReadByte}); err != nil {
			return fmt.Errorf("failed to request byte: %w", err)
		}
		if _, err := io.ReadFull(obj.port, one); err != nil {
			return fmt.Errorf("failed to read byte %d: %w", i, err)
		}
		r[i] = one[0]
		ack := cmdAck
		if i == len(r)-1 {
			ack = cmdNack
		}
		if err := obj.command(ack, []byte{rspOK}); err != nil {
			return err
		}
	}
	return nil
}

// transaction runs START, the write phase, the optional repeated-START read
// phase and STOP. STOP is sent even when the target does not acknowledge.
func (obj *Bridge) transaction(addr uint16, w, r []byte, read bool) (err error) {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	if err = obj.command(cmdStart, []byte{rspOK}); err != nil {
		return err
	}
	defer func() {
		stopErr := obj.command(cmdStop, []byte{rspOK})
		if err == nil {
			err = stopErr
		}
	}()

	acked, err := obj.writeBytes(append([]byte{byte(addr << 1)}, w...))
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("%w: %#02x", ErrNack, addr)
	}
	if !read {
		return nil
	}

	if err = obj.command(cmdStart, []byte{rspOK}); err != nil {
		return err
	}
	acked, err = obj.writeBytes([]byte{byte(addr<<1) | 0x01})
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("%w: %#02x on read", ErrNack, addr)
	}
	return obj.readBytes(r)
}

func (obj *Bridge) Probe(addr uint16) error {
	return obj.transaction(addr, nil, nil, false)
}

func (obj *Bridge) Write(addr uint16, w []byte) error {
	return obj.transaction(addr, w, nil, false)
}

func (obj *Bridge) WriteRead(addr uint16, w, r []byte) (int, error) {
	err := obj.transaction(addr, w, r, len(r) > 0)
	if err != nil {
		return 0, err
	}
	return len(r), nil
}

var _ hal.BusCloser = (*Bridge)(nil)
