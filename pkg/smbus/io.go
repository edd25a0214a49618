// Package smbus implements the register I/O layer of the USB251x SMBus
// configuration interface: block framing, the counted single-byte read and
// the UTF-16LE string windows. It has no knowledge of what a register means.
package smbus

import (
	"fmt"

	"github.com/mbalug7/go-usb251x/pkg/hal"
)

// Identity names the register pair read by the connectivity check and the
// value it must hold.
type Identity struct {
	Reg hal.RegAddress
	ID  uint16
}

// IO owns the bus handle and target address of one device.
type IO struct {
	bus      hal.Bus
	address  uint16
	identity Identity
}

func New(identity Identity) *IO {
	return &IO{identity: identity}
}

// Open stores the target address and bus, then runs the connectivity check.
func (obj *IO) Open(address uint16, bus hal.Bus) error {
	obj.address = address
	obj.bus = bus
	if !obj.IsConnected() {
		return fmt.Errorf("%w at address %#02x", ErrNotConnected, address)
	}
	hal.LogInfo(hal.ComponentSMBus, "device connected", "addr", address)
	return nil
}

// Address returns the 7-bit target address.
func (obj *IO) Address() uint16 {
	return obj.address
}

// IsConnected probes the target with a zero-length write and then compares
// the identity register pair against the expected ID. The first byte read
// is the most significant.
func (obj *IO) IsConnected() bool {
	if obj.bus == nil {
		return false
	}
	if err := obj.bus.Probe(obj.address); err != nil {
		hal.LogDebug(hal.ComponentSMBus, "probe failed", "addr", obj.address, "err", err)
		return false
	}
	buf := make([]byte, 2)
	if _, err := obj.ReadMultipleBytes(obj.identity.Reg, buf); err != nil {
		return false
	}
	id := uint16(buf[0])<<8 | uint16(buf[1])
	if id != obj.identity.ID {
		hal.LogDebug(hal.ComponentSMBus, "unexpected device id", "got", id, "want", obj.identity.ID)
		return false
	}
	return true
}

// WriteMultipleBytes writes data to consecutive registers starting at reg in
// a single block write prefixed with the payload length.
func (obj *IO) WriteMultipleBytes(reg hal.RegAddress, data []byte) error {
	if obj.bus == nil {
		return ErrNotOpen
	}
	if len(data) > MaxBlockLength {
		return fmt.Errorf("%w: %d bytes", ErrBlockLength, len(data))
	}
	hal.LogDebug(hal.ComponentSMBus, "block write", "reg", reg, "len", len(data), "data", fmt.Sprintf("% x", data))
	err := obj.bus.Write(obj.address, blockWriteFrame(reg, data))
	if err != nil {
		return fmt.Errorf("failed to write %d bytes at register %#02x: %w", len(data), reg, err)
	}
	return nil
}

// ReadMultipleBytes selects reg, keeps the bus with a repeated start and
// reads up to len(buf) bytes. It returns how many bytes arrived; the rest of
// buf is left as it was. A short read is not an error.
func (obj *IO) ReadMultipleBytes(reg hal.RegAddress, buf []byte) (int, error) {
	if obj.bus == nil {
		return 0, ErrNotOpen
	}
	rsp := make([]byte, len(buf))
	n, err := obj.bus.WriteRead(obj.address, registerSelectFrame(reg), rsp)
	if err != nil {
		return 0, fmt.Errorf("failed to read %d bytes at register %#02x: %w", len(buf), reg, err)
	}
	if n > len(buf) {
		n = len(buf)
	}
	copy(buf, rsp[:n])
	if n < len(buf) {
		hal.LogDebug(hal.ComponentSMBus, "short block read", "reg", reg, "want", len(buf), "got", n)
	}
	return n, nil
}

// ReadSingleByte reads one register. The hub prepends a byte count to every
// read, so two bytes are requested and the first is dropped. When no data
// arrives ReadErrorValue is returned together with ErrNoData.
func (obj *IO) ReadSingleByte(reg hal.RegAddress) (byte, error) {
	if obj.bus == nil {
		return ReadErrorValue, ErrNotOpen
	}
	rsp := make([]byte, singleReadLength)
	n, err := obj.bus.WriteRead(obj.address, registerSelectFrame(reg), rsp)
	if err != nil {
		return ReadErrorValue, fmt.Errorf("failed to read register %#02x: %w", reg, err)
	}
	value, ok := singleByteValue(rsp, n)
	if !ok {
		return value, fmt.Errorf("%w from register %#02x", ErrNoData, reg)
	}
	return value, nil
}

// WriteSingleByte writes value to reg as a one byte block.
func (obj *IO) WriteSingleByte(reg hal.RegAddress, value byte) error {
	return obj.WriteMultipleBytes(reg, []byte{value})
}

func bitMask(bit uint8) (byte, error) {
	if bit > 7 {
		return 0, fmt.Errorf("%w: %d", ErrBitPosition, bit)
	}
	return 1 << bit, nil
}

// SetRegisterBit sets one bit of reg with a read-modify-write.
// Nothing is written when the read fails.
func (obj *IO) SetRegisterBit(reg hal.RegAddress, bit uint8) error {
	mask, err := bitMask(bit)
	if err != nil {
		return err
	}
	value, err := obj.ReadSingleByte(reg)
	if err != nil {
		return err
	}
	return obj.WriteSingleByte(reg, value|mask)
}

// ClearRegisterBit clears one bit of reg with a read-modify-write.
func (obj *IO) ClearRegisterBit(reg hal.RegAddress, bit uint8) error {
	mask, err := bitMask(bit)
	if err != nil {
		return err
	}
	value, err := obj.ReadSingleByte(reg)
	if err != nil {
		return err
	}
	return obj.WriteSingleByte(reg, value&^mask)
}

// IsBitSet tests one bit of reg. On a failed read the bit is tested against
// ReadErrorValue and the error is returned alongside.
func (obj *IO) IsBitSet(reg hal.RegAddress, bit uint8) (bool, error) {
	mask, err := bitMask(bit)
	if err != nil {
		return false, err
	}
	value, err := obj.ReadSingleByte(reg)
	return value&mask != 0, err
}
