// Package usb251x configures Microchip USB251xB hubs strapped for SMBus
// configuration: identifiers, descriptor strings, the factory register image
// and the USB_ATTACH command.
package usb251x

import (
	"encoding/binary"
	"fmt"

	"github.com/mbalug7/go-usb251x/pkg/hal"
	"github.com/mbalug7/go-usb251x/pkg/smbus"
)

type Hub struct {
	io      *smbus.IO
	address uint16
	idOrder binary.ByteOrder
}

func NewHub(opts ...Option) *Hub {
	hub := &Hub{
		io:      smbus.New(smbus.Identity{Reg: DEVICE_ID_LSB, ID: DEVICE_ID}),
		address: I2C_ADDRESS,
		idOrder: binary.BigEndian,
	}
	for _, opt := range opts {
		opt(hub)
	}
	return hub
}

// Open connects the hub on bus. Several hubs, or other devices, may share
// the same bus value.
func (obj *Hub) Open(bus hal.Bus) error {
	err := obj.io.Open(obj.address, bus)
	if err != nil {
		return fmt.Errorf("failed to open usb251x hub: %w", err)
	}
	return nil
}

func (obj *Hub) IsConnected() bool {
	return obj.io.IsConnected()
}

// Attach sets USB_ATTACH. The hub then locks its configuration and starts
// acting as a hub; there is no way back short of a reset.
func (obj *Hub) Attach() error {
	err := obj.io.SetRegisterBit(STATUS, attachBit)
	if err != nil {
		return fmt.Errorf("failed to attach hub: %w", err)
	}
	hal.LogInfo(hal.ComponentHub, "hub attached", "addr", obj.address)
	return nil
}

// IsAttached reports whether USB_ATTACH is set.
func (obj *Hub) IsAttached() (bool, error) {
	return obj.io.IsBitSet(STATUS, attachBit)
}

// Status reads and decodes the status/command register.
func (obj *Hub) Status() (*Status, error) {
	value, err := obj.io.ReadSingleByte(STATUS)
	if err != nil {
		return nil, fmt.Errorf("failed to read status register: %w", err)
	}
	status := &Status{}
	status.SetValue(value)
	return status, nil
}

// ApplyDefaults writes the factory register image in one block starting at
// VENDOR_ID_LSB.
func (obj *Hub) ApplyDefaults() error {
	err := obj.io.WriteMultipleBytes(VENDOR_ID_LSB, DefaultSettings())
	if err != nil {
		return fmt.Errorf("failed to write default settings: %w", err)
	}
	return nil
}

// ReadRegister reads any register; on failure the value is 0xFF.
func (obj *Hub) ReadRegister(reg hal.RegAddress) (byte, error) {
	return obj.io.ReadSingleByte(reg)
}

func (obj *Hub) WriteRegister(reg hal.RegAddress, value byte) error {
	return obj.io.WriteSingleByte(reg, value)
}

func (obj *Hub) SetBit(reg hal.RegAddress, bit uint8) error {
	return obj.io.SetRegisterBit(reg, bit)
}

func (obj *Hub) ClearBit(reg hal.RegAddress, bit uint8) error {
	return obj.io.ClearRegisterBit(reg, bit)
}

// writeID sends id low byte first.
func (obj *Hub) writeID(reg hal.RegAddress, id uint16) error {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, id)
	err := obj.io.WriteMultipleBytes(reg, buf)
	if err != nil {
		return fmt.Errorf("failed to write id at register %#02x: %w", reg, err)
	}
	return nil
}

// readID assembles the two bytes at reg with the configured byte order.
func (obj *Hub) readID(reg hal.RegAddress) (uint16, error) {
	buf := make([]byte, 2)
	_, err := obj.io.ReadMultipleBytes(reg, buf)
	if err != nil {
		return 0, fmt.Errorf("failed to read id at register %#02x: %w", reg, err)
	}
	return obj.idOrder.Uint16(buf), nil
}

func (obj *Hub) SetVendorID(id uint16) error {
	return obj.writeID(VENDOR_ID_LSB, id)
}

func (obj *Hub) SetProductID(id uint16) error {
	return obj.writeID(PRODUCT_ID_LSB, id)
}

func (obj *Hub) SetDeviceID(id uint16) error {
	return obj.writeID(DEVICE_ID_LSB, id)
}

func (obj *Hub) GetVendorID() (uint16, error) {
	return obj.readID(VENDOR_ID_LSB)
}

func (obj *Hub) GetProductID() (uint16, error) {
	return obj.readID(PRODUCT_ID_LSB)
}

func (obj *Hub) GetDeviceID() (uint16, error) {
	return obj.readID(DEVICE_ID_LSB)
}

// SetLanguageID writes the USB language id, high byte first as the register
// map orders it.
func (obj *Hub) SetLanguageID(id uint16) error {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, id)
	err := obj.io.WriteMultipleBytes(LANGUAGE_ID_HIGH, buf)
	if err != nil {
		return fmt.Errorf("failed to write language id: %w", err)
	}
	return nil
}

// string field: length register plus data window
type stringField struct {
	name   string
	length hal.RegAddress
	start  hal.RegAddress
}

var (
	manufacturerField = stringField{name: "manufacturer", length: MANUFACTURER_STRING_LENGTH, start: MANUFACTURER_STRING_START}
	productField      = stringField{name: "product", length: PRODUCT_STRING_LENGTH, start: PRODUCT_STRING_START}
	serialField       = stringField{name: "serial number", length: SERIAL_STRING_LENGTH, start: SERIAL_STRING_START}
)

func (obj *Hub) getString(field stringField) (string, error) {
	length, err := obj.io.ReadSingleByte(field.length)
	if err != nil {
		return "", fmt.Errorf("failed to read %s string length: %w", field.name, err)
	}
	s, err := obj.io.ReadUTF16LEString(field.start, int(length))
	if err != nil {
		return "", fmt.Errorf("failed to read %s string: %w", field.name, err)
	}
	return s, nil
}

func (obj *Hub) setString(field stringField, s string) error {
	length, err := obj.io.WriteUTF16LEString(field.start, s)
	if err != nil {
		return fmt.Errorf("failed to write %s string: %w", field.name, err)
	}
	err = obj.io.WriteSingleByte(field.length, byte(length))
	if err != nil {
		return fmt.Errorf("failed to write %s string length: %w", field.name, err)
	}
	return nil
}

func (obj *Hub) GetManufacturerString() (string, error) {
	return obj.getString(manufacturerField)
}

func (obj *Hub) SetManufacturerString(s string) error {
	return obj.setString(manufacturerField, s)
}

func (obj *Hub) GetProductString() (string, error) {
	return obj.getString(productField)
}

func (obj *Hub) SetProductString(s string) error {
	return obj.setString(productField, s)
}

func (obj *Hub) GetSerialNumberString() (string, error) {
	return obj.getString(serialField)
}

func (obj *Hub) SetSerialNumberString(s string) error {
	return obj.setString(serialField, s)
}

// GetConfiguration returns a printable summary of the identity registers.
func (obj *Hub) GetConfiguration() string {
	var conf string
	if id, err := obj.GetVendorID(); err == nil {
		conf = conf + fmt.Sprintf("\nVENDOR ID: %#04x", id)
	}
	if id, err := obj.GetProductID(); err == nil {
		conf = conf + fmt.Sprintf("\nPRODUCT ID: %#04x", id)
	}
	if id, err := obj.GetDeviceID(); err == nil {
		conf = conf + fmt.Sprintf("\nDEVICE ID: %#04x", id)
	}
	if s, err := obj.GetManufacturerString(); err == nil {
		conf = conf + fmt.Sprintf("\nMANUFACTURER: %q", s)
	}
	if s, err := obj.GetProductString(); err == nil {
		conf = conf + fmt.Sprintf("\nPRODUCT: %q", s)
	}
	if s, err := obj.GetSerialNumberString(); err == nil {
		conf = conf + fmt.Sprintf("\nSERIAL: %q", s)
	}
	if status, err := obj.Status(); err == nil {
		conf = conf + fmt.Sprintf("\nSTATUS: %#02x attached=%t", status.GetValue(), status.Attached())
	}
	return conf
}
