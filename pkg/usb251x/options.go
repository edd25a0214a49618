package usb251x

import "encoding/binary"

type Option func(*Hub)

// WithAddress overrides the factory SMBus address.
func WithAddress(address uint16) Option {
	return func(obj *Hub) {
		obj.address = address
	}
}

// WithIDByteOrder sets how identifier reads assemble the two received bytes.
// The default is binary.BigEndian: the first byte read is the most
// significant, while identifier writes always send the low byte first.
// Passing binary.LittleEndian makes reads mirror the writes.
func WithIDByteOrder(order binary.ByteOrder) Option {
	return func(obj *Hub) {
		obj.idOrder = order
	}
}
