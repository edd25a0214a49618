package smbus

import "errors"

var (
	ErrNotOpen      = errors.New("smbus: bus not opened")
	ErrNotConnected = errors.New("smbus: device not connected")
	ErrNoData       = errors.New("smbus: no data received")
	ErrBlockLength  = errors.New("smbus: block too long")
	ErrBitPosition  = errors.New("smbus: bit position out of range")
)
