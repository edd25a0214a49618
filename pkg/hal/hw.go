package hal

// Bus is a two-wire (I2C/SMBus) bus. One Bus value represents one physical
// bus and is shared by reference by every device driver addressing it.
//
// Implementations serialize transactions; callers never see a transaction of
// another caller interleaved with their own.
type Bus interface {
	// Probe issues a zero-length write to addr. It returns nil only when the
	// target acknowledged its address.
	Probe(addr uint16) error

	// Write sends w to addr in a single START .. STOP transaction.
	Write(addr uint16, w []byte) error

	// WriteRead writes w to addr, issues a repeated START without releasing
	// the bus, then reads up to len(r) bytes and finishes with STOP.
	// n is the number of bytes the target supplied; only r[:n] is valid.
	// A short read is not an error.
	WriteRead(addr uint16, w, r []byte) (n int, err error)
}

// Resetter is implemented by hardware handlers that drive a device reset line.
type Resetter interface {
	Reset() error
}

// BusCloser is a Bus owned by a hardware handler that must be closed.
type BusCloser interface {
	Bus
	Close() error
}
