package hal

// RegAddress is an 8-bit register address in a device memory map.
type RegAddress uint8

// ToByte returns the address as it is put on the wire.
func (obj RegAddress) ToByte() byte {
	return byte(obj)
}

// Offset returns the address n registers after obj.
func (obj RegAddress) Offset(n int) RegAddress {
	return RegAddress(int(obj) + n)
}

// Register is a cached model of one device register.
type Register interface {
	GetAddress() RegAddress
	GetValue() uint8
	SetValue(value uint8)
}
