package smbus

import "github.com/mbalug7/go-usb251x/pkg/hal"

// Wire layouts of the USB251x SMBus configuration interface.
//
//	block write:  [reg] [count] [data0 .. dataN-1]      one transaction, STOP
//	block read:   [reg] Sr [data0 .. dataN-1]           repeated START, raw bytes
//	byte read:    [reg] Sr [count] [value]              count is discarded (32)
//	byte write:   [reg] [0x01] [value]

const (
	// MaxBlockLength is the largest payload a single count byte can describe.
	MaxBlockLength = 255

	// singleReadLength covers the count prefix plus the register value.
	singleReadLength = 2

	// ReadErrorValue is returned by single-byte reads when the hub supplied
	// no data. It is indistinguishable from a register holding 0xFF.
	ReadErrorValue byte = 0xFF
)

// blockWriteFrame returns the bytes of a block write of data to reg.
func blockWriteFrame(reg hal.RegAddress, data []byte) []byte {
	frame := make([]byte, 0, len(data)+2)
	frame = append(frame, reg.ToByte(), byte(len(data)))
	return append(frame, data...)
}

// registerSelectFrame returns the write half of a repeated-start read.
func registerSelectFrame(reg hal.RegAddress) []byte {
	return []byte{reg.ToByte()}
}

// singleByteValue extracts the register value of a counted byte read.
// n is the number of bytes the hub supplied into rsp.
func singleByteValue(rsp []byte, n int) (byte, bool) {
	if n < singleReadLength || rsp[0] == 0 {
		return ReadErrorValue, false
	}
	return rsp[1], true
}
