// Package haltest provides a simulated two-wire bus and a simulated USB251x
// configuration target for tests.
package haltest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mbalug7/go-usb251x/pkg/hal"
)

// BlockCount is the count byte the simulated target prepends to counted reads.
const BlockCount byte = 32

var ErrNack = errors.New("haltest: address not acknowledged")

type OpKind int

const (
	OpProbe OpKind = iota
	OpWrite
	OpWriteRead
)

// Op is one recorded bus transaction.
type Op struct {
	Kind OpKind
	Addr uint16
	W    []byte
	R    int // bytes requested by a WriteRead
}

// Window is an inclusive register range served without the count prefix.
type Window struct {
	First hal.RegAddress
	Last  hal.RegAddress
}

// WindowOf returns the raw window of size bytes starting at first.
func WindowOf(first hal.RegAddress, size int) Window {
	return Window{First: first, Last: first.Offset(size - 1)}
}

func (obj Window) contains(reg byte) bool {
	return reg >= obj.First.ToByte() && reg <= obj.Last.ToByte()
}

// Device is a simulated register file answering the USB251x SMBus framing.
//
// Block writes ([reg, count, payload...]) are echoed into Regs. Reads are
// answered from Regs: registers inside a raw window are served as is,
// every other read starts with BlockCount followed by the register bytes.
type Device struct {
	Regs [256]byte
	Raw  []Window

	// NoAck makes the device ignore its address entirely.
	NoAck bool
	// ReadLimit caps the bytes supplied per read; 0 means unlimited.
	ReadLimit int
}

func NewDevice(raw ...Window) *Device {
	return &Device{Raw: raw}
}

func (obj *Device) isRaw(reg byte) bool {
	for _, w := range obj.Raw {
		if w.contains(reg) {
			return true
		}
	}
	return false
}

func (obj *Device) write(w []byte) {
	if len(w) < 2 {
		return
	}
	reg := w[0]
	count := int(w[1])
	payload := w[2:]
	if count < len(payload) {
		payload = payload[:count]
	}
	for i, b := range payload {
		obj.Regs[reg+byte(i)] = b
	}
}

func (obj *Device) read(w []byte, r []byte) int {
	if len(w) == 0 {
		return 0
	}
	reg := w[0]
	var stream []byte
	if !obj.isRaw(reg) {
		stream = append(stream, BlockCount)
	}
	for i := 0; len(stream) < len(r); i++ {
		stream = append(stream, obj.Regs[reg+byte(i)])
	}
	n := len(r)
	if obj.ReadLimit > 0 && obj.ReadLimit < n {
		n = obj.ReadLimit
	}
	return copy(r[:n], stream)
}

// Bus is a simulated hal.Bus with devices attached by address.
type Bus struct {
	mu      sync.Mutex
	devices map[uint16]*Device
	ops     []Op
}

func NewBus() *Bus {
	return &Bus{devices: make(map[uint16]*Device)}
}

// Attach places dev on the bus at addr.
func (obj *Bus) Attach(addr uint16, dev *Device) *Device {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.devices[addr] = dev
	return dev
}

// Ops returns a copy of the recorded transactions.
func (obj *Bus) Ops() []Op {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return append([]Op(nil), obj.ops...)
}

// Reset clears the transaction record.
func (obj *Bus) Reset() {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.ops = nil
}

func (obj *Bus) target(addr uint16) (*Device, error) {
	dev, ok := obj.devices[addr]
	if !ok || dev.NoAck {
		return nil, fmt.Errorf("%w: %#02x", ErrNack, addr)
	}
	return dev, nil
}

func (obj *Bus) Probe(addr uint16) error {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.ops = append(obj.ops, Op{Kind: OpProbe, Addr: addr})
	_, err := obj.target(addr)
	return err
}

func (obj *Bus) Write(addr uint16, w []byte) error {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.ops = append(obj.ops, Op{Kind: OpWrite, Addr: addr, W: append([]byte(nil), w...)})
	dev, err := obj.target(addr)
	if err != nil {
		return err
	}
	dev.write(w)
	return nil
}

func (obj *Bus) WriteRead(addr uint16, w, r []byte) (int, error) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.ops = append(obj.ops, Op{Kind: OpWriteRead, Addr: addr, W: append([]byte(nil), w...), R: len(r)})
	dev, err := obj.target(addr)
	if err != nil {
		return 0, err
	}
	return dev.read(w, r), nil
}
