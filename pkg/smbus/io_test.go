package smbus

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mbalug7/go-usb251x/pkg/hal"
	"github.com/mbalug7/go-usb251x/pkg/hal/haltest"
)

const testAddr = 0x2C

var testIdentity = Identity{Reg: 0x04, ID: 0x0BB3}

// newTestIO returns an opened IO on a simulated bus whose identity registers
// hold 0x0B 0xB3 and are served without the count prefix.
func newTestIO(t *testing.T, raw ...haltest.Window) (*IO, *haltest.Bus, *haltest.Device) {
	t.Helper()
	bus := haltest.NewBus()
	raw = append(raw, haltest.Window{First: 0x00, Last: 0x05})
	dev := bus.Attach(testAddr, haltest.NewDevice(raw...))
	dev.Regs[0x04] = 0x0B
	dev.Regs[0x05] = 0xB3
	io := New(testIdentity)
	if err := io.Open(testAddr, bus); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	bus.Reset()
	return io, bus, dev
}

func TestOpen(t *testing.T) {
	bus := haltest.NewBus()
	io := New(testIdentity)
	err := io.Open(testAddr, bus)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Open(empty bus) error = %v, want ErrNotConnected", err)
	}
	if io.Address() != testAddr {
		t.Errorf("Address() = %#x, want %#x", io.Address(), testAddr)
	}
}

func TestOperationsBeforeOpen(t *testing.T) {
	io := New(testIdentity)
	if io.IsConnected() {
		t.Error("IsConnected() = true before Open")
	}
	if err := io.WriteSingleByte(0x00, 1); !errors.Is(err, ErrNotOpen) {
		t.Errorf("WriteSingleByte() error = %v, want ErrNotOpen", err)
	}
	if v, err := io.ReadSingleByte(0x00); v != ReadErrorValue || !errors.Is(err, ErrNotOpen) {
		t.Errorf("ReadSingleByte() = %#x, %v", v, err)
	}
	if _, err := io.ReadMultipleBytes(0x00, make([]byte, 2)); !errors.Is(err, ErrNotOpen) {
		t.Errorf("ReadMultipleBytes() error = %v, want ErrNotOpen", err)
	}
}

func TestIsConnected(t *testing.T) {
	tests := []struct {
		name  string
		id    [2]byte
		noAck bool
		want  bool
	}{
		{"expected id", [2]byte{0x0B, 0xB3}, false, true},
		{"little endian id", [2]byte{0xB3, 0x0B}, false, false},
		{"other id", [2]byte{0x25, 0x12}, false, false},
		{"no probe ack", [2]byte{0x0B, 0xB3}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			io, _, dev := newTestIO(t)
			dev.Regs[0x04], dev.Regs[0x05] = tt.id[0], tt.id[1]
			dev.NoAck = tt.noAck
			if got := io.IsConnected(); got != tt.want {
				t.Errorf("IsConnected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsConnectedTransactions(t *testing.T) {
	io, bus, _ := newTestIO(t)
	io.IsConnected()
	want := []haltest.Op{
		{Kind: haltest.OpProbe, Addr: testAddr},
		{Kind: haltest.OpWriteRead, Addr: testAddr, W: []byte{0x04}, R: 2},
	}
	if diff := cmp.Diff(want, bus.Ops()); diff != "" {
		t.Errorf("transactions mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteMultipleBytesFraming(t *testing.T) {
	io, bus, _ := newTestIO(t)
	payload := []byte{0x24, 0x04, 0x12, 0x25, 0xB3}
	if err := io.WriteMultipleBytes(0x00, payload); err != nil {
		t.Fatal(err)
	}
	want := []haltest.Op{
		{Kind: haltest.OpWrite, Addr: testAddr, W: []byte{0x00, 5, 0x24, 0x04, 0x12, 0x25, 0xB3}},
	}
	if diff := cmp.Diff(want, bus.Ops()); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteMultipleBytesTooLong(t *testing.T) {
	io, bus, _ := newTestIO(t)
	err := io.WriteMultipleBytes(0x00, make([]byte, MaxBlockLength+1))
	if !errors.Is(err, ErrBlockLength) {
		t.Errorf("error = %v, want ErrBlockLength", err)
	}
	if len(bus.Ops()) != 0 {
		t.Errorf("oversized block reached the bus")
	}
}

func TestReadMultipleBytesShortRead(t *testing.T) {
	io, bus, dev := newTestIO(t, haltest.Window{First: 0x10, Last: 0x1F})
	copy(dev.Regs[0x10:], []byte{1, 2, 3, 4})
	dev.ReadLimit = 2

	buf := bytes.Repeat([]byte{0xAA}, 4)
	n, err := io.ReadMultipleBytes(0x10, buf)
	if err != nil {
		t.Fatalf("ReadMultipleBytes() error = %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	if diff := cmp.Diff([]byte{1, 2, 0xAA, 0xAA}, buf); diff != "" {
		t.Errorf("buffer mismatch (-want +got):\n%s", diff)
	}
	want := []haltest.Op{{Kind: haltest.OpWriteRead, Addr: testAddr, W: []byte{0x10}, R: 4}}
	if diff := cmp.Diff(want, bus.Ops()); diff != "" {
		t.Errorf("transactions mismatch (-want +got):\n%s", diff)
	}
}

func TestSingleByteRoundTrip(t *testing.T) {
	io, _, dev := newTestIO(t)
	// every register answers with the count prefix
	dev.Raw = nil
	for addr := 0x00; addr <= 0xFF; addr++ {
		reg := hal.RegAddress(addr)
		value := byte(addr*7 + 3)
		if err := io.WriteSingleByte(reg, value); err != nil {
			t.Fatalf("WriteSingleByte(%#x) error = %v", addr, err)
		}
		got, err := io.ReadSingleByte(reg)
		if err != nil {
			t.Fatalf("ReadSingleByte(%#x) error = %v", addr, err)
		}
		if got != value {
			t.Errorf("register %#x: read %#x, wrote %#x", addr, got, value)
		}
	}
}

// A register holding 0xFF reads back exactly like a failed read; only the
// error tells them apart.
func TestSingleByteSentinelCollision(t *testing.T) {
	io, _, dev := newTestIO(t)
	if err := io.WriteSingleByte(0x30, 0xFF); err != nil {
		t.Fatal(err)
	}
	stored, err := io.ReadSingleByte(0x30)
	if err != nil {
		t.Fatal(err)
	}

	dev.ReadLimit = 1
	failed, err := io.ReadSingleByte(0x30)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("short read error = %v, want ErrNoData", err)
	}
	if stored != failed {
		t.Errorf("stored %#x and sentinel %#x differ", stored, failed)
	}
}

func TestSingleByteValue(t *testing.T) {
	tests := []struct {
		name string
		rsp  []byte
		n    int
		want byte
		ok   bool
	}{
		{"counted", []byte{32, 0x42}, 2, 0x42, true},
		{"zero count", []byte{0, 0x42}, 2, ReadErrorValue, false},
		{"count only", []byte{32, 0}, 1, ReadErrorValue, false},
		{"nothing", []byte{0, 0}, 0, ReadErrorValue, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := singleByteValue(tt.rsp, tt.n)
			if got != tt.want || ok != tt.ok {
				t.Errorf("singleByteValue() = %#x, %v, want %#x, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRegisterBits(t *testing.T) {
	io, bus, dev := newTestIO(t)
	dev.Regs[0xFF] = 0x04

	if err := io.SetRegisterBit(0xFF, 0); err != nil {
		t.Fatal(err)
	}
	if dev.Regs[0xFF] != 0x05 {
		t.Errorf("after set: %#x, want 0x05", dev.Regs[0xFF])
	}
	set, err := io.IsBitSet(0xFF, 0)
	if err != nil || !set {
		t.Errorf("IsBitSet(0) = %v, %v", set, err)
	}
	if err := io.ClearRegisterBit(0xFF, 2); err != nil {
		t.Fatal(err)
	}
	if dev.Regs[0xFF] != 0x01 {
		t.Errorf("after clear: %#x, want 0x01", dev.Regs[0xFF])
	}
	if err := io.SetRegisterBit(0xFF, 8); !errors.Is(err, ErrBitPosition) {
		t.Errorf("SetRegisterBit(8) error = %v, want ErrBitPosition", err)
	}

	bus.Reset()
	dev.ReadLimit = 1
	if err := io.SetRegisterBit(0xFF, 1); !errors.Is(err, ErrNoData) {
		t.Errorf("SetRegisterBit() on failed read error = %v", err)
	}
	for _, op := range bus.Ops() {
		if op.Kind == haltest.OpWrite {
			t.Errorf("read-modify-write wrote after a failed read: % x", op.W)
		}
	}
}
