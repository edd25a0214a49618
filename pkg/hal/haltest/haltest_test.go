package haltest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDeviceEchoesBlockWrite(t *testing.T) {
	bus := NewBus()
	dev := bus.Attach(0x2C, NewDevice(Window{First: 0x10, Last: 0x1F}))

	if err := bus.Write(0x2C, []byte{0x10, 3, 'a', 'b', 'c', 'z'}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if diff := cmp.Diff([]byte{'a', 'b', 'c', 0}, dev.Regs[0x10:0x14]); diff != "" {
		t.Errorf("register file mismatch (-want +got):\n%s", diff)
	}

	r := make([]byte, 3)
	n, err := bus.WriteRead(0x2C, []byte{0x10}, r)
	if err != nil || n != 3 {
		t.Fatalf("WriteRead() = %d, %v", n, err)
	}
	if diff := cmp.Diff([]byte("abc"), r); diff != "" {
		t.Errorf("raw read mismatch (-want +got):\n%s", diff)
	}
}

func TestWindowOf(t *testing.T) {
	w := WindowOf(0x16, 62)
	if w.First != 0x16 || w.Last != 0x53 {
		t.Errorf("WindowOf() = %+v, want 0x16..0x53", w)
	}
	if !w.contains(0x53) || w.contains(0x54) {
		t.Errorf("window bounds wrong: %+v", w)
	}
}

func TestDeviceCountedRead(t *testing.T) {
	bus := NewBus()
	dev := bus.Attach(0x2C, NewDevice())
	dev.Regs[0x06] = 0x9B

	r := make([]byte, 2)
	if _, err := bus.WriteRead(0x2C, []byte{0x06}, r); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{BlockCount, 0x9B}, r); diff != "" {
		t.Errorf("counted read mismatch (-want +got):\n%s", diff)
	}
}

func TestDeviceReadLimitAndNack(t *testing.T) {
	bus := NewBus()
	dev := bus.Attach(0x2C, NewDevice())
	dev.ReadLimit = 1

	r := make([]byte, 4)
	n, err := bus.WriteRead(0x2C, []byte{0x00}, r)
	if err != nil || n != 1 {
		t.Errorf("WriteRead() = %d, %v, want 1, nil", n, err)
	}

	if err := bus.Probe(0x50); !errors.Is(err, ErrNack) {
		t.Errorf("Probe(absent) error = %v, want ErrNack", err)
	}
	dev.NoAck = true
	if err := bus.Probe(0x2C); !errors.Is(err, ErrNack) {
		t.Errorf("Probe(NoAck) error = %v, want ErrNack", err)
	}
	if got := len(bus.Ops()); got != 3 {
		t.Errorf("recorded %d ops, want 3", got)
	}
}
