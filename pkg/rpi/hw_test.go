package rpi

import (
	"testing"
	"unsafe"
)

// The ioctl structs must match the kernel layout of the host word size.
func TestIoctlLayout(t *testing.T) {
	ptr := unsafe.Sizeof(uintptr(0))
	// three __u16 fields padded to the pointer alignment
	if got := unsafe.Offsetof(i2cMsg{}.buf); got != 8 {
		t.Errorf("i2c_msg.buf offset = %d, want 8", got)
	}
	if got := unsafe.Sizeof(i2cMsg{}); got != 8+ptr {
		t.Errorf("sizeof(i2c_msg) = %d, want %d", got, 8+ptr)
	}
	if got := unsafe.Offsetof(i2cRdwrIoctlData{}.nmsgs); got != ptr {
		t.Errorf("i2c_rdwr_ioctl_data.nmsgs offset = %d, want %d", got, ptr)
	}
}

func TestWriteMsg(t *testing.T) {
	w := []byte{0x00, 0x01, 0x02}
	msg := writeMsg(0x2C, w)
	if msg.addr != 0x2C || msg.len != 3 || msg.flags != 0 {
		t.Errorf("writeMsg() = %+v", msg)
	}
	if msg.buf != uintptr(unsafe.Pointer(&w[0])) {
		t.Error("writeMsg() does not point at the payload")
	}
	if empty := writeMsg(0x2C, nil); empty.buf != 0 || empty.len != 0 {
		t.Errorf("writeMsg(nil) = %+v", empty)
	}
}

func TestNewHWHandlerMissingBus(t *testing.T) {
	if _, err := NewHWHandler(9999, -1, ""); err == nil {
		t.Error("NewHWHandler() opened a missing i2c bus")
	}
}
