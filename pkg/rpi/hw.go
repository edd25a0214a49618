// Package rpi is the Linux host handler: the hub is reached through an
// i2c-dev character device and its RESET_N pin through the GPIO character
// device.
package rpi

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/warthog618/gpiod"
	"golang.org/x/sys/unix"

	"github.com/mbalug7/go-usb251x/pkg/hal"
)

const (
	i2cRdwr  = 0x0707 // I2C_RDWR
	i2cMsgRd = 0x0001 // I2C_M_RD

	resetPulse  = 2 * time.Millisecond
	resetSettle = 10 * time.Millisecond
)

// struct i2c_msg
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

// struct i2c_rdwr_ioctl_data
type i2cRdwrIoctlData struct {
	msgs  uintptr
	nmsgs uint32
}

type HWHandler struct {
	devPath   string      // i2c-dev node, e.g. /dev/i2c-1
	dev       *os.File    // open i2c-dev node
	chip      *gpiod.Chip // GPIO chip owning the reset line
	ResetLine *gpiod.Line // RESET_N, active low; nil when not wired
	mu        sync.Mutex  // one bus transaction at a time
}

// NewHWHandler opens /dev/i2c-<busNumber>. When resetPin is not negative the
// pin on gpioChip is requested as an output driving RESET_N high.
func NewHWHandler(busNumber int, resetPin int, gpioChip string) (*HWHandler, error) {
	handler := &HWHandler{
		devPath: fmt.Sprintf("/dev/i2c-%d", busNumber),
	}
	var err error
	handler.dev, err = os.OpenFile(handler.devPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c device %s: %w", handler.devPath, err)
	}
	if resetPin < 0 {
		return handler, nil
	}

	handler.chip, err = gpiod.NewChip(gpioChip, gpiod.WithConsumer("usb251x"))
	if err != nil {
		handler.dev.Close()
		return nil, fmt.Errorf("failed to create GPIO chip: %w", err)
	}
	handler.ResetLine, err = handler.chip.RequestLine(resetPin, gpiod.AsOutput(1))
	if err != nil {
		handler.chip.Close()
		handler.dev.Close()
		return nil, fmt.Errorf("failed to request RESET GPIO line: %w", err)
	}
	return handler, nil
}

func (obj *HWHandler) Close() (err error) {
	if obj.ResetLine != nil {
		err = obj.ResetLine.Close()
		if err != nil {
			return fmt.Errorf("failed to close RESET line: %w", err)
		}
	}
	if obj.chip != nil {
		err = obj.chip.Close()
		if err != nil {
			return fmt.Errorf("failed to close GPIO chip: %w", err)
		}
	}
	err = obj.dev.Close()
	if err != nil {
		return fmt.Errorf("failed to close i2c device: %w", err)
	}
	return nil
}

// Reset pulses RESET_N low. The hub samples its straps on the rising edge
// and, strapped for SMBus, waits for configuration until USB_ATTACH is set.
// Register contents after reset are whatever the hub loads internally; the
// driver does not assume any of them beyond the device id checked by Open.
func (obj *HWHandler) Reset() error {
	if obj.ResetLine == nil {
		return fmt.Errorf("reset line not configured")
	}
	obj.mu.Lock()
	defer obj.mu.Unlock()

	err := obj.ResetLine.SetValue(0)
	if err != nil {
		return fmt.Errorf("failed to assert RESET line: %w", err)
	}
	time.Sleep(resetPulse)
	err = obj.ResetLine.SetValue(1)
	if err != nil {
		return fmt.Errorf("failed to release RESET line: %w", err)
	}
	time.Sleep(resetSettle)
	hal.LogDebug(hal.ComponentReset, "hub reset", "line", obj.ResetLine.Offset())
	return nil
}

// transfer runs msgs as one combined transaction: every message after the
// first starts with a repeated START.
func (obj *HWHandler) transfer(msgs []i2cMsg) error {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	data := i2cRdwrIoctlData{
		msgs:  uintptr(unsafe.Pointer(&msgs[0])),
		nmsgs: uint32(len(msgs)),
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, obj.dev.Fd(), i2cRdwr, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(msgs)
	if errno != 0 {
		return fmt.Errorf("i2c transfer on %s failed: %w", obj.devPath, errno)
	}
	return nil
}

func writeMsg(addr uint16, w []byte) i2cMsg {
	msg := i2cMsg{addr: addr, len: uint16(len(w))}
	if len(w) > 0 {
		msg.buf = uintptr(unsafe.Pointer(&w[0]))
	}
	return msg
}

func (obj *HWHandler) Probe(addr uint16) error {
	return obj.transfer([]i2cMsg{writeMsg(addr, nil)})
}

func (obj *HWHandler) Write(addr uint16, w []byte) error {
	err := obj.transfer([]i2cMsg{writeMsg(addr, w)})
	runtime.KeepAlive(w)
	return err
}

// WriteRead always reports a full read: i2c-dev does not surface how many
// bytes the target drove before the master NACK.
func (obj *HWHandler) WriteRead(addr uint16, w, r []byte) (int, error) {
	msgs := []i2cMsg{writeMsg(addr, w)}
	if len(r) > 0 {
		msgs = append(msgs, i2cMsg{
			addr:  addr,
			flags: i2cMsgRd,
			len:   uint16(len(r)),
			buf:   uintptr(unsafe.Pointer(&r[0])),
		})
	}
	err := obj.transfer(msgs)
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	if err != nil {
		return 0, err
	}
	return len(r), nil
}

var _ hal.BusCloser = (*HWHandler)(nil)
var _ hal.Resetter = (*HWHandler)(nil)
