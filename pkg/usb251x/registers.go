package usb251x

import "github.com/mbalug7/go-usb251x/pkg/hal"

// SMBus configuration register map of the USB251xB hubs.
const (
	VENDOR_ID_LSB              hal.RegAddress = 0x00
	VENDOR_ID_MSB              hal.RegAddress = 0x01
	PRODUCT_ID_LSB             hal.RegAddress = 0x02
	PRODUCT_ID_MSB             hal.RegAddress = 0x03
	DEVICE_ID_LSB              hal.RegAddress = 0x04
	DEVICE_ID_MSB              hal.RegAddress = 0x05
	CONFIG_DATA_1              hal.RegAddress = 0x06
	CONFIG_DATA_2              hal.RegAddress = 0x07
	CONFIG_DATA_3              hal.RegAddress = 0x08
	NON_REMOVABLE_DEVICES      hal.RegAddress = 0x09
	PORT_DISABLE_SELF          hal.RegAddress = 0x0A
	PORT_DISABLE_BUS           hal.RegAddress = 0x0B
	MAX_POWER_SELF             hal.RegAddress = 0x0C
	MAX_POWER_BUS              hal.RegAddress = 0x0D
	HUB_CURRENT_SELF           hal.RegAddress = 0x0E
	HUB_CURRENT_BUS            hal.RegAddress = 0x0F
	POWER_ON_TIME              hal.RegAddress = 0x10
	LANGUAGE_ID_HIGH           hal.RegAddress = 0x11
	LANGUAGE_ID_LOW            hal.RegAddress = 0x12
	MANUFACTURER_STRING_LENGTH hal.RegAddress = 0x13
	PRODUCT_STRING_LENGTH      hal.RegAddress = 0x14
	SERIAL_STRING_LENGTH       hal.RegAddress = 0x15
	MANUFACTURER_STRING_START  hal.RegAddress = 0x16
	PRODUCT_STRING_START       hal.RegAddress = 0x54
	SERIAL_STRING_START        hal.RegAddress = 0x92
	BATTERY_CHARGING_ENABLE    hal.RegAddress = 0xD0
	BOOST_UPSTREAM             hal.RegAddress = 0xF6
	BOOST_DOWNSTREAM           hal.RegAddress = 0xF8
	PORT_SWAP                  hal.RegAddress = 0xFA
	PORT_MAP_12                hal.RegAddress = 0xFB
	PORT_MAP_34                hal.RegAddress = 0xFC
	STATUS                     hal.RegAddress = 0xFF
)

const (
	// I2C_ADDRESS is the factory SMBus address of the hub.
	I2C_ADDRESS uint16 = 0x2C

	// DEVICE_ID is the value the connectivity check expects.
	DEVICE_ID uint16 = 0x0BB3
)

// defaultSettings is the factory register image from VENDOR_ID_LSB through
// POWER_ON_TIME. Identifiers are stored low byte first.
var defaultSettings = [...]byte{
	0x24, 0x04, // vendor id 0x0424
	0x12, 0x25, // product id 0x2512
	0xB3, 0x0B, // device id 0x0BB3
	0x9B, // config data 1
	0x20, // config data 2
	0x02, // config data 3
	0x00, // non-removable devices
	0x00, // port disable, self powered
	0x00, // port disable, bus powered
	0x01, // max power, self powered
	0x32, // max power, bus powered
	0x01, // hub controller max current, self powered
	0x32, // hub controller max current, bus powered
	0x32, // power-on time
}

// DefaultSettings returns a copy of the factory register image.
func DefaultSettings() []byte {
	settings := defaultSettings
	return settings[:]
}

// STATUS register

type attachState uint8

const (
	ATTACH_DISABLE attachState = 0x00
	ATTACH_ENABLE  attachState = 0x01
)

type resetState uint8

const (
	RESET_DISABLE resetState = 0x00
	RESET_ENABLE  resetState = 0x02
)

type interfacePower uint8

const (
	INTF_POWER_UP   interfacePower = 0x00
	INTF_POWER_DOWN interfacePower = 0x04
)

const (
	attachBit uint8 = 0
)

type Status struct {
	attach    attachState
	reset     resetState
	powerDown interfacePower
}

func (obj *Status) GetAddress() hal.RegAddress {
	return STATUS
}

func (obj *Status) GetValue() uint8 {
	return uint8(obj.attach) | uint8(obj.reset) | uint8(obj.powerDown)
}

func (obj *Status) SetValue(value uint8) {
	obj.attach = attachState(value & 0x01)
	obj.reset = resetState(value & 0x02)
	obj.powerDown = interfacePower(value & 0x04)
}

var _ hal.Register = (*Status)(nil)

// Attached reports whether USB_ATTACH is set.
func (obj *Status) Attached() bool {
	return obj.attach == ATTACH_ENABLE
}

// Resetting reports whether the RESET bit is set.
func (obj *Status) Resetting() bool {
	return obj.reset == RESET_ENABLE
}

// PoweredDown reports whether the SMBus interface power down bit is set.
func (obj *Status) PoweredDown() bool {
	return obj.powerDown == INTF_POWER_DOWN
}
