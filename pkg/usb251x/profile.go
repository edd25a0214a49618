package usb251x

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mbalug7/go-usb251x/pkg/hal"
)

// Profile is a declarative hub configuration. Unset fields leave the hub
// registers untouched.
type Profile struct {
	Defaults     bool    `yaml:"defaults"`
	VendorID     *uint16 `yaml:"vendor_id,omitempty"`
	ProductID    *uint16 `yaml:"product_id,omitempty"`
	DeviceID     *uint16 `yaml:"device_id,omitempty"`
	LanguageID   *uint16 `yaml:"language_id,omitempty"`
	Manufacturer *string `yaml:"manufacturer,omitempty"`
	Product      *string `yaml:"product,omitempty"`
	Serial       *string `yaml:"serial,omitempty"`
	Attach       bool    `yaml:"attach"`
}

// ParseProfile decodes a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse hub profile: %w", err)
	}
	return &profile, nil
}

// LoadProfile reads and decodes the YAML profile at path.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hub profile '%s': %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read hub profile '%s': %w", path, err)
	}
	return ParseProfile(data)
}

// Apply writes the profile to hub. The default image goes first so explicit
// fields override it; attach goes last since it locks the configuration.
func (obj *Profile) Apply(hub *Hub) error {
	if obj.Defaults {
		if err := hub.ApplyDefaults(); err != nil {
			return err
		}
		hal.LogDebug(hal.ComponentConfig, "default settings written")
	}

	ids := []struct {
		name  string
		value *uint16
		set   func(uint16) error
	}{
		{"vendor id", obj.VendorID, hub.SetVendorID},
		{"product id", obj.ProductID, hub.SetProductID},
		{"device id", obj.DeviceID, hub.SetDeviceID},
		{"language id", obj.LanguageID, hub.SetLanguageID},
	}
	for _, id := range ids {
		if id.value == nil {
			continue
		}
		if err := id.set(*id.value); err != nil {
			return err
		}
		hal.LogDebug(hal.ComponentConfig, "id written", "field", id.name, "value", fmt.Sprintf("%#04x", *id.value))
	}

	strs := []struct {
		name  string
		value *string
		set   func(string) error
	}{
		{"manufacturer", obj.Manufacturer, hub.SetManufacturerString},
		{"product", obj.Product, hub.SetProductString},
		{"serial", obj.Serial, hub.SetSerialNumberString},
	}
	for _, s := range strs {
		if s.value == nil {
			continue
		}
		if err := s.set(*s.value); err != nil {
			return err
		}
		hal.LogDebug(hal.ComponentConfig, "string written", "field", s.name, "value", *s.value)
	}

	if obj.Attach {
		return hub.Attach()
	}
	return nil
}
