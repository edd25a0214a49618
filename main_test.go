package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfileDefaults(t *testing.T) {
	profile, err := loadProfile(&options{attach: true})
	if err != nil {
		t.Fatal(err)
	}
	if !profile.Defaults || !profile.Attach {
		t.Errorf("loadProfile() = %+v, want defaults and attach", profile)
	}
}

func TestLoadProfileAttachFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	if err := os.WriteFile(path, []byte("manufacturer: ACME\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	profile, err := loadProfile(&options{profile: path, attach: true})
	if err != nil {
		t.Fatal(err)
	}
	if profile.Defaults || !profile.Attach || *profile.Manufacturer != "ACME" {
		t.Errorf("loadProfile() = %+v", profile)
	}
}

func TestSetupLoggerRejectsLevel(t *testing.T) {
	if err := setupLogger("loud"); err == nil {
		t.Error("setupLogger() accepted an unknown level")
	}
}

func TestOpenBusUnknownTransport(t *testing.T) {
	if _, _, err := openBus(&options{transport: "usb"}); err == nil {
		t.Error("openBus() accepted an unknown transport")
	}
}
