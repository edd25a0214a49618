package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/mbalug7/go-usb251x/pkg/buspirate"
	"github.com/mbalug7/go-usb251x/pkg/hal"
	"github.com/mbalug7/go-usb251x/pkg/periphbus"
	"github.com/mbalug7/go-usb251x/pkg/rpi"
	"github.com/mbalug7/go-usb251x/pkg/usb251x"
)

type options struct {
	transport string
	busNumber int
	periphBus string
	tty       string
	gpioChip  string
	resetPin  int
	address   uint
	profile   string
	attach    bool
	littleIDs bool
	logLevel  string
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVar(&opts.transport, "transport", "devfs", "bus transport: devfs, periph or buspirate")
	flag.IntVar(&opts.busNumber, "bus", 1, "i2c-dev bus number (devfs)")
	flag.StringVar(&opts.periphBus, "periph-bus", "", "periph.io bus name, empty for the first bus (periph)")
	flag.StringVar(&opts.tty, "tty", "/dev/ttyUSB0", "Bus Pirate serial port (buspirate)")
	flag.StringVar(&opts.gpioChip, "gpiochip", "gpiochip0", "GPIO chip owning the reset line (devfs)")
	flag.IntVar(&opts.resetPin, "reset-pin", -1, "GPIO offset wired to RESET_N, -1 when not wired (devfs)")
	flag.UintVar(&opts.address, "address", uint(usb251x.I2C_ADDRESS), "hub SMBus address")
	flag.StringVar(&opts.profile, "profile", "", "YAML hub profile; factory defaults when empty")
	flag.BoolVar(&opts.attach, "attach", false, "attach the hub after configuring it")
	flag.BoolVar(&opts.littleIDs, "le-ids", false, "read identifiers low byte first")
	flag.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	flag.Parse()
	return opts
}

func setupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	hal.SetLogLevel(lvl)
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	}))
	hal.SetLogger(logger)
	slog.SetDefault(logger)
	return nil
}

// openBus returns the bus and, when the transport drives RESET_N, its resetter.
func openBus(opts *options) (hal.BusCloser, hal.Resetter, error) {
	switch opts.transport {
	case "devfs":
		hw, err := rpi.NewHWHandler(opts.busNumber, opts.resetPin, opts.gpioChip)
		if err != nil {
			return nil, nil, err
		}
		if opts.resetPin < 0 {
			return hw, nil, nil
		}
		return hw, hw, nil
	case "periph":
		bus, err := periphbus.Open(opts.periphBus)
		return bus, nil, err
	case "buspirate":
		bus, err := buspirate.Open(opts.tty, buspirate.DefaultConfig)
		return bus, nil, err
	}
	return nil, nil, fmt.Errorf("unknown transport %q", opts.transport)
}

func loadProfile(opts *options) (*usb251x.Profile, error) {
	if opts.profile == "" {
		return &usb251x.Profile{Defaults: true, Attach: opts.attach}, nil
	}
	profile, err := usb251x.LoadProfile(opts.profile)
	if err != nil {
		return nil, err
	}
	profile.Attach = profile.Attach || opts.attach
	return profile, nil
}

func run(opts *options) error {
	bus, resetter, err := openBus(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			hal.LogWarn(hal.ComponentBus, "failed to close bus", "err", err)
		}
	}()

	if resetter != nil {
		if err := resetter.Reset(); err != nil {
			return err
		}
	}

	hubOpts := []usb251x.Option{usb251x.WithAddress(uint16(opts.address))}
	if opts.littleIDs {
		hubOpts = append(hubOpts, usb251x.WithIDByteOrder(binary.LittleEndian))
	}
	hub := usb251x.NewHub(hubOpts...)
	if err := hub.Open(bus); err != nil {
		return err
	}

	profile, err := loadProfile(opts)
	if err != nil {
		return err
	}
	// Open is the only connectivity check: identifiers written low byte first
	// make IsConnected report false afterwards.
	if err := profile.Apply(hub); err != nil {
		return err
	}
	hal.LogInfo(hal.ComponentHub, "hub configured"+hub.GetConfiguration())
	return nil
}

func main() {
	opts := parseFlags()
	if err := setupLogger(opts.logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		hal.LogError(hal.ComponentHub, "configuration failed", "err", err)
		os.Exit(1)
	}
}
