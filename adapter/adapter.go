// Package adapter provides byte-stream transports to thermal printer devices
// (serial and USB) and discovery of attached printers.
package adapter

import "fmt"

// Device is the interface for printer communication transports.
type Device interface {
	// Open opens the connection to the printer
	Open() error

	// Write sends data to the printer
	Write(data []byte) (int, error)

	// Read reads data from the printer
	Read(buf []byte) (int, error)

	// Close closes the connection to the printer
	Close() error

	// IsOpen returns whether the connection is open
	IsOpen() bool
}

// Kind identifies the transport a Target refers to.
type Kind int

const (
	KindSerial Kind = iota
	KindUSB
)

// Target identifies one discovered printer connection. It is a value handed
// from discovery to a transport session; the device may disappear between
// discovery and use, so opening a Target can fail at any time.
type Target struct {
	Kind Kind

	// Port is the serial device path. Empty for USB targets.
	Port string

	// Baud is the serial line rate. Ignored for USB targets.
	Baud int

	// HeatTime is the thermal head energize parameter passed to the printer
	// during initialization. Treated as opaque here.
	HeatTime int
}

func (t Target) String() string {
	if t.Kind == KindUSB {
		return "usb"
	}
	return t.Port
}

// Open creates the transport for the target and opens it.
func Open(t Target) (Device, error) {
	switch t.Kind {
	case KindSerial:
		dev := NewSerial(t.Port, t.Baud)
		if err := dev.Open(); err != nil {
			return nil, err
		}
		return dev, nil
	case KindUSB:
		dev, err := NewUSBAuto()
		if err != nil {
			return nil, err
		}
		if err := dev.Open(); err != nil {
			dev.Close()
			return nil, err
		}
		return dev, nil
	default:
		return nil, fmt.Errorf("unknown target kind %d", t.Kind)
	}
}
