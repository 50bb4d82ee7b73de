// Package escpos speaks the printer's command protocol: raster band commands,
// paper feed, head initialization and the status query. The rest of the core
// treats these commands as opaque.
package escpos

import (
	"errors"
	"fmt"

	"github.com/deskbuddy/printcore/raster"
)

// Heat configuration sent with ESC 7: max simultaneous head dots and the
// interval between strobes. Only the heat time varies per connection.
const (
	heatDots     = 11
	heatInterval = 40
)

// statusOnlineMask is the offline bit in the DLE EOT 1 status byte.
const statusOnlineMask = 0x08

// Transport is the byte stream the driver writes commands to.
type Transport interface {
	Write(data []byte) (int, error)
	Read(buf []byte) (int, error)
}

// Driver renders protocol commands onto a transport. It holds no state of its
// own; the caller owns the transport's lifecycle.
type Driver struct {
	t Transport
}

// NewDriver creates a driver over the given transport.
func NewDriver(t Transport) *Driver {
	return &Driver{t: t}
}

// Initialize resets the printer and applies the heat-time parameter.
func (d *Driver) Initialize(heatTime int) error {
	if _, err := d.t.Write([]byte{0x1B, 0x40}); err != nil { // ESC @
		return fmt.Errorf("init failed: %w", err)
	}
	// ESC 7 n1 n2 n3 (heating dots, heat time, heat interval)
	if _, err := d.t.Write([]byte{0x1B, 0x37, heatDots, byte(heatTime), heatInterval}); err != nil {
		return fmt.Errorf("heat config failed: %w", err)
	}
	return nil
}

// WriteBand sends one raster band as a GS v 0 command: header with the packed
// row width and band height, then the band's pixel rows.
func (d *Driver) WriteBand(b raster.Band) error {
	if b.Height < 1 || b.Width < 1 {
		return errors.New("empty band")
	}
	rb := b.RowBytes()
	cmd := make([]byte, 0, 8+len(b.Data))
	cmd = append(cmd,
		0x1D, 0x76, 0x30, // GS v 0
		0x00,                        // m: normal density
		byte(rb%256), byte(rb/256),  // xL xH: bytes per row
		byte(b.Height%256), byte(b.Height/256), // yL yH: rows
	)
	cmd = append(cmd, b.Data...)

	if _, err := d.t.Write(cmd); err != nil {
		return fmt.Errorf("band at row %d failed: %w", b.Offset, err)
	}
	return nil
}

// Feed advances the paper by one line.
func (d *Driver) Feed() error {
	if _, err := d.t.Write([]byte{0x1B, 0x64, 0x01}); err != nil { // ESC d 1
		return fmt.Errorf("feed failed: %w", err)
	}
	return nil
}

// Online queries printer status (DLE EOT 1) and reports whether the device
// answered and claims to be online. A silent device is an error, which lets
// discovery prefer ports that actually respond.
func (d *Driver) Online() (bool, error) {
	if _, err := d.t.Write([]byte{0x10, 0x04, 0x01}); err != nil {
		return false, fmt.Errorf("status query failed: %w", err)
	}
	buf := make([]byte, 1)
	n, err := d.t.Read(buf)
	if err != nil {
		return false, fmt.Errorf("status read failed: %w", err)
	}
	if n == 0 {
		return false, errors.New("no status response")
	}
	return buf[0]&statusOnlineMask == 0, nil
}
