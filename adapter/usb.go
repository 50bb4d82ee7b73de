package adapter

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/gousb"
)

// ifaceClassPrinter is the USB interface class code for printers.
// Reference: http://www.usb.org/developers/defined_class
const ifaceClassPrinter = 0x07

// USB is a Device over a USB printer-class interface, for units attached
// directly instead of through a serial bridge.
type USB struct {
	ctx    *gousb.Context
	device *gousb.Device
	iface  *gousb.Interface
	out    *gousb.OutEndpoint
	in     *gousb.InEndpoint
	isOpen bool
	mu     sync.Mutex
}

// NewUSB creates a USB device for a specific vendor/product pair, falling
// back to the first printer-class device when the pair is not found.
func NewUSB(vid, pid uint16) (*USB, error) {
	ctx := gousb.NewContext()

	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil || device == nil {
		devices := findPrinters(ctx)
		if len(devices) == 0 {
			ctx.Close()
			return nil, errors.New("cannot find printer")
		}
		device = devices[0]
	}
	return &USB{ctx: ctx, device: device}, nil
}

// NewUSBAuto creates a USB device for the first printer-class device found.
func NewUSBAuto() (*USB, error) {
	ctx := gousb.NewContext()

	devices := findPrinters(ctx)
	if len(devices) == 0 {
		ctx.Close()
		return nil, errors.New("cannot find printer")
	}
	return &USB{ctx: ctx, device: devices[0]}, nil
}

// isPrinter reports whether a USB device exposes a printer-class interface.
func isPrinter(dev *gousb.Device) bool {
	if dev == nil {
		return false
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		return false
	}
	cfg, err := dev.Config(cfgNum)
	if err != nil {
		return false
	}
	defer cfg.Close()

	for _, iface := range cfg.Desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == ifaceClassPrinter {
				return true
			}
		}
	}
	return false
}

// findPrinters returns all attached printer-class USB devices.
func findPrinters(ctx *gousb.Context) []*gousb.Device {
	var printers []*gousb.Device

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true
	})
	if err != nil {
		return printers
	}

	for _, dev := range devices {
		if isPrinter(dev) {
			printers = append(printers, dev)
		} else {
			dev.Close()
		}
	}
	return printers
}

// HasPrinter reports whether at least one printer-class USB device is
// attached, without keeping anything open.
func HasPrinter() bool {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devices := findPrinters(ctx)
	for _, dev := range devices {
		dev.Close()
	}
	return len(devices) > 0
}

// Open claims the printer interface and resolves its endpoints.
func (u *USB) Open() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.isOpen {
		return errors.New("device already open")
	}
	if u.device == nil {
		return errors.New("device not found")
	}

	if runtime.GOOS == "linux" {
		u.device.SetAutoDetach(true)
	}

	cfgNum, err := u.device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}
	cfg, err := u.device.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	defer cfg.Close()

	ifaceNum := -1
	for _, iface := range cfg.Desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == ifaceClassPrinter {
				ifaceNum = iface.Number
				break
			}
		}
		if ifaceNum >= 0 {
			break
		}
	}
	if ifaceNum < 0 {
		return errors.New("no printer interface found")
	}

	iface, err := cfg.Interface(ifaceNum, 0)
	if err != nil {
		return fmt.Errorf("failed to claim interface: %w", err)
	}
	u.iface = iface

	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.Direction == gousb.EndpointDirectionOut && u.out == nil {
			if ep, err := iface.OutEndpoint(epDesc.Number); err == nil {
				u.out = ep
			}
		}
		if epDesc.Direction == gousb.EndpointDirectionIn && u.in == nil {
			if ep, err := iface.InEndpoint(epDesc.Number); err == nil {
				u.in = ep
			}
		}
	}
	if u.out == nil {
		iface.Close()
		u.iface = nil
		return errors.New("cannot find output endpoint from printer")
	}

	u.isOpen = true
	return nil
}

// Write sends data to the printer.
func (u *USB) Write(data []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.isOpen {
		return 0, errors.New("device not open")
	}
	n, err := u.out.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

// Read reads data from the printer. Many printers have no input endpoint.
func (u *USB) Read(buf []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.isOpen {
		return 0, errors.New("device not open")
	}
	if u.in == nil {
		return 0, errors.New("input endpoint not available")
	}
	n, err := u.in.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}
	return n, nil
}

// Close releases the interface and the underlying USB context.
func (u *USB) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	var errs []error

	if u.iface != nil {
		u.iface.Close()
		u.iface = nil
	}
	if u.device != nil {
		if err := u.device.Close(); err != nil {
			errs = append(errs, err)
		}
		u.device = nil
	}
	if u.ctx != nil {
		if err := u.ctx.Close(); err != nil {
			errs = append(errs, err)
		}
		u.ctx = nil
	}

	u.isOpen = false
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// IsOpen returns whether the device is open.
func (u *USB) IsOpen() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.isOpen
}
