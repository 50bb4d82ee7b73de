// Package spool owns the print path: one worker runs transport sessions
// serially, pacing raster bands to the head's thermal limits, honoring
// cooperative cancellation and releasing the device on every exit.
package spool

import (
	"errors"
	"sync/atomic"

	"github.com/deskbuddy/printcore/adapter"
	"github.com/deskbuddy/printcore/escpos"
	"github.com/deskbuddy/printcore/raster"
)

// ErrBusy is returned when a job is submitted while another is running.
// Jobs are rejected, never queued.
var ErrBusy = errors.New("printer busy")

// Outcome is the terminal status of one print job.
type Outcome int

const (
	Success Outcome = iota

	// Cancelled is a normal outcome requested by the caller, not an error.
	Cancelled

	// DeviceUnavailable means the device could not be opened; the job never
	// started and the caller is responsible for re-discovery.
	DeviceUnavailable

	// SendFailed means a band's send failed after the single retry. Bands
	// already sent are not retracted.
	SendFailed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Cancelled:
		return "cancelled"
	case DeviceUnavailable:
		return "device unavailable"
	case SendFailed:
		return "send failed"
	default:
		return "unknown"
	}
}

// Result is reported after every job for an external status display.
type Result struct {
	Outcome Outcome
	Detail  string
}

// Flag is the cancellation signal shared between a requester and the worker.
// Any actor may Set it; the worker polls it between bands and clears it
// during job teardown so it cannot leak into the next job.
type Flag struct {
	set atomic.Bool
}

// Set requests cancellation of the job polling this flag.
func (f *Flag) Set() {
	f.set.Store(true)
}

// Clear resets the flag.
func (f *Flag) Clear() {
	f.set.Store(false)
}

// IsSet reports whether cancellation was requested.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}

// Job is one unit of print work. It is consumed entirely by a single
// transport session and never persisted.
type Job struct {
	Raster *raster.Image
	Cancel *Flag
}

// Device is what a session drives for the duration of one job.
type Device interface {
	WriteBand(b raster.Band) error
	Feed() error
	Close() error
}

// OpenFunc opens and initializes the device behind a target.
type OpenFunc func(t adapter.Target) (Device, error)

// OpenPrinter is the production OpenFunc: it opens the target's transport and
// runs head initialization with the target's heat time.
func OpenPrinter(t adapter.Target) (Device, error) {
	raw, err := adapter.Open(t)
	if err != nil {
		return nil, err
	}
	drv := escpos.NewDriver(raw)
	if err := drv.Initialize(t.HeatTime); err != nil {
		raw.Close()
		return nil, err
	}
	return &printerDevice{drv: drv, raw: raw}, nil
}

type printerDevice struct {
	drv *escpos.Driver
	raw adapter.Device
}

func (p *printerDevice) WriteBand(b raster.Band) error { return p.drv.WriteBand(b) }
func (p *printerDevice) Feed() error                   { return p.drv.Feed() }
func (p *printerDevice) Close() error                  { return p.raw.Close() }
