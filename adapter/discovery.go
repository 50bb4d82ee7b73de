package adapter

import (
	"github.com/rs/zerolog"

	"github.com/deskbuddy/printcore/escpos"
)

// ProbeResult reports what a candidate port did when probed.
type ProbeResult struct {
	// Opened means the port opened without error.
	Opened bool

	// Identified means the device behind the port answered the status query.
	// A port that opens but stays silent is still acceptable; an identified
	// port is preferred over it.
	Identified bool
}

// Discoverer finds an attached printer by probing candidate serial ports and,
// failing that, scanning for a USB printer-class device. Finding nothing is a
// normal outcome ("no printer attached"), not an error.
//
// Discovery opens its own short-lived probing handles, so it must not run
// while a transport session holds a device; callers gate it on the worker
// being idle.
type Discoverer struct {
	baud     int
	heatTime int
	log      zerolog.Logger

	// listPorts and probe are replaceable in tests.
	listPorts func() ([]string, error)
	probe     func(port string) ProbeResult
	scanUSB   func() bool
}

// NewDiscoverer creates a discoverer probing with the given line rate and
// default heat time.
func NewDiscoverer(baud, heatTime int, log zerolog.Logger) *Discoverer {
	d := &Discoverer{
		baud:     baud,
		heatTime: heatTime,
		log:      log,
		listPorts: ListPorts,
		scanUSB:   HasPrinter,
	}
	d.probe = d.probeSerial
	return d
}

// Discover returns the first responding printer target. The boolean is false
// when no candidate succeeds.
func (d *Discoverer) Discover() (Target, bool) {
	ports, err := d.listPorts()
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to list serial ports")
		ports = nil
	}

	fallback := ""
	for _, port := range ports {
		res := d.probe(port)
		switch {
		case res.Identified:
			d.log.Info().Str("port", port).Msg("printer identified")
			return d.serialTarget(port), true
		case res.Opened:
			d.log.Debug().Str("port", port).Msg("port opened but did not identify")
			if fallback == "" {
				fallback = port
			}
		default:
			d.log.Debug().Str("port", port).Msg("port did not open, skipping")
		}
	}
	if fallback != "" {
		d.log.Info().Str("port", fallback).Msg("using first openable port")
		return d.serialTarget(fallback), true
	}

	if d.scanUSB() {
		d.log.Info().Msg("USB printer found")
		return Target{Kind: KindUSB, HeatTime: d.heatTime}, true
	}

	d.log.Info().Msg("no printer attached")
	return Target{}, false
}

func (d *Discoverer) serialTarget(port string) Target {
	return Target{
		Kind:     KindSerial,
		Port:     port,
		Baud:     d.baud,
		HeatTime: d.heatTime,
	}
}

// probeSerial opens the port and asks for printer status. The handle is
// always released before returning.
func (d *Discoverer) probeSerial(port string) ProbeResult {
	dev := NewSerial(port, d.baud)
	if err := dev.Open(); err != nil {
		return ProbeResult{}
	}
	defer dev.Close()

	online, err := escpos.NewDriver(dev).Online()
	if err != nil || !online {
		return ProbeResult{Opened: true}
	}
	return ProbeResult{Opened: true, Identified: true}
}
