package adapter

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDiscoverer(ports []string, probes map[string]ProbeResult, usb bool) *Discoverer {
	d := NewDiscoverer(19200, 110, zerolog.Nop())
	d.listPorts = func() ([]string, error) { return ports, nil }
	d.probe = func(port string) ProbeResult { return probes[port] }
	d.scanUSB = func() bool { return usb }
	return d
}

func TestDiscoverNoDevices(t *testing.T) {
	d := testDiscoverer(nil, nil, false)

	_, found := d.Discover()
	assert.False(t, found, "no printer attached is a normal outcome")
}

func TestDiscoverSingleRespondingPort(t *testing.T) {
	d := testDiscoverer(
		[]string{"/dev/ttyUSB0"},
		map[string]ProbeResult{"/dev/ttyUSB0": {Opened: true, Identified: true}},
		false,
	)

	target, found := d.Discover()
	require.True(t, found)
	assert.Equal(t, KindSerial, target.Kind)
	assert.Equal(t, "/dev/ttyUSB0", target.Port)
	assert.Equal(t, 19200, target.Baud)
	assert.Equal(t, 110, target.HeatTime)
}

func TestDiscoverSkipsFailingPorts(t *testing.T) {
	d := testDiscoverer(
		[]string{"/dev/ttyS0", "/dev/ttyS1", "/dev/ttyUSB0"},
		map[string]ProbeResult{
			"/dev/ttyS0":   {},
			"/dev/ttyS1":   {},
			"/dev/ttyUSB0": {Opened: true, Identified: true},
		},
		false,
	)

	target, found := d.Discover()
	require.True(t, found)
	assert.Equal(t, "/dev/ttyUSB0", target.Port)
}

func TestDiscoverPrefersIdentifiedPort(t *testing.T) {
	d := testDiscoverer(
		[]string{"/dev/ttyS0", "/dev/ttyUSB0"},
		map[string]ProbeResult{
			"/dev/ttyS0":   {Opened: true},
			"/dev/ttyUSB0": {Opened: true, Identified: true},
		},
		false,
	)

	target, found := d.Discover()
	require.True(t, found)
	assert.Equal(t, "/dev/ttyUSB0", target.Port, "an identified port beats one that merely opens")
}

func TestDiscoverAcceptsSilentPort(t *testing.T) {
	d := testDiscoverer(
		[]string{"/dev/ttyS0"},
		map[string]ProbeResult{"/dev/ttyS0": {Opened: true}},
		false,
	)

	target, found := d.Discover()
	require.True(t, found)
	assert.Equal(t, "/dev/ttyS0", target.Port, "a port that opens is accepted when nothing identifies")
}

func TestDiscoverUSBFallback(t *testing.T) {
	d := testDiscoverer(nil, nil, true)

	target, found := d.Discover()
	require.True(t, found)
	assert.Equal(t, KindUSB, target.Kind)
	assert.Equal(t, 110, target.HeatTime)
}

func TestDiscoverPortListFailure(t *testing.T) {
	d := testDiscoverer(nil, nil, false)
	d.listPorts = func() ([]string, error) { return nil, errors.New("enumeration failed") }

	_, found := d.Discover()
	assert.False(t, found, "enumeration failure degrades to no printer, not a crash")
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "/dev/ttyUSB0", Target{Kind: KindSerial, Port: "/dev/ttyUSB0"}.String())
	assert.Equal(t, "usb", Target{Kind: KindUSB}.String())
}
