package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialInitialState(t *testing.T) {
	dev := NewSerial("/dev/ttyUSB0", 19200)

	assert.False(t, dev.IsOpen())
	assert.Equal(t, "/dev/ttyUSB0", dev.Port())
}

func TestSerialGuardsUnopenedDevice(t *testing.T) {
	dev := NewSerial("/dev/ttyUSB0", 19200)

	_, err := dev.Write([]byte{0x1B, 0x40})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not open")

	_, err = dev.Read(make([]byte, 1))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not open")

	// Closing an unopened device is a no-op.
	assert.NoError(t, dev.Close())
}

func TestSerialOpenMissingPort(t *testing.T) {
	dev := NewSerial("/dev/printcore-nonexistent", 19200)

	err := dev.Open()
	assert.Error(t, err)
	assert.False(t, dev.IsOpen())
}

func TestSerialOpenRealPort(t *testing.T) {
	ports, err := ListPorts()
	if err != nil || len(ports) == 0 {
		t.Skip("No serial ports found, skipping test")
	}

	dev := NewSerial(ports[0], 19200)
	if err := dev.Open(); err != nil {
		t.Skipf("Port %s not openable, skipping test", ports[0])
	}
	defer dev.Close()

	assert.True(t, dev.IsOpen())

	err = dev.Open()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already open")

	require.NoError(t, dev.Close())
	assert.False(t, dev.IsOpen())
}
