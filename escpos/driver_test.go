package escpos

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskbuddy/printcore/raster"
)

// fakeTransport records writes and serves a canned status byte.
type fakeTransport struct {
	writes   [][]byte
	writeErr error
	status   byte
	readN    int
	readErr  error
}

func (f *fakeTransport) Write(data []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	f.writes = append(f.writes, buf)
	return len(data), nil
}

func (f *fakeTransport) Read(buf []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if f.readN > 0 && len(buf) > 0 {
		buf[0] = f.status
	}
	return f.readN, nil
}

func TestInitialize(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDriver(ft)

	require.NoError(t, d.Initialize(110))
	require.Len(t, ft.writes, 2)
	assert.Equal(t, []byte{0x1B, 0x40}, ft.writes[0], "ESC @ reset")
	assert.Equal(t, []byte{0x1B, 0x37, heatDots, 110, heatInterval}, ft.writes[1], "ESC 7 heat config")
}

func TestWriteBandHeader(t *testing.T) {
	img, err := raster.New(16, 45)
	require.NoError(t, err)
	bands, err := raster.Slice(img, 20)
	require.NoError(t, err)

	ft := &fakeTransport{}
	d := NewDriver(ft)
	require.NoError(t, d.WriteBand(bands[0]))

	require.Len(t, ft.writes, 1)
	cmd := ft.writes[0]
	require.GreaterOrEqual(t, len(cmd), 8)
	assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00}, cmd[:4], "GS v 0 header")
	assert.Equal(t, byte(2), cmd[4], "xL: two bytes per 16-dot row")
	assert.Equal(t, byte(0), cmd[5], "xH")
	assert.Equal(t, byte(20), cmd[6], "yL: band height")
	assert.Equal(t, byte(0), cmd[7], "yH")
	assert.Equal(t, bands[0].Data, cmd[8:], "payload is the band's packed rows")
}

func TestWriteBandShortLastBand(t *testing.T) {
	img, err := raster.New(16, 45)
	require.NoError(t, err)
	bands, err := raster.Slice(img, 20)
	require.NoError(t, err)

	ft := &fakeTransport{}
	d := NewDriver(ft)
	require.NoError(t, d.WriteBand(bands[2]))

	cmd := ft.writes[0]
	assert.Equal(t, byte(5), cmd[6], "last band is 5 rows")
	assert.Len(t, cmd, 8+5*2)
}

func TestWriteBandPropagatesTransportError(t *testing.T) {
	img, err := raster.New(16, 8)
	require.NoError(t, err)
	bands, err := raster.Slice(img, 8)
	require.NoError(t, err)

	d := NewDriver(&fakeTransport{writeErr: errors.New("port gone")})
	err = d.WriteBand(bands[0])
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "port gone")
}

func TestFeed(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDriver(ft)

	require.NoError(t, d.Feed())
	require.Len(t, ft.writes, 1)
	assert.Equal(t, []byte{0x1B, 0x64, 0x01}, ft.writes[0], "ESC d 1")
}

func TestOnline(t *testing.T) {
	t.Run("DeviceAnswersOnline", func(t *testing.T) {
		d := NewDriver(&fakeTransport{status: 0x00, readN: 1})
		online, err := d.Online()
		require.NoError(t, err)
		assert.True(t, online)
	})

	t.Run("DeviceAnswersOffline", func(t *testing.T) {
		d := NewDriver(&fakeTransport{status: 0x08, readN: 1})
		online, err := d.Online()
		require.NoError(t, err)
		assert.False(t, online)
	})

	t.Run("SilentDevice", func(t *testing.T) {
		d := NewDriver(&fakeTransport{readN: 0})
		_, err := d.Online()
		assert.Error(t, err)
	})

	t.Run("ReadError", func(t *testing.T) {
		d := NewDriver(&fakeTransport{readErr: errors.New("timeout")})
		_, err := d.Online()
		assert.Error(t, err)
	})
}
