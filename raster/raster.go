// Package raster prepares images for a fixed-width thermal print head:
// resampling to the printer's dot width, 1-bit conversion and band slicing.
package raster

import (
	"fmt"
	"math/bits"
)

// Orientation selects how the finished raster is oriented on paper.
type Orientation int

const (
	// Normal prints the image top-down as supplied.
	Normal Orientation = iota

	// Rotated180 flips the whole raster for wall-mount (upside-down) units.
	Rotated180
)

// Image is a 1-bit-per-pixel bitmap at the printer's dot width.
// Pixels are packed row-major, MSB first; a set bit is an ink (black) dot.
// Padding bits at the end of a row are always zero.
type Image struct {
	Width  int
	Height int
	bits   []byte
}

// New allocates an all-white raster of the given dimensions.
func New(width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid raster dimensions %dx%d", width, height)
	}
	rowBytes := (width + 7) / 8
	return &Image{
		Width:  width,
		Height: height,
		bits:   make([]byte, rowBytes*height),
	}, nil
}

// RowBytes returns the packed byte width of one row.
func (m *Image) RowBytes() int {
	return (m.Width + 7) / 8
}

// Set marks the pixel at (x, y) as ink or blank.
func (m *Image) Set(x, y int, ink bool) {
	idx := y*m.RowBytes() + x/8
	mask := byte(0x80) >> uint(x%8)
	if ink {
		m.bits[idx] |= mask
	} else {
		m.bits[idx] &^= mask
	}
}

// Ink reports whether the pixel at (x, y) is an ink dot.
func (m *Image) Ink(x, y int) bool {
	return m.bits[y*m.RowBytes()+x/8]&(byte(0x80)>>uint(x%8)) != 0
}

// Row returns the packed bytes of row y. The slice aliases the raster.
func (m *Image) Row(y int) []byte {
	rb := m.RowBytes()
	return m.bits[y*rb : (y+1)*rb]
}

// Bytes returns the full packed pixel buffer. The slice aliases the raster.
func (m *Image) Bytes() []byte {
	return m.bits
}

// Rotate180 returns a new raster flipped in both axes, so the visual top of
// the page corresponds to the logical end of the pixel stream.
func (m *Image) Rotate180() *Image {
	out, _ := New(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Ink(x, y) {
				out.Set(m.Width-1-x, m.Height-1-y, true)
			}
		}
	}
	return out
}

// Band is a contiguous horizontal slice of a raster. Data aliases the parent
// raster's rows; bands from one Slice call are contiguous and non-overlapping.
type Band struct {
	Offset int
	Height int
	Width  int
	Data   []byte
}

// Slice partitions the raster into bands of at most maxHeight rows, top to
// bottom. All bands have height maxHeight except possibly the last. An image
// no taller than maxHeight yields exactly one band.
//
// Bounding band height bounds the worst-case command payload: sending a large
// image as a single command garbles output on the real device.
func Slice(m *Image, maxHeight int) ([]Band, error) {
	if maxHeight < 1 {
		return nil, fmt.Errorf("band height must be positive, got %d", maxHeight)
	}
	rb := m.RowBytes()
	bands := make([]Band, 0, (m.Height+maxHeight-1)/maxHeight)
	for y := 0; y < m.Height; y += maxHeight {
		h := maxHeight
		if y+h > m.Height {
			h = m.Height - y
		}
		bands = append(bands, Band{
			Offset: y,
			Height: h,
			Width:  m.Width,
			Data:   m.bits[y*rb : (y+h)*rb],
		})
	}
	return bands, nil
}

// Coverage returns the fraction of ink dots in the band, clamped to [0, 1].
func (b Band) Coverage() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	ink := 0
	for _, by := range b.Data {
		ink += bits.OnesCount8(by)
	}
	cov := float64(ink) / float64(b.Width*b.Height)
	if cov < 0 {
		return 0
	}
	if cov > 1 {
		return 1
	}
	return cov
}

// RowBytes returns the packed byte width of one band row.
func (b Band) RowBytes() int {
	return (b.Width + 7) / 8
}
