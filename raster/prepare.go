package raster

import (
	"image"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

// Prepare converts an arbitrary source image into a print-ready raster of
// exactly width dots: aspect-preserving Lanczos3 resample, grayscale
// conversion, Floyd-Steinberg error-diffusion to 1-bit, then an optional
// 180-degree rotation for wall-mount units. The source image is not mutated.
func Prepare(src image.Image, width int, o Orientation) (*Image, error) {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	height := int(math.Round(float64(srcH) * float64(width) / float64(srcW)))
	if height < 1 {
		height = 1
	}

	scaled := src
	if srcW != width || srcH != height {
		scaled = resize.Resize(uint(width), uint(height), src, resize.Lanczos3)
	}

	gray := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(gray, gray.Bounds(), scaled, scaled.Bounds().Min, draw.Src)

	out, err := dither(gray)
	if err != nil {
		return nil, err
	}
	if o == Rotated180 {
		out = out.Rotate180()
	}
	return out, nil
}

// dither converts a grayscale image to 1-bit with Floyd-Steinberg error
// diffusion, preserving perceived gradients on a binary output device.
func dither(gray *image.Gray) (*Image, error) {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	out, err := New(width, height)
	if err != nil {
		return nil, err
	}

	vals := make([]int, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			vals[y*width+x] = int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
		}
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			old := vals[y*width+x]
			quantized := 255
			if old < 128 {
				quantized = 0
				out.Set(x, y, true)
			}
			diff := old - quantized

			if x+1 < width {
				vals[y*width+x+1] += diff * 7 / 16
			}
			if y+1 < height {
				if x > 0 {
					vals[(y+1)*width+x-1] += diff * 3 / 16
				}
				vals[(y+1)*width+x] += diff * 5 / 16
				if x+1 < width {
					vals[(y+1)*width+x+1] += diff * 1 / 16
				}
			}
		}
	}
	return out, nil
}
