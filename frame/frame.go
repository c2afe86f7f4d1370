// Package frame describes difference images: per-pixel change between two
// consecutive video frames, used as a proxy for motion.
package frame

import (
	"fmt"
	"image"
)

// DifferenceImage is a rectangular grid of pixels with three channels in
// [0, 255]. Triggers only ever read axis-aligned sub-rectangles of it.
type DifferenceImage interface {
	Bounds() image.Rectangle

	// ChannelMeans returns the arithmetic mean of each channel over r.
	// r must lie within Bounds.
	ChannelMeans(r image.Rectangle) [3]float64
}

// RGB is an in-memory difference image, 3 bytes per pixel.
type RGB struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewRGB allocates a black image covering r.
func NewRGB(r image.Rectangle) *RGB {
	w, h := r.Dx(), r.Dy()
	return &RGB{
		Pix:    make([]uint8, 3*w*h),
		Stride: 3 * w,
		Rect:   r,
	}
}

func (p *RGB) Bounds() image.Rectangle {
	return p.Rect
}

func (p *RGB) offset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

// At returns the three channel values at (x, y).
func (p *RGB) At(x, y int) [3]uint8 {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return [3]uint8{}
	}
	i := p.offset(x, y)
	return [3]uint8{p.Pix[i], p.Pix[i+1], p.Pix[i+2]}
}

// Set writes the three channel values at (x, y). Out of range writes are ignored.
func (p *RGB) Set(x, y int, c [3]uint8) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}
	i := p.offset(x, y)
	p.Pix[i], p.Pix[i+1], p.Pix[i+2] = c[0], c[1], c[2]
}

// Fill sets every pixel inside r (clipped to the image) to c.
func (p *RGB) Fill(r image.Rectangle, c [3]uint8) {
	r = r.Intersect(p.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p.Set(x, y, c)
		}
	}
}

func (p *RGB) ChannelMeans(r image.Rectangle) [3]float64 {
	if r.Empty() || !r.In(p.Rect) {
		panic(fmt.Sprintf("frame: region %v outside image bounds %v", r, p.Rect))
	}
	var sum [3]uint64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := p.offset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			sum[0] += uint64(p.Pix[i])
			sum[1] += uint64(p.Pix[i+1])
			sum[2] += uint64(p.Pix[i+2])
			i += 3
		}
	}
	n := float64(r.Dx() * r.Dy())
	return [3]float64{
		float64(sum[0]) / n,
		float64(sum[1]) / n,
		float64(sum[2]) / n,
	}
}

// Diff returns |a - b| per channel. Both images must have the same bounds.
func Diff(a, b image.Image) (*RGB, error) {
	if a.Bounds() != b.Bounds() {
		return nil, fmt.Errorf("frame: bounds mismatch %v vs %v", a.Bounds(), b.Bounds())
	}
	r := a.Bounds()
	out := NewRGB(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			ca := rgb8(a, x, y)
			cb := rgb8(b, x, y)
			out.Set(x, y, [3]uint8{absDiff(ca[0], cb[0]), absDiff(ca[1], cb[1]), absDiff(ca[2], cb[2])})
		}
	}
	return out, nil
}

func rgb8(img image.Image, x, y int) [3]uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
