package trigger

import (
	"encoding/binary"
	"hash/fnv"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Ripple timing in seconds.
const (
	RippleLifetime  = 5.0
	RippleJitterMax = 3.0
)

// Circle is a filled circle in image-pixel coordinates.
type Circle struct {
	X, Y   float64
	Radius float64
	Color  color.RGBA
}

// Renderer accepts draw primitives.
type Renderer interface {
	DrawCircle(c Circle)
}

var thresholdColor = color.RGBA{R: 180, G: 180, B: 180, A: 64}

// Render draws the trigger as of now. It does not modify the trigger.
func (t *ThresholdTrigger) Render(r Renderer, now float64) {
	RenderState(r, t.Snapshot(), now)
}

// RenderState draws a snapshot: the threshold boundary, the current motion
// and, for a while after each note starts, a ripple fading out to white.
func RenderState(r Renderer, s State, now float64) {
	cx := float64(s.Region.Min.X) + float64(s.Region.Dx())/2
	cy := float64(s.Region.Min.Y) + float64(s.Region.Dy())/2
	half := float64(min(s.Region.Dx(), s.Region.Dy())) / 2

	r.DrawCircle(Circle{X: cx, Y: cy, Radius: radius(s.Threshold * half), Color: thresholdColor})

	motion := MotionColor(s.PreviousMotion)
	r.DrawCircle(Circle{X: cx, Y: cy, Radius: radius(s.PreviousMotion * half), Color: motion})

	if !s.NoteStarted {
		return
	}
	lifetime := RippleLifetime + Jitter(s.Region)
	elapsed := now - s.NoteStartTime
	if elapsed < 0 || elapsed >= lifetime {
		return
	}
	u := clamp(elapsed/lifetime, 0, 1)
	r.DrawCircle(Circle{
		X:      cx,
		Y:      cy,
		Radius: radius(s.Threshold * half * (math.Pow(u, 0.25)*20 + 1)),
		Color:  RippleColor(motion, u),
	})
}

// MotionColor is the colour of the motion circle for a shaped motion value.
func MotionColor(m float64) color.RGBA {
	return color.RGBA{
		R: channel(m * 244),
		G: channel(m*10 + 30),
		B: channel(math.Max(0, math.Trunc((0.4-0.1*m)*43)) + 130),
		A: 255,
	}
}

// RippleColor blends base toward white and fades it as u runs from 0 to 1.
func RippleColor(base color.RGBA, u float64) color.RGBA {
	u = clamp(u, 0, 1)
	c := colorful.Color{R: float64(base.R) / 255, G: float64(base.G) / 255, B: float64(base.B) / 255}
	white := colorful.Color{R: 1, G: 1, B: 1}
	rr, gg, bb := c.BlendRgb(white, math.Pow(u*0.7+0.3, 0.6)).Clamped().RGB255()
	opacity := math.Pow(1-u, 3) * 0.4
	return color.RGBA{R: rr, G: gg, B: bb, A: channel(opacity * 255)}
}

// Jitter returns a lifetime extension in [0, RippleJitterMax) derived only
// from the region's coordinates, so neighbouring ripples do not fade in
// lockstep while every region always gets the same value.
func Jitter(region image.Rectangle) float64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range []int{region.Min.X, region.Min.Y, region.Max.X, region.Max.Y} {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}
	frac := float64(h.Sum64()>>11) / float64(1<<53)
	return frac * RippleJitterMax
}

func radius(r float64) float64 {
	if r < 0 || math.IsNaN(r) {
		return 0
	}
	return r
}

func channel(v float64) uint8 {
	return uint8(clamp(v, 0, 255))
}
