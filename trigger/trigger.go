// Package trigger turns motion inside one region of a difference image into a
// single MIDI note. The note starts when the shaped motion crosses the
// threshold upwards and stops when it falls back below.
package trigger

import (
	"fmt"
	"image"

	"go-motionmidi/debug"
	"go-motionmidi/frame"
)

// DefaultThreshold is the shaped motion level above which a note sounds.
const DefaultThreshold = 0.2

// Sink receives note messages. A note-off is a note-on with velocity 0.
// Delivery is fire and forget.
type Sink interface {
	SendNoteOn(channel, pitch, velocity uint8)
}

// ThresholdTrigger plays one note for one region of the frame.
// It is not safe for concurrent use.
type ThresholdTrigger struct {
	sink      Sink
	clock     Clock
	pitch     uint8
	channel   uint8
	region    image.Rectangle
	threshold float64

	previousMotion float64
	level          float64
	noteIsPlaying  bool
	noteStarted    bool
	noteStartTime  float64
	noteVelocity   float64
}

// Option configures a ThresholdTrigger at construction.
type Option func(*ThresholdTrigger)

// WithThreshold overrides DefaultThreshold. Must lie in (0, 1).
func WithThreshold(threshold float64) Option {
	return func(t *ThresholdTrigger) {
		t.threshold = threshold
	}
}

// WithChannel sets the 0-based MIDI channel used for every message.
func WithChannel(channel uint8) Option {
	return func(t *ThresholdTrigger) {
		t.channel = channel
	}
}

// WithClock sets the time source used to stamp note starts.
func WithClock(c Clock) Option {
	return func(t *ThresholdTrigger) {
		t.clock = c
	}
}

// New creates a trigger for pitch watching region. The sink is not owned and
// must outlive the trigger.
func New(sink Sink, pitch uint8, region image.Rectangle, opts ...Option) *ThresholdTrigger {
	if sink == nil {
		panic("trigger: nil MIDI sink")
	}
	if region.Empty() {
		panic(fmt.Sprintf("trigger: empty region %v", region))
	}
	if pitch > 127 {
		panic(fmt.Sprintf("trigger: pitch %d out of MIDI range", pitch))
	}
	t := &ThresholdTrigger{
		sink:      sink,
		pitch:     pitch,
		region:    region,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.clock == nil {
		t.clock = NewWallClock()
	}
	if t.threshold <= 0 || t.threshold >= 1 {
		panic(fmt.Sprintf("trigger: threshold %v outside (0, 1)", t.threshold))
	}
	if t.channel > 15 {
		panic(fmt.Sprintf("trigger: channel %d out of MIDI range", t.channel))
	}
	return t
}

func (t *ThresholdTrigger) Pitch() uint8            { return t.pitch }
func (t *ThresholdTrigger) Channel() uint8          { return t.channel }
func (t *ThresholdTrigger) Region() image.Rectangle { return t.region }
func (t *ThresholdTrigger) Threshold() float64      { return t.threshold }
func (t *ThresholdTrigger) PreviousMotion() float64 { return t.previousMotion }
func (t *ThresholdTrigger) NoteIsPlaying() bool     { return t.noteIsPlaying }

// Motion samples the region of img and returns the shaped motion in [0, 1].
func (t *ThresholdTrigger) Motion(img frame.DifferenceImage) float64 {
	if !t.region.In(img.Bounds()) {
		panic(fmt.Sprintf("trigger: region %v outside image bounds %v", t.region, img.Bounds()))
	}
	means := img.ChannelMeans(t.region)
	overall := (means[0] + means[1] + means[2]) / 3
	return Shape(overall / 255)
}

// Update processes the next difference image.
func (t *ThresholdTrigger) Update(img frame.DifferenceImage) {
	t.Feed(t.Motion(img))
}

// Feed runs edge detection on an already shaped motion value.
func (t *ThresholdTrigger) Feed(shaped float64) {
	shaped = clamp(shaped, 0, 1)

	available := 1 - t.threshold
	aboveNow := (shaped - t.threshold) / available
	abovePrev := (t.previousMotion - t.threshold) / available
	t.level = shaped / available

	switch {
	case aboveNow > 0 && abovePrev <= 0 && !t.noteIsPlaying:
		// The velocity range is the same span used for normalising, so the
		// velocity is the normalised amount above threshold.
		velocity := clamp(aboveNow, 0, 1)
		vel := MIDIVelocity(velocity)
		t.sink.SendNoteOn(t.channel, t.pitch, vel)
		t.noteIsPlaying = true
		t.noteStarted = true
		t.noteStartTime = t.clock.Now()
		t.noteVelocity = velocity
		debug.Log("trigger", "note on pitch=%d ch=%d vel=%d motion=%.3f", t.pitch, t.channel, vel, shaped)

	case aboveNow < 0 && t.noteIsPlaying:
		t.noteOff()
		debug.Log("trigger", "note off pitch=%d ch=%d motion=%.3f", t.pitch, t.channel, shaped)
	}

	t.previousMotion = shaped
}

// Flush stops a sounding note. Calling it when nothing plays does nothing.
func (t *ThresholdTrigger) Flush() {
	if !t.noteIsPlaying {
		return
	}
	t.noteOff()
	debug.Log("trigger", "flush pitch=%d ch=%d", t.pitch, t.channel)
}

// Close flushes the trigger. Owners must call it during teardown so no note
// is left sounding.
func (t *ThresholdTrigger) Close() error {
	t.Flush()
	return nil
}

func (t *ThresholdTrigger) noteOff() {
	t.sink.SendNoteOn(t.channel, t.pitch, 0)
	t.noteIsPlaying = false
}

// State is an immutable snapshot of everything rendering needs.
type State struct {
	Region         image.Rectangle
	Pitch          uint8
	Threshold      float64
	PreviousMotion float64
	Level          float64
	NoteIsPlaying  bool
	NoteStarted    bool
	NoteStartTime  float64
	NoteVelocity   float64
}

func (t *ThresholdTrigger) Snapshot() State {
	return State{
		Region:         t.region,
		Pitch:          t.pitch,
		Threshold:      t.threshold,
		PreviousMotion: t.previousMotion,
		Level:          t.level,
		NoteIsPlaying:  t.noteIsPlaying,
		NoteStarted:    t.noteStarted,
		NoteStartTime:  t.noteStartTime,
		NoteVelocity:   t.noteVelocity,
	}
}
