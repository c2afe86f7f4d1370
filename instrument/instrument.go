// Package instrument lays a grid of threshold triggers over the camera frame
// and drives them together, one difference image at a time.
package instrument

import (
	"fmt"
	"image"

	"go-motionmidi/debug"
	"go-motionmidi/frame"
	"go-motionmidi/trigger"
)

// Layout describes the trigger grid
type Layout struct {
	Rows      int
	Cols      int
	BasePitch uint8
	Scale     string
	Threshold float64
	Channel   uint8 // 0-based
}

// Cell is one trigger slot of the grid
type Cell struct {
	Row, Col int
	Pitch    uint8
	Region   image.Rectangle
}

// Cells splits a w×h frame into rows×cols regions. Pitches ascend from the
// bottom-left cell, left to right then upwards.
func (l Layout) Cells(size image.Point) ([]Cell, error) {
	if l.Rows < 1 || l.Cols < 1 {
		return nil, fmt.Errorf("grid %dx%d needs at least one cell", l.Rows, l.Cols)
	}
	if size.X < l.Cols || size.Y < l.Rows {
		return nil, fmt.Errorf("frame %dx%d too small for a %dx%d grid", size.X, size.Y, l.Rows, l.Cols)
	}
	pitches, err := Pitches(l.Scale, l.BasePitch, l.Rows*l.Cols)
	if err != nil {
		return nil, err
	}

	cells := make([]Cell, 0, l.Rows*l.Cols)
	for row := l.Rows - 1; row >= 0; row-- {
		for col := 0; col < l.Cols; col++ {
			r := image.Rect(
				col*size.X/l.Cols, row*size.Y/l.Rows,
				(col+1)*size.X/l.Cols, (row+1)*size.Y/l.Rows,
			)
			cells = append(cells, Cell{
				Row:    row,
				Col:    col,
				Pitch:  pitches[len(cells)],
				Region: r,
			})
		}
	}
	return cells, nil
}

// Instrument owns a set of independent triggers sharing one sink.
// It is not safe for concurrent use.
type Instrument struct {
	layout   Layout
	cells    []Cell
	triggers []*trigger.ThresholdTrigger
	frames   int
}

// New builds one trigger per grid cell over a frame of the given size.
func New(sink trigger.Sink, size image.Point, layout Layout, clock trigger.Clock) (*Instrument, error) {
	cells, err := layout.Cells(size)
	if err != nil {
		return nil, err
	}
	if layout.Threshold <= 0 || layout.Threshold >= 1 {
		return nil, fmt.Errorf("threshold %v must lie in (0, 1)", layout.Threshold)
	}
	if layout.Channel > 15 {
		return nil, fmt.Errorf("channel %d out of MIDI range", layout.Channel)
	}

	opts := []trigger.Option{
		trigger.WithThreshold(layout.Threshold),
		trigger.WithChannel(layout.Channel),
	}
	if clock != nil {
		opts = append(opts, trigger.WithClock(clock))
	}

	inst := &Instrument{layout: layout, cells: cells}
	for _, c := range cells {
		inst.triggers = append(inst.triggers, trigger.New(sink, c.Pitch, c.Region, opts...))
	}
	debug.Log("instrument", "grid %dx%d scale=%s base=%d over %dx%d", layout.Rows, layout.Cols, layout.Scale, layout.BasePitch, size.X, size.Y)
	return inst, nil
}

func (i *Instrument) Layout() Layout                        { return i.layout }
func (i *Instrument) Cells() []Cell                         { return i.cells }
func (i *Instrument) Triggers() []*trigger.ThresholdTrigger { return i.triggers }
func (i *Instrument) Frames() int                           { return i.frames }

// Update feeds img to every trigger in turn.
func (i *Instrument) Update(img frame.DifferenceImage) {
	for _, t := range i.triggers {
		t.Update(img)
	}
	i.frames++
	debug.LogEvery(300, "instrument", "frames=%d playing=%d", i.frames, i.Playing())
}

// Playing counts sounding notes
func (i *Instrument) Playing() int {
	n := 0
	for _, t := range i.triggers {
		if t.NoteIsPlaying() {
			n++
		}
	}
	return n
}

// Render draws every trigger as of now.
func (i *Instrument) Render(r trigger.Renderer, now float64) {
	for _, t := range i.triggers {
		t.Render(r, now)
	}
}

// Snapshots returns the state of every trigger, in pitch order.
func (i *Instrument) Snapshots() []trigger.State {
	out := make([]trigger.State, len(i.triggers))
	for n, t := range i.triggers {
		out[n] = t.Snapshot()
	}
	return out
}

// Flush stops every sounding note.
func (i *Instrument) Flush() {
	for _, t := range i.triggers {
		t.Flush()
	}
}

// Close flushes all triggers.
func (i *Instrument) Close() error {
	for _, t := range i.triggers {
		if err := t.Close(); err != nil {
			return err
		}
	}
	return nil
}
