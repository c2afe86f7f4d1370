package tui

import (
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go-motionmidi/frame"
	"go-motionmidi/instrument"
	"go-motionmidi/midi"
	"go-motionmidi/theme"
)

type note struct{ channel, pitch, velocity uint8 }

type recordingSink struct{ notes []note }

func (s *recordingSink) SendNoteOn(channel, pitch, velocity uint8) {
	s.notes = append(s.notes, note{channel, pitch, velocity})
}

type fakeClock struct{ t float64 }

func (c *fakeClock) Now() float64 { return c.t }

// scriptedSource plays back a list of frames, then repeats the last one.
type scriptedSource struct {
	frames []*frame.RGB
	err    error
}

func (s *scriptedSource) Next() (frame.DifferenceImage, error) {
	if s.err != nil {
		return nil, s.err
	}
	f := s.frames[0]
	if len(s.frames) > 1 {
		s.frames = s.frames[1:]
	}
	return f, nil
}

var size = image.Pt(40, 20)

func newTestModel(t *testing.T, frames ...*frame.RGB) (Model, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	clock := &fakeClock{t: 1}
	layout := instrument.Layout{Rows: 1, Cols: 2, BasePitch: 60, Scale: "major", Threshold: 0.2}
	inst, err := instrument.New(sink, size, layout, clock)
	if err != nil {
		t.Fatalf("instrument.New: %v", err)
	}
	m := NewModel(inst, &scriptedSource{frames: frames}, size, 30, theme.New(theme.Plasma), clock)
	return m, sink
}

func movingFrame() *frame.RGB {
	img := frame.NewRGB(image.Rectangle{Max: size})
	img.Fill(image.Rect(0, 0, 20, 20), [3]uint8{200, 200, 200})
	return img
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestTickDrivesInstrument(t *testing.T) {
	m, sink := newTestModel(t, movingFrame())

	m, cmd := update(t, m, TickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("expected next tick to be scheduled")
	}
	if len(sink.notes) != 1 || sink.notes[0].pitch != 60 {
		t.Fatalf("expected note 60 on, got %v", sink.notes)
	}
	if view := m.View(); !strings.Contains(view, "C4") || !strings.Contains(view, "notes:1") {
		t.Fatalf("expected view to show the sounding note, got %q", view)
	}
}

func TestQuitFlushes(t *testing.T) {
	m, sink := newTestModel(t, movingFrame())
	m, _ = update(t, m, TickMsg(time.Now()))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.Quit")
	}
	if len(sink.notes) != 2 || sink.notes[1].velocity != 0 {
		t.Fatalf("expected note-off on quit, got %v", sink.notes)
	}
	if m.View() != "" {
		t.Fatal("expected empty view after quit")
	}
}

func TestPauseStopsNotesAndFrames(t *testing.T) {
	still := frame.NewRGB(image.Rectangle{Max: size})
	m, sink := newTestModel(t, movingFrame(), still)
	m, _ = update(t, m, TickMsg(time.Now()))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if len(sink.notes) != 2 || sink.notes[1].velocity != 0 {
		t.Fatalf("expected note-off on pause, got %v", sink.notes)
	}

	m, _ = update(t, m, TickMsg(time.Now()))
	if m.Instrument.Frames() != 1 {
		t.Fatalf("expected no frames while paused, got %d", m.Instrument.Frames())
	}
	if !strings.Contains(m.View(), "PAUSE") {
		t.Fatal("expected paused header")
	}
}

func TestPortDisconnectFlushes(t *testing.T) {
	m, sink := newTestModel(t, movingFrame())
	m, _ = update(t, m, TickMsg(time.Now()))

	m, _ = update(t, m, PortEventMsg(midi.PortEvent{Type: midi.PortDisconnected, Name: "USB Synth"}))
	if len(sink.notes) != 2 || sink.notes[1].velocity != 0 {
		t.Fatalf("expected note-off after port loss, got %v", sink.notes)
	}
	if !strings.Contains(m.View(), "lost USB Synth") {
		t.Fatal("expected status line for lost port")
	}
}

func TestFrameErrorShown(t *testing.T) {
	m, sink := newTestModel(t)
	m.Source = &scriptedSource{err: errors.New("camera unplugged")}

	m, _ = update(t, m, TickMsg(time.Now()))
	if len(sink.notes) != 0 {
		t.Fatalf("expected no notes, got %v", sink.notes)
	}
	if !strings.Contains(m.View(), "camera unplugged") {
		t.Fatal("expected frame error in view")
	}
}

func TestWindowResize(t *testing.T) {
	m, _ := newTestModel(t, movingFrame())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 50, Height: 30})
	cols, rows := m.canvas.Size()
	if cols != 50 || rows != 2*(30-chrome-2) {
		t.Fatalf("unexpected canvas size %dx%d", cols, rows)
	}
}
