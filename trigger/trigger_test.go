package trigger

import (
	"image"
	"math"
	"testing"

	"go-motionmidi/frame"
)

type noteMsg struct {
	channel, pitch, velocity uint8
}

type recordingSink struct {
	msgs []noteMsg
}

func (s *recordingSink) SendNoteOn(channel, pitch, velocity uint8) {
	s.msgs = append(s.msgs, noteMsg{channel, pitch, velocity})
}

func (s *recordingSink) noteOns() int {
	n := 0
	for _, m := range s.msgs {
		if m.velocity > 0 {
			n++
		}
	}
	return n
}

func (s *recordingSink) noteOffs() int {
	return len(s.msgs) - s.noteOns()
}

type fakeClock struct{ t float64 }

func (c *fakeClock) Now() float64 { return c.t }

var testRegion = image.Rect(10, 10, 30, 30)

func newTestTrigger(sink Sink) *ThresholdTrigger {
	return New(sink, 60, testRegion, WithClock(&fakeClock{}), WithChannel(1))
}

func TestShapeEndpointsAndMonotonic(t *testing.T) {
	if got := Shape(0); got != 0 {
		t.Fatalf("expected Shape(0)=0, got %f", got)
	}
	if got := Shape(1); got != 1 {
		t.Fatalf("expected Shape(1)=1, got %f", got)
	}
	prev := Shape(0)
	for i := 1; i <= 1000; i++ {
		cur := Shape(float64(i) / 1000)
		if cur < prev {
			t.Fatalf("Shape decreased at %d: %f < %f", i, cur, prev)
		}
		prev = cur
	}
	// Small motion is exaggerated.
	if got := Shape(0.1); got <= 0.1 {
		t.Fatalf("expected Shape(0.1) > 0.1, got %f", got)
	}
}

func TestCrossingSequence(t *testing.T) {
	sink := &recordingSink{}
	tr := newTestTrigger(sink)

	tr.Feed(0.1)
	if len(sink.msgs) != 0 {
		t.Fatalf("expected no messages below threshold, got %v", sink.msgs)
	}

	tr.Feed(0.25)
	if sink.noteOns() != 1 || sink.noteOffs() != 0 {
		t.Fatalf("expected one note-on after upward crossing, got %v", sink.msgs)
	}
	if !tr.NoteIsPlaying() {
		t.Fatal("expected note to be playing")
	}

	tr.Feed(0.5)
	if len(sink.msgs) != 1 {
		t.Fatalf("expected no event while staying above threshold, got %v", sink.msgs)
	}

	tr.Feed(0.15)
	if sink.noteOns() != 1 || sink.noteOffs() != 1 {
		t.Fatalf("expected one note-off after downward crossing, got %v", sink.msgs)
	}
	off := sink.msgs[1]
	if off.velocity != 0 || off.pitch != 60 || off.channel != 1 {
		t.Fatalf("unexpected note-off %+v", off)
	}
	if tr.NoteIsPlaying() {
		t.Fatal("expected note to be stopped")
	}

	tr.Feed(0.05)
	if len(sink.msgs) != 2 {
		t.Fatalf("expected no event while staying below threshold, got %v", sink.msgs)
	}
}

func TestSameChannelForAllMessages(t *testing.T) {
	sink := &recordingSink{}
	tr := New(sink, 64, testRegion, WithClock(&fakeClock{}), WithChannel(9))
	tr.Feed(0.9)
	tr.Feed(0.0)
	tr.Feed(0.9)
	tr.Flush()
	for _, m := range sink.msgs {
		if m.channel != 9 || m.pitch != 64 {
			t.Fatalf("expected channel 9 pitch 64, got %+v", m)
		}
	}
	if len(sink.msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(sink.msgs))
	}
}

func TestVelocityMapping(t *testing.T) {
	sink := &recordingSink{}
	tr := newTestTrigger(sink)
	tr.Feed(1.0)
	if got := sink.msgs[0].velocity; got != 127 {
		t.Fatalf("expected velocity 127 at full motion, got %d", got)
	}

	sink = &recordingSink{}
	tr = newTestTrigger(sink)
	tr.Feed(DefaultThreshold + 1e-6)
	if len(sink.msgs) != 1 {
		t.Fatalf("expected a note-on just above threshold, got %v", sink.msgs)
	}
	if got := sink.msgs[0].velocity; got > 1 {
		t.Fatalf("expected velocity near 0 just above threshold, got %d", got)
	}

	sink = &recordingSink{}
	tr = newTestTrigger(sink)
	tr.Feed(0.6) // halfway through the range above 0.2
	if got := sink.msgs[0].velocity; got < 63 || got > 64 {
		t.Fatalf("expected velocity about 64 halfway, got %d", got)
	}
}

func TestMIDIVelocityClamps(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-1, 0},
		{0, 0},
		{0.5, 64},
		{1, 127},
		{2, 127},
	}
	for _, tc := range tests {
		if got := MIDIVelocity(tc.in); got != tc.want {
			t.Errorf("MIDIVelocity(%v): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestExactThresholdNeverTransitions(t *testing.T) {
	sink := &recordingSink{}
	tr := newTestTrigger(sink)

	tr.Feed(DefaultThreshold)
	if len(sink.msgs) != 0 {
		t.Fatalf("expected no note-on at exactly threshold, got %v", sink.msgs)
	}

	tr.Feed(0.5)
	tr.Feed(DefaultThreshold)
	if sink.noteOffs() != 0 {
		t.Fatalf("expected no note-off at exactly threshold, got %v", sink.msgs)
	}
	if !tr.NoteIsPlaying() {
		t.Fatal("expected note still playing at exactly threshold")
	}

	// Rising again from the threshold must not stack a second note-on.
	tr.Feed(0.5)
	if sink.noteOns() != 1 {
		t.Fatalf("expected a single note-on, got %v", sink.msgs)
	}
}

func TestFlushIdempotent(t *testing.T) {
	sink := &recordingSink{}
	tr := newTestTrigger(sink)

	tr.Flush()
	if len(sink.msgs) != 0 {
		t.Fatalf("expected flush with no note to be a no-op, got %v", sink.msgs)
	}

	tr.Feed(0.8)
	tr.Flush()
	if sink.noteOffs() != 1 {
		t.Fatalf("expected exactly one note-off from flush, got %v", sink.msgs)
	}
	tr.Flush()
	if sink.noteOffs() != 1 {
		t.Fatalf("expected second flush to send nothing, got %v", sink.msgs)
	}
	if tr.NoteIsPlaying() {
		t.Fatal("expected note stopped after flush")
	}
}

func TestCloseStopsPlayingNote(t *testing.T) {
	sink := &recordingSink{}
	tr := newTestTrigger(sink)
	tr.Feed(0.8)

	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sink.noteOffs() != 1 {
		t.Fatalf("expected exactly one note-off on close, got %v", sink.msgs)
	}
	last := sink.msgs[len(sink.msgs)-1]
	if last.velocity != 0 {
		t.Fatalf("expected last message to be a note-off, got %+v", last)
	}
}

func TestPreviousMotionIsUnnormalised(t *testing.T) {
	tr := newTestTrigger(&recordingSink{})
	if tr.PreviousMotion() != 0 {
		t.Fatalf("expected initial previous motion 0, got %f", tr.PreviousMotion())
	}
	tr.Feed(0.5)
	if tr.PreviousMotion() != 0.5 {
		t.Fatalf("expected previous motion 0.5, got %f", tr.PreviousMotion())
	}
	if got := tr.Snapshot().Level; math.Abs(got-0.625) > 1e-9 {
		t.Fatalf("expected level 0.625, got %f", got)
	}
}

func TestNoteStartRecorded(t *testing.T) {
	clock := &fakeClock{t: 12.5}
	tr := New(&recordingSink{}, 60, testRegion, WithClock(clock))
	tr.Feed(1.0)
	s := tr.Snapshot()
	if s.NoteStartTime != 12.5 {
		t.Fatalf("expected note start 12.5, got %f", s.NoteStartTime)
	}
	if s.NoteVelocity != 1 {
		t.Fatalf("expected note velocity 1, got %f", s.NoteVelocity)
	}
}

func TestUpdateSamplesOnlyRegion(t *testing.T) {
	img := frame.NewRGB(image.Rect(0, 0, 64, 48))
	img.Fill(img.Bounds(), [3]uint8{255, 255, 255})
	img.Fill(testRegion, [3]uint8{0, 0, 0})

	sink := &recordingSink{}
	tr := newTestTrigger(sink)
	tr.Update(img)
	if tr.PreviousMotion() != 0 {
		t.Fatalf("expected zero motion inside a black region, got %f", tr.PreviousMotion())
	}
	if len(sink.msgs) != 0 {
		t.Fatalf("expected no messages, got %v", sink.msgs)
	}

	img.Fill(img.Bounds(), [3]uint8{0, 0, 0})
	img.Fill(testRegion, [3]uint8{255, 255, 255})
	tr.Update(img)
	if tr.PreviousMotion() != 1 {
		t.Fatalf("expected full motion inside a white region, got %f", tr.PreviousMotion())
	}
	if len(sink.msgs) != 1 || sink.msgs[0].velocity != 127 {
		t.Fatalf("expected a full velocity note-on, got %v", sink.msgs)
	}
}

func TestUpdateAveragesChannels(t *testing.T) {
	img := frame.NewRGB(image.Rect(0, 0, 40, 40))
	img.Fill(testRegion, [3]uint8{255, 0, 0})

	tr := newTestTrigger(&recordingSink{})
	tr.Update(img)
	want := Shape(1.0 / 3)
	if math.Abs(tr.PreviousMotion()-want) > 1e-9 {
		t.Fatalf("expected %f, got %f", want, tr.PreviousMotion())
	}
}

func TestUpdateRegionOutsideImagePanics(t *testing.T) {
	img := frame.NewRGB(image.Rect(0, 0, 20, 20))
	tr := newTestTrigger(&recordingSink{})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for region outside image bounds")
		}
	}()
	tr.Update(img)
}

func TestNewPreconditions(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"nil sink", func() { New(nil, 60, testRegion) }},
		{"empty region", func() { New(&recordingSink{}, 60, image.Rectangle{}) }},
		{"threshold zero", func() { New(&recordingSink{}, 60, testRegion, WithThreshold(0)) }},
		{"threshold one", func() { New(&recordingSink{}, 60, testRegion, WithThreshold(1)) }},
		{"pitch", func() { New(&recordingSink{}, 128, testRegion) }},
		{"channel", func() { New(&recordingSink{}, 60, testRegion, WithChannel(16)) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			tc.fn()
		})
	}
}
