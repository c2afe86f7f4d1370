package midi

import (
	"fmt"
	"math"
	"sync"

	"go-motionmidi/trigger"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Recording resolution and tempo of written files.
const (
	RecordTicks = 960
	RecordBPM   = 120.0
)

// Recorder keeps every note a performance sends and can write it out as a
// Standard MIDI File. Messages are passed on to Next when set.
type Recorder struct {
	Next trigger.Sink

	mu     sync.Mutex
	clock  trigger.Clock
	events []Event
}

// NewRecorder stamps events with clock and forwards them to next (may be nil).
func NewRecorder(next trigger.Sink, clock trigger.Clock) *Recorder {
	return &Recorder{Next: next, clock: clock}
}

func (r *Recorder) SendNoteOn(channel, pitch, velocity uint8) {
	r.mu.Lock()
	r.events = append(r.events, Event{
		Time:     r.clock.Now(),
		Type:     NoteOn,
		Channel:  channel,
		Note:     pitch,
		Velocity: velocity,
	})
	r.mu.Unlock()

	if r.Next != nil {
		r.Next.SendNoteOn(channel, pitch, velocity)
	}
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// SMF builds a single-track file from the recorded events. Time starts at
// the first event.
func (r *Recorder) SMF(name string) (*smf.SMF, error) {
	events := r.Events()

	res := smf.MetricTicks(RecordTicks)
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(name))
	tr.Add(0, smf.MetaTempo(RecordBPM))

	var lastTick uint32
	for _, ev := range events {
		tick := secondsToTicks(ev.Time - events[0].Time)
		if tick < lastTick {
			tick = lastTick
		}
		tr.Add(tick-lastTick, gomidi.NoteOn(ev.Channel, ev.Note, ev.Velocity))
		lastTick = tick
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = res
	if err := s.Add(tr); err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}
	return s, nil
}

func secondsToTicks(sec float64) uint32 {
	if sec <= 0 {
		return 0
	}
	return uint32(math.Round(sec * RecordBPM / 60 * RecordTicks))
}

// WriteFile writes the recording to path.
func (r *Recorder) WriteFile(path string) error {
	s, err := r.SMF("go-motionmidi")
	if err != nil {
		return err
	}
	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
