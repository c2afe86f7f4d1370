package midi

import "fmt"

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
)

// Event is one note message as sent by a trigger. A NoteOn with velocity 0
// is how triggers stop notes; Type stays NoteOn for it.
type Event struct {
	Time     float64 // seconds, from the recording clock
	Type     uint8
	Channel  uint8 // 0-based
	Note     uint8
	Velocity uint8
}

// IsNoteOff reports whether the event silences its note.
func (e Event) IsNoteOff() bool {
	return e.Type == NoteOff || e.Velocity == 0
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName formats a MIDI note number as e.g. "C4" (60).
func NoteName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note)/12-1)
}
