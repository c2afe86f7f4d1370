package instrument

import (
	"fmt"
	"sort"
)

// Scale is a set of semitone offsets within one octave
type Scale struct {
	Name      string
	Intervals []uint8
}

// Scales contains the note layouts a grid can use
var Scales = map[string]Scale{
	"pentatonic": {
		Name:      "Major Pentatonic",
		Intervals: []uint8{0, 2, 4, 7, 9},
	},
	"minor-pentatonic": {
		Name:      "Minor Pentatonic",
		Intervals: []uint8{0, 3, 5, 7, 10},
	},
	"major": {
		Name:      "Major",
		Intervals: []uint8{0, 2, 4, 5, 7, 9, 11},
	},
	"minor": {
		Name:      "Natural Minor",
		Intervals: []uint8{0, 2, 3, 5, 7, 8, 10},
	},
	"chromatic": {
		Name:      "Chromatic",
		Intervals: []uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	},
}

// ScaleNames returns the known scale keys, sorted
func ScaleNames() []string {
	names := make([]string, 0, len(Scales))
	for k := range Scales {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Pitches returns n ascending pitches of the named scale starting at base.
// Pitches above 127 are an error rather than being wrapped.
func Pitches(scale string, base uint8, n int) ([]uint8, error) {
	s, ok := Scales[scale]
	if !ok {
		return nil, fmt.Errorf("unknown scale %q (have %v)", scale, ScaleNames())
	}
	out := make([]uint8, n)
	for i := range out {
		octave := i / len(s.Intervals)
		p := int(base) + octave*12 + int(s.Intervals[i%len(s.Intervals)])
		if p > 127 {
			return nil, fmt.Errorf("%d notes of %s from %d exceed MIDI range", n, s.Name, base)
		}
		out[i] = uint8(p)
	}
	return out, nil
}
