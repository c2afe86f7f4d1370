package theme

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

type RGB [3]uint8

// Palette is an ordered colour ramp looked up with a value in [0, 1].
type Palette struct {
	Name   string
	Colors []RGB
}

// Plasma is the built-in palette, dark violet through orange to yellow.
var Plasma = &Palette{
	Name: "plasma",
	Colors: []RGB{
		{13, 8, 135},
		{84, 2, 163},
		{139, 10, 165},
		{185, 50, 137},
		{219, 92, 104},
		{244, 136, 73},
		{254, 188, 43},
		{240, 249, 33},
	},
}

// LoadOrDefault loads the GIMP palette at path, or Plasma when path is empty.
func LoadOrDefault(path string) (*Palette, error) {
	if path == "" {
		return Plasma, nil
	}
	return LoadGPL(path)
}

// LoadGPL reads a GIMP .gpl palette file.
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return p, nil
}

// ParseGPL parses GIMP palette text. Header, comment and blank lines are
// skipped; every other line must start with three 0-255 integers.
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "Name:"):
			p.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
			continue
		case line == "", line[0] == '#', strings.HasPrefix(line, "GIMP"), strings.HasPrefix(line, "Columns"):
			continue
		}

		c, err := parseRGB(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		p.Colors = append(p.Colors, c)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(p.Colors) == 0 {
		return nil, fmt.Errorf("no colors")
	}
	return p, nil
}

func parseRGB(fields []string) (RGB, error) {
	if len(fields) < 3 {
		return RGB{}, fmt.Errorf("want R G B, got %q", strings.Join(fields, " "))
	}
	var c RGB
	for i := range c {
		v, err := strconv.ParseUint(fields[i], 10, 8)
		if err != nil {
			return RGB{}, err
		}
		c[i] = uint8(v)
	}
	return c, nil
}

// Lookup returns the colour at norm (clamped to [0, 1]), blending the two
// neighbouring palette entries in RGB.
func (p *Palette) Lookup(norm float64) RGB {
	last := len(p.Colors) - 1
	if norm <= 0 || last == 0 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[last]
	}

	pos := norm * float64(last)
	i := int(pos)
	c := toColorful(p.Colors[i]).BlendRgb(toColorful(p.Colors[i+1]), pos-float64(i))
	r, g, b := c.Clamped().RGB255()
	return RGB{r, g, b}
}

func toColorful(c RGB) colorful.Color {
	return colorful.Color{R: float64(c[0]) / 255, G: float64(c[1]) / 255, B: float64(c[2]) / 255}
}
