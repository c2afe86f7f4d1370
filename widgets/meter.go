package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderMeter draws a horizontal bar of width cells filled to level (0-1)
// with a marker at threshold (0-1).
func RenderMeter(level, threshold float64, width int, on, off, marker rune, fill lipgloss.Color) string {
	if width < 1 {
		return ""
	}
	filled := int(clampFloat(level, 0, 1)*float64(width) + 0.5)
	mark := int(clampFloat(threshold, 0, 1) * float64(width))
	if mark >= width {
		mark = width - 1
	}

	var out strings.Builder
	fillStyle := lipgloss.NewStyle().Foreground(fill)
	for i := 0; i < width; i++ {
		switch {
		case i == mark:
			out.WriteRune(marker)
		case i < filled:
			out.WriteString(fillStyle.Render(string(on)))
		default:
			out.WriteRune(off)
		}
	}
	return out.String()
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
