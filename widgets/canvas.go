package widgets

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"go-motionmidi/trigger"
)

// Canvas rasterises trigger circles into terminal cells. Each cell is a
// half block, so one text row holds two pixel rows.
type Canvas struct {
	imgW, imgH float64 // image-space size being displayed
	cols, rows int     // pixel grid (rows = 2 * text rows)
	pix        []colorful.Color
	bg         colorful.Color
}

// NewCanvas maps an image of imgW x imgH pixels onto cols x textRows cells.
func NewCanvas(imgW, imgH, cols, textRows int) *Canvas {
	c := &Canvas{imgW: float64(imgW), imgH: float64(imgH)}
	c.Resize(cols, textRows)
	return c
}

// Resize changes the terminal area, clearing the canvas.
func (c *Canvas) Resize(cols, textRows int) {
	c.cols = max(cols, 1)
	c.rows = max(textRows, 1) * 2
	c.pix = make([]colorful.Color, c.cols*c.rows)
	c.Clear(c.bg)
}

// Clear fills the canvas with bg.
func (c *Canvas) Clear(bg colorful.Color) {
	c.bg = bg
	for i := range c.pix {
		c.pix[i] = bg
	}
}

// Size returns the pixel grid size.
func (c *Canvas) Size() (cols, rows int) {
	return c.cols, c.rows
}

// At returns the colour of one pixel cell.
func (c *Canvas) At(x, y int) colorful.Color {
	if x < 0 || y < 0 || x >= c.cols || y >= c.rows {
		return c.bg
	}
	return c.pix[y*c.cols+x]
}

// DrawCircle alpha-blends a filled circle onto the canvas.
func (c *Canvas) DrawCircle(circle trigger.Circle) {
	if circle.Radius <= 0 || circle.Color.A == 0 {
		return
	}
	src, alpha := toColorful(circle.Color)
	sx := float64(c.cols) / c.imgW
	sy := float64(c.rows) / c.imgH

	// circle in cell space is an ellipse when the scales differ
	cx, cy := circle.X*sx, circle.Y*sy
	rx, ry := circle.Radius*sx, circle.Radius*sy

	x0, x1 := clampInt(int(cx-rx), 0, c.cols-1), clampInt(int(cx+rx)+1, 0, c.cols-1)
	y0, y1 := clampInt(int(cy-ry), 0, c.rows-1), clampInt(int(cy+ry)+1, 0, c.rows-1)
	for y := y0; y <= y1; y++ {
		dy := (float64(y) + 0.5 - cy) / ry
		for x := x0; x <= x1; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			if dx*dx+dy*dy > 1 {
				continue
			}
			i := y*c.cols + x
			c.pix[i] = c.pix[i].BlendRgb(src, alpha).Clamped()
		}
	}
}

// View renders the canvas as lipgloss-styled half blocks.
func (c *Canvas) View() string {
	var out strings.Builder
	for y := 0; y+1 < c.rows; y += 2 {
		if y > 0 {
			out.WriteString("\n")
		}
		run := 0
		var runTop, runBottom string
		flush := func() {
			if run == 0 {
				return
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(runTop)).
				Background(lipgloss.Color(runBottom))
			out.WriteString(style.Render(strings.Repeat("▀", run)))
			run = 0
		}
		for x := 0; x < c.cols; x++ {
			top := c.pix[y*c.cols+x].Hex()
			bottom := c.pix[(y+1)*c.cols+x].Hex()
			if run > 0 && (top != runTop || bottom != runBottom) {
				flush()
			}
			runTop, runBottom = top, bottom
			run++
		}
		flush()
	}
	return out.String()
}

func toColorful(rgba color.RGBA) (colorful.Color, float64) {
	return colorful.Color{
		R: float64(rgba.R) / 255,
		G: float64(rgba.G) / 255,
		B: float64(rgba.B) / 255,
	}, float64(rgba.A) / 255
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
