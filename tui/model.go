package tui

import (
	"fmt"
	"image"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"go-motionmidi/debug"
	"go-motionmidi/frame"
	"go-motionmidi/instrument"
	"go-motionmidi/midi"
	"go-motionmidi/theme"
	"go-motionmidi/trigger"
	"go-motionmidi/widgets"
)

// FrameSource yields one difference image per call.
type FrameSource interface {
	Next() (frame.DifferenceImage, error)
}

// PortStatus reports the output port, for the header.
type PortStatus interface {
	PortName() string
	Connected() bool
}

// chrome is the number of text rows outside the canvas besides the meters
const chrome = 6

const meterWidth = 24

type Model struct {
	Instrument *instrument.Instrument
	Source     FrameSource
	Port       PortStatus        // may be nil
	Watcher    *midi.PortWatcher // may be nil
	Theme      *theme.Theme
	Clock      trigger.Clock

	canvas   *widgets.Canvas
	interval time.Duration
	paused   bool
	quitting bool
	err      error
	status   string
	showHelp bool
}

type TickMsg time.Time

type PortEventMsg midi.PortEvent

// NewModel wires a model that pulls a frame every 1/fps seconds.
func NewModel(inst *instrument.Instrument, src FrameSource, size image.Point, fps int, th *theme.Theme, clock trigger.Clock) Model {
	if fps < 1 {
		fps = 30
	}
	if clock == nil {
		clock = trigger.NewWallClock()
	}
	return Model{
		Instrument: inst,
		Source:     src,
		Theme:      th,
		Clock:      clock,
		canvas:     widgets.NewCanvas(size.X, size.Y, 64, 16),
		interval:   time.Second / time.Duration(fps),
	}
}

func Tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func ListenForPorts(w *midi.PortWatcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-w.Events()
		if !ok {
			return nil
		}
		return PortEventMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		Tick(m.interval),
		ListenForPorts(m.Watcher),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			m.Instrument.Flush()
			return m, tea.Quit

		case " ":
			m.paused = !m.paused
			if m.paused {
				m.Instrument.Flush()
			}

		case "f":
			m.Instrument.Flush()
			m.status = "all notes off"

		case "?":
			m.showHelp = !m.showHelp
		}

	case tea.WindowSizeMsg:
		rows := msg.Height - chrome - len(m.Instrument.Triggers())
		m.canvas.Resize(msg.Width, rows)

	case TickMsg:
		if !m.paused {
			m.step()
		}
		return m, Tick(m.interval)

	case PortEventMsg:
		ev := midi.PortEvent(msg)
		switch ev.Type {
		case midi.PortConnected:
			m.status = "connected " + ev.Name
		case midi.PortDisconnected:
			// the port took any sounding notes with it
			m.Instrument.Flush()
			m.status = "lost " + ev.Name
		}
		debug.Log("tui", "port event %s", m.status)
		return m, ListenForPorts(m.Watcher)
	}

	return m, nil
}

// step pulls one frame and runs the instrument on it.
func (m *Model) step() {
	img, err := m.Source.Next()
	if err != nil {
		if m.err == nil || m.err.Error() != err.Error() {
			debug.Log("tui", "frame error: %v", err)
		}
		m.err = err
		return
	}
	m.err = nil
	m.Instrument.Update(img)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	// Header with port status
	state := "LIVE"
	if m.paused {
		state = "PAUSE"
	}
	port := "no port"
	if m.Port != nil && m.Port.Connected() {
		port = m.Port.PortName()
	}
	layout := m.Instrument.Layout()
	header := headerStyle.Render(fmt.Sprintf("go-motionmidi  %s  %dx%d %s  ch:%d  notes:%d  %s",
		state, layout.Rows, layout.Cols, layout.Scale, layout.Channel+1, m.Instrument.Playing(), port))

	// Motion canvas
	bg, err := colorful.Hex(string(m.Theme.BG()))
	if err != nil {
		bg = colorful.Color{}
	}
	m.canvas.Clear(bg)
	m.Instrument.Render(m.canvas, m.Clock.Now())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(m.canvas.View())
	out.WriteString("\n\n")
	out.WriteString(m.meters())

	if m.err != nil {
		out.WriteString("\n")
		out.WriteString(warnStyle.Render(m.err.Error()))
	} else if m.status != "" {
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(m.status))
	}

	out.WriteString("\n")
	if m.showHelp {
		out.WriteString(dimStyle.Render(widgets.RenderKeyHelp(keyHelp)))
	} else {
		out.WriteString(dimStyle.Render("space:pause  f:all notes off  ?:help  q:quit"))
	}

	return out.String()
}

// meters draws one line per trigger, highest pitch first so the list
// reads like the grid.
func (m Model) meters() string {
	sym := m.Theme.Symbols
	states := m.Instrument.Snapshots()
	lines := make([]string, 0, len(states))
	for i := len(states) - 1; i >= 0; i-- {
		s := states[i]
		mark := sym.NoteOff
		style := lipgloss.NewStyle().Foreground(m.Theme.Muted())
		if s.NoteIsPlaying {
			mark = sym.NoteOn
			style = lipgloss.NewStyle().Foreground(m.Theme.Success())
		}
		meter := widgets.RenderMeter(s.PreviousMotion, s.Threshold, meterWidth,
			sym.MeterOn, sym.MeterOff, sym.Marker, m.Theme.Color(s.PreviousMotion))
		lines = append(lines, fmt.Sprintf("%-4s %s %s %.2f",
			midi.NoteName(s.Pitch), style.Render(string(mark)), meter, s.PreviousMotion))
	}
	return strings.Join(lines, "\n")
}

var keyHelp = []widgets.KeySection{
	{
		Title: "Performance",
		Keys: []widgets.KeyBinding{
			{Key: "space", Desc: "pause (stops sounding notes)"},
			{Key: "f", Desc: "all notes off"},
		},
	},
	{
		Title: "General",
		Keys: []widgets.KeyBinding{
			{Key: "?", Desc: "toggle this help"},
			{Key: "q / ctrl+c", Desc: "quit"},
		},
	},
}
