package midi

import (
	"context"
	"fmt"
	"time"

	"go-motionmidi/debug"
)

// PortEvent is emitted when the watched output connects or disconnects
type PortEvent struct {
	Type PortEventType
	Name string
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

// PortWatcher handles hot-plug of the configured MIDI output: it attaches the
// first matching port to Output when one appears and detaches it when it goes.
type PortWatcher struct {
	output   *Output
	pattern  string
	events   chan PortEvent
	pollRate time.Duration

	// swapped out in tests
	listPorts func() ([]string, error)
	attach    func(name string) error
}

// NewPortWatcher creates a watcher feeding output
func NewPortWatcher(output *Output, pattern string) *PortWatcher {
	w := &PortWatcher{
		output:    output,
		pattern:   pattern,
		events:    make(chan PortEvent, 16),
		pollRate:  time.Second,
		listPorts: OutPortNames,
	}
	w.attach = w.attachByName
	return w
}

func (w *PortWatcher) attachByName(name string) error {
	outs, err := listOutPorts(3 * time.Second)
	if err != nil {
		return err
	}
	for _, p := range outs {
		if p.String() == name {
			return w.output.Attach(p)
		}
	}
	return fmt.Errorf("output %q not found", name)
}

// Events returns a channel of connect/disconnect events
func (w *PortWatcher) Events() <-chan PortEvent {
	return w.events
}

// Run starts the polling loop (blocking - run in goroutine)
func (w *PortWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	// Initial scan
	w.scan()

	for {
		select {
		case <-ctx.Done():
			close(w.events)
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *PortWatcher) scan() {
	names, err := w.listPorts()
	if err != nil {
		// CoreMIDI is hung - skip this scan
		debug.Log("midi", "scan skipped: %v", err)
		return
	}

	current := w.output.PortName()
	if current != "" {
		for _, name := range names {
			if name == current {
				return // still there
			}
		}
		w.output.Detach()
		debug.Log("midi", "output disappeared: %s", current)
		w.emit(PortEvent{Type: PortDisconnected, Name: current})
	}

	for _, name := range names {
		if !matchPort(name, w.pattern) {
			continue
		}
		if err := w.attach(name); err != nil {
			debug.Log("midi", "connect %s failed: %v", name, err)
			continue
		}
		w.emit(PortEvent{Type: PortConnected, Name: name})
		return
	}
}

func (w *PortWatcher) emit(ev PortEvent) {
	select {
	case w.events <- ev:
	default:
		debug.Log("midi", "port event dropped: %+v", ev)
	}
}
