package midi

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go-motionmidi/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Output sends trigger notes to a MIDI output port. It satisfies
// trigger.Sink. While no port is attached, messages are dropped.
type Output struct {
	mu       sync.Mutex
	portName string
	port     drivers.Out
	send     func(gomidi.Message) error
	sent     uint64
	dropped  uint64
}

// NewOutput returns an output with no port attached.
func NewOutput() *Output {
	return &Output{}
}

// OpenOutput opens the first output port whose name contains pattern
// (case-insensitive). An empty pattern picks the first port.
func OpenOutput(pattern string) (*Output, error) {
	port, err := FindOutPort(pattern)
	if err != nil {
		return nil, err
	}
	o := NewOutput()
	if err := o.Attach(port); err != nil {
		return nil, err
	}
	return o, nil
}

// FindOutPort looks up an output port by name substring. Port enumeration is
// bounded by a timeout since CoreMIDI can hang.
func FindOutPort(pattern string) (drivers.Out, error) {
	outs, err := listOutPorts(3 * time.Second)
	if err != nil {
		return nil, err
	}
	for _, p := range outs {
		if matchPort(p.String(), pattern) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no MIDI output matching %q", pattern)
}

// OutPortNames returns the names of all output ports.
func OutPortNames() ([]string, error) {
	outs, err := listOutPorts(3 * time.Second)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(outs))
	for _, p := range outs {
		names = append(names, p.String())
	}
	return names, nil
}

func listOutPorts(timeout time.Duration) ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return nil, fmt.Errorf("MIDI port enumeration timed out after %s", timeout)
	}
}

func matchPort(name, pattern string) bool {
	if pattern == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}

// Attach opens port and routes subsequent messages to it, closing any port
// attached before.
func (o *Output) Attach(port drivers.Out) error {
	send, err := gomidi.SendTo(port)
	if err != nil {
		return fmt.Errorf("open output %q: %w", port.String(), err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closePort()
	o.port = port
	o.attach(port.String(), send)
	return nil
}

func (o *Output) attach(name string, send func(gomidi.Message) error) {
	o.portName = name
	o.send = send
	debug.Log("midi", "output attached: %s", name)
}

// Detach stops sending without closing the program. Used when the port
// disappears.
func (o *Output) Detach() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closePort()
}

func (o *Output) closePort() {
	if o.port != nil {
		_ = o.port.Close()
		o.port = nil
	}
	if o.send != nil {
		debug.Log("midi", "output detached: %s", o.portName)
	}
	o.send = nil
	o.portName = ""
}

// PortName returns the attached port name, or "" when detached.
func (o *Output) PortName() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.portName
}

// Connected reports whether a port is attached.
func (o *Output) Connected() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.send != nil
}

// Stats returns how many messages were sent and dropped.
func (o *Output) Stats() (sent, dropped uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent, o.dropped
}

// SendNoteOn sends a note-on; velocity 0 stops the note.
func (o *Output) SendNoteOn(channel, pitch, velocity uint8) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.send == nil {
		o.dropped++
		debug.Log("midi", "dropped ch=%d note=%d vel=%d: no output", channel+1, pitch, velocity)
		return
	}
	if err := o.send(gomidi.NoteOn(channel, pitch, velocity)); err != nil {
		o.dropped++
		debug.Log("midi", "send failed on %s: %v", o.portName, err)
		return
	}
	o.sent++
}

// Close detaches and closes the port.
func (o *Output) Close() error {
	o.Detach()
	return nil
}
