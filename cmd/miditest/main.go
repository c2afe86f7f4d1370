package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-motionmidi/instrument"
	"go-motionmidi/midi"
	"go-motionmidi/trigger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	arg := ""
	if len(os.Args) > 2 {
		arg = os.Args[2]
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "note":
		testNote(arg)
	case "poll":
		pollPorts(arg)
	case "record":
		testRecord(arg)
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list            - List MIDI output ports")
	fmt.Println("  note [port]     - Play a pentatonic run on the first matching port")
	fmt.Println("  poll [port]     - Watch a port connect and disconnect")
	fmt.Println("  record [file]   - Write a short test take to a .mid file")
}

func listPorts() {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	names, err := midi.OutPortNames()
	if err != nil {
		fmt.Printf("\n%v\n", err)
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return
	}
	for i, name := range names {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

// playRun sends a one-octave run through sink, each note held briefly
func playRun(sink trigger.Sink) error {
	pitches, err := instrument.Pitches("pentatonic", 60, 6)
	if err != nil {
		return err
	}
	for _, p := range pitches {
		fmt.Printf("  %s\n", midi.NoteName(p))
		sink.SendNoteOn(0, p, 100)
		time.Sleep(200 * time.Millisecond)
		sink.SendNoteOn(0, p, 0)
	}
	return nil
}

func testNote(pattern string) {
	out, err := midi.OpenOutput(pattern)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer out.Close()

	fmt.Printf("Using output: %s\n", out.PortName())
	if err := playRun(out); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	sent, dropped := out.Stats()
	fmt.Printf("Done! sent=%d dropped=%d\n", sent, dropped)
}

func pollPorts(pattern string) {
	fmt.Printf("Watching for outputs matching %q. Ctrl+C to exit.\n", pattern)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := midi.NewOutput()
	defer out.Close()
	w := midi.NewPortWatcher(out, pattern)
	go w.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.Events():
			state := "connected"
			if ev.Type == midi.PortDisconnected {
				state = "disconnected"
			}
			fmt.Printf("[%s] %s %s\n", time.Now().Format("15:04:05"), state, ev.Name)
		}
	}
}

func testRecord(path string) {
	if path == "" {
		path = "miditest.mid"
	}
	rec := midi.NewRecorder(nil, trigger.NewWallClock())
	fmt.Println("Recording test run...")
	if err := playRun(rec); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := rec.WriteFile(path); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Wrote %d events to %s\n", len(rec.Events()), path)
}
