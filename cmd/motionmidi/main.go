package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-motionmidi/camera"
	"go-motionmidi/config"
	"go-motionmidi/debug"
	"go-motionmidi/frame"
	"go-motionmidi/instrument"
	"go-motionmidi/midi"
	"go-motionmidi/theme"
	"go-motionmidi/trigger"
	"go-motionmidi/tui"
)

// cameraSource adapts the camera to tui.FrameSource
type cameraSource struct {
	cam *camera.Camera
}

func (s cameraSource) Next() (frame.DifferenceImage, error) {
	d, err := s.cam.Next()
	if err != nil {
		return nil, err
	}
	return d, nil
}

func main() {
	cfgPath := flag.String("config", "", "config file (default ~/.config/go-motionmidi/config.json)")
	device := flag.String("camera", "", "camera index or video file")
	port := flag.String("port", "", "MIDI output port name substring")
	channel := flag.Int("channel", 0, "MIDI channel 1-16")
	rows := flag.Int("rows", 0, "trigger grid rows")
	cols := flag.Int("cols", 0, "trigger grid columns")
	scale := flag.String("scale", "", fmt.Sprintf("note scale %v", instrument.ScaleNames()))
	threshold := flag.Float64("threshold", 0, "motion threshold in (0, 1)")
	record := flag.String("record", "", "write the performance to this .mid file")
	verbose := flag.Bool("debug", false, "write debug log to ~/.config/go-motionmidi/debug.log")
	flag.Parse()

	if err := run(*cfgPath, *verbose, func(cfg *config.Config) {
		if *device != "" {
			cfg.Camera.Device = *device
		}
		if *port != "" {
			cfg.MIDIOutput.PortName = *port
		}
		if *channel != 0 {
			cfg.MIDIOutput.Channel = *channel
		}
		if *rows != 0 {
			cfg.Grid.Rows = *rows
		}
		if *cols != 0 {
			cfg.Grid.Cols = *cols
		}
		if *scale != "" {
			cfg.Grid.Scale = *scale
		}
		if *threshold != 0 {
			cfg.Grid.Threshold = *threshold
		}
		if *record != "" {
			cfg.RecordPath = *record
		}
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, verbose bool, override func(*config.Config)) error {
	if verbose {
		if err := debug.Enable(); err != nil {
			return fmt.Errorf("debug log: %w", err)
		}
		defer debug.Disable()
	}

	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFile(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	override(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	palette, err := theme.LoadOrDefault(cfg.UI.PalettePath)
	if err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	th := theme.New(palette)

	// MIDI output, attached now if the port exists and later by the watcher
	out := midi.NewOutput()
	defer out.Close()
	watcher := midi.NewPortWatcher(out, cfg.MIDIOutput.PortName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	clock := trigger.NewWallClock()
	var sink trigger.Sink = out
	var rec *midi.Recorder
	if cfg.RecordPath != "" {
		rec = midi.NewRecorder(out, clock)
		sink = rec
	}

	cam, err := camera.Open(camera.Config{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		Mirror: cfg.Camera.Mirror,
		Blur:   cfg.Camera.Blur,
	})
	if err != nil {
		return err
	}
	defer cam.Close()

	size := image.Pt(cfg.Camera.Width, cfg.Camera.Height)
	inst, err := instrument.New(sink, size, instrument.Layout{
		Rows:      cfg.Grid.Rows,
		Cols:      cfg.Grid.Cols,
		BasePitch: uint8(cfg.Grid.BasePitch),
		Scale:     cfg.Grid.Scale,
		Threshold: cfg.Grid.Threshold,
		Channel:   cfg.Channel(),
	}, clock)
	if err != nil {
		return fmt.Errorf("instrument: %w", err)
	}
	// no note may outlive the program
	defer inst.Close()

	m := tui.NewModel(inst, cameraSource{cam: cam}, size, cfg.UI.FPS, th, clock)
	m.Port = out
	m.Watcher = watcher
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return err
	}

	if rec != nil {
		inst.Flush()
		if err := rec.WriteFile(cfg.RecordPath); err != nil {
			return err
		}
		fmt.Printf("Recorded %d events to %s\n", len(rec.Events()), cfg.RecordPath)
	}
	return nil
}
