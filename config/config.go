package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CameraConfig selects and sizes the capture device
type CameraConfig struct {
	Device string `json:"device,omitempty"` // index ("0") or file/URL
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Mirror bool   `json:"mirror"`
	Blur   int    `json:"blur,omitempty"` // odd kernel size, 0 = off
}

// MIDIOutputConfig defines where notes go
type MIDIOutputConfig struct {
	PortName string `json:"portName,omitempty"` // substring match, empty = first port
	Channel  int    `json:"channel,omitempty"`  // 1-16
}

// GridConfig lays triggers out over the frame
type GridConfig struct {
	Rows      int     `json:"rows,omitempty"`
	Cols      int     `json:"cols,omitempty"`
	BasePitch int     `json:"basePitch,omitempty"`
	Scale     string  `json:"scale,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

// UIConfig stores display preferences
type UIConfig struct {
	FPS         int    `json:"fps,omitempty"`
	PalettePath string `json:"palettePath,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Camera     CameraConfig     `json:"camera"`
	MIDIOutput MIDIOutputConfig `json:"midiOutput"`
	Grid       GridConfig       `json:"grid"`
	UI         UIConfig         `json:"ui"`
	RecordPath string           `json:"recordPath,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Camera: CameraConfig{
			Device: "0",
			Width:  640,
			Height: 480,
			Mirror: true,
			Blur:   5,
		},
		MIDIOutput: MIDIOutputConfig{
			Channel: 1,
		},
		Grid: GridConfig{
			Rows:      3,
			Cols:      4,
			BasePitch: 48,
			Scale:     "pentatonic",
			Threshold: 0.2,
		},
		UI: UIConfig{
			FPS: 30,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-motionmidi"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path on top of the defaults. A missing file
// yields the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks ranges the rest of the program relies on
func (c *Config) Validate() error {
	if c.Grid.Rows < 1 || c.Grid.Cols < 1 {
		return fmt.Errorf("grid must have at least one row and column, got %dx%d", c.Grid.Rows, c.Grid.Cols)
	}
	if c.Grid.Threshold <= 0 || c.Grid.Threshold >= 1 {
		return fmt.Errorf("threshold %v must lie in (0, 1)", c.Grid.Threshold)
	}
	if c.Grid.BasePitch < 0 || c.Grid.BasePitch > 127 {
		return fmt.Errorf("base pitch %d out of MIDI range", c.Grid.BasePitch)
	}
	if c.MIDIOutput.Channel < 1 || c.MIDIOutput.Channel > 16 {
		return fmt.Errorf("MIDI channel %d must be 1-16", c.MIDIOutput.Channel)
	}
	if c.Camera.Width < 1 || c.Camera.Height < 1 {
		return fmt.Errorf("camera size %dx%d invalid", c.Camera.Width, c.Camera.Height)
	}
	if c.UI.FPS < 1 {
		return fmt.Errorf("fps %d must be positive", c.UI.FPS)
	}
	return nil
}

// Channel returns the 0-based MIDI channel
func (c *Config) Channel() uint8 {
	return uint8(c.MIDIOutput.Channel - 1)
}
