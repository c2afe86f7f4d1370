package debug

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	file    *os.File
	logger  *slog.Logger
	mu      sync.Mutex
	enabled bool
)

// Enable starts debug logging to ~/.config/go-motionmidi/debug.log
func Enable() error {
	homeDir, _ := os.UserHomeDir()
	return EnableFile(filepath.Join(homeDir, ".config", "go-motionmidi", "debug.log"))
}

// EnableFile starts debug logging to path, truncating it.
func EnableFile(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	enabled = true

	// Write directly (can't call Log - we hold the mutex)
	logger.Info("=== Debug logging started ===", "cat", "debug")
	file.Sync()

	return nil
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	logger = nil
	enabled = false
}

// Enabled reports whether Log writes anywhere.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Log writes a message to the debug log
func Log(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || logger == nil {
		return
	}

	logger.Debug(fmt.Sprintf(format, args...), "cat", category)
	file.Sync() // flush immediately so we see logs even on crash
}

// LogEvery logs only every N calls (use for per-frame events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
