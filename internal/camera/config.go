package camera

import (
	"runtime"
	"time"

	"github.com/andresmejia3/facegate/internal/utils"
)

// Config describes which camera to open and how.
type Config struct {
	Device       string        // /dev/video0, "0" on macOS, video=<name> on Windows
	Backend      string        // "ffmpeg" or "gocv"
	Width        int           // 0 keeps the device default
	Height       int           // 0 keeps the device default
	Framerate    int           // 0 keeps the device default
	StartTimeout time.Duration // how long to wait for the first frame
}

// DefaultConfig returns the settings used when no flags are given.
func DefaultConfig() Config {
	return Config{
		Device:       utils.DefaultDevice(runtime.GOOS),
		Backend:      BackendFFmpeg,
		StartTimeout: 10 * time.Second,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device must not be empty")
	}
	if !HasBackend(c.Backend) {
		errors = append(errors, "backend must be one of "+backendList())
	}
	if c.Width < 0 || c.Height < 0 {
		errors = append(errors, "width and height must not be negative")
	}
	if (c.Width == 0) != (c.Height == 0) {
		errors = append(errors, "width and height must be set together")
	}
	if c.Framerate < 0 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 0 (device default) and 120")
	}
	if c.StartTimeout <= 0 {
		errors = append(errors, "start timeout must be positive")
	}

	return errors
}
