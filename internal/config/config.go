// Package config loads and validates the monitor configuration.
package config

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"zonewatch/internal/motion"
)

// ConfigurationError reports a rejected configuration field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Config is the full monitor configuration as read from the TOML file.
type Config struct {
	// VideoSource is an ffmpeg-readable input: an rtsp:// or http:// URL,
	// a file path, or a /dev/video* capture device.
	VideoSource string `toml:"video_source"`

	// BGFrames is the number of frames used to calibrate the background.
	BGFrames int `toml:"bg_frames"`

	// MinArea is the smallest region area, in pixels, reported as motion.
	MinArea float64 `toml:"min_area"`

	// ROI restricts alerting to [x, y, w, h]. Empty means the whole frame.
	ROI []int `toml:"roi"`

	// AlertAfterHours is the [start, end) alert window in hours of day.
	AlertAfterHours []int `toml:"alert_after_hours"`

	// RecordDuration is the planned length of each clip, in seconds.
	RecordDuration int `toml:"record_duration"`

	// SaveVideos enables writing clips to disk.
	SaveVideos bool `toml:"save_videos"`

	// OutputFPS caps the processing rate. Must be positive.
	OutputFPS int `toml:"output_fps"`

	// Threshold is the per-pixel difference cutoff.
	Threshold int `toml:"threshold"`

	// BlurSigma is the Gaussian blur sigma applied before differencing.
	// Zero disables the blur.
	BlurSigma float64 `toml:"blur_sigma"`

	// DilateIterations grows the motion mask before region extraction.
	DilateIterations int `toml:"dilate_iterations"`

	// TriggerFrames is how many recent positive frames are required to
	// enter the active state.
	TriggerFrames int `toml:"trigger_frames"`

	// MotionWindow is the number of recent frames considered by
	// TriggerFrames.
	MotionWindow int `toml:"motion_window"`

	// MaxWidth downscales frames wider than this before processing.
	// Zero disables downscaling.
	MaxWidth int `toml:"max_width"`

	RecordingsDir string `toml:"recordings_dir"`
	EventsDB      string `toml:"events_db"`
	EventLog      string `toml:"event_log"`
	ListenAddr    string `toml:"listen_addr"`
}

// Default returns the configuration used when a field is absent.
func Default() Config {
	return Config{
		VideoSource:      "/dev/video0",
		BGFrames:         30,
		MinArea:          500,
		AlertAfterHours:  []int{22, 6},
		RecordDuration:   30,
		SaveVideos:       true,
		OutputFPS:        10,
		Threshold:        motion.DefaultThreshold,
		BlurSigma:        motion.DefaultBlurSigma,
		DilateIterations: motion.DefaultDilateIterations,
		TriggerFrames:    1,
		MotionWindow:     10,
		RecordingsDir:    "recordings",
		EventsDB:         "zonewatch.db",
		ListenAddr:       ":8080",
	}
}

// Load reads the TOML file at path, fills unset fields from Default,
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	// A bare capture device index is shorthand for /dev/video<n>.
	if n, err := strconv.Atoi(cfg.VideoSource); err == nil {
		cfg.VideoSource = fmt.Sprintf("/dev/video%d", n)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints. It returns the first violation found.
func (c *Config) Validate() error {
	if c.VideoSource == "" {
		return &ConfigurationError{Field: "video_source", Reason: "must not be empty"}
	}
	if c.BGFrames < 1 {
		return &ConfigurationError{Field: "bg_frames", Reason: "must be at least 1"}
	}
	if c.MinArea < 1 {
		return &ConfigurationError{Field: "min_area", Reason: "must be at least 1 pixel"}
	}
	if len(c.ROI) != 0 && len(c.ROI) != 4 {
		return &ConfigurationError{Field: "roi", Reason: "must be [x, y, w, h]"}
	}
	if len(c.ROI) == 4 && (c.ROI[2] <= 0 || c.ROI[3] <= 0) {
		return &ConfigurationError{Field: "roi", Reason: "width and height must be positive"}
	}
	if len(c.AlertAfterHours) != 2 {
		return &ConfigurationError{Field: "alert_after_hours", Reason: "must be [start, end]"}
	}
	for _, h := range c.AlertAfterHours {
		if h < 0 || h > 23 {
			return &ConfigurationError{Field: "alert_after_hours", Reason: "hours must be in [0, 23]"}
		}
	}
	if c.RecordDuration < 1 {
		return &ConfigurationError{Field: "record_duration", Reason: "must be at least 1 second"}
	}
	if c.OutputFPS < 1 {
		return &ConfigurationError{Field: "output_fps", Reason: "must be positive"}
	}
	if c.Threshold < 0 || c.Threshold > 255 {
		return &ConfigurationError{Field: "threshold", Reason: "must be in [0, 255]"}
	}
	if c.BlurSigma < 0 {
		return &ConfigurationError{Field: "blur_sigma", Reason: "must not be negative"}
	}
	if c.DilateIterations < 0 {
		return &ConfigurationError{Field: "dilate_iterations", Reason: "must not be negative"}
	}
	if c.TriggerFrames < 1 {
		return &ConfigurationError{Field: "trigger_frames", Reason: "must be at least 1"}
	}
	if c.MotionWindow < c.TriggerFrames {
		return &ConfigurationError{Field: "motion_window", Reason: "must be at least trigger_frames"}
	}
	if c.MaxWidth < 0 {
		return &ConfigurationError{Field: "max_width", Reason: "must not be negative"}
	}
	return nil
}

// ROIRect returns the region of interest as a rectangle, or the zero
// rectangle when no ROI is configured.
func (c *Config) ROIRect() image.Rectangle {
	if len(c.ROI) != 4 {
		return image.Rectangle{}
	}
	return image.Rect(c.ROI[0], c.ROI[1], c.ROI[0]+c.ROI[2], c.ROI[1]+c.ROI[3])
}

// RecordingDuration returns the planned clip length.
func (c *Config) RecordingDuration() time.Duration {
	return time.Duration(c.RecordDuration) * time.Second
}
