// Package config loads and validates the startup configuration for the
// Mudra pipeline. The configuration is read once at startup and is not
// hot-reloaded; invalid parameters are fatal before any sensor goroutine
// starts.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Default and by Validate for zero-valued fields.
const (
	// DefaultConfigFilename is used when no path is provided.
	DefaultConfigFilename = "mudra.yaml"

	// DefaultAlpha is the exponential smoothing coefficient.
	// Higher alpha means lower latency but more jitter.
	DefaultAlpha = 0.25

	// DefaultOutlierThreshold is the maximum per-update coordinate jump,
	// in normalized units. Larger jumps are treated as tracking glitches.
	DefaultOutlierThreshold = 0.2

	// DefaultMinChange is the dead-band below which coordinate changes
	// re-emit the previous estimate, suppressing panning bounce.
	DefaultMinChange = 0.02

	// DefaultDebounceFrames is the number of consecutive matching frames
	// required before a gesture fires.
	DefaultDebounceFrames = 5

	// DefaultTrackTimeout resets a hand's classifier state after the
	// sensor stops reporting it.
	DefaultTrackTimeout = 1 * time.Second
)

var (
	errConfigIsNotSet     = errors.New("configuration is not set")
	errAlphaOutOfRange    = errors.New("smoothing alpha must be in (0, 1]")
	errOutlierNotPositive = errors.New("outlier threshold must be positive")
	errMinChangeNegative  = errors.New("min change must not be negative")
	errDebounceTooSmall   = errors.New("debounce frames must be at least 1")
	errBadBounds          = errors.New("field bounds must have max greater than min on every axis")
	errBadFPS             = errors.New("camera fps values must be positive")
)

// Config is the complete startup configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error, fatal.
	LogLevel string `yaml:"log_level"`

	Camera    CameraConfig    `yaml:"camera"`
	Depth     DepthConfig     `yaml:"depth"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Gestures  GestureConfig   `yaml:"gestures"`
	Outputs   OutputConfig    `yaml:"outputs"`
	Server    ServerConfig    `yaml:"server"`
}

// CameraConfig controls the RGB camera sample source.
type CameraConfig struct {
	// Enabled turns the camera/landmark source on.
	Enabled bool `yaml:"enabled"`
	// DeviceID is the capture device index.
	DeviceID int `yaml:"device_id"`
	// Width and Height set the capture resolution.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// IdleFPS is the frame rate while no motion is detected.
	IdleFPS int `yaml:"idle_fps"`
	// ActiveFPS is the frame rate during active tracking.
	ActiveFPS int `yaml:"active_fps"`
	// MotionThreshold is the percentage of changed pixels that counts
	// as motion (1.0 = 1%).
	MotionThreshold float64 `yaml:"motion_threshold"`
	// IdleTimeout is how long after the last motion the source drops
	// back to the idle frame rate.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	// MaxReadFailures is the number of consecutive read errors before
	// the source is considered lost.
	MaxReadFailures int `yaml:"max_read_failures"`
}

// DepthConfig controls the depth sample source. The depth engine runs as a
// subprocess emitting line-oriented JSON spatial records.
type DepthConfig struct {
	// Enabled turns the depth/position source on.
	Enabled bool `yaml:"enabled"`
	// Command launches the depth engine bridge.
	Command string `yaml:"command"`
	// Args are passed to Command.
	Args []string `yaml:"args"`
	// Bounds is the sensor field of view in meters, used to normalize
	// positions to [0,1].
	Bounds FieldBounds `yaml:"bounds"`
}

// FieldBounds describes the sensor field of view in meters.
type FieldBounds struct {
	XMin float64 `yaml:"x_min"`
	XMax float64 `yaml:"x_max"`
	YMin float64 `yaml:"y_min"`
	YMax float64 `yaml:"y_max"`
	ZMin float64 `yaml:"z_min"`
	ZMax float64 `yaml:"z_max"`
}

// SmoothingConfig holds the coordinate smoother parameters.
type SmoothingConfig struct {
	Alpha            float64 `yaml:"alpha"`
	OutlierThreshold float64 `yaml:"outlier_threshold"`
	MinChange        float64 `yaml:"min_change"`
	// IdleTimeout resets the smoother after a gap with no input, so
	// stale smoothing state does not leak into a new tracked subject.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// GestureConfig holds the classifier parameters.
type GestureConfig struct {
	// DebounceFrames is the stability window: consecutive matching
	// frames required before a gesture fires.
	DebounceFrames int `yaml:"debounce_frames"`
	// MinConfidence is the default template match threshold.
	MinConfidence float64 `yaml:"min_confidence"`
	// SwipeCooldown, ShapeCooldown and HoldCooldown are the refractory
	// periods after a swipe, single-hand shape, or two-hand hold fires.
	SwipeCooldown time.Duration `yaml:"swipe_cooldown"`
	ShapeCooldown time.Duration `yaml:"shape_cooldown"`
	HoldCooldown  time.Duration `yaml:"hold_cooldown"`
	// TrackTimeout resets a role's classifier after the hand disappears.
	TrackTimeout time.Duration `yaml:"track_timeout"`
}

// OutputConfig holds the OSC control channel destinations.
type OutputConfig struct {
	// ActionHost/ActionPort receive one message per gesture event.
	ActionHost string `yaml:"action_host"`
	ActionPort int    `yaml:"action_port"`
	// SpatialHost/SpatialPort receive the smoothed coordinate stream.
	SpatialHost string `yaml:"spatial_host"`
	SpatialPort int    `yaml:"spatial_port"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address for the stream/visualization server.
	Addr string `yaml:"addr"`
	// StaticDir optionally serves a visualization front end.
	StaticDir string `yaml:"static_dir"`
}

// Default returns a Config with the values the original performance rig
// uses: camera on device 0, control surface on localhost ports 7400/9400,
// HTTP server on :8080.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Camera: CameraConfig{
			Enabled:         true,
			DeviceID:        0,
			Width:           640,
			Height:          480,
			IdleFPS:         5,
			ActiveFPS:       15,
			MotionThreshold: 1.0,
			IdleTimeout:     2 * time.Second,
			MaxReadFailures: 30,
		},
		Depth: DepthConfig{
			Enabled: false,
			Command: "python3",
			Args:    []string{"scripts/depth_service.py"},
			Bounds: FieldBounds{
				XMin: -2.0, XMax: 2.0,
				YMin: -1.5, YMax: 1.5,
				ZMin: 0.1, ZMax: 10.0,
			},
		},
		Smoothing: SmoothingConfig{
			Alpha:            DefaultAlpha,
			OutlierThreshold: DefaultOutlierThreshold,
			MinChange:        DefaultMinChange,
			IdleTimeout:      2 * time.Second,
		},
		Gestures: GestureConfig{
			DebounceFrames: DefaultDebounceFrames,
			MinConfidence:  0.6,
			SwipeCooldown:  2500 * time.Millisecond,
			ShapeCooldown:  1500 * time.Millisecond,
			HoldCooldown:   2 * time.Second,
			TrackTimeout:   DefaultTrackTimeout,
		},
		Outputs: OutputConfig{
			ActionHost:  "127.0.0.1",
			ActionPort:  7400,
			SpatialHost: "127.0.0.1",
			SpatialPort: 9400,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads configuration from path, fills defaults and validates.
// An empty path loads DefaultConfigFilename.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and fills remaining defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Smoothing.Alpha <= 0 || cfg.Smoothing.Alpha > 1 {
		return errAlphaOutOfRange
	}
	if cfg.Smoothing.OutlierThreshold <= 0 {
		return errOutlierNotPositive
	}
	if cfg.Smoothing.MinChange < 0 {
		return errMinChangeNegative
	}
	if cfg.Gestures.DebounceFrames < 1 {
		return errDebounceTooSmall
	}
	if cfg.Gestures.MinConfidence <= 0 || cfg.Gestures.MinConfidence > 1 {
		return fmt.Errorf("min confidence %v out of range (0, 1]", cfg.Gestures.MinConfidence)
	}

	if cfg.Camera.Enabled {
		if cfg.Camera.IdleFPS <= 0 || cfg.Camera.ActiveFPS <= 0 {
			return errBadFPS
		}
		if cfg.Camera.MaxReadFailures <= 0 {
			cfg.Camera.MaxReadFailures = 30
		}
	}

	if cfg.Depth.Enabled {
		b := cfg.Depth.Bounds
		if b.XMax <= b.XMin || b.YMax <= b.YMin || b.ZMax <= b.ZMin {
			return errBadBounds
		}
		if cfg.Depth.Command == "" {
			return errors.New("depth source enabled but no command configured")
		}
	}

	if err := validateEndpoint(cfg.Outputs.ActionHost, cfg.Outputs.ActionPort); err != nil {
		return fmt.Errorf("action channel: %w", err)
	}
	if err := validateEndpoint(cfg.Outputs.SpatialHost, cfg.Outputs.SpatialPort); err != nil {
		return fmt.Errorf("spatial channel: %w", err)
	}

	if cfg.Server.Addr != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.Server.Addr); err != nil {
			return fmt.Errorf("invalid server address: %w", err)
		}
	}

	return nil
}

func validateEndpoint(host string, port int) error {
	if host == "" {
		return errors.New("host must be provided")
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}
