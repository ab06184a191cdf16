// Package config loads marchrep settings from defaults, an optional YAML file
// and MARCHREP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayusman/marchrep/internal/exercise"
)

// Detector kinds.
const (
	DetectorMediaPipe = "mediapipe"
	DetectorMock      = "mock"
)

// Config is the top-level configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Server     ServerConfig        `mapstructure:"server"`
	Camera     CameraConfig        `mapstructure:"camera"`
	Detector   DetectorConfig      `mapstructure:"detector"`
	Store      StoreConfig         `mapstructure:"store"`
	Logging    LoggingConfig       `mapstructure:"logging"`
	Thresholds exercise.Thresholds `mapstructure:"thresholds"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// CameraConfig holds capture device settings.
type CameraConfig struct {
	DeviceID int `mapstructure:"device_id"`
	FPS      int `mapstructure:"fps"`
}

// DetectorConfig selects and tunes the pose detector.
type DetectorConfig struct {
	Kind        string        `mapstructure:"kind"`
	ScriptPath  string        `mapstructure:"script_path"`
	PythonPath  string        `mapstructure:"python_path"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// StoreConfig holds the session database location.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// maxFPS bounds the camera frame rate.
const maxFPS = 120

// Sentinel errors for configuration validation.
var (
	// ErrEmptyAddr indicates server.addr is empty.
	ErrEmptyAddr = errors.New("server.addr must not be empty")
	// ErrInvalidFPS indicates camera.fps is outside 1..120.
	ErrInvalidFPS = errors.New("camera.fps must be between 1 and 120")
	// ErrInvalidDeviceID indicates a negative camera.device_id.
	ErrInvalidDeviceID = errors.New("camera.device_id must be non-negative")
	// ErrUnknownDetector indicates detector.kind is not mediapipe or mock.
	ErrUnknownDetector = errors.New("detector.kind must be mediapipe or mock")
	// ErrInvalidIdleTimeout indicates a negative detector.idle_timeout.
	ErrInvalidIdleTimeout = errors.New("detector.idle_timeout must be non-negative")
	// ErrEmptyStorePath indicates store.path is empty.
	ErrEmptyStorePath = errors.New("store.path must not be empty")
	// ErrInvalidLogLevel indicates logging.level is not debug, info, warn or error.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
	// ErrInvalidLogFormat indicates logging.format is not text or json.
	ErrInvalidLogFormat = errors.New("logging.format must be text or json")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrEmptyAddr
	}

	if c.Camera.FPS < 1 || c.Camera.FPS > maxFPS {
		return ErrInvalidFPS
	}

	if c.Camera.DeviceID < 0 {
		return ErrInvalidDeviceID
	}

	if c.Detector.Kind != DetectorMediaPipe && c.Detector.Kind != DetectorMock {
		return fmt.Errorf("%w: %q", ErrUnknownDetector, c.Detector.Kind)
	}

	if c.Detector.IdleTimeout < 0 {
		return ErrInvalidIdleTimeout
	}

	if c.Store.Path == "" {
		return ErrEmptyStorePath
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	return nil
}
