package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ayusman/marchrep/internal/exercise"
)

// configName is the config file name without extension.
const configName = "marchrep"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for marchrep settings.
const envPrefix = "MARCHREP"

// dataDirName is the per-user data directory under $HOME.
const dataDirName = ".marchrep"

// Defaults.
const (
	DefaultAddr        = ":8080"
	DefaultDeviceID    = 0
	DefaultFPS         = 15
	DefaultDetector    = DetectorMediaPipe
	DefaultIdleTimeout = 30 * time.Second
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// defaultDatabaseName is the session database file name inside the data directory.
const defaultDatabaseName = "marchrep.db"

// Load loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise marchrep.yaml is searched in ./, ./config and $HOME/.marchrep.
// Missing config file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if dir := DataDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or env overrides exist.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: DefaultAddr},
		Camera: CameraConfig{DeviceID: DefaultDeviceID, FPS: DefaultFPS},
		Detector: DetectorConfig{
			Kind:        DefaultDetector,
			IdleTimeout: DefaultIdleTimeout,
		},
		Store:      StoreConfig{Path: defaultStorePath()},
		Logging:    LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Thresholds: exercise.DefaultThresholds(),
	}
}

// DataDir returns $HOME/.marchrep, or "" when the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, dataDirName)
}

func defaultStorePath() string {
	dir := DataDir()
	if dir == "" {
		return defaultDatabaseName
	}
	return filepath.Join(dir, defaultDatabaseName)
}

func applyDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.addr", d.Server.Addr)

	v.SetDefault("camera.device_id", d.Camera.DeviceID)
	v.SetDefault("camera.fps", d.Camera.FPS)

	v.SetDefault("detector.kind", d.Detector.Kind)
	v.SetDefault("detector.script_path", d.Detector.ScriptPath)
	v.SetDefault("detector.python_path", d.Detector.PythonPath)
	v.SetDefault("detector.idle_timeout", d.Detector.IdleTimeout)

	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("thresholds.rep_similarity", d.Thresholds.RepSimilarity)
	v.SetDefault("thresholds.rep_progress", d.Thresholds.RepProgress)
	v.SetDefault("thresholds.side_margin", d.Thresholds.SideMargin)
	v.SetDefault("thresholds.stand_similarity", d.Thresholds.StandSimilarity)
	v.SetDefault("thresholds.progress_floor", d.Thresholds.ProgressFloor)
	v.SetDefault("thresholds.progress_span", d.Thresholds.ProgressSpan)
	v.SetDefault("thresholds.smoothing_factor", d.Thresholds.SmoothingFactor)
}
