package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/ngxvisor/internal/detector"
	"github.com/loykin/ngxvisor/internal/logger"
)

// EnvPrefix prefixes environment overrides, e.g. NGXVISOR_INSTALL_DIR or NGXVISOR_SERVER_LISTEN.
const EnvPrefix = "NGXVISOR"

// Config represents the top-level TOML structure.
type Config struct {
	InstallDir      string        `mapstructure:"install_dir"`
	Binary          string        `mapstructure:"binary"`
	PIDFile         string        `mapstructure:"pid_file"`
	ServiceLog      string        `mapstructure:"service_log"`
	StatusURL       string        `mapstructure:"status_url"`
	StatusTimeout   time.Duration `mapstructure:"status_timeout"`
	Probe           string        `mapstructure:"probe"`
	ProbeCommand    string        `mapstructure:"probe_command"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	Workers         int           `mapstructure:"workers"`
	AutoStart       bool          `mapstructure:"auto_start"`

	Log     logger.Config `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// AuditConfig lists history sink DSNs that receive every operation record.
type AuditConfig struct {
	Sinks []string `mapstructure:"sinks"`
}

// DefaultBinary is the executable name looked up inside install_dir.
func DefaultBinary() string {
	if runtime.GOOS == "windows" {
		return "nginx.exe"
	}
	return "nginx"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("install_dir", "")
	v.SetDefault("binary", DefaultBinary())
	v.SetDefault("pid_file", filepath.Join("logs", "nginx.pid"))
	v.SetDefault("service_log", "nginx-service.log")
	v.SetDefault("status_url", "http://127.0.0.1/nginx_status")
	v.SetDefault("status_timeout", "3s")
	v.SetDefault("probe", detector.KindListing)
	v.SetDefault("probe_command", "")
	v.SetDefault("monitor_interval", "5s")
	v.SetDefault("workers", 8)
	v.SetDefault("auto_start", false)

	v.SetDefault("log.level", string(logger.LevelInfo))
	v.SetDefault("log.format", string(logger.FormatText))
	v.SetDefault("log.color", false)
	v.SetDefault("log.timestamps", true)
	v.SetDefault("log.source", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.compress", false)

	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9090")
	v.SetDefault("audit.sinks", []string{})
}

// Load reads path (TOML) when non-empty, applies NGXVISOR_* environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks required keys and value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.InstallDir == "" {
		errs = append(errs, errors.New("install_dir is required"))
	} else if !filepath.IsAbs(c.InstallDir) {
		errs = append(errs, fmt.Errorf("install_dir must be absolute: %s", c.InstallDir))
	}
	if c.Binary == "" {
		errs = append(errs, errors.New("binary is required"))
	} else if strings.ContainsAny(c.Binary, `/\`) {
		errs = append(errs, fmt.Errorf("binary must be a file name inside install_dir: %s", c.Binary))
	}
	if c.StatusTimeout <= 0 {
		errs = append(errs, errors.New("status_timeout must be positive"))
	}
	if c.MonitorInterval <= 0 {
		errs = append(errs, errors.New("monitor_interval must be positive"))
	}
	if c.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	switch c.Probe {
	case detector.KindListing, detector.KindTable:
	case detector.KindCommand:
		if strings.TrimSpace(c.ProbeCommand) == "" {
			errs = append(errs, errors.New("probe = \"command\" requires probe_command"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown probe %q (listing, table, command)", c.Probe))
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}
