package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/ngxvisor/internal/logger"
)

func writeTOML(t *testing.T, data string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "ngxvisor.toml")
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	return file
}

func TestLoad_MinimalAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	file := writeTOML(t, `install_dir = "`+filepath.ToSlash(dir)+`"`)

	c, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, DefaultBinary(), c.Binary)
	assert.Equal(t, filepath.Join("logs", "nginx.pid"), c.PIDFile)
	assert.Equal(t, "nginx-service.log", c.ServiceLog)
	assert.Equal(t, "http://127.0.0.1/nginx_status", c.StatusURL)
	assert.Equal(t, 3*time.Second, c.StatusTimeout)
	assert.Equal(t, 5*time.Second, c.MonitorInterval)
	assert.Equal(t, "listing", c.Probe)
	assert.Equal(t, 8, c.Workers)
	assert.False(t, c.AutoStart)
	assert.Equal(t, "127.0.0.1:8080", c.Server.Listen)
	assert.Equal(t, "/api", c.Server.BasePath)
	assert.Equal(t, logger.LevelInfo, c.Log.Level)
	assert.Empty(t, c.Audit.Sinks)
}

func TestLoad_Full(t *testing.T) {
	dir := t.TempDir()
	file := writeTOML(t, `
install_dir = "`+filepath.ToSlash(dir)+`"
binary = "openresty"
pid_file = "run/openresty.pid"
service_log = "svc.log"
status_url = "http://127.0.0.1:8081/status"
status_timeout = "750ms"
probe = "command"
probe_command = "pgrep -x openresty"
monitor_interval = "2s"
workers = 3
auto_start = true

[log]
level = "debug"
format = "json"
file = "/var/log/ngxvisor/daemon.log"
max_size_mb = 20

[server]
listen = "127.0.0.1:9999"
base_path = "/ngx"

[metrics]
enabled = true
listen = ":9100"

[audit]
sinks = ["sqlite:///var/lib/ngxvisor/audit.db", "opensearch://localhost:9200/ngx-audit"]
`)
	c, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "openresty", c.Binary)
	assert.Equal(t, "run/openresty.pid", c.PIDFile)
	assert.Equal(t, 750*time.Millisecond, c.StatusTimeout)
	assert.Equal(t, "pgrep -x openresty", c.ProbeCommand)
	assert.Equal(t, 2*time.Second, c.MonitorInterval)
	assert.Equal(t, 3, c.Workers)
	assert.True(t, c.AutoStart)
	assert.Equal(t, logger.FormatJSON, c.Log.Format)
	assert.Equal(t, 20, c.Log.MaxSizeMB)
	assert.Equal(t, logger.DefaultMaxBackups, c.Log.MaxBackups)
	assert.Equal(t, "/ngx", c.Server.BasePath)
	assert.True(t, c.Metrics.Enabled)
	assert.Len(t, c.Audit.Sinks, 2)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	file := writeTOML(t, `
install_dir = "/does/not/matter"
workers = 2
[server]
listen = "127.0.0.1:8080"
`)
	t.Setenv("NGXVISOR_INSTALL_DIR", dir)
	t.Setenv("NGXVISOR_WORKERS", "16")
	t.Setenv("NGXVISOR_SERVER_LISTEN", "127.0.0.1:7000")
	t.Setenv("NGXVISOR_MONITOR_INTERVAL", "1s")

	c, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, dir, c.InstallDir)
	assert.Equal(t, 16, c.Workers)
	assert.Equal(t, "127.0.0.1:7000", c.Server.Listen)
	assert.Equal(t, time.Second, c.MonitorInterval)
}

func TestLoad_EnvOnly(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NGXVISOR_INSTALL_DIR", dir)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, c.InstallDir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_BadDuration(t *testing.T) {
	file := writeTOML(t, `
install_dir = "/opt/nginx"
monitor_interval = "soon"
`)
	_, err := Load(file)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			InstallDir:      filepath.Join(string(filepath.Separator), "opt", "nginx"),
			Binary:          "nginx",
			StatusTimeout:   time.Second,
			MonitorInterval: time.Second,
			Workers:         1,
			Probe:           "listing",
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"missing install dir", func(c *Config) { c.InstallDir = "" }, "install_dir is required"},
		{"relative install dir", func(c *Config) { c.InstallDir = "nginx" }, "must be absolute"},
		{"binary with path", func(c *Config) { c.Binary = "sbin/nginx" }, "file name"},
		{"zero timeout", func(c *Config) { c.StatusTimeout = 0 }, "status_timeout"},
		{"negative interval", func(c *Config) { c.MonitorInterval = -time.Second }, "monitor_interval"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"unknown probe", func(c *Config) { c.Probe = "pidfile" }, "unknown probe"},
		{"command without command", func(c *Config) { c.Probe = "command" }, "probe_command"},
		{"metrics without listen", func(c *Config) { c.Metrics.Enabled = true }, "metrics.listen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}
