package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// CleanupCommand configures one VRAM cleanup backend: a command the guard
// runs during cleanup passes, with an optional alternative argument vector
// for forced passes.
type CleanupCommand struct {
	Name      string   `json:"name" yaml:"name" toml:"name"`
	Bin       string   `json:"bin" yaml:"bin" toml:"bin"`
	Args      []string `json:"args" yaml:"args" toml:"args"`
	ForceArgs []string `json:"force_args" yaml:"force_args" toml:"force_args"`
}

// VRAMConfig holds the guard's tunables. Zero values mean "unspecified" and
// fall back to the guard's defaults.
type VRAMConfig struct {
	Enabled         bool             `json:"enabled" yaml:"enabled" toml:"enabled"`
	PollSeconds     int              `json:"poll_seconds" yaml:"poll_seconds" toml:"poll_seconds"`
	WarningPct      float64          `json:"warning_pct" yaml:"warning_pct" toml:"warning_pct"`
	CriticalPct     float64          `json:"critical_pct" yaml:"critical_pct" toml:"critical_pct"`
	AutoCleanupPct  float64          `json:"auto_cleanup_pct" yaml:"auto_cleanup_pct" toml:"auto_cleanup_pct"`
	PredictivePct   float64          `json:"predictive_pct" yaml:"predictive_pct" toml:"predictive_pct"`
	CooldownSeconds int              `json:"cooldown_seconds" yaml:"cooldown_seconds" toml:"cooldown_seconds"`
	HistorySize     int              `json:"history_size" yaml:"history_size" toml:"history_size"`
	NvidiaSMIBin    string           `json:"nvidia_smi_bin" yaml:"nvidia_smi_bin" toml:"nvidia_smi_bin"`
	Cleanup         []CleanupCommand `json:"cleanup" yaml:"cleanup" toml:"cleanup"`
}

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr                 string     `json:"addr" yaml:"addr" toml:"addr"`
	ToolsPath            string     `json:"tools_path" yaml:"tools_path" toml:"tools_path"`
	LogLevel             string     `json:"log_level" yaml:"log_level" toml:"log_level"`
	BufferMaxSize        int        `json:"buffer_max_size" yaml:"buffer_max_size" toml:"buffer_max_size"`
	DisplayThreshold     int        `json:"display_threshold" yaml:"display_threshold" toml:"display_threshold"`
	StopGraceSeconds     int        `json:"stop_grace_seconds" yaml:"stop_grace_seconds" toml:"stop_grace_seconds"`
	MaxRestarts          int        `json:"max_restarts" yaml:"max_restarts" toml:"max_restarts"`
	RestartWindowSeconds int        `json:"restart_window_seconds" yaml:"restart_window_seconds" toml:"restart_window_seconds"`
	RestartDelaySeconds  int        `json:"restart_delay_seconds" yaml:"restart_delay_seconds" toml:"restart_delay_seconds"`
	CORSEnabled          bool       `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins          []string   `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	VRAM                 VRAMConfig `json:"vram" yaml:"vram" toml:"vram"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
