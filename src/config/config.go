package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvPathEnvVar      = "SCREEN_SELECT_ENV"
	SettingsPathEnvVar = "SCREEN_SELECT_SETTINGS"
	SettingsFileName   = "screen-select.yaml"

	TargetFile      = "file"
	TargetClipboard = "clipboard"
	TargetBoth      = "both"
)

var ErrInvalidValue = errors.New("invalid configuration value")

type LoadOptions struct {
	EnvPathOverride      string
	SettingsPathOverride string
	ExportFormatOverride string
	ExportTargetOverride string
	ExportDirOverride    string
}

type Config struct {
	Hotkey    string
	CommitKey string
	CancelKey string

	ExportFormat       string
	ExportTarget       string
	ExportDir          string
	JPEGQuality        int
	CaptureDeadlineSec int

	SnapCursor        bool
	EventBuffer       int
	EnableFileLogging bool
	TraceRender       bool

	// Loopback port range a resident binds and select-once scans.
	ResidentPortStart int
	ResidentPortEnd   int

	// Files the values were read from, empty when absent.
	EnvPath      string
	SettingsPath string
}

// Settings is the layout of the optional YAML settings file. Environment
// variables and .env entries take precedence over it.
type Settings struct {
	Hotkey    string `yaml:"hotkey"`
	CommitKey string `yaml:"commit_key"`
	CancelKey string `yaml:"cancel_key"`
	Export    struct {
		Format      string `yaml:"format"`
		Target      string `yaml:"target"`
		Dir         string `yaml:"dir"`
		JPEGQuality int    `yaml:"jpeg_quality"`
		DeadlineSec int    `yaml:"deadline_sec"`
	} `yaml:"export"`
	Resident struct {
		PortStart int `yaml:"port_start"`
		PortEnd   int `yaml:"port_end"`
	} `yaml:"resident"`
	SnapCursor        *bool `yaml:"snap_cursor"`
	EventBuffer       int   `yaml:"event_buffer"`
	EnableFileLogging *bool `yaml:"enable_file_logging"`
	TraceRender       *bool `yaml:"trace_render"`
}

// values flattens the settings into the environment variable namespace.
func (s Settings) values() map[string]string {
	v := map[string]string{
		"HOTKEY":        s.Hotkey,
		"COMMIT_KEY":    s.CommitKey,
		"CANCEL_KEY":    s.CancelKey,
		"EXPORT_FORMAT": s.Export.Format,
		"EXPORT_TARGET": s.Export.Target,
		"EXPORT_DIR":    s.Export.Dir,
	}
	if s.Export.JPEGQuality > 0 {
		v["JPEG_QUALITY"] = strconv.Itoa(s.Export.JPEGQuality)
	}
	if s.Export.DeadlineSec > 0 {
		v["CAPTURE_DEADLINE_SEC"] = strconv.Itoa(s.Export.DeadlineSec)
	}
	if s.Resident.PortStart > 0 {
		v["SCREEN_SELECT_PORT_START"] = strconv.Itoa(s.Resident.PortStart)
	}
	if s.Resident.PortEnd > 0 {
		v["SCREEN_SELECT_PORT_END"] = strconv.Itoa(s.Resident.PortEnd)
	}
	if s.EventBuffer > 0 {
		v["EVENT_BUFFER"] = strconv.Itoa(s.EventBuffer)
	}
	for key, b := range map[string]*bool{
		"SNAP_CURSOR":         s.SnapCursor,
		"ENABLE_FILE_LOGGING": s.EnableFileLogging,
		"TRACE_RENDER":        s.TraceRender,
	} {
		if b != nil {
			v[key] = strconv.FormatBool(*b)
		}
	}
	return v
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) process environment
	// 2) .env next to the executable, or SCREEN_SELECT_ENV
	// 3) screen-select.yaml next to the executable, or SCREEN_SELECT_SETTINGS
	// 4) built-in defaults
	envPath := resolvePath(opts.EnvPathOverride, ".env", EnvPathEnvVar)
	dotenvValues, err := readDotenvValues(envPath)
	if err != nil {
		return nil, err
	}

	settingsPath := resolvePath(opts.SettingsPathOverride, SettingsFileName, SettingsPathEnvVar)
	settings, err := readSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	fileValues := settings.values()
	get := func(key, def string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		if v := strings.TrimSpace(dotenvValues[key]); v != "" {
			return v
		}
		if v := strings.TrimSpace(fileValues[key]); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Hotkey:             get("HOTKEY", "Ctrl+Alt+A"),
		CommitKey:          get("COMMIT_KEY", "enter"),
		CancelKey:          get("CANCEL_KEY", "esc"),
		ExportFormat:       strings.ToLower(get("EXPORT_FORMAT", "png")),
		ExportTarget:       strings.ToLower(get("EXPORT_TARGET", TargetFile)),
		ExportDir:          get("EXPORT_DIR", "."),
		JPEGQuality:        positiveInt(get("JPEG_QUALITY", ""), 90),
		CaptureDeadlineSec: positiveInt(get("CAPTURE_DEADLINE_SEC", ""), 10),
		SnapCursor:         parseBool(get("SNAP_CURSOR", "true")),
		EventBuffer:        positiveInt(get("EVENT_BUFFER", ""), 1024),
		EnableFileLogging:  parseBool(get("ENABLE_FILE_LOGGING", "false")),
		TraceRender:        parseBool(get("TRACE_RENDER", "false")),
		ResidentPortStart:  positiveInt(get("SCREEN_SELECT_PORT_START", ""), 49600),
		ResidentPortEnd:    positiveInt(get("SCREEN_SELECT_PORT_END", ""), 49650),
		EnvPath:            envPath,
		SettingsPath:       settingsPath,
	}

	if v := strings.TrimSpace(opts.ExportFormatOverride); v != "" {
		cfg.ExportFormat = strings.ToLower(v)
	}
	if v := strings.TrimSpace(opts.ExportTargetOverride); v != "" {
		cfg.ExportTarget = strings.ToLower(v)
	}
	if v := strings.TrimSpace(opts.ExportDirOverride); v != "" {
		cfg.ExportDir = v
	}

	switch cfg.ExportTarget {
	case TargetFile, TargetClipboard, TargetBoth:
	default:
		return nil, fmt.Errorf("%w: EXPORT_TARGET=%q (want file, clipboard or both)", ErrInvalidValue, cfg.ExportTarget)
	}
	if cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("%w: JPEG_QUALITY=%d", ErrInvalidValue, cfg.JPEGQuality)
	}

	return cfg, nil
}

// resolvePath returns override, else name next to the executable, else the
// path in envVar, whichever exists first.
func resolvePath(override, name, envVar string) string {
	if override != "" {
		return override
	}
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if alt := os.Getenv(envVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}
	return ""
}

func readDotenvValues(envPath string) (map[string]string, error) {
	if envPath == "" {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(envPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", envPath, err)
	}
	return values, nil
}

func readSettings(path string) (Settings, error) {
	var s Settings
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return s, nil
}

func positiveInt(value string, def int) int {
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return n
	}
	return def
}

func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
