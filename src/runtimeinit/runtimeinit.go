package runtimeinit

import (
	"fmt"
	"log"

	"screen-select/src/clipboard"
	"screen-select/src/config"
	"screen-select/src/export"
	"screen-select/src/singleinstance"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// NeedClipboard forces clipboard initialization even when the configured
	// export target does not use it.
	NeedClipboard bool
}

// Bootstrap loads and validates configuration, sets up logging and
// initializes the clipboard when exports will use it.
func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	if _, err := export.ParseFormat(cfg.ExportFormat); err != nil {
		return nil, fmt.Errorf("EXPORT_FORMAT: %w", err)
	}
	singleinstance.SetPortRange(cfg.ResidentPortStart, cfg.ResidentPortEnd)
	log.Printf("Config: env=%q settings=%q hotkey=%s format=%s target=%s dir=%s ports=%d-%d",
		cfg.EnvPath, cfg.SettingsPath, cfg.Hotkey, cfg.ExportFormat, cfg.ExportTarget, cfg.ExportDir,
		cfg.ResidentPortStart, cfg.ResidentPortEnd)

	if opts.NeedClipboard || cfg.ExportTarget != config.TargetFile {
		if err := clipboard.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}

	return cfg, nil
}
