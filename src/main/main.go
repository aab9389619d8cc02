package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screen-select/src/config"
	"screen-select/src/eventloop"
	"screen-select/src/export"
	"screen-select/src/inputhook"
	"screen-select/src/logutil"
	"screen-select/src/monitor"
	"screen-select/src/notification"
	"screen-select/src/overlay"
	"screen-select/src/runtimeinit"
	"screen-select/src/session"
	"screen-select/src/singleinstance"
	"screen-select/src/tray"
)

type mainOptions struct {
	selectOnce   bool
	delivery     string
	format       string
	envPath      string
	settingsPath string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screen-select"}
	}

	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-select",
		Short:         "Resident screen region selector",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.selectOnce {
				return runSelectOnce(*opts)
			}
			return runResident(*opts)
		},
	}

	cmd.Flags().BoolVar(&opts.selectOnce, "select-once", false, "Select one region, deliver it and exit (delegates to a running resident)")
	cmd.Flags().StringVar(&opts.delivery, "delivery", "file", "Where --select-once delivers the capture: file, clipboard or stdout")
	cmd.Flags().StringVar(&opts.format, "format", "", "Export format: png, jpeg, bmp or pdf")
	cmd.Flags().StringVar(&opts.envPath, "env", "", "Path to .env file")
	cmd.Flags().StringVar(&opts.settingsPath, "settings", "", "Path to YAML settings file")

	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to their GNU form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"select-once", "delivery", "format", "env", "settings"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

func (o mainOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		EnvPathOverride:      o.envPath,
		SettingsPathOverride: o.settingsPath,
		ExportFormatOverride: o.format,
	}
}

func parseDelivery(s string) (singleinstance.Delivery, error) {
	d := singleinstance.Delivery(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case singleinstance.DeliverFile, singleinstance.DeliverClipboard, singleinstance.DeliverStdout:
		return d, nil
	}
	return "", fmt.Errorf("unknown delivery %q (want file, clipboard or stdout)", s)
}

func runSelectOnce(opts mainOptions) error {
	delivery, err := parseDelivery(opts.delivery)
	if err != nil {
		return err
	}
	if opts.format != "" {
		if _, err := export.ParseFormat(opts.format); err != nil {
			return err
		}
	}

	// Bootstrap applies the configured port range before the delegation scan.
	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:   opts.loadOptions(),
		SetupLogging:  logutil.Setup,
		NeedClipboard: delivery == singleinstance.DeliverClipboard,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	req := singleinstance.Request{Delivery: delivery, Format: opts.format}
	return handleSelectOnceWithDelegation(ctx, req, singleinstance.NewClient(), os.Stdout, func() error {
		return selectStandalone(ctx, cfg, req, os.Stdout)
	})
}

// handleSelectOnceWithDelegation hands req to a resident when one answers and
// runs fallback otherwise. A resident's own error is final.
func handleSelectOnceWithDelegation(ctx context.Context, req singleinstance.Request, client singleinstance.Client, out io.Writer, fallback func() error) error {
	delegated, payload, err := client.TrySelect(ctx, req)
	if !delegated {
		if err != nil {
			log.Printf("Delegation error: %v; falling back to standalone", err)
		} else {
			log.Printf("No resident detected, running standalone")
		}
		return fallback()
	}
	if err != nil {
		return err
	}
	log.Printf("Delegated to resident")

	switch req.Delivery {
	case singleinstance.DeliverStdout:
		_, err = out.Write(payload)
		return err
	case singleinstance.DeliverFile:
		_, err = fmt.Fprintln(out, string(payload))
		return err
	}
	return nil
}

func selectStandalone(ctx context.Context, cfg *config.Config, req singleinstance.Request, out io.Writer) error {
	hub := inputhook.NewHub()
	if err := hub.Start(); err != nil {
		return fmt.Errorf("failed to start input hook: %w", err)
	}
	defer hub.Stop()

	selector, err := overlay.NewSelector(overlay.ConfigOptions(cfg, hub))
	if err != nil {
		return err
	}

	exportOpts := export.Options{Format: export.PNG, Quality: cfg.JPEGQuality}
	if f, err := export.ParseFormat(cfg.ExportFormat); err == nil {
		exportOpts.Format = f
	}
	if req.Format != "" {
		if exportOpts.Format, err = export.ParseFormat(req.Format); err != nil {
			return err
		}
	}

	var target session.ResultTarget
	var file *export.FileTarget
	switch req.Delivery {
	case singleinstance.DeliverStdout:
		target = export.StreamTarget{W: out, Options: exportOpts}
	case singleinstance.DeliverClipboard:
		target = export.ClipboardTarget{}
	default:
		file = &export.FileTarget{Dir: cfg.ExportDir, Options: exportOpts}
		target = file
	}

	_, err = session.Execute(ctx, session.ExecuteOptions{
		Deadline:     time.Duration(cfg.CaptureDeadlineSec) * time.Second,
		SelectRegion: selector.Select,
		Target:       target,
	})
	if err != nil {
		return err
	}
	if file != nil {
		fmt.Fprintln(out, file.Saved)
	}
	return nil
}

func runResident(opts mainOptions) error {
	// DPI awareness must precede any window or metrics query.
	enableDPIAwareness()

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  opts.loadOptions(),
		SetupLogging: logutil.Setup,
	})
	if err != nil {
		return err
	}

	preflight, cancelPreflight := context.WithTimeout(context.Background(), time.Second)
	port, found := singleinstance.DetectResidentPort(preflight)
	cancelPreflight()
	if found {
		log.Printf("Pre-flight: resident already answering on port %d", port)
		fmt.Printf("one is already running on port %d\n", port)
		return nil
	}

	logMonitorConfiguration()

	hub := inputhook.NewHub()
	if err := hub.Start(); err != nil {
		notification.ShowBlockingError("Input hook unavailable", fmt.Sprintf("Could not install the global input hook: %v", err))
		return err
	}
	defer hub.Stop()

	selector, err := overlay.NewSelector(overlay.ConfigOptions(cfg, hub))
	if err != nil {
		return err
	}

	loop, err := eventloop.New(eventloop.Options{Config: cfg, Selector: selector})
	if err != nil {
		return err
	}
	tooltip := fmt.Sprintf("Screen Select - Press %s to capture", cfg.Hotkey)
	loop.SetDefaultTooltip(tooltip)

	ctx, cancel := signalContext()
	defer cancel()

	keys, unsubscribe := hub.Keys(64)
	defer unsubscribe()
	if err := loop.StartHotkey(ctx, keys, cfg.Hotkey); err != nil {
		return fmt.Errorf("invalid hotkey: %w", err)
	}

	tray.SetAboutExtra("Hotkey", cfg.Hotkey)
	tray.SetAboutExtra("Export", fmt.Sprintf("%s to %s", cfg.ExportFormat, cfg.ExportTarget))
	trayIcon, err := tray.New(tray.Config{
		Title:     "Screen Select",
		Tooltip:   tooltip,
		OnCapture: loop.TriggerCapture,
		OnExit:    cancel,
	})
	if err != nil {
		return err
	}
	go trayIcon.Run()
	defer trayIcon.Destroy()

	log.Printf("Screen Select initialized, hotkey %s", cfg.Hotkey)

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("event loop stopped: %v", err)
		return err
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func logMonitorConfiguration() {
	monitors, err := monitor.List()
	if err != nil {
		log.Printf("MONITOR: enumeration failed: %v", err)
		return
	}
	log.Printf("MONITOR: Detected %d monitors on %s", len(monitors), runtime.GOOS)
	for _, m := range monitors {
		log.Printf("MONITOR: %s", m)
	}
	log.Printf("MONITOR: Virtual screen %s", monitor.VirtualBounds(monitors))
}
