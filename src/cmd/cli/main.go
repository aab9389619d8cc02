package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screen-select/src/clipboard"
	"screen-select/src/config"
	"screen-select/src/export"
	"screen-select/src/geometry"
	"screen-select/src/inputhook"
	"screen-select/src/logutil"
	"screen-select/src/monitor"
	"screen-select/src/overlay"
	"screen-select/src/screenshot"
	"screen-select/src/session"
	"screen-select/src/uitree"
)

type cliOptions struct {
	verbose      bool
	envPath      string
	settingsPath string

	format    string
	output    string
	clipboard bool

	jsonOutput bool

	x, y int
	copy bool
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
		args = []string{"screen-select-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-select-cli",
		Short:         "Select, inspect and export screen regions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Configure logging BEFORE any other operations.
			if opts.verbose {
				logutil.Verbose(os.Stderr)
			} else {
				log.SetOutput(io.Discard)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.PersistentFlags().StringVar(&opts.envPath, "env", "", "Path to .env file")
	cmd.PersistentFlags().StringVar(&opts.settingsPath, "settings", "", "Path to YAML settings file")

	cmd.AddCommand(newSelectCmd(opts), newMonitorsCmd(opts), newProbeCmd(opts))
	return cmd
}

func newSelectCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select a region interactively and export it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd.Context(), *opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "", "Export format: png, jpeg, bmp or pdf (default from config or --output extension)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file ('-' for stdout, default a timestamped file in the export directory)")
	cmd.Flags().BoolVar(&opts.clipboard, "clipboard", false, "Also copy the capture to the clipboard")
	return cmd
}

func newMonitorsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitors",
		Short: "List monitors with their physical bounds and scale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			monitors, err := monitor.List()
			if err != nil {
				return err
			}
			return writeMonitors(cmd.OutOrStdout(), monitors, opts.jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func newProbeCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Show the element rectangle and pixel color at a physical point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(*opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&opts.x, "x", 0, "Physical X coordinate")
	cmd.Flags().IntVar(&opts.y, "y", 0, "Physical Y coordinate")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "Copy the pixel color to the clipboard as #rrggbb")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
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
		for _, name := range []string{"format", "output", "clipboard", "verbose", "json", "copy", "env", "settings"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

func (o cliOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithOptions(config.LoadOptions{
		EnvPathOverride:      o.envPath,
		SettingsPathOverride: o.settingsPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Config loaded: env=%q settings=%q\n", cfg.EnvPath, cfg.SettingsPath)
	}
	return cfg, nil
}

// resolveFormat picks the export format: the flag, then the output file
// extension, then the configured default.
func resolveFormat(flag, output, configured string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	if output != "" && output != "-" {
		if f, err := export.FormatForPath(output); err == nil {
			return f, nil
		}
	}
	return export.ParseFormat(configured)
}

// selectTarget builds the delivery for the select command. saved reports the
// written path for file output.
func selectTarget(opts cliOptions, cfg *config.Config, format export.Format, out io.Writer) (session.ResultTarget, func() string) {
	exportOpts := export.Options{Format: format, Quality: cfg.JPEGQuality}
	saved := func() string { return "" }

	var targets export.MultiTarget
	if opts.output == "-" {
		targets = append(targets, export.StreamTarget{W: out, Options: exportOpts})
	} else {
		file := &export.FileTarget{Dir: cfg.ExportDir, Path: opts.output, Options: exportOpts}
		saved = func() string { return file.Saved }
		targets = append(targets, file)
	}
	if opts.clipboard {
		targets = append(targets, export.ClipboardTarget{})
	}
	if len(targets) == 1 {
		return targets[0], saved
	}
	return targets, saved
}

func runSelect(ctx context.Context, opts cliOptions, out io.Writer) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	format, err := resolveFormat(opts.format, opts.output, cfg.ExportFormat)
	if err != nil {
		return err
	}
	if opts.clipboard {
		if err := clipboard.Init(); err != nil {
			return fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := inputhook.NewHub()
	if err := hub.Start(); err != nil {
		return fmt.Errorf("failed to start input hook: %w", err)
	}
	defer hub.Stop()

	selector, err := overlay.NewSelector(overlay.ConfigOptions(cfg, hub))
	if err != nil {
		return err
	}

	target, saved := selectTarget(opts, cfg, format, out)
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Selecting; %s to commit, %s or right-click to cancel\n", cfg.CommitKey, cfg.CancelKey)
	}

	startTime := time.Now()
	capture, err := session.Execute(ctx, session.ExecuteOptions{
		Deadline:     time.Duration(cfg.CaptureDeadlineSec) * time.Second,
		SelectRegion: selector.Select,
		Target:       target,
	})
	if err != nil {
		return err
	}

	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Captured %s in %v\n", capture.Region, time.Since(startTime))
	}
	if path := saved(); path != "" {
		fmt.Fprintln(out, path)
	}
	return nil
}

type MonitorResult struct {
	Index   int     `json:"index"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScaleX  float64 `json:"scale_x"`
	ScaleY  float64 `json:"scale_y"`
	Primary bool    `json:"primary"`
}

func writeMonitors(w io.Writer, monitors []monitor.Info, jsonOutput bool) error {
	if !jsonOutput {
		for _, m := range monitors {
			fmt.Fprintln(w, m)
		}
		return nil
	}

	results := make([]MonitorResult, 0, len(monitors))
	for _, m := range monitors {
		b := m.PhysicalBounds
		results = append(results, MonitorResult{
			Index: m.Index, X: b.X, Y: b.Y, Width: b.Width, Height: b.Height,
			ScaleX: m.ScaleX, ScaleY: m.ScaleY, Primary: m.Primary,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

type ProbeResult struct {
	X       int            `json:"x"`
	Y       int            `json:"y"`
	Element *geometry.Rect `json:"element,omitempty"`
	Color   string         `json:"color,omitempty"`
}

func (r ProbeResult) String() string {
	element := "none"
	if r.Element != nil {
		element = r.Element.String()
	}
	c := r.Color
	if c == "" {
		c = "unavailable"
	}
	return fmt.Sprintf("point (%d,%d) element %s color %s", r.X, r.Y, element, c)
}

// probe hit-tests a snapshot of the element tree and samples the pixel at a
// physical point.
func probe(provider uitree.Provider, sampler *screenshot.Sampler, bounds geometry.Rect, x, y int) ProbeResult {
	res := ProbeResult{X: x, Y: y}

	cache := uitree.NewCache(provider)
	cache.Snapshot(bounds)
	defer cache.Release()
	if r := cache.GetByPoint(float64(x), float64(y)); !r.IsZeroArea() {
		res.Element = &r
	}

	if c, ok := sampler.ColorAt(x, y); ok {
		res.Color = hexColor(c)
	}
	return res
}

func hexColor(c color.Color) string {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

func runProbe(opts cliOptions, out io.Writer) error {
	monitors, err := monitor.List()
	if err != nil {
		return err
	}
	bounds := monitor.VirtualBounds(monitors)
	if !bounds.Contains(float64(opts.x), float64(opts.y)) {
		return fmt.Errorf("point (%d,%d) is outside the virtual screen %s", opts.x, opts.y, bounds)
	}

	sampler, err := screenshot.CaptureSampler()
	if err != nil {
		log.Printf("probe: pixel sampling unavailable: %v", err)
	}
	res := probe(uitree.NewPlatformProvider(), sampler, bounds, opts.x, opts.y)

	if opts.copy && res.Color != "" {
		if err := clipboard.Init(); err != nil {
			return fmt.Errorf("failed to initialize clipboard: %w", err)
		}
		if err := clipboard.Write(res.Color); err != nil {
			return fmt.Errorf("failed to copy color: %w", err)
		}
	}

	if opts.jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(res)
	}
	_, err = fmt.Fprintln(out, res)
	return err
}
