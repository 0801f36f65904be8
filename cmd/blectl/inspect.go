package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blectl/inspector"
	"github.com/srg/blectl/internal/gatt"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <device-address>",
	Short: "Inspect services, characteristics, and descriptors of a BLE device",
	Long: `Connects to a BLE device by address and discovers its services,
characteristics, and descriptors, including the inferred handle range of every
service. Characteristic and descriptor values fetched during discovery are shown
as hex with an ASCII preview; well-known descriptors are decoded.

A service that fails discovery is reported as needs-rediscovery. Restricting the
inspection with --service turns such a failure into an error.

Examples:
  blectl inspect AA:BB:CC:DD:EE:FF
  blectl inspect AA:BB:CC:DD:EE:FF --service 180d,180f
  blectl inspect AA:BB:CC:DD:EE:FF --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectServices  string
	inspectFormat    string
	inspectReadLimit int
	inspectColor     string
)

func init() {
	inspectCmd.Flags().StringVar(&inspectServices, "service", "", "Service UUID(s) to inspect, comma-separated; default all")
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "", "Output format: text, json, yaml (default from config)")
	inspectCmd.Flags().IntVar(&inspectReadLimit, "read-limit", 64, "Max value bytes shown per characteristic (0 for no limit)")
	inspectCmd.Flags().StringVar(&inspectColor, "color", "auto", "Colorize text output: auto, always, never")
}

func runInspect(cmd *cobra.Command, args []string) error {
	address := args[0]

	services, err := parseServiceUUIDs(inspectServices)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format := inspectFormat
	if format == "" {
		format = cfg.OutputFormat
	}
	if !inspector.IsFormat(format) {
		return fmt.Errorf("unsupported output format %q (want one of %v)", format, inspector.Formats)
	}

	var colored bool
	switch inspectColor {
	case "auto":
		colored = !color.NoColor
	case "always":
		colored = true
	case "never":
		colored = false
	default:
		return fmt.Errorf("invalid --color value %q (must be auto, always, or never)", inspectColor)
	}

	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	progress := NewProgressPrinter(fmt.Sprintf("Inspecting device %s", address), inspector.PhaseConnecting,
		inspector.PhaseProcessing, inspector.PhaseFailed)
	progress.Start()
	defer progress.Stop()

	opts := &inspector.InspectOptions{Services: services}
	ctx, stop := commandContext(cmd)
	defer stop()

	_, err = inspector.InspectDevice(ctx, newPlatform(cfg, logger), address, opts, logger, progress.Callback(),
		func(ctrl *gatt.Controller) (struct{}, error) {
			profile := inspector.Snapshot(ctrl, &inspector.SnapshotOptions{
				Services:  services,
				ReadLimit: inspectReadLimit,
			})
			return struct{}{}, inspector.Write(cmd.OutOrStdout(), profile, format, inspector.TextOptions{Color: colored})
		})
	return err
}
