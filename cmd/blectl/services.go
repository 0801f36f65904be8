package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/srg/blectl/inspector"
	"github.com/srg/blectl/internal/gatt"
)

// servicesCmd represents the services command
var servicesCmd = &cobra.Command{
	Use:   "services <device-address>",
	Short: "List the primary services of a BLE device",
	Long: `Connects to a BLE device and enumerates its primary services without
discovering characteristics. End handles are shown as reported before detail
discovery, so they equal the start handle.

Examples:
  blectl services AA:BB:CC:DD:EE:FF
  blectl services AA:BB:CC:DD:EE:FF --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runServices,
}

var servicesFormat string

func init() {
	servicesCmd.Flags().StringVar(&servicesFormat, "format", "", "Output format: text, json, yaml (default from config)")
}

func runServices(cmd *cobra.Command, args []string) error {
	address := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format := servicesFormat
	if format == "" {
		format = cfg.OutputFormat
	}
	if !inspector.IsFormat(format) {
		return fmt.Errorf("unsupported output format %q (want one of %v)", format, inspector.Formats)
	}

	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	progress := NewProgressPrinter(fmt.Sprintf("Listing services of %s", address), inspector.PhaseConnecting,
		inspector.PhaseProcessing, inspector.PhaseFailed)
	progress.Start()
	defer progress.Stop()

	opts := &inspector.InspectOptions{SkipDetails: true}
	ctx, stop := commandContext(cmd)
	defer stop()

	_, err = inspector.InspectDevice(ctx, newPlatform(cfg, logger), address, opts, logger, progress.Callback(),
		func(ctrl *gatt.Controller) (struct{}, error) {
			profile := inspector.Snapshot(ctrl, nil)
			return struct{}{}, inspector.Write(cmd.OutOrStdout(), profile, format, inspector.TextOptions{})
		})
	return err
}
