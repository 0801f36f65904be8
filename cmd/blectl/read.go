package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/srg/blectl/inspector"
	"github.com/srg/blectl/internal/gatt"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <device-address> <service-uuid> <handle>",
	Short: "Read a characteristic value",
	Long: `Reads the value of the characteristic declared at <handle> in the given service.
Handles are listed by 'blectl inspect'.

Examples:
  # Read Battery Level (raw bytes)
  blectl read AA:BB:CC:DD:EE:FF 180f 0x0011

  # Output as hex
  blectl read AA:BB:CC:DD:EE:FF 180f 0x0011 --hex`,
	Args: cobra.ExactArgs(3),
	RunE: runRead,
}

var readHex bool

func init() {
	readCmd.Flags().BoolVar(&readHex, "hex", false, "Output as hex string (e.g., 'FF01'); raw bytes by default")
}

func runRead(cmd *cobra.Command, args []string) error {
	address := args[0]

	service, err := gatt.ParseUUID(args[1])
	if err != nil {
		return fmt.Errorf("invalid service UUID %q: %w", args[1], err)
	}
	handle, err := parseHandle(args[2])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	progress := NewProgressPrinter(fmt.Sprintf("Reading 0x%04X from %s", handle, address), inspector.PhaseConnecting,
		inspector.PhaseProcessing, inspector.PhaseFailed)
	progress.Start()
	defer progress.Stop()

	opts := &inspector.InspectOptions{Services: []gatt.UUID{service}}
	ctx, stop := commandContext(cmd)
	defer stop()

	_, err = inspector.InspectDevice(ctx, newPlatform(cfg, logger), address, opts, logger, progress.Callback(),
		func(ctrl *gatt.Controller) (struct{}, error) {
			char, err := lookupCharacteristic(ctrl, service, handle)
			if err != nil {
				return struct{}{}, err
			}
			if err := ctrl.ReadCharacteristic(service, handle); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, printValue(cmd, char.Value())
		})
	return err
}

func printValue(cmd *cobra.Command, value []byte) error {
	out := cmd.OutOrStdout()
	if readHex {
		_, err := fmt.Fprintf(out, "%X\n", value)
		return err
	}
	_, err := out.Write(value)
	return err
}
