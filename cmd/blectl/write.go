package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/blectl/inspector"
	"github.com/srg/blectl/internal/gatt"
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <device-address> <service-uuid> <handle> <data>",
	Short: "Write a characteristic value",
	Long: `Writes data to the characteristic declared at <handle> in the given service.

Examples:
  # Write string data
  blectl write AA:BB:CC:DD:EE:FF 1802 0x0021 "high"

  # Write hex data
  blectl write AA:BB:CC:DD:EE:FF 1802 0x0021 02 --hex

  # Write without response (faster, no ACK)
  blectl write AA:BB:CC:DD:EE:FF 1802 0x0021 02 --hex --without-response`,
	Args: cobra.ExactArgs(4),
	RunE: runWrite,
}

var (
	writeHex        bool
	writeNoResponse bool
)

func init() {
	writeCmd.Flags().BoolVar(&writeHex, "hex", false, "Parse input as hex string (e.g., 'FF01'); raw bytes by default")
	writeCmd.Flags().BoolVar(&writeNoResponse, "without-response", false, "Write without response (faster, no ACK); default from config")
}

func runWrite(cmd *cobra.Command, args []string) error {
	address := args[0]

	service, err := gatt.ParseUUID(args[1])
	if err != nil {
		return fmt.Errorf("invalid service UUID %q: %w", args[1], err)
	}
	handle, err := parseHandle(args[2])
	if err != nil {
		return err
	}
	data, err := parseWriteData(args[3])
	if err != nil {
		return fmt.Errorf("failed to parse data: %w", err)
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

	noResponse := writeNoResponse || cfg.WriteMode == "without-response"

	progress := NewProgressPrinter(fmt.Sprintf("Writing %d bytes to 0x%04X on %s", len(data), handle, address),
		inspector.PhaseConnecting, inspector.PhaseProcessing, inspector.PhaseFailed)
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
			mode, err := selectWriteMode(char, noResponse)
			if err != nil {
				return struct{}{}, err
			}
			return struct{}{}, ctrl.WriteCharacteristic(service, handle, data, mode)
		})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Write successful")
	return nil
}

// parseWriteData converts input string to bytes based on format flags
func parseWriteData(dataStr string) ([]byte, error) {
	if writeHex {
		// Remove spaces and common separators
		cleaned := strings.ReplaceAll(dataStr, " ", "")
		cleaned = strings.ReplaceAll(cleaned, ":", "")
		cleaned = strings.ReplaceAll(cleaned, "-", "")
		cleaned = strings.ReplaceAll(cleaned, "0x", "")

		data, err := hex.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		return data, nil
	}

	return []byte(dataStr), nil
}

// selectWriteMode defaults to with-response when supported and falls back
// to without-response when that is all the characteristic offers.
func selectWriteMode(char *gatt.Characteristic, noResponse bool) (gatt.WriteMode, error) {
	props := char.Properties()
	canWrite := props.Has(gatt.PropWrite)
	canWriteNoResponse := props.Has(gatt.PropWriteNoResponse)

	if !canWrite && !canWriteNoResponse {
		return 0, fmt.Errorf("%w: handle 0x%04X (%s)", ErrNotWritable, char.Handle(), props)
	}
	if noResponse || !canWrite {
		return gatt.WriteWithoutResponse, nil
	}
	return gatt.WriteWithResponse, nil
}
