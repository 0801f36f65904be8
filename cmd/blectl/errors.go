package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/blectl/inspector"
	"github.com/srg/blectl/internal/gatt"
	"github.com/srg/blectl/internal/gatt/goble"
)

// Command-level errors
var (
	// ErrCharacteristicNotFound means the handle is not a characteristic of the service.
	ErrCharacteristicNotFound = errors.New("characteristic not found")

	// ErrNotWritable means the characteristic advertises neither write mode.
	ErrNotWritable = errors.New("characteristic is not writable")
)

// FormatUserError renders err for the terminal, replacing controller error
// codes with actionable wording while keeping the cause.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, goble.ErrBluetoothOff):
		return "Bluetooth is turned off; enable it and retry"
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("operation timed out: %v", err)
	case errors.Is(err, inspector.ErrServiceNotFound),
		errors.Is(err, ErrCharacteristicNotFound),
		errors.Is(err, ErrNotWritable):
		return err.Error()
	}

	var gerr *gatt.Error
	if !errors.As(err, &gerr) {
		return err.Error()
	}

	cause := "no details"
	if gerr.Err != nil {
		cause = gerr.Err.Error()
	}

	switch gerr.Code {
	case gatt.UnknownRemoteDeviceError:
		return fmt.Sprintf("device not found or unreachable (%s)", cause)
	case gatt.NetworkError:
		return fmt.Sprintf("service discovery failed (%s)", cause)
	case gatt.CharacteristicReadError:
		return fmt.Sprintf("failed to read characteristic (%s)", cause)
	case gatt.CharacteristicWriteError:
		return fmt.Sprintf("failed to write characteristic (%s)", cause)
	case gatt.DescriptorReadError:
		return fmt.Sprintf("failed to read descriptor (%s)", cause)
	case gatt.UnsupportedPlatformError:
		return "Bluetooth LE is not available on this host"
	case gatt.InvalidStateError:
		return fmt.Sprintf("device is not ready (%s)", cause)
	default:
		return err.Error()
	}
}
