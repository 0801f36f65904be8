package goble

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBluetoothOff means the host radio is powered off.
	ErrBluetoothOff = errors.New("bluetooth is turned off")

	// ErrNotConnected means the link to the peripheral is gone.
	ErrNotConnected = errors.New("device not connected")

	// ErrClosedHandle is returned when a handle is used after Close.
	ErrClosedHandle = errors.New("use of closed attribute handle")

	// ErrReadOnlyHandle is returned when writing through a read-only handle.
	ErrReadOnlyHandle = errors.New("attribute handle opened read-only")
)

// NormalizeError maps known go-ble error strings to the sentinels above.
// The original error is kept in the chain.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case msg == "central manager has invalid state: have=4 want=5: is Bluetooth turned on?":
		return fmt.Errorf("%w: %v", ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "bluetooth is turned off"):
		return fmt.Errorf("%w: %v", ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "device not connected"):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	case containsIgnoreCase(msg, "disconnected"):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	default:
		return err
	}
}

// containsIgnoreCase checks the substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
