package gatt

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-ble/ble"
	"github.com/google/uuid"
)

// UUID is a 128-bit attribute type identifier. Short-form (16-bit) UUIDs are
// stored embedded in the Bluetooth base UUID.
type UUID [16]byte

// baseUUID is 00000000-0000-1000-8000-00805f9b34fb.
var baseUUID = UUID{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb}

// UUID16 expands a 16-bit SIG-assigned value into its 128-bit form.
func UUID16(v uint16) UUID {
	u := baseUUID
	binary.BigEndian.PutUint16(u[2:4], v)
	return u
}

// ParseUUID accepts "180d", "0x180D", and 128-bit forms with or without
// dashes or braces.
func ParseUUID(s string) (UUID, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")

	compact := strings.NewReplacer("-", "", "{", "", "}", "").Replace(raw)
	switch len(compact) {
	case 4:
		b, err := hex.DecodeString(compact)
		if err != nil {
			return UUID{}, fmt.Errorf("invalid UUID %q: %w", s, err)
		}
		return UUID16(binary.BigEndian.Uint16(b)), nil
	case 32:
		u, err := uuid.Parse(compact)
		if err != nil {
			return UUID{}, fmt.Errorf("invalid UUID %q: %w", s, err)
		}
		return UUID(u), nil
	default:
		return UUID{}, fmt.Errorf("invalid UUID %q: must be 16 or 128 bits", s)
	}
}

// MustParseUUID is like ParseUUID but panics on error.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Short returns the 16-bit form if u is derived from the base UUID.
func (u UUID) Short() (uint16, bool) {
	probe := u
	probe[2], probe[3] = 0, 0
	if probe != baseUUID {
		return 0, false
	}
	return binary.BigEndian.Uint16(u[2:4]), true
}

// IsZero reports whether u is the all-zero UUID.
func (u UUID) IsZero() bool {
	return u == UUID{}
}

// String returns the canonical dashed 128-bit form.
func (u UUID) String() string {
	return uuid.UUID(u).String()
}

// ShortString returns "180d" for base-derived UUIDs and the compact 128-bit
// hex form otherwise.
func (u UUID) ShortString() string {
	if v, ok := u.Short(); ok {
		return fmt.Sprintf("%04x", v)
	}
	return strings.ReplaceAll(u.String(), "-", "")
}

// BLE converts u to the little-endian go-ble representation, using the
// 2-byte form when possible.
func (u UUID) BLE() ble.UUID {
	if v, ok := u.Short(); ok {
		return ble.UUID16(v)
	}
	b := make([]byte, len(u))
	copy(b, u[:])
	return ble.UUID(ble.Reverse(b))
}

// FromBLE converts a go-ble UUID (2 or 16 bytes, little-endian).
func FromBLE(b ble.UUID) (UUID, error) {
	switch len(b) {
	case 2:
		return UUID16(binary.LittleEndian.Uint16(b)), nil
	case 16:
		var u UUID
		copy(u[:], ble.Reverse(b))
		return u, nil
	default:
		return UUID{}, fmt.Errorf("invalid go-ble UUID length %d", len(b))
	}
}
