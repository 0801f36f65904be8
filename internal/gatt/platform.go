package gatt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Identity is the opaque system identity a device address resolves to.
// The empty Identity means resolution failed.
type Identity string

// Access is the intent a native handle is opened with.
type Access int

const (
	AccessRead Access = iota
	AccessReadWrite
)

func (a Access) String() string {
	if a == AccessReadWrite {
		return "read-write"
	}
	return "read"
}

// WriteFlags select native write behaviour.
type WriteFlags uint32

const (
	WriteFlagNone WriteFlags = 0
	// WriteFlagWithoutResponse issues a write command instead of a write
	// request; the peripheral sends no acknowledgement.
	WriteFlagWithoutResponse WriteFlags = 1 << 2
)

// NativeService is a primary service record as enumerated by the platform.
type NativeService struct {
	UUID            UUID
	AttributeHandle uint16
}

// NativeCharacteristic is a characteristic record as enumerated by the
// platform. Capabilities are reported as independent booleans.
type NativeCharacteristic struct {
	ServiceHandle   uint16
	AttributeHandle uint16
	ValueHandle     uint16
	UUID            UUID

	IsBroadcastable           bool
	IsReadable                bool
	IsWritable                bool
	IsWritableWithoutResponse bool
	IsSignedWritable          bool
	IsNotifiable              bool
	IsIndicatable             bool
	HasExtendedProperties     bool
}

// NativeDescriptor is a descriptor record as enumerated by the platform.
type NativeDescriptor struct {
	ServiceHandle        uint16
	CharacteristicHandle uint16
	AttributeHandle      uint16
	UUID                 UUID
}

// Properties decodes the capability booleans.
func (nc *NativeCharacteristic) Properties() Properties {
	var ps Properties
	if nc.HasExtendedProperties {
		ps |= PropExtendedProperties
	}
	if nc.IsBroadcastable {
		ps |= PropBroadcast
	}
	if nc.IsIndicatable {
		ps |= PropIndicate
	}
	if nc.IsNotifiable {
		ps |= PropNotify
	}
	if nc.IsReadable {
		ps |= PropRead
	}
	if nc.IsSignedWritable {
		ps |= PropWriteSigned
	}
	if nc.IsWritable {
		ps |= PropWrite
	}
	if nc.IsWritableWithoutResponse {
		ps |= PropWriteNoResponse
	}
	return ps
}

// SetProperties encodes ps into the capability booleans.
func (nc *NativeCharacteristic) SetProperties(ps Properties) {
	nc.HasExtendedProperties = ps.Has(PropExtendedProperties)
	nc.IsBroadcastable = ps.Has(PropBroadcast)
	nc.IsIndicatable = ps.Has(PropIndicate)
	nc.IsNotifiable = ps.Has(PropNotify)
	nc.IsReadable = ps.Has(PropRead)
	nc.IsSignedWritable = ps.Has(PropWriteSigned)
	nc.IsWritable = ps.Has(PropWrite)
	nc.IsWritableWithoutResponse = ps.Has(PropWriteNoResponse)
}

// Resolver maps a device address to its connectable system identity.
type Resolver interface {
	Resolve(address string) (Identity, error)
}

// Opener acquires native handles. Callers close every handle they open.
type Opener interface {
	OpenDevice(id Identity, access Access) (io.Closer, error)
	OpenService(id Identity, service UUID, access Access) (io.Closer, error)
}

// AttributeAPI is the growable-buffer query surface of the platform.
//
// Every enumeration and value call follows the same convention: given a
// buffer of capacity C it returns (N, ErrMoreData) when N > C items are
// needed, (K, nil) after filling K <= C items, or (0, err) on failure.
type AttributeAPI interface {
	Services(h io.Closer, buf []NativeService) (int, error)
	Characteristics(h io.Closer, svc *NativeService, buf []NativeCharacteristic) (int, error)
	CharacteristicValue(h io.Closer, c *NativeCharacteristic, buf []byte) (int, error)
	SetCharacteristicValue(h io.Closer, c *NativeCharacteristic, payload []byte, flags WriteFlags) error
	Descriptors(h io.Closer, c *NativeCharacteristic, buf []NativeDescriptor) (int, error)
	DescriptorValue(h io.Closer, d *NativeDescriptor, buf []byte) (int, error)
}

// Platform bundles everything the controller consumes from the native stack.
type Platform interface {
	Resolver
	Opener
	AttributeAPI
}

// CapabilityProber is implemented by platforms that must check native GATT
// support before use. It is probed once, when the controller is created.
type CapabilityProber interface {
	Probe() error
}

// Releaser is implemented by platforms holding per-identity resources that
// must be torn down on disconnect.
type Releaser interface {
	Release(id Identity) error
}

// valuePrefixLen is the size of the length header on write payloads.
const valuePrefixLen = 4

// EncodeValue frames v as a 4-byte little-endian length followed by v.
func EncodeValue(v []byte) []byte {
	payload := make([]byte, valuePrefixLen+len(v))
	binary.LittleEndian.PutUint32(payload, uint32(len(v)))
	copy(payload[valuePrefixLen:], v)
	return payload
}

// DecodeValue reverses EncodeValue.
func DecodeValue(payload []byte) ([]byte, error) {
	if len(payload) < valuePrefixLen {
		return nil, fmt.Errorf("value payload too short: %d bytes", len(payload))
	}
	n := binary.LittleEndian.Uint32(payload)
	if int(n) != len(payload)-valuePrefixLen {
		return nil, fmt.Errorf("value payload length mismatch: header %d, data %d", n, len(payload)-valuePrefixLen)
	}
	return payload[valuePrefixLen:], nil
}
