package testutils

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/srg/blectl/internal/gatt"
)

// DefaultAddress is the address the builder registers when none is given.
const DefaultAddress = "AA:BB:CC:DD:EE:FF"

// DescriptorConfig represents a GATT descriptor of a simulated peripheral.
type DescriptorConfig struct {
	UUID     string `json:"uuid"`
	Handle   uint16 `json:"handle,omitempty"`
	Value    []byte `json:"value,omitempty"`
	FailRead bool   `json:"fail_read,omitempty"`
}

// CharacteristicConfig represents a GATT characteristic of a simulated peripheral.
// Zero handles are assigned sequentially.
type CharacteristicConfig struct {
	UUID            string             `json:"uuid"`
	Handle          uint16             `json:"handle,omitempty"`
	ValueHandle     uint16             `json:"value_handle,omitempty"`
	Properties      string             `json:"properties,omitempty"` // e.g., "read,write,notify"
	Value           []byte             `json:"value,omitempty"`
	FailRead        bool               `json:"fail_read,omitempty"`
	FailWrite       bool               `json:"fail_write,omitempty"`
	FailDescriptors bool               `json:"fail_descriptors,omitempty"`
	Descriptors     []DescriptorConfig `json:"descriptors,omitempty"`
}

// ServiceConfig represents a primary service of a simulated peripheral.
type ServiceConfig struct {
	UUID                string                 `json:"uuid"`
	Handle              uint16                 `json:"handle,omitempty"`
	FailOpen            bool                   `json:"fail_open,omitempty"`
	FailCharacteristics bool                   `json:"fail_characteristics,omitempty"`
	Characteristics     []CharacteristicConfig `json:"characteristics,omitempty"`
}

// DeviceProfileConfig represents the complete simulated peripheral.
type DeviceProfileConfig struct {
	Address  string          `json:"address,omitempty"`
	Services []ServiceConfig `json:"services"`
}

// PeripheralDeviceBuilder builds a FakePlatform hosting one peripheral.
type PeripheralDeviceBuilder struct {
	profile DeviceProfileConfig
}

// NewPeripheralDeviceBuilder creates a new peripheral device builder
func NewPeripheralDeviceBuilder() *PeripheralDeviceBuilder {
	return &PeripheralDeviceBuilder{
		profile: DeviceProfileConfig{
			Address:  DefaultAddress,
			Services: []ServiceConfig{},
		},
	}
}

// WithAddress sets the address the peripheral resolves from.
func (b *PeripheralDeviceBuilder) WithAddress(address string) *PeripheralDeviceBuilder {
	b.profile.Address = address
	return b
}

// WithService adds a service with a sequentially assigned handle.
func (b *PeripheralDeviceBuilder) WithService(uuid string) *PeripheralDeviceBuilder {
	return b.WithServiceAt(uuid, 0)
}

// WithServiceAt adds a service at an explicit attribute handle.
func (b *PeripheralDeviceBuilder) WithServiceAt(uuid string, handle uint16) *PeripheralDeviceBuilder {
	b.profile.Services = append(b.profile.Services, ServiceConfig{
		UUID:            uuid,
		Handle:          handle,
		Characteristics: []CharacteristicConfig{},
	})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralDeviceBuilder) WithCharacteristic(uuid, properties string, value []byte) *PeripheralDeviceBuilder {
	return b.WithCharacteristicAt(uuid, 0, properties, value)
}

// WithCharacteristicAt adds a characteristic at an explicit declaration
// handle to the last added service.
func (b *PeripheralDeviceBuilder) WithCharacteristicAt(uuid string, handle uint16, properties string, value []byte) *PeripheralDeviceBuilder {
	svc := b.lastService("WithCharacteristic")
	svc.Characteristics = append(svc.Characteristics, CharacteristicConfig{
		UUID:       uuid,
		Handle:     handle,
		Properties: properties,
		Value:      value,
	})
	return b
}

// WithDescriptor adds a descriptor to the last added characteristic.
func (b *PeripheralDeviceBuilder) WithDescriptor(uuid string, value []byte) *PeripheralDeviceBuilder {
	return b.WithDescriptorAt(uuid, 0, value)
}

// WithDescriptorAt adds a descriptor at an explicit handle to the last added
// characteristic.
func (b *PeripheralDeviceBuilder) WithDescriptorAt(uuid string, handle uint16, value []byte) *PeripheralDeviceBuilder {
	char := b.lastCharacteristic("WithDescriptor")
	char.Descriptors = append(char.Descriptors, DescriptorConfig{
		UUID:   uuid,
		Handle: handle,
		Value:  value,
	})
	return b
}

// FailingOpen makes opening the last added service fail.
func (b *PeripheralDeviceBuilder) FailingOpen() *PeripheralDeviceBuilder {
	b.lastService("FailingOpen").FailOpen = true
	return b
}

// FailingCharacteristics makes characteristic enumeration of the last added
// service fail.
func (b *PeripheralDeviceBuilder) FailingCharacteristics() *PeripheralDeviceBuilder {
	b.lastService("FailingCharacteristics").FailCharacteristics = true
	return b
}

// FailingRead makes value reads of the last added characteristic fail.
func (b *PeripheralDeviceBuilder) FailingRead() *PeripheralDeviceBuilder {
	b.lastCharacteristic("FailingRead").FailRead = true
	return b
}

// FailingWrite makes writes to the last added characteristic fail.
func (b *PeripheralDeviceBuilder) FailingWrite() *PeripheralDeviceBuilder {
	b.lastCharacteristic("FailingWrite").FailWrite = true
	return b
}

// FailingDescriptors makes descriptor enumeration of the last added
// characteristic fail.
func (b *PeripheralDeviceBuilder) FailingDescriptors() *PeripheralDeviceBuilder {
	b.lastCharacteristic("FailingDescriptors").FailDescriptors = true
	return b
}

// FailingDescriptorRead makes value reads of the last added descriptor fail.
func (b *PeripheralDeviceBuilder) FailingDescriptorRead() *PeripheralDeviceBuilder {
	char := b.lastCharacteristic("FailingDescriptorRead")
	if len(char.Descriptors) == 0 {
		panic("FailingDescriptorRead: no descriptor added yet, call WithDescriptor first")
	}
	char.Descriptors[len(char.Descriptors)-1].FailRead = true
	return b
}

// FromJSON fills the device profile from JSON
func (b *PeripheralDeviceBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralDeviceBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var config DeviceProfileConfig
	if err := json.Unmarshal([]byte(jsonStr), &config); err != nil {
		panic(fmt.Sprintf("PeripheralDeviceBuilder.FromJSON: failed to unmarshal: %v", err))
	}
	if config.Address == "" {
		config.Address = DefaultAddress
	}

	b.profile = config
	return b
}

// Profile returns the configured profile.
func (b *PeripheralDeviceBuilder) Profile() DeviceProfileConfig {
	return b.profile
}

// Build creates a FakePlatform serving the configured peripheral. Handles
// left at zero are assigned in declaration order: service, characteristic
// declaration, characteristic value, then descriptors.
func (b *PeripheralDeviceBuilder) Build() *FakePlatform {
	p := &FakePlatform{
		identities: map[string]gatt.Identity{
			b.profile.Address: IdentityFor(b.profile.Address),
		},
	}

	next := uint16(1)
	assign := func(h uint16) uint16 {
		if h == 0 {
			h = next
		}
		if h >= next {
			next = h + 1
		}
		return h
	}

	for _, sc := range b.profile.Services {
		svc := &fakeService{
			native: gatt.NativeService{
				UUID:            gatt.MustParseUUID(sc.UUID),
				AttributeHandle: assign(sc.Handle),
			},
			failOpen:            sc.FailOpen,
			failCharacteristics: sc.FailCharacteristics,
		}

		for _, cc := range sc.Characteristics {
			handle := assign(cc.Handle)
			valueHandle := cc.ValueHandle
			if valueHandle == 0 {
				valueHandle = handle
				if handle < math.MaxUint16 {
					valueHandle = handle + 1
				}
			}
			assign(valueHandle)

			nc := gatt.NativeCharacteristic{
				ServiceHandle:   svc.native.AttributeHandle,
				AttributeHandle: handle,
				ValueHandle:     valueHandle,
				UUID:            gatt.MustParseUUID(cc.UUID),
			}
			nc.SetProperties(gatt.ParseProperties(cc.Properties))

			char := &fakeCharacteristic{
				native:          nc,
				value:           cc.Value,
				failRead:        cc.FailRead,
				failWrite:       cc.FailWrite,
				failDescriptors: cc.FailDescriptors,
			}
			for _, dc := range cc.Descriptors {
				char.descriptors = append(char.descriptors, &fakeDescriptor{
					native: gatt.NativeDescriptor{
						ServiceHandle:        svc.native.AttributeHandle,
						CharacteristicHandle: handle,
						AttributeHandle:      assign(dc.Handle),
						UUID:                 gatt.MustParseUUID(dc.UUID),
					},
					value:    dc.Value,
					failRead: dc.FailRead,
				})
			}
			svc.characteristics = append(svc.characteristics, char)
		}
		p.services = append(p.services, svc)
	}
	return p
}

// IdentityFor returns the system identity the fake resolves address to.
func IdentityFor(address string) gatt.Identity {
	return gatt.Identity("BTHLEDevice#" + strings.ToLower(strings.ReplaceAll(address, ":", "")))
}

func (b *PeripheralDeviceBuilder) lastService(caller string) *ServiceConfig {
	if len(b.profile.Services) == 0 {
		panic(caller + ": no service added yet, call WithService first")
	}
	return &b.profile.Services[len(b.profile.Services)-1]
}

func (b *PeripheralDeviceBuilder) lastCharacteristic(caller string) *CharacteristicConfig {
	svc := b.lastService(caller)
	if len(svc.Characteristics) == 0 {
		panic(caller + ": no characteristic added yet, call WithCharacteristic first")
	}
	return &svc.Characteristics[len(svc.Characteristics)-1]
}
