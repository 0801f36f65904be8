package gatt

import (
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ServiceType distinguishes primary from secondary services.
type ServiceType int

const (
	PrimaryService ServiceType = iota
	SecondaryService
)

func (t ServiceType) String() string {
	if t == SecondaryService {
		return "secondary"
	}
	return "primary"
}

// ServiceState tracks detail discovery of a single service.
type ServiceState int

const (
	ServiceNotDiscovered ServiceState = iota
	ServiceDiscovering
	ServiceDiscovered
	ServiceNeedsRediscovery
)

func (s ServiceState) String() string {
	switch s {
	case ServiceDiscovering:
		return "discovering"
	case ServiceDiscovered:
		return "discovered"
	case ServiceNeedsRediscovery:
		return "needs-rediscovery"
	default:
		return "not-discovered"
	}
}

// ----------------------------
// Descriptor
// ----------------------------

// Descriptor is a cached descriptor attribute.
type Descriptor struct {
	uuid   UUID
	handle uint16
	value  []byte
}

func (d *Descriptor) UUID() UUID     { return d.uuid }
func (d *Descriptor) Handle() uint16 { return d.handle }

// Value returns the cached value. The returned slice is READ-ONLY.
func (d *Descriptor) Value() []byte { return d.value }

// ----------------------------
// Characteristic
// ----------------------------

// Characteristic is a cached characteristic and its descriptors.
type Characteristic struct {
	uuid        UUID
	handle      uint16
	valueHandle uint16
	properties  Properties
	value       []byte
	descriptors *orderedmap.OrderedMap[uint16, *Descriptor]
}

func newCharacteristic(nc *NativeCharacteristic) *Characteristic {
	return &Characteristic{
		uuid:        nc.UUID,
		handle:      nc.AttributeHandle,
		valueHandle: nc.ValueHandle,
		properties:  nc.Properties(),
		descriptors: orderedmap.New[uint16, *Descriptor](),
	}
}

func (c *Characteristic) UUID() UUID             { return c.uuid }
func (c *Characteristic) Handle() uint16         { return c.handle }
func (c *Characteristic) ValueHandle() uint16    { return c.valueHandle }
func (c *Characteristic) Properties() Properties { return c.properties }

// Value returns the cached value, empty if it was never fetched or the
// fetch failed. The returned slice is READ-ONLY.
func (c *Characteristic) Value() []byte { return c.value }

// Descriptors returns the descriptors in handle order.
func (c *Characteristic) Descriptors() []*Descriptor {
	result := make([]*Descriptor, 0, c.descriptors.Len())
	for pair := c.descriptors.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// Descriptor looks up a descriptor by attribute handle.
func (c *Characteristic) Descriptor(handle uint16) (*Descriptor, bool) {
	return c.descriptors.Get(handle)
}

// ----------------------------
// Service
// ----------------------------

// Service is a discovered service. Characteristics are populated by
// Controller.DiscoverServiceDetails.
type Service struct {
	uuid        UUID
	typ         ServiceType
	startHandle uint16
	endHandle   uint16
	state       ServiceState
	err         *Error

	characteristics *orderedmap.OrderedMap[uint16, *Characteristic]
}

func newService(ns *NativeService) *Service {
	return &Service{
		uuid:            ns.UUID,
		typ:             PrimaryService,
		startHandle:     ns.AttributeHandle,
		endHandle:       ns.AttributeHandle,
		characteristics: orderedmap.New[uint16, *Characteristic](),
	}
}

func (s *Service) UUID() UUID          { return s.uuid }
func (s *Service) Type() ServiceType   { return s.typ }
func (s *Service) StartHandle() uint16 { return s.startHandle }

// EndHandle is inferred from the highest characteristic and descriptor
// handles seen during detail discovery.
func (s *Service) EndHandle() uint16   { return s.endHandle }
func (s *Service) State() ServiceState { return s.state }

// Error returns the last service-level error code.
func (s *Service) Error() ErrorCode {
	if s.err == nil {
		return NoError
	}
	return s.err.Code
}

// LastError returns the last service-level error, nil if none.
func (s *Service) LastError() error {
	if s.err == nil {
		return nil
	}
	return s.err
}

// Characteristics returns the characteristics in handle order.
func (s *Service) Characteristics() []*Characteristic {
	result := make([]*Characteristic, 0, s.characteristics.Len())
	for pair := s.characteristics.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// Characteristic looks up a characteristic by attribute handle.
func (s *Service) Characteristic(handle uint16) (*Characteristic, bool) {
	return s.characteristics.Get(handle)
}

// native rebuilds the platform service record.
func (s *Service) native() NativeService {
	return NativeService{UUID: s.uuid, AttributeHandle: s.startHandle}
}

// nativeCharacteristic rebuilds the platform characteristic record from
// cached metadata.
func (s *Service) nativeCharacteristic(c *Characteristic) NativeCharacteristic {
	nc := NativeCharacteristic{
		ServiceHandle:   s.startHandle,
		AttributeHandle: c.handle,
		ValueHandle:     c.valueHandle,
		UUID:            c.uuid,
	}
	nc.SetProperties(c.properties)
	return nc
}

// extendEnd raises the end handle, never lowering it.
func (s *Service) extendEnd(h uint16) {
	s.endHandle = max(s.endHandle, h)
}

// nextHandle returns h+1, saturating at the top of the handle space.
func nextHandle(h uint16) uint16 {
	if h == math.MaxUint16 {
		return h
	}
	return h + 1
}
