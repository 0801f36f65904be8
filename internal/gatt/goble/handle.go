package goble

import (
	"fmt"
	"io"

	"github.com/go-ble/ble"
	"github.com/srg/blectl/internal/gatt"
)

// handle scopes attribute calls to a peer and optionally one service. Query
// results fetched by the sizing call are stashed here until the fill call.
type handle struct {
	peer    *peer
	service *ble.Service
	access  gatt.Access
	closed  bool

	services    []*ble.Service
	chars       []*ble.Characteristic
	descriptors map[uint16][]*ble.Descriptor
	descErrs    map[uint16]error
	values      map[uint16][]byte
}

func (h *handle) Close() error {
	if h.closed {
		return ErrClosedHandle
	}
	h.closed = true
	h.services, h.chars, h.descriptors, h.descErrs, h.values = nil, nil, nil, nil, nil
	return nil
}

func handleOf(c io.Closer) (*handle, error) {
	h, ok := c.(*handle)
	if !ok {
		return nil, fmt.Errorf("foreign attribute handle %T", c)
	}
	if h.closed {
		return nil, ErrClosedHandle
	}
	return h, nil
}

func (h *handle) stashValue(attr uint16, v []byte) {
	if h.values == nil {
		h.values = make(map[uint16][]byte)
	}
	h.values[attr] = v
}

// takeValue returns a value stashed by a previous sizing call.
func (h *handle) takeValue(attr uint16) ([]byte, bool) {
	v, ok := h.values[attr]
	if ok {
		delete(h.values, attr)
	}
	return v, ok
}

// fill applies the growable-buffer convention to a complete result.
func fill[T, S any](buf []T, items []S, conv func(S) T) (int, error) {
	if len(buf) < len(items) {
		return len(items), gatt.ErrMoreData
	}
	for i, it := range items {
		buf[i] = conv(it)
	}
	return len(items), nil
}

// fillValue applies the convention to a byte value, stashing it when the
// buffer is too small.
func (h *handle) fillValue(attr uint16, buf []byte, v []byte) (int, error) {
	if len(buf) < len(v) {
		h.stashValue(attr, v)
		return len(v), gatt.ErrMoreData
	}
	return copy(buf, v), nil
}

func (p *Platform) Services(c io.Closer, buf []gatt.NativeService) (int, error) {
	h, err := handleOf(c)
	if err != nil {
		return 0, err
	}
	if h.services == nil {
		services, err := h.peer.discoverServices()
		if err != nil {
			return 0, err
		}
		h.services = services
	}
	return fill(buf, h.services, func(s *ble.Service) gatt.NativeService {
		u, err := gatt.FromBLE(s.UUID)
		if err != nil {
			p.logger.WithField("error", err).Warn("Service with malformed UUID")
		}
		return gatt.NativeService{UUID: u, AttributeHandle: s.Handle}
	})
}

func (p *Platform) Characteristics(c io.Closer, _ *gatt.NativeService, buf []gatt.NativeCharacteristic) (int, error) {
	h, err := handleOf(c)
	if err != nil {
		return 0, err
	}
	if h.service == nil {
		return 0, fmt.Errorf("characteristic enumeration needs a service handle")
	}
	if h.chars == nil {
		chars, err := h.peer.client.DiscoverCharacteristics(nil, h.service)
		if err != nil {
			return 0, NormalizeError(err)
		}
		for _, ch := range chars {
			if ch.Handle == 0 {
				h.layout(ch)
				continue
			}
			if ch.ValueHandle == 0 {
				ch.ValueHandle = ch.Handle + 1
			}
			h.peer.index(ch.Handle, ch)
			h.peer.index(ch.ValueHandle, ch)
		}
		h.chars = chars
	}
	return fill(buf, h.chars, func(ch *ble.Characteristic) gatt.NativeCharacteristic {
		u, err := gatt.FromBLE(ch.UUID)
		if err != nil {
			p.logger.WithField("error", err).Warn("Characteristic with malformed UUID")
		}
		nc := gatt.NativeCharacteristic{
			ServiceHandle:   h.service.Handle,
			AttributeHandle: ch.Handle,
			ValueHandle:     ch.ValueHandle,
			UUID:            u,
		}
		nc.SetProperties(gatt.PropertiesFromBLE(ch.Property))
		return nc
	})
}

// layout assigns handles to a characteristic reported without any, in
// attribute layout order: declaration, value, then its descriptors. The
// descriptors are discovered right away so the next characteristic starts
// after them; a discovery failure is kept for the Descriptors call.
func (h *handle) layout(ch *ble.Characteristic) {
	ch.Handle = h.peer.reserve(2)
	ch.ValueHandle = ch.Handle + 1
	h.peer.index(ch.Handle, ch)
	h.peer.index(ch.ValueHandle, ch)

	descs, err := h.peer.client.DiscoverDescriptors(nil, ch)
	if err != nil {
		if h.descErrs == nil {
			h.descErrs = make(map[uint16]error)
		}
		h.descErrs[ch.Handle] = NormalizeError(err)
		return
	}
	h.indexDescriptors(ch.Handle, descs)
}

func (h *handle) indexDescriptors(char uint16, descs []*ble.Descriptor) {
	for _, d := range descs {
		d.Handle = h.peer.index(d.Handle, d)
	}
	if h.descriptors == nil {
		h.descriptors = make(map[uint16][]*ble.Descriptor)
	}
	h.descriptors[char] = descs
}

func (p *Platform) CharacteristicValue(c io.Closer, nc *gatt.NativeCharacteristic, buf []byte) (int, error) {
	h, err := handleOf(c)
	if err != nil {
		return 0, err
	}
	if v, ok := h.takeValue(nc.AttributeHandle); ok {
		return h.fillValue(nc.AttributeHandle, buf, v)
	}

	ch, err := h.peer.characteristic(nc.AttributeHandle)
	if err != nil {
		return 0, err
	}
	v, err := h.peer.client.ReadCharacteristic(ch)
	if err != nil {
		return 0, NormalizeError(err)
	}
	return h.fillValue(nc.AttributeHandle, buf, v)
}

func (p *Platform) SetCharacteristicValue(c io.Closer, nc *gatt.NativeCharacteristic, payload []byte, flags gatt.WriteFlags) error {
	h, err := handleOf(c)
	if err != nil {
		return err
	}
	if h.access != gatt.AccessReadWrite {
		return ErrReadOnlyHandle
	}
	ch, err := h.peer.characteristic(nc.AttributeHandle)
	if err != nil {
		return err
	}
	value, err := gatt.DecodeValue(payload)
	if err != nil {
		return err
	}
	noRsp := flags&gatt.WriteFlagWithoutResponse != 0
	return NormalizeError(h.peer.client.WriteCharacteristic(ch, value, noRsp))
}

func (p *Platform) Descriptors(c io.Closer, nc *gatt.NativeCharacteristic, buf []gatt.NativeDescriptor) (int, error) {
	h, err := handleOf(c)
	if err != nil {
		return 0, err
	}
	if err, failed := h.descErrs[nc.AttributeHandle]; failed {
		return 0, err
	}
	descs, ok := h.descriptors[nc.AttributeHandle]
	if !ok {
		ch, err := h.peer.characteristic(nc.AttributeHandle)
		if err != nil {
			return 0, err
		}
		descs, err = h.peer.client.DiscoverDescriptors(nil, ch)
		if err != nil {
			return 0, NormalizeError(err)
		}
		h.indexDescriptors(nc.AttributeHandle, descs)
	}
	if len(descs) == 0 {
		return 0, gatt.ErrNotFound
	}
	return fill(buf, descs, func(d *ble.Descriptor) gatt.NativeDescriptor {
		u, err := gatt.FromBLE(d.UUID)
		if err != nil {
			p.logger.WithField("error", err).Warn("Descriptor with malformed UUID")
		}
		return gatt.NativeDescriptor{
			ServiceHandle:        nc.ServiceHandle,
			CharacteristicHandle: nc.AttributeHandle,
			AttributeHandle:      d.Handle,
			UUID:                 u,
		}
	})
}

func (p *Platform) DescriptorValue(c io.Closer, nd *gatt.NativeDescriptor, buf []byte) (int, error) {
	h, err := handleOf(c)
	if err != nil {
		return 0, err
	}
	if v, ok := h.takeValue(nd.AttributeHandle); ok {
		return h.fillValue(nd.AttributeHandle, buf, v)
	}

	d, err := h.peer.descriptor(nd.AttributeHandle)
	if err != nil {
		return 0, err
	}
	if len(d.Value) > 0 {
		return h.fillValue(nd.AttributeHandle, buf, d.Value)
	}
	v, err := h.peer.client.ReadDescriptor(d)
	if err != nil {
		return 0, NormalizeError(err)
	}
	return h.fillValue(nd.AttributeHandle, buf, v)
}
