package testutils

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/srg/blectl/internal/gatt"
)

// ErrSimulated is returned by every injected native failure.
var ErrSimulated = errors.New("simulated native failure")

// WriteRecord captures one SetCharacteristicValue call.
type WriteRecord struct {
	Handle uint16
	Value  []byte
	Flags  gatt.WriteFlags
}

type fakeDescriptor struct {
	native   gatt.NativeDescriptor
	value    []byte
	failRead bool
}

type fakeCharacteristic struct {
	native          gatt.NativeCharacteristic
	value           []byte
	failRead        bool
	failWrite       bool
	failDescriptors bool
	descriptors     []*fakeDescriptor
}

type fakeService struct {
	native              gatt.NativeService
	failOpen            bool
	failCharacteristics bool
	characteristics     []*fakeCharacteristic
}

// FakePlatform is an in-memory gatt.Platform. It follows the native
// growable-buffer convention exactly and counts every handle it hands out so
// tests can assert that none leak.
//
// Fault injection fields may be changed between controller calls.
type FakePlatform struct {
	mu sync.Mutex

	identities map[string]gatt.Identity
	services   []*fakeService

	ProbeErr      error // returned by Probe
	ResolveErr    error // returned by Resolve
	OpenDeviceErr error // returned by OpenDevice
	ServicesErr   error // returned by Services after the size query

	// ResizeTwice makes enumeration calls request a larger buffer on every
	// call, violating the query protocol.
	ResizeTwice bool

	opened   int
	closed   int
	calls    []string
	writes   []WriteRecord
	released []gatt.Identity
}

type fakeHandle struct {
	p       *FakePlatform
	service *fakeService // nil for device handles
	access  gatt.Access
	closed  bool
}

func (h *fakeHandle) Close() error {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	if h.closed {
		return fmt.Errorf("handle closed twice")
	}
	h.closed = true
	h.p.closed++
	return nil
}

// Probe implements gatt.CapabilityProber.
func (p *FakePlatform) Probe() error {
	return p.ProbeErr
}

// Resolve implements gatt.Resolver. Unknown addresses resolve to the empty
// identity.
func (p *FakePlatform) Resolve(address string) (gatt.Identity, error) {
	p.record("Resolve")
	if p.ResolveErr != nil {
		return "", p.ResolveErr
	}
	return p.identities[address], nil
}

// Release implements gatt.Releaser.
func (p *FakePlatform) Release(id gatt.Identity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, id)
	return nil
}

func (p *FakePlatform) OpenDevice(id gatt.Identity, access gatt.Access) (io.Closer, error) {
	p.record("OpenDevice")
	if p.OpenDeviceErr != nil {
		return nil, p.OpenDeviceErr
	}
	if !p.knownIdentity(id) {
		return nil, fmt.Errorf("no device with identity %q", id)
	}
	return p.open(nil, access), nil
}

func (p *FakePlatform) OpenService(id gatt.Identity, service gatt.UUID, access gatt.Access) (io.Closer, error) {
	p.record("OpenService")
	if !p.knownIdentity(id) {
		return nil, fmt.Errorf("no device with identity %q", id)
	}
	svc := p.findService(service)
	if svc == nil {
		return nil, fmt.Errorf("no service %s", service)
	}
	if svc.failOpen {
		return nil, ErrSimulated
	}
	return p.open(svc, access), nil
}

func (p *FakePlatform) Services(h io.Closer, buf []gatt.NativeService) (int, error) {
	p.record("Services")
	if _, err := p.handle(h); err != nil {
		return 0, err
	}
	items := make([]gatt.NativeService, 0, len(p.services))
	for _, s := range p.services {
		items = append(items, s.native)
	}
	if n, err := p.sizeCheck(len(buf), len(items)); err != nil {
		return n, err
	}
	if p.ServicesErr != nil {
		return 0, p.ServicesErr
	}
	return copy(buf, items), nil
}

func (p *FakePlatform) Characteristics(h io.Closer, _ *gatt.NativeService, buf []gatt.NativeCharacteristic) (int, error) {
	p.record("Characteristics")
	fh, err := p.handle(h)
	if err != nil {
		return 0, err
	}
	if fh.service == nil {
		return 0, fmt.Errorf("characteristics need a service handle")
	}
	if fh.service.failCharacteristics {
		return 0, ErrSimulated
	}
	items := make([]gatt.NativeCharacteristic, 0, len(fh.service.characteristics))
	for _, c := range fh.service.characteristics {
		items = append(items, c.native)
	}
	if n, err := p.sizeCheck(len(buf), len(items)); err != nil {
		return n, err
	}
	return copy(buf, items), nil
}

func (p *FakePlatform) CharacteristicValue(h io.Closer, c *gatt.NativeCharacteristic, buf []byte) (int, error) {
	p.record("CharacteristicValue")
	fh, err := p.handle(h)
	if err != nil {
		return 0, err
	}
	fc := fh.characteristic(c.AttributeHandle)
	if fc == nil {
		return 0, fmt.Errorf("no characteristic at handle %d", c.AttributeHandle)
	}
	if fc.failRead {
		return 0, ErrSimulated
	}
	if len(buf) < len(fc.value) {
		return len(fc.value), gatt.ErrMoreData
	}
	return copy(buf, fc.value), nil
}

func (p *FakePlatform) SetCharacteristicValue(h io.Closer, c *gatt.NativeCharacteristic, payload []byte, flags gatt.WriteFlags) error {
	p.record("SetCharacteristicValue")
	fh, err := p.handle(h)
	if err != nil {
		return err
	}
	if fh.access != gatt.AccessReadWrite {
		return fmt.Errorf("handle opened read-only")
	}
	fc := fh.characteristic(c.AttributeHandle)
	if fc == nil {
		return fmt.Errorf("no characteristic at handle %d", c.AttributeHandle)
	}
	if fc.failWrite {
		return ErrSimulated
	}
	value, err := gatt.DecodeValue(payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fc.value = append([]byte(nil), value...)
	p.writes = append(p.writes, WriteRecord{Handle: c.AttributeHandle, Value: fc.value, Flags: flags})
	return nil
}

func (p *FakePlatform) Descriptors(h io.Closer, c *gatt.NativeCharacteristic, buf []gatt.NativeDescriptor) (int, error) {
	p.record("Descriptors")
	fh, err := p.handle(h)
	if err != nil {
		return 0, err
	}
	fc := fh.characteristic(c.AttributeHandle)
	if fc == nil {
		return 0, fmt.Errorf("no characteristic at handle %d", c.AttributeHandle)
	}
	if fc.failDescriptors {
		return 0, ErrSimulated
	}
	if len(fc.descriptors) == 0 {
		return 0, gatt.ErrNotFound
	}
	items := make([]gatt.NativeDescriptor, 0, len(fc.descriptors))
	for _, d := range fc.descriptors {
		items = append(items, d.native)
	}
	if n, err := p.sizeCheck(len(buf), len(items)); err != nil {
		return n, err
	}
	return copy(buf, items), nil
}

func (p *FakePlatform) DescriptorValue(h io.Closer, d *gatt.NativeDescriptor, buf []byte) (int, error) {
	p.record("DescriptorValue")
	fh, err := p.handle(h)
	if err != nil {
		return 0, err
	}
	fc := fh.characteristic(d.CharacteristicHandle)
	if fc == nil {
		return 0, fmt.Errorf("no characteristic at handle %d", d.CharacteristicHandle)
	}
	for _, fd := range fc.descriptors {
		if fd.native.AttributeHandle != d.AttributeHandle {
			continue
		}
		if fd.failRead {
			return 0, ErrSimulated
		}
		if len(buf) < len(fd.value) {
			return len(fd.value), gatt.ErrMoreData
		}
		return copy(buf, fd.value), nil
	}
	return 0, fmt.Errorf("no descriptor at handle %d", d.AttributeHandle)
}

// OpenHandles returns the number of handles opened but not yet closed.
func (p *FakePlatform) OpenHandles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened - p.closed
}

// HandlesOpened returns the total number of handles handed out.
func (p *FakePlatform) HandlesOpened() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened
}

// Calls returns the native calls made so far, in order.
func (p *FakePlatform) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// CallCount returns how many times the named native call was made.
func (p *FakePlatform) CallCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Writes returns the recorded characteristic writes.
func (p *FakePlatform) Writes() []WriteRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]WriteRecord(nil), p.writes...)
}

// Released returns the identities passed to Release.
func (p *FakePlatform) Released() []gatt.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]gatt.Identity(nil), p.released...)
}

// SetPeripheralValue changes the value the peripheral reports for the
// characteristic at handle.
func (p *FakePlatform) SetPeripheralValue(handle uint16, value []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.services {
		for _, c := range s.characteristics {
			if c.native.AttributeHandle == handle {
				c.value = value
			}
		}
	}
}

// FailCharacteristicRead toggles value read failures for one characteristic.
func (p *FakePlatform) FailCharacteristicRead(handle uint16, fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.services {
		for _, c := range s.characteristics {
			if c.native.AttributeHandle == handle {
				c.failRead = fail
			}
		}
	}
}

// FailCharacteristicWrite toggles write failures for one characteristic.
func (p *FakePlatform) FailCharacteristicWrite(handle uint16, fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.services {
		for _, c := range s.characteristics {
			if c.native.AttributeHandle == handle {
				c.failWrite = fail
			}
		}
	}
}

// FailServiceOpen toggles OpenService failures for one service.
func (p *FakePlatform) FailServiceOpen(service gatt.UUID, fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.services {
		if s.native.UUID == service {
			s.failOpen = fail
		}
	}
}

func (p *FakePlatform) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *FakePlatform) open(svc *fakeService, access gatt.Access) *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened++
	return &fakeHandle{p: p, service: svc, access: access}
}

func (p *FakePlatform) handle(h io.Closer) (*fakeHandle, error) {
	fh, ok := h.(*fakeHandle)
	if !ok || fh.p != p {
		return nil, fmt.Errorf("foreign handle %T", h)
	}
	if fh.closed {
		return nil, fmt.Errorf("use of closed handle")
	}
	return fh, nil
}

func (p *FakePlatform) knownIdentity(id gatt.Identity) bool {
	for _, known := range p.identities {
		if known == id {
			return true
		}
	}
	return false
}

func (p *FakePlatform) findService(uuid gatt.UUID) *fakeService {
	for _, s := range p.services {
		if s.native.UUID == uuid {
			return s
		}
	}
	return nil
}

// sizeCheck applies the growable-buffer convention for a list of n items.
func (p *FakePlatform) sizeCheck(capacity, n int) (int, error) {
	if p.ResizeTwice {
		return capacity + 1, gatt.ErrMoreData
	}
	if capacity < n {
		return n, gatt.ErrMoreData
	}
	return 0, nil
}

func (h *fakeHandle) characteristic(handle uint16) *fakeCharacteristic {
	if h.service == nil {
		return nil
	}
	for _, c := range h.service.characteristics {
		if c.native.AttributeHandle == handle {
			return c
		}
	}
	return nil
}
