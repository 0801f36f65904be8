// Package goble implements gatt.Platform on top of the go-ble stack.
//
// go-ble exposes discovery as plain calls returning complete slices. The
// platform adapts them to the growable-buffer convention: the first call of a
// query performs the remote operation and stashes the result on the handle,
// reporting the required size; the follow-up call copies the stash out.
package goble

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blectl/internal/gatt"
)

// DefaultConnectTimeout bounds the dial performed by Resolve.
const DefaultConnectTimeout = 10 * time.Second

// Client is the subset of ble.Client the platform drives.
type Client interface {
	DiscoverServices(filter []ble.UUID) ([]*ble.Service, error)
	DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error)
	DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error)
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	ReadDescriptor(d *ble.Descriptor) ([]byte, error)
	CancelConnection() error
}

// DialFunc connects to the peripheral at address.
type DialFunc func(ctx context.Context, address string) (Client, error)

// DeviceFactory creates the host ble.Device (can be overridden in tests)
var DeviceFactory = newHostDevice

// Option configures a Platform.
type Option func(*Platform)

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(p *Platform) { p.logger = logger }
}

// WithConnectTimeout bounds each dial.
func WithConnectTimeout(d time.Duration) Option {
	return func(p *Platform) { p.timeout = d }
}

// WithDialer replaces the go-ble dialer.
func WithDialer(dial DialFunc) Option {
	return func(p *Platform) { p.dial = dial }
}

// Platform is a gatt.Platform backed by go-ble. Each resolved identity owns
// one live client connection until Release.
type Platform struct {
	logger  *logrus.Logger
	timeout time.Duration
	dial    DialFunc

	hostOnce sync.Once
	hostErr  error

	peers *hashmap.Map[gatt.Identity, *peer]
}

// peer is one connected peripheral.
type peer struct {
	address string
	client  Client

	mu       sync.Mutex
	services []*ble.Service
	attrs    *hashmap.Map[uint16, any] // *ble.Characteristic or *ble.Descriptor
	synth    uint16
}

// NewPlatform creates a go-ble platform.
func NewPlatform(opts ...Option) *Platform {
	p := &Platform{
		timeout: DefaultConnectTimeout,
		peers:   hashmap.New[gatt.Identity, *peer](),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logrus.New()
	}
	if p.dial == nil {
		p.dial = p.dialHost
	}
	return p
}

// Probe opens the host device once and installs it as the go-ble default.
func (p *Platform) Probe() error {
	p.hostOnce.Do(func() {
		dev, err := DeviceFactory()
		if err != nil {
			p.hostErr = NormalizeError(err)
			return
		}
		ble.SetDefaultDevice(dev)
	})
	return p.hostErr
}

func (p *Platform) dialHost(ctx context.Context, address string) (Client, error) {
	if err := p.Probe(); err != nil {
		return nil, err
	}
	return ble.Dial(ctx, ble.NewAddr(address))
}

// Resolve dials the peripheral and returns its identity. A peripheral that
// cannot be reached resolves to an error; the identity is never empty on
// success.
func (p *Platform) Resolve(address string) (gatt.Identity, error) {
	id := identityOf(address)
	if _, ok := p.peers.Get(id); ok {
		return id, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	p.logger.WithFields(logrus.Fields{
		"address": address,
		"timeout": p.timeout,
	}).Debug("Dialing BLE device...")

	client, err := p.dial(ctx, address)
	if err != nil {
		return "", fmt.Errorf("failed to connect to device with address %q: %w", address, NormalizeError(err))
	}

	p.peers.Set(id, &peer{
		address: address,
		client:  client,
		attrs:   hashmap.New[uint16, any](),
	})
	return id, nil
}

// Release drops the client connection of id.
func (p *Platform) Release(id gatt.Identity) error {
	pr, ok := p.peers.Get(id)
	if !ok {
		return nil
	}
	p.peers.Del(id)

	if err := pr.client.CancelConnection(); err != nil {
		return NormalizeError(err)
	}
	p.logger.WithField("address", pr.address).Debug("BLE connection cancelled")
	return nil
}

// OpenDevice returns a handle for service enumeration.
func (p *Platform) OpenDevice(id gatt.Identity, access gatt.Access) (io.Closer, error) {
	pr, err := p.peer(id)
	if err != nil {
		return nil, err
	}
	return &handle{peer: pr, access: access}, nil
}

// OpenService returns a handle scoped to one service.
func (p *Platform) OpenService(id gatt.Identity, service gatt.UUID, access gatt.Access) (io.Closer, error) {
	pr, err := p.peer(id)
	if err != nil {
		return nil, err
	}
	svc, err := pr.service(service)
	if err != nil {
		return nil, err
	}
	return &handle{peer: pr, service: svc, access: access}, nil
}

func (p *Platform) peer(id gatt.Identity) (*peer, error) {
	pr, ok := p.peers.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, id)
	}
	return pr, nil
}

// service finds a service by UUID, enumerating once if needed.
func (pr *peer) service(uuid gatt.UUID) (*ble.Service, error) {
	pr.mu.Lock()
	cached := pr.services
	pr.mu.Unlock()

	if cached == nil {
		if _, err := pr.discoverServices(); err != nil {
			return nil, err
		}
		pr.mu.Lock()
		cached = pr.services
		pr.mu.Unlock()
	}

	target := uuid.BLE()
	for _, s := range cached {
		if s.UUID.Equal(target) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("service %s not found on %s", uuid.ShortString(), pr.address)
}

func (pr *peer) discoverServices() ([]*ble.Service, error) {
	services, err := pr.client.DiscoverServices(nil)
	if err != nil {
		return nil, NormalizeError(err)
	}
	pr.mu.Lock()
	pr.services = services
	pr.mu.Unlock()
	return services, nil
}

// index records an attribute under its handle, synthesizing one when the
// stack reports none.
func (pr *peer) index(h uint16, attr any) uint16 {
	if h == 0 {
		h = pr.reserve(1)
	}
	pr.attrs.Set(h, attr)
	return h
}

// reserve returns the first of n consecutive synthesized handles that are
// all unused. Reserved handles are only marked taken once indexed.
func (pr *peer) reserve(n uint16) uint16 {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	for {
		start := pr.synth + 1
		free := true
		for i := uint16(0); i < n; i++ {
			if _, taken := pr.attrs.Get(start + i); taken {
				pr.synth = start + i
				free = false
				break
			}
		}
		if free {
			pr.synth = start + n - 1
			return start
		}
	}
}

func (pr *peer) characteristic(h uint16) (*ble.Characteristic, error) {
	if attr, ok := pr.attrs.Get(h); ok {
		if c, ok := attr.(*ble.Characteristic); ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no characteristic at handle 0x%04x", h)
}

func (pr *peer) descriptor(h uint16) (*ble.Descriptor, error) {
	if attr, ok := pr.attrs.Get(h); ok {
		if d, ok := attr.(*ble.Descriptor); ok {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no descriptor at handle 0x%04x", h)
}

func identityOf(address string) gatt.Identity {
	return gatt.Identity(strings.ToUpper(strings.TrimSpace(address)))
}

var (
	_ gatt.Platform         = (*Platform)(nil)
	_ gatt.CapabilityProber = (*Platform)(nil)
	_ gatt.Releaser         = (*Platform)(nil)
	_ Client                = (ble.Client)(nil)
)
