package gatt

import (
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// State is the controller connection state.
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateDiscovering
	StateDiscovered
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDiscovering:
		return "discovering"
	case StateDiscovered:
		return "discovered"
	case StateClosing:
		return "closing"
	default:
		return "unconnected"
	}
}

var errPathNotFound = errors.New("the system cannot find the device path specified")

// Option configures a Controller.
type Option func(*options)

type options struct {
	logger    *logrus.Logger
	supported *bool
}

// WithLogger sets the logger. A new logrus logger is used otherwise.
func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSupported overrides native capability probing.
func WithSupported(supported bool) Option {
	return func(o *options) { o.supported = &supported }
}

// Controller is a GATT client for one remote peripheral.
//
// A Controller is not safe for concurrent use; every method blocks until the
// underlying native calls complete and callers must serialize access.
type Controller struct {
	platform  Platform
	logger    *logrus.Logger
	supported bool

	state    State
	err      *Error
	address  string
	identity Identity
	services *orderedmap.OrderedMap[UUID, *Service]

	handlers []EventHandler
}

// New creates an unconnected controller. Native GATT support is resolved
// once here; an unsupported controller rejects discovery and attribute
// access with UnsupportedPlatformError.
func New(platform Platform, opts ...Option) *Controller {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logrus.New()
	}

	c := &Controller{
		platform: platform,
		logger:   o.logger,
		state:    StateUnconnected,
		services: orderedmap.New[UUID, *Service](),
	}

	switch {
	case o.supported != nil:
		c.supported = *o.supported
	case platform == nil:
		c.supported = false
	default:
		c.supported = true
		if prober, ok := platform.(CapabilityProber); ok {
			if err := prober.Probe(); err != nil {
				c.supported = false
				c.logger.WithField("error", err).Warn("LE is not supported on this platform")
			}
		}
	}
	return c
}

// State returns the current connection state.
func (c *Controller) State() State { return c.state }

// Error returns the code of the last controller error.
func (c *Controller) Error() ErrorCode {
	if c.err == nil {
		return NoError
	}
	return c.err.Code
}

// ErrorString describes the last controller error, empty if none.
func (c *Controller) ErrorString() string {
	if c.err == nil {
		return ""
	}
	return c.err.Error()
}

// Supported reports whether native GATT support was resolved.
func (c *Controller) Supported() bool { return c.supported }

// RemoteAddress returns the address of the last Connect call.
func (c *Controller) RemoteAddress() string { return c.address }

// Services returns discovered services in enumeration order.
func (c *Controller) Services() []*Service {
	result := make([]*Service, 0, c.services.Len())
	for pair := c.services.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// Service looks up a discovered service.
func (c *Controller) Service(uuid UUID) (*Service, bool) {
	return c.services.Get(uuid)
}

// Connect resolves address to a system identity. Calling Connect while
// connected is a no-op.
func (c *Controller) Connect(address string) error {
	c.err = nil

	if strings.TrimSpace(address) == "" {
		c.logger.Warn("Invalid/null remote device address")
		return c.fail(newError(UnknownRemoteDeviceError, "connect", errors.New("remote device address is empty")))
	}

	if c.identity != "" {
		c.logger.WithField("address", c.address).Debug("Already connected")
		return nil
	}

	if c.platform == nil {
		return c.fail(newError(UnsupportedPlatformError, "connect", nil))
	}

	c.address = address
	c.setState(StateConnecting)

	c.logger.WithField("address", address).Debug("Resolving device identity...")
	id, err := c.platform.Resolve(address)
	if err == nil && id == "" {
		err = errPathNotFound
	}
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Warn("Failed to resolve remote device")
		gerr := c.fail(newError(UnknownRemoteDeviceError, "connect", err))
		c.setState(StateUnconnected)
		return gerr
	}

	c.identity = id
	c.setState(StateConnected)
	c.logger.WithField("address", address).Info("Connected")
	c.emit(Event{Kind: EventConnected})
	return nil
}

// Disconnect drops the resolved identity and every discovered service.
// Calling Disconnect while unconnected is a no-op.
func (c *Controller) Disconnect() error {
	if c.identity == "" {
		c.logger.Debug("Already disconnected")
		return nil
	}

	c.setState(StateClosing)

	if releaser, ok := c.platform.(Releaser); ok {
		if err := releaser.Release(c.identity); err != nil {
			c.logger.WithFields(logrus.Fields{
				"address": c.address,
				"error":   err,
			}).Warn("Failed to release device resources")
		}
	}

	c.identity = ""
	c.services = orderedmap.New[UUID, *Service]()
	c.setState(StateUnconnected)
	c.logger.WithField("address", c.address).Info("Disconnected")
	c.emit(Event{Kind: EventDisconnected})
	return nil
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.emit(Event{Kind: EventStateChanged, State: s})
}

// fail records err as the controller error and emits it.
func (c *Controller) fail(err *Error) *Error {
	c.err = err
	c.emit(Event{Kind: EventError, Err: err})
	return err
}

func (c *Controller) setServiceState(svc *Service, s ServiceState) {
	if svc.state == s {
		return
	}
	svc.state = s
	c.emit(Event{Kind: EventServiceStateChanged, Service: svc.uuid, ServiceState: s})
}

func (c *Controller) setServiceError(svc *Service, err *Error) {
	svc.err = err
	c.emit(Event{Kind: EventServiceError, Service: svc.uuid, Err: err})
}

// checkSupported guards discovery and attribute access.
func (c *Controller) checkSupported(op string) error {
	if c.supported {
		return nil
	}
	return c.fail(newError(UnsupportedPlatformError, op, nil))
}

func (c *Controller) closeHandle(h io.Closer) {
	if err := h.Close(); err != nil {
		c.logger.WithField("error", err).Warn("Failed to close native handle")
	}
}
