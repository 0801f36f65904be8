package gatt

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// WriteMode selects between write requests and write commands.
type WriteMode int

const (
	WriteWithResponse WriteMode = iota
	WriteWithoutResponse
)

func (m WriteMode) String() string {
	if m == WriteWithoutResponse {
		return "without-response"
	}
	return "with-response"
}

// lookup resolves a cached characteristic. A miss is a stale local
// reference, not a remote fault, and is reported only in the log.
func (c *Controller) lookup(service UUID, handle uint16) (*Service, *Characteristic, bool) {
	svc, ok := c.services.Get(service)
	if !ok {
		c.logger.WithField("service_uuid", service.ShortString()).Debug("Access to unknown service ignored")
		return nil, nil, false
	}
	char, ok := svc.characteristics.Get(handle)
	if !ok {
		c.logger.WithFields(logrus.Fields{
			"service_uuid": service.ShortString(),
			"handle":       handle,
		}).Debug("Access to unknown characteristic ignored")
		return nil, nil, false
	}
	return svc, char, true
}

// ReadCharacteristic fetches the value of a cached characteristic and
// updates the cache. Handles absent from the cache are ignored. Capability
// flags are advisory: a characteristic not advertising Read is still read.
func (c *Controller) ReadCharacteristic(service UUID, handle uint16) error {
	const op = "read characteristic"

	if err := c.checkSupported(op); err != nil {
		return err
	}

	svc, char, ok := c.lookup(service, handle)
	if !ok {
		return nil
	}

	if !char.properties.Has(PropRead) {
		c.logger.WithField("handle", handle).Warn("Reading non-readable characteristic")
	}

	value, err := c.fetchValue(svc, char)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"service_uuid": svc.uuid.ShortString(),
			"char_uuid":    char.uuid.ShortString(),
			"error":        err,
		}).Warn("Unable to get value for characteristic")
		gerr := newError(CharacteristicReadError, op, err)
		c.setServiceError(svc, gerr)
		return gerr
	}

	char.value = value
	c.emit(Event{Kind: EventCharacteristicRead, Service: svc.uuid, Handle: handle, Value: value})
	return nil
}

func (c *Controller) fetchValue(svc *Service, char *Characteristic) ([]byte, error) {
	h, err := c.platform.OpenService(c.identity, svc.uuid, AccessRead)
	if err != nil {
		return nil, fmt.Errorf("open service %s: %w", svc.uuid.ShortString(), err)
	}
	defer c.closeHandle(h)

	nc := svc.nativeCharacteristic(char)
	return runQuery(func(buf []byte) (int, error) {
		return c.platform.CharacteristicValue(h, &nc, buf)
	})
}

// WriteCharacteristic writes value to a cached characteristic. Handles
// absent from the cache are ignored. A CharacteristicWritten event follows a
// successful WriteWithResponse only; WriteWithoutResponse is fire-and-forget.
func (c *Controller) WriteCharacteristic(service UUID, handle uint16, value []byte, mode WriteMode) error {
	const op = "write characteristic"

	if err := c.checkSupported(op); err != nil {
		return err
	}

	svc, char, ok := c.lookup(service, handle)
	if !ok {
		return nil
	}

	if err := c.storeValue(svc, char, value, mode); err != nil {
		c.logger.WithFields(logrus.Fields{
			"service_uuid": svc.uuid.ShortString(),
			"char_uuid":    char.uuid.ShortString(),
			"mode":         mode.String(),
			"error":        err,
		}).Warn("Unable to set value for characteristic")
		gerr := newError(CharacteristicWriteError, op, err)
		c.setServiceError(svc, gerr)
		return gerr
	}

	char.value = append([]byte(nil), value...)
	if mode == WriteWithResponse {
		c.emit(Event{Kind: EventCharacteristicWritten, Service: svc.uuid, Handle: handle, Value: char.value})
	}
	return nil
}

func (c *Controller) storeValue(svc *Service, char *Characteristic, value []byte, mode WriteMode) error {
	h, err := c.platform.OpenService(c.identity, svc.uuid, AccessReadWrite)
	if err != nil {
		return fmt.Errorf("open service %s: %w", svc.uuid.ShortString(), err)
	}
	defer c.closeHandle(h)

	flags := WriteFlagNone
	if mode == WriteWithoutResponse {
		flags = WriteFlagWithoutResponse
	}

	nc := svc.nativeCharacteristic(char)
	return c.platform.SetCharacteristicValue(h, &nc, EncodeValue(value), flags)
}

// ReadDescriptor is reserved; descriptor values are only fetched during
// detail discovery.
func (c *Controller) ReadDescriptor(service UUID, charHandle, descHandle uint16) error {
	c.logger.WithFields(logrus.Fields{
		"service_uuid": service.ShortString(),
		"handle":       descHandle,
	}).Debug("Descriptor read not implemented on this backend")
	return nil
}

// WriteDescriptor is reserved.
func (c *Controller) WriteDescriptor(service UUID, charHandle, descHandle uint16, value []byte) error {
	c.logger.WithFields(logrus.Fields{
		"service_uuid": service.ShortString(),
		"handle":       descHandle,
	}).Debug("Descriptor write not implemented on this backend")
	return nil
}
