package gatt

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DiscoverServices enumerates the primary services of the connected device.
// It is only valid in StateConnected. On failure the controller returns to
// StateConnected with NetworkError; services inserted before the failure
// are kept.
func (c *Controller) DiscoverServices() error {
	c.err = nil

	if err := c.checkSupported("discover services"); err != nil {
		return err
	}
	if c.state != StateConnected {
		return newError(InvalidStateError, "discover services", fmt.Errorf("controller is %s", c.state))
	}

	c.setState(StateDiscovering)

	found, err := c.enumerateServices()
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"address": c.address,
			"error":   err,
		}).Warn("Service discovery failed")
		gerr := c.fail(newError(NetworkError, "discover services", err))
		c.setState(StateConnected)
		return gerr
	}

	for i := range found {
		svc := newService(&found[i])
		c.logger.WithFields(logrus.Fields{
			"service_uuid": svc.uuid.ShortString(),
			"handle":       svc.startHandle,
		}).Debug("Found service")
		c.services.Set(svc.uuid, svc)
		c.emit(Event{Kind: EventServiceDiscovered, Service: svc.uuid})
	}

	c.setState(StateDiscovered)
	c.logger.WithFields(logrus.Fields{
		"address":  c.address,
		"services": len(found),
	}).Info("Service discovery finished")
	c.emit(Event{Kind: EventDiscoveryFinished})
	return nil
}

func (c *Controller) enumerateServices() ([]NativeService, error) {
	h, err := c.platform.OpenDevice(c.identity, AccessRead)
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	defer c.closeHandle(h)

	return runQuery(func(buf []NativeService) (int, error) {
		return c.platform.Services(h, buf)
	})
}

// DiscoverServiceDetails populates the characteristics and descriptors of a
// discovered service and infers its end handle. Unknown services are
// ignored. Any fatal failure leaves the service in ServiceNeedsRediscovery.
func (c *Controller) DiscoverServiceDetails(uuid UUID) error {
	if err := c.checkSupported("discover service details"); err != nil {
		return err
	}

	svc, ok := c.services.Get(uuid)
	if !ok {
		c.logger.WithField("service_uuid", uuid.ShortString()).Warn("Discovery of unknown service not possible")
		return nil
	}

	c.setServiceState(svc, ServiceDiscovering)

	if err := c.discoverDetails(svc); err != nil {
		c.logger.WithFields(logrus.Fields{
			"service_uuid": uuid.ShortString(),
			"error":        err,
		}).Warn("Service detail discovery failed")
		c.setServiceError(svc, err)
		c.setServiceState(svc, ServiceNeedsRediscovery)
		return err
	}

	svc.err = nil
	c.setServiceState(svc, ServiceDiscovered)
	return nil
}

func (c *Controller) discoverDetails(svc *Service) *Error {
	const op = "discover service details"

	h, err := c.platform.OpenService(c.identity, svc.uuid, AccessRead)
	if err != nil {
		return newError(UnknownError, op, fmt.Errorf("open service %s: %w", svc.uuid.ShortString(), err))
	}
	defer c.closeHandle(h)

	// Assume no descriptors until proven otherwise.
	svc.endHandle = svc.startHandle
	svc.characteristics = orderedmap.New[uint16, *Characteristic]()

	ns := svc.native()
	found, err := runQuery(func(buf []NativeCharacteristic) (int, error) {
		return c.platform.Characteristics(h, &ns, buf)
	})
	if err != nil {
		return newError(CharacteristicReadError, op, fmt.Errorf("characteristics of service %s: %w", svc.uuid.ShortString(), err))
	}

	for i := range found {
		nc := &found[i]
		char := newCharacteristic(nc)

		value, err := runQuery(func(buf []byte) (int, error) {
			return c.platform.CharacteristicValue(h, nc, buf)
		})
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"service_uuid": svc.uuid.ShortString(),
				"char_uuid":    char.uuid.ShortString(),
				"error":        err,
			}).Warn("Unable to get value for characteristic")
		} else {
			char.value = value
		}

		svc.extendEnd(nextHandle(nc.AttributeHandle))

		if derr := c.discoverDescriptors(h, svc, nc, char); derr != nil {
			return derr
		}

		c.logger.WithFields(logrus.Fields{
			"service_uuid": svc.uuid.ShortString(),
			"char_uuid":    char.uuid.ShortString(),
			"handle":       char.handle,
			"properties":   char.properties.String(),
		}).Debug("Found characteristic")
		svc.characteristics.Set(char.handle, char)
	}

	return nil
}

func (c *Controller) discoverDescriptors(h io.Closer, svc *Service, nc *NativeCharacteristic, char *Characteristic) *Error {
	const op = "discover service details"

	found, err := runQuery(func(buf []NativeDescriptor) (int, error) {
		return c.platform.Descriptors(h, nc, buf)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return newError(DescriptorReadError, op, fmt.Errorf("descriptors of characteristic %s: %w", char.uuid.ShortString(), err))
		}
		found = nil
	}

	for i := range found {
		nd := &found[i]
		value, err := runQuery(func(buf []byte) (int, error) {
			return c.platform.DescriptorValue(h, nd, buf)
		})
		if err != nil {
			return newError(DescriptorReadError, op, fmt.Errorf("value of descriptor %s of characteristic %s: %w",
				nd.UUID.ShortString(), char.uuid.ShortString(), err))
		}

		// The last descriptor terminates the characteristic's range.
		svc.extendEnd(nd.AttributeHandle)

		char.descriptors.Set(nd.AttributeHandle, &Descriptor{
			uuid:   nd.UUID,
			handle: nd.AttributeHandle,
			value:  value,
		})
	}
	return nil
}
