package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/srg/blectl/internal/gatt"
	"github.com/srg/blectl/internal/gatt/goble"
	"github.com/srg/blectl/pkg/config"
)

// newPlatform creates the native platform used by every command (can be overridden in tests)
var newPlatform = func(cfg *config.Config, logger *logrus.Logger) gatt.Platform {
	return goble.NewPlatform(
		goble.WithLogger(logger),
		goble.WithConnectTimeout(cfg.ConnectTimeout),
	)
}

// parseServiceUUIDs parses a comma-separated list of service UUIDs.
func parseServiceUUIDs(csv string) ([]gatt.UUID, error) {
	var out []gatt.UUID
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		u, err := gatt.ParseUUID(part)
		if err != nil {
			return nil, fmt.Errorf("invalid service UUID %q: %w", part, err)
		}
		out = append(out, u)
	}
	return out, nil
}

// parseHandle accepts decimal or 0x-prefixed hex attribute handles.
func parseHandle(s string) (uint16, error) {
	h, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute handle %q: must be decimal or 0x-prefixed hex in 1..65535", s)
	}
	if h == 0 {
		return 0, fmt.Errorf("invalid attribute handle %q: 0 is reserved", s)
	}
	return uint16(h), nil
}

// lookupCharacteristic finds handle in a discovered service.
func lookupCharacteristic(ctrl *gatt.Controller, service gatt.UUID, handle uint16) (*gatt.Characteristic, error) {
	svc, ok := ctrl.Service(service)
	if !ok {
		return nil, fmt.Errorf("service %s not found on %s", service.ShortString(), ctrl.RemoteAddress())
	}
	char, ok := svc.Characteristic(handle)
	if !ok {
		return nil, fmt.Errorf("%w: handle 0x%04X in service %s", ErrCharacteristicNotFound, handle, service.ShortString())
	}
	return char, nil
}
