package inspector

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/srg/blectl/internal/gatt"
)

// Progress phases reported through ProgressCallback.
const (
	PhaseConnecting  = "Connecting"
	PhaseDiscovering = "Discovering services"
	PhaseDetails     = "Discovering details"
	PhaseProcessing  = "Processing results"
	PhaseFailed      = "Failed"
)

// ErrServiceNotFound is returned when a requested service is not offered by the device.
var ErrServiceNotFound = errors.New("service not found")

// ProgressCallback is called when the inspection phase changes
type ProgressCallback func(phase string)

// InspectOptions defines which parts of the device profile are discovered
type InspectOptions struct {
	// Services restricts detail discovery. Empty means every service.
	Services []gatt.UUID
	// SkipDetails stops after service enumeration.
	SkipDetails bool
}

// InspectCallback processes a discovered controller and produces output of type R
type InspectCallback[R any] func(*gatt.Controller) (R, error)

// InspectDevice connects to a device through platform, discovers its profile and executes the callback with the
// connected controller. The controller is disconnected once the callback returns.
//
// A failing service is reported and skipped when every service is inspected; a service named in opts.Services
// must be discovered successfully.
func InspectDevice[R any](ctx context.Context, platform gatt.Platform, address string, opts *InspectOptions, logger *logrus.Logger, progressCallback ProgressCallback, callback InspectCallback[R]) (R, error) {
	var zero R
	if opts == nil {
		opts = &InspectOptions{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	if progressCallback == nil {
		progressCallback = func(string) {}
	}

	ctrl := gatt.New(platform, gatt.WithLogger(logger))

	progressCallback(PhaseConnecting)
	if err := ctrl.Connect(address); err != nil {
		progressCallback(PhaseFailed)
		return zero, err
	}

	defer func() {
		if err := ctrl.Disconnect(); err != nil {
			logger.WithError(err).Error("failed to disconnect device")
		}
	}()

	if err := discover(ctx, ctrl, opts, logger, progressCallback); err != nil {
		progressCallback(PhaseFailed)
		return zero, err
	}

	progressCallback(PhaseProcessing)
	return callback(ctrl)
}

func discover(ctx context.Context, ctrl *gatt.Controller, opts *InspectOptions, logger *logrus.Logger, progressCallback ProgressCallback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	progressCallback(PhaseDiscovering)
	if err := ctrl.DiscoverServices(); err != nil {
		return err
	}
	if opts.SkipDetails {
		return nil
	}

	progressCallback(PhaseDetails)

	explicit := len(opts.Services) > 0
	targets := opts.Services
	if !explicit {
		for _, svc := range ctrl.Services() {
			targets = append(targets, svc.UUID())
		}
	}

	for _, uuid := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := ctrl.Service(uuid); !ok {
			return fmt.Errorf("%w: %s on %s", ErrServiceNotFound, uuid.ShortString(), ctrl.RemoteAddress())
		}

		err := ctrl.DiscoverServiceDetails(uuid)
		if err == nil {
			continue
		}
		if explicit {
			return err
		}
		logger.WithFields(logrus.Fields{
			"service_uuid": uuid.ShortString(),
			"error":        err,
		}).Warn("Skipping service that failed detail discovery")
	}
	return nil
}
