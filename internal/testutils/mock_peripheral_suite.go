package testutils

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/blectl/internal/gatt"
	"github.com/stretchr/testify/suite"
)

// MockPeripheralSuite provides a reusable test suite driving a gatt.Controller
// against a simulated peripheral.
//
// Basic usage (heart rate peripheral by default):
//
//	type DiscoverySuite struct {
//	    testutils.MockPeripheralSuite
//	}
//
//	func TestDiscoverySuite(t *testing.T) {
//	    suite.Run(t, new(DiscoverySuite))
//	}
//
// Custom peripheral usage:
//
//	func (s *DiscoverySuite) SetupTest() {
//	    s.WithPeripheral().
//	        WithService("180F").
//	        WithCharacteristic("2A19", "read", []byte{50})
//
//	    s.MockPeripheralSuite.SetupTest() // Call parent last to apply configuration
//	}
type MockPeripheralSuite struct {
	suite.Suite

	Helper *TestHelper
	Logger *logrus.Logger

	// PeripheralBuilder is consumed by SetupTest and reset after each test.
	PeripheralBuilder *PeripheralDeviceBuilder

	Platform   *FakePlatform
	Controller *gatt.Controller
	Events     *EventRecorder
}

// SetupSuite initializes the logger shared by every test.
func (s *MockPeripheralSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
}

// SetupTest builds the platform and a fresh, unconnected controller.
func (s *MockPeripheralSuite) SetupTest() {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = HeartRatePeripheral()
	}
	s.UsePeripheral(s.PeripheralBuilder)
}

// UsePeripheral replaces the platform and controller of the running test
// with ones built from b.
func (s *MockPeripheralSuite) UsePeripheral(b *PeripheralDeviceBuilder) {
	if s.Platform != nil {
		s.Equal(0, s.Platform.OpenHandles(), "every native handle MUST be closed")
	}
	s.Helper.ResetLogs()

	s.PeripheralBuilder = b
	s.Platform = b.Build()
	s.Controller = gatt.New(s.Platform, gatt.WithLogger(s.Logger))
	s.Events = RecordEvents(s.Controller)
}

// TearDownTest verifies no native handle leaked and resets the builder.
func (s *MockPeripheralSuite) TearDownTest() {
	if s.Platform != nil {
		s.Equal(0, s.Platform.OpenHandles(), "every native handle MUST be closed")
	}
	s.PeripheralBuilder = nil
	s.Platform = nil
	s.Controller = nil
	s.Events = nil
}

// WithPeripheral returns a fresh builder for configuring the simulated
// peripheral. Call it before the parent SetupTest.
func (s *MockPeripheralSuite) WithPeripheral() *PeripheralDeviceBuilder {
	s.PeripheralBuilder = NewPeripheralDeviceBuilder()
	return s.PeripheralBuilder
}

// Address returns the address the simulated peripheral answers to.
func (s *MockPeripheralSuite) Address() string {
	return s.PeripheralBuilder.Profile().Address
}

// MustConnect connects the controller to the simulated peripheral.
func (s *MockPeripheralSuite) MustConnect() {
	s.Require().NoError(s.Controller.Connect(s.Address()), "connect MUST succeed")
	s.Require().Equal(gatt.StateConnected, s.Controller.State())
}

// MustDiscover connects and enumerates services.
func (s *MockPeripheralSuite) MustDiscover() {
	s.MustConnect()
	s.Require().NoError(s.Controller.DiscoverServices(), "service discovery MUST succeed")
	s.Require().Equal(gatt.StateDiscovered, s.Controller.State())
}

// MustDiscoverDetails connects, enumerates services and discovers the
// details of every service.
func (s *MockPeripheralSuite) MustDiscoverDetails() {
	s.MustDiscover()
	for _, svc := range s.Controller.Services() {
		s.Require().NoError(s.Controller.DiscoverServiceDetails(svc.UUID()),
			"detail discovery of %s MUST succeed", svc.UUID().ShortString())
	}
}

// UUID parses a test UUID literal.
func UUID(s string) gatt.UUID {
	return gatt.MustParseUUID(s)
}
