package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/srg/blectl/internal/gatt"
	"github.com/srg/blectl/internal/testutils"
	"github.com/stretchr/testify/suite"
)

// InspectTestSuite covers the services and inspect commands
type InspectTestSuite struct {
	CommandTestSuite
}

func TestInspectTestSuite(t *testing.T) {
	suite.Run(t, new(InspectTestSuite))
}

func (s *InspectTestSuite) TestServicesText() {
	// GOAL: Verify services lists every primary service without detail discovery
	//
	// TEST SCENARIO: Run services → service headers printed → no characteristic enumeration

	out, err := s.ExecuteCommand("services", s.Address())
	s.Require().NoError(err, "services MUST succeed")

	testutils.NewTextAsserter(s.T()).Assert(out, `
Device: AA:BB:CC:DD:EE:FF
State: discovered
Services: 2

Service 180d (Heart Rate)
  Type: primary  Handles: 0x0001-0x0001  State: not-discovered

Service 180f (Battery Service)
  Type: primary  Handles: 0x0010-0x0010  State: not-discovered
`)
	s.Equal(0, s.Platform.CallCount("Characteristics"), "services MUST NOT enumerate characteristics")
	s.Len(s.Platform.Released(), 1, "device MUST be released")
}

func (s *InspectTestSuite) TestInspectServiceFilter() {
	// GOAL: Verify --service restricts both discovery and output
	//
	// TEST SCENARIO: Inspect 180f only → battery service rendered with inferred end handle

	out, err := s.ExecuteCommand("inspect", s.Address(), "--service", "180f")
	s.Require().NoError(err)

	testutils.NewTextAsserter(s.T()).Assert(out, `
Device: AA:BB:CC:DD:EE:FF
State: discovered
Services: 1

Service 180f (Battery Service)
  Type: primary  Handles: 0x0010-0x0012  State: discovered
  Characteristic 2a19 (Battery Level)
    Handle: 0x0011  Value handle: 0x0012  Properties: read,notify
    Value: 64 "d"
`)
}

func (s *InspectTestSuite) TestInspectJSON() {
	// GOAL: Verify inspect --format json emits the complete attribute table
	//
	// TEST SCENARIO: Run inspect → every service, characteristic and descriptor with inferred end handles

	out, err := s.ExecuteCommand("inspect", s.Address(), "--format", "json")
	s.Require().NoError(err)

	testutils.NewJSONAsserter(s.T()).Assert(out, `{
		"address": "<<ANY>>",
		"state": "discovered",
		"services": [
			{
				"uuid": "180d", "name": "Heart Rate", "type": "primary",
				"start_handle": 1, "end_handle": 6, "state": "discovered",
				"characteristics": [
					{
						"uuid": "2a37", "name": "Heart Rate Measurement",
						"handle": 2, "value_handle": 3, "properties": "notify",
						"value_hex": "0048", "value_ascii": ".H",
						"descriptors": [
							{
								"uuid": "2902", "name": "Client Characteristic Configuration",
								"handle": 4, "value_hex": "0000",
								"value": "notifications=false, indications=false"
							}
						]
					},
					{
						"uuid": "2a38", "name": "Body Sensor Location",
						"handle": 5, "value_handle": 6, "properties": "read",
						"value_hex": "01", "value_ascii": "."
					}
				]
			},
			{
				"uuid": "180f", "name": "Battery Service", "type": "primary",
				"start_handle": 16, "end_handle": 18, "state": "discovered",
				"characteristics": [
					{
						"uuid": "2a19", "name": "Battery Level",
						"handle": 17, "value_handle": 18, "properties": "read,notify",
						"value_hex": "64", "value_ascii": "d"
					}
				]
			}
		]
	}`)
}

func (s *InspectTestSuite) TestInspectInterrupted() {
	// GOAL: Verify an interrupted run stops before discovery and still releases the device
	//
	// TEST SCENARIO: Context canceled (Ctrl+C) → inspect returns context.Canceled → no enumeration, device released

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := s.ExecuteCommandContext(ctx, "inspect", s.Address())
	s.Require().ErrorIs(err, context.Canceled, "interrupt MUST surface as context.Canceled")
	s.Empty(out, "interrupted inspect MUST NOT print a profile")
	s.Zero(s.Platform.CallCount("OpenDevice"), "discovery MUST NOT start after interrupt")
	s.Len(s.Platform.Released(), 1, "device MUST be released after interrupt")
}

func (s *InspectTestSuite) TestInspectFormatFromConfig() {
	path := filepath.Join(s.T().TempDir(), "blectl.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("output_format: yaml\n"), 0o600))

	out, err := s.ExecuteCommand("inspect", s.Address(), "--config", path)
	s.Require().NoError(err)
	s.Contains(out, "uuid: 180d", "config output_format MUST select YAML")
	s.Contains(out, "end_handle: 6")
}

func (s *InspectTestSuite) TestInspectFailingService() {
	// GOAL: Verify a failing service is reported without aborting the inspection
	//
	// TEST SCENARIO: Service open fails → inspect succeeds → service shown as needs-rediscovery

	s.Platform.FailServiceOpen(testutils.UUID("180F"), true)

	out, err := s.ExecuteCommand("inspect", s.Address(), "--format", "json")
	s.Require().NoError(err, "full inspection MUST tolerate a failing service")

	testutils.NewJSONAsserter(s.T()).WithOptions(testutils.WithIgnoreExtraKeys(true)).Assert(out, `{
		"services": [
			{"uuid": "180d", "state": "discovered", "end_handle": 6},
			{"uuid": "180f", "state": "needs-rediscovery", "end_handle": 16, "error": "<<ANY>>"}
		]
	}`)
	s.Contains(out, "unknown error", "service error MUST carry the error code")

	_, err = s.ExecuteCommand("inspect", s.Address(), "--service", "180f")
	s.Require().Error(err, "explicitly requested service MUST fail")
	s.Equal(gatt.UnknownError, gatt.CodeOf(err))
}

func (s *InspectTestSuite) TestInspectArgumentErrors() {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "bad format", args: []string{"inspect", s.Address(), "--format", "xml"}, want: `unsupported output format "xml"`},
		{name: "bad service", args: []string{"inspect", s.Address(), "--service", "zz"}, want: `invalid service UUID "zz"`},
		{name: "bad color", args: []string{"inspect", s.Address(), "--color", "sometimes"}, want: "invalid --color value"},
		{name: "bad log level", args: []string{"inspect", s.Address(), "--log-level", "chatty"}, want: "invalid log level: chatty"},
		{name: "missing address", args: []string{"inspect"}, want: "accepts 1 arg(s)"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.ExecuteCommand(tt.args...)
			s.Require().Error(err)
			s.Contains(err.Error(), tt.want)
			s.Equal(0, s.Platform.CallCount("Resolve"), "invalid arguments MUST NOT reach the device")
		})
	}
}

func (s *InspectTestSuite) TestInspectUnknownDevice() {
	_, err := s.ExecuteCommand("inspect", "11:22:33:44:55:66")
	s.Require().Error(err)
	s.ErrorIs(err, gatt.ErrUnknownRemoteDevice)
	s.Contains(FormatUserError(err), "device not found or unreachable")
}
