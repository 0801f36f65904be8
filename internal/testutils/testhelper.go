package testutils

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
	logs   *bytes.Buffer
}

// NewTestHelper creates a test helper whose logger writes into a buffer the
// test can inspect.
func NewTestHelper(t *testing.T) *TestHelper {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})
	return &TestHelper{
		T:      t,
		Logger: logger,
		logs:   buf,
	}
}

// Logs returns everything logged so far.
func (h *TestHelper) Logs() string {
	return h.logs.String()
}

// ResetLogs discards captured log output.
func (h *TestHelper) ResetLogs() {
	h.logs.Reset()
}

func CreateMockPeripheralDeviceFromJSON(jsonStrFmt string, args ...interface{}) *PeripheralDeviceBuilder {
	return NewPeripheralDeviceBuilder().FromJSON(jsonStrFmt, args...)
}

// HeartRatePeripheral returns a builder for a heart rate monitor with a
// battery service: 180D at 0x0001 holding 2A37 (notify, one CCCD) and 2A38
// (read), 180F at 0x0010 holding 2A19 (read, notify).
func HeartRatePeripheral() *PeripheralDeviceBuilder {
	return NewPeripheralDeviceBuilder().
		WithServiceAt("180D", 0x0001).
		WithCharacteristicAt("2A37", 0x0002, "notify", []byte{0x00, 0x48}).
		WithDescriptorAt("2902", 0x0004, []byte{0x00, 0x00}).
		WithCharacteristicAt("2A38", 0x0005, "read", []byte{0x01}).
		WithServiceAt("180F", 0x0010).
		WithCharacteristicAt("2A19", 0x0011, "read,notify", []byte{0x64})
}
