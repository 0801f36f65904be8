package bledb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNormalizeUUID verifies that NormalizeUUID correctly handles various UUID formats
func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "16-bit short form", input: "180d", expected: "180d"},
		{name: "16-bit with 0x prefix", input: "0x180d", expected: "180d"},
		{name: "uppercase with surrounding space", input: "  0X180D ", expected: "180d"},
		{name: "full SIG UUID with dashes", input: "0000180d-0000-1000-8000-00805f9b34fb", expected: "180d"},
		{name: "full SIG UUID without dashes", input: "0000180D00001000800000805F9B34FB", expected: "180d"},
		{name: "full SIG UUID with braces", input: "{0000180d-0000-1000-8000-00805f9b34fb}", expected: "180d"},
		{name: "vendor 16-bit on SIG base", input: "0000fff0-0000-1000-8000-00805f9b34fb", expected: "fff0"},
		{name: "8-digit 0000xxxx form", input: "00002a19", expected: "2a19"},
		{name: "8-digit with 0x prefix", input: "0x00001815", expected: "1815"},
		{name: "32-bit UUID keeps all digits", input: "12345678", expected: "12345678"},
		{name: "vendor 128-bit UUID", input: "6E400001-B5A3-F393-E0A9-E50E24DCCA9E", expected: "6e400001b5a3f393e0a9e50e24dcca9e"},
		{name: "128-bit UUID off the SIG base", input: "0000180d-0000-1000-8000-00805f9b34fc", expected: "0000180d00001000800000805f9b34fc"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeUUID(tt.input))
		})
	}
}

// TestTableLookups verifies each table resolves every UUID spelling and only its own entries
func TestTableLookups(t *testing.T) {
	tests := []struct {
		name     string
		lookup   func(string) string
		uuid     string
		expected string
	}{
		{name: "service short form", lookup: LookupService, uuid: "180d", expected: "Heart Rate"},
		{name: "service full UUID", lookup: LookupService, uuid: "0000180f-0000-1000-8000-00805f9b34fb", expected: "Battery Service"},
		{name: "service 8-digit form", lookup: LookupService, uuid: "00001800", expected: "Generic Access"},
		{name: "service SIG number 1815", lookup: LookupService, uuid: "0x1815", expected: "Automation IO"},
		{name: "service SIG number 1816", lookup: LookupService, uuid: "1816", expected: "Cycling Speed and Cadence"},
		{name: "vendor service", lookup: LookupService, uuid: "{6e400001-b5a3-f393-e0a9-e50e24dcca9e}", expected: "Nordic UART Service"},
		{name: "service table misses characteristics", lookup: LookupService, uuid: "2a19", expected: ""},

		{name: "characteristic short form", lookup: LookupCharacteristic, uuid: "2A37", expected: "Heart Rate Measurement"},
		{name: "characteristic full UUID", lookup: LookupCharacteristic, uuid: "00002a19-0000-1000-8000-00805f9b34fb", expected: "Battery Level"},
		{name: "characteristic 8-digit form", lookup: LookupCharacteristic, uuid: "00002a00", expected: "Device Name"},
		{name: "vendor characteristic RX", lookup: LookupCharacteristic, uuid: "6E400002-B5A3-F393-E0A9-E50E24DCCA9E", expected: "Nordic UART RX"},
		{name: "vendor characteristic TX", lookup: LookupCharacteristic, uuid: "6e400003b5a3f393e0a9e50e24dcca9e", expected: "Nordic UART TX"},
		{name: "characteristic table misses descriptors", lookup: LookupCharacteristic, uuid: "2902", expected: ""},

		{name: "descriptor short form", lookup: LookupDescriptor, uuid: "2902", expected: "Client Characteristic Configuration"},
		{name: "descriptor full UUID", lookup: LookupDescriptor, uuid: "00002901-0000-1000-8000-00805f9b34fb", expected: "Characteristic User Descriptor"},
		{name: "descriptor 8-digit form", lookup: LookupDescriptor, uuid: "0x00002904", expected: "Characteristic Presentation Format"},
		{name: "descriptor table misses vendor UUIDs", lookup: LookupDescriptor, uuid: "6e400001b5a3f393e0a9e50e24dcca9e", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.lookup(tt.uuid))
		})
	}
}

// TestLookup verifies that Lookup searches services, characteristics and descriptors
func TestLookup(t *testing.T) {
	assert.Equal(t, "Heart Rate", Lookup("0x180D"), "service MUST resolve")
	assert.Equal(t, "Battery Level", Lookup("00002A19-0000-1000-8000-00805F9B34FB"), "characteristic MUST resolve regardless of case")
	assert.Equal(t, "Client Characteristic Configuration", Lookup("2902"), "descriptor MUST resolve")
	assert.Equal(t, "Nordic UART Service", Lookup("6E400001-B5A3-F393-E0A9-E50E24DCCA9E"), "vendor 128-bit UUID MUST resolve")
	assert.Equal(t, "Nordic UART TX", Lookup("6e400003-b5a3-f393-e0a9-e50e24dcca9e"), "vendor characteristic MUST resolve")
	assert.Empty(t, Lookup("1234"), "unknown UUID MUST resolve to empty name")
	assert.Empty(t, Lookup("0000fff0-0000-1000-8000-00805f9b34fb"), "unassigned vendor short UUID MUST resolve to empty name")
}

// TestTablesAreNormalized verifies every table key is already in lookup form
func TestTablesAreNormalized(t *testing.T) {
	for name, table := range map[string]map[string]string{
		"services":        services,
		"characteristics": characteristics,
		"descriptors":     descriptors,
	} {
		for key, value := range table {
			assert.Equal(t, key, NormalizeUUID(key), "%s key %q MUST be normalized", name, key)
			assert.NotEmpty(t, value, "%s key %q MUST have a name", name, key)
		}
	}
}

// TestNormalizeUUIDs verifies batch normalization keeps order
func TestNormalizeUUIDs(t *testing.T) {
	got := NormalizeUUIDs([]string{"0x180D", "00002a37-0000-1000-8000-00805f9b34fb", "0000180f"})
	assert.Equal(t, []string{"180d", "2a37", "180f"}, got)
	assert.Empty(t, NormalizeUUIDs(nil))
}
