package gatt

import (
	"strings"

	"github.com/go-ble/ble"
)

// Properties is the capability set of a characteristic. Bit positions match
// the characteristic declaration properties field.
type Properties uint8

const (
	PropBroadcast Properties = 1 << iota
	PropRead
	PropWriteNoResponse
	PropWrite
	PropNotify
	PropIndicate
	PropWriteSigned
	PropExtendedProperties
)

var propertyNames = []struct {
	prop Properties
	name string
}{
	{PropBroadcast, "broadcast"},
	{PropRead, "read"},
	{PropWriteNoResponse, "write-without-response"},
	{PropWrite, "write"},
	{PropNotify, "notify"},
	{PropIndicate, "indicate"},
	{PropWriteSigned, "authenticated-signed-writes"},
	{PropExtendedProperties, "extended-properties"},
}

// Has reports whether every flag in p is set.
func (ps Properties) Has(p Properties) bool {
	return ps&p == p
}

func (ps Properties) String() string {
	if ps == 0 {
		return "none"
	}
	var names []string
	for _, pn := range propertyNames {
		if ps.Has(pn.prop) {
			names = append(names, pn.name)
		}
	}
	return strings.Join(names, ",")
}

// PropertiesFromBLE decodes go-ble characteristic property bits.
func PropertiesFromBLE(p ble.Property) Properties {
	var ps Properties
	if p&ble.CharBroadcast != 0 {
		ps |= PropBroadcast
	}
	if p&ble.CharRead != 0 {
		ps |= PropRead
	}
	if p&ble.CharWriteNR != 0 {
		ps |= PropWriteNoResponse
	}
	if p&ble.CharWrite != 0 {
		ps |= PropWrite
	}
	if p&ble.CharNotify != 0 {
		ps |= PropNotify
	}
	if p&ble.CharIndicate != 0 {
		ps |= PropIndicate
	}
	if p&ble.CharSignedWrite != 0 {
		ps |= PropWriteSigned
	}
	if p&ble.CharExtended != 0 {
		ps |= PropExtendedProperties
	}
	return ps
}

// BLE encodes ps as go-ble property bits.
func (ps Properties) BLE() ble.Property {
	var p ble.Property
	if ps.Has(PropBroadcast) {
		p |= ble.CharBroadcast
	}
	if ps.Has(PropRead) {
		p |= ble.CharRead
	}
	if ps.Has(PropWriteNoResponse) {
		p |= ble.CharWriteNR
	}
	if ps.Has(PropWrite) {
		p |= ble.CharWrite
	}
	if ps.Has(PropNotify) {
		p |= ble.CharNotify
	}
	if ps.Has(PropIndicate) {
		p |= ble.CharIndicate
	}
	if ps.Has(PropWriteSigned) {
		p |= ble.CharSignedWrite
	}
	if ps.Has(PropExtendedProperties) {
		p |= ble.CharExtended
	}
	return p
}

// ParseProperties parses a comma-separated list such as "read,notify".
// Unknown names are ignored.
func ParseProperties(s string) Properties {
	var ps Properties
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		for _, pn := range propertyNames {
			if pn.name == part {
				ps |= pn.prop
			}
		}
	}
	return ps
}
