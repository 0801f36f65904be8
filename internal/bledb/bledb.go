// Package bledb maps Bluetooth SIG assigned numbers to human readable names.
//
// Lookups accept any common UUID spelling: 16-bit short form, 0x prefixed,
// braced, and full 128-bit UUIDs with or without dashes. UUIDs built on the
// Bluetooth base UUID collapse to their 16-bit form before lookup.
package bledb

import "strings"

// baseSuffix is the Bluetooth base UUID past the 16-bit slot.
const baseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID returns the canonical lookup key for uuid: lowercase hex with
// no separators, shortened to 4 digits for SIG base UUIDs.
func NormalizeUUID(uuid string) string {
	s := strings.ToLower(strings.TrimSpace(uuid))
	s = strings.TrimPrefix(s, "0x")
	s = strings.Trim(s, "{}")
	s = strings.ReplaceAll(s, "-", "")

	if len(s) == 32 && strings.HasPrefix(s, "0000") && strings.HasSuffix(s, baseSuffix) {
		return s[4:8]
	}
	if len(s) == 8 && strings.HasPrefix(s, "0000") {
		return s[4:]
	}
	return s
}

// NormalizeUUIDs normalizes every element of uuids.
func NormalizeUUIDs(uuids []string) []string {
	out := make([]string, len(uuids))
	for i, u := range uuids {
		out[i] = NormalizeUUID(u)
	}
	return out
}

// LookupService returns the name of a known service, or "".
func LookupService(uuid string) string {
	return services[NormalizeUUID(uuid)]
}

// LookupCharacteristic returns the name of a known characteristic, or "".
func LookupCharacteristic(uuid string) string {
	return characteristics[NormalizeUUID(uuid)]
}

// LookupDescriptor returns the name of a known descriptor, or "".
func LookupDescriptor(uuid string) string {
	return descriptors[NormalizeUUID(uuid)]
}

// Lookup searches every table, services first.
func Lookup(uuid string) string {
	key := NormalizeUUID(uuid)
	for _, table := range []map[string]string{services, characteristics, descriptors} {
		if name, ok := table[key]; ok {
			return name
		}
	}
	return ""
}
