package inspector

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/srg/blectl/internal/gatt"
)

// Well-known GATT descriptor UUIDs
var (
	DescriptorExtendedProperties = gatt.UUID16(0x2900)
	DescriptorUserDescription    = gatt.UUID16(0x2901)
	DescriptorClientConfig       = gatt.UUID16(0x2902)
	DescriptorServerConfig       = gatt.UUID16(0x2903)
	DescriptorPresentationFormat = gatt.UUID16(0x2904)
	DescriptorAggregateFormat    = gatt.UUID16(0x2905)
	DescriptorValidRange         = gatt.UUID16(0x2906)
)

// ExtendedProperties represents the Characteristic Extended Properties descriptor (0x2900)
type ExtendedProperties struct {
	ReliableWrite       bool
	WritableAuxiliaries bool
}

// ClientConfig represents the Client Characteristic Configuration descriptor (0x2902)
type ClientConfig struct {
	Notifications bool
	Indications   bool
}

// ServerConfig represents the Server Characteristic Configuration descriptor (0x2903)
type ServerConfig struct {
	Broadcasts bool
}

// PresentationFormat represents the Characteristic Presentation Format descriptor (0x2904)
type PresentationFormat struct {
	Format      uint8  // Format of the characteristic value
	Exponent    int8   // value = raw * 10^Exponent
	Unit        uint16 // Unit UUID (e.g., 0x2700 = unitless)
	Namespace   uint8  // 0x01 = Bluetooth SIG
	Description uint16
}

// ValidRange represents the Valid Range descriptor (0x2906)
type ValidRange struct {
	MinValue []byte
	MaxValue []byte
}

// AggregateFormat lists the Presentation Format descriptors referenced by a
// Characteristic Aggregate Format descriptor (0x2905), in reference order.
type AggregateFormat []*gatt.Descriptor

// ParseExtendedProperties parses the Characteristic Extended Properties descriptor value.
// The descriptor is 2 bytes: bit 0 = Reliable Write, bit 1 = Writable Auxiliaries.
func ParseExtendedProperties(data []byte) (*ExtendedProperties, error) {
	if len(data) != 2 {
		return nil, fmt.Errorf("invalid length for extended properties: expected 2, got %d", len(data))
	}
	value := binary.LittleEndian.Uint16(data)
	return &ExtendedProperties{
		ReliableWrite:       value&0x0001 != 0,
		WritableAuxiliaries: value&0x0002 != 0,
	}, nil
}

// ParseClientConfig parses the Client Characteristic Configuration descriptor value.
// The descriptor is 2 bytes: bit 0 = Notifications, bit 1 = Indications.
func ParseClientConfig(data []byte) (*ClientConfig, error) {
	if len(data) != 2 {
		return nil, fmt.Errorf("invalid length for client config: expected 2, got %d", len(data))
	}
	value := binary.LittleEndian.Uint16(data)
	return &ClientConfig{
		Notifications: value&0x0001 != 0,
		Indications:   value&0x0002 != 0,
	}, nil
}

// ParseServerConfig parses the Server Characteristic Configuration descriptor value.
func ParseServerConfig(data []byte) (*ServerConfig, error) {
	if len(data) != 2 {
		return nil, fmt.Errorf("invalid length for server config: expected 2, got %d", len(data))
	}
	value := binary.LittleEndian.Uint16(data)
	return &ServerConfig{Broadcasts: value&0x0001 != 0}, nil
}

// ParseUserDescription parses the Characteristic User Description descriptor value,
// a UTF-8 string that may be null-terminated.
func ParseUserDescription(data []byte) (string, error) {
	str := strings.TrimRight(string(data), "\x00")
	if !utf8.ValidString(str) {
		return "", fmt.Errorf("invalid UTF-8 in user description")
	}
	return str, nil
}

// ParsePresentationFormat parses the Characteristic Presentation Format descriptor value.
// The descriptor is 7 bytes: Format(1), Exponent(1), Unit(2), Namespace(1), Description(2).
func ParsePresentationFormat(data []byte) (*PresentationFormat, error) {
	if len(data) != 7 {
		return nil, fmt.Errorf("invalid length for presentation format: expected 7, got %d", len(data))
	}
	return &PresentationFormat{
		Format:      data[0],
		Exponent:    int8(data[1]),
		Unit:        binary.LittleEndian.Uint16(data[2:4]),
		Namespace:   data[4],
		Description: binary.LittleEndian.Uint16(data[5:7]),
	}, nil
}

// ParseValidRange splits the Valid Range descriptor value in half. For odd
// lengths the extra byte goes to the maximum.
func ParseValidRange(data []byte) (*ValidRange, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("invalid length for valid range: expected at least 2, got %d", len(data))
	}
	mid := len(data) / 2
	return &ValidRange{
		MinValue: append([]byte(nil), data[:mid]...),
		MaxValue: append([]byte(nil), data[mid:]...),
	}, nil
}

// ParseAggregateFormat resolves the little-endian attribute handles listed
// by an Aggregate Format descriptor against the sibling descriptors.
func ParseAggregateFormat(data []byte, siblings []*gatt.Descriptor) (AggregateFormat, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("malformed aggregate format data: incomplete handle")
	}

	byHandle := make(map[uint16]*gatt.Descriptor, len(siblings))
	for _, d := range siblings {
		byHandle[d.Handle()] = d
	}

	out := make(AggregateFormat, 0, len(data)/2)
	for i := 0; i < len(data); i += 2 {
		h := binary.LittleEndian.Uint16(data[i : i+2])
		d, ok := byHandle[h]
		if !ok {
			return nil, fmt.Errorf("aggregate format references unknown handle 0x%04x", h)
		}
		if d.UUID() != DescriptorPresentationFormat {
			return nil, fmt.Errorf("aggregate format handle 0x%04x is %s, not a presentation format", h, d.UUID().ShortString())
		}
		out = append(out, d)
	}
	return out, nil
}

// ParseDescriptorValue decodes a well-known descriptor value. Unknown
// descriptors yield their raw bytes. Empty values yield (nil, nil), except
// for the aggregate format where an empty list is valid.
func ParseDescriptorValue(d *gatt.Descriptor, siblings []*gatt.Descriptor) (any, error) {
	data := d.Value()
	uuid := d.UUID()

	if len(data) == 0 && uuid != DescriptorAggregateFormat {
		return nil, nil
	}

	switch uuid {
	case DescriptorExtendedProperties:
		return ParseExtendedProperties(data)
	case DescriptorUserDescription:
		return ParseUserDescription(data)
	case DescriptorClientConfig:
		return ParseClientConfig(data)
	case DescriptorServerConfig:
		return ParseServerConfig(data)
	case DescriptorPresentationFormat:
		return ParsePresentationFormat(data)
	case DescriptorValidRange:
		return ParseValidRange(data)
	case DescriptorAggregateFormat:
		return ParseAggregateFormat(data, siblings)
	default:
		return data, nil
	}
}

// FormatDescriptorValue renders a value returned by ParseDescriptorValue.
func FormatDescriptorValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "(empty)"
	case *ExtendedProperties:
		return fmt.Sprintf("reliable_write=%t, writable_auxiliaries=%t", val.ReliableWrite, val.WritableAuxiliaries)
	case *ClientConfig:
		return fmt.Sprintf("notifications=%t, indications=%t", val.Notifications, val.Indications)
	case *ServerConfig:
		return fmt.Sprintf("broadcasts=%t", val.Broadcasts)
	case string:
		return fmt.Sprintf("%q", val)
	case *PresentationFormat:
		return fmt.Sprintf("format=0x%02X, exponent=%d, unit=0x%04X, namespace=0x%02X, description=0x%04X",
			val.Format, val.Exponent, val.Unit, val.Namespace, val.Description)
	case *ValidRange:
		return fmt.Sprintf("min=%X, max=%X", val.MinValue, val.MaxValue)
	case AggregateFormat:
		handles := make([]string, len(val))
		for i, d := range val {
			handles[i] = fmt.Sprintf("0x%04X", d.Handle())
		}
		return "formats=[" + strings.Join(handles, ", ") + "]"
	case []byte:
		return fmt.Sprintf("%X", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
