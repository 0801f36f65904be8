package inspector

import (
	"fmt"
	"strings"

	"github.com/srg/blectl/internal/bledb"
	"github.com/srg/blectl/internal/gatt"
)

// Profile is a serializable snapshot of a controller's discovered attribute table.
type Profile struct {
	Address  string        `json:"address" yaml:"address"`
	State    string        `json:"state" yaml:"state"`
	Services []ServiceInfo `json:"services" yaml:"services"`
}

type ServiceInfo struct {
	UUID            string               `json:"uuid" yaml:"uuid"`
	Name            string               `json:"name,omitempty" yaml:"name,omitempty"`
	Type            string               `json:"type" yaml:"type"`
	StartHandle     uint16               `json:"start_handle" yaml:"start_handle"`
	EndHandle       uint16               `json:"end_handle" yaml:"end_handle"`
	State           string               `json:"state" yaml:"state"`
	Error           string               `json:"error,omitempty" yaml:"error,omitempty"`
	Characteristics []CharacteristicInfo `json:"characteristics,omitempty" yaml:"characteristics,omitempty"`
}

type CharacteristicInfo struct {
	UUID        string           `json:"uuid" yaml:"uuid"`
	Name        string           `json:"name,omitempty" yaml:"name,omitempty"`
	Handle      uint16           `json:"handle" yaml:"handle"`
	ValueHandle uint16           `json:"value_handle" yaml:"value_handle"`
	Properties  string           `json:"properties" yaml:"properties"`
	ValueHex    string           `json:"value_hex,omitempty" yaml:"value_hex,omitempty"`
	ValueASCII  string           `json:"value_ascii,omitempty" yaml:"value_ascii,omitempty"`
	Descriptors []DescriptorInfo `json:"descriptors,omitempty" yaml:"descriptors,omitempty"`
}

type DescriptorInfo struct {
	UUID     string `json:"uuid" yaml:"uuid"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Handle   uint16 `json:"handle" yaml:"handle"`
	ValueHex string `json:"value_hex,omitempty" yaml:"value_hex,omitempty"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
}

// SnapshotOptions tunes Snapshot.
type SnapshotOptions struct {
	// Services limits the snapshot. Empty means every service.
	Services []gatt.UUID
	// ReadLimit truncates value previews; 0 means no limit.
	ReadLimit int
}

// Snapshot captures the services cached by ctrl.
func Snapshot(ctrl *gatt.Controller, opts *SnapshotOptions) *Profile {
	if opts == nil {
		opts = &SnapshotOptions{}
	}
	p := &Profile{
		Address:  ctrl.RemoteAddress(),
		State:    ctrl.State().String(),
		Services: []ServiceInfo{},
	}

	for _, svc := range ctrl.Services() {
		if !selected(opts.Services, svc.UUID()) {
			continue
		}
		p.Services = append(p.Services, serviceInfo(svc, opts.ReadLimit))
	}
	return p
}

func selected(filter []gatt.UUID, uuid gatt.UUID) bool {
	if len(filter) == 0 {
		return true
	}
	for _, u := range filter {
		if u == uuid {
			return true
		}
	}
	return false
}

func serviceInfo(svc *gatt.Service, limit int) ServiceInfo {
	si := ServiceInfo{
		UUID:        svc.UUID().ShortString(),
		Name:        bledb.LookupService(svc.UUID().String()),
		Type:        svc.Type().String(),
		StartHandle: svc.StartHandle(),
		EndHandle:   svc.EndHandle(),
		State:       svc.State().String(),
	}
	if err := svc.LastError(); err != nil {
		si.Error = err.Error()
	}

	for _, ch := range svc.Characteristics() {
		ci := CharacteristicInfo{
			UUID:        ch.UUID().ShortString(),
			Name:        bledb.LookupCharacteristic(ch.UUID().String()),
			Handle:      ch.Handle(),
			ValueHandle: ch.ValueHandle(),
			Properties:  ch.Properties().String(),
		}
		if v := preview(ch.Value(), limit); len(v) > 0 {
			ci.ValueHex = strings.ToUpper(fmt.Sprintf("%x", v))
			ci.ValueASCII = asciiPreview(v)
		}

		descs := ch.Descriptors()
		for _, d := range descs {
			di := DescriptorInfo{
				UUID:   d.UUID().ShortString(),
				Name:   bledb.LookupDescriptor(d.UUID().String()),
				Handle: d.Handle(),
			}
			if len(d.Value()) > 0 {
				di.ValueHex = fmt.Sprintf("%X", d.Value())
			}
			parsed, err := ParseDescriptorValue(d, descs)
			if err != nil {
				di.Value = "malformed: " + err.Error()
			} else if _, raw := parsed.([]byte); parsed != nil && !raw {
				di.Value = FormatDescriptorValue(parsed)
			}
			ci.Descriptors = append(ci.Descriptors, di)
		}

		si.Characteristics = append(si.Characteristics, ci)
	}
	return si
}

func preview(v []byte, limit int) []byte {
	if limit > 0 && len(v) > limit {
		return v[:limit]
	}
	return v
}

// asciiPreview returns a safe ASCII preview, replacing non-printable bytes with '.'
func asciiPreview(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= 32 && c <= 126 {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
