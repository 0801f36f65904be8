package inspector

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists every output format.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// TextOptions tunes WriteText.
type TextOptions struct {
	Color bool
}

// Write renders p in format.
func Write(w io.Writer, p *Profile, format string, opts TextOptions) error {
	switch format {
	case FormatText, "":
		return WriteText(w, p, opts)
	case FormatJSON:
		return WriteJSON(w, p)
	case FormatYAML:
		return WriteYAML(w, p)
	default:
		return fmt.Errorf("unsupported output format %q (want one of %v)", format, Formats)
	}
}

// IsFormat reports whether format is accepted by Write.
func IsFormat(format string) bool {
	return slices.Contains(Formats, format)
}

// WriteJSON renders p as indented JSON.
func WriteJSON(w io.Writer, p *Profile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// WriteYAML renders p as YAML.
func WriteYAML(w io.Writer, p *Profile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

type palette struct {
	uuid, name, label, ok, bad *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		uuid:  color.New(color.FgCyan),
		name:  color.New(color.Bold),
		label: color.New(color.Faint),
		ok:    color.New(color.FgGreen),
		bad:   color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.uuid, p.name, p.label, p.ok, p.bad} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) state(s string) string {
	switch s {
	case "discovered", "connected":
		return p.ok.Sprint(s)
	case "needs-rediscovery":
		return p.bad.Sprint(s)
	default:
		return s
	}
}

func (p palette) title(kind, uuid, name string) string {
	s := kind + " " + p.uuid.Sprint(uuid)
	if name != "" {
		s += " (" + p.name.Sprint(name) + ")"
	}
	return s
}

// WriteText renders p for humans.
func WriteText(w io.Writer, p *Profile, opts TextOptions) error {
	c := newPalette(opts.Color)
	ew := &errWriter{w: w}

	ew.printf("Device: %s\n", p.Address)
	ew.printf("State: %s\n", c.state(p.State))
	ew.printf("Services: %d\n", len(p.Services))

	for _, s := range p.Services {
		ew.printf("\n%s\n", c.title("Service", s.UUID, s.Name))
		ew.printf("  %s %s  %s 0x%04X-0x%04X  %s %s\n",
			c.label.Sprint("Type:"), s.Type,
			c.label.Sprint("Handles:"), s.StartHandle, s.EndHandle,
			c.label.Sprint("State:"), c.state(s.State))
		if s.Error != "" {
			ew.printf("  %s %s\n", c.label.Sprint("Error:"), c.bad.Sprint(s.Error))
		}

		for _, ch := range s.Characteristics {
			ew.printf("  %s\n", c.title("Characteristic", ch.UUID, ch.Name))
			ew.printf("    %s 0x%04X  %s 0x%04X  %s %s\n",
				c.label.Sprint("Handle:"), ch.Handle,
				c.label.Sprint("Value handle:"), ch.ValueHandle,
				c.label.Sprint("Properties:"), ch.Properties)
			if ch.ValueHex != "" {
				ew.printf("    %s %s %q\n", c.label.Sprint("Value:"), ch.ValueHex, ch.ValueASCII)
			}

			for _, d := range ch.Descriptors {
				ew.printf("    %s\n", c.title("Descriptor", d.UUID, d.Name))
				value := d.Value
				if value == "" {
					value = d.ValueHex
				}
				if value == "" {
					value = "(empty)"
				}
				ew.printf("      %s 0x%04X  %s %s\n",
					c.label.Sprint("Handle:"), d.Handle,
					c.label.Sprint("Value:"), value)
			}
		}
	}
	return ew.err
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
