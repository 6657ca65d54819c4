// Package output renders guests, OS dictionary listings and host
// capabilities as tables, YAML or JSON.
package output

import (
	"fmt"

	"github.com/jbweber/guestforge/api/v1alpha1"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/osdict"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format for declarative configs.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formatter formats guestforge resources for output.
type Formatter interface {
	// FormatGuest formats a single Guest manifest with its status.
	FormatGuest(g *v1alpha1.Guest) (string, error)

	// FormatGuestList formats several Guest manifests.
	FormatGuestList(gs []*v1alpha1.Guest) (string, error)

	// FormatVariants formats OS dictionary rows.
	FormatVariants(vs []osdict.VariantInfo) (string, error)

	// FormatHost formats a probed host description.
	FormatHost(h guest.Host, libVersion string) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	switch Format(format) {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}

// hostView is the serialized shape of a host description.
type hostView struct {
	Arch             string            `json:"arch" yaml:"arch"`
	Libvirt          string            `json:"libvirt" yaml:"libvirt"`
	SupportsPAE      bool              `json:"supportsPAE" yaml:"supportsPAE"`
	SupportsSpiceVMC bool              `json:"supportsSpiceVMC" yaml:"supportsSpiceVMC"`
	BlktapCapable    bool              `json:"blktapCapable" yaml:"blktapCapable"`
	Emulators        map[string]string `json:"emulators,omitempty" yaml:"emulators,omitempty"`
}

func newHostView(h guest.Host, libVersion string) hostView {
	return hostView{
		Arch:             h.Arch,
		Libvirt:          libVersion,
		SupportsPAE:      h.SupportsPAE,
		SupportsSpiceVMC: h.SupportsSpiceVMC,
		BlktapCapable:    h.BlktapCapable,
		Emulators:        h.Emulators,
	}
}
