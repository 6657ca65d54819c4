package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/guestforge/api/v1alpha1"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/osdict"
)

// YAMLFormatter formats resources as YAML.
type YAMLFormatter struct{}

// FormatGuest formats a single Guest as YAML.
func (f *YAMLFormatter) FormatGuest(g *v1alpha1.Guest) (string, error) {
	v1alpha1.SetDefaultAPIVersion(g)

	data, err := yaml.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to marshal guest to YAML: %w", err)
	}
	return string(data), nil
}

// FormatGuestList formats Guests as a YAML stream, one document each.
func (f *YAMLFormatter) FormatGuestList(gs []*v1alpha1.Guest) (string, error) {
	var buf bytes.Buffer
	for i, g := range gs {
		v1alpha1.SetDefaultAPIVersion(g)

		data, err := yaml.Marshal(g)
		if err != nil {
			return "", fmt.Errorf("failed to marshal guest %s to YAML: %w", g.Name, err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}
	return buf.String(), nil
}

// FormatVariants formats dictionary rows as a YAML sequence.
func (f *YAMLFormatter) FormatVariants(vs []osdict.VariantInfo) (string, error) {
	if len(vs) == 0 {
		return "[]\n", nil
	}
	data, err := yaml.Marshal(vs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal variants to YAML: %w", err)
	}
	return string(data), nil
}

func (f *YAMLFormatter) FormatHost(h guest.Host, libVersion string) (string, error) {
	data, err := yaml.Marshal(newHostView(h, libVersion))
	if err != nil {
		return "", fmt.Errorf("failed to marshal host to YAML: %w", err)
	}
	return string(data), nil
}
