package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jbweber/guestforge/api/v1alpha1"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/osdict"
)

// JSONFormatter formats resources as JSON.
type JSONFormatter struct{}

// FormatGuest formats a single Guest as JSON.
func (f *JSONFormatter) FormatGuest(g *v1alpha1.Guest) (string, error) {
	v1alpha1.SetDefaultAPIVersion(g)
	return marshalJSON(g, "guest")
}

// FormatGuestList formats Guests as a List object:
//
//	{
//	  "apiVersion": "guestforge.cofront.xyz/v1alpha1",
//	  "kind": "GuestList",
//	  "items": [...]
//	}
func (f *JSONFormatter) FormatGuestList(gs []*v1alpha1.Guest) (string, error) {
	for _, g := range gs {
		v1alpha1.SetDefaultAPIVersion(g)
	}
	if gs == nil {
		gs = []*v1alpha1.Guest{}
	}

	wrapper := map[string]any{
		"apiVersion": v1alpha1.APIVersion,
		"kind":       v1alpha1.GuestKind + "List",
		"items":      gs,
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(wrapper); err != nil {
		return "", fmt.Errorf("failed to marshal guest list to JSON: %w", err)
	}
	return buf.String(), nil
}

// FormatVariants formats dictionary rows as a JSON array.
func (f *JSONFormatter) FormatVariants(vs []osdict.VariantInfo) (string, error) {
	if len(vs) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(vs, "variants")
}

func (f *JSONFormatter) FormatHost(h guest.Host, libVersion string) (string, error) {
	return marshalJSON(newHostView(h, libVersion), "host")
}

func marshalJSON(v any, what string) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to JSON: %w", what, err)
	}
	return string(data) + "\n", nil
}
