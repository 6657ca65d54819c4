// Package osdict provides the OS capability dictionary: per OS type and
// variant defaults for clock offset, firmware features, install staging
// and device models.
//
// The dictionary is a YAML document. A built-in copy is embedded; a site
// may replace it with its own file. Lookups resolve most specific first:
// variant, then OS type, then the dictionary-wide defaults. Device
// parameters are ordered rules, each optionally restricted to a set of
// platforms or to legacy hosts, and the first matching rule wins.
package osdict

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/guestforge/internal/guest"
)

//go:embed osdict.yaml
var builtin []byte

// Rule is one candidate value for a device parameter.
type Rule struct {
	// Platforms restricts the rule to these hypervisor types. Empty
	// matches every platform.
	Platforms []string `yaml:"platforms,omitempty" json:"platforms,omitempty"`
	// Legacy restricts the rule to legacy (true) or current (false)
	// hosts. Nil matches both.
	Legacy *bool  `yaml:"legacy,omitempty" json:"legacy,omitempty"`
	Value  string `yaml:"value" json:"value"`
}

// Entry holds the keys shared by every level of the dictionary.
type Entry struct {
	Label    string                       `yaml:"label,omitempty" json:"label,omitempty"`
	Distro   string                       `yaml:"distro,omitempty" json:"distro,omitempty"`
	Clock    string                       `yaml:"clock,omitempty" json:"clock,omitempty"`
	ACPI     *bool                        `yaml:"acpi,omitempty" json:"acpi,omitempty"`
	APIC     *bool                        `yaml:"apic,omitempty" json:"apic,omitempty"`
	Continue *bool                        `yaml:"continue,omitempty" json:"continue,omitempty"`
	Skip     bool                         `yaml:"skip,omitempty" json:"skip,omitempty"`
	Devices  map[string]map[string][]Rule `yaml:"devices,omitempty" json:"devices,omitempty"`
}

// Variant is a specific OS release.
type Variant struct {
	Name  string `yaml:"name" json:"name"`
	Entry `yaml:",inline"`
	// Versions lists the .treeinfo family/version pairs identifying the
	// variant on install media, e.g. "Fedora 39".
	Versions []string `yaml:"versions,omitempty" json:"versions,omitempty"`
}

// OSType groups related variants.
type OSType struct {
	Name     string `yaml:"name" json:"name"`
	Entry    `yaml:",inline"`
	Variants []Variant `yaml:"variants" json:"variants"`
}

// Table is a loaded dictionary. It implements guest.Resolver.
type Table struct {
	Defaults Entry    `yaml:"defaults"`
	Types    []OSType `yaml:"types"`
}

var _ guest.Resolver = (*Table)(nil)

// Builtin returns the embedded dictionary.
func Builtin() (*Table, error) {
	return Parse(builtin)
}

// Load reads a dictionary from a file. An empty path selects the
// embedded dictionary.
func Load(path string) (*Table, error) {
	if path == "" {
		return Builtin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OS dictionary %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML dictionary and checks names are unique.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OS dictionary: %w", err)
	}

	types := make(map[string]bool)
	for _, ot := range t.Types {
		if ot.Name == "" {
			return nil, fmt.Errorf("OS dictionary has a type with no name")
		}
		if types[ot.Name] {
			return nil, fmt.Errorf("OS dictionary type %q is duplicated", ot.Name)
		}
		types[ot.Name] = true

		variants := make(map[string]bool)
		for _, v := range ot.Variants {
			if v.Name == "" {
				return nil, fmt.Errorf("OS dictionary type %q has a variant with no name", ot.Name)
			}
			if variants[v.Name] {
				return nil, fmt.Errorf("OS dictionary variant %q is duplicated in %q", v.Name, ot.Name)
			}
			variants[v.Name] = true
		}
	}
	return &t, nil
}

func (t *Table) osType(name string) *OSType {
	for i := range t.Types {
		if t.Types[i].Name == name {
			return &t.Types[i]
		}
	}
	return nil
}

func (ot *OSType) variant(name string) *Variant {
	for i := range ot.Variants {
		if ot.Variants[i].Name == name {
			return &ot.Variants[i]
		}
	}
	return nil
}

// chain returns the entries consulted for q, most specific first.
func (t *Table) chain(q guest.Query) []*Entry {
	var out []*Entry
	if ot := t.osType(q.OSType); ot != nil {
		if v := ot.variant(q.OSVariant); v != nil {
			out = append(out, &v.Entry)
		}
		out = append(out, &ot.Entry)
	}
	return append(out, &t.Defaults)
}

// HasOSType reports whether the dictionary knows osType.
func (t *Table) HasOSType(osType string) bool {
	return t.osType(osType) != nil
}

// HasVariant reports whether variant belongs to osType.
func (t *Table) HasVariant(osType, variant string) bool {
	ot := t.osType(osType)
	return ot != nil && ot.variant(variant) != nil
}

// VariantType returns the first OS type, skipping hidden ones, that
// lists variant.
func (t *Table) VariantType(variant string) (string, bool) {
	for _, ot := range t.Types {
		if ot.Skip {
			continue
		}
		if ot.variant(variant) != nil {
			return ot.Name, true
		}
	}
	return "", false
}

// Lookup resolves a scalar key. Supported keys are label, distro, clock,
// acpi, apic and continue.
func (t *Table) Lookup(q guest.Query, key string) (any, bool) {
	for _, e := range t.chain(q) {
		switch key {
		case guest.KeyLabel:
			if e.Label != "" {
				return e.Label, true
			}
		case guest.KeyDistro:
			if e.Distro != "" {
				return e.Distro, true
			}
		case guest.KeyClock:
			if e.Clock != "" {
				return e.Clock, true
			}
		case guest.KeyACPI:
			if e.ACPI != nil {
				return *e.ACPI, true
			}
		case guest.KeyAPIC:
			if e.APIC != nil {
				return *e.APIC, true
			}
		case guest.KeyContinue:
			if e.Continue != nil {
				return *e.Continue, true
			}
		}
	}
	return nil, false
}

// LookupDevice resolves a device parameter such as ("disk", "bus").
func (t *Table) LookupDevice(q guest.Query, deviceType, param string) (string, bool) {
	for _, e := range t.chain(q) {
		rules, ok := e.Devices[deviceType][param]
		if !ok {
			continue
		}
		for _, r := range rules {
			if len(r.Platforms) > 0 && !slices.Contains(r.Platforms, q.Platform) {
				continue
			}
			if r.Legacy != nil && *r.Legacy != q.Legacy {
				continue
			}
			return r.Value, true
		}
	}
	return "", false
}

// VariantInfo is a flattened dictionary row used for listing.
type VariantInfo struct {
	Type    string `json:"type" yaml:"type"`
	Variant string `json:"variant" yaml:"variant"`
	Label   string `json:"label" yaml:"label"`
	Distro  string `json:"distro,omitempty" yaml:"distro,omitempty"`
}

// Variants lists every visible variant, optionally restricted to one OS
// type, sorted by type and then variant name.
func (t *Table) Variants(osType string) []VariantInfo {
	var out []VariantInfo
	for _, ot := range t.Types {
		if osType != "" && ot.Name != osType {
			continue
		}
		for _, v := range ot.Variants {
			if v.Skip {
				continue
			}
			q := guest.Query{OSType: ot.Name, OSVariant: v.Name}
			info := VariantInfo{Type: ot.Name, Variant: v.Name}
			if l, ok := t.Lookup(q, guest.KeyLabel); ok {
				info.Label = l.(string)
			}
			if d, ok := t.Lookup(q, guest.KeyDistro); ok {
				info.Distro = d.(string)
			}
			out = append(out, info)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Variant < out[j].Variant
	})
	return out
}

// ForRelease maps an install tree's family and version, as found in its
// .treeinfo, to an OS type and variant.
func (t *Table) ForRelease(family, version string) (string, string, bool) {
	want := family + " " + version
	for _, ot := range t.Types {
		for _, v := range ot.Variants {
			if slices.Contains(v.Versions, want) {
				return ot.Name, v.Name, true
			}
		}
	}
	return "", "", false
}
