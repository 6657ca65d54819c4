// Package loader reads Guest manifests and turns them into a guest model
// plus the installer that puts software on it.
package loader

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/guestforge/api/v1alpha1"
)

// LoadFromFile loads a Guest manifest from a YAML file.
func LoadFromFile(path string) (*v1alpha1.Guest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return LoadFromYAML(data)
}

// LoadFromYAML parses, normalizes and validates a Guest manifest.
func LoadFromYAML(data []byte) (*v1alpha1.Guest, error) {
	var g v1alpha1.Guest
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if g.APIVersion == "" {
		return nil, fmt.Errorf("missing required field: apiVersion")
	}
	if g.Kind == "" {
		return nil, fmt.Errorf("missing required field: kind")
	}
	if g.APIVersion != v1alpha1.APIVersion {
		return nil, fmt.Errorf("unsupported apiVersion: %s (expected: %s)", g.APIVersion, v1alpha1.APIVersion)
	}
	if g.Kind != v1alpha1.GuestKind {
		return nil, fmt.Errorf("unsupported kind: %s (expected: %s)", g.Kind, v1alpha1.GuestKind)
	}

	g.Normalize()
	applyDefaults(&g)

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &g, nil
}

// SaveToFile writes a Guest manifest, status included.
func SaveToFile(g *v1alpha1.Guest, path string) error {
	return SaveToFs(afero.NewOsFs(), g, path)
}

// SaveToFs is SaveToFile on fs.
func SaveToFs(fs afero.Fs, g *v1alpha1.Guest, path string) error {
	v1alpha1.SetDefaultAPIVersion(g)

	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal guest to YAML: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

func applyDefaults(g *v1alpha1.Guest) {
	if g.Status.Phase == "" {
		g.Status.Phase = v1alpha1.GuestPhasePending
	}
	if g.Generation == 0 {
		g.Generation = 1
	}
	if g.Spec.Install.Method == "" {
		g.Spec.Install.Method = v1alpha1.InstallMedia
	}
}
