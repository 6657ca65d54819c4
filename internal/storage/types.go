package storage

import "fmt"

// VolumeFormat is an on-disk image format.
type VolumeFormat string

const (
	VolumeFormatQCOW2 VolumeFormat = "qcow2"
	VolumeFormatRaw   VolumeFormat = "raw"
)

// The pool created on demand when a host has none.
const (
	DefaultPool     = "default"
	DefaultPoolPath = "/var/lib/libvirt/images"
)

// VolumeSpec specifies a volume to create.
type VolumeSpec struct {
	Name       string
	Format     VolumeFormat
	CapacityGB uint64
}

// Validate checks that a volume can be created from s.
func (v *VolumeSpec) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("volume name is required")
	}
	switch v.Format {
	case VolumeFormatQCOW2, VolumeFormatRaw:
	case "":
		return fmt.Errorf("volume format is required")
	default:
		return fmt.Errorf("invalid volume format: %s (must be qcow2 or raw)", v.Format)
	}
	if v.CapacityGB == 0 {
		return fmt.Errorf("volume capacity must be greater than 0")
	}
	return nil
}

// CapacityBytes returns the capacity in bytes.
func (v *VolumeSpec) CapacityBytes() uint64 {
	return v.CapacityGB * 1024 * 1024 * 1024
}
