package storage

import (
	"fmt"

	"github.com/digitalocean/go-libvirt"
	"libvirt.org/go/libvirtxml"
)

// createVolume creates a volume in pool and refreshes the pool so the
// new file is listed.
func (m *Manager) createVolume(pool libvirt.StoragePool, spec VolumeSpec) (libvirt.StorageVol, error) {
	if err := spec.Validate(); err != nil {
		return libvirt.StorageVol{}, fmt.Errorf("invalid volume spec: %w", err)
	}

	volumeXML, err := volumeXML(spec)
	if err != nil {
		return libvirt.StorageVol{}, fmt.Errorf("failed to generate volume XML: %w", err)
	}

	vol, err := m.client.StorageVolCreateXML(pool, volumeXML, 0)
	if err != nil {
		return libvirt.StorageVol{}, fmt.Errorf("failed to create volume %s: %w", spec.Name, err)
	}
	if err := m.client.StoragePoolRefresh(pool, 0); err != nil {
		return libvirt.StorageVol{}, fmt.Errorf("failed to refresh pool %s: %w", pool.Name, err)
	}
	return vol, nil
}

func (m *Manager) volumePath(vol libvirt.StorageVol) (string, error) {
	path, err := m.client.StorageVolGetPath(vol)
	if err != nil {
		return "", fmt.Errorf("failed to get volume path: %w", err)
	}
	return path, nil
}

func volumeXML(spec VolumeSpec) (string, error) {
	vol := &libvirtxml.StorageVolume{
		Type: "file",
		Name: spec.Name,
		Capacity: &libvirtxml.StorageVolumeSize{
			Value: spec.CapacityBytes(),
			Unit:  "B",
		},
		Target: &libvirtxml.StorageVolumeTarget{
			Format: &libvirtxml.StorageVolumeTargetFormat{Type: string(spec.Format)},
		},
	}
	// qcow2 grows on demand; raw volumes get no up-front allocation.
	if spec.Format == VolumeFormatRaw {
		vol.Allocation = &libvirtxml.StorageVolumeSize{Value: 0, Unit: "B"}
	}
	return marshalXML(vol.Marshal)
}
