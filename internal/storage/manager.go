package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/digitalocean/go-libvirt"
	log "github.com/sirupsen/logrus"
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/guestforge/internal/device"
)

// LibvirtClient is the part of *libvirt.Libvirt the Manager uses.
type LibvirtClient interface {
	StoragePoolLookupByName(Name string) (libvirt.StoragePool, error)
	StoragePoolDefineXML(XML string, Flags uint32) (libvirt.StoragePool, error)
	StoragePoolBuild(Pool libvirt.StoragePool, Flags libvirt.StoragePoolBuildFlags) error
	StoragePoolCreate(Pool libvirt.StoragePool, Flags libvirt.StoragePoolCreateFlags) error
	StoragePoolSetAutostart(Pool libvirt.StoragePool, Autostart int32) error
	StoragePoolUndefine(Pool libvirt.StoragePool) error
	StoragePoolRefresh(Pool libvirt.StoragePool, Flags uint32) error
	StorageVolLookupByName(Pool libvirt.StoragePool, Name string) (libvirt.StorageVol, error)
	StorageVolCreateXML(Pool libvirt.StoragePool, XML string, Flags libvirt.StorageVolCreateFlags) (libvirt.StorageVol, error)
	StorageVolGetPath(Vol libvirt.StorageVol) (string, error)
}

// Manager creates volumes on demand for disks being set up.
type Manager struct {
	client LibvirtClient
}

var _ device.Provisioner = (*Manager)(nil)

// NewManager creates a new storage manager.
func NewManager(client LibvirtClient) *Manager {
	return &Manager{client: client}
}

// ProvisionVolume returns the path of the named volume, creating it when
// the pool has none. An empty pool name selects DefaultPool.
func (m *Manager) ProvisionVolume(ctx context.Context, req device.VolumeRequest) (string, error) {
	poolName := req.Pool
	if poolName == "" {
		poolName = DefaultPool
	}
	pool, err := m.lookupPool(ctx, poolName)
	if err != nil {
		return "", err
	}

	logger := log.WithFields(log.Fields{"pool": poolName, "volume": req.Name})
	if vol, err := m.client.StorageVolLookupByName(pool, req.Name); err == nil {
		logger.Debug("reusing existing volume")
		return m.volumePath(vol)
	}

	spec := VolumeSpec{Name: req.Name, Format: VolumeFormat(req.Format), CapacityGB: req.SizeGB}
	vol, err := m.createVolume(pool, spec)
	if err != nil {
		return "", err
	}
	logger.WithField("capacity_gb", spec.CapacityGB).Info("created volume")
	return m.volumePath(vol)
}

// lookupPool finds a pool by name. The default pool is created when
// missing.
func (m *Manager) lookupPool(ctx context.Context, name string) (libvirt.StoragePool, error) {
	pool, err := m.client.StoragePoolLookupByName(name)
	if err == nil {
		return pool, nil
	}
	if name != DefaultPool {
		return libvirt.StoragePool{}, fmt.Errorf("pool not found: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return libvirt.StoragePool{}, err
	}
	return m.createDirPool(name, DefaultPoolPath)
}

// createDirPool defines, builds, starts and autostarts a directory pool.
// A pool that cannot be built or started is undefined again.
func (m *Manager) createDirPool(name, path string) (libvirt.StoragePool, error) {
	poolXML, err := dirPoolXML(name, path)
	if err != nil {
		return libvirt.StoragePool{}, fmt.Errorf("failed to generate pool XML: %w", err)
	}

	pool, err := m.client.StoragePoolDefineXML(poolXML, 0)
	if err != nil {
		return libvirt.StoragePool{}, fmt.Errorf("failed to define pool: %w", err)
	}
	if err := m.client.StoragePoolBuild(pool, 0); err != nil {
		_ = m.client.StoragePoolUndefine(pool)
		return libvirt.StoragePool{}, fmt.Errorf("failed to build pool: %w", err)
	}
	if err := m.client.StoragePoolCreate(pool, 0); err != nil {
		_ = m.client.StoragePoolUndefine(pool)
		return libvirt.StoragePool{}, fmt.Errorf("failed to start pool: %w", err)
	}
	if err := m.client.StoragePoolSetAutostart(pool, 1); err != nil {
		log.WithError(err).WithField("pool", name).Warn("pool created but autostart could not be set")
	}

	log.WithFields(log.Fields{"pool": name, "path": path}).Info("created storage pool")
	return pool, nil
}

func dirPoolXML(name, path string) (string, error) {
	pool := &libvirtxml.StoragePool{
		Type:   "dir",
		Name:   name,
		Target: &libvirtxml.StoragePoolTarget{Path: path},
	}
	return marshalXML(pool.Marshal)
}

// marshalXML drops the XML declaration libvirtxml prepends.
func marshalXML(marshal func() (string, error)) (string, error) {
	doc, err := marshal()
	if err != nil {
		return "", err
	}
	doc = strings.TrimPrefix(doc, xmlHeader)
	return strings.TrimSpace(doc), nil
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`
