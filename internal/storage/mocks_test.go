package storage

import (
	"fmt"
	"sync"

	"github.com/digitalocean/go-libvirt"
)

type mockLibvirtClient struct {
	mu sync.Mutex

	pools   map[string]bool
	volumes map[string]string // pool/name -> path

	buildErr  error
	createErr error
	volErr    error

	definedPools []string
	createdXML   []string
	undefined    []string
	refreshed    []string
}

func newMockLibvirtClient() *mockLibvirtClient {
	return &mockLibvirtClient{
		pools:   map[string]bool{},
		volumes: map[string]string{},
	}
}

func (m *mockLibvirtClient) addPool(name string) {
	m.pools[name] = true
}

func (m *mockLibvirtClient) addVolume(pool, name, path string) {
	m.volumes[pool+"/"+name] = path
}

func (m *mockLibvirtClient) StoragePoolLookupByName(name string) (libvirt.StoragePool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pools[name] {
		return libvirt.StoragePool{}, fmt.Errorf("storage pool not found: %s", name)
	}
	return libvirt.StoragePool{Name: name}, nil
}

func (m *mockLibvirtClient) StoragePoolDefineXML(xml string, _ uint32) (libvirt.StoragePool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.definedPools = append(m.definedPools, xml)
	m.pools[DefaultPool] = true
	return libvirt.StoragePool{Name: DefaultPool}, nil
}

func (m *mockLibvirtClient) StoragePoolBuild(libvirt.StoragePool, libvirt.StoragePoolBuildFlags) error {
	return m.buildErr
}

func (m *mockLibvirtClient) StoragePoolCreate(libvirt.StoragePool, libvirt.StoragePoolCreateFlags) error {
	return m.createErr
}

func (m *mockLibvirtClient) StoragePoolSetAutostart(libvirt.StoragePool, int32) error {
	return nil
}

func (m *mockLibvirtClient) StoragePoolUndefine(pool libvirt.StoragePool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undefined = append(m.undefined, pool.Name)
	delete(m.pools, pool.Name)
	return nil
}

func (m *mockLibvirtClient) StoragePoolRefresh(pool libvirt.StoragePool, _ uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed = append(m.refreshed, pool.Name)
	return nil
}

func (m *mockLibvirtClient) StorageVolLookupByName(pool libvirt.StoragePool, name string) (libvirt.StorageVol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.volumes[pool.Name+"/"+name]; !ok {
		return libvirt.StorageVol{}, fmt.Errorf("storage volume not found: %s", name)
	}
	return libvirt.StorageVol{Pool: pool.Name, Name: name}, nil
}

func (m *mockLibvirtClient) StorageVolCreateXML(pool libvirt.StoragePool, xml string, _ libvirt.StorageVolCreateFlags) (libvirt.StorageVol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.volErr != nil {
		return libvirt.StorageVol{}, m.volErr
	}
	m.createdXML = append(m.createdXML, xml)
	name := volumeNameFromXML(xml)
	m.volumes[pool.Name+"/"+name] = "/pools/" + pool.Name + "/" + name
	return libvirt.StorageVol{Pool: pool.Name, Name: name}, nil
}

func (m *mockLibvirtClient) StorageVolGetPath(vol libvirt.StorageVol) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path, ok := m.volumes[vol.Pool+"/"+vol.Name]
	if !ok {
		return "", fmt.Errorf("storage volume not found: %s", vol.Name)
	}
	return path, nil
}
