package install

import (
	"context"
	"fmt"
	"sync"

	"github.com/digitalocean/go-libvirt"

	"github.com/jbweber/guestforge/internal/device"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/progress"
)

// mockLibvirtClient is a mock implementation of libvirtClient.
type mockLibvirtClient struct {
	mu sync.Mutex

	domainLookupByNameFunc func(name string) (libvirt.Domain, error)
	domainDefineXMLFunc    func(xml string) (libvirt.Domain, error)
	domainCreateXMLFunc    func(xml string, flags libvirt.DomainCreateFlags) (libvirt.Domain, error)
	domainCreateFunc       func(dom libvirt.Domain) error
	domainDestroyFunc      func(dom libvirt.Domain) error
	domainUndefineFunc     func(dom libvirt.Domain) error
	domainSetAutostartFunc func(dom libvirt.Domain, autostart int32) error

	domainLookupByNameCalls []string
	domainDefineXMLCalls    []string
	domainCreateXMLCalls    []string
	domainCreateCalls       []libvirt.Domain
	domainDestroyCalls      []libvirt.Domain
	domainUndefineCalls     []libvirt.Domain
	domainSetAutostartCalls []libvirt.Domain
}

// newMockLibvirtClient returns a client on which no domain exists and
// every operation succeeds.
func newMockLibvirtClient() *mockLibvirtClient {
	m := &mockLibvirtClient{}

	m.domainLookupByNameFunc = func(name string) (libvirt.Domain, error) {
		return libvirt.Domain{}, fmt.Errorf("domain not found: %s", name)
	}
	m.domainDefineXMLFunc = func(xml string) (libvirt.Domain, error) {
		return libvirt.Domain{Name: "web01", ID: -1}, nil
	}
	m.domainCreateXMLFunc = func(xml string, flags libvirt.DomainCreateFlags) (libvirt.Domain, error) {
		return libvirt.Domain{Name: "web01", ID: 7}, nil
	}
	m.domainCreateFunc = func(dom libvirt.Domain) error { return nil }
	m.domainDestroyFunc = func(dom libvirt.Domain) error { return nil }
	m.domainUndefineFunc = func(dom libvirt.Domain) error { return nil }
	m.domainSetAutostartFunc = func(dom libvirt.Domain, autostart int32) error { return nil }

	return m
}

func (m *mockLibvirtClient) DomainLookupByName(name string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainLookupByNameCalls = append(m.domainLookupByNameCalls, name)
	return m.domainLookupByNameFunc(name)
}

func (m *mockLibvirtClient) DomainDefineXML(xml string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDefineXMLCalls = append(m.domainDefineXMLCalls, xml)
	return m.domainDefineXMLFunc(xml)
}

func (m *mockLibvirtClient) DomainCreateXML(xml string, flags libvirt.DomainCreateFlags) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainCreateXMLCalls = append(m.domainCreateXMLCalls, xml)
	return m.domainCreateXMLFunc(xml, flags)
}

func (m *mockLibvirtClient) DomainCreate(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainCreateCalls = append(m.domainCreateCalls, dom)
	return m.domainCreateFunc(dom)
}

func (m *mockLibvirtClient) DomainDestroy(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDestroyCalls = append(m.domainDestroyCalls, dom)
	return m.domainDestroyFunc(dom)
}

func (m *mockLibvirtClient) DomainUndefine(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainUndefineCalls = append(m.domainUndefineCalls, dom)
	return m.domainUndefineFunc(dom)
}

func (m *mockLibvirtClient) DomainSetAutostart(dom libvirt.Domain, autostart int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainSetAutostartCalls = append(m.domainSetAutostartCalls, dom)
	return m.domainSetAutostartFunc(dom, autostart)
}

// mockInstaller is a configurable Installer.
type mockInstaller struct {
	installPhase bool

	prepareFunc func(g *guest.Guest) error
	detectFunc  func() (string, string, error)

	prepareCalls int
	cleanupCalls int
	alterCalls   []bool
}

func newMockInstaller(installPhase bool) *mockInstaller {
	return &mockInstaller{
		installPhase: installPhase,
		prepareFunc:  func(*guest.Guest) error { return nil },
		detectFunc:   func() (string, string, error) { return "", "", nil },
	}
}

func (m *mockInstaller) Name() string          { return "mock" }
func (m *mockInstaller) HasInstallPhase() bool { return m.installPhase }

func (m *mockInstaller) DetectDistro(context.Context) (string, string, error) {
	return m.detectFunc()
}

func (m *mockInstaller) Prepare(_ context.Context, g *guest.Guest, _ progress.Meter) error {
	m.prepareCalls++
	return m.prepareFunc(g)
}

func (m *mockInstaller) AlterBootConfig(g *guest.Guest, install bool) error {
	m.alterCalls = append(m.alterCalls, install)
	order := []string{"hd"}
	if install {
		order = []string{"cdrom", "hd"}
	}
	return g.OS.Set("bootorder", order)
}

func (m *mockInstaller) Cleanup() error {
	m.cleanupCalls++
	return nil
}

// mockProvisioner records volume requests and returns a path under
// /pool/<pool>.
type mockProvisioner struct {
	err      error
	requests []device.VolumeRequest
}

func (m *mockProvisioner) ProvisionVolume(_ context.Context, req device.VolumeRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("/pool/%s/%s", req.Pool, req.Name), nil
}
