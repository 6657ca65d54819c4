package install

import (
	"github.com/digitalocean/go-libvirt"
)

// libvirtClient is the part of the control plane the controller drives.
// *libvirt.Libvirt satisfies it; tests use a mock.
type libvirtClient interface {
	DomainLookupByName(name string) (libvirt.Domain, error)
	DomainDefineXML(xml string) (libvirt.Domain, error)
	// DomainCreateXML boots a transient domain.
	DomainCreateXML(xml string, flags libvirt.DomainCreateFlags) (libvirt.Domain, error)
	DomainCreate(dom libvirt.Domain) error
	// DomainDestroy force-stops a running domain.
	DomainDestroy(dom libvirt.Domain) error
	DomainUndefine(dom libvirt.Domain) error
	DomainSetAutostart(dom libvirt.Domain, autostart int32) error
}
