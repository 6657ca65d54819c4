package libvirt

import (
	"fmt"

	"github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/guestforge/internal/guest"
)

// spiceVMCVersion is the first libvirt release with the spicevmc
// channel.
var spiceVMCVersion = version.Must(version.NewVersion("0.8.8"))

// tapdiskPaths are the blktap userspace drivers Xen hosts ship.
var tapdiskPaths = []string{"/usr/sbin/tapdisk", "/usr/sbin/tapdisk2"}

// capsClient is the part of *libvirt.Libvirt the host probe needs.
type capsClient interface {
	ConnectGetCapabilities() (string, error)
	ConnectGetLibVersion() (uint64, error)
}

// Probe describes the connected host from its capabilities document and
// library version. fs is consulted for the blktap driver.
func Probe(c capsClient, fs afero.Fs) (guest.Host, error) {
	caps, err := c.ConnectGetCapabilities()
	if err != nil {
		return guest.Host{}, fmt.Errorf("failed to get host capabilities: %w", err)
	}
	libVersion, err := c.ConnectGetLibVersion()
	if err != nil {
		return guest.Host{}, fmt.Errorf("failed to get libvirt version: %w", err)
	}
	return HostFromCaps(caps, libVersion, fs)
}

// HostFromCaps builds a host description from a capabilities document.
// libVersion is libvirt's packed major*1000000+minor*1000+release.
func HostFromCaps(capsXML string, libVersion uint64, fs afero.Fs) (guest.Host, error) {
	var caps libvirtxml.Caps
	if err := caps.Unmarshal(capsXML); err != nil {
		return guest.Host{}, fmt.Errorf("failed to decode host capabilities: %w", err)
	}

	host := guest.Host{Emulators: make(map[string]string)}
	if caps.Host.CPU != nil {
		host.Arch = caps.Host.CPU.Arch
	}

	xen := false
	for _, g := range caps.Guests {
		emulator := g.Arch.Emulator
		for _, d := range g.Arch.Domains {
			if d.Type == "kvm" && d.Emulator != "" {
				emulator = d.Emulator
			}
			if d.Type == "xen" {
				xen = true
			}
		}
		if emulator != "" {
			host.Emulators[g.OSType+"/"+g.Arch.Name] = emulator
		}
		if g.Features != nil && g.Features.PAE != nil && g.Arch.Name == host.Arch {
			host.SupportsPAE = true
		}
	}

	v, err := version.NewVersion(FormatVersion(libVersion))
	if err != nil {
		return guest.Host{}, fmt.Errorf("failed to parse libvirt version %d: %w", libVersion, err)
	}
	host.SupportsSpiceVMC = v.GreaterThanOrEqual(spiceVMCVersion)

	if xen && fs != nil {
		for _, p := range tapdiskPaths {
			if ok, _ := afero.Exists(fs, p); ok {
				host.BlktapCapable = true
				break
			}
		}
	}

	log.WithFields(log.Fields{
		"arch":      host.Arch,
		"libvirt":   v.String(),
		"emulators": len(host.Emulators),
		"pae":       host.SupportsPAE,
	}).Debug("probed host capabilities")
	return host, nil
}

// FormatVersion renders a packed libvirt version as major.minor.release.
func FormatVersion(v uint64) string {
	return fmt.Sprintf("%d.%d.%d", v/1000000, (v/1000)%1000, v%1000)
}
