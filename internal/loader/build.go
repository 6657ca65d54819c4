package loader

import (
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/jbweber/guestforge/api/v1alpha1"
	"github.com/jbweber/guestforge/internal/cloudinit"
	"github.com/jbweber/guestforge/internal/device"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/install"
	"github.com/jbweber/guestforge/internal/naming"
	"github.com/jbweber/guestforge/internal/storage"
)

// BuildOptions supplies what a manifest does not say.
type BuildOptions struct {
	Resolver guest.Resolver
	Host     guest.Host
	Releases install.ReleaseMapper

	// DefaultPool holds volumes for sized disks without a pool.
	DefaultPool string
	// SeedDir receives cloud-init seed images.
	SeedDir string

	// Fs is the host filesystem installers read. Nil selects the OS.
	Fs afero.Fs
}

// Build turns a validated manifest into a guest and its installer.
func Build(m *v1alpha1.Guest, opts BuildOptions) (*guest.Guest, install.Installer, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.DefaultPool == "" {
		opts.DefaultPool = storage.DefaultPool
	}

	g := guest.New(opts.Resolver)
	g.SetHost(opts.Host)
	if err := setGuest(g, m); err != nil {
		return nil, nil, err
	}

	for i, d := range m.Spec.Disks {
		disk, err := buildDisk(m.Name, i, d, opts.DefaultPool)
		if err != nil {
			return nil, nil, fmt.Errorf("spec.disks[%d]: %w", i, err)
		}
		g.AddDevice(disk)
	}
	for i, spec := range m.Spec.Interfaces {
		nic, err := buildInterface(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("spec.interfaces[%d]: %w", i, err)
		}
		g.AddDevice(nic)
	}
	for i, spec := range m.Spec.Filesystems {
		fs, err := buildFilesystem(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("spec.filesystems[%d]: %w", i, err)
		}
		g.AddDevice(fs)
	}
	if gfx := m.Spec.Graphics; gfx != nil && gfx.Type != "none" {
		dev, err := buildGraphics(gfx)
		if err != nil {
			return nil, nil, fmt.Errorf("spec.graphics: %w", err)
		}
		g.AddDevice(dev)
	}

	inst, err := buildInstaller(m, opts)
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(log.Fields{
		"guest":     g.Name(),
		"installer": inst.Name(),
		"devices":   g.Devices.Len(),
	}).Debug("built guest from manifest")
	return g, inst, nil
}

func setGuest(g *guest.Guest, m *v1alpha1.Guest) error {
	s := &m.Spec
	steps := []struct {
		field string
		set   func() error
		skip  bool
	}{
		{"metadata.name", func() error { return g.SetName(m.Name) }, false},
		{"spec.platform", func() error { return g.SetPlatform(s.Platform) }, s.Platform == ""},
		{"spec.os", func() error { return g.SetOS(s.OS.Type, s.OS.Variant) }, s.OS == (v1alpha1.OSSpec{})},
		{"spec.arch", func() error { return g.OS.Set("arch", s.Arch) }, s.Arch == ""},
		{"spec.machine", func() error { return g.OS.Set("machine", s.Machine) }, s.Machine == ""},
		{"spec.uuid", func() error { return g.SetUUID(s.UUID) }, s.UUID == ""},
		{"spec.description", func() error { return g.SetDescription(s.Description) }, s.Description == ""},
		{"spec.memoryMiB", func() error { return g.SetMemory(m.MemoryKiB()) }, false},
		{"spec.maxMemoryMiB", func() error { return g.SetMaxMemory(m.MaxMemoryKiB()) }, s.MaxMemoryMiB == 0},
		{"spec.vcpus", func() error { return g.SetVCPUs(s.VCPUs) }, false},
		{"spec.currentVCPUs", func() error { return g.SetCurVCPUs(s.CurrentVCPUs) }, s.CurrentVCPUs == 0},
		{"spec.cpuset", func() error { return g.Set("cpuset", s.CPUSet) }, s.CPUSet == ""},
		{"spec.clockOffset", func() error { return g.Clock.Set("offset", s.ClockOffset) }, s.ClockOffset == ""},
	}
	for _, st := range steps {
		if st.skip {
			continue
		}
		if err := st.set(); err != nil {
			return fmt.Errorf("%s: %w", st.field, err)
		}
	}

	for name, on := range s.Features {
		if err := g.Features.Set(name, on); err != nil {
			return fmt.Errorf("spec.features.%s: %w", name, err)
		}
	}
	return nil
}

func buildDisk(guestName string, index int, spec v1alpha1.DiskSpec, defaultPool string) (*device.Disk, error) {
	d := device.NewDisk()
	props := []struct {
		name  string
		value any
		set   bool
	}{
		{"device", spec.Device, spec.Device != ""},
		{"target", spec.Target, spec.Target != ""},
		{"bus", spec.Bus, spec.Bus != ""},
		{"driver_type", spec.Format, spec.Format != "" && spec.Path != ""},
		{"driver_cache", spec.Cache, spec.Cache != ""},
		{"readonly", true, spec.ReadOnly},
		{"shareable", true, spec.Shareable},
	}
	for _, p := range props {
		if !p.set {
			continue
		}
		if err := d.Set(p.name, p.value); err != nil {
			return nil, err
		}
	}

	if spec.Path != "" {
		d.SetSource(spec.Path)
		return d, nil
	}
	if spec.SizeGB == 0 {
		return d, nil
	}

	d.SizeGB = spec.SizeGB
	d.Format = spec.Format
	d.Pool = spec.Pool
	if d.Pool == "" {
		d.Pool = defaultPool
	}
	d.VolumeName = spec.Volume
	if d.VolumeName == "" {
		d.VolumeName = volumeName(guestName, index, spec)
	}
	return d, nil
}

func buildInterface(spec v1alpha1.InterfaceSpec) (*device.Interface, error) {
	nic := device.NewInterface()
	var err error
	switch {
	case spec.Bridge != "":
		err = setAll(nic, "type", device.InterfaceTypeBridge, "source_bridge", spec.Bridge)
	case spec.Network != "":
		err = setAll(nic, "type", device.InterfaceTypeNetwork, "source_network", spec.Network)
	}
	if err != nil {
		return nil, err
	}

	mac := spec.MAC
	if mac == "" {
		mac = macFromAddresses(spec.Addresses)
	}
	if mac != "" {
		if err := nic.Set("mac", mac); err != nil {
			return nil, err
		}
	}
	if spec.Model != "" {
		if err := nic.Set("model", spec.Model); err != nil {
			return nil, err
		}
	}
	return nic, nil
}

func buildFilesystem(spec v1alpha1.FilesystemSpec) (*device.Filesystem, error) {
	fs := device.NewFilesystem()
	fs.SetSource(spec.Source)
	if err := fs.Set("target", spec.Target); err != nil {
		return nil, err
	}
	if spec.ReadOnly {
		if err := fs.Set("readonly", true); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

func buildGraphics(spec *v1alpha1.GraphicsSpec) (*device.Graphics, error) {
	gfx := device.NewGraphics()
	if err := gfx.Set("type", spec.Type); err != nil {
		return nil, err
	}
	if spec.Port != nil {
		if err := gfx.Set("port", *spec.Port); err != nil {
			return nil, err
		}
	}
	if err := setAll(gfx, "listen", spec.Listen, "keymap", spec.Keymap); err != nil {
		return nil, err
	}
	return gfx, nil
}

func buildInstaller(m *v1alpha1.Guest, opts BuildOptions) (install.Installer, error) {
	in := m.Spec.Install
	switch in.Method {
	case v1alpha1.InstallMedia:
		media := install.NewMedia(in.Location, opts.Releases)
		media.Extra = in.ExtraArgs
		media.Fs = opts.Fs
		return media, nil
	case v1alpha1.InstallContainer:
		c := install.NewContainer(in.Bootstrap...)
		c.Fs = opts.Fs
		return c, nil
	case v1alpha1.InstallImport:
		imp := install.NewImport(buildSeed(m), opts.SeedDir)
		imp.Fs = opts.Fs
		return imp, nil
	case v1alpha1.InstallPXE:
		return install.PXE{}, nil
	}
	return nil, fmt.Errorf("spec.install.method %q is not supported", in.Method)
}

// buildSeed returns nil when the manifest asks for no cloud-init.
func buildSeed(m *v1alpha1.Guest) *cloudinit.Seed {
	ci := m.Spec.CloudInit
	if ci == nil {
		return nil
	}
	seed := &cloudinit.Seed{
		InstanceID:   m.UID,
		Hostname:     m.Hostname(),
		SSHKeys:      ci.SSHAuthorizedKeys,
		PasswordHash: ci.PasswordHash,
		SSHPwAuth:    ci.SSHPasswordAuth,
	}
	for _, iface := range m.Spec.Interfaces {
		mac := iface.MAC
		if mac == "" {
			mac = macFromAddresses(iface.Addresses)
		}
		seed.Interfaces = append(seed.Interfaces, cloudinit.Interface{
			MAC:       mac,
			Addresses: iface.Addresses,
			Gateway:   iface.Gateway,
			DNS:       iface.DNS,
		})
	}
	return seed
}

// volumeName names a created volume after the guest and disk target. A
// disk without an explicit target is named by its position.
func volumeName(guestName string, index int, spec v1alpha1.DiskSpec) string {
	target := spec.Target
	if target == "" {
		target = fmt.Sprintf("disk%d", index)
	}
	return naming.VolumeName(guestName, target, spec.Format)
}

type setter interface {
	Set(name string, v any) error
}

// setAll sets name/value pairs, skipping empty values.
func setAll(s setter, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		if err := s.Set(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// macFromAddresses derives a MAC from the first IPv4 address so a
// guest keeps its address across rebuilds.
func macFromAddresses(addrs []string) string {
	for _, a := range addrs {
		ip, _, err := net.ParseCIDR(a)
		if err != nil || ip.To4() == nil {
			continue
		}
		if mac, err := naming.MACFromIP(ip.String()); err == nil {
			return mac
		}
	}
	return ""
}
