package v1alpha1

import (
	"fmt"
	"net"
	"regexp"
	"slices"

	"golang.org/x/crypto/ssh"
)

var (
	platforms      = []string{"", "kvm", "qemu", "xen", "lxc"}
	features       = []string{"acpi", "apic", "pae", "hap", "viridian"}
	clockOffsets   = []string{"", "utc", "localtime"}
	graphicsTypes  = []string{"vnc", "spice", "sdl", "none"}
	diskDevices    = []string{"", "disk", "cdrom", "floppy"}
	diskFormats    = []string{"", "qcow2", "raw"}
	installMethods = []string{InstallMedia, InstallContainer, InstallImport, InstallPXE}
)

// RFC 952/1123 labels, at least two of them.
var fqdnRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// Validate checks the manifest's structure. Host resources (pools,
// networks, media) are checked when the guest is installed.
func (g *Guest) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}

	s := &g.Spec
	if !slices.Contains(platforms, s.Platform) {
		return fmt.Errorf("spec.platform %q is not one of kvm, qemu, xen, lxc", s.Platform)
	}
	if s.MemoryMiB <= 0 {
		return fmt.Errorf("spec.memoryMiB must be greater than 0")
	}
	if s.MaxMemoryMiB < 0 {
		return fmt.Errorf("spec.maxMemoryMiB must not be negative")
	}
	if s.VCPUs <= 0 {
		return fmt.Errorf("spec.vcpus must be greater than 0")
	}
	if s.CurrentVCPUs < 0 || s.CurrentVCPUs > s.VCPUs {
		return fmt.Errorf("spec.currentVCPUs must be between 1 and spec.vcpus")
	}
	for name := range s.Features {
		if !slices.Contains(features, name) {
			return fmt.Errorf("spec.features: unknown feature %q", name)
		}
	}
	if !slices.Contains(clockOffsets, s.ClockOffset) {
		return fmt.Errorf("spec.clockOffset %q must be utc or localtime", s.ClockOffset)
	}
	if s.Graphics != nil && !slices.Contains(graphicsTypes, s.Graphics.Type) {
		return fmt.Errorf("spec.graphics.type %q is not one of vnc, spice, sdl, none", s.Graphics.Type)
	}

	if err := s.validateDisks(); err != nil {
		return err
	}
	if err := s.validateInterfaces(); err != nil {
		return err
	}
	for i, fs := range s.Filesystems {
		if fs.Source == "" || fs.Target == "" {
			return fmt.Errorf("spec.filesystems[%d]: source and target are required", i)
		}
	}
	if err := s.validateInstall(); err != nil {
		return err
	}

	if s.CloudInit != nil {
		if s.Install.Method != InstallImport {
			return fmt.Errorf("spec.cloudInit is only supported with the import install method")
		}
		if err := s.CloudInit.Validate(); err != nil {
			return fmt.Errorf("spec.cloudInit: %w", err)
		}
	}
	return nil
}

func (s *GuestSpec) validateDisks() error {
	targets := make(map[string]bool)
	for i, d := range s.Disks {
		if !slices.Contains(diskDevices, d.Device) {
			return fmt.Errorf("spec.disks[%d].device %q is not one of disk, cdrom, floppy", i, d.Device)
		}
		if !slices.Contains(diskFormats, d.Format) {
			return fmt.Errorf("spec.disks[%d].format %q must be qcow2 or raw", i, d.Format)
		}
		if d.Path != "" && d.SizeGB > 0 {
			return fmt.Errorf("spec.disks[%d] cannot specify both path and sizeGB", i)
		}
		media := d.Device == "cdrom" || d.Device == "floppy"
		if d.Path == "" && d.SizeGB == 0 && !media {
			return fmt.Errorf("spec.disks[%d] must specify either path or sizeGB", i)
		}
		if media && d.SizeGB > 0 {
			return fmt.Errorf("spec.disks[%d]: a %s cannot be created with sizeGB", i, d.Device)
		}
		if d.Target != "" {
			if targets[d.Target] {
				return fmt.Errorf("spec.disks[%d].target %q is duplicated", i, d.Target)
			}
			targets[d.Target] = true
		}
	}
	return nil
}

func (s *GuestSpec) validateInterfaces() error {
	macs := make(map[string]bool)
	for i, iface := range s.Interfaces {
		if iface.Network != "" && iface.Bridge != "" {
			return fmt.Errorf("spec.interfaces[%d] cannot specify both network and bridge", i)
		}
		for j, addr := range iface.Addresses {
			if _, _, err := net.ParseCIDR(addr); err != nil {
				return fmt.Errorf("spec.interfaces[%d].addresses[%d]: invalid ip/cidr format %q: %w", i, j, addr, err)
			}
		}
		if iface.Gateway != "" && net.ParseIP(iface.Gateway) == nil {
			return fmt.Errorf("spec.interfaces[%d].gateway: invalid IP address %q", i, iface.Gateway)
		}
		for j, dns := range iface.DNS {
			if net.ParseIP(dns) == nil {
				return fmt.Errorf("spec.interfaces[%d].dns[%d] is not a valid IP address: %q", i, j, dns)
			}
		}
		if iface.MAC != "" {
			if macs[iface.MAC] {
				return fmt.Errorf("spec.interfaces[%d].mac %q is duplicated", i, iface.MAC)
			}
			macs[iface.MAC] = true
		}
	}
	return nil
}

func (s *GuestSpec) validateInstall() error {
	in := &s.Install
	if !slices.Contains(installMethods, in.Method) {
		return fmt.Errorf("spec.install.method %q is not one of media, container, import, pxe", in.Method)
	}

	switch in.Method {
	case InstallMedia:
		if in.Location == "" {
			return fmt.Errorf("spec.install.location is required for media installs")
		}
	case InstallContainer:
		if s.Platform != "lxc" {
			return fmt.Errorf("container installs need spec.platform lxc")
		}
		if len(in.Bootstrap) == 0 {
			return fmt.Errorf("spec.install.bootstrap is required for container installs")
		}
	case InstallImport:
		if !slices.ContainsFunc(s.Disks, func(d DiskSpec) bool { return d.Path != "" }) {
			return fmt.Errorf("import installs need a disk with a path")
		}
	case InstallPXE:
		if len(s.Interfaces) == 0 {
			return fmt.Errorf("pxe installs need at least one interface")
		}
	}
	if in.ExtraArgs != "" && in.Method != InstallMedia {
		return fmt.Errorf("spec.install.extraArgs is only supported with the media install method")
	}
	return nil
}

// Validate checks the cloud-init settings.
func (c *CloudInitSpec) Validate() error {
	if c.FQDN != "" && !fqdnRe.MatchString(c.FQDN) {
		return fmt.Errorf("fqdn must be a valid hostname with domain (e.g., host.example.com), got %q", c.FQDN)
	}

	for i, key := range c.SSHAuthorizedKeys {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
			return fmt.Errorf("sshAuthorizedKeys[%d] is not a valid SSH public key: %w", i, err)
		}
	}

	if c.PasswordHash != "" && (len(c.PasswordHash) < 10 || c.PasswordHash[0] != '$') {
		return fmt.Errorf("passwordHash must be a valid crypt hash (should start with $)")
	}
	return nil
}
