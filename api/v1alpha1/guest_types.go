package v1alpha1

// Guest is a virtual machine definition together with how to install it.
//
// A minimal manifest:
//
//	apiVersion: guestforge.cofront.xyz/v1alpha1
//	kind: Guest
//	metadata:
//	  name: web01
//	spec:
//	  memoryMiB: 2048
//	  vcpus: 2
//	  os: {type: linux, variant: fedora39}
//	  disks:
//	    - {sizeGB: 20}
//	  interfaces:
//	    - {network: default}
//	  install:
//	    method: media
//	    location: /srv/iso/Fedora-Server-dvd-x86_64-39.iso
type Guest struct {
	TypeMeta   `json:",inline" yaml:",inline"`
	ObjectMeta `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Spec   GuestSpec   `json:"spec" yaml:"spec"`
	Status GuestStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// GuestSpec is the desired guest.
type GuestSpec struct {
	// Platform is the hypervisor: kvm (default), qemu, xen or lxc.
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`
	// Arch defaults to the host architecture.
	Arch string `json:"arch,omitempty" yaml:"arch,omitempty"`
	// Machine is the emulated machine type, e.g. pc-q35-8.2.
	Machine string `json:"machine,omitempty" yaml:"machine,omitempty"`

	UUID        string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	OS OSSpec `json:"os,omitempty" yaml:"os,omitempty"`

	MemoryMiB    int `json:"memoryMiB" yaml:"memoryMiB"`
	MaxMemoryMiB int `json:"maxMemoryMiB,omitempty" yaml:"maxMemoryMiB,omitempty"`
	VCPUs        int `json:"vcpus" yaml:"vcpus"`
	// CurrentVCPUs starts the guest with fewer than VCPUs online.
	CurrentVCPUs int    `json:"currentVCPUs,omitempty" yaml:"currentVCPUs,omitempty"`
	CPUSet       string `json:"cpuset,omitempty" yaml:"cpuset,omitempty"`

	// Features turns acpi, apic, pae, hap or viridian on or off. An
	// absent feature follows the OS dictionary and the host.
	Features map[string]bool `json:"features,omitempty" yaml:"features,omitempty"`
	// ClockOffset is utc or localtime.
	ClockOffset string `json:"clockOffset,omitempty" yaml:"clockOffset,omitempty"`

	Graphics    *GraphicsSpec    `json:"graphics,omitempty" yaml:"graphics,omitempty"`
	Disks       []DiskSpec       `json:"disks,omitempty" yaml:"disks,omitempty"`
	Interfaces  []InterfaceSpec  `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Filesystems []FilesystemSpec `json:"filesystems,omitempty" yaml:"filesystems,omitempty"`

	Install   InstallSpec    `json:"install" yaml:"install"`
	CloudInit *CloudInitSpec `json:"cloudInit,omitempty" yaml:"cloudInit,omitempty"`

	// Autostart starts the guest with the host. Defaults to false.
	Autostart *bool `json:"autostart,omitempty" yaml:"autostart,omitempty"`
}

// OSSpec names the guest operating system in the OS dictionary. Both
// fields may be left empty for install media that identifies itself.
type OSSpec struct {
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	Variant string `json:"variant,omitempty" yaml:"variant,omitempty"`
}

// GraphicsSpec is the remote display. Type none disables it.
type GraphicsSpec struct {
	Type string `json:"type" yaml:"type"`
	// Port -1 or absent allocates a port automatically.
	Port   *int   `json:"port,omitempty" yaml:"port,omitempty"`
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
	Keymap string `json:"keymap,omitempty" yaml:"keymap,omitempty"`
}

// DiskSpec is a block device. Exactly one of Path or SizeGB describes its
// storage, except for an empty cdrom drive which has neither.
type DiskSpec struct {
	// Target is the guest device name. Unset targets are assigned in
	// order per bus.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	// Device is disk (default), cdrom or floppy.
	Device string `json:"device,omitempty" yaml:"device,omitempty"`
	Bus    string `json:"bus,omitempty" yaml:"bus,omitempty"`

	// Path is an existing file or block device.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// SizeGB creates a volume of that size in Pool.
	SizeGB uint64 `json:"sizeGB,omitempty" yaml:"sizeGB,omitempty"`
	Pool   string `json:"pool,omitempty" yaml:"pool,omitempty"`
	// Volume defaults to <name>-<target>.<format>.
	Volume string `json:"volume,omitempty" yaml:"volume,omitempty"`
	// Format is qcow2 (default for new volumes) or raw.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	Cache     string `json:"cache,omitempty" yaml:"cache,omitempty"`
	ReadOnly  bool   `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Shareable bool   `json:"shareable,omitempty" yaml:"shareable,omitempty"`
}

// InterfaceSpec is a network interface. Network and Bridge are mutually
// exclusive; with neither the libvirt default network is used.
type InterfaceSpec struct {
	Network string `json:"network,omitempty" yaml:"network,omitempty"`
	Bridge  string `json:"bridge,omitempty" yaml:"bridge,omitempty"`
	// MAC defaults to one derived from the first IPv4 address, else a
	// random address in the 52:54:00 range.
	MAC   string `json:"mac,omitempty" yaml:"mac,omitempty"`
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Addresses, Gateway and DNS configure the guest side through
	// cloud-init. Addresses use CIDR notation.
	Addresses []string `json:"addresses,omitempty" yaml:"addresses,omitempty"`
	Gateway   string   `json:"gateway,omitempty" yaml:"gateway,omitempty"`
	DNS       []string `json:"dns,omitempty" yaml:"dns,omitempty"`
}

// FilesystemSpec exports a host directory. Container guests need one with
// target "/".
type FilesystemSpec struct {
	Source   string `json:"source" yaml:"source"`
	Target   string `json:"target" yaml:"target"`
	ReadOnly bool   `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
}

// Install methods.
const (
	InstallMedia     = "media"
	InstallContainer = "container"
	InstallImport    = "import"
	InstallPXE       = "pxe"
)

// InstallSpec selects how the guest's software gets onto its disks.
type InstallSpec struct {
	Method string `json:"method" yaml:"method"`
	// Location is the ISO image or install tree for the media method.
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	// ExtraArgs is appended to the kernel command line of a tree install.
	ExtraArgs string `json:"extraArgs,omitempty" yaml:"extraArgs,omitempty"`
	// Bootstrap is the container install command. "{root}" is replaced
	// by the root filesystem's host directory.
	Bootstrap []string `json:"bootstrap,omitempty" yaml:"bootstrap,omitempty"`
}

// CloudInitSpec seeds an imported image on first boot.
type CloudInitSpec struct {
	// FQDN defaults to the guest name.
	FQDN              string   `json:"fqdn,omitempty" yaml:"fqdn,omitempty"`
	SSHAuthorizedKeys []string `json:"sshAuthorizedKeys,omitempty" yaml:"sshAuthorizedKeys,omitempty"`
	// PasswordHash is a crypt(3) hash for root.
	PasswordHash    string `json:"passwordHash,omitempty" yaml:"passwordHash,omitempty"`
	SSHPasswordAuth bool   `json:"sshPasswordAuth,omitempty" yaml:"sshPasswordAuth,omitempty"`
}

// GuestStatus is written back after an install.
type GuestStatus struct {
	Phase      GuestPhase  `json:"phase,omitempty" yaml:"phase,omitempty"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	DomainUUID   string   `json:"domainUUID,omitempty" yaml:"domainUUID,omitempty"`
	MACAddresses []string `json:"macAddresses,omitempty" yaml:"macAddresses,omitempty"`

	ObservedGeneration int64 `json:"observedGeneration,omitempty" yaml:"observedGeneration,omitempty"`
}

// GuestPhase summarises where a guest is in its install.
type GuestPhase string

const (
	GuestPhasePending GuestPhase = "Pending"
	// GuestPhaseInstalling: the install boot is running and the guest
	// waits for a continuation.
	GuestPhaseInstalling GuestPhase = "Installing"
	GuestPhaseDefined    GuestPhase = "Defined"
	GuestPhaseRunning    GuestPhase = "Running"
	GuestPhaseFailed     GuestPhase = "Failed"
)

// Condition types.
const (
	ConditionDocumentsSynthesized = "DocumentsSynthesized"
	ConditionStorageProvisioned   = "StorageProvisioned"
	ConditionInstalled            = "Installed"
	ConditionReady                = "Ready"
)
