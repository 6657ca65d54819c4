package v1alpha1

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testSSHKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIAABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4f ops@example.com"

func validGuest() *Guest {
	g := NewGuest("web01")
	g.Spec.MemoryMiB = 2048
	g.Spec.VCPUs = 2
	g.Spec.Disks = []DiskSpec{{SizeGB: 20}}
	g.Spec.Interfaces = []InterfaceSpec{{Network: "default"}}
	g.Spec.Install = InstallSpec{Method: InstallMedia, Location: "/srv/iso/fedora.iso"}
	return g
}

func TestNewGuest(t *testing.T) {
	g := NewGuest("web01")
	assert.Equal(t, "guestforge.cofront.xyz/v1alpha1", g.APIVersion)
	assert.Equal(t, GuestKind, g.Kind)
	assert.NotEmpty(t, g.UID)
	assert.False(t, g.CreationTimestamp.IsZero())
	assert.Equal(t, int64(1), g.Generation)
	assert.Equal(t, GuestPhasePending, g.Status.Phase)
	assert.False(t, g.IsAutostart())
}

func TestSetDefaultAPIVersion(t *testing.T) {
	g := &Guest{}
	SetDefaultAPIVersion(g)
	assert.Equal(t, APIVersion, g.APIVersion)
	assert.Equal(t, GuestKind, g.Kind)

	g = &Guest{TypeMeta: TypeMeta{APIVersion: "other/v2", Kind: "Other"}}
	SetDefaultAPIVersion(g)
	assert.Equal(t, "other/v2", g.APIVersion, "existing values are kept")
}

func TestHelpers(t *testing.T) {
	g := validGuest()
	g.Spec.MaxMemoryMiB = 4096
	assert.Equal(t, 2048*1024, g.MemoryKiB())
	assert.Equal(t, 4096*1024, g.MaxMemoryKiB())
	assert.Equal(t, "web01", g.Hostname())

	g.Spec.CloudInit = &CloudInitSpec{FQDN: "web01.example.com"}
	assert.Equal(t, "web01.example.com", g.Hostname())

	on := true
	g.Spec.Autostart = &on
	assert.True(t, g.IsAutostart())

	g.Generation = 3
	g.UpdateObservedGeneration()
	g.SetPhase(GuestPhaseRunning)
	assert.Equal(t, int64(3), g.Status.ObservedGeneration)
	assert.Equal(t, GuestPhaseRunning, g.Status.Phase)
}

func TestNormalize(t *testing.T) {
	g := validGuest()
	g.Name = "  Web01 "
	g.Spec.Platform = " KVM"
	g.Spec.Install.Method = "Media"
	g.Spec.Interfaces[0].MAC = "52:54:00:AA:BB:CC"
	g.Spec.CloudInit = &CloudInitSpec{FQDN: " Web01.Example.COM "}

	g.Normalize()
	assert.Equal(t, "Web01", g.Name, "names are case sensitive")
	assert.Equal(t, "kvm", g.Spec.Platform)
	assert.Equal(t, InstallMedia, g.Spec.Install.Method)
	assert.Equal(t, "52:54:00:aa:bb:cc", g.Spec.Interfaces[0].MAC)
	assert.Equal(t, "web01.example.com", g.Spec.CloudInit.FQDN)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *Guest)
		wantErr string
	}{
		{name: "valid", mutate: func(*Guest) {}},
		{name: "no name", mutate: func(g *Guest) { g.Name = "" }, wantErr: "metadata.name is required"},
		{name: "bad platform", mutate: func(g *Guest) { g.Spec.Platform = "vmware" }, wantErr: "spec.platform"},
		{name: "no memory", mutate: func(g *Guest) { g.Spec.MemoryMiB = 0 }, wantErr: "spec.memoryMiB"},
		{name: "no vcpus", mutate: func(g *Guest) { g.Spec.VCPUs = 0 }, wantErr: "spec.vcpus"},
		{name: "too many current vcpus", mutate: func(g *Guest) { g.Spec.CurrentVCPUs = 4 }, wantErr: "spec.currentVCPUs"},
		{name: "unknown feature", mutate: func(g *Guest) { g.Spec.Features = map[string]bool{"smm": true} }, wantErr: `unknown feature "smm"`},
		{name: "feature off", mutate: func(g *Guest) { g.Spec.Features = map[string]bool{"acpi": false} }},
		{name: "bad clock", mutate: func(g *Guest) { g.Spec.ClockOffset = "variable" }, wantErr: "spec.clockOffset"},
		{name: "bad graphics", mutate: func(g *Guest) { g.Spec.Graphics = &GraphicsSpec{Type: "rdp"} }, wantErr: "spec.graphics.type"},
		{name: "no graphics", mutate: func(g *Guest) { g.Spec.Graphics = &GraphicsSpec{Type: "none"} }},
		{
			name:    "disk path and size",
			mutate:  func(g *Guest) { g.Spec.Disks[0].Path = "/images/a.img" },
			wantErr: "cannot specify both path and sizeGB",
		},
		{
			name:    "disk without storage",
			mutate:  func(g *Guest) { g.Spec.Disks = append(g.Spec.Disks, DiskSpec{}) },
			wantErr: "spec.disks[1] must specify either path or sizeGB",
		},
		{
			name:   "empty cdrom drive",
			mutate: func(g *Guest) { g.Spec.Disks = append(g.Spec.Disks, DiskSpec{Device: "cdrom"}) },
		},
		{
			name:    "sized cdrom",
			mutate:  func(g *Guest) { g.Spec.Disks = append(g.Spec.Disks, DiskSpec{Device: "cdrom", SizeGB: 1}) },
			wantErr: "a cdrom cannot be created with sizeGB",
		},
		{name: "bad format", mutate: func(g *Guest) { g.Spec.Disks[0].Format = "vmdk" }, wantErr: "must be qcow2 or raw"},
		{
			name: "duplicate target",
			mutate: func(g *Guest) {
				g.Spec.Disks = []DiskSpec{{Target: "vda", SizeGB: 1}, {Target: "vda", SizeGB: 2}}
			},
			wantErr: `target "vda" is duplicated`,
		},
		{
			name:    "network and bridge",
			mutate:  func(g *Guest) { g.Spec.Interfaces[0].Bridge = "br0" },
			wantErr: "cannot specify both network and bridge",
		},
		{
			name:    "bad address",
			mutate:  func(g *Guest) { g.Spec.Interfaces[0].Addresses = []string{"10.0.0.10"} },
			wantErr: "invalid ip/cidr format",
		},
		{
			name:    "bad gateway",
			mutate:  func(g *Guest) { g.Spec.Interfaces[0].Gateway = "gw" },
			wantErr: "invalid IP address",
		},
		{
			name:    "bad dns",
			mutate:  func(g *Guest) { g.Spec.Interfaces[0].DNS = []string{"8.8.8.8", "dns"} },
			wantErr: "spec.interfaces[0].dns[1]",
		},
		{
			name: "duplicate mac",
			mutate: func(g *Guest) {
				g.Spec.Interfaces = []InterfaceSpec{{MAC: "52:54:00:00:00:01"}, {MAC: "52:54:00:00:00:01"}}
			},
			wantErr: "is duplicated",
		},
		{
			name:    "filesystem without target",
			mutate:  func(g *Guest) { g.Spec.Filesystems = []FilesystemSpec{{Source: "/srv/root"}} },
			wantErr: "source and target are required",
		},
		{name: "unknown method", mutate: func(g *Guest) { g.Spec.Install.Method = "http" }, wantErr: "spec.install.method"},
		{name: "media without location", mutate: func(g *Guest) { g.Spec.Install.Location = "" }, wantErr: "spec.install.location"},
		{
			name: "container on kvm",
			mutate: func(g *Guest) {
				g.Spec.Install = InstallSpec{Method: InstallContainer, Bootstrap: []string{"/usr/bin/debootstrap"}}
			},
			wantErr: "need spec.platform lxc",
		},
		{
			name: "container without bootstrap",
			mutate: func(g *Guest) {
				g.Spec.Platform = "lxc"
				g.Spec.Install = InstallSpec{Method: InstallContainer}
			},
			wantErr: "spec.install.bootstrap is required",
		},
		{
			name:    "import without image",
			mutate:  func(g *Guest) { g.Spec.Install = InstallSpec{Method: InstallImport} },
			wantErr: "import installs need a disk with a path",
		},
		{
			name: "pxe without interface",
			mutate: func(g *Guest) {
				g.Spec.Interfaces = nil
				g.Spec.Install = InstallSpec{Method: InstallPXE}
			},
			wantErr: "pxe installs need at least one interface",
		},
		{
			name: "extra args outside media",
			mutate: func(g *Guest) {
				g.Spec.Install = InstallSpec{Method: InstallPXE, ExtraArgs: "console=ttyS0"}
			},
			wantErr: "extraArgs is only supported",
		},
		{
			name:    "cloud-init outside import",
			mutate:  func(g *Guest) { g.Spec.CloudInit = &CloudInitSpec{} },
			wantErr: "spec.cloudInit is only supported",
		},
		{
			name: "cloud-init import",
			mutate: func(g *Guest) {
				g.Spec.Disks = []DiskSpec{{Path: "/images/web01.qcow2"}}
				g.Spec.Install = InstallSpec{Method: InstallImport}
				g.Spec.CloudInit = &CloudInitSpec{
					FQDN:              "web01.example.com",
					SSHAuthorizedKeys: []string{testSSHKey},
					PasswordHash:      "$6$rounds=4096$salt$hash",
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGuest()
			tt.mutate(g)
			err := g.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCloudInitValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    CloudInitSpec
		wantErr string
	}{
		{name: "empty", spec: CloudInitSpec{}},
		{name: "fqdn", spec: CloudInitSpec{FQDN: "db-1.lab.example.com"}},
		{name: "short name", spec: CloudInitSpec{FQDN: "web01"}, wantErr: "fqdn must be a valid hostname"},
		{name: "underscore", spec: CloudInitSpec{FQDN: "web_01.example.com"}, wantErr: "fqdn must be a valid hostname"},
		{name: "key", spec: CloudInitSpec{SSHAuthorizedKeys: []string{testSSHKey}}},
		{
			name:    "garbage key",
			spec:    CloudInitSpec{SSHAuthorizedKeys: []string{testSSHKey, "not-a-key"}},
			wantErr: "sshAuthorizedKeys[1] is not a valid SSH public key",
		},
		{name: "hash", spec: CloudInitSpec{PasswordHash: "$y$j9T$abcdefgh$ijkl"}},
		{name: "plaintext", spec: CloudInitSpec{PasswordHash: "hunter2hunter2"}, wantErr: "passwordHash must be a valid crypt hash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGuestYAML(t *testing.T) {
	const manifest = `apiVersion: guestforge.cofront.xyz/v1alpha1
kind: Guest
metadata:
  name: web01
  labels:
    role: frontend
spec:
  memoryMiB: 2048
  vcpus: 2
  os: {type: linux, variant: fedora39}
  features:
    acpi: true
    pae: false
  disks:
    - sizeGB: 20
      pool: vms
  interfaces:
    - bridge: br0
      addresses: [10.0.0.10/24]
      gateway: 10.0.0.1
  install:
    method: media
    location: /srv/iso/fedora.iso
status:
  phase: Running
  conditions:
    - type: Ready
      status: "True"
      lastTransitionTime: "2026-01-02T03:04:05Z"
`
	var g Guest
	require.NoError(t, yaml.Unmarshal([]byte(manifest), &g))
	require.NoError(t, g.Validate())

	assert.Equal(t, "web01", g.Name)
	assert.Equal(t, "frontend", g.Labels["role"])
	assert.Equal(t, OSSpec{Type: "linux", Variant: "fedora39"}, g.Spec.OS)
	assert.Equal(t, map[string]bool{"acpi": true, "pae": false}, g.Spec.Features)
	assert.Equal(t, DiskSpec{SizeGB: 20, Pool: "vms"}, g.Spec.Disks[0])
	assert.Equal(t, "br0", g.Spec.Interfaces[0].Bridge)
	assert.Equal(t, GuestPhaseRunning, g.Status.Phase)
	require.Len(t, g.Status.Conditions, 1)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), g.Status.Conditions[0].LastTransitionTime.UTC())

	out, err := yaml.Marshal(&g)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "creationTimestamp", "zero times are omitted")
	assert.Contains(t, string(out), "lastTransitionTime: \"2026-01-02T03:04:05Z\"")
}

func TestTimeJSON(t *testing.T) {
	ts := Time{Time: time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)}
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-10-19T08:30:00Z"`, string(data))

	data, err = json.Marshal(Time{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var parsed Time
	require.NoError(t, json.Unmarshal([]byte(`"2026-10-19T08:30:00Z"`), &parsed))
	assert.True(t, parsed.Equal(ts.Time))

	require.NoError(t, json.Unmarshal([]byte(`null`), &parsed))
	assert.True(t, parsed.IsZero())

	err = json.Unmarshal([]byte(`"yesterday"`), &parsed)
	assert.Error(t, err)
}

func TestTimeYAMLInvalid(t *testing.T) {
	var c Condition
	err := yaml.Unmarshal([]byte(strings.Join([]string{
		"type: Ready",
		"status: \"True\"",
		"lastTransitionTime: last week",
	}, "\n")), &c)
	assert.Error(t, err)
}
