package libvirt

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kvmCaps = `<capabilities>
  <host>
    <uuid>7d9e5c2a-1f1e-4b7b-9d55-9a3c1a0b2c3d</uuid>
    <cpu>
      <arch>x86_64</arch>
      <model>Skylake-Client-IBRS</model>
    </cpu>
  </host>
  <guest>
    <os_type>hvm</os_type>
    <arch name="i686">
      <wordsize>32</wordsize>
      <emulator>/usr/bin/qemu-system-i386</emulator>
      <domain type="qemu"/>
      <domain type="kvm"/>
    </arch>
    <features>
      <pae/>
      <nonpae/>
      <acpi default="on" toggle="yes"/>
    </features>
  </guest>
  <guest>
    <os_type>hvm</os_type>
    <arch name="x86_64">
      <wordsize>64</wordsize>
      <emulator>/usr/bin/qemu-system-x86_64</emulator>
      <domain type="qemu"/>
      <domain type="kvm">
        <emulator>/usr/libexec/qemu-kvm</emulator>
      </domain>
    </arch>
    <features>
      <acpi default="on" toggle="yes"/>
    </features>
  </guest>
</capabilities>`

const xenCaps = `<capabilities>
  <host>
    <cpu>
      <arch>x86_64</arch>
    </cpu>
  </host>
  <guest>
    <os_type>xen</os_type>
    <arch name="x86_64">
      <wordsize>64</wordsize>
      <emulator>/usr/lib64/xen/bin/qemu-dm</emulator>
      <domain type="xen"/>
    </arch>
    <features>
      <pae/>
    </features>
  </guest>
</capabilities>`

func TestHostFromCaps(t *testing.T) {
	host, err := HostFromCaps(kvmCaps, 9005000, nil)
	require.NoError(t, err)

	assert.Equal(t, "x86_64", host.Arch)
	assert.Equal(t, "/usr/bin/qemu-system-i386", host.Emulator("hvm", "i686"))
	assert.Equal(t, "/usr/libexec/qemu-kvm", host.Emulator("hvm", "x86_64"), "the kvm domain emulator wins")
	assert.False(t, host.SupportsPAE, "PAE is advertised for i686 only")
	assert.True(t, host.SupportsSpiceVMC)
	assert.False(t, host.BlktapCapable)
}

func TestHostFromCapsSpiceVMCGate(t *testing.T) {
	tests := []struct {
		name    string
		version uint64
		want    bool
	}{
		{name: "before", version: 8007, want: false},
		{name: "first", version: 8008, want: true},
		{name: "modern", version: 10000000, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, err := HostFromCaps(kvmCaps, tt.version, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, host.SupportsSpiceVMC)
		})
	}
}

func TestHostFromCapsXen(t *testing.T) {
	fs := afero.NewMemMapFs()
	host, err := HostFromCaps(xenCaps, 4000000, fs)
	require.NoError(t, err)
	assert.True(t, host.SupportsPAE)
	assert.False(t, host.BlktapCapable)

	require.NoError(t, afero.WriteFile(fs, "/usr/sbin/tapdisk2", []byte{}, 0o755))
	host, err = HostFromCaps(xenCaps, 4000000, fs)
	require.NoError(t, err)
	assert.True(t, host.BlktapCapable)
}

func TestHostFromCapsInvalid(t *testing.T) {
	_, err := HostFromCaps("<capabilities", 0, nil)
	assert.ErrorContains(t, err, "failed to decode host capabilities")
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "0.8.8", FormatVersion(8008))
	assert.Equal(t, "9.5.0", FormatVersion(9005000))
	assert.Equal(t, "10.1.12", FormatVersion(10001012))
}

type fakeCapsClient struct {
	caps       string
	libVersion uint64
	err        error
}

func (f *fakeCapsClient) ConnectGetCapabilities() (string, error) { return f.caps, f.err }
func (f *fakeCapsClient) ConnectGetLibVersion() (uint64, error)   { return f.libVersion, nil }

func TestProbe(t *testing.T) {
	host, err := Probe(&fakeCapsClient{caps: kvmCaps, libVersion: 9005000}, nil)
	require.NoError(t, err)
	assert.Equal(t, "x86_64", host.Arch)

	_, err = Probe(&fakeCapsClient{err: errors.New("connection reset")}, nil)
	assert.ErrorContains(t, err, "connection reset")
}
