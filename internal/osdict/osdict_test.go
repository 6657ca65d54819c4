package osdict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/guestforge/internal/device"
	"github.com/jbweber/guestforge/internal/guest"
)

func builtinTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := Builtin()
	require.NoError(t, err)
	return tbl
}

func TestBuiltinParses(t *testing.T) {
	tbl := builtinTable(t)
	assert.True(t, tbl.HasOSType("linux"))
	assert.True(t, tbl.HasOSType("windows"))
	assert.False(t, tbl.HasOSType("plan9"))
	assert.True(t, tbl.HasVariant("linux", "fedora39"))
	assert.False(t, tbl.HasVariant("windows", "fedora39"))
}

func TestLookupPrecedence(t *testing.T) {
	tbl := builtinTable(t)
	tests := []struct {
		name string
		q    guest.Query
		key  string
		want any
	}{
		{name: "dictionary default", q: guest.Query{OSType: "linux", OSVariant: "fedora39"}, key: guest.KeyClock, want: "utc"},
		{name: "type overrides default", q: guest.Query{OSType: "windows", OSVariant: "win7"}, key: guest.KeyClock, want: "localtime"},
		{name: "variant overrides type", q: guest.Query{OSType: "windows", OSVariant: "winxp"}, key: guest.KeyACPI, want: false},
		{name: "variant inherits type", q: guest.Query{OSType: "windows", OSVariant: "win7"}, key: guest.KeyContinue, want: true},
		{name: "variant resets type", q: guest.Query{OSType: "windows", OSVariant: "win10"}, key: guest.KeyContinue, want: false},
		{name: "no descriptor", q: guest.Query{}, key: guest.KeyAPIC, want: true},
		{name: "label", q: guest.Query{OSType: "linux", OSVariant: "rhel7"}, key: guest.KeyLabel, want: "Red Hat Enterprise Linux 7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tbl.Lookup(tt.q, tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := tbl.Lookup(guest.Query{}, guest.KeyDistro)
	assert.False(t, ok, "absent keys resolve to false")
}

func TestLookupDeviceRules(t *testing.T) {
	tbl := builtinTable(t)
	tests := []struct {
		name     string
		q        guest.Query
		dev      string
		param    string
		want     string
		wantMiss bool
	}{
		{name: "legacy host", q: guest.Query{Platform: "kvm", OSType: "linux", OSVariant: "rhel7", Legacy: true}, dev: "video", param: "model", want: "cirrus"},
		{name: "current host", q: guest.Query{Platform: "kvm", OSType: "linux", OSVariant: "rhel7"}, dev: "video", param: "model", want: "qxl"},
		{name: "platform restricted rule skipped", q: guest.Query{Platform: "xen", OSType: "linux", OSVariant: "rhel7"}, dev: "disk", param: "bus", want: "ide"},
		{name: "anchored devices", q: guest.Query{Platform: "kvm", OSType: "linux", OSVariant: "fedora39"}, dev: "disk", param: "bus", want: "virtio"},
		{name: "type level", q: guest.Query{Platform: "qemu", OSType: "windows", OSVariant: "win7"}, dev: "interface", param: "model", want: "e1000"},
		{name: "default with platform", q: guest.Query{Platform: "kvm"}, dev: "interface", param: "model", want: "rtl8139"},
		{name: "no rule for platform", q: guest.Query{Platform: "xen"}, dev: "interface", param: "model", wantMiss: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tbl.LookupDevice(tt.q, tt.dev, tt.param)
			if tt.wantMiss {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVariantType(t *testing.T) {
	tbl := builtinTable(t)
	typ, ok := tbl.VariantType("win10")
	require.True(t, ok)
	assert.Equal(t, "windows", typ)

	_, ok = tbl.VariantType("beos")
	assert.False(t, ok)

	hidden, err := Parse([]byte(`
types:
  - name: legacy
    skip: true
    variants:
      - name: shared
  - name: current
    variants:
      - name: shared
`))
	require.NoError(t, err)
	typ, ok = hidden.VariantType("shared")
	require.True(t, ok)
	assert.Equal(t, "current", typ)
}

func TestVariants(t *testing.T) {
	tbl := builtinTable(t)
	all := tbl.Variants("")
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		assert.True(t, prev.Type < cur.Type || (prev.Type == cur.Type && prev.Variant < cur.Variant),
			"%v sorts after %v", prev, cur)
	}

	linux := tbl.Variants("linux")
	for _, v := range linux {
		assert.Equal(t, "linux", v.Type)
		assert.NotEqual(t, "generic26", v.Variant, "hidden variants are not listed")
	}
	assert.Contains(t, linux, VariantInfo{Type: "linux", Variant: "fedora39", Label: "Fedora 39", Distro: "fedora"})
}

func TestForRelease(t *testing.T) {
	tbl := builtinTable(t)
	typ, variant, ok := tbl.ForRelease("Fedora", "39")
	require.True(t, ok)
	assert.Equal(t, "linux", typ)
	assert.Equal(t, "fedora39", variant)

	_, _, ok = tbl.ForRelease("Fedora", "12")
	assert.False(t, ok)
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte(`
types:
  - name: linux
  - name: linux
`))
	assert.ErrorContains(t, err, "duplicated")

	_, err = Parse([]byte(`
types:
  - name: linux
    variants:
      - name: a
      - name: a
`))
	assert.ErrorContains(t, err, "duplicated")

	_, err = Parse([]byte(`types: [`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	tbl, err := Load("")
	require.NoError(t, err)
	assert.True(t, tbl.HasOSType("linux"))

	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte("types:\n  - name: site\n    clock: localtime\n"), 0o644))
	tbl, err = Load(path)
	require.NoError(t, err)
	v, ok := tbl.Lookup(guest.Query{OSType: "site"}, guest.KeyClock)
	require.True(t, ok)
	assert.Equal(t, "localtime", v)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGuestDefaultsFromBuiltin(t *testing.T) {
	tbl := builtinTable(t)
	g := guest.New(tbl)
	require.NoError(t, g.SetName("win"))
	require.NoError(t, g.SetOS("", "winxp"))
	g.SetHost(guest.Host{Arch: "x86_64"})
	g.AddDevice(device.NewDisk(), device.NewInterface(), device.NewInput())

	out, err := g.BuildDocument(false, false)
	require.NoError(t, err)
	assert.Contains(t, out, `<clock offset="localtime"/>`)
	assert.NotContains(t, out, "<acpi/>")
	assert.Contains(t, out, `<model type="e1000"/>`)
	assert.Contains(t, out, `<input type="tablet" bus="usb"/>`)
	assert.Contains(t, out, `<target dev="hda" bus="ide"/>`)
}
