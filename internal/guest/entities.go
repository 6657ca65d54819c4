package guest

import (
	"github.com/jbweber/guestforge/internal/binding"
)

// OS types.
const (
	OSTypeHVM       = "hvm"
	OSTypeXen       = "xen"
	OSTypeLinux     = "linux"
	OSTypeContainer = "exe"
)

// OSConfig is the boot configuration under <os>.
type OSConfig struct {
	binding.Props[OSConfig]
	owner *Guest
}

var osSchema = binding.NewSchema(
	binding.Field[OSConfig]{Name: "os_type", Path: "type", Kind: binding.KindString,
		Validate: binding.OneOf[OSConfig](OSTypeHVM, OSTypeXen, OSTypeLinux, OSTypeContainer),
		Default: func(o *OSConfig) any {
			if o.owner != nil && o.owner.Platform() == PlatformLXC {
				return OSTypeContainer
			}
			return OSTypeHVM
		}},
	binding.Field[OSConfig]{Name: "arch", Path: "type/@arch", Kind: binding.KindString},
	binding.Field[OSConfig]{Name: "machine", Path: "type/@machine", Kind: binding.KindString},
	binding.Field[OSConfig]{Name: "loader", Path: "loader", Kind: binding.KindString},
	binding.Field[OSConfig]{Name: "kernel", Path: "kernel", Kind: binding.KindString},
	binding.Field[OSConfig]{Name: "initrd", Path: "initrd", Kind: binding.KindString},
	binding.Field[OSConfig]{Name: "cmdline", Path: "cmdline", Kind: binding.KindString},
	binding.Field[OSConfig]{Name: "init", Path: "init", Kind: binding.KindString},
	binding.Field[OSConfig]{Name: "initargs", Path: "initarg", Kind: binding.KindList},
	binding.Field[OSConfig]{Name: "bootorder", Path: "boot/@dev", Kind: binding.KindList,
		Validate: func(_ *OSConfig, v any) error {
			for _, dev := range v.([]string) {
				if err := binding.OneOf[OSConfig]("hd", "cdrom", "network", "fd")(nil, dev); err != nil {
					return err
				}
			}
			return nil
		}},
	binding.Field[OSConfig]{Name: "bootmenu", Path: "bootmenu/@enable", Kind: binding.KindYesNo},
	binding.Field[OSConfig]{Name: "useserial", Path: "bios/@useserial", Kind: binding.KindYesNo},
)

func newOSConfig(owner *Guest) *OSConfig {
	o := &OSConfig{owner: owner}
	o.Props = binding.NewProps(osSchema, o)
	return o
}

func (o *OSConfig) clone(owner *Guest) *OSConfig {
	c := &OSConfig{owner: owner}
	c.Props = o.CloneFor(c)
	return c
}

func (o *OSConfig) OSType() string  { return o.Text("os_type") }
func (o *OSConfig) Arch() string    { return o.Text("arch") }
func (o *OSConfig) Machine() string { return o.Text("machine") }
func (o *OSConfig) Kernel() string  { return o.Text("kernel") }
func (o *OSConfig) Init() string    { return o.Text("init") }

// IsHVM reports a fully virtualized guest.
func (o *OSConfig) IsHVM() bool { return o.OSType() == OSTypeHVM }

// IsXenPV reports a paravirtualized Xen guest.
func (o *OSConfig) IsXenPV() bool {
	t := o.OSType()
	return t == OSTypeXen || t == OSTypeLinux
}

// IsContainer reports an operating system container.
func (o *OSConfig) IsContainer() bool { return o.OSType() == OSTypeContainer }

// ClearBoot drops direct kernel boot and boot device settings.
func (o *OSConfig) ClearBoot() {
	for _, f := range []string{"loader", "kernel", "initrd", "cmdline", "bootorder", "bootmenu"} {
		o.Clear(f)
	}
}

// Features holds hypervisor feature flags. Each flag is tri-state: an
// unset flag is resolved during reconciliation, an explicit false is
// kept.
type Features struct {
	binding.Props[Features]
}

var featuresSchema = binding.NewSchema(
	binding.Field[Features]{Name: "acpi", Path: "acpi", Kind: binding.KindBool},
	binding.Field[Features]{Name: "apic", Path: "apic", Kind: binding.KindBool},
	binding.Field[Features]{Name: "pae", Path: "pae", Kind: binding.KindBool},
	binding.Field[Features]{Name: "hap", Path: "hap", Kind: binding.KindBool},
	binding.Field[Features]{Name: "viridian", Path: "viridian", Kind: binding.KindBool},
	binding.Field[Features]{Name: "privnet", Path: "privnet", Kind: binding.KindBool},
)

func newFeatures() *Features {
	f := &Features{}
	f.Props = binding.NewProps(featuresSchema, f)
	return f
}

func (f *Features) clone() *Features {
	c := &Features{}
	c.Props = f.CloneFor(c)
	return c
}

// Clock is the guest clock configuration.
type Clock struct {
	binding.Props[Clock]
}

var clockSchema = binding.NewSchema(
	binding.Field[Clock]{Name: "offset", Path: "@offset", Kind: binding.KindString,
		Validate: binding.OneOf[Clock]("utc", "localtime", "timezone", "variable")},
)

func newClock() *Clock {
	c := &Clock{}
	c.Props = binding.NewProps(clockSchema, c)
	return c
}

func (c *Clock) clone() *Clock {
	n := &Clock{}
	n.Props = c.CloneFor(n)
	return n
}

// CPU is the guest CPU model and topology.
type CPU struct {
	binding.Props[CPU]
}

var cpuSchema = binding.NewSchema(
	binding.Field[CPU]{Name: "mode", Path: "@mode", Kind: binding.KindString,
		Validate: binding.OneOf[CPU]("custom", "host-model", "host-passthrough")},
	binding.Field[CPU]{Name: "match", Path: "@match", Kind: binding.KindString,
		Validate: binding.OneOf[CPU]("minimum", "exact", "strict")},
	binding.Field[CPU]{Name: "model", Path: "model", Kind: binding.KindString},
	binding.Field[CPU]{Name: "vendor", Path: "vendor", Kind: binding.KindString},
	binding.Field[CPU]{Name: "sockets", Path: "topology/@sockets", Kind: binding.KindInt,
		Validate: binding.Positive[CPU]},
	binding.Field[CPU]{Name: "cores", Path: "topology/@cores", Kind: binding.KindInt,
		Validate: binding.Positive[CPU]},
	binding.Field[CPU]{Name: "threads", Path: "topology/@threads", Kind: binding.KindInt,
		Validate: binding.Positive[CPU]},
)

func newCPU() *CPU {
	c := &CPU{}
	c.Props = binding.NewProps(cpuSchema, c)
	return c
}

func (c *CPU) clone() *CPU {
	n := &CPU{}
	n.Props = c.CloneFor(n)
	return n
}

// SetTopologyDefaults fills unset topology values so that sockets, cores
// and threads multiply out to vcpus. Nothing happens when no topology
// value was set.
func (c *CPU) SetTopologyDefaults(vcpus int) {
	sockets, hasSockets := c.Int("sockets")
	cores, hasCores := c.Int("cores")
	threads, hasThreads := c.Int("threads")
	if !hasSockets && !hasCores && !hasThreads {
		return
	}

	if !hasSockets {
		sockets = max(vcpus/(max(cores, 1)*max(threads, 1)), 1)
		c.Put("sockets", sockets)
	}
	if !hasCores {
		cores = max(vcpus/(sockets*max(threads, 1)), 1)
		c.Put("cores", cores)
	}
	if !hasThreads {
		c.Put("threads", max(vcpus/(sockets*cores), 1))
	}
}
