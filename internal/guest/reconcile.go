package guest

import (
	"fmt"
	"slices"

	"github.com/jbweber/guestforge/internal/device"
	"github.com/jbweber/guestforge/internal/naming"
)

const (
	xenHVMLoader  = "/usr/lib/xen/boot/hvmloader"
	xenDM64       = "/usr/lib64/xen/bin/qemu-dm"
	xenDM         = "/usr/lib/xen/bin/qemu-dm"
	pygrub        = "/usr/bin/pygrub"
	containerInit = "/sbin/init"
	containerSh   = "/bin/sh"
)

// Reconcile resolves every value the caller left unset from the OS
// dictionary and the host description. Explicit values are kept, and a
// second call changes nothing.
func (g *Guest) Reconcile(legacy bool) error {
	q := g.query(legacy)

	g.setOSDefaults()
	g.setClockDefaults(q)
	g.setEmulatorDefaults()
	g.CPU.SetTopologyDefaults(g.VCPUs())
	g.setFeatureDefaults(q)

	for _, d := range g.Devices.Get(device.All) {
		d.SetDefaults()
	}
	g.addImpliedControllers(q)
	if err := g.setDiskDefaults(q); err != nil {
		return err
	}
	g.setNetDefaults(q)
	g.setInputDefaults(q)
	g.setSoundDefaults(q)
	g.setVideoDefaults(q)

	g.Devices.Recompute()
	return nil
}

func (g *Guest) setOSDefaults() {
	os := g.OS
	if os.IsContainer() && !os.IsSet("init") {
		bin := containerSh
		for _, fs := range device.Of[*device.Filesystem](g.Devices) {
			if fs.Target() == "/" {
				bin = containerInit
				break
			}
		}
		os.Put("init", bin)
	}

	if g.Platform() == PlatformXen {
		if os.IsHVM() && !os.IsSet("loader") {
			os.Put("loader", xenHVMLoader)
		}
		if os.OSType() == OSTypeXen {
			os.Put("os_type", OSTypeLinux)
		}
	}

	if os.Kernel() != "" || os.Init() != "" {
		os.Clear("bootorder")
	}

	if !os.IsSet("machine") && (g.host.Arch == "ppc64" || g.host.Arch == "ppc64le") {
		os.Put("machine", "pseries")
	}
}

func (g *Guest) setClockDefaults(q Query) {
	if !g.OS.IsHVM() || g.Clock.IsSet("offset") {
		return
	}
	if v, ok := g.lookup(q, KeyClock); ok {
		g.Clock.Put("offset", v)
	}
}

func (g *Guest) setEmulatorDefaults() {
	if g.OS.IsXenPV() {
		g.props.Clear("emulator")
		return
	}
	if g.props.IsSet("emulator") {
		return
	}

	switch g.Platform() {
	case PlatformXen:
		if !g.OS.IsHVM() {
			return
		}
		if g.host.Arch == "x86_64" {
			g.props.Put("emulator", xenDM64)
		} else {
			g.props.Put("emulator", xenDM)
		}
	case PlatformKVM, PlatformQEMU:
		if e := g.host.Emulator(g.OS.OSType(), g.arch()); e != "" {
			g.props.Put("emulator", e)
		}
	}
}

func (g *Guest) setFeatureDefaults(q Query) {
	f := g.Features
	if g.OS.IsContainer() {
		f.Clear("acpi")
		f.Clear("apic")
		f.Clear("pae")
		return
	}
	if !g.OS.IsHVM() {
		return
	}

	for name, key := range map[string]string{"acpi": KeyACPI, "apic": KeyAPIC} {
		if f.IsSet(name) {
			continue
		}
		if v, ok := g.lookup(q, key); ok {
			f.Put(name, v)
		}
	}
	if !f.IsSet("pae") {
		f.Put("pae", g.host.SupportsPAE)
	}
}

// addImpliedControllers adds controllers that attached disks need but
// the caller did not declare. An unset disk bus is resolved the way
// setDiskDefaults will resolve it.
func (g *Guest) addImpliedControllers(q Query) {
	osBus := g.lookupDevice(q, device.TypeDisk, "bus")
	controllers := device.Of[*device.Controller](g.Devices)
	hasController := func(match func(*device.Controller) bool) bool {
		return slices.ContainsFunc(controllers, match)
	}

	for _, d := range device.Of[*device.Disk](g.Devices) {
		if d.Text("address_type") == device.AddressSpaprVIO &&
			!hasController(func(c *device.Controller) bool { return c.AddressType() == device.AddressSpaprVIO }) {
			c := device.NewController()
			c.Put("type", "scsi")
			c.Put("address_type", device.AddressSpaprVIO)
			g.Devices.Add(c)
			controllers = append(controllers, c)
		}

		bus := d.Bus()
		if !d.IsSet("bus") {
			bus = g.diskBus(d, osBus)
		}
		if bus == "scsi" && g.isKVM() && g.OS.Machine() != "pseries" &&
			!hasController(func(c *device.Controller) bool { return c.ControllerType() == "scsi" }) {
			c := device.NewController()
			c.Put("type", "scsi")
			c.Put("model", "virtio-scsi")
			g.Devices.Add(c)
			controllers = append(controllers, c)
		}
	}
}

func (g *Guest) setDiskDefaults(q Query) error {
	disks := device.Of[*device.Disk](g.Devices)
	osBus := g.lookupDevice(q, device.TypeDisk, "bus")

	var used []string
	for _, d := range disks {
		if t := d.Target(); t != "" {
			used = append(used, t)
		}
	}

	for _, d := range disks {
		if !d.IsSet("bus") {
			d.Put("bus", g.diskBus(d, osBus))
		}

		if g.OS.IsXenPV() && g.host.BlktapCapable &&
			d.Text("type") == device.DiskTypeFile && !d.IsSet("driver_name") {
			d.Put("driver_name", "tap")
		}

		if d.Target() != "" {
			continue
		}
		target, err := naming.NextTarget(d.Bus(), used)
		if err != nil {
			return fmt.Errorf("failed to assign a target to %s disk: %w", d.Bus(), err)
		}
		d.Put("target", target)
		used = append(used, target)
	}
	return nil
}

func (g *Guest) diskBus(d *device.Disk, osBus string) string {
	switch {
	case d.Device() == device.DiskDeviceFloppy:
		return "fdc"
	case g.OS.IsXenPV():
		return "xen"
	case !g.OS.IsHVM():
		return "ide"
	case osBus != "" && d.Device() == device.DiskDeviceDisk:
		return osBus
	case g.Platform() == PlatformKVM && g.OS.Machine() == "pseries":
		return "scsi"
	}
	return "ide"
}

func (g *Guest) setNetDefaults(q Query) {
	if !g.OS.IsHVM() {
		return
	}
	model := g.lookupDevice(q, device.TypeInterface, "model")
	if model == "" {
		return
	}
	for _, nic := range device.Of[*device.Interface](g.Devices) {
		if !nic.IsSet("model") {
			nic.Put("model", model)
		}
	}
}

func (g *Guest) setInputDefaults(q Query) {
	typ, bus := "mouse", "xen"
	if !g.OS.IsXenPV() {
		typ = g.lookupDevice(q, device.TypeInput, "type")
		bus = g.lookupDevice(q, device.TypeInput, "bus")
	}
	for _, in := range device.Of[*device.Input](g.Devices) {
		if in.IsSet("type") || in.IsSet("bus") {
			continue
		}
		if typ != "" {
			in.Put("type", typ)
		}
		if bus != "" {
			in.Put("bus", bus)
		}
	}
}

func (g *Guest) setSoundDefaults(q Query) {
	model := g.lookupDevice(q, device.TypeSound, "model")
	if model == "" {
		return
	}
	for _, s := range device.Of[*device.Sound](g.Devices) {
		if !s.IsSet("model") {
			s.Put("model", model)
		}
	}
}

func (g *Guest) setVideoDefaults(q Query) {
	spice := slices.ContainsFunc(device.Of[*device.Graphics](g.Devices), func(gr *device.Graphics) bool {
		return gr.Protocol() == device.GraphicsSpice
	})

	model := "qxl"
	if !spice {
		model = g.lookupDevice(q, device.TypeVideo, "model")
	}
	if model != "" {
		for _, v := range device.Of[*device.Video](g.Devices) {
			if !v.IsSet("model") {
				v.Put("model", model)
			}
		}
	}

	if !spice || !g.host.SupportsSpiceVMC {
		return
	}
	if slices.ContainsFunc(device.Of[*device.Channel](g.Devices), func(c *device.Channel) bool {
		return c.ChannelType() == device.ChannelSpiceVMC
	}) {
		return
	}
	ch := device.NewChannel()
	ch.Put("type", device.ChannelSpiceVMC)
	ch.SetDefaults()
	g.Devices.Add(ch)
}

func (g *Guest) isKVM() bool {
	p := g.Platform()
	return p == PlatformKVM || p == PlatformQEMU
}
