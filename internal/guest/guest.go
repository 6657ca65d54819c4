// Package guest models a virtual machine definition and synthesizes the
// domain documents used to install and run it.
//
// A Guest is a tree of bound entities: top level attributes, the OS boot
// block, feature flags, clock, CPU and an ordered device registry. Values
// the caller leaves unset are resolved from the OS capability dictionary
// and the host description when a document is built. Building always
// works on a copy, so the caller's Guest is never changed by it.
package guest

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jbweber/guestforge/internal/binding"
	"github.com/jbweber/guestforge/internal/device"
	"github.com/jbweber/guestforge/internal/document"
)

// Hypervisor platforms.
const (
	PlatformKVM  = "kvm"
	PlatformQEMU = "qemu"
	PlatformXen  = "xen"
	PlatformLXC  = "lxc"
)

// MetadataNamespace is the XML namespace of the OS descriptor stored in
// the domain metadata.
const MetadataNamespace = "http://guestforge.cofront.xyz/xmlns/guestforge/1.0"

const maxNameLength = 50

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_.:+-]+$`)

// Installer is the part of an install strategy the document builder
// consults.
type Installer interface {
	// HasInstallPhase reports whether a separate install boot is needed.
	HasInstallPhase() bool
	// AlterBootConfig adjusts g's boot settings for the install boot
	// (install true) or the final boot.
	AlterBootConfig(g *Guest, install bool) error
}

// Guest is a virtual machine definition.
type Guest struct {
	props binding.Props[Guest]

	OS       *OSConfig
	Features *Features
	Clock    *Clock
	CPU      *CPU
	Devices  *device.List

	resolver  Resolver
	host      Host
	installer Installer

	// installDevices were added by the installer and are removed by
	// RemoveInstallDevices.
	installDevices []device.Device

	// randomUUID caches the generated identifier. Clones share it.
	randomUUID *string
}

var guestSchema = binding.NewSchema(
	binding.Field[Guest]{Name: "type", Path: "@type", Kind: binding.KindString,
		Validate: binding.OneOf[Guest](PlatformKVM, PlatformQEMU, PlatformXen, PlatformLXC),
		Default:  func(*Guest) any { return PlatformKVM }},
	binding.Field[Guest]{Name: "name", Path: "name", Kind: binding.KindString,
		Validate: func(_ *Guest, v any) error { return validateName(v.(string)) }},
	binding.Field[Guest]{Name: "uuid", Path: "uuid", Kind: binding.KindString,
		Validate: func(_ *Guest, v any) error {
			_, err := uuid.Parse(v.(string))
			return err
		},
		Default: func(g *Guest) any { return g.defaultUUID() }},
	binding.Field[Guest]{Name: "description", Path: "description", Kind: binding.KindString},
	binding.Field[Guest]{Name: "os_ns", Path: "metadata/guestforge:os/@xmlns:guestforge", Kind: binding.KindString,
		Default: func(g *Guest) any {
			if g.props.IsSet("os_type") {
				return MetadataNamespace
			}
			return nil
		}},
	binding.Field[Guest]{Name: "os_type", Path: "metadata/guestforge:os/@type", Kind: binding.KindString},
	binding.Field[Guest]{Name: "os_variant", Path: "metadata/guestforge:os/@variant", Kind: binding.KindString},
	binding.Field[Guest]{Name: "maxmemory", Path: "memory", Kind: binding.KindInt,
		Validate: binding.Positive[Guest],
		Default:  func(g *Guest) any { return g.props.Get("memory") },
		Convert: func(g *Guest, v any) any {
			if m, ok := g.props.Get("memory").(int); ok && g.props.IsSet("memory") && m > v.(int) {
				g.props.Put("memory", v)
			}
			return v
		}},
	binding.Field[Guest]{Name: "memory", Path: "currentMemory", Kind: binding.KindInt,
		Validate: binding.Positive[Guest],
		Default:  func(*Guest) any { return 1 },
		Convert: func(g *Guest, v any) any {
			if m, ok := g.props.Get("maxmemory").(int); g.props.IsSet("maxmemory") && ok && m < v.(int) {
				g.props.Put("maxmemory", v)
			}
			return v
		}},
	binding.Field[Guest]{Name: "hugepage", Path: "memoryBacking/hugepages", Kind: binding.KindBool},
	binding.Field[Guest]{Name: "vcpus", Path: "vcpu", Kind: binding.KindInt,
		Validate: binding.Positive[Guest],
		Default:  func(*Guest) any { return 1 },
		Convert: func(g *Guest, v any) any {
			if c, ok := g.props.Int("curvcpus"); ok && c > v.(int) {
				g.props.Put("curvcpus", v)
			}
			return v
		}},
	binding.Field[Guest]{Name: "curvcpus", Path: "vcpu/@current", Kind: binding.KindInt,
		Validate: binding.Positive[Guest],
		Convert: func(g *Guest, v any) any {
			if n, _ := g.props.Int("vcpus"); n < v.(int) {
				g.props.Put("vcpus", v)
			}
			return v
		}},
	binding.Field[Guest]{Name: "cpuset", Path: "vcpu/@cpuset", Kind: binding.KindString,
		Validate: func(_ *Guest, v any) error { return validateCPUSet(v.(string)) }},
	binding.Field[Guest]{Name: "bootloader", Path: "bootloader", Kind: binding.KindString},
	binding.Field[Guest]{Name: "os", Path: "os", Kind: binding.KindChild,
		Child: func(g *Guest) binding.Child { return g.OS }},
	binding.Field[Guest]{Name: "features", Path: "features", Kind: binding.KindChild,
		Child: func(g *Guest) binding.Child { return g.Features }},
	binding.Field[Guest]{Name: "cpu", Path: "cpu", Kind: binding.KindChild,
		Child: func(g *Guest) binding.Child { return g.CPU }},
	binding.Field[Guest]{Name: "clock", Path: "clock", Kind: binding.KindChild,
		Child: func(g *Guest) binding.Child { return g.Clock }},
	binding.Field[Guest]{Name: "on_poweroff", Path: "on_poweroff", Kind: binding.KindString,
		Validate: lifecycleAction,
		Default:  func(*Guest) any { return "destroy" }},
	binding.Field[Guest]{Name: "on_reboot", Path: "on_reboot", Kind: binding.KindString,
		Validate: lifecycleAction},
	binding.Field[Guest]{Name: "on_crash", Path: "on_crash", Kind: binding.KindString,
		Validate: lifecycleAction},
	binding.Field[Guest]{Name: "emulator", Path: "devices/emulator", Kind: binding.KindString},
	binding.Field[Guest]{Name: "devices", Path: "", Kind: binding.KindChild,
		Child: func(g *Guest) binding.Child { return deviceSection{g: g} }},
)

var lifecycleAction = binding.OneOf[Guest]("destroy", "restart", "preserve", "rename-restart")

// New returns an empty guest resolving OS defaults through r.
func New(r Resolver) *Guest {
	g := &Guest{
		resolver:   r,
		Features:   newFeatures(),
		Clock:      newClock(),
		CPU:        newCPU(),
		Devices:    device.NewList("devices"),
		randomUUID: new(string),
	}
	g.props = binding.NewProps(guestSchema, g)
	g.OS = newOSConfig(g)
	return g
}

// Parse reads a domain document into a new guest.
func Parse(xml string, r Resolver) (*Guest, error) {
	doc, err := document.Parse(xml)
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	if root.Tag() != "domain" {
		return nil, fmt.Errorf("expected a domain document, found <%s>", root.Tag())
	}

	g := New(r)
	if err := g.props.Parse(root); err != nil {
		return nil, fmt.Errorf("failed to parse domain: %w", err)
	}
	return g, nil
}

// Clone returns an independent copy sharing the resolver, host,
// installer and generated identifiers.
func (g *Guest) Clone() *Guest {
	c := &Guest{
		resolver:   g.resolver,
		host:       g.host,
		installer:  g.installer,
		Features:   g.Features.clone(),
		Clock:      g.Clock.clone(),
		CPU:        g.CPU.clone(),
		Devices:    g.Devices.Clone(),
		randomUUID: g.randomUUID,
	}
	c.props = g.props.CloneFor(c)
	c.OS = g.OS.clone(c)
	return c
}

// Get returns a top level attribute by field name.
func (g *Guest) Get(name string) any { return g.props.Get(name) }

// Set validates and stores a top level attribute. The OS descriptor
// fields are set through SetOS.
func (g *Guest) Set(name string, v any) error {
	switch name {
	case "os_ns", "os_type", "os_variant":
		return fmt.Errorf("%s is managed by SetOS", name)
	}
	return g.props.Set(name, v)
}

// IsSet reports whether a top level attribute was set explicitly.
func (g *Guest) IsSet(name string) bool { return g.props.IsSet(name) }

func (g *Guest) Name() string       { return g.props.Text("name") }
func (g *Guest) UUID() string       { return g.props.Text("uuid") }
func (g *Guest) Platform() string   { return g.props.Text("type") }
func (g *Guest) Emulator() string   { return g.props.Text("emulator") }
func (g *Guest) Bootloader() string { return g.props.Text("bootloader") }

// Memory returns the current allocation in KiB.
func (g *Guest) Memory() int {
	m, _ := g.props.Int("memory")
	return m
}

// MaxMemory returns the maximum allocation in KiB.
func (g *Guest) MaxMemory() int {
	m, _ := g.props.Int("maxmemory")
	return m
}

func (g *Guest) VCPUs() int {
	n, _ := g.props.Int("vcpus")
	return n
}

// CurVCPUs returns the number of vcpus online at boot, or 0 when every
// vcpu is.
func (g *Guest) CurVCPUs() int {
	n, _ := g.props.Int("curvcpus")
	return n
}

func (g *Guest) SetName(name string) error      { return g.props.Set("name", name) }
func (g *Guest) SetPlatform(p string) error     { return g.props.Set("type", p) }
func (g *Guest) SetMemory(kib int) error        { return g.props.Set("memory", kib) }
func (g *Guest) SetMaxMemory(kib int) error     { return g.props.Set("maxmemory", kib) }
func (g *Guest) SetVCPUs(n int) error           { return g.props.Set("vcpus", n) }
func (g *Guest) SetCurVCPUs(n int) error        { return g.props.Set("curvcpus", n) }
func (g *Guest) SetEmulator(path string) error  { return g.props.Set("emulator", path) }
func (g *Guest) SetDescription(d string) error  { return g.props.Set("description", d) }
func (g *Guest) SetUUID(id string) error        { return g.props.Set("uuid", id) }
func (g *Guest) SetBootloader(bin string) error { return g.props.Set("bootloader", bin) }

func (g *Guest) defaultUUID() string {
	if *g.randomUUID == "" {
		*g.randomUUID = uuid.NewString()
	}
	return *g.randomUUID
}

// Resolver returns the OS dictionary used by g.
func (g *Guest) Resolver() Resolver { return g.resolver }

// Host returns the host description.
func (g *Guest) Host() Host { return g.host }

// SetHost replaces the host description.
func (g *Guest) SetHost(h Host) { g.host = h }

// Installer returns the install strategy, which may be nil.
func (g *Guest) Installer() Installer { return g.installer }

// SetInstaller attaches an install strategy.
func (g *Guest) SetInstaller(i Installer) { g.installer = i }

// AddDevice attaches devices to the guest.
func (g *Guest) AddDevice(devs ...device.Device) { g.Devices.Add(devs...) }

// RemoveDevice detaches a device.
func (g *Guest) RemoveDevice(d device.Device) error { return g.Devices.Remove(d) }

// GetDevices lists the attached devices of one type, or all of them.
func (g *Guest) GetDevices(t device.Type) []device.Device { return g.Devices.Get(t) }

// AddInstallDevice attaches a device on behalf of the installer.
func (g *Guest) AddInstallDevice(d device.Device) {
	g.Devices.Add(d)
	g.installDevices = append(g.installDevices, d)
}

// RemoveInstallDevices detaches every device added by AddInstallDevice.
func (g *Guest) RemoveInstallDevices() {
	for _, d := range g.installDevices {
		if g.Devices.Contains(d) {
			_ = g.Devices.Remove(d)
		}
	}
	g.installDevices = nil
}

// OSType returns the OS type of the descriptor, or "".
func (g *Guest) OSType() string { return g.props.Text("os_type") }

// OSVariant returns the OS variant of the descriptor, or "".
func (g *Guest) OSVariant() string { return g.props.Text("os_variant") }

// SetOS sets the OS descriptor. A variant given without a type selects
// the type it belongs to. The pair is validated as a whole; on error the
// previous descriptor is kept.
func (g *Guest) SetOS(osType, variant string) error {
	if g.resolver == nil {
		return errors.New("no OS dictionary is configured")
	}
	if osType == "" && variant != "" {
		t, ok := g.resolver.VariantType(variant)
		if !ok {
			return &binding.ValidationError{Field: "os_variant", Value: variant, Err: errors.New("unknown OS variant")}
		}
		osType = t
	}
	if osType != "" && !g.resolver.HasOSType(osType) {
		return &binding.ValidationError{Field: "os_type", Value: osType, Err: errors.New("unknown OS type")}
	}
	if variant != "" && !g.resolver.HasVariant(osType, variant) {
		return &binding.ValidationError{Field: "os_variant", Value: variant,
			Err: fmt.Errorf("not a variant of OS type %q", osType)}
	}

	g.props.Put("os_type", nilIfEmpty(osType))
	g.props.Put("os_variant", nilIfEmpty(variant))
	return nil
}

// SetOSType changes the OS type and drops a variant that does not belong
// to it.
func (g *Guest) SetOSType(osType string) error {
	variant := g.OSVariant()
	if variant != "" && (g.resolver == nil || !g.resolver.HasVariant(osType, variant)) {
		variant = ""
	}
	return g.SetOS(osType, variant)
}

// SetOSVariant changes the OS variant within the current type, or
// selects the variant's type when none is set.
func (g *Guest) SetOSVariant(variant string) error {
	return g.SetOS(g.OSType(), variant)
}

func (g *Guest) query(legacy bool) Query {
	return Query{
		Platform:  g.Platform(),
		OSType:    g.OSType(),
		OSVariant: g.OSVariant(),
		Legacy:    legacy,
	}
}

func (g *Guest) lookup(q Query, key string) (any, bool) {
	if g.resolver == nil {
		return nil, false
	}
	return g.resolver.Lookup(q, key)
}

func (g *Guest) lookupDevice(q Query, t device.Type, param string) string {
	if g.resolver == nil {
		return ""
	}
	v, _ := g.resolver.LookupDevice(q, string(t), param)
	return v
}

// Legacy reports whether the host emulator is an older build shipped
// under /usr/libexec/qemu, which changes some device defaults.
func (g *Guest) Legacy() bool {
	switch g.Platform() {
	case PlatformKVM, PlatformQEMU:
	default:
		return false
	}
	emulator := g.Emulator()
	if emulator == "" {
		emulator = g.host.Emulator(g.OS.OSType(), g.arch())
	}
	return strings.HasPrefix(emulator, "/usr/libexec/qemu")
}

func (g *Guest) arch() string {
	if a := g.OS.Arch(); a != "" {
		return a
	}
	return g.host.Arch
}

// Render serializes g as is, without resolving defaults.
func (g *Guest) Render() (string, error) {
	doc := document.New("domain")
	if err := g.props.Serialize(doc.Root()); err != nil {
		return "", err
	}
	return doc.String()
}

// deviceSection binds the device registry to the children of <devices>.
type deviceSection struct {
	g *Guest
}

func (s deviceSection) Serialize(n *document.Node) error {
	for _, d := range s.g.Devices.Get(device.All) {
		if err := d.Serialize(n.Node(d.Path(), true)); err != nil {
			return fmt.Errorf("failed to serialize %s: %w", d.Type(), err)
		}
	}
	return nil
}

func (s deviceSection) Parse(n *document.Node) error {
	s.g.Devices = device.NewList("devices")
	container := n.Node("devices", false)
	if container == nil {
		return nil
	}
	for _, c := range container.Children() {
		d, ok := device.New(device.Type(c.Tag()))
		if !ok {
			if c.Tag() != "emulator" {
				log.WithField("element", c.Tag()).Debug("skipping unsupported device")
			}
			continue
		}
		if err := d.Parse(c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", c.Tag(), err)
		}
		s.g.Devices.Add(d)
	}
	return nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return errors.New("name must not be empty")
	case len(name) > maxNameLength:
		return fmt.Errorf("name must be at most %d characters", maxNameLength)
	case !nameRe.MatchString(name):
		return errors.New("name may only contain letters, digits and _.:+-")
	}
	if _, err := strconv.Atoi(name); err == nil {
		return errors.New("name must not be only digits")
	}
	return nil
}

// validateCPUSet accepts a comma separated list of cpus, ranges and
// ^exclusions, such as "0-3,^2,6".
func validateCPUSet(set string) error {
	if set == "" {
		return errors.New("cpuset must not be empty")
	}
	for _, part := range strings.Split(set, ",") {
		part = strings.TrimPrefix(part, "^")
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(lo)
		if err != nil || a < 0 {
			return fmt.Errorf("invalid cpuset entry %q", part)
		}
		if !isRange {
			continue
		}
		b, err := strconv.Atoi(hi)
		if err != nil || b < a {
			return fmt.Errorf("invalid cpuset range %q", part)
		}
	}
	return nil
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
