package guest

// Keys understood by Resolver.Lookup.
const (
	KeyLabel    = "label"
	KeyDistro   = "distro"
	KeyClock    = "clock"
	KeyACPI     = "acpi"
	KeyAPIC     = "apic"
	KeyContinue = "continue"
)

// Query identifies the guest a capability lookup is made for. Legacy
// selects behavior for older hosts and is scoped to a single
// reconciliation pass.
type Query struct {
	Platform  string
	OSType    string
	OSVariant string
	Legacy    bool
}

// Resolver is the OS capability dictionary as seen by the guest model.
// Absent entries resolve to false; callers leave those values unset.
type Resolver interface {
	// Lookup returns the value of a scalar key such as KeyClock.
	Lookup(q Query, key string) (any, bool)
	// LookupDevice returns a device parameter such as ("disk", "bus").
	LookupDevice(q Query, deviceType, param string) (string, bool)

	HasOSType(osType string) bool
	HasVariant(osType, variant string) bool
	// VariantType returns the OS type a variant belongs to.
	VariantType(variant string) (string, bool)
}

// Host describes what the virtualization host supports.
type Host struct {
	Arch             string
	SupportsPAE      bool
	SupportsSpiceVMC bool
	BlktapCapable    bool
	// Emulators maps "<os type>/<arch>" to an emulator binary.
	Emulators map[string]string
}

// Emulator returns the emulator advertised for an OS type and arch.
func (h Host) Emulator(osType, arch string) string {
	return h.Emulators[osType+"/"+arch]
}
