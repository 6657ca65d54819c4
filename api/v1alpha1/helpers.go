package v1alpha1

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// GroupName is the API group for guestforge resources.
	GroupName = "guestforge.cofront.xyz"

	// Version is the API version.
	Version = "v1alpha1"

	// GuestKind is the kind string for Guest resources.
	GuestKind = "Guest"
)

// APIVersion is the apiVersion manifests carry.
const APIVersion = GroupName + "/" + Version

// NewGuest returns a Pending guest with metadata filled in.
func NewGuest(name string) *Guest {
	return &Guest{
		TypeMeta: TypeMeta{APIVersion: APIVersion, Kind: GuestKind},
		ObjectMeta: ObjectMeta{
			Name:              name,
			UID:               uuid.New().String(),
			CreationTimestamp: Time{Time: time.Now()},
			Generation:        1,
		},
		Spec: GuestSpec{
			Install: InstallSpec{Method: InstallMedia},
		},
		Status: GuestStatus{Phase: GuestPhasePending},
	}
}

// SetDefaultAPIVersion fills an empty apiVersion and kind.
func SetDefaultAPIVersion(g *Guest) {
	if g.APIVersion == "" {
		g.APIVersion = APIVersion
	}
	if g.Kind == "" {
		g.Kind = GuestKind
	}
}

// IsAutostart reports whether the guest starts with the host.
func (g *Guest) IsAutostart() bool {
	return g.Spec.Autostart != nil && *g.Spec.Autostart
}

// MemoryKiB is the initial memory in the unit domain documents use.
func (g *Guest) MemoryKiB() int {
	return g.Spec.MemoryMiB * 1024
}

// MaxMemoryKiB is zero when no balloon ceiling is set.
func (g *Guest) MaxMemoryKiB() int {
	return g.Spec.MaxMemoryMiB * 1024
}

// Hostname is the short name cloud-init gives the guest.
func (g *Guest) Hostname() string {
	if g.Spec.CloudInit != nil && g.Spec.CloudInit.FQDN != "" {
		return g.Spec.CloudInit.FQDN
	}
	return g.Name
}

// Normalize trims user input and lowercases case-insensitive values. Guest
// names are case sensitive in libvirt and are only trimmed.
func (g *Guest) Normalize() {
	g.Name = strings.TrimSpace(g.Name)
	g.Spec.Platform = strings.ToLower(strings.TrimSpace(g.Spec.Platform))
	g.Spec.Install.Method = strings.ToLower(strings.TrimSpace(g.Spec.Install.Method))
	for i := range g.Spec.Interfaces {
		g.Spec.Interfaces[i].MAC = strings.ToLower(g.Spec.Interfaces[i].MAC)
	}
	if g.Spec.CloudInit != nil {
		g.Spec.CloudInit.FQDN = strings.ToLower(strings.TrimSpace(g.Spec.CloudInit.FQDN))
	}
}

// SetPhase records a phase transition.
func (g *Guest) SetPhase(phase GuestPhase) {
	g.Status.Phase = phase
}

// UpdateObservedGeneration marks the current spec as acted on.
func (g *Guest) UpdateObservedGeneration() {
	g.Status.ObservedGeneration = g.Generation
}
