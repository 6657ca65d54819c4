// Package device provides the devices attachable to a guest and the
// ordered registry that tracks them.
//
// Every device has a virtual device type tag and a document path of the
// form devices/<type>[n], where n is the device's 1-based position among
// devices of the same type. The registry recomputes those positions after
// every add and remove.
package device

import (
	"context"

	"github.com/jbweber/guestforge/internal/document"
)

// Type is the virtual device type tag. It doubles as the element name
// inside the device container.
type Type string

const (
	// All selects every device in List.Get.
	All Type = "all"

	TypeDisk       Type = "disk"
	TypeInterface  Type = "interface"
	TypeInput      Type = "input"
	TypeSound      Type = "sound"
	TypeVideo      Type = "video"
	TypeGraphics   Type = "graphics"
	TypeConsole    Type = "console"
	TypeChannel    Type = "channel"
	TypeController Type = "controller"
	TypeFilesystem Type = "filesystem"
)

// Device is an attachable guest component.
type Device interface {
	// Type returns the virtual device type tag.
	Type() Type
	// Path returns the document location assigned by the registry.
	Path() string
	SetPath(path string)

	// SetDefaults fills device-local values the caller left unset.
	SetDefaults()
	// Setup performs host-side work the device needs before the guest is
	// created, such as provisioning a storage volume.
	Setup(ctx context.Context, p Provisioner) error

	Serialize(n *document.Node) error
	Parse(n *document.Node) error

	// Clone returns an independent copy with the same path.
	Clone() Device
}

// Provisioner creates storage for devices during Setup.
type Provisioner interface {
	// ProvisionVolume ensures the volume exists and returns its path.
	ProvisionVolume(ctx context.Context, req VolumeRequest) (string, error)
}

// VolumeRequest describes a storage volume backing a disk.
type VolumeRequest struct {
	Pool   string
	Name   string
	Format string
	SizeGB uint64
}

// base carries the registry-assigned path shared by every device.
type base struct {
	path string
}

func (b *base) Path() string        { return b.path }
func (b *base) SetPath(path string) { b.path = path }

// New constructs an empty device for a type tag. It reports false for
// tags this package does not model.
func New(t Type) (Device, bool) {
	switch t {
	case TypeDisk:
		return NewDisk(), true
	case TypeInterface:
		return NewInterface(), true
	case TypeInput:
		return NewInput(), true
	case TypeSound:
		return NewSound(), true
	case TypeVideo:
		return NewVideo(), true
	case TypeGraphics:
		return NewGraphics(), true
	case TypeConsole:
		return NewConsole(), true
	case TypeChannel:
		return NewChannel(), true
	case TypeController:
		return NewController(), true
	case TypeFilesystem:
		return NewFilesystem(), true
	}
	return nil, false
}
