package device

import (
	"context"

	"github.com/jbweber/guestforge/internal/binding"
	"github.com/jbweber/guestforge/internal/naming"
)

// Interface types.
const (
	InterfaceTypeNetwork = "network"
	InterfaceTypeBridge  = "bridge"
	InterfaceTypeUser    = "user"
	InterfaceTypeDirect  = "direct"
)

// Interface is a network interface card.
type Interface struct {
	base
	binding.Props[Interface]

	// randomMAC caches the generated address. Clones share it so every
	// document built from one guest carries the same address.
	randomMAC *string
}

var interfaceSchema = binding.NewSchema(
	binding.Field[Interface]{Name: "type", Path: "@type", Kind: binding.KindString,
		Validate: binding.OneOf[Interface](InterfaceTypeNetwork, InterfaceTypeBridge, InterfaceTypeUser, InterfaceTypeDirect, "ethernet"),
		Default:  func(*Interface) any { return InterfaceTypeNetwork }},
	binding.Field[Interface]{Name: "mac", Path: "mac/@address", Kind: binding.KindString,
		Validate: func(_ *Interface, v any) error { return naming.ValidateMAC(v.(string)) },
		Default:  func(i *Interface) any { return i.defaultMAC() }},
	binding.Field[Interface]{Name: "source_network", Path: "source/@network", Kind: binding.KindString,
		Default: func(i *Interface) any {
			if i.Text("type") == InterfaceTypeNetwork {
				return "default"
			}
			return nil
		}},
	binding.Field[Interface]{Name: "source_bridge", Path: "source/@bridge", Kind: binding.KindString},
	binding.Field[Interface]{Name: "source_dev", Path: "source/@dev", Kind: binding.KindString},
	binding.Field[Interface]{Name: "source_mode", Path: "source/@mode", Kind: binding.KindString},
	binding.Field[Interface]{Name: "target", Path: "target/@dev", Kind: binding.KindString},
	binding.Field[Interface]{Name: "model", Path: "model/@type", Kind: binding.KindString},
	binding.Field[Interface]{Name: "boot_order", Path: "boot/@order", Kind: binding.KindInt,
		Validate: binding.Positive[Interface]},
)

// NewInterface returns a network interface with no attributes set.
func NewInterface() *Interface {
	i := &Interface{randomMAC: new(string)}
	i.Props = binding.NewProps(interfaceSchema, i)
	return i
}

func (i *Interface) Type() Type { return TypeInterface }

func (i *Interface) MAC() string   { return i.Text("mac") }
func (i *Interface) Model() string { return i.Text("model") }

func (i *Interface) defaultMAC() any {
	if *i.randomMAC == "" {
		mac, err := naming.RandomMAC()
		if err != nil {
			return nil
		}
		*i.randomMAC = mac
	}
	return *i.randomMAC
}

// SetDefaults pins the generated MAC address.
func (i *Interface) SetDefaults() {
	if !i.IsSet("mac") {
		if mac := i.Text("mac"); mac != "" {
			i.Put("mac", mac)
		}
	}
}

func (i *Interface) Setup(context.Context, Provisioner) error { return nil }

func (i *Interface) Clone() Device {
	c := *i
	c.Props = i.CloneFor(&c)
	return &c
}
