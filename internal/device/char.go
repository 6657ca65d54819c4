package device

import (
	"context"

	"github.com/jbweber/guestforge/internal/binding"
)

// ChannelSpiceVMC is the spice agent channel type.
const ChannelSpiceVMC = "spicevmc"

// Console is a text console.
type Console struct {
	base
	binding.Props[Console]
}

var consoleSchema = binding.NewSchema(
	binding.Field[Console]{Name: "type", Path: "@type", Kind: binding.KindString,
		Default: func(*Console) any { return "pty" }},
	binding.Field[Console]{Name: "target_type", Path: "target/@type", Kind: binding.KindString},
	binding.Field[Console]{Name: "target_port", Path: "target/@port", Kind: binding.KindInt,
		Validate: binding.NonNegative[Console]},
)

func NewConsole() *Console {
	d := &Console{}
	d.Props = binding.NewProps(consoleSchema, d)
	return d
}

func (d *Console) Type() Type                               { return TypeConsole }
func (d *Console) SetDefaults()                             {}
func (d *Console) Setup(context.Context, Provisioner) error { return nil }

func (d *Console) Clone() Device {
	c := *d
	c.Props = d.CloneFor(&c)
	return &c
}

// Channel is a host/guest communication channel.
type Channel struct {
	base
	binding.Props[Channel]
}

var channelSchema = binding.NewSchema(
	binding.Field[Channel]{Name: "type", Path: "@type", Kind: binding.KindString,
		Validate: binding.OneOf[Channel](ChannelSpiceVMC, "unix", "pty")},
	binding.Field[Channel]{Name: "source_mode", Path: "source/@mode", Kind: binding.KindString},
	binding.Field[Channel]{Name: "source_path", Path: "source/@path", Kind: binding.KindString},
	binding.Field[Channel]{Name: "target_type", Path: "target/@type", Kind: binding.KindString},
	binding.Field[Channel]{Name: "target_name", Path: "target/@name", Kind: binding.KindString},
)

func NewChannel() *Channel {
	d := &Channel{}
	d.Props = binding.NewProps(channelSchema, d)
	return d
}

func (d *Channel) Type() Type          { return TypeChannel }
func (d *Channel) ChannelType() string { return d.Text("type") }

// SetDefaults gives the spice agent channel its well-known virtio target.
func (d *Channel) SetDefaults() {
	if d.ChannelType() != ChannelSpiceVMC {
		return
	}
	if !d.IsSet("target_type") {
		d.Put("target_type", "virtio")
	}
	if !d.IsSet("target_name") {
		d.Put("target_name", "com.redhat.spice.0")
	}
}

func (d *Channel) Setup(context.Context, Provisioner) error { return nil }

func (d *Channel) Clone() Device {
	c := *d
	c.Props = d.CloneFor(&c)
	return &c
}
