package device

import (
	"context"
	"fmt"

	"github.com/jbweber/guestforge/internal/binding"
)

// Graphics types.
const (
	GraphicsVNC   = "vnc"
	GraphicsSpice = "spice"
	GraphicsSDL   = "sdl"
)

// Input is a pointer or keyboard device. Type and bus left unset are
// filled from the OS dictionary.
type Input struct {
	base
	binding.Props[Input]
}

var inputSchema = binding.NewSchema(
	binding.Field[Input]{Name: "type", Path: "@type", Kind: binding.KindString,
		Validate: binding.OneOf[Input]("mouse", "tablet", "keyboard")},
	binding.Field[Input]{Name: "bus", Path: "@bus", Kind: binding.KindString,
		Validate: binding.OneOf[Input]("ps2", "usb", "xen", "virtio")},
)

func NewInput() *Input {
	d := &Input{}
	d.Props = binding.NewProps(inputSchema, d)
	return d
}

func (d *Input) Type() Type                               { return TypeInput }
func (d *Input) SetDefaults()                             {}
func (d *Input) Setup(context.Context, Provisioner) error { return nil }

func (d *Input) Clone() Device {
	c := *d
	c.Props = d.CloneFor(&c)
	return &c
}

// Sound is an emulated sound card.
type Sound struct {
	base
	binding.Props[Sound]
}

var soundSchema = binding.NewSchema(
	binding.Field[Sound]{Name: "model", Path: "@model", Kind: binding.KindString},
)

func NewSound() *Sound {
	d := &Sound{}
	d.Props = binding.NewProps(soundSchema, d)
	return d
}

func (d *Sound) Type() Type                               { return TypeSound }
func (d *Sound) SetDefaults()                             {}
func (d *Sound) Setup(context.Context, Provisioner) error { return nil }

func (d *Sound) Clone() Device {
	c := *d
	c.Props = d.CloneFor(&c)
	return &c
}

// Video is a video adapter.
type Video struct {
	base
	binding.Props[Video]
}

var videoSchema = binding.NewSchema(
	binding.Field[Video]{Name: "model", Path: "model/@type", Kind: binding.KindString},
	binding.Field[Video]{Name: "vram", Path: "model/@vram", Kind: binding.KindInt,
		Validate: binding.Positive[Video]},
	binding.Field[Video]{Name: "heads", Path: "model/@heads", Kind: binding.KindInt,
		Validate: binding.Positive[Video]},
)

func NewVideo() *Video {
	d := &Video{}
	d.Props = binding.NewProps(videoSchema, d)
	return d
}

func (d *Video) Type() Type                               { return TypeVideo }
func (d *Video) SetDefaults()                             {}
func (d *Video) Setup(context.Context, Provisioner) error { return nil }

func (d *Video) Clone() Device {
	c := *d
	c.Props = d.CloneFor(&c)
	return &c
}

// Graphics is a remote display. Port -1 requests automatic allocation.
type Graphics struct {
	base
	binding.Props[Graphics]
}

var graphicsSchema = binding.NewSchema(
	binding.Field[Graphics]{Name: "type", Path: "@type", Kind: binding.KindString,
		Validate: binding.OneOf[Graphics](GraphicsVNC, GraphicsSpice, GraphicsSDL),
		Default:  func(*Graphics) any { return GraphicsVNC }},
	binding.Field[Graphics]{Name: "port", Path: "@port", Kind: binding.KindInt,
		Validate: func(_ *Graphics, v any) error {
			if p := v.(int); p < -1 || p > 65535 {
				return fmt.Errorf("port must be -1 or between 0 and 65535")
			}
			return nil
		},
		Default: func(g *Graphics) any {
			if g.Text("type") == GraphicsSDL {
				return nil
			}
			return -1
		}},
	binding.Field[Graphics]{Name: "autoport", Path: "@autoport", Kind: binding.KindYesNo,
		Default: func(g *Graphics) any {
			if p, ok := g.Int("port"); ok && p == -1 {
				return true
			}
			return nil
		}},
	binding.Field[Graphics]{Name: "listen", Path: "@listen", Kind: binding.KindString},
	binding.Field[Graphics]{Name: "keymap", Path: "@keymap", Kind: binding.KindString},
	binding.Field[Graphics]{Name: "passwd", Path: "@passwd", Kind: binding.KindString},
)

func NewGraphics() *Graphics {
	d := &Graphics{}
	d.Props = binding.NewProps(graphicsSchema, d)
	return d
}

func (d *Graphics) Type() Type                               { return TypeGraphics }
func (d *Graphics) Protocol() string                         { return d.Text("type") }
func (d *Graphics) SetDefaults()                             {}
func (d *Graphics) Setup(context.Context, Provisioner) error { return nil }

func (d *Graphics) Clone() Device {
	c := *d
	c.Props = d.CloneFor(&c)
	return &c
}
