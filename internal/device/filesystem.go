package device

import (
	"context"

	"github.com/jbweber/guestforge/internal/binding"
)

// Filesystem types.
const (
	FilesystemMount    = "mount"
	FilesystemTemplate = "template"
)

// Filesystem exports a host directory or template into the guest. It is
// the root filesystem of container guests when its target is "/".
type Filesystem struct {
	base
	binding.Props[Filesystem]
}

var filesystemSchema = binding.NewSchema(
	binding.Field[Filesystem]{Name: "type", Path: "@type", Kind: binding.KindString,
		Validate: binding.OneOf[Filesystem](FilesystemMount, FilesystemTemplate, "file", "block"),
		Default:  func(*Filesystem) any { return FilesystemMount }},
	binding.Field[Filesystem]{Name: "accessmode", Path: "@accessmode", Kind: binding.KindString,
		Validate: binding.OneOf[Filesystem]("passthrough", "mapped", "squash")},
	binding.Field[Filesystem]{Name: "driver", Path: "driver/@type", Kind: binding.KindString},
	binding.Field[Filesystem]{Name: "source_dir", Path: "source/@dir", Kind: binding.KindString},
	binding.Field[Filesystem]{Name: "source_name", Path: "source/@name", Kind: binding.KindString},
	binding.Field[Filesystem]{Name: "target", Path: "target/@dir", Kind: binding.KindString},
	binding.Field[Filesystem]{Name: "readonly", Path: "readonly", Kind: binding.KindBool},
)

func NewFilesystem() *Filesystem {
	d := &Filesystem{}
	d.Props = binding.NewProps(filesystemSchema, d)
	return d
}

func (d *Filesystem) Type() Type     { return TypeFilesystem }
func (d *Filesystem) Target() string { return d.Text("target") }

// Source returns the directory or template name the filesystem exports.
func (d *Filesystem) Source() string {
	if d.Text("type") == FilesystemTemplate {
		return d.Text("source_name")
	}
	return d.Text("source_dir")
}

// SetSource sets the exported directory or template name.
func (d *Filesystem) SetSource(src string) {
	if d.Text("type") == FilesystemTemplate {
		d.Put("source_name", src)
		return
	}
	d.Put("source_dir", src)
}

func (d *Filesystem) SetDefaults()                             {}
func (d *Filesystem) Setup(context.Context, Provisioner) error { return nil }

func (d *Filesystem) Clone() Device {
	c := *d
	c.Props = d.CloneFor(&c)
	return &c
}
