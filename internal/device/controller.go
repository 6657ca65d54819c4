package device

import (
	"context"

	"github.com/jbweber/guestforge/internal/binding"
)

// AddressSpaprVIO is the pseries paravirtual I/O address type.
const AddressSpaprVIO = "spapr-vio"

// Controller is a bus controller.
type Controller struct {
	base
	binding.Props[Controller]
}

var controllerSchema = binding.NewSchema(
	binding.Field[Controller]{Name: "type", Path: "@type", Kind: binding.KindString,
		Validate: binding.OneOf[Controller]("scsi", "usb", "ide", "sata", "fdc", "virtio-serial", "pci", "ccid")},
	binding.Field[Controller]{Name: "index", Path: "@index", Kind: binding.KindInt,
		Validate: binding.NonNegative[Controller],
		Default:  func(*Controller) any { return 0 }},
	binding.Field[Controller]{Name: "model", Path: "@model", Kind: binding.KindString},
	binding.Field[Controller]{Name: "address_type", Path: "address/@type", Kind: binding.KindString},
)

func NewController() *Controller {
	d := &Controller{}
	d.Props = binding.NewProps(controllerSchema, d)
	return d
}

func (d *Controller) Type() Type                               { return TypeController }
func (d *Controller) ControllerType() string                   { return d.Text("type") }
func (d *Controller) AddressType() string                      { return d.Text("address_type") }
func (d *Controller) SetDefaults()                             {}
func (d *Controller) Setup(context.Context, Provisioner) error { return nil }

func (d *Controller) Clone() Device {
	c := *d
	c.Props = d.CloneFor(&c)
	return &c
}
