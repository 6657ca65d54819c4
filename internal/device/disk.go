package device

import (
	"context"
	"fmt"

	"github.com/jbweber/guestforge/internal/binding"
)

// Disk device classes.
const (
	DiskDeviceDisk   = "disk"
	DiskDeviceCDROM  = "cdrom"
	DiskDeviceFloppy = "floppy"
	DiskDeviceLUN    = "lun"
)

// Disk source types.
const (
	DiskTypeFile  = "file"
	DiskTypeBlock = "block"
	DiskTypeDir   = "dir"
)

// Disk is a block device: hard disk, cdrom, floppy or LUN.
type Disk struct {
	base
	binding.Props[Disk]

	// Transient disks are attached for the install phase only. A
	// transient cdrom keeps its drive but loses its media afterwards.
	Transient bool

	// Pool, VolumeName, Format and SizeGB describe a volume to create
	// during Setup when the disk has no source yet.
	Pool       string
	VolumeName string
	Format     string
	SizeGB     uint64
}

var diskSchema = binding.NewSchema(
	binding.Field[Disk]{Name: "type", Path: "@type", Kind: binding.KindString,
		Validate: binding.OneOf[Disk](DiskTypeFile, DiskTypeBlock, DiskTypeDir, "network"),
		Default:  func(d *Disk) any { return d.defaultType() }},
	binding.Field[Disk]{Name: "device", Path: "@device", Kind: binding.KindString,
		Validate: binding.OneOf[Disk](DiskDeviceDisk, DiskDeviceCDROM, DiskDeviceFloppy, DiskDeviceLUN),
		Default:  func(*Disk) any { return DiskDeviceDisk }},
	binding.Field[Disk]{Name: "driver_name", Path: "driver/@name", Kind: binding.KindString},
	binding.Field[Disk]{Name: "driver_type", Path: "driver/@type", Kind: binding.KindString},
	binding.Field[Disk]{Name: "driver_cache", Path: "driver/@cache", Kind: binding.KindString,
		Validate: binding.OneOf[Disk]("none", "writethrough", "writeback", "directsync", "unsafe", "default")},
	binding.Field[Disk]{Name: "source_file", Path: "source/@file", Kind: binding.KindString},
	binding.Field[Disk]{Name: "source_dev", Path: "source/@dev", Kind: binding.KindString},
	binding.Field[Disk]{Name: "source_dir", Path: "source/@dir", Kind: binding.KindString},
	binding.Field[Disk]{Name: "target", Path: "target/@dev", Kind: binding.KindString},
	binding.Field[Disk]{Name: "bus", Path: "target/@bus", Kind: binding.KindString},
	binding.Field[Disk]{Name: "readonly", Path: "readonly", Kind: binding.KindBool},
	binding.Field[Disk]{Name: "shareable", Path: "shareable", Kind: binding.KindBool},
	binding.Field[Disk]{Name: "boot_order", Path: "boot/@order", Kind: binding.KindInt,
		Validate: binding.Positive[Disk]},
	binding.Field[Disk]{Name: "address_type", Path: "address/@type", Kind: binding.KindString},
)

// NewDisk returns a disk with no attributes set.
func NewDisk() *Disk {
	d := &Disk{}
	d.Props = binding.NewProps(diskSchema, d)
	return d
}

func (d *Disk) Type() Type { return TypeDisk }

// Device returns the disk class: disk, cdrom, floppy or lun.
func (d *Disk) Device() string { return d.Text("device") }

// IsMedia reports whether the disk is a removable media drive.
func (d *Disk) IsMedia() bool {
	return d.Device() == DiskDeviceCDROM || d.Device() == DiskDeviceFloppy
}

func (d *Disk) Target() string { return d.Text("target") }
func (d *Disk) Bus() string    { return d.Text("bus") }

// Source returns the backing path, whichever source attribute holds it.
func (d *Disk) Source() string {
	for _, f := range []string{"source_file", "source_dev", "source_dir"} {
		if s := d.Text(f); s != "" {
			return s
		}
	}
	return ""
}

// SetSource points the disk at path, using the source attribute that
// matches the disk type. An empty path detaches the media.
func (d *Disk) SetSource(path string) {
	d.Clear("source_file")
	d.Clear("source_dev")
	d.Clear("source_dir")
	if path == "" {
		return
	}

	field := "source_file"
	if d.IsSet("type") {
		switch d.Text("type") {
		case DiskTypeBlock:
			field = "source_dev"
		case DiskTypeDir:
			field = "source_dir"
		}
	}
	d.Put(field, path)
}

func (d *Disk) defaultType() string {
	switch {
	case d.Text("source_dev") != "":
		return DiskTypeBlock
	case d.Text("source_dir") != "":
		return DiskTypeDir
	default:
		return DiskTypeFile
	}
}

func (d *Disk) SetDefaults() {
	if d.Device() == DiskDeviceCDROM && !d.IsSet("readonly") {
		d.Put("readonly", true)
	}
	if d.IsSet("driver_type") && !d.IsSet("driver_name") {
		d.Put("driver_name", "qemu")
	}
	if shared, _ := d.Bool("shareable"); shared && !d.IsSet("driver_cache") {
		d.Put("driver_cache", "none")
	}
}

// Setup provisions the backing volume for a sized disk with no source.
func (d *Disk) Setup(ctx context.Context, p Provisioner) error {
	if d.Source() != "" || d.SizeGB == 0 {
		return nil
	}
	if p == nil {
		return fmt.Errorf("disk %s needs a %dGB volume but no storage provisioner is configured", d.Target(), d.SizeGB)
	}
	if d.Pool == "" || d.VolumeName == "" {
		return fmt.Errorf("disk %s needs a pool and volume name to provision storage", d.Target())
	}

	format := d.Format
	if format == "" {
		format = "qcow2"
	}
	path, err := p.ProvisionVolume(ctx, VolumeRequest{
		Pool:   d.Pool,
		Name:   d.VolumeName,
		Format: format,
		SizeGB: d.SizeGB,
	})
	if err != nil {
		return fmt.Errorf("failed to provision volume %s: %w", d.VolumeName, err)
	}

	d.SetSource(path)
	if !d.IsSet("driver_type") {
		d.Put("driver_type", format)
	}
	return nil
}

func (d *Disk) Clone() Device {
	c := *d
	c.Props = d.CloneFor(&c)
	return &c
}
