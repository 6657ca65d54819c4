package install

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/jbweber/guestforge/internal/cloudinit"
	"github.com/jbweber/guestforge/internal/device"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/naming"
	"github.com/jbweber/guestforge/internal/progress"
	"github.com/jbweber/guestforge/internal/storage"
)

// Import boots an existing disk image. There is no install phase; an
// optional cloud-init seed is attached as a cdrom for first boot.
type Import struct {
	Seed *cloudinit.Seed
	// SeedDir receives the generated seed image.
	SeedDir string
	Fs      afero.Fs
}

// NewImport returns an import installer on the host filesystem.
func NewImport(seed *cloudinit.Seed, seedDir string) *Import {
	return &Import{Seed: seed, SeedDir: seedDir, Fs: afero.NewOsFs()}
}

func (i *Import) Name() string          { return "import" }
func (i *Import) HasInstallPhase() bool { return false }
func (i *Import) Cleanup() error        { return nil }

func (i *Import) DetectDistro(context.Context) (string, string, error) {
	return "", "", nil
}

// Prepare checks the boot disk and writes the seed image.
func (i *Import) Prepare(_ context.Context, g *guest.Guest, meter progress.Meter) error {
	var boot *device.Disk
	for _, d := range device.Of[*device.Disk](g.Devices) {
		if !d.IsMedia() {
			boot = d
			break
		}
	}
	if boot == nil {
		return errors.New("import requires a disk to boot from")
	}
	src := boot.Source()
	if src == "" {
		return fmt.Errorf("disk %s has no image to import", boot.Target())
	}
	if ok, err := afero.Exists(i.Fs, src); err != nil || !ok {
		return fmt.Errorf("import disk %s does not exist", src)
	}
	if !boot.IsSet("driver_type") {
		i.detectFormat(boot, src)
	}

	if i.Seed == nil {
		return nil
	}

	meter.Start("Writing cloud-init seed", 0)
	defer meter.End()

	seed := *i.Seed
	if seed.Hostname == "" {
		seed.Hostname = g.Name()
	}
	seed.Interfaces = append([]cloudinit.Interface(nil), i.Seed.Interfaces...)
	nics := device.Of[*device.Interface](g.Devices)
	for n := range seed.Interfaces {
		if seed.Interfaces[n].MAC == "" && n < len(nics) {
			seed.Interfaces[n].MAC = nics[n].MAC()
		}
	}

	iso, err := cloudinit.GenerateISO(&seed)
	if err != nil {
		return fmt.Errorf("failed to generate cloud-init seed: %w", err)
	}
	if err := i.Fs.MkdirAll(i.SeedDir, 0o755); err != nil {
		return fmt.Errorf("failed to create seed directory %s: %w", i.SeedDir, err)
	}
	path := filepath.Join(i.SeedDir, naming.SeedName(g.Name()))
	if err := afero.WriteFile(i.Fs, path, iso, 0o644); err != nil {
		return fmt.Errorf("failed to write cloud-init seed %s: %w", path, err)
	}

	cdrom := device.NewDisk()
	if err := cdrom.Set("device", device.DiskDeviceCDROM); err != nil {
		return err
	}
	cdrom.SetSource(path)
	g.AddInstallDevice(cdrom)

	log.WithFields(log.Fields{"guest": g.Name(), "seed": path}).Info("attached cloud-init seed")
	return nil
}

// detectFormat sets the disk driver type from the image header. An
// unrecognised image keeps the hypervisor's default.
func (i *Import) detectFormat(d *device.Disk, path string) {
	format, err := storage.DetectImageFormat(i.Fs, path)
	if err != nil {
		log.WithError(err).WithField("disk", path).Warn("could not detect image format")
		return
	}
	d.Put("driver_type", string(format))
	if !d.IsSet("driver_name") {
		d.Put("driver_name", "qemu")
	}
}

// AlterBootConfig boots from disk in every phase.
func (i *Import) AlterBootConfig(g *guest.Guest, _ bool) error {
	if !g.OS.IsHVM() {
		return nil
	}
	return g.OS.Set("bootorder", []string{"hd"})
}
