package install

import (
	"context"
	"errors"

	"github.com/jbweber/guestforge/internal/device"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/progress"
)

// PXE network boots the install phase.
type PXE struct{}

func (PXE) Name() string          { return "pxe" }
func (PXE) HasInstallPhase() bool { return true }
func (PXE) Cleanup() error        { return nil }

func (PXE) DetectDistro(context.Context) (string, string, error) {
	return "", "", nil
}

func (PXE) Prepare(_ context.Context, g *guest.Guest, _ progress.Meter) error {
	if len(g.GetDevices(device.TypeInterface)) == 0 {
		return errors.New("network boot requires a network interface")
	}
	return nil
}

func (PXE) AlterBootConfig(g *guest.Guest, install bool) error {
	if !g.OS.IsHVM() {
		return errors.New("network boot requires a fully virtualized guest")
	}
	order := []string{"hd"}
	if install {
		order = []string{"network", "hd"}
	}
	return g.OS.Set("bootorder", order)
}
