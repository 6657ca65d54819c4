package guest

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jbweber/guestforge/internal/device"
)

// ContinueRequired reports whether the install needs a second boot
// from the install media after the first reboot.
func (g *Guest) ContinueRequired() bool {
	if g.installer == nil || !g.installer.HasInstallPhase() {
		return false
	}
	v, ok := g.lookup(g.query(g.Legacy()), KeyContinue)
	cont, _ := v.(bool)
	return ok && cont
}

// BuildDocument synthesizes a domain document. install selects the
// install phase configuration; diskBoot forces booting from disk even
// during install. It returns "" when install is requested from a
// strategy with no install phase. g itself is not modified.
func (g *Guest) BuildDocument(install, diskBoot bool) (string, error) {
	installBoot := install && !diskBoot
	if installBoot && (g.installer == nil || !g.installer.HasInstallPhase()) {
		return "", nil
	}

	w := g.Clone()
	if g.installer != nil {
		if err := g.installer.AlterBootConfig(w, installBoot); err != nil {
			return "", fmt.Errorf("failed to configure boot: %w", err)
		}
	}
	w.setTransientDeviceDefaults(install, g.ContinueRequired())

	action := "restart"
	if install {
		action = "destroy"
	}
	w.props.Put("on_reboot", action)
	w.props.Put("on_crash", action)

	legacy := w.Legacy()
	if err := w.Reconcile(legacy); err != nil {
		return "", err
	}

	w.props.Clear("bootloader")
	if !install && w.OS.IsXenPV() && w.OS.Kernel() == "" {
		w.props.Put("bootloader", pygrub)
		w.OS.ClearBoot()
	}
	w.Devices.Recompute()

	log.WithFields(log.Fields{
		"guest":   w.Name(),
		"install": install,
		"legacy":  legacy,
		"devices": w.Devices.Len(),
	}).Debug("synthesized domain document")
	return w.Render()
}

// setTransientDeviceDefaults strips install-only media from a final
// boot document. A transient cdrom stays attached while an install
// continuation still needs it.
func (g *Guest) setTransientDeviceDefaults(install, continued bool) {
	if install {
		return
	}
	for _, d := range device.Of[*device.Disk](g.Devices) {
		if !d.Transient {
			continue
		}
		switch d.Device() {
		case device.DiskDeviceCDROM:
			if !continued {
				d.SetSource("")
			}
		default:
			_ = g.Devices.Remove(d)
		}
	}
}
