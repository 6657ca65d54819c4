package install

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/jbweber/guestforge/internal/device"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/progress"
)

// RootPlaceholder in a bootstrap argument is replaced with the host
// path of the container's root filesystem.
const RootPlaceholder = "{root}"

// Container installs an operating system container by running a
// bootstrap command on the host against the container's root tree.
//
// The bootstrap runs with host networking and the host filesystem, so the
// install phase strips the container's init arguments, filesystems,
// interfaces and private network flag. The final phase restores them
// from the snapshot taken in Prepare.
type Container struct {
	// Bootstrap is the install command and its arguments, for example
	// dnf --installroot {root} install @core.
	Bootstrap []string
	Fs        afero.Fs

	snap *containerSnapshot
	root string
}

type containerSnapshot struct {
	init        any
	initargs    []string
	filesystems []device.Device
	interfaces  []device.Device
	privnet     any
}

// NewContainer returns a container installer on the host filesystem.
func NewContainer(bootstrap ...string) *Container {
	return &Container{Bootstrap: bootstrap, Fs: afero.NewOsFs()}
}

func (c *Container) Name() string          { return "container" }
func (c *Container) HasInstallPhase() bool { return true }
func (c *Container) Cleanup() error        { return nil }

// DetectDistro recognizes nothing: the bootstrap command decides what
// is installed.
func (c *Container) DetectDistro(context.Context) (string, string, error) {
	return "", "", nil
}

// Prepare snapshots the installed configuration and creates the root
// tree.
func (c *Container) Prepare(_ context.Context, g *guest.Guest, meter progress.Meter) error {
	meter.Start("Preparing container root", 0)
	defer meter.End()

	snap := &containerSnapshot{
		init:     g.OS.Get("init"),
		initargs: g.OS.Strings("initargs"),
		privnet:  g.Features.Get("privnet"),
	}
	for _, d := range g.GetDevices(device.TypeFilesystem) {
		snap.filesystems = append(snap.filesystems, d.Clone())
	}
	for _, d := range g.GetDevices(device.TypeInterface) {
		snap.interfaces = append(snap.interfaces, d.Clone())
	}

	root := ""
	for _, fs := range device.Of[*device.Filesystem](g.Devices) {
		if fs.Target() == "/" {
			root = fs.Source()
			break
		}
	}
	if root == "" {
		return errors.New("Need a filesystem to install to.")
	}
	if err := c.Fs.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create container root %s: %w", root, err)
	}

	c.snap = snap
	c.root = root
	log.WithField("root", root).Debug("prepared container root")
	return nil
}

// AlterBootConfig runs the bootstrap for the install phase and restores
// the installed configuration for the final phase.
func (c *Container) AlterBootConfig(g *guest.Guest, install bool) error {
	if c.snap == nil {
		return errors.New("container installer has not been prepared")
	}

	g.OS.Clear("initargs")
	for _, t := range []device.Type{device.TypeFilesystem, device.TypeInterface} {
		for _, d := range g.GetDevices(t) {
			if err := g.RemoveDevice(d); err != nil {
				return err
			}
		}
	}
	g.Features.Put("privnet", false)

	if install {
		if len(c.Bootstrap) == 0 {
			return errors.New("no bootstrap command configured for the container install")
		}
		g.OS.Put("init", c.Bootstrap[0])
		if len(c.Bootstrap) > 1 {
			args := make([]string, 0, len(c.Bootstrap)-1)
			for _, a := range c.Bootstrap[1:] {
				args = append(args, strings.ReplaceAll(a, RootPlaceholder, c.root))
			}
			g.OS.Put("initargs", args)
		}
		return nil
	}

	g.Features.Put("privnet", c.snap.privnet)
	g.OS.Put("init", c.snap.init)
	if len(c.snap.initargs) > 0 {
		g.OS.Put("initargs", c.snap.initargs)
	}
	for _, d := range c.snap.filesystems {
		g.AddDevice(d.Clone())
	}
	for _, d := range c.snap.interfaces {
		g.AddDevice(d.Clone())
	}
	return nil
}
