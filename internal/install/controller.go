package install

import (
	"context"
	"fmt"

	"github.com/digitalocean/go-libvirt"
	log "github.com/sirupsen/logrus"

	"github.com/jbweber/guestforge/internal/device"
	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/progress"
)

// State is a lifecycle position of a Controller.
type State int

const (
	Idle State = iota
	Preparing
	DocumentSynthesized
	Created
	AwaitingContinuation
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Preparing:
		return "Preparing"
	case DocumentSynthesized:
		return "DocumentSynthesized"
	case Created:
		return "Created"
	case AwaitingContinuation:
		return "AwaitingContinuation"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options tune StartInstall.
type Options struct {
	// DryRun stops after document synthesis. Devices are not set up and
	// the control plane is not contacted.
	DryRun bool
	// Replace destroys and undefines a domain with the same name.
	Replace bool
	// NoBoot defines the domain without starting it. It has no effect
	// when the installer needs an install boot.
	NoBoot    bool
	Autostart bool
}

// Result describes a finished lifecycle step.
type Result struct {
	// StartXML is the install phase document, "" when the installer has
	// no install phase.
	StartXML string
	FinalXML string

	// Domain is the defined domain. It is zero for a dry run.
	Domain           libvirt.Domain
	State            State
	ContinueRequired bool

	// Booted is set when the domain was started rather than only defined.
	Booted bool
}

// Controller installs one guest.
type Controller struct {
	guest       *guest.Guest
	installer   Installer
	client      libvirtClient
	provisioner device.Provisioner
	meter       progress.Meter

	state  State
	domain *libvirt.Domain
}

// NewController attaches inst to g and returns a controller in the Idle
// state. client is typically a *libvirt.Libvirt. provisioner may be nil
// when no disk needs storage; meter may be nil.
func NewController(g *guest.Guest, inst Installer, client libvirtClient, provisioner device.Provisioner, meter progress.Meter) *Controller {
	if meter == nil {
		meter = progress.Nop{}
	}
	g.SetInstaller(inst)
	return &Controller{
		guest:       g,
		installer:   inst,
		client:      client,
		provisioner: provisioner,
		meter:       meter,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

func (c *Controller) logger() *log.Entry {
	return log.WithFields(log.Fields{"guest": c.guest.Name(), "installer": c.installer.Name()})
}

// StartInstall prepares the install, synthesizes the install and final
// documents and, unless this is a dry run, creates the domain.
func (c *Controller) StartInstall(ctx context.Context, opts Options) (*Result, error) {
	if c.domain != nil || c.state == Preparing {
		return nil, ErrAlreadyStarted
	}
	logger := c.logger()

	c.state = Preparing
	c.guest.RemoveInstallDevices()
	defer func() {
		if err := c.installer.Cleanup(); err != nil {
			logger.WithError(err).Warn("installer cleanup failed")
		}
	}()

	logger.Info("preparing install")
	if err := c.installer.Prepare(ctx, c.guest, c.meter); err != nil {
		c.guest.RemoveInstallDevices()
		c.state = Failed
		return nil, &SourceError{Installer: c.installer.Name(), Err: err}
	}

	if c.guest.OSType() == "" {
		c.detectDistro(ctx, logger)
	}

	if !opts.DryRun {
		if err := c.setupDevices(ctx); err != nil {
			c.state = Failed
			return nil, err
		}
	}

	startXML, finalXML, err := c.buildDocuments(true)
	if err != nil {
		c.state = Failed
		return nil, err
	}
	c.state = DocumentSynthesized
	res := &Result{StartXML: startXML, FinalXML: finalXML, State: c.state}
	if opts.DryRun {
		logger.Info("dry run complete")
		return res, nil
	}

	if err := c.checkCollision(opts.Replace); err != nil {
		c.state = Failed
		return nil, err
	}

	dom, err := c.createGuest(startXML, finalXML, true, opts.NoBoot, opts.Autostart)
	if err != nil {
		c.state = Failed
		return nil, err
	}
	c.domain = &dom
	c.state = Created

	res.Domain = dom
	res.Booted = !opts.NoBoot || c.installer.HasInstallPhase()
	res.ContinueRequired = c.guest.ContinueRequired()
	if res.ContinueRequired {
		c.state = AwaitingContinuation
		logger.Info("install staged, continuation required after first reboot")
	} else {
		c.state = Completed
		logger.Info("install started")
	}
	res.State = c.state
	return res, nil
}

// ContinueInstall boots the second stage of a staged install from disk.
func (c *Controller) ContinueInstall(_ context.Context) (*Result, error) {
	if c.state != AwaitingContinuation {
		return nil, ErrNotStaged
	}
	logger := c.logger()

	startXML, finalXML, err := c.buildDocuments(false)
	if err != nil {
		c.state = Failed
		return nil, err
	}

	dom, err := c.createGuest(startXML, finalXML, false, false, false)
	if err != nil {
		c.state = Failed
		return nil, err
	}
	c.domain = &dom
	c.state = Completed
	logger.Info("install continued")
	return &Result{StartXML: startXML, FinalXML: finalXML, Domain: dom, Booted: true, State: c.state}, nil
}

func (c *Controller) detectDistro(ctx context.Context, logger *log.Entry) {
	osType, variant, err := c.installer.DetectDistro(ctx)
	if err != nil {
		logger.WithError(err).Warn("distribution detection failed")
		return
	}
	if osType == "" {
		return
	}
	if err := c.guest.SetOS(osType, variant); err != nil {
		logger.WithError(err).Warn("detected distribution is not usable")
	}
}

func (c *Controller) setupDevices(ctx context.Context) error {
	devs := c.guest.GetDevices(device.All)
	c.meter.Start("Setting up devices", len(devs))
	defer c.meter.End()

	for n, d := range devs {
		if err := d.Setup(ctx, c.provisioner); err != nil {
			return fmt.Errorf("failed to set up %s device: %w", d.Type(), err)
		}
		c.meter.Update(n + 1)
	}
	return nil
}

// buildDocuments returns the install phase and final documents. A
// continuation boots its install phase from disk.
func (c *Controller) buildDocuments(initial bool) (string, string, error) {
	startXML, err := c.guest.BuildDocument(true, !initial)
	if err != nil {
		return "", "", fmt.Errorf("failed to build install document: %w", err)
	}
	finalXML, err := c.guest.BuildDocument(false, false)
	if err != nil {
		return "", "", fmt.Errorf("failed to build final document: %w", err)
	}

	logger := c.logger()
	if startXML == "" {
		logger.Debug("no install document required")
	} else {
		logger.Debugf("install document:\n%s", startXML)
	}
	logger.Debugf("final document:\n%s", finalXML)
	return startXML, finalXML, nil
}

// checkCollision fails when the guest name is taken, or removes the
// existing domain when replace is set. Any lookup error counts as not
// found.
func (c *Controller) checkCollision(replace bool) error {
	name := c.guest.Name()
	existing, err := c.client.DomainLookupByName(name)
	if err != nil {
		return nil
	}
	if !replace {
		return fmt.Errorf("%w: %s", ErrDomainExists, name)
	}

	logger := c.logger()
	if existing.ID != -1 {
		logger.Info("destroying existing domain")
		if err := c.client.DomainDestroy(existing); err != nil {
			return &ControlPlaneError{Op: "destroy", Err: err}
		}
	}
	logger.Info("undefining existing domain")
	if err := c.client.DomainUndefine(existing); err != nil {
		return &ControlPlaneError{Op: "undefine", Err: err}
	}
	return nil
}

// createGuest boots the start document (or the final one when there is
// no install phase) and then defines the final document so the next
// boot uses it. A failure after anything was created runs compensation
// once for an initial install.
func (c *Controller) createGuest(startXML, finalXML string, initial, noBoot, autostart bool) (libvirt.Domain, error) {
	logger := c.logger()
	doBoot := !noBoot || c.installer.HasInstallPhase()
	xml := startXML
	if xml == "" {
		xml = finalXML
	}

	label := "Creating domain"
	if !initial {
		label = "Starting domain"
	}
	c.meter.Start(label, 0)
	defer c.meter.End()

	var (
		dom     libvirt.Domain
		booted  bool
		defined bool
		err     error
	)
	fail := func(op string, cause error) (libvirt.Domain, error) {
		cpErr := &ControlPlaneError{Op: op, Err: cause}
		if initial && (booted || defined) {
			c.compensate(dom, booted, defined)
		}
		return libvirt.Domain{}, cpErr
	}

	if initial && doBoot {
		logger.Info("creating domain")
		dom, err = c.client.DomainCreateXML(xml, 0)
		if err != nil {
			return fail("create", err)
		}
		booted = true
	} else {
		logger.Info("defining domain")
		dom, err = c.client.DomainDefineXML(xml)
		if err != nil {
			return fail("define", err)
		}
		defined = true
		if doBoot {
			logger.Info("starting domain")
			if err = c.client.DomainCreate(dom); err != nil {
				return fail("start", err)
			}
			booted = true
		}
	}

	final, err := c.client.DomainDefineXML(finalXML)
	if err != nil {
		return fail("define", err)
	}
	dom.Name, dom.UUID = final.Name, final.UUID
	defined = true

	if autostart {
		logger.Info("enabling autostart")
		if err := c.client.DomainSetAutostart(dom, 1); err != nil {
			return fail("autostart", err)
		}
	}
	return dom, nil
}

type compensation struct {
	name string
	run  func() error
}

// compensate undoes a partial create: destroy the booted domain, then
// undefine it. Failures are logged and dropped.
func (c *Controller) compensate(dom libvirt.Domain, booted, defined bool) {
	var actions []compensation
	if booted {
		actions = append(actions, compensation{"destroy", func() error { return c.client.DomainDestroy(dom) }})
	}
	if defined {
		actions = append(actions, compensation{"undefine", func() error { return c.client.DomainUndefine(dom) }})
	}

	logger := c.logger()
	for _, a := range actions {
		if err := a.run(); err != nil {
			logger.WithError(err).Warnf("compensating %s failed", a.name)
			continue
		}
		logger.Infof("compensating %s done", a.name)
	}
}
