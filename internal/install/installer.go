package install

import (
	"context"
	"errors"
	"fmt"

	"github.com/jbweber/guestforge/internal/guest"
	"github.com/jbweber/guestforge/internal/progress"
)

// Installer is an install strategy.
type Installer interface {
	guest.Installer

	// Name identifies the strategy in logs and errors.
	Name() string
	// DetectDistro inspects the install source and returns the OS type
	// and variant it carries. Both are "" when nothing is recognized.
	DetectDistro(ctx context.Context) (osType, variant string, err error)
	// Prepare validates the install source and attaches any devices
	// the install needs through g.AddInstallDevice.
	Prepare(ctx context.Context, g *guest.Guest, meter progress.Meter) error
	// Cleanup releases what Prepare acquired. It is safe to call after
	// a failed or skipped Prepare.
	Cleanup() error
}

// ReleaseMapper maps a distribution release to an OS descriptor. It is
// satisfied by *osdict.Table.
type ReleaseMapper interface {
	ForRelease(family, version string) (osType, variant string, ok bool)
}

var (
	// ErrAlreadyStarted is returned when StartInstall is called on a
	// controller that already holds a domain.
	ErrAlreadyStarted = errors.New("domain has already been started")

	// ErrNotStaged is returned when ContinueInstall is called without a
	// staged install.
	ErrNotStaged = errors.New("install is not awaiting continuation")

	// ErrDomainExists is returned when the guest name is taken and
	// replacement was not requested.
	ErrDomainExists = errors.New("domain already exists")
)

// SourceError reports install inputs that could not be prepared.
type SourceError struct {
	Installer string
	Err       error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s installer: %v", e.Installer, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ControlPlaneError reports a failed libvirt operation.
type ControlPlaneError struct {
	Op  string
	Err error
}

func (e *ControlPlaneError) Error() string {
	return fmt.Sprintf("failed to %s domain: %v", e.Op, e.Err)
}

func (e *ControlPlaneError) Unwrap() error {
	return e.Err
}
