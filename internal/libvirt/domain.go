package libvirt

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
	log "github.com/sirupsen/logrus"
)

// DefaultPollInterval is how often WaitForShutoff checks domain state.
const DefaultPollInterval = 2 * time.Second

// stateClient is the part of *libvirt.Libvirt WaitForShutoff needs.
type stateClient interface {
	DomainGetState(dom libvirt.Domain, flags uint32) (state int32, reason int32, err error)
}

// StateName renders a domain state the way virsh does.
func StateName(state int32) string {
	switch libvirt.DomainState(state) {
	case libvirt.DomainNostate:
		return "no state"
	case libvirt.DomainRunning:
		return "running"
	case libvirt.DomainBlocked:
		return "blocked"
	case libvirt.DomainPaused:
		return "paused"
	case libvirt.DomainShutdown:
		return "shutdown"
	case libvirt.DomainShutoff:
		return "shutoff"
	case libvirt.DomainCrashed:
		return "crashed"
	case libvirt.DomainPmsuspended:
		return "pmsuspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// WaitForShutoff polls dom until it is shut off or ctx ends. A staged
// install powers off at the end of its first stage; the caller then
// continues the install.
func WaitForShutoff(ctx context.Context, c stateClient, dom libvirt.Domain, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := log.WithField("guest", dom.Name)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := int32(-1)
	for {
		state, _, err := c.DomainGetState(dom, 0)
		if err != nil {
			return fmt.Errorf("failed to get state of %s: %w", dom.Name, err)
		}
		if state != last {
			logger.WithField("state", StateName(state)).Debug("domain state")
			last = state
		}
		if libvirt.DomainState(state) == libvirt.DomainShutoff {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to shut off: %w", dom.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}
