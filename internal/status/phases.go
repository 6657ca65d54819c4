package status

import (
	"errors"

	"github.com/google/uuid"

	"github.com/jbweber/guestforge/api/v1alpha1"
	"github.com/jbweber/guestforge/internal/install"
)

// Record writes the outcome of an install step to g's status. res is
// ignored when err is set. macs are the interface addresses the guest
// was defined with.
func Record(g *v1alpha1.Guest, res *install.Result, macs []string, err error) {
	if err != nil {
		recordFailure(g, err)
		return
	}

	SetCondition(g, v1alpha1.ConditionDocumentsSynthesized, v1alpha1.ConditionTrue, "Synthesized", "Install and final documents built")
	if res.State == install.DocumentSynthesized {
		// Dry run.
		g.SetPhase(v1alpha1.GuestPhasePending)
		SetCondition(g, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, "DryRun", "Documents built, domain not created")
		return
	}

	SetCondition(g, v1alpha1.ConditionStorageProvisioned, v1alpha1.ConditionTrue, "StorageReady", "All disks have storage")
	g.Status.DomainUUID = uuid.UUID(res.Domain.UUID).String()
	g.Status.MACAddresses = macs
	g.UpdateObservedGeneration()

	switch {
	case res.State == install.AwaitingContinuation:
		g.SetPhase(v1alpha1.GuestPhaseInstalling)
		SetCondition(g, v1alpha1.ConditionInstalled, v1alpha1.ConditionFalse, "AwaitingContinuation", "Install boot running, continue after the first reboot")
		SetCondition(g, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, "Installing", "Install in progress")
	case res.Booted:
		g.SetPhase(v1alpha1.GuestPhaseRunning)
		SetCondition(g, v1alpha1.ConditionInstalled, v1alpha1.ConditionTrue, "Installed", "Final document defined")
		SetCondition(g, v1alpha1.ConditionReady, v1alpha1.ConditionTrue, "Running", "Domain is running")
	default:
		g.SetPhase(v1alpha1.GuestPhaseDefined)
		SetCondition(g, v1alpha1.ConditionInstalled, v1alpha1.ConditionTrue, "Installed", "Final document defined")
		SetCondition(g, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, "NotStarted", "Domain defined but not started")
	}
}

func recordFailure(g *v1alpha1.Guest, err error) {
	var (
		srcErr *install.SourceError
		cpErr  *install.ControlPlaneError
	)
	reason := "InstallFailed"
	switch {
	case errors.As(err, &srcErr):
		reason = "InstallSourceFailed"
	case errors.Is(err, install.ErrDomainExists):
		reason = "DomainExists"
	case errors.As(err, &cpErr):
		reason = "ControlPlaneFailed"
	}
	MarkFailed(g, reason, err.Error())
}

// IsTerminal reports whether no further install step is expected.
func IsTerminal(phase v1alpha1.GuestPhase) bool {
	return phase == v1alpha1.GuestPhaseRunning || phase == v1alpha1.GuestPhaseDefined || phase == v1alpha1.GuestPhaseFailed
}
