// Package status records install outcomes on Guest manifests as phases
// and conditions.
package status

import (
	"time"

	"github.com/jbweber/guestforge/api/v1alpha1"
)

// now is replaced in tests.
var now = time.Now

// SetCondition adds or updates a condition. LastTransitionTime only moves
// when the status changes.
func SetCondition(g *v1alpha1.Guest, condType string, status v1alpha1.ConditionStatus, reason, message string) {
	ts := v1alpha1.Time{Time: now()}

	for i := range g.Status.Conditions {
		existing := &g.Status.Conditions[i]
		if existing.Type != condType {
			continue
		}
		if existing.Status != status {
			existing.LastTransitionTime = ts
		}
		existing.Status = status
		existing.Reason = reason
		existing.Message = message
		existing.ObservedGeneration = g.Generation
		return
	}

	g.Status.Conditions = append(g.Status.Conditions, v1alpha1.Condition{
		Type:               condType,
		Status:             status,
		ObservedGeneration: g.Generation,
		LastTransitionTime: ts,
		Reason:             reason,
		Message:            message,
	})
}

// GetCondition returns a condition by type, or nil if not found.
func GetCondition(g *v1alpha1.Guest, condType string) *v1alpha1.Condition {
	for i := range g.Status.Conditions {
		if g.Status.Conditions[i].Type == condType {
			return &g.Status.Conditions[i]
		}
	}
	return nil
}

// IsConditionTrue returns true if the condition exists and has status True.
func IsConditionTrue(g *v1alpha1.Guest, condType string) bool {
	cond := GetCondition(g, condType)
	return cond != nil && cond.Status == v1alpha1.ConditionTrue
}

// RemoveCondition removes a condition by type.
func RemoveCondition(g *v1alpha1.Guest, condType string) {
	filtered := g.Status.Conditions[:0]
	for _, c := range g.Status.Conditions {
		if c.Type != condType {
			filtered = append(filtered, c)
		}
	}
	g.Status.Conditions = filtered
}

// MarkFailed sets Ready to False and the phase to Failed.
func MarkFailed(g *v1alpha1.Guest, reason, message string) {
	SetCondition(g, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, reason, message)
	g.SetPhase(v1alpha1.GuestPhaseFailed)
}
