// Package v1alpha1 contains the guestforge.cofront.xyz/v1alpha1 manifest
// types.
//
// The types follow Kubernetes API conventions (TypeMeta, ObjectMeta,
// spec/status, conditions) without depending on k8s.io/apimachinery.
package v1alpha1

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// TypeMeta identifies the schema of a manifest.
type TypeMeta struct {
	Kind       string `json:"kind,omitempty" yaml:"kind,omitempty"`
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
}

// ObjectMeta is the metadata block of a manifest.
type ObjectMeta struct {
	// Name becomes the domain name.
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`

	// UID, CreationTimestamp and Generation are written back by
	// guestforge; authors leave them empty.
	UID               string `json:"uid,omitempty" yaml:"uid,omitempty"`
	CreationTimestamp Time   `json:"creationTimestamp,omitempty" yaml:"creationTimestamp,omitempty"`
	Generation        int64  `json:"generation,omitempty" yaml:"generation,omitempty"`
}

// Time serializes as RFC3339 and omits the zero value.
type Time struct {
	time.Time `json:"-" yaml:"-"`
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

func (t *Time) UnmarshalJSON(b []byte) error {
	if string(b) == "null" || string(b) == `""` {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return t.parse(s)
}

func (t Time) MarshalYAML() (any, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.Format(time.RFC3339), nil
}

func (t *Time) UnmarshalYAML(node *yaml.Node) error {
	if node.Value == "" || node.Value == "null" {
		t.Time = time.Time{}
		return nil
	}
	return t.parse(node.Value)
}

func (t *Time) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Condition records one aspect of a guest's observed state.
type Condition struct {
	Type               string          `json:"type" yaml:"type"`
	Status             ConditionStatus `json:"status" yaml:"status"`
	ObservedGeneration int64           `json:"observedGeneration,omitempty" yaml:"observedGeneration,omitempty"`
	// LastTransitionTime changes only when Status does.
	LastTransitionTime Time   `json:"lastTransitionTime,omitempty" yaml:"lastTransitionTime,omitempty"`
	Reason             string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message            string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ConditionStatus is True, False or Unknown.
type ConditionStatus string

const (
	ConditionTrue    ConditionStatus = "True"
	ConditionFalse   ConditionStatus = "False"
	ConditionUnknown ConditionStatus = "Unknown"
)
