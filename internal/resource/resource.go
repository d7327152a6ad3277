package resource

import (
	"encoding/json"
	"errors"
)

// ErrInvalidInput is returned when a snapshot is missing altogether.
var ErrInvalidInput = errors.New("invalid input")

// Kind is the cluster resource kind of an item.
type Kind string

const (
	KindPod                   Kind = "Pod"
	KindNode                  Kind = "Node"
	KindService               Kind = "Service"
	KindReplicationController Kind = "ReplicationController"
	KindReplicaSet            Kind = "ReplicaSet"
	KindDeployment            Kind = "Deployment"
	KindNamespace             Kind = "Namespace"
	KindContainer             Kind = "Container"
	KindOther                 Kind = "Other"
)

// Kinds lists every recognised kind, KindOther last.
var Kinds = []Kind{
	KindPod,
	KindNode,
	KindService,
	KindReplicationController,
	KindReplicaSet,
	KindDeployment,
	KindNamespace,
	KindContainer,
	KindOther,
}

// Known reports whether k is one of the recognised kinds.
func (k Kind) Known() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Normalize maps unrecognised kinds onto KindOther.
func (k Kind) Normalize() Kind {
	if k.Known() {
		return k
	}
	return KindOther
}

// Metadata is the subset of object metadata the visualisation needs.
type Metadata struct {
	UID       string            `json:"uid,omitempty"`
	Name      string            `json:"name,omitempty"`
	Namespace string            `json:"namespace,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Status carries health information. Only the phase is inspected.
type Status struct {
	Phase string `json:"phase,omitempty"`
}

// Item is one visualised cluster resource.
type Item struct {
	ID       string          `json:"id,omitempty"`
	Kind     Kind            `json:"kind"`
	Metadata Metadata        `json:"metadata"`
	Spec     json.RawMessage `json:"spec,omitempty"`
	Status   *Status         `json:"status,omitempty"`
}

// Name returns the display label of the item.
func (i *Item) Name() string {
	if i == nil || i.Metadata.Name == "" {
		return "Unnamed node"
	}
	return i.Metadata.Name
}

// Relation is a directed edge between two item ids.
type Relation struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Snapshot is one immutable view of the cluster handed to the reconciler.
type Snapshot struct {
	Items     *Items     `json:"items"`
	Relations []Relation `json:"relations"`
}

// Validate fails with ErrInvalidInput when there is no snapshot to render.
func (s *Snapshot) Validate() error {
	if s == nil {
		return ErrInvalidInput
	}
	return nil
}

// Normalize fills in missing collections so callers never see nil items.
func (s *Snapshot) Normalize() *Snapshot {
	if s.Items == nil {
		s.Items = NewItems()
	}
	if s.Relations == nil {
		s.Relations = []Relation{}
	}
	return s
}
