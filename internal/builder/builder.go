package builder

import (
	"encoding/json"
	"fmt"

	"kube-topology/internal/logger"
	"kube-topology/internal/resource"

	"github.com/sirupsen/logrus"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
)

const (
	reasonUnscheduled     = "pod is not scheduled"
	reasonNodeMissing     = "node not found"
	reasonNoOwner         = "no owner reference"
	reasonManyOwners      = "multiple owner references"
	reasonOwnerMissing    = "owner not found"
	reasonNoService       = "no service selects pod"
	reasonManyServices    = "multiple services select pod"
	reasonMissingUID      = "object has no uid"
	reasonUnsupportedKind = "unsupported kind"
)

// Objects is the raw cluster state relations are derived from.
type Objects struct {
	Nodes                  []corev1.Node
	Namespaces             []corev1.Namespace
	Pods                   []corev1.Pod
	Services               []corev1.Service
	ReplicationControllers []corev1.ReplicationController
	ReplicaSets            []appsv1.ReplicaSet
	Deployments            []appsv1.Deployment
}

// Len returns the number of objects.
func (o *Objects) Len() int {
	return len(o.Nodes) + len(o.Namespaces) + len(o.Pods) + len(o.Services) +
		len(o.ReplicationControllers) + len(o.ReplicaSets) + len(o.Deployments)
}

// FromUnstructured sorts decoded cluster objects into Objects. Kinds that
// are not visualised are skipped and logged.
func FromUnstructured(objs []unstructured.Unstructured, log *logrus.Entry) (*Objects, error) {
	log = logger.OrDiscard(log)
	out := &Objects{}
	conv := runtime.DefaultUnstructuredConverter

	for _, u := range objs {
		var err error
		switch resource.Kind(u.GetKind()) {
		case resource.KindNode:
			var v corev1.Node
			err = conv.FromUnstructured(u.Object, &v)
			out.Nodes = append(out.Nodes, v)
		case resource.KindNamespace:
			var v corev1.Namespace
			err = conv.FromUnstructured(u.Object, &v)
			out.Namespaces = append(out.Namespaces, v)
		case resource.KindPod:
			var v corev1.Pod
			err = conv.FromUnstructured(u.Object, &v)
			out.Pods = append(out.Pods, v)
		case resource.KindService:
			var v corev1.Service
			err = conv.FromUnstructured(u.Object, &v)
			out.Services = append(out.Services, v)
		case resource.KindReplicationController:
			var v corev1.ReplicationController
			err = conv.FromUnstructured(u.Object, &v)
			out.ReplicationControllers = append(out.ReplicationControllers, v)
		case resource.KindReplicaSet:
			var v appsv1.ReplicaSet
			err = conv.FromUnstructured(u.Object, &v)
			out.ReplicaSets = append(out.ReplicaSets, v)
		case resource.KindDeployment:
			var v appsv1.Deployment
			err = conv.FromUnstructured(u.Object, &v)
			out.Deployments = append(out.Deployments, v)
		default:
			log.WithFields(logrus.Fields{
				"kind":   u.GetKind(),
				"name":   u.GetName(),
				"reason": reasonUnsupportedKind,
			}).Debug("skipping object")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("converting %s %s/%s: %w", u.GetKind(), u.GetNamespace(), u.GetName(), err)
		}
	}

	return out, nil
}

// Build turns cluster objects into a snapshot. Every pod contributes one
// Container item per container, and relations are derived between pods and
// their node, owner, service and containers, and between deployments and
// their replica sets. A link that cannot be resolved to exactly one object
// is skipped and logged; it never fails the build.
func Build(objs *Objects, log *logrus.Entry) *resource.Snapshot {
	b := &builder{
		log:   logger.OrDiscard(log),
		items: resource.NewItems(),
		uids:  make(map[types.UID]bool),
		nodes: make(map[string]types.UID),
	}

	for i := range objs.Nodes {
		n := &objs.Nodes[i]
		if b.add(resource.KindNode, n.ObjectMeta, n.Spec, nil) {
			b.nodes[n.Name] = n.UID
		}
	}
	for i := range objs.Namespaces {
		ns := &objs.Namespaces[i]
		b.add(resource.KindNamespace, ns.ObjectMeta, ns.Spec, nil)
	}
	for i := range objs.Pods {
		p := &objs.Pods[i]
		b.add(resource.KindPod, p.ObjectMeta, p.Spec, &resource.Status{Phase: string(p.Status.Phase)})
	}
	for i := range objs.Services {
		s := &objs.Services[i]
		b.add(resource.KindService, s.ObjectMeta, s.Spec, nil)
	}
	for i := range objs.ReplicationControllers {
		rc := &objs.ReplicationControllers[i]
		b.add(resource.KindReplicationController, rc.ObjectMeta, rc.Spec, nil)
	}
	for i := range objs.ReplicaSets {
		rs := &objs.ReplicaSets[i]
		b.add(resource.KindReplicaSet, rs.ObjectMeta, rs.Spec, nil)
	}
	for i := range objs.Deployments {
		d := &objs.Deployments[i]
		b.add(resource.KindDeployment, d.ObjectMeta, d.Spec, nil)
	}

	for i := range objs.Pods {
		p := &objs.Pods[i]
		if p.UID == "" {
			continue
		}
		b.containers(p)
		b.podNode(p)
		b.podOwner(p)
		b.podService(p, objs.Services)
	}
	for i := range objs.ReplicaSets {
		b.replicaSetOwner(&objs.ReplicaSets[i])
	}

	return &resource.Snapshot{Items: b.items, Relations: b.relations}
}

type builder struct {
	log       *logrus.Entry
	items     *resource.Items
	relations []resource.Relation
	uids      map[types.UID]bool
	nodes     map[string]types.UID
}

func (b *builder) add(kind resource.Kind, meta metav1.ObjectMeta, spec any, status *resource.Status) bool {
	if meta.UID == "" {
		b.log.WithFields(logrus.Fields{
			"kind":      kind,
			"name":      meta.Name,
			"namespace": meta.Namespace,
			"reason":    reasonMissingUID,
		}).Warn("skipping object")
		return false
	}

	b.items.Set(&resource.Item{
		ID:   string(meta.UID),
		Kind: kind,
		Metadata: resource.Metadata{
			UID:       string(meta.UID),
			Name:      meta.Name,
			Namespace: meta.Namespace,
			Labels:    meta.Labels,
		},
		Spec:   rawSpec(spec),
		Status: status,
	})
	b.uids[meta.UID] = true
	return true
}

func (b *builder) relate(source, target types.UID) {
	b.relations = append(b.relations, resource.Relation{Source: string(source), Target: string(target)})
}

func (b *builder) skip(p *corev1.Pod, reason string, warn bool) {
	entry := b.log.WithFields(logrus.Fields{
		"pod":       p.Name,
		"namespace": p.Namespace,
		"reason":    reason,
	})
	if warn {
		entry.Warn("skipping pod relation")
		return
	}
	entry.Debug("skipping pod relation")
}

func (b *builder) containers(p *corev1.Pod) {
	for _, c := range p.Spec.Containers {
		id := fmt.Sprintf("%s-%s", p.UID, c.Name)
		b.items.Set(&resource.Item{
			ID:   id,
			Kind: resource.KindContainer,
			Metadata: resource.Metadata{
				UID:       id,
				Name:      c.Name,
				Namespace: p.Namespace,
			},
			Spec: rawSpec(c),
		})
		b.relate(p.UID, types.UID(id))
	}
}

func (b *builder) podNode(p *corev1.Pod) {
	if p.Spec.NodeName == "" {
		b.skip(p, reasonUnscheduled, false)
		return
	}
	node, ok := b.nodes[p.Spec.NodeName]
	if !ok {
		b.skip(p, reasonNodeMissing, true)
		return
	}
	b.relate(p.UID, node)
}

func (b *builder) podOwner(p *corev1.Pod) {
	owner, reason, warn := b.soleOwner(p.OwnerReferences)
	if reason != "" {
		b.skip(p, reason, warn)
		return
	}
	b.relate(owner, p.UID)
}

func (b *builder) replicaSetOwner(rs *appsv1.ReplicaSet) {
	if rs.UID == "" {
		return
	}
	owner, reason, warn := b.soleOwner(rs.OwnerReferences)
	if reason != "" {
		if warn {
			b.log.WithFields(logrus.Fields{
				"replicaset": rs.Name,
				"namespace":  rs.Namespace,
				"reason":     reason,
			}).Warn("skipping replica set relation")
		}
		return
	}
	b.relate(owner, rs.UID)
}

// soleOwner resolves an owner only when there is exactly one reference and
// it points at a known object.
func (b *builder) soleOwner(refs []metav1.OwnerReference) (types.UID, string, bool) {
	switch len(refs) {
	case 0:
		return "", reasonNoOwner, false
	case 1:
	default:
		return "", reasonManyOwners, true
	}
	if !b.uids[refs[0].UID] {
		return "", reasonOwnerMissing, true
	}
	return refs[0].UID, "", false
}

func (b *builder) podService(p *corev1.Pod, services []corev1.Service) {
	var match types.UID
	matches := 0
	for i := range services {
		s := &services[i]
		if s.Namespace != p.Namespace || len(s.Spec.Selector) == 0 || !b.uids[s.UID] {
			continue
		}
		if labels.SelectorFromSet(s.Spec.Selector).Matches(labels.Set(p.Labels)) {
			match = s.UID
			matches++
		}
	}

	switch matches {
	case 0:
		b.skip(p, reasonNoService, false)
	case 1:
		b.relate(match, p.UID)
	default:
		b.skip(p, reasonManyServices, true)
	}
}

func rawSpec(spec any) json.RawMessage {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil
	}
	return data
}
