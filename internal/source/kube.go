package source

import (
	"context"
	"fmt"

	"kube-topology/internal/builder"
	"kube-topology/internal/logger"
	"kube-topology/internal/resource"

	"github.com/sirupsen/logrus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// KubeSource lists objects from a live cluster and derives relations from
// them.
type KubeSource struct {
	client    kubernetes.Interface
	namespace string
	log       *logrus.Entry
}

// NewKubeSource creates a source backed by client. An empty namespace lists
// every namespace; nodes and namespaces are always listed cluster-wide.
func NewKubeSource(client kubernetes.Interface, namespace string, log *logrus.Entry) *KubeSource {
	return &KubeSource{
		client:    client,
		namespace: namespace,
		log:       logger.OrDiscard(log).WithField("source", "kube"),
	}
}

// NewKubeSourceFromConfig connects using kubeconfig, or the in-cluster
// configuration when kubeconfig is empty and $KUBECONFIG is unset.
func NewKubeSourceFromConfig(kubeconfig, namespace string, log *logrus.Entry) (*KubeSource, error) {
	restConfig, err := restConfig(kubeconfig)
	if err != nil {
		return nil, err
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return NewKubeSource(clientset, namespace, log), nil
}

func restConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return cfg, nil
}

// Name implements Source.
func (s *KubeSource) Name() string {
	if s.namespace == "" {
		return "kube:all-namespaces"
	}
	return "kube:" + s.namespace
}

// Snapshot lists the visualised kinds and builds a snapshot from them.
func (s *KubeSource) Snapshot(ctx context.Context) (*resource.Snapshot, error) {
	objs, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	s.log.WithField("objects", objs.Len()).Debug("listed cluster objects")
	return builder.Build(objs, s.log).Normalize(), nil
}

func (s *KubeSource) list(ctx context.Context) (*builder.Objects, error) {
	opts := metav1.ListOptions{}
	core := s.client.CoreV1()
	apps := s.client.AppsV1()
	objs := &builder.Objects{}

	nodes, err := core.Nodes().List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	objs.Nodes = nodes.Items

	namespaces, err := core.Namespaces().List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	objs.Namespaces = namespaces.Items

	pods, err := core.Pods(s.namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}
	objs.Pods = pods.Items

	services, err := core.Services(s.namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	objs.Services = services.Items

	rcs, err := core.ReplicationControllers(s.namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list replication controllers: %w", err)
	}
	objs.ReplicationControllers = rcs.Items

	rss, err := apps.ReplicaSets(s.namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list replica sets: %w", err)
	}
	objs.ReplicaSets = rss.Items

	deployments, err := apps.Deployments(s.namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	objs.Deployments = deployments.Items

	return objs, nil
}
