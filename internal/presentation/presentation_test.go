package presentation

import (
	"testing"

	"kube-topology/internal/graph"
	"kube-topology/internal/resource"

	"github.com/stretchr/testify/assert"
)

func TestGlyph(t *testing.T) {
	assert.Equal(t, "#vertex-Pod", Glyph(resource.KindPod))
	assert.Equal(t, "#vertex-Namespace", Glyph(resource.KindNamespace))
	assert.Empty(t, Glyph(resource.KindOther))
	assert.Empty(t, Glyph(resource.Kind("CronJob")))
}

func TestWeak(t *testing.T) {
	tests := []struct {
		name   string
		status *resource.Status
		want   bool
	}{
		{"no status", nil, false},
		{"empty phase", &resource.Status{}, false},
		{"running", &resource.Status{Phase: "Running"}, false},
		{"pending", &resource.Status{Phase: "Pending"}, true},
		{"failed", &resource.Status{Phase: "Failed"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Weak(&resource.Item{Kind: resource.KindPod, Status: tt.status}))
		})
	}
	assert.False(t, Weak(nil))
}

func TestDescribe(t *testing.T) {
	n := &graph.Node{ID: "p1", Item: &resource.Item{
		Kind:     resource.KindPod,
		Metadata: resource.Metadata{Name: "web-0"},
		Status:   &resource.Status{Phase: "Pending"},
	}}

	v := Describe(n)
	assert.Equal(t, Vertex{Glyph: "#vertex-Pod", Weak: true, Title: "web-0", Class: "Pod"}, v)
	assert.Equal(t, "Node - web-0\nKind - Pod", Tooltip(n))
}

func TestDescribeUnnamed(t *testing.T) {
	n := &graph.Node{ID: "x", Item: &resource.Item{Kind: resource.KindOther}}
	assert.Equal(t, "Unnamed node", Describe(n).Title)
}
