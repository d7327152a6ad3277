package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsKeyedObjectKeepsOrder(t *testing.T) {
	doc := `{"z":{"kind":"Pod"},"a":{"kind":"Node"},"m":{"kind":"Service"}}`

	var items Items
	require.NoError(t, json.Unmarshal([]byte(doc), &items))

	assert.Equal(t, []string{"z", "a", "m"}, items.IDs())
	item, ok := items.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", item.ID)
	assert.Equal(t, KindNode, item.Kind)
}

func TestItemsArrayIsKeyedByUID(t *testing.T) {
	doc := `[
		{"kind":"Pod","metadata":{"uid":"p1","name":"web"}},
		{"kind":"Node","id":"n1"},
		{"kind":"Service"},
		null
	]`

	var items Items
	require.NoError(t, json.Unmarshal([]byte(doc), &items))

	assert.Equal(t, []string{"p1", "n1"}, items.IDs())
	assert.Equal(t, 2, items.Skipped())
	item, _ := items.Get("p1")
	assert.Equal(t, "web", item.Name())
}

func TestItemsRejectScalar(t *testing.T) {
	var items Items
	assert.Error(t, json.Unmarshal([]byte(`42`), &items))
}

func TestItemsSetIsLastWriteWins(t *testing.T) {
	items := ItemsOf(
		&Item{ID: "a", Kind: KindPod},
		&Item{ID: "b", Kind: KindNode},
	)
	items.Set(&Item{ID: "a", Kind: KindContainer})

	assert.Equal(t, []string{"a", "b"}, items.IDs())
	item, _ := items.Get("a")
	assert.Equal(t, KindContainer, item.Kind)

	items.Delete("a")
	assert.Equal(t, []string{"b"}, items.IDs())
	assert.Equal(t, 1, items.Len())
}

func TestItemsMarshalRoundTripsOrder(t *testing.T) {
	items := ItemsOf(&Item{ID: "b", Kind: KindPod}, &Item{ID: "a", Kind: KindNode})

	data, err := json.Marshal(items)
	require.NoError(t, err)

	var decoded Items
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"b", "a"}, decoded.IDs())
}

func TestSnapshotValidate(t *testing.T) {
	var snap *Snapshot
	assert.ErrorIs(t, snap.Validate(), ErrInvalidInput)

	snap = (&Snapshot{}).Normalize()
	assert.NoError(t, snap.Validate())
	assert.Equal(t, 0, snap.Items.Len())
	assert.Empty(t, snap.Relations)
}

func TestKindNormalize(t *testing.T) {
	assert.Equal(t, KindPod, KindPod.Normalize())
	assert.Equal(t, KindOther, Kind("StatefulSet").Normalize())
	assert.False(t, Kind("").Known())
}

func TestItemName(t *testing.T) {
	var nilItem *Item
	assert.Equal(t, "Unnamed node", nilItem.Name())
	assert.Equal(t, "Unnamed node", (&Item{}).Name())
}
