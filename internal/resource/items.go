package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
)

// Items is an id-keyed item set that remembers insertion order.
type Items struct {
	order   []string
	byID    map[string]*Item
	skipped int
}

// NewItems returns an empty item set.
func NewItems() *Items {
	return &Items{byID: make(map[string]*Item)}
}

// ItemsOf builds an item set from items that already carry an ID.
func ItemsOf(items ...*Item) *Items {
	it := NewItems()
	for _, item := range items {
		it.Set(item)
	}
	return it
}

// Set stores item under item.ID. Re-setting an existing id keeps its
// original position and replaces the value.
func (it *Items) Set(item *Item) {
	if it.byID == nil {
		it.byID = make(map[string]*Item)
	}
	if _, ok := it.byID[item.ID]; !ok {
		it.order = append(it.order, item.ID)
	}
	it.byID[item.ID] = item
}

// Get returns the item stored under id.
func (it *Items) Get(id string) (*Item, bool) {
	if it == nil {
		return nil, false
	}
	item, ok := it.byID[id]
	return item, ok
}

// Delete removes id from the set.
func (it *Items) Delete(id string) {
	if _, ok := it.byID[id]; !ok {
		return
	}
	delete(it.byID, id)
	it.order = slices.DeleteFunc(it.order, func(s string) bool { return s == id })
}

// Len returns the number of items.
func (it *Items) Len() int {
	if it == nil {
		return 0
	}
	return len(it.order)
}

// IDs returns the ids in insertion order.
func (it *Items) IDs() []string {
	if it == nil {
		return nil
	}
	return slices.Clone(it.order)
}

// All iterates over the items in insertion order.
func (it *Items) All() iter.Seq2[string, *Item] {
	return func(yield func(string, *Item) bool) {
		if it == nil {
			return
		}
		for _, id := range it.order {
			if !yield(id, it.byID[id]) {
				return
			}
		}
	}
}

// Skipped reports how many decoded entries were dropped for lack of an id.
func (it *Items) Skipped() int {
	if it == nil {
		return 0
	}
	return it.skipped
}

// UnmarshalJSON accepts either an id-keyed object or an array of items.
// Array entries are keyed by metadata.uid, falling back to id.
func (it *Items) UnmarshalJSON(data []byte) error {
	*it = Items{byID: make(map[string]*Item)}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '[':
		var list []*Item
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("failed to decode item list: %w", err)
		}
		for _, item := range list {
			if item == nil {
				it.skipped++
				continue
			}
			id := item.Metadata.UID
			if id == "" {
				id = item.ID
			}
			if id == "" {
				it.skipped++
				continue
			}
			item.ID = id
			it.Set(item)
		}
		return nil
	case '{':
		return it.decodeObject(data)
	default:
		return fmt.Errorf("items must be an object or an array")
	}
}

func (it *Items) decodeObject(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected item key %v", tok)
		}

		var item *Item
		if err := dec.Decode(&item); err != nil {
			return fmt.Errorf("failed to decode item %q: %w", key, err)
		}
		if item == nil {
			it.skipped++
			continue
		}
		item.ID = key
		it.Set(item)
	}

	_, err := dec.Token()
	return err
}

// MarshalJSON writes the id-keyed object form in insertion order.
func (it *Items) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range it.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(it.byID[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
