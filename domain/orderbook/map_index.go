package orderbook

import "github.com/tidwall/btree"

type mapEntry struct {
	price Price
	level Level
}

// mapIndex is the ordered-map backend: a btree keyed by price with the
// side's comparator baked in, so the minimum item is always best of
// side. No best cache is needed.
type mapIndex struct {
	side Side
	tree *btree.BTreeG[*mapEntry]
}

func newMapIndex(side Side) *mapIndex {
	less := func(a, b *mapEntry) bool { return a.price < b.price }
	if side == Buy {
		less = func(a, b *mapEntry) bool { return a.price > b.price }
	}
	return &mapIndex{side: side, tree: btree.NewBTreeG(less)}
}

func (m *mapIndex) Best() (Price, *Level, bool) {
	entry, ok := m.tree.Min()
	if !ok {
		return 0, nil, false
	}
	return entry.price, &entry.level, true
}

func (m *mapIndex) Find(price Price) *Level {
	entry, ok := m.tree.Get(&mapEntry{price: price})
	if !ok {
		return nil
	}
	return &entry.level
}

func (m *mapIndex) Ensure(price Price) (*Level, error) {
	if entry, ok := m.tree.Get(&mapEntry{price: price}); ok {
		return &entry.level, nil
	}
	entry := &mapEntry{price: price}
	entry.level.reset()
	m.tree.Set(entry)
	return &entry.level, nil
}

func (m *mapIndex) Erase(price Price) {
	m.tree.Delete(&mapEntry{price: price})
}

func (m *mapIndex) MarkNonEmpty(Price) {}

func (m *mapIndex) ForEach(fn func(Price, *Level) bool) {
	m.tree.Scan(func(entry *mapEntry) bool {
		if entry.level.Empty() {
			return true
		}
		return fn(entry.price, &entry.level)
	})
}
