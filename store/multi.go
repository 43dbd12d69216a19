package store

import (
	"errors"

	"fam.dev/fam/link"
)

// Multi provides deterministic, ordered fallback across multiple stores.
//
// Read order is the slice order in Stores; callers MUST supply a fixed order.
// Put writes only to the first store.
type Multi struct {
	Stores []Store
}

var _ Store = Multi{}

func (m Multi) Put(codec uint64, data []byte) (link.Link, error) {
	if len(m.Stores) == 0 {
		return link.Undef, errors.New("store: Multi has no stores")
	}
	return m.Stores[0].Put(codec, data)
}

func (m Multi) Get(l link.Link) ([]byte, error) {
	for _, s := range m.Stores {
		b, err := s.Get(l)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m Multi) Has(l link.Link) bool {
	for _, s := range m.Stores {
		if s.Has(l) {
			return true
		}
	}
	return false
}

// Close closes every underlying store that implements io.Closer.
func (m Multi) Close() error { return Close(m.Stores...) }
