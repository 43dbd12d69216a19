package store

import (
	"fmt"

	"github.com/multiformats/go-multihash"

	"fam.dev/fam/link"
)

// Named associates a Store with a stable backend name.
type Named struct {
	Name  string
	Store Store
}

// Replicating writes to all configured backends.
//
// Reads fall back in order. Writes go to all backends and require all returned
// links to match (otherwise ErrLinkMismatch is returned).
type Replicating struct {
	Backends []Named
}

var _ Store = Replicating{}

// PutAll writes the same bytes to all backends and returns the canonical link
// plus a map of backend name -> returned link.
func (r Replicating) PutAll(codec uint64, data []byte) (link.Link, map[string]link.Link, error) {
	want, err := link.Sum(codec, multihash.SHA2_256, data)
	if err != nil {
		return link.Undef, nil, ErrInvalidLink
	}
	if len(r.Backends) == 0 {
		return link.Undef, nil, fmt.Errorf("store: Replicating has no backends")
	}

	out := make(map[string]link.Link, len(r.Backends))
	for _, b := range r.Backends {
		if b.Store == nil {
			return link.Undef, nil, fmt.Errorf("store: nil store for backend %q", b.Name)
		}
		got, err := b.Store.Put(codec, data)
		if err != nil {
			return link.Undef, nil, fmt.Errorf("store: backend %q: %w", b.Name, err)
		}
		out[b.Name] = got
		if !got.Equals(want) {
			return link.Undef, out, ErrLinkMismatch
		}
	}
	return want, out, nil
}

func (r Replicating) Put(codec uint64, data []byte) (link.Link, error) {
	l, _, err := r.PutAll(codec, data)
	return l, err
}

func (r Replicating) Get(l link.Link) ([]byte, error) {
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		out, err := b.Store.Get(l)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (r Replicating) Has(l link.Link) bool {
	for _, b := range r.Backends {
		if b.Store != nil && b.Store.Has(l) {
			return true
		}
	}
	return false
}

// Close closes every backend that implements io.Closer.
func (r Replicating) Close() error {
	stores := make([]Store, 0, len(r.Backends))
	for _, b := range r.Backends {
		if b.Store != nil {
			stores = append(stores, b.Store)
		}
	}
	return Close(stores...)
}
