// Package store holds the content-addressed blocks behind bucket roots.
package store

import (
	"errors"
	"io"

	"go.uber.org/multierr"

	"fam.dev/fam/link"
)

// Store is a minimal content-addressable block store.
//
// Contract:
//   - Put MUST be idempotent.
//   - Stored blocks MUST be immutable.
//   - Links MUST be derived from the bytes written (sha2-256, CIDv1, the given codec).
//   - Get MUST return ErrNotFound when the link is absent.
type Store interface {
	Put(codec uint64, data []byte) (link.Link, error)
	Get(l link.Link) ([]byte, error)
	Has(l link.Link) bool
}

var (
	ErrNotFound     = errors.New("store: not found")
	ErrInvalidLink  = errors.New("store: invalid link")
	ErrLinkMismatch = errors.New("store: link mismatch")
	ErrImmutable    = errors.New("store: immutable block mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Close closes every store in stores that implements io.Closer and returns
// the combined error.
func Close(stores ...Store) error {
	var err error
	for _, s := range stores {
		if c, ok := s.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
