// Package localfs is a filesystem-backed block store.
package localfs

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/multiformats/go-multihash"

	"fam.dev/fam/link"
	"fam.dev/fam/store"
)

// Store keeps blocks immutably, one file per link.
//
// It never uses the network and never depends on wall-clock time.
type Store struct {
	root string
}

var _ store.Store = (*Store)(nil)

// New constructs a filesystem store rooted at root. The directory will be created if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(codec uint64, data []byte) (link.Link, error) {
	l, err := link.Sum(codec, multihash.SHA2_256, data)
	if err != nil {
		return link.Undef, store.ErrInvalidLink
	}

	path := s.pathFor(l)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return link.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := s.Get(l)
			if rerr != nil {
				// Present but unreadable or corrupted.
				return link.Undef, store.ErrImmutable
			}
			if string(existing) != string(data) {
				return link.Undef, store.ErrImmutable
			}
			return l, nil
		}
		return link.Undef, err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return link.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return link.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return link.Undef, err
	}
	return l, nil
}

func (s *Store) Get(l link.Link) ([]byte, error) {
	if !l.Defined() {
		return nil, store.ErrInvalidLink
	}
	b, err := os.ReadFile(s.pathFor(l))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := l.Verify(b); err != nil {
		return nil, store.ErrLinkMismatch
	}
	return b, nil
}

func (s *Store) Has(l link.Link) bool {
	if !l.Defined() {
		return false
	}
	_, err := os.Stat(s.pathFor(l))
	return err == nil
}

func (s *Store) pathFor(l link.Link) string {
	name := l.String()
	// Skip the multibase prefix so the fan-out uses digest characters.
	if len(name) < 3 {
		return filepath.Join(s.root, name)
	}
	return filepath.Join(s.root, name[len(name)-2:], name)
}
