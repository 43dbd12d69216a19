package store

import (
	"sync"

	"github.com/multiformats/go-multihash"

	"fam.dev/fam/link"
)

// Memory is an in-process Store. The zero value is ready to use.
type Memory struct {
	mu     sync.RWMutex
	blocks map[string][]byte
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Put(codec uint64, data []byte) (link.Link, error) {
	l, err := link.Sum(codec, multihash.SHA2_256, data)
	if err != nil {
		return link.Undef, ErrInvalidLink
	}
	key := string(l.Binary())

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blocks == nil {
		m.blocks = make(map[string][]byte)
	}
	if existing, ok := m.blocks[key]; ok {
		if string(existing) != string(data) {
			return link.Undef, ErrImmutable
		}
		return l, nil
	}
	m.blocks[key] = append([]byte(nil), data...)
	return l, nil
}

func (m *Memory) Get(l link.Link) ([]byte, error) {
	if !l.Defined() {
		return nil, ErrInvalidLink
	}
	m.mu.RLock()
	b, ok := m.blocks[string(l.Binary())]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Has(l link.Link) bool {
	if !l.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blocks[string(l.Binary())]
	return ok
}

// Len returns the number of stored blocks.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}
