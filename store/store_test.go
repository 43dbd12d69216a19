package store_test

import (
	"errors"
	"testing"

	"fam.dev/fam/link"
	"fam.dev/fam/store"
	"fam.dev/fam/store/testkit"
)

func TestMemory_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) store.Store {
		return store.NewMemory()
	})
}

func TestMulti_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) store.Store {
		return store.Multi{Stores: []store.Store{store.NewMemory(), store.NewMemory()}}
	})
}

func TestReplicating_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) store.Store {
		return store.Replicating{Backends: []store.Named{
			{Name: "a", Store: store.NewMemory()},
			{Name: "b", Store: store.NewMemory()},
		}}
	})
}

func TestMulti_FallsBackInOrder(t *testing.T) {
	first, second := store.NewMemory(), store.NewMemory()
	l, err := second.Put(link.Raw, []byte("only in second"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	m := store.Multi{Stores: []store.Store{first, second}}
	if _, err := m.Get(l); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := m.Put(link.Raw, []byte("new")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if first.Len() != 1 || second.Len() != 1 {
		t.Fatalf("Put must write only to the first store: %d, %d", first.Len(), second.Len())
	}
}

func TestReplicating_WritesAll(t *testing.T) {
	a, b := store.NewMemory(), store.NewMemory()
	r := store.Replicating{Backends: []store.Named{{Name: "a", Store: a}, {Name: "b", Store: b}}}

	l, per, err := r.PutAll(link.Raw, []byte("replicated"))
	if err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
	if len(per) != 2 || !per["a"].Equals(l) || !per["b"].Equals(l) {
		t.Fatalf("unexpected per-backend links: %v", per)
	}
	if !a.Has(l) || !b.Has(l) {
		t.Fatalf("block missing from a backend")
	}
}

type closingStore struct {
	*store.Memory
	err error
}

func (c closingStore) Close() error { return c.err }

func TestClose_CombinesErrors(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	r := store.Replicating{Backends: []store.Named{
		{Name: "a", Store: closingStore{store.NewMemory(), errA}},
		{Name: "m", Store: store.NewMemory()},
		{Name: "b", Store: closingStore{store.NewMemory(), errB}},
	}}
	err := r.Close()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("Close = %v, want both errors", err)
	}
}
