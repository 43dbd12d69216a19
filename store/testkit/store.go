// Package testkit holds the conformance suite every store.Store must pass.
package testkit

import (
	"bytes"
	"testing"

	"github.com/multiformats/go-multihash"

	"fam.dev/fam/link"
	"fam.dev/fam/store"
)

// NewStore constructs a fresh, empty store for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) store.Store

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte("hello, fam store")

		l, err := s.Put(link.Raw, want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !l.Equals(link.SumRaw(want)) {
			t.Fatalf("Put link mismatch: got %s want %s", l, link.SumRaw(want))
		}

		got, err := s.Get(l)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("CodecIsPartOfLink", func(t *testing.T) {
		s := newStore(t)
		data := []byte{0xa0}

		l, err := s.Put(link.DagCBOR, data)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		want, err := link.Sum(link.DagCBOR, multihash.SHA2_256, data)
		if err != nil {
			t.Fatalf("Sum failed: %v", err)
		}
		if !l.Equals(want) {
			t.Fatalf("Put link mismatch: got %s want %s", l, want)
		}
		if s.Has(link.SumRaw(data)) {
			t.Fatalf("raw link must not alias the dag-cbor block")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("same bytes")

		l1, err := s.Put(link.Raw, b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		l2, err := s.Put(link.Raw, b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if !l1.Equals(l2) {
			t.Fatalf("Put not idempotent: %s vs %s", l1, l2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := []byte("missing")
		l := link.SumRaw(b)

		if s.Has(l) {
			t.Fatalf("Has returned true for missing link")
		}
		if _, err := s.Get(l); !store.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}
		if _, err := s.Put(link.Raw, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !s.Has(l) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefLink", func(t *testing.T) {
		s := newStore(t)
		if s.Has(link.Undef) {
			t.Fatalf("Has should be false for undefined link")
		}
		if _, err := s.Get(link.Undef); err == nil {
			t.Fatalf("Get should fail for undefined link")
		}
	})

	t.Run("RejectUnknownCodec", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Put(0x9999, []byte("x")); err == nil {
			t.Fatalf("Put should fail for an unknown codec")
		}
	})
}
