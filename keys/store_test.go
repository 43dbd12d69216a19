package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fam.dev/fam/principal"
)

func testSigner(t *testing.T) *principal.Ed25519Signer {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	s, err := principal.Ed25519FromSeed(seed)
	if err != nil {
		t.Fatalf("Ed25519FromSeed: %v", err)
	}
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ks, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := testSigner(t)
	path, err := ks.Save("agent", want, false)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("unexpected mode %o", perm)
	}

	got, err := ks.Load("agent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DID() != want.DID() {
		t.Fatalf("DID mismatch: got %s want %s", got.DID(), want.DID())
	}

	if _, err := ks.Save("agent", want, false); err == nil {
		t.Fatalf("expected error saving over an existing key")
	}
	if _, err := ks.Save("agent", want, true); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	ks := &Store{Directory: t.TempDir()}
	if _, err := ks.Load("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := ks.Load("../escape"); err == nil {
		t.Fatalf("expected invalid name error")
	}
	if err := os.WriteFile(filepath.Join(ks.Directory, "bad.key"), []byte("zz\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ks.Load("bad"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestLoadOrCreate(t *testing.T) {
	ks := &Store{Directory: filepath.Join(t.TempDir(), "nested")}
	first, created, err := ks.LoadOrCreate("agent", SchemeEd25519)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if !created {
		t.Fatalf("expected a new key")
	}
	second, created, err := ks.LoadOrCreate("agent", SchemeEd25519)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if created || second.DID() != first.DID() {
		t.Fatalf("expected the stored key to be reused")
	}
	if _, _, err := ks.LoadOrCreate("other", "rsa"); err == nil {
		t.Fatalf("expected unknown scheme error")
	}
}

func TestList(t *testing.T) {
	ks := &Store{Directory: t.TempDir()}
	entries, err := ks.List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty list, got %v, %v", entries, err)
	}
	if _, err := ks.Save("b", testSigner(t), false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, _, err := ks.LoadOrCreate("a", SchemeDilithium3); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	entries, err = ks.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "a" || entries[1].Name != "b" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].DID != testSigner(t).DID() {
		t.Fatalf("unexpected DID %s", entries[1].DID)
	}
}

func TestParseSigner(t *testing.T) {
	s := testSigner(t)
	text := "0x" + hex.EncodeToString(s.Encode()) + "\n"
	got, err := ParseSigner(text)
	if err != nil {
		t.Fatalf("ParseSigner: %v", err)
	}
	if got.DID() != s.DID() {
		t.Fatalf("DID mismatch")
	}
}
