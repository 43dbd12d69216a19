package main

import (
	"bytes"
	"crypto/ed25519"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fam.dev/fam/delegation"
	"fam.dev/fam/link"
	"fam.dev/fam/principal"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRun_Usage(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(nil, &out, &errOut); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if code := run([]string{"bogus"}, &out, &errOut); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(errOut.String(), "unknown command: bogus") {
		t.Fatalf("unexpected stderr: %s", errOut.String())
	}
	out.Reset()
	if code := run([]string{"help"}, &out, &errOut); code != 0 || !strings.Contains(out.String(), "fam ls") {
		t.Fatalf("help failed: %d %s", code, out.String())
	}
}

func TestRun_Link(t *testing.T) {
	data := []byte("hello fam")
	path := writeFile(t, "doc.txt", data)

	var out, errOut bytes.Buffer
	if code := run([]string{"link", path}, &out, &errOut); code != 0 {
		t.Fatalf("link failed: %d %s", code, errOut.String())
	}
	if got, want := strings.TrimSpace(out.String()), link.SumRaw(data).String(); got != want {
		t.Fatalf("link = %s, want %s", got, want)
	}
}

func TestRun_Inspect(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	space, err := principal.Ed25519FromSeed(seed)
	if err != nil {
		t.Fatalf("Ed25519FromSeed: %v", err)
	}
	seed[0] = 1
	agent, err := principal.Ed25519FromSeed(seed)
	if err != nil {
		t.Fatalf("Ed25519FromSeed: %v", err)
	}
	d, err := delegation.Delegate(space, agent.DID(), []delegation.Capability{{Can: "space/blob/*", With: space.DID().String()}})
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}
	archive, err := delegation.Archive(d)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	var out, errOut bytes.Buffer
	if code := run([]string{"inspect", writeFile(t, "proof.car", archive)}, &out, &errOut); code != 0 {
		t.Fatalf("inspect failed: %d %s", code, errOut.String())
	}
	for _, want := range []string{"issuer: " + space.DID().String(), "can: space/blob/* with: ", "signature: ed25519", "OK"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("missing %q in output:\n%s", want, out.String())
		}
	}

	errOut.Reset()
	if code := run([]string{"inspect", writeFile(t, "junk", []byte("junk"))}, &out, &errOut); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut.String(), "invalid archive [DLG-ARC-") {
		t.Fatalf("unexpected stderr: %s", errOut.String())
	}
}

func TestRun_BadArgs(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"root"}, &out, &errOut); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if code := run([]string{"bucket", "rename"}, &out, &errOut); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestRun_EntriesFlagChecks(t *testing.T) {
	bucket := "did:web:example.com"
	// An unroutable target proves the checks run before any dial.
	target := "--target=127.0.0.1:1"
	for _, args := range [][]string{
		{"ls", bucket, target, "--page=-1"},
		{"ls", bucket, target, "--size=0"},
		{"ls", bucket, target, "--size=-5"},
	} {
		var out, errOut bytes.Buffer
		if code := run(args, &out, &errOut); code != 2 {
			t.Fatalf("%v: expected exit 2, got %d (%s)", args, code, errOut.String())
		}
		if !strings.Contains(errOut.String(), "usage: fam ls") {
			t.Fatalf("%v: unexpected stderr: %s", args, errOut.String())
		}
	}
}
