package principal

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"

	"fam.dev/fam/did"
)

// Ed25519Signer signs with an ed25519 private key.
type Ed25519Signer struct {
	id   did.DID
	priv ed25519.PrivateKey
}

// GenerateEd25519 returns a new ed25519 signer using rand.
func GenerateEd25519(rand io.Reader) (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return newEd25519(priv)
}

// Ed25519FromSeed derives a signer from a 32-byte seed.
func Ed25519FromSeed(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: expected seed length of %d bytes, got %d", ErrInvalidKey, ed25519.SeedSize, len(seed))
	}
	return newEd25519(ed25519.NewKeyFromSeed(seed))
}

func newEd25519(priv ed25519.PrivateKey) (*Ed25519Signer, error) {
	id, err := did.FromKey(did.Ed25519Pub, priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &Ed25519Signer{id: id, priv: priv}, nil
}

func decodeEd25519(b []byte) (*Ed25519Signer, error) {
	if len(b) < ed25519.SeedSize {
		return nil, fmt.Errorf("%w: truncated ed25519 private key", ErrInvalidKey)
	}
	pub, err := readPublic(b[ed25519.SeedSize:], did.Ed25519Pub)
	if err != nil {
		return nil, err
	}
	s, err := Ed25519FromSeed(b[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(pub, s.priv.Public().(ed25519.PublicKey)) {
		return nil, fmt.Errorf("%w: ed25519 public key does not match private key", ErrInvalidKey)
	}
	return s, nil
}

func (s *Ed25519Signer) DID() did.DID          { return s.id }
func (s *Ed25519Signer) SignatureCode() uint64 { return Ed25519Sig }

func (s *Ed25519Signer) Sign(msg []byte) (Signature, error) {
	return Signature{Code: Ed25519Sig, Raw: ed25519.Sign(s.priv, msg)}, nil
}

func (s *Ed25519Signer) Verifier() Verifier {
	return ed25519Verifier{id: s.id, pub: s.priv.Public().(ed25519.PublicKey)}
}

func (s *Ed25519Signer) Encode() []byte {
	out := varint.ToUvarint(Ed25519Priv)
	out = append(out, s.priv.Seed()...)
	out = append(out, varint.ToUvarint(did.Ed25519Pub)...)
	return append(out, s.priv.Public().(ed25519.PublicKey)...)
}

// Seed returns the 32-byte private seed.
func (s *Ed25519Signer) Seed() []byte { return s.priv.Seed() }

type ed25519Verifier struct {
	id  did.DID
	pub ed25519.PublicKey
}

func (v ed25519Verifier) DID() did.DID          { return v.id }
func (v ed25519Verifier) SignatureCode() uint64 { return Ed25519Sig }

func (v ed25519Verifier) Verify(msg []byte, sig Signature) bool {
	if sig.Code != Ed25519Sig || len(sig.Raw) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(v.pub, msg, sig.Raw)
}
