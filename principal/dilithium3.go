package principal

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/multiformats/go-varint"
	"golang.org/x/crypto/sha3"

	"fam.dev/fam/did"
)

// Dilithium3Signer signs sha3-256(message) with a dilithium3 key.
//
// The key is kept as its seed so the encoding stays small.
type Dilithium3Signer struct {
	id   did.DID
	seed [mode3.SeedSize]byte
	pub  *mode3.PublicKey
	priv *mode3.PrivateKey
}

// GenerateDilithium3 returns a new dilithium3 signer seeded from rand.
func GenerateDilithium3(rand io.Reader) (*Dilithium3Signer, error) {
	var seed [mode3.SeedSize]byte
	if _, err := io.ReadFull(rand, seed[:]); err != nil {
		return nil, err
	}
	return dilithium3FromSeed(seed)
}

func dilithium3FromSeed(seed [mode3.SeedSize]byte) (*Dilithium3Signer, error) {
	pub, priv := mode3.NewKeyFromSeed(&seed)
	raw, err := pub.MarshalBinary()
	if err != nil {
		return nil, err
	}
	id, err := did.FromKey(did.Dilithium3Pub, raw)
	if err != nil {
		return nil, err
	}
	return &Dilithium3Signer{id: id, seed: seed, pub: pub, priv: priv}, nil
}

func decodeDilithium3(b []byte) (*Dilithium3Signer, error) {
	if len(b) < mode3.SeedSize {
		return nil, fmt.Errorf("%w: truncated dilithium3 private key", ErrInvalidKey)
	}
	pub, err := readPublic(b[mode3.SeedSize:], did.Dilithium3Pub)
	if err != nil {
		return nil, err
	}
	var seed [mode3.SeedSize]byte
	copy(seed[:], b)
	s, err := dilithium3FromSeed(seed)
	if err != nil {
		return nil, err
	}
	raw, err := s.pub.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(pub, raw) {
		return nil, fmt.Errorf("%w: dilithium3 public key does not match seed", ErrInvalidKey)
	}
	return s, nil
}

func (s *Dilithium3Signer) DID() did.DID          { return s.id }
func (s *Dilithium3Signer) SignatureCode() uint64 { return Dilithium3Sig }

func (s *Dilithium3Signer) Sign(msg []byte) (Signature, error) {
	digest := sha3.Sum256(msg)
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest[:], sig)
	return Signature{Code: Dilithium3Sig, Raw: sig}, nil
}

func (s *Dilithium3Signer) Verifier() Verifier {
	return dilithium3Verifier{id: s.id, pub: s.pub}
}

func (s *Dilithium3Signer) Encode() []byte {
	raw, _ := s.pub.MarshalBinary()
	out := varint.ToUvarint(Dilithium3Priv)
	out = append(out, s.seed[:]...)
	out = append(out, varint.ToUvarint(did.Dilithium3Pub)...)
	return append(out, raw...)
}

type dilithium3Verifier struct {
	id  did.DID
	pub *mode3.PublicKey
}

func newDilithium3Verifier(id did.DID, raw []byte) (Verifier, error) {
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: invalid dilithium3 public key: %v", ErrInvalidKey, err)
	}
	return dilithium3Verifier{id: id, pub: &pk}, nil
}

func (v dilithium3Verifier) DID() did.DID          { return v.id }
func (v dilithium3Verifier) SignatureCode() uint64 { return Dilithium3Sig }

func (v dilithium3Verifier) Verify(msg []byte, sig Signature) bool {
	if sig.Code != Dilithium3Sig || len(sig.Raw) != mode3.SignatureSize {
		return false
	}
	digest := sha3.Sum256(msg)
	return mode3.Verify(v.pub, digest[:], sig.Raw)
}
