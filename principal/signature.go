package principal

import (
	"crypto/ed25519"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/multiformats/go-varint"
)

var signatureSizes = map[uint64]int{
	Ed25519Sig:    ed25519.SignatureSize,
	Dilithium3Sig: mode3.SignatureSize,
}

var signatureNames = map[uint64]string{
	Ed25519Sig:    "ed25519",
	Dilithium3Sig: "dilithium3",
}

// Signature is a raw signature tagged with its algorithm.
type Signature struct {
	Code uint64
	Raw  []byte
}

// Algorithm returns the human-readable algorithm name, or "" if unknown.
func (s Signature) Algorithm() string { return signatureNames[s.Code] }

// Bytes returns varint(code) || varint(len(raw)) || raw.
func (s Signature) Bytes() []byte {
	out := varint.ToUvarint(s.Code)
	out = append(out, varint.ToUvarint(uint64(len(s.Raw)))...)
	return append(out, s.Raw...)
}

// DecodeSignature parses and validates an encoded signature.
func DecodeSignature(b []byte) (Signature, error) {
	if len(b) == 0 {
		return Signature{}, fmt.Errorf("%w: empty signature", ErrInvalidSignature)
	}
	code, n, err := varint.FromUvarint(b)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: codec: %v", ErrInvalidSignature, err)
	}
	size, m, err := varint.FromUvarint(b[n:])
	if err != nil {
		return Signature{}, fmt.Errorf("%w: length: %v", ErrInvalidSignature, err)
	}
	raw := b[n+m:]
	if uint64(len(raw)) != size {
		return Signature{}, fmt.Errorf("%w: declared %d bytes, got %d", ErrInvalidSignature, size, len(raw))
	}
	sig := Signature{Code: code, Raw: append([]byte(nil), raw...)}
	if err := sig.Validate(); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

// Validate checks the algorithm is known and the raw length matches it.
func (s Signature) Validate() error {
	want, ok := signatureSizes[s.Code]
	if !ok {
		return fmt.Errorf("%w: signature codec 0x%x", ErrUnsupported, s.Code)
	}
	if len(s.Raw) == 0 {
		return fmt.Errorf("%w: empty signature", ErrInvalidSignature)
	}
	if len(s.Raw) != want {
		return fmt.Errorf("%w: invalid %s signature length %d", ErrInvalidSignature, s.Algorithm(), len(s.Raw))
	}
	return nil
}
