// Package principal implements the signing schemes a DID can stand for.
//
// Two schemes are supported:
//   - ed25519: signs the message bytes directly.
//   - dilithium3 (post-quantum, via circl): signs the sha3-256 digest of the
//     message.
//
// A Signer serializes to multicodec-tagged bytes:
//
//	varint(private-code) || private material || varint(public-code) || public key
//
// Decode is the inverse and is what the identity call hands back to the
// bridge. Signatures serialize as varint(signature-code) || varint(len) || raw.
package principal

import (
	"errors"
	"fmt"

	"github.com/multiformats/go-varint"

	"fam.dev/fam/did"
)

var (
	// ErrInvalidKey is wrapped when encoded key material is malformed.
	ErrInvalidKey = errors.New("principal: invalid key")
	// ErrInvalidSignature is wrapped when an encoded signature is malformed.
	ErrInvalidSignature = errors.New("principal: invalid signature")
	// ErrUnsupported is wrapped for unknown algorithms.
	ErrUnsupported = errors.New("principal: unsupported algorithm")
)

// Multicodec codes of private keys and signatures.
const (
	Ed25519Priv    uint64 = 0x1300
	Dilithium3Priv uint64 = 0x301d30

	Ed25519Sig    uint64 = 0xd0ed
	Dilithium3Sig uint64 = 0x302d30
)

// Verifier checks signatures made by one principal.
type Verifier interface {
	DID() did.DID
	// SignatureCode is the multicodec code of signatures this verifier accepts.
	SignatureCode() uint64
	Verify(msg []byte, sig Signature) bool
}

// Signer produces signatures as one principal.
type Signer interface {
	DID() did.DID
	SignatureCode() uint64
	Sign(msg []byte) (Signature, error)
	Verifier() Verifier
	// Encode returns the multicodec-tagged private key encoding.
	Encode() []byte
}

// Decode parses a Signer produced by Signer.Encode.
func Decode(b []byte) (Signer, error) {
	code, n, err := varint.FromUvarint(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	switch code {
	case Ed25519Priv:
		return decodeEd25519(b[n:])
	case Dilithium3Priv:
		return decodeDilithium3(b[n:])
	default:
		return nil, fmt.Errorf("%w: private key codec 0x%x", ErrUnsupported, code)
	}
}

// VerifierFor returns the verifier for a did:key principal.
func VerifierFor(id did.DID) (Verifier, error) {
	code, pub, err := id.PublicKey()
	if err != nil {
		return nil, err
	}
	switch code {
	case did.Ed25519Pub:
		return ed25519Verifier{id: id, pub: pub}, nil
	case did.Dilithium3Pub:
		return newDilithium3Verifier(id, pub)
	default:
		return nil, fmt.Errorf("%w: key codec 0x%x", ErrUnsupported, code)
	}
}

// SignatureCodeFor returns the signature codec a did:key issuer signs with.
// Non-key DIDs report ok=false.
func SignatureCodeFor(id did.DID) (code uint64, ok bool) {
	keyCode, _, err := id.PublicKey()
	if err != nil {
		return 0, false
	}
	switch keyCode {
	case did.Ed25519Pub:
		return Ed25519Sig, true
	case did.Dilithium3Pub:
		return Dilithium3Sig, true
	default:
		return 0, false
	}
}

// readPublic splits the trailing varint(pub-code) || pub section of an
// encoded signer and checks it matches the expected code.
func readPublic(b []byte, want uint64) ([]byte, error) {
	code, n, err := varint.FromUvarint(b)
	if err != nil {
		return nil, fmt.Errorf("%w: public key codec: %v", ErrInvalidKey, err)
	}
	if code != want {
		return nil, fmt.Errorf("%w: public key codec 0x%x, want 0x%x", ErrInvalidKey, code, want)
	}
	return b[n:], nil
}
