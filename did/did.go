// Package did parses and serializes decentralized identifiers.
//
// A DID has a canonical text form, did:<method>:<method-specific-id>, and a
// binary form. For the key method the binary form is the multicodec-tagged
// public key; every other method is varint(0x0d1d) followed by the UTF-8 text
// after the "did:" scheme. Text and binary are exact inverses of each other.
//
// Canonicalization: the method is lowercased, and did:key identifiers are
// re-encoded as base58btc regardless of the multibase they were written in.
// Two DIDs denoting the same identifier compare equal with ==.
package did

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"
)

// ErrInvalid is wrapped by every parse and decode failure.
var ErrInvalid = errors.New("did: invalid identifier")

// Scheme is the URI scheme every DID starts with.
const Scheme = "did:"

// KeyMethod is the did:key method name.
const KeyMethod = "key"

// Multicodec codes of supported public keys.
const (
	Ed25519Pub    uint64 = 0xed
	Secp256k1Pub  uint64 = 0xe7
	P256Pub       uint64 = 0x1200
	Dilithium3Pub uint64 = 0x300d30

	// methodCode tags the binary form of non-key methods.
	methodCode uint64 = 0x0d1d
)

var keySizes = map[uint64]int{
	Ed25519Pub:    32,
	Secp256k1Pub:  33,
	P256Pub:       33,
	Dilithium3Pub: mode3.PublicKeySize,
}

// DID is an immutable, canonical decentralized identifier.
type DID struct {
	str string
}

// Undef is the zero DID.
var Undef = DID{}

// Parse parses and canonicalizes a DID text.
func Parse(text string) (DID, error) {
	if len(text) < len(Scheme) || !strings.EqualFold(text[:len(Scheme)], Scheme) {
		return Undef, fmt.Errorf("%w: missing %q scheme", ErrInvalid, Scheme)
	}
	method, id, ok := strings.Cut(text[len(Scheme):], ":")
	if !ok {
		return Undef, fmt.Errorf("%w: missing method-specific id", ErrInvalid)
	}
	method = strings.ToLower(method)
	if err := validateMethod(method); err != nil {
		return Undef, err
	}
	if method == KeyMethod {
		return parseKey(id)
	}
	id, err := canonicalID(id)
	if err != nil {
		return Undef, err
	}
	return DID{str: Scheme + method + ":" + id}, nil
}

// MustParse is Parse for known-good constants; it panics on error.
func MustParse(text string) DID {
	d, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return d
}

// FromKey builds a did:key from a multicodec key code and raw public key.
func FromKey(code uint64, pub []byte) (DID, error) {
	if err := checkKey(code, pub); err != nil {
		return Undef, err
	}
	return fromKeyBytes(append(varint.ToUvarint(code), pub...)), nil
}

// Decode parses the binary form produced by Bytes.
func Decode(b []byte) (DID, error) {
	code, n, err := varint.FromUvarint(b)
	if err != nil {
		return Undef, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if code == methodCode {
		d, err := Parse(Scheme + string(b[n:]))
		if err != nil {
			return Undef, err
		}
		if d.Method() == KeyMethod {
			return Undef, fmt.Errorf("%w: did:key must use the key encoding", ErrInvalid)
		}
		if string(d.Bytes()) != string(b) {
			return Undef, fmt.Errorf("%w: non-canonical method encoding", ErrInvalid)
		}
		return d, nil
	}
	if err := checkKey(code, b[n:]); err != nil {
		return Undef, err
	}
	return fromKeyBytes(b), nil
}

// String returns the canonical text form.
func (d DID) String() string { return d.str }

// Defined reports whether d holds an identifier.
func (d DID) Defined() bool { return d.str != "" }

// Method returns the lowercase method name.
func (d DID) Method() string {
	if !d.Defined() {
		return ""
	}
	method, _, _ := strings.Cut(d.str[len(Scheme):], ":")
	return method
}

// ID returns the method-specific identifier.
func (d DID) ID() string {
	if !d.Defined() {
		return ""
	}
	_, id, _ := strings.Cut(d.str[len(Scheme):], ":")
	return id
}

// Bytes returns the binary form. The zero DID encodes as nil.
func (d DID) Bytes() []byte {
	if !d.Defined() {
		return nil
	}
	if d.Method() == KeyMethod {
		// Canonical did:key ids were validated on construction.
		_, b, err := multibase.Decode(d.ID())
		if err != nil {
			panic("did: corrupt did:key " + d.str)
		}
		return b
	}
	return append(varint.ToUvarint(methodCode), d.str[len(Scheme):]...)
}

// PublicKey returns the multicodec code and raw key of a did:key.
func (d DID) PublicKey() (uint64, []byte, error) {
	if d.Method() != KeyMethod {
		return 0, nil, fmt.Errorf("%w: %q is not a did:key", ErrInvalid, d.str)
	}
	b := d.Bytes()
	code, n, err := varint.FromUvarint(b)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return code, b[n:], nil
}

// MarshalText implements encoding.TextMarshaler.
func (d DID) MarshalText() ([]byte, error) {
	return []byte(d.str), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text yields Undef.
func (d *DID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Undef
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func parseKey(id string) (DID, error) {
	if id == "" {
		return Undef, fmt.Errorf("%w: empty did:key identifier", ErrInvalid)
	}
	_, b, err := multibase.Decode(id)
	if err != nil {
		return Undef, fmt.Errorf("%w: did:key multibase: %v", ErrInvalid, err)
	}
	code, n, err := varint.FromUvarint(b)
	if err != nil {
		return Undef, fmt.Errorf("%w: did:key multicodec: %v", ErrInvalid, err)
	}
	if err := checkKey(code, b[n:]); err != nil {
		return Undef, err
	}
	return fromKeyBytes(b), nil
}

func fromKeyBytes(b []byte) DID {
	id, err := multibase.Encode(multibase.Base58BTC, b)
	if err != nil {
		panic("did: base58btc encode: " + err.Error())
	}
	return DID{str: Scheme + KeyMethod + ":" + id}
}

func checkKey(code uint64, key []byte) error {
	size, ok := keySizes[code]
	if !ok {
		return fmt.Errorf("%w: unsupported key codec 0x%x", ErrInvalid, code)
	}
	if len(key) != size {
		return fmt.Errorf("%w: key codec 0x%x wants %d bytes, got %d", ErrInvalid, code, size, len(key))
	}
	return nil
}

func validateMethod(method string) error {
	if method == "" {
		return fmt.Errorf("%w: empty method", ErrInvalid)
	}
	for i := 0; i < len(method); i++ {
		c := method[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return fmt.Errorf("%w: invalid method character %q", ErrInvalid, c)
		}
	}
	return nil
}

// canonicalID enforces the W3C method-specific-id grammar:
// *( *idchar ":" ) 1*idchar, where idchar is ALPHA / DIGIT / "." / "-" / "_"
// or a pct-encoded octet. Percent escapes are returned with uppercase hex
// digits (RFC 3986 6.2.2.1).
func canonicalID(id string) (string, error) {
	if id == "" || strings.HasSuffix(id, ":") {
		return "", fmt.Errorf("%w: empty method-specific id", ErrInvalid)
	}
	var b strings.Builder
	b.Grow(len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '-', c == '_', c == ':':
		case c == '%':
			if i+2 >= len(id) || !isHex(id[i+1]) || !isHex(id[i+2]) {
				return "", fmt.Errorf("%w: bad percent escape at offset %d", ErrInvalid, i)
			}
			b.WriteByte('%')
			b.WriteString(strings.ToUpper(id[i+1 : i+3]))
			i += 2
			continue
		default:
			return "", fmt.Errorf("%w: invalid id character %q", ErrInvalid, c)
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
