package codec

import (
	"fmt"

	"github.com/multiformats/go-multibase"
)

// payloadBase is the multibase used for the channel text form.
const payloadBase = multibase.Base64url

// Payload is an encoded value in its channel form: multibase text wrapping
// the CBOR bytes. The empty Payload means "no value".
type Payload string

// Encode marshals v and wraps the bytes as a Payload.
func Encode(v any) (Payload, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return FromBytes(b), nil
}

// Decode unwraps p and unmarshals the CBOR bytes into v.
func Decode(p Payload, v any) error {
	b, err := p.Bytes()
	if err != nil {
		return err
	}
	return Unmarshal(b, v)
}

// FromBytes wraps already encoded CBOR bytes.
func FromBytes(b []byte) Payload {
	s, err := multibase.Encode(payloadBase, b)
	if err != nil {
		// Encode only fails for unknown encodings.
		panic(fmt.Sprintf("codec: multibase encode: %v", err))
	}
	return Payload(s)
}

// Bytes returns the CBOR bytes carried by p. Any multibase is accepted.
func (p Payload) Bytes() ([]byte, error) {
	if p == "" {
		return nil, malformed("payload", errEmpty)
	}
	_, b, err := multibase.Decode(string(p))
	if err != nil {
		return nil, malformed("payload", err)
	}
	return b, nil
}

// String returns the channel text.
func (p Payload) String() string { return string(p) }
