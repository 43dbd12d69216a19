package delegation

import (
	"bytes"
	"time"

	"github.com/multiformats/go-multihash"

	"fam.dev/fam/codec"
	"fam.dev/fam/did"
	"fam.dev/fam/link"
	"fam.dev/fam/principal"
)

// Version is the payload format version written into every delegation.
const Version = "0.9.1"

type block struct {
	Payload   []byte `cbor:"p"`
	Signature []byte `cbor:"s"`
}

type payload struct {
	Version  string           `cbor:"v"`
	Issuer   []byte           `cbor:"iss"`
	Audience []byte           `cbor:"aud"`
	Att      []Capability     `cbor:"att"`
	Exp      *int64           `cbor:"exp,omitempty"`
	Nbf      *int64           `cbor:"nbf,omitempty"`
	Nonce    string           `cbor:"nnc,omitempty"`
	Facts    []map[string]any `cbor:"fct,omitempty"`
	Proofs   []link.Link      `cbor:"prf,omitempty"`
}

// Delegation is an immutable signed capability grant together with its
// resolved proofs. The zero value is undefined.
type Delegation struct {
	raw      []byte
	link     link.Link
	payload  []byte
	issuer   did.DID
	audience did.DID
	caps     []Capability
	exp      *int64
	nbf      *int64
	nonce    string
	facts    []map[string]any
	sig      principal.Signature
	proofs   []Delegation
}

// Defined reports whether d holds a delegation.
func (d Delegation) Defined() bool { return d.raw != nil }

// Link returns the content address of the delegation block.
func (d Delegation) Link() link.Link { return d.link }

// Bytes returns the canonical block bytes.
func (d Delegation) Bytes() []byte { return append([]byte(nil), d.raw...) }

func (d Delegation) Issuer() did.DID   { return d.issuer }
func (d Delegation) Audience() did.DID { return d.audience }

// Capabilities returns a copy of the granted capabilities.
func (d Delegation) Capabilities() []Capability {
	return append([]Capability(nil), d.caps...)
}

// Expiration returns the expiry time, if one is set.
func (d Delegation) Expiration() (time.Time, bool) { return unixTime(d.exp) }

// NotBefore returns the activation time, if one is set.
func (d Delegation) NotBefore() (time.Time, bool) { return unixTime(d.nbf) }

func (d Delegation) Nonce() string { return d.nonce }

// Facts returns a copy of the attached facts.
func (d Delegation) Facts() []map[string]any {
	return append([]map[string]any(nil), d.facts...)
}

func (d Delegation) Signature() principal.Signature { return d.sig }

// Proofs returns the resolved proof delegations in payload order.
func (d Delegation) Proofs() []Delegation {
	return append([]Delegation(nil), d.proofs...)
}

// Equal reports whether d and o have identical block bytes.
func (d Delegation) Equal(o Delegation) bool {
	return d.Defined() == o.Defined() && bytes.Equal(d.raw, o.raw)
}

func unixTime(sec *int64) (time.Time, bool) {
	if sec == nil {
		return time.Time{}, false
	}
	return time.Unix(*sec, 0).UTC(), true
}

func blockLink(raw []byte) (link.Link, error) {
	return link.Sum(link.DagCBOR, multihash.SHA2_256, raw)
}

// decodeBlock parses one block without resolving proofs. proofs holds the
// payload proof links.
func decodeBlock(raw []byte) (Delegation, []link.Link, error) {
	var b block
	if err := codec.Unmarshal(raw, &b); err != nil {
		return Delegation{}, nil, wrapError(KindBlock, "DLG-BLK-001", "malformed delegation block", err)
	}
	if canonical, err := codec.Marshal(b); err != nil || !bytes.Equal(canonical, raw) {
		return Delegation{}, nil, wrapError(KindBlock, "DLG-BLK-002", "non-canonical delegation block", err)
	}

	var p payload
	if err := codec.Unmarshal(b.Payload, &p); err != nil {
		return Delegation{}, nil, wrapError(KindBlock, "DLG-BLK-003", "malformed delegation payload", err)
	}
	if p.Version != Version {
		return Delegation{}, nil, newError(KindBlock, "DLG-BLK-004", "unsupported delegation version "+quote(p.Version))
	}

	iss, err := did.Decode(p.Issuer)
	if err != nil {
		return Delegation{}, nil, wrapError(KindPrincipal, "DLG-PRN-001", "invalid issuer", err)
	}
	aud, err := did.Decode(p.Audience)
	if err != nil {
		return Delegation{}, nil, wrapError(KindPrincipal, "DLG-PRN-002", "invalid audience", err)
	}

	if len(p.Att) == 0 {
		return Delegation{}, nil, newError(KindCapability, "DLG-CAP-000", "delegation grants no capabilities")
	}
	caps := make([]Capability, len(p.Att))
	for i, c := range p.Att {
		if caps[i], err = normalizeCapability(c); err != nil {
			return Delegation{}, nil, err
		}
	}
	p.Att = caps

	for i, f := range p.Facts {
		n, err := codec.Normalize(f)
		if err != nil {
			return Delegation{}, nil, wrapError(KindBlock, "DLG-BLK-005", "invalid fact", err)
		}
		p.Facts[i] = n.(map[string]any)
	}

	// Re-encoding must reproduce the signed bytes exactly; this also rejects
	// unknown payload fields.
	if canonical, err := codec.Marshal(p); err != nil || !bytes.Equal(canonical, b.Payload) {
		return Delegation{}, nil, wrapError(KindBlock, "DLG-BLK-006", "non-canonical delegation payload", err)
	}

	sig, err := decodeSignature(iss, b.Signature)
	if err != nil {
		return Delegation{}, nil, err
	}

	l, err := blockLink(raw)
	if err != nil {
		return Delegation{}, nil, wrapError(KindBlock, "DLG-BLK-007", "cannot address delegation block", err)
	}

	return Delegation{
		raw:      append([]byte(nil), raw...),
		link:     l,
		payload:  b.Payload,
		issuer:   iss,
		audience: aud,
		caps:     caps,
		exp:      p.Exp,
		nbf:      p.Nbf,
		nonce:    p.Nonce,
		facts:    p.Facts,
		sig:      sig,
	}, p.Proofs, nil
}

// decodeSignature validates the signature encoding and, for did:key issuers,
// that the algorithm matches the issuer key.
func decodeSignature(iss did.DID, raw []byte) (principal.Signature, error) {
	if len(raw) == 0 {
		return principal.Signature{}, newError(KindSignature, "DLG-SIG-001", "empty signature")
	}
	sig, err := principal.DecodeSignature(raw)
	if err != nil {
		return principal.Signature{}, wrapError(KindSignature, "DLG-SIG-002", "invalid signature encoding", err)
	}
	if want, ok := principal.SignatureCodeFor(iss); ok && sig.Code != want {
		return principal.Signature{}, newError(KindSignature, "DLG-SIG-003", "signature algorithm does not match issuer key")
	}
	return sig, nil
}

func quote(s string) string { return "\"" + s + "\"" }
