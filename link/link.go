// Package link is the content-address codec: it parses, formats and validates
// hash-addressed pointers (CIDs) to byte payloads.
//
// A Link is an opaque reference. Nothing in this package dereferences it.
package link

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ErrInvalid is wrapped by every parse and validation failure.
var ErrInvalid = errors.New("link: invalid link")

// Payload codecs accepted in CIDv1 links.
const (
	Identity   uint64 = 0x00
	CBOR       uint64 = 0x51
	Raw        uint64 = 0x55
	DagPB      uint64 = 0x70
	DagCBOR    uint64 = 0x71
	Libp2pKey  uint64 = 0x72
	JSON       uint64 = 0x0200
	CAR        uint64 = 0x0202
	DagJSON    uint64 = 0x0129
	maxInlined        = 128
)

var codecNames = map[uint64]string{
	Identity:  "identity",
	CBOR:      "cbor",
	Raw:       "raw",
	DagPB:     "dag-pb",
	DagCBOR:   "dag-cbor",
	Libp2pKey: "libp2p-key",
	JSON:      "json",
	CAR:       "car",
	DagJSON:   "dag-json",
}

// digestSizes maps supported multihash codes to their digest length.
// -1 means any length up to maxInlined.
var digestSizes = map[uint64]int{
	multihash.IDENTITY: -1,
	multihash.SHA2_256: 32,
	multihash.SHA2_512: 64,
	multihash.SHA3_256: 32,
	multihash.BLAKE3:   32,
}

// Link is a validated CID. The zero value is undefined.
type Link struct {
	cid cid.Cid
}

// Undef is the undefined link.
var Undef = Link{}

// Parse parses the textual (multibase) form of a CID, or a base58 CIDv0.
func Parse(text string) (Link, error) {
	if text == "" {
		return Undef, fmt.Errorf("%w: empty string", ErrInvalid)
	}
	c, err := cid.Decode(text)
	if err != nil {
		return Undef, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	return FromCid(c)
}

// FromBinary decodes the binary form of a CID. Trailing bytes are rejected.
func FromBinary(b []byte) (Link, error) {
	if len(b) == 0 {
		return Undef, fmt.Errorf("%w: empty bytes", ErrInvalid)
	}
	c, err := cid.Cast(b)
	if err != nil {
		return Undef, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	return FromCid(c)
}

// FromCid validates c and wraps it.
func FromCid(c cid.Cid) (Link, error) {
	if !c.Defined() {
		return Undef, fmt.Errorf("%w: undefined cid", ErrInvalid)
	}
	if err := validate(c); err != nil {
		return Undef, err
	}
	return Link{cid: c}, nil
}

func validate(c cid.Cid) error {
	p := c.Prefix()
	switch p.Version {
	case 0:
		if p.Codec != DagPB || p.MhType != multihash.SHA2_256 {
			return fmt.Errorf("%w: malformed CIDv0", ErrInvalid)
		}
	case 1:
		if _, ok := codecNames[p.Codec]; !ok {
			return fmt.Errorf("%w: unsupported payload codec 0x%x", ErrInvalid, p.Codec)
		}
	default:
		return fmt.Errorf("%w: unsupported CID version %d", ErrInvalid, p.Version)
	}

	dmh, err := multihash.Decode(c.Hash())
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	want, ok := digestSizes[dmh.Code]
	if !ok {
		return fmt.Errorf("%w: unsupported hash algorithm 0x%x", ErrInvalid, dmh.Code)
	}
	if want < 0 {
		if len(dmh.Digest) > maxInlined {
			return fmt.Errorf("%w: identity digest exceeds %d bytes", ErrInvalid, maxInlined)
		}
		return nil
	}
	if len(dmh.Digest) != want {
		return fmt.Errorf("%w: %s digest must be %d bytes, got %d", ErrInvalid, dmh.Name, want, len(dmh.Digest))
	}
	return nil
}

// Sum hashes data with the given multihash algorithm and returns a CIDv1 with
// the given payload codec.
func Sum(codec, hash uint64, data []byte) (Link, error) {
	if _, ok := codecNames[codec]; !ok {
		return Undef, fmt.Errorf("%w: unsupported payload codec 0x%x", ErrInvalid, codec)
	}
	if _, ok := digestSizes[hash]; !ok {
		return Undef, fmt.Errorf("%w: unsupported hash algorithm 0x%x", ErrInvalid, hash)
	}
	if hash == multihash.IDENTITY && len(data) > maxInlined {
		return Undef, fmt.Errorf("%w: identity digest exceeds %d bytes", ErrInvalid, maxInlined)
	}
	sum, err := multihash.Sum(data, hash, -1)
	if err != nil {
		return Undef, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	return Link{cid: cid.NewCidV1(codec, sum)}, nil
}

// SumRaw returns a CIDv1 using the "raw" multicodec and a sha2-256 multihash.
func SumRaw(data []byte) Link {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return Undef
	}
	return Link{cid: cid.NewCidV1(cid.Raw, sum)}
}

// Inline returns an identity-hashed link that carries data directly.
func Inline(codec uint64, data []byte) (Link, error) {
	return Sum(codec, multihash.IDENTITY, data)
}

// Defined reports whether l refers to anything.
func (l Link) Defined() bool { return l.cid.Defined() }

// Cid returns the underlying CID.
func (l Link) Cid() cid.Cid { return l.cid }

// String formats l in its canonical text form: base32 for CIDv1, base58 for CIDv0.
func (l Link) String() string {
	if !l.Defined() {
		return ""
	}
	return l.cid.String()
}

// Binary returns the binary CID bytes.
func (l Link) Binary() []byte {
	if !l.Defined() {
		return nil
	}
	return l.cid.Bytes()
}

// Version is the CID version (0 or 1).
func (l Link) Version() uint64 { return l.cid.Prefix().Version }

// Codec is the payload multicodec.
func (l Link) Codec() uint64 { return l.cid.Prefix().Codec }

// HashCode is the multihash algorithm code.
func (l Link) HashCode() uint64 { return l.cid.Prefix().MhType }

// Digest returns the raw digest bytes.
func (l Link) Digest() []byte {
	dmh, err := multihash.Decode(l.cid.Hash())
	if err != nil {
		return nil
	}
	return dmh.Digest
}

// Equals reports whether both links encode to the same bytes.
func (l Link) Equals(o Link) bool { return l.cid.Equals(o.cid) }

// Verify re-derives the digest of data with l's algorithm and reports a
// mismatch as an error.
func (l Link) Verify(data []byte) error {
	if !l.Defined() {
		return fmt.Errorf("%w: undefined link", ErrInvalid)
	}
	got, err := l.cid.Prefix().Sum(data)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	if !bytes.Equal(got.Bytes(), l.cid.Bytes()) {
		return fmt.Errorf("%w: digest mismatch for %s", ErrInvalid, l)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (l Link) MarshalText() ([]byte, error) {
	if !l.Defined() {
		return nil, fmt.Errorf("%w: undefined link", ErrInvalid)
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Link) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
