package link

import (
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

func TestParse_FormatRoundTrip(t *testing.T) {
	l := SumRaw([]byte("hello"))
	if !l.Defined() {
		t.Fatalf("expected defined link")
	}
	parsed, err := Parse(l.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != l {
		t.Fatalf("round trip mismatch: %s vs %s", parsed, l)
	}
	if parsed.String() != l.String() {
		t.Fatalf("format not stable")
	}
}

func TestParse_NonCanonicalBaseFormatsCanonically(t *testing.T) {
	l := SumRaw([]byte("hello"))
	b58, err := l.Cid().StringOfBase('z')
	if err != nil {
		t.Fatalf("StringOfBase: %v", err)
	}
	parsed, err := Parse(b58)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.String() != l.String() {
		t.Fatalf("expected canonical base32, got %s", parsed)
	}
}

func TestParse_CIDv0(t *testing.T) {
	const v0 = "QmdfTbBqBPQ7VNxZEYEj14VmRuZBkqFbiwReogJgS1zR1n"
	l, err := Parse(v0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if l.Version() != 0 || l.Codec() != DagPB {
		t.Fatalf("unexpected prefix: v%d codec 0x%x", l.Version(), l.Codec())
	}
	if l.String() != v0 {
		t.Fatalf("CIDv0 must format as base58, got %s", l)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	l, err := Sum(DagCBOR, multihash.SHA3_256, []byte("block"))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	back, err := FromBinary(l.Binary())
	if err != nil {
		t.Fatalf("FromBinary: %v", err)
	}
	if !back.Equals(l) {
		t.Fatalf("binary round trip mismatch")
	}
	if back.HashCode() != multihash.SHA3_256 {
		t.Fatalf("unexpected hash code 0x%x", back.HashCode())
	}
}

func TestFromBinary_RejectsTrailingBytes(t *testing.T) {
	l := SumRaw([]byte("x"))
	_, err := FromBinary(append(l.Binary(), 0x01))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestParse_Rejects(t *testing.T) {
	truncatedDigest, err := multihash.Encode(make([]byte, 20), multihash.SHA2_256)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	shortSHA := cid.NewCidV1(cid.Raw, truncatedDigest).String()

	unknownCodec := cid.NewCidV1(0x9999, SumRaw([]byte("x")).Cid().Hash()).String()

	for name, text := range map[string]string{
		"empty":          "",
		"bad multibase":  "!notacid",
		"garbage base32": "bafy",
		"short digest":   shortSHA,
		"unknown codec":  unknownCodec,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(text); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	data := []byte("payload")
	l, err := Sum(Raw, multihash.SHA2_512, data)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if err := l.Verify(data); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := l.Verify([]byte("other")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected digest mismatch, got %v", err)
	}
}

func TestInline(t *testing.T) {
	l, err := Inline(Raw, []byte("tiny"))
	if err != nil {
		t.Fatalf("Inline: %v", err)
	}
	if string(l.Digest()) != "tiny" {
		t.Fatalf("identity digest should carry the data, got %q", l.Digest())
	}
	if _, err := Inline(Raw, make([]byte, 200)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected oversize identity to fail, got %v", err)
	}
}

func TestCBOR_Tag42RoundTrip(t *testing.T) {
	l := SumRaw([]byte("tagged"))
	b, err := cbor.Marshal(l)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// 0xd8 0x2a is tag(42).
	if len(b) < 2 || b[0] != 0xd8 || b[1] != 0x2a {
		t.Fatalf("expected tag 42 header, got %x", b[:2])
	}
	var back Link
	if err := cbor.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != l {
		t.Fatalf("tag round trip mismatch")
	}
}

func TestCBOR_UndefinedLinkFailsToEncode(t *testing.T) {
	if _, err := cbor.Marshal(Undef); err == nil {
		t.Fatalf("expected error encoding undefined link")
	}
}

func TestFromTag_RequiresIdentityPrefix(t *testing.T) {
	l := SumRaw([]byte("x"))
	if _, err := FromTag(l.Binary()); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid without 0x00 prefix, got %v", err)
	}
}
