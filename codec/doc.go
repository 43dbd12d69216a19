// Package codec is the single channel format for every request and response
// that crosses the host boundary.
//
// Values are encoded as CBOR with Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no indefinite-length
// items. Links are CBOR tag 42, as in DAG-CBOR. The same logical value always
// produces identical bytes, which is what lets signatures over encoded
// payloads survive a round trip.
//
// Decoding is strict. Truncated input, trailing bytes, indefinite lengths,
// duplicate map keys and unknown tags are errors, never silently coerced.
//
// Typed messages use struct tags, the way the rest of the module does:
//
//	data, err := codec.Marshal(request)
//	err = codec.Unmarshal(data, &response)
//
// The generic value tree (maps with string keys, lists, strings, byte
// strings, integers, floats, booleans, null and links) is available through
// EncodeValue and DecodeValue.
//
// The host channel only carries strings, so encoded bytes travel as a
// Payload: the multibase (base64url) text form of the CBOR bytes.
package codec
