package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic Encoding,
// except that floats always take the 64-bit form DAG-CBOR requires.
var encMode cbor.EncMode

// decMode rejects anything that would make the decoded value ambiguous:
// duplicate keys, indefinite lengths and trailing data.
var decMode cbor.DecMode

func init() {
	var err error

	opts := cbor.CoreDetEncOptions()
	opts.ShortestFloat = cbor.ShortestFloatNone
	encMode, err = opts.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
		// Generic values only ever use string map keys.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, unsupported("marshal", err)
	}
	return b, nil
}

// Unmarshal decodes exactly one CBOR item from data into v.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return malformed("unmarshal", errEmpty)
	}
	if err := decMode.Unmarshal(data, v); err != nil {
		return malformed("unmarshal", err)
	}
	return nil
}

// Raw is an encoded CBOR item whose decoding is deferred.
type Raw = cbor.RawMessage

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) of data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
