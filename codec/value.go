package codec

import (
	"errors"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"

	"fam.dev/fam/link"
)

var errEmpty = errors.New("empty input")

// EncodeValue validates that v is a structured value tree and encodes it.
//
// Accepted types: nil, bool, all Go integer kinds (stored as int64),
// finite float32/float64, string, []byte, []any, map[string]any and link.Link.
func EncodeValue(v any) ([]byte, error) {
	n, err := Normalize(v)
	if err != nil {
		return nil, unsupported("encode value", err)
	}
	return Marshal(n)
}

// DecodeValue decodes data into a structured value tree. Integers decode as
// int64, links as link.Link.
func DecodeValue(data []byte) (any, error) {
	var v any
	if err := Unmarshal(data, &v); err != nil {
		return nil, err
	}
	n, err := Normalize(v)
	if err != nil {
		return nil, malformed("decode value", err)
	}
	return n, nil
}

// Normalize converts v into the value model: Go integer kinds become int64,
// float32 becomes float64 and raw CBOR tag 42 items become link.Link. NaN,
// the infinities and any other type or tag are errors. Nested containers are
// copied.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64, link.Link:
		return x, nil
	case []byte:
		return x, nil
	case float64:
		return floatValue(x)
	case float32:
		return floatValue(float64(x))
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return uintValue(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintValue(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case cbor.Tag:
		if x.Number != link.CBORTag {
			return nil, fmt.Errorf("unsupported CBOR tag %d", x.Number)
		}
		content, ok := x.Content.([]byte)
		if !ok {
			return nil, fmt.Errorf("tag %d content must be a byte string", link.CBORTag)
		}
		return link.FromTag(content)
	default:
		return nil, fmt.Errorf("type %T is not a structured value", v)
	}
}

func floatValue(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("float %v is not finite", f)
	}
	return f, nil
}

func uintValue(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return int64(u), nil
}
