package host

import "fam.dev/fam/link"

// DefaultPageSize is used by hosts when an Entries request has no size.
const DefaultPageSize = 10

// EntriesRequest selects one page of a bucket listing. Keys are ordered
// lexicographically. When Prefix is set the range bounds are ignored.
type EntriesRequest struct {
	ID     []byte  `cbor:"id"`
	Page   *int64  `cbor:"page,omitempty"`
	Size   *int64  `cbor:"size,omitempty"`
	Prefix *string `cbor:"prefix,omitempty"`
	GT     *string `cbor:"gt,omitempty"`
	GTE    *string `cbor:"gte,omitempty"`
	LT     *string `cbor:"lt,omitempty"`
	LTE    *string `cbor:"lte,omitempty"`
}

// Entry is one [key, link] pair of an Entries response.
type Entry struct {
	_     struct{} `cbor:",toarray"`
	Key   string
	Value link.Link
}

// PutRequest writes Key -> Value in bucket ID.
type PutRequest struct {
	ID    []byte    `cbor:"id"`
	Key   string    `cbor:"key"`
	Value link.Link `cbor:"value"`
}

// DelRequest removes Key from bucket ID.
type DelRequest struct {
	ID  []byte `cbor:"id"`
	Key string `cbor:"key"`
}

// ShareRequest asks for a delegation on Bucket to Audience. Both are DID bytes.
type ShareRequest struct {
	Bucket   []byte `cbor:"bucket"`
	Audience []byte `cbor:"audience"`
}
