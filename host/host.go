// Package host defines the invocation channel between the bridge and the
// backend that owns identities, buckets and content.
//
// Every call takes and returns a single codec.Payload: the text form of a
// deterministic CBOR value. The request and response shapes of each call are
// the types in wire.go. The bridge encodes requests and decodes responses; a
// Host implementation only ever sees payload text.
//
// Host implementations:
//   - refhost: an in-process reference backend.
//   - hostrpc: a gRPC client and server carrying the same payloads.
package host

import (
	"context"
	"errors"

	"fam.dev/fam/codec"
)

var (
	// ErrNotFound reports that a bucket or key does not exist.
	ErrNotFound = errors.New("host: not found")
	// ErrInvalidRequest reports a request the host could not accept.
	ErrInvalidRequest = errors.New("host: invalid request")
	// ErrUnavailable reports that the host could not be reached.
	ErrUnavailable = errors.New("host: unavailable")
)

// Host is the backend call contract. Each call is invoked at most once per
// logical operation.
type Host interface {
	// ID returns the local signer as an encoded byte string.
	ID(ctx context.Context) (codec.Payload, error)
	// Buckets returns a map of DID text to delegation archive bytes.
	Buckets(ctx context.Context) (codec.Payload, error)
	// AddBucket registers a delegation archive and returns the bucket DID bytes.
	AddBucket(ctx context.Context, req codec.Payload) (codec.Payload, error)
	// RemoveBucket forgets the bucket with the given DID bytes.
	RemoveBucket(ctx context.Context, req codec.Payload) error
	// Root returns the current root link bytes of a bucket.
	Root(ctx context.Context, req codec.Payload) (codec.Payload, error)
	// Entries lists a page of [key, link] pairs.
	Entries(ctx context.Context, req codec.Payload) (codec.Payload, error)
	// Put writes one entry and returns the new root link bytes.
	Put(ctx context.Context, req codec.Payload) (codec.Payload, error)
	// Del removes one entry and returns the new root link bytes.
	Del(ctx context.Context, req codec.Payload) (codec.Payload, error)
	// ShareBucket issues a delegation archive for an audience.
	ShareBucket(ctx context.Context, req codec.Payload) (codec.Payload, error)
	// OpenExternalURL asks the host to open url. There is no response.
	OpenExternalURL(ctx context.Context, url string)
}

// Call names one backend call.
type Call string

const (
	CallID              Call = "ID"
	CallBuckets         Call = "Buckets"
	CallAddBucket       Call = "AddBucket"
	CallRemoveBucket    Call = "RemoveBucket"
	CallRoot            Call = "Root"
	CallEntries         Call = "Entries"
	CallPut             Call = "Put"
	CallDel             Call = "Del"
	CallShareBucket     Call = "ShareBucket"
	CallOpenExternalURL Call = "OpenExternalURL"
)

// Idempotent reports whether repeating call has no additional effect.
// Only the pure reads qualify.
func Idempotent(call Call) bool {
	return call == CallRoot || call == CallEntries
}
