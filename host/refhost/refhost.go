// Package refhost is an in-process reference backend for the host contract.
//
// It keeps the agent identity, the registered bucket grants and each bucket's
// entries in memory, and writes every bucket revision as a dag-cbor snapshot
// block to a store.Store. It is what famhostd serves over gRPC and what the
// bridge tests run against.
package refhost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"fam.dev/fam/codec"
	"fam.dev/fam/delegation"
	"fam.dev/fam/did"
	"fam.dev/fam/host"
	"fam.dev/fam/internal/logging"
	"fam.dev/fam/link"
	"fam.dev/fam/principal"
	"fam.dev/fam/store"
)

// DefaultShareTTL is how long shared delegations stay valid.
const DefaultShareTTL = 30 * 24 * time.Hour

// Host is the reference backend. It is safe for concurrent use.
type Host struct {
	agent    principal.Signer
	blocks   store.Store
	clock    clock.Clock
	log      *slog.Logger
	shareTTL time.Duration
	openURL  func(string) error

	mu      sync.Mutex
	buckets map[did.DID]*bucket
}

var _ host.Host = (*Host)(nil)

type bucket struct {
	grant   delegation.Delegation
	root    link.Link
	entries map[string]link.Link
}

// snapshot is the block written for every bucket revision.
type snapshot struct {
	Entries []host.Entry `cbor:"entries"`
	Prev    []link.Link  `cbor:"prev,omitempty"`
}

// Option configures a Host.
type Option func(*Host)

// WithStore sets the block store for bucket snapshots. Defaults to memory.
func WithStore(s store.Store) Option { return func(h *Host) { h.blocks = s } }

// WithClock sets the clock used for share expirations.
func WithClock(c clock.Clock) Option { return func(h *Host) { h.clock = c } }

// WithLogger sets the logger. Failed calls are logged at error level.
func WithLogger(l *slog.Logger) Option { return func(h *Host) { h.log = l } }

// WithShareTTL sets the lifetime of delegations issued by ShareBucket.
func WithShareTTL(d time.Duration) Option { return func(h *Host) { h.shareTTL = d } }

// WithURLOpener sets the handler for OpenExternalURL.
func WithURLOpener(f func(string) error) Option { return func(h *Host) { h.openURL = f } }

// New returns a Host acting as agent.
func New(agent principal.Signer, opts ...Option) (*Host, error) {
	if agent == nil {
		return nil, errors.New("refhost: agent signer is required")
	}
	h := &Host{
		agent:    agent,
		clock:    clock.New(),
		shareTTL: DefaultShareTTL,
		buckets:  make(map[did.DID]*bucket),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.blocks == nil {
		h.blocks = store.NewMemory()
	}
	h.log = logging.Component(h.log, "refhost")
	return h, nil
}

// Agent returns the host's own DID.
func (h *Host) Agent() did.DID { return h.agent.DID() }

func (h *Host) ID(ctx context.Context) (codec.Payload, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return h.respond(host.CallID, h.agent.Encode(), nil)
}

func (h *Host) Buckets(ctx context.Context) (codec.Payload, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h.mu.Lock()
	out := make(map[string][]byte, len(h.buckets))
	var err error
	for id, b := range h.buckets {
		var archive []byte
		archive, err = delegation.Archive(b.grant)
		if err != nil {
			break
		}
		out[id.String()] = archive
	}
	h.mu.Unlock()
	return h.respond(host.CallBuckets, out, err)
}

func (h *Host) AddBucket(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var archive []byte
	if err := decodeRequest(req, &archive); err != nil {
		return h.fail(host.CallAddBucket, err)
	}
	proof, err := delegation.Extract(archive)
	if err != nil {
		return h.fail(host.CallAddBucket, fmt.Errorf("%w: %v", host.ErrInvalidRequest, err))
	}
	id, err := h.checkGrant(proof)
	if err != nil {
		return h.fail(host.CallAddBucket, err)
	}

	h.mu.Lock()
	b, ok := h.buckets[id]
	if !ok {
		b = &bucket{entries: make(map[string]link.Link)}
		if b.root, err = h.commit(b.entries, nil); err != nil {
			h.mu.Unlock()
			return h.fail(host.CallAddBucket, err)
		}
		h.buckets[id] = b
	}
	b.grant = proof
	h.mu.Unlock()

	h.log.Info("bucket added", "bucket", id.String())
	return h.respond(host.CallAddBucket, id.Bytes(), nil)
}

func (h *Host) RemoveBucket(ctx context.Context, req codec.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := decodeDID(req)
	if err != nil {
		_, err = h.fail(host.CallRemoveBucket, err)
		return err
	}
	h.mu.Lock()
	_, ok := h.buckets[id]
	delete(h.buckets, id)
	h.mu.Unlock()
	if !ok {
		_, err = h.fail(host.CallRemoveBucket, fmt.Errorf("%w: bucket %s", host.ErrNotFound, id))
		return err
	}
	return nil
}

func (h *Host) Root(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := decodeDID(req)
	if err != nil {
		return h.fail(host.CallRoot, err)
	}
	h.mu.Lock()
	b, err := h.bucket(id)
	var root link.Link
	if err == nil {
		root = b.root
	}
	h.mu.Unlock()
	if err != nil {
		return h.fail(host.CallRoot, err)
	}
	return h.respond(host.CallRoot, root.Binary(), nil)
}

func (h *Host) Put(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var r host.PutRequest
	if err := decodeRequest(req, &r); err != nil {
		return h.fail(host.CallPut, err)
	}
	id, err := did.Decode(r.ID)
	if err != nil {
		return h.fail(host.CallPut, fmt.Errorf("%w: %v", host.ErrInvalidRequest, err))
	}
	if !r.Value.Defined() {
		return h.fail(host.CallPut, fmt.Errorf("%w: undefined value", host.ErrInvalidRequest))
	}
	root, err := h.mutate(id, func(entries map[string]link.Link) error {
		entries[r.Key] = r.Value
		return nil
	})
	if err != nil {
		return h.fail(host.CallPut, err)
	}
	return h.respond(host.CallPut, root.Binary(), nil)
}

func (h *Host) Del(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var r host.DelRequest
	if err := decodeRequest(req, &r); err != nil {
		return h.fail(host.CallDel, err)
	}
	id, err := did.Decode(r.ID)
	if err != nil {
		return h.fail(host.CallDel, fmt.Errorf("%w: %v", host.ErrInvalidRequest, err))
	}
	root, err := h.mutate(id, func(entries map[string]link.Link) error {
		if _, ok := entries[r.Key]; !ok {
			return fmt.Errorf("%w: key %q", host.ErrNotFound, r.Key)
		}
		delete(entries, r.Key)
		return nil
	})
	if err != nil {
		return h.fail(host.CallDel, err)
	}
	return h.respond(host.CallDel, root.Binary(), nil)
}

func (h *Host) OpenExternalURL(ctx context.Context, url string) {
	if h.openURL == nil {
		h.log.Info("open external url", "url", url)
		return
	}
	if err := h.openURL(url); err != nil {
		h.log.Error("open external url failed", "url", url, "err", err)
	}
}

// mutate applies f to a copy of the bucket entries and commits a new root.
func (h *Host) mutate(id did.DID, f func(map[string]link.Link) error) (link.Link, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, err := h.bucket(id)
	if err != nil {
		return link.Undef, err
	}
	next := make(map[string]link.Link, len(b.entries)+1)
	for k, v := range b.entries {
		next[k] = v
	}
	if err := f(next); err != nil {
		return link.Undef, err
	}
	root, err := h.commit(next, []link.Link{b.root})
	if err != nil {
		return link.Undef, err
	}
	b.entries, b.root = next, root
	return root, nil
}

// commit writes a snapshot block for entries and returns its link.
func (h *Host) commit(entries map[string]link.Link, prev []link.Link) (link.Link, error) {
	snap := snapshot{Entries: sortedEntries(entries), Prev: prev}
	data, err := codec.Marshal(snap)
	if err != nil {
		return link.Undef, err
	}
	return h.blocks.Put(link.DagCBOR, data)
}

func (h *Host) bucket(id did.DID) (*bucket, error) {
	b, ok := h.buckets[id]
	if !ok {
		return nil, fmt.Errorf("%w: bucket %s", host.ErrNotFound, id)
	}
	return b, nil
}

func sortedEntries(entries map[string]link.Link) []host.Entry {
	out := make([]host.Entry, 0, len(entries))
	for k, v := range entries {
		out = append(out, host.Entry{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (h *Host) respond(call host.Call, v any, err error) (codec.Payload, error) {
	if err != nil {
		return h.fail(call, err)
	}
	p, err := codec.Encode(v)
	if err != nil {
		return h.fail(call, err)
	}
	return p, nil
}

func (h *Host) fail(call host.Call, err error) (codec.Payload, error) {
	h.log.Error("call failed", "call", string(call), "err", err)
	return "", err
}

func decodeRequest(req codec.Payload, v any) error {
	if err := codec.Decode(req, v); err != nil {
		return fmt.Errorf("%w: decoding params: %v", host.ErrInvalidRequest, err)
	}
	return nil
}

func decodeDID(req codec.Payload) (did.DID, error) {
	var b []byte
	if err := decodeRequest(req, &b); err != nil {
		return did.Undef, err
	}
	id, err := did.Decode(b)
	if err != nil {
		return did.Undef, fmt.Errorf("%w: %v", host.ErrInvalidRequest, err)
	}
	return id, nil
}
