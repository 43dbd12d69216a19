package bridge

import (
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fam.dev/fam/codec"
	"fam.dev/fam/delegation"
	"fam.dev/fam/did"
	"fam.dev/fam/host"
	"fam.dev/fam/host/refhost"
	"fam.dev/fam/link"
	"fam.dev/fam/principal"
)

// stubHost answers every call with a canned payload or error.
type stubHost struct {
	mu    sync.Mutex
	calls map[host.Call]int
	res   map[host.Call]codec.Payload
	err   error
	urls  []string
}

func newStub() *stubHost {
	return &stubHost{calls: map[host.Call]int{}, res: map[host.Call]codec.Payload{}}
}

func (s *stubHost) call(op host.Call) (codec.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if s.err != nil {
		return "", s.err
	}
	return s.res[op], nil
}

func (s *stubHost) count(op host.Call) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *stubHost) ID(context.Context) (codec.Payload, error)      { return s.call(host.CallID) }
func (s *stubHost) Buckets(context.Context) (codec.Payload, error) { return s.call(host.CallBuckets) }
func (s *stubHost) AddBucket(_ context.Context, _ codec.Payload) (codec.Payload, error) {
	return s.call(host.CallAddBucket)
}
func (s *stubHost) RemoveBucket(_ context.Context, _ codec.Payload) error {
	_, err := s.call(host.CallRemoveBucket)
	return err
}
func (s *stubHost) Root(_ context.Context, _ codec.Payload) (codec.Payload, error) {
	return s.call(host.CallRoot)
}
func (s *stubHost) Entries(_ context.Context, _ codec.Payload) (codec.Payload, error) {
	return s.call(host.CallEntries)
}
func (s *stubHost) Put(_ context.Context, _ codec.Payload) (codec.Payload, error) {
	return s.call(host.CallPut)
}
func (s *stubHost) Del(_ context.Context, _ codec.Payload) (codec.Payload, error) {
	return s.call(host.CallDel)
}
func (s *stubHost) ShareBucket(_ context.Context, _ codec.Payload) (codec.Payload, error) {
	return s.call(host.CallShareBucket)
}
func (s *stubHost) OpenExternalURL(_ context.Context, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, url)
}

func signer(t *testing.T, n byte) *principal.Ed25519Signer {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = n + byte(i)
	}
	s, err := principal.Ed25519FromSeed(seed)
	require.NoError(t, err)
	return s
}

func payload(t *testing.T, v any) codec.Payload {
	t.Helper()
	p, err := codec.Encode(v)
	require.NoError(t, err)
	return p
}

func grant(t *testing.T, space principal.Signer, agent did.DID) delegation.Delegation {
	t.Helper()
	d, err := delegation.Delegate(space, agent, []delegation.Capability{{Can: "*", With: space.DID().String()}})
	require.NoError(t, err)
	return d
}

func rawLink(s string) link.Link { return link.SumRaw([]byte(s)) }

func requireFailure(t *testing.T, err error, kind Kind, op host.Call, msg string) *Failure {
	t.Helper()
	require.Error(t, err)
	var f *Failure
	require.True(t, errors.As(err, &f), "not a *Failure: %v", err)
	assert.Equal(t, kind, f.Kind)
	assert.Equal(t, op, f.Op)
	assert.Equal(t, msg, f.Message)
	return f
}

func TestClientAgainstReferenceHost(t *testing.T) {
	ctx := context.Background()
	agent := signer(t, 1)
	space := signer(t, 2)
	friend := signer(t, 3)
	h, err := refhost.New(agent)
	require.NoError(t, err)
	c := New(h)

	id, err := c.ID(ctx)
	require.NoError(t, err)
	assert.Equal(t, agent.DID(), id.DID())

	dir, err := c.Buckets(ctx)
	require.NoError(t, err)
	assert.Zero(t, dir.Len())

	proof := grant(t, space, agent.DID())
	bucket, err := c.AddBucket(ctx, proof)
	require.NoError(t, err)
	assert.Equal(t, space.DID(), bucket)

	dir, err = c.Buckets(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, dir.Len())
	got, ok := dir.Get(bucket)
	require.True(t, ok)
	assert.True(t, got.Equal(proof))
	assert.Equal(t, []did.DID{bucket}, dir.IDs())

	empty, err := c.Root(ctx, bucket)
	require.NoError(t, err)

	seen := map[string]bool{empty.String(): true}
	var root link.Link
	for _, k := range []string{"b", "a", "c"} {
		root, err = c.Put(ctx, bucket, k, rawLink(k))
		require.NoError(t, err)
		assert.False(t, seen[root.String()], "root reused after put %q", k)
		seen[root.String()] = true
	}
	current, err := c.Root(ctx, bucket)
	require.NoError(t, err)
	assert.True(t, current.Equals(root))

	first, err := c.Entries(ctx, bucket, WithSize(2))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"a", rawLink("a")}, {"b", rawLink("b")}}, first)
	second, err := c.Entries(ctx, bucket, WithSize(2), WithPage(1))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"c", rawLink("c")}}, second)

	root, err = c.Del(ctx, bucket, "b")
	require.NoError(t, err)
	assert.False(t, seen[root.String()])
	all, err := c.Entries(ctx, bucket)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	shared, err := c.ShareBucket(ctx, bucket, friend.DID())
	require.NoError(t, err)
	assert.Equal(t, agent.DID(), shared.Issuer())
	assert.Equal(t, friend.DID(), shared.Audience())
	require.Len(t, shared.Proofs(), 1)
	assert.True(t, shared.Proofs()[0].Equal(proof))
	require.NoError(t, delegation.Verify(shared))

	require.NoError(t, c.RemoveBucket(ctx, bucket))
	dir, err = c.Buckets(ctx)
	require.NoError(t, err)
	assert.Zero(t, dir.Len())

	err = c.RemoveBucket(ctx, bucket)
	f := requireFailure(t, err, InvocationFailure, host.CallRemoveBucket, msgInvoke)
	assert.ErrorIs(t, f, host.ErrNotFound)
}

func TestEntriesPaginationBoundary(t *testing.T) {
	ctx := context.Background()
	agent := signer(t, 1)
	space := signer(t, 2)
	h, err := refhost.New(agent)
	require.NoError(t, err)
	c := New(h)
	bucket, err := c.AddBucket(ctx, grant(t, space, agent.DID()))
	require.NoError(t, err)
	for _, k := range []string{"x", "y", "z"} {
		_, err := c.Put(ctx, bucket, k, rawLink(k))
		require.NoError(t, err)
	}

	page, err := c.Entries(ctx, bucket, WithPage(0), WithSize(10))
	require.NoError(t, err)
	assert.Len(t, page, 3)

	page, err = c.Entries(ctx, bucket, WithPage(1), WithSize(10))
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = c.Entries(ctx, bucket, WithPage(1))
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = c.Entries(ctx, bucket, WithSize(3))
	require.NoError(t, err)
	assert.Len(t, page, 3)

	page, err = c.Entries(ctx, bucket, WithSize(3), WithPage(1))
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = c.Entries(ctx, bucket, WithPrefix("y"))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"y", rawLink("y")}}, page)

	page, err = c.Entries(ctx, bucket, WithGreaterThan("x"), WithLessThanOrEqual("z"))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"y", rawLink("y")}, {"z", rawLink("z")}}, page)

	page, err = c.Entries(ctx, bucket, WithGreaterThanOrEqual("x"), WithLessThan("y"))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"x", rawLink("x")}}, page)
}

func TestEntriesTruncatedResponse(t *testing.T) {
	s := newStub()
	valid := payload(t, []host.Entry{{Key: "a", Value: rawLink("a")}})
	b, err := valid.Bytes()
	require.NoError(t, err)
	s.res[host.CallEntries] = codec.FromBytes(b[:len(b)-1])

	_, err = New(s).Entries(context.Background(), signer(t, 2).DID())
	f := requireFailure(t, err, DecodeFailure, host.CallEntries, msgParse)
	assert.ErrorIs(t, f.Cause, codec.ErrMalformed)
	assert.False(t, Retryable(err))
}

func TestEntriesDuplicateKey(t *testing.T) {
	s := newStub()
	s.res[host.CallEntries] = payload(t, []host.Entry{
		{Key: "a", Value: rawLink("1")},
		{Key: "a", Value: rawLink("2")},
	})
	_, err := New(s).Entries(context.Background(), signer(t, 2).DID())
	requireFailure(t, err, DecodeFailure, host.CallEntries, msgDuplicateEntry)
}

func TestBucketsFailFast(t *testing.T) {
	ctx := context.Background()
	agent := signer(t, 1)
	good := grant(t, signer(t, 2), agent.DID())
	archive, err := delegation.Archive(good)
	require.NoError(t, err)
	key := signer(t, 2).DID().String()
	other := signer(t, 3).DID().String()

	cases := map[string]struct {
		res map[string][]byte
		msg string
	}{
		"bad archive": {map[string][]byte{key: archive, other: []byte("junk")}, msgExtract},
		"bad did":     {map[string][]byte{key: archive, "not-a-did": archive}, msgBucketDID},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := newStub()
			s.res[host.CallBuckets] = payload(t, tc.res)
			dir, err := New(s).Buckets(ctx)
			requireFailure(t, err, DecodeFailure, host.CallBuckets, tc.msg)
			assert.Zero(t, dir.Len())
		})
	}
}

func TestDecodeFailures(t *testing.T) {
	ctx := context.Background()
	s := newStub()
	s.res[host.CallID] = payload(t, []byte{1, 2, 3})
	s.res[host.CallRoot] = payload(t, []byte("not a cid"))
	s.res[host.CallAddBucket] = payload(t, []byte{0xff})
	s.res[host.CallShareBucket] = payload(t, []byte("nope"))
	s.res[host.CallPut] = "!garbage"
	c := New(s)
	bucket := signer(t, 2).DID()

	_, err := c.ID(ctx)
	requireFailure(t, err, DecodeFailure, host.CallID, msgPrivateKey)

	_, err = c.Root(ctx, bucket)
	requireFailure(t, err, DecodeFailure, host.CallRoot, msgRootCID)

	_, err = c.AddBucket(ctx, grant(t, signer(t, 2), signer(t, 1).DID()))
	requireFailure(t, err, DecodeFailure, host.CallAddBucket, msgBucketDID)

	_, err = c.ShareBucket(ctx, bucket, signer(t, 3).DID())
	requireFailure(t, err, DecodeFailure, host.CallShareBucket, msgExtract)

	_, err = c.Put(ctx, bucket, "k", rawLink("v"))
	requireFailure(t, err, DecodeFailure, host.CallPut, msgParse)
}

func TestInvocationFailure(t *testing.T) {
	ctx := context.Background()
	s := newStub()
	s.err = host.ErrUnavailable
	c := New(s)
	bucket := signer(t, 2).DID()

	_, err := c.Root(ctx, bucket)
	requireFailure(t, err, InvocationFailure, host.CallRoot, msgInvoke)
	assert.ErrorIs(t, err, host.ErrUnavailable)
	assert.True(t, Retryable(err))

	_, err = c.Entries(ctx, bucket)
	assert.True(t, Retryable(err))

	_, err = c.Put(ctx, bucket, "k", rawLink("v"))
	requireFailure(t, err, InvocationFailure, host.CallPut, msgInvoke)
	assert.False(t, Retryable(err))
	assert.Equal(t, 1, s.count(host.CallPut))

	_, err = c.ID(ctx)
	assert.True(t, IsKind(err, InvocationFailure))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestEncodeFailureSkipsHost(t *testing.T) {
	ctx := context.Background()
	s := newStub()
	c := New(s)
	bucket := signer(t, 2).DID()

	_, err := c.Root(ctx, did.Undef)
	requireFailure(t, err, EncodeFailure, host.CallRoot, msgStringify)

	_, err = c.Entries(ctx, bucket, WithSize(0))
	requireFailure(t, err, EncodeFailure, host.CallEntries, msgInvalidOption)
	_, err = c.Entries(ctx, bucket, WithPage(-1))
	requireFailure(t, err, EncodeFailure, host.CallEntries, msgInvalidOption)

	_, err = c.Put(ctx, bucket, "k", link.Undef)
	requireFailure(t, err, EncodeFailure, host.CallPut, msgStringify)

	_, err = c.ShareBucket(ctx, bucket, did.Undef)
	requireFailure(t, err, EncodeFailure, host.CallShareBucket, msgStringify)

	_, err = c.AddBucket(ctx, delegation.Delegation{})
	requireFailure(t, err, EncodeFailure, host.CallAddBucket, msgArchive)

	err = c.RemoveBucket(ctx, did.Undef)
	requireFailure(t, err, EncodeFailure, host.CallRemoveBucket, msgStringify)

	for _, op := range []host.Call{host.CallRoot, host.CallEntries, host.CallPut, host.CallShareBucket, host.CallAddBucket, host.CallRemoveBucket} {
		assert.Zero(t, s.count(op), "host called for %s", op)
	}
}

func TestOpenExternalURL(t *testing.T) {
	s := newStub()
	New(s).OpenExternalURL(context.Background(), "https://example.com")
	assert.Equal(t, []string{"https://example.com"}, s.urls)
}

func TestFailureError(t *testing.T) {
	cause := errors.New("boom")
	err := invocationFailure(host.CallRoot, cause)
	assert.Equal(t, "InvocationFailure: Root: failed to invoke API: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestFuture(t *testing.T) {
	ctx := context.Background()
	s := newStub()
	c := New(s)
	bucket := signer(t, 2).DID()
	s.res[host.CallRoot] = payload(t, rawLink("root").Binary())

	f := Go(ctx, func(ctx context.Context) (link.Link, error) { return c.Root(ctx, bucket) })
	root, err := f.Wait(ctx)
	require.NoError(t, err)
	assert.True(t, root.Equals(rawLink("root")))

	release := make(chan struct{})
	slow := Go(ctx, func(context.Context) (int, error) {
		<-release
		return 7, nil
	})
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = slow.Wait(canceled)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	<-slow.Done()
	n, err := slow.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
