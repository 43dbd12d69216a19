package refhost

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fam.dev/fam/codec"
	"fam.dev/fam/delegation"
	"fam.dev/fam/did"
	"fam.dev/fam/host"
	"fam.dev/fam/link"
	"fam.dev/fam/principal"
	"fam.dev/fam/store"
)

func signer(t *testing.T, n byte) *principal.Ed25519Signer {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = n ^ byte(i*7)
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

func grant(t *testing.T, space principal.Signer, agent did.DID, abilities ...string) []byte {
	t.Helper()
	caps := make([]delegation.Capability, len(abilities))
	for i, a := range abilities {
		caps[i] = delegation.Capability{Can: a, With: space.DID().String()}
	}
	d, err := delegation.Delegate(space, agent, caps)
	require.NoError(t, err)
	archive, err := delegation.Archive(d)
	require.NoError(t, err)
	return archive
}

func newHost(t *testing.T, opts ...Option) (*Host, *principal.Ed25519Signer) {
	t.Helper()
	agent := signer(t, 1)
	h, err := New(agent, opts...)
	require.NoError(t, err)
	return h, agent
}

func addBucket(t *testing.T, h *Host, space principal.Signer) {
	t.Helper()
	_, err := h.AddBucket(context.Background(), payload(t, grant(t, space, h.Agent(), "*")))
	require.NoError(t, err)
}

func TestID(t *testing.T) {
	h, agent := newHost(t)
	p, err := h.ID(context.Background())
	require.NoError(t, err)

	var raw []byte
	require.NoError(t, codec.Decode(p, &raw))
	s, err := principal.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, agent.DID(), s.DID())
}

func TestAddBucketPolicy(t *testing.T) {
	h, _ := newHost(t)
	space := signer(t, 2)
	other := signer(t, 3)
	ctx := context.Background()

	d, err := delegation.Delegate(space, h.Agent(), []delegation.Capability{
		{Can: "clock/*", With: space.DID().String()},
		{Can: "space/*", With: other.DID().String()},
	})
	require.NoError(t, err)
	mixed, err := delegation.Archive(d)
	require.NoError(t, err)

	cases := map[string]struct {
		archive []byte
		ok      bool
	}{
		"star":             {grant(t, space, h.Agent(), "*"), true},
		"clock and upload": {grant(t, space, h.Agent(), "clock/advance", "space/blob/add"), true},
		"wildcards":        {grant(t, space, h.Agent(), "clock/*", "space/*"), true},
		"no upload":        {grant(t, space, h.Agent(), "clock/*"), false},
		"no clock":         {grant(t, space, h.Agent(), "space/blob/*"), false},
		"wrong audience":   {grant(t, space, other.DID(), "*"), false},
		"not an archive":   {[]byte("nope"), false},
		"mixed resources":  {mixed, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := h.AddBucket(ctx, payload(t, tc.archive))
			if !tc.ok {
				assert.ErrorIs(t, err, host.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			var raw []byte
			require.NoError(t, codec.Decode(p, &raw))
			id, err := did.Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, space.DID(), id)
		})
	}
}

func TestPutRootDel(t *testing.T) {
	blocks := store.NewMemory()
	h, _ := newHost(t, WithStore(blocks))
	space := signer(t, 2)
	addBucket(t, h, space)
	ctx := context.Background()
	id := space.DID().Bytes()

	rootOf := func() link.Link {
		p, err := h.Root(ctx, payload(t, id))
		require.NoError(t, err)
		var raw []byte
		require.NoError(t, codec.Decode(p, &raw))
		l, err := link.FromBinary(raw)
		require.NoError(t, err)
		return l
	}
	empty := rootOf()
	assert.True(t, blocks.Has(empty))

	value := link.SumRaw([]byte("v"))
	p, err := h.Put(ctx, payload(t, host.PutRequest{ID: id, Key: "a", Value: value}))
	require.NoError(t, err)
	var raw []byte
	require.NoError(t, codec.Decode(p, &raw))
	afterPut, err := link.FromBinary(raw)
	require.NoError(t, err)
	assert.True(t, afterPut.Equals(rootOf()))
	assert.False(t, afterPut.Equals(empty))

	snapBytes, err := blocks.Get(afterPut)
	require.NoError(t, err)
	var snap snapshot
	require.NoError(t, codec.Unmarshal(snapBytes, &snap))
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "a", snap.Entries[0].Key)
	require.Len(t, snap.Prev, 1)
	assert.True(t, snap.Prev[0].Equals(empty))

	_, err = h.Del(ctx, payload(t, host.DelRequest{ID: id, Key: "missing"}))
	assert.ErrorIs(t, err, host.ErrNotFound)

	_, err = h.Del(ctx, payload(t, host.DelRequest{ID: id, Key: "a"}))
	require.NoError(t, err)
	assert.False(t, rootOf().Equals(afterPut))
}

func TestUnknownBucket(t *testing.T) {
	h, _ := newHost(t)
	ctx := context.Background()
	id := signer(t, 9).DID().Bytes()

	_, err := h.Root(ctx, payload(t, id))
	assert.ErrorIs(t, err, host.ErrNotFound)
	_, err = h.Entries(ctx, payload(t, host.EntriesRequest{ID: id}))
	assert.ErrorIs(t, err, host.ErrNotFound)
	assert.ErrorIs(t, h.RemoveBucket(ctx, payload(t, id)), host.ErrNotFound)
	_, err = h.Root(ctx, codec.Payload("!garbage"))
	assert.ErrorIs(t, err, host.ErrInvalidRequest)
}

func entries(t *testing.T, h *Host, r host.EntriesRequest) []string {
	t.Helper()
	p, err := h.Entries(context.Background(), payload(t, r))
	require.NoError(t, err)
	var out []host.Entry
	require.NoError(t, codec.Decode(p, &out))
	keys := make([]string, len(out))
	for i, e := range out {
		keys[i] = e.Key
	}
	return keys
}

func ptr[T any](v T) *T { return &v }

func TestEntriesPaginationAndFilters(t *testing.T) {
	h, _ := newHost(t)
	space := signer(t, 2)
	addBucket(t, h, space)
	id := space.DID().Bytes()

	for i := 0; i < 12; i++ {
		_, err := h.Put(context.Background(), payload(t, host.PutRequest{
			ID: id, Key: fmt.Sprintf("k%02d", i), Value: link.SumRaw([]byte{byte(i)}),
		}))
		require.NoError(t, err)
	}

	assert.Len(t, entries(t, h, host.EntriesRequest{ID: id}), host.DefaultPageSize)
	assert.Equal(t, []string{"k10", "k11"}, entries(t, h, host.EntriesRequest{ID: id, Page: ptr[int64](1)}))
	assert.Empty(t, entries(t, h, host.EntriesRequest{ID: id, Page: ptr[int64](2)}))
	assert.Equal(t, []string{"k03", "k04", "k05"}, entries(t, h, host.EntriesRequest{ID: id, Page: ptr[int64](1), Size: ptr[int64](3)}))
	assert.Equal(t, []string{"k10", "k11"}, entries(t, h, host.EntriesRequest{ID: id, Prefix: ptr("k1")}))
	assert.Equal(t, []string{"k10", "k11"}, entries(t, h, host.EntriesRequest{ID: id, Prefix: ptr("k1"), LT: ptr("k00")}))
	assert.Equal(t, []string{"k02", "k03"}, entries(t, h, host.EntriesRequest{ID: id, GT: ptr("k01"), LTE: ptr("k03")}))
	assert.Equal(t, []string{"k01", "k02"}, entries(t, h, host.EntriesRequest{ID: id, GTE: ptr("k01"), LT: ptr("k03")}))

	_, err := h.Entries(context.Background(), payload(t, host.EntriesRequest{ID: id, Page: ptr[int64](-1)}))
	assert.ErrorIs(t, err, host.ErrInvalidRequest)
}

func TestShareBucket(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock := clock.NewMock()
	mock.Set(now)
	h, agent := newHost(t, WithClock(mock), WithShareTTL(time.Hour))
	space := signer(t, 2)
	friend := signer(t, 4)
	addBucket(t, h, space)

	p, err := h.ShareBucket(context.Background(), payload(t, host.ShareRequest{
		Bucket: space.DID().Bytes(), Audience: friend.DID().Bytes(),
	}))
	require.NoError(t, err)
	var archive []byte
	require.NoError(t, codec.Decode(p, &archive))
	d, err := delegation.Extract(archive)
	require.NoError(t, err)

	assert.Equal(t, agent.DID(), d.Issuer())
	assert.Equal(t, friend.DID(), d.Audience())
	exp, ok := d.Expiration()
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Hour), exp)
	require.Len(t, d.Proofs(), 1)
	assert.Equal(t, space.DID(), d.Proofs()[0].Issuer())
	assert.NotEmpty(t, d.Nonce())
	require.NoError(t, delegation.Verify(d, delegation.WithClock(mock)))

	_, err = h.ShareBucket(context.Background(), payload(t, host.ShareRequest{
		Bucket: friend.DID().Bytes(), Audience: space.DID().Bytes(),
	}))
	assert.ErrorIs(t, err, host.ErrNotFound)
}

func TestOpenExternalURL(t *testing.T) {
	var opened []string
	h, _ := newHost(t, WithURLOpener(func(u string) error {
		opened = append(opened, u)
		return nil
	}))
	h.OpenExternalURL(context.Background(), "https://example.com")
	assert.Equal(t, []string{"https://example.com"}, opened)
}

func TestCanceledContext(t *testing.T) {
	h, _ := newHost(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.ID(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
