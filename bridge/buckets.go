package bridge

import (
	"context"
	"fmt"
	"sort"

	"fam.dev/fam/codec"
	"fam.dev/fam/delegation"
	"fam.dev/fam/did"
	"fam.dev/fam/host"
)

// Bucket is a namespace and the delegation proving access to it.
type Bucket struct {
	ID    did.DID
	Proof delegation.Delegation
}

// Directory is the set of buckets the client may use, ordered by DID text.
// Keys are unique. A Directory is rebuilt on every fetch and never mutated.
type Directory struct {
	buckets []Bucket
}

// Len returns the number of buckets.
func (d Directory) Len() int { return len(d.buckets) }

// All returns the buckets in DID order.
func (d Directory) All() []Bucket { return append([]Bucket(nil), d.buckets...) }

// IDs returns the bucket DIDs in order.
func (d Directory) IDs() []did.DID {
	out := make([]did.DID, len(d.buckets))
	for i, b := range d.buckets {
		out[i] = b.ID
	}
	return out
}

// Get returns the proof for id.
func (d Directory) Get(id did.DID) (delegation.Delegation, bool) {
	key := id.String()
	i := sort.Search(len(d.buckets), func(i int) bool { return d.buckets[i].ID.String() >= key })
	if i < len(d.buckets) && d.buckets[i].ID == id {
		return d.buckets[i].Proof, true
	}
	return delegation.Delegation{}, false
}

// Buckets fetches the bucket directory. If any entry fails to decode the
// whole call fails; no partial directory is returned.
func (c *Client) Buckets(ctx context.Context) (Directory, error) {
	res, err := c.invoke(ctx, host.CallBuckets, c.host.Buckets)
	if err != nil {
		return Directory{}, err
	}
	var raw map[string][]byte
	if err := response(host.CallBuckets, res, &raw); err != nil {
		return Directory{}, c.failed(ctx, err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buckets := make([]Bucket, 0, len(raw))
	seen := make(map[did.DID]bool, len(raw))
	for _, k := range keys {
		id, err := did.Parse(k)
		if err != nil {
			return Directory{}, c.failed(ctx, decodeFailure(host.CallBuckets, msgBucketDID, err))
		}
		if seen[id] {
			return Directory{}, c.failed(ctx, decodeFailure(host.CallBuckets, msgDuplicateEntry, fmt.Errorf("bucket %s listed twice", id)))
		}
		seen[id] = true
		proof, err := delegation.Extract(raw[k])
		if err != nil {
			return Directory{}, c.failed(ctx, decodeFailure(host.CallBuckets, msgExtract, err))
		}
		buckets = append(buckets, Bucket{ID: id, Proof: proof})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].ID.String() < buckets[j].ID.String() })
	return Directory{buckets: buckets}, nil
}

// AddBucket registers proof with the host and returns the bucket DID.
func (c *Client) AddBucket(ctx context.Context, proof delegation.Delegation) (did.DID, error) {
	archive, err := delegation.Archive(proof)
	if err != nil {
		return did.Undef, c.failed(ctx, encodeFailure(host.CallAddBucket, msgArchive, err))
	}
	req, err := request(host.CallAddBucket, archive)
	if err != nil {
		return did.Undef, c.failed(ctx, err)
	}
	res, err := c.invoke(ctx, host.CallAddBucket, func(ctx context.Context) (codec.Payload, error) {
		return c.host.AddBucket(ctx, req)
	})
	if err != nil {
		return did.Undef, err
	}
	return c.decodeDID(ctx, host.CallAddBucket, res)
}

// RemoveBucket asks the host to forget bucket id.
func (c *Client) RemoveBucket(ctx context.Context, id did.DID) error {
	req, err := didRequest(host.CallRemoveBucket, id)
	if err != nil {
		return c.failed(ctx, err)
	}
	_, err = c.invoke(ctx, host.CallRemoveBucket, func(ctx context.Context) (codec.Payload, error) {
		return "", c.host.RemoveBucket(ctx, req)
	})
	return err
}

func (c *Client) decodeDID(ctx context.Context, op host.Call, res codec.Payload) (did.DID, error) {
	var raw []byte
	if err := response(op, res, &raw); err != nil {
		return did.Undef, c.failed(ctx, err)
	}
	id, err := did.Decode(raw)
	if err != nil {
		return did.Undef, c.failed(ctx, decodeFailure(op, msgBucketDID, err))
	}
	return id, nil
}

// didBytes returns the binary form of id, or an EncodeFailure when id is
// undefined.
func didBytes(op host.Call, id did.DID) ([]byte, error) {
	if !id.Defined() {
		return nil, encodeFailure(op, msgStringify, fmt.Errorf("%w: undefined DID", did.ErrInvalid))
	}
	return id.Bytes(), nil
}

func didRequest(op host.Call, id did.DID) (codec.Payload, error) {
	b, err := didBytes(op, id)
	if err != nil {
		return "", err
	}
	return request(op, b)
}
