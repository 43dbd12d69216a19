package bridge

import (
	"context"
	"fmt"

	"fam.dev/fam/codec"
	"fam.dev/fam/did"
	"fam.dev/fam/host"
	"fam.dev/fam/link"
)

// Entry is one key -> link pair of a bucket.
type Entry struct {
	Key   string
	Value link.Link
}

// EntriesOption narrows an Entries listing.
type EntriesOption func(*host.EntriesRequest) error

// WithPage selects the zero-based page. Negative pages are rejected.
func WithPage(page int) EntriesOption {
	return func(r *host.EntriesRequest) error {
		if page < 0 {
			return fmt.Errorf("page must not be negative, got %d", page)
		}
		p := int64(page)
		r.Page = &p
		return nil
	}
}

// WithSize sets the page size. It must be positive; the host default is
// host.DefaultPageSize.
func WithSize(size int) EntriesOption {
	return func(r *host.EntriesRequest) error {
		if size <= 0 {
			return fmt.Errorf("size must be positive, got %d", size)
		}
		s := int64(size)
		r.Size = &s
		return nil
	}
}

// WithPrefix restricts keys to those starting with prefix. A prefix overrides
// any range bound.
func WithPrefix(prefix string) EntriesOption {
	return func(r *host.EntriesRequest) error {
		r.Prefix = &prefix
		return nil
	}
}

// WithGreaterThan restricts keys to those sorting after key.
func WithGreaterThan(key string) EntriesOption {
	return func(r *host.EntriesRequest) error {
		r.GT = &key
		return nil
	}
}

// WithGreaterThanOrEqual restricts keys to key and those sorting after it.
func WithGreaterThanOrEqual(key string) EntriesOption {
	return func(r *host.EntriesRequest) error {
		r.GTE = &key
		return nil
	}
}

// WithLessThan restricts keys to those sorting before key.
func WithLessThan(key string) EntriesOption {
	return func(r *host.EntriesRequest) error {
		r.LT = &key
		return nil
	}
}

// WithLessThanOrEqual restricts keys to key and those sorting before it.
func WithLessThanOrEqual(key string) EntriesOption {
	return func(r *host.EntriesRequest) error {
		r.LTE = &key
		return nil
	}
}

// Root returns the current root of bucket id.
func (c *Client) Root(ctx context.Context, id did.DID) (link.Link, error) {
	req, err := didRequest(host.CallRoot, id)
	if err != nil {
		return link.Undef, c.failed(ctx, err)
	}
	res, err := c.invoke(ctx, host.CallRoot, func(ctx context.Context) (codec.Payload, error) {
		return c.host.Root(ctx, req)
	})
	if err != nil {
		return link.Undef, err
	}
	return c.decodeRoot(ctx, host.CallRoot, res)
}

// Entries lists one page of bucket id. An empty page is a valid result and
// means there are no further entries.
func (c *Client) Entries(ctx context.Context, id did.DID, opts ...EntriesOption) ([]Entry, error) {
	idb, err := didBytes(host.CallEntries, id)
	if err != nil {
		return nil, c.failed(ctx, err)
	}
	r := host.EntriesRequest{ID: idb}
	for _, opt := range opts {
		if err := opt(&r); err != nil {
			return nil, c.failed(ctx, encodeFailure(host.CallEntries, msgInvalidOption, err))
		}
	}
	req, err := request(host.CallEntries, r)
	if err != nil {
		return nil, c.failed(ctx, err)
	}
	res, err := c.invoke(ctx, host.CallEntries, func(ctx context.Context) (codec.Payload, error) {
		return c.host.Entries(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	var page []host.Entry
	if err := response(host.CallEntries, res, &page); err != nil {
		return nil, c.failed(ctx, err)
	}
	out := make([]Entry, len(page))
	seen := make(map[string]bool, len(page))
	for i, e := range page {
		if seen[e.Key] {
			return nil, c.failed(ctx, decodeFailure(host.CallEntries, msgDuplicateEntry, fmt.Errorf("key %q listed twice", e.Key)))
		}
		seen[e.Key] = true
		out[i] = Entry{Key: e.Key, Value: e.Value}
	}
	return out, nil
}

// Put writes key -> value in bucket id and returns the new root. The previous
// root is stale once Put succeeds.
func (c *Client) Put(ctx context.Context, id did.DID, key string, value link.Link) (link.Link, error) {
	idb, err := didBytes(host.CallPut, id)
	if err != nil {
		return link.Undef, c.failed(ctx, err)
	}
	if !value.Defined() {
		return link.Undef, c.failed(ctx, encodeFailure(host.CallPut, msgStringify, fmt.Errorf("%w: undefined value", link.ErrInvalid)))
	}
	req, err := request(host.CallPut, host.PutRequest{ID: idb, Key: key, Value: value})
	if err != nil {
		return link.Undef, c.failed(ctx, err)
	}
	res, err := c.invoke(ctx, host.CallPut, func(ctx context.Context) (codec.Payload, error) {
		return c.host.Put(ctx, req)
	})
	if err != nil {
		return link.Undef, err
	}
	return c.decodeRoot(ctx, host.CallPut, res)
}

// Del removes key from bucket id and returns the new root.
func (c *Client) Del(ctx context.Context, id did.DID, key string) (link.Link, error) {
	idb, err := didBytes(host.CallDel, id)
	if err != nil {
		return link.Undef, c.failed(ctx, err)
	}
	req, err := request(host.CallDel, host.DelRequest{ID: idb, Key: key})
	if err != nil {
		return link.Undef, c.failed(ctx, err)
	}
	res, err := c.invoke(ctx, host.CallDel, func(ctx context.Context) (codec.Payload, error) {
		return c.host.Del(ctx, req)
	})
	if err != nil {
		return link.Undef, err
	}
	return c.decodeRoot(ctx, host.CallDel, res)
}

func (c *Client) decodeRoot(ctx context.Context, op host.Call, res codec.Payload) (link.Link, error) {
	var raw []byte
	if err := response(op, res, &raw); err != nil {
		return link.Undef, c.failed(ctx, err)
	}
	l, err := link.FromBinary(raw)
	if err != nil {
		return link.Undef, c.failed(ctx, decodeFailure(op, msgRootCID, err))
	}
	return l, nil
}
