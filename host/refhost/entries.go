package refhost

import (
	"context"
	"fmt"
	"strings"

	"fam.dev/fam/codec"
	"fam.dev/fam/did"
	"fam.dev/fam/host"
)

func (h *Host) Entries(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var r host.EntriesRequest
	if err := decodeRequest(req, &r); err != nil {
		return h.fail(host.CallEntries, err)
	}
	id, err := did.Decode(r.ID)
	if err != nil {
		return h.fail(host.CallEntries, fmt.Errorf("%w: %v", host.ErrInvalidRequest, err))
	}

	var page, size int64 = 0, host.DefaultPageSize
	if r.Page != nil {
		page = *r.Page
	}
	if r.Size != nil && *r.Size != 0 {
		size = *r.Size
	}
	if page < 0 || size < 0 {
		return h.fail(host.CallEntries, fmt.Errorf("%w: page %d size %d", host.ErrInvalidRequest, page, size))
	}

	h.mu.Lock()
	b, err := h.bucket(id)
	var all []host.Entry
	if err == nil {
		all = sortedEntries(b.entries)
	}
	h.mu.Unlock()
	if err != nil {
		return h.fail(host.CallEntries, err)
	}

	var matched []host.Entry
	for _, e := range all {
		if keep(r, e.Key) {
			matched = append(matched, e)
		}
	}

	out := []host.Entry{}
	start := page * size
	if start < int64(len(matched)) {
		end := start + size
		if end > int64(len(matched)) {
			end = int64(len(matched))
		}
		out = matched[start:end]
	}
	return h.respond(host.CallEntries, out, nil)
}

// keep applies the key filters. A prefix takes precedence over range
// bounds; gt wins over gte and lt wins over lte.
func keep(r host.EntriesRequest, key string) bool {
	if r.Prefix != nil {
		return strings.HasPrefix(key, *r.Prefix)
	}
	switch {
	case r.GT != nil:
		if key <= *r.GT {
			return false
		}
	case r.GTE != nil:
		if key < *r.GTE {
			return false
		}
	}
	switch {
	case r.LT != nil:
		if key >= *r.LT {
			return false
		}
	case r.LTE != nil:
		if key > *r.LTE {
			return false
		}
	}
	return true
}
