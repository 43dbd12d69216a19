package refhost

import (
	"fmt"
	"io"

	"fam.dev/fam/codec"
	"fam.dev/fam/did"
	"fam.dev/fam/link"
	"fam.dev/fam/store/bundle"
)

// History returns the snapshot links of bucket id, newest first, by
// following each snapshot's prev link through the block store.
func (h *Host) History(id did.DID) ([]link.Link, error) {
	h.mu.Lock()
	b, err := h.bucket(id)
	var root link.Link
	if err == nil {
		root = b.root
	}
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []link.Link
	seen := make(map[string]bool)
	for l := root; l.Defined(); {
		if seen[l.String()] {
			return nil, fmt.Errorf("refhost: snapshot cycle at %s", l)
		}
		seen[l.String()] = true
		out = append(out, l)

		data, err := h.blocks.Get(l)
		if err != nil {
			return nil, fmt.Errorf("refhost: snapshot %s: %w", l, err)
		}
		var snap snapshot
		if err := codec.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("refhost: snapshot %s: %w", l, err)
		}
		l = link.Undef
		if len(snap.Prev) > 0 {
			l = snap.Prev[0]
		}
	}
	return out, nil
}

// Export writes every bucket's snapshot history to w as a block bundle. The
// index labels each bucket DID with its current root.
func (h *Host) Export(w io.Writer) error {
	h.mu.Lock()
	ids := make([]did.DID, 0, len(h.buckets))
	for id := range h.buckets {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	labels := make(map[string]link.Link, len(ids))
	var links []link.Link
	for _, id := range ids {
		history, err := h.History(id)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			continue
		}
		labels[id.String()] = history[0]
		links = append(links, history...)
	}
	return bundle.Export(w, h.blocks, links, bundle.ExportOptions{Labels: labels, IncludeIndex: true})
}
