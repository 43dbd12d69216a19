// Package bundle moves blocks between stores as deterministic TAR archives.
//
// Layout:
//
//	blocks/<link>   one regular file per block
//	index.json      optional, non-authoritative listing and labels
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"fam.dev/fam/link"
	"fam.dev/fam/store"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

var epoch0 = time.Unix(0, 0).UTC()

type ExportOptions struct {
	// Labels is optional metadata mapping names to links, e.g. a bucket DID
	// to its root.
	Labels map[string]link.Link
	// IncludeIndex controls whether index.json is written.
	IncludeIndex bool
}

// Export writes a TAR bundle holding the blocks for links.
//
// Output bytes depend only on the set of links and the options: entries are
// sorted and TAR headers are normalized. Every block is verified against its
// link before it is written.
func Export(w io.Writer, s store.Store, links []link.Link, opts ExportOptions) error {
	if s == nil {
		return fmt.Errorf("bundle: nil store")
	}

	uniq := make(map[string]link.Link, len(links))
	for _, l := range links {
		if !l.Defined() {
			return store.ErrInvalidLink
		}
		uniq[l.String()] = l
	}
	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	blocks := make([]indexBlock, 0, len(names))
	for _, name := range names {
		l := uniq[name]
		b, err := s.Get(l)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := l.Verify(b); err != nil {
			_ = tw.Close()
			return store.ErrLinkMismatch
		}
		if err := writeFile(tw, "blocks/"+name, b); err != nil {
			_ = tw.Close()
			return err
		}
		blocks = append(blocks, indexBlock{Link: name, Size: len(b)})
	}

	if opts.IncludeIndex {
		idx := index{Version: FormatVersion, Blocks: blocks}
		labels := make([]string, 0, len(opts.Labels))
		for k := range opts.Labels {
			labels = append(labels, k)
		}
		sort.Strings(labels)
		for _, k := range labels {
			v := opts.Labels[k]
			if k == "" {
				_ = tw.Close()
				return fmt.Errorf("bundle: empty label key")
			}
			if !v.Defined() {
				_ = tw.Close()
				return store.ErrInvalidLink
			}
			idx.Labels = append(idx.Labels, indexLabel{Name: k, Link: v.String()})
		}
		b, err := json.Marshal(idx)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, "index.json", append(b, '\n')); err != nil {
			_ = tw.Close()
			return err
		}
	}
	return tw.Close()
}

type ImportOptions struct {
	// IgnoreUnknown skips unknown TAR entries instead of failing.
	IgnoreUnknown bool
}

// Import reads a bundle from r into s, failing on unknown entries.
func Import(r io.Reader, s store.Store) (int, error) {
	return ImportWithOptions(r, s, ImportOptions{})
}

// ImportWithOptions reads a bundle from r into s and returns the number of
// blocks imported. Each block must match the link in its file name.
func ImportWithOptions(r io.Reader, s store.Store, opts ImportOptions) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("bundle: nil store")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return len(seen), nil
		}
		if err != nil {
			return len(seen), err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return len(seen), fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return len(seen), fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}
		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}
		if !strings.HasPrefix(name, "blocks/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return len(seen), fmt.Errorf("bundle: unknown entry: %s", name)
		}

		l, err := link.Parse(strings.TrimPrefix(name, "blocks/"))
		if err != nil {
			return len(seen), store.ErrInvalidLink
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return len(seen), err
		}
		if err := l.Verify(data); err != nil {
			return len(seen), store.ErrLinkMismatch
		}
		if _, ok := seen[l.String()]; ok {
			return len(seen), fmt.Errorf("bundle: duplicate block entry: %s", l)
		}

		got, err := s.Put(l.Codec(), data)
		if err != nil {
			return len(seen), err
		}
		if !got.Equals(l) {
			return len(seen), store.ErrLinkMismatch
		}
		seen[l.String()] = struct{}{}
	}
}

type index struct {
	Version int          `json:"version"`
	Blocks  []indexBlock `json:"blocks"`
	Labels  []indexLabel `json:"labels,omitempty"`
}

type indexBlock struct {
	Link string `json:"link"`
	Size int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
