package delegation

import (
	"fmt"
	"sort"

	"fam.dev/fam/codec"
	"fam.dev/fam/link"
)

// ArchiveVersion identifies the archive envelope format.
const ArchiveVersion = "fam-delegation-archive@1"

type envelope struct {
	Version string    `cbor:"version"`
	Root    link.Link `cbor:"root"`
	Blocks  [][]byte  `cbor:"blocks"`
}

// Archive serializes d and every transitive proof into a self-contained
// envelope. Blocks are ordered by link bytes and deduplicated.
func Archive(d Delegation) ([]byte, error) {
	if !d.Defined() {
		return nil, newError(KindArchive, "DLG-ARC-001", "cannot archive an undefined delegation")
	}
	blocks := make(map[string][]byte)
	if err := collect(d, blocks); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := envelope{Version: ArchiveVersion, Root: d.Link()}
	for _, k := range keys {
		env.Blocks = append(env.Blocks, blocks[k])
	}
	data, err := codec.Marshal(env)
	if err != nil {
		return nil, wrapError(KindArchive, "DLG-ARC-002", "cannot encode archive", err)
	}
	return data, nil
}

func collect(d Delegation, blocks map[string][]byte) error {
	if !d.Defined() {
		return newError(KindArchive, "DLG-ARC-003", "proof chain contains an undefined delegation")
	}
	key := string(d.Link().Binary())
	if _, ok := blocks[key]; ok {
		return nil
	}
	if err := d.Link().Verify(d.raw); err != nil {
		return wrapError(KindArchive, "DLG-ARC-004", fmt.Sprintf("delegation %s does not match its block", d.Link()), err)
	}
	blocks[key] = d.raw
	for _, p := range d.proofs {
		if err := collect(p, blocks); err != nil {
			return err
		}
	}
	return nil
}

// Extract parses an archive and returns its root delegation with every proof
// resolved. Structure is validated; signatures are not verified.
func Extract(data []byte) (Delegation, error) {
	var env envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return Delegation{}, wrapError(KindArchive, "DLG-ARC-005", "malformed archive", err)
	}
	if env.Version != ArchiveVersion {
		return Delegation{}, newError(KindArchive, "DLG-ARC-006", "unsupported archive version "+quote(env.Version))
	}
	if !env.Root.Defined() {
		return Delegation{}, newError(KindArchive, "DLG-ARC-007", "archive has no root")
	}

	blocks := make(map[string][]byte, len(env.Blocks))
	for _, raw := range env.Blocks {
		l, err := blockLink(raw)
		if err != nil {
			return Delegation{}, wrapError(KindBlock, "DLG-BLK-007", "cannot address archived block", err)
		}
		blocks[string(l.Binary())] = raw
	}

	x := extractor{blocks: blocks, done: make(map[string]Delegation)}
	return x.resolve(env.Root, nil)
}

type extractor struct {
	blocks map[string][]byte
	done   map[string]Delegation
}

// resolve decodes the block addressed by l and, recursively, its proofs.
// path holds the links being resolved above l.
func (x *extractor) resolve(l link.Link, path []link.Link) (Delegation, error) {
	key := string(l.Binary())
	if d, ok := x.done[key]; ok {
		return d, nil
	}
	for _, p := range path {
		if p.Equals(l) {
			return Delegation{}, newError(KindChain, "DLG-CHAIN-004", fmt.Sprintf("proof cycle at %s", l))
		}
	}
	raw, ok := x.blocks[key]
	if !ok {
		if len(path) == 0 {
			return Delegation{}, newError(KindChain, "DLG-CHAIN-000", fmt.Sprintf("archive is missing root block %s", l))
		}
		return Delegation{}, newError(KindChain, "DLG-CHAIN-001", fmt.Sprintf("truncated chain: missing proof %s", l))
	}
	d, prf, err := decodeBlock(raw)
	if err != nil {
		return Delegation{}, err
	}
	path = append(path, l)
	for _, pl := range prf {
		proof, err := x.resolve(pl, path)
		if err != nil {
			return Delegation{}, err
		}
		if proof.Audience() != d.Issuer() {
			return Delegation{}, newError(KindChain, "DLG-CHAIN-002",
				fmt.Sprintf("proof %s audience %s is not issuer %s", pl, proof.Audience(), d.Issuer()))
		}
		d.proofs = append(d.proofs, proof)
	}
	x.done[key] = d
	return d, nil
}
