// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"sort"

	"github.com/cqlite/cqlite/internal/base"
	"github.com/cqlite/cqlite/internal/vint"
)

// TrieNodeKind discriminates the four node variants of spec §4.6's BTI
// trie: "{PayloadOnly, Single(transition_byte, child_offset, payload?),
// Sparse(n, transitions[], children[], payload?), Dense(first_byte,
// last_byte, children[], payload?)}".
type TrieNodeKind uint8

const (
	PayloadOnly TrieNodeKind = iota
	Single
	Sparse
	Dense
)

// noChild marks the absence of a child in a node's child-index slots.
const noChild int32 = -1

// Payload is the value a trie path terminates in: a partition's byte
// offset and size within Data.db (spec §4.6: "payload entries hold
// (data_offset, partition_size)").
type Payload struct {
	DataOffset int64
	Size       int64
}

// TrieNode is one node of the in-memory trie, addressed by its index into
// Trie.Nodes (an arena, per spec §9.2's "arena-allocated node pool
// addressed by indices, not per-node allocations" performance guidance).
type TrieNode struct {
	Kind    TrieNodeKind
	Payload *Payload // non-nil iff a key terminates at this node

	// Single
	TransitionByte byte
	Child          int32

	// Sparse: parallel Transitions[i] -> Children[i], ascending byte order.
	Transitions []byte
	Children    []int32

	// Dense: contiguous byte range [FirstByte, LastByte], DenseChildren
	// indexed by (b - FirstByte), noChild where absent.
	FirstByte     byte
	LastByte      byte
	DenseChildren []int32
}

// Trie is an arena of TrieNodes forming a byte-comparable index, realizing
// Partitions.db or Rows.db (spec §4.6).
type Trie struct {
	Nodes []TrieNode
	Root  int32
}

// TrieEntry pairs a byte-comparable key with its payload, the input to
// BuildTrie and the output of Trie.Scan.
type TrieEntry struct {
	Key     []byte
	Payload Payload
}

// denseThreshold is the fan-out count above which BuildTrie prefers a Dense
// node (contiguous byte-range array) over a Sparse node (explicit
// transition list); chosen the way the teacher picks block-format
// thresholds, as a size/locality trade-off rather than a protocol
// requirement.
const denseThreshold = 8

// BuildTrie constructs a trie over entries, which must be sorted ascending
// by Key (spec §4.6: partition/row keys are byte-comparable and file order
// is trusted, never re-derived).
func BuildTrie(entries []TrieEntry) *Trie {
	t := &Trie{}
	t.Root = t.build(entries, 0)
	return t
}

func (t *Trie) build(entries []TrieEntry, depth int) int32 {
	if len(entries) == 0 {
		return noChild
	}
	var payload *Payload
	rest := entries
	if len(entries[0].Key) == depth {
		p := entries[0].Payload
		payload = &p
		rest = entries[1:]
	}

	type group struct {
		b     byte
		items []TrieEntry
	}
	var groups []group
	for _, e := range rest {
		b := e.Key[depth]
		if len(groups) > 0 && groups[len(groups)-1].b == b {
			groups[len(groups)-1].items = append(groups[len(groups)-1].items, e)
		} else {
			groups = append(groups, group{b: b, items: []TrieEntry{e}})
		}
	}

	idx := int32(len(t.Nodes))
	t.Nodes = append(t.Nodes, TrieNode{}) // reserve slot
	n := TrieNode{Payload: payload}

	switch {
	case len(groups) == 0:
		n.Kind = PayloadOnly
	case len(groups) == 1:
		n.Kind = Single
		n.TransitionByte = groups[0].b
		n.Child = t.build(groups[0].items, depth+1)
	case len(groups) <= denseThreshold || int(groups[len(groups)-1].b)-int(groups[0].b)+1 > 4*len(groups):
		n.Kind = Sparse
		n.Transitions = make([]byte, len(groups))
		n.Children = make([]int32, len(groups))
		for i, g := range groups {
			n.Transitions[i] = g.b
			n.Children[i] = t.build(g.items, depth+1)
		}
	default:
		n.Kind = Dense
		n.FirstByte = groups[0].b
		n.LastByte = groups[len(groups)-1].b
		width := int(n.LastByte) - int(n.FirstByte) + 1
		n.DenseChildren = make([]int32, width)
		for i := range n.DenseChildren {
			n.DenseChildren[i] = noChild
		}
		for _, g := range groups {
			n.DenseChildren[int(g.b)-int(n.FirstByte)] = t.build(g.items, depth+1)
		}
	}
	t.Nodes[idx] = n
	return idx
}

// Get performs an exact-match lookup, returning (Payload, true) iff key
// terminates at a payload-bearing node (spec §4.6: "lookup by exact
// partition key returns (data_offset, size) or NotFound").
func (t *Trie) Get(key []byte) (Payload, bool) {
	if t.Root == noChild {
		return Payload{}, false
	}
	cur := t.Root
	depth := 0
	for {
		n := &t.Nodes[cur]
		if depth == len(key) {
			if n.Payload != nil {
				return *n.Payload, true
			}
			return Payload{}, false
		}
		b := key[depth]
		next := n.childFor(b)
		if next == noChild {
			return Payload{}, false
		}
		cur = next
		depth++
	}
}

func (n *TrieNode) childFor(b byte) int32 {
	switch n.Kind {
	case Single:
		if n.TransitionByte == b {
			return n.Child
		}
		return noChild
	case Sparse:
		i := sort.Search(len(n.Transitions), func(i int) bool { return n.Transitions[i] >= b })
		if i < len(n.Transitions) && n.Transitions[i] == b {
			return n.Children[i]
		}
		return noChild
	case Dense:
		if b < n.FirstByte || b > n.LastByte {
			return noChild
		}
		return n.DenseChildren[int(b)-int(n.FirstByte)]
	default:
		return noChild
	}
}

// Scan returns every entry whose key falls in [lo, hi] (either bound nil
// meaning unbounded), in ascending byte order, supporting spec §4.6's
// "ordered scan is natively supported ... by in-order trie walk."
func (t *Trie) Scan(lo, hi []byte) []TrieEntry {
	var out []TrieEntry
	if t.Root == noChild {
		return out
	}
	var walk func(idx int32, prefix []byte)
	walk = func(idx int32, prefix []byte) {
		if idx == noChild {
			return
		}
		n := &t.Nodes[idx]
		if n.Payload != nil {
			if (lo == nil || compareBytes(prefix, lo) >= 0) && (hi == nil || compareBytes(prefix, hi) <= 0) {
				key := make([]byte, len(prefix))
				copy(key, prefix)
				out = append(out, TrieEntry{Key: key, Payload: *n.Payload})
			}
		}
		switch n.Kind {
		case Single:
			walk(n.Child, append(prefix, n.TransitionByte))
		case Sparse:
			for i, b := range n.Transitions {
				walk(n.Children[i], append(prefix, b))
			}
		case Dense:
			for i, c := range n.DenseChildren {
				if c != noChild {
					walk(c, append(prefix, n.FirstByte+byte(i)))
				}
			}
		}
	}
	walk(t.Root, nil)
	return out
}

// EncodeTrie serializes t node-by-node in arena order. Child references are
// VInt node indices (shifted by one so zero means "absent"); this is a
// deliberate simplification of spec §4.6's page-aligned on-disk trie (an
// Open Question spec.md leaves to the implementer, see DESIGN.md) in favor
// of whole-file load-then-resolve, matching how this reader treats every
// index structure as fully materialized in memory.
func EncodeTrie(t *Trie) []byte {
	var dst []byte
	dst = vint.Encode(dst, int64(t.Root)+1)
	dst = vint.Encode(dst, int64(len(t.Nodes)))
	encChild := func(c int32) { dst = vint.Encode(dst, int64(c)+1) }
	for _, n := range t.Nodes {
		dst = append(dst, byte(n.Kind))
		if n.Payload != nil {
			dst = append(dst, 1)
			dst = vint.Encode(dst, n.Payload.DataOffset)
			dst = vint.Encode(dst, n.Payload.Size)
		} else {
			dst = append(dst, 0)
		}
		switch n.Kind {
		case Single:
			dst = append(dst, n.TransitionByte)
			encChild(n.Child)
		case Sparse:
			dst = vint.Encode(dst, int64(len(n.Transitions)))
			for i, b := range n.Transitions {
				dst = append(dst, b)
				encChild(n.Children[i])
			}
		case Dense:
			dst = append(dst, n.FirstByte, n.LastByte)
			for _, c := range n.DenseChildren {
				encChild(c)
			}
		}
	}
	return dst
}

// DecodeTrie is the inverse of EncodeTrie.
func DecodeTrie(b []byte) (*Trie, error) {
	pos := 0
	readVInt := func() (int64, error) {
		v, n, err := vint.Decode(b[pos:])
		if err != nil {
			return 0, err
		}
		pos += n
		return v, nil
	}
	rootPlus1, err := readVInt()
	if err != nil {
		return nil, err
	}
	count, err := readVInt()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, base.NewFormatError("trie", int64(pos), base.NegativeLength, "negative node count %d", count)
	}
	t := &Trie{Root: int32(rootPlus1) - 1, Nodes: make([]TrieNode, count)}
	decChild := func() (int32, error) {
		v, err := readVInt()
		if err != nil {
			return 0, err
		}
		return int32(v) - 1, nil
	}
	for i := int64(0); i < count; i++ {
		if pos >= len(b) {
			return nil, base.NewFormatError("trie", int64(pos), base.VintOverrun, "truncated node kind byte")
		}
		kind := TrieNodeKind(b[pos])
		pos++
		if pos >= len(b) {
			return nil, base.NewFormatError("trie", int64(pos), base.VintOverrun, "truncated payload-presence byte")
		}
		hasPayload := b[pos] != 0
		pos++
		n := TrieNode{Kind: kind}
		if hasPayload {
			off, err := readVInt()
			if err != nil {
				return nil, err
			}
			size, err := readVInt()
			if err != nil {
				return nil, err
			}
			n.Payload = &Payload{DataOffset: off, Size: size}
		}
		switch kind {
		case PayloadOnly:
		case Single:
			if pos >= len(b) {
				return nil, base.NewFormatError("trie", int64(pos), base.VintOverrun, "truncated transition byte")
			}
			n.TransitionByte = b[pos]
			pos++
			if n.Child, err = decChild(); err != nil {
				return nil, err
			}
		case Sparse:
			cnt, err := readVInt()
			if err != nil {
				return nil, err
			}
			n.Transitions = make([]byte, cnt)
			n.Children = make([]int32, cnt)
			for j := int64(0); j < cnt; j++ {
				if pos >= len(b) {
					return nil, base.NewFormatError("trie", int64(pos), base.VintOverrun, "truncated sparse transition")
				}
				n.Transitions[j] = b[pos]
				pos++
				if n.Children[j], err = decChild(); err != nil {
					return nil, err
				}
			}
		case Dense:
			if pos+2 > len(b) {
				return nil, base.NewFormatError("trie", int64(pos), base.VintOverrun, "truncated dense byte range")
			}
			n.FirstByte, n.LastByte = b[pos], b[pos+1]
			pos += 2
			width := int(n.LastByte) - int(n.FirstByte) + 1
			n.DenseChildren = make([]int32, width)
			for j := range n.DenseChildren {
				if n.DenseChildren[j], err = decChild(); err != nil {
					return nil, err
				}
			}
		default:
			return nil, base.NewFormatError("trie", int64(pos), base.MarshallerGrammar, "unknown trie node kind %d", kind)
		}
		t.Nodes[i] = n
	}
	return t, nil
}
