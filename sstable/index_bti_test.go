// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTrieEntries(keys ...string) []TrieEntry {
	entries := make([]TrieEntry, len(keys))
	for i, k := range keys {
		entries[i] = TrieEntry{Key: []byte(k), Payload: Payload{DataOffset: int64(i * 10), Size: 5}}
	}
	sort.Slice(entries, func(i, j int) bool { return compareBytes(entries[i].Key, entries[j].Key) < 0 })
	return entries
}

func TestTrieGetExactMatch(t *testing.T) {
	entries := buildTrieEntries("apple", "apricot", "banana", "blueberry", "cherry")
	trie := BuildTrie(entries)
	for _, e := range entries {
		got, ok := trie.Get(e.Key)
		require.True(t, ok, "key %q", e.Key)
		require.Equal(t, e.Payload, got)
	}
	_, ok := trie.Get([]byte("durian"))
	require.False(t, ok)
	_, ok = trie.Get([]byte("app"))
	require.False(t, ok)
}

func TestTrieScanOrderedAndBounded(t *testing.T) {
	entries := buildTrieEntries("a", "ab", "abc", "b", "ba", "c")
	trie := BuildTrie(entries)

	all := trie.Scan(nil, nil)
	require.Len(t, all, len(entries))
	for i := 1; i < len(all); i++ {
		require.Less(t, compareBytes(all[i-1].Key, all[i].Key), 0)
	}

	bounded := trie.Scan([]byte("ab"), []byte("b"))
	var keys []string
	for _, e := range bounded {
		keys = append(keys, string(e.Key))
	}
	require.Equal(t, []string{"ab", "abc", "b"}, keys)
}

func TestTrieDenseNodeFanOut(t *testing.T) {
	// Force a Dense node: more than denseThreshold distinct first bytes in a
	// contiguous range.
	keys := make([]string, 0, 20)
	for c := byte('a'); c < byte('a'+20); c++ {
		keys = append(keys, string(c))
	}
	entries := buildTrieEntries(keys...)
	trie := BuildTrie(entries)

	found := false
	for _, n := range trie.Nodes {
		if n.Kind == Dense {
			found = true
		}
	}
	require.True(t, found)

	for _, e := range entries {
		got, ok := trie.Get(e.Key)
		require.True(t, ok)
		require.Equal(t, e.Payload, got)
	}
}

func TestTrieEncodeDecodeRoundTrip(t *testing.T) {
	entries := buildTrieEntries("alpha", "alphabet", "beta", "gamma", "gammaray")
	trie := BuildTrie(entries)
	b := EncodeTrie(trie)
	got, err := DecodeTrie(b)
	require.NoError(t, err)

	for _, e := range entries {
		p, ok := got.Get(e.Key)
		require.True(t, ok)
		require.Equal(t, e.Payload, p)
	}
	require.Equal(t, trie.Scan(nil, nil), got.Scan(nil, nil))
}

func TestEmptyTrie(t *testing.T) {
	trie := BuildTrie(nil)
	_, ok := trie.Get([]byte("anything"))
	require.False(t, ok)
	require.Empty(t, trie.Scan(nil, nil))

	b := EncodeTrie(trie)
	got, err := DecodeTrie(b)
	require.NoError(t, err)
	require.Empty(t, got.Scan(nil, nil))
}
