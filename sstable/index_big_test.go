// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildBigIndex(keys ...string) *BigIndex {
	idx := &BigIndex{}
	for i, k := range keys {
		idx.Entries = append(idx.Entries, BigIndexEntry{
			Key: []byte(k), DataOffset: int64(i * 100), Size: 50,
		})
	}
	return idx
}

func TestBigIndexEncodeDecodeRoundTrip(t *testing.T) {
	idx := buildBigIndex("alpha", "bravo", "charlie")
	idx.Entries[1].RowIndexBlock = []byte{1, 2, 3}
	b := EncodeBigIndex(idx)
	got, err := DecodeBigIndex(b)
	require.NoError(t, err)
	require.Equal(t, idx.Entries, got.Entries)
}

func TestBigIndexFind(t *testing.T) {
	idx := buildBigIndex("alpha", "bravo", "charlie")
	i, ok := idx.Find([]byte("bravo"))
	require.True(t, ok)
	require.Equal(t, 1, i)

	_, ok = idx.Find([]byte("delta"))
	require.False(t, ok)
}

func TestBigIndexLowerBound(t *testing.T) {
	idx := buildBigIndex("alpha", "charlie", "echo")
	require.Equal(t, 1, idx.LowerBound([]byte("bravo")))
	require.Equal(t, 0, idx.LowerBound([]byte("aaa")))
	require.Equal(t, 3, idx.LowerBound([]byte("zulu")))
}

func TestCompareBytes(t *testing.T) {
	require.Equal(t, 0, compareBytes([]byte("a"), []byte("a")))
	require.Equal(t, -1, compareBytes([]byte("a"), []byte("b")))
	require.Equal(t, 1, compareBytes([]byte("b"), []byte("a")))
	require.Equal(t, -1, compareBytes([]byte("a"), []byte("aa")))
}

func TestSummaryBuildAndSeek(t *testing.T) {
	idx := buildBigIndex("a0", "a1", "a2", "a3", "a4", "a5")
	indexBytes := EncodeBigIndex(idx)
	_ = indexBytes
	// Compute per-entry offsets by re-encoding incrementally.
	offsets := make([]int64, len(idx.Entries))
	var running int64
	for i, e := range idx.Entries {
		offsets[i] = running
		running += int64(len(EncodeBigIndex(&BigIndex{Entries: []BigIndexEntry{e}})))
	}
	summary, err := BuildSummary(idx, offsets, 2)
	require.NoError(t, err)

	encoded := EncodeSummary(summary)
	got, err := DecodeSummary(encoded)
	require.NoError(t, err)
	require.Equal(t, summary.Entries, got.Entries)

	require.Equal(t, offsets[2], got.Seek([]byte("a3")))
	require.Equal(t, int64(0), got.Seek([]byte("a0")))
}

func TestBuildSummaryRejectsMismatchedOffsets(t *testing.T) {
	idx := buildBigIndex("a", "b")
	_, err := BuildSummary(idx, []int64{0}, 1)
	require.Error(t, err)
}

func TestBuildSummaryRejectsNonPositiveSamplingLevel(t *testing.T) {
	idx := buildBigIndex("a")
	_, err := BuildSummary(idx, []int64{0}, 0)
	require.Error(t, err)
}
