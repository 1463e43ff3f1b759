// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"sort"

	"github.com/cqlite/cqlite/internal/base"
	"github.com/cqlite/cqlite/internal/vint"
)

// BigIndexEntry is one entry of Index.db (spec §4.6, BIG layout): a
// partition key paired with its byte offset (and, for wide partitions, a
// row-index sub-block) into Data.db.
type BigIndexEntry struct {
	Key           []byte
	DataOffset    int64
	Size          int64
	RowIndexBlock []byte // nil for partitions with no row sub-index
}

// BigIndex is the fully-decoded, sorted-by-key form of Index.db.
type BigIndex struct {
	Entries []BigIndexEntry
}

// DecodeBigIndex parses Index.db's payload (post container header/footer).
func DecodeBigIndex(b []byte) (*BigIndex, error) {
	idx := &BigIndex{}
	pos := 0
	for pos < len(b) {
		key, n, err := vint.DecodeBytes(b[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		off, n2, err := vint.Decode(b[pos:])
		if err != nil {
			return nil, err
		}
		pos += n2
		size, n3, err := vint.Decode(b[pos:])
		if err != nil {
			return nil, err
		}
		pos += n3
		sub, n4, err := vint.DecodeBytes(b[pos:])
		if err != nil {
			return nil, err
		}
		pos += n4
		idx.Entries = append(idx.Entries, BigIndexEntry{Key: key, DataOffset: off, Size: size, RowIndexBlock: sub})
	}
	return idx, nil
}

// EncodeBigIndex is the inverse of DecodeBigIndex. Entries must already be
// sorted ascending by Key (spec §4.6 invariant).
func EncodeBigIndex(idx *BigIndex) []byte {
	var dst []byte
	for _, e := range idx.Entries {
		dst = vint.EncodeBytes(dst, e.Key)
		dst = vint.Encode(dst, e.DataOffset)
		dst = vint.Encode(dst, e.Size)
		dst = vint.EncodeBytes(dst, e.RowIndexBlock)
	}
	return dst
}

// Find returns the index of the entry whose key equals key, or (-1, false)
// if absent. Entries must be sorted.
func (idx *BigIndex) Find(key []byte) (int, bool) {
	i := sort.Search(len(idx.Entries), func(i int) bool {
		return compareBytes(idx.Entries[i].Key, key) >= 0
	})
	if i < len(idx.Entries) && compareBytes(idx.Entries[i].Key, key) == 0 {
		return i, true
	}
	return -1, false
}

// LowerBound returns the index of the first entry whose key is >= key.
func (idx *BigIndex) LowerBound(key []byte) int {
	return sort.Search(len(idx.Entries), func(i int) bool {
		return compareBytes(idx.Entries[i].Key, key) >= 0
	})
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// SummaryEntry is one sampled projection of Summary.db (spec §4.6): every
// Nth Index.db key, paired with that entry's byte offset within Index.db,
// so a reader can binary-search Summary.db then seek-and-scan Index.db.
type SummaryEntry struct {
	Key         []byte
	IndexOffset int64
}

// Summary is the fully-decoded form of Summary.db.
type Summary struct {
	SamplingLevel int64
	Entries       []SummaryEntry
}

// DecodeSummary parses Summary.db's payload.
func DecodeSummary(b []byte) (*Summary, error) {
	s := &Summary{}
	pos := 0
	level, n, err := vint.Decode(b[pos:])
	if err != nil {
		return nil, err
	}
	pos += n
	s.SamplingLevel = level
	for pos < len(b) {
		key, n, err := vint.DecodeBytes(b[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		off, n2, err := vint.Decode(b[pos:])
		if err != nil {
			return nil, err
		}
		pos += n2
		s.Entries = append(s.Entries, SummaryEntry{Key: key, IndexOffset: off})
	}
	return s, nil
}

// EncodeSummary is the inverse of DecodeSummary.
func EncodeSummary(s *Summary) []byte {
	dst := vint.Encode(nil, s.SamplingLevel)
	for _, e := range s.Entries {
		dst = vint.EncodeBytes(dst, e.Key)
		dst = vint.Encode(dst, e.IndexOffset)
	}
	return dst
}

// Seek returns the Index.db byte offset to start a linear scan from in
// order to find key: the IndexOffset of the last sampled entry whose key is
// <= key, or 0 if key sorts before every sample.
func (s *Summary) Seek(key []byte) int64 {
	i := sort.Search(len(s.Entries), func(i int) bool {
		return compareBytes(s.Entries[i].Key, key) > 0
	})
	if i == 0 {
		return 0
	}
	return s.Entries[i-1].IndexOffset
}

// BuildSummary samples every samplingLevel'th entry of idx into a Summary,
// recording each sampled key's byte offset within the encoded Index.db
// bytes described by indexEntryOffsets (parallel to idx.Entries).
func BuildSummary(idx *BigIndex, indexEntryOffsets []int64, samplingLevel int64) (*Summary, error) {
	if samplingLevel <= 0 {
		return nil, base.NewFormatError("Summary", -1, base.NegativeLength, "sampling level must be positive, got %d", samplingLevel)
	}
	if len(indexEntryOffsets) != len(idx.Entries) {
		return nil, base.NewFormatError("Summary", -1, base.TocInconsistency, "offset table length %d does not match index entry count %d", len(indexEntryOffsets), len(idx.Entries))
	}
	s := &Summary{SamplingLevel: samplingLevel}
	for i := 0; i < len(idx.Entries); i += int(samplingLevel) {
		s.Entries = append(s.Entries, SummaryEntry{Key: idx.Entries[i].Key, IndexOffset: indexEntryOffsets[i]})
	}
	return s, nil
}
