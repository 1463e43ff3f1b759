// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package block

import (
	"github.com/cqlite/cqlite/internal/base"
	"github.com/cqlite/cqlite/internal/vint"
)

// CompressionInfo is the parsed CompressionInfo.db sidecar (spec §3.1):
// algorithm, uncompressed chunk length L, and the ordered sequence of
// absolute physical offsets into Data.db, one per chunk.
//
// On-disk layout (this repo's concrete realization of the semantics spec
// §4.2 describes without pinning exact bytes — see DESIGN.md's Open
// Question log): compressor class name (UTF-8 string), VInt option count
// followed by that many (key, value) UTF-8 string pairs, chunk length L
// (4-byte BE uint32), total uncompressed data length (8-byte BE uint64),
// chunk count (4-byte BE uint32), then that many 8-byte BE uint64 offsets.
type CompressionInfo struct {
	Algorithm   Algorithm
	Options     map[string]string
	ChunkLength uint32
	DataLength  uint64
	Offsets     []uint64
}

// Validate checks the invariant of spec §3.1: offsets strictly increasing,
// count matches the declared chunk count (callers pass len(Offsets)
// implicitly via the slice already being sized correctly by Decode).
func (ci *CompressionInfo) Validate() error {
	for i := 1; i < len(ci.Offsets); i++ {
		if ci.Offsets[i] <= ci.Offsets[i-1] {
			return base.NewFormatError("CompressionInfo", int64(i), base.TocInconsistency,
				"chunk offsets must be strictly increasing: offset[%d]=%d <= offset[%d]=%d",
				i, ci.Offsets[i], i-1, ci.Offsets[i-1])
		}
	}
	return nil
}

// ChunkForOffset maps a logical offset to its chunk index and intra-chunk
// remainder (spec §4.2: "k = logical_offset / L, r = logical_offset mod
// L").
func (ci *CompressionInfo) ChunkForOffset(logicalOffset int64) (chunk int, intra int64) {
	l := int64(ci.ChunkLength)
	return int(logicalOffset / l), logicalOffset % l
}

// UncompressedLen returns the logical length of chunk k: L for all but the
// last chunk, and the remainder for the last (spec §3.1: "the decompressed
// length of the last chunk may be < L").
func (ci *CompressionInfo) UncompressedLen(chunk int) int {
	if chunk < len(ci.Offsets)-1 {
		return int(ci.ChunkLength)
	}
	last := int64(ci.DataLength) - int64(chunk)*int64(ci.ChunkLength)
	if last < 0 {
		last = 0
	}
	return int(last)
}

// Encode serializes ci to the on-disk CompressionInfo.db byte form.
func Encode(ci *CompressionInfo) []byte {
	dst := vint.EncodeString(nil, ci.Algorithm.CompressorClassName())
	dst = vint.Encode(dst, int64(len(ci.Options)))
	for k, v := range ci.Options {
		dst = vint.EncodeString(dst, k)
		dst = vint.EncodeString(dst, v)
	}
	dst = vint.EncodeU32(dst, ci.ChunkLength)
	dst = vint.EncodeU64(dst, ci.DataLength)
	dst = vint.EncodeU32(dst, uint32(len(ci.Offsets)))
	for _, off := range ci.Offsets {
		dst = vint.EncodeU64(dst, off)
	}
	return dst
}

// Decode parses CompressionInfo.db bytes into a CompressionInfo, validating
// the strictly-increasing-offsets invariant.
func Decode(b []byte) (*CompressionInfo, error) {
	class, n, err := vint.DecodeString(b)
	if err != nil {
		return nil, err
	}
	pos := n
	algo, err := ParseCompressorClass(class)
	if err != nil {
		return nil, err
	}
	optCount, n, err := vint.Decode(b[pos:])
	if err != nil {
		return nil, err
	}
	pos += n
	if optCount < 0 {
		return nil, base.NewFormatError("CompressionInfo", int64(pos), base.NegativeLength, "negative option count %d", optCount)
	}
	opts := make(map[string]string, optCount)
	for i := int64(0); i < optCount; i++ {
		k, n, err := vint.DecodeString(b[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		v, n, err := vint.DecodeString(b[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		opts[k] = v
	}
	chunkLen, err := vint.DecodeU32(b[pos:])
	if err != nil {
		return nil, err
	}
	pos += 4
	dataLen, err := vint.DecodeU64(b[pos:])
	if err != nil {
		return nil, err
	}
	pos += 8
	chunkCount, err := vint.DecodeU32(b[pos:])
	if err != nil {
		return nil, err
	}
	pos += 4
	offsets := make([]uint64, chunkCount)
	for i := range offsets {
		off, err := vint.DecodeU64(b[pos:])
		if err != nil {
			return nil, err
		}
		pos += 8
		offsets[i] = off
	}
	ci := &CompressionInfo{Algorithm: algo, Options: opts, ChunkLength: chunkLen, DataLength: dataLen, Offsets: offsets}
	if err := ci.Validate(); err != nil {
		return nil, err
	}
	return ci, nil
}
