// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"github.com/cqlite/cqlite/internal/base"
	"github.com/cqlite/cqlite/internal/cql"
	"github.com/cqlite/cqlite/sstable/block"
)

// OpenOptions configures TableDirectory.Open (spec §6.3: "options include
// {strict, partial_read, chunk_cache_size, allowed_magics}").
type OpenOptions struct {
	// Strict rejects unknown header flag bits instead of logging and
	// ignoring them (spec §4.4/§4.9).
	Strict bool
	// PartialRead makes a per-chunk CRC mismatch fail the read with a
	// block.ChunkSkipped error instead of a ChunkCrcMismatch FormatError.
	// The read still stops there: it does not resume at the next chunk and
	// no rows are tagged.
	PartialRead bool
	// ChunkCacheSize is the number of decompressed chunks kept warm per
	// opened generation; 0 selects block.DefaultCacheSize.
	ChunkCacheSize int
	// AllowedMagics overrides DefaultAllowedMagics; nil selects the default.
	AllowedMagics []uint32
	// Logger receives non-fatal warnings (unknown flags, unknown
	// marshallers). A nil Logger discards them
	// (spec §6.5).
	Logger base.LoggerAndTracer
}

func (o OpenOptions) logger() base.LoggerAndTracer {
	if o.Logger == nil {
		return base.DiscardLogger{}
	}
	return o.Logger
}

func (o OpenOptions) cacheSize() int {
	if o.ChunkCacheSize <= 0 {
		return block.DefaultCacheSize
	}
	return o.ChunkCacheSize
}

// WriterOptions configures create_writer (spec §4.8).
type WriterOptions struct {
	Layout      Layout
	Version     string // e.g. "oa" (BIG) or "da" (BTI)
	Algorithm   block.Algorithm
	ChunkLength uint32
	// SamplingLevel is the BIG-layout Summary.db sampling rate (every k'th
	// Index.db entry). Ignored for BTI.
	SamplingLevel int64
	Schema        cql.TypeSchema
	// PartitionerClassName is recorded verbatim into Statistics.db.
	PartitionerClassName string
}

func (o WriterOptions) chunkLength() uint32 {
	if o.ChunkLength == 0 {
		return 1 << 16
	}
	return o.ChunkLength
}

func (o WriterOptions) samplingLevel() int64 {
	if o.SamplingLevel <= 0 {
		return 128
	}
	return o.SamplingLevel
}
