// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package block

import (
	"encoding/binary"

	"github.com/cqlite/cqlite/internal/crc"
)

// Writer accumulates logical bytes, compresses them in fixed-length chunks
// and produces the corresponding CompressionInfo, implementing the write
// side of spec §4.2/§4.8: "accumulate L bytes of logical data, compress into
// a chunk, append [compressed_bytes][CRC32], record the chunk's starting
// physical offset."
type Writer struct {
	algo        Algorithm
	chunkLength uint32
	data        []byte // growing Data.db physical byte buffer
	offsets     []uint64
	pending     []byte // logical bytes not yet flushed into a chunk
	dataLength  uint64 // total logical bytes written
}

// NewWriter returns a Writer that will compress with algo in chunks of
// chunkLength logical bytes. algo == None disables compression and
// Finish returns a nil *CompressionInfo, per spec §4.2.
func NewWriter(algo Algorithm, chunkLength uint32) *Writer {
	return &Writer{algo: algo, chunkLength: chunkLength}
}

// Write appends p to the logical stream, flushing complete chunks as they
// fill.
func (w *Writer) Write(p []byte) (int, error) {
	w.dataLength += uint64(len(p))
	if w.algo == None {
		w.data = append(w.data, p...)
		return len(p), nil
	}
	w.pending = append(w.pending, p...)
	for uint32(len(w.pending)) >= w.chunkLength {
		if err := w.flushChunk(w.pending[:w.chunkLength]); err != nil {
			return 0, err
		}
		w.pending = w.pending[w.chunkLength:]
	}
	return len(p), nil
}

func (w *Writer) flushChunk(logical []byte) error {
	w.offsets = append(w.offsets, uint64(len(w.data)))
	compressed, err := compressChunk(w.algo, logical)
	if err != nil {
		return err
	}
	w.data = append(w.data, compressed...)
	sum := crc.New(compressed)
	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], uint32(sum))
	w.data = append(w.data, trailer[:]...)
	return nil
}

// Len returns the number of logical bytes written so far, i.e. the logical
// offset the next Write call will begin at.
func (w *Writer) Len() int64 { return int64(w.dataLength) }

// Finish flushes any partial final chunk and returns the physical Data.db
// bytes plus the CompressionInfo describing them (nil if uncompressed).
func (w *Writer) Finish() ([]byte, *CompressionInfo) {
	if w.algo != None && len(w.pending) > 0 {
		_ = w.flushChunk(w.pending)
		w.pending = nil
	}
	if w.algo == None {
		return w.data, nil
	}
	return w.data, &CompressionInfo{
		Algorithm:   w.algo,
		Options:     map[string]string{},
		ChunkLength: w.chunkLength,
		DataLength:  w.dataLength,
		Offsets:     w.offsets,
	}
}
