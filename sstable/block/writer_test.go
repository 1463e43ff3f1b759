// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package block

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeAndRead(t *testing.T, algo Algorithm, chunkLen uint32, logical []byte) []byte {
	t.Helper()
	w := NewWriter(algo, chunkLen)
	var written int
	for written < len(logical) {
		step := 37
		if written+step > len(logical) {
			step = len(logical) - written
		}
		n, err := w.Write(logical[written : written+step])
		require.NoError(t, err)
		written += n
	}
	require.Equal(t, int64(len(logical)), w.Len())

	data, info := w.Finish()
	cur := NewCursor(bytes.NewReader(data), info, 0, false, 1, int64(len(data)))
	got, err := cur.ReadAt(0, len(logical))
	require.NoError(t, err)
	return got
}

func TestWriterCursorRoundTripEachAlgorithm(t *testing.T) {
	logical := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 500)
	for _, algo := range []Algorithm{None, LZ4, Snappy, Deflate, Zstd} {
		t.Run(algo.String(), func(t *testing.T) {
			got := writeAndRead(t, algo, 4096, logical)
			require.Equal(t, logical, got)
		})
	}
}

func TestWriterCursorPartialRangeRead(t *testing.T) {
	logical := bytes.Repeat([]byte("0123456789"), 1000)
	w := NewWriter(LZ4, 4096)
	_, err := w.Write(logical)
	require.NoError(t, err)
	data, info := w.Finish()

	cur := NewCursor(bytes.NewReader(data), info, 0, false, 1, int64(len(data)))
	got, err := cur.ReadAt(5000, 20)
	require.NoError(t, err)
	require.Equal(t, logical[5000:5020], got)
}

func TestCursorDetectsChunkCorruption(t *testing.T) {
	logical := bytes.Repeat([]byte("payload"), 2000)
	w := NewWriter(LZ4, 4096)
	_, err := w.Write(logical)
	require.NoError(t, err)
	data, info := w.Finish()

	corrupt := append([]byte{}, data...)
	corrupt[0] ^= 0xFF

	cur := NewCursor(bytes.NewReader(corrupt), info, 0, false, 1, int64(len(corrupt)))
	_, err = cur.ReadAt(0, 10)
	require.Error(t, err)
}

func TestCursorPartialReadSkipsCorruptChunk(t *testing.T) {
	logical := bytes.Repeat([]byte("payload"), 2000)
	w := NewWriter(LZ4, 4096)
	_, err := w.Write(logical)
	require.NoError(t, err)
	data, info := w.Finish()

	corrupt := append([]byte{}, data...)
	corrupt[0] ^= 0xFF

	cur := NewCursor(bytes.NewReader(corrupt), info, 0, true, 1, int64(len(corrupt)))
	_, err = cur.ReadAt(0, 10)
	require.Error(t, err)
	var skipped ChunkSkipped
	require.ErrorAs(t, err, &skipped)
}

func TestCursorCachesDecompressedChunks(t *testing.T) {
	logical := bytes.Repeat([]byte("cached chunk payload data here"), 300)
	w := NewWriter(Snappy, 1024)
	_, err := w.Write(logical)
	require.NoError(t, err)
	data, info := w.Finish()

	cur := NewCursor(bytes.NewReader(data), info, 2, false, 7, int64(len(data)))
	first, err := cur.ReadAt(0, 10)
	require.NoError(t, err)
	second, err := cur.ReadAt(0, 10)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
