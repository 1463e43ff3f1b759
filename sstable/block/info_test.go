// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressionInfoEncodeDecodeRoundTrip(t *testing.T) {
	ci := &CompressionInfo{
		Algorithm:   LZ4,
		Options:     map[string]string{"chunk_length_in_kb": "64"},
		ChunkLength: 65536,
		DataLength:  200000,
		Offsets:     []uint64{10, 65600, 131200},
	}
	b := Encode(ci)
	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, ci.Algorithm, got.Algorithm)
	require.Equal(t, ci.ChunkLength, got.ChunkLength)
	require.Equal(t, ci.DataLength, got.DataLength)
	require.Equal(t, ci.Offsets, got.Offsets)
	require.Equal(t, ci.Options, got.Options)
}

func TestCompressionInfoValidateRejectsNonIncreasing(t *testing.T) {
	ci := &CompressionInfo{Offsets: []uint64{10, 10}}
	require.Error(t, ci.Validate())
	ci2 := &CompressionInfo{Offsets: []uint64{10, 5}}
	require.Error(t, ci2.Validate())
}

func TestCompressionInfoValidateAcceptsIncreasing(t *testing.T) {
	ci := &CompressionInfo{Offsets: []uint64{10, 20, 30}}
	require.NoError(t, ci.Validate())
}

func TestChunkForOffset(t *testing.T) {
	ci := &CompressionInfo{ChunkLength: 100, DataLength: 250, Offsets: []uint64{0, 100, 200}}
	chunk, intra := ci.ChunkForOffset(150)
	require.Equal(t, 1, chunk)
	require.Equal(t, int64(50), intra)
}

func TestUncompressedLen(t *testing.T) {
	ci := &CompressionInfo{ChunkLength: 100, DataLength: 250, Offsets: []uint64{0, 100, 200}}
	require.Equal(t, 100, ci.UncompressedLen(0))
	require.Equal(t, 100, ci.UncompressedLen(1))
	require.Equal(t, 50, ci.UncompressedLen(2))
}
