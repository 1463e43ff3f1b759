// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package block implements spec §4.2: the CompressionInfo sidecar model and
// a random-access chunked decompression cursor over the logical byte stream
// of Data.db. It is named after the teacher's own sstable/block package,
// which plays the analogous role of framing and checksumming fixed regions
// of an sstable file — here the regions are CompressionInfo-driven chunks
// rather than pebble's per-record blocks.
package block

import (
	"bytes"
	"io"

	"github.com/DataDog/zstd"
	"github.com/cqlite/cqlite/internal/base"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a chunk compression codec (spec §4.2).
type Algorithm uint8

const (
	None Algorithm = iota
	LZ4
	Snappy
	Deflate
	// Zstd is a supplemental algorithm beyond spec.md's enumerated three
	// (see SPEC_FULL.md's "Supplemented Features"): real Cassandra 5 ships
	// org.apache.cassandra.io.compress.ZstdCompressor.
	Zstd
)

// compressorClassNames mirrors the Statistics.db marshaller-string grammar
// of §4.5: CompressionInfo.db identifies its algorithm by a fully-qualified
// Cassandra compressor class name, not a bare enum tag.
var compressorClassNames = map[string]Algorithm{
	"org.apache.cassandra.io.compress.LZ4Compressor":     LZ4,
	"org.apache.cassandra.io.compress.SnappyCompressor":  Snappy,
	"org.apache.cassandra.io.compress.DeflateCompressor": Deflate,
	"org.apache.cassandra.io.compress.ZstdCompressor":    Zstd,
	"org.apache.cassandra.io.compress.NoopCompressor":    None,
}

var compressorNames = map[Algorithm]string{
	LZ4:     "org.apache.cassandra.io.compress.LZ4Compressor",
	Snappy:  "org.apache.cassandra.io.compress.SnappyCompressor",
	Deflate: "org.apache.cassandra.io.compress.DeflateCompressor",
	Zstd:    "org.apache.cassandra.io.compress.ZstdCompressor",
	None:    "org.apache.cassandra.io.compress.NoopCompressor",
}

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Snappy:
		return "snappy"
	case Deflate:
		return "deflate"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompressorClass maps a CompressionInfo.db compressor class name to an
// Algorithm.
func ParseCompressorClass(class string) (Algorithm, error) {
	a, ok := compressorClassNames[class]
	if !ok {
		return 0, base.NewFormatError("CompressionInfo", -1, base.MarshallerGrammar,
			"unrecognized compressor class %q", class)
	}
	return a, nil
}

// CompressorClassName is the inverse of ParseCompressorClass, used by the
// writer.
func (a Algorithm) CompressorClassName() string {
	return compressorNames[a]
}

// compressChunk compresses one logical chunk's bytes, per the per-algorithm
// framing of spec §4.2. It does not append the outer CRC32 trailer; the
// caller (Writer) does that, since the CRC covers exactly the compressed
// payload this function returns.
func compressChunk(a Algorithm, logical []byte) ([]byte, error) {
	switch a {
	case None:
		return logical, nil
	case LZ4:
		// [uncompressed_size: 4 bytes BE][compressed_block]
		var buf bytes.Buffer
		buf.Write(be32(uint32(len(logical))))
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(logical); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Snappy:
		return snappy.Encode(nil, logical), nil
	case Deflate:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(logical); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Zstd:
		return zstd.Compress(nil, logical)
	default:
		return nil, base.NewFormatError("CompressionInfo", -1, base.MarshallerGrammar, "unsupported algorithm %s", a)
	}
}

// decompressChunk inverts compressChunk. uncompressedSize is the expected
// decompressed length for the chunk (L, or less for the final chunk); it is
// used both for buffer pre-allocation and (for LZ4) to validate the
// embedded size prefix.
func decompressChunk(a Algorithm, compressed []byte, uncompressedSize int) ([]byte, error) {
	switch a {
	case None:
		return compressed, nil
	case LZ4:
		if len(compressed) < 4 {
			return nil, base.NewFormatError("CompressionInfo", 0, base.VintOverrun, "LZ4 chunk too short for size prefix")
		}
		declared := be32ToUint(compressed[:4])
		if int(declared) != uncompressedSize {
			return nil, base.NewFormatError("CompressionInfo", 0, base.ChunkCrcMismatch,
				"LZ4 chunk declares uncompressed size %d, expected %d", declared, uncompressedSize)
		}
		out := make([]byte, uncompressedSize)
		r := lz4.NewReader(bytes.NewReader(compressed[4:]))
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, err
		}
		return out, nil
	case Snappy:
		out, err := snappy.Decode(make([]byte, 0, uncompressedSize), compressed)
		if err != nil {
			return nil, err
		}
		return out, nil
	case Deflate:
		r, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		out := make([]byte, uncompressedSize)
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, err
		}
		return out, nil
	case Zstd:
		out, err := zstd.Decompress(make([]byte, 0, uncompressedSize), compressed)
		if err != nil {
			return nil, err
		}
		if len(out) != uncompressedSize {
			return nil, base.NewFormatError("CompressionInfo", 0, base.ChunkCrcMismatch,
				"zstd chunk decompressed to %d bytes, expected %d", len(out), uncompressedSize)
		}
		return out, nil
	default:
		return nil, base.NewFormatError("CompressionInfo", -1, base.MarshallerGrammar, "unsupported algorithm %s", a)
	}
}

func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func be32ToUint(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
