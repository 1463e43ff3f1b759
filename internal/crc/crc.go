// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package crc is, in the teacher's own words (sstable/table.go): "the
// checksum algorithm is described in the pebble/crc package." This is that
// package, generalized from per-block to per-chunk and per-footer checksums:
// every fixed-size integrity check in the container layer (§4.4 footer CRC,
// §4.2 chunk CRC) goes through here so there is exactly one CRC32 table
// construction in the whole module.
package crc

import "hash/crc32"

var table = crc32.MakeTable(crc32.Castagnoli)

// Checksum is a CRC32C checksum over some disk-format byte range.
type Checksum uint32

// New computes the CRC32C (Castagnoli) checksum of b, as used for both the
// footer checksum (§4.4) and the per-chunk checksum (§4.2).
func New(b []byte) Checksum {
	return Checksum(crc32.Checksum(b, table))
}

// Digest accumulates a checksum across multiple Write calls, for streaming
// writers that checksum a chunk as they compress it without buffering the
// whole compressed payload twice.
type Digest struct {
	h hash32
}

type hash32 = interface {
	Write(p []byte) (int, error)
	Sum32() uint32
}

// NewDigest returns a fresh streaming CRC32C digest.
func NewDigest() *Digest {
	return &Digest{h: crc32.New(table)}
}

// Write implements io.Writer.
func (d *Digest) Write(p []byte) (int, error) { return d.h.Write(p) }

// Sum returns the checksum accumulated so far.
func (d *Digest) Sum() Checksum { return Checksum(d.h.Sum32()) }
