// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"github.com/cqlite/cqlite/internal/base"
	"github.com/cqlite/cqlite/internal/cql"
	"github.com/cqlite/cqlite/internal/vint"
)

// HistogramBucket is one bucket of an estimated histogram (spec §4.5).
type HistogramBucket struct {
	Offset int64
	Count  int64
}

// StatisticsSnapshot is the parsed content of Statistics.db (spec §4.5),
// exposed to callers via the core API's statistics() operation (§6.3).
type StatisticsSnapshot struct {
	PartitionerClassName string

	RowCount       int64
	LiveRowCount   int64
	TombstoneCount int64

	MinPartitionKey []byte
	MaxPartitionKey []byte

	MinClusteringKey [][]byte
	MaxClusteringKey [][]byte

	MinWriteTimestamp int64
	MaxWriteTimestamp int64

	MinLocalDeletionTime int64
	MaxLocalDeletionTime int64

	EstimatedPartitionSize []HistogramBucket
	EstimatedColumnCount   []HistogramBucket

	Schema cql.TypeSchema

	// UnknownMarshallers lists the raw marshaller class strings that didn't
	// resolve to a known CqlType and were degraded to Blob (spec §4.9).
	UnknownMarshallers []string
}

const (
	statisticsFormatVersion = uint32(1)
	statisticsKindCurrent   = uint32(1)
)

// DecodeStatistics parses the Statistics-specific payload (the bytes
// between the generic §4.4 header and footer) into a StatisticsSnapshot.
func DecodeStatistics(b []byte, warn func(string, ...interface{})) (*StatisticsSnapshot, error) {
	pos := 0
	formatVersion, err := vint.DecodeU32(b[pos:])
	if err != nil {
		return nil, err
	}
	pos += 4
	if formatVersion != statisticsFormatVersion {
		return nil, base.NewFormatError("Statistics", int64(pos), base.UnsupportedVersion,
			"unsupported statistics format version %d", formatVersion)
	}
	kind, err := vint.DecodeU32(b[pos:])
	if err != nil {
		return nil, err
	}
	pos += 4
	if kind != statisticsKindCurrent {
		return nil, base.NewFormatError("Statistics", int64(pos), base.UnsupportedVersion,
			"unrecognized statistics-kind discriminator %d", kind)
	}

	s := &StatisticsSnapshot{}

	readStr := func() (string, error) {
		v, n, err := vint.DecodeString(b[pos:])
		if err != nil {
			return "", err
		}
		pos += n
		return v, nil
	}
	readBlob := func() ([]byte, error) {
		v, n, err := vint.DecodeBytes(b[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		return v, nil
	}
	readVInt := func() (int64, error) {
		v, n, err := vint.Decode(b[pos:])
		if err != nil {
			return 0, err
		}
		pos += n
		return v, nil
	}
	readI64 := func() (int64, error) {
		if len(b) < pos+8 {
			return 0, base.NewFormatError("Statistics", int64(pos), base.VintOverrun, "need 8 bytes, have %d", len(b)-pos)
		}
		u, err := vint.DecodeU64(b[pos:])
		if err != nil {
			return 0, err
		}
		pos += 8
		return int64(u), nil
	}
	readHistogram := func() ([]HistogramBucket, error) {
		count, err := readVInt()
		if err != nil {
			return nil, err
		}
		if count < 0 {
			return nil, base.NewFormatError("Statistics", int64(pos), base.NegativeLength, "negative histogram bucket count %d", count)
		}
		buckets := make([]HistogramBucket, count)
		for i := range buckets {
			off, err := readVInt()
			if err != nil {
				return nil, err
			}
			cnt, err := readVInt()
			if err != nil {
				return nil, err
			}
			buckets[i] = HistogramBucket{Offset: off, Count: cnt}
		}
		return buckets, nil
	}
	readType := func() (*cql.CqlType, error) {
		str, err := readStr()
		if err != nil {
			return nil, err
		}
		t, unknown, err := cql.ParseMarshaller(str)
		if err != nil {
			return nil, err
		}
		if unknown {
			s.UnknownMarshallers = append(s.UnknownMarshallers, str)
			if warn != nil {
				warn("cqlite: Statistics: unrecognized marshaller %q, decoding column as blob", str)
			}
		}
		return t, nil
	}
	readColumns := func() ([]cql.Column, error) {
		n, err := readVInt()
		if err != nil {
			return nil, err
		}
		cols := make([]cql.Column, n)
		for i := range cols {
			name, err := readStr()
			if err != nil {
				return nil, err
			}
			t, err := readType()
			if err != nil {
				return nil, err
			}
			cols[i] = cql.Column{Name: name, Type: t}
		}
		return cols, nil
	}

	var err2 error
	if s.PartitionerClassName, err2 = readStr(); err2 != nil {
		return nil, err2
	}
	if s.RowCount, err2 = readVInt(); err2 != nil {
		return nil, err2
	}
	if s.LiveRowCount, err2 = readVInt(); err2 != nil {
		return nil, err2
	}
	if s.TombstoneCount, err2 = readVInt(); err2 != nil {
		return nil, err2
	}
	if s.MinPartitionKey, err2 = readBlob(); err2 != nil {
		return nil, err2
	}
	if s.MaxPartitionKey, err2 = readBlob(); err2 != nil {
		return nil, err2
	}
	clusteringCount, err2 := readVInt()
	if err2 != nil {
		return nil, err2
	}
	if clusteringCount < 0 {
		return nil, base.NewFormatError("Statistics", int64(pos), base.NegativeLength, "negative clustering column count")
	}
	s.MinClusteringKey = make([][]byte, clusteringCount)
	for i := range s.MinClusteringKey {
		if s.MinClusteringKey[i], err2 = readBlob(); err2 != nil {
			return nil, err2
		}
	}
	s.MaxClusteringKey = make([][]byte, clusteringCount)
	for i := range s.MaxClusteringKey {
		if s.MaxClusteringKey[i], err2 = readBlob(); err2 != nil {
			return nil, err2
		}
	}
	if s.MinWriteTimestamp, err2 = readI64(); err2 != nil {
		return nil, err2
	}
	if s.MaxWriteTimestamp, err2 = readI64(); err2 != nil {
		return nil, err2
	}
	if s.MinLocalDeletionTime, err2 = readI64(); err2 != nil {
		return nil, err2
	}
	if s.MaxLocalDeletionTime, err2 = readI64(); err2 != nil {
		return nil, err2
	}
	if s.EstimatedPartitionSize, err2 = readHistogram(); err2 != nil {
		return nil, err2
	}
	if s.EstimatedColumnCount, err2 = readHistogram(); err2 != nil {
		return nil, err2
	}

	// Serialization header (§4.5): the contract Data.db rows obey.
	pkCount, err2 := readVInt()
	if err2 != nil {
		return nil, err2
	}
	s.Schema.PartitionKey = make([]cql.Column, pkCount)
	for i := range s.Schema.PartitionKey {
		name, err := readStr()
		if err != nil {
			return nil, err
		}
		t, err := readType()
		if err != nil {
			return nil, err
		}
		s.Schema.PartitionKey[i] = cql.Column{Name: name, Type: t}
	}
	ckCount, err2 := readVInt()
	if err2 != nil {
		return nil, err2
	}
	s.Schema.Clustering = make([]cql.ClusteringColumn, ckCount)
	for i := range s.Schema.Clustering {
		name, err := readStr()
		if err != nil {
			return nil, err
		}
		t, err := readType()
		if err != nil {
			return nil, err
		}
		if pos >= len(b) {
			return nil, base.NewFormatError("Statistics", int64(pos), base.VintOverrun, "truncated clustering direction flag")
		}
		desc := b[pos] != 0
		pos++
		s.Schema.Clustering[i] = cql.ClusteringColumn{Column: cql.Column{Name: name, Type: t}, Descending: desc}
	}
	var err3 error
	if s.Schema.Regular, err3 = readColumns(); err3 != nil {
		return nil, err3
	}
	if s.Schema.Static, err3 = readColumns(); err3 != nil {
		return nil, err3
	}

	return s, nil
}

// EncodeStatistics is the inverse of DecodeStatistics, used by the writer.
func EncodeStatistics(s *StatisticsSnapshot) []byte {
	var dst []byte
	dst = vint.EncodeU32(dst, statisticsFormatVersion)
	dst = vint.EncodeU32(dst, statisticsKindCurrent)
	dst = vint.EncodeString(dst, s.PartitionerClassName)
	dst = vint.Encode(dst, s.RowCount)
	dst = vint.Encode(dst, s.LiveRowCount)
	dst = vint.Encode(dst, s.TombstoneCount)
	dst = vint.EncodeBytes(dst, s.MinPartitionKey)
	dst = vint.EncodeBytes(dst, s.MaxPartitionKey)
	dst = vint.Encode(dst, int64(len(s.MinClusteringKey)))
	for _, b := range s.MinClusteringKey {
		dst = vint.EncodeBytes(dst, b)
	}
	for _, b := range s.MaxClusteringKey {
		dst = vint.EncodeBytes(dst, b)
	}
	dst = vint.EncodeU64(dst, uint64(s.MinWriteTimestamp))
	dst = vint.EncodeU64(dst, uint64(s.MaxWriteTimestamp))
	dst = vint.EncodeU64(dst, uint64(s.MinLocalDeletionTime))
	dst = vint.EncodeU64(dst, uint64(s.MaxLocalDeletionTime))
	writeHistogram := func(h []HistogramBucket) {
		dst = vint.Encode(dst, int64(len(h)))
		for _, bucket := range h {
			dst = vint.Encode(dst, bucket.Offset)
			dst = vint.Encode(dst, bucket.Count)
		}
	}
	writeHistogram(s.EstimatedPartitionSize)
	writeHistogram(s.EstimatedColumnCount)

	writeType := func(t *cql.CqlType) {
		dst = vint.EncodeString(dst, t.MarshallerString())
	}
	dst = vint.Encode(dst, int64(len(s.Schema.PartitionKey)))
	for _, c := range s.Schema.PartitionKey {
		dst = vint.EncodeString(dst, c.Name)
		writeType(c.Type)
	}
	dst = vint.Encode(dst, int64(len(s.Schema.Clustering)))
	for _, c := range s.Schema.Clustering {
		dst = vint.EncodeString(dst, c.Name)
		writeType(c.Type)
		if c.Descending {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	}
	writeCols := func(cols []cql.Column) {
		dst = vint.Encode(dst, int64(len(cols)))
		for _, c := range cols {
			dst = vint.EncodeString(dst, c.Name)
			writeType(c.Type)
		}
	}
	writeCols(s.Schema.Regular)
	writeCols(s.Schema.Static)
	return dst
}
