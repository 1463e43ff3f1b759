// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"testing"

	"github.com/cqlite/cqlite/internal/cql"
	"github.com/cqlite/cqlite/sstable/block"
	"github.com/stretchr/testify/require"
)

func roundtripSchema() cql.TypeSchema {
	return cql.TypeSchema{
		PartitionKey: []cql.Column{{Name: "pk", Type: &cql.CqlType{Kind: cql.Varchar}}},
		Clustering: []cql.ClusteringColumn{
			{Column: cql.Column{Name: "ck", Type: &cql.CqlType{Kind: cql.Int}}},
		},
		Regular: []cql.Column{
			{Name: "v", Type: &cql.CqlType{Kind: cql.Varchar}},
			{Name: "n", Type: &cql.CqlType{Kind: cql.BigInt}},
		},
		Static: []cql.Column{{Name: "s", Type: &cql.CqlType{Kind: cql.BigInt}}},
	}
}

func textValue(t *cql.CqlType, s string) cql.Value { return cql.Value{Type: t, Text: s} }
func intValue(t *cql.CqlType, n int64) cql.Value   { return cql.Value{Type: t, Int64: n} }

func buildPartitions(schema cql.TypeSchema) []PartitionWrite {
	varcharT := schema.Regular[0].Type
	bigintT := schema.Regular[1].Type
	ckT := schema.Clustering[0].Column.Type
	staticT := schema.Static[0].Type

	p1 := NewPartitionWrite([]byte("alice"))
	p1.Static = []Cell{{Column: "s", Value: intValue(staticT, 7), WriteTimestamp: 1500}}
	p1.Entries = []RowEntry{
		{Row: &Row{
			Clustering: []cql.Value{intValue(ckT, 1)},
			Cells: []Cell{
				{Column: "v", Value: textValue(varcharT, "hello"), WriteTimestamp: 1000},
				{Column: "n", Value: intValue(bigintT, 42), WriteTimestamp: 1000},
			},
		}},
		{Row: &Row{
			Clustering: []cql.Value{intValue(ckT, 2)},
			Cells: []Cell{
				{Column: "v", Value: textValue(varcharT, "world"), WriteTimestamp: 2000},
			},
			Deletion: &DeletionTime{LocalDeletionTime: 123, MarkedForDeleteAt: 1999},
		}},
		{RangeTombstone: &RangeTombstone{
			StartBound: []cql.Value{intValue(ckT, 5)}, StartInclusive: true,
			EndBound: []cql.Value{intValue(ckT, 9)}, EndInclusive: false,
			Deletion: DeletionTime{LocalDeletionTime: 500, MarkedForDeleteAt: 3000},
		}},
	}

	p2 := NewPartitionWrite([]byte("bob"))
	p2.Deletion = DeletionTime{LocalDeletionTime: 10, MarkedForDeleteAt: 50}
	p2.Entries = []RowEntry{
		{Row: &Row{
			Clustering: []cql.Value{intValue(ckT, 1)},
			Cells: []Cell{
				{Column: "v", Value: textValue(varcharT, "x"), WriteTimestamp: 500},
			},
		}},
	}

	return []PartitionWrite{p1, p2}
}

func writeAndOpen(t *testing.T, layout Layout, algo block.Algorithm) *TableDirectory {
	t.Helper()
	dir := t.TempDir()
	schema := roundtripSchema()
	w := NewTableWriter(dir, "1", WriterOptions{
		Layout:               layout,
		Algorithm:            algo,
		Schema:               schema,
		PartitionerClassName: "org.apache.cassandra.dht.Murmur3Partitioner",
	})
	for _, pw := range buildPartitions(schema) {
		require.NoError(t, w.AppendPartition(pw))
	}
	td, err := w.Finish()
	require.NoError(t, err)
	return td
}

func checkRoundTrip(t *testing.T, td *TableDirectory) {
	t.Helper()
	defer td.Close()

	pc, err := td.GetPartition([]byte("alice"))
	require.NoError(t, err)
	require.Equal(t, []byte("alice"), pc.Key())
	require.True(t, pc.Deletion().Live())
	require.Len(t, pc.StaticCells(), 1)
	require.Equal(t, int64(7), pc.StaticCells()[0].Value.Int64)
	require.Equal(t, int64(1500), pc.StaticCells()[0].WriteTimestamp)

	it := pc.Rows(nil)

	row, rt, err := it.Next()
	require.NoError(t, err)
	require.Nil(t, rt)
	require.NotNil(t, row)
	require.Equal(t, int64(1), row.Clustering[0].Int64)
	require.Nil(t, row.Deletion)
	require.Len(t, row.Cells, 2)
	byName := map[string]Cell{}
	for _, c := range row.Cells {
		byName[c.Column] = c
	}
	require.Equal(t, "hello", byName["v"].Value.Text)
	require.Equal(t, int64(1000), byName["v"].WriteTimestamp)
	require.Equal(t, int64(42), byName["n"].Value.Int64)

	row, rt, err = it.Next()
	require.NoError(t, err)
	require.Nil(t, rt)
	require.NotNil(t, row)
	require.Equal(t, int64(2), row.Clustering[0].Int64)
	require.NotNil(t, row.Deletion)
	require.Equal(t, int32(123), row.Deletion.LocalDeletionTime)
	require.Equal(t, int64(1999), row.Deletion.MarkedForDeleteAt)
	require.Equal(t, "world", row.Cells[0].Value.Text)
	require.Equal(t, int64(2000), row.Cells[0].WriteTimestamp)

	row, rt, err = it.Next()
	require.NoError(t, err)
	require.Nil(t, row)
	require.NotNil(t, rt)
	require.True(t, rt.StartInclusive)
	require.False(t, rt.EndInclusive)
	require.Equal(t, int64(5), rt.StartBound[0].Int64)
	require.Equal(t, int64(9), rt.EndBound[0].Int64)
	require.Equal(t, int32(500), rt.Deletion.LocalDeletionTime)

	row, rt, err = it.Next()
	require.NoError(t, err)
	require.Nil(t, row)
	require.Nil(t, rt)

	pc2, err := td.GetPartition([]byte("bob"))
	require.NoError(t, err)
	require.False(t, pc2.Deletion().Live())
	require.Equal(t, int32(10), pc2.Deletion().LocalDeletionTime)

	stream, err := td.ScanPartitions(nil, nil, nil)
	require.NoError(t, err)
	var keys []string
	for {
		c, err := stream.Next()
		require.NoError(t, err)
		if c == nil {
			break
		}
		keys = append(keys, string(c.Key()))
	}
	require.Equal(t, []string{"alice", "bob"}, keys)

	stats := td.Statistics()
	require.Equal(t, int64(3), stats.RowCount)
	require.Equal(t, int64(2), stats.LiveRowCount)
	require.Equal(t, int64(500), stats.MinWriteTimestamp)
	require.Equal(t, int64(2000), stats.MaxWriteTimestamp)

	report, err := Verify(td)
	require.NoError(t, err)
	require.True(t, report.OK(), "%v", report.Problems)
}

func TestWriterReaderRoundTripBIG(t *testing.T) {
	td := writeAndOpen(t, BIG, block.LZ4)
	checkRoundTrip(t, td)
}

func TestWriterReaderRoundTripBTI(t *testing.T) {
	td := writeAndOpen(t, BTI, block.Snappy)
	checkRoundTrip(t, td)
}

func TestWriterReaderRoundTripNoCompression(t *testing.T) {
	td := writeAndOpen(t, BIG, block.None)
	checkRoundTrip(t, td)
}

func TestAppendPartitionRejectsOutOfOrderKeys(t *testing.T) {
	dir := t.TempDir()
	schema := roundtripSchema()
	w := NewTableWriter(dir, "1", WriterOptions{Layout: BIG, Schema: schema})
	require.NoError(t, w.AppendPartition(NewPartitionWrite([]byte("b"))))
	err := w.AppendPartition(NewPartitionWrite([]byte("a")))
	require.Error(t, err)
	err = w.AppendPartition(NewPartitionWrite([]byte("b")))
	require.Error(t, err)
}

func TestAppendPartitionRejectsEmptyKey(t *testing.T) {
	dir := t.TempDir()
	w := NewTableWriter(dir, "1", WriterOptions{Layout: BIG, Schema: roundtripSchema()})
	err := w.AppendPartition(NewPartitionWrite(nil))
	require.Error(t, err)
}

func TestGetPartitionNotFound(t *testing.T) {
	td := writeAndOpen(t, BIG, block.LZ4)
	defer td.Close()
	_, err := td.GetPartition([]byte("zzz"))
	require.Error(t, err)
}
