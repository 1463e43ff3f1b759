// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"math"

	"github.com/cqlite/cqlite/internal/base"
	"github.com/cqlite/cqlite/internal/cql"
	"github.com/cqlite/cqlite/internal/vint"
)

// noDeletionTime/noMarkedForDeleteAt are the sentinel pair denoting "no
// tombstone" (spec §4.7: "a sentinel value denotes 'no partition-level
// tombstone'"), matching the values real Cassandra reserves for the same
// purpose.
const (
	noDeletionTime      int32 = math.MaxInt32
	noMarkedForDeleteAt int64 = math.MinInt64
)

// DeletionTime is a tombstone timestamp pair (spec §3.1).
type DeletionTime struct {
	LocalDeletionTime int32
	MarkedForDeleteAt int64
}

// Live reports whether d represents "no tombstone".
func (d DeletionTime) Live() bool { return d.LocalDeletionTime == noDeletionTime }

func readDeletionTime(b []byte, pos int) (DeletionTime, int, error) {
	if len(b) < pos+12 {
		return DeletionTime{}, 0, base.NewFormatError("Data", int64(pos), base.VintOverrun, "truncated deletion time")
	}
	ldt, err := vint.DecodeU32(b[pos:])
	if err != nil {
		return DeletionTime{}, 0, err
	}
	mfda, err := vint.DecodeU64(b[pos+4:])
	if err != nil {
		return DeletionTime{}, 0, err
	}
	return DeletionTime{LocalDeletionTime: int32(ldt), MarkedForDeleteAt: int64(mfda)}, 12, nil
}

func writeDeletionTime(dst []byte, d DeletionTime) []byte {
	dst = vint.EncodeU32(dst, uint32(d.LocalDeletionTime))
	return vint.EncodeU64(dst, uint64(d.MarkedForDeleteAt))
}

// Cell is one column value within a row or the static row (spec §3.1).
type Cell struct {
	Column            string
	Value             cql.Value
	WriteTimestamp    int64
	TTL               *int32
	LocalDeletionTime *int32
	// ChunkSkipped is never set by this package's reader: in PartialRead
	// mode a chunk checksum failure ends the read with a block.ChunkSkipped
	// error, so no cell is emitted from a skipped chunk.
	ChunkSkipped bool
}

// Row is one clustering row (spec §3.1).
type Row struct {
	Clustering []cql.Value
	Cells      []Cell
	Deletion   *DeletionTime // nil unless this row carries its own tombstone
}

// RangeTombstone marks a deleted clustering-key range within a partition.
type RangeTombstone struct {
	StartBound     []cql.Value
	StartInclusive bool
	EndBound       []cql.Value
	EndInclusive   bool
	Deletion       DeletionTime
}

const (
	rowFlagEnd             byte = 0
	rowFlagStatic          byte = 1
	rowFlagClustering      byte = 2
	rowFlagRangeTombstone  byte = 3
)

const (
	cellFlagHasTTL               byte = 1 << 0
	cellFlagHasLocalDeletionTime byte = 1 << 1
)

// PartitionCursor is the handle spec §6.3 calls `PartitionCursor`: the
// decoded partition header (key, partition-level deletion, static cells)
// plus a lazy RowIterator factory over the remaining clustering rows.
type PartitionCursor struct {
	dir      *TableDirectory
	key      []byte
	deletion DeletionTime
	static   []Cell

	body []byte // row-stream bytes, starting right after the header
}

// newPartitionCursor reads and decodes a partition's header (spec §4.7
// steps 1-3) eagerly; row-by-row decoding (step 4) stays lazy in
// RowIterator.
func newPartitionCursor(dir *TableDirectory, dataOffset, size int64) (*PartitionCursor, error) {
	buf, err := dir.cursor.ReadAt(dataOffset, int(size))
	if err != nil {
		return nil, err
	}
	pos := 0
	key, n, err := vint.DecodeBytes(buf[pos:])
	if err != nil {
		return nil, err
	}
	pos += n
	deletion, n, err := readDeletionTime(buf, pos)
	if err != nil {
		return nil, err
	}
	pos += n

	pc := &PartitionCursor{dir: dir, key: key, deletion: deletion}

	if pos < len(buf) && buf[pos] == rowFlagStatic {
		pos++
		cells, n, err := decodeCells(dir.schema.Static, buf[pos:], dir.statistics.MinWriteTimestamp)
		if err != nil {
			return nil, err
		}
		pos += n
		pc.static = cells
	}
	pc.body = buf[pos:]
	return pc, nil
}

// Key returns the partition key bytes (as stored on disk, opaque to this
// reader per spec §4.6's "the reader treats stored keys as opaque").
func (pc *PartitionCursor) Key() []byte { return pc.key }

// Deletion returns the partition-level tombstone, or a Live DeletionTime if
// none was written.
func (pc *PartitionCursor) Deletion() DeletionTime { return pc.deletion }

// StaticCells returns the partition's static-row cells, if any.
func (pc *PartitionCursor) StaticCells() []Cell { return pc.static }

// Rows returns a lazy RowIterator over this partition's clustering rows
// (spec §6.3: PartitionCursor::rows() -> RowIterator). cancel may be nil.
func (pc *PartitionCursor) Rows(cancel *base.CancelFlag) *RowIterator {
	return &RowIterator{schema: &pc.dir.schema, buf: pc.body, cancel: cancel, baseTS: pc.dir.statistics.MinWriteTimestamp}
}

// RowIterator is a lazy, finite, non-restartable cursor over one
// partition's clustering rows and range tombstones (spec §4.7/§6.3).
type RowIterator struct {
	schema *cql.TypeSchema
	buf    []byte
	pos    int
	rowNum int64
	baseTS int64 // Statistics.db's MinWriteTimestamp, the base cell write-timestamps are delta-encoded against
	cancel *base.CancelFlag
	done   bool
	err    error
}

// Next decodes and returns the next row. It returns (nil, nil, nil) when
// the partition is exhausted, (nil, rt, nil) when the next record is a
// range tombstone rather than a clustering row, and a non-nil error
// (possibly base.ErrCancelled) that terminates the iterator — rows already
// returned remain valid (spec §4.7: "already-emitted rows are valid").
func (it *RowIterator) Next() (*Row, *RangeTombstone, error) {
	if it.done {
		return nil, nil, it.err
	}
	if it.pos >= len(it.buf) {
		it.done = true
		return nil, nil, nil
	}
	it.rowNum++
	if it.rowNum%base.CancelCheckInterval == 0 && it.cancel.Cancelled() {
		it.done, it.err = true, base.ErrCancelled
		return nil, nil, it.err
	}

	flag := it.buf[it.pos]
	it.pos++
	switch flag {
	case rowFlagEnd:
		it.done = true
		return nil, nil, nil
	case rowFlagClustering:
		row, n, err := it.decodeClusteringRow(it.buf[it.pos:])
		if err != nil {
			it.done, it.err = true, err
			return nil, nil, err
		}
		it.pos += n
		return row, nil, nil
	case rowFlagRangeTombstone:
		rt, n, err := it.decodeRangeTombstone(it.buf[it.pos:])
		if err != nil {
			it.done, it.err = true, err
			return nil, nil, err
		}
		it.pos += n
		return nil, rt, nil
	default:
		err := base.NewFormatError("Data", int64(it.pos-1), base.TocInconsistency, "unrecognized row flag %#02x", flag)
		it.done, it.err = true, err
		return nil, nil, err
	}
}

func (it *RowIterator) decodeClusteringRow(b []byte) (*Row, int, error) {
	pos := 0
	clustering := make([]cql.Value, len(it.schema.Clustering))
	for i, c := range it.schema.Clustering {
		v, n, err := cql.UnmarshalElement(c.Type, b[pos:], 0)
		if err != nil {
			return nil, 0, err
		}
		clustering[i] = v
		pos += n
	}
	cells, n, err := decodeCells(it.schema.Regular, b[pos:], it.baseTS)
	if err != nil {
		return nil, 0, err
	}
	pos += n

	row := &Row{Clustering: clustering, Cells: cells}
	if pos >= len(b) {
		return nil, 0, base.NewFormatError("Data", int64(pos), base.VintOverrun, "truncated row-deletion presence byte")
	}
	hasDeletion := b[pos] != 0
	pos++
	if hasDeletion {
		d, n, err := readDeletionTime(b, pos)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		row.Deletion = &d
	}
	return row, pos, nil
}

func (it *RowIterator) decodeRangeTombstone(b []byte) (*RangeTombstone, int, error) {
	pos := 0
	readBound := func() ([]cql.Value, bool, int, error) {
		if pos >= len(b) {
			return nil, false, 0, base.NewFormatError("Data", int64(pos), base.VintOverrun, "truncated range-tombstone bound")
		}
		inclusive := b[pos] != 0
		p := pos + 1
		count, n, err := vint.Decode(b[p:])
		if err != nil {
			return nil, false, 0, err
		}
		p += n
		if count < 0 {
			return nil, false, 0, base.NewFormatError("Data", int64(p), base.NegativeLength, "negative bound component count")
		}
		vals := make([]cql.Value, count)
		for i := range vals {
			if int(count) > len(it.schema.Clustering) {
				return nil, false, 0, base.NewFormatError("Data", int64(p), base.TupleArityMismatch,
					"range-tombstone bound has %d components, schema declares %d clustering columns", count, len(it.schema.Clustering))
			}
			v, n, err := cql.UnmarshalElement(it.schema.Clustering[i].Type, b[p:], 0)
			if err != nil {
				return nil, false, 0, err
			}
			vals[i] = v
			p += n
		}
		return vals, inclusive, p - pos, nil
	}
	start, startIncl, n, err := readBound()
	if err != nil {
		return nil, 0, err
	}
	pos += n
	end, endIncl, n, err := readBound()
	if err != nil {
		return nil, 0, err
	}
	pos += n
	d, n, err := readDeletionTime(b, pos)
	if err != nil {
		return nil, 0, err
	}
	pos += n
	return &RangeTombstone{
		StartBound: start, StartInclusive: startIncl,
		EndBound: end, EndInclusive: endIncl,
		Deletion: d,
	}, pos, nil
}

// decodeCells reads a presence bitmap (ceil(len(cols)/8) bytes) followed by
// one cell per set bit, in column order (spec §4.7: "for each present
// regular/static column (bitmap indicates presence), decode the cell").
func decodeCells(cols []cql.Column, b []byte, baseTS int64) ([]Cell, int, error) {
	bitmapLen := (len(cols) + 7) / 8
	if len(b) < bitmapLen {
		return nil, 0, base.NewFormatError("Data", 0, base.VintOverrun, "truncated column presence bitmap")
	}
	bitmap := b[:bitmapLen]
	pos := bitmapLen
	var cells []Cell
	for i, col := range cols {
		if bitmap[i/8]&(1<<uint(i%8)) == 0 {
			continue
		}
		cell, n, err := decodeCell(col, b[pos:], baseTS)
		if err != nil {
			return nil, 0, err
		}
		cells = append(cells, cell)
		pos += n
	}
	return cells, pos, nil
}

// decodeCell decodes one cell, resolving its on-disk write-timestamp delta
// against baseTS (Statistics.db's MinWriteTimestamp) back into an absolute
// timestamp on the returned Cell — callers never see the delta encoding.
func decodeCell(col cql.Column, b []byte, baseTS int64) (Cell, int, error) {
	if len(b) < 1 {
		return Cell{}, 0, base.NewFormatError("Data", 0, base.VintOverrun, "truncated cell flags byte")
	}
	flags := b[0]
	pos := 1

	v, n, err := cql.UnmarshalElement(col.Type, b[pos:], 0)
	if err != nil {
		return Cell{}, 0, err
	}
	pos += n

	tsDelta, n, err := vint.Decode(b[pos:])
	if err != nil {
		return Cell{}, 0, err
	}
	pos += n

	cell := Cell{Column: col.Name, Value: v, WriteTimestamp: baseTS + tsDelta}

	if flags&cellFlagHasTTL != 0 {
		ttl, n, err := vint.Decode(b[pos:])
		if err != nil {
			return Cell{}, 0, err
		}
		pos += n
		t := int32(ttl)
		cell.TTL = &t
	}
	if flags&cellFlagHasLocalDeletionTime != 0 {
		ldt, n, err := vint.Decode(b[pos:])
		if err != nil {
			return Cell{}, 0, err
		}
		pos += n
		l := int32(ldt)
		cell.LocalDeletionTime = &l
	}
	return cell, pos, nil
}

// encodeCell is the inverse of decodeCell: it stores c.WriteTimestamp (an
// absolute timestamp) as a delta against baseTS.
func encodeCell(dst []byte, c Cell, baseTS int64) ([]byte, error) {
	var flags byte
	if c.TTL != nil {
		flags |= cellFlagHasTTL
	}
	if c.LocalDeletionTime != nil {
		flags |= cellFlagHasLocalDeletionTime
	}
	dst = append(dst, flags)
	var err error
	dst, err = cql.MarshalElement(dst, c.Value)
	if err != nil {
		return nil, err
	}
	dst = vint.Encode(dst, c.WriteTimestamp-baseTS)
	if c.TTL != nil {
		dst = vint.Encode(dst, int64(*c.TTL))
	}
	if c.LocalDeletionTime != nil {
		dst = vint.Encode(dst, int64(*c.LocalDeletionTime))
	}
	return dst, nil
}

func encodeCells(dst []byte, cols []cql.Column, cells []Cell, baseTS int64) ([]byte, error) {
	byName := make(map[string]Cell, len(cells))
	for _, c := range cells {
		byName[c.Column] = c
	}
	bitmapLen := (len(cols) + 7) / 8
	bitmap := make([]byte, bitmapLen)
	for i, col := range cols {
		if _, ok := byName[col.Name]; ok {
			bitmap[i/8] |= 1 << uint(i%8)
		}
	}
	dst = append(dst, bitmap...)
	var err error
	for _, col := range cols {
		c, ok := byName[col.Name]
		if !ok {
			continue
		}
		dst, err = encodeCell(dst, c, baseTS)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}
