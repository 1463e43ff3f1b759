// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"os"
	"strconv"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/cockroachdb/errors"

	"github.com/cqlite/cqlite/internal/base"
	"github.com/cqlite/cqlite/internal/cql"
	"github.com/cqlite/cqlite/internal/crc"
	"github.com/cqlite/cqlite/internal/vint"
	"github.com/cqlite/cqlite/sstable/block"
)

// RowEntry is one row-stream record appended to a partition: exactly one of
// Row or RangeTombstone is set, mirroring the on-disk row-flag dispatch of
// spec §4.7.
type RowEntry struct {
	Row            *Row
	RangeTombstone *RangeTombstone
}

// PartitionWrite is the input to TableWriter.AppendPartition: one partition
// in full, since Statistics.db's aggregate fields (spec §3.1) can only be
// computed once every partition's cell timestamps are known.
type PartitionWrite struct {
	Key      []byte
	Deletion DeletionTime // DeletionTime{} is not Live; pass a Live() value explicitly to mean "no tombstone"
	Static   []Cell
	Entries  []RowEntry
}

// liveDeletion is the sentinel "no tombstone" DeletionTime, matching the
// value readDeletionTime/writeDeletionTime round-trip for an absent marker.
var liveDeletion = DeletionTime{LocalDeletionTime: noDeletionTime, MarkedForDeleteAt: noMarkedForDeleteAt}

// NewPartitionWrite returns a PartitionWrite with no partition-level
// tombstone, ready to have Static/Entries populated.
func NewPartitionWrite(key []byte) PartitionWrite {
	return PartitionWrite{Key: key, Deletion: liveDeletion}
}

// TableWriter accumulates whole partitions and, on Finish, derives
// Statistics.db and produces every component file of a new generation
// (spec §4.8's create_writer/append_partition/finish). Partitions must be
// appended in strictly ascending key order, matching the on-disk invariant
// every index structure in this package relies on.
type TableWriter struct {
	dirPath    string
	generation string
	opts       WriterOptions

	partitions []PartitionWrite
}

// NewTableWriter returns a TableWriter that will create a new generation
// named generation inside dirPath once Finish is called.
func NewTableWriter(dirPath, generation string, opts WriterOptions) *TableWriter {
	return &TableWriter{dirPath: dirPath, generation: generation, opts: opts}
}

// AppendPartition buffers pw. Partitions must arrive in strictly ascending
// key order; this is checked immediately so a caller discovers an
// ordering bug at the offending call rather than at Finish.
func (w *TableWriter) AppendPartition(pw PartitionWrite) error {
	if len(pw.Key) == 0 {
		return base.NewFormatError("Data", -1, base.NegativeLength, "partition key must not be empty")
	}
	if n := len(w.partitions); n > 0 && compareBytes(w.partitions[n-1].Key, pw.Key) >= 0 {
		return base.NewFormatError("Data", -1, base.TocInconsistency,
			"partitions must be appended in strictly ascending key order")
	}
	w.partitions = append(w.partitions, pw)
	return nil
}

// Finish derives Statistics.db, encodes Data.db and the chosen index
// variant, writes every component file of the new generation to disk, and
// reopens it as a TableDirectory.
func (w *TableWriter) Finish() (*TableDirectory, error) {
	stats := computeStatistics(w.opts.Schema, w.opts.PartitionerClassName, w.partitions)

	blockW := block.NewWriter(w.opts.Algorithm, w.opts.chunkLength())
	var bigEntries []BigIndexEntry
	var trieEntries []TrieEntry

	for _, pw := range w.partitions {
		body, err := encodePartitionBody(&w.opts.Schema, pw, stats.MinWriteTimestamp)
		if err != nil {
			return nil, err
		}
		offset := blockW.Len()
		if _, err := blockW.Write(body); err != nil {
			return nil, err
		}
		size := int64(len(body))
		switch w.opts.Layout {
		case BIG:
			bigEntries = append(bigEntries, BigIndexEntry{Key: pw.Key, DataOffset: offset, Size: size})
		case BTI:
			trieEntries = append(trieEntries, TrieEntry{Key: pw.Key, Payload: Payload{DataOffset: offset, Size: size}})
		}
	}

	dataBytes, compressionInfo := blockW.Finish()

	version := w.opts.Version
	if version == "" {
		if w.opts.Layout == BTI {
			version = "da"
		} else {
			version = "oa"
		}
	}
	magic := DefaultAllowedMagics[0]

	toc := &TOC{Components: map[Component]bool{
		ComponentData:       true,
		ComponentStatistics: true,
		ComponentTOC:        true,
		ComponentDigest:     true,
	}}

	files := make(map[Component][]byte)
	files[ComponentData] = dataBytes
	files[ComponentStatistics] = EncodeStatistics(stats)

	if compressionInfo != nil {
		files[ComponentCompressionInfo] = block.Encode(compressionInfo)
		toc.Components[ComponentCompressionInfo] = true
	}

	switch w.opts.Layout {
	case BIG:
		idx := &BigIndex{Entries: bigEntries}
		indexBytes, entryOffsets := encodeBigIndexWithOffsets(idx)
		summary, err := BuildSummary(idx, entryOffsets, w.opts.samplingLevel())
		if err != nil {
			return nil, err
		}
		files[ComponentIndex] = indexBytes
		files[ComponentSummary] = EncodeSummary(summary)
		toc.Components[ComponentIndex] = true
		toc.Components[ComponentSummary] = true
	case BTI:
		partitionsTrie := BuildTrie(trieEntries)
		rowsTrie := BuildTrie(nil)
		files[ComponentPartitions] = EncodeTrie(partitionsTrie)
		files[ComponentRows] = EncodeTrie(rowsTrie)
		toc.Components[ComponentPartitions] = true
		toc.Components[ComponentRows] = true
	default:
		return nil, errors.Newf("cqlite: unknown layout %v", w.opts.Layout)
	}

	if err := os.MkdirAll(w.dirPath, 0o755); err != nil {
		return nil, errors.Wrapf(err, "cqlite: creating table directory")
	}

	// Every component is durably written before TOC.txt, so a reader never
	// observes a generation whose TOC lists a component that isn't there yet
	// (spec §4.4/§6.2: Open fails a generation with a missing listed file).
	order := []Component{ComponentData, ComponentStatistics, ComponentCompressionInfo, ComponentIndex, ComponentSummary, ComponentPartitions, ComponentRows}
	for _, c := range order {
		payload, ok := files[c]
		if !ok {
			continue
		}
		path := componentPath(w.dirPath, w.generation, version, c)
		full := WriteHeader(nil, Header{Magic: magic, Version: version, Flags: FlagNone})
		full = append(full, payload...)
		full = WriteFooter(full, magic, 0, uint32(len(payload)))
		if err := durableWriteFile(path, full); err != nil {
			return nil, err
		}
	}

	digestPath := componentPath(w.dirPath, w.generation, version, ComponentDigest)
	if err := durableWriteFile(digestPath, digestOf(files)); err != nil {
		return nil, err
	}

	tocPath := componentPath(w.dirPath, w.generation, version, ComponentTOC)
	if err := durableWriteFile(tocPath, []byte(WriteTOC(toc))); err != nil {
		return nil, err
	}

	return Open(w.dirPath, OpenOptions{AllowedMagics: []uint32{magic}})
}

// durableWriteFile writes data to a temp file alongside path, fsyncs it,
// then renames it into place (write, then fsync, then rename).
func durableWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "cqlite: creating %s", tmp)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Wrapf(err, "cqlite: writing %s", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrapf(err, "cqlite: fsyncing %s", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "cqlite: closing %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "cqlite: renaming %s", tmp)
	}
	return nil
}

// digestOf is a placeholder CRC32 digest file (spec §3.1's Digest.crc32):
// a CRC32 over the concatenation of every other component's payload, in a
// fixed component order, ASCII-decimal per the real format's convention.
func digestOf(files map[Component][]byte) []byte {
	order := []Component{ComponentData, ComponentStatistics, ComponentCompressionInfo, ComponentIndex, ComponentSummary, ComponentPartitions, ComponentRows}
	var all []byte
	for _, c := range order {
		if b, ok := files[c]; ok {
			all = append(all, b...)
		}
	}
	sum := crc.New(all)
	return []byte(strconv.FormatUint(uint64(sum), 10))
}

// encodeBigIndexWithOffsets is EncodeBigIndex plus the per-entry byte
// offset within the returned buffer, the input BuildSummary needs to
// record where each sampled entry lives in Index.db.
func encodeBigIndexWithOffsets(idx *BigIndex) ([]byte, []int64) {
	var dst []byte
	offsets := make([]int64, len(idx.Entries))
	for i, e := range idx.Entries {
		offsets[i] = int64(len(dst))
		dst = vint.EncodeBytes(dst, e.Key)
		dst = vint.Encode(dst, e.DataOffset)
		dst = vint.Encode(dst, e.Size)
		dst = vint.EncodeBytes(dst, e.RowIndexBlock)
	}
	return dst, offsets
}

// encodePartitionBody is the write-side counterpart of newPartitionCursor +
// RowIterator: it renders one partition's full on-disk byte range (spec
// §4.7), ready to hand to a block.Writer.
func encodePartitionBody(schema *cql.TypeSchema, pw PartitionWrite, baseTS int64) ([]byte, error) {
	var dst []byte
	dst = vint.EncodeBytes(dst, pw.Key)
	dst = writeDeletionTime(dst, pw.Deletion)

	if len(pw.Static) > 0 {
		dst = append(dst, rowFlagStatic)
		var err error
		dst, err = encodeCells(dst, schema.Static, pw.Static, baseTS)
		if err != nil {
			return nil, err
		}
	}

	for _, e := range pw.Entries {
		switch {
		case e.Row != nil:
			dst = append(dst, rowFlagClustering)
			var err error
			dst, err = encodeClusteringRow(dst, schema, e.Row, baseTS)
			if err != nil {
				return nil, err
			}
		case e.RangeTombstone != nil:
			dst = append(dst, rowFlagRangeTombstone)
			dst = encodeRangeTombstone(dst, e.RangeTombstone)
		default:
			return nil, base.NewFormatError("Data", -1, base.TocInconsistency, "RowEntry has neither Row nor RangeTombstone set")
		}
	}
	dst = append(dst, rowFlagEnd)
	return dst, nil
}

func encodeClusteringRow(dst []byte, schema *cql.TypeSchema, row *Row, baseTS int64) ([]byte, error) {
	if len(row.Clustering) != len(schema.Clustering) {
		return nil, base.NewFormatError("Data", -1, base.TupleArityMismatch,
			"row has %d clustering values, schema declares %d clustering columns", len(row.Clustering), len(schema.Clustering))
	}
	var err error
	for _, v := range row.Clustering {
		dst, err = cql.MarshalElement(dst, v)
		if err != nil {
			return nil, err
		}
	}
	dst, err = encodeCells(dst, schema.Regular, row.Cells, baseTS)
	if err != nil {
		return nil, err
	}
	if row.Deletion != nil {
		dst = append(dst, 1)
		dst = writeDeletionTime(dst, *row.Deletion)
	} else {
		dst = append(dst, 0)
	}
	return dst, nil
}

func encodeRangeTombstone(dst []byte, rt *RangeTombstone) []byte {
	writeBound := func(bound []cql.Value, inclusive bool) {
		if inclusive {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
		dst = vint.Encode(dst, int64(len(bound)))
		for _, v := range bound {
			raw, err := cql.Marshal(v)
			if err != nil {
				// Range-tombstone bounds are always non-null clustering
				// prefixes; a Marshal failure here means the caller built an
				// invalid Value, which encodeRangeTombstone has no error
				// return to report.
				raw = nil
			}
			dst = vint.EncodeBytes(dst, raw)
		}
	}
	writeBound(rt.StartBound, rt.StartInclusive)
	writeBound(rt.EndBound, rt.EndInclusive)
	dst = writeDeletionTime(dst, rt.Deletion)
	return dst
}

// computeStatistics folds PartitionWrite data into a StatisticsSnapshot.
func computeStatistics(schema cql.TypeSchema, partitionerClassName string, partitions []PartitionWrite) *StatisticsSnapshot {
	s := &StatisticsSnapshot{
		PartitionerClassName: partitionerClassName,
		Schema:               schema,
	}
	if len(partitions) == 0 {
		return s
	}
	s.MinPartitionKey = partitions[0].Key
	s.MaxPartitionKey = partitions[len(partitions)-1].Key

	haveTS := false
	noteTS := func(ts int64) {
		if !haveTS || ts < s.MinWriteTimestamp {
			s.MinWriteTimestamp = ts
		}
		if !haveTS || ts > s.MaxWriteTimestamp {
			s.MaxWriteTimestamp = ts
		}
		haveTS = true
	}
	haveLDT := false
	noteLDT := func(ldt int32) {
		if ldt == noDeletionTime {
			return
		}
		v := int64(ldt)
		if !haveLDT || v < s.MinLocalDeletionTime {
			s.MinLocalDeletionTime = v
		}
		if !haveLDT || v > s.MaxLocalDeletionTime {
			s.MaxLocalDeletionTime = v
		}
		haveLDT = true
	}
	noteDeletion := func(d DeletionTime) {
		if d.Live() {
			return
		}
		noteLDT(d.LocalDeletionTime)
		s.TombstoneCount++
	}

	var minClustering, maxClustering [][]byte
	haveClustering := false

	sizeHist := newSizeHistogram()
	columnHist := newColumnCountHistogram()

	for _, pw := range partitions {
		noteDeletion(pw.Deletion)
		for _, c := range pw.Static {
			noteTS(c.WriteTimestamp)
			if c.LocalDeletionTime != nil {
				noteLDT(*c.LocalDeletionTime)
			}
		}
		for _, e := range pw.Entries {
			switch {
			case e.Row != nil:
				row := e.Row
				s.RowCount++
				if row.Deletion == nil {
					s.LiveRowCount++
				} else {
					noteDeletion(*row.Deletion)
				}
				key := marshalClusteringKey(row.Clustering)
				if !haveClustering || compareClusteringKey(key, minClustering) < 0 {
					minClustering = key
				}
				if !haveClustering || compareClusteringKey(key, maxClustering) > 0 {
					maxClustering = key
				}
				haveClustering = true
				for _, c := range row.Cells {
					noteTS(c.WriteTimestamp)
					if c.LocalDeletionTime != nil {
						noteLDT(*c.LocalDeletionTime)
					}
				}
				recordHistogramValue(columnHist, int64(len(row.Cells)))
			case e.RangeTombstone != nil:
				noteDeletion(e.RangeTombstone.Deletion)
			}
		}
		recordHistogramValue(sizeHist, int64(partitionApproxSize(pw)))
	}
	s.MinClusteringKey = minClustering
	s.MaxClusteringKey = maxClustering
	if !haveLDT {
		s.MinLocalDeletionTime = int64(noDeletionTime)
		s.MaxLocalDeletionTime = int64(noDeletionTime)
	}
	s.EstimatedPartitionSize = histogramBuckets(sizeHist)
	s.EstimatedColumnCount = histogramBuckets(columnHist)
	return s
}

func marshalClusteringKey(vals []cql.Value) [][]byte {
	out := make([][]byte, len(vals))
	for i, v := range vals {
		if v.Null {
			out[i] = nil
			continue
		}
		raw, err := cql.Marshal(v)
		if err != nil {
			out[i] = nil
			continue
		}
		out[i] = raw
	}
	return out
}

func compareClusteringKey(a, b [][]byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := compareBytes(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// partitionApproxSize estimates a partition's encoded size for the
// EstimatedPartitionSize histogram without re-encoding it.
func partitionApproxSize(pw PartitionWrite) int {
	size := len(pw.Key) + 12
	for _, c := range pw.Static {
		size += cellApproxSize(c)
	}
	for _, e := range pw.Entries {
		if e.Row != nil {
			size += 8 * len(e.Row.Clustering)
			for _, c := range e.Row.Cells {
				size += cellApproxSize(c)
			}
		}
	}
	return size
}

func cellApproxSize(c Cell) int {
	size := 16
	if c.Value.Text != "" {
		size += len(c.Value.Text)
	}
	size += len(c.Value.Bytes)
	return size
}

// newSizeHistogram and newColumnCountHistogram bound the two value domains
// spec §4.5's estimated-size/estimated-column-count histograms track:
// approximate partition byte sizes and per-row column counts. 2 significant
// decimal digits matches the resolution real Cassandra's own estimated
// histograms use for these fields.
func newSizeHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, 1<<40, 2)
}

func newColumnCountHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, 1<<20, 2)
}

// recordHistogramValue clamps v into h's configured range before recording,
// since hdrhistogram.RecordValue rejects values below its minimum.
func recordHistogramValue(h *hdrhistogram.Histogram, v int64) {
	if v < 1 {
		v = 1
	}
	_ = h.RecordValue(v)
}

// histogramBuckets renders h's recorded distribution as the on-disk
// HistogramBucket list (spec §4.5), one bucket per HdrHistogram-equivalent
// value range that actually saw a recording.
func histogramBuckets(h *hdrhistogram.Histogram) []HistogramBucket {
	var buckets []HistogramBucket
	for _, bar := range h.Distribution() {
		if bar.Count == 0 {
			continue
		}
		buckets = append(buckets, HistogramBucket{Offset: bar.From, Count: bar.Count})
	}
	return buckets
}
