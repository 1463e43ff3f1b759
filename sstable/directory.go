// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/cqlite/cqlite/internal/base"
	"github.com/cqlite/cqlite/internal/cql"
	"github.com/cqlite/cqlite/sstable/block"
)

// TableDirectory is an open handle over one SSTable generation (spec §3.1,
// §3.2): it owns the Data.db file descriptor and the fully-loaded,
// immutable index/Statistics/CompressionInfo structures derived from the
// other component files. Index, Summary/Partitions/Rows and CompressionInfo
// are loaded eagerly at Open; Data.db is read lazily per query through the
// chunked decompression cursor (spec §3.2).
//
// A TableDirectory is shared-readable across goroutines once Open returns;
// nothing here mutates after construction except the chunk cache (already
// internally synchronized by sstable/block.Cursor).
type TableDirectory struct {
	path       string
	generation string
	format     FileFormat
	toc        *TOC
	opts       OpenOptions

	dataPath   string
	dataFile   *os.File
	dataStamp  fileStamp
	dataHeader Header
	cursor     *block.Cursor

	compressionInfo *block.CompressionInfo

	statistics *StatisticsSnapshot
	schema     cql.TypeSchema

	bigIndex *BigIndex
	summary  *Summary

	partitionsTrie *Trie
	rowsTrie       *Trie
}

type fileStamp struct {
	Size    int64
	ModTime time.Time
}

func statFile(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (a fileStamp) Equal(b fileStamp) bool {
	return a.Size == b.Size && a.ModTime.Equal(b.ModTime)
}

// offsetReaderAt rebases ReadAt calls by base, letting block.Cursor address
// Data.db's chunk region (which starts right after the fixed header) as if
// it began at logical offset 0.
type offsetReaderAt struct {
	r    io.ReaderAt
	base int64
}

func (o offsetReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return o.r.ReadAt(p, off+o.base)
}

// componentPath renders the on-disk filename of component c within a
// generation (spec §4.4: "<generation>-<format>-<Component>.db|.txt|.crc32").
func componentPath(dirPath, generation, format string, c Component) string {
	return filepath.Join(dirPath, fmt.Sprintf("%s-%s-%s.%s", generation, format, c, componentExtensions[c]))
}

// discoverGeneration finds the directory's single TOC.txt and splits its
// filename into (generation, format).
func discoverGeneration(entries []os.DirEntry) (generation, format, tocName string, err error) {
	var candidates []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), "-"+string(ComponentTOC)+".txt") {
			candidates = append(candidates, e.Name())
		}
	}
	switch len(candidates) {
	case 0:
		return "", "", "", errors.New("cqlite: no TOC.txt found in table directory")
	case 1:
		// fallthrough
	default:
		return "", "", "", errors.Newf("cqlite: ambiguous table directory: %d TOC.txt candidates", len(candidates))
	}
	name := candidates[0]
	trimmed := strings.TrimSuffix(name, "-"+string(ComponentTOC)+".txt")
	idx := strings.LastIndex(trimmed, "-")
	if idx < 0 {
		return "", "", "", errors.Newf("cqlite: cannot parse generation/format from %q", name)
	}
	return trimmed[:idx], trimmed[idx+1:], name, nil
}

// Open discovers, validates and loads a TableDirectory (spec §6.3's
// open(dir_path, options)).
func Open(dirPath string, opts OpenOptions) (*TableDirectory, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cqlite: opening table directory %s", dirPath)
	}
	generation, format, tocName, err := discoverGeneration(entries)
	if err != nil {
		return nil, err
	}

	tocBytes, err := os.ReadFile(filepath.Join(dirPath, tocName))
	if err != nil {
		return nil, errors.Wrapf(err, "cqlite: reading TOC")
	}
	toc, err := ParseTOC(string(tocBytes))
	if err != nil {
		return nil, err
	}
	for c := range toc.Components {
		if _, err := os.Stat(componentPath(dirPath, generation, format, c)); err != nil {
			return nil, base.NewFormatError(string(c), -1, base.TocInconsistency,
				"component %s listed in TOC but missing on disk", c)
		}
	}

	var layout Layout
	switch {
	case toc.Has(ComponentPartitions) && toc.Has(ComponentRows):
		layout = BTI
	case toc.Has(ComponentIndex) && toc.Has(ComponentSummary):
		layout = BIG
	default:
		return nil, base.NewFormatError("TOC", -1, base.TocInconsistency,
			"TOC declares neither a complete BIG (Index+Summary) nor BTI (Partitions+Rows) index")
	}

	d := &TableDirectory{
		path:       dirPath,
		generation: generation,
		format:     FileFormat{Layout: layout, Version: format},
		toc:        toc,
		opts:       opts,
	}

	dataPath := componentPath(dirPath, generation, format, ComponentData)
	dataFile, err := os.Open(dataPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cqlite: opening Data.db")
	}
	var headerBuf [headerLen]byte
	if _, err := dataFile.ReadAt(headerBuf[:], 0); err != nil {
		dataFile.Close()
		return nil, base.NewFormatError(string(ComponentData), 0, base.UnknownMagic, "cannot read header: %v", err)
	}
	dataHeader, err := ReadHeader(ComponentData, headerBuf[:], opts.AllowedMagics)
	if err != nil {
		dataFile.Close()
		return nil, err
	}
	if err := CheckFlags(ComponentData, dataHeader.Flags, FlagNone, opts.Strict, opts.logger().Infof); err != nil {
		dataFile.Close()
		return nil, err
	}
	d.dataFile = dataFile
	d.dataHeader = dataHeader
	d.dataPath = dataPath

	g, _ := errgroup.WithContext(context.Background())

	g.Go(func() error {
		b, _, _, err := d.readComponentFile(componentPath(dirPath, generation, format, ComponentStatistics), ComponentStatistics)
		if err != nil {
			return err
		}
		stats, err := DecodeStatistics(b, opts.logger().Infof)
		if err != nil {
			return err
		}
		d.statistics = stats
		d.schema = stats.Schema
		return nil
	})

	if toc.Has(ComponentCompressionInfo) {
		g.Go(func() error {
			b, _, _, err := d.readComponentFile(componentPath(dirPath, generation, format, ComponentCompressionInfo), ComponentCompressionInfo)
			if err != nil {
				return err
			}
			ci, err := block.Decode(b)
			if err != nil {
				return err
			}
			d.compressionInfo = ci
			return nil
		})
	}

	switch layout {
	case BIG:
		g.Go(func() error {
			b, _, _, err := d.readComponentFile(componentPath(dirPath, generation, format, ComponentIndex), ComponentIndex)
			if err != nil {
				return err
			}
			idx, err := DecodeBigIndex(b)
			if err != nil {
				return err
			}
			d.bigIndex = idx
			return nil
		})
		g.Go(func() error {
			b, _, _, err := d.readComponentFile(componentPath(dirPath, generation, format, ComponentSummary), ComponentSummary)
			if err != nil {
				return err
			}
			s, err := DecodeSummary(b)
			if err != nil {
				return err
			}
			d.summary = s
			return nil
		})
	case BTI:
		g.Go(func() error {
			b, _, _, err := d.readComponentFile(componentPath(dirPath, generation, format, ComponentPartitions), ComponentPartitions)
			if err != nil {
				return err
			}
			t, err := DecodeTrie(b)
			if err != nil {
				return err
			}
			d.partitionsTrie = t
			return nil
		})
		g.Go(func() error {
			b, _, _, err := d.readComponentFile(componentPath(dirPath, generation, format, ComponentRows), ComponentRows)
			if err != nil {
				return err
			}
			t, err := DecodeTrie(b)
			if err != nil {
				return err
			}
			d.rowsTrie = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		dataFile.Close()
		return nil, err
	}

	stamp, err := statFile(dataPath)
	if err != nil {
		dataFile.Close()
		return nil, errors.Wrapf(err, "cqlite: stat Data.db")
	}
	d.dataStamp = stamp
	// Data.db's chunk region sits strictly between the fixed header and the
	// trailing footer (spec §4.4); bounding the cursor here keeps the last
	// chunk's CRC trailer from being confused with footer bytes beyond it.
	bodyLimit := stamp.Size - headerLen - footerLen
	d.cursor = block.NewCursor(offsetReaderAt{r: dataFile, base: headerLen}, d.compressionInfo, opts.cacheSize(), opts.PartialRead, 0, bodyLimit)

	return d, nil
}

// readComponentFile reads, header-validates and footer-validates a
// component file in full, returning its payload (header- and
// footer-stripped).
func (d *TableDirectory) readComponentFile(path string, component Component) (payload []byte, header Header, footer Footer, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, Header{}, Footer{}, errors.Wrapf(err, "cqlite: reading %s", component)
	}
	header, err = ReadHeader(component, b, d.opts.AllowedMagics)
	if err != nil {
		return nil, Header{}, Footer{}, err
	}
	if err := CheckFlags(component, header.Flags, FlagNone, d.opts.Strict, d.opts.logger().Infof); err != nil {
		return nil, Header{}, Footer{}, err
	}
	footer, err = ReadFooter(component, b, header)
	if err != nil {
		return nil, Header{}, Footer{}, err
	}
	return b[headerLen : len(b)-footerLen], header, footer, nil
}

// Close releases the Data.db file descriptor.
func (d *TableDirectory) Close() error {
	return d.dataFile.Close()
}

// Schema returns the TypeSchema derived from Statistics.db's serialization
// header (spec §6.3: schema(&TableDirectory) -> TypeSchema).
func (d *TableDirectory) Schema() cql.TypeSchema { return d.schema }

// Statistics returns the parsed Statistics.db snapshot (spec §6.3).
func (d *TableDirectory) Statistics() *StatisticsSnapshot { return d.statistics }

// Format reports the layout family and version code this generation uses.
func (d *TableDirectory) Format() FileFormat { return d.format }

func (d *TableDirectory) checkSourceChanged() error {
	cur, err := statFile(d.dataPath)
	if err != nil {
		return errors.Wrapf(err, "cqlite: stat Data.db")
	}
	if !cur.Equal(d.dataStamp) {
		return base.ErrSourceChanged
	}
	return nil
}

// GetPartition looks up key, returning its PartitionCursor or a wrapped
// NotFound error (spec §6.3: get_partition(&TableDirectory, key_bytes) ->
// Option<PartitionCursor>).
func (d *TableDirectory) GetPartition(key []byte) (*PartitionCursor, error) {
	if err := d.checkSourceChanged(); err != nil {
		return nil, err
	}
	switch d.format.Layout {
	case BIG:
		i, ok := d.bigIndex.Find(key)
		if !ok {
			return nil, errors.Wrapf(base.ErrNotFound, "cqlite: partition %x", key)
		}
		e := d.bigIndex.Entries[i]
		return newPartitionCursor(d, e.DataOffset, e.Size)
	case BTI:
		p, ok := d.partitionsTrie.Get(key)
		if !ok {
			return nil, errors.Wrapf(base.ErrNotFound, "cqlite: partition %x", key)
		}
		return newPartitionCursor(d, p.DataOffset, p.Size)
	default:
		return nil, errors.Newf("cqlite: unknown layout %v", d.format.Layout)
	}
}

// ScanPartitions returns a lazy stream of partitions whose keys fall within
// [lo, hi] (either bound nil meaning unbounded), in ascending byte order
// (spec §6.3: scan_partitions(&TableDirectory, range_spec) ->
// PartitionStream).
func (d *TableDirectory) ScanPartitions(lo, hi []byte, cancel *base.CancelFlag) (*PartitionStream, error) {
	if err := d.checkSourceChanged(); err != nil {
		return nil, err
	}
	var refs []partitionRef
	switch d.format.Layout {
	case BIG:
		start := 0
		if lo != nil {
			start = d.bigIndex.LowerBound(lo)
		}
		for i := start; i < len(d.bigIndex.Entries); i++ {
			e := d.bigIndex.Entries[i]
			if hi != nil && compareBytes(e.Key, hi) > 0 {
				break
			}
			refs = append(refs, partitionRef{Offset: e.DataOffset, Size: e.Size})
		}
	case BTI:
		for _, e := range d.partitionsTrie.Scan(lo, hi) {
			refs = append(refs, partitionRef{Offset: e.Payload.DataOffset, Size: e.Payload.Size})
		}
	default:
		return nil, errors.Newf("cqlite: unknown layout %v", d.format.Layout)
	}
	return &PartitionStream{dir: d, refs: refs, cancel: cancel}, nil
}

type partitionRef struct {
	Offset int64
	Size   int64
}

// PartitionStream is the lazy, finite, non-restartable sequence of
// PartitionCursor values produced by ScanPartitions (spec §6.3).
type PartitionStream struct {
	dir    *TableDirectory
	refs   []partitionRef
	pos    int
	cancel *base.CancelFlag
}

// Next returns the next partition, or (nil, nil) once the stream is
// exhausted, or base.ErrCancelled if the stream's cancellation flag was
// observed at this partition boundary.
func (ps *PartitionStream) Next() (*PartitionCursor, error) {
	if ps.cancel.Cancelled() {
		return nil, base.ErrCancelled
	}
	if ps.pos >= len(ps.refs) {
		return nil, nil
	}
	r := ps.refs[ps.pos]
	ps.pos++
	return newPartitionCursor(ps.dir, r.Offset, r.Size)
}
