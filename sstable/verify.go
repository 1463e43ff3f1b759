// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
)

// Report is the result of Verify: every problem found, without stopping at
// the first one (spec §6.3's verify(&TableDirectory) -> Report, "a full
// scrub that a caller runs out of band from normal reads").
type Report struct {
	Problems []string
}

// OK reports whether Verify found no problems.
func (r Report) OK() bool { return len(r.Problems) == 0 }

func (r *Report) add(format string, args ...interface{}) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify scrubs every component of d: it validates Data.db's footer CRC32
// (deferred from Open, per directory.go's design note — Open only validates
// Data.db's 10-byte header so that opening a large table stays cheap), the
// strictly-increasing-offset invariant of CompressionInfo, the ascending-key
// invariant of the loaded index, and that every partition's recorded
// DataOffset/Size falls within Data.db's logical length.
func Verify(d *TableDirectory) (Report, error) {
	var r Report

	if err := verifyDataFooter(d, &r); err != nil {
		return r, err
	}

	if d.compressionInfo != nil {
		if err := d.compressionInfo.Validate(); err != nil {
			r.add("CompressionInfo: %s", err)
		}
	}

	logicalLen := dataLogicalLength(d)

	switch d.format.Layout {
	case BIG:
		verifyBigIndex(d, logicalLen, &r)
	case BTI:
		verifyTrie(d.partitionsTrie, "Partitions", logicalLen, &r)
	}

	return r, nil
}

// verifyDataFooter reads Data.db's full bytes and checks the footer this
// package otherwise never validates at Open time.
func verifyDataFooter(d *TableDirectory, r *Report) error {
	b, err := os.ReadFile(d.dataPath)
	if err != nil {
		return errors.Wrapf(err, "cqlite: reading Data.db for verification")
	}
	if _, err := ReadFooter(ComponentData, b, d.dataHeader); err != nil {
		r.add("Data.db: %s", err)
	}
	return nil
}

// dataLogicalLength returns the total logical (uncompressed) byte length of
// Data.db's chunk region, the bound every partition's DataOffset+Size must
// respect.
func dataLogicalLength(d *TableDirectory) int64 {
	if d.compressionInfo != nil {
		return int64(d.compressionInfo.DataLength)
	}
	info, err := d.dataFile.Stat()
	if err != nil {
		return -1
	}
	return info.Size() - headerLen - footerLen
}

func verifyBigIndex(d *TableDirectory, logicalLen int64, r *Report) {
	entries := d.bigIndex.Entries
	for i, e := range entries {
		if i > 0 && compareBytes(entries[i-1].Key, e.Key) >= 0 {
			r.add("Index.db: entry %d key does not sort strictly after entry %d", i, i-1)
		}
		if logicalLen >= 0 && (e.DataOffset < 0 || e.Size < 0 || e.DataOffset+e.Size > logicalLen) {
			r.add("Index.db: entry %d offset/size [%d,%d) exceeds Data.db logical length %d", i, e.DataOffset, e.DataOffset+e.Size, logicalLen)
		}
	}
	if d.summary != nil {
		for i := 1; i < len(d.summary.Entries); i++ {
			if compareBytes(d.summary.Entries[i-1].Key, d.summary.Entries[i].Key) >= 0 {
				r.add("Summary.db: entry %d key does not sort strictly after entry %d", i, i-1)
			}
		}
	}
}

func verifyTrie(t *Trie, component string, logicalLen int64, r *Report) {
	if t == nil {
		return
	}
	entries := t.Scan(nil, nil)
	for i, e := range entries {
		if i > 0 && compareBytes(entries[i-1].Key, e.Key) >= 0 {
			r.add("%s.db: entry %d key does not sort strictly after entry %d", component, i, i-1)
		}
		if logicalLen >= 0 && (e.Payload.DataOffset < 0 || e.Payload.Size < 0 || e.Payload.DataOffset+e.Payload.Size > logicalLen) {
			r.add("%s.db: entry %d offset/size [%d,%d) exceeds Data.db logical length %d", component, i, e.Payload.DataOffset, e.Payload.DataOffset+e.Payload.Size, logicalLen)
		}
	}
}
