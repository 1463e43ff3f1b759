// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package sstable implements the container, statistics, index and partition
// iterator layers of spec §4.4-§4.7: everything needed to open a Cassandra
// 5.x SSTable directory, derive its schema, and read or write partitions.
//
// The package is organized the way the teacher organizes its own sstable
// package: a small set of format-identification constants and a footer
// reader (format.go, footer.go, akin to the teacher's table.go), a
// directory-level handle analogous to the teacher's Reader (directory.go),
// and a lazy row cursor analogous to the teacher's Iterator (iterator.go).
package sstable

import "github.com/cqlite/cqlite/internal/base"

// Layout distinguishes the two index-layout families of spec §3.1/§4.6.
type Layout uint8

const (
	// BIG is the legacy Index.db + Summary.db layout.
	BIG Layout = iota
	// BTI is the trie-indexed Partitions.db + Rows.db layout.
	BTI
)

func (l Layout) String() string {
	if l == BTI {
		return "BTI"
	}
	return "BIG"
}

// Component names a file belonging to one SSTable generation (spec §3.1).
type Component string

const (
	ComponentData            Component = "Data"
	ComponentIndex           Component = "Index"
	ComponentSummary         Component = "Summary"
	ComponentStatistics      Component = "Statistics"
	ComponentCompressionInfo Component = "CompressionInfo"
	ComponentFilter          Component = "Filter"
	ComponentPartitions      Component = "Partitions"
	ComponentRows            Component = "Rows"
	ComponentTOC             Component = "TOC"
	ComponentDigest          Component = "Digest"
)

// componentExtensions maps a Component to its on-disk filename suffix and
// extension, per spec §4.4's generation naming scheme
// "<generation>-<format>-<Component>.db|.txt|.crc32".
var componentExtensions = map[Component]string{
	ComponentData:            "db",
	ComponentIndex:           "db",
	ComponentSummary:         "db",
	ComponentStatistics:      "db",
	ComponentCompressionInfo: "db",
	ComponentFilter:          "db",
	ComponentPartitions:      "db",
	ComponentRows:            "db",
	ComponentTOC:             "txt",
	ComponentDigest:          "crc32",
}

// FileFormat identifies the layout family and version code fixed at file
// creation (spec §3.1).
type FileFormat struct {
	Layout  Layout
	Version string // e.g. "oa" for Cassandra 5 BIG, "da" for BTI
}

// DefaultAllowedMagics is the allow-list of spec §4.4/§9's "Magic variants"
// open question: multiple 4-byte magics have been observed for Cassandra 5
// data. Treated as configuration (OpenOptions.AllowedMagics), not a
// code-frozen constant, per §6.1.
var DefaultAllowedMagics = []uint32{
	0x6F610000, // "oa"-family base magic
	0xAD010000, // observed variant
	0xA0070000, // observed variant
}

// magicAllowed reports whether magic is present in allowed (or
// DefaultAllowedMagics if allowed is empty).
func magicAllowed(magic uint32, allowed []uint32) bool {
	if len(allowed) == 0 {
		allowed = DefaultAllowedMagics
	}
	for _, m := range allowed {
		if m == magic {
			return true
		}
	}
	return false
}

// supportedVersions enumerates the version codes this reader dispatches on.
var supportedVersions = map[string]Layout{
	"oa": BIG,
	"da": BTI,
}

func versionLayout(version string) (Layout, error) {
	l, ok := supportedVersions[version]
	if !ok {
		return 0, base.NewFormatError("container", -1, base.UnsupportedVersion, "unsupported format version %q", version)
	}
	return l, nil
}
