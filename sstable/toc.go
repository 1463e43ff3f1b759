// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"sort"
	"strings"

	"github.com/cqlite/cqlite/internal/base"
)

// TOC is the parsed form of TOC.txt (spec §6.2): an ASCII, one-short-name-
// per-line list of component files present in a generation. Readers must
// tolerate trailing blank lines and either line-ending convention — this is
// a dedicated type (rather than inlined line-splitting in the container
// reader) specifically so that tolerance lives in one obviously-correct
// place.
type TOC struct {
	Components map[Component]bool
}

// shortName returns the TOC.txt entry for a component, e.g. "Data.db".
func shortName(c Component) string {
	return string(c) + "." + componentExtensions[c]
}

// ParseTOC parses TOC.txt's contents.
func ParseTOC(contents string) (*TOC, error) {
	toc := &TOC{Components: make(map[Component]bool)}
	contents = strings.ReplaceAll(contents, "\r\n", "\n")
	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c, ok := componentForFileName(line)
		if !ok {
			return nil, base.NewFormatError("TOC", -1, base.TocInconsistency, "unrecognized TOC entry %q", line)
		}
		toc.Components[c] = true
	}
	if !toc.Components[ComponentData] || !toc.Components[ComponentStatistics] {
		return nil, base.NewFormatError("TOC", -1, base.TocInconsistency, "TOC must list at least Data and Statistics")
	}
	return toc, nil
}

func componentForFileName(name string) (Component, bool) {
	for c, ext := range componentExtensions {
		if name == string(c)+"."+ext {
			return c, true
		}
	}
	return "", false
}

// WriteTOC renders toc back to TOC.txt's text form, components in a stable
// (sorted) order.
func WriteTOC(toc *TOC) string {
	names := make([]string, 0, len(toc.Components))
	for c := range toc.Components {
		names = append(names, shortName(c))
	}
	sort.Strings(names)
	return strings.Join(names, "\n") + "\n"
}

// Has reports whether component c is listed.
func (t *TOC) Has(c Component) bool { return t.Components[c] }
