// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
)

// TestTOCDataDriven exercises ParseTOC/WriteTOC against testdata/toc,
// covering a well-formed TOC, trailing-blank-line tolerance, and
// the two TocInconsistency rejection paths (an unrecognized entry and a
// TOC missing Data or Statistics).
func TestTOCDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/toc", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "parse":
			toc, err := ParseTOC(d.Input)
			if err != nil {
				return fmt.Sprintf("error: %s\n", err)
			}
			names := make([]string, 0, len(toc.Components))
			for c := range toc.Components {
				names = append(names, shortName(c))
			}
			sort.Strings(names)
			return strings.Join(names, "\n") + "\n"

		case "roundtrip":
			toc, err := ParseTOC(d.Input)
			if err != nil {
				return fmt.Sprintf("error: %s\n", err)
			}
			return WriteTOC(toc)

		default:
			t.Fatalf("unknown command: %s", d.Cmd)
			return ""
		}
	})
}
