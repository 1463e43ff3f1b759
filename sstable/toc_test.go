// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTOCRoundTrip(t *testing.T) {
	toc := &TOC{Components: map[Component]bool{
		ComponentData:       true,
		ComponentStatistics: true,
		ComponentIndex:      true,
		ComponentSummary:    true,
		ComponentTOC:        true,
	}}
	text := WriteTOC(toc)
	got, err := ParseTOC(text)
	require.NoError(t, err)
	for c := range toc.Components {
		require.True(t, got.Has(c))
	}
}

func TestParseTOCTolerance(t *testing.T) {
	text := "Data.db\r\nStatistics.db\r\n\r\n  \r\n"
	toc, err := ParseTOC(text)
	require.NoError(t, err)
	require.True(t, toc.Has(ComponentData))
	require.True(t, toc.Has(ComponentStatistics))
}

func TestParseTOCRejectsUnrecognizedEntry(t *testing.T) {
	_, err := ParseTOC("Data.db\nStatistics.db\nBogus.db\n")
	require.Error(t, err)
}

func TestParseTOCRequiresDataAndStatistics(t *testing.T) {
	_, err := ParseTOC("Index.db\n")
	require.Error(t, err)
}

func TestWriteTOCStableOrder(t *testing.T) {
	toc := &TOC{Components: map[Component]bool{ComponentStatistics: true, ComponentData: true}}
	require.Equal(t, "Data.db\nStatistics.db\n", WriteTOC(toc))
}
