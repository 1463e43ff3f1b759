// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"os"
	"testing"

	"github.com/cqlite/cqlite/sstable/block"
	"github.com/stretchr/testify/require"
)

func TestVerifyCleanTable(t *testing.T) {
	td := writeAndOpen(t, BIG, block.LZ4)
	defer td.Close()
	report, err := Verify(td)
	require.NoError(t, err)
	require.True(t, report.OK())
}

func TestVerifyDetectsDataFooterCorruption(t *testing.T) {
	td := writeAndOpen(t, BIG, block.LZ4)
	defer td.Close()

	b, err := os.ReadFile(td.dataPath)
	require.NoError(t, err)
	corrupt := append([]byte{}, b...)
	corrupt[len(corrupt)-footerLen-1] ^= 0xFF
	require.NoError(t, os.WriteFile(td.dataPath, corrupt, 0o644))

	report, err := Verify(td)
	require.NoError(t, err)
	require.False(t, report.OK())
}

func TestVerifyDetectsOutOfOrderBigIndex(t *testing.T) {
	td := writeAndOpen(t, BIG, block.LZ4)
	defer td.Close()
	td.bigIndex.Entries[0], td.bigIndex.Entries[1] = td.bigIndex.Entries[1], td.bigIndex.Entries[0]

	report, err := Verify(td)
	require.NoError(t, err)
	require.False(t, report.OK())
}

func TestVerifyDetectsOutOfBoundsOffset(t *testing.T) {
	td := writeAndOpen(t, BIG, block.LZ4)
	defer td.Close()
	td.bigIndex.Entries[0].Size = 1 << 40

	report, err := Verify(td)
	require.NoError(t, err)
	require.False(t, report.OK())
}
