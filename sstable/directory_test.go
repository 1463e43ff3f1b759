// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"os"
	"testing"
	"time"

	"github.com/cqlite/cqlite/internal/base"
	"github.com/cqlite/cqlite/sstable/block"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsMissingTOC(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, OpenOptions{})
	require.Error(t, err)
}

func TestOpenDetectsSourceChanged(t *testing.T) {
	td := writeAndOpen(t, BIG, block.LZ4)
	defer td.Close()

	_, err := td.GetPartition([]byte("alice"))
	require.NoError(t, err)

	// Bump Data.db's mtime so checkSourceChanged notices a mismatch against
	// the stamp captured at Open.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(td.dataPath, future, future))

	_, err = td.GetPartition([]byte("alice"))
	require.ErrorIs(t, err, base.ErrSourceChanged)

	_, err = td.ScanPartitions(nil, nil, nil)
	require.ErrorIs(t, err, base.ErrSourceChanged)
}

func TestPartitionStreamRespectsCancellation(t *testing.T) {
	td := writeAndOpen(t, BIG, block.LZ4)
	defer td.Close()

	var cancel base.CancelFlag
	cancel.Cancel()
	stream, err := td.ScanPartitions(nil, nil, &cancel)
	require.NoError(t, err)
	_, err = stream.Next()
	require.ErrorIs(t, err, base.ErrCancelled)
}

func TestFormatAndSchema(t *testing.T) {
	td := writeAndOpen(t, BTI, block.Snappy)
	defer td.Close()
	require.Equal(t, BTI, td.Format().Layout)
	require.Equal(t, "da", td.Format().Version)
	require.Len(t, td.Schema().PartitionKey, 1)
}
