// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressorClassNameRoundTrip(t *testing.T) {
	for _, a := range []Algorithm{None, LZ4, Snappy, Deflate, Zstd} {
		class := a.CompressorClassName()
		got, err := ParseCompressorClass(class)
		require.NoError(t, err)
		require.Equal(t, a, got)
	}
}

func TestParseCompressorClassUnknown(t *testing.T) {
	_, err := ParseCompressorClass("org.apache.cassandra.io.compress.MadeUpCompressor")
	require.Error(t, err)
}
