// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package crc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	b := []byte("the quick brown fox")
	require.Equal(t, New(b), New(b))
}

func TestNewDiffersOnDifferentInput(t *testing.T) {
	require.NotEqual(t, New([]byte("a")), New([]byte("b")))
}

func TestDigestMatchesOneShot(t *testing.T) {
	b := []byte("streamed in pieces")
	d := NewDigest()
	_, _ = d.Write(b[:5])
	_, _ = d.Write(b[5:])
	require.Equal(t, New(b), d.Sum())
}

func TestEmptyInput(t *testing.T) {
	require.Equal(t, New(nil), New([]byte{}))
}
