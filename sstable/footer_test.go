// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package sstable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderFooterRoundTrip(t *testing.T) {
	magic := DefaultAllowedMagics[0]
	h := Header{Magic: magic, Version: "oa", Flags: FlagNone}
	body := WriteHeader(nil, h)
	body = append(body, []byte("partition body bytes")...)

	full := WriteFooter(body, magic, 42, uint32(len(body)))

	gotHeader, err := ReadHeader(ComponentData, full, nil)
	require.NoError(t, err)
	require.Equal(t, h, gotHeader)

	gotFooter, err := ReadFooter(ComponentData, full, gotHeader)
	require.NoError(t, err)
	require.Equal(t, uint32(42), gotFooter.IndexOffset)
	require.Equal(t, uint32(len(body)), gotFooter.DataSize)
	require.Equal(t, magic, gotFooter.ClosingMagic)
}

func TestReadHeaderRejectsUnknownMagic(t *testing.T) {
	h := Header{Magic: 0xDEADBEEF, Version: "oa", Flags: FlagNone}
	b := WriteHeader(nil, h)
	_, err := ReadHeader(ComponentData, b, nil)
	require.Error(t, err)
}

func TestReadHeaderRejectsUnsupportedVersion(t *testing.T) {
	h := Header{Magic: DefaultAllowedMagics[0], Version: "zz", Flags: FlagNone}
	b := WriteHeader(nil, h)
	_, err := ReadHeader(ComponentData, b, nil)
	require.Error(t, err)
}

func TestReadFooterDetectsCorruption(t *testing.T) {
	magic := DefaultAllowedMagics[0]
	h := Header{Magic: magic, Version: "oa", Flags: FlagNone}
	body := WriteHeader(nil, h)
	body = append(body, []byte("payload")...)
	full := WriteFooter(body, magic, 0, uint32(len(body)))

	corrupt := append([]byte{}, full...)
	corrupt[len(corrupt)-footerLen-1] ^= 0xFF

	gotHeader, err := ReadHeader(ComponentData, corrupt, nil)
	require.NoError(t, err)
	_, err = ReadFooter(ComponentData, corrupt, gotHeader)
	require.Error(t, err)
}

func TestReadFooterRejectsClosingMagicMismatch(t *testing.T) {
	magic := DefaultAllowedMagics[0]
	h := Header{Magic: magic, Version: "oa", Flags: FlagNone}
	body := WriteHeader(nil, h)
	full := WriteFooter(body, 0x11111111, 0, uint32(len(body)))
	_, err := ReadFooter(ComponentData, full, h)
	require.Error(t, err)
}

func TestCheckFlagsStrictMode(t *testing.T) {
	require.NoError(t, CheckFlags(ComponentData, FlagNone, FlagNone, true, nil))
	require.Error(t, CheckFlags(ComponentData, 0x1, FlagNone, true, nil))

	var logged string
	err := CheckFlags(ComponentData, 0x1, FlagNone, false, func(f string, args ...interface{}) {
		logged = f
	})
	require.NoError(t, err)
	require.NotEmpty(t, logged)
}

func TestVersionLayout(t *testing.T) {
	l, err := versionLayout("oa")
	require.NoError(t, err)
	require.Equal(t, BIG, l)

	l, err = versionLayout("da")
	require.NoError(t, err)
	require.Equal(t, BTI, l)

	_, err = versionLayout("zz")
	require.Error(t, err)
}
