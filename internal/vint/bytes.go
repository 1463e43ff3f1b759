// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package vint

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/cqlite/cqlite/internal/base"
)

// NullLength is the "length = -1 means Null" convention of spec §4.1
// (length-prefixed bytes) used throughout the cell/value codec.
const NullLength = -1

// EncodeBytes appends the 4-byte big-endian length-prefixed encoding of b to
// dst. A nil b is encoded as Null (length -1); a non-nil empty b is encoded
// as Empty (length 0).
func EncodeBytes(dst []byte, b []byte) []byte {
	if b == nil {
		return binary.BigEndian.AppendUint32(dst, uint32(int32(NullLength)))
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

// DecodeBytes reads a 4-byte big-endian signed length L followed by max(L,0)
// bytes from the front of b. Returns (nil, consumed, nil) for Null, (empty
// non-nil slice, consumed, nil) for Empty. The returned slice aliases b.
func DecodeBytes(b []byte) (value []byte, consumed int, err error) {
	if len(b) < 4 {
		return nil, 0, base.NewFormatError("bytes", 0, base.VintOverrun, "need 4 length bytes, have %d", len(b))
	}
	l := int32(binary.BigEndian.Uint32(b))
	switch {
	case l == NullLength:
		return nil, 4, nil
	case l < NullLength:
		return nil, 0, base.NewFormatError("bytes", 0, base.NegativeLength, "illegal negative length %d", l)
	case l == 0:
		return []byte{}, 4, nil
	default:
		if len(b) < 4+int(l) {
			return nil, 0, base.NewFormatError("bytes", 4, base.VintOverrun, "need %d payload bytes, have %d", l, len(b)-4)
		}
		return b[4 : 4+int(l)], 4 + int(l), nil
	}
}

// EncodeString appends the VInt-length-prefixed UTF-8 encoding of s to dst.
func EncodeString(dst []byte, s string) []byte {
	dst = Encode(dst, int64(len(s)))
	return append(dst, s...)
}

// DecodeString reads a VInt length n followed by n bytes of valid UTF-8 from
// the front of b. Invalid UTF-8 is a decode error, never a lossy
// replacement (spec §4.1).
func DecodeString(b []byte) (s string, consumed int, err error) {
	n, vlen, err := Decode(b)
	if err != nil {
		return "", 0, err
	}
	if n < 0 {
		return "", 0, base.NewFormatError("string", 0, base.NegativeLength, "negative string length %d", n)
	}
	total := vlen + int(n)
	if len(b) < total {
		return "", 0, base.NewFormatError("string", int64(vlen), base.VintOverrun,
			"need %d string bytes, have %d", n, len(b)-vlen)
	}
	payload := b[vlen:total]
	if !utf8.Valid(payload) {
		return "", 0, base.NewFormatError("string", int64(vlen), base.Utf8Invalid, "invalid UTF-8 sequence")
	}
	return string(payload), total, nil
}
