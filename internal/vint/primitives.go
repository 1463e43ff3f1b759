// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package vint

import (
	"encoding/binary"
	"math"
	"net"

	"github.com/cqlite/cqlite/internal/base"
)

// All multi-byte integers not encoded as VInt are big-endian (spec §4.1).

func EncodeU16(dst []byte, v uint16) []byte { return binary.BigEndian.AppendUint16(dst, v) }
func EncodeU32(dst []byte, v uint32) []byte { return binary.BigEndian.AppendUint32(dst, v) }
func EncodeU64(dst []byte, v uint64) []byte { return binary.BigEndian.AppendUint64(dst, v) }

func DecodeU16(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, base.NewFormatError("primitive", 0, base.VintOverrun, "need 2 bytes, have %d", len(b))
	}
	return binary.BigEndian.Uint16(b), nil
}

func DecodeU32(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, base.NewFormatError("primitive", 0, base.VintOverrun, "need 4 bytes, have %d", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

func DecodeU64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, base.NewFormatError("primitive", 0, base.VintOverrun, "need 8 bytes, have %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// EncodeFloat32/EncodeFloat64 implement IEEE-754 big-endian encodings (spec
// §4.1, Float/Double).
func EncodeFloat32(dst []byte, f float32) []byte {
	return EncodeU32(dst, math.Float32bits(f))
}

func DecodeFloat32(b []byte) (float32, error) {
	u, err := DecodeU32(b)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func EncodeFloat64(dst []byte, f float64) []byte {
	return EncodeU64(dst, math.Float64bits(f))
}

func DecodeFloat64(b []byte) (float64, error) {
	u, err := DecodeU64(b)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// Decimal is (scale: 4-byte signed int, unscaled: VInt-length-prefixed
// two's-complement big-endian bytes) per spec §4.1.
type Decimal struct {
	Scale    int32
	Unscaled []byte // two's-complement big-endian, as on the wire
}

func EncodeDecimal(dst []byte, d Decimal) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(d.Scale))
	dst = Encode(dst, int64(len(d.Unscaled)))
	return append(dst, d.Unscaled...)
}

func DecodeDecimal(b []byte) (Decimal, int, error) {
	if len(b) < 4 {
		return Decimal{}, 0, base.NewFormatError("decimal", 0, base.VintOverrun, "need 4 scale bytes, have %d", len(b))
	}
	scale := int32(binary.BigEndian.Uint32(b))
	n, vlen, err := Decode(b[4:])
	if err != nil {
		return Decimal{}, 0, err
	}
	if n < 0 {
		return Decimal{}, 0, base.NewFormatError("decimal", 4, base.NegativeLength, "negative unscaled length %d", n)
	}
	end := 4 + vlen + int(n)
	if len(b) < end {
		return Decimal{}, 0, base.NewFormatError("decimal", int64(4+vlen), base.VintOverrun,
			"need %d unscaled bytes, have %d", n, len(b)-4-vlen)
	}
	return Decimal{Scale: scale, Unscaled: b[4+vlen : end]}, end, nil
}

// Duration is (months: VInt, days: VInt, nanoseconds: VInt) per spec §4.1.
type Duration struct {
	Months      int64
	Days        int64
	Nanoseconds int64
}

func EncodeDuration(dst []byte, d Duration) []byte {
	dst = Encode(dst, d.Months)
	dst = Encode(dst, d.Days)
	dst = Encode(dst, d.Nanoseconds)
	return dst
}

func DecodeDuration(b []byte) (Duration, int, error) {
	var d Duration
	var total int
	months, n, err := Decode(b)
	if err != nil {
		return d, 0, err
	}
	total += n
	days, n, err := Decode(b[total:])
	if err != nil {
		return d, 0, err
	}
	total += n
	nanos, n, err := Decode(b[total:])
	if err != nil {
		return d, 0, err
	}
	total += n
	return Duration{Months: months, Days: days, Nanoseconds: nanos}, total, nil
}

// EncodeInet appends a 4- or 16-byte raw address (spec §4.1: "4 or 16 raw
// bytes, disambiguated by the length prefix" — the length prefix itself is
// the enclosing cell's length-prefixed-bytes wrapper, not encoded here).
func EncodeInet(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		return []byte(v4)
	}
	return []byte(ip.To16())
}

// DecodeInet interprets a raw 4- or 16-byte payload as an IP address.
func DecodeInet(b []byte) (net.IP, error) {
	switch len(b) {
	case 4, 16:
		ip := make(net.IP, len(b))
		copy(ip, b)
		return ip, nil
	default:
		return nil, base.NewFormatError("inet", 0, base.NegativeLength,
			"inet payload must be 4 or 16 bytes, got %d", len(b))
	}
}
