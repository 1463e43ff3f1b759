// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package cql

import (
	"github.com/cqlite/cqlite/internal/base"
	"github.com/cqlite/cqlite/internal/vint"
)

// Value is the typed variant of spec §3.1, mirroring CqlType, plus explicit
// Null and Empty markers. Exactly one of Null, Empty, or a payload
// appropriate to Type.Kind is populated.
type Value struct {
	Type  *CqlType
	Null  bool
	Empty bool

	Bool     bool
	Int64    int64 // TinyInt/SmallInt/Int/BigInt/Counter/Timestamp(micros)/Date(days)/Time(nanos)
	Float32  float32
	Float64  float64
	Bytes    []byte // Blob/Varint/Uuid/TimeUuid/Inet raw payload
	Text     string // Ascii/Varchar
	Decimal  vint.Decimal
	Duration vint.Duration

	Elements []Value     // List/Set
	Entries  []MapEntry  // Map
	Fields   []Value     // Tuple/Udt, positional/schema order
}

// MapEntry is one on-disk Map entry; duplicate keys are preserved verbatim
// (spec §4.3: "last write wins when the consumer materializes a map; both
// forms round-trip bitwise" is a decision left to the layer above this
// codec).
type MapEntry struct {
	Key   Value
	Value Value
}

// NullValue returns the canonical Null Value for t.
func NullValue(t *CqlType) Value { return Value{Type: t, Null: true} }

// Marshal encodes v's raw on-disk bytes for its type (no outer length
// prefix): this is the form embedded inside a length-prefixed wrapper
// wherever spec §4.3 uses one (cells, collection elements, tuple/UDT
// fields). Marshal never encodes the Null/Empty markers themselves — the
// caller's length-prefix wrapper (see MarshalElement) carries those.
func Marshal(v Value) ([]byte, error) {
	t := v.Type
	switch t.Kind {
	case Boolean:
		if v.Bool {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case TinyInt:
		return []byte{byte(v.Int64)}, nil
	case SmallInt:
		return vint.EncodeU16(nil, uint16(int16(v.Int64))), nil
	case Int:
		return vint.EncodeU32(nil, uint32(int32(v.Int64))), nil
	case BigInt, Counter, Timestamp:
		return vint.EncodeU64(nil, uint64(v.Int64)), nil
	case Varint:
		return v.Bytes, nil
	case Float:
		return vint.EncodeFloat32(nil, v.Float32), nil
	case Double:
		return vint.EncodeFloat64(nil, v.Float64), nil
	case DecimalKind:
		return vint.EncodeDecimal(nil, v.Decimal), nil
	case Ascii, Varchar:
		return []byte(v.Text), nil
	case Blob:
		return v.Bytes, nil
	case Uuid, TimeUuid:
		return v.Bytes, nil
	case Date:
		return vint.EncodeU32(nil, uint32(v.Int64)), nil
	case Time:
		return vint.EncodeU64(nil, uint64(v.Int64)), nil
	case DurationKind:
		return vint.EncodeDuration(nil, v.Duration), nil
	case Inet:
		return v.Bytes, nil
	case List, Set:
		return marshalList(v)
	case Map:
		return marshalMap(v)
	case Tuple:
		return marshalTuple(v)
	case Udt:
		return marshalUdt(v)
	default:
		return nil, base.NewFormatError("cql.Value", -1, base.MarshallerGrammar, "unmarshalable kind %s", t.Kind)
	}
}

// Unmarshal decodes exactly len(b) bytes as a raw (non-null, non-empty)
// value of type t. depth tracks nested-container recursion for the bound of
// spec §4.3.
func Unmarshal(t *CqlType, b []byte, depth int) (Value, error) {
	if depth > base.MaxTypeDepth {
		return Value{}, base.NewFormatError("cql.Value", -1, base.DepthExceeded,
			"nested value depth %d exceeds the bound of %d", depth, base.MaxTypeDepth)
	}
	switch t.Kind {
	case Boolean:
		if len(b) != 1 {
			return Value{}, fixedWidthErr(t, 1, len(b))
		}
		return Value{Type: t, Bool: b[0] != 0}, nil
	case TinyInt:
		if len(b) != 1 {
			return Value{}, fixedWidthErr(t, 1, len(b))
		}
		return Value{Type: t, Int64: int64(int8(b[0]))}, nil
	case SmallInt:
		if len(b) != 2 {
			return Value{}, fixedWidthErr(t, 2, len(b))
		}
		u, err := vint.DecodeU16(b)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Int64: int64(int16(u))}, nil
	case Int:
		if len(b) != 4 {
			return Value{}, fixedWidthErr(t, 4, len(b))
		}
		u, err := vint.DecodeU32(b)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Int64: int64(int32(u))}, nil
	case BigInt, Counter, Timestamp:
		if len(b) != 8 {
			return Value{}, fixedWidthErr(t, 8, len(b))
		}
		u, err := vint.DecodeU64(b)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Int64: int64(u)}, nil
	case Varint:
		cp := append([]byte{}, b...)
		return Value{Type: t, Bytes: cp}, nil
	case Float:
		if len(b) != 4 {
			return Value{}, fixedWidthErr(t, 4, len(b))
		}
		f, err := vint.DecodeFloat32(b)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Float32: f}, nil
	case Double:
		if len(b) != 8 {
			return Value{}, fixedWidthErr(t, 8, len(b))
		}
		f, err := vint.DecodeFloat64(b)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Float64: f}, nil
	case DecimalKind:
		d, n, err := vint.DecodeDecimal(b)
		if err != nil {
			return Value{}, err
		}
		if n != len(b) {
			return Value{}, base.NewFormatError("cql.Value", -1, base.VintOverrun, "decimal left %d trailing bytes", len(b)-n)
		}
		return Value{Type: t, Decimal: d}, nil
	case Ascii, Varchar:
		return Value{Type: t, Text: string(b)}, nil
	case Blob:
		cp := append([]byte{}, b...)
		return Value{Type: t, Bytes: cp}, nil
	case Uuid, TimeUuid:
		if len(b) != 16 {
			return Value{}, fixedWidthErr(t, 16, len(b))
		}
		cp := append([]byte{}, b...)
		return Value{Type: t, Bytes: cp}, nil
	case Date:
		if len(b) != 4 {
			return Value{}, fixedWidthErr(t, 4, len(b))
		}
		u, err := vint.DecodeU32(b)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Int64: int64(u)}, nil
	case Time:
		if len(b) != 8 {
			return Value{}, fixedWidthErr(t, 8, len(b))
		}
		u, err := vint.DecodeU64(b)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Int64: int64(u)}, nil
	case DurationKind:
		d, n, err := vint.DecodeDuration(b)
		if err != nil {
			return Value{}, err
		}
		if n != len(b) {
			return Value{}, base.NewFormatError("cql.Value", -1, base.VintOverrun, "duration left %d trailing bytes", len(b)-n)
		}
		return Value{Type: t, Duration: d}, nil
	case Inet:
		ip, err := vint.DecodeInet(b)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Bytes: []byte(ip)}, nil
	case List, Set:
		return unmarshalList(t, b, depth)
	case Map:
		return unmarshalMap(t, b, depth)
	case Tuple:
		return unmarshalTuple(t, b, depth)
	case Udt:
		return unmarshalUdt(t, b, depth)
	default:
		return Value{}, base.NewFormatError("cql.Value", -1, base.MarshallerGrammar, "unmarshalable kind %s", t.Kind)
	}
}

func fixedWidthErr(t *CqlType, want, got int) error {
	return base.NewFormatError("cql.Value", -1, base.NegativeLength,
		"%s requires exactly %d bytes, got %d", t.Kind, want, got)
}

// MarshalElement encodes v as a 4-byte-big-endian-length-prefixed element,
// the wrapping spec §4.3 uses uniformly for collection elements, map
// keys/values, tuple fields and UDT fields (and, at the row layer, cells).
// v.Null encodes length -1; v.Empty encodes length 0 (t.AdmitsEmpty() must
// be true, enforced by the caller at schema-build time for Empty writes).
func MarshalElement(dst []byte, v Value) ([]byte, error) {
	if v.Null {
		return vint.EncodeBytes(dst, nil), nil
	}
	if v.Empty {
		return vint.EncodeBytes(dst, []byte{}), nil
	}
	raw, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return vint.EncodeBytes(dst, raw), nil
}

// UnmarshalElement reads one 4-byte-length-prefixed element of type t from
// the front of b, the inverse of MarshalElement.
func UnmarshalElement(t *CqlType, b []byte, depth int) (Value, int, error) {
	raw, consumed, err := vint.DecodeBytes(b)
	if err != nil {
		return Value{}, 0, err
	}
	if raw == nil {
		return NullValue(t), consumed, nil
	}
	if len(raw) == 0 {
		if !t.AdmitsEmpty() {
			return Value{}, 0, base.NewFormatError("cql.Value", -1, base.NegativeLength,
				"type %s does not admit an empty (length=0) encoding", t.Kind)
		}
		return Value{Type: t, Empty: true}, consumed, nil
	}
	v, err := Unmarshal(t, raw, depth)
	if err != nil {
		return Value{}, 0, err
	}
	return v, consumed, nil
}
