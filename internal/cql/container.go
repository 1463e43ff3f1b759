// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package cql

import (
	"encoding/binary"

	"github.com/cqlite/cqlite/internal/base"
)

// marshalList/unmarshalList implement spec §4.3's List<T>/Set<T> encoding:
// a 4-byte big-endian signed count, then that many 4-byte-length-prefixed
// elements (length -1 for a null element).
func marshalList(v Value) ([]byte, error) {
	dst := make([]byte, 4)
	binary.BigEndian.PutUint32(dst, uint32(int32(len(v.Elements))))
	var err error
	for _, e := range v.Elements {
		dst, err = MarshalElement(dst, e)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func unmarshalList(t *CqlType, b []byte, depth int) (Value, error) {
	count, n, err := decodeCount(b, "list/set")
	if err != nil {
		return Value{}, err
	}
	elements := make([]Value, 0, clampCap(count))
	pos := n
	for i := int32(0); i < count; i++ {
		e, consumed, err := UnmarshalElement(t.Elem, b[pos:], depth+1)
		if err != nil {
			return Value{}, err
		}
		elements = append(elements, e)
		pos += consumed
	}
	if pos != len(b) {
		return Value{}, base.NewFormatError("cql.Value", int64(pos), base.VintOverrun,
			"%d trailing bytes after %d list/set elements", len(b)-pos, count)
	}
	return Value{Type: t, Elements: elements}, nil
}

// marshalMap/unmarshalMap implement spec §4.3's Map<K,V> encoding: a 4-byte
// count, then that many (key, value) length-prefixed pairs. Duplicate keys
// are permitted and preserved verbatim.
func marshalMap(v Value) ([]byte, error) {
	dst := make([]byte, 4)
	binary.BigEndian.PutUint32(dst, uint32(int32(len(v.Entries))))
	var err error
	for _, e := range v.Entries {
		dst, err = MarshalElement(dst, e.Key)
		if err != nil {
			return nil, err
		}
		dst, err = MarshalElement(dst, e.Value)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func unmarshalMap(t *CqlType, b []byte, depth int) (Value, error) {
	count, n, err := decodeCount(b, "map")
	if err != nil {
		return Value{}, err
	}
	entries := make([]MapEntry, 0, clampCap(count))
	pos := n
	for i := int32(0); i < count; i++ {
		k, consumed, err := UnmarshalElement(t.MapKey, b[pos:], depth+1)
		if err != nil {
			return Value{}, err
		}
		pos += consumed
		vv, consumed, err := UnmarshalElement(t.MapValue, b[pos:], depth+1)
		if err != nil {
			return Value{}, err
		}
		pos += consumed
		entries = append(entries, MapEntry{Key: k, Value: vv})
	}
	if pos != len(b) {
		return Value{}, base.NewFormatError("cql.Value", int64(pos), base.VintOverrun,
			"%d trailing bytes after %d map entries", len(b)-pos, count)
	}
	return Value{Type: t, Entries: entries}, nil
}

// marshalTuple/unmarshalTuple implement spec §4.3's Tuple encoding: n
// positional fields fixed by the schema (not stored inline), each
// length-prefixed. All fields must be present.
func marshalTuple(v Value) ([]byte, error) {
	var dst []byte
	var err error
	for _, f := range v.Fields {
		dst, err = MarshalElement(dst, f)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func unmarshalTuple(t *CqlType, b []byte, depth int) (Value, error) {
	fields := make([]Value, 0, len(t.TupleFields))
	pos := 0
	for _, ft := range t.TupleFields {
		if pos >= len(b) {
			return Value{}, base.NewFormatError("cql.Value", int64(pos), base.TupleArityMismatch,
				"tuple with %d schema fields truncated after %d", len(t.TupleFields), len(fields))
		}
		f, consumed, err := UnmarshalElement(ft, b[pos:], depth+1)
		if err != nil {
			return Value{}, err
		}
		fields = append(fields, f)
		pos += consumed
	}
	if pos != len(b) {
		return Value{}, base.NewFormatError("cql.Value", int64(pos), base.TupleArityMismatch,
			"%d trailing bytes after %d tuple fields", len(b)-pos, len(t.TupleFields))
	}
	return Value{Type: t, Fields: fields}, nil
}

// marshalUdt/unmarshalUdt implement spec §4.3's UDT encoding: fields in
// schema order, each length-prefixed; sparse — after the last present
// field, remaining fields are implicitly null and omitted from the wire.
// Re-encoding elides the same trailing nulls (canonical form).
func marshalUdt(v Value) ([]byte, error) {
	// Trim trailing nulls for canonical output.
	last := len(v.Fields) - 1
	for last >= 0 && v.Fields[last].Null {
		last--
	}
	var dst []byte
	var err error
	for i := 0; i <= last; i++ {
		dst, err = MarshalElement(dst, v.Fields[i])
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func unmarshalUdt(t *CqlType, b []byte, depth int) (Value, error) {
	fields := make([]Value, len(t.UdtFields))
	pos := 0
	for i, f := range t.UdtFields {
		if pos >= len(b) {
			// Sparse representation: readers tolerate input exhaustion after
			// any field boundary and fill the remaining fields with Null.
			for j := i; j < len(t.UdtFields); j++ {
				fields[j] = NullValue(t.UdtFields[j].Type)
			}
			return Value{Type: t, Fields: fields}, nil
		}
		val, consumed, err := UnmarshalElement(f.Type, b[pos:], depth+1)
		if err != nil {
			return Value{}, err
		}
		fields[i] = val
		pos += consumed
	}
	if pos != len(b) {
		return Value{}, base.NewFormatError("cql.Value", int64(pos), base.VintOverrun,
			"%d trailing bytes after %d UDT fields", len(b)-pos, len(t.UdtFields))
	}
	return Value{Type: t, Fields: fields}, nil
}

func decodeCount(b []byte, what string) (int32, int, error) {
	if len(b) < 4 {
		return 0, 0, base.NewFormatError("cql.Value", 0, base.VintOverrun, "%s count truncated: need 4 bytes, have %d", what, len(b))
	}
	count := int32(binary.BigEndian.Uint32(b))
	if count < 0 {
		return 0, 0, base.NewFormatError("cql.Value", 0, base.NegativeLength, "%s has illegal negative count %d", what, count)
	}
	return count, 4, nil
}

func clampCap(n int32) int {
	const maxPrealloc = 1 << 16
	if n > maxPrealloc {
		return maxPrealloc
	}
	return int(n)
}
