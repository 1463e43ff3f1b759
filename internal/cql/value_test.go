// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package cql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func primitiveType(k Kind) *CqlType { return &CqlType{Kind: k} }

func TestMarshalUnmarshalPrimitives(t *testing.T) {
	cases := []Value{
		{Type: primitiveType(Boolean), Bool: true},
		{Type: primitiveType(TinyInt), Int64: -42},
		{Type: primitiveType(SmallInt), Int64: -1000},
		{Type: primitiveType(Int), Int64: 123456},
		{Type: primitiveType(BigInt), Int64: -9001},
		{Type: primitiveType(Float), Float32: 1.5},
		{Type: primitiveType(Double), Float64: -2.25},
		{Type: primitiveType(Ascii), Text: "hello"},
		{Type: primitiveType(Varchar), Text: "wörld"},
		{Type: primitiveType(Blob), Bytes: []byte{1, 2, 3}},
		{Type: primitiveType(Uuid), Bytes: make([]byte, 16)},
	}
	for _, v := range cases {
		raw, err := Marshal(v)
		require.NoError(t, err)
		got, err := Unmarshal(v.Type, raw, 0)
		require.NoError(t, err)
		require.Equal(t, v.Type, got.Type)
		require.Equal(t, v.Bool, got.Bool)
		require.Equal(t, v.Int64, got.Int64)
		require.Equal(t, v.Float32, got.Float32)
		require.Equal(t, v.Float64, got.Float64)
		require.Equal(t, v.Text, got.Text)
		require.Equal(t, v.Bytes, got.Bytes)
	}
}

func TestMarshalElementNullAndEmpty(t *testing.T) {
	t0 := primitiveType(Blob)

	nullBytes, err := MarshalElement(nil, NullValue(t0))
	require.NoError(t, err)
	got, n, err := UnmarshalElement(t0, nullBytes, 0)
	require.NoError(t, err)
	require.Equal(t, len(nullBytes), n)
	require.True(t, got.Null)

	emptyBytes, err := MarshalElement(nil, Value{Type: t0, Empty: true})
	require.NoError(t, err)
	got, _, err = UnmarshalElement(t0, emptyBytes, 0)
	require.NoError(t, err)
	require.True(t, got.Empty)
}

func TestUnmarshalElementEmptyRejectedForNonAdmitting(t *testing.T) {
	t0 := primitiveType(Int)
	emptyBytes, err := MarshalElement(nil, Value{Type: t0, Empty: true})
	require.NoError(t, err)
	_, _, err = UnmarshalElement(t0, emptyBytes, 0)
	require.Error(t, err)
}

func TestListRoundTrip(t *testing.T) {
	listType := &CqlType{Kind: List, Elem: primitiveType(Int)}
	v := Value{Type: listType, Elements: []Value{
		{Type: listType.Elem, Int64: 1},
		{Type: listType.Elem, Int64: 2},
		NullValue(listType.Elem),
	}}
	raw, err := Marshal(v)
	require.NoError(t, err)
	got, err := Unmarshal(listType, raw, 0)
	require.NoError(t, err)
	require.Len(t, got.Elements, 3)
	require.Equal(t, int64(1), got.Elements[0].Int64)
	require.Equal(t, int64(2), got.Elements[1].Int64)
	require.True(t, got.Elements[2].Null)
}

func TestMapRoundTrip(t *testing.T) {
	mapType := &CqlType{Kind: Map, MapKey: primitiveType(Varchar), MapValue: primitiveType(Int)}
	v := Value{Type: mapType, Entries: []MapEntry{
		{Key: Value{Type: mapType.MapKey, Text: "a"}, Value: Value{Type: mapType.MapValue, Int64: 1}},
		{Key: Value{Type: mapType.MapKey, Text: "b"}, Value: Value{Type: mapType.MapValue, Int64: 2}},
	}}
	raw, err := Marshal(v)
	require.NoError(t, err)
	got, err := Unmarshal(mapType, raw, 0)
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	require.Equal(t, "a", got.Entries[0].Key.Text)
	require.Equal(t, int64(1), got.Entries[0].Value.Int64)
}

func TestTupleRoundTrip(t *testing.T) {
	tupleType := &CqlType{Kind: Tuple, TupleFields: []*CqlType{primitiveType(Int), primitiveType(Varchar)}}
	v := Value{Type: tupleType, Fields: []Value{
		{Type: tupleType.TupleFields[0], Int64: 7},
		{Type: tupleType.TupleFields[1], Text: "seven"},
	}}
	raw, err := Marshal(v)
	require.NoError(t, err)
	got, err := Unmarshal(tupleType, raw, 0)
	require.NoError(t, err)
	require.Equal(t, int64(7), got.Fields[0].Int64)
	require.Equal(t, "seven", got.Fields[1].Text)
}

func TestUdtSparseTrailingNullsElided(t *testing.T) {
	udtType := &CqlType{
		Kind:    Udt,
		UdtName: "address",
		UdtFields: []UdtField{
			{Name: "street", Type: primitiveType(Varchar)},
			{Name: "city", Type: primitiveType(Varchar)},
			{Name: "zip", Type: primitiveType(Varchar)},
		},
	}
	v := Value{Type: udtType, Fields: []Value{
		{Type: udtType.UdtFields[0].Type, Text: "Main St"},
		NullValue(udtType.UdtFields[1].Type),
		NullValue(udtType.UdtFields[2].Type),
	}}
	raw, err := Marshal(v)
	require.NoError(t, err)

	// Only the first field should survive on the wire; trailing nulls are
	// elided.
	onlyFirst, err := Marshal(Value{Type: udtType, Fields: []Value{v.Fields[0]}})
	require.NoError(t, err)
	require.Equal(t, onlyFirst, raw)

	got, err := Unmarshal(udtType, raw, 0)
	require.NoError(t, err)
	require.Len(t, got.Fields, 3)
	require.Equal(t, "Main St", got.Fields[0].Text)
	require.True(t, got.Fields[1].Null)
	require.True(t, got.Fields[2].Null)
}

func TestUnmarshalDepthExceeded(t *testing.T) {
	leaf := primitiveType(Int)
	var nested *CqlType = leaf
	for i := 0; i < 40; i++ {
		nested = &CqlType{Kind: List, Elem: nested}
	}
	// Each level is a one-element list whose element holds the next level's
	// bytes; the innermost element is a 4-byte Int.
	raw := []byte{0, 0, 0, 7}
	for i := 0; i < 40; i++ {
		level := []byte{0, 0, 0, 1}
		level = append(level, byte(len(raw)>>24), byte(len(raw)>>16), byte(len(raw)>>8), byte(len(raw)))
		raw = append(level, raw...)
	}
	_, err := Unmarshal(nested, raw, 0)
	require.Error(t, err)
}
