// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package cql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMarshallerPrimitives(t *testing.T) {
	ty, unknown, err := ParseMarshaller("org.apache.cassandra.db.marshal.UTF8Type")
	require.NoError(t, err)
	require.False(t, unknown)
	require.Equal(t, Varchar, ty.Kind)
}

func TestParseMarshallerFrozenCollection(t *testing.T) {
	s := "org.apache.cassandra.db.marshal.FrozenType(org.apache.cassandra.db.marshal.ListType(org.apache.cassandra.db.marshal.Int32Type))"
	ty, unknown, err := ParseMarshaller(s)
	require.NoError(t, err)
	require.False(t, unknown)
	require.Equal(t, List, ty.Kind)
	require.True(t, ty.Frozen)
	require.Equal(t, Int, ty.Elem.Kind)
}

func TestParseMarshallerMap(t *testing.T) {
	s := "org.apache.cassandra.db.marshal.MapType(org.apache.cassandra.db.marshal.UTF8Type,org.apache.cassandra.db.marshal.LongType)"
	ty, _, err := ParseMarshaller(s)
	require.NoError(t, err)
	require.Equal(t, Map, ty.Kind)
	require.Equal(t, Varchar, ty.MapKey.Kind)
	require.Equal(t, BigInt, ty.MapValue.Kind)
}

func TestParseMarshallerUserType(t *testing.T) {
	// keyspace "ks", UDT name "addr" (hex 61646472), field "city" (hex
	// 63697479) of type UTF8Type.
	s := "org.apache.cassandra.db.marshal.UserType(ks,61646472,63697479:org.apache.cassandra.db.marshal.UTF8Type)"
	ty, unknown, err := ParseMarshaller(s)
	require.NoError(t, err)
	require.False(t, unknown)
	require.Equal(t, Udt, ty.Kind)
	require.Equal(t, "ks", ty.UdtKeyspace)
	require.Equal(t, "addr", ty.UdtName)
	require.Len(t, ty.UdtFields, 1)
	require.Equal(t, "city", ty.UdtFields[0].Name)
	require.Equal(t, Varchar, ty.UdtFields[0].Type.Kind)
}

func TestParseMarshallerUnknownDegradesToBlob(t *testing.T) {
	ty, unknown, err := ParseMarshaller("com.example.CustomType")
	require.NoError(t, err)
	require.True(t, unknown)
	require.Equal(t, Blob, ty.Kind)
}

func TestParseMarshallerTrailingGarbage(t *testing.T) {
	_, _, err := ParseMarshaller("org.apache.cassandra.db.marshal.UTF8Type garbage")
	require.Error(t, err)
}

func TestMarshallerStringRoundTrip(t *testing.T) {
	original := &CqlType{
		Kind:   Tuple,
		Frozen: false,
		TupleFields: []*CqlType{
			{Kind: Int},
			{Kind: List, Elem: &CqlType{Kind: Varchar}, Frozen: true},
		},
	}
	s := original.MarshallerString()
	got, unknown, err := ParseMarshaller(s)
	require.NoError(t, err)
	require.False(t, unknown)
	require.Equal(t, Tuple, got.Kind)
	require.Equal(t, Int, got.TupleFields[0].Kind)
	require.Equal(t, List, got.TupleFields[1].Kind)
	require.True(t, got.TupleFields[1].Frozen)
}
