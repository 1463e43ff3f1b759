// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package cql implements the minimal CQL type system and value codec of
// spec §3.1/§4.3: the CqlType tagged union, the Cassandra marshaller-string
// grammar that Statistics.db's serialization header uses (§4.5), and the
// bidirectional codec between typed Values and their on-disk byte form.
//
// The recursive type/value graph is realized the way the teacher realizes
// its own tagged unions (e.g. TableFormat, InternalKeyKind): a small Kind
// enum plus a struct carrying only the fields that Kind's payload needs,
// with an explicit depth counter bounding recursion rather than relying on
// stack-overflow as a backstop.
package cql

import (
	"fmt"

	"github.com/cqlite/cqlite/internal/base"
)

// Kind discriminates the CqlType tagged union. Values double as the 1-byte
// wire type IDs of spec §4.3 for the cases where an inline tag is used.
type Kind uint8

const (
	Boolean Kind = iota
	TinyInt
	SmallInt
	Int
	BigInt
	Varint
	Float
	Double
	DecimalKind
	Ascii
	Varchar // aka Text
	Blob
	Uuid
	TimeUuid
	Timestamp
	Date
	Time
	DurationKind
	Inet
	Counter
)

// Container kinds carry the wire tags spec §4.3 assigns explicitly.
const (
	List Kind = 0x20
	Map  Kind = 0x21
	Set  Kind = 0x22
	Udt  Kind = 0x30
	Tuple Kind = 0x31
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case TinyInt:
		return "tinyint"
	case SmallInt:
		return "smallint"
	case Int:
		return "int"
	case BigInt:
		return "bigint"
	case Varint:
		return "varint"
	case Float:
		return "float"
	case Double:
		return "double"
	case DecimalKind:
		return "decimal"
	case Ascii:
		return "ascii"
	case Varchar:
		return "varchar"
	case Blob:
		return "blob"
	case Uuid:
		return "uuid"
	case TimeUuid:
		return "timeuuid"
	case Timestamp:
		return "timestamp"
	case Date:
		return "date"
	case Time:
		return "time"
	case DurationKind:
		return "duration"
	case Inet:
		return "inet"
	case Counter:
		return "counter"
	case List:
		return "list"
	case Set:
		return "set"
	case Map:
		return "map"
	case Tuple:
		return "tuple"
	case Udt:
		return "udt"
	default:
		return fmt.Sprintf("Kind(%#02x)", uint8(k))
	}
}

// IsPrimitive reports whether k is a leaf type, as opposed to a container.
func (k Kind) IsPrimitive() bool {
	switch k {
	case List, Set, Map, Tuple, Udt:
		return false
	default:
		return true
	}
}

// UdtField binds a field name to its type within a user-defined type,
// preserving declaration order (the sparse-field codec in §4.3 depends on
// it).
type UdtField struct {
	Name string
	Type *CqlType
}

// CqlType is the tagged union of spec §3.1. Frozen is a schema-level flag,
// not a distinct Kind (spec §4.3: "'frozen' is purely a schema-level
// property affecting how the enclosing container treats the value").
type CqlType struct {
	Kind Kind
	// Frozen marks a container (List/Set/Map/Tuple/Udt) as opaque for
	// multi-cell storage purposes. It never changes how this type's own
	// bytes are encoded.
	Frozen bool

	// Elem is populated for List, Set.
	Elem *CqlType
	// MapKey/MapValue are populated for Map.
	MapKey   *CqlType
	MapValue *CqlType
	// TupleFields is populated for Tuple, in positional order.
	TupleFields []*CqlType
	// UdtKeyspace/UdtName/UdtFields are populated for Udt.
	UdtKeyspace string
	UdtName     string
	UdtFields   []UdtField
}

// Validate checks the recursion depth bound of spec §3.1/§4.3 (enforced
// depth bound: 32) and that container payload pointers are non-nil where
// the Kind requires them.
func (t *CqlType) Validate() error {
	return t.validate(0)
}

func (t *CqlType) validate(depth int) error {
	if depth > base.MaxTypeDepth {
		return base.NewFormatError("cql.CqlType", -1, base.DepthExceeded,
			"nested container depth %d exceeds the bound of %d", depth, base.MaxTypeDepth)
	}
	switch t.Kind {
	case List, Set:
		if t.Elem == nil {
			return base.NewFormatError("cql.CqlType", -1, base.MarshallerGrammar, "%s missing element type", t.Kind)
		}
		return t.Elem.validate(depth + 1)
	case Map:
		if t.MapKey == nil || t.MapValue == nil {
			return base.NewFormatError("cql.CqlType", -1, base.MarshallerGrammar, "map missing key or value type")
		}
		if err := t.MapKey.validate(depth + 1); err != nil {
			return err
		}
		return t.MapValue.validate(depth + 1)
	case Tuple:
		if len(t.TupleFields) == 0 {
			return base.NewFormatError("cql.CqlType", -1, base.MarshallerGrammar, "tuple with no fields")
		}
		for _, f := range t.TupleFields {
			if err := f.validate(depth + 1); err != nil {
				return err
			}
		}
		return nil
	case Udt:
		for _, f := range t.UdtFields {
			if err := f.Type.validate(depth + 1); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// AdmitsEmpty reports whether length=0 is a legal encoding for t: true for
// Blob, Ascii, Varchar (Text), Varint and the counted containers List, Set
// and Map; false for Tuple, Udt and the fixed-width primitives.
func (t *CqlType) AdmitsEmpty() bool {
	switch t.Kind {
	case Blob, Ascii, Varchar, Varint, List, Set, Map:
		return true
	default:
		return false
	}
}

// Column binds a name to a CqlType within a TypeSchema.
type Column struct {
	Name string
	Type *CqlType
}

// ClusteringColumn is a Column plus its sort direction.
type ClusteringColumn struct {
	Column
	Descending bool
}

// TypeSchema is the ordered row layout of spec §3.1: partition-key columns,
// clustering-key columns (each with a direction), and the regular/static
// column set, as derived from Statistics.db's serialization header (§4.5).
type TypeSchema struct {
	PartitionKey []Column
	Clustering   []ClusteringColumn
	Regular      []Column
	Static       []Column
}

// AllColumns returns every column in serialization order: partition key,
// clustering key, then regular/static columns as declared.
func (s *TypeSchema) AllColumns() []Column {
	out := make([]Column, 0, len(s.PartitionKey)+len(s.Clustering)+len(s.Regular)+len(s.Static))
	out = append(out, s.PartitionKey...)
	for _, c := range s.Clustering {
		out = append(out, c.Column)
	}
	out = append(out, s.Regular...)
	out = append(out, s.Static...)
	return out
}
