// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package cql

import (
	"encoding/hex"
	"strings"

	"github.com/cqlite/cqlite/internal/base"
)

// primitiveMarshallers maps the short (last path component) Java-style
// marshaller class name to its Kind, per spec §4.5's grammar.
var primitiveMarshallers = map[string]Kind{
	"UTF8Type":          Varchar,
	"AsciiType":         Ascii,
	"BytesType":         Blob,
	"BooleanType":       Boolean,
	"ByteType":          TinyInt,
	"ShortType":         SmallInt,
	"Int32Type":         Int,
	"LongType":          BigInt,
	"IntegerType":       Varint,
	"FloatType":         Float,
	"DoubleType":        Double,
	"DecimalType":       DecimalKind,
	"UUIDType":          Uuid,
	"LexicalUUIDType":   Uuid,
	"TimeUUIDType":      TimeUuid,
	"TimestampType":     Timestamp,
	"DateType":          Timestamp, // legacy pre-3.0 alias
	"SimpleDateType":    Date,
	"TimeType":          Time,
	"DurationType":      DurationKind,
	"InetAddressType":   Inet,
	"CounterColumnType": Counter,
	"EmptyType":         Blob, // degenerate "empty" marshaller, treated as an always-empty blob
}

// marshallerNames is the inverse of primitiveMarshallers, used when the
// writer re-derives a serialization header from a declared TypeSchema. Kept
// as a separate literal (rather than inverting the map at init) so the
// canonical name for kinds with multiple aliases (Timestamp) is unambiguous.
var marshallerNames = map[Kind]string{
	Varchar:      "UTF8Type",
	Ascii:        "AsciiType",
	Blob:         "BytesType",
	Boolean:      "BooleanType",
	TinyInt:      "ByteType",
	SmallInt:     "ShortType",
	Int:          "Int32Type",
	BigInt:       "LongType",
	Varint:       "IntegerType",
	Float:        "FloatType",
	Double:       "DoubleType",
	DecimalKind:  "DecimalType",
	Uuid:         "UUIDType",
	TimeUuid:     "TimeUUIDType",
	Timestamp:    "TimestampType",
	Date:         "SimpleDateType",
	Time:         "TimeType",
	DurationKind: "DurationType",
	Inet:         "InetAddressType",
	Counter:      "CounterColumnType",
}

const marshalPackage = "org.apache.cassandra.db.marshal."

// ParseMarshaller parses a fully-qualified Cassandra marshaller class string
// (spec §4.5) into a CqlType. Unknown marshaller classes are not an error
// here; the caller (Statistics reader) degrades them to an opaque Blob and
// surfaces a warning, per §4.9's "sole place where unknown types degrade
// gracefully".
func ParseMarshaller(s string) (*CqlType, bool, error) {
	p := &parser{s: s}
	t, unknown, err := p.parseType()
	if err != nil {
		return nil, false, err
	}
	if p.pos != len(p.s) {
		return nil, false, base.NewFormatError("statistics", -1, base.MarshallerGrammar,
			"trailing characters after type %q: %q", s, p.s[p.pos:])
	}
	return t, unknown, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) parseType() (*CqlType, bool, error) {
	className := p.parseClassName()
	if className == "" {
		return nil, false, base.NewFormatError("statistics", int64(p.pos), base.MarshallerGrammar, "empty class name")
	}
	short := className
	if i := strings.LastIndexByte(className, '.'); i >= 0 {
		short = className[i+1:]
	}

	if short == "FrozenType" {
		args, err := p.parseArgs()
		if err != nil {
			return nil, false, err
		}
		if len(args) != 1 {
			return nil, false, base.NewFormatError("statistics", int64(p.pos), base.MarshallerGrammar,
				"FrozenType expects exactly one argument, got %d", len(args))
		}
		inner, unknown, err := (&parser{s: args[0]}).parseTypeFull()
		if err != nil {
			return nil, false, err
		}
		inner.Frozen = true
		return inner, unknown, nil
	}

	switch short {
	case "ListType":
		args, err := p.parseArgs()
		if err != nil {
			return nil, false, err
		}
		if len(args) != 1 {
			return nil, false, base.NewFormatError("statistics", int64(p.pos), base.MarshallerGrammar, "ListType expects 1 argument")
		}
		elem, unknown, err := (&parser{s: args[0]}).parseTypeFull()
		if err != nil {
			return nil, false, err
		}
		return &CqlType{Kind: List, Elem: elem}, unknown, nil

	case "SetType":
		args, err := p.parseArgs()
		if err != nil {
			return nil, false, err
		}
		if len(args) != 1 {
			return nil, false, base.NewFormatError("statistics", int64(p.pos), base.MarshallerGrammar, "SetType expects 1 argument")
		}
		elem, unknown, err := (&parser{s: args[0]}).parseTypeFull()
		if err != nil {
			return nil, false, err
		}
		return &CqlType{Kind: Set, Elem: elem}, unknown, nil

	case "MapType":
		args, err := p.parseArgs()
		if err != nil {
			return nil, false, err
		}
		if len(args) != 2 {
			return nil, false, base.NewFormatError("statistics", int64(p.pos), base.MarshallerGrammar, "MapType expects 2 arguments")
		}
		k, unk1, err := (&parser{s: args[0]}).parseTypeFull()
		if err != nil {
			return nil, false, err
		}
		v, unk2, err := (&parser{s: args[1]}).parseTypeFull()
		if err != nil {
			return nil, false, err
		}
		return &CqlType{Kind: Map, MapKey: k, MapValue: v}, unk1 || unk2, nil

	case "TupleType":
		args, err := p.parseArgs()
		if err != nil {
			return nil, false, err
		}
		fields := make([]*CqlType, 0, len(args))
		unknown := false
		for _, a := range args {
			ft, unk, err := (&parser{s: a}).parseTypeFull()
			if err != nil {
				return nil, false, err
			}
			unknown = unknown || unk
			fields = append(fields, ft)
		}
		return &CqlType{Kind: Tuple, TupleFields: fields}, unknown, nil

	case "UserType":
		args, err := p.parseArgs()
		if err != nil {
			return nil, false, err
		}
		if len(args) < 2 {
			return nil, false, base.NewFormatError("statistics", int64(p.pos), base.MarshallerGrammar,
				"UserType expects keyspace, name and zero or more field specs")
		}
		keyspace := args[0]
		name, err := hexDecodeIdent(args[1])
		if err != nil {
			return nil, false, err
		}
		unknown := false
		fields := make([]UdtField, 0, len(args)-2)
		for _, spec := range args[2:] {
			colon := strings.IndexByte(spec, ':')
			if colon < 0 {
				return nil, false, base.NewFormatError("statistics", int64(p.pos), base.MarshallerGrammar,
					"UserType field spec %q missing ':'", spec)
			}
			fname, err := hexDecodeIdent(spec[:colon])
			if err != nil {
				return nil, false, err
			}
			ft, unk, err := (&parser{s: spec[colon+1:]}).parseTypeFull()
			if err != nil {
				return nil, false, err
			}
			unknown = unknown || unk
			fields = append(fields, UdtField{Name: fname, Type: ft})
		}
		return &CqlType{Kind: Udt, UdtKeyspace: keyspace, UdtName: name, UdtFields: fields}, unknown, nil

	default:
		if k, ok := primitiveMarshallers[short]; ok {
			// Primitive classes may still carry a parenthesized argument list;
			// consume and ignore it so it is not mistaken for trailing garbage.
			if p.pos < len(p.s) && p.s[p.pos] == '(' {
				if _, err := p.parseArgs(); err != nil {
					return nil, false, err
				}
			}
			return &CqlType{Kind: k}, false, nil
		}
		// Unknown marshaller: degrade to Blob (§4.9), consuming any argument
		// list so the caller's position tracking stays correct.
		if p.pos < len(p.s) && p.s[p.pos] == '(' {
			if _, err := p.parseArgs(); err != nil {
				return nil, false, err
			}
		}
		return &CqlType{Kind: Blob}, true, nil
	}
}

// parseTypeFull parses a standalone type string to completion, the way
// sub-arguments (already split on top-level commas) are parsed.
func (p *parser) parseTypeFull() (*CqlType, bool, error) {
	t, unknown, err := p.parseType()
	if err != nil {
		return nil, false, err
	}
	if p.pos != len(p.s) {
		return nil, false, base.NewFormatError("statistics", int64(p.pos), base.MarshallerGrammar,
			"trailing characters after type: %q", p.s[p.pos:])
	}
	return t, unknown, nil
}

func (p *parser) parseClassName() string {
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == '(' || c == ',' || c == ')' || c == ' ' || c == '\t' {
			break
		}
		p.pos++
	}
	return p.s[start:p.pos]
}

// parseArgs parses a parenthesized, comma-separated argument list, where
// commas nested inside inner parens do not split the outer list.
func (p *parser) parseArgs() ([]string, error) {
	if p.pos >= len(p.s) || p.s[p.pos] != '(' {
		return nil, base.NewFormatError("statistics", int64(p.pos), base.MarshallerGrammar, "expected '(' at %q", p.s[p.pos:])
	}
	p.pos++ // consume '('
	var args []string
	depth := 0
	start := p.pos
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				args = append(args, strings.TrimSpace(p.s[start:p.pos]))
				p.pos++
				return args, nil
			}
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(p.s[start:p.pos]))
				start = p.pos + 1
			}
		}
		p.pos++
	}
	return nil, base.NewFormatError("statistics", int64(p.pos), base.MarshallerGrammar, "unterminated argument list")
}

func hexDecodeIdent(s string) (string, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", base.NewFormatError("statistics", -1, base.MarshallerGrammar, "invalid hex identifier %q: %v", s, err)
	}
	return string(b), nil
}

// MarshallerString renders t back into the Cassandra marshaller class
// string grammar, the inverse of ParseMarshaller, used by the writer to
// produce Statistics.db's serialization header (§4.8) from a declared
// TypeSchema.
func (t *CqlType) MarshallerString() string {
	s := t.marshallerBody()
	if t.Frozen && !t.Kind.IsPrimitive() {
		return marshalPackage + "FrozenType(" + s + ")"
	}
	return s
}

func (t *CqlType) marshallerBody() string {
	switch t.Kind {
	case List:
		return marshalPackage + "ListType(" + t.Elem.MarshallerString() + ")"
	case Set:
		return marshalPackage + "SetType(" + t.Elem.MarshallerString() + ")"
	case Map:
		return marshalPackage + "MapType(" + t.MapKey.MarshallerString() + "," + t.MapValue.MarshallerString() + ")"
	case Tuple:
		parts := make([]string, len(t.TupleFields))
		for i, f := range t.TupleFields {
			parts[i] = f.MarshallerString()
		}
		return marshalPackage + "TupleType(" + strings.Join(parts, ",") + ")"
	case Udt:
		parts := []string{t.UdtKeyspace, hex.EncodeToString([]byte(t.UdtName))}
		for _, f := range t.UdtFields {
			parts = append(parts, hex.EncodeToString([]byte(f.Name))+":"+f.Type.MarshallerString())
		}
		return marshalPackage + "UserType(" + strings.Join(parts, ",") + ")"
	default:
		name, ok := marshallerNames[t.Kind]
		if !ok {
			name = "BytesType"
		}
		return marshalPackage + name
	}
}
