// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package base holds the small set of types shared by every layer of the
// decoder: the error taxonomy, the logger interface callers may inject, and
// a couple of process-wide constants (the container recursion bound, the
// cancellation check interval). Nothing here reaches back up into sstable or
// cql; it exists so those packages don't have to import each other just to
// report an error.
package base

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorKind discriminates the FormatError sub-kinds of spec §7. It is not an
// error itself; FormatError.Kind reports it.
type ErrorKind int

const (
	_ ErrorKind = iota
	UnknownMagic
	UnsupportedVersion
	FooterCrcMismatch
	ChunkCrcMismatch
	VintOverrun
	Utf8Invalid
	NegativeLength
	TupleArityMismatch
	DepthExceeded
	MarshallerGrammar
	TocInconsistency
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownMagic:
		return "UnknownMagic"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case FooterCrcMismatch:
		return "FooterCrcMismatch"
	case ChunkCrcMismatch:
		return "ChunkCrcMismatch"
	case VintOverrun:
		return "VintOverrun"
	case Utf8Invalid:
		return "Utf8Invalid"
	case NegativeLength:
		return "NegativeLength"
	case TupleArityMismatch:
		return "TupleArityMismatch"
	case DepthExceeded:
		return "DepthExceeded"
	case MarshallerGrammar:
		return "MarshallerGrammar"
	case TocInconsistency:
		return "TocInconsistency"
	default:
		return "Unknown"
	}
}

// FormatError reports an on-disk invariant violation (spec §7). It always
// carries the component the violation was found in, the byte offset (or -1
// if not applicable) and the precise sub-kind, so the caller can render a
// byte-exact diagnostic without the error string being parsed.
type FormatError struct {
	Component string
	Offset    int64
	Kind      ErrorKind
	msg       string
}

func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("cqlite: %s: %s at offset %d: %s", e.Component, e.Kind, e.Offset, e.msg)
	}
	return fmt.Sprintf("cqlite: %s: %s: %s", e.Component, e.Kind, e.msg)
}

// NewFormatError constructs a FormatError with a formatted message. offset
// should be -1 when the violation has no single associated byte position.
func NewFormatError(component string, offset int64, kind ErrorKind, format string, args ...interface{}) error {
	return errors.WithStack(&FormatError{
		Component: component,
		Offset:    offset,
		Kind:      kind,
		msg:       fmt.Sprintf(format, args...),
	})
}

// AsFormatError unwraps err looking for a *FormatError, the way callers are
// expected to branch on spec §7's taxonomy.
func AsFormatError(err error) (*FormatError, bool) {
	var fe *FormatError
	ok := errors.As(err, &fe)
	return fe, ok
}

// Sentinel errors for the remaining taxonomy members of spec §7 that don't
// carry component-specific fields the way FormatError does.
var (
	// ErrNotFound is returned when a requested partition key or component is
	// absent. Wrap with errors.Wrapf to add context; test with errors.Is.
	ErrNotFound = errors.New("cqlite: not found")

	// ErrCancelled is returned when a caller-supplied cancellation flag was
	// observed at a row or partition boundary.
	ErrCancelled = errors.New("cqlite: cancelled")

	// ErrSourceChanged is returned when a TableDirectory detects that a
	// component file's size, inode or mtime drifted since open.
	ErrSourceChanged = errors.New("cqlite: source changed")
)

// SchemaMismatchError reports that a Statistics-declared column type
// disagrees with a consumer-supplied expectation.
type SchemaMismatchError struct {
	Column   string
	Declared string
	Expected string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("cqlite: schema mismatch on column %q: declared %s, expected %s",
		e.Column, e.Declared, e.Expected)
}
