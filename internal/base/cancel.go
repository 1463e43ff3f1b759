// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import "sync/atomic"

// MaxTypeDepth is the enforced recursion bound on nested container types
// and values (spec §3.1, §4.3): List/Set/Map/Tuple/Udt/Frozen nesting beyond
// this depth is rejected with DepthExceeded.
const MaxTypeDepth = 32

// CancelCheckInterval is how often (in rows) a partition iterator checks a
// caller-supplied CancelFlag, per the Design Notes ("checked at partition
// boundaries and every N rows within a partition; N defaults to 4096").
const CancelCheckInterval = 4096

// CancelFlag is a cooperative cancellation token (spec §5). It is safe for
// concurrent use: one goroutine calls Cancel, the scanning goroutine polls
// Cancelled at row/partition boundaries.
type CancelFlag struct {
	v atomic.Bool
}

// Cancel requests cancellation. Idempotent.
func (f *CancelFlag) Cancel() { f.v.Store(true) }

// Cancelled reports whether Cancel has been called. A nil *CancelFlag is
// never cancelled, so callers may pass nil to mean "no cancellation".
func (f *CancelFlag) Cancelled() bool {
	if f == nil {
		return false
	}
	return f.v.Load()
}
