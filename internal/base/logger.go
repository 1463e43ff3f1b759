// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import "context"

// LoggerAndTracer is the logging collaborator a caller may inject via
// OpenOptions. In its absence, warnings are discarded (spec §6.5) — see
// DiscardLogger below, which is what Open defaults to.
//
// This mirrors the teacher's base.LoggerAndTracer, used in sstable's footer
// reader to report slow reads without paying for an interface boxing
// allocation when tracing is disabled.
type LoggerAndTracer interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	IsTracingEnabled(ctx context.Context) bool
	Eventf(ctx context.Context, format string, args ...interface{})
}

// DiscardLogger implements LoggerAndTracer by discarding everything.
type DiscardLogger struct{}

func (DiscardLogger) Infof(string, ...interface{})             {}
func (DiscardLogger) Errorf(string, ...interface{})            {}
func (DiscardLogger) IsTracingEnabled(context.Context) bool     { return false }
func (DiscardLogger) Eventf(context.Context, string, ...interface{}) {}

var _ LoggerAndTracer = DiscardLogger{}
