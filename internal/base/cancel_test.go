// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNilCancelFlagNeverCancelled(t *testing.T) {
	var f *CancelFlag
	require.False(t, f.Cancelled())
}

func TestCancelFlagIsIdempotentAndSticky(t *testing.T) {
	var f CancelFlag
	require.False(t, f.Cancelled())
	f.Cancel()
	require.True(t, f.Cancelled())
	f.Cancel()
	require.True(t, f.Cancelled())
}
