// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReentrancyGuardStartsInstalled(t *testing.T) {
	g := NewReentrancyGuard()
	assert.True(t, g.Installed())
}

func TestReentrancyGuardRemoveInstall(t *testing.T) {
	g := NewReentrancyGuard()
	require.NoError(t, g.Remove())
	assert.False(t, g.Installed())
	require.NoError(t, g.Install())
	assert.True(t, g.Installed())
}

func TestReentrancyGuardRemoveIsIdempotent(t *testing.T) {
	g := NewReentrancyGuard()
	require.NoError(t, g.Remove())
	require.NoError(t, g.Remove()) // no-op, not an error
	assert.False(t, g.Installed())
}
