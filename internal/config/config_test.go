// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRate(t *testing.T) {
	r, err := ParseRate("lots")
	assert.NoError(t, err)
	assert.Equal(t, RateLots, r)
	assert.InDelta(t, 0.25, r.Probability(), 1e-9)

	_, err = ParseRate("bogus")
	assert.Error(t, err)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("FFFC_DATA_PATH", "/tmp/fffc-data")
	t.Setenv("FFFC_MUTATION_COUNT", "-1")
	t.Setenv("FFFC_MAX_STATE_COUNT", "8")
	t.Setenv("FFFC_MUTATION_RATE", "LOTS")
	t.Setenv("FFFC_DEBUG_REPLAY", "/tmp/replay.log///")

	c, err := FromEnv()
	assert.NoError(t, err)
	assert.Equal(t, "/tmp/fffc-data", c.DataPath)
	assert.Equal(t, -1, c.MutationCount)
	assert.Equal(t, 8, c.MaxStateCount)
	assert.Equal(t, RateLots, c.MutationRate)
	assert.Equal(t, "/tmp/replay.log", c.DebugReplayPath)
}

func TestFromEnvRejectsBadCount(t *testing.T) {
	t.Setenv("FFFC_MUTATION_COUNT", "-2")
	_, err := FromEnv()
	assert.Error(t, err)
}
