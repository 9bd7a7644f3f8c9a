// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fffclog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"DEBUG", Debug},
		{"info", Info},
		{" Warn ", Warn},
		{"ERROR", Error},
		{"NONE", None},
		{"garbage", Info},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParseLevel(c.in), "ParseLevel(%q)", c.in)
	}
}

func TestSetLevelGating(t *testing.T) {
	defer SetLevel(Info)

	SetLevel(Error)
	assert.False(t, enabled(Debug))
	assert.False(t, enabled(Warn))
	assert.True(t, enabled(Error))

	SetLevel(Debug)
	assert.True(t, enabled(Debug))
}

func TestErrorfWraps(t *testing.T) {
	defer SetLevel(Info)
	SetLevel(None)
	err := Errorf("boom: %d", 7)
	assert.EqualError(t, err, "boom: 7")
}
