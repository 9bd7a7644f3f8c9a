// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fffctestutil holds the small set of test helpers shared across
// this repo's packages.
package fffctestutil

import (
	"os"
	"strconv"
	"testing"
	"time"
)

// Seed returns a PRNG seed for a test's mutation engine: SYZ_SEED overrides
// it for reproducing a specific failure, CI pins it to 0 for deterministic
// coverage reports, and otherwise it is derived from the current time so
// repeated runs exercise different mutation sequences.
func Seed(t *testing.T) uint64 {
	t.Helper()
	seed := uint64(time.Now().UnixNano())
	if fixed := os.Getenv("SYZ_SEED"); fixed != "" {
		if parsed, err := strconv.ParseUint(fixed, 0, 64); err == nil {
			seed = parsed
		}
	}
	if os.Getenv("CI") != "" {
		seed = 0
	}
	t.Logf("seed=%v", seed)
	return seed
}
