// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcessiveCrashRateBelowSampleFloor(t *testing.T) {
	assert.False(t, excessiveCrashRate(9, 9)) // under the 10-run floor, never trips
}

func TestExcessiveCrashRateThresholds(t *testing.T) {
	assert.True(t, excessiveCrashRate(10, 3))      // 30% of 10 > 25%
	assert.False(t, excessiveCrashRate(10, 2))     // 20% of 10 <= 25%
	assert.True(t, excessiveCrashRate(100, 11))    // 11% of 100 > 10%
	assert.False(t, excessiveCrashRate(100, 10))   // 10% of 100 <= 10%
	assert.True(t, excessiveCrashRate(1000, 51))   // 5.1% of 1000 > 5%
	assert.False(t, excessiveCrashRate(1000, 50))  // 5% of 1000 <= 5%
}
