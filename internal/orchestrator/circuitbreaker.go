// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package orchestrator

// excessiveCrashRate implements the worker's circuit breaker (§4.E, §8): a
// population whose early crash rate is implausibly high is almost always a
// harness bug, not a finding, so the worker aborts its mutation loop rather
// than filling the crash archive. Thresholds loosen as the sample grows,
// since a handful of early crashes is much less informative than the same
// rate over a thousand runs.
func excessiveCrashRate(total, crashed int) bool {
	if total < 10 {
		return false
	}
	rate := float64(crashed) / float64(total)
	switch {
	case total < 100:
		return rate > 0.25
	case total < 1000:
		return rate > 0.10
	default:
		return rate > 0.05
	}
}
