// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fffcstate

import (
	"os"
	"time"

	"github.com/google/fffc/internal/coverage"
	"github.com/google/fffc/internal/fffclog"
)

// Generation is the per-generation handle onto a call's parents and
// features files (§3 "Generation state").
type Generation struct {
	Parents   *ParentsFile
	Features  *coverage.FeaturesFile
	StartedAt time.Time
}

// SetupGenerationState opens the call's parents and features files for a new
// generation.
func SetupGenerationState(call *Call) (*Generation, error) {
	parents, err := OpenParentsFile(call.ParentsPath)
	if err != nil {
		return nil, err
	}
	features, err := coverage.OpenFeaturesFile(call.FeaturesPath)
	if err != nil {
		return nil, err
	}
	return &Generation{Parents: parents, Features: features, StartedAt: time.Now()}, nil
}

// CleanupGenerationState scores every surviving parent's coverage, evicts
// the lowest scorers down to maxStateCount, and closes the generation's open
// files. If any parent cannot be scored, the error is logged and cleanup
// stops there: nothing is evicted and the parents file is left as-is. It logs
// the generation's elapsed time (from its recorded start time) and survivor
// count.
func CleanupGenerationState(call *Call, gen *Generation, maxStateCount int, metrics *coverage.Metrics) error {
	defer gen.Features.Close()

	parents, err := gen.Parents.ReadAll()
	if err != nil {
		return err
	}

	var scored []coverage.ScoredParent
	for _, p := range parents {
		counters, err := coverage.ParseGCDADir(p + "/coverage")
		if err != nil {
			fffclog.Logf(fffclog.Error, "fffcstate: scoring %s: %v", p, err)
			return nil
		}
		score, err := coverage.Score(gen.Features, counters)
		if err != nil {
			fffclog.Logf(fffclog.Error, "fffcstate: scoring %s: %v", p, err)
			return nil
		}
		scored = append(scored, coverage.ScoredParent{Path: p, Score: score})
		if metrics != nil {
			metrics.NoveltyScore.Observe(score)
		}
	}

	evictedBefore := len(parents)
	survivors, err := coverage.Reap(scored, maxStateCount, func(path string) error {
		return os.RemoveAll(path)
	})
	if err != nil {
		return err
	}
	if err := gen.Parents.ReplaceAll(survivors); err != nil {
		return err
	}

	if metrics != nil {
		metrics.ParentPopulation.Set(float64(len(survivors)))
		metrics.Evicted.Add(float64(evictedBefore - len(survivors)))
	}

	elapsed := time.Since(gen.StartedAt)
	fffclog.Logf(fffclog.Info, "generation done in %s: %d survivors (of %d)", elapsed, len(survivors), evictedBefore)
	return nil
}
