// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/google/fffc/internal/config"
	"github.com/google/fffc/internal/coverage"
	"github.com/google/fffc/internal/fffclog"
	"github.com/google/fffc/internal/fffcstate"
)

// runMonitor owns one call's generations: each generation fans out
// ParallelCount workers, waits for all of them, then scores and reaps the
// surviving parent population before starting the next generation (§4.E).
// Metrics are registered on a private registry, since every monitor is its
// own re-exec'd process rather than a goroutine sharing the default one.
func runMonitor(ctx context.Context, s roleState) error {
	call := &fffcstate.Call{Dir: s.CallDir, ParentsPath: s.ParentsPath, FeaturesPath: s.FeaturesPath}

	metrics, err := coverage.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("monitor: new metrics: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("monitor: resolve executable: %w", err)
	}

	generations := generationCount(s.Cfg)

	for gen := 0; generations < 0 || gen < generations; gen++ {
		genState, err := fffcstate.SetupGenerationState(call)
		if err != nil {
			return fmt.Errorf("monitor: setup generation state: %w", err)
		}

		var g errgroup.Group
		for w := 0; w < s.Cfg.ParallelCount; w++ {
			ws := s
			ws.WorkerIndex = w
			g.Go(func() error {
				cmd, err := spawn(exe, roleWorker, ws, "", "")
				if err != nil {
					return err
				}
				return cmd.Wait()
			})
		}
		if err := g.Wait(); err != nil {
			fffclog.Logf(fffclog.Warn, "monitor: generation %d: %v", gen, err)
		}

		if err := fffcstate.CleanupGenerationState(call, genState, s.Cfg.MaxStateCount, metrics); err != nil {
			return fmt.Errorf("monitor: cleanup generation state: %w", err)
		}
	}
	return nil
}

// generationCount mirrors the original's fffc_keep_generating: a debug
// replay forces exactly one generation regardless of FFFC_GENERATION_COUNT
// (§8 S6), since there is only ever one mutation to reconstruct.
func generationCount(cfg config.Config) int {
	if cfg.DebugReplayPath != "" {
		return 1
	}
	return cfg.GenerationCount
}
