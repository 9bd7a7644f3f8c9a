// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/fffc/internal/config"
	"github.com/google/fffc/internal/fffclog"
	"github.com/google/fffc/internal/fffcstate"
	"github.com/google/fffc/internal/replaylog"
)

// runWorker drives one generation's share of mutation attempts: for each
// iteration it picks a random surviving parent (or starts fresh), seeds a
// mutation child's log from it, spawns the child, and folds the outcome
// back into the parent population or the crash archive (§4.E). The circuit
// breaker in circuitbreaker.go can end the loop early.
func runWorker(ctx context.Context, s roleState) error {
	call := &fffcstate.Call{Dir: s.CallDir, ParentsPath: s.ParentsPath, FeaturesPath: s.FeaturesPath}
	parents, err := fffcstate.OpenParentsFile(s.ParentsPath)
	if err != nil {
		return fmt.Errorf("worker: open parents file: %w", err)
	}
	global := &fffcstate.Global{Dir: s.GlobalDir, CrashDir: s.CrashDir}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("worker: resolve executable: %w", err)
	}

	rnd := rand.New(rand.NewSource(int64(s.Identity) ^ int64(s.WorkerIndex)<<32 ^ time.Now().UnixNano()))

	count := mutationCount(s.Cfg)

	total, crashedCount := 0, 0
	for i := 0; count < 0 || i < count; i++ {
		if excessiveCrashRate(total, crashedCount) {
			fffclog.Logf(fffclog.Warn, "worker %d: stopping early, excessive crash rate %d/%d",
				s.WorkerIndex, crashedCount, total)
			break
		}

		m, err := fffcstate.SetupMutationState(call, s.TargetName, i)
		if err != nil {
			return fmt.Errorf("worker: setup mutation state: %w", err)
		}

		if err := seedMutationLog(parents, rnd, m.LogPath, s.CallCount, s.Identity); err != nil {
			return fmt.Errorf("worker: seed mutation log: %w", err)
		}

		ws := s
		ws.MutationDir = m.Dir
		ws.Seed = rnd.Uint64()
		cmd, err := spawn(exe, roleMutation, ws, m.StdoutPath, m.StderrPath)
		if err != nil {
			return fmt.Errorf("worker: spawn mutation child: %w", err)
		}
		waitErr := cmd.Wait()

		total++
		crashed := waitErr != nil
		if _, statErr := os.Stat(m.CrashPath); statErr == nil {
			crashed = true
		}
		if crashed {
			crashedCount++
			logCrashPreview(s.WorkerIndex, i, m)
		}

		if err := fffcstate.CleanupMutationState(global, call, m, parents, crashed); err != nil {
			return fmt.Errorf("worker: cleanup mutation state: %w", err)
		}
	}
	return nil
}

// mutationCount mirrors the original's fffc_keep_mutating: a debug replay
// forces exactly one mutation attempt regardless of FFFC_MUTATION_COUNT
// (§8 S6), a single forced reconstruction rather than a search.
func mutationCount(cfg config.Config) int {
	if cfg.DebugReplayPath != "" {
		return 1
	}
	return cfg.MutationCount
}

// crashPreviewBytes bounds how much of a crashed mutation's captured
// stdout/stderr gets logged inline; the full capture is preserved verbatim
// in the crash archive regardless (CleanupMutationState renames the whole
// mutation directory there).
const crashPreviewBytes = 2048

// logCrashPreview logs a size-bounded excerpt of a crashed mutation's
// captured output, so a human watching logs gets an immediate signal
// without opening the crash archive.
func logCrashPreview(workerIndex, iter int, m *fffcstate.Mutation) {
	for _, p := range []string{m.StderrPath, m.StdoutPath} {
		data, err := os.ReadFile(p)
		if err != nil || len(data) == 0 {
			continue
		}
		fffclog.Logf(fffclog.Error, "worker %d: mutation %d crashed, %s:\n%s",
			workerIndex, iter, p, truncateCapture(data, crashPreviewBytes/2, crashPreviewBytes/2))
	}
}

// truncateCapture keeps up to begin bytes from the start and end bytes from
// the end of a captured log, replacing the middle with a marker — useful
// for logging a crash's output inline without flooding the log with a
// multi-megabyte capture.
func truncateCapture(data []byte, begin, end int) string {
	if begin+end >= len(data) {
		return string(data)
	}
	var b bytes.Buffer
	b.Write(data[:begin])
	b.WriteString("\n...<<cut ")
	fmt.Fprintf(&b, "%d bytes>>...\n", len(data)-begin-end)
	b.Write(data[len(data)-end:])
	return b.String()
}

// seedMutationLog inherits a random surviving parent's replay log, or
// starts a fresh one if the population is still empty (the first
// generation's first mutation).
func seedMutationLog(parents *fffcstate.ParentsFile, rnd *rand.Rand, logPath string, callCount, identity uint64) error {
	parentDir, ok, err := parents.RandomEntry(rnd)
	if err != nil {
		return err
	}
	if !ok {
		log, err := replaylog.Create(logPath, callCount, identity)
		if err != nil {
			return err
		}
		return log.Close()
	}
	return replaylog.CopyFile(fffcstate.PathsForMutationDir(parentDir).LogPath, logPath)
}
