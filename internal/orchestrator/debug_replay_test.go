// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/fffc/internal/config"
	"github.com/google/fffc/internal/fffcstate"
	"github.com/google/fffc/internal/mutate"
	"github.com/google/fffc/internal/replaylog"
)

// TestGenerationAndMutationCountForceSingleInDebugMode covers S6: a debug
// replay forces exactly one generation and one mutation attempt, regardless
// of the configured FFFC_GENERATION_COUNT/FFFC_MUTATION_COUNT, matching the
// original's fffc_keep_generating/fffc_keep_mutating.
func TestGenerationAndMutationCountForceSingleInDebugMode(t *testing.T) {
	cfg := config.Default()
	cfg.GenerationCount = 7
	cfg.MutationCount = 1000
	assert.Equal(t, 7, generationCount(cfg))
	assert.Equal(t, 1000, mutationCount(cfg))

	cfg.DebugReplayPath = "/tmp/some-debug-log"
	assert.Equal(t, 1, generationCount(cfg))
	assert.Equal(t, 1, mutationCount(cfg))
}

type debugReplayArgs struct {
	N int32
}

// TestPrepareMutationArgsDebugReplay covers S6's core claim: in debug mode,
// a mutation child reconstructs its arguments from the user-supplied
// FFFC_DEBUG_REPLAY log instead of its own lineage, and arms the tracer once
// that replay actually ran, so Trap would raise a breakpoint right before
// the call — without this test ever calling the real Trap, since
// runtime.Breakpoint with no debugger attached kills the test process.
func TestPrepareMutationArgsDebugReplay(t *testing.T) {
	dir := t.TempDir()

	original := &debugReplayArgs{N: 5}
	snapshot, err := mutate.Snapshot(original)
	require.NoError(t, err)
	snapshotPath := filepath.Join(dir, "args")
	require.NoError(t, os.WriteFile(snapshotPath, snapshot, 0o644))

	const callCount, identity = uint64(1), uint64(2)
	logPath := filepath.Join(dir, "debug-log")
	log, err := replaylog.Create(logPath, callCount, identity)
	require.NoError(t, err)

	// Produce a log the way a real mutation child would: one iterative
	// mutation site forced to fire against a copy of the original args.
	mutated := &debugReplayArgs{N: 5}
	engine := mutate.NewEngine(1, 0, log)
	engine.SetMode(mutate.ModeIterative)
	engine.SetCounter(1)
	changed, err := engine.MutateArguments(mutated)
	require.NoError(t, err)
	require.True(t, changed, "the forced iterative site must fire")
	require.NoError(t, log.Close())

	Register("orchestrator-test-debug-replay",
		func() *debugReplayArgs { return &debugReplayArgs{} },
		func(ctx context.Context, a *debugReplayArgs) error { return nil },
	)
	r, err := lookup("orchestrator-test-debug-replay")
	require.NoError(t, err)

	s := roleState{
		TargetName:       "orchestrator-test-debug-replay",
		CallCount:        callCount,
		Identity:         identity,
		ArgsSnapshotPath: snapshotPath,
		Cfg: config.Config{
			DebugReplayPath: logPath,
			Tracing:         true,
		},
	}
	m := fffcstate.PathsForMutationDir(filepath.Join(dir, "mutation-0"))

	args, tracer, err := prepareMutationArgs(s, m, r)
	require.NoError(t, err)
	assert.Equal(t, mutated.N, args.(*debugReplayArgs).N,
		"the debug log must replay onto the fresh snapshot, reproducing the recorded mutation")
	assert.True(t, tracer.armed(), "a debug replay that ran must arm the tracer when tracing is enabled")

	// Tracing disabled: the replay still runs, but Trap must never fire.
	s.Cfg.Tracing = false
	_, tracer2, err := prepareMutationArgs(s, m, r)
	require.NoError(t, err)
	assert.False(t, tracer2.armed(), "tracing disabled must keep the tracer unarmed even after a successful replay")
}

// TestPrepareMutationArgsDebugReplayMismatch covers the begin-mismatch path:
// a debug log for a different call/identity must not arm the tracer, and
// leaves args at their pristine, unreplayed snapshot value.
func TestPrepareMutationArgsDebugReplayMismatch(t *testing.T) {
	dir := t.TempDir()

	original := &debugReplayArgs{N: 5}
	snapshot, err := mutate.Snapshot(original)
	require.NoError(t, err)
	snapshotPath := filepath.Join(dir, "args")
	require.NoError(t, os.WriteFile(snapshotPath, snapshot, 0o644))

	logPath := filepath.Join(dir, "debug-log")
	log, err := replaylog.Create(logPath, 999, 999)
	require.NoError(t, err)
	require.NoError(t, log.Close())

	Register("orchestrator-test-debug-replay-mismatch",
		func() *debugReplayArgs { return &debugReplayArgs{} },
		func(ctx context.Context, a *debugReplayArgs) error { return nil },
	)
	r, err := lookup("orchestrator-test-debug-replay-mismatch")
	require.NoError(t, err)

	s := roleState{
		TargetName:       "orchestrator-test-debug-replay-mismatch",
		CallCount:        1,
		Identity:         2,
		ArgsSnapshotPath: snapshotPath,
		Cfg: config.Config{
			DebugReplayPath: logPath,
			Tracing:         true,
		},
	}
	m := fffcstate.PathsForMutationDir(filepath.Join(dir, "mutation-0"))

	args, tracer, err := prepareMutationArgs(s, m, r)
	require.NoError(t, err)
	assert.Equal(t, original.N, args.(*debugReplayArgs).N, "a mismatched debug log must leave args at the pristine snapshot")
	assert.False(t, tracer.armed(), "a mismatched debug log must not arm the tracer")
}
