// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/google/fffc/internal/config"
	"github.com/google/fffc/internal/fffclog"
	"github.com/google/fffc/internal/fffcstate"
	"github.com/google/fffc/internal/mutate"
	"github.com/google/fffc/internal/replaylog"
)

// mutationCPULimitSeconds bounds every mutation child's CPU time, so a
// mutated input that spins forever cannot stall the worker (§5, §8).
const mutationCPULimitSeconds = 1

// runMutationChild restricts itself, reconstructs its arguments (from either
// its inherited lineage or a user-supplied debug log), invokes the
// registered target, and records the outcome (§4.E).
func runMutationChild(ctx context.Context, s roleState) error {
	if err := unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: mutationCPULimitSeconds, Max: mutationCPULimitSeconds}); err != nil {
		fffclog.Fatalf("mutation child: setrlimit CPU: %v", err)
	}

	target, err := lookup(s.TargetName)
	if err != nil {
		return err
	}

	m := fffcstate.PathsForMutationDir(s.MutationDir)
	args, tracer, err := prepareMutationArgs(s, m, target)
	if err != nil {
		return err
	}

	tracer.Trap()

	if invokeTarget(ctx, target, args) {
		if err := os.WriteFile(m.CrashPath, []byte(time.Now().Format(time.RFC3339Nano)), 0o644); err != nil {
			fffclog.Logf(fffclog.Warn, "mutation child: write crash marker: %v", err)
		}
		os.Exit(2)
	}
	return nil
}

// prepareMutationArgs restores the call's pristine argument snapshot and
// then either replays a user-supplied debug log onto it verbatim — instead
// of the mutation's own log, and without running a further mutation pass —
// or reconstructs this mutation's inherited lineage before running one more
// pass of its own (§4.A "Debug replay", §4.E). It returns the Tracer so the
// caller can consult it (Trap) right before the real call: a debug replay
// that actually ran arms it, matching the original's break_now.
func prepareMutationArgs(s roleState, m *fffcstate.Mutation, target registered) (interface{}, *breakpointTracer, error) {
	snapshot, err := os.ReadFile(s.ArgsSnapshotPath)
	if err != nil {
		return nil, nil, fmt.Errorf("mutation child: read args snapshot: %w", err)
	}
	args := target.newArgs()
	if err := mutate.Restore(snapshot, args); err != nil {
		return nil, nil, fmt.Errorf("mutation child: restore snapshot: %w", err)
	}

	tracer := newBreakpointTracer(s.Cfg.Tracing)

	if s.Cfg.DebugReplayPath != "" {
		ran, err := mutate.ApplyReplay(s.Cfg.DebugReplayPath, s.CallCount, s.Identity, true, args)
		if err != nil {
			return nil, nil, fmt.Errorf("mutation child: apply debug replay: %w", err)
		}
		if ran {
			tracer.Arm()
		}
		return args, tracer, nil
	}

	if _, err := mutate.ApplyReplay(m.LogPath, s.CallCount, s.Identity, false, args); err != nil {
		return nil, nil, fmt.Errorf("mutation child: apply inherited replay: %w", err)
	}

	log, err := replaylog.OpenAppend(m.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("mutation child: open log for append: %w", err)
	}
	defer log.Close()

	engine := mutate.NewEngine(s.Seed, s.Cfg.MutationRate.Probability(), log)
	if rollResizePass(engine, s.Cfg) {
		engine.SaveAndSwitch(mutate.ModeResize)
		_, err := engine.MutateArguments(args)
		engine.Restore()
		if err != nil {
			return nil, nil, fmt.Errorf("mutation child: resize pass: %w", err)
		}
	}
	if _, err := engine.MutateArguments(args); err != nil {
		return nil, nil, fmt.Errorf("mutation child: mutate arguments: %w", err)
	}
	return args, tracer, nil
}

// rollResizePass decides, per FFFC_RESIZE_RATE, whether this mutation runs a
// resize pass over its arguments before its normal pass (§4.B).
func rollResizePass(engine *mutate.Engine, cfg config.Config) bool {
	p := cfg.ResizeRate.Probability()
	return p > 0 && engine.RollProbability(p)
}

// invokeTarget calls the registered target and reports whether it crashed.
// A returned error is treated as an ordinary outcome of the call, not a
// crash; only a recovered panic (or, transitively, the process dying
// underneath cmd.Wait in the caller) counts as one.
func invokeTarget(ctx context.Context, t registered, args interface{}) (crashed bool) {
	defer func() {
		if r := recover(); r != nil {
			fffclog.Logf(fffclog.Error, "mutation child: target panicked: %v", r)
			crashed = true
		}
	}()
	if err := t.call(ctx, args); err != nil {
		fffclog.Logf(fffclog.Debug, "mutation child: target returned error: %v", err)
	}
	return false
}
