// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package orchestrator is the process-tree implementation of the runtime's
// core loop (§4.E): on every intercepted call it snapshots the arguments,
// spawns a detached monitor/worker/mutation-child tree that explores
// mutations of that snapshot across generations, and lets the real call
// proceed untouched in the caller's own process. The tree is built from self
// re-exec's of the current binary rather than fork(), per SPEC_FULL.md's
// REDESIGN FLAGS.
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/fffc/internal/config"
	"github.com/google/fffc/internal/fffcstate"
	"github.com/google/fffc/internal/hook"
	"github.com/google/fffc/internal/replaylog"
)

// Orchestrator owns one target's global state and re-entrancy guard. A
// process embeds one Orchestrator per intercepted function.
type Orchestrator struct {
	cfg    config.Config
	target string
	hook   hook.Hook
	global *fffcstate.Global

	mu sync.Mutex
}

// New creates the global state directories for target and returns an
// Orchestrator ready to intercept calls. identity distinguishes this run
// from any other concurrent run of the same binary/target pair, the
// Go-native substitute for the original's ASLR stack-start nonce
// (SPEC_FULL.md REDESIGN FLAGS).
func New(target string, cfg config.Config, h hook.Hook, identity uint64) (*Orchestrator, error) {
	g, err := fffcstate.NewGlobal(cfg.DataPath, cfg.CrashPath, target, identity)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: new global state: %w", err)
	}
	return &Orchestrator{cfg: cfg, target: target, hook: h, global: g}, nil
}

func (o *Orchestrator) nextCallCount() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.global.NextCallCount()
}

// spawnMonitor snapshots argsSnapshot into the new call's directory and
// starts a detached monitor role to fuzz it.
func (o *Orchestrator) spawnMonitor(targetName string, callCount uint64, argsSnapshot []byte) error {
	call, err := fffcstate.SetupCallState(o.global, callCount)
	if err != nil {
		return fmt.Errorf("orchestrator: setup call state: %w", err)
	}
	snapshotPath := filepath.Join(call.Dir, "args")
	if err := os.WriteFile(snapshotPath, argsSnapshot, 0o644); err != nil {
		return fmt.Errorf("orchestrator: write args snapshot: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("orchestrator: resolve executable: %w", err)
	}

	s := roleState{
		TargetName:       targetName,
		CallCount:        callCount,
		Identity:         o.global.Identity,
		GlobalDir:        o.global.Dir,
		CrashDir:         o.global.CrashDir,
		CallDir:          call.Dir,
		ParentsPath:      call.ParentsPath,
		FeaturesPath:     call.FeaturesPath,
		ArgsSnapshotPath: snapshotPath,
		Cfg:              o.cfg,
	}
	cmd, err := spawn(exe, roleMonitor, s, "", "")
	if err != nil {
		return err
	}
	// The monitor runs independently of this call; this process neither
	// waits for it nor inherits its exit status (§4.E "parallel, not
	// synchronous").
	go func() { _ = cmd.Wait() }()
	return nil
}

// debugCallMatches reports whether the call identified by callCount/identity
// is the one named by the FFFC_DEBUG_REPLAY log at debugPath, without
// applying any of its events.
func debugCallMatches(debugPath string, callCount, identity uint64) (bool, error) {
	return replaylog.Replay(debugPath, callCount, identity, true, noopHandler{})
}

// noopHandler discards replay events, used whenever only the Begin record's
// call/identity match matters.
type noopHandler struct{}

func (noopHandler) OnAllocate(loc, length uint64) error          { return nil }
func (noopHandler) OnWrite(loc uint64, value []byte) error       { return nil }
func (noopHandler) OnCopy(src, dest, length, start uint64) error { return nil }
