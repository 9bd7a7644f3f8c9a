// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package hook models the interception primitive the core consumes as a
// black box (§6): Install/Remove around a single opaque handle, strictly
// paired around the real call (§3 invariants). Go has no portable
// inline-trampoline-at-an-address primitive, so the interception point is an
// explicit call into the orchestrator at the caller's call site; Hook's job
// is narrower than the original's machine-code patch — it is the re-entrancy
// guard that lets the real call recurse into itself without being fuzzed
// again, the same contract the original states as "allow call-through after
// remove" (§9).
package hook

import "sync"

// Hook guards against re-entrant fuzzing while the real call is executing.
type Hook interface {
	// Installed reports whether interception is currently active.
	Installed() bool
	// Remove disables interception; a call observed while removed runs
	// straight through to the real target.
	Remove() error
	// Install re-enables interception after the real call returns.
	Install() error
}

// ReentrancyGuard is the default Hook: a simple installed flag, toggled
// strictly around the real call by the orchestrator.
type ReentrancyGuard struct {
	mu        sync.Mutex
	installed bool
}

// NewReentrancyGuard returns a guard that starts installed.
func NewReentrancyGuard() *ReentrancyGuard {
	return &ReentrancyGuard{installed: true}
}

func (g *ReentrancyGuard) Installed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.installed
}

// Remove is idempotent: removing an already-removed guard is a no-op, not an
// error — matching setup_interceptor's no-op-with-warning contract (§4.E).
func (g *ReentrancyGuard) Remove() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.installed = false
	return nil
}

func (g *ReentrancyGuard) Install() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.installed = true
	return nil
}
