// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mutate implements the typed byte-level mutators and the
// mode-aware site-selection state machine (§4.B): the targeted mutation site
// is chosen by a deterministic counter plus RNG scheme; iterative mode fires
// only that site, normal mode may also fire later ones.
package mutate

import (
	"golang.org/x/exp/rand"

	"github.com/google/fffc/internal/replaylog"
)

// Mode is the worker-owned mutation mode. Exactly one is active at a time.
type Mode int

const (
	// ModeCount sums the option counts of every site without mutating.
	ModeCount Mode = iota
	// ModeResize permits only the pointer-resize operation to fire.
	ModeResize
	// ModeIterative fires exactly the one site the counter targets.
	ModeIterative
	// ModeNormal fires the targeted site plus, probabilistically, later ones.
	ModeNormal
	// ModeSmartSkip is observably identical to ModeNormal in this runtime.
	ModeSmartSkip
)

// Engine drives PickOneOrNone across one worker's mutation passes and
// appends every resulting mutation to a replay log.
type Engine struct {
	mode     Mode
	savedOK  bool
	saved    Mode
	counter  int64
	skipRate float64
	rnd      *rand.Rand
	Log      *replaylog.Log
	LFU      *SizeLFU
}

// NewEngine creates a mutation engine seeded from seed, with skipRate the
// probability mass used by ModeNormal's probabilistic continuation
// (FFFC_MUTATION_RATE's SkipRate).
func NewEngine(seed uint64, skipRate float64, log *replaylog.Log) *Engine {
	return &Engine{
		mode:     ModeNormal,
		skipRate: skipRate,
		rnd:      rand.New(rand.NewSource(seed)),
		Log:      log,
		LFU:      NewSizeLFU(4096),
	}
}

// CurrentMode returns the engine's current mode.
func (e *Engine) CurrentMode() Mode { return e.mode }

// RollProbability reports, using the engine's own RNG stream, whether an
// event with probability p fires — the same stream PickOneOrNone draws
// from, so callers outside the mutator menus (e.g. the resize-pass gate)
// stay reproducible under a fixed seed.
func (e *Engine) RollProbability(p float64) bool {
	return e.rnd.Float64() < p
}

// SetMode switches modes outright, returning the previous mode.
func (e *Engine) SetMode(m Mode) Mode {
	old := e.mode
	e.mode = m
	return old
}

// SetCounter sets the mutation_counter directly (used to seed ModeIterative
// to a specific target site, and to support debug replays).
func (e *Engine) SetCounter(v int64) { e.counter = v }

// Counter returns the current mutation_counter value.
func (e *Engine) Counter() int64 { return e.counter }

// SaveAndSwitch captures the current mode into the engine's single save slot
// and switches to m. There is exactly one slot, matching the original's "no
// stack" resize-pass convention (§4.B).
func (e *Engine) SaveAndSwitch(m Mode) {
	e.saved = e.mode
	e.savedOK = true
	e.mode = m
}

// Restore returns to the mode captured by the most recent SaveAndSwitch.
func (e *Engine) Restore() {
	if e.savedOK {
		e.mode = e.saved
		e.savedOK = false
	}
}

// PickOneOrNone is the heart of the mode state machine: given that a mutator
// offers n equally-likely options, it returns -1 (do not mutate) or an index
// in [0,n) to apply, and updates the counter/mode bookkeeping described in
// §4.B.
func (e *Engine) PickOneOrNone(n int) int {
	if n <= 0 {
		return -1
	}
	switch e.mode {
	case ModeCount:
		e.counter += int64(n)
		return -1
	case ModeResize:
		e.counter -= int64(n)
		return -1
	case ModeIterative:
		return e.pickIterative(n)
	default: // ModeNormal, ModeSmartSkip
		return e.pickNormal(n)
	}
}

// pickIterative fires exactly once: when the counter, decremented by n each
// miss, lands in [1,n].
func (e *Engine) pickIterative(n int) int {
	if e.counter <= 0 {
		return -1
	}
	if e.counter <= int64(n) {
		e.counter = 0
		return int(e.rnd.Int63n(int64(n)))
	}
	e.counter -= int64(n)
	return -1
}

// pickNormal reuses the iterative targeting rule to guarantee the targeted
// site always fires, then — unlike iterative mode — keeps considering later
// sites, each skipped independently with probability skipRate/(1+skipRate)
// and fired otherwise.
func (e *Engine) pickNormal(n int) int {
	targeted := false
	if e.counter > 0 {
		if e.counter <= int64(n) {
			e.counter = 0
			targeted = true
		} else {
			e.counter -= int64(n)
		}
	}
	if !targeted {
		if e.rnd.Float64() < e.skipRate/(1+e.skipRate) {
			return -1
		}
	}
	return int(e.rnd.Int63n(int64(n)))
}
