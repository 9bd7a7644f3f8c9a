// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package orchestrator

import "runtime"

// Tracer lets a debug replay hand control to an attached debugger right
// before the real call runs, mirroring the original's fffc_precall raising
// SIGTRAP (§8 "FFFC_TRACING / precall trap").
type Tracer interface {
	Trap()
}

// breakpointTracer is the default Tracer: Trap is a no-op until a debug
// replay has finished reconstructing a call's arguments (Arm), and even then
// only raises the trap when tracing is enabled — a plain (non-debug) run
// never touches runtime.Breakpoint at all.
type breakpointTracer struct {
	tracing  bool
	breakNow bool
}

func newBreakpointTracer(tracing bool) *breakpointTracer {
	return &breakpointTracer{tracing: tracing}
}

// Arm sets breakNow, called once a debug replay has successfully
// reconstructed the crashing call's arguments (§4.A "Debug replay").
func (t *breakpointTracer) Arm() {
	t.breakNow = true
}

// armed reports whether Trap would raise the trap, without raising it —
// tests consult this instead of calling Trap, since runtime.Breakpoint with
// no debugger attached terminates the process.
func (t *breakpointTracer) armed() bool {
	return t.breakNow && t.tracing
}

func (t *breakpointTracer) Trap() {
	if t.armed() {
		runtime.Breakpoint()
	}
}
