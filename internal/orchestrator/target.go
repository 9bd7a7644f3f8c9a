// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/fffc/internal/fffclog"
	"github.com/google/fffc/internal/mutate"
)

// Target is a registered interception point: a chosen entry point whose
// calls are intercepted, fuzzed, and replayed against a caller-supplied
// argument type T. Target replaces the original's code-generated per-target
// stub (§6) — the struct fields it names (target pointer, per-argument
// mutator calls, call expression) map onto T's exported fields (walked
// generically by the mutate package) and the call closure below.
type Target[T any] struct {
	name    string
	newArgs func() *T
	call    func(ctx context.Context, args *T) error
}

// registered adapts a Target[T] to the name-indexed, type-erased form a
// re-exec'd mutation child (which only has a target name, not a Go type
// parameter) can invoke.
type registered struct {
	newArgs func() interface{}
	call    func(ctx context.Context, args interface{}) error
}

var (
	registryMu sync.Mutex
	registry   = map[string]registered{}
)

// Register declares an intercepted function by name. name must be unique
// within the binary and stable across re-exec's of it — mutation children
// look targets up by this name after decoding FFFC_ROLE_STATE, the same way
// Go's own fuzzing worker subprocess relies on the re-exec'd binary having
// the identical registered fuzz targets compiled in.
func Register[T any](name string, newArgs func() *T, call func(ctx context.Context, args *T) error) *Target[T] {
	t := &Target[T]{name: name, newArgs: newArgs, call: call}
	registryMu.Lock()
	registry[name] = registered{
		newArgs: func() interface{} { return newArgs() },
		call: func(ctx context.Context, args interface{}) error {
			return call(ctx, args.(*T))
		},
	}
	registryMu.Unlock()
	return t
}

func lookup(name string) (registered, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	r, ok := registry[name]
	if !ok {
		return registered{}, fmt.Errorf("orchestrator: no target registered as %q", name)
	}
	return r, nil
}

// Intercept is the parallel replacement (§4.E): on every invocation it
// snapshots args, fans out the fuzzing process tree, then lets real run to
// produce the return value the original caller observes. real is called
// exactly once, synchronously, in this process — the process tree spawned
// alongside it never touches this process's memory.
func (t *Target[T]) Intercept(
	ctx context.Context, o *Orchestrator, args *T, real func(context.Context, *T) error,
) error {
	if !o.hook.Installed() {
		// Re-entrant call observed while the hook is removed: let it through
		// unfuzzed so the real call can recurse into itself (§9).
		return real(ctx, args)
	}

	callCount := o.nextCallCount()

	if o.cfg.DebugReplayPath != "" {
		matches, err := debugCallMatches(o.cfg.DebugReplayPath, callCount, o.global.Identity)
		if err != nil {
			fffclog.Logf(fffclog.Warn, "orchestrator: debug replay check: %v", err)
		}
		if !matches {
			return real(ctx, args)
		}
	}

	snapshot, err := mutate.Snapshot(args)
	if err != nil {
		fffclog.Logf(fffclog.Error, "orchestrator: snapshot %s: %v", t.name, err)
		return real(ctx, args)
	}

	if err := o.spawnMonitor(t.name, callCount, snapshot); err != nil {
		fffclog.Logf(fffclog.Error, "orchestrator: spawn monitor for %s: %v", t.name, err)
	}

	if err := o.hook.Remove(); err != nil {
		fffclog.Fatalf("orchestrator: remove hook: %v", err)
	}
	result := real(ctx, args)
	if err := o.hook.Install(); err != nil {
		fffclog.Fatalf("orchestrator: install hook: %v", err)
	}
	return result
}
