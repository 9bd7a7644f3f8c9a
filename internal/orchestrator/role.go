// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/google/fffc/internal/fffclog"
)

// MaybeRunRole is the re-exec trampoline: every binary that uses this
// package calls it first thing in main(). If FFFC_ROLE is unset this
// process is the program's ordinary entry point and MaybeRunRole returns
// immediately; otherwise it is one of the process tree's replicas, it runs
// the named role to completion, and it never returns to the caller.
func MaybeRunRole() {
	raw := os.Getenv(envRole)
	if raw == "" {
		return
	}

	state, err := decodeRoleState()
	if err != nil {
		fffclog.Fatalf("orchestrator: %v", err)
	}
	fffclog.SetLevel(state.Cfg.LogLevel)

	ctx := context.Background()
	var runErr error
	switch role(raw) {
	case roleMonitor:
		runErr = runMonitor(ctx, state)
	case roleWorker:
		runErr = runWorker(ctx, state)
	case roleMutation:
		runErr = runMutationChild(ctx, state)
	default:
		runErr = fmt.Errorf("orchestrator: unknown role %q", raw)
	}
	if runErr != nil {
		fffclog.Logf(fffclog.Error, "orchestrator: role %s: %v", raw, runErr)
		os.Exit(1)
	}
	os.Exit(0)
}
