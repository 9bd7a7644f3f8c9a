// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/google/fffc/internal/config"
)

const (
	envRole  = "FFFC_ROLE"
	envState = "FFFC_ROLE_STATE"
)

// role identifies which body a re-exec'd process should run, replacing the
// original's fork-tree levels (monitor/worker/mutation) with a self re-exec
// (see SPEC_FULL.md's REDESIGN FLAGS).
type role string

const (
	roleMonitor  role = "monitor"
	roleWorker   role = "worker"
	roleMutation role = "mutation"
)

// roleState is everything a re-exec'd process needs to resume at its role,
// carried through FFFC_ROLE_STATE as JSON. It stays small — the argument
// snapshot itself lives in a file under the call directory, referenced by
// ArgsSnapshotPath, rather than being inlined here.
type roleState struct {
	TargetName       string
	CallCount        uint64
	Identity         uint64
	GlobalDir        string
	CrashDir         string
	CallDir          string
	ParentsPath      string
	FeaturesPath     string
	ArgsSnapshotPath string
	WorkerIndex      int
	MutationDir      string
	Seed             uint64
	Cfg              config.Config
}

func (s roleState) encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRoleState() (roleState, error) {
	var s roleState
	raw := os.Getenv(envState)
	if raw == "" {
		return s, fmt.Errorf("orchestrator: %s not set", envState)
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, fmt.Errorf("orchestrator: decode %s: %w", envState, err)
	}
	return s, nil
}

// spawn re-execs the current binary with FFFC_ROLE/FFFC_ROLE_STATE set,
// starting it detached (its own session) so it keeps running after the
// caller returns — the Go-native substitute for the original's fork().
// stdoutPath/stderrPath, if non-empty, redirect the replica's output to a
// file instead of this process's own stderr — mutation children use this to
// capture per-attempt output under their mutation directory (§3 "Mutation
// state"), so a crash preserves what the target printed.
func spawn(executable string, r role, s roleState, stdoutPath, stderrPath string) (*exec.Cmd, error) {
	encoded, err := s.encode()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(executable)
	cmd.Env = append(os.Environ(), envRole+"="+string(r), envState+"="+encoded)

	stdout, err := openCaptureFile(stdoutPath)
	if err != nil {
		return nil, err
	}
	cmd.Stdout = stdout
	stderr, err := openCaptureFile(stderrPath)
	if err != nil {
		return nil, err
	}
	cmd.Stderr = stderr

	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("orchestrator: spawn %s: %w", r, err)
	}
	// The child has its own copy of each fd from Start; this process's copy
	// of any file it opened (as opposed to the shared os.Stderr default) can
	// close immediately.
	if stdoutPath != "" {
		stdout.Close()
	}
	if stderrPath != "" {
		stderr.Close()
	}
	return cmd, nil
}

func openCaptureFile(path string) (*os.File, error) {
	if path == "" {
		return os.Stderr, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open capture file %s: %w", path, err)
	}
	return f, nil
}
