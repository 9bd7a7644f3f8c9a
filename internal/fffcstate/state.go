// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fffcstate implements the on-disk state hierarchy (§3, §4.D):
// global -> call -> generation -> mutation directories, the parents file,
// and the lifecycle transitions between them.
package fffcstate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxPathLength bounds every path this package produces or accepts, matching
// the original runtime's fixed-stride parents-file record size.
const MaxPathLength = 4096

func timestamp() string {
	return strings.ReplaceAll(time.Now().Format("2006-01-02 15:04:05.000000"), " ", "_")
}

// Global is the run-scoped state created once per target process (§3).
type Global struct {
	DataPath  string
	CrashPath string
	Dir       string // <data_path>/fffc_state.<target>.<timestamp>.<uuid>
	CrashDir  string // <crash_path>/fffc_crashes.<target>.<timestamp>.<uuid>
	Identity  uint64 // generation nonce, replaces the forked stack_start sentinel
	CallCount uint64
}

// NewGlobal creates the global state directories for target.
func NewGlobal(dataPath, crashPath, target string, identity uint64) (*Global, error) {
	ts := timestamp()
	g := &Global{
		DataPath:  dataPath,
		CrashPath: crashPath,
		Dir:       filepath.Join(dataPath, fmt.Sprintf("fffc_state.%s.%s.%s", target, ts, uuid.NewString())),
		CrashDir:  filepath.Join(crashPath, fmt.Sprintf("fffc_crashes.%s.%s.%s", target, ts, uuid.NewString())),
		Identity:  identity,
	}
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("fffcstate: create global dir: %w", err)
	}
	if err := os.MkdirAll(g.CrashDir, 0o755); err != nil {
		return nil, fmt.Errorf("fffcstate: create crash dir: %w", err)
	}
	return g, nil
}

// NextCallCount increments and returns the call counter.
func (g *Global) NextCallCount() uint64 {
	g.CallCount++
	return g.CallCount
}

// Call is the per-intercepted-call directory (§3 "Call state").
type Call struct {
	Dir          string
	ParentsPath  string
	FeaturesPath string
}

// SetupCallState creates <global>/<call_count:08d>.<uuid>/ with its parents
// and features files.
func SetupCallState(g *Global, callCount uint64) (*Call, error) {
	dir := filepath.Join(g.Dir, fmt.Sprintf("%08d.%s", callCount, uuid.NewString()))
	if len(dir) >= MaxPathLength {
		return nil, fmt.Errorf("fffcstate: call dir path exceeds MaxPathLength")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Call{
		Dir:          dir,
		ParentsPath:  filepath.Join(dir, "parents"),
		FeaturesPath: filepath.Join(dir, "features"),
	}, nil
}

// Mutation is a single mutation's working directory (§3 "Mutation state").
type Mutation struct {
	Dir         string
	LogPath     string
	CoverageDir string
	CrashPath   string
	StdoutPath  string
	StderrPath  string
}

// SetupMutationState creates <call>/<target>-<iter>/ with its subpaths.
func SetupMutationState(call *Call, target string, iter int) (*Mutation, error) {
	dir := filepath.Join(call.Dir, fmt.Sprintf("%s-%d", target, iter))
	if len(dir) >= MaxPathLength {
		return nil, fmt.Errorf("fffcstate: mutation dir path exceeds MaxPathLength")
	}
	m := &Mutation{
		Dir:         dir,
		LogPath:     filepath.Join(dir, "log"),
		CoverageDir: filepath.Join(dir, "coverage"),
		CrashPath:   filepath.Join(dir, "crash"),
		StdoutPath:  filepath.Join(dir, "stdout"),
		StderrPath:  filepath.Join(dir, "stderr"),
	}
	if err := os.MkdirAll(m.CoverageDir, 0o755); err != nil {
		return nil, err
	}
	return m, nil
}

// PathsForMutationDir reconstructs a Mutation's subpaths from its directory
// alone, used by a re-exec'd mutation child that only carries the directory
// (it cannot receive the original *Mutation value across the process
// boundary).
func PathsForMutationDir(dir string) *Mutation {
	return &Mutation{
		Dir:         dir,
		LogPath:     filepath.Join(dir, "log"),
		CoverageDir: filepath.Join(dir, "coverage"),
		CrashPath:   filepath.Join(dir, "crash"),
		StdoutPath:  filepath.Join(dir, "stdout"),
		StderrPath:  filepath.Join(dir, "stderr"),
	}
}

// CleanupMutationState finalizes a mutation directory: on crash it is moved
// under the crash archive; otherwise its path is appended to the parents
// file so it becomes an evolutionary ancestor.
func CleanupMutationState(g *Global, call *Call, m *Mutation, parents *ParentsFile, crashed bool) error {
	if crashed {
		dest := filepath.Join(g.CrashDir, fmt.Sprintf("crash.%s", uuid.NewString()))
		if err := os.Rename(m.Dir, dest); err != nil {
			return fmt.Errorf("fffcstate: move crash dir: %w", err)
		}
		return nil
	}
	return parents.Append(m.Dir)
}
