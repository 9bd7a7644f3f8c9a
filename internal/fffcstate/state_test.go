// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fffcstate

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalAndCallLayout(t *testing.T) {
	data := t.TempDir()
	crash := t.TempDir()

	g, err := NewGlobal(data, crash, "my_target", 12345)
	require.NoError(t, err)
	assert.DirExists(t, g.Dir)
	assert.DirExists(t, g.CrashDir)

	call, err := SetupCallState(g, g.NextCallCount())
	require.NoError(t, err)
	assert.DirExists(t, call.Dir)
	assert.Equal(t, filepath.Join(call.Dir, "parents"), call.ParentsPath)
}

func TestParentsFileAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	pf, err := OpenParentsFile(filepath.Join(dir, "parents"))
	require.NoError(t, err)

	require.NoError(t, pf.Append("/a/b/c"))
	require.NoError(t, pf.Append("/d/e/f"))

	paths, err := pf.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/b/c", "/d/e/f"}, paths)

	count, err := pf.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestParentsFileSizeIsStrideMultiple(t *testing.T) {
	dir := t.TempDir()
	pf, err := OpenParentsFile(filepath.Join(dir, "parents"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, pf.Append("x"))
	}
	info, err := os.Stat(filepath.Join(dir, "parents"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size()%MaxPathLength)
}

func TestParentsFileReplaceAllIsAtomic(t *testing.T) {
	dir := t.TempDir()
	pf, err := OpenParentsFile(filepath.Join(dir, "parents"))
	require.NoError(t, err)
	require.NoError(t, pf.Append("/one"))
	require.NoError(t, pf.Append("/two"))
	require.NoError(t, pf.Append("/three"))

	require.NoError(t, pf.ReplaceAll([]string{"/two"}))

	paths, err := pf.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"/two"}, paths)
}

func TestParentsFileRandomEntry(t *testing.T) {
	dir := t.TempDir()
	pf, err := OpenParentsFile(filepath.Join(dir, "parents"))
	require.NoError(t, err)

	_, ok, err := pf.RandomEntry(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, pf.Append("/only"))
	p, ok, err := pf.RandomEntry(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/only", p)
}

func TestMutationLifecycle(t *testing.T) {
	data := t.TempDir()
	crash := t.TempDir()
	g, err := NewGlobal(data, crash, "tgt", 1)
	require.NoError(t, err)
	call, err := SetupCallState(g, 1)
	require.NoError(t, err)
	pf, err := OpenParentsFile(call.ParentsPath)
	require.NoError(t, err)

	m, err := SetupMutationState(call, "tgt", 0)
	require.NoError(t, err)
	assert.DirExists(t, m.CoverageDir)

	require.NoError(t, CleanupMutationState(g, call, m, pf, false))
	paths, err := pf.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{m.Dir}, paths)

	m2, err := SetupMutationState(call, "tgt", 1)
	require.NoError(t, err)
	require.NoError(t, CleanupMutationState(g, call, m2, pf, true))
	assert.NoDirExists(t, m2.Dir)
	entries, err := os.ReadDir(g.CrashDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
