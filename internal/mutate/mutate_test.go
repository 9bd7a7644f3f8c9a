// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutate

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/fffc/internal/fffctestutil"
	"github.com/google/fffc/internal/replaylog"
)

func newTestEngine(t *testing.T, skipRate float64) *Engine {
	t.Helper()
	log, err := replaylog.Create(filepath.Join(t.TempDir(), "log"), 1, 1)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return NewEngine(fffctestutil.Seed(t), skipRate, log)
}

func TestPickOneOrNoneCountMode(t *testing.T) {
	e := newTestEngine(t, 0)
	e.SetMode(ModeCount)
	total := 0
	for _, n := range []int{3, 5, 2} {
		assert.Equal(t, -1, e.PickOneOrNone(n))
		total += n
	}
	assert.EqualValues(t, total, e.Counter())
}

func TestPickOneOrNoneResizeModeDecrementsOnly(t *testing.T) {
	e := newTestEngine(t, 0)
	e.SetCounter(100)
	e.SetMode(ModeResize)
	assert.Equal(t, -1, e.PickOneOrNone(10))
	assert.EqualValues(t, 90, e.Counter())
}

func TestPickOneOrNoneIterativeFiresExactlyOnce(t *testing.T) {
	e := newTestEngine(t, 0)
	e.SetMode(ModeIterative)
	// sites of sizes 3,5,2; seed counter to target the second site.
	e.SetCounter(4) // within (3, 3+5] -> targets site 2
	results := []int{}
	for _, n := range []int{3, 5, 2} {
		results = append(results, e.PickOneOrNone(n))
	}
	fired := 0
	for i, r := range results {
		if r >= 0 {
			fired++
			assert.Equal(t, 1, i, "expected the second site to fire")
		}
	}
	assert.Equal(t, 1, fired)
}

func TestPickOneOrNoneIterativeZeroNeverFires(t *testing.T) {
	e := newTestEngine(t, 0)
	e.SetMode(ModeIterative)
	e.SetCounter(0)
	for _, n := range []int{3, 5, 2} {
		assert.Equal(t, -1, e.PickOneOrNone(n))
	}
}

func TestPickOneOrNoneNormalModeTargetsThenContinues(t *testing.T) {
	e := newTestEngine(t, 0) // zero skip rate: every later site also fires
	e.SetCounter(2)
	first := e.PickOneOrNone(2) // targeted: always fires
	assert.GreaterOrEqual(t, first, 0)
	second := e.PickOneOrNone(4) // later site: fires since nothing is skipped
	assert.GreaterOrEqual(t, second, 0)
}

func TestSaveRestoreModeSingleSlot(t *testing.T) {
	e := newTestEngine(t, 0)
	e.SetMode(ModeNormal)
	e.SaveAndSwitch(ModeResize)
	assert.Equal(t, ModeResize, e.CurrentMode())
	e.Restore()
	assert.Equal(t, ModeNormal, e.CurrentMode())
}

func TestMutateIntAlwaysFiresInModeIterativeTargeted(t *testing.T) {
	e := newTestEngine(t, 0)
	e.SetMode(ModeIterative)
	e.SetCounter(intMenuSize)
	type args struct{ X int32 }
	a := args{X: 7}
	changed, err := e.MutateArguments(&a)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestMutateArraySingleByteStopsAtNull(t *testing.T) {
	e := newTestEngine(t, 0)
	e.SetMode(ModeCount) // no mutation; the counter records which elements were visited
	buf := []byte("ab\x00cd")
	err := e.MutateArray(reflect.ValueOf(&buf).Elem(), 1)
	require.NoError(t, err)
	// 'a', 'b' and the null byte are visited; "cd" after it is not.
	assert.EqualValues(t, 3*uintMenuSize, e.Counter())
}

func TestSizeLFU(t *testing.T) {
	c := NewSizeLFU(4)
	_, ok := c.Lookup(42)
	assert.False(t, ok)
	c.Insert(42, 16)
	size, ok := c.Lookup(42)
	assert.True(t, ok)
	assert.Equal(t, 16, size)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	type args struct {
		A int32
		B []byte
	}
	orig := args{A: 5, B: []byte("hi")}
	data, err := Snapshot(&orig)
	require.NoError(t, err)

	var got args
	require.NoError(t, Restore(data, &got))
	assert.Equal(t, orig, got)
}
