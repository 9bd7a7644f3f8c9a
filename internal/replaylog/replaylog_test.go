// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package replaylog

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recording struct {
	allocs []uint64
	writes map[uint64][]byte
	copies [][4]uint64
}

func newRecording() *recording {
	return &recording{writes: map[uint64][]byte{}}
}

func (r *recording) OnAllocate(loc, length uint64) error {
	r.allocs = append(r.allocs, loc)
	return nil
}

func (r *recording) OnWrite(loc uint64, value []byte) error {
	cp := append([]byte(nil), value...)
	r.writes[loc] = cp
	return nil
}

func (r *recording) OnCopy(src, dest, length, start uint64) error {
	r.copies = append(r.copies, [4]uint64{src, dest, length, start})
	return nil
}

func TestRecordRoundTrip(t *testing.T) {
	r := Record{Version: CurrentVersion, EventType: EventWrite, Location: 42, Length: 3, Value: [16]byte{1, 2, 3}}
	got, err := Unmarshal(r.Marshal())
	require.NoError(t, err)
	if diff := cmp.Diff(r, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")

	l, err := Create(path, 7, 99)
	require.NoError(t, err)
	require.NoError(t, l.Allocate(1, 64))
	require.NoError(t, l.Write(1, []byte("hello")))
	require.NoError(t, l.Copy(1, 2, 64, 3))
	require.NoError(t, l.Close())

	rec := newRecording()
	ok, err := Replay(path, 7, 99, false, rec)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []uint64{1}, rec.allocs)
	assert.Equal(t, []byte("hello"), rec.writes[1])
	assert.Equal(t, [][4]uint64{{1, 2, 64, 3}}, rec.copies)
}

func TestReplayRejectsMismatchOutsideDebug(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")
	l, err := Create(path, 7, 99)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = Replay(path, 8, 99, false, newRecording())
	assert.ErrorIs(t, err, ErrBeginMismatch)
}

func TestReplayMismatchInDebugIsInformational(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")
	l, err := Create(path, 7, 99)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	ok, err := Replay(path, 8, 99, true, newRecording())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteRejectsOversizedPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")
	l, err := Create(path, 1, 1)
	require.NoError(t, err)
	defer l.Close()

	err = l.Write(1, make([]byte, MaxInlineValue+1))
	assert.Error(t, err)
}
