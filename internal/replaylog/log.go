// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package replaylog

import (
	"io"
	"os"

	"github.com/google/fffc/internal/fffclog"
)

// Log is an append-only, seek-to-end-before-every-write event stream backed
// by a single file. One Log exists per mutation directory (§4.D).
type Log struct {
	f *os.File
}

// Create makes a new, empty log file and immediately writes the Begin
// record, as the orchestrator does at the start of every mutation.
func Create(path string, callCount, identity uint64) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	l := &Log{f: f}
	if err := l.append(beginRecord(callCount, identity)); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// OpenAppend opens an existing log for further appends, used when a worker
// copies a parent's log into a new mutation directory before adding its own
// events on top.
func OpenAppend(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Log{f: f}, nil
}

// CopyFile duplicates a parent's log verbatim into a new path, the mechanism
// by which a mutation inherits its ancestor's replay history (§S3).
func CopyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func (l *Log) Close() error {
	return l.f.Close()
}

func (l *Log) append(r Record) error {
	if _, err := l.f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	b := r.Marshal()
	n, err := l.f.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		// Per §7: a short write is a warning, not a failure — the mutation
		// keeps going with a possibly-truncated tail record.
		fffclog.Logf(fffclog.Warn, "replaylog: short write (%d of %d bytes) to %s", n, len(b), l.f.Name())
	}
	return nil
}

// Allocate records that a mutator allocated a replacement buffer of length
// bytes at loc.
func (l *Log) Allocate(loc, length uint64) error {
	return l.append(allocateRecord(loc, length))
}

// Write records an in-place write of up to MaxInlineValue bytes at loc.
func (l *Log) Write(loc uint64, value []byte) error {
	r, err := writeRecord(loc, value)
	if err != nil {
		return err
	}
	return l.append(r)
}

// Copy records a memory copy from src to dest of length bytes, starting at
// offset start within src (wrapping around src's own length), so a later
// replay can reconstruct the exact copied bytes instead of just their count.
func (l *Log) Copy(src, dest, length, start uint64) error {
	return l.append(copyRecord(src, dest, length, start))
}
