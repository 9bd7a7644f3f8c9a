// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package replaylog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/fffc/internal/fffclog"
)

// Handler receives the Allocate/Write/Copy events of a replayed log, in
// order, so the mutation engine can reapply them to a fresh argument
// snapshot.
type Handler interface {
	OnAllocate(loc, length uint64) error
	OnWrite(loc uint64, value []byte) error
	OnCopy(src, dest, length, start uint64) error
}

// ErrBeginMismatch is returned by Replay when the log's Begin record does not
// belong to the call being replayed.
var ErrBeginMismatch = errors.New("replaylog: begin record does not match current call")

// Replay reads path sequentially from offset 0 and dispatches every event to
// h. The first record must be Begin and must carry wantCallCount/wantIdentity;
// outside debug mode a mismatch is rejected as ErrBeginMismatch, in debug mode
// it is merely logged and Replay returns (false, nil) without applying
// anything further (§4.A "debug replay").
//
// The returned bool reports whether replay actually ran to completion.
func Replay(path string, wantCallCount, wantIdentity uint64, debug bool, h Handler) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	first := true
	buf := make([]byte, RecordSize)
	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			if err == io.EOF {
				break
			}
			return false, fmt.Errorf("replaylog: read record: %w", err)
		}
		rec, err := Unmarshal(buf)
		if err != nil {
			return false, err
		}
		if err := rec.Validate(); err != nil {
			fffclog.Logf(fffclog.Error, "replaylog: corrupt record in %s: %v", path, err)
			return false, err
		}
		if first {
			first = false
			if rec.EventType != EventBegin {
				return false, fmt.Errorf("replaylog: first record in %s is %s, not begin", path, rec.EventType)
			}
			if rec.Location != wantCallCount || rec.Length != wantIdentity {
				if debug {
					fffclog.Logf(fffclog.Info, "replaylog: debug replay mismatch in %s (call %d/%d want %d/%d)",
						path, rec.Location, rec.Length, wantCallCount, wantIdentity)
					return false, nil
				}
				return false, ErrBeginMismatch
			}
			continue
		}
		switch rec.EventType {
		case EventAllocate:
			if err := h.OnAllocate(rec.Location, rec.Length); err != nil {
				return false, err
			}
		case EventWrite:
			if err := h.OnWrite(rec.Location, rec.Value[:rec.Length]); err != nil {
				return false, err
			}
		case EventCopy:
			if err := h.OnCopy(rec.Location, rec.Dest(), rec.Length, rec.Start()); err != nil {
				return false, err
			}
		default:
			return false, fmt.Errorf("replaylog: unknown event type %d in %s", rec.EventType, path)
		}
	}
	return true, nil
}
