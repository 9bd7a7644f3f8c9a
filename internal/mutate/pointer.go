// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutate

import "reflect"

// resizeRollOptions is the number of equally likely outcomes of the random
// roll that decides whether a resize pass actually reallocates the buffer —
// outcome 0 triggers the reallocation, matching the original's mask-roll
// gate (§4.B "Resize").
const resizeRollOptions = 2

// MutatePointer handles a *[]byte argument: Go slices already know their own
// length, so unlike the original's raw-pointer-plus-sanitizer-query model,
// the "estimated region size" is simply len(*ptr). The SizeLFU is still
// consulted and populated on every call so it does real work across
// repeated mutation passes, matching the original's caching contract even
// though Go does not need it to answer the size query itself.
func (e *Engine) MutatePointer(v reflect.Value, path uint64) error {
	if v.IsNil() {
		return nil
	}
	buf := v.Elem()
	key := uint64(buf.Pointer())
	if _, ok := e.LFU.Lookup(key); !ok {
		e.LFU.Insert(key, buf.Len())
	}

	if e.mode == ModeResize {
		if err := e.maybeResize(v, path); err != nil {
			return err
		}
		buf = v.Elem()
		e.LFU.Insert(uint64(buf.Pointer()), buf.Len())
	}

	return e.MutateArray(buf, path)
}

// maybeResize implements the "resize (buffer munging)" algorithm (§4.B): on
// a successful roll, reallocate the buffer to a new uniformly-chosen length
// in (0, 2*oldLen], copying from a random start offset with wraparound. The
// start offset is logged alongside the copy so a replay can recompute the
// exact wraparound content instead of only the byte count (internal/mutate's
// replay_apply.go).
func (e *Engine) maybeResize(v reflect.Value, path uint64) error {
	// PickOneOrNone always declines in ModeResize, so the roll draws from the
	// engine's RNG directly.
	if e.rnd.Intn(resizeRollOptions) != 0 {
		return nil
	}
	old := v.Elem()
	oldLen := old.Len()
	if oldLen == 0 {
		return nil
	}
	newLen := 1 + e.rnd.Intn(2*oldLen)
	start := e.rnd.Intn(oldLen)

	newBuf := make([]byte, newLen)
	for i := 0; i < newLen; i++ {
		newBuf[i] = byte(old.Index((start + i) % oldLen).Uint())
	}

	allocPath := elementPath(path, -1)
	if err := e.logAllocate(allocPath, uint64(newLen)); err != nil {
		return err
	}
	if err := e.logCopy(path, allocPath, uint64(newLen), uint64(start)); err != nil {
		return err
	}
	v.Elem().Set(reflect.ValueOf(newBuf))
	return e.logWrite(path, []byte{byte(newLen), byte(newLen >> 8)})
}

func (e *Engine) logAllocate(path uint64, length uint64) error {
	if e.Log == nil {
		return nil
	}
	return e.Log.Allocate(path, length)
}

func (e *Engine) logCopy(src, dest, length, start uint64) error {
	if e.Log == nil {
		return nil
	}
	return e.Log.Copy(src, dest, length, start)
}
