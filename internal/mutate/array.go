// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutate

import "reflect"

// MutateArray iterates every element of an addressable slice or array,
// applying the element mutator to each (§4.B "Arrays"). path identifies the
// field itself; each element's replay-log location is derived from it so
// element writes remain distinguishable.
func (e *Engine) MutateArray(v reflect.Value, path uint64) error {
	n := v.Len()
	singleByte := v.Type().Elem().Kind() == reflect.Uint8
	for i := 0; i < n; i++ {
		elem := v.Index(i)
		elemPath := elementPath(path, i)
		if _, err := e.Mutate(elem, elemPath); err != nil {
			return err
		}
		// String semantics: stop at the first null byte for byte buffers,
		// mirroring the original's char* termination rule (§4.B "Pointers").
		if singleByte && elem.Uint() == 0 {
			break
		}
	}
	return nil
}

// elementPath derives a stable, distinct location id for element i of the
// field identified by path, for use in replay-log records.
func elementPath(path uint64, i int) uint64 {
	h := path ^ (uint64(i)+1)*0x9e3779b97f4a7c15
	h ^= h >> 29
	return h
}
