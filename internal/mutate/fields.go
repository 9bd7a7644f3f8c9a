// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutate

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
)

// Snapshot gob-encodes the value pointed to by argsPtr, producing the byte
// blob carried across the process boundary to re-exec'd replicas.
func Snapshot(argsPtr interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(reflect.ValueOf(argsPtr).Elem().Interface()); err != nil {
		return nil, fmt.Errorf("mutate: snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore decodes a Snapshot blob into the value pointed to by argsPtr.
func Restore(data []byte, argsPtr interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(argsPtr); err != nil {
		return fmt.Errorf("mutate: restore: %w", err)
	}
	return nil
}

// MutateArguments runs the full set of argument mutators over the value
// pointed to by argsPtr — the per-target "list of per-argument mutator
// calls" a code generator would otherwise emit (§6) — by walking its
// exported fields with Mutate.
func (e *Engine) MutateArguments(argsPtr interface{}) (bool, error) {
	v := reflect.ValueOf(argsPtr)
	if v.Kind() != reflect.Ptr {
		return false, fmt.Errorf("mutate: MutateArguments requires a pointer, got %s", v.Kind())
	}
	return e.Mutate(v.Elem(), rootPath(v.Elem().Type().Name()))
}

func rootPath(name string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= 1099511628211
	}
	return h
}
