// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutate

import "reflect"

// Mutate dispatches an addressable value to the mutator appropriate for its
// kind. This is the "runtime interpreter over a type tree" the design notes
// describe (§9): the engine itself does not know what types look like,
// only the operations exposed per-kind here.
func (e *Engine) Mutate(v reflect.Value, path uint64) (bool, error) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.MutateInt(v, path)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return e.MutateUint(v, path)
	case reflect.Float32, reflect.Float64:
		return e.MutateFloat(v, path)
	case reflect.Bool:
		return e.MutateBool(v, path)
	case reflect.Array, reflect.Slice:
		return true, e.MutateArray(v, path)
	case reflect.Ptr:
		if v.Elem().Kind() == reflect.Slice && v.Type().Elem().Elem().Kind() == reflect.Uint8 {
			return true, e.MutatePointer(v, path)
		}
		if v.IsNil() {
			return false, nil
		}
		return e.Mutate(v.Elem(), path)
	case reflect.Struct:
		return e.mutateStruct(v, path)
	default:
		// Not a mutator-visible kind (string, interface, map, chan, func...):
		// depth is always 1 within the runtime (§9), so unsupported kinds are
		// simply skipped rather than erroring.
		return false, nil
	}
}

func (e *Engine) mutateStruct(v reflect.Value, path uint64) (bool, error) {
	any := false
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanSet() {
			continue
		}
		changed, err := e.Mutate(f, elementPath(path, i))
		if err != nil {
			return any, err
		}
		any = any || changed
	}
	return any, nil
}
