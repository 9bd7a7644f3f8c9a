// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutate

import (
	"math"
	"reflect"

	"github.com/google/fffc/internal/replaylog"
)

// index maps a field's stable path id (the same id Mutate derives while
// walking the struct) to what a copied-forward replay log can reapply it
// onto, so inherited mutations replay onto a freshly restored snapshot
// without re-running PickOneOrNone:
//
//   - prims holds every addressable primitive field (Int/Uint/Float/Bool),
//     keyed by its own path.
//   - buffers holds every *[]byte field, keyed by its own path, so a resize
//     commit (see OnWrite) can replace its backing array.
//   - scratch holds buffers staged by an Allocate/Copy pair ahead of the
//     Write that commits one of them into a buffers entry, keyed by the
//     allocation path pointer.go derives for that field (elementPath(path, -1)).
type index struct {
	prims   map[uint64]reflect.Value
	buffers map[uint64]reflect.Value
	scratch map[uint64][]byte
}

func newIndex() index {
	return index{
		prims:   map[uint64]reflect.Value{},
		buffers: map[uint64]reflect.Value{},
		scratch: map[uint64][]byte{},
	}
}

// BuildIndex walks argsPtr the same way MutateArguments does, without
// touching any mutator, recording every field's path id.
func BuildIndex(argsPtr interface{}) index {
	idx := newIndex()
	v := reflect.ValueOf(argsPtr).Elem()
	buildIndex(idx, v, rootPath(v.Type().Name()))
	return idx
}

func buildIndex(idx index, v reflect.Value, path uint64) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool:
		idx.prims[path] = v
	case reflect.Array, reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			buildIndex(idx, v.Index(i), elementPath(path, i))
		}
	case reflect.Ptr:
		if v.IsNil() {
			return
		}
		if v.Elem().Kind() == reflect.Slice && v.Type().Elem().Elem().Kind() == reflect.Uint8 {
			registerBuffer(idx, path, v)
			return
		}
		buildIndex(idx, v.Elem(), path)
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if !f.CanSet() {
				continue
			}
			buildIndex(idx, f, elementPath(path, i))
		}
	}
}

// registerBuffer indexes a *[]byte field itself plus every one of its
// current elements, mirroring how MutateArray derives each byte's path from
// the field's own path. Called both while the initial snapshot is indexed
// and again, with the buffer's new length, whenever a resize event commits
// a replacement backing array (see OnWrite).
func registerBuffer(idx index, path uint64, v reflect.Value) {
	idx.buffers[path] = v
	buf := v.Elem()
	for i := 0; i < buf.Len(); i++ {
		idx.prims[elementPath(path, i)] = buf.Index(i)
	}
}

// replayApplier reapplies a replay log's Allocate/Copy/Write events onto the
// fields an index resolves, reconstructing an inherited lineage's mutations
// — including prior buffer resizes — on top of the pristine argument
// snapshot.
type replayApplier struct {
	idx index
}

// OnAllocate stages a zeroed scratch buffer; the following Copy event fills
// it, and the Write event that always follows a resize (pointer.go's
// maybeResize) commits it into the field.
func (a replayApplier) OnAllocate(loc, length uint64) error {
	a.idx.scratch[loc] = make([]byte, length)
	return nil
}

// OnCopy reconstructs the exact wraparound copy maybeResize performed,
// reading from whichever buffer (a field's current contents, or another
// still-staged scratch buffer) the source id src resolves to.
func (a replayApplier) OnCopy(src, dest, length, start uint64) error {
	source := a.bufferAt(src)
	if len(source) == 0 {
		a.idx.scratch[dest] = make([]byte, length)
		return nil
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = source[(start+uint64(i))%uint64(len(source))]
	}
	a.idx.scratch[dest] = buf
	return nil
}

func (a replayApplier) bufferAt(loc uint64) []byte {
	if v, ok := a.idx.buffers[loc]; ok {
		return v.Elem().Bytes()
	}
	return a.idx.scratch[loc]
}

func (a replayApplier) OnWrite(loc uint64, value []byte) error {
	if v, ok := a.idx.buffers[loc]; ok {
		// The write that follows a resize's Allocate/Copy pair (pointer.go's
		// maybeResize) only carries the new length inline; the actual bytes
		// live in the scratch buffer staged at this field's allocation path.
		if buf, ok := a.idx.scratch[elementPath(loc, -1)]; ok {
			v.Elem().Set(reflect.ValueOf(buf))
			registerBuffer(a.idx, loc, v)
		}
		return nil
	}
	v, ok := a.idx.prims[loc]
	if !ok {
		return nil
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(bytesToUint64(value)))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(bytesToUint64(value))
	case reflect.Float32:
		v.SetFloat(float64(math.Float32frombits(uint32(bytesToUint64(value)))))
	case reflect.Float64:
		v.SetFloat(math.Float64frombits(bytesToUint64(value)))
	case reflect.Bool:
		v.SetBool(len(value) > 0 && value[0] != 0)
	}
	return nil
}

// ApplyReplay reconstructs path's recorded mutations onto argsPtr. A missing
// Begin match in debug mode is reported via the returned bool, matching
// replaylog.Replay's contract.
func ApplyReplay(path string, callCount, identity uint64, debug bool, argsPtr interface{}) (bool, error) {
	return replaylog.Replay(path, callCount, identity, debug, replayApplier{idx: BuildIndex(argsPtr)})
}

func bytesToUint64(b []byte) uint64 {
	var n uint64
	for i, c := range b {
		n |= uint64(c) << (8 * i)
	}
	return n
}
