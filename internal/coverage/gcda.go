// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package coverage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// GCDASentinel tags the start of a function's counter block within a .gcda
// stream.
const GCDASentinel uint32 = 0x01A10000

// ParseGCDA extracts every edge counter from one .gcda byte stream, in file
// order. The format (as consumed, not produced, by this runtime): a sequence
// of 32-bit little-endian words; whenever a word equals GCDASentinel, the
// following word is a count N, followed by N/2 64-bit counters.
func ParseGCDA(r io.Reader) ([]uint64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data)%4 != 0 {
		data = data[:len(data)-len(data)%4]
	}
	var counters []uint64
	words := len(data) / 4
	i := 0
	for i < words {
		w := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		if w != GCDASentinel {
			i++
			continue
		}
		if i+1 >= words {
			return nil, fmt.Errorf("coverage: truncated gcda, missing count after sentinel")
		}
		count := binary.LittleEndian.Uint32(data[(i+1)*4 : (i+1)*4+4])
		i += 2
		n := int(count / 2)
		for j := 0; j < n; j++ {
			off := i * 4
			if off+8 > len(data) {
				return nil, fmt.Errorf("coverage: truncated gcda, expected %d counters", n)
			}
			counters = append(counters, binary.LittleEndian.Uint64(data[off:off+8]))
			i += 2
		}
	}
	return counters, nil
}

// ParseGCDADir enumerates every *.gcda file directly inside dir, in
// filename-sorted order for determinism, and concatenates their counters.
func ParseGCDADir(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".gcda" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var all []uint64
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		counters, err := ParseGCDA(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("coverage: %s: %w", name, err)
		}
		all = append(all, counters...)
	}
	return all, nil
}
