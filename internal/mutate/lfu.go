// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutate

// SizeLFU is the fixed-size, frequency-indexed cache mapping an observed
// pointer identity to its sanitizer-reported region size (§3 "Worker
// state"). It is direct-mapped: each key hashes to exactly one slot, and an
// insert into an occupied slot holding a different key evicts it outright
// (there is no need to scan for a globally-least-frequent victim at this
// cache's size, and the original's per-slot frequency counter is kept purely
// for that slot's hit/miss accounting).
type SizeLFU struct {
	slots []lfuSlot
}

type lfuSlot struct {
	valid bool
	key   uint64
	size  int
	freq  uint64
}

// NewSizeLFU creates a cache with the given number of slots (default 4096).
func NewSizeLFU(slots int) *SizeLFU {
	if slots <= 0 {
		slots = 4096
	}
	return &SizeLFU{slots: make([]lfuSlot, slots)}
}

func (c *SizeLFU) index(key uint64) int {
	// murmur3-finalizer style mixing, then reduce into the slot table.
	h := key
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return int(h % uint64(len(c.slots)))
}

// Lookup returns the cached size for key, if present in its slot.
func (c *SizeLFU) Lookup(key uint64) (size int, ok bool) {
	s := &c.slots[c.index(key)]
	if !s.valid || s.key != key {
		return 0, false
	}
	s.freq++
	return s.size, true
}

// Insert records size for key, evicting whatever previously occupied the
// slot.
func (c *SizeLFU) Insert(key uint64, size int) {
	s := &c.slots[c.index(key)]
	s.valid = true
	s.key = key
	s.size = size
	s.freq = 1
}
