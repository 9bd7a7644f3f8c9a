// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package coverage implements coverage parsing and novelty scoring (§4.C):
// folding .gcda edge counters into feature buckets, scoring each parent
// against the historical population, and evicting the lowest scorers.
package coverage

import "encoding/binary"

// Bucket classifies a single edge-counter observation.
type Bucket int

const (
	BucketNone Bucket = iota
	BucketFew
	BucketSome
	BucketMany
)

// ClassifyCounter buckets a raw edge-counter value: =0, <8, <128, >=128.
func ClassifyCounter(c uint64) Bucket {
	switch {
	case c == 0:
		return BucketNone
	case c < 8:
		return BucketFew
	case c < 128:
		return BucketSome
	default:
		return BucketMany
	}
}

// Feature is the historical bucket-occupancy record kept per edge-counter
// position across the whole parent population.
type Feature struct {
	None, Few, Some, Many int64
}

// FeatureRecordSize is the fixed on-disk size of a Feature record.
const FeatureRecordSize = 32

func (f Feature) Marshal() []byte {
	b := make([]byte, FeatureRecordSize)
	binary.LittleEndian.PutUint64(b[0:8], uint64(f.None))
	binary.LittleEndian.PutUint64(b[8:16], uint64(f.Few))
	binary.LittleEndian.PutUint64(b[16:24], uint64(f.Some))
	binary.LittleEndian.PutUint64(b[24:32], uint64(f.Many))
	return b
}

func UnmarshalFeature(b []byte) Feature {
	return Feature{
		None: int64(binary.LittleEndian.Uint64(b[0:8])),
		Few:  int64(binary.LittleEndian.Uint64(b[8:16])),
		Some: int64(binary.LittleEndian.Uint64(b[16:24])),
		Many: int64(binary.LittleEndian.Uint64(b[24:32])),
	}
}

// total is the number of observations folded into f so far.
func (f Feature) total() int64 {
	return f.None + f.Few + f.Some + f.Many
}

// bucketValue returns the occupancy count of the given bucket.
func (f Feature) bucketValue(b Bucket) int64 {
	switch b {
	case BucketNone:
		return f.None
	case BucketFew:
		return f.Few
	case BucketSome:
		return f.Some
	default:
		return f.Many
	}
}

// increment bumps the given bucket by one, returning the updated record.
func (f Feature) increment(b Bucket) Feature {
	switch b {
	case BucketNone:
		f.None++
	case BucketFew:
		f.Few++
	case BucketSome:
		f.Some++
	default:
		f.Many++
	}
	return f
}
