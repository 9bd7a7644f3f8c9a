// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package coverage

// Score folds one parent's counters into the shared feature history and
// returns that parent's novelty score: the sum, across counter positions, of
// 1 minus the historical occupancy fraction of the bucket this parent's
// counter landed in (§4.C). Positions with no prior history contribute 0.
//
// The features file is mutated in place — every parent's counters update the
// same running history, in whatever order parents are processed, which is an
// intentional, order-dependent property of the algorithm (see §9, preserved
// deliberately rather than "fixed").
func Score(ff *FeaturesFile, counters []uint64) (float64, error) {
	var total float64
	for pos, c := range counters {
		old, err := ff.Read(int64(pos))
		if err != nil {
			return 0, err
		}
		bucket := ClassifyCounter(c)
		if t := old.total(); t > 0 {
			total += 1 - float64(old.bucketValue(bucket))/float64(t)
		}
		if err := ff.Write(int64(pos), old.increment(bucket)); err != nil {
			return 0, err
		}
	}
	return total, nil
}
