// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package coverage

import (
	"os"
	"sort"
)

// ScoredParent pairs a parent's directory path with its novelty score.
type ScoredParent struct {
	Path  string
	Score float64
}

// RemoveDir deletes a mutation directory tree that did not survive eviction.
type RemoveDir func(path string) error

// Reap sorts parents ascending by score and removes the lowest
// len(parents)-maxStateCount of them, returning the survivors in their
// original relative order. A no-op (returns parents unchanged) if
// len(parents) <= maxStateCount.
func Reap(parents []ScoredParent, maxStateCount int, remove RemoveDir) ([]string, error) {
	if len(parents) <= maxStateCount {
		survivors := make([]string, len(parents))
		for i, p := range parents {
			survivors[i] = p.Path
		}
		return survivors, nil
	}

	ranked := append([]ScoredParent(nil), parents...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score < ranked[j].Score })

	cut := len(ranked) - maxStateCount
	toRemove := map[string]bool{}
	for _, p := range ranked[:cut] {
		toRemove[p.Path] = true
		if err := remove(p.Path); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var survivors []string
	for _, p := range parents {
		if !toRemove[p.Path] {
			survivors = append(survivors, p.Path)
		}
	}
	return survivors, nil
}
