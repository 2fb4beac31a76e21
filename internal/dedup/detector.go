// Package dedup finds groups of near-duplicate documents inside one
// knowledge base using pairwise index similarity.
package dedup

import (
	"context"
	"sort"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/knolab/knolab/internal/index"
)

// DefaultThreshold is the pairwise similarity above which two documents are
// treated as duplicates.
const DefaultThreshold = 0.85

type Detector struct {
	idx *index.Manager

	mu    sync.Mutex
	gens  map[int64]uint64
	cache map[int64]cacheEntry
}

type cacheEntry struct {
	gen       uint64
	threshold float64
	groups    [][]int64
}

func NewDetector(idx *index.Manager) *Detector {
	return &Detector{
		idx:   idx,
		gens:  make(map[int64]uint64),
		cache: make(map[int64]cacheEntry),
	}
}

// Invalidate marks a knowledge base's cached scan stale. Called on every
// document write so a later scan recomputes.
func (d *Detector) Invalidate(kbID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gens[kbID]++
	delete(d.cache, kbID)
}

// Drop forgets all detector state for a knowledge base.
func (d *Detector) Drop(kbID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.gens, kbID)
	delete(d.cache, kbID)
}

// FindDuplicateGroups scans the given documents pairwise and returns groups
// of transitively-linked duplicates. Singletons are suppressed. The result
// is cached until the next write to the knowledge base or a scan with a
// different threshold.
func (d *Detector) FindDuplicateGroups(ctx context.Context, kbID int64, docIDs []int64, threshold float64) [][]int64 {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	d.mu.Lock()
	gen := d.gens[kbID]
	if entry, ok := d.cache[kbID]; ok && entry.gen == gen && entry.threshold == threshold {
		d.mu.Unlock()
		logutil.GetLogger(ctx).Debug("duplicate scan cache hit", zap.Int64("kb_id", kbID))
		return entry.groups
	}
	d.mu.Unlock()

	groups := groupPairs(docIDs, func(a, b int64) float64 {
		return d.idx.Pairwise(kbID, a, b)
	}, threshold)

	d.mu.Lock()
	if d.gens[kbID] == gen {
		d.cache[kbID] = cacheEntry{gen: gen, threshold: threshold, groups: groups}
	}
	d.mu.Unlock()
	logutil.GetLogger(ctx).Info("duplicate scan finished",
		zap.Int64("kb_id", kbID), zap.Int("documents", len(docIDs)),
		zap.Int("groups", len(groups)), zap.Float64("threshold", threshold))
	return groups
}

// groupPairs runs the O(n^2) pairwise comparison and unions documents whose
// similarity meets the threshold. Duplicate relations are transitive here:
// A~B and B~C land in one group even if A and C alone fall short.
func groupPairs(docIDs []int64, sim func(a, b int64) float64, threshold float64) [][]int64 {
	ids := append([]int64(nil), docIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	uf := newUnionFind(len(ids))
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if sim(ids[i], ids[j]) >= threshold {
				uf.union(i, j)
			}
		}
	}

	members := make(map[int][]int64)
	for i, id := range ids {
		root := uf.find(i)
		members[root] = append(members[root], id)
	}
	groups := make([][]int64, 0, len(members))
	for _, group := range members {
		if len(group) < 2 {
			continue
		}
		groups = append(groups, group)
	}
	// Members are already ascending (ids were sorted before grouping);
	// order groups by their smallest member.
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	rootA, rootB := u.find(a), u.find(b)
	if rootA == rootB {
		return
	}
	if rootA > rootB {
		rootA, rootB = rootB, rootA
	}
	u.parent[rootB] = rootA
}
