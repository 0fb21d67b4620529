// Package itercache implements the per-original result cache shared by an
// iterator and its clones (spec.md §4.4): an append-only ordered list of
// produced ids plus the budget cost of producing each one.
package itercache

import (
	"sort"

	"github.com/googlearchive/graphd-sub006/common"
)

// Cache is the append-only, per-original memoization of produced ids. It is
// not safe for concurrent use without external locking; in this module an
// original and its clones only ever run within one request's single-threaded
// drive loop (spec.md §5).
type Cache struct {
	dir  common.Direction
	ids  []common.ID
	cost []int64 // cost[i] is the budget spent producing ids[i]
	eof  bool
}

// New creates an empty cache for an iterator traversing in dir.
func New(dir common.Direction) *Cache {
	return &Cache{dir: dir}
}

// Add appends id to the cache, recording the budget cost of producing it.
// Panics if id does not strictly extend the cache in the declared
// direction — callers must never violate the monotonicity invariant
// (spec.md §3, §8 "Cache monotonicity").
func (c *Cache) Add(id common.ID, cost int64) {
	if len(c.ids) > 0 {
		tail := c.ids[len(c.ids)-1]
		if !c.dir.Less(tail, id) {
			panic("itercache: Add violates cache monotonicity")
		}
	}
	c.ids = append(c.ids, id)
	c.cost = append(c.cost, cost)
}

// MarkEOF records that the underlying producer has been driven to
// completion; the cache now holds the complete result set.
func (c *Cache) MarkEOF() { c.eof = true }

// CacheEOF reports whether the cache holds the complete result set.
func (c *Cache) CacheEOF() bool { return c.eof }

// N reports how many ids are cached.
func (c *Cache) N() int { return len(c.ids) }

// Index returns the i'th cached id.
func (c *Cache) Index(i int) common.ID { return c.ids[i] }

// Cost returns the budget cost recorded for the i'th cached id.
func (c *Cache) Cost(i int) int64 { return c.cost[i] }

// Search returns the position of id in the cache: if present, (i, true);
// otherwise the insertion point that keeps the cache sorted, and false.
func (c *Cache) Search(id common.ID) (int, bool) {
	n := len(c.ids)
	var idx int
	if c.dir == common.Backward {
		idx = sort.Search(n, func(i int) bool { return c.ids[i] <= id })
	} else {
		idx = sort.Search(n, func(i int) bool { return c.ids[i] >= id })
	}
	if idx < n && c.ids[idx] == id {
		return idx, true
	}
	return idx, false
}

// Tail returns the last cached id and whether the cache is non-empty.
func (c *Cache) Tail() (common.ID, bool) {
	if len(c.ids) == 0 {
		return 0, false
	}
	return c.ids[len(c.ids)-1], true
}

// TotalCost sums the recorded cost of every cached entry; spec.md §3
// requires this to equal the cumulative budget spent producing them.
func (c *Cache) TotalCost() int64 {
	var sum int64
	for _, c := range c.cost {
		sum += c
	}
	return sum
}
