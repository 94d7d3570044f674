// Package sortedlist implements an order-statistic sorted sequence: a
// bucketed sorted list backed by a Fenwick-style segment tree over bucket
// sizes. It maintains a multiset of values in ascending order and supports,
// in sublinear time, ordered insertion, order-statistic removal by rank,
// rank-indexed lookup, and binary search by value: four operations a plain
// sorted slice cannot jointly provide without an O(n) insert or remove.
//
// The container is not safe for concurrent use and does not persist itself;
// callers that need either must provide it. Kth, Get, First and Last return
// copies of the stored values; the iterator returned by All reads the live
// buckets and is invalidated by the next mutating call.
package sortedlist

import (
	"cmp"
	"fmt"
	"iter"
	"sort"
	"strings"
)

const (
	loadFactor        = 1024
	upperLoad         = 2 * loadFactor
	lowerLoad         = loadFactor / 2
	initialTreeOffset = minTreeOffset
)

// Container is the order-statistic sorted multiset over T. The zero value is
// not usable; construct one with New or FromBatch.
type Container[T cmp.Ordered] struct {
	buckets [][]T
	tree    *rankIndex
	length  int
}

// New returns an empty Container.
func New[T cmp.Ordered]() *Container[T] {
	return &Container[T]{
		tree: newRankIndex(),
	}
}

// FromBatch builds a Container from an unsorted slice in O(N log N): it
// sorts a copy of items, partitions the sorted run into contiguous
// loadFactor-sized buckets (the last bucket carries the remainder), and
// rebuilds the rank index once. This avoids paying for N individual inserts.
func FromBatch[T cmp.Ordered](items []T) *Container[T] {
	c := New[T]()
	if len(items) == 0 {
		return c
	}

	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for start := 0; start < len(sorted); start += loadFactor {
		end := min(start+loadFactor, len(sorted))
		bucket := make([]T, end-start)
		copy(bucket, sorted[start:end])
		c.buckets = append(c.buckets, bucket)
	}
	c.length = len(sorted)
	c.rebuildTree()
	return c
}

// Len returns the number of elements currently stored.
func (c *Container[T]) Len() int { return c.length }

// IsEmpty reports whether the container holds no elements.
func (c *Container[T]) IsEmpty() bool { return c.length == 0 }

// Clear removes every element. Bucket storage is released; the rank index
// resets to its initial baseline.
func (c *Container[T]) Clear() {
	c.buckets = nil
	c.length = 0
	c.tree = newRankIndex()
}

// First returns the smallest element, or ok=false if the container is empty.
func (c *Container[T]) First() (value T, ok bool) {
	if c.length == 0 {
		return value, false
	}
	return c.buckets[0][0], true
}

// Last returns the largest element, or ok=false if the container is empty.
func (c *Container[T]) Last() (value T, ok bool) {
	if c.length == 0 {
		return value, false
	}
	last := c.buckets[len(c.buckets)-1]
	return last[len(last)-1], true
}

// Kth returns the rank-th smallest element (0-based). It panics if rank is
// out of range; callers that want a non-panicking lookup should use Get.
func (c *Container[T]) Kth(rank int) T {
	if rank < 0 || rank >= c.length {
		panic(fmt.Sprintf("sortedlist: rank %d out of range (len=%d)", rank, c.length))
	}
	i, j := c.tree.descend(rank)
	return c.buckets[i][j]
}

// Get returns the rank-th smallest element, or ok=false if rank is out of
// range. Unlike Kth, Get never panics.
func (c *Container[T]) Get(rank int) (value T, ok bool) {
	if rank < 0 || rank >= c.length {
		return value, false
	}
	return c.Kth(rank), true
}

// Contains reports whether x is present.
func (c *Container[T]) Contains(x T) bool {
	_, ok := c.BinarySearch(x)
	return ok
}

// BinarySearch looks up x by value. If present, it returns the rank of a
// matching element and ok=true. If absent, it returns the rank at which x
// would need to be inserted to preserve order, and ok=false.
func (c *Container[T]) BinarySearch(x T) (rank int, ok bool) {
	if c.length == 0 {
		return 0, false
	}

	k := c.bisectBucket(x)
	bucket := c.buckets[k]
	pos := sort.Search(len(bucket), func(i int) bool { return bucket[i] >= x })

	preceding := c.tree.rangeSum(0, k-1)
	if pos < len(bucket) && bucket[pos] == x {
		return preceding + pos, true
	}
	return preceding + pos, false
}

// Insert adds x, keeping the container sorted. Equal keys are not ordered
// stably against prior inserts of the same value.
func (c *Container[T]) Insert(x T) {
	if c.length == 0 {
		c.buckets = [][]T{{x}}
		c.length = 1
		c.tree.rebuild([]int{1})
		return
	}

	k := c.bisectBucket(x)
	bucket := c.buckets[k]
	pos := sort.Search(len(bucket), func(i int) bool { return bucket[i] >= x })

	bucket = append(bucket, x)
	copy(bucket[pos+1:], bucket[pos:len(bucket)-1])
	bucket[pos] = x
	c.buckets[k] = bucket
	c.length++

	if len(bucket) > upperLoad {
		c.split(k)
	} else {
		c.tree.add(k, 1)
	}
}

// RemoveAt removes and returns the rank-th smallest element (0-based). It
// panics if rank is out of range.
func (c *Container[T]) RemoveAt(rank int) T {
	if rank < 0 || rank >= c.length {
		panic(fmt.Sprintf("sortedlist: rank %d out of range (len=%d)", rank, c.length))
	}
	i, j := c.tree.descend(rank)
	bucket := c.buckets[i]
	removed := bucket[j]

	copy(bucket[j:], bucket[j+1:])
	c.buckets[i] = bucket[:len(bucket)-1]
	c.length--

	if len(c.buckets) > 1 && len(c.buckets[i]) < lowerLoad {
		c.collapse(i)
	} else {
		c.tree.add(i, -1)
	}
	return removed
}

// Flatten returns the full ordered sequence as a freshly allocated slice.
func (c *Container[T]) Flatten() []T {
	out := make([]T, 0, c.length)
	for _, bucket := range c.buckets {
		out = append(out, bucket...)
	}
	return out
}

// ToSlice is an alias for Flatten, matching the conventional name for an
// owned-copy conversion.
func (c *Container[T]) ToSlice() []T { return c.Flatten() }

// All returns a lazy ordered iterator over the container's elements. The
// iterator is invalidated by any subsequent mutation of c; it is not
// restartable except by calling All again.
func (c *Container[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, bucket := range c.buckets {
			for _, x := range bucket {
				if !yield(x) {
					return
				}
			}
		}
	}
}

// String renders the flattened ordered sequence, for debugging.
func (c *Container[T]) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, bucket := range c.buckets {
		for j, x := range bucket {
			if i > 0 || j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%v", x)
		}
	}
	b.WriteByte(']')
	return b.String()
}

// bisectBucket returns the greatest k with first(buckets[k]) <= x, or 0 if x
// is smaller than every bucket head. Precondition: the container is
// non-empty. Implemented directly from the specification's rule rather than
// by porting a reference implementation's loop verbatim (the reference loop
// special-cases lo+1==hi entry in a way that isn't needed if the rule above
// is applied as stated).
func (c *Container[T]) bisectBucket(x T) int {
	lo, hi := 0, len(c.buckets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.buckets[mid][0] <= x {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// rebuildTree recomputes the rank index from current bucket sizes.
func (c *Container[T]) rebuildTree() {
	sizes := make([]int, len(c.buckets))
	for i, b := range c.buckets {
		sizes[i] = len(b)
	}
	c.tree.rebuild(sizes)
}

// split detaches the upper half of an over-sized bucket into a new bucket
// immediately after it, then rebuilds the rank index. Precondition:
// len(buckets[i]) > upperLoad.
func (c *Container[T]) split(i int) {
	bucket := c.buckets[i]
	if len(bucket) <= upperLoad {
		panic(fmt.Sprintf("sortedlist: split called on bucket %d of size %d, not over upperLoad", i, len(bucket)))
	}

	mid := len(bucket) / 2
	upper := make([]T, len(bucket)-mid)
	copy(upper, bucket[mid:])
	c.buckets[i] = bucket[:mid:mid]

	c.buckets = append(c.buckets, nil)
	copy(c.buckets[i+2:], c.buckets[i+1:])
	c.buckets[i+1] = upper

	c.rebuildTree()
}

// collapse merges bucket i into whichever neighbor is smaller (ties go to
// the right neighbor), removing the emptied bucket. If the merged bucket
// exceeds upperLoad it is split again at once, so no bucket is left above
// upperLoad; either way the rank index is rebuilt. Precondition:
// len(buckets) > 1.
func (c *Container[T]) collapse(i int) {
	if len(c.buckets) <= 1 {
		panic(fmt.Sprintf("sortedlist: collapse called with only %d bucket(s)", len(c.buckets)))
	}

	leftSize, rightSize := maxInt, maxInt
	if i >= 1 {
		leftSize = len(c.buckets[i-1])
	}
	if i+1 < len(c.buckets) {
		rightSize = len(c.buckets[i+1])
	}

	merged := i
	if leftSize < rightSize {
		c.buckets[i-1] = append(c.buckets[i-1], c.buckets[i]...)
		c.buckets = append(c.buckets[:i], c.buckets[i+1:]...)
		merged = i - 1
	} else {
		c.buckets[i] = append(c.buckets[i], c.buckets[i+1]...)
		c.buckets = append(c.buckets[:i+1], c.buckets[i+2:]...)
	}

	if len(c.buckets[merged]) > upperLoad {
		c.split(merged)
		return
	}
	c.rebuildTree()
}

const maxInt = int(^uint(0) >> 1)
