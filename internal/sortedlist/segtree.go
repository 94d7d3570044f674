// internal/sortedlist/segtree.go
package sortedlist

// rankIndex is the Fenwick-style segment tree overlaid on bucket sizes. It
// maps a global rank to a (bucket, offset) pair in O(log treeOffset), and
// supports prefix-sum queries used by BinarySearch to turn a within-bucket
// position into a global rank.
//
// tree is 1-indexed; leaves occupy [treeOffset, 2*treeOffset), internal
// nodes occupy [1, treeOffset), index 0 is unused. tree[1] always equals the
// total element count.
type rankIndex struct {
	tree       []int
	treeOffset int
}

const minTreeOffset = 32

// newRankIndex builds an index sized for zero buckets.
func newRankIndex() *rankIndex {
	r := &rankIndex{}
	r.rebuild(nil)
	return r
}

// rebuild recomputes treeOffset as the smallest power of two >= max(32,
// len(bucketSizes)), resizes the tree, and propagates leaf sums up to the
// root. Cost O(treeOffset). Called on construction, clear, split, collapse.
func (r *rankIndex) rebuild(bucketSizes []int) {
	offset := minTreeOffset
	for offset < len(bucketSizes) {
		offset *= 2
	}

	r.treeOffset = offset
	r.tree = make([]int, 2*offset)

	for i, size := range bucketSizes {
		r.tree[offset+i] = size
	}
	for node := offset - 1; node >= 1; node-- {
		r.tree[node] = r.tree[2*node] + r.tree[2*node+1]
	}
}

// add applies delta (+1 or -1) to leaf i and propagates the change to every
// ancestor up to the root.
func (r *rankIndex) add(i, delta int) {
	node := r.treeOffset + i
	r.tree[node] += delta
	for node > 1 {
		node /= 2
		r.tree[node] = r.tree[2*node] + r.tree[2*node+1]
	}
}

// rangeSum returns the sum of leaves in [lo, hi], inclusive, iteratively;
// preferred over recursion so the call depth stays bounded regardless of
// tree size.
func (r *rankIndex) rangeSum(lo, hi int) int {
	if lo > hi {
		return 0
	}
	lo += r.treeOffset
	hi += r.treeOffset + 1
	sum := 0
	for lo < hi {
		if lo&1 == 1 {
			sum += r.tree[lo]
			lo++
		}
		if hi&1 == 1 {
			hi--
			sum += r.tree[hi]
		}
		lo /= 2
		hi /= 2
	}
	return sum
}

// descend locates the (bucket, offset) pair for 0-based rank k, 0 <= k <
// total length. Precondition enforced by caller.
func (r *rankIndex) descend(k int) (bucket, offset int) {
	remaining := k + 1
	node := 1
	for node < r.treeOffset {
		left := 2 * node
		if r.tree[left] >= remaining {
			node = left
		} else {
			remaining -= r.tree[left]
			node = left + 1
		}
	}
	return node - r.treeOffset, remaining - 1
}

// total is tree[1], the element count tracked by the index.
func (r *rankIndex) total() int {
	if len(r.tree) == 0 {
		return 0
	}
	return r.tree[1]
}
