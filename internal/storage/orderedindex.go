// internal/storage/orderedindex.go
//
// This file implements a rank-ordered secondary index for a single table
// column, used by RankDB to accelerate equality lookups and, unlike the
// B-tree it replaces, to answer range scans, ORDER BY paging, and "where
// would this row rank" queries directly.
//
// High-level design (read this first):
//   - Each (column value, row index) pair is encoded as one composite string
//     "value\x00<row padded to 10 digits>" and stored in a single
//     sortedlist.Container[string]. Lexicographic string order on the
//     composite key matches ascending (value, row) order: the \x00
//     separator sorts below every other byte a value may contain, so a
//     value that is a prefix of another still orders correctly.
//   - Because the container only requires its element type to satisfy
//     cmp.Ordered, this composite-string encoding is what lets a structured
//     (value, row) pair live in it with no custom comparator: exactly the
//     container's only non-goal around comparators.
//   - Equality and range lookups both reduce to locating the composite-key
//     span for a value (or value range) via BinarySearch, then walking that
//     span with Get. Equal-value runs can straddle a bucket boundary (the
//     container does not guarantee insertion-order stability among equal
//     keys), so the span is found by expanding outward from whatever
//     position BinarySearch returns, rather than assuming it already sits at
//     the span's edge.
//
// What is implemented here:
//   - Insert/Remove: O(sqrt n) amortised, same cost model as the underlying container.
//   - Equal/Range: exact-match and inclusive value-range row lookups.
//   - Rank/At: row rank within the index and rank-indexed lookup, for ORDER BY paging.
package storage

import (
	"fmt"
	"strconv"

	"github.com/rankdb/rankdb/internal/sortedlist"
)

// rowDigits is wide enough that row ordinals never overflow the padded
// field; a table with 10^10 rows is out of scope for this in-memory store.
const rowDigits = 10

// IndexHit is one (value, row) entry as ordered within an OrderedIndex.
type IndexHit struct {
	Value string
	Row   int
}

// OrderedIndex is a per-column secondary index backed by the order-statistic
// container: it can answer equality lookups, value-range scans, and
// rank-indexed access, all on the column's ascending value order.
type OrderedIndex struct {
	entries *sortedlist.Container[string]
}

// NewOrderedIndex returns an empty index.
func NewOrderedIndex() *OrderedIndex {
	return &OrderedIndex{entries: sortedlist.New[string]()}
}

// BuildOrderedIndex builds an index over rows[*][colIdx] in one batch
// construction instead of len(rows) individual inserts; the hot path for
// CREATE INDEX and for rebuilding an index after UPDATE/DELETE reshuffles
// row positions.
func BuildOrderedIndex(rows [][]string, colIdx int) *OrderedIndex {
	keys := make([]string, 0, len(rows))
	for row, cols := range rows {
		if colIdx < len(cols) {
			keys = append(keys, compositeKey(cols[colIdx], row))
		}
	}
	return &OrderedIndex{entries: sortedlist.FromBatch(keys)}
}

func compositeKey(value string, row int) string {
	return fmt.Sprintf("%s\x00%0*d", value, rowDigits, row)
}

func decodeKey(key string) IndexHit {
	sep := len(key) - 1 - rowDigits
	row, _ := strconv.Atoi(key[sep+1:])
	return IndexHit{Value: key[:sep], Row: row}
}

// Insert adds value at row to the index.
func (idx *OrderedIndex) Insert(value string, row int) {
	idx.entries.Insert(compositeKey(value, row))
}

// Remove removes the (value, row) entry, reporting whether it was present.
func (idx *OrderedIndex) Remove(value string, row int) bool {
	key := compositeKey(value, row)
	rank, ok := idx.entries.BinarySearch(key)
	if !ok {
		return false
	}
	idx.entries.RemoveAt(rank)
	return true
}

// Len returns the number of indexed entries.
func (idx *OrderedIndex) Len() int { return idx.entries.Len() }

// Equal returns the row numbers whose value matches exactly, in row order.
func (idx *OrderedIndex) Equal(value string) []int {
	hits := idx.Range(value, value)
	rows := make([]int, len(hits))
	for i, h := range hits {
		rows[i] = h.Row
	}
	return rows
}

// Range returns every entry with lo <= value <= hi, in ascending order.
func (idx *OrderedIndex) Range(lo, hi string) []IndexHit {
	if idx.entries.Len() == 0 || lo > hi {
		return nil
	}

	anchor, _ := idx.entries.BinarySearch(compositeKey(lo, 0))
	if anchor >= idx.entries.Len() {
		anchor = idx.entries.Len() - 1
	}

	inRange := func(rank int) (IndexHit, bool) {
		raw, ok := idx.entries.Get(rank)
		if !ok {
			return IndexHit{}, false
		}
		hit := decodeKey(raw)
		if hit.Value < lo || hit.Value > hi {
			return IndexHit{}, false
		}
		return hit, true
	}

	start := anchor
	for start > 0 {
		if _, ok := inRange(start - 1); !ok {
			break
		}
		start--
	}

	var out []IndexHit
	for rank := start; ; rank++ {
		hit, ok := inRange(rank)
		if !ok {
			break
		}
		out = append(out, hit)
	}
	return out
}

// Rank returns the 0-based rank of a specific (value, row) entry among all
// indexed entries, i.e. where this row would sit if the table were fully
// sorted by this column.
func (idx *OrderedIndex) Rank(row int, value string) (int, bool) {
	return idx.entries.BinarySearch(compositeKey(value, row))
}

// At returns the entry at the given rank within the index.
func (idx *OrderedIndex) At(rank int) (IndexHit, bool) {
	raw, ok := idx.entries.Get(rank)
	if !ok {
		return IndexHit{}, false
	}
	return decodeKey(raw), true
}
