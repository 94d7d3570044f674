package storage

import (
	"strings"
	"testing"
)

func TestOrderedIndexEqualAndRange(t *testing.T) {
	idx := NewOrderedIndex()
	idx.Insert("b", 0)
	idx.Insert("a", 1)
	idx.Insert("c", 2)
	idx.Insert("b", 3)

	if got := idx.Equal("b"); len(got) != 2 {
		t.Fatalf("Equal(b) = %v, want 2 rows", got)
	}

	hits := idx.Range("a", "b")
	if len(hits) != 3 {
		t.Fatalf("Range(a,b) = %v, want 3 hits", hits)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i-1].Value > hits[i].Value {
			t.Fatalf("Range result not ascending: %v", hits)
		}
	}
}

func TestOrderedIndexRemoveAndRank(t *testing.T) {
	idx := NewOrderedIndex()
	idx.Insert("x", 0)
	idx.Insert("y", 1)
	idx.Insert("z", 2)

	if !idx.Remove("y", 1) {
		t.Fatalf("Remove(y,1) = false, want true")
	}
	if idx.Remove("y", 1) {
		t.Fatalf("second Remove(y,1) = true, want false")
	}
	if idx.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", idx.Len())
	}

	rank, ok := idx.Rank(2, "z")
	if !ok || rank != 1 {
		t.Fatalf("Rank(2,z) = (%d, %v), want (1, true)", rank, ok)
	}
}

func TestBuildOrderedIndexFromRows(t *testing.T) {
	rows := [][]string{
		{"3", "c"},
		{"1", "a"},
		{"2", "b"},
	}
	idx := BuildOrderedIndex(rows, 0)
	if idx.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", idx.Len())
	}
	hit, ok := idx.At(0)
	if !ok || hit.Value != "1" || hit.Row != 1 {
		t.Fatalf("At(0) = (%v, %v), want value 1 row 1", hit, ok)
	}
}

func TestSelectRangeOrderByAndRank(t *testing.T) {
	dataDir := t.TempDir()
	db := NewDatabase(dataDir)

	_ = db.CreateTable("scores", []string{"player", "points"})
	_ = db.Insert("scores", []string{"alice", "30"})
	_ = db.Insert("scores", []string{"bob", "10"})
	_ = db.Insert("scores", []string{"carl", "20"})
	_ = db.CreateIndex("scores", "points")

	out := db.SelectRange("scores", "points", "10", "20")
	if !strings.Contains(out, "bob | 10") || !strings.Contains(out, "carl | 20") || strings.Contains(out, "alice") {
		t.Fatalf("SelectRange(10,20) unexpected output:\n%s", out)
	}

	out = db.SelectOrderBy("scores", "points", -1, 0)
	bobAt := strings.Index(out, "bob")
	carlAt := strings.Index(out, "carl")
	aliceAt := strings.Index(out, "alice")
	if !(bobAt < carlAt && carlAt < aliceAt) {
		t.Fatalf("SelectOrderBy did not return ascending order:\n%s", out)
	}

	out = db.SelectOrderBy("scores", "points", 1, 1)
	if !strings.Contains(out, "carl | 20") || strings.Contains(out, "bob") || strings.Contains(out, "alice") {
		t.Fatalf("SelectOrderBy(limit=1,offset=1) unexpected output:\n%s", out)
	}

	out = db.SelectIndexRank("scores", "points", 0)
	if !strings.Contains(out, "ranks 2 of 3") {
		t.Fatalf("SelectIndexRank(row 0) unexpected output: %q", out)
	}
}

func TestSelectRangeWithoutIndex(t *testing.T) {
	dataDir := t.TempDir()
	db := NewDatabase(dataDir)
	_ = db.CreateTable("t", []string{"k"})

	out := db.SelectRange("t", "k", "a", "z")
	if !strings.Contains(out, "No index") {
		t.Fatalf("expected missing-index message, got: %q", out)
	}
}
