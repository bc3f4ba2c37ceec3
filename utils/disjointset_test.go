package utils

import (
	"reflect"
	"testing"
)

func TestDisjointSetTransitiveUnion(t *testing.T) {
	ds := NewDisjointSet(5)
	ds.Union(0, 1)
	ds.Union(1, 3)

	if ds.Find(0) != ds.Find(3) {
		t.Error("0 and 3 should share a root after 0-1 and 1-3")
	}
	if ds.Find(2) == ds.Find(0) {
		t.Error("2 was never merged")
	}
}

func TestDisjointSetUnionReportsMerge(t *testing.T) {
	ds := NewDisjointSet(3)
	if !ds.Union(0, 2) {
		t.Error("first union of separate sets should return true")
	}
	if ds.Union(2, 0) {
		t.Error("union of already merged sets should return false")
	}
}

func TestDisjointSetComponents(t *testing.T) {
	ds := NewDisjointSet(6)
	ds.Union(4, 1)
	ds.Union(5, 2)
	ds.Union(2, 4)

	want := [][]int{{0}, {1, 2, 4, 5}, {3}}
	if got := ds.Components(); !reflect.DeepEqual(got, want) {
		t.Errorf("Components() = %v; want %v", got, want)
	}
}
