package lmnn

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewPartition_Groups(t *testing.T) {
	labels := []int{7, -1, 7, 42, -1, 7}
	p, err := newPartition(labels, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantUnique := []int{-1, 7, 42}
	if !reflect.DeepEqual(p.unique, wantUnique) {
		t.Errorf("unique = %v, want %v", p.unique, wantUnique)
	}
	if !reflect.DeepEqual(p.same[7], []int{0, 2, 5}) {
		t.Errorf("same[7] = %v, want [0 2 5]", p.same[7])
	}
	if !reflect.DeepEqual(p.diff[7], []int{1, 3, 4}) {
		t.Errorf("diff[7] = %v, want [1 3 4]", p.diff[7])
	}
	if !reflect.DeepEqual(p.same[-1], []int{1, 4}) {
		t.Errorf("same[-1] = %v, want [1 4]", p.same[-1])
	}
}

func TestNewPartition_SameAndDiffCoverAllIndices(t *testing.T) {
	labels := []int{0, 1, 0, 1, 0, 1, 0, 1}
	p, err := newPartition(labels, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, l := range p.unique {
		if got := len(p.same[l]) + len(p.diff[l]); got != len(labels) {
			t.Errorf("label %d: |same| + |diff| = %d, want %d", l, got, len(labels))
		}
	}
}

func TestNewPartition_Idempotent(t *testing.T) {
	labels := []int{0, 0, 1, 1, 0, 1}
	p1, err := newPartition(labels, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, err := newPartition(labels, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(p1.same, p2.same) || !reflect.DeepEqual(p1.diff, p2.diff) {
		t.Error("rebuilding from unchanged labels produced a different partition")
	}
}

func TestNewPartition_CopiesLabels(t *testing.T) {
	labels := []int{0, 0, 1, 1}
	p, err := newPartition(labels, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	labels[0] = 1
	if !p.matches([]int{0, 0, 1, 1}) {
		t.Error("partition shares memory with the caller's label slice")
	}
}

func TestNewPartition_SingletonLabelFails(t *testing.T) {
	// Label 2 occurs once: its self-excluding same group is empty.
	_, err := newPartition([]int{0, 0, 0, 1, 1, 1, 2}, 1)
	if !errors.Is(err, ErrInsufficientReferencePoints) {
		t.Fatalf("expected ErrInsufficientReferencePoints, got %v", err)
	}
}

func TestNewPartition_KTooLargeForSameGroup(t *testing.T) {
	// Each label has 3 points; k=3 needs 4 same-label points.
	_, err := newPartition([]int{0, 0, 0, 1, 1, 1}, 3)
	if !errors.Is(err, ErrInsufficientReferencePoints) {
		t.Fatalf("expected ErrInsufficientReferencePoints, got %v", err)
	}
}

func TestNewPartition_KTooLargeForDiffGroup(t *testing.T) {
	// Single label: same-side is fine for k=4 (5 points), but there are
	// no differently labeled points at all.
	_, err := newPartition([]int{0, 0, 0, 0, 0}, 4)
	if !errors.Is(err, ErrInsufficientReferencePoints) {
		t.Fatalf("expected ErrInsufficientReferencePoints, got %v", err)
	}
}

func TestPartitionMatches(t *testing.T) {
	p, err := newPartition([]int{0, 0, 1, 1}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.matches([]int{0, 0, 1, 1}) {
		t.Error("matches() = false for identical labels")
	}
	if p.matches([]int{0, 1, 0, 1}) {
		t.Error("matches() = true for different labels")
	}
	if p.matches([]int{0, 0, 1}) {
		t.Error("matches() = true for shorter labels")
	}
}
