package lmnn

import (
	"fmt"
	"sort"
)

// partition maps each distinct label value to the indices of points
// carrying that label (same) and the indices of points carrying any
// other label (diff). A partition is immutable once built; query paths
// hold read-only views of its index lists and never copy them.
type partition struct {
	labels []int // copy of the label vector the partition was built from
	unique []int // distinct label values, ascending
	same   map[int][]int
	diff   map[int][]int
}

// newPartition buckets point indices by label and validates that every
// label group can serve k-neighbor queries: a point's own group must
// hold at least k other points, and the rest of the dataset at least k
// points. Validation failures surface here, before any search work.
func newPartition(labels []int, k int) (*partition, error) {
	n := len(labels)

	same := make(map[int][]int)
	for i, l := range labels {
		same[l] = append(same[l], i)
	}

	unique := make([]int, 0, len(same))
	for l := range same {
		unique = append(unique, l)
	}
	sort.Ints(unique)

	for _, l := range unique {
		if len(same[l])-1 < k {
			return nil, fmt.Errorf("lmnn: label %d has %d points, need at least %d for k=%d target neighbors: %w",
				l, len(same[l]), k+1, k, ErrInsufficientReferencePoints)
		}
		if n-len(same[l]) < k {
			return nil, fmt.Errorf("lmnn: label %d has %d differently labeled points, need at least %d for k=%d impostors: %w",
				l, n-len(same[l]), k, k, ErrInsufficientReferencePoints)
		}
	}

	diff := make(map[int][]int, len(unique))
	for _, l := range unique {
		d := make([]int, 0, n-len(same[l]))
		for i, li := range labels {
			if li != l {
				d = append(d, i)
			}
		}
		diff[l] = d
	}

	labelsCopy := make([]int, n)
	copy(labelsCopy, labels)

	return &partition{labels: labelsCopy, unique: unique, same: same, diff: diff}, nil
}

// matches reports whether the partition was built from exactly this
// label vector.
func (p *partition) matches(labels []int) bool {
	if len(p.labels) != len(labels) {
		return false
	}
	for i, l := range labels {
		if p.labels[i] != l {
			return false
		}
	}
	return true
}
