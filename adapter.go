package lmnn

import "fmt"

// searchSubset performs one restricted-domain nearest-neighbor search:
// refs and queries are global dataset indices, the reference set is the
// subset of ds selected by refs, and the returned neighbor indices are
// mapped back from the engine's local positions to global dataset
// indices. Each result row is sorted ascending by distance.
func searchSubset(ds *Dataset, refs, queries []int, k int, build IndexBuilder, metric Metric, leafSize int) ([][]int, [][]float64, error) {
	if len(refs) < k {
		return nil, nil, fmt.Errorf("lmnn: reference set has %d points, need at least %d: %w",
			len(refs), k, ErrInsufficientReferencePoints)
	}

	dims := ds.NumFeatures()

	refData := make([]float64, len(refs)*dims)
	for i, g := range refs {
		copy(refData[i*dims:(i+1)*dims], ds.Point(g))
	}
	queryData := make([]float64, len(queries)*dims)
	for i, g := range queries {
		copy(queryData[i*dims:(i+1)*dims], ds.Point(g))
	}

	index := build(refData, len(refs), dims, metric, leafSize)
	local, dists := index.QueryKNN(queryData, len(queries), k)

	// Map engine-local reference positions back to global dataset indices.
	global := make([][]int, len(local))
	for q, row := range local {
		g := make([]int, len(row))
		for i, l := range row {
			g[i] = refs[l]
		}
		global[q] = g
	}

	return global, dists, nil
}
