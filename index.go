package lmnn

import "container/heap"

// SearchIndex answers exact k-nearest-neighbor queries over a fixed
// reference set. Implementations are built once per reference set and
// queried with an arbitrary batch of points.
type SearchIndex interface {
	// QueryKNN finds the k nearest reference points for each row in
	// queryData (flat row-major with queryRows rows). It returns
	// per-query local reference indices and distances, both sorted
	// ascending by distance. When the reference set has fewer than k
	// points, results are truncated to the reference set size.
	QueryKNN(queryData []float64, queryRows, k int) (indices [][]int, distances [][]float64)
}

// IndexBuilder constructs a SearchIndex over flat row-major reference
// data with n points of dimensionality dims. leafSize bounds the number
// of points per leaf for tree-based indexes; scan-based indexes ignore
// it.
type IndexBuilder func(data []float64, n, dims int, metric Metric, leafSize int) SearchIndex

// bruteForceIndex scans every reference point per query, keeping the k
// best in a bounded max-heap.
type bruteForceIndex struct {
	data   []float64
	n      int
	dims   int
	metric Metric
}

// NewBruteForceIndex builds a linear-scan SearchIndex. It is exact for
// any Metric, including ones that violate the triangle inequality, and
// competitive with tree indexes for small or high-dimensional reference
// sets. leafSize is ignored.
func NewBruteForceIndex(data []float64, n, dims int, metric Metric, leafSize int) SearchIndex {
	dataCopy := make([]float64, len(data))
	copy(dataCopy, data)
	return &bruteForceIndex{data: dataCopy, n: n, dims: dims, metric: metric}
}

// QueryKNN implements SearchIndex.
func (b *bruteForceIndex) QueryKNN(queryData []float64, queryRows, k int) ([][]int, [][]float64) {
	indices := make([][]int, queryRows)
	distances := make([][]float64, queryRows)

	for q := 0; q < queryRows; q++ {
		query := queryData[q*b.dims : (q+1)*b.dims]
		h := &knnHeap{}
		heap.Init(h)

		for i := 0; i < b.n; i++ {
			d := b.metric.Distance(query, b.data[i*b.dims:(i+1)*b.dims])
			if h.Len() < k {
				heap.Push(h, knnItem{index: i, dist: d})
			} else if d < (*h)[0].dist {
				(*h)[0] = knnItem{index: i, dist: d}
				heap.Fix(h, 0)
			}
		}

		indices[q], distances[q] = drainHeap(h)
	}

	return indices, distances
}

// drainHeap empties a KNN heap into index and distance slices sorted
// ascending by distance.
func drainHeap(h *knnHeap) ([]int, []float64) {
	m := h.Len()
	idx := make([]int, m)
	dist := make([]float64, m)
	for i := m - 1; i >= 0; i-- {
		item := heap.Pop(h).(knnItem)
		idx[i] = item.index
		dist[i] = item.dist
	}
	return idx, dist
}

// --- max-heap for KNN queries ---

type knnItem struct {
	index int
	dist  float64
}

// knnHeap is a max-heap of knnItem (largest distance on top) used as a
// bounded priority queue for KNN queries.
type knnHeap []knnItem

func (h knnHeap) Len() int            { return len(h) }
func (h knnHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist } // max-heap
func (h knnHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *knnHeap) Push(x interface{}) { *h = append(*h, x.(knnItem)) }
func (h *knnHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
