package lmnn

import (
	"container/heap"
	"math"
	"sort"
)

// ballTree is an exact nearest-neighbor index stored as a complete
// binary tree in array form: node i has children at 2*i+1 and 2*i+2.
// Each node records the centroid and radius of the smallest enclosing
// ball for its points, giving the traversal a triangle-inequality lower
// bound for pruning.
type ballTree struct {
	data     []float64 // flat row-major point data (n * dims)
	n        int
	dims     int
	leafSize int
	metric   Metric
	idxArray []int // permutation: tree-order position → reference index
	nodes    []ballNode
	// centroids[node*dims .. (node+1)*dims) = centroid of node
	centroids []float64
}

type ballNode struct {
	start, end int // range into idxArray
	leaf       bool
	radius     float64
}

// NewBallTreeIndex builds a ball tree over flat row-major reference data
// with n points of dimensionality dims. It is the default IndexBuilder.
// The metric must satisfy the triangle inequality for pruning to stay
// exact; use NewBruteForceIndex for metrics that do not.
func NewBallTreeIndex(data []float64, n, dims int, metric Metric, leafSize int) SearchIndex {
	if leafSize < 1 {
		leafSize = 1
	}

	dataCopy := make([]float64, len(data))
	copy(dataCopy, data)
	idxArray := make([]int, n)
	for i := range idxArray {
		idxArray[i] = i
	}

	maxNodes := maxTreeNodes(n, leafSize)
	t := &ballTree{
		data:      dataCopy,
		n:         n,
		dims:      dims,
		leafSize:  leafSize,
		metric:    metric,
		idxArray:  idxArray,
		nodes:     make([]ballNode, maxNodes),
		centroids: make([]float64, maxNodes*dims),
	}
	if n > 0 {
		t.build(0, 0, n)
	}
	return t
}

// maxTreeNodes returns an upper bound on the number of array slots a
// complete binary tree needs for n points with the given leaf size.
func maxTreeNodes(n, leafSize int) int {
	if n == 0 {
		return 1
	}
	leaves := (n + leafSize - 1) / leafSize
	depth := 0
	for v := 1; v < leaves; v *= 2 {
		depth++
	}
	return (1 << (depth + 1)) + 1 // full tree plus slack for uneven median splits
}

// build recursively constructs the subtree for points idxArray[start:end].
func (t *ballTree) build(nodeID, start, end int) {
	for nodeID >= len(t.nodes) {
		t.nodes = append(t.nodes, ballNode{})
		t.centroids = append(t.centroids, make([]float64, t.dims)...)
	}

	centroid := t.computeCentroid(nodeID, start, end)

	// Radius: max distance from centroid to any point in this node.
	var radius float64
	for i := start; i < end; i++ {
		if d := t.metric.Distance(centroid, t.point(t.idxArray[i])); d > radius {
			radius = d
		}
	}

	if end-start <= t.leafSize {
		t.nodes[nodeID] = ballNode{start: start, end: end, leaf: true, radius: radius}
		return
	}
	t.nodes[nodeID] = ballNode{start: start, end: end, radius: radius}

	// Split at the median of the dimension with the greatest spread.
	dim := t.spreadDim(start, end)
	sub := t.idxArray[start:end]
	dims, data := t.dims, t.data
	sort.Slice(sub, func(i, j int) bool {
		return data[sub[i]*dims+dim] < data[sub[j]*dims+dim]
	})
	mid := start + (end-start)/2

	t.build(2*nodeID+1, start, mid)
	t.build(2*nodeID+2, mid, end)
}

func (t *ballTree) point(i int) []float64 {
	return t.data[i*t.dims : (i+1)*t.dims]
}

// computeCentroid stores the mean of points idxArray[start:end] in the
// centroid slot for nodeID and returns it.
func (t *ballTree) computeCentroid(nodeID, start, end int) []float64 {
	c := t.centroids[nodeID*t.dims : (nodeID+1)*t.dims]
	for d := range c {
		c[d] = 0
	}
	for i := start; i < end; i++ {
		pt := t.point(t.idxArray[i])
		for d := range c {
			c[d] += pt[d]
		}
	}
	count := float64(end - start)
	for d := range c {
		c[d] /= count
	}
	return c
}

// spreadDim returns the dimension with the greatest spread among points
// idxArray[start:end].
func (t *ballTree) spreadDim(start, end int) int {
	best := 0
	bestSpread := -1.0
	for d := 0; d < t.dims; d++ {
		lo := math.Inf(1)
		hi := math.Inf(-1)
		for i := start; i < end; i++ {
			v := t.data[t.idxArray[i]*t.dims+d]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > bestSpread {
			bestSpread = hi - lo
			best = d
		}
	}
	return best
}

// QueryKNN implements SearchIndex.
func (t *ballTree) QueryKNN(queryData []float64, queryRows, k int) ([][]int, [][]float64) {
	indices := make([][]int, queryRows)
	distances := make([][]float64, queryRows)

	for q := 0; q < queryRows; q++ {
		query := queryData[q*t.dims : (q+1)*t.dims]
		h := &knnHeap{}
		heap.Init(h)
		if t.n > 0 {
			t.search(0, query, k, h)
		}
		indices[q], distances[q] = drainHeap(h)
	}

	return indices, distances
}

// search performs a single-tree KNN traversal with a bounded max-heap.
func (t *ballTree) search(nodeID int, query []float64, k int, h *knnHeap) {
	if nodeID >= len(t.nodes) {
		return
	}
	node := t.nodes[nodeID]
	if node.start == node.end && nodeID != 0 {
		return // unused slot
	}

	if node.leaf {
		_, euclidean := t.metric.(EuclideanMetric)
		for i := node.start; i < node.end; i++ {
			ptIdx := t.idxArray[i]
			pt := t.point(ptIdx)
			if euclidean && h.Len() == k {
				// Compare in squared space first: most candidates are
				// rejected here without paying for the sqrt.
				rd := t.metric.ReducedDistance(query, pt)
				top := (*h)[0].dist
				if rd >= top*top {
					continue
				}
				(*h)[0] = knnItem{index: ptIdx, dist: math.Sqrt(rd)}
				heap.Fix(h, 0)
				continue
			}
			d := t.metric.Distance(query, pt)
			if h.Len() < k {
				heap.Push(h, knnItem{index: ptIdx, dist: d})
			} else if d < (*h)[0].dist {
				(*h)[0] = knnItem{index: ptIdx, dist: d}
				heap.Fix(h, 0)
			}
		}
		return
	}

	left := 2*nodeID + 1
	right := 2*nodeID + 2
	leftBound := t.childBound(left, query)
	rightBound := t.childBound(right, query)

	near, far := left, right
	farBound := rightBound
	if rightBound < leftBound {
		near, far = right, left
		farBound = leftBound
	}

	t.search(near, query, k, h)

	if h.Len() < k || farBound < (*h)[0].dist {
		t.search(far, query, k, h)
	}
}

// childBound returns max(0, dist(query, centroid) - radius), a lower
// bound on the distance from query to any point inside the node's ball.
func (t *ballTree) childBound(node int, query []float64) float64 {
	c := t.centroids[node*t.dims : (node+1)*t.dims]
	b := t.metric.Distance(query, c) - t.nodes[node].radius
	if b < 0 {
		b = 0
	}
	return b
}
