package lmnn

import (
	"math/rand"
	"testing"
)

func TestBallTreeIndex_QueryKNN_SimpleLine(t *testing.T) {
	// Points on a line: 0, 1, 2, 10.
	data := []float64{0, 1, 2, 10}
	idx := NewBallTreeIndex(data, 4, 1, EuclideanMetric{}, 2)

	query := []float64{0.4}
	indices, distances := idx.QueryKNN(query, 1, 2)

	if len(indices[0]) != 2 {
		t.Fatalf("expected 2 results, got %d", len(indices[0]))
	}
	if indices[0][0] != 0 || indices[0][1] != 1 {
		t.Errorf("indices = %v, want [0 1]", indices[0])
	}
	if !almostEqual(distances[0][0], 0.4, floatTol) || !almostEqual(distances[0][1], 0.6, floatTol) {
		t.Errorf("distances = %v, want [0.4 0.6]", distances[0])
	}
}

func TestBallTreeIndex_QueryKNN_SortedAscending(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n, dims := 200, 3
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = rng.Float64() * 50
	}

	idx := NewBallTreeIndex(data, n, dims, EuclideanMetric{}, 5)
	_, distances := idx.QueryKNN(data, n, 10)

	for q := range distances {
		for i := 1; i < len(distances[q]); i++ {
			if distances[q][i] < distances[q][i-1] {
				t.Fatalf("query %d: distances not ascending: %v", q, distances[q])
			}
		}
	}
}

func TestBallTreeIndex_QueryKNN_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n, dims := 150, 4
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = rng.Float64() * 100
	}
	queries := make([]float64, 30*dims)
	for i := range queries {
		queries[i] = rng.Float64() * 100
	}

	for _, leafSize := range []int{1, 5, 40, 200} {
		tree := NewBallTreeIndex(data, n, dims, EuclideanMetric{}, leafSize)
		brute := NewBruteForceIndex(data, n, dims, EuclideanMetric{}, leafSize)

		treeIdx, treeDist := tree.QueryKNN(queries, 30, 7)
		bruteIdx, bruteDist := brute.QueryKNN(queries, 30, 7)

		for q := 0; q < 30; q++ {
			for i := 0; i < 7; i++ {
				if treeIdx[q][i] != bruteIdx[q][i] {
					t.Fatalf("leafSize %d, query %d: tree indices %v != brute %v",
						leafSize, q, treeIdx[q], bruteIdx[q])
				}
				if !almostEqual(treeDist[q][i], bruteDist[q][i], 1e-9) {
					t.Fatalf("leafSize %d, query %d: tree distances %v != brute %v",
						leafSize, q, treeDist[q], bruteDist[q])
				}
			}
		}
	}
}

func TestBallTreeIndex_QueryKNN_ManhattanMetric(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n, dims := 80, 2
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = rng.Float64() * 10
	}

	tree := NewBallTreeIndex(data, n, dims, ManhattanMetric{}, 4)
	brute := NewBruteForceIndex(data, n, dims, ManhattanMetric{}, 4)

	treeIdx, _ := tree.QueryKNN(data, n, 5)
	bruteIdx, _ := brute.QueryKNN(data, n, 5)

	for q := 0; q < n; q++ {
		for i := 0; i < 5; i++ {
			if treeIdx[q][i] != bruteIdx[q][i] {
				t.Fatalf("query %d: tree %v != brute %v", q, treeIdx[q], bruteIdx[q])
			}
		}
	}
}

func TestBallTreeIndex_EuclideanReplacement_ReturnsTrueDistances(t *testing.T) {
	// Forces the heap-full replacement path for the Euclidean case: the
	// third point evicts the second, and the reported distances must be
	// plain Euclidean, not squared.
	data := []float64{
		0, 0,
		3, 4,
		-1, 0,
	}
	idx := NewBallTreeIndex(data, 3, 2, EuclideanMetric{}, 40)

	indices, distances := idx.QueryKNN([]float64{0, 0}, 1, 2)
	if indices[0][0] != 0 || indices[0][1] != 2 {
		t.Fatalf("indices = %v, want [0 2]", indices[0])
	}
	if !almostEqual(distances[0][0], 0, floatTol) || !almostEqual(distances[0][1], 1, floatTol) {
		t.Errorf("distances = %v, want [0 1]", distances[0])
	}
}

func TestBallTreeIndex_KLargerThanN_Truncates(t *testing.T) {
	data := []float64{0, 1, 2}
	idx := NewBallTreeIndex(data, 3, 1, EuclideanMetric{}, 2)

	indices, distances := idx.QueryKNN([]float64{0}, 1, 10)
	if len(indices[0]) != 3 || len(distances[0]) != 3 {
		t.Errorf("expected 3 results for k > n, got %d", len(indices[0]))
	}
}

func TestBallTreeIndex_CopiesData(t *testing.T) {
	data := []float64{0, 1, 2, 3}
	idx := NewBallTreeIndex(data, 4, 1, EuclideanMetric{}, 2)
	data[0] = 99

	indices, _ := idx.QueryKNN([]float64{0}, 1, 1)
	if indices[0][0] != 0 {
		t.Error("index shares memory with its input data")
	}
}
