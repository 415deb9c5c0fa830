package lmnn

import (
	"math"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/floats"
)

// Metric provides distance computation with an optional reduced distance
// for pruning optimizations (e.g., squared Euclidean skips the sqrt).
// Distance must satisfy the triangle inequality for tree-backed search
// indexes to stay exact; BruteForceIndex works with any Metric.
type Metric interface {
	Distance(a, b []float64) float64
	ReducedDistance(a, b []float64) float64
}

// DistanceFunc adapts a plain function into a Metric.
// ReducedDistance delegates to the same function.
type DistanceFunc func(a, b []float64) float64

func (f DistanceFunc) Distance(a, b []float64) float64        { return f(a, b) }
func (f DistanceFunc) ReducedDistance(a, b []float64) float64 { return f(a, b) }

// EuclideanMetric computes the Euclidean (L2) distance using SIMD
// acceleration where available. ReducedDistance returns the squared
// Euclidean distance.
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 {
	return vek.Distance(a, b)
}

func (EuclideanMetric) ReducedDistance(a, b []float64) float64 {
	d := vek.Distance(a, b)
	return d * d
}

// SquaredEuclideanMetric computes the squared Euclidean distance, the
// classic LMNN objective distance. Neighbor rankings match
// EuclideanMetric exactly while skipping the final sqrt. Squared
// distances violate the triangle inequality; pair it with
// BruteForceIndex.
type SquaredEuclideanMetric struct{}

func (SquaredEuclideanMetric) Distance(a, b []float64) float64 {
	d := vek.Distance(a, b)
	return d * d
}

func (m SquaredEuclideanMetric) ReducedDistance(a, b []float64) float64 {
	return m.Distance(a, b)
}

// ManhattanMetric computes the Manhattan (L1 / city-block) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}

func (m ManhattanMetric) ReducedDistance(a, b []float64) float64 { return m.Distance(a, b) }

// ChebyshevMetric computes the Chebyshev (L-infinity) distance.
type ChebyshevMetric struct{}

func (ChebyshevMetric) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}

func (m ChebyshevMetric) ReducedDistance(a, b []float64) float64 { return m.Distance(a, b) }

// MinkowskiMetric computes the Minkowski distance parameterized by P.
// P must be >= 1. Panics if P < 1.
// ReducedDistance returns sum(|a[i]-b[i]|^P) without the final root.
type MinkowskiMetric struct {
	P float64
}

func (m MinkowskiMetric) Distance(a, b []float64) float64 {
	m.checkP()
	return floats.Distance(a, b, m.P)
}

func (m MinkowskiMetric) ReducedDistance(a, b []float64) float64 {
	m.checkP()
	return math.Pow(floats.Distance(a, b, m.P), m.P)
}

func (m MinkowskiMetric) checkP() {
	if m.P < 1 {
		panic("lmnn: MinkowskiMetric P must be >= 1")
	}
}

// CosineMetric computes the cosine distance: 1 - cosine_similarity.
// For two zero vectors, the result is NaN (0/0). Cosine distance does
// not satisfy the triangle inequality; pair it with BruteForceIndex.
type CosineMetric struct{}

func (CosineMetric) Distance(a, b []float64) float64 {
	return 1.0 - vek.Dot(a, b)/math.Sqrt(vek.Dot(a, a)*vek.Dot(b, b))
}

func (m CosineMetric) ReducedDistance(a, b []float64) float64 { return m.Distance(a, b) }
