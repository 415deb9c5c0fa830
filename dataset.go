package lmnn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dataset is an immutable collection of n points with dims features
// each, stored as a flat row-major array. A Dataset must not be mutated
// while a query is running; all constructors copy their input.
type Dataset struct {
	data []float64 // flat row-major point data (n * dims)
	n    int
	dims int
}

// NewDataset builds a Dataset from per-point feature vectors. All points
// must share the same dimensionality.
func NewDataset(points [][]float64) (*Dataset, error) {
	n := len(points)
	if n == 0 {
		return &Dataset{}, nil
	}
	dims := len(points[0])
	if dims == 0 {
		return nil, fmt.Errorf("lmnn: point 0 has no features")
	}

	data := make([]float64, n*dims)
	for i, p := range points {
		if len(p) != dims {
			return nil, fmt.Errorf("lmnn: point %d has %d features, want %d", i, len(p), dims)
		}
		copy(data[i*dims:], p)
	}
	return &Dataset{data: data, n: n, dims: dims}, nil
}

// NewDatasetFromMatrix builds a Dataset from a dims×n matrix in which
// column j holds the feature vector of point j, the column-per-point
// layout common in the metric-learning literature.
func NewDatasetFromMatrix(m mat.Matrix) *Dataset {
	dims, n := m.Dims()
	data := make([]float64, n*dims)
	for j := 0; j < n; j++ {
		for d := 0; d < dims; d++ {
			data[j*dims+d] = m.At(d, j)
		}
	}
	return &Dataset{data: data, n: n, dims: dims}
}

// NumPoints returns the number of points.
func (d *Dataset) NumPoints() int { return d.n }

// NumFeatures returns the dimensionality of each point.
func (d *Dataset) NumFeatures() int { return d.dims }

// Point returns the feature vector of point i as a view into the
// dataset's backing array. Callers must not modify it.
func (d *Dataset) Point(i int) []float64 {
	return d.data[i*d.dims : (i+1)*d.dims]
}
