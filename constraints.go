package lmnn

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

var (
	// ErrDimensionMismatch indicates the label vector length does not
	// match the dataset's point count.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInsufficientReferencePoints indicates some label's reference
	// group has fewer than K members, i.e. K is too large for the label
	// distribution.
	ErrInsufficientReferencePoints = errors.New("insufficient reference points")

	// ErrIndexOutOfRange indicates a batch range or explicit point
	// selection references an index outside the dataset.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Config controls constraint generation.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// K is the number of target neighbors and impostors per point.
	// Every label in the dataset must be carried by at least K+1 points
	// and not carried by at least K points. Must be >= 1. Default: 3.
	K int

	// Metric is the distance function used to rank neighbors.
	// Built-in: EuclideanMetric, SquaredEuclideanMetric,
	// ManhattanMetric, ChebyshevMetric, MinkowskiMetric, CosineMetric.
	// Use DistanceFunc to wrap a custom function. SquaredEuclideanMetric
	// and CosineMetric require NewBruteForceIndex.
	// Default: EuclideanMetric.
	Metric Metric

	// NewIndex builds the nearest-neighbor search index used for
	// restricted-domain queries, one index per label group per call.
	// Default: NewBallTreeIndex.
	NewIndex IndexBuilder

	// LeafSize controls the maximum number of points in a search-tree
	// leaf node. Only used by tree-based indexes. Default: 40.
	LeafSize int

	// Workers controls the number of goroutines used to fan out
	// per-label searches. 0 means use runtime.NumCPU().
	// Default: 0 (auto).
	Workers int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		K:        3,
		Metric:   EuclideanMetric{},
		NewIndex: NewBallTreeIndex,
		LeafSize: 40,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.NewIndex == nil {
		cfg.NewIndex = NewBallTreeIndex
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = 40
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

// validateConfig checks that cfg fields are valid and returns a
// descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.K < 1 {
		return fmt.Errorf("lmnn: K must be >= 1, got %d", cfg.K)
	}
	if cfg.LeafSize < 1 {
		return fmt.Errorf("lmnn: LeafSize must be >= 1, got %d", cfg.LeafSize)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("lmnn: Workers must be >= 0 (0 means auto), got %d", cfg.Workers)
	}
	return nil
}

// Neighbors holds the result of a target-neighbor or impostor query.
// Row i corresponds to the i-th queried point; each row has exactly K
// entries sorted ascending by distance to the query point.
type Neighbors struct {
	// Indices[i][r] is the global dataset index of the r-th nearest
	// qualifying neighbor of queried point i.
	Indices [][]int

	// Distances[i][r] is the distance from queried point i to
	// Indices[i][r], non-decreasing along each row.
	Distances [][]float64
}

// Triplet is one (anchor, target, impostor) training constraint: pull
// Target toward Anchor, push Impostor away.
type Triplet struct {
	Anchor   int
	Target   int
	Impostor int
}

// Constraints generates target-neighbor, impostor, and triplet
// constraints for a labeled dataset. K is fixed at construction.
//
// A Constraints value caches the label partition between calls and
// rebuilds it only when the label vector passed to a query differs from
// the cached one. Methods are safe for concurrent use: the cache is
// swapped under a lock, and queries only ever read fully built,
// immutable partitions.
type Constraints struct {
	cfg Config

	mu   sync.Mutex
	part *partition
}

// New creates a Constraints generator. A zero K (or any K < 1) is
// rejected: a zero-neighbor query has no meaningful result shape.
func New(cfg Config) (*Constraints, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &Constraints{cfg: cfg}, nil
}

// K returns the configured neighbor count.
func (c *Constraints) K() int { return c.cfg.K }

// Invalidate discards the cached label partition; the next query
// rebuilds it. Queries detect label changes themselves, so Invalidate
// is only needed to release memory or force a rebuild explicitly.
func (c *Constraints) Invalidate() {
	c.mu.Lock()
	c.part = nil
	c.mu.Unlock()
}

// precalculate returns the cached partition when it matches labels,
// otherwise builds, validates, and caches a fresh one. Rebuilding twice
// with unchanged labels returns the identical partition.
func (c *Constraints) precalculate(labels []int) (*partition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.part != nil && c.part.matches(labels) {
		return c.part, nil
	}
	p, err := newPartition(labels, c.cfg.K)
	if err != nil {
		return nil, err
	}
	c.part = p
	return p, nil
}

// TargetNeighbors finds, for every point, its K nearest neighbors
// sharing that point's label, the point itself excluded.
func (c *Constraints) TargetNeighbors(ds *Dataset, labels []int) (*Neighbors, error) {
	return c.neighbors(ds, labels, identity(ds.NumPoints()), refSameLabel)
}

// TargetNeighborsRange is TargetNeighbors restricted to the contiguous
// point range [begin, begin+batchSize). Row i of the result corresponds
// to point begin+i and is identical to that point's row in a
// full-dataset call.
func (c *Constraints) TargetNeighborsRange(ds *Dataset, labels []int, begin, batchSize int) (*Neighbors, error) {
	queries, err := rangeSelection(ds.NumPoints(), begin, batchSize)
	if err != nil {
		return nil, err
	}
	return c.neighbors(ds, labels, queries, refSameLabel)
}

// TargetNeighborsAt is TargetNeighbors restricted to an explicit set of
// point indices. Row i of the result corresponds to points[i].
func (c *Constraints) TargetNeighborsAt(ds *Dataset, labels []int, points []int) (*Neighbors, error) {
	if err := checkPoints(ds.NumPoints(), points); err != nil {
		return nil, err
	}
	return c.neighbors(ds, labels, points, refSameLabel)
}

// Impostors finds, for every point, its K nearest differently labeled
// neighbors.
func (c *Constraints) Impostors(ds *Dataset, labels []int) (*Neighbors, error) {
	return c.neighbors(ds, labels, identity(ds.NumPoints()), refDiffLabel)
}

// ImpostorsRange is Impostors restricted to the contiguous point range
// [begin, begin+batchSize).
func (c *Constraints) ImpostorsRange(ds *Dataset, labels []int, begin, batchSize int) (*Neighbors, error) {
	queries, err := rangeSelection(ds.NumPoints(), begin, batchSize)
	if err != nil {
		return nil, err
	}
	return c.neighbors(ds, labels, queries, refDiffLabel)
}

// ImpostorsAt is Impostors restricted to an explicit set of point
// indices. Row i of the result corresponds to points[i].
func (c *Constraints) ImpostorsAt(ds *Dataset, labels []int, points []int) (*Neighbors, error) {
	if err := checkPoints(ds.NumPoints(), points); err != nil {
		return nil, err
	}
	return c.neighbors(ds, labels, points, refDiffLabel)
}

// Triplets generates every (anchor, target, impostor) constraint: for
// each anchor i in increasing order, the K×K Cartesian product of i's
// target neighbors and impostors, targets varying slower than impostors.
// The result has exactly NumPoints·K² entries.
func (c *Constraints) Triplets(ds *Dataset, labels []int) ([]Triplet, error) {
	targets, err := c.TargetNeighbors(ds, labels)
	if err != nil {
		return nil, err
	}
	impostors, err := c.Impostors(ds, labels)
	if err != nil {
		return nil, err
	}

	n := ds.NumPoints()
	k := c.cfg.K
	triplets := make([]Triplet, 0, n*k*k)
	for i := 0; i < n; i++ {
		for r := 0; r < k; r++ {
			for s := 0; s < k; s++ {
				triplets = append(triplets, Triplet{
					Anchor:   i,
					Target:   targets.Indices[i][r],
					Impostor: impostors.Indices[i][s],
				})
			}
		}
	}
	return triplets, nil
}

// refMode selects which side of the partition serves as the reference
// set for a query.
type refMode int

const (
	refSameLabel refMode = iota
	refDiffLabel
)

// neighbors runs one restricted KNN computation for the given queried
// points. Queried points are grouped by label value: every point of a
// label shares the identical reference set, so one index build and one
// batched search per label serves all of them.
func (c *Constraints) neighbors(ds *Dataset, labels []int, queries []int, mode refMode) (*Neighbors, error) {
	if ds.NumPoints() != len(labels) {
		return nil, fmt.Errorf("lmnn: dataset has %d points but %d labels: %w",
			ds.NumPoints(), len(labels), ErrDimensionMismatch)
	}

	p, err := c.precalculate(labels)
	if err != nil {
		return nil, err
	}

	out := &Neighbors{
		Indices:   make([][]int, len(queries)),
		Distances: make([][]float64, len(queries)),
	}
	if len(queries) == 0 {
		return out, nil
	}

	// Group result-row positions by query label.
	byLabel := make(map[int][]int)
	for pos, q := range queries {
		byLabel[labels[q]] = append(byLabel[labels[q]], pos)
	}
	groups := make([]labelGroup, 0, len(byLabel))
	for _, l := range p.unique {
		if positions, ok := byLabel[l]; ok {
			groups = append(groups, labelGroup{label: l, positions: positions})
		}
	}

	// Per-label searches are independent and write disjoint result rows,
	// so they fan out across workers with no output synchronization.
	if c.cfg.Workers <= 1 || len(groups) == 1 {
		for _, g := range groups {
			if err := c.searchGroup(ds, p, queries, g, mode, out); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	errs := make([]error, len(groups))
	sem := make(chan struct{}, c.cfg.Workers)
	var wg sync.WaitGroup
	for gi := range groups {
		wg.Add(1)
		sem <- struct{}{}
		go func(gi int) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[gi] = c.searchGroup(ds, p, queries, groups[gi], mode, out)
		}(gi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// labelGroup collects the result-row positions of all queried points
// carrying one label.
type labelGroup struct {
	label     int
	positions []int
}

// searchGroup issues the one batched search serving every queried point
// of g's label and writes the group's result rows.
func (c *Constraints) searchGroup(ds *Dataset, p *partition, queries []int, g labelGroup, mode refMode, out *Neighbors) error {
	k := c.cfg.K

	qIdx := make([]int, len(g.positions))
	for i, pos := range g.positions {
		qIdx[i] = queries[pos]
	}

	if mode == refSameLabel {
		// The reference group contains each query point itself: ask for
		// k+1 neighbors and drop the self entry afterwards.
		idx, dist, err := searchSubset(ds, p.same[g.label], qIdx, k+1, c.cfg.NewIndex, c.cfg.Metric, c.cfg.LeafSize)
		if err != nil {
			return err
		}
		for i, pos := range g.positions {
			out.Indices[pos], out.Distances[pos] = dropSelf(idx[i], dist[i], qIdx[i], k)
		}
		return nil
	}

	idx, dist, err := searchSubset(ds, p.diff[g.label], qIdx, k, c.cfg.NewIndex, c.cfg.Metric, c.cfg.LeafSize)
	if err != nil {
		return err
	}
	for i, pos := range g.positions {
		out.Indices[pos] = idx[i]
		out.Distances[pos] = dist[i]
	}
	return nil
}

// dropSelf removes the query point itself from a same-group search
// result and truncates to k entries. The self entry is matched by index,
// not by distance: with duplicate points the zero-distance slot need not
// be the query itself. If ties pushed the self entry out of the k+1
// result entirely, the farthest entry is dropped instead.
func dropSelf(idx []int, dist []float64, self, k int) ([]int, []float64) {
	outIdx := make([]int, 0, k)
	outDist := make([]float64, 0, k)
	for i := range idx {
		if idx[i] == self {
			continue
		}
		if len(outIdx) == k {
			break
		}
		outIdx = append(outIdx, idx[i])
		outDist = append(outDist, dist[i])
	}
	return outIdx, outDist
}

// identity returns the selection covering every point.
func identity(n int) []int {
	pts := make([]int, n)
	for i := range pts {
		pts[i] = i
	}
	return pts
}

// rangeSelection expands a contiguous [begin, begin+batchSize) batch
// into explicit point indices, validating the bounds.
func rangeSelection(n, begin, batchSize int) ([]int, error) {
	if begin < 0 || batchSize < 0 || begin+batchSize > n {
		return nil, fmt.Errorf("lmnn: batch [%d, %d) out of range for %d points: %w",
			begin, begin+batchSize, n, ErrIndexOutOfRange)
	}
	pts := make([]int, batchSize)
	for i := range pts {
		pts[i] = begin + i
	}
	return pts, nil
}

// checkPoints validates an explicit point selection.
func checkPoints(n int, points []int) error {
	for _, p := range points {
		if p < 0 || p >= n {
			return fmt.Errorf("lmnn: point index %d out of range [0, %d): %w", p, n, ErrIndexOutOfRange)
		}
	}
	return nil
}
