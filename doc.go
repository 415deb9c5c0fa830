// Package lmnn generates distance-based training constraints for
// large-margin metric learning (LMNN).
//
// For every point in a labeled dataset, the package finds the k nearest
// points sharing that point's label ("target neighbors"), the k nearest
// points carrying any other label ("impostors"), and composes the two
// into (anchor, target, impostor) triplets consumed by a metric-learning
// optimizer.
//
// Basic usage:
//
//	ds, err := lmnn.NewDataset(points)
//	cfg := lmnn.DefaultConfig()
//	cfg.K = 3
//	c, err := lmnn.New(cfg)
//	targets, err := c.TargetNeighbors(ds, labels)
//	impostors, err := c.Impostors(ds, labels)
//	triplets, err := c.Triplets(ds, labels)
//
// # Label partitioning and caching
//
// Every query first partitions the dataset indices by label value. The
// partition is cached on the Constraints value and reused as long as the
// label vector passed to queries is unchanged, so a training loop that
// calls TargetNeighbors and Impostors every iteration pays the
// partitioning cost once. Invalidate discards the cache explicitly.
//
// # Batched queries
//
// An outer optimizer working on mini-batches can restrict a query to a
// contiguous range (TargetNeighborsRange, ImpostorsRange) or to an
// arbitrary set of points (TargetNeighborsAt, ImpostorsAt). Restricted
// queries return exactly the rows the corresponding full-dataset call
// would have produced for those points; there is no batch-dependent
// approximation.
//
// # Search indexes
//
// Restricted-domain nearest-neighbor searches go through a SearchIndex
// built per label group. The default index is an exact ball tree
// (NewBallTreeIndex); NewBruteForceIndex is exact for any Metric and
// preferable for very small groups or high dimensionality. Custom
// engines plug in through Config.NewIndex.
package lmnn
