// Package denstream implements a kd-tree spatial index and a DenStream
// micro-cluster engine for summarizing unbounded point streams.
//
// The kd-tree answers nearest-neighbor, k-nearest and radius queries over a
// fixed point set:
//
//	tree, err := denstream.NewKDTree(points)
//	nearest, err := tree.Nearest(query)        // nearest.Point, nearest.Index
//	nbh, err := tree.Neighborhood(query, 0.5) // all points within 0.5
//
// The engine keeps a bounded set of time-decayed micro-clusters. The first
// Config.InitPoints points are labelled by a density-based seed routine
// (DBSCAN by default); later points are merged online into the nearest
// potential or outlier cluster, outlier clusters that gain enough weight are
// promoted, and stale clusters are pruned periodically:
//
//	cfg := denstream.DefaultConfig()
//	cfg.Epsilon = 3
//	engine, err := denstream.NewEngine(cfg)
//	for _, p := range stream {
//		if _, err := engine.Insert(p); err != nil {
//			return err
//		}
//	}
//	centers := engine.Centers() // current potential-cluster centers
//
// # Time
//
// Time is logical. One unit elapses every Config.StreamSpeed points, and a
// cluster's weight halves every 1/Config.Lambda units without new points.
// Points must be inserted in arrival order; decay, promotion and pruning all
// depend on it.
//
// # Distance matrix
//
// ComputeDistanceMatrix is a sibling stage for simplicial-complex builders:
// it computes all pairwise distances in parallel and collects the distances
// below a maximum epsilon as candidate thresholds.
package denstream
