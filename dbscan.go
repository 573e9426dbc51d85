package denstream

import "fmt"

// NoiseLabel is the label given to points that belong to no cluster.
const NoiseLabel = -1

// Labeler partitions the first sampleSize points into density-based groups.
// It returns one label per labelled point: cluster IDs 0..k-1 or NoiseLabel.
// The engine uses it to seed potential micro-clusters.
type Labeler func(points [][]float64, minNeighbors int, radius float64, sampleSize int) ([]int, error)

var _ Labeler = DBSCANLabels

// DBSCANLabels labels the first sampleSize points (all points when
// sampleSize <= 0 or exceeds len(points)) with DBSCAN.
//
// A point is core when at least minNeighbors points, itself included, lie
// within radius. Core points within radius of each other share a cluster;
// a non-core point joins the cluster of its lowest-index core neighbor and
// is noise otherwise. Cluster IDs are assigned in order of first appearance.
func DBSCANLabels(points [][]float64, minNeighbors int, radius float64, sampleSize int) ([]int, error) {
	if minNeighbors < 1 {
		return nil, fmt.Errorf("denstream: minNeighbors must be >= 1, got %d", minNeighbors)
	}
	if radius < 0 {
		return nil, ErrInvalidRadius
	}

	n := len(points)
	if sampleSize > 0 && sampleSize < n {
		n = sampleSize
	}
	sample := points[:n]
	labels := make([]int, n)
	if n == 0 {
		return labels, nil
	}

	tree, err := NewKDTree(sample)
	if err != nil {
		return nil, err
	}

	neighbors := make([][]int, n)
	core := make([]bool, n)
	for i, p := range sample {
		idx, err := tree.NeighborhoodIndices(p, radius)
		if err != nil {
			return nil, err
		}
		neighbors[i] = idx
		core[i] = len(idx) >= minNeighbors
	}

	uf := newUnionFind(n)
	for i := range sample {
		if !core[i] {
			continue
		}
		for _, j := range neighbors[i] {
			if core[j] {
				uf.union(i, j)
			}
		}
	}

	// Border points attach to their lowest-index core neighbor.
	owner := make([]int, n)
	for i := range sample {
		owner[i] = -1
		if core[i] {
			owner[i] = i
			continue
		}
		for _, j := range neighbors[i] {
			if core[j] && (owner[i] == -1 || j < owner[i]) {
				owner[i] = j
			}
		}
	}

	ids := make(map[int]int)
	for i := range sample {
		if owner[i] == -1 {
			labels[i] = NoiseLabel
			continue
		}
		root := uf.find(owner[i])
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return labels, nil
}
