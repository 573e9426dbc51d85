package denstream

import (
	"container/heap"
	"sort"
)

// NoNode marks an absent subtree in KDTree accessors.
const NoNode = -1

// kdNode is one arena entry. Each node holds exactly one point; the split
// axis rotates with depth.
type kdNode struct {
	index       int // original position, also the row in KDTree.points
	axis        int
	left, right int // arena positions, NoNode when absent
}

// KDTree is a kd-tree spatial index over a fixed point set. Each node stores
// one point and splits space at axis depth mod D; the left subtree holds
// points whose coordinate at that axis sorts before the node's, the right
// subtree the rest.
//
// Nodes live in a flat arena and reference children by position. The tree is
// immutable after construction and safe for concurrent readers.
type KDTree struct {
	points [][]float64 // copied input, indexed by original position
	dims   int
	nodes  []kdNode
	root   int
	metric EuclideanMetric
}

// NewKDTree builds a balanced kd-tree over points. The points are copied.
//
// An empty input produces a valid empty tree whose queries return
// ErrEmptyIndex. Points of differing lengths return a
// *DimensionMismatchError.
func NewKDTree(points [][]float64) (*KDTree, error) {
	dims, err := checkDims(points)
	if err != nil {
		return nil, err
	}

	n := len(points)
	backing := make([]float64, n*dims)
	rows := make([][]float64, n)
	order := make([]int, n)
	for i, p := range points {
		row := backing[i*dims : (i+1)*dims : (i+1)*dims]
		copy(row, p)
		rows[i] = row
		order[i] = i
	}

	t := &KDTree{
		points: rows,
		dims:   dims,
		nodes:  make([]kdNode, 0, n),
		root:   NoNode,
	}
	if n > 0 {
		t.root = t.build(order, 0)
	}
	return t, nil
}

// build recursively partitions order (a slice of original indices) and
// returns the arena position of the subtree root.
func (t *KDTree) build(order []int, level int) int {
	if len(order) == 0 {
		return NoNode
	}

	axis := level % t.dims
	if len(order) > 1 {
		pts := t.points
		sort.SliceStable(order, func(i, j int) bool {
			return pts[order[i]][axis] < pts[order[j]][axis]
		})
	}

	mid := len(order) / 2
	id := len(t.nodes)
	t.nodes = append(t.nodes, kdNode{index: order[mid], axis: axis, left: NoNode, right: NoNode})

	// Children are appended after the parent, so write them back by position.
	left := t.build(order[:mid], level+1)
	right := t.build(order[mid+1:], level+1)
	t.nodes[id].left = left
	t.nodes[id].right = right
	return id
}

// --- introspection ---

func (t *KDTree) Len() int  { return len(t.points) }
func (t *KDTree) Dims() int { return t.dims }

// Root returns the arena position of the root node, or NoNode when empty.
func (t *KDTree) Root() int { return t.root }

// Children returns the left and right children of node (NoNode when absent).
func (t *KDTree) Children(node int) (left, right int) {
	return t.nodes[node].left, t.nodes[node].right
}

// PointOf returns the point stored at node. The slice must not be modified.
func (t *KDTree) PointOf(node int) []float64 { return t.points[t.nodes[node].index] }

// IndexOf returns the original index of the point stored at node.
func (t *KDTree) IndexOf(node int) int { return t.nodes[node].index }

// AxisOf returns the split axis of node.
func (t *KDTree) AxisOf(node int) int { return t.nodes[node].axis }

// Depth returns the number of levels in the tree (0 when empty).
func (t *KDTree) Depth() int { return t.depth(t.root) }

func (t *KDTree) depth(node int) int {
	if node == NoNode {
		return 0
	}
	return 1 + max(t.depth(t.nodes[node].left), t.depth(t.nodes[node].right))
}

func (t *KDTree) checkQuery(query []float64) error {
	if t.root == NoNode {
		return ErrEmptyIndex
	}
	if len(query) != t.dims {
		return &DimensionMismatchError{Expected: t.dims, Actual: len(query)}
	}
	return nil
}

// sides returns the child a query would be inserted under first, and the
// other child.
func (t *KDTree) sides(n kdNode, query []float64) (near, far int) {
	if t.points[n.index][n.axis] > query[n.axis] {
		return n.left, n.right
	}
	return n.right, n.left
}

func (t *KDTree) pointIndex(idx int) PointIndex {
	return PointIndex{Point: t.points[idx], Index: idx}
}

// --- nearest neighbor ---

// nnBest tracks the running answer of a nearest-neighbor descent.
type nnBest struct {
	index int
	dist  float64
}

// Nearest returns the indexed point closest to query. Exact distance ties go
// to the smallest original index.
func (t *KDTree) Nearest(query []float64) (PointIndex, error) {
	if err := t.checkQuery(query); err != nil {
		return PointIndex{}, err
	}

	rootIdx := t.nodes[t.root].index
	best := nnBest{index: rootIdx, dist: t.metric.Distance(t.points[rootIdx], query)}
	t.nearest(t.root, query, &best)
	return t.pointIndex(best.index), nil
}

func (t *KDTree) nearest(node int, query []float64, best *nnBest) {
	if node == NoNode {
		return
	}
	n := t.nodes[node]
	p := t.points[n.index]

	d := t.metric.Distance(p, query)
	if d < best.dist || (d == best.dist && n.index < best.index) {
		best.index = n.index
		best.dist = d
	}

	near, far := t.sides(n, query)
	t.nearest(near, query, best)

	// The far side can only hold a point at least as close as the current
	// best if the splitting hyperplane is within best.dist. Equality is
	// included so ties on the plane still reach the smaller index.
	if axisDistance(p, query, n.axis) <= best.dist {
		t.nearest(far, query, best)
	}
}

// NearestPoint returns only the point of Nearest.
func (t *KDTree) NearestPoint(query []float64) ([]float64, error) {
	pi, err := t.Nearest(query)
	return pi.Point, err
}

// NearestIndex returns only the original index of Nearest.
func (t *KDTree) NearestIndex(query []float64) (int, error) {
	pi, err := t.Nearest(query)
	if err != nil {
		return -1, err
	}
	return pi.Index, nil
}

// --- radius neighborhood ---

// Neighborhood returns all points within radius of query (inclusive). The
// result order follows the traversal and is otherwise unspecified; an empty
// result is not an error.
func (t *KDTree) Neighborhood(query []float64, radius float64) ([]PointIndex, error) {
	if radius < 0 {
		return nil, ErrInvalidRadius
	}
	if err := t.checkQuery(query); err != nil {
		return nil, err
	}
	return t.neighborhood(t.root, query, radius, nil), nil
}

func (t *KDTree) neighborhood(node int, query []float64, radius float64, out []PointIndex) []PointIndex {
	if node == NoNode {
		return out
	}
	n := t.nodes[node]
	p := t.points[n.index]

	if t.metric.Distance(p, query) <= radius {
		out = append(out, t.pointIndex(n.index))
	}

	near, far := t.sides(n, query)
	out = t.neighborhood(near, query, radius, out)
	if axisDistance(p, query, n.axis) <= radius {
		out = t.neighborhood(far, query, radius, out)
	}
	return out
}

// NeighborhoodPoints returns only the points of Neighborhood.
func (t *KDTree) NeighborhoodPoints(query []float64, radius float64) ([][]float64, error) {
	nbh, err := t.Neighborhood(query, radius)
	if err != nil {
		return nil, err
	}
	pts := make([][]float64, len(nbh))
	for i, pi := range nbh {
		pts[i] = pi.Point
	}
	return pts, nil
}

// NeighborhoodIndices returns only the original indices of Neighborhood.
func (t *KDTree) NeighborhoodIndices(query []float64, radius float64) ([]int, error) {
	nbh, err := t.Neighborhood(query, radius)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(nbh))
	for i, pi := range nbh {
		idx[i] = pi.Index
	}
	return idx, nil
}

// --- k nearest neighbors ---

// Neighbor is a KNearest result.
type Neighbor struct {
	PointIndex
	Distance float64
}

// KNearest returns the k points closest to query, sorted by ascending
// distance with ties ordered by original index. Fewer than k results are
// returned when the tree holds fewer points.
func (t *KDTree) KNearest(query []float64, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if err := t.checkQuery(query); err != nil {
		return nil, err
	}

	h := &knnHeap{}
	heap.Init(h)
	t.knnSearch(t.root, query, k, h)

	out := make([]Neighbor, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		item := heap.Pop(h).(knnItem)
		out[i] = Neighbor{PointIndex: t.pointIndex(item.index), Distance: item.dist}
	}
	return out, nil
}

// knnSearch is the k-bounded version of nearest: the heap top plays the role
// of the running best once k candidates are held.
func (t *KDTree) knnSearch(node int, query []float64, k int, h *knnHeap) {
	if node == NoNode {
		return
	}
	n := t.nodes[node]
	p := t.points[n.index]

	item := knnItem{index: n.index, dist: t.metric.Distance(p, query)}
	if h.Len() < k {
		heap.Push(h, item)
	} else if item.before((*h)[0]) {
		(*h)[0] = item
		heap.Fix(h, 0)
	}

	near, far := t.sides(n, query)
	t.knnSearch(near, query, k, h)
	if h.Len() < k || axisDistance(p, query, n.axis) <= (*h)[0].dist {
		t.knnSearch(far, query, k, h)
	}
}

type knnItem struct {
	index int
	dist  float64
}

// before reports whether a ranks ahead of b: closer, or equally close with
// a smaller index.
func (a knnItem) before(b knnItem) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.index < b.index
}

// knnHeap is a max-heap of knnItem (worst candidate on top) used as a
// bounded priority queue for KNN queries.
type knnHeap []knnItem

func (h knnHeap) Len() int            { return len(h) }
func (h knnHeap) Less(i, j int) bool  { return h[j].before(h[i]) } // max-heap
func (h knnHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *knnHeap) Push(x interface{}) { *h = append(*h, x.(knnItem)) }
func (h *knnHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
