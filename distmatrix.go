package denstream

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/TrevorS/denstream")

// DistanceMatrix holds all pairwise Euclidean distances of a point set and
// the candidate filtration thresholds derived from them.
type DistanceMatrix struct {
	// N is the number of points.
	N int

	// Distances is the flat N×N row-major matrix; Distances[i*N+j] is the
	// distance between points i and j. The diagonal is zero.
	Distances []float64

	// Thresholds is the sorted set of distinct pairwise distances below the
	// maximum epsilon, plus 0 and the maximum epsilon itself.
	Thresholds []float64
}

// At returns the distance between points i and j.
func (m *DistanceMatrix) At(i, j int) float64 { return m.Distances[i*m.N+j] }

// ComputeDistanceMatrix computes the pairwise distance matrix of points using
// up to workers goroutines (runtime.NumCPU() when workers <= 0) and collects
// the distances below maxEpsilon as candidate thresholds.
//
// Rows are split into contiguous ranges; worker w computes dist(i, j) for
// j > i over its range and mirrors it, so no two workers write the same cell.
func ComputeDistanceMatrix(ctx context.Context, points [][]float64, maxEpsilon float64, workers int) (_ *DistanceMatrix, err error) {
	ctx, span := tracer.Start(ctx, "denstream.ComputeDistanceMatrix",
		trace.WithAttributes(
			attribute.Int("distmatrix.points", len(points)),
			attribute.Float64("distmatrix.max_epsilon", maxEpsilon),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if maxEpsilon < 0 {
		return nil, fmt.Errorf("denstream: maxEpsilon must be >= 0, got %v", maxEpsilon)
	}
	if _, err := checkDims(points); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	n := len(points)
	dist := make([]float64, n*n)
	metric := EuclideanMetric{}

	rowsPerWorker := (n + workers - 1) / max(workers, 1)
	thresholds := make([][]float64, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		startRow := w * rowsPerWorker
		endRow := min(startRow+rowsPerWorker, n)
		if startRow >= n {
			break
		}

		g.Go(func() error {
			var local []float64
			for i := startRow; i < endRow; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				for j := i + 1; j < n; j++ {
					d := metric.Distance(points[i], points[j])
					dist[i*n+j] = d
					dist[j*n+i] = d
					if d < maxEpsilon {
						local = append(local, d)
					}
				}
			}
			thresholds[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := []float64{0, maxEpsilon}
	for _, local := range thresholds {
		all = append(all, local...)
	}
	slices.Sort(all)
	all = slices.Compact(all)

	span.SetAttributes(
		attribute.Int("distmatrix.workers", workers),
		attribute.Int("distmatrix.thresholds", len(all)),
	)
	return &DistanceMatrix{
		N:          n,
		Distances:  dist,
		Thresholds: all,
	}, nil
}
