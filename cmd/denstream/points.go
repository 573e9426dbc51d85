package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/TrevorS/denstream"
)

// readPoints parses one point per CSV record. Blank lines and lines starting
// with '#' are skipped; every record must have the same number of fields.
func readPoints(r io.Reader, skipHeader bool) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var points [][]float64
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read points: %w", err)
		}
		if line == 0 && skipHeader {
			continue
		}

		p := make([]float64, len(rec))
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				row, _ := cr.FieldPos(i)
				return nil, fmt.Errorf("read points: line %d field %d: %w", row, i+1, err)
			}
			p[i] = v
		}
		points = append(points, p)
	}
	return points, nil
}

// parsePoint parses comma-separated coordinates.
func parsePoint(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, denstream.ErrEmptyPoint
	}
	fields := strings.Split(s, ",")
	p := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		p[i] = v
	}
	return p, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatRow(p []float64) []string {
	rec := make([]string, len(p))
	for i, v := range p {
		rec[i] = formatFloat(v)
	}
	return rec
}

func writePoints(w io.Writer, points [][]float64) error {
	cw := csv.NewWriter(w)
	for _, p := range points {
		if err := cw.Write(formatRow(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeNeighbors writes index, distance, coordinates per result.
func writeNeighbors(w io.Writer, query []float64, results []denstream.PointIndex) error {
	cw := csv.NewWriter(w)
	for _, r := range results {
		d := denstream.EuclideanMetric{}.Distance(r.Point, query)
		rec := append([]string{strconv.Itoa(r.Index), formatFloat(d)}, formatRow(r.Point)...)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func sortByIndex(results []denstream.PointIndex) {
	slices.SortFunc(results, func(a, b denstream.PointIndex) int { return a.Index - b.Index })
}

type clusterDoc struct {
	ID            uint64    `yaml:"id"`
	CreationTime  int64     `yaml:"creation_time"`
	EditTime      int64     `yaml:"edit_time"`
	Center        []float64 `yaml:"center,flow"`
	Radius        float64   `yaml:"radius"`
	Weight        float64   `yaml:"weight"`
	DecayedWeight float64   `yaml:"decayed_weight"`
}

type clusterReport struct {
	Timestamp int64        `yaml:"timestamp"`
	Potential []clusterDoc `yaml:"potential"`
	Outlier   []clusterDoc `yaml:"outlier,omitempty"`
}

func toClusterDocs(summaries []denstream.ClusterSummary) []clusterDoc {
	docs := make([]clusterDoc, len(summaries))
	for i, s := range summaries {
		docs[i] = clusterDoc{
			ID:            s.ID,
			CreationTime:  s.CreationTime,
			EditTime:      s.EditTime,
			Center:        s.Center,
			Radius:        s.Radius,
			Weight:        s.Weight,
			DecayedWeight: s.DecayedWeight,
		}
	}
	return docs
}
