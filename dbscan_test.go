package denstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBSCANLabels_TwoGroupsAndNoise(t *testing.T) {
	points := [][]float64{
		{0, 0}, {1, 0}, {0, 1},
		{10, 10}, {11, 10}, {10, 11},
		{50, -50},
	}
	labels, err := DBSCANLabels(points, 3, 1.5, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1, NoiseLabel}, labels)
}

func TestDBSCANLabels_IDsByFirstAppearance(t *testing.T) {
	points := [][]float64{
		{10, 10}, {0, 0}, {11, 10}, {1, 0}, {10, 11}, {0, 1},
	}
	labels, err := DBSCANLabels(points, 3, 1.5, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 1, 0, 1}, labels)
}

func TestDBSCANLabels_BorderPoint(t *testing.T) {
	points := [][]float64{{0}, {0.5}, {1.0}, {1.9}}
	labels, err := DBSCANLabels(points, 3, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0}, labels, "1.9 is not core but borders 1.0")
}

func TestDBSCANLabels_BorderJoinsLowestIndexCore(t *testing.T) {
	// Cluster A, cluster B, then a border point within reach of 0.75
	// (index 3) and 2.5 (index 4).
	points := [][]float64{
		{0}, {0.25}, {0.5}, {0.75},
		{2.5}, {2.75}, {3.0}, {3.25},
		{1.6},
	}
	labels, err := DBSCANLabels(points, 4, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1, 1, 0}, labels)
}

func TestDBSCANLabels_ChainedCores(t *testing.T) {
	// Each point reaches only its immediate neighbors, yet all are connected.
	var points [][]float64
	for i := 0; i < 10; i++ {
		points = append(points, []float64{float64(i), 0})
	}
	labels, err := DBSCANLabels(points, 2, 1, 0)
	require.NoError(t, err)
	for i, l := range labels {
		assert.Equal(t, 0, l, "point %d", i)
	}
}

func TestDBSCANLabels_MinNeighborsOne(t *testing.T) {
	points := [][]float64{{0}, {10}, {20}}
	labels, err := DBSCANLabels(points, 1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, labels, "every point is its own core")
}

func TestDBSCANLabels_ZeroRadiusCoincident(t *testing.T) {
	points := [][]float64{{1, 1}, {1, 1}, {2, 2}, {1, 1}}
	labels, err := DBSCANLabels(points, 3, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, NoiseLabel, 0}, labels)
}

func TestDBSCANLabels_SampleSize(t *testing.T) {
	points := [][]float64{{0}, {0.1}, {0.2}, {5}, {5.1}, {5.2}}
	labels, err := DBSCANLabels(points, 3, 0.5, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, labels)

	labels, err = DBSCANLabels(points, 3, 0.5, 100)
	require.NoError(t, err)
	assert.Len(t, labels, 6)
}

func TestDBSCANLabels_Empty(t *testing.T) {
	labels, err := DBSCANLabels(nil, 3, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestDBSCANLabels_Errors(t *testing.T) {
	points := [][]float64{{0}, {1}}

	_, err := DBSCANLabels(points, 0, 1, 0)
	assert.Error(t, err)

	_, err = DBSCANLabels(points, 2, -1, 0)
	assert.ErrorIs(t, err, ErrInvalidRadius)

	_, err = DBSCANLabels([][]float64{{0}, {1, 2}}, 2, 1, 0)
	var dm *DimensionMismatchError
	assert.ErrorAs(t, err, &dm)
}
