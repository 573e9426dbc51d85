package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/TrevorS/denstream"
)

const twoGroupsCSV = `# x,y
0,0
1,0
0,1
50,50
51,50
50,51
`

// runCLI executes the root command with stdin and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func smallConfig(t *testing.T) string {
	return writeFile(t, "config.yaml", "epsilon: 2\ninit_points: 6\nmin_points: 3\n")
}

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	recs, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "denstream v")
}

func TestCluster_CSV(t *testing.T) {
	out, err := runCLI(t, twoGroupsCSV, "cluster", "--config", smallConfig(t))
	require.NoError(t, err)

	centers, err := readPoints(strings.NewReader(out), false)
	require.NoError(t, err)
	require.Len(t, centers, 2)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3}, centers[0], 1e-9)
	assert.InDeltaSlice(t, []float64{50 + 1.0/3, 50 + 1.0/3}, centers[1], 1e-9)
}

func TestCluster_FileArgument(t *testing.T) {
	input := writeFile(t, "points.csv", "x,y\n"+twoGroupsCSV)
	out, err := runCLI(t, "", "cluster", "--header", "--config", smallConfig(t), input)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, out), 2)
}

func TestCluster_YAML(t *testing.T) {
	out, err := runCLI(t, twoGroupsCSV+"200,-200\n", "cluster", "--config", smallConfig(t), "--format", "yaml", "--outliers")
	require.NoError(t, err)

	var report clusterReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	require.Len(t, report.Potential, 2)
	assert.Equal(t, 3.0, report.Potential[0].Weight)
	require.Len(t, report.Outlier, 1)
	assert.Equal(t, []float64{200, -200}, report.Outlier[0].Center)
}

func TestCluster_MetricsFile(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "denstream.prom")
	_, err := runCLI(t, twoGroupsCSV, "cluster", "--config", smallConfig(t), "--metrics-file", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `denstream_points_total{outcome="buffered"} 6`)
	assert.Contains(t, string(data), `denstream_clusters{collection="potential"} 2`)
}

func TestCluster_Errors(t *testing.T) {
	_, err := runCLI(t, twoGroupsCSV, "cluster", "--format", "xml")
	assert.ErrorContains(t, err, "invalid --format")

	bad := writeFile(t, "bad.yaml", "beta: 0.05\n") // Beta*Mu = 0.5
	_, err = runCLI(t, twoGroupsCSV, "cluster", "--config", bad)
	assert.ErrorContains(t, err, "Beta*Mu")

	_, err = runCLI(t, "0,0\n1\n", "cluster")
	assert.ErrorContains(t, err, "read points")

	_, err = runCLI(t, twoGroupsCSV, "cluster", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid --log-level")
}

func TestNeighbors_Nearest(t *testing.T) {
	out, err := runCLI(t, twoGroupsCSV, "neighbors", "--query", "0.9, 0.1")
	require.NoError(t, err)
	recs := readCSV(t, out)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"1", "1", "0"}, []string{recs[0][0], recs[0][2], recs[0][3]})
}

func TestNeighbors_Radius(t *testing.T) {
	for _, extra := range [][]string{nil, {"--linear"}} {
		args := append([]string{"neighbors", "--query", "0,0", "--radius", "1"}, extra...)
		out, err := runCLI(t, twoGroupsCSV, args...)
		require.NoError(t, err)

		var idx []string
		for _, rec := range readCSV(t, out) {
			idx = append(idx, rec[0])
		}
		assert.Equal(t, []string{"0", "1", "2"}, idx, "args %v", args)
	}
}

func TestNeighbors_KNearest(t *testing.T) {
	out, err := runCLI(t, twoGroupsCSV, "neighbors", "--query", "50,50", "--k", "3")
	require.NoError(t, err)
	recs := readCSV(t, out)
	require.Len(t, recs, 3)
	assert.Equal(t, "3", recs[0][0])
	assert.Equal(t, "0", recs[0][1])
	assert.Equal(t, "4", recs[1][0], "ties ordered by index")
	assert.Equal(t, "5", recs[2][0])
}

func TestNeighbors_Errors(t *testing.T) {
	_, err := runCLI(t, twoGroupsCSV, "neighbors", "--query", "0,0", "--radius", "1", "--k", "2")
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = runCLI(t, twoGroupsCSV, "neighbors", "--query", "0,0,0")
	assert.ErrorContains(t, err, "dimension mismatch")

	_, err = runCLI(t, twoGroupsCSV, "neighbors", "--query", "a,b")
	assert.ErrorContains(t, err, "invalid --query")

	_, err = runCLI(t, "", "neighbors", "--query", "0,0")
	assert.ErrorIs(t, err, denstream.ErrEmptyIndex)
}

func TestDistMatrix(t *testing.T) {
	out, err := runCLI(t, "0,0\n3,4\n6,8\n", "distmatrix", "--max-epsilon", "7", "--workers", "2")
	require.NoError(t, err)
	assert.Equal(t, "0\n5\n7\n", out)

	out, err = runCLI(t, "0\n2\n", "distmatrix", "--max-epsilon", "3", "--matrix")
	require.NoError(t, err)
	assert.Equal(t, "0,2\n2,0\n\n0\n2\n3\n", out)
}

func TestCluster_LogsCarryRunID(t *testing.T) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(twoGroupsCSV))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"cluster", "--config", smallConfig(t), "--log-format", "json"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	lines := strings.Split(strings.TrimSpace(errOut.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Regexp(t, `"run_id":"[0-9a-f-]{36}"`, line)
	}
	assert.Contains(t, errOut.String(), "clustering finished")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "debug", "json")
	require.NoError(t, err)
	l.Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}
