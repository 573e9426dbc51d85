// Package main provides the denstream CLI: stream clustering, kd-tree
// neighbor queries and distance-matrix thresholds over CSV point files.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TrevorS/denstream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "denstream",
		Short: "Density-based stream clustering over CSV point files",
		Long: `denstream summarizes a stream of points into time-decayed
micro-clusters and answers spatial queries over point sets.

Input files hold one point per line as comma-separated coordinates.
Use "-" or omit the file argument to read from stdin.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().Bool("header", false, "Skip the first line of the input")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "denstream v%s (%s)\n", version, commit)
		},
	})

	// Cluster command
	clusterCmd := &cobra.Command{
		Use:   "cluster [file]",
		Short: "Run the stream clustering engine and print cluster centers",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCluster,
	}
	clusterCmd.Flags().String("config", "", "YAML engine configuration file")
	clusterCmd.Flags().String("format", "csv", "Output format (csv, yaml)")
	clusterCmd.Flags().Bool("outliers", false, "Include outlier micro-clusters in yaml output")
	clusterCmd.Flags().String("metrics-file", "", "Write Prometheus metrics in text format to this file")
	rootCmd.AddCommand(clusterCmd)

	// Neighbors command
	neighborsCmd := &cobra.Command{
		Use:   "neighbors [file]",
		Short: "Query a kd-tree built over the input points",
		Long: `Build a kd-tree over the input points and answer one query.

Without --radius or --k the single nearest point is printed. Each output
line holds the original index, the distance to the query and the point.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runNeighbors,
	}
	neighborsCmd.Flags().String("query", "", "Query point as comma-separated coordinates (required)")
	neighborsCmd.Flags().Float64("radius", -1, "Return every point within this radius")
	neighborsCmd.Flags().Int("k", 0, "Return the k nearest points")
	neighborsCmd.Flags().Bool("linear", false, "Use a linear scan instead of the kd-tree")
	_ = neighborsCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(neighborsCmd)

	// Distance matrix command
	distCmd := &cobra.Command{
		Use:   "distmatrix [file]",
		Short: "Print candidate filtration thresholds below a maximum epsilon",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDistMatrix,
	}
	distCmd.Flags().Float64("max-epsilon", 1, "Largest threshold to keep")
	distCmd.Flags().Int("workers", 0, "Worker goroutines (0 = one per CPU)")
	distCmd.Flags().Bool("matrix", false, "Also print the full distance matrix")
	rootCmd.AddCommand(distCmd)

	return rootCmd
}

// loggerFromFlags builds the CLI logger. Logs go to stderr so that stdout
// carries only results; every line carries the run ID.
func loggerFromFlags(cmd *cobra.Command) (*denstream.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	logger, err := newLogger(cmd.ErrOrStderr(), levelName, format)
	if err != nil {
		return nil, err
	}
	return &denstream.Logger{Logger: logger.With("run_id", uuid.NewString())}, nil
}

func newLogger(w io.Writer, levelName, format string) (*denstream.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", levelName, err)
	}
	switch strings.ToLower(format) {
	case "text":
		return denstream.NewTextLogger(w, level), nil
	case "json":
		return denstream.NewJSONLogger(w, level), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q (want text or json)", format)
	}
}

// openInput returns the file named by args, or stdin.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(args[0])
}

func loadPoints(cmd *cobra.Command, args []string) ([][]float64, error) {
	in, err := openInput(cmd, args)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	header, _ := cmd.Flags().GetBool("header")
	return readPoints(in, header)
}

func runCluster(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	format, _ := cmd.Flags().GetString("format")
	withOutliers, _ := cmd.Flags().GetBool("outliers")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	if format != "csv" && format != "yaml" {
		return fmt.Errorf("invalid --format %q (want csv or yaml)", format)
	}

	logger, err := loggerFromFlags(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	points, err := loadPoints(cmd, args)
	if err != nil {
		return err
	}

	opts := []denstream.Option{denstream.WithLogger(logger)}
	var reg *prometheus.Registry
	if metricsFile != "" {
		reg = prometheus.NewRegistry()
		collector, err := denstream.NewPrometheusCollector(reg)
		if err != nil {
			return err
		}
		opts = append(opts, denstream.WithMetricsCollector(collector))
	}

	engine, err := denstream.NewEngine(cfg, opts...)
	if err != nil {
		return err
	}
	centers, err := engine.Run(points)
	if err != nil {
		return err
	}

	stats := engine.Stats()
	logger.Info("clustering finished",
		"points", stats.Points,
		"potential", len(centers),
		"outlier", len(engine.OutlierClusters()),
		"promoted", stats.Promoted,
		"sweeps", stats.Sweeps,
		"timestamp", engine.Timestamp(),
	)

	if reg != nil {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if format == "csv" {
		return writePoints(out, centers)
	}

	report := clusterReport{
		Timestamp: engine.Timestamp(),
		Potential: toClusterDocs(engine.PotentialClusters()),
	}
	if withOutliers {
		report.Outlier = toClusterDocs(engine.OutlierClusters())
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	queryStr, _ := cmd.Flags().GetString("query")
	radius, _ := cmd.Flags().GetFloat64("radius")
	k, _ := cmd.Flags().GetInt("k")
	linear, _ := cmd.Flags().GetBool("linear")

	radiusSet := cmd.Flags().Changed("radius")
	if radiusSet && k > 0 {
		return fmt.Errorf("--radius and --k are mutually exclusive")
	}
	if k > 0 && linear {
		return fmt.Errorf("--k requires the kd-tree; drop --linear")
	}

	query, err := parsePoint(queryStr)
	if err != nil {
		return fmt.Errorf("invalid --query: %w", err)
	}
	points, err := loadPoints(cmd, args)
	if err != nil {
		return err
	}

	var (
		index denstream.SpatialIndex
		tree  *denstream.KDTree
	)
	if linear {
		index, err = denstream.NewLinearIndex(points)
	} else {
		tree, err = denstream.NewKDTree(points)
		index = tree
	}
	if err != nil {
		return err
	}

	var results []denstream.PointIndex
	switch {
	case k > 0:
		nbrs, err := tree.KNearest(query, k)
		if err != nil {
			return err
		}
		for _, nb := range nbrs {
			results = append(results, nb.PointIndex)
		}
	case radiusSet:
		results, err = index.Neighborhood(query, radius)
		if err != nil {
			return err
		}
		sortByIndex(results)
	default:
		nearest, err := index.Nearest(query)
		if err != nil {
			return err
		}
		results = []denstream.PointIndex{nearest}
	}
	return writeNeighbors(cmd.OutOrStdout(), query, results)
}

func runDistMatrix(cmd *cobra.Command, args []string) error {
	maxEpsilon, _ := cmd.Flags().GetFloat64("max-epsilon")
	workers, _ := cmd.Flags().GetInt("workers")
	printMatrix, _ := cmd.Flags().GetBool("matrix")

	points, err := loadPoints(cmd, args)
	if err != nil {
		return err
	}
	m, err := denstream.ComputeDistanceMatrix(cmd.Context(), points, maxEpsilon, workers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if printMatrix {
		rows := make([][]float64, m.N)
		for i := range rows {
			rows[i] = m.Distances[i*m.N : (i+1)*m.N]
		}
		if err := writePoints(out, rows); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	for _, th := range m.Thresholds {
		fmt.Fprintln(out, formatFloat(th))
	}
	return nil
}
