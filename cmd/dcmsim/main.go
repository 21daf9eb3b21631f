package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dcmsim/internal/analysis"
	"github.com/san-kum/dcmsim/internal/config"
	"github.com/san-kum/dcmsim/internal/export"
	"github.com/san-kum/dcmsim/internal/logging"
	"github.com/san-kum/dcmsim/internal/metrics"
	"github.com/san-kum/dcmsim/internal/optim"
	"github.com/san-kum/dcmsim/internal/sim"
	"github.com/san-kum/dcmsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	configFile string
	preset     string
	seed       int64
	verbose    bool
	logLevel   string
	stageStart int
	numRuns    int
	outFile    string
	frameRate  int
	theme      string
	svgSize    int
	svgTick    int
	svgChart   bool
	capacities []float64
	jitters    []float64
	sweepBy    string
	maximize   bool
)

var logger = logging.New()

// main registers the dcmsim commands. Without a subcommand it opens the
// terminal surface.
func main() {
	rootCmd := &cobra.Command{
		Use:   "dcmsim",
		Short: "dynamic cluster memory animation engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logger.SetLevel(logging.LevelDebug)
				return nil
			}
			if logLevel != "" {
				lvl, err := logging.ParseLevel(logLevel)
				if err != nil {
					return err
				}
				logger.SetLevel(lvl)
			}
			return nil
		},
		RunE: runLive,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&stageStart, "stage", 0, "stage index to start the algorithm narration at")
	rootCmd.Flags().IntVar(&frameRate, "fps", 0, "frame rate")
	rootCmd.Flags().StringVar(&theme, "theme", "", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the animation headless and print run metrics",
		RunE:  runHeadless,
	}
	runCmd.Flags().Duration("time", 24*time.Second, "virtual duration")
	runCmd.Flags().IntVar(&numRuns, "runs", 1, "number of runs over consecutive seeds")

	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "plot point and cluster counts over a headless run",
		RunE:  plotTrace,
	}
	traceCmd.Flags().Duration("time", 24*time.Second, "virtual duration")

	stagesCmd := &cobra.Command{
		Use:   "stages",
		Short: "print the stage timeline of a headless run",
		RunE:  printStages,
	}
	stagesCmd.Flags().Duration("time", 10*time.Second, "virtual duration")

	compareCmd := &cobra.Command{
		Use:   "compare [dataset]",
		Short: "print the normalized comparison bars",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printComparison,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv",
		Short: "export entity frames of a headless run to CSV",
		RunE:  exportCSV,
	}
	exportJSONCmd := &cobra.Command{
		Use:   "export-json",
		Short: "export a headless run trace to JSON",
		RunE:  exportJSON,
	}
	exportSVGCmd := &cobra.Command{
		Use:   "export-svg",
		Short: "render one entity frame, or the comparison chart, to SVG",
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&svgSize, "size", 320, "image size in pixels")
	exportSVGCmd.Flags().IntVar(&svgTick, "tick", -1, "entity frame to render (-1 for the last)")
	exportSVGCmd.Flags().BoolVar(&svgChart, "chart", false, "render the comparison chart instead")
	for _, c := range []*cobra.Command{exportCSVCmd, exportJSONCmd, exportSVGCmd} {
		c.Flags().Duration("time", 12*time.Second, "virtual duration")
		c.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the active configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search buffer capacity and jitter radius against a run metric",
		RunE:  runSweep,
	}
	sweepCmd.Flags().Duration("time", 24*time.Second, "virtual duration per grid point")
	sweepCmd.Flags().Float64SliceVar(&capacities, "capacity", []float64{8, 16, 32}, "capacities to try")
	sweepCmd.Flags().Float64SliceVar(&jitters, "jitter", []float64{config.DefaultJitterRadius}, "jitter radii to try")
	sweepCmd.Flags().StringVar(&sweepBy, "metric", "occupancy", "run metric to rank by")
	sweepCmd.Flags().BoolVar(&maximize, "max", false, "rank higher values first")

	rootCmd.AddCommand(runCmd, traceCmd, stagesCmd, compareCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd, initCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig starts from the preset (or defaults), then the config file, then
// explicit flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("stage") {
		cfg.Stages.Start = stageStart
	}
	if f := cmd.Flags().Lookup("fps"); f != nil && f.Changed {
		cfg.FrameRate = frameRate
	}
	if f := cmd.Flags().Lookup("theme"); f != nil && f.Changed {
		cfg.Theme = theme
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEngine(cmd *cobra.Command) (*sim.Engine, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	eng, err := sim.New(cfg, sim.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("engine ready", "seed", eng.Seed(), "preset", preset)
	return eng, cfg, nil
}

func headless(cmd *cobra.Command) (*sim.Result, *config.Config, error) {
	eng, cfg, err := newEngine(cmd)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range metrics.DefaultRunMetrics(cfg.Entities.Capacity) {
		eng.AddMetric(m)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	result, err := eng.Run(ctx, runDuration(cmd))
	return result, cfg, err
}

func runDuration(cmd *cobra.Command) time.Duration {
	d, err := cmd.Flags().GetDuration("time")
	if err != nil {
		return config.DefaultEntityPeriod * config.DefaultCycleLength
	}
	return d
}

func runLive(cmd *cobra.Command, args []string) error {
	eng, cfg, err := newEngine(cmd)
	if err != nil {
		return err
	}
	// The alt screen owns the terminal; keep log lines out of it.
	logger.SetLevel(logging.LevelError)
	return viz.Run(eng, cfg.Theme, cfg.FrameRate)
}

func runHeadless(cmd *cobra.Command, args []string) error {
	if numRuns > 1 {
		return runEnsemble(cmd)
	}

	start := time.Now()
	result, _, err := headless(cmd)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("seed: %d\n", result.Seed)
	fmt.Printf("entity frames: %d, stage frames: %d\n", len(result.EntitySnapshots()), len(result.StageSnapshots()))
	fmt.Println("\nmetrics:")
	printMetrics(os.Stdout, result.Metrics)
	return nil
}

func runEnsemble(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	results, err := sim.NewEnsemble(cfg, numRuns, cfg.Seed).Run(ctx, runDuration(cmd))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	names := metricNames(results[0].Metrics)
	fmt.Fprintf(w, "SEED\t%s\n", strings.ToUpper(strings.Join(names, "\t")))
	for _, r := range results {
		row := []string{fmt.Sprint(r.Seed)}
		for _, n := range names {
			row = append(row, fmt.Sprintf("%.3f", r.Metrics[n]))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nmean over %d runs:\n", len(results))
	printMetrics(os.Stdout, sim.MeanMetrics(results))
	return nil
}

func metricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func printMetrics(w io.Writer, m map[string]float64) {
	for _, name := range metricNames(m) {
		fmt.Fprintf(w, "  %s: %.6f\n", name, m[name])
	}
}

func plotTrace(cmd *cobra.Command, args []string) error {
	result, cfg, err := headless(cmd)
	if err != nil {
		return err
	}
	snaps := result.EntitySnapshots()
	if len(snaps) < 2 {
		return fmt.Errorf("not enough frames to plot (%d)", len(snaps))
	}

	points := make([]float64, len(snaps))
	clusters := make([]float64, len(snaps))
	for i, s := range snaps {
		points[i] = float64(len(s.Points))
		clusters[i] = float64(len(s.Clusters))
	}
	graph := asciigraph.PlotMany([][]float64{points, clusters},
		asciigraph.Height(12),
		asciigraph.Width(72),
		asciigraph.SeriesColors(asciigraph.Default, asciigraph.Goldenrod),
		asciigraph.Caption(fmt.Sprintf("points / clusters per tick (seed %d)", result.Seed)),
	)
	fmt.Println(graph)
	if period := analysis.DominantPeriod(points); period > 0 {
		fmt.Printf("\ndetected cycle: %d ticks (configured %d)\n", period, cfg.Entities.CycleLength)
	}
	return nil
}

func printStages(cmd *cobra.Command, args []string) error {
	result, _, err := headless(cmd)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AT\tACTIVE\tSTAGE\tDESCRIPTION")
	for _, f := range result.Frames {
		if f.Kind != sim.FrameStage {
			continue
		}
		active := f.Stage.Active()
		fmt.Fprintf(w, "%v\t%d\t%s\t%s\n", f.At, f.Stage.ActiveIndex, active.Title, active.Description)
	}
	return w.Flush()
}

func printComparison(cmd *cobra.Command, args []string) error {
	eng, _, err := newEngine(cmd)
	if err != nil {
		return err
	}
	keys := eng.DatasetKeys()
	if len(args) == 1 {
		keys = args
	}

	for _, key := range keys {
		series, err := eng.DatasetSeries(key)
		if err != nil {
			return fmt.Errorf("%w (available: %v)", err, eng.DatasetKeys())
		}
		fmt.Printf("%s  %s  [%s]\n", series.Title, series.Metric, series.Source)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, b := range series.Bars {
			mark := ""
			if b.Reference {
				mark = "*"
			}
			fmt.Fprintf(w, "  %s%s\t%.2f\t%s\t%.3f\n", b.Label, mark, b.Raw, strings.Repeat("█", int(b.Fraction*40)), b.Fraction)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("  %s ahead of the best baseline by %.1f%%\n\n", series.Reference.Label, 100*series.Improvement())
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	grid, err := optim.NewGridSearch(
		[]string{optim.ParamCapacity, optim.ParamJitterRadius},
		[][]float64{capacities, jitters},
	)
	if err != nil {
		return err
	}
	grid.Maximize = maximize
	logger.Info("sweep started", "points", grid.Size(), "metric", sweepBy, "seed", cfg.Seed)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	trials, err := grid.Search(ctx, optim.ConfigBuild(cfg), sweepBy, runDuration(cmd))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tPARAMS\t%s\n", strings.ToUpper(sweepBy))
	for i, t := range trials {
		fmt.Fprintf(w, "%d\t%s\t%.4f\n", i+1, t, t.Value)
	}
	return w.Flush()
}

// traceLabel names the preset a trace was built from. A config file replaces
// the preset wholesale, so its runs carry no preset name.
func traceLabel(preset, configFile string) string {
	switch {
	case configFile != "":
		return ""
	case preset != "":
		return preset
	default:
		return "dcm"
	}
}

// output opens --out, or stdout when unset.
func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	result, _, err := headless(cmd)
	if err != nil {
		return err
	}
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := export.WriteCSV(w, result); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	result, _, err := headless(cmd)
	if err != nil {
		return err
	}
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := export.WriteJSON(w, export.NewTrace(traceLabel(preset, configFile), result)); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	var doc string
	if svgChart {
		eng, _, err := newEngine(cmd)
		if err != nil {
			return err
		}
		doc = export.SeriesToSVG(eng.Series(), svgSize*2, svgSize)
	} else {
		result, _, err := headless(cmd)
		if err != nil {
			return err
		}
		snaps := result.EntitySnapshots()
		if len(snaps) == 0 {
			return fmt.Errorf("no entity frames in %v", runDuration(cmd))
		}
		idx := svgTick
		if idx < 0 || idx >= len(snaps) {
			idx = len(snaps) - 1
		}
		doc = export.SnapshotToSVG(snaps[idx], svgSize)
	}

	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, doc); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}
