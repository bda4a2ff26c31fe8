package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/minorbit/internal/analysis"
	"github.com/san-kum/minorbit/internal/automation"
	"github.com/san-kum/minorbit/internal/config"
	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/experiment"
	"github.com/san-kum/minorbit/internal/export"
	"github.com/san-kum/minorbit/internal/integrators"
	"github.com/san-kum/minorbit/internal/metrics"
	"github.com/san-kum/minorbit/internal/optim"
	"github.com/san-kum/minorbit/internal/storage"
	"github.com/san-kum/minorbit/internal/viz"
)

var (
	dataDir  string
	logLevel string
	theme    string
	// Run overrides
	dt          float64
	t0          string
	tf          string
	integrator  string
	workers     int
	validate    bool
	center      string
	preset      string
	live        bool
	noSave      bool
	metricsAddr string
	// Sweep and clones
	sweepDTs []float64
	body     string
	count    int
	sigmaR   float64
	sigmaV   float64
	seed     int64
	// Tune
	gridParams []string
	objective  string
	// Plot and export
	quantity  string
	drawOrbit bool
	width     int
	height    int
	output    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "minorbit",
		Short:        "minor planet orbit propagator",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.Themes[0].Name, "color theme")

	runCmd := &cobra.Command{
		Use:   "run [file]",
		Short: "propagate the bodies of a run file (yaml or legacy txt)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPropagation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "show live progress")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the run")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address during the run")

	batchCmd := &cobra.Command{
		Use:   "batch [glob...]",
		Short: "run every matching run file",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [file]",
		Short: "compare final positions over several step sizes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&sweepDTs, "dts", []float64{4, 2, 1, 0.5}, "step sizes in days")

	clonesCmd := &cobra.Command{
		Use:   "clones [file]",
		Short: "propagate a cloud of clones around one body",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runClones,
	}
	addRunFlags(clonesCmd)
	clonesCmd.Flags().StringVar(&body, "body", "", "nominal body designator")
	clonesCmd.Flags().IntVar(&count, "count", 100, "number of clones")
	clonesCmd.Flags().Float64Var(&sigmaR, "sigma-r", 1e-6, "position spread (AU)")
	clonesCmd.Flags().Float64Var(&sigmaV, "sigma-v", 1e-8, "velocity spread (AU/day)")
	clonesCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	_ = clonesCmd.MarkFlagRequired("body")

	compareCmd := &cobra.Command{
		Use:   "compare [file] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same run",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareIntegrators,
	}
	addRunFlags(compareCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune [file]",
		Short: "grid search run settings for the lowest objective",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	addRunFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&gridParams, "param", nil, "setting and values, e.g. dt=4,2,1 (repeatable)")
	tuneCmd.Flags().StringVar(&objective, "objective", "energy_drift", "energy_drift, residual or elapsed")
	_ = tuneCmd.MarkFlagRequired("param")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a run and its bodies",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id] [body...]",
		Short: "plot trajectories of a run",
		Args:  cobra.MinimumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&quantity, "quantity", string(viz.QuantityDistance), "distance, energy, x, y or z")
	plotCmd.Flags().BoolVar(&drawOrbit, "orbit", false, "draw the orbits on the ecliptic plane")
	plotCmd.Flags().IntVar(&width, "width", viz.DefaultPlotWidth, "plot width")
	plotCmd.Flags().IntVar(&height, "height", viz.DefaultPlotHeight, "plot height")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id] [body...]",
		Short: "estimate periods and invariant drift of a run",
		Args:  cobra.MinimumNArgs(1),
		RunE:  analyzeRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run with its trajectories to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id] [body]",
		Short: "export one trajectory to CSV",
		Args:  cobra.ExactArgs(2),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id] [body...]",
		Short: "draw the orbits of a run as SVG",
		Args:  cobra.MinimumNArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&width, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&height, "height", 800, "image height")

	presetsCmd := &cobra.Command{
		Use:   "presets [group]",
		Short: "list built-in presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := config.ListGroups()
			if len(args) == 1 {
				groups = []string{args[0]}
			}
			for _, g := range groups {
				presets := config.ListPresets(g)
				if len(presets) == 0 {
					fmt.Printf("no presets in group: %s\n", g)
					continue
				}
				fmt.Printf("%s:\n", g)
				for _, p := range presets {
					fmt.Printf("  %s/%s\n", g, p)
				}
			}
			return nil
		},
	}

	integratorsCmd := &cobra.Command{
		Use:   "integrators",
		Short: "list integrators",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range integrators.List() {
				marker := ""
				if name == integrators.Default {
					marker = " (default)"
				}
				fmt.Printf("%s%s\n", name, marker)
			}
		},
	}

	rootCmd.AddCommand(runCmd, batchCmd, sweepCmd, clonesCmd, compareCmd, tuneCmd, listCmd, showCmd, plotCmd, analyzeCmd,
		exportJSONCmd, exportCSVCmd, exportSVGCmd, presetsCmd, integratorsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use a preset (group/name) instead of a file")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDT, "step size in days")
	cmd.Flags().StringVar(&t0, "t0", "", "start epoch (JD or YYYY-MM-DD[THH:MM:SS])")
	cmd.Flags().StringVar(&tf, "tf", "", "end epoch (JD or YYYY-MM-DD[THH:MM:SS])")
	cmd.Flags().StringVar(&integrator, "integrator", integrators.Default, "integrator")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0 = number of CPUs)")
	cmd.Flags().BoolVar(&validate, "validate", false, "compare final states with Horizons")
	cmd.Flags().StringVar(&center, "center", config.DefaultCenter, "Horizons center code")
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", logLevel)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// loadRunConfig reads the run file or preset and applies the flags the
// user set explicitly.
func loadRunConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case preset != "":
		group, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset must be group/name, got %q", preset)
		}
		cfg = config.GetPreset(group, name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available in %s: %v)", preset, group, config.ListPresets(group))
		}
	case len(args) > 0:
		var err error
		cfg, err = config.LoadAny(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	default:
		return nil, errors.New("need a run file or --preset")
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Window.DT = dt
	}
	if flags.Changed("t0") {
		e, err := config.ParseEpoch(t0)
		if err != nil {
			return nil, err
		}
		cfg.Window.T0 = e
	}
	if flags.Changed("tf") {
		e, err := config.ParseEpoch(tf)
		if err != nil {
			return nil, err
		}
		cfg.Window.TF = e
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("validate") {
		cfg.Horizons.Validate = validate
		if validate {
			cfg.Horizons.Enabled = true
		}
	}
	if flags.Changed("center") {
		cfg.Horizons.Center = center
	}
	return cfg, nil
}

func runPropagation(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd, args)
	if err != nil {
		return err
	}

	logOut := io.Writer(os.Stderr)
	if live {
		logOut = io.Discard
	}
	logger, err := newLogger(logOut)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	opts := []experiment.Option{
		experiment.WithLogger(logger),
		experiment.WithCollector(collector),
	}
	if !noSave {
		dir := dataDir
		if !cmd.Flags().Changed("data") && cfg.Output.Dir != "" {
			dir = cfg.Output.Dir
		}
		opts = append(opts, experiment.WithStore(storage.New(dir)))
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(collector)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		logger.Info("serving metrics", "addr", metricsAddr)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var res *experiment.Result
	if live {
		res, err = runLive(ctx, cancel, cfg, opts)
	} else {
		exp := experiment.New(cfg, opts...)
		if err := exp.Setup(); err != nil {
			return err
		}
		res, err = exp.Run(ctx)
	}
	if res != nil {
		printResult(res)
	}
	return err
}

func runLive(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, opts []experiment.Option) (*experiment.Result, error) {
	w := cfg.DynamoWindow()
	if err := w.Validate(); err != nil {
		return nil, err
	}
	steps := w.Plan().Steps()
	model := viz.NewProgress(viz.GetTheme(theme), len(cfg.MinorBodies), steps, cancel)
	p := tea.NewProgram(model)

	opts = append(opts, experiment.WithObserver(viz.NewProgressObserver(p.Send, steps)))
	exp := experiment.New(cfg, opts...)
	if err := exp.Setup(); err != nil {
		return nil, err
	}

	var (
		res    *experiment.Result
		runErr error
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		res, runErr = exp.Run(ctx)
		p.Send(viz.FinishedMsg{Err: runErr})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return res, err
	}
	<-done
	return res, runErr
}

func metricsMux(c *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return mux
}

func printResult(res *experiment.Result) {
	fmt.Print(viz.RenderReport(viz.NewStyles(viz.GetTheme(theme)), res.Report, res.Residuals))
	if res.Run != nil {
		fmt.Printf("run id: %s\n", res.Run.ID)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	files, err := config.Discover(args...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no run files match %v", args)
	}
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	runner := automation.New(automation.WithStore(storage.New(dataDir)), automation.WithLogger(logger))
	results, err := runner.RunBatch(cmd.Context(), files)

	s := viz.NewStyles(viz.GetTheme(theme))
	rows := make([][]string, len(results))
	failed := 0
	for i, r := range results {
		status := viz.Summary(s, r.Counts)
		if r.Err != nil {
			failed++
			status = r.Err.Error()
		}
		rows[i] = []string{r.Path, r.RunID, status}
	}
	fmt.Print(viz.RenderTable(s, []string{"FILE", "RUN", "RESULT"}, rows))
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(results))
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	results, err := automation.New(automation.WithLogger(logger)).RunSweep(cmd.Context(), cfg, sweepDTs)
	if err != nil {
		return err
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		order := "-"
		if i > 1 && results[i-1].MaxError > 0 && r.MaxError > 0 {
			order = fmt.Sprintf("%.2f", math.Log(r.MaxError/results[i-1].MaxError)/math.Log(r.DT/results[i-1].DT))
		}
		rows[i] = []string{
			strconv.FormatFloat(r.DT, 'g', -1, 64),
			strconv.Itoa(r.Steps),
			fmt.Sprintf("%.3e", r.MaxError),
			order,
			strconv.Itoa(r.Failed),
			r.Elapsed.Round(time.Millisecond).String(),
		}
	}
	fmt.Print(viz.RenderTable(viz.NewStyles(viz.GetTheme(theme)),
		[]string{"DT", "STEPS", "MAX ERROR AU", "ORDER", "FAILED", "ELAPSED"}, rows))
	return nil
}

func runClones(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	res, err := automation.New(automation.WithLogger(logger)).RunClones(cmd.Context(), cfg, automation.CloneConfig{
		Designator: body,
		Count:      count,
		SigmaR:     sigmaR,
		SigmaV:     sigmaV,
		Seed:       seed,
	})
	if err != nil {
		return err
	}

	s := viz.NewStyles(viz.GetTheme(theme))
	fmt.Println(viz.Summary(s, res.Report.Counts()))
	fmt.Println(s.KeyValue("clones", fmt.Sprintf("%d of %d completed", res.Completed, count)))
	fmt.Println(s.KeyValue("max spread", fmt.Sprintf("%.3e AU", res.Spread)))
	fmt.Println(s.KeyValue("mean spread", fmt.Sprintf("%.3e AU", res.MeanSpread)))
	fmt.Println(s.KeyValue("exponent", fmt.Sprintf("%.3e /day", res.Exponent)))
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	names := args
	if preset == "" {
		names = args[1:]
	}
	if len(names) == 0 {
		return errors.New("need at least one integrator")
	}
	cfg, err := loadRunConfig(cmd, args[:len(args)-len(names)])
	if err != nil {
		return err
	}
	logger, err := newLogger(io.Discard)
	if err != nil {
		return err
	}

	type finalRun struct {
		name  string
		steps int
		took  time.Duration
		final map[string]dynamo.Vector3
		drift float64
		fails int
	}
	runs := make([]finalRun, 0, len(names))
	for _, name := range names {
		c := *cfg
		c.Integrator = name
		exp := experiment.New(&c, experiment.WithLogger(logger))
		if err := exp.Setup(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		res, err := exp.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		fr := finalRun{name: name, steps: res.Report.TotalSteps(), took: res.Report.Elapsed, final: map[string]dynamo.Vector3{}}
		mu := exp.Components().Force.Central().GM
		for i, o := range res.Report.Outcomes {
			if o.Status != dynamo.StatusCompleted {
				fr.fails++
				continue
			}
			traj := res.Report.Bodies[i].Trajectory
			fr.final[o.Designator] = traj[len(traj)-1].R
			fr.drift = math.Max(fr.drift, metrics.Measure(mu, traj).EnergyDrift)
		}
		runs = append(runs, fr)
		fmt.Printf("%s: %v\n", name, res.Report.Elapsed.Round(time.Millisecond))
	}

	ref := runs[0]
	rows := make([][]string, len(runs))
	for i, r := range runs {
		diff := 0.0
		for des, pos := range r.final {
			if want, ok := ref.final[des]; ok {
				diff = math.Max(diff, pos.Sub(want).Norm())
			}
		}
		rows[i] = []string{
			r.name,
			strconv.Itoa(r.steps),
			r.took.Round(time.Millisecond).String(),
			fmt.Sprintf("%.3e", diff),
			fmt.Sprintf("%.3e", r.drift),
			strconv.Itoa(r.fails),
		}
	}
	fmt.Println()
	fmt.Print(viz.RenderTable(viz.NewStyles(viz.GetTheme(theme)),
		[]string{"INTEGRATOR", "STEPS", "ELAPSED", "VS " + strings.ToUpper(ref.name) + " AU", "ENERGY DRIFT", "FAILED"}, rows))
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd, args)
	if err != nil {
		return err
	}
	obj, ok := optim.Objectives[objective]
	if !ok {
		return fmt.Errorf("unknown objective %q", objective)
	}
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	var names []string
	var ranges [][]string
	for _, p := range gridParams {
		name, values, err := optim.ParseParam(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	grid, err := optim.NewGridSearch(names, ranges, logger)
	if err != nil {
		return err
	}

	best, evals, err := grid.Search(cmd.Context(), cfg, obj)
	s := viz.NewStyles(viz.GetTheme(theme))
	rows := make([][]string, len(evals))
	for i, ev := range evals {
		row := make([]string, 0, len(names)+1)
		for _, n := range names {
			row = append(row, ev.Params[n])
		}
		switch {
		case ev.Err != nil:
			row = append(row, truncateErr(ev.Err))
		case math.IsInf(ev.Value, 1):
			row = append(row, "failed bodies")
		default:
			row = append(row, fmt.Sprintf("%.3e", ev.Value))
		}
		rows[i] = row
	}
	headers := make([]string, 0, len(names)+1)
	for _, n := range names {
		headers = append(headers, strings.ToUpper(n))
	}
	fmt.Print(viz.RenderTable(s, append(headers, strings.ToUpper(objective)), rows))
	if err != nil {
		return err
	}
	if best == nil {
		return errors.New("no grid point could be scored")
	}
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+"="+best.Params[n])
	}
	fmt.Println(s.KeyValue("best", strings.Join(parts, " ")))
	return nil
}

func truncateErr(err error) string {
	msg := err.Error()
	if len(msg) > 60 {
		return msg[:57] + "..."
	}
	return msg
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	fmt.Print(viz.RenderRuns(viz.NewStyles(viz.GetTheme(theme)), runs))
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	fmt.Print(viz.RenderRun(viz.NewStyles(viz.GetTheme(theme)), meta))
	return nil
}

// loadTracks reads the named bodies of a run, or every body with a
// trajectory when none are named.
func loadTracks(st *storage.Store, runID string, names []string) (*storage.RunMetadata, []export.Track, error) {
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(names) == 0 {
		for _, b := range meta.Bodies {
			if b.File != "" {
				names = append(names, b.Designator)
			}
		}
		sort.Strings(names)
	}

	tracks := make([]export.Track, 0, len(names))
	for _, name := range names {
		traj, err := st.LoadTrajectory(runID, name)
		if err != nil {
			return nil, nil, err
		}
		tracks = append(tracks, export.Track{Name: name, States: traj})
	}
	return meta, tracks, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, tracks, err := loadTracks(storage.New(dataDir), args[0], args[1:])
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("run %s has no trajectories", args[0])
	}

	if drawOrbit {
		all := make([][]dynamo.State, len(tracks))
		for i, t := range tracks {
			all[i] = t.States
		}
		view := viz.NewOrbitView(width/2, height, viz.FitRadius(all...))
		for _, t := range all {
			view.Trace(t)
		}
		fmt.Print(view.String())
		return nil
	}

	q := viz.Quantity(quantity)
	for _, t := range tracks {
		series, ok := viz.SeriesOf(q, meta.CentralGM, t.States)
		if !ok {
			fmt.Printf("%s: nothing to plot for %s\n", t.Name, q)
			continue
		}
		fmt.Print(viz.Plot(fmt.Sprintf("%s %s", t.Name, q), width, height, series))
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, tracks, err := loadTracks(storage.New(dataDir), args[0], args[1:])
	if err != nil {
		return err
	}

	days := func(v float64) string {
		if v == 0 {
			return "-"
		}
		return fmt.Sprintf("%.2f", v)
	}
	rows := make([][]string, len(tracks))
	for i, t := range tracks {
		a := analysis.AnalyzeTrajectory(t.Name, meta.CentralGM, t.States)
		rows[i] = []string{
			a.Designator,
			strconv.Itoa(a.Samples),
			days(a.Period),
			days(a.KeplerPeriod),
			fmt.Sprintf("%.4f", a.Invariants.Eccentricity),
			fmt.Sprintf("%.3e", a.Invariants.EnergyDrift),
		}
	}
	fmt.Print(viz.RenderTable(viz.NewStyles(viz.GetTheme(theme)),
		[]string{"BODY", "SAMPLES", "PERIOD D", "KEPLER PERIOD D", "ECC", "ENERGY DRIFT"}, rows))
	return nil
}

// openOutput returns stdout when path is empty.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, closeFn, err := openOutput(output)
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportJSON(w, args[0]); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	w, closeFn, err := openOutput(output)
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportCSV(w, args[0], args[1]); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, tracks, err := loadTracks(storage.New(dataDir), args[0], args[1:])
	if err != nil {
		return err
	}
	w, closeFn, err := openOutput(output)
	if err != nil {
		return err
	}
	if err := export.OrbitsSVG(w, tracks, width, height); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}
