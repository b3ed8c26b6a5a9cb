package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/primesync/internal/analysis"
	"github.com/san-kum/primesync/internal/config"
	"github.com/san-kum/primesync/internal/experiment"
	"github.com/san-kum/primesync/internal/goldbach"
	"github.com/san-kum/primesync/internal/metrics"
	"github.com/san-kum/primesync/internal/optim"
	"github.com/san-kum/primesync/internal/primes"
	"github.com/san-kum/primesync/internal/storage"
	"github.com/san-kum/primesync/internal/tui"
	"github.com/san-kum/primesync/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string

	target      int
	kappa       float64
	dt          float64
	duration    float64
	seed        int64
	integrator  string
	frequencies string
	isolation   string
	meanField   float64
	adaptive    bool
	averageTail float64

	lo         float64
	hi         float64
	iterations int
	threshold  float64
	repeats    int
	tolerance  float64

	spread string

	kappaMin   float64
	kappaMax   float64
	points     int
	targetFrom int
	targetTo   int
	targetStep int
	workers    int

	fps           int
	stepsPerFrame int

	noSave     bool
	showLocked bool
	showDense  bool
	showEigen  bool
	nullModel  bool
	asYAML     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "primesync",
		Short: "Kuramoto oscillators on Goldbach prime graphs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".primesync", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	primesCmd := &cobra.Command{
		Use:   "primes",
		Short: "list primes up to N",
		RunE:  listPrimes,
	}
	addGraphFlags(primesCmd)

	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "show the Goldbach graph for N",
		RunE:  showGraph,
	}
	addGraphFlags(graphCmd)
	graphCmd.Flags().BoolVar(&showDense, "dense", false, "print the dense adjacency matrix")
	graphCmd.Flags().BoolVar(&nullModel, "null", false, "show a random graph with the same edge count")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "integrate the oscillators at a fixed coupling",
		RunE:  runSimulation,
	}
	addGraphFlags(runCmd)
	addSimFlags(runCmd)
	runCmd.Flags().Float64Var(&kappa, "kappa", 1, "coupling strength")
	runCmd.Flags().BoolVar(&showLocked, "locked", false, "report phase-locked edges")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "bisect for the critical coupling",
		RunE:  runSearch,
	}
	addGraphFlags(searchCmd)
	addSimFlags(searchCmd)
	addSearchFlags(searchCmd)
	searchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the result")

	spectralCmd := &cobra.Command{
		Use:   "spectral",
		Short: "estimate the critical coupling from the Laplacian spectrum",
		RunE:  runSpectral,
	}
	addGraphFlags(spectralCmd)
	spectralCmd.Flags().StringVar(&spread, "spread", "max", "frequency spread (max, range, std)")
	spectralCmd.Flags().BoolVar(&showEigen, "eigen", false, "print the eigenvalue spectrum")
	spectralCmd.Flags().BoolVar(&nullModel, "null", false, "compare against a random graph with the same edge count")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sample r over a grid of couplings",
		RunE:  runSweep,
	}
	addGraphFlags(sweepCmd)
	addSimFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&kappaMin, "kappa-min", 0, "lowest coupling")
	sweepCmd.Flags().Float64Var(&kappaMax, "kappa-max", 5, "highest coupling")
	sweepCmd.Flags().IntVar(&points, "points", 21, "grid points")
	sweepCmd.Flags().IntVar(&repeats, "repeats", 1, "runs per coupling")
	sweepCmd.Flags().Float64Var(&threshold, "threshold", config.DefaultThreshold, "synchronisation threshold r*")
	sweepCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the result")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "search the critical coupling for a range of N",
		RunE:  runScan,
	}
	addGraphFlags(scanCmd)
	addSimFlags(scanCmd)
	addSearchFlags(scanCmd)
	scanCmd.Flags().IntVar(&targetFrom, "from", 10, "first N")
	scanCmd.Flags().IntVar(&targetTo, "to", 100, "last N")
	scanCmd.Flags().IntVar(&targetStep, "step", 10, "N increment (even)")
	scanCmd.Flags().StringVar(&spread, "spread", "max", "frequency spread (max, range, std)")
	scanCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the result")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the oscillators with live visualization",
		RunE:  runLive,
	}
	addGraphFlags(liveCmd)
	liveCmd.Flags().Float64Var(&kappa, "kappa", 1, "initial coupling strength")
	liveCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	liveCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	liveCmd.Flags().Int64Var(&seed, "seed", 1, "random seed for initial phases")
	liveCmd.Flags().IntVar(&stepsPerFrame, "steps", 5, "integration steps per frame")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&asYAML, "config", false, "print the stored configuration")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tN\tISOLATION\tFREQ\tKAPPA\tT")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%g\t%g\n",
					name, p.Target, p.Isolation, p.Frequencies, p.Kappa, p.Sim.Duration)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(primesCmd, graphCmd, runCmd, searchCmd, spectralCmd, sweepCmd, scanCmd, liveCmd, listCmd, showCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addGraphFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&target, "target", "n", config.DefaultTarget, "even target N")
	cmd.Flags().StringVar(&isolation, "isolation", "include", "isolated primes (include, exclude)")
	names := strings.Join(experiment.NewRegistry().ListFrequencyMaps(), ", ")
	cmd.Flags().StringVar(&frequencies, "freq", "log", "frequency map ("+names+")")
	cmd.Flags().Float64Var(&meanField, "mean-field", 0, "global mean-field coupling")
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	names := strings.Join(experiment.NewRegistry().ListIntegrators(), ", ")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator ("+names+")")
	cmd.Flags().Int64Var(&seed, "seed", 1, "master random seed")
	cmd.Flags().BoolVar(&adaptive, "adaptive", false, "adaptive step size (rk45)")
	cmd.Flags().Float64Var(&averageTail, "average-tail", 0, "average r over the last T time units")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel simulations (0 uses all CPUs)")
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&lo, "lo", 0, "lower coupling bound")
	cmd.Flags().Float64Var(&hi, "hi", 0, "upper coupling bound (0 uses 2.5·N)")
	cmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterations, "bisection steps")
	cmd.Flags().Float64Var(&threshold, "threshold", config.DefaultThreshold, "synchronisation threshold r*")
	cmd.Flags().IntVar(&repeats, "repeats", config.DefaultRepeats, "runs per probe")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "stop once the bracket is narrower")
}

// loadConfig layers the preset, the config file and explicitly set flags,
// in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("target") {
		cfg.Target = target
	}
	if flags.Changed("isolation") {
		cfg.Isolation = isolation
	}
	if flags.Changed("freq") {
		cfg.Frequencies = frequencies
	}
	if flags.Changed("mean-field") {
		cfg.MeanField = meanField
	}
	if flags.Changed("kappa") {
		cfg.Kappa = kappa
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Sim.Duration = duration
	}
	if flags.Changed("adaptive") {
		cfg.Sim.Adaptive = adaptive
	}
	if flags.Changed("average-tail") {
		cfg.Sim.AverageTail = averageTail
	}
	if flags.Changed("lo") {
		cfg.Search.Lo = lo
	}
	if flags.Changed("hi") {
		cfg.Search.Hi = hi
	}
	if flags.Changed("iterations") {
		cfg.Search.Iterations = iterations
	}
	if flags.Changed("threshold") {
		cfg.Search.Threshold = threshold
	}
	if flags.Changed("repeats") {
		cfg.Search.Repeats = repeats
		cfg.Sweep.Repeats = repeats
	}
	if flags.Changed("tolerance") {
		cfg.Search.Tolerance = tolerance
	}
	if flags.Changed("spread") {
		cfg.Spectral.Spread = spread
	}
	if flags.Changed("kappa-min") {
		cfg.Sweep.KappaMin = kappaMin
	}
	if flags.Changed("kappa-max") {
		cfg.Sweep.KappaMax = kappaMax
	}
	if flags.Changed("points") {
		cfg.Sweep.Points = points
	}
	if flags.Changed("from") {
		cfg.Sweep.TargetFrom = targetFrom
	}
	if flags.Changed("to") {
		cfg.Sweep.TargetTo = targetTo
	}
	if flags.Changed("step") {
		cfg.Sweep.TargetStep = targetStep
	}
	if flags.Changed("workers") {
		cfg.Sweep.Workers = workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newExperiment(cmd *cobra.Command) (*experiment.Experiment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return experiment.New(cfg, experiment.WithWorkers(cfg.Sweep.Workers))
}

// signalContext cancels on interrupt so long searches stop cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func printHeader(title string, cfg *config.Config) {
	fmt.Println(viz.Title.Render(title))
	fmt.Println(viz.Subtle.Render(fmt.Sprintf("N=%d  isolation=%s  freq=%s  integrator=%s  seed=%d",
		cfg.Target, cfg.Isolation, cfg.Frequencies, cfg.Integrator, cfg.Seed)))
	fmt.Println(viz.Separator(60))
}

func listPrimes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ps, err := primes.Sieve(cfg.Target)
	if err != nil {
		return err
	}
	fmt.Printf("%d primes ≤ %d:\n", len(ps), cfg.Target)
	strs := make([]string, len(ps))
	for i, p := range ps {
		strs[i] = fmt.Sprint(p)
	}
	fmt.Println(strings.Join(strs, " "))
	return nil
}

func showGraph(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	cfg := exp.Config()
	g := exp.Graph()
	if nullModel {
		g = goldbach.Randomize(g, experiment.RandFor(cfg.Seed, experiment.StreamNull))
	}

	printHeader("Goldbach graph", cfg)
	count, _ := analysis.Components(g)
	gamma, err := goldbach.Gamma(cfg.Target, exp.Primes())
	if err != nil {
		return err
	}
	parts, err := goldbach.Partitions(cfg.Target, exp.Primes())
	if err != nil {
		return err
	}
	fmt.Println(viz.KeyValue("oscillators", g.Size()))
	fmt.Println(viz.KeyValue("partitions", len(parts)))
	fmt.Println(viz.KeyValue("edges", g.EdgeCount()))
	fmt.Println(viz.KeyValue("mean degree", fmt.Sprintf("%.4f", g.AverageDegree())))
	fmt.Println(viz.KeyValue("components", count))
	fmt.Println(viz.KeyValue("isolated", analysis.IsolatedCount(g)))
	fmt.Println(viz.KeyValue("Γ(N)", fmt.Sprintf("%.6f", gamma)))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "P\tQ\tP+Q\tWEIGHT")
	for _, e := range g.EdgesView() {
		p, q := g.Prime(e.I), g.Prime(e.J)
		fmt.Fprintf(w, "%d\t%d\t%d\t%g\n", p, q, p+q, e.Weight)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if showDense {
		fmt.Println()
		d := g.Dense()
		rows, cols := d.Dims()
		for i := range rows {
			var b strings.Builder
			for j := range cols {
				fmt.Fprintf(&b, "%4.1f", d.At(i, j))
			}
			fmt.Printf("%5d %s\n", g.Prime(i), b.String())
		}
	}
	return nil
}

// trajectorySamples is the number of recorded states a run keeps when the
// config does not set an interval.
const trajectorySamples = 500

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Sim.RecordEvery == 0 {
		steps := int(cfg.Sim.Duration / cfg.Sim.Dt)
		cfg.Sim.RecordEvery = max(1, steps/trajectorySamples)
	}
	exp, err := experiment.New(cfg, experiment.WithWorkers(cfg.Sweep.Workers))
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	printHeader("Kuramoto run", cfg)
	start := time.Now()
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)
	if runErr != nil {
		logrus.Warnf("run stopped early: %v", runErr)
	}

	r, phi := metrics.OrderParameter(result.Final)
	fmt.Println(viz.KeyValue("κ", cfg.Kappa))
	fmt.Println(viz.KeyValue("steps", result.StepsTaken))
	fmt.Println(viz.KeyValue("t", fmt.Sprintf("%.3f", result.EndTime)))
	fmt.Println(viz.KeyValue("r", fmt.Sprintf("%.6f", r)) + "  " + viz.Bar(r, 30))
	fmt.Println(viz.KeyValue("ψ", fmt.Sprintf("%.4f", phi)))
	if c, ok := result.Metrics["coherence"]; ok && cfg.Sim.AverageTail > 0 {
		fmt.Println(viz.KeyValue("⟨r⟩ tail", fmt.Sprintf("%.6f", c)))
	}
	fmt.Println(viz.KeyValue("elapsed", elapsed.Round(time.Millisecond)))
	fmt.Println()

	rs := make([]float64, len(result.States))
	for i, x := range result.States {
		rs[i], _ = metrics.OrderParameter(x)
	}
	fmt.Println(viz.ChartStyle.Render(viz.PlotTrajectory(result.Times, rs)))

	if showLocked {
		from := cfg.Sim.Duration / 2
		if cfg.Sim.AverageTail > 0 {
			from = cfg.Sim.Duration - cfg.Sim.AverageTail
		}
		locks, err := analysis.LockedEdges(exp.Graph(), result, from, 0.1)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "P\tQ\tDRIFT\tFINAL\tLOCKED")
		for _, l := range locks {
			fmt.Fprintf(w, "%d\t%d\t%.4f\t%.4f\t%v\n", l.P, l.Q, l.Drift, l.Final, l.Locked)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.SaveRun(cfg, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", id)
	}
	return runErr
}

func runSearch(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	cfg := exp.Config()
	ctx, cancel := signalContext()
	defer cancel()

	printHeader("Critical coupling search", cfg)
	start := time.Now()
	res, err := exp.Search(ctx)
	switch {
	case errors.Is(err, optim.ErrNoCouplingEffect):
		fmt.Println(viz.StatusError.Render("coupling has no effect on r for this graph"))
		return err
	case errors.Is(err, optim.ErrIterationBudgetExhausted):
		logrus.Warnf("search did not reach tolerance: %v", err)
	case err != nil:
		return err
	}

	b := cfg.Bisection()
	fmt.Println(viz.KeyValue("r*", b.Threshold))
	fmt.Println(viz.KeyValue("bracket", fmt.Sprintf("[%.6f, %.6f]", res.Lo, res.Hi)))
	fmt.Println(viz.KeyValue("width", fmt.Sprintf("%.3g", res.Width())))
	fmt.Println(viz.KeyValue("κ_c", fmt.Sprintf("%.6f", res.Kappa)))
	fmt.Println(viz.KeyValue("iterations", res.Iterations))
	fmt.Println(viz.KeyValue("converged", res.Converged))
	fmt.Println(viz.KeyValue("elapsed", time.Since(start).Round(time.Millisecond)))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KAPPA\tR\tSYNCED")
	for _, s := range res.Probes {
		fmt.Fprintf(w, "%.6f\t%.4f\t%v\n", s.Kappa, s.R, s.Synced)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.SaveSearch(cfg, res)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", id)
	}
	return nil
}

func printSpectral(rep *experiment.SpectralReport) {
	fmt.Println(viz.KeyValue("spread", rep.Spread))
	fmt.Println(viz.KeyValue("Γ(N)", fmt.Sprintf("%.6f", rep.Gamma)))
	if rep.Estimate != nil {
		fmt.Println(viz.KeyValue("λ₂", fmt.Sprintf("%.6f", rep.Estimate.Lambda2)))
		fmt.Println(viz.KeyValue("S(ω)", fmt.Sprintf("%.6f", rep.Estimate.Spread)))
		fmt.Println(viz.KeyValue("κ_c ≈", fmt.Sprintf("%.6f", rep.Estimate.Kappa)))
	}
	if rep.Degenerate != nil {
		fmt.Println(viz.StatusPaused.Render(rep.Degenerate.Error()))
	}
	if rep.TooLarge {
		fmt.Println(viz.StatusPaused.Render(fmt.Sprintf("some estimates skipped above %d oscillators", analysis.MaxDenseOscillators)))
	}
	if rep.Structural != nil {
		fmt.Println(viz.KeyValue("λ_max", fmt.Sprintf("%.6f", rep.Structural.LambdaMax)))
		fmt.Println(viz.KeyValue("1/λ_max", fmt.Sprintf("%.6f", rep.Structural.Inverse)))
		fmt.Println(viz.KeyValue("S/λ_max", fmt.Sprintf("%.6f", rep.Structural.Scaled)))
	}
	fmt.Println()

	if len(rep.Components) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "COMPONENT\tλ₂\tSPREAD\tKAPPA")
		for _, c := range rep.Components {
			fmt.Fprintf(w, "%v\t%.6f\t%.6f\t%.6f\n", c.Primes, c.Lambda2, c.Spread, c.Kappa)
		}
		w.Flush()
	}
}

func runSpectral(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	cfg := exp.Config()
	printHeader("Spectral estimate", cfg)

	rep, err := exp.Spectral()
	if err != nil {
		return err
	}
	printSpectral(rep)

	if showEigen {
		fmt.Println()
		fmt.Println(viz.Title.Render("Laplacian spectrum"))
		eig, err := analysis.Spectrum(exp.Graph())
		var deg *analysis.DegenerateError
		switch {
		case errors.As(err, &deg):
			fmt.Println(viz.StatusPaused.Render(deg.Error()))
		case err != nil:
			return err
		}
		for i, v := range eig {
			fmt.Printf("  λ%-4d %.6f\n", i+1, v)
		}
	}

	if nullModel {
		g := goldbach.Randomize(exp.Graph(), experiment.RandFor(cfg.Seed, experiment.StreamNull))
		fmt.Println()
		fmt.Println(viz.Title.Render("Random graph, same edge count"))
		est, err := analysis.EstimateCritical(g, exp.Model().Frequencies(), rep.Spread)
		var deg *analysis.DegenerateError
		switch {
		case errors.As(err, &deg):
			fmt.Println(viz.StatusPaused.Render(deg.Error()))
		case err != nil:
			return err
		default:
			fmt.Println(viz.KeyValue("λ₂", fmt.Sprintf("%.6f", est.Lambda2)))
			fmt.Println(viz.KeyValue("κ_c ≈", fmt.Sprintf("%.6f", est.Kappa)))
		}
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	cfg := exp.Config()
	ctx, cancel := signalContext()
	defer cancel()

	printHeader("Coupling sweep", cfg)
	samples, err := exp.Sweep(ctx)
	if err != nil {
		return err
	}

	kappas := make([]float64, len(samples))
	rs := make([]float64, len(samples))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KAPPA\tR\t")
	for i, s := range samples {
		kappas[i], rs[i] = s.Kappa, s.R
		fmt.Fprintf(w, "%.4f\t%.4f\t%s\n", s.Kappa, s.R, viz.Bar(s.R, 20))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println(viz.ChartStyle.Render(viz.PlotCurve(kappas, rs)))

	if k, ok := optim.FirstSynced(samples, cfg.Search.Threshold); ok {
		fmt.Println(viz.KeyValue("first r ≥ r*", fmt.Sprintf("κ=%.4f", k)))
	} else {
		fmt.Println(viz.StatusPaused.Render(fmt.Sprintf("r never reached %.2f on this grid", cfg.Search.Threshold)))
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.SaveSweep(cfg, samples)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", id)
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	ns := cfg.Targets()
	printHeader(fmt.Sprintf("Critical coupling for %d targets", len(ns)), cfg)
	rows, err := experiment.SweepTargets(ctx, cfg, ns, cfg.Sweep.Workers)
	if err != nil {
		return err
	}
	printScan(rows)

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.SaveScan(cfg, rows)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", id)
	}
	return nil
}

func printScan(rows []experiment.TargetResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "N\tM\tEDGES\tCOMP\tGAMMA\tKAPPA_C\tSPECTRAL\tNOTE")
	ns := make([]int, len(rows))
	search := make([]float64, len(rows))
	spectral := make([]float64, len(rows))
	for i, r := range rows {
		ns[i], search[i], spectral[i] = r.N, r.Kappa, r.Spectral
		note := r.Err
		if note == "" && !r.Converged {
			note = "not converged"
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.4f\t%s\t%s\t%s\n",
			r.N, r.Oscillators, r.Edges, r.Components, r.Gamma, fmtMaybe(r.Kappa), fmtMaybe(r.Spectral), note)
	}
	w.Flush()
	fmt.Println(viz.ChartStyle.Render(viz.PlotScan(ns, search, spectral)))
}

func fmtMaybe(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}

func runLive(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	cfg := exp.Config()
	if exp.Graph().Size() == 0 {
		return fmt.Errorf("no oscillators for N=%d", cfg.Target)
	}
	m := tui.NewModel(exp.Model(), exp.Integrator(), exp.InitialPhases(), cfg.Kappa, cfg.Sim.Dt, stepsPerFrame)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tN\tTIME\tKAPPA\tDURATION\tINTEG\tFREQ")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%g\t%.1f\t%s\t%s\n",
			run.ID,
			run.Kind,
			run.Target,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Kappa,
			run.Duration,
			run.Integrator,
			run.Frequencies,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	if asYAML {
		cfg, err := st.LoadConfig(runID)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	}

	if err := storage.WriteJSON(os.Stdout, meta); err != nil {
		return err
	}
	fmt.Println()

	switch meta.Kind {
	case storage.KindRun:
		times, rs, _, err := st.LoadStates(runID)
		if err != nil {
			return err
		}
		fmt.Println(viz.ChartStyle.Render(viz.PlotTrajectory(times, rs)))
	case storage.KindSearch, storage.KindSweep:
		kappas, rs, err := st.LoadCurve(runID)
		if err != nil {
			return err
		}
		fmt.Println(viz.ChartStyle.Render(viz.PlotCurve(kappas, rs)))
	case storage.KindScan:
		rows, err := st.LoadScan(runID)
		if err != nil {
			return err
		}
		printScan(rows)
	}
	return nil
}
