package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/diagsim/diagsim/internal/analysis"
	"github.com/diagsim/diagsim/internal/blocks"
	"github.com/diagsim/diagsim/internal/config"
	"github.com/diagsim/diagsim/internal/diagram"
	"github.com/diagsim/diagsim/internal/integrators"
	"github.com/diagsim/diagsim/internal/metrics"
	"github.com/diagsim/diagsim/internal/schema"
	"github.com/diagsim/diagsim/internal/sim"
	"github.com/diagsim/diagsim/internal/store"
	"github.com/diagsim/diagsim/internal/tui"
	"github.com/diagsim/diagsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	solver     string
	dt         float64
	duration   float64
	adaptive   bool
	tolerance  float64
	minStep    float64
	watch      []string
	graphics   bool
	noStore    bool
	verbose    bool
	// Output paths for dot and plot --svg
	outFile string
	svgFile string
	dotPlan bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "diagsim",
		Short: "block-diagram modelling and simulation",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.WarnLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".diagsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [diagram.json]",
		Short: "simulate a diagram",
		Args:  cobra.ExactArgs(1),
		RunE:  runDiagram,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&graphics, "graphics", false, "render scope charts after the run")
	runCmd.Flags().BoolVar(&noStore, "no-store", false, "skip persisting results")

	checkCmd := &cobra.Command{
		Use:   "check [diagram.json]",
		Short: "validate and compile a diagram without running it",
		Args:  cobra.ExactArgs(1),
		RunE:  checkDiagram,
	}

	reportCmd := &cobra.Command{
		Use:   "report [diagram.json]",
		Short: "print the compiled execution plan",
		Args:  cobra.ExactArgs(1),
		RunE:  reportDiagram,
	}

	dotCmd := &cobra.Command{
		Use:   "dot [diagram.json]",
		Short: "emit the diagram as graphviz dot",
		Args:  cobra.ExactArgs(1),
		RunE:  dotDiagram,
	}
	dotCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	dotCmd.Flags().BoolVar(&dotPlan, "plan", false, "cluster blocks by evaluation level")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot stored run series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "write the first series as SVG instead of plotting")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id] [series]",
		Short: "frequency analysis of a stored series",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  analyzeRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a full run as one JSON document",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	blocksCmd := &cobra.Command{
		Use:   "blocks",
		Short: "list the block catalog",
		RunE:  listBlocks,
	}

	solversCmd := &cobra.Command{
		Use:   "solvers",
		Short: "list available integration methods",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range integrators.List() {
				fmt.Println(name)
			}
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list run configuration presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [diagram.json]",
		Short: "simulate with a live view of watched signals",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	rootCmd.AddCommand(runCmd, checkCmd, reportCmd, dotCmd, listCmd, plotCmd,
		analyzeCmd, exportCmd, blocksCmd, solversCmd, presetsCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "run configuration file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "configuration preset")
	cmd.Flags().StringVar(&solver, "solver", config.DefaultSolver, "integration method")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "step size (max step when adaptive)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().BoolVar(&adaptive, "adaptive", true, "error-controlled stepping")
	cmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "adaptive error bound")
	cmd.Flags().Float64Var(&minStep, "min-step", config.DefaultMinStep, "abort threshold for adaptive steps")
	cmd.Flags().StringSliceVar(&watch, "watch", nil, "signals to record, name or name[port]")
}

// buildOptions merges preset, config file and flags. Flags win over the
// config file, the config file wins over the preset.
func buildOptions(cmd *cobra.Command) (sim.Options, string, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return sim.Options{}, "", fmt.Errorf("unknown preset %q (available: %s)",
				preset, strings.Join(config.ListPresets(), ", "))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return sim.Options{}, "", fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("solver") {
		cfg.Solver = solver
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("adaptive") {
		cfg.Adaptive = adaptive
	}
	if cmd.Flags().Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if cmd.Flags().Changed("min-step") {
		cfg.MinStep = minStep
	}
	if len(watch) > 0 {
		cfg.Watch = watch
	}
	storeDir := cfg.StoreDir
	if storeDir == "" {
		storeDir = dataDir
	}
	return cfg.Options(), storeDir, nil
}

func loadCompiled(path string) (*diagram.Diagram, *diagram.Plan, error) {
	d, err := schema.LoadFile(path, blocks.Default())
	if err != nil {
		return nil, nil, err
	}
	plan, err := d.Compile()
	if err != nil {
		return nil, nil, err
	}
	return d, plan, nil
}

func runDiagram(cmd *cobra.Command, args []string) error {
	opts, storeDir, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	d, plan, err := loadCompiled(args[0])
	if err != nil {
		return err
	}

	if graphics {
		opts.Graphics = true
		opts.Display = viz.NewDisplay(os.Stdout)
	}

	fmt.Printf("running %s...\n", d.Name)
	start := time.Now()
	results, err := sim.Run(context.Background(), plan, opts)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("steps: %d  rejected: %d  events: %d\n",
		results.Steps, results.Rejected, results.Events)
	if results.Stopped {
		fmt.Printf("stopped early by %s\n", results.StopBlock)
	}
	tFinal, xFinal := results.Final()
	fmt.Printf("t = %.6g, x = %v\n", tFinal, xFinal)

	if sums := metrics.Summarize(results); len(sums) > 0 {
		fmt.Println("\nseries:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tMIN\tMAX\tMEAN\tRMS\tFINAL")
		for _, s := range sums {
			fmt.Fprintf(w, "  %s\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\n",
				s.Name, s.Min, s.Max, s.Mean, s.RMS, s.Final)
		}
		w.Flush()
	}

	if noStore {
		return nil
	}
	st := store.New(storeDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(d.Name, opts, results)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func checkDiagram(cmd *cobra.Command, args []string) error {
	d, plan, err := loadCompiled(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok\n", d.Name)
	fmt.Printf("blocks: %d  wires: %d  states: %d  discrete states: %d\n",
		len(d.Blocks), len(d.Wires), len(plan.StateNames), len(plan.DStateNames))
	return nil
}

func reportDiagram(cmd *cobra.Command, args []string) error {
	_, plan, err := loadCompiled(args[0])
	if err != nil {
		return err
	}
	plan.Report(os.Stdout)
	return nil
}

func dotDiagram(cmd *cobra.Command, args []string) error {
	_, plan, err := loadCompiled(args[0])
	if err != nil {
		return err
	}
	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if dotPlan {
		plan.PlanDotfile(out)
	} else {
		plan.Dotfile(out)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDIAGRAM\tTIME\tDURATION\tSOLVER\tSTEPS\tEVENTS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%s\t%d\t%d\n",
			run.ID,
			run.Diagram,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Solver,
			run.Steps,
			run.Events,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	times, rows, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	names := append(append([]string{}, meta.StateNames...), meta.WatchNames...)

	if svgFile != "" {
		if len(names) == 0 {
			return fmt.Errorf("run has no series")
		}
		data := make([]float64, len(rows))
		for i := range rows {
			data[i] = rows[i][0]
		}
		svg := viz.SeriesSVG(times, data, 800, 400, "#00ff88")
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%s)\n", svgFile, names[0])
		return nil
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("diagram: %s\n", meta.Diagram)
	fmt.Printf("samples: %d\n\n", len(rows))

	maxPlots := 6
	if len(names) > maxPlots {
		names = names[:maxPlots]
	}

	for col, name := range names {
		data := make([]float64, len(rows))
		for i := range rows {
			if col < len(rows[i]) {
				data[i] = rows[i][col]
			}
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

// analyzeRun runs a power-spectrum analysis over one stored series,
// defaulting to the first state column.
func analyzeRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	times, rows, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data")
	}

	names := append(append([]string{}, meta.StateNames...), meta.WatchNames...)
	col := 0
	if len(args) == 2 {
		col = -1
		for i, n := range names {
			if n == args[1] {
				col = i
				break
			}
		}
		if col < 0 {
			return fmt.Errorf("unknown series %q (have: %s)", args[1], strings.Join(names, ", "))
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("run has no series")
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("series: %s\n\n", names[col])

	data := make([]float64, len(rows))
	for i := range rows {
		if col < len(rows[i]) {
			data[i] = rows[i][col]
		}
	}

	ps := analysis.PowerSpectrum(analysis.Pad(data))
	plotData := ps[:len(ps)/4]

	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum"),
	)
	fmt.Println(graph)
	fmt.Println()

	duration := meta.Duration
	if len(times) > 1 {
		duration = times[len(times)-1] - times[0]
	}
	freq := analysis.DominantFrequency(plotData, duration)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	times, rows, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}

	// rebuild the results from the stored columns: states first, then
	// watched signals
	results := &sim.Results{
		StateNames: meta.StateNames,
		WatchNames: meta.WatchNames,
		Time:       times,
		Steps:      meta.Steps,
		Rejected:   meta.Rejected,
		Events:     meta.Events,
		Stopped:    meta.Stopped,
		StopBlock:  meta.StopBy,
	}
	ns := len(meta.StateNames)
	for _, row := range rows {
		if len(row) < ns {
			return fmt.Errorf("run %s: sample row has %d columns, want at least %d", meta.ID, len(row), ns)
		}
		results.State = append(results.State, row[:ns])
		results.Watched = append(results.Watched, row[ns:])
	}

	opts := sim.Options{Solver: meta.Solver, Dt: meta.Dt, T: meta.Duration, Adaptive: meta.Adaptive}
	if outFile != "" {
		if err := store.ExportJSON(outFile, meta.Diagram, opts, results); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outFile)
		return nil
	}
	return store.ExportJSONTo(os.Stdout, meta.Diagram, opts, results)
}

func listBlocks(cmd *cobra.Command, args []string) error {
	reg := blocks.Default()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tPARAMETERS")
	for _, name := range reg.List() {
		t, _ := reg.Lookup(name)
		params := make([]string, 0, len(t.Params))
		for _, p := range t.Params {
			desc := fmt.Sprintf("%s (%s)", p.Name, p.Kind)
			if p.Default != nil {
				desc = fmt.Sprintf("%s (%s=%v)", p.Name, p.Kind, p.Default)
			}
			params = append(params, desc)
		}
		fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(params, ", "))
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	opts, _, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	if len(opts.Watch) == 0 {
		return fmt.Errorf("live view needs at least one --watch signal")
	}
	d, plan, err := loadCompiled(args[0])
	if err != nil {
		return err
	}

	labels := make([]string, len(opts.Watch))
	for i, w := range opts.Watch {
		labels[i] = fmt.Sprint(w)
	}
	live := tui.NewLive(d.Name, labels, opts.T)
	opts.OnSample = live.OnSample

	go func() {
		_, err := sim.Run(context.Background(), plan, opts)
		live.Done(err)
	}()

	return live.Run()
}
