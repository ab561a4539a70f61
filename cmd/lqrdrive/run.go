package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/lqrdrive/internal/analysis"
	"github.com/san-kum/lqrdrive/internal/config"
	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/dynamo"
	"github.com/san-kum/lqrdrive/internal/experiment"
	"github.com/san-kum/lqrdrive/internal/export"
	"github.com/san-kum/lqrdrive/internal/optim"
	"github.com/san-kum/lqrdrive/internal/plant"
	"github.com/san-kum/lqrdrive/internal/riccati"
	"github.com/san-kum/lqrdrive/internal/storage"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func gainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gains",
		Short: "solve the Riccati equation and print the gain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := cfg.BuildPlant()
			if err != nil {
				return err
			}
			tuner, err := control.NewTuner(p, cfg.TunerConfig())
			if err != nil {
				return err
			}
			res := tuner.Gain()
			q, r := tuner.Weights()

			fmt.Printf("plant:   %s", p.Kind)
			if p.Kind == plant.Bicycle {
				fmt.Printf(" (v=%g m/s, L=%g m)", p.Speed, p.Wheelbase)
			}
			fmt.Printf("\nweights: q=%g r=%g secondary=%g\n", q, r, cfg.Tuning.Secondary)
			fmt.Printf("outcome: %s\n", res.Outcome)
			if res.Degraded() {
				fmt.Printf("reason:  %v\n", res.Reason)
			}
			fmt.Printf("K = %v\n", res.Gain())
			if res.P != nil {
				fmt.Printf("P = %v\n", mat.Formatted(res.P, mat.Prefix("    "), mat.Squeeze()))
			}
			poles, err := riccati.ClosedLoopPoles(p.A, p.B, res.K)
			if err != nil {
				return err
			}
			fmt.Printf("closed-loop poles: %v\n", poles)
			return nil
		},
	}
}

func runInfo(exp *experiment.Experiment) storage.RunInfo {
	c := exp.Config()
	gain := exp.Gain()
	p := exp.Plant()
	q, r := exp.Weights()
	return storage.RunInfo{
		Plant:      string(p.Kind),
		Speed:      p.Speed,
		Wheelbase:  p.Wheelbase,
		Q:          q,
		R:          r,
		K:          gain.Gain(),
		Outcome:    gain.Outcome.String(),
		Integrator: c.Integrator,
		Controller: c.Controller,
		Dt:         c.Dt,
		Duration:   c.Duration,
		Seed:       c.Seed,
	}
}

func runExperiment(ctx context.Context, cfg experiment.Config) (*experiment.Experiment, *dynamo.Result, error) {
	exp := experiment.New(cfg)
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return nil, nil, err
	}
	if g := exp.Gain(); g.Degraded() {
		logger.Warn("riccati solve failed, using fallback gain", "reason", g.Reason, "K", g.Gain())
	}
	res, err := exp.Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range res.Errors {
		logger.Warn("run stopped early", "err", e)
	}
	return exp, res, nil
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-16s %.6f\n", name, metrics[name])
	}
}

func simulateCmd() *cobra.Command {
	var (
		controller string
		pngPath    string
		htmlPath   string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "replay the closed loop offline and store the run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("controller") {
				cfg.Sim.Controller = controller
			}

			st := storage.New(cfg.DataDir)
			if err := st.Init(); err != nil {
				return err
			}

			start := time.Now()
			exp, res, err := runExperiment(cmd.Context(), cfg.Experiment())
			if err != nil {
				return err
			}
			info := runInfo(exp)
			runID, err := st.Save(info, res)
			if err != nil {
				return err
			}

			fmt.Printf("completed in %v\n", time.Since(start))
			fmt.Printf("run id: %s\n", runID)
			fmt.Printf("K: %v (%s)\n", info.K, info.Outcome)
			fmt.Printf("steps: %d\n\nmetrics:\n", res.StepsTaken)
			printMetrics(res.Metrics)

			series := []export.Series{{Label: runID, Result: res}}
			if pngPath != "" {
				if err := export.SavePNG(pngPath, runID, series); err != nil {
					return err
				}
				logger.Info("figure written", "path", pngPath)
			}
			if htmlPath != "" {
				if err := export.SaveHTMLFile(htmlPath, runID, series); err != nil {
					return err
				}
				logger.Info("chart written", "path", htmlPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&controller, "controller", "lqr", "lqr, saturated or none")
	cmd.Flags().StringVar(&pngPath, "png", "", "write a PNG figure")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write an HTML chart")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			runs, err := st.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := newTable()
			fmt.Fprintln(w, "ID\tPLANT\tTIME\tQ\tR\tK\tOUTCOME\tCTRL")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%.3f\t%s\t%s\n",
					run.ID,
					run.Info.Plant,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Info.Q,
					run.Info.R,
					run.Info.K,
					run.Info.Outcome,
					run.Info.Controller,
				)
			}
			return w.Flush()
		},
	}
}

func plotCmd() *cobra.Command {
	var phase bool
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			res, err := st.LoadResult(args[0])
			if err != nil {
				return err
			}
			if len(res.States) == 0 {
				return fmt.Errorf("no data to plot")
			}

			fmt.Printf("run: %s\nplant: %s  q=%g r=%g  K=%v\n\n", meta.ID, meta.Info.Plant, meta.Info.Q, meta.Info.R, meta.Info.K)

			captions := []string{"lateral error (m)", "heading error (rad)"}
			if meta.Info.Plant == string(plant.Normalized) {
				captions = []string{"error", "error rate"}
			}
			for i, caption := range captions {
				fmt.Println(asciigraph.Plot(column(res.States, i), asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption(caption)))
				fmt.Println()
			}
			if len(res.Controls) > 1 {
				fmt.Println(asciigraph.Plot(column(res.Controls, 0), asciigraph.Height(8), asciigraph.Width(80), asciigraph.Caption("control")))
				if len(res.Times) > 1 {
					f, p := analysis.DominantFrequency(column(res.Controls, 0), res.Times[1]-res.Times[0])
					fmt.Printf("\ndominant control frequency: %.3f Hz (power %.3g)\n", f, p)
				}
			}
			if phase {
				portrait, err := analysis.NewPortrait(res.States, 0, 1)
				if err != nil {
					return err
				}
				fmt.Printf("\nphase portrait (%s vs %s)\n", captions[1], captions[0])
				fmt.Print(portrait.ASCII(60, 20))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&phase, "phase", false, "also draw the error phase portrait")
	return cmd
}

func column[T ~[]float64](rows []T, i int) []float64 {
	out := make([]float64, len(rows))
	for j, r := range rows {
		if i < len(r) {
			out[j] = r[i]
		}
	}
	return out
}

func exportJSONCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			res, err := st.LoadResult(args[0])
			if err != nil {
				return err
			}
			res.Metrics = meta.Metrics
			res.StepsTaken = meta.Steps
			return storage.ExportJSONFile(out, meta.Info, res)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func compareCmd() *cobra.Command {
	var (
		pngPath  string
		htmlPath string
	)
	cmd := &cobra.Command{
		Use:   "compare [preset...]",
		Short: "compare presets on the same initial error",
		Long:  "Runs each preset's tuning from the same initial state and compares the responses. Defaults to aggressive and comfort.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"aggressive", "comfort"}
			}
			base, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			w := newTable()
			fmt.Fprintln(w, "PRESET\tQ\tR\tK\tCOST\tEFFORT\tSETTLING\tOVERSHOOT")
			var series []export.Series
			for _, name := range args {
				cfg := config.GetPreset(name)
				if cfg == nil {
					return fmt.Errorf("unknown preset: %s", name)
				}
				// only the tuning differs
				tuned := *base
				tuned.Tuning = cfg.Tuning
				exp, res, err := runExperiment(cmd.Context(), tuned.Experiment())
				if err != nil {
					return err
				}
				m := res.Metrics
				fmt.Fprintf(w, "%s\t%g\t%g\t%.3f\t%.4f\t%.4f\t%.2fs\t%.1f%%\n",
					name, cfg.Tuning.Q, cfg.Tuning.R, exp.Gain().Gain(),
					m["cost"], m["control_effort"], m["settling_time"], 100*m["peak_overshoot"])
				series = append(series, export.Series{Label: name, Result: res})
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if pngPath != "" {
				if err := export.SavePNG(pngPath, "lateral control comparison", series); err != nil {
					return err
				}
				logger.Info("figure written", "path", pngPath)
			}
			if htmlPath != "" {
				if err := export.SaveHTMLFile(htmlPath, "lateral control comparison", series); err != nil {
					return err
				}
				logger.Info("chart written", "path", htmlPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pngPath, "png", "", "write a PNG figure")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write an HTML chart")
	return cmd
}

type sweepFlags struct {
	qs, rs []float64
	metric string
}

func (s *sweepFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64SliceVar(&s.qs, "q-values", []float64{0.1, 1, 10, 100, 1000}, "q grid")
	cmd.Flags().Float64SliceVar(&s.rs, "r-values", []float64{0.01, 0.1, 1, 10, 100}, "r grid")
	cmd.Flags().StringVar(&s.metric, "metric", "settling_time", "metric to minimize")
}

func (s *sweepFlags) run(cmd *cobra.Command) (*config.Config, []optim.Point, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	build := func(q, r float64) *experiment.Experiment {
		ec := cfg.Experiment()
		ec.Tuning.Q, ec.Tuning.R = q, r
		return experiment.New(ec)
	}

	start := time.Now()
	points, err := optim.NewGridSearch(s.qs, s.rs, s.metric).Search(cmd.Context(), build, experiment.NewRegistry())
	if err != nil {
		return nil, nil, err
	}
	logger.Info("sweep finished", "points", len(points), "metric", s.metric, "elapsed", time.Since(start))
	return cfg, points, nil
}

func sweepCmd() *cobra.Command {
	var s sweepFlags
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "evaluate a grid of (q, r) weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, points, err := s.run(cmd)
			if err != nil {
				return err
			}
			w := newTable()
			fmt.Fprintf(w, "Q\tR\tK\t%s\tNOTE\n", s.metric)
			for _, p := range points {
				note := ""
				switch {
				case p.Err != nil:
					note = p.Err.Error()
				case p.Fallback:
					note = "fallback gain"
				}
				fmt.Fprintf(w, "%g\t%g\t%.3f\t%.4f\t%s\n", p.Q, p.R, p.K, p.Value, note)
			}
			return w.Flush()
		},
	}
	s.register(cmd)
	return cmd
}

func tuneCmd() *cobra.Command {
	var (
		s   sweepFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "pick the best weights from a sweep and save them as a config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, points, err := s.run(cmd)
			if err != nil {
				return err
			}
			best := points[0]
			if math.IsInf(best.Value, 1) {
				return fmt.Errorf("no grid point produced %s", s.metric)
			}
			cfg.Tuning.Q, cfg.Tuning.R = best.Q, best.R
			fmt.Printf("best: q=%g r=%g K=%.3f %s=%.4f\n", best.Q, best.R, best.K, s.metric, best.Value)

			if out == "" {
				return nil
			}
			if err := config.Save(out, cfg); err != nil {
				return err
			}
			logger.Info("config written", "path", out)
			return nil
		},
	}
	s.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the tuned config here")
	return cmd
}
