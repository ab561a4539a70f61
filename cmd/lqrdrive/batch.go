package main

import (
	"fmt"
	"math"

	"github.com/san-kum/lqrdrive/internal/automation"
	"github.com/san-kum/lqrdrive/internal/experiment"
	"github.com/san-kum/lqrdrive/internal/storage"
	"github.com/spf13/cobra"
)

func batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted scenario of closed-loop runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			if sc.Description != "" {
				fmt.Printf("%s: %s\n\n", sc.Name, sc.Description)
			}

			results, runErr := automation.RunScenario(cmd.Context(), sc, cfg.Experiment(), experiment.NewRegistry(), logger)

			st := storage.New(cfg.DataDir)
			w := newTable()
			fmt.Fprintln(w, "STEP\tQ\tR\tK\tCOST\tSETTLE\tRUN ID")
			for _, r := range results {
				info := runInfo(r.Experiment)
				runID := "-"
				if r.Step.Save {
					if err := st.Init(); err != nil {
						return err
					}
					if runID, err = st.Save(info, r.Result); err != nil {
						return err
					}
				}
				fmt.Fprintf(w, "%s\t%g\t%g\t%.4v\t%.4f\t%.2fs\t%s\n",
					r.Step.Name, info.Q, info.R, info.K, r.Result.Metrics["cost"], r.Result.Metrics["settling_time"], runID)
			}
			w.Flush()
			return runErr
		},
	}
}

func robustCmd() *cobra.Command {
	var (
		trials  int
		offset  float64
		heading float64
		tol     float64
	)
	cmd := &cobra.Command{
		Use:   "robust",
		Short: "check that the tuning keeps the lane from perturbed starts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			base := cfg.Experiment()
			trialsOut, err := automation.RunMonteCarlo(cmd.Context(), base, automation.MonteCarloConfig{
				Trials:       trials,
				Perturbation: []float64{offset, heading * math.Pi / 180},
				SettleTol:    tol,
				Seed:         cfg.Sim.Seed,
			}, experiment.NewRegistry())
			if err != nil {
				return err
			}

			worst := trialsOut[0]
			for _, t := range trialsOut[1:] {
				if t.MaxError > worst.MaxError {
					worst = t
				}
			}
			kept, lost, settled := automation.Stats(trialsOut)
			fmt.Printf("trials: %d  kept lane: %d  lost: %d  settled: %d\n", len(trialsOut), kept, lost, settled)
			mean, std := automation.ErrorSpread(trialsOut)
			fmt.Printf("peak |e|: mean %.3f m, std %.3f m\n", mean, std)
			fmt.Printf("worst start %.3v reached |e| = %.3f (lane %.1f)\n", []float64(worst.InitState), worst.MaxError, base.LaneBound)
			return nil
		},
	}
	cmd.Flags().IntVar(&trials, "trials", 100, "number of perturbed runs")
	cmd.Flags().Float64Var(&offset, "offset", 3, "max initial lateral offset perturbation (m)")
	cmd.Flags().Float64Var(&heading, "heading", 10, "max initial heading perturbation (deg)")
	cmd.Flags().Float64Var(&tol, "tol", 0.05, "final |e| counted as settled (m)")
	return cmd
}
