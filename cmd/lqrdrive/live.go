package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/lqrdrive/internal/config"
	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/plant"
	"github.com/san-kum/lqrdrive/internal/server"
	"github.com/san-kum/lqrdrive/internal/storage"
	"github.com/san-kum/lqrdrive/internal/track"
	"github.com/san-kum/lqrdrive/internal/viz"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve POST /api/solve_lqr for the steering model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			tuning := cfg.TunerConfig()
			tuning.Secondary = config.GetPreset("racing").Tuning.Secondary

			srv, err := server.New(cfg.Server.Addr, tuning, logger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	return cmd
}

// newSession builds the lane-keeping session: a bicycle-model driver, the
// track and the best-distance record.
func newSession(cfg *config.Config) (*track.Session, error) {
	if cfg.Plant.Model != string(plant.Bicycle) {
		return nil, fmt.Errorf("lane keeping needs the bicycle model, got %s", cfg.Plant.Model)
	}
	world, err := track.NewWorld(cfg.Track, cfg.Plant.Wheelbase)
	if err != nil {
		return nil, err
	}
	tuner, err := control.NewTuner(plant.NewBicycle(cfg.Track.StartSpeed, cfg.Plant.Wheelbase), cfg.TunerConfig())
	if err != nil {
		return nil, err
	}
	driver, err := control.NewDriver(tuner, cfg.Limits(), logger)
	if err != nil {
		return nil, err
	}
	return track.NewSession(world, driver, storage.NewRecord(cfg.RecordPath), logger)
}

func driveCmd() *cobra.Command {
	var (
		headless bool
		maxSteps int
	)
	cmd := &cobra.Command{
		Use:   "drive",
		Short: "drive the lane-keeping track",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dt") {
				cfg.Sim.Dt = 1.0 / 60
			}

			if !headless {
				// log lines would tear the terminal UI
				logger.SetOutput(io.Discard)
			}
			session, err := newSession(cfg)
			if err != nil {
				return err
			}

			if headless {
				session.Start()
				f := session.Run(cfg.Sim.Dt, maxSteps)
				fmt.Printf("event: %s\ndistance: %.3f km\npassed: %d\nbest: %.3f km\n", f.Event, f.Distance, f.Passed, f.Best)
				return nil
			}

			_, err = tea.NewProgram(viz.NewDriveModel(session, cfg.Sim.Dt), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "run once without the terminal UI")
	cmd.Flags().IntVar(&maxSteps, "steps", 36000, "step limit for a headless run")
	return cmd
}

func raceCmd() *cobra.Command {
	var (
		targets []float64
		hold    float64
	)
	cmd := &cobra.Command{
		Use:   "race",
		Short: "step response of the steering servo",
		Long:  "Drives the steering servo (normalized model) through a sequence of target angles and plots the wheel angle.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tuning := cfg.TunerConfig()
			if cfg.Plant.Model != string(plant.Normalized) {
				racing := config.GetPreset("racing")
				tuning.Secondary = racing.Tuning.Secondary
				tuning.QRange, tuning.RRange = racing.Tuning.QRange, racing.Tuning.RRange
			}
			tuner, err := control.NewTuner(plant.NewNormalized(), tuning)
			if err != nil {
				return err
			}
			// the servo bounds the angle itself; the acceleration is free
			driver, err := control.NewDriver(tuner, control.Limits{}, logger)
			if err != nil {
				return err
			}
			servo, err := track.NewActuator(driver, cfg.MaxSteer())
			if err != nil {
				return err
			}
			servo.Reset()

			step := cfg.Sim.Dt
			steps := int(math.Round(hold / step))
			var angles []float64
			for _, deg := range targets {
				target := deg * math.Pi / 180
				for i := 0; i < steps; i++ {
					a, _ := servo.Step(target, step)
					angles = append(angles, a*180/math.Pi)
				}
				fmt.Printf("target %+6.1f°  reached %+7.2f°  rate %+.4f rad/s\n", deg, servo.Angle()*180/math.Pi, servo.Rate())
			}
			if len(angles) > 1 {
				fmt.Println()
				fmt.Println(asciigraph.Plot(angles, asciigraph.Height(12), asciigraph.Width(80), asciigraph.Caption("wheel angle (deg)")))
			}
			return nil
		},
	}
	cmd.Flags().Float64SliceVar(&targets, "targets", []float64{20, -35, 10, 0}, "target angles (deg)")
	cmd.Flags().Float64Var(&hold, "hold", 2, "seconds per target")
	return cmd
}
