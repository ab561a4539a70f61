package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/san-kum/lqrdrive/internal/config"
	"github.com/san-kum/lqrdrive/internal/storage"
	"github.com/spf13/cobra"
)

var (
	configFile string
	presetName string
	logLevel   string
	dataDir    string

	model    string
	speed    float64
	qWeight  float64
	rWeight  float64
	dt       float64
	duration float64
	seed     int64

	logger *log.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "lqrdrive",
		Short:         "LQR lane keeping and steering control",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Level: lvl})
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&presetName, "preset", "", "start from a named preset")
	pf.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	pf.StringVar(&dataDir, "data", "", "run store directory")
	pf.StringVar(&model, "model", "bicycle", "plant model: bicycle or normalized")
	pf.Float64Var(&speed, "speed", 10, "forward speed (m/s), bicycle model")
	pf.Float64Var(&qWeight, "q", 10, "state weight on the lateral error")
	pf.Float64Var(&rWeight, "r", 1, "control weight")
	pf.Float64Var(&dt, "dt", config.DefaultDt, "timestep (s)")
	pf.Float64Var(&duration, "time", config.DefaultDuration, "duration (s)")
	pf.Int64Var(&seed, "seed", 0, "track seed")

	rootCmd.AddCommand(
		gainsCmd(),
		simulateCmd(),
		listCmd(),
		plotCmd(),
		exportJSONCmd(),
		compareCmd(),
		sweepCmd(),
		tuneCmd(),
		batchCmd(),
		robustCmd(),
		serveCmd(),
		driveCmd(),
		raceCmd(),
		presetsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig layers the configuration: defaults, then the preset, then the
// config file, then any flag set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if presetName != "" {
		cfg = config.GetPreset(presetName)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", presetName, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("model") {
		cfg.Plant.Model = model
	}
	if f.Changed("speed") {
		cfg.Plant.Speed = speed
	}
	if f.Changed("q") {
		cfg.Tuning.Q = qWeight
	}
	if f.Changed("r") {
		cfg.Tuning.R = rWeight
	}
	if f.Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if f.Changed("time") {
		cfg.Sim.Duration = duration
	}
	if f.Changed("seed") {
		cfg.Sim.Seed = seed
		cfg.Track.Seed = seed
	}
	if f.Changed("data") {
		cfg.DataDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	st := storage.New(cfg.DataDir)
	return st, st.Init()
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list named configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := newTable()
			fmt.Fprintln(w, "NAME\tMODEL\tQ\tR\tMAX STEER")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g°\n", name, p.Plant.Model, p.Tuning.Q, p.Tuning.R, p.Actuator.MaxSteerDeg)
			}
			return w.Flush()
		},
	}
}
