// Command econgym drives the market environments from the command
// line: random-policy simulation runs with episode recording, Townsend
// calibration sampling, and the HTTP session API for remote workers.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/ssandler/econgym/internal/api"
	"github.com/ssandler/econgym/internal/config"
	"github.com/ssandler/econgym/internal/persistence"
	"github.com/ssandler/econgym/internal/runner"
	"github.com/ssandler/econgym/internal/shock"
	"github.com/ssandler/econgym/internal/townsend"
)

var (
	flagConfig   string
	flagEnv      string
	flagMode     string
	flagSeed     uint64
	flagEpisodes int
	flagMaxSteps int
	flagDB       string
	flagPort     int
	flagPeriods  int
	flagVerbose  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "econgym",
		Short: "Recursive economic simulation environments behind a reset/step contract.",
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelInfo
			if flagVerbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
	}
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "experiment YAML file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run random-policy episodes and optionally record them",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().StringVar(&flagEnv, "env", "", "environment: capital, townsend, diffdemand, durable")
	simulateCmd.Flags().StringVar(&flagMode, "mode", "", "shock mode: random, evaluation, analysis")
	simulateCmd.Flags().Uint64Var(&flagSeed, "seed", 0, "seed (0 = from clock)")
	simulateCmd.Flags().IntVar(&flagEpisodes, "episodes", 1, "episodes to run")
	simulateCmd.Flags().IntVar(&flagMaxSteps, "max-steps", 0, "step cap per episode (0 = run to horizon)")
	simulateCmd.Flags().StringVar(&flagDB, "db", "", "SQLite path to record episodes (empty = no recording)")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Sample Townsend moments for reward normalization",
		RunE:  runCalibrate,
	}
	calibrateCmd.Flags().Uint64Var(&flagSeed, "seed", 0, "seed (0 = from clock)")
	calibrateCmd.Flags().IntVar(&flagPeriods, "periods", 10000, "sample periods")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP session API",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&flagPort, "port", 8080, "listen port")

	rootCmd.AddCommand(simulateCmd, calibrateCmd, serveCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	exp, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagEnv != "" {
		exp.Env = flagEnv
	}
	if flagMode != "" {
		exp.Mode = flagMode
	}
	if flagSeed != 0 {
		exp.Seed = flagSeed
	}

	e, err := exp.Build()
	if err != nil {
		return err
	}

	var db *persistence.DB
	if flagDB != "" {
		db, err = persistence.Open(flagDB)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("recording episodes", "path", flagDB)
	}

	seed := exp.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	r := &runner.Runner{
		Env:      e,
		EnvName:  exp.Env,
		Mode:     exp.Mode,
		Seed:     seed,
		Policy:   &runner.RandomPolicy{Env: e, Rng: rand.New(rand.NewSource(seed))},
		DB:       db,
		MaxSteps: flagMaxSteps,
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	totalSteps := 0
	for i := 0; i < flagEpisodes; i++ {
		res, err := r.RunEpisode(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		totalSteps += res.Steps
		slog.Info("episode finished",
			"episode", res.EpisodeID,
			"steps", res.Steps,
			"total_reward", fmt.Sprintf("%.4f", res.TotalReward),
			"terminated", res.Done,
		)
	}

	fmt.Printf("Ran %s episodes, %s steps total on %s (%s mode).\n",
		humanize.Comma(int64(flagEpisodes)), humanize.Comma(int64(totalSteps)),
		exp.Env, exp.Mode)
	return nil
}

func runCalibrate(_ *cobra.Command, _ []string) error {
	exp, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	cfg := exp.Townsend
	cfg.Mode = shock.Random
	if flagSeed != 0 {
		cfg.Seed = flagSeed
	}

	e, err := townsend.New(cfg)
	if err != nil {
		return err
	}

	slog.Info("sampling Townsend moments", "periods", flagPeriods)
	stats := e.Calibrate(flagPeriods)

	fmt.Printf("capital: max=%.4f min=%.4f mean=%.4f std=%.4f\n",
		stats.Capital.Max, stats.Capital.Min, stats.Capital.Mean, stats.Capital.Std)
	fmt.Printf("price:   max=%.4f min=%.4f mean=%.4f std=%.4f\n",
		stats.Price.Max, stats.Price.Min, stats.Price.Mean, stats.Price.Std)
	fmt.Printf("reward:  max=%.4f min=%.4f mean=%.4f std=%.4f\n",
		stats.Reward.Max, stats.Reward.Min, stats.Reward.Mean, stats.Reward.Std)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	server := &api.Server{Port: flagPort}
	server.Start()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}
