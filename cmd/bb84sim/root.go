package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alan-christopher/bb84sim/app"
	"github.com/alan-christopher/bb84sim/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// env is what every subcommand shares: the loaded configuration and the
// application state the simulator publishes into.
type env struct {
	configPath string
	seed       int64
	logLevel   string

	cfg   *config.Config
	state *app.State
}

func newRootCmd() *cobra.Command {
	e := &env{state: app.New()}
	rootCmd := &cobra.Command{
		Use:           "bb84sim",
		Short:         "BB84 quantum key distribution simulator",
		Long:          "bb84sim simulates BB84 key exchange, an intercept-resend eavesdropper, its statistical detection, and encryption under the resulting key.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&e.configPath, "config", "", "Path to YAML configuration")
	pf.Int64Var(&e.seed, "seed", 0, "Seed for the simulated parties (0 seeds from the clock)")
	pf.StringVar(&e.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newSimulateCmd(e),
		newEavesdropCmd(e),
		newWatchCmd(e),
		newAnalyzeCmd(e),
		newSweepCmd(e),
		newEncryptCmd(e),
		newDecryptCmd(e),
		newCompareCmd(e),
		newReplayCmd(e),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (e *env) load(cmd *cobra.Command) error {
	cfg := config.Default()
	if e.configPath != "" {
		var err error
		if cfg, err = config.Load(e.configPath); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = e.seed
	}
	if e.logLevel != "" {
		cfg.LogLevel = e.logLevel
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(cmd.ErrOrStderr())
	e.cfg = cfg
	return nil
}

// seedValue returns the configured seed, or a clock-derived one.
func (e *env) seedValue() int64 {
	if e.cfg.Seed != 0 {
		return e.cfg.Seed
	}
	return time.Now().UnixNano()
}
