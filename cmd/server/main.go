package main

import (
	"context"
	"fmt"
	"os"

	"detective_lab/internal/platform/config"
	"detective_lab/internal/platform/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	verbose bool

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "detective-lab",
		Short: "Detective Lab - solve coding cases, earn points and badges",
		Long: `Detective Lab serves an ordered sequence of detective cases. Learners submit
code that runs in an embedded interpreter and is checked against each case's
grading rule; solving a case unlocks the next one and awards points and a badge.

Configuration comes from the environment or a .env file in the working directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if opts.verbose {
				level = "debug"
			}
			log, err := logger.New(level, cfg.LogDevelopment)
			if err != nil {
				return err
			}
			opts.cfg, opts.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newRegisterCmd(opts),
		newGradeCmd(opts),
		newLeaderboardCmd(opts),
		newCasesCmd(opts),
	)
	return root
}

// withApp builds the application for one command and closes it afterwards.
func withApp(ctx context.Context, opts *rootOptions, fn func(*application) error) error {
	app, err := newApplication(ctx, opts.cfg, opts.log)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
