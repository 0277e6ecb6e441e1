// Package main is the CLI entry point: the supervise and oneshot
// subcommands, wired from config, observability, and process supervision.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/objectstore"
	"github.com/haasonsaas/nexus/internal/supervisor"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "nexus",
		Short:        "nexus agent runtime",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildSuperviseCmd(), buildOneshotCmd())
	return rootCmd
}

func buildSuperviseCmd() *cobra.Command {
	var logDir string
	cmd := &cobra.Command{
		Use:   "supervise NAME -- COMMAND",
		Short: "run COMMAND as a supervised longrun process",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := observability.NewLogger(observability.Config{Domain: "supervisor"})
			metrics := observability.NewMetrics()
			tree := supervisor.NewSupervisionTree(metrics, logger)

			name := args[0]
			command := args[1]
			for _, a := range args[2:] {
				command += " " + a
			}
			if logDir == "" {
				logDir = fmt.Sprintf("%s/logs/%s", cfg.Storage.LocalRoot, name)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := tree.StartLongrun(ctx, supervisor.LongrunSpec{
				Name:    name,
				Command: command,
				LogDir:  logDir,
			}); err != nil {
				return fmt.Errorf("start %s: %w", name, err)
			}

			<-ctx.Done()
			return tree.Stop(name, 3*time.Second)
		},
	}
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory for stdout/stderr log archives (default <data-dir>/logs/<name>)")
	return cmd
}

func buildOneshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oneshot NAME -- COMMAND",
		Short: "run COMMAND once and report its exit status",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			command := args[1]
			for _, a := range args[2:] {
				command += " " + a
			}
			result, err := supervisor.RunOneshot(cmd.Context(), supervisor.OneshotSpec{
				Name:    name,
				Command: command,
				Stdout:  os.Stdout,
				Stderr:  os.Stderr,
			})
			if err != nil {
				return err
			}
			if result.Signal != "" {
				return fmt.Errorf("%s: terminated by signal %s", name, result.Signal)
			}
			if result.Code != 0 {
				os.Exit(result.Code)
			}
			return nil
		},
	}
	return cmd
}

// newStore builds the object-store backend selected by Config.Storage.
// No subcommand calls it.
func newStore(ctx context.Context, cfg config.Config) (objectstore.Store, error) {
	return objectstore.New(ctx, cfg.Storage.Type, cfg.Storage.LocalRoot, &cfg.Storage.S3)
}
