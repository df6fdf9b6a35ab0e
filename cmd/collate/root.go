package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/born-ml/collate/internal/logging"
)

// app carries state shared by subcommands.
type app struct {
	logger zerolog.Logger
}

func newRootCmd(ver string) *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:           "collate",
		Short:         "Assemble training batches for Born",
		Long:          "collate reads per-sample safetensors files, runs them through a collation pipeline and writes one batch.",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: false,
		Example: `  # Collate three samples with the pipeline in pipeline.yaml
  collate run --config pipeline.yaml a.safetensors b.safetensors c.safetensors

  # Write the batch instead of only printing it
  collate run --config pipeline.yaml --out batch.safetensors samples/*.safetensors`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupLogging(cmd)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", logging.FormatConsole, "log format (console or json)")
	cmd.AddCommand(newRunCmd(a), newVersionCmd(ver))

	return cmd
}

func (a *app) setupLogging(cmd *cobra.Command) error {
	cfg := logging.DefaultConfig()
	cfg.Output = cmd.ErrOrStderr()
	cfg.Level, _ = cmd.Flags().GetString("log-level")
	cfg.Format, _ = cmd.Flags().GetString("log-format")
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Level = zerolog.DebugLevel.String()
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return err
	}
	a.logger = logging.ComponentLogger(logger, "cli")
	a.logger.Debug().Str("command", cmd.Name()).Msg("command started")
	return nil
}

func newVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "collate %s\n", ver)
			return err
		},
	}
}
