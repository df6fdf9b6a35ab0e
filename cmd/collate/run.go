package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/born-ml/collate/internal/batch"
	"github.com/born-ml/collate/internal/config"
	"github.com/born-ml/collate/internal/logging"
	"github.com/born-ml/collate/internal/samples"
	"github.com/born-ml/collate/internal/shm"
)

type runFlags struct {
	config     string
	out        string
	workers    int
	keepShared bool
}

func newRunCmd(a *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run --config FILE [--out FILE] SAMPLE...",
		Short: "Collate samples into one batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.collate(cmd, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "pipeline file (YAML)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "write the batch to this safetensors file")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "samples read concurrently (0 = one per CPU)")
	cmd.Flags().BoolVar(&flags.keepShared, "keep-shared", false, "leave shared-memory segments in place for other processes")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (a *app) collate(cmd *cobra.Command, flags runFlags, paths []string) error {
	file, err := config.Load(flags.config)
	if err != nil {
		return err
	}
	pipeline, release, err := config.Build(file, logging.ComponentLogger(a.logger, "pipeline"))
	if err != nil {
		return fmt.Errorf("%s: %w", flags.config, err)
	}
	defer release()

	start := time.Now()
	records, err := samples.ReadAll(cmd.Context(), paths, flags.workers)
	if err != nil {
		return err
	}
	a.logger.Debug().Int("samples", len(records)).Dur("elapsed", time.Since(start)).Msg("samples loaded")

	start = time.Now()
	out, err := pipeline.Apply(records)
	if err != nil {
		return err
	}
	a.logger.Info().Int("samples", len(records)).Dur("elapsed", time.Since(start)).Msg("batch collated")

	shared := sharedTensors(out)
	if !flags.keepShared {
		defer func() {
			for _, st := range shared {
				if cerr := st.Close(); cerr != nil {
					a.logger.Warn().Err(cerr).Msg("closing shared segment")
				}
			}
		}()
	}

	if err := renderTree(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	if flags.out != "" {
		if err := samples.WriteFile(flags.out, out, map[string]string{"samples": fmt.Sprint(len(records))}); err != nil {
			return fmt.Errorf("writing %s: %w", flags.out, err)
		}
		a.logger.Info().Str("path", flags.out).Msg("batch written")
	}
	return nil
}

// sharedTensors collects every shared-memory tensor in v.
func sharedTensors(v batch.Value) []*shm.Tensor {
	var found []*shm.Tensor
	w := batch.Walker{
		Tensor: func(_ batch.Path, a batch.Array) (batch.Value, error) {
			if st, ok := a.(*shm.Tensor); ok {
				found = append(found, st)
			}
			return batch.NewTensor(a), nil
		},
		DescendLists: true,
	}
	_, _ = w.Walk(v)
	return found
}
