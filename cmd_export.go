package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima/engine"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var target string
	var receiver string
	var stats bool

	cmd := &cobra.Command{
		Use:   "export <scene.yaml>",
		Short: "Export the selections of a scene file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetType, err := metadata.ParseTargetType(target)
			if err != nil {
				return err
			}

			archive, selections, err := engine.LoadScene(args[0])
			if err != nil {
				return err
			}
			if len(selections) == 0 {
				return fmt.Errorf("%s selects nothing to export", args[0])
			}

			cfg := opts.applicationConfig()
			if receiver != "" {
				cfg.Receivers = map[metadata.TargetType]string{targetType: receiver}
			}

			out := cmd.OutOrStdout()
			e, err := engine.New(cfg, archive, &engine.Hooks{
				FnOnBatchCompleted: func(batch core.BatchID, target string, count int) {
					fmt.Fprintf(out, "exported %d asset(s) to %s (batch %s)\n", count, target, batch.Short())
				},
				FnOnReceiverCommand: func(command string) {
					fmt.Fprintf(out, "receiver answered %s\n", command)
				},
			})
			if err != nil {
				return err
			}
			if err := e.Initialize(); err != nil {
				return err
			}
			defer e.Shutdown()

			// signal channel to capture system calls
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := opts.serveMetrics(ctx); err != nil {
				return err
			}

			err = <-e.ExportAsync(ctx, selections, targetType)
			if stats {
				if err := core.Metrics().WriteSummary(out); err != nil {
					core.LogWarn("cannot print the metrics summary: %s", err.Error())
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", metadata.TargetTypeFolder.String(), "Blender, Unreal or Folder")
	cmd.Flags().StringVar(&receiver, "receiver", "", "receiver address, defaults to the loopback port of the target")
	cmd.Flags().BoolVar(&stats, "stats", false, "print the metric counters once the batch is done")
	return cmd
}
