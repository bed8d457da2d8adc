package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima/engine"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
)

func newPingCmd(opts *globalOptions) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the receiver of a target answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			targetType, err := metadata.ParseTargetType(target)
			if err != nil {
				return err
			}

			e, err := engine.New(opts.applicationConfig(), assets.NewMemoryArchive(), nil)
			if err != nil {
				return err
			}
			if err := e.Initialize(); err != nil {
				return err
			}
			defer e.Shutdown()

			ok, err := e.Ping(targetType)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: %w", targetType.Description(), core.ErrReceiverUnreachable)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is listening\n", targetType.Description())
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", metadata.TargetTypeBlender.String(), "Blender or Unreal")
	return cmd
}
