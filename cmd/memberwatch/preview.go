package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"memberwatch/internal/milestone"
)

func previewCmd() *cobra.Command {
	var step int64
	cmd := &cobra.Command{
		Use:   "preview <count>",
		Short: "Print the milestone message for a member count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || count < 0 {
				return fmt.Errorf("count must be a non-negative integer: %q", args[0])
			}
			if step <= 0 {
				return fmt.Errorf("--step must be > 0")
			}
			fmt.Fprintln(cmd.OutOrStdout(), milestone.Compose(count, step))
			return nil
		},
	}
	cmd.Flags().Int64Var(&step, "step", milestone.DefaultStep, "milestone step")
	return cmd
}
