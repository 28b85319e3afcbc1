package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:     "memberwatch",
		Short:   "Post group member-count milestones to webhooks",
		Version: version,
		Long: `memberwatch polls group member counts on a schedule and replaces each
group's notification whenever its count changes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./memberwatch.yaml", "path to config (json or yaml)")

	root.AddCommand(runCmd(&cfgPath))
	root.AddCommand(onceCmd(&cfgPath))
	root.AddCommand(previewCmd())
	return root
}
