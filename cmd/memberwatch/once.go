package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"memberwatch/internal/app"
	"memberwatch/internal/tracker"
)

func onceCmd(cfgPath *string) *cobra.Command {
	var (
		dryRun  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single sweep over all entities and exit",
		Long: `Run one update cycle for every configured entity. State is read from and
written to the configured storage, so with a persistent driver the next
"run" continues from here.

With --dry-run, counts are fetched and messages composed but nothing is
published and no state changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var results []tracker.Result
			if dryRun {
				results = a.Preview(ctx)
			} else {
				results = a.Sweep(ctx)
			}
			printResults(cmd.OutOrStdout(), results, dryRun)

			for _, r := range results {
				if r.Outcome == tracker.OutcomeFailed {
					return fmt.Errorf("one or more entities failed")
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "fetch and compose without publishing")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline for the sweep")
	return cmd
}

func printResults(w io.Writer, results []tracker.Result, dryRun bool) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	for _, r := range results {
		switch r.Outcome {
		case tracker.OutcomeFailed:
			reason := "unknown error"
			if len(r.Failures) > 0 {
				reason = r.Failures[0].Error()
			}
			fmt.Fprintf(w, "%s %s %s\n", red("FAIL"), r.EntityID, faint(reason))
		case tracker.OutcomeUnchanged:
			fmt.Fprintf(w, "%s %s count=%d\n", faint("SAME"), r.EntityID, r.Count)
		case tracker.OutcomeChanged:
			tag := green("POST")
			if dryRun {
				tag = yellow("DRY ")
			} else if len(r.Failures) > 0 {
				tag = yellow("PART")
			}
			fmt.Fprintf(w, "%s %s count=%d next=%d %q\n", tag, r.EntityID, r.Count, r.Milestone, r.Message)
			for _, f := range r.Failures {
				fmt.Fprintf(w, "     %s\n", faint(f.Error()))
			}
		}
	}
}
