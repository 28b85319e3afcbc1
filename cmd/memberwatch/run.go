package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"memberwatch/internal/app"
	logx "memberwatch/pkg/logx"
)

func runCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler and liveness endpoint until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd.Context(), *cfgPath)
		},
	}
}

func runService(parent context.Context, cfgPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		logx.NewConsole("info").Error("startup failed", logx.String("config", cfgPath), logx.Err(err))
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Close()
		return err
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		reason = app.StopFatalError
	}
	fatal := a.Err()
	if fatal != nil {
		a.Logger().Error("fatal error", logx.Err(fatal))
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	return fatal
}
