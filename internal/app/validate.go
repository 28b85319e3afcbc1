package app

import (
	"context"

	"memberwatch/internal/config"
	"memberwatch/internal/scheduler"
)

// validateRuntime checks everything the services need beyond the structural
// checks in config.Validate. It guards both startup and hot reload.
func validateRuntime(_ context.Context, cfg *config.Config) error {
	if _, err := mapEntities(cfg); err != nil {
		return err
	}
	if _, err := scheduler.ParseSchedule(cfg.Schedule); err != nil {
		return err
	}
	if _, err := mapSweepTimeout(cfg); err != nil {
		return err
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapCounterClient(cfg); err != nil {
		return err
	}
	if _, err := mapNotifyClient(cfg); err != nil {
		return err
	}
	return nil
}
