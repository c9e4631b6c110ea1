package main

import (
	"context"
	"fmt"

	"downloader/infrastructure/configuration"
	"downloader/infrastructure/logger"
	"downloader/usecase"

	"github.com/spf13/cobra"
)

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "sweep [expiry|failed|tokens|all]",
		Short:     "Run maintenance passes once and exit",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"expiry", "failed", "tokens", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			which := "all"
			if len(args) == 1 {
				which = args[0]
			}
			return sweepOnce(cmd.Context(), which)
		},
	}
}

func sweepOnce(ctx context.Context, which string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	sweeper := usecase.NewSweeperUsecase(a.deps, configuration.C.Sweeper.FailedGrace(), configuration.C.Downloader.ExtractionTimeout())
	passes := map[string]func(context.Context) (usecase.SweepReport, error){
		"expiry": sweeper.ExpirePass,
		"failed": sweeper.CleanupFailed,
		"tokens": sweeper.RefreshTokens,
	}

	order := []string{"expiry", "failed", "tokens"}
	if which != "all" {
		if _, ok := passes[which]; !ok {
			return fmt.Errorf("unknown sweep %q", which)
		}
		order = []string{which}
	}

	for _, name := range order {
		report, err := passes[name](ctx)
		if err != nil {
			return fmt.Errorf("%s sweep: %w", name, err)
		}
		logger.GetLogger().WithField("report", report).Info("Sweep completed")
	}
	return nil
}
