package main

import (
	"os"

	"downloader/infrastructure/logger"

	"github.com/spf13/cobra"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()

	root := &cobra.Command{
		Use:           "downloader",
		Short:         "Media download service: HTTP API, lifecycle workers and expiry sweeper",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newWorkerCommand(), newSweepCommand())

	if err := root.Execute(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Command failed")
		os.Exit(1)
	}
}
