package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentqaflow/internal/config"
	"github.com/Lllllllleong/documentqaflow/internal/services"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docqa",
		Short: "Document ingestion and question answering",
		Long: `docqa runs the document Q&A services outside Cloud Functions.

Configuration is read from the environment (and an optional .env file):
UPLOAD_BUCKET, PROJECT_ID, STORE_BACKEND, GENERATION_PROVIDER and friends.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newProcessCmd(), newKeyCmd())
	return root
}

// loadRuntime reads the configuration and builds every service.
func loadRuntime(ctx context.Context) (*services.Runtime, *config.Config, error) {
	rt, cfg, err := services.NewRuntimeFromEnv(ctx)
	if err != nil {
		return nil, nil, err
	}
	logLevel.Set(cfg.SlogLevel())
	return rt, cfg, nil
}
