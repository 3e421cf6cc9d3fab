package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentqaflow/internal/api"
	"github.com/Lllllllleong/documentqaflow/internal/server"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve every HTTP route, /metrics and /healthz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, cfg, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			srv := server.New(cfg.Port, api.NewHandler(rt).Routes(), cfg.ShutdownTimeout)
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port (overrides PORT)")
	return cmd
}
