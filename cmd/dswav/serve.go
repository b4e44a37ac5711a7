package main

import (
	"github.com/spf13/cobra"

	"github.com/example/go-dswav/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			return server.New(cfg, newPipeline(cfg)).Start(cmd.Context())
		},
	}
}
