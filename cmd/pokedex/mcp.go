package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/internal/mcp"
)

func mcpCMD() *cobra.Command {
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "mcp",
		Short: "Serve pipeline tools over stdio JSON-RPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			p, err := buildPipeline(context.Background(), cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			srv := mcp.NewServer(p.scraper, p.searcher, p.cache, p.corpus, cfg.Search)
			return srv.Serve(os.Stdin, os.Stdout)
		},
	}
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return serve
}
