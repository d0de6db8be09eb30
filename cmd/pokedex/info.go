package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/internal/agent"
	"github.com/Assassin199108/pokemon-agent-backend/internal/mcp"
	"github.com/Assassin199108/pokemon-agent-backend/internal/scraper"
)

func infoCMD() *cobra.Command {
	var cfgPath string
	var useURL string
	var react bool
	var info = &cobra.Command{
		Use:   "info <name>",
		Short: "Look up one pokemon and print the JSON result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			p, err := buildPipeline(ctx, cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			if react {
				var remote *mcp.Manager
				if len(cfg.ToolHosts) > 0 {
					remote = mcp.NewManager(ctx, cfg.ToolHosts)
					defer remote.Close()
				}
				ag := agent.New(agent.Options{
					LLM:       p.llm,
					Router:    p.router,
					Config:    cfg.Agent,
					Search:    cfg.Search,
					Searcher:  p.searcher,
					Scraper:   p.scraper,
					Corpus:    p.corpus,
					Remote:    remote,
					Telemetry: p.telemetry,
				})
				res, err := ag.Run(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Println(string(res.Answer))
				return nil
			}

			var out scraper.Outcome
			if useURL != "" {
				out = p.scraper.ScrapeURL(ctx, args[0], useURL)
			} else {
				out = p.scraper.ScrapeByName(ctx, args[0])
			}
			fmt.Println(out.JSON())
			return nil
		},
	}
	info.Flags().StringVar(&useURL, "url", "", "scrape this URL instead of searching")
	info.Flags().BoolVar(&react, "react", false, "use the autonomous agent loop")
	info.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return info
}
