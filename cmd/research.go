package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/research-verify/internal/config"
	"github.com/sells-group/research-verify/internal/research"
)

var (
	researchQuery   string
	researchMax     int
	researchContext bool
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Search, extract, and verify articles for a query",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, config.ModeResearch)
		if err != nil {
			return err
		}
		defer env.Close()

		maxResults := researchMax
		if maxResults <= 0 {
			maxResults = cfg.Research.MaxResults
		}

		articles, err := env.Pipeline.Research(ctx, researchQuery, maxResults)
		if err != nil {
			return eris.Wrap(err, "research")
		}

		out := cmd.OutOrStdout()
		if researchContext {
			_, err := fmt.Fprintln(out, research.BuildContext(articles, 0))
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(articles)
	},
}

func init() {
	researchCmd.Flags().StringVarP(&researchQuery, "query", "q", "", "research query")
	researchCmd.Flags().IntVar(&researchMax, "max", 0, "maximum candidate urls (default from config)")
	researchCmd.Flags().BoolVar(&researchContext, "context", false, "print a citation context block instead of JSON")
	_ = researchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(researchCmd)
}
