package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/research-verify/internal/config"
	"github.com/sells-group/research-verify/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent research runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), config.ModeHistory)
		if err != nil {
			return err
		}
		defer env.Close()

		recs, err := env.Store.ListResearch(cmd.Context(), historyLimit)
		if err != nil {
			return eris.Wrap(err, "list history")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all research history",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), config.ModeHistory)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Store.ClearResearch(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "clear history")
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d history records\n", n)
		return err
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", store.DefaultHistoryLimit, "number of runs to show")
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
