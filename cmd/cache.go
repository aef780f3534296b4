package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/research-verify/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the verified article cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print cached articles as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), config.ModeCache)
		if err != nil {
			return err
		}
		defer env.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(env.Cache.All())
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached article",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), config.ModeCache)
		if err != nil {
			return err
		}
		defer env.Close()

		n := env.Cache.Len()
		if err := env.Cache.Clear(cmd.Context()); err != nil {
			return eris.Wrap(err, "clear cache")
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared %d cached articles\n", n)
		return err
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
