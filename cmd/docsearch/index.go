package main

import (
	"github.com/spf13/cobra"

	"docsearch/internal/app"
	"docsearch/internal/indexing"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index documents from the raw data folder",
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.Indexing.Run(ctx)
	if err != nil {
		return err
	}

	counts := map[indexing.FileState]int{}
	for _, r := range results {
		counts[r.State]++
		if r.Err != nil {
			cmd.Printf("%-10s %s (%v)\n", r.State, r.Path, r.Err)
		} else {
			cmd.Printf("%-10s %s\n", r.State, r.Path)
		}
	}
	cmd.Printf("\nprocessed=%d cached=%d skipped=%d failed=%d\n",
		counts[indexing.StateProcessed], counts[indexing.StateCached],
		counts[indexing.StateSkipped], counts[indexing.StateFailed])
	return nil
}
