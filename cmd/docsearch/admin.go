package main

import (
	"github.com/spf13/cobra"

	"docsearch/internal/app"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Open the interactive admin console",
	RunE:  runAdmin,
}

func init() {
	rootCmd.AddCommand(adminCmd)
}

func runAdmin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Admin().Run(ctx)
}
