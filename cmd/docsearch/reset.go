package main

import (
	"bufio"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docsearch/internal/app"
)

var (
	resetYes    bool
	resetSource string
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete indexed documents and vectors",
	Long: `Deletes all indexed documents and vectors. With --source, only the
vector chunks of that one source file are removed.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	resetCmd.Flags().StringVar(&resetSource, "source", "", "delete only the chunks indexed from this source file path")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if !resetYes {
		if resetSource != "" {
			cmd.Printf("This deletes the indexed chunks of %s. Continue? [y/N] ", resetSource)
		} else {
			cmd.Print("This deletes all indexed documents and vectors. Continue? [y/N] ")
		}
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			cmd.Println("Aborted.")
			return nil
		}
	}

	ctx := cmd.Context()

	a, err := app.New(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if resetSource != "" {
		if err := a.Index.DeleteBySource(ctx, resetSource); err != nil {
			return err
		}
		cmd.Printf("Chunks for %s deleted.\n", resetSource)
		return nil
	}

	if err := a.Reset(ctx); err != nil {
		return err
	}
	cmd.Println("Document store and vector index reset.")
	return nil
}
