package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "docsearch",
	Short: "Agentic document search service",
	Long: `docsearch indexes PDF documents into a vector store and answers
questions about them through a retrieval-grounded multi-agent pipeline.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
}
