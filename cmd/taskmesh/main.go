package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig string
	flagAddr   string
	flagGraph  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskmesh",
		Short: "Break tasks down into a task graph through conversation",
		Long: `Taskmesh lets a language model maintain a task graph while it chats with
the user: it creates, edits, nests, re-statuses and deletes tasks one tool call
at a time and streams its reasoning, its reply and every graph change.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
