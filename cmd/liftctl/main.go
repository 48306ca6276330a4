// Package main implements the liftctl CLI, a thin client of the liftlog API.
package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/claude/liftlog/internal/client"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "liftctl",
	Short:        "Drive a running liftlog server",
	SilenceUsage: true,
}

var (
	serverURL string
	apiKey    string
	jsonOut   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("LIFTLOG_SERVER_URL", "http://127.0.0.1:8080"), "liftlog server URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("LIFTLOG_AUTH_API_KEY"), "API key for mutating requests")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print raw JSON")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient() *client.Client {
	return client.New(serverURL, apiKey)
}

// newPrinter styles output only when stdout is a terminal.
func newPrinter() *printer {
	return &printer{
		w:      os.Stdout,
		styled: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
}
