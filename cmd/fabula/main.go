package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fabula",
	Short: "Fabula - narrative memory graph builder",
	Long: `Fabula converts an externally annotated narrative into a queryable
memory graph: event frames with semantic roles, normalized times,
embeddings and temporal/semantic edges.`,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
