package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envPath string

var rootCmd = &cobra.Command{
	Use:           "matchd",
	Short:         "price-time priority matching engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "path to a .env file (default: ./.env if present)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "matchd:", err)
		os.Exit(1)
	}
}
