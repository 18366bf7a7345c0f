package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/x0ba/habithing/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "habithing-configure",
		Short: "Configuration tool for the habithing API",
		Long:  "CLI tool for configuring OIDC providers, rate limits, and other settings",
	}

	rootCmd.AddCommand(commands.NewOIDCCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
