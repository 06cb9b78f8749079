package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blueroute",
		Short: "Pattern router and middleware dispatcher for HTTP services",
		Long: `blueroute serves a demo application built on the blueroute router.

Routes use segment patterns:
  /users/$id          variable
  /users/$id:\d+      variable with a regular expression
  /static/*           wildcard
  /files/...$path     named variadic`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "TOML config file")

	rootCmd.AddCommand(
		serveCmd(),
		routesCmd(),
	)

	return rootCmd
}
