package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func routesCmd() *cobra.Command {
	var tree bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the registered routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			r := newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
			out := cmd.OutOrStdout()
			if tree {
				fmt.Fprint(out, r.PrintRoutes())
				return nil
			}
			for _, route := range r.Routes() {
				fmt.Fprintf(out, "%-8s %s\n", route.Method, route.Pattern)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&tree, "tree", "t", false, "Print the route tree")

	return cmd
}
