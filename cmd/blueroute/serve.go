package main

import (
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sfi2k7/blueroute"
)

func serveCmd() *cobra.Command {
	var (
		port int
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server with the demo routes.

Settings are read from the config file when one is given; flags
override them.

Examples:
  blueroute serve
  blueroute serve --port=9000 --dev
  blueroute serve --config=blueroute.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("dev") {
				cfg.Dev = dev
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().BoolVarP(&dev, "dev", "d", false, "Log every request")

	return cmd
}

func runServe(cfg *blueroute.Config) error {
	logger := newLogger(cfg.Dev)
	r := newApp(cfg, logger, prometheus.DefaultRegisterer)
	r.Config().StopOnInterrupt()
	return r.StartServer()
}

func loadConfig(cmd *cobra.Command) (*blueroute.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		cfg := blueroute.DefaultConfig()
		cfg.MetricsPath = "/metrics"
		return cfg, nil
	}
	return blueroute.LoadConfig(path)
}

func newLogger(dev bool) *slog.Logger {
	level := log.InfoLevel
	if dev {
		level = log.DebugLevel
	}

	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "blueroute",
		Level:           level,
	})
	return slog.New(handler)
}
