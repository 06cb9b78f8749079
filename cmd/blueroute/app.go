package main

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sfi2k7/blueroute"
	"github.com/sfi2k7/blueroute/middleware"
)

// newApp builds the demo router. Metrics collectors are registered with reg.
func newApp(cfg *blueroute.Config, logger *slog.Logger, reg prometheus.Registerer) *blueroute.Router {
	r := blueroute.NewRouterWithConfig(cfg)
	r.Config().SetLogger(logger)

	r.Use(
		middleware.Recovery(middleware.WithRecoveryLogger(logger)),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Metrics(middleware.WithRegistry(reg)),
		middleware.AccessLog(middleware.WithAccessLogger(logger), middleware.WithSkipPaths("/health")),
		middleware.Compression(),
	)

	if len(cfg.CORS.AllowOrigins) > 0 {
		cors := middleware.CORS(append(middleware.CORSFromConfig(cfg.CORS), middleware.WithRouteMethods(r.Methods))...)
		r.Use(cors)
		r.Config().GlobalOPTIONS(func(c *blueroute.Context) (*blueroute.Response, error) {
			return blueroute.NoContent(), nil
		}, cors)
	} else {
		r.Config().HandleOPTIONS()
	}

	r.Get("/", func(c *blueroute.Context) (*blueroute.Response, error) {
		return blueroute.Text(http.StatusOK, "blueroute"), nil
	})
	r.Get("/health", func(c *blueroute.Context) (*blueroute.Response, error) {
		return blueroute.JSON(http.StatusOK, blueroute.O{"status": "ok"})
	})
	r.Get("/hello/$name:[A-Za-z]+", func(c *blueroute.Context) (*blueroute.Response, error) {
		return blueroute.Text(http.StatusOK, "Hello, "+c.Param("name")+"!"), nil
	})
	r.Get("/files/...$path", func(c *blueroute.Context) (*blueroute.Response, error) {
		return blueroute.JSON(http.StatusOK, blueroute.O{"segments": c.List("path")})
	})
	r.Get("/static/*", func(c *blueroute.Context) (*blueroute.Response, error) {
		return blueroute.Text(http.StatusOK, "static "+strings.Join(c.Wildcard(), "/")), nil
	})

	var api *blueroute.Router
	if cfg.RateLimit.RPS > 0 {
		api = r.Group("/api", middleware.RateLimit(
			middleware.WithRPS(cfg.RateLimit.RPS),
			middleware.WithBurst(cfg.RateLimit.Burst),
		))
	} else {
		api = r.Group("/api")
	}

	users := newUserStore()
	api.Get("/users", users.list)
	api.Post("/users", users.create)
	api.Get("/users/$id:\\d+", users.show)
	api.Delete("/users/$id:\\d+", users.remove)

	return r
}
