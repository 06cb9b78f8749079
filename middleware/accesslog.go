package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sfi2k7/blueroute"
)

type AccessLogOption func(*accessLogConfig)

type accessLogConfig struct {
	logger    *slog.Logger
	skipPaths map[string]bool
	skipPrefx []string
}

// WithAccessLogger sets the destination logger. Defaults to slog.Default.
func WithAccessLogger(logger *slog.Logger) AccessLogOption {
	return func(c *accessLogConfig) {
		c.logger = logger
	}
}

// WithSkipPaths excludes exact request paths, such as health checks
func WithSkipPaths(paths ...string) AccessLogOption {
	return func(c *accessLogConfig) {
		for _, p := range paths {
			c.skipPaths[p] = true
		}
	}
}

// WithSkipPrefix excludes every request path under prefix
func WithSkipPrefix(prefix string) AccessLogOption {
	return func(c *accessLogConfig) {
		c.skipPrefx = append(c.skipPrefx, prefix)
	}
}

// AccessLog writes one line per request once the response is known. Server
// errors are logged at error level, client errors at warn.
func AccessLog(opts ...AccessLogOption) blueroute.Middleware {
	cfg := &accessLogConfig{
		logger:    slog.Default(),
		skipPaths: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return blueroute.MiddlewareFunc(func(c *blueroute.Context, next blueroute.Handler) (*blueroute.Response, error) {
		if cfg.skip(c.Path()) {
			return next.Handle(c)
		}

		res, err := next.Handle(c)
		status := statusOf(res, err)

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("route", route(c)),
			slog.Int("status", status),
			slog.Duration("duration", c.Took()),
			slog.String("remote", c.RemoteIP()),
		}
		if res != nil {
			attrs = append(attrs, slog.Int("size", len(res.Body)))
		}
		if id := GetRequestID(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		cfg.logger.LogAttrs(context.Background(), level, "access", attrs...)
		return res, err
	})
}

func (c *accessLogConfig) skip(path string) bool {
	if c.skipPaths[path] {
		return true
	}
	for _, prefix := range c.skipPrefx {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
