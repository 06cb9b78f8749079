package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"github.com/sfi2k7/blueroute"
)

type RecoveryOption func(*recoveryConfig)

type recoveryConfig struct {
	logger     *slog.Logger
	stackTrace bool
}

// WithRecoveryLogger sets the logger panics are reported to. Defaults to
// slog.Default.
func WithRecoveryLogger(logger *slog.Logger) RecoveryOption {
	return func(c *recoveryConfig) {
		c.logger = logger
	}
}

// WithStackTrace controls whether the stack is logged with the panic
func WithStackTrace(enabled bool) RecoveryOption {
	return func(c *recoveryConfig) {
		c.stackTrace = enabled
	}
}

// Recovery turns a panic below it into a 500 HTTPError, so the router's
// error handlers and any middleware above it still see the failure.
func Recovery(opts ...RecoveryOption) blueroute.Middleware {
	cfg := &recoveryConfig{
		logger:     slog.Default(),
		stackTrace: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return blueroute.MiddlewareFunc(func(c *blueroute.Context, next blueroute.Handler) (res *blueroute.Response, err error) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			perr, ok := rec.(error)
			if ok {
				perr = errors.WithStack(perr)
			} else {
				perr = errors.Errorf("panic: %v", rec)
			}

			attrs := []any{
				"method", c.Method(),
				"path", c.Path(),
				"route", c.Pattern,
				"error", perr.Error(),
			}
			if cfg.stackTrace {
				attrs = append(attrs, "stack", fmt.Sprintf("%+v", perr))
			}
			if id := GetRequestID(c); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			cfg.logger.Error("panic recovered", attrs...)

			res = nil
			err = &blueroute.HTTPError{
				Code:    http.StatusInternalServerError,
				Message: http.StatusText(http.StatusInternalServerError),
				Err:     perr,
			}
		}()

		return next.Handle(c)
	})
}
