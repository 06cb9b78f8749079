// Package middleware provides blueroute middleware for request ids, rate
// limiting, panic recovery, access logging, Prometheus metrics,
// OpenTelemetry tracing, CORS and response compression.
//
// Every constructor takes functional options and returns a
// blueroute.Middleware that can be attached with Use, Group or per route:
//
//	r := blueroute.NewRouter()
//	r.Use(
//	    middleware.Recovery(),
//	    middleware.RequestID(),
//	    middleware.AccessLog(middleware.WithAccessLogger(logger)),
//	)
//	api := r.Group("/api", middleware.RateLimit(middleware.WithRPS(20)))
//
// Middleware listed first runs outermost: it sees the request first and the
// response last.
package middleware
