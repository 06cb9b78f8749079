package middleware

import (
	"github.com/google/uuid"

	"github.com/sfi2k7/blueroute"
)

// RequestIDKey is the Context key the request id is stored under
const RequestIDKey = "request_id"

const maxClientIDLength = 128

type RequestIDOption func(*requestIDConfig)

type requestIDConfig struct {
	header        string
	generator     func() string
	allowClientID bool
}

// WithRequestIDHeader sets the header read from the request and written to
// the response. Defaults to X-Request-ID.
func WithRequestIDHeader(name string) RequestIDOption {
	return func(c *requestIDConfig) {
		c.header = name
	}
}

// WithRequestIDGenerator replaces the UUID v7 generator
func WithRequestIDGenerator(fn func() string) RequestIDOption {
	return func(c *requestIDConfig) {
		c.generator = fn
	}
}

// WithClientRequestID controls whether an id sent by the client is kept
func WithClientRequestID(allow bool) RequestIDOption {
	return func(c *requestIDConfig) {
		c.allowClientID = allow
	}
}

func generateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RequestID tags every request with an id, stored in the Context under
// RequestIDKey and echoed in the response header.
func RequestID(opts ...RequestIDOption) blueroute.Middleware {
	cfg := &requestIDConfig{
		header:        "X-Request-ID",
		generator:     generateUUIDv7,
		allowClientID: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return blueroute.MiddlewareFunc(func(c *blueroute.Context, next blueroute.Handler) (*blueroute.Response, error) {
		var id string
		if cfg.allowClientID {
			id = c.Header(cfg.header)
		}
		if id == "" || len(id) > maxClientIDLength {
			id = cfg.generator()
		}
		c.Set(RequestIDKey, id)

		res, err := next.Handle(c)
		if res != nil {
			res.SetHeader(cfg.header, id)
		}
		return res, err
	})
}

// GetRequestID returns the id RequestID stored, or ""
func GetRequestID(c *blueroute.Context) string {
	id, _ := c.Get(RequestIDKey).(string)
	return id
}
