package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sfi2k7/blueroute"
)

type CORSOption func(*corsConfig)

type corsConfig struct {
	allowOrigins     []string
	allowMethods     []string
	allowHeaders     []string
	exposeHeaders    []string
	allowCredentials bool
	maxAge           int // in seconds
	methods          func(path string) []string
}

// WithAllowOrigins lists the origins allowed to make requests. "*" allows
// any origin.
func WithAllowOrigins(origins ...string) CORSOption {
	return func(c *corsConfig) {
		c.allowOrigins = origins
	}
}

// WithAllowMethods sets the methods advertised in preflight responses when
// no route lookup is configured.
func WithAllowMethods(methods ...string) CORSOption {
	return func(c *corsConfig) {
		c.allowMethods = methods
	}
}

func WithAllowHeaders(headers ...string) CORSOption {
	return func(c *corsConfig) {
		c.allowHeaders = headers
	}
}

func WithExposeHeaders(headers ...string) CORSOption {
	return func(c *corsConfig) {
		c.exposeHeaders = headers
	}
}

func WithAllowCredentials(allow bool) CORSOption {
	return func(c *corsConfig) {
		c.allowCredentials = allow
	}
}

// WithMaxAge sets how long a preflight result may be cached, in seconds
func WithMaxAge(seconds int) CORSOption {
	return func(c *corsConfig) {
		c.maxAge = seconds
	}
}

// WithRouteMethods advertises the methods actually registered for the
// requested path, typically Router.Methods.
func WithRouteMethods(lookup func(path string) []string) CORSOption {
	return func(c *corsConfig) {
		c.methods = lookup
	}
}

// CORSFromConfig builds the option list for the settings of a config file
func CORSFromConfig(cfg blueroute.CORSConfig) []CORSOption {
	opts := []CORSOption{
		WithAllowOrigins(cfg.AllowOrigins...),
		WithAllowCredentials(cfg.AllowCredentials),
	}
	if len(cfg.AllowHeaders) > 0 {
		opts = append(opts, WithAllowHeaders(cfg.AllowHeaders...))
	}
	if len(cfg.ExposeHeaders) > 0 {
		opts = append(opts, WithExposeHeaders(cfg.ExposeHeaders...))
	}
	if cfg.MaxAge > 0 {
		opts = append(opts, WithMaxAge(cfg.MaxAge))
	}
	return opts
}

// CORS adds the Access-Control headers for allowed origins and answers
// preflight requests without calling the rest of the chain. Preflights only
// reach middleware on routes serving OPTIONS; for the others install the same
// middleware on the router's global OPTIONS handler.
func CORS(opts ...CORSOption) blueroute.Middleware {
	cfg := &corsConfig{
		allowOrigins: []string{"*"},
		allowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
		allowHeaders: []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		maxAge:       86400, // 24 hours
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return blueroute.MiddlewareFunc(func(c *blueroute.Context, next blueroute.Handler) (*blueroute.Response, error) {
		origin := c.Header("Origin")
		if origin == "" {
			return next.Handle(c)
		}

		allowOrigin, ok := cfg.allowOrigin(origin)
		if !ok {
			return next.Handle(c)
		}

		if c.Method() == http.MethodOptions && c.Header("Access-Control-Request-Method") != "" {
			res := blueroute.NoContent()
			cfg.setOrigin(res, allowOrigin)

			if cfg.maxAge > 0 {
				res.SetHeader("Access-Control-Max-Age", strconv.Itoa(cfg.maxAge))
			}

			methods := cfg.allowMethods
			if cfg.methods != nil {
				if routed := blueroute.AllowedMethods(cfg.methods(c.Path())); len(routed) > 0 {
					methods = routed
				}
			}
			res.SetHeader("Access-Control-Allow-Methods", strings.Join(methods, ", "))

			if reqHeaders := c.Header("Access-Control-Request-Headers"); reqHeaders != "" {
				res.SetHeader("Access-Control-Allow-Headers", reqHeaders)
			} else if len(cfg.allowHeaders) > 0 {
				res.SetHeader("Access-Control-Allow-Headers", strings.Join(cfg.allowHeaders, ", "))
			}
			return res, nil
		}

		res, err := next.Handle(c)
		if res != nil {
			cfg.setOrigin(res, allowOrigin)
			if len(cfg.exposeHeaders) > 0 {
				res.SetHeader("Access-Control-Expose-Headers", strings.Join(cfg.exposeHeaders, ", "))
			}
		}
		return res, err
	})
}

func (cfg *corsConfig) allowOrigin(origin string) (string, bool) {
	for _, o := range cfg.allowOrigins {
		if o == "*" {
			// credentials cannot be combined with a wildcard origin
			if cfg.allowCredentials {
				return origin, true
			}
			return "*", true
		}
		if strings.EqualFold(o, origin) {
			return origin, true
		}
	}
	return "", false
}

func (cfg *corsConfig) setOrigin(res *blueroute.Response, origin string) {
	res.SetHeader("Access-Control-Allow-Origin", origin)
	if origin != "*" {
		res.Header.Add("Vary", "Origin")
	}
	if cfg.allowCredentials {
		res.SetHeader("Access-Control-Allow-Credentials", "true")
	}
}
