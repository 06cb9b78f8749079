package blueroute

import (
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/sfi2k7/blueroute/dispatch"
)

// Config holds the server settings. It can be filled from a TOML file with
// LoadConfig or adjusted through the builder returned by Router.Config.
type Config struct {
	Port int  `toml:"port"`
	Dev  bool `toml:"dev"`

	Cert      string   `toml:"cert"`
	Key       string   `toml:"key"`
	AutoTLS   bool     `toml:"auto_tls"`
	Domains   []string `toml:"domains"`
	CertCache string   `toml:"cert_cache"`

	StopOnInterrupt bool `toml:"stop_on_interrupt"`
	// ShutdownTimeout is in seconds
	ShutdownTimeout int `toml:"shutdown_timeout"`

	// StatsEndpoint is served with the token as its last segment. Empty
	// disables the endpoint.
	StatsEndpoint string `toml:"stats_endpoint"`
	StatsToken    string `toml:"stats_token"`

	// MetricsPath exposes the Prometheus registry next to the router
	MetricsPath string `toml:"metrics_path"`

	ErrorFormat string `toml:"error_format"`

	RateLimit RateLimitConfig `toml:"rate_limit"`
	CORS      CORSConfig      `toml:"cors"`
}

// RateLimitConfig is read by the rate limit middleware. A zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// CORSConfig is read by the CORS middleware. No origins disables it.
type CORSConfig struct {
	AllowOrigins     []string `toml:"allow_origins"`
	AllowHeaders     []string `toml:"allow_headers"`
	ExposeHeaders    []string `toml:"expose_headers"`
	AllowCredentials bool     `toml:"allow_credentials"`
	MaxAge           int      `toml:"max_age"`
}

// DefaultConfig returns the settings NewRouter starts from
func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		ShutdownTimeout: 5,
		StatsEndpoint:   "/__internal__/stats",
		StatsToken:      "blueroute",
		ErrorFormat:     "text",
	}
}

// LoadConfig reads a TOML file over DefaultConfig. Unknown keys are an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "load config %s", path)
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if c.ShutdownTimeout < 0 {
		return errors.Errorf("negative shutdown timeout %d", c.ShutdownTimeout)
	}
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("cert and key must be set together")
	}
	if c.AutoTLS && len(c.Domains) == 0 {
		return errors.New("auto_tls needs at least one domain")
	}
	if c.StatsEndpoint != "" && !strings.HasPrefix(c.StatsEndpoint, "/") {
		return errors.Errorf("stats endpoint %q must start with /", c.StatsEndpoint)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limit values must not be negative")
	}
	switch c.ErrorFormat {
	case "", "text", "json":
	default:
		return errors.Errorf("unknown error format %q", c.ErrorFormat)
	}
	return nil
}

// Configurator changes the root router's settings in place
type Configurator struct {
	r *Router
}

// Config gets the config builder for the server
func (r *Router) Config() *Configurator {
	if r.parent != nil {
		panic("Config can only be called on root router")
	}

	return &Configurator{r: r}
}

// Settings returns the router's current settings
func (c *Configurator) Settings() *Config {
	return c.r.cfg
}

// SetDev turns per request logging on or off
func (c *Configurator) SetDev(dev bool) *Configurator {
	c.r.cfg.Dev = dev
	return c
}

// SetPort sets the port for the server
func (c *Configurator) SetPort(port int) *Configurator {
	c.r.cfg.Port = port
	return c
}

// UseSSL serves TLS with the certificate and key files at the given paths
func (c *Configurator) UseSSL(cert, key string) *Configurator {
	c.r.cfg.Cert = cert
	c.r.cfg.Key = key
	return c
}

// UseAutoTLS fetches certificates for domains from Let's Encrypt, caching
// them in cacheDir.
func (c *Configurator) UseAutoTLS(cacheDir string, domains ...string) *Configurator {
	c.r.cfg.AutoTLS = true
	c.r.cfg.CertCache = cacheDir
	c.r.cfg.Domains = domains
	return c
}

// StopOnInterrupt stops the server on SIGINT or SIGTERM
func (c *Configurator) StopOnInterrupt() *Configurator {
	c.r.cfg.StopOnInterrupt = true
	return c
}

func (c *Configurator) SetShutdownTimeout(seconds int) *Configurator {
	c.r.cfg.ShutdownTimeout = seconds
	return c
}

// SetStatsToken sets the token for the stats endpoint
func (c *Configurator) SetStatsToken(token string) *Configurator {
	c.r.cfg.StatsToken = token
	return c
}

// SetStatsEndpoint sets the endpoint for the stats
func (c *Configurator) SetStatsEndpoint(endpoint string) *Configurator {
	c.r.cfg.StatsEndpoint = endpoint
	return c
}

// DisableStats disables the stats endpoint
func (c *Configurator) DisableStats() *Configurator {
	c.r.cfg.StatsEndpoint = ""
	return c
}

func (c *Configurator) SetMetricsPath(path string) *Configurator {
	c.r.cfg.MetricsPath = path
	return c
}

// SetLogger replaces the logger used for errors, panics and dev output
func (c *Configurator) SetLogger(logger *slog.Logger) *Configurator {
	c.r.logger = logger
	return c
}

// SetErrorFormat picks the default error rendering, "text" or "json"
func (c *Configurator) SetErrorFormat(format string) *Configurator {
	c.r.cfg.ErrorFormat = format
	c.r.SetErrorFormat(format)
	return c
}

// GlobalOPTIONS sets the handler for OPTIONS requests to paths whose route
// has no OPTIONS or ANY handler, run through mw. The router adds an Allow
// header when the response has none.
func (c *Configurator) GlobalOPTIONS(fn HandlerFunc, mw ...Middleware) *Configurator {
	c.r.globalOptions = dispatch.New[*Context, *Response](fn, mw...)
	return c
}

// HandleOPTIONS answers OPTIONS requests to any route with 204 and the Allow
// header
func (c *Configurator) HandleOPTIONS() *Configurator {
	return c.GlobalOPTIONS(func(*Context) (*Response, error) {
		return NoContent(), nil
	})
}
