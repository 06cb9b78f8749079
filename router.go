package blueroute

import (
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/sfi2k7/blueroute/dispatch"
	"github.com/sfi2k7/blueroute/router"
)

type (
	Handler        = dispatch.Handler[*Context, *Response]
	HandlerFunc    = dispatch.HandlerFunc[*Context, *Response]
	Middleware     = dispatch.Middleware[*Context, *Response]
	MiddlewareFunc = dispatch.MiddlewareFunc[*Context, *Response]
)

// Router serves HTTP requests from a route tree. Groups returned by Group
// share the root's settings and handlers.
type Router struct {
	*shared
	tree   *router.Router[Handler, Middleware]
	prefix string
	parent *Router
}

// shared is owned by the root router
type shared struct {
	mux    *router.Router[Handler, Middleware]
	cfg    *Config
	logger *slog.Logger
	rqc    *reqcount

	errorHandler     ErrorHandler
	panicHandler     ErrorHandler
	errorHandlers    map[int]ErrorHandler
	notFound         HandlerFunc
	methodNotAllowed HandlerFunc
	globalOptions    *dispatch.Dispatcher[*Context, *Response]

	mount        sync.Once
	statsPattern string

	mu     sync.Mutex
	server *http.Server
}

// NewRouter creates a new router with DefaultConfig
func NewRouter() *Router {
	return NewRouterWithConfig(DefaultConfig())
}

// NewRouterWithConfig creates a router using cfg, which stays shared with the
// router's Config builder.
func NewRouterWithConfig(cfg *Config) *Router {
	mux := router.New[Handler, Middleware]()
	r := &Router{
		shared: &shared{
			mux:              mux,
			cfg:              cfg,
			logger:           slog.Default(),
			rqc:              &reqcount{r: make(map[string]uint64)},
			errorHandlers:    make(map[int]ErrorHandler),
			panicHandler:     TextErrorHandler,
			notFound:         defaultNotFound,
			methodNotAllowed: defaultMethodNotAllowed,
		},
		tree: mux,
	}
	r.SetErrorFormat(cfg.ErrorFormat)
	return r
}

// Group returns a router for routes under prefix. The middleware runs for
// every route of the group, before the middleware of nested groups.
func (r *Router) Group(prefix string, mw ...Middleware) *Router {
	return &Router{
		shared: r.shared,
		tree:   r.tree.Group(prefix, mw...),
		prefix: path.Join("/", r.prefix, prefix),
		parent: r,
	}
}

// Prefix is the path the router's routes are registered under
func (r *Router) Prefix() string {
	if r.prefix == "" {
		return "/"
	}
	return r.prefix
}

// Use adds middleware for every route at or below this router
func (r *Router) Use(mw ...Middleware) {
	r.tree.Use(mw...)
}

// Handle registers h for method on pattern, relative to the router's prefix
func (r *Router) Handle(method, pattern string, h Handler, mw ...Middleware) error {
	if h == nil {
		return errors.Errorf("nil handler for %s %s", method, pattern)
	}
	return r.tree.Handle(method, pattern, h, mw...)
}

func (r *Router) handle(method, pattern string, fn HandlerFunc, mw []Middleware) {
	if fn == nil {
		panic(errors.Errorf("nil handler for %s %s", method, pattern))
	}
	if err := r.tree.Handle(method, pattern, fn, mw...); err != nil {
		panic(err)
	}
}

// Get sets a GET route. HEAD requests are served by it too.
func (r *Router) Get(pattern string, fn HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodGet, pattern, fn, mw)
}

// Post sets a POST route
func (r *Router) Post(pattern string, fn HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodPost, pattern, fn, mw)
}

// Put sets a PUT route
func (r *Router) Put(pattern string, fn HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodPut, pattern, fn, mw)
}

// Patch sets a PATCH route
func (r *Router) Patch(pattern string, fn HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodPatch, pattern, fn, mw)
}

// Delete sets a DELETE route
func (r *Router) Delete(pattern string, fn HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodDelete, pattern, fn, mw)
}

// Options sets a OPTIONS route
func (r *Router) Options(pattern string, fn HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodOptions, pattern, fn, mw)
}

// Any sets a route for every method without a handler of its own
func (r *Router) Any(pattern string, fn HandlerFunc, mw ...Middleware) {
	r.handle("ANY", pattern, fn, mw)
}

// Routes lists every route in the tree, stats endpoint included once mounted
func (r *Router) Routes() []router.RouteInfo {
	return r.mux.Routes()
}

func (r *Router) PrintRoutes() string {
	return r.mux.PrintRoutes()
}

// Methods returns the methods served at the route path matches
func (r *Router) Methods(p string) []string {
	return r.mux.Methods(httprouter.CleanPath(p))
}

// Logger returns the logger set through Config().SetLogger
func (r *Router) Logger() *slog.Logger {
	return r.logger
}

// ServeHTTP matches the request, runs it through the route's middleware and
// writes the response.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mount.Do(r.mountStats)

	c := newContext(req)
	defer func() {
		if rec := recover(); rec != nil {
			r.finish(w, c, r.recovered(c, rec))
		}
	}()

	r.finish(w, c, r.serve(c))
}

func (r *Router) serve(c *Context) *Response {
	p := httprouter.CleanPath(c.Request.URL.Path)

	m, err := r.mux.Match(c.Request.Method, p)
	if err != nil {
		return r.unmatched(c, p, err)
	}

	c.Args = m.Args
	c.Pattern = m.Pattern
	if m.Pattern != r.statsPattern {
		r.rqc.Add(m.Pattern)
	}

	res, err := dispatch.New(m.Handler, m.Middleware...).Handle(c)
	if err != nil {
		return r.handleError(c, err)
	}
	if res == nil {
		return NoContent()
	}
	return res
}

func (r *Router) unmatched(c *Context, p string, err error) *Response {
	var (
		res  *Response
		herr error
	)

	allowed := errors.Is(err, router.ErrMethodNotAllowed)
	switch {
	case allowed && c.Request.Method == http.MethodOptions && r.globalOptions != nil:
		res, herr = r.globalOptions.Handle(c)
		if herr == nil && res != nil && res.Header.Get("Allow") == "" {
			res.SetHeader("Allow", allowHeader(append(r.mux.Methods(p), http.MethodOptions)))
		}
	case allowed:
		res, herr = r.methodNotAllowed(c)
		if herr == nil && res != nil {
			res.SetHeader("Allow", allowHeader(r.mux.Methods(p)))
		}
	default:
		res, herr = r.notFound(c)
	}

	if herr != nil {
		return r.handleError(c, herr)
	}
	if res == nil {
		return NoContent()
	}
	return res
}

func (r *Router) finish(w http.ResponseWriter, c *Context, res *Response) {
	if res == nil {
		res = NoContent()
	}
	if err := res.write(w, c.Request); err != nil {
		r.logger.Debug("write response", "path", c.Request.URL.Path, "error", err)
	}

	if r.cfg.Dev {
		r.logger.Info("request",
			"method", c.Request.Method,
			"url", c.Request.URL.String(),
			"pattern", c.Pattern,
			"status", res.Status,
			"took", c.Took(),
			"count", r.rqc.Get(c.Pattern),
			"total", r.rqc.Total())
	}
}

func allowHeader(methods []string) string {
	return strings.Join(AllowedMethods(methods), ", ")
}

// AllowedMethods turns registered method keys into the methods a client may
// use: ANY is dropped and GET implies HEAD.
func AllowedMethods(methods []string) []string {
	var (
		allow   []string
		hasGet  bool
		hasHead bool
	)
	for _, m := range methods {
		switch m {
		case "ANY":
			continue
		case http.MethodGet:
			hasGet = true
		case http.MethodHead:
			hasHead = true
		}
		allow = append(allow, m)
	}
	if hasGet && !hasHead {
		allow = append(allow, http.MethodHead)
	}
	return allow
}
