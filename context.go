package blueroute

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sfi2k7/blueroute/router"
)

// Context is the request value that travels through middleware to the
// handler. Middleware that wants to change the request hands a copy made with
// WithRequest to next; copies share the value store.
type Context struct {
	Request *http.Request

	// Args holds the path captures of the matched route
	Args router.Args

	// Pattern is the registered pattern that matched, "" before matching
	Pattern string

	store *store
	start time.Time
}

func newContext(req *http.Request) *Context {
	return &Context{Request: req, store: newStore(), start: time.Now()}
}

// NewContext wraps req for calling a Handler directly, outside ServeHTTP
func NewContext(req *http.Request, args router.Args) *Context {
	c := newContext(req)
	c.Args = args
	return c
}

// WithRequest returns a copy of c carrying req
func (c *Context) WithRequest(req *http.Request) *Context {
	cc := *c
	cc.Request = req
	return &cc
}

// WithContext returns a copy of c whose request carries ctx
func (c *Context) WithContext(ctx context.Context) *Context {
	return c.WithRequest(c.Request.WithContext(ctx))
}

func (c *Context) Context() context.Context {
	return c.Request.Context()
}

// Param returns a variable capture, or "" when the route has none by that name
func (c *Context) Param(name string) string {
	return c.Args.Get(name)
}

// List returns the segments captured by a variadic segment
func (c *Context) List(name string) []string {
	return c.Args.List(name)
}

// Wildcard returns the segments captured by a trailing *
func (c *Context) Wildcard() []string {
	return c.Args.Wildcard
}

func (c *Context) Set(k string, v interface{}) {
	c.store.Set(k, v)
}

func (c *Context) Get(k string) interface{} {
	v, _ := c.store.Get(k)
	return v
}

func (c *Context) Lookup(k string) (interface{}, bool) {
	return c.store.Get(k)
}

func (c *Context) Del(k string) {
	c.store.Del(k)
}

// Keys lists the stored keys in sorted order
func (c *Context) Keys() []string {
	return c.store.Keys()
}

// Took is the time since the router received the request
func (c *Context) Took() time.Duration {
	return time.Since(c.start)
}

// UniqueId identifies the client by user agent and remote address
func (c *Context) UniqueId() string {
	hasher := sha1.New()
	hasher.Write([]byte(c.Request.UserAgent()))
	hasher.Write([]byte(c.Request.RemoteAddr))
	return hex.EncodeToString(hasher.Sum(nil))
}

func (c *Context) Method() string {
	return c.Request.Method
}

func (c *Context) Path() string {
	return c.Request.URL.Path
}

func (c *Context) Header(key string) string {
	return c.Request.Header.Get(key)
}

func (c *Context) RemoteIP() string {
	return c.Request.RemoteAddr
}

func (c *Context) Query(key string) string {
	return c.Request.URL.Query().Get(key)
}

func (c *Context) QueryCaseIn(key string) string {
	for k, v := range c.Request.URL.Query() {
		if strings.EqualFold(k, key) {
			if len(v) > 0 {
				return v[0]
			}
			return ""
		}
	}
	return ""
}

func (c *Context) QueryInt(key string) (int, error) {
	v := c.Query(key)
	if len(v) == 0 {
		return 0, errors.Errorf("query key %q not found", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "query key %q", key)
	}
	return i, nil
}

func (c *Context) Body() ([]byte, error) {
	return io.ReadAll(c.Request.Body)
}

// ParseBody decodes a JSON request body into target
func (c *Context) ParseBody(target interface{}) error {
	bts, err := c.Body()
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if err := json.Unmarshal(bts, target); err != nil {
		return &HTTPError{Code: http.StatusBadRequest, Message: "malformed JSON body", Err: err}
	}
	return nil
}

func (c *Context) Cookie(name string) string {
	cookie, err := c.Request.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
