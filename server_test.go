package blueroute

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func text(body string) HandlerFunc {
	return func(c *Context) (*Response, error) {
		return Text(http.StatusOK, body), nil
	}
}

// tag appends name to the X-Trace header of the request on the way in and of
// the response on the way out.
func tag(name string) Middleware {
	return MiddlewareFunc(func(c *Context, next Handler) (*Response, error) {
		req := c.Request.Clone(c.Context())
		req.Header.Add("X-Trace", name)
		res, err := next.Handle(c.WithRequest(req))
		if res != nil {
			res.Header.Add("X-Trace", name)
		}
		return res, err
	})
}

func TestServeCaptures(t *testing.T) {
	r := NewRouter()
	r.Get("/users/$id:\\d+", func(c *Context) (*Response, error) {
		return Text(http.StatusOK, "user "+c.Param("id")), nil
	})
	r.Get("/files/...$path", func(c *Context) (*Response, error) {
		return Text(http.StatusOK, strings.Join(c.List("path"), ",")), nil
	})
	r.Get("/static/*", func(c *Context) (*Response, error) {
		return Text(http.StatusOK, strings.Join(c.Wildcard(), "/")), nil
	})

	w := do(t, r, http.MethodGet, "/users/42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user 42", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))

	w = do(t, r, http.MethodGet, "/files/a/b/c.txt")
	assert.Equal(t, "a,b,c.txt", w.Body.String())

	w = do(t, r, http.MethodGet, "/static/css/site.css")
	assert.Equal(t, "css/site.css", w.Body.String())

	w = do(t, r, http.MethodGet, "/users/abc")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeCleansPath(t *testing.T) {
	r := NewRouter()
	r.Get("/users/$id", func(c *Context) (*Response, error) {
		return Text(http.StatusOK, c.Param("id")), nil
	})

	w := do(t, r, http.MethodGet, "/users//7/../42/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())
}

func TestNotFound(t *testing.T) {
	r := NewRouter()
	r.Get("/", text("home"))

	w := do(t, r, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found", w.Body.String())

	r.SetNotFoundHandler(func(c *Context) (*Response, error) {
		return Text(http.StatusNotFound, "no route for "+c.Path()), nil
	})
	w = do(t, r, http.MethodGet, "/missing")
	assert.Equal(t, "no route for /missing", w.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	r := NewRouter()
	r.Get("/items", text("list"))
	r.Post("/items", text("create"))

	w := do(t, r, http.MethodDelete, "/items")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, POST, HEAD", w.Header().Get("Allow"))
	assert.Equal(t, []string{"GET", "POST"}, r.Methods("/items"))
}

func TestHeadUsesGet(t *testing.T) {
	r := NewRouter()
	r.Get("/page", text("body"))

	w := do(t, r, http.MethodHead, "/page")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestAnyFallback(t *testing.T) {
	r := NewRouter()
	r.Get("/thing", text("get"))
	r.Any("/thing", func(c *Context) (*Response, error) {
		return Text(http.StatusOK, "any "+c.Method()), nil
	})

	assert.Equal(t, "get", do(t, r, http.MethodGet, "/thing").Body.String())
	assert.Equal(t, "any PUT", do(t, r, http.MethodPut, "/thing").Body.String())
}

func TestGroupMiddlewareOrder(t *testing.T) {
	r := NewRouter()
	r.Use(tag("root"))
	api := r.Group("/api", tag("api"))
	v1 := api.Group("/v1")
	v1.Use(tag("v1"))
	v1.Get("/ping", func(c *Context) (*Response, error) {
		res := Text(http.StatusOK, strings.Join(c.Request.Header.Values("X-Trace"), ">"))
		return res, nil
	}, tag("route"))

	w := do(t, r, http.MethodGet, "/api/v1/ping")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "root>api>v1>route", w.Body.String())
	assert.Equal(t, []string{"route", "v1", "api", "root"}, w.Header().Values("X-Trace"))
	assert.Equal(t, "/api/v1", v1.Prefix())
}

func TestMiddlewareShortCircuit(t *testing.T) {
	r := NewRouter()
	called := false
	auth := MiddlewareFunc(func(c *Context, next Handler) (*Response, error) {
		if c.Header("Authorization") == "" {
			return nil, NewHTTPError(http.StatusUnauthorized, "Please login")
		}
		return next.Handle(c)
	})
	r.Group("/admin", auth).Get("/", func(c *Context) (*Response, error) {
		called = true
		return Text(http.StatusOK, "admin"), nil
	})

	w := do(t, r, http.MethodGet, "/admin")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Please login", w.Body.String())
	assert.False(t, called)
}

func TestErrorHandling(t *testing.T) {
	r := NewRouter()
	r.Get("/plain", func(c *Context) (*Response, error) {
		return nil, errors.New("database down")
	})
	r.Get("/bad", func(c *Context) (*Response, error) {
		return nil, errors.Wrap(&HTTPError{Code: http.StatusBadRequest, Message: "Invalid parameters"}, "validate")
	})
	r.Get("/teapot", func(c *Context) (*Response, error) {
		return nil, NewHTTPError(http.StatusTeapot, "")
	})

	w := do(t, r, http.MethodGet, "/plain")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", w.Body.String())

	w = do(t, r, http.MethodGet, "/bad")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid parameters", w.Body.String())

	r.OnError(http.StatusTeapot, func(c *Context, err *HTTPError) *Response {
		return Text(err.Code, "short and stout")
	})
	w = do(t, r, http.MethodGet, "/teapot")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestJSONErrorFormat(t *testing.T) {
	r := NewRouter()
	r.Config().SetErrorFormat("json")
	r.Get("/bad", func(c *Context) (*Response, error) {
		return nil, &HTTPError{Code: http.StatusBadRequest, Message: "Validation failed", Err: errors.New("name is required")}
	})

	w := do(t, r, http.MethodGet, "/bad")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Equal(t, "name is required", body.Details)
}

func TestPanicRecovered(t *testing.T) {
	var buf bytes.Buffer
	r := NewRouter()
	r.Config().SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	r.Get("/panic", func(c *Context) (*Response, error) {
		panic("Something went wrong!")
	})

	w := do(t, r, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "Something went wrong!")
}

func TestNilResponseIsNoContent(t *testing.T) {
	r := NewRouter()
	r.Delete("/items/$id", func(c *Context) (*Response, error) {
		return nil, nil
	})

	w := do(t, r, http.MethodDelete, "/items/1")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestContextStoreSharedWithCopies(t *testing.T) {
	r := NewRouter()
	r.Use(MiddlewareFunc(func(c *Context, next Handler) (*Response, error) {
		c.Set("user", "ada")
		res, err := next.Handle(c.WithRequest(c.Request.Clone(c.Context())))
		if err == nil {
			res.SetHeader("X-Seen", c.Get("seen").(string))
		}
		return res, err
	}))
	r.Get("/me", func(c *Context) (*Response, error) {
		c.Set("seen", "yes")
		return Text(http.StatusOK, c.Get("user").(string)), nil
	})

	w := do(t, r, http.MethodGet, "/me")
	assert.Equal(t, "ada", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-Seen"))
}

func TestRedirect(t *testing.T) {
	r := NewRouter()
	r.Get("/old", func(c *Context) (*Response, error) {
		return Redirect(http.StatusMovedPermanently, "/new"), nil
	})

	w := do(t, r, http.MethodGet, "/old")
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/new", w.Header().Get("Location"))
}

func TestStatsEndpoint(t *testing.T) {
	r := NewRouter()
	r.Config().SetStatsToken("secret")
	r.Get("/users/$id", text("user"))

	do(t, r, http.MethodGet, "/users/1")
	do(t, r, http.MethodGet, "/users/2")

	w := do(t, r, http.MethodGet, "/__internal__/stats/wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodGet, "/__internal__/stats/secret")
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Total     uint64            `json:"Total Requests"`
		ByPattern map[string]uint64 `json:"RequestCountByPattern"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, uint64(2), stats.Total)
	assert.Equal(t, map[string]uint64{"/users/$id": 2}, stats.ByPattern)
}

func TestStatsDisabled(t *testing.T) {
	r := NewRouter()
	r.Config().DisableStats()

	w := do(t, r, http.MethodGet, "/__internal__/stats/blueroute")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, r.Routes())
}

func TestDevLogging(t *testing.T) {
	var buf bytes.Buffer
	r := NewRouter()
	r.Config().SetDev(true).SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	r.Get("/hello", text("hi"))

	do(t, r, http.MethodGet, "/hello")
	assert.Contains(t, buf.String(), "msg=request")
	assert.Contains(t, buf.String(), "pattern=/hello")
	assert.Contains(t, buf.String(), "status=200")
}

func TestRoutesListing(t *testing.T) {
	r := NewRouter()
	r.Config().DisableStats()
	r.Get("/b", text("b"))
	g := r.Group("/a")
	g.Post("/$id", text("a"))

	routes := r.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "/a/$id", routes[0].Pattern)
	assert.Equal(t, "POST", routes[0].Method)
	assert.Equal(t, "/b", routes[1].Pattern)
	assert.Contains(t, r.PrintRoutes(), "$id [POST]")
}

func TestRegistrationPanics(t *testing.T) {
	r := NewRouter()
	assert.Panics(t, func() { r.Get("/bad/$id:[", text("x")) })
	assert.Panics(t, func() { r.Get("/nil", nil) })
	assert.Error(t, r.Handle("", "/x", text("x")))
	assert.Panics(t, func() { r.Group("/g").Config() })
}

func TestMetricsPathMounted(t *testing.T) {
	r := NewRouter()
	r.Config().SetMetricsPath("/metrics")
	r.Get("/", text("home"))

	h := r.Handler()
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/metrics").Code)
	assert.Equal(t, "home", do(t, h, http.MethodGet, "/").Body.String())
}

func TestStartStopServer(t *testing.T) {
	r := NewRouter()
	r.Config().SetPort(0).SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	done := make(chan error, 1)
	go func() { done <- r.StartServer() }()

	require.Eventually(t, r.serving, time.Second, 5*time.Millisecond)
	require.NoError(t, r.StopServer())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartServerAfterListenError(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := busy.Addr().(*net.TCPAddr).Port

	r := NewRouter()
	r.Config().SetPort(port).SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	err = r.StartServer()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "already started")
	assert.False(t, r.serving())
	require.NoError(t, r.StopServer())

	require.NoError(t, busy.Close())

	done := make(chan error, 1)
	go func() { done <- r.StartServer() }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, r.StopServer())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestGlobalOPTIONS(t *testing.T) {
	r := NewRouter()
	r.Get("/items", text("list"))
	r.Post("/items", text("create"))

	w := do(t, r, http.MethodOptions, "/items")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	r.Config().HandleOPTIONS()
	w = do(t, r, http.MethodOptions, "/items")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, POST, OPTIONS, HEAD", w.Header().Get("Allow"))

	w = do(t, r, http.MethodOptions, "/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
