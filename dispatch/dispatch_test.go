package dispatch_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfi2k7/blueroute/dispatch"
)

type (
	handlerFunc    = dispatch.HandlerFunc[string, string]
	middlewareFunc = dispatch.MiddlewareFunc[string, string]
	handler        = dispatch.Handler[string, string]
	middleware     = dispatch.Middleware[string, string]
)

// recorder keeps the order in which chain members were called
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func terminal(rec *recorder, response string) handler {
	return handlerFunc(func(req string) (string, error) {
		rec.add("H(" + req + ")")
		return response, nil
	})
}

func TestHandleWithoutMiddleware(t *testing.T) {
	rec := &recorder{}
	d := dispatch.New[string, string](terminal(rec, "response"))

	res, err := d.Handle("request")
	require.NoError(t, err)
	assert.Equal(t, "response", res)
	assert.Equal(t, []string{"H(request)"}, rec.calls)
}

func TestConstructionInvokesNothing(t *testing.T) {
	rec := &recorder{}
	m := middlewareFunc(func(req string, next handler) (string, error) {
		rec.add("M")
		return next.Handle(req)
	})

	dispatch.New[string, string](terminal(rec, "x"), m, m)
	assert.Empty(t, rec.calls)
}

func TestImmediateMiddlewareInterception(t *testing.T) {
	rec := &recorder{}
	m1 := middlewareFunc(func(req string, next handler) (string, error) {
		rec.add("M1(" + req + ")")
		return "cached", nil
	})
	m2 := middlewareFunc(func(req string, next handler) (string, error) {
		rec.add("M2")
		return next.Handle(req)
	})

	res, err := dispatch.New[string, string](terminal(rec, "fresh"), m1, m2).Handle("requestA")
	require.NoError(t, err)
	assert.Equal(t, "cached", res)
	assert.Equal(t, []string{"M1(requestA)"}, rec.calls)
}

func TestMiddlewareInterception(t *testing.T) {
	rec := &recorder{}
	m1 := middlewareFunc(func(req string, next handler) (string, error) {
		rec.add("M1(" + req + ")")
		res, err := next.Handle("requestB")
		assert.Equal(t, "responseB", res)
		return "responseA", err
	})
	m2 := middlewareFunc(func(req string, next handler) (string, error) {
		rec.add("M2(" + req + ")")
		return "responseB", nil
	})

	res, err := dispatch.New[string, string](terminal(rec, "responseC"), m1, m2).Handle("requestA")
	require.NoError(t, err)
	assert.Equal(t, "responseA", res)
	assert.Equal(t, []string{"M1(requestA)", "M2(requestB)"}, rec.calls)
}

func TestMiddlewareHandling(t *testing.T) {
	rec := &recorder{}
	m1 := middlewareFunc(func(req string, next handler) (string, error) {
		rec.add("M1(" + req + ")")
		res, err := next.Handle("requestB")
		assert.Equal(t, "responseB", res)
		return "responseA", err
	})
	m2 := middlewareFunc(func(req string, next handler) (string, error) {
		rec.add("M2(" + req + ")")
		res, err := next.Handle("requestC")
		assert.Equal(t, "responseC", res)
		return "responseB", err
	})

	res, err := dispatch.New[string, string](terminal(rec, "responseC"), m1, m2).Handle("requestA")
	require.NoError(t, err)
	assert.Equal(t, "responseA", res)
	assert.Equal(t, []string{"M1(requestA)", "M2(requestB)", "H(requestC)"}, rec.calls)
}

func TestResponsePropagatesUnchanged(t *testing.T) {
	rec := &recorder{}
	forward := middlewareFunc(func(req string, next handler) (string, error) {
		return next.Handle(req)
	})

	res, err := dispatch.New[string, string](terminal(rec, "body"), forward, forward).Handle("req")
	require.NoError(t, err)
	assert.Equal(t, "body", res)
	assert.Equal(t, []string{"H(req)"}, rec.calls)
}

func TestOnionOrder(t *testing.T) {
	var trace []string
	layer := func(name string) middleware {
		return middlewareFunc(func(req string, next handler) (string, error) {
			trace = append(trace, "before "+name)
			res, err := next.Handle(req + "|" + name)
			trace = append(trace, "after "+name)
			return res + "|" + name, err
		})
	}
	h := handlerFunc(func(req string) (string, error) {
		trace = append(trace, "handler "+req)
		return "res", nil
	})

	res, err := dispatch.New[string, string](h, layer("outer"), layer("inner")).Handle("req")
	require.NoError(t, err)
	assert.Equal(t, "res|inner|outer", res)
	assert.Equal(t, []string{
		"before outer",
		"before inner",
		"handler req|outer|inner",
		"after inner",
		"after outer",
	}, trace)
}

func TestRetryCallsNextTwice(t *testing.T) {
	attempts := 0
	h := handlerFunc(func(req string) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("temporary")
		}
		return "ok", nil
	})
	retry := middlewareFunc(func(req string, next handler) (string, error) {
		res, err := next.Handle(req)
		if err != nil {
			return next.Handle(req)
		}
		return res, nil
	})

	res, err := dispatch.New[string, string](h, retry).Handle("req")
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 2, attempts)
}

func TestErrorsPropagateUnmodified(t *testing.T) {
	boom := errors.New("boom")
	h := handlerFunc(func(req string) (string, error) {
		return "", boom
	})
	forward := middlewareFunc(func(req string, next handler) (string, error) {
		return next.Handle(req)
	})

	_, err := dispatch.New[string, string](h, forward, forward).Handle("req")
	assert.Same(t, boom, err)
}

func TestDispatcherIsReusable(t *testing.T) {
	h := handlerFunc(func(req string) (string, error) {
		return strings.ToUpper(req), nil
	})
	prefix := middlewareFunc(func(req string, next handler) (string, error) {
		return next.Handle("x-" + req)
	})
	d := dispatch.New[string, string](h, prefix)

	first, err := d.Handle("one")
	require.NoError(t, err)
	second, err := d.Handle("two")
	require.NoError(t, err)

	assert.Equal(t, "X-ONE", first)
	assert.Equal(t, "X-TWO", second)
}

func TestConcurrentHandle(t *testing.T) {
	h := handlerFunc(func(req string) (string, error) {
		return req + "!", nil
	})
	d := dispatch.New[string, string](h, middlewareFunc(func(req string, next handler) (string, error) {
		return next.Handle(req)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := strings.Repeat("a", i)
			res, err := d.Handle(req)
			assert.NoError(t, err)
			assert.Equal(t, req+"!", res)
		}(i)
	}
	wg.Wait()
}

func TestDispatcherNests(t *testing.T) {
	rec := &recorder{}
	inner := dispatch.New[string, string](terminal(rec, "inner"))
	outer := dispatch.New[string, string](inner, middlewareFunc(func(req string, next handler) (string, error) {
		rec.add("M")
		return next.Handle(req)
	}))

	res, err := outer.Handle("req")
	require.NoError(t, err)
	assert.Equal(t, "inner", res)
	assert.Equal(t, []string{"M", "H(req)"}, rec.calls)
}

func TestChain(t *testing.T) {
	var trace []string
	tag := func(name string) middleware {
		return middlewareFunc(func(req string, next handler) (string, error) {
			trace = append(trace, name)
			return next.Handle(req)
		})
	}
	h := handlerFunc(func(req string) (string, error) {
		trace = append(trace, "H")
		return "ok", nil
	})

	d := dispatch.New[string, string](h, tag("a"), dispatch.Chain(tag("b"), tag("c")), tag("d"))
	_, err := d.Handle("req")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "H"}, trace)
}

func TestNilMembersPanic(t *testing.T) {
	assert.Panics(t, func() { dispatch.New[string, string](nil) })
	assert.Panics(t, func() {
		dispatch.New[string, string](terminal(&recorder{}, "x"), nil)
	})
	assert.Panics(t, func() { dispatch.Chain[string, string](nil) })
}
