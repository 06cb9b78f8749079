// Package dispatch composes middleware around a terminal handler.
//
// The request and response types are chosen by the caller; the dispatcher
// passes them through without looking at them.
package dispatch

type (
	// Handler turns a request into a response
	Handler[Req, Res any] interface {
		Handle(req Req) (Res, error)
	}

	// Middleware intercepts a request on its way to next. It may change the
	// request, answer without calling next, call next more than once, or
	// change the response next returned.
	Middleware[Req, Res any] interface {
		Process(req Req, next Handler[Req, Res]) (Res, error)
	}

	// HandlerFunc adapts a function to the Handler interface
	HandlerFunc[Req, Res any] func(req Req) (Res, error)

	// MiddlewareFunc adapts a function to the Middleware interface
	MiddlewareFunc[Req, Res any] func(req Req, next Handler[Req, Res]) (Res, error)
)

// Handle calls f(req)
func (f HandlerFunc[Req, Res]) Handle(req Req) (Res, error) {
	return f(req)
}

// Process calls f(req, next)
func (f MiddlewareFunc[Req, Res]) Process(req Req, next Handler[Req, Res]) (Res, error) {
	return f(req, next)
}

// link is one layer of the onion: its middleware wrapped around the rest
type link[Req, Res any] struct {
	middleware Middleware[Req, Res]
	next       Handler[Req, Res]
}

func (l *link[Req, Res]) Handle(req Req) (Res, error) {
	return l.middleware.Process(req, l.next)
}

// Dispatcher runs a request through an ordered middleware sequence and a
// terminal handler. It holds no per-request state and can be shared between
// goroutines when its handler and middleware can.
type Dispatcher[Req, Res any] struct {
	head Handler[Req, Res]
}

// New builds the chain for handler and middleware. The first middleware is
// the outermost layer: it sees the request first and the response last.
// Nothing is invoked while building.
func New[Req, Res any](handler Handler[Req, Res], middleware ...Middleware[Req, Res]) *Dispatcher[Req, Res] {
	return &Dispatcher[Req, Res]{head: build(handler, middleware)}
}

func build[Req, Res any](handler Handler[Req, Res], middleware []Middleware[Req, Res]) Handler[Req, Res] {
	if handler == nil {
		panic("dispatch: nil handler")
	}
	head := handler
	for i := len(middleware) - 1; i >= 0; i-- {
		if middleware[i] == nil {
			panic("dispatch: nil middleware")
		}
		head = &link[Req, Res]{middleware: middleware[i], next: head}
	}
	return head
}

// Handle runs req through the chain and returns the outermost response.
// Errors from middleware or the handler are returned as they are.
func (d *Dispatcher[Req, Res]) Handle(req Req) (Res, error) {
	return d.head.Handle(req)
}

// Chain combines several middleware into one that runs them in order
func Chain[Req, Res any](middleware ...Middleware[Req, Res]) Middleware[Req, Res] {
	for _, m := range middleware {
		if m == nil {
			panic("dispatch: nil middleware")
		}
	}
	mw := append([]Middleware[Req, Res](nil), middleware...)
	return MiddlewareFunc[Req, Res](func(req Req, next Handler[Req, Res]) (Res, error) {
		return build(next, mw).Handle(req)
	})
}
