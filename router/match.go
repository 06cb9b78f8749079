package router

import (
	"net/http"
	"strings"
)

// Match is the result of a successful lookup
type Match[H, M any] struct {
	Handler H
	Args    Args

	// Middleware holds group middleware, outer group first, followed by the
	// middleware registered with the resolved method.
	Middleware []M

	// Pattern is the registered pattern of the matched node
	Pattern string

	// Method is the key the handler was resolved under, which is GET for a
	// HEAD request served by a GET handler and ANY for a fallback.
	Method string
}

// Match resolves method and path to a handler, its arguments and its
// middleware. It fails with a *MatchError wrapping ErrRouteNotFound when no
// pattern matches the path, or ErrMethodNotAllowed when one does but serves
// neither the method nor a fallback for it.
func (r *Router[H, M]) Match(method, path string) (*Match[H, M], error) {
	method = strings.ToUpper(method)

	var (
		args   Args
		groups [][]M
	)
	n := r.root.matchPath(splitPath(path), &args, &groups)
	if n == nil {
		return nil, &MatchError{Method: method, Path: path, Err: ErrRouteNotFound}
	}

	key, ok := n.resolve(method)
	if !ok {
		return nil, &MatchError{Method: method, Path: path, Err: ErrMethodNotAllowed}
	}

	// groups were collected innermost first on the way back up
	size := len(n.middleware[key])
	for _, g := range groups {
		size += len(g)
	}
	middleware := make([]M, 0, size)
	for i := len(groups) - 1; i >= 0; i-- {
		middleware = append(middleware, groups[i]...)
	}
	middleware = append(middleware, n.middleware[key]...)

	return &Match[H, M]{
		Handler:    n.handlers[key],
		Args:       args,
		Middleware: middleware,
		Pattern:    n.displayPattern(),
		Method:     key,
	}, nil
}

// Methods returns the method keys registered on the node path resolves to,
// or nil when no route matches the path.
func (r *Router[H, M]) Methods(path string) []string {
	var (
		args   Args
		groups [][]M
	)
	n := r.root.matchPath(splitPath(path), &args, &groups)
	if n == nil {
		return nil
	}
	return sortedKeys(n.handlers)
}

// matchPath descends the tree and returns the terminal node. Arguments and
// group middleware are only recorded once the subtree has matched, so a
// branch that backtracks leaves nothing behind.
func (n *node[H, M]) matchPath(segments []string, args *Args, groups *[][]M) *node[H, M] {
	match := n.descend(segments, args, groups)
	if match != nil && len(n.group) > 0 {
		*groups = append(*groups, n.group)
	}
	return match
}

func (n *node[H, M]) descend(segments []string, args *Args, groups *[][]M) *node[H, M] {
	if len(segments) == 0 {
		if n.hasHandlers() {
			return n
		}
		return nil
	}

	token, rest := segments[0], segments[1:]

	if child := n.literals[token]; child != nil {
		if match := child.matchPath(rest, args, groups); match != nil {
			return match
		}
	}

	for _, child := range n.variables {
		if !child.accepts(token) {
			continue
		}
		if match := child.matchPath(rest, args, groups); match != nil {
			args.setVar(child.name, token)
			return match
		}
	}

	// trailing captures take the current token and everything after it
	if child := n.variadic; child != nil && child.hasHandlers() {
		args.setVariadic(child.name, append([]string(nil), segments...))
		return child.terminal(groups)
	}

	if child := n.wildcard; child != nil && child.hasHandlers() {
		args.Wildcard = append([]string(nil), segments...)
		return child.terminal(groups)
	}

	return nil
}

func (n *node[H, M]) terminal(groups *[][]M) *node[H, M] {
	if len(n.group) > 0 {
		*groups = append(*groups, n.group)
	}
	return n
}

// resolve picks the method key serving method: exact, GET for HEAD, then ANY
func (n *node[H, M]) resolve(method string) (string, bool) {
	if _, ok := n.handlers[method]; ok {
		return method, true
	}
	if method == http.MethodHead {
		if _, ok := n.handlers[http.MethodGet]; ok {
			return http.MethodGet, true
		}
	}
	if _, ok := n.handlers[methodAny]; ok {
		return methodAny, true
	}
	return "", false
}
