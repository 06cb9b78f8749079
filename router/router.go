package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Router is a tree of path segment patterns. H and M are the handler and
// middleware references stored by the router; it never looks inside them.
//
// Registration must complete before the first call to Match. After that the
// tree is only read, so Match is safe for concurrent use.
type Router[H, M any] struct {
	root *node[H, M]
}

// RouteInfo describes one registered method on one pattern
type RouteInfo struct {
	Method  string
	Pattern string
}

// New creates a new router with an empty root
func New[H, M any]() *Router[H, M] {
	return &Router[H, M]{root: &node[H, M]{}}
}

// Get registers a GET route
func (r *Router[H, M]) Get(path string, handler H, middleware ...M) {
	r.must(r.Handle(http.MethodGet, path, handler, middleware...))
}

// Post registers a POST route
func (r *Router[H, M]) Post(path string, handler H, middleware ...M) {
	r.must(r.Handle(http.MethodPost, path, handler, middleware...))
}

// Put registers a PUT route
func (r *Router[H, M]) Put(path string, handler H, middleware ...M) {
	r.must(r.Handle(http.MethodPut, path, handler, middleware...))
}

// Patch registers a PATCH route
func (r *Router[H, M]) Patch(path string, handler H, middleware ...M) {
	r.must(r.Handle(http.MethodPatch, path, handler, middleware...))
}

// Delete registers a DELETE route
func (r *Router[H, M]) Delete(path string, handler H, middleware ...M) {
	r.must(r.Handle(http.MethodDelete, path, handler, middleware...))
}

// Any registers a route that serves every method without a handler of its own
func (r *Router[H, M]) Any(path string, handler H, middleware ...M) {
	r.must(r.Handle(methodAny, path, handler, middleware...))
}

// Handle registers handler and method middleware for method on path.
// Registering the same method twice on a pattern replaces the earlier handler.
func (r *Router[H, M]) Handle(method, path string, handler H, middleware ...M) error {
	if method == "" {
		return errors.Wrapf(ErrInvalidPattern, "empty method for pattern %q", path)
	}
	n, err := r.walk(path)
	if err != nil {
		return err
	}
	n.setMethod(strings.ToUpper(method), handler, middleware)
	return nil
}

// Group returns a sub-router rooted at path. The middleware is attached to
// the group node and inherited by every route registered at or below it,
// ahead of any method middleware. Nested groups run outer before inner.
func (r *Router[H, M]) Group(path string, middleware ...M) *Router[H, M] {
	n, err := r.walk(path)
	r.must(err)
	n.group = append(n.group, middleware...)
	return &Router[H, M]{root: n}
}

// Use attaches group middleware to the router's own node
func (r *Router[H, M]) Use(middleware ...M) {
	r.root.group = append(r.root.group, middleware...)
}

// walk finds or creates the node chain for path
func (r *Router[H, M]) walk(path string) (*node[H, M], error) {
	segments, err := parsePattern(path)
	if err != nil {
		return nil, err
	}

	current := r.root
	for _, seg := range segments {
		if current, err = current.addChild(seg); err != nil {
			return nil, errors.WithMessagef(err, "pattern %q", path)
		}
	}
	return current, nil
}

func (r *Router[H, M]) must(err error) {
	if err != nil {
		panic(err)
	}
}

// Routes lists every registered method and pattern, sorted by pattern
func (r *Router[H, M]) Routes() []RouteInfo {
	var routes []RouteInfo
	r.root.collect(&routes)
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

func (n *node[H, M]) collect(routes *[]RouteInfo) {
	for _, method := range sortedKeys(n.handlers) {
		*routes = append(*routes, RouteInfo{Method: method, Pattern: n.displayPattern()})
	}
	for _, child := range n.children() {
		child.collect(routes)
	}
}

func (n *node[H, M]) displayPattern() string {
	if n.pattern == "" {
		return "/"
	}
	return n.pattern
}

// PrintRoutes renders the tree, one node per line, with the methods served
// at each node.
func (r *Router[H, M]) PrintRoutes() string {
	var sb strings.Builder
	r.printNode(&sb, r.root, 0)
	return sb.String()
}

func (r *Router[H, M]) printNode(sb *strings.Builder, n *node[H, M], level int) {
	indent := strings.Repeat("  ", level)
	label := n.segment
	if label == "" {
		label = "/"
	}
	if len(n.handlers) > 0 {
		fmt.Fprintf(sb, "%s%s %v\n", indent, label, sortedKeys(n.handlers))
	} else {
		fmt.Fprintf(sb, "%s%s\n", indent, label)
	}
	for _, child := range n.children() {
		r.printNode(sb, child, level+1)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
