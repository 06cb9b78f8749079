package router

import (
	"regexp"
)

// Segment kinds
const (
	literalSegment segmentKind = iota
	variableSegment
	wildcardSegment
	variadicSegment
)

// methodAny is the method key used by Any registrations.
const methodAny = "ANY"

type (
	segmentKind int

	// node is one path segment pattern in the routing tree
	node[H, M any] struct {
		segment    string         // Registered token for this node
		pattern    string         // Full pattern from the root
		kind       segmentKind    // Fixed at creation
		name       string         // Capture name for variable and variadic nodes
		constraint *regexp.Regexp // Anchored constraint of a variable node

		literals  map[string]*node[H, M]
		variables []*node[H, M] // Registration order, first satisfying match wins
		variadic  *node[H, M]
		wildcard  *node[H, M]

		handlers   map[string]H   // Method -> handler
		middleware map[string][]M // Method -> method specific middleware
		group      []M            // Inherited by every descendant
	}
)

func (k segmentKind) String() string {
	switch k {
	case variableSegment:
		return "variable"
	case wildcardSegment:
		return "wildcard"
	case variadicSegment:
		return "variadic"
	}
	return "literal"
}

// newNode creates a node for an already classified segment
func newNode[H, M any](parent *node[H, M], seg segment) *node[H, M] {
	n := &node[H, M]{
		segment:    seg.token,
		kind:       seg.kind,
		name:       seg.name,
		constraint: seg.constraint,
	}
	if parent != nil {
		n.pattern = parent.pattern + "/" + seg.token
	}
	return n
}

// child returns the existing child registered for seg, or nil
func (n *node[H, M]) child(seg segment) *node[H, M] {
	switch seg.kind {
	case literalSegment:
		return n.literals[seg.token]
	case variableSegment:
		for _, v := range n.variables {
			if v.segment == seg.token {
				return v
			}
		}
	case variadicSegment:
		return n.variadic
	case wildcardSegment:
		return n.wildcard
	}
	return nil
}

// addChild finds or creates the child for seg
func (n *node[H, M]) addChild(seg segment) (*node[H, M], error) {
	if c := n.child(seg); c != nil {
		if c.kind == variadicSegment && c.name != seg.name {
			return nil, invalidPattern(seg.token, "node already has variadic segment %q", c.segment)
		}
		return c, nil
	}

	c := newNode(n, seg)
	switch seg.kind {
	case literalSegment:
		if n.literals == nil {
			n.literals = make(map[string]*node[H, M])
		}
		n.literals[seg.token] = c
	case variableSegment:
		n.variables = append(n.variables, c)
	case variadicSegment:
		n.variadic = c
	case wildcardSegment:
		n.wildcard = c
	}
	return c, nil
}

// setMethod stores the handler and method middleware under method
func (n *node[H, M]) setMethod(method string, handler H, middleware []M) {
	if n.handlers == nil {
		n.handlers = make(map[string]H)
		n.middleware = make(map[string][]M)
	}
	n.handlers[method] = handler
	n.middleware[method] = append([]M(nil), middleware...)
}

func (n *node[H, M]) hasHandlers() bool {
	return len(n.handlers) > 0
}

// children returns the children in matching precedence order
func (n *node[H, M]) children() []*node[H, M] {
	out := make([]*node[H, M], 0, len(n.literals)+len(n.variables)+2)
	for _, token := range sortedKeys(n.literals) {
		out = append(out, n.literals[token])
	}
	out = append(out, n.variables...)
	if n.variadic != nil {
		out = append(out, n.variadic)
	}
	if n.wildcard != nil {
		out = append(out, n.wildcard)
	}
	return out
}
