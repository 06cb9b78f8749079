package router

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Pattern syntax:
// users          - literal, exact match
// $id            - variable, any single segment
// $id:\d+        - variable restricted by an anchored regular expression
// *              - wildcard, one or more trailing segments, positional
// ...$rest       - variadic, trailing segments captured under a name

// segment is a classified pattern token
type segment struct {
	token      string
	kind       segmentKind
	name       string
	constraint *regexp.Regexp
}

// splitPath splits a path on slashes and drops empty tokens, so leading,
// trailing and repeated slashes are all equivalent.
func splitPath(path string) []string {
	if path == "" || path == "/" {
		return nil
	}
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// parseSegment classifies a single registered token
func parseSegment(token string) (segment, error) {
	seg := segment{token: token, kind: literalSegment}

	switch {
	case token == "*":
		seg.kind = wildcardSegment

	case strings.HasPrefix(token, "...$"):
		seg.kind = variadicSegment
		seg.name = token[len("...$"):]
		if seg.name == "" {
			return seg, invalidPattern(token, "variadic segment needs a name")
		}

	case token[0] == '$':
		seg.kind = variableSegment
		name, expr, constrained := strings.Cut(token[1:], ":")
		if name == "" {
			return seg, invalidPattern(token, "variable segment needs a name")
		}
		seg.name = name
		if constrained {
			re, err := regexp.Compile("^(?:" + expr + ")$")
			if err != nil {
				return seg, errors.Wrapf(ErrInvalidPattern, "segment %q: %v", token, err)
			}
			seg.constraint = re
		}
	}

	return seg, nil
}

// parsePattern splits and classifies a registered pattern
func parsePattern(pattern string) ([]segment, error) {
	tokens := splitPath(pattern)
	segments := make([]segment, 0, len(tokens))
	for i, token := range tokens {
		seg, err := parseSegment(token)
		if err != nil {
			return nil, errors.WithMessagef(err, "pattern %q", pattern)
		}
		if (seg.kind == wildcardSegment || seg.kind == variadicSegment) && i != len(tokens)-1 {
			return nil, errors.WithMessagef(
				invalidPattern(token, "%s segment must be the last segment", seg.kind),
				"pattern %q", pattern)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// accepts reports whether a variable node accepts the path token
func (n *node[H, M]) accepts(token string) bool {
	return n.constraint == nil || n.constraint.MatchString(token)
}
