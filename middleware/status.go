package middleware

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/sfi2k7/blueroute"
)

// statusOf reports the status the router will answer with for what next
// returned.
func statusOf(res *blueroute.Response, err error) int {
	if err != nil {
		var herr *blueroute.HTTPError
		if errors.As(err, &herr) {
			return herr.Code
		}
		return http.StatusInternalServerError
	}
	if res == nil {
		return http.StatusNoContent
	}
	if res.Status == 0 {
		return http.StatusOK
	}
	return res.Status
}

// route is the matched pattern, or the raw path before matching
func route(c *blueroute.Context) string {
	if c.Pattern != "" {
		return c.Pattern
	}
	return c.Path()
}
