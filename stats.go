package blueroute

import (
	"net/http"
	"path"
)

// mountStats registers the stats endpoint on the root tree
func (r *Router) mountStats() {
	if r.cfg.StatsEndpoint == "" {
		return
	}

	r.statsPattern = path.Join(r.cfg.StatsEndpoint, "$token")
	r.mux.Get(r.statsPattern, HandlerFunc(r.stats))
}

func (r *Router) stats(c *Context) (*Response, error) {
	if len(r.cfg.StatsToken) > 0 && c.Param("token") != r.cfg.StatsToken {
		return nil, NewHTTPError(http.StatusForbidden, "")
	}

	return JSON(http.StatusOK, O{
		"Total Requests":        r.rqc.Total(),
		"RequestCountByPattern": r.rqc.Snapshot(),
		"Routes":                len(r.mux.Routes()),
	})
}
