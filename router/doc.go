// Package router matches request paths against a tree of segment patterns.
//
// A pattern is split on "/" with empty tokens dropped. Each token is one of:
//
//	users        literal, matched by string equality
//	$id          variable, captured into Args.Vars
//	$id:\d+      variable accepted only when the whole token matches the expression
//	*            wildcard, one or more trailing tokens captured into Args.Wildcard
//	...$rest     variadic, trailing tokens captured into Args.Variadic["rest"]
//
// At every level the children are tried literal first, then variables in
// registration order, then the variadic child, then the wildcard. A branch
// that ends on a node without handlers is abandoned and the next option is
// tried.
//
// Handlers are resolved on the matched node by exact method, then GET for a
// HEAD request, then ANY:
//
//	r := router.New[string, string]()
//	r.Get("/users/$id:\d+", "show-user")
//	admin := r.Group("/admin", "auth")
//	admin.Post("/users", "create-user", "csrf")
//
//	m, err := r.Match("POST", "/admin/users")
//	// m.Handler == "create-user", m.Middleware == []string{"auth", "csrf"}
//
// A variadic segment never matches an empty remainder. A request for the
// prefix alone only matches when the prefix has a handler of its own.
package router
