package router

// Args holds the values captured while matching a path.
//
// Variable segments land in Vars, named variadic segments in Variadic. A
// wildcard capture is positional and kept in Wildcard next to any named
// captures made higher up in the pattern. Maps are nil until something is
// captured into them.
type Args struct {
	Vars     map[string]string
	Variadic map[string][]string
	Wildcard []string
}

// Get returns a variable capture
func (a Args) Get(name string) string {
	return a.Vars[name]
}

// List returns a variadic capture
func (a Args) List(name string) []string {
	return a.Variadic[name]
}

// Len returns number of captures, a wildcard counting as one
func (a Args) Len() int {
	n := len(a.Vars) + len(a.Variadic)
	if a.Wildcard != nil {
		n++
	}
	return n
}

func (a *Args) setVar(name, value string) {
	if a.Vars == nil {
		a.Vars = make(map[string]string)
	}
	a.Vars[name] = value
}

func (a *Args) setVariadic(name string, values []string) {
	if a.Variadic == nil {
		a.Variadic = make(map[string][]string)
	}
	a.Variadic[name] = values
}
