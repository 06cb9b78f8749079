package blueroute

import "sync"

// O is a shorthand for JSON objects
type O map[string]interface{}

// reqcount counts served requests per matched pattern
type reqcount struct {
	r     map[string]uint64
	total uint64
	s     sync.Mutex
}

func (r *reqcount) Add(k string) {
	r.s.Lock()
	defer r.s.Unlock()

	if r.r == nil {
		r.r = make(map[string]uint64)
	}
	r.r[k]++
	r.total++
}

func (r *reqcount) Get(k string) uint64 {
	r.s.Lock()
	defer r.s.Unlock()

	if r.r == nil {
		return 0
	}
	return r.r[k]
}

func (r *reqcount) Total() uint64 {
	r.s.Lock()
	defer r.s.Unlock()

	return r.total
}

// Snapshot copies the counters so they can be encoded without the lock
func (r *reqcount) Snapshot() map[string]uint64 {
	r.s.Lock()
	defer r.s.Unlock()

	snap := make(map[string]uint64, len(r.r))
	for k, v := range r.r {
		snap[k] = v
	}
	return snap
}
