package supervisor

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Registry caches the pid of every worker launched by this process,
// keyed by proxy id. It is a fallback for Stop when a record predates
// the supervisor's pid write, and it lets callers report what this
// process believes it started. The record store stays authoritative;
// the registry is never persisted.
//
// Registries are constructed at startup and injected, never shared
// through package state.
type Registry struct {
	pids cmap.ConcurrentMap[string, int]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pids: cmap.New[int]()}
}

// Put records the pid for a proxy id, replacing any previous value.
func (r *Registry) Put(id string, pid int) {
	r.pids.Set(id, pid)
}

// Get returns the cached pid for a proxy id.
func (r *Registry) Get(id string) (int, bool) {
	return r.pids.Get(id)
}

// Remove drops the cached pid for a proxy id.
func (r *Registry) Remove(id string) {
	r.pids.Remove(id)
}

// Count returns the number of cached entries.
func (r *Registry) Count() int {
	return r.pids.Count()
}

// Items returns a snapshot of all cached id -> pid pairs.
func (r *Registry) Items() map[string]int {
	return r.pids.Items()
}
