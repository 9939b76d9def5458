package store

import "time"

// DirectUpstream is the sentinel upstream value for a proxy with no
// forwarding target. A worker in this mode binds and accepts but does
// not relay.
const DirectUpstream = "DIRECT"

// ProxyConfig is the persisted record for one proxy worker, stored as
// <id>.json under the store directory. The file is the coordination
// point between supervisor and worker: the supervisor creates it before
// spawning and fills in the pid, the worker fills in bound_port and
// local_url after binding its listener. Each field has a single writing
// side, and the worker re-reads before writing, so the two sides
// converge regardless of write ordering.
type ProxyConfig struct {
	// ID is the unique proxy identifier, never reused while the record exists
	ID string `json:"id"`
	// Upstream is the forwarding target, or DirectUpstream when none was given
	Upstream string `json:"upstream"`
	// RequestedPort is the port asked for at start; 0 lets the OS pick
	RequestedPort int `json:"requested_port"`
	// BoundPort is the port the worker actually bound; written by the
	// worker only after a successful bind
	BoundPort int `json:"bound_port,omitempty"`
	// LocalURL is the worker's advertised address (http://127.0.0.1:<port>)
	LocalURL string `json:"local_url,omitempty"`
	// PID is the worker process id, written by the supervisor after spawn
	// and by the worker alongside its bind update
	PID int `json:"pid,omitempty"`
	// ProfileID is an optional opaque link to the calling context
	ProfileID string `json:"profile_id,omitempty"`
	// CreatedAt is the record creation timestamp
	CreatedAt time.Time `json:"created_at"`
}

// NewProxyConfig creates the initial record for a proxy about to be
// spawned. An empty upstream becomes DirectUpstream.
func NewProxyConfig(id, upstream string, requestedPort int, profileID string) *ProxyConfig {
	if upstream == "" {
		upstream = DirectUpstream
	}
	return &ProxyConfig{
		ID:            id,
		Upstream:      upstream,
		RequestedPort: requestedPort,
		ProfileID:     profileID,
		CreatedAt:     time.Now().UTC(),
	}
}

// Ready reports whether the worker has published its listening address.
// A populated bound_port and local_url pair is the sole readiness
// signal; process existence alone never counts.
func (p *ProxyConfig) Ready() bool {
	return p.BoundPort != 0 && p.LocalURL != ""
}
