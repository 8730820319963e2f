// Package lifecycle tracks foreground tracking leases. On a device this is the
// persistent "tour in progress" indicator; the server keeps one lease per
// session so operators can see which walks hold tracking open.
package lifecycle

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Lease describes one held tracking lease.
type Lease struct {
	Key       string    `json:"key"`
	RouteName string    `json:"route_name"`
	Since     time.Time `json:"since"`
}

// Registry hands out per-key lifecycles and lists held leases.
type Registry struct {
	mu     sync.Mutex
	leases map[string]Lease
	logger *zap.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		leases: make(map[string]Lease),
		logger: logger.Named("lifecycle"),
	}
}

// For returns a ForegroundTrackingLifecycle bound to key.
func (r *Registry) For(key string) *Handle {
	return &Handle{registry: r, key: key}
}

// Active lists held leases.
func (r *Registry) Active() []Lease {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Lease, 0, len(r.leases))
	for _, l := range r.leases {
		out = append(out, l)
	}
	return out
}

// Count returns the number of held leases.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leases)
}

func (r *Registry) begin(key, routeName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.leases[key]; held {
		return
	}
	r.leases[key] = Lease{Key: key, RouteName: routeName, Since: time.Now().UTC()}
	r.logger.Info("tracking lease acquired", zap.String("key", key), zap.String("route", routeName))
}

func (r *Registry) end(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.leases[key]; !held {
		return
	}
	delete(r.leases, key)
	r.logger.Info("tracking lease released", zap.String("key", key))
}

// Handle is a single session's view of the Registry.
type Handle struct {
	registry *Registry
	key      string
}

// Begin acquires the lease. Repeated calls keep the first lease.
func (h *Handle) Begin(routeName string) { h.registry.begin(h.key, routeName) }

// End releases the lease. Releasing twice is a no-op.
func (h *Handle) End() { h.registry.end(h.key) }
