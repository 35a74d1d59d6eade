package billable

import (
	"context"
	"sync"
)

// LookupFunc reports whether an account of a registered kind exists.
type LookupFunc func(ctx context.Context, id string) (bool, error)

// Registry maps billable kinds to account lookups. Webhook metadata naming
// a registered kind is checked against the lookup before any customer row
// is provisioned; kinds without a registered lookup are accepted as-is.
type Registry struct {
	mu      sync.RWMutex
	lookups map[string]LookupFunc
}

func NewRegistry() *Registry {
	return &Registry{lookups: make(map[string]LookupFunc)}
}

// Register installs the lookup for a kind, replacing any previous one.
func (r *Registry) Register(kind string, fn LookupFunc) {
	if kind == "" || fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups[kind] = fn
}

// Exists checks the account against the kind's registered lookup.
func (r *Registry) Exists(ctx context.Context, kind, id string) (bool, error) {
	r.mu.RLock()
	fn, ok := r.lookups[kind]
	r.mu.RUnlock()
	if !ok {
		return true, nil
	}
	return fn(ctx, id)
}
