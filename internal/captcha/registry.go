package captcha

import (
	"sync"

	"github.com/dodocap/captcha-server/internal/metrics"
)

// Registry is the process-wide set of currently valid verification tokens.
// A token is a member exactly while some session considers itself verified by
// it; membership is the sole authority other systems consult to grant access.
//
// The backing set is never exposed, so all concurrency discipline lives here.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

// NewRegistry creates an empty token registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]struct{})}
}

// Add inserts a token into the registry. Adding an existing token is a no-op.
func (r *Registry) Add(token string) {
	r.mu.Lock()
	r.tokens[token] = struct{}{}
	// Inside the lock so interleaved updates cannot leave the gauge stale.
	metrics.VerifiedTokens.Set(float64(len(r.tokens)))
	r.mu.Unlock()
}

// Remove deletes a token from the registry. Removing an absent token is a
// no-op.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	delete(r.tokens, token)
	metrics.VerifiedTokens.Set(float64(len(r.tokens)))
	r.mu.Unlock()
}

// Contains reports whether the token is currently valid. This is the query
// access-control logic outside the captcha core uses to authorize a client.
func (r *Registry) Contains(token string) bool {
	r.mu.RLock()
	_, ok := r.tokens[token]
	r.mu.RUnlock()
	return ok
}

// Count returns the number of currently valid tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	n := len(r.tokens)
	r.mu.RUnlock()
	return n
}
