package riskpool

import (
	"sync"

	apperrors "github.com/freelanceshield/claims-engine/internal/domain/errors"
)

// ExternalCallGuard blocks overlapping fund-moving operations on a pool.
// Balance mutation must finish before the next transfer begins, so the
// guard is acquired for the whole mutate-then-transfer sequence and
// released via the returned func.
type ExternalCallGuard struct {
	mu     sync.Mutex
	active bool
}

// Acquire marks an external call in progress. It fails instead of blocking
// when one is already running.
func (g *ExternalCallGuard) Acquire() (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		return nil, apperrors.ErrReentrancyDetected
	}
	g.active = true
	return func() {
		g.mu.Lock()
		g.active = false
		g.mu.Unlock()
	}, nil
}

// Active reports whether an external call is in progress.
func (g *ExternalCallGuard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
