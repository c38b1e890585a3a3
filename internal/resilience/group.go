package resilience

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BreakerGroup hands out one breaker per downstream target, created on first
// use with shared thresholds. Failures at one target never open another
// target's breaker.
type BreakerGroup struct {
	minRequests  int
	failureRatio float64
	openFor      time.Duration
	logger       zerolog.Logger

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewBreakerGroup constructs a group; see NewBreaker for the thresholds.
func NewBreakerGroup(minRequests int, failureRatio float64, openFor time.Duration, logger zerolog.Logger) *BreakerGroup {
	return &BreakerGroup{
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		logger:       logger,
		breakers:     map[string]*Breaker{},
	}
}

// For returns the breaker for target. A nil group returns a nil breaker,
// which HTTPClient treats as always closed.
func (g *BreakerGroup) For(target string) *Breaker {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.breakers[target]; ok {
		return b
	}
	b := NewBreaker(g.minRequests, g.failureRatio, g.openFor).
		WithTarget(target).
		WithLogger(g.logger)
	g.breakers[target] = b
	return b
}
