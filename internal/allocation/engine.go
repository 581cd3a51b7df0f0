// internal/allocation/engine.go
package allocation

import "time"

// DefaultMaxResults bounds the result list when the caller does not specify
// a positive size.
const DefaultMaxResults = 5

// Engine selects, scores, ranks and explains providers for a lead. It holds
// no mutable state: a single instance is safe for concurrent use and every
// Allocate call is a pure function of its inputs.
type Engine struct {
	criteria Criteria
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for availability and recency
// checks. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine. Invalid criteria are a contract violation and are
// rejected here, before any lead is processed.
func New(criteria Criteria, opts ...Option) (*Engine, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		criteria: criteria,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Criteria returns the weight table the engine was built with.
func (e *Engine) Criteria() Criteria {
	return e.criteria
}

// Allocate runs the full pipeline: eligibility filter, then scoring, ranking
// and truncation. An empty result is a normal outcome, never an error.
func (e *Engine) Allocate(lead Lead, providers []ProviderProfile, maxResults int) []AllocationResult {
	eligible := e.FilterEligible(lead, providers)
	return e.Rank(lead, eligible, maxResults)
}
