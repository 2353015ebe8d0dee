package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/ScriptSmith/hadrian/circuitbreaker"
	"github.com/ScriptSmith/hadrian/retry"
	"github.com/ScriptSmith/hadrian/types"
	"go.uber.org/zap"
)

// OperationFamily selects which retry.RetryPolicy a call is dispatched with.
type OperationFamily string

const (
	FamilyChat      OperationFamily = "chat"
	FamilyEmbedding OperationFamily = "embedding"
	FamilyReadOnly  OperationFamily = "read_only"
	FamilyImage     OperationFamily = "image"
)

func policyFor(family OperationFamily) *retry.RetryPolicy {
	switch family {
	case FamilyEmbedding:
		return retry.ForEmbedding()
	case FamilyReadOnly:
		return retry.ForReadOnly()
	case FamilyImage:
		return retry.ForImageGeneration()
	default:
		return retry.ForChat()
	}
}

// CircuitBreakerRegistry hands out one shared circuitbreaker.CircuitBreaker
// per provider name, so every operation family dispatched against the same
// upstream coordinates through a single breaker.
type CircuitBreakerRegistry struct {
	mu       sync.Mutex
	config   *circuitbreaker.Config
	logger   *zap.Logger
	breakers map[string]circuitbreaker.CircuitBreaker
}

// NewCircuitBreakerRegistry creates a registry. A nil config uses circuitbreaker.DefaultConfig.
func NewCircuitBreakerRegistry(config *circuitbreaker.Config, logger *zap.Logger) *CircuitBreakerRegistry {
	if config == nil {
		config = circuitbreaker.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreakerRegistry{
		config:   config,
		logger:   logger,
		breakers: make(map[string]circuitbreaker.CircuitBreaker),
	}
}

// Get returns the breaker for providerName, creating it on first use.
func (r *CircuitBreakerRegistry) Get(providerName string) circuitbreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[providerName]; ok {
		return b
	}
	b := circuitbreaker.NewCircuitBreaker(r.config, r.logger.With(zap.String("provider", providerName)))
	r.breakers[providerName] = b
	return b
}

// Dispatcher is the ResilientDispatcher: it wraps every upstream call in
// (circuit breaker -> retry -> request) layers, sharing breakers per
// provider and choosing a retry.RetryPolicy per operation family.
type Dispatcher struct {
	breakers *CircuitBreakerRegistry
	logger   *zap.Logger
}

// New creates a Dispatcher. A nil registry creates one with default breaker config.
func New(breakers *CircuitBreakerRegistry, logger *zap.Logger) *Dispatcher {
	if breakers == nil {
		breakers = NewCircuitBreakerRegistry(nil, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{breakers: breakers, logger: logger}
}

// Dispatch runs fn under the named provider's circuit breaker and the retry
// policy for the given operation family. fn must be idempotent: it is called
// again on every retry attempt, so any per-attempt state (multipart forms,
// etc.) must be rebuilt inside fn rather than captured once outside it.
//
// A caller-cancelled context is distinguished from an upstream failure: it
// is surfaced to fn's ctx.Done() and, if fn returns ctx.Err(), the breaker's
// failure counter is not incremented.
func (d *Dispatcher) Dispatch(ctx context.Context, providerName string, family OperationFamily, fn func(ctx context.Context) error) error {
	breaker := d.breakers.Get(providerName)
	retryer := retry.NewBackoffRetryer(policyFor(family), d.logger)

	var cancelErr error
	err := breaker.Call(ctx, func() error {
		return retryer.Do(ctx, func() error {
			callErr := fn(ctx)
			if callErr != nil && isCancellation(ctx, callErr) {
				// Report success to the breaker so a caller disconnect never
				// increments its failure counter; the real error is
				// recovered below once the breaker call has returned.
				cancelErr = callErr
				return nil
			}
			return callErr
		})
	})

	if cancelErr != nil {
		return cancelErr
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return types.CircuitOpenError(providerName)
	}
	return err
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled)
}

// Call is a typed convenience wrapper around Dispatch for operations that
// return a value: it captures fn's result in a closure over T and returns it
// once Dispatch reports success.
func Call[T any](ctx context.Context, d *Dispatcher, providerName string, family OperationFamily, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := d.Dispatch(ctx, providerName, family, func(ctx context.Context) error {
		r, callErr := fn(ctx)
		if callErr != nil {
			return callErr
		}
		result = r
		return nil
	})
	return result, err
}
