package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/ScriptSmith/hadrian/circuitbreaker"
	"github.com/ScriptSmith/hadrian/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDispatcher(threshold int) *Dispatcher {
	cfg := circuitbreaker.DefaultConfig()
	cfg.Threshold = threshold
	registry := NewCircuitBreakerRegistry(cfg, zap.NewNop())
	return New(registry, zap.NewNop())
}

func TestDispatch_Success(t *testing.T) {
	d := testDispatcher(5)
	calls := 0
	err := d.Dispatch(context.Background(), "openai", FamilyChat, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, circuitbreaker.StateClosed, d.breakers.Get("openai").State())
}

func TestDispatch_UpstreamFailureTripsBreaker(t *testing.T) {
	d := testDispatcher(2)
	upstreamErr := errors.New("upstream 500")

	for i := 0; i < 2; i++ {
		err := d.Dispatch(context.Background(), "openai", FamilyChat, func(ctx context.Context) error {
			return upstreamErr
		})
		assert.ErrorIs(t, err, upstreamErr)
	}

	assert.Equal(t, circuitbreaker.StateOpen, d.breakers.Get("openai").State())

	// A further call fails fast with a CircuitOpenError instead of invoking fn.
	called := false
	err := d.Dispatch(context.Background(), "openai", FamilyChat, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.False(t, called)
	var typesErr *types.Error
	require.ErrorAs(t, err, &typesErr)
	assert.Equal(t, types.ErrCircuitOpen, typesErr.Code)
}

// TestDispatch_CancellationDoesNotTripBreaker guards the fix for a caller
// disconnect incrementing the breaker's failure counter: Dispatch must
// surface context.Canceled to its caller without ever reporting it to
// breaker.afterCall as a failure.
func TestDispatch_CancellationDoesNotTripBreaker(t *testing.T) {
	d := testDispatcher(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		err := d.Dispatch(ctx, "openai", FamilyChat, func(ctx context.Context) error {
			return context.Canceled
		})
		assert.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, circuitbreaker.StateClosed, d.breakers.Get("openai").State(),
		"caller cancellation must never trip the breaker")
}

func TestDispatch_DeadlineExceededDoesNotTripBreaker(t *testing.T) {
	d := testDispatcher(1)

	for i := 0; i < 3; i++ {
		err := d.Dispatch(context.Background(), "openai", FamilyChat, func(ctx context.Context) error {
			return context.DeadlineExceeded
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}

	assert.Equal(t, circuitbreaker.StateClosed, d.breakers.Get("openai").State())
}

func TestCircuitBreakerRegistry_SharesBreakerPerProvider(t *testing.T) {
	registry := NewCircuitBreakerRegistry(nil, zap.NewNop())
	a := registry.Get("openai")
	b := registry.Get("openai")
	c := registry.Get("anthropic")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestPolicyFor(t *testing.T) {
	assert.NotNil(t, policyFor(FamilyChat))
	assert.NotNil(t, policyFor(FamilyEmbedding))
	assert.NotNil(t, policyFor(FamilyReadOnly))
	assert.NotNil(t, policyFor(FamilyImage))
	assert.Equal(t, policyFor(FamilyChat), policyFor(OperationFamily("unknown")))
}

func TestCall_ReturnsTypedResult(t *testing.T) {
	d := testDispatcher(5)
	result, err := Call(context.Background(), d, "openai", FamilyChat, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestCall_PropagatesError(t *testing.T) {
	d := testDispatcher(5)
	wantErr := errors.New("boom")
	_, err := Call(context.Background(), d, "openai", FamilyChat, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}
