// Package ratelimit enforces per-API-key requests-per-minute and
// tokens-per-minute budgets ahead of dispatch, using a Redis fixed-window
// counter built on top of internal/cache.Manager's IncrBy.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ScriptSmith/hadrian/internal/cache"
	"github.com/ScriptSmith/hadrian/types"
	"go.uber.org/zap"
)

// Limits is the admission budget for one API key.
type Limits struct {
	RPM int // requests per minute; 0 means unlimited
	TPM int // tokens per minute; 0 means unlimited
}

// Limiter admits or rejects a request against an API key's configured
// rate_limit_rpm / rate_limit_tpm.
type Limiter struct {
	cache  *cache.Manager
	logger *zap.Logger
}

// New creates a Limiter. A nil manager degrades to an always-admit no-op so
// the repository/dispatcher layers stay testable without a live Redis.
func New(mgr *cache.Manager, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mgr == nil {
		logger.Warn("ratelimit: no cache manager configured, admitting all requests")
	}
	return &Limiter{cache: mgr, logger: logger}
}

// Admit checks whether apiKeyID may make one more request consuming
// estimatedTokens, incrementing both windows if admitted. It returns a
// types.Error with Code types.ErrRateLimit when either window is exhausted.
func (l *Limiter) Admit(ctx context.Context, apiKeyID string, estimatedTokens int, limits Limits) error {
	if l.cache == nil {
		return nil
	}

	minuteBucket := time.Now().Truncate(time.Minute).Unix()

	if limits.RPM > 0 {
		key := fmt.Sprintf("ratelimit:rpm:%s:%d", apiKeyID, minuteBucket)
		count, err := l.cache.IncrBy(ctx, key, 1, 2*time.Minute)
		if err != nil {
			return types.Internal("rate limiter unavailable").WithCause(err)
		}
		if count > int64(limits.RPM) {
			return rateLimitError(fmt.Sprintf("requests-per-minute limit of %d exceeded", limits.RPM))
		}
	}

	if limits.TPM > 0 {
		key := fmt.Sprintf("ratelimit:tpm:%s:%d", apiKeyID, minuteBucket)
		count, err := l.cache.IncrBy(ctx, key, int64(estimatedTokens), 2*time.Minute)
		if err != nil {
			return types.Internal("rate limiter unavailable").WithCause(err)
		}
		if count > int64(limits.TPM) {
			return rateLimitError(fmt.Sprintf("tokens-per-minute limit of %d exceeded", limits.TPM))
		}
	}

	return nil
}

func rateLimitError(message string) *types.Error {
	return &types.Error{
		Code:       types.ErrRateLimit,
		Message:    message,
		HTTPStatus: 429,
		Retryable:  true,
	}
}
