package usage

import (
	"context"
	"fmt"
	"time"

	"mirs-coach-be/internal/dto"
	"mirs-coach-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const DefaultDailyLimit = 50

// Limiter enforces a per-user daily cap on coaching turns, backed by redis.
// A nil client disables limiting entirely (local development without redis).
type Limiter struct {
	client *redis.Client
	limit  int
	logger logger.ILogger
}

func NewLimiter(client *redis.Client, limit int, log logger.ILogger) *Limiter {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Limiter{
		client: client,
		limit:  limit,
		logger: log,
	}
}

func (l *Limiter) key(userId string, now time.Time) string {
	return fmt.Sprintf("coach:usage:%s:%s", userId, now.UTC().Format("2006-01-02"))
}

// Verify checks whether the user still has turns left today. Redis being
// unreachable fails open: a limiter outage must not take chat down.
func (l *Limiter) Verify(ctx context.Context, userId string) error {
	if l.client == nil {
		return nil
	}

	now := time.Now()
	used, err := l.client.Get(ctx, l.key(userId, now)).Int()
	if err != nil && err != redis.Nil {
		l.logger.Warn("usage", "redis unavailable, skipping limit check", map[string]interface{}{"error": err.Error()})
		return nil
	}

	if used >= l.limit {
		return &dto.LimitExceededError{
			Limit:      l.limit,
			Used:       used,
			ResetAfter: midnightAfter(now),
		}
	}
	return nil
}

// Increment records one consumed turn. The counter expires at the next UTC
// midnight so the window resets daily.
func (l *Limiter) Increment(ctx context.Context, userId string) {
	if l.client == nil {
		return
	}

	now := time.Now()
	key := l.key(userId, now)
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, midnightAfter(now))
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("usage", "failed to record usage", map[string]interface{}{"error": err.Error()})
	}
}

func midnightAfter(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
