package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter is a sliding-window limiter backed by Redis sorted sets. It
// throttles chat commands per user.
type Limiter struct {
	Client *redis.Client
	Prefix string
	Window time.Duration
	Max    int
}

// Allow records one event for key and reports whether it is within the
// limit. When it is not, retryAfter says when the oldest event in the window
// ages out. A zero Max or Window disables limiting.
func (l Limiter) Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error) {
	if l.Client == nil || l.Max <= 0 || l.Window <= 0 {
		return true, 0, nil
	}

	now := time.Now()
	redisKey := l.Prefix + key
	cutoff := float64(now.Add(-l.Window).UnixNano())
	member := fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.Expire(ctx, redisKey, l.Window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if int(countCmd.Val()) <= l.Max {
		return true, 0, nil
	}
	// Rejected attempts are not counted against the user.
	_ = l.Client.ZRem(ctx, redisKey, member).Err()

	retryAfter = l.Window
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		retryAfter = time.Duration(int64(oldest[0].Score)+int64(l.Window)) - time.Duration(now.UnixNano())
		if retryAfter < 0 {
			retryAfter = 0
		}
	}
	return false, retryAfter, nil
}
