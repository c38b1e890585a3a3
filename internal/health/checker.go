package health

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Probe implements Checker over the bot's live dependencies.
type Probe struct {
	Redis    *redis.Client
	Carriers interface{ Ready(context.Context) error }
}

// PingRedis issues a PING bounded by timeout.
func (p Probe) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}

// CarriersReady reports whether the carrier directory has loaded.
func (p Probe) CarriersReady(ctx context.Context) error {
	if p.Carriers == nil {
		return errors.New("carrier directory not configured")
	}
	return p.Carriers.Ready(ctx)
}
