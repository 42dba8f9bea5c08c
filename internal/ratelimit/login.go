package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts login attempts per phone number in a fixed Redis
// window. A nil client disables limiting entirely; Redis is optional for
// this service the same way it is for the rest of the deployment.
type LoginLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewLoginLimiter(client *redis.Client, limit int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, limit: limit, window: window}
}

func (l *LoginLimiter) Allow(ctx context.Context, phone string) (bool, error) {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true, nil
	}

	key := "login_attempts:" + phone
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(l.limit), nil
}

// Reset clears the attempt counter, called after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, phone string) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Del(ctx, "login_attempts:"+phone).Err()
}
