package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTooManyAttempts = errors.New("too many attempts")

type Action string

const (
	ActionLogin    Action = "login"
	ActionRegister Action = "register"
)

type Rule struct {
	Limit  int64
	Window time.Duration
}

// RateLimiter counts attempts per action and key in fixed windows. A nil
// redis client disables limiting.
type RateLimiter struct {
	redis *redis.Client
	rules map[Action]Rule
}

func NewRateLimiter(redis *redis.Client, rules map[Action]Rule) *RateLimiter {
	return &RateLimiter{
		redis: redis,
		rules: rules,
	}
}

func (r *RateLimiter) Check(ctx context.Context, action Action, key string) error {
	rule, ok := r.rules[action]
	if r.redis == nil || !ok || rule.Limit <= 0 {
		return nil
	}

	redisKey := fmt.Sprintf("%s_attempts:%s", action, key)

	count, err := r.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("failed to increment %s attempts: %w", action, err)
	}

	if count == 1 {
		if err := r.redis.Expire(ctx, redisKey, rule.Window).Err(); err != nil {
			return fmt.Errorf("failed to set %s attempts expiry: %w", action, err)
		}
	}

	if count > rule.Limit {
		return ErrTooManyAttempts
	}

	return nil
}

func (r *RateLimiter) ResetAttempts(ctx context.Context, action Action, key string) error {
	if r.redis == nil {
		return nil
	}
	return r.redis.Del(ctx, fmt.Sprintf("%s_attempts:%s", action, key)).Err()
}
