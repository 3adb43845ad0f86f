package middleware

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configuration for outbound rate limiting
type RateLimiterConfig struct {
	// Requests per minute, 0 disables limiting
	RPM int `json:"rpm"`
	// Burst size
	Burst int `json:"burst"`
}

// RequestLimiter paces requests sent to the analytics API
type RequestLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRequestLimiter creates a new limiter; a non-positive RPM means unlimited
func NewRequestLimiter(config RateLimiterConfig) *RequestLimiter {
	if config.Burst <= 0 {
		config.Burst = 1
	}

	limit := rate.Inf
	if config.RPM > 0 {
		limit = rate.Every(time.Minute / time.Duration(config.RPM))
	}

	return &RequestLimiter{
		config:  config,
		limiter: rate.NewLimiter(limit, config.Burst),
	}
}

// Wait blocks until the next request may be sent or ctx is done
func (rl *RequestLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	return rl.limiter.Wait(ctx)
}

// Config returns the limiter configuration
func (rl *RequestLimiter) Config() RateLimiterConfig {
	return rl.config
}
