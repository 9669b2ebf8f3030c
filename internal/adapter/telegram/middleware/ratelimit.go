package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"serverrestarter/internal/adapter/telegram"
)

// LimitedText is sent when a user hits the rate limit.
const LimitedText = "too many requests, slow down"

// RateLimiter restricts request frequency per user.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	every    time.Duration
	burst    int
}

// NewRateLimiter allows one request per user every interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return NewBurstRateLimiter(interval, 1)
}

// NewBurstRateLimiter allows burst requests at once, refilled one per interval.
func NewBurstRateLimiter(interval time.Duration, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiters: make(map[int64]*rate.Limiter), every: interval, burst: burst}
}

// Allow returns false if user hits the limit.
func (r *RateLimiter) Allow(userID int64) bool {
	r.mu.Lock()
	l, ok := r.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Every(r.every), r.burst)
		r.limiters[userID] = l
	}
	r.mu.Unlock()
	return l.Allow()
}

// Middleware checks rate limit before calling next handler.
func (r *RateLimiter) Middleware(next telegram.HandlerFunc) telegram.HandlerFunc {
	return func(ctx context.Context, s telegram.Sender, upd *models.Update) {
		uid, chat := telegram.ExtractUser(upd)
		if uid != 0 && !r.Allow(uid) {
			_ = telegram.Reply(ctx, s, chat, LimitedText)
			return
		}
		next(ctx, s, upd)
	}
}
