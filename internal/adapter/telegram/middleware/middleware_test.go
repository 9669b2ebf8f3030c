package middleware_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"

	"serverrestarter/internal/adapter/telegram"
	"serverrestarter/internal/adapter/telegram/middleware"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSender) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, p.Text)
	return &models.Message{}, nil
}

func message(userID int64) *models.Update {
	u := &models.Update{Message: &models.Message{Chat: models.Chat{ID: 100}, Text: "/restart now"}}
	if userID != 0 {
		u.Message.From = &models.User{ID: userID}
	}
	return u
}

func counting(n *int) telegram.HandlerFunc {
	return func(context.Context, telegram.Sender, *models.Update) { *n++ }
}

func TestACL(t *testing.T) {
	a := middleware.NewACL([]int64{10, 20}, nil)
	assert.True(t, a.IsAllowed(10))
	assert.False(t, a.IsAllowed(11))

	var calls int
	s := &fakeSender{}
	h := a.Middleware(counting(&calls))

	h(context.Background(), s, message(10))
	h(context.Background(), s, message(11))
	h(context.Background(), s, message(0))

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{middleware.DeniedText, middleware.DeniedText}, s.texts)
}

func TestRateLimiter(t *testing.T) {
	r := middleware.NewRateLimiter(time.Hour)
	var calls int
	s := &fakeSender{}
	h := r.Middleware(counting(&calls))

	h(context.Background(), s, message(1))
	h(context.Background(), s, message(1))
	h(context.Background(), s, message(2))

	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{middleware.LimitedText}, s.texts)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) middleware.Middleware {
		return func(next telegram.HandlerFunc) telegram.HandlerFunc {
			return func(ctx context.Context, s telegram.Sender, upd *models.Update) {
				order = append(order, name)
				next(ctx, s, upd)
			}
		}
	}
	h := middleware.Chain(func(context.Context, telegram.Sender, *models.Update) {
		order = append(order, "handler")
	}, mw("rate"), mw("acl"))

	h(context.Background(), nil, message(1))
	assert.Equal(t, []string{"rate", "acl", "handler"}, order)
}

func TestBurstRateLimiter(t *testing.T) {
	r := middleware.NewBurstRateLimiter(time.Hour, 2)
	assert.True(t, r.Allow(7))
	assert.True(t, r.Allow(7))
	assert.False(t, r.Allow(7))
	assert.True(t, r.Allow(8))
}
