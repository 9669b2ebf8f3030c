// Package telegram exposes the restart commands through a Telegram bot and
// delivers restart notifications to a chat.
package telegram

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Update aliases models.Update for brevity.
type Update = models.Update

// Sender is the part of *bot.Bot the handlers use.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type ctxUpdate struct {
	ctx context.Context
	upd *models.Update
}

// HandlerFunc processes a single update.
type HandlerFunc func(ctx context.Context, s Sender, upd *models.Update)

// Dispatcher routes updates to worker goroutines keeping chat order.
type Dispatcher struct {
	sender  Sender
	handler HandlerFunc
	workers int
	chans   []chan ctxUpdate
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates dispatcher with given worker count.
func NewDispatcher(s Sender, workers int, h HandlerFunc) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{sender: s, handler: h, workers: workers, chans: make([]chan ctxUpdate, workers)}
	for i := 0; i < workers; i++ {
		d.chans[i] = make(chan ctxUpdate, 100)
		d.wg.Add(1)
		go d.worker(d.chans[i])
	}
	return d
}

// Dispatch sends update to appropriate worker based on chat ID.
// It reports false when the dispatcher is closed and the update was dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, upd *models.Update) bool {
	chatID := extractChatID(upd)
	idx := 0
	if chatID != 0 {
		idx = int(abs(chatID) % int64(d.workers))
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	d.chans[idx] <- ctxUpdate{ctx: ctx, upd: upd}
	return true
}

// Close stops the workers after queued updates are handled.
// Later Dispatch calls drop their update.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.chans {
			close(ch)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(in <-chan ctxUpdate) {
	defer d.wg.Done()
	for item := range in {
		d.handler(item.ctx, d.sender, item.upd)
	}
}

func extractChatID(u *models.Update) int64 {
	if u.Message != nil {
		return u.Message.Chat.ID
	}
	if u.CallbackQuery != nil && u.CallbackQuery.Message.Message != nil {
		return u.CallbackQuery.Message.Message.Chat.ID
	}
	return 0
}

// ExtractUser returns the sender user ID and chat ID of an update, zero when absent.
func ExtractUser(u *models.Update) (userID, chatID int64) {
	if m := u.Message; m != nil {
		chatID = m.Chat.ID
		if m.From != nil {
			userID = m.From.ID
		}
		return userID, chatID
	}
	if cb := u.CallbackQuery; cb != nil {
		userID = cb.From.ID
		if cb.Message.Message != nil {
			chatID = cb.Message.Message.Chat.ID
		}
	}
	return userID, chatID
}

// Reply sends text to chatID, ignoring a zero chat.
func Reply(ctx context.Context, s Sender, chatID int64, text string) error {
	if chatID == 0 || s == nil {
		return nil
	}
	_, err := s.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	return err
}

func abs(i int64) int64 {
	if i < 0 {
		return -i
	}
	return i
}
