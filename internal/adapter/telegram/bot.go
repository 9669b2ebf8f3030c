package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// DefaultWorkers is the number of dispatcher workers.
const DefaultWorkers = 4

// Bot polls Telegram for updates and feeds them to a handler.
type Bot struct {
	api  *bot.Bot
	disp *Dispatcher
	log  *slog.Logger
}

// NewBot creates a bot. Nothing is received until Run.
func NewBot(token string, h HandlerFunc, log *slog.Logger) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	var disp *Dispatcher
	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, _ *bot.Bot, upd *models.Update) {
			if !disp.Dispatch(ctx, upd) {
				log.Debug("telegram update dropped during shutdown", slog.Int64("update_id", upd.ID))
			}
		}),
		// Start returns only after the last handler call, so Close never races Dispatch.
		bot.WithNotAsyncHandlers(),
		bot.WithAllowedUpdates([]string{"message", "callback_query"}),
	}
	api, err := bot.New(token, opts...)
	if err != nil {
		return nil, err
	}
	disp = NewDispatcher(api, DefaultWorkers, h)
	return &Bot{api: api, disp: disp, log: log.With("component", "telegram")}, nil
}

// Sender returns the underlying API client, e.g. for a Notifier.
func (b *Bot) Sender() Sender { return b.api }

// Run long-polls until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	b.log.Info("telegram bot polling")
	b.api.Start(ctx)
	b.disp.Close()
	b.log.Info("telegram bot stopped")
}
