package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot/models"

	"serverrestarter/internal/adapter/telegram"
)

// DeniedText is sent to users outside the allow list.
const DeniedText = "access denied"

// ACL checks access against a list of allowed Telegram user IDs.
type ACL struct {
	allowed map[int64]struct{}
	log     *slog.Logger
}

// NewACL creates an ACL from ids.
func NewACL(ids []int64, log *slog.Logger) *ACL {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &ACL{allowed: m, log: log}
}

// IsAllowed reports whether the user may issue commands.
func (a *ACL) IsAllowed(id int64) bool { _, ok := a.allowed[id]; return ok }

// Middleware drops updates from users outside the list, including anonymous senders.
func (a *ACL) Middleware(next telegram.HandlerFunc) telegram.HandlerFunc {
	return func(ctx context.Context, s telegram.Sender, upd *models.Update) {
		uid, chat := telegram.ExtractUser(upd)
		if uid != 0 && a.IsAllowed(uid) {
			next(ctx, s, upd)
			return
		}
		a.log.Warn("telegram update denied", slog.Int64("user_id", uid), slog.Int64("chat_id", chat))
		_ = telegram.Reply(ctx, s, chat, DeniedText)
	}
}
