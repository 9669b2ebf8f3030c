// Package handlers routes Telegram chat commands to the restart command handler.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot/models"

	"serverrestarter/internal/adapter/telegram"
	"serverrestarter/internal/command"
)

// HelpText answers /start and /help.
const HelpText = `Server restarter
/restart now [reason] - restart immediately
/restart schedule [reason] - restart once no one is online
/restart status - show the scheduler state
/status - same as /restart status
/ping - check the bot is alive`

// Router dispatches chat commands.
type Router struct {
	cmds *command.Handler
	log  *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(cmds *command.Handler, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{cmds: cmds, log: log.With("component", "telegram-handlers")}
}

// Handle routes updates to command handlers.
func (r *Router) Handle(ctx context.Context, s telegram.Sender, upd *models.Update) {
	msg := upd.Message
	if msg == nil || !strings.HasPrefix(msg.Text, "/") {
		return
	}
	name, args, _ := strings.Cut(msg.Text, " ")
	name = strings.TrimPrefix(name, "/")
	// "/restart@my_bot" in group chats
	name, _, _ = strings.Cut(name, "@")

	var text string
	switch strings.ToLower(name) {
	case "start", "help":
		text = HelpText
	case "ping":
		text = "pong"
	case "status":
		text = r.run(ctx, upd, "restart status")
	case "restart":
		text = r.run(ctx, upd, "restart "+args)
	default:
		return
	}
	if err := telegram.Reply(ctx, s, msg.Chat.ID, text); err != nil {
		r.log.Warn("telegram reply failed", slog.String("command", name), slog.Any("error", err))
	}
}

func (r *Router) run(ctx context.Context, upd *models.Update, line string) string {
	uid, _ := telegram.ExtractUser(upd)
	res, err := r.cmds.ExecuteLine(ctx, line, fmt.Sprintf("telegram:%d", uid))
	switch {
	case errors.Is(err, command.ErrNotCommand):
		return command.Usage
	case err != nil:
		return err.Error()
	}
	return strings.Join(res.Lines(), "\n")
}
