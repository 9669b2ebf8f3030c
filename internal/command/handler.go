package command

import (
	"context"
	"log/slog"

	"serverrestarter/internal/restart"
)

// Runner runs fn on the goroutine that owns the controller.
// scheduler.Loop implements it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// Handler executes commands against a controller.
type Handler struct {
	run  Runner
	ctrl *restart.Controller
	log  *slog.Logger
}

// NewHandler creates a Handler. A nil run or ctrl yields a disabled handler
// whose every command fails with ErrDisabled.
func NewHandler(run Runner, ctrl *restart.Controller, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{run: run, ctrl: ctrl, log: log.With("component", "command")}
}

// Enabled reports whether commands reach a controller.
func (h *Handler) Enabled() bool { return h.run != nil && h.ctrl != nil }

// Execute runs cmd on behalf of actor, e.g. "console" or "telegram:42".
func (h *Handler) Execute(ctx context.Context, cmd Command, actor string) (Result, error) {
	if !h.Enabled() {
		return Result{Kind: cmd.Kind}, ErrDisabled
	}
	res := Result{Kind: cmd.Kind}
	var refused error
	err := h.run.Do(ctx, func() {
		if cmd.Kind != Status && h.ctrl.Done() {
			refused = ErrShuttingDown
			return
		}
		switch cmd.Kind {
		case Now:
			h.ctrl.RestartNow(cmd.Reason)
			res.Message = "Restarting server..."
		case Schedule:
			res.Previous, res.Replaced = h.ctrl.ScheduleWhenIdle(cmd.Reason)
			res.Message = "Restart scheduled for when no one is online!"
		}
		res.State = h.ctrl.Snapshot()
	})
	if err == nil {
		err = refused
	}
	if err != nil {
		return res, err
	}
	if cmd.Kind != Status {
		h.log.Info("restart command",
			slog.String("actor", actor),
			slog.String("command", cmd.Kind.String()),
			slog.String("reason", cmd.Reason))
	}
	return res, nil
}

// ExecuteLine parses and runs line. Lines that are not restart commands
// return ErrNotCommand.
func (h *Handler) ExecuteLine(ctx context.Context, line, actor string) (Result, error) {
	cmd, err := Parse(line)
	if err != nil {
		return Result{}, err
	}
	return h.Execute(ctx, cmd, actor)
}
