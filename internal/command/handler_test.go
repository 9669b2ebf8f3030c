package command_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serverrestarter/internal/adapter/scheduler"
	"serverrestarter/internal/command"
	"serverrestarter/internal/restart"
	"serverrestarter/internal/schedule"
	"serverrestarter/internal/shared"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubHost struct {
	mu         sync.Mutex
	broadcasts []string
}

func (h *stubHost) ActiveSessions() int { return 1 }
func (h *stubHost) Stop()               {}
func (h *stubHost) Broadcast(msg string) {
	h.mu.Lock()
	h.broadcasts = append(h.broadcasts, msg)
	h.mu.Unlock()
}

type execution struct {
	action schedule.Action
	reason string
}

type recordingExecutor struct {
	mu    sync.Mutex
	calls []execution
}

func (e *recordingExecutor) Execute(action schedule.Action, reason string) {
	e.mu.Lock()
	e.calls = append(e.calls, execution{action, reason})
	e.mu.Unlock()
}

func (e *recordingExecutor) snapshot() []execution {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]execution(nil), e.calls...)
}

func newHandler(t *testing.T) (*command.Handler, *recordingExecutor, *stubHost) {
	t.Helper()
	host := &stubHost{}
	exec := &recordingExecutor{}
	ctrl := restart.NewController(restart.Options{Host: host, Executor: exec, Logger: quietLogger()})
	loop := scheduler.New(scheduler.Config{Interval: time.Hour, Tick: ctrl.Tick, Logger: quietLogger()})
	loop.Start()
	t.Cleanup(loop.Stop)
	return command.NewHandler(loop, ctrl, quietLogger()), exec, host
}

func TestHandler_Now(t *testing.T) {
	h, exec, _ := newHandler(t)

	res, err := h.ExecuteLine(context.Background(), "restart now", "console")
	require.NoError(t, err)
	assert.Equal(t, "Restarting server...", res.Message)
	assert.Equal(t, []execution{{schedule.Restart, command.DefaultNowReason}}, exec.snapshot())
}

func TestHandler_ScheduleTwice(t *testing.T) {
	h, exec, host := newHandler(t)
	ctx := context.Background()

	res, err := h.ExecuteLine(ctx, "restart schedule first", "console")
	require.NoError(t, err)
	assert.False(t, res.Replaced)
	assert.Equal(t, "first", res.State.PendingReason)

	res, err = h.ExecuteLine(ctx, "restart schedule", "console")
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.Equal(t, "first", res.Previous)
	assert.Equal(t, command.DefaultScheduleReason, res.State.PendingReason)
	assert.Empty(t, exec.snapshot())

	host.mu.Lock()
	defer host.mu.Unlock()
	assert.Equal(t, []string{restart.IdleAlert, restart.IdleAlert}, host.broadcasts)
}

func TestHandler_Status(t *testing.T) {
	h, exec, _ := newHandler(t)

	res, err := h.ExecuteLine(context.Background(), "restart status", "console")
	require.NoError(t, err)
	assert.Equal(t, restart.Disabled, res.State.Mode)
	assert.Contains(t, res.Lines(), "Scheduler: disabled")
	assert.Empty(t, exec.snapshot())
}

func TestHandler_RefusesAfterRestart(t *testing.T) {
	h, exec, _ := newHandler(t)
	ctx := context.Background()

	_, err := h.ExecuteLine(ctx, "restart now first", "console")
	require.NoError(t, err)

	_, err = h.ExecuteLine(ctx, "restart now second", "console")
	require.ErrorIs(t, err, command.ErrShuttingDown)
	assert.True(t, shared.IsPrecondition(err))

	_, err = h.ExecuteLine(ctx, "restart schedule later", "console")
	require.ErrorIs(t, err, command.ErrShuttingDown)

	res, err := h.ExecuteLine(ctx, "restart status", "console")
	require.NoError(t, err)
	assert.Equal(t, restart.Fired, res.State.Mode)
	assert.Equal(t, []execution{{schedule.Restart, "first"}}, exec.snapshot())
}

func TestHandler_Disabled(t *testing.T) {
	h := command.NewHandler(nil, nil, quietLogger())
	assert.False(t, h.Enabled())

	_, err := h.Execute(context.Background(), command.New(command.Now, ""), "console")
	require.ErrorIs(t, err, command.ErrDisabled)
	assert.True(t, shared.IsPrecondition(err))
}

func TestHandler_StoppedLoop(t *testing.T) {
	ctrl := restart.NewController(restart.Options{Host: &stubHost{}, Executor: &recordingExecutor{}, Logger: quietLogger()})
	loop := scheduler.New(scheduler.Config{Interval: time.Hour, Logger: quietLogger()})
	loop.Start()
	loop.Stop()

	h := command.NewHandler(loop, ctrl, quietLogger())
	_, err := h.Execute(context.Background(), command.New(command.Status, ""), "console")
	assert.ErrorIs(t, err, scheduler.ErrStopped)
}

func TestConsole_RoutesLines(t *testing.T) {
	h, exec, _ := newHandler(t)

	var (
		out       strings.Builder
		forwarded []string
	)
	c := &command.Console{
		Handler: h,
		Forward: func(line string) error {
			forwarded = append(forwarded, line)
			return nil
		},
		Out:    &out,
		Logger: quietLogger(),
	}

	in := strings.NewReader("list\n\nrestart bogus\nrestart now maintenance\n")
	require.NoError(t, c.Run(context.Background(), in))

	assert.Equal(t, []string{"list"}, forwarded)
	assert.Contains(t, out.String(), "usage:")
	assert.Contains(t, out.String(), "Restarting server...")
	assert.Equal(t, []execution{{schedule.Restart, "maintenance"}}, exec.snapshot())
}
