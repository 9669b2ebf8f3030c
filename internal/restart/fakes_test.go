package restart

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"serverrestarter/internal/schedule"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeHost struct {
	mu         sync.Mutex
	sessions   int
	stops      int
	broadcasts []string
}

func (h *fakeHost) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions
}

func (h *fakeHost) setSessions(n int) {
	h.mu.Lock()
	h.sessions = n
	h.mu.Unlock()
}

func (h *fakeHost) Stop() {
	h.mu.Lock()
	h.stops++
	h.mu.Unlock()
}

func (h *fakeHost) stopCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops
}

func (h *fakeHost) Broadcast(msg string) {
	h.mu.Lock()
	h.broadcasts = append(h.broadcasts, msg)
	h.mu.Unlock()
}

type execution struct {
	action schedule.Action
	reason string
}

type fakeExecutor struct {
	calls []execution
}

func (e *fakeExecutor) Execute(action schedule.Action, reason string) {
	e.calls = append(e.calls, execution{action: action, reason: reason})
}

type notifierFunc func(ctx context.Context, reason string) error

func (f notifierFunc) Notify(ctx context.Context, reason string) error { return f(ctx, reason) }
