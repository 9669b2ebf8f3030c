package restart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"

	"serverrestarter/internal/schedule"
	"serverrestarter/internal/shared"
)

// DefaultNotifyTimeout bounds a single background notification.
const DefaultNotifyTimeout = 30 * time.Second

// Notifier delivers a restart notice to an external system.
type Notifier interface {
	Notify(ctx context.Context, reason string) error
}

// Notifiers fans a notice out to every notifier and joins their errors.
type Notifiers []Notifier

// Notify implements Notifier.
func (ns Notifiers) Notify(ctx context.Context, reason string) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, reason); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ExecutorOptions configures an ActionExecutor.
type ExecutorOptions struct {
	Host       Host
	MarkerPath string
	// Fs holds the marker; nil means the OS filesystem.
	Fs afero.Fs
	// Notifier may be nil when no webhook is configured.
	Notifier      Notifier
	NotifyTimeout time.Duration
	Logger        *slog.Logger
}

// ActionExecutor stops the host, leaves the reason marker and notifies.
type ActionExecutor struct {
	host          Host
	marker        Marker
	notifier      Notifier
	notifyTimeout time.Duration
	log           *slog.Logger
	wg            sync.WaitGroup
}

// NewExecutor creates an ActionExecutor.
func NewExecutor(opts ExecutorOptions) *ActionExecutor {
	e := &ActionExecutor{
		host:          opts.Host,
		marker:        NewMarker(opts.Fs, opts.MarkerPath),
		notifier:      opts.Notifier,
		notifyTimeout: opts.NotifyTimeout,
		log:           opts.Logger,
	}
	if e.notifyTimeout <= 0 {
		e.notifyTimeout = DefaultNotifyTimeout
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Execute carries out action. The host stop is issued first; the marker write
// and notification that follow a Restart are best effort and only logged on failure.
// A Stop leaves no marker so the launcher does not relaunch.
func (e *ActionExecutor) Execute(action schedule.Action, reason string) {
	e.log.Info("executing action", slog.String("action", action.String()), slog.String("reason", reason))
	e.host.Stop()

	if action != schedule.Restart {
		return
	}

	if err := e.marker.Write(reason); err != nil {
		e.log.Error("failed to save restart reason", slog.String("path", e.marker.Path()), slog.Any("error", err))
	}

	if e.notifier == nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		defer cancel()
		if err := e.notifier.Notify(ctx, reason); err != nil {
			e.log.Error("failed to send restart notification",
				slog.Any("error", shared.MarkKind(err, shared.KindNotification)))
		}
	}()
}

// Wait blocks until outstanding notifications finish or ctx is done.
func (e *ActionExecutor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		e.log.Warn("abandoning pending notifications", slog.Any("error", ctx.Err()))
		return ctx.Err()
	}
}
