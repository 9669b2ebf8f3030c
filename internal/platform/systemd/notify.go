// Package systemd reports service state to systemd through sd_notify.
// Outside a systemd unit (no NOTIFY_SOCKET) every call is a no-op.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	log *slog.Logger
}

// New creates a Notifier.
func New(log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{log: log.With("component", "systemd")}
}

func (n *Notifier) send(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.log.Warn("sd_notify failed", slog.String("state", state), slog.Any("error", err))
		return false
	}
	return sent
}

// Ready tells systemd the service finished starting.
func (n *Notifier) Ready() bool { return n.send(daemon.SdNotifyReady) }

// Stopping tells systemd the service is shutting down.
func (n *Notifier) Stopping() bool { return n.send(daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(text string) bool { return n.send("STATUS=" + text) }

// Watchdog pings the systemd watchdog at half its timeout until ctx is done.
// alive is consulted before each ping; a false answer skips it so systemd
// can restart a wedged process. It returns at once when no watchdog is set.
func (n *Notifier) Watchdog(ctx context.Context, alive func() bool) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.log.Warn("watchdog settings invalid", slog.Any("error", err))
		return
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if alive == nil || alive() {
				n.send(daemon.SdNotifyWatchdog)
			} else {
				n.log.Warn("skipping watchdog ping, tick loop stalled")
			}
		}
	}
}
