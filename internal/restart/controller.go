// Package restart decides when the host is stopped or restarted and carries the action out.
package restart

import (
	"log/slog"
	"time"

	"serverrestarter/internal/schedule"
)

const (
	// DefaultCheckEvery is how many ticks pass between two schedule checks.
	DefaultCheckEvery = 20
	// DefaultIdleGrace is how long the host must stay empty before a pending restart runs.
	DefaultIdleGrace = 10 * time.Second

	// ScheduledPrefix is prepended to the reason of a restart that waited for idle.
	ScheduledPrefix = "[SCHEDULED] "
	// IdleAlert is broadcast to users when a restart is scheduled for idle time.
	IdleAlert = "[ALERT] Server will restart when no one is online."
)

// Host is the server process under control.
type Host interface {
	ActiveSessions() int
	// Stop asks the host to shut down gracefully. It must not block.
	Stop()
	Broadcast(msg string)
}

// Executor performs an action. It never fails outward.
type Executor interface {
	Execute(action schedule.Action, reason string)
}

// Mode is the scheduling mode of a Controller.
type Mode int

const (
	// Disabled means no scheduled event exists; schedule checks never run.
	Disabled Mode = iota
	// Armed means a scheduled event is waiting for its time.
	Armed
	// Fired means an action was executed, scheduled or manual. The host is
	// going down and the controller never calls the executor again.
	Fired
)

func (m Mode) String() string {
	switch m {
	case Armed:
		return "armed"
	case Fired:
		return "fired"
	default:
		return "disabled"
	}
}

// Options configures a Controller.
type Options struct {
	Host     Host
	Executor Executor
	// Next is the event selected at startup; nil leaves the controller Disabled.
	Next       *schedule.NextEvent
	CheckEvery int
	IdleGrace  time.Duration
	Logger     *slog.Logger
}

// State is a read-only view of a Controller.
type State struct {
	Mode           Mode
	Next           *schedule.NextEvent
	PendingReason  string
	ManualPending  bool
	SessionsActive bool
	LastActive     time.Time
	Ticks          uint64
}

// Controller is the tick-driven restart state machine.
//
// It is not safe for concurrent use: ticks and commands must be delivered
// from a single goroutine (see adapter/scheduler.Loop).
type Controller struct {
	host       Host
	exec       Executor
	log        *slog.Logger
	checkEvery int
	idleGrace  time.Duration

	mode    Mode
	next    schedule.NextEvent
	hasNext bool
	counter int

	pending        bool
	pendingReason  string
	sessionsActive bool
	lastActive     time.Time
	ticks          uint64
}

// NewController creates a Controller. It is Armed when opts.Next is set.
func NewController(opts Options) *Controller {
	c := &Controller{
		host:       opts.Host,
		exec:       opts.Executor,
		log:        opts.Logger,
		checkEvery: opts.CheckEvery,
		idleGrace:  opts.IdleGrace,
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.checkEvery <= 0 {
		c.checkEvery = DefaultCheckEvery
	}
	if c.idleGrace <= 0 {
		c.idleGrace = DefaultIdleGrace
	}
	if opts.Next != nil {
		c.mode = Armed
		c.next = *opts.Next
		c.hasNext = true
		c.log.Info("scheduled action armed",
			slog.String("action", c.next.Entry.Action.String()),
			slog.String("cron", c.next.Entry.Expr.String()),
			slog.Time("fire_at", c.next.FireAt))
	} else {
		c.log.Info("no scheduled action, schedule checks disabled")
	}
	return c
}

// Tick advances the state machine to now.
func (c *Controller) Tick(now time.Time) {
	c.ticks++

	if c.host.ActiveSessions() > 0 {
		c.sessionsActive = true
		c.lastActive = now
	} else {
		c.sessionsActive = false
		if c.pending && now.Sub(c.lastActive) >= c.idleGrace {
			reason := ScheduledPrefix + c.pendingReason
			c.log.Info("host idle, running pending restart", slog.String("reason", reason))
			c.execute(schedule.Restart, reason)
			return
		}
	}

	if c.mode != Armed {
		return
	}
	c.counter = (c.counter + 1) % c.checkEvery
	if c.counter != 0 || now.Before(c.next.FireAt) {
		return
	}

	entry := c.next.Entry
	c.log.Info("scheduled action due",
		slog.String("action", entry.Action.String()),
		slog.Time("fire_at", c.next.FireAt))
	c.execute(entry.Action, entry.Message)
}

// execute runs the one action this controller will ever run.
func (c *Controller) execute(action schedule.Action, reason string) {
	c.mode = Fired
	c.pending = false
	c.pendingReason = ""
	c.exec.Execute(action, reason)
}

// Done reports whether an action was already executed.
func (c *Controller) Done() bool { return c.mode == Fired }

// RestartNow restarts immediately, whatever the session count.
// It is ignored once an action has run.
func (c *Controller) RestartNow(reason string) {
	if c.Done() {
		c.log.Warn("restart ignored, an action already ran", slog.String("reason", reason))
		return
	}
	c.log.Info("manual restart", slog.String("reason", reason))
	c.execute(schedule.Restart, reason)
}

// ScheduleWhenIdle asks for a restart once the host has been idle for the grace period.
// A reason that was already pending is returned with alreadyPending set; it is
// replaced by the new one regardless.
// It is ignored once an action has run.
func (c *Controller) ScheduleWhenIdle(reason string) (previous string, alreadyPending bool) {
	if c.Done() {
		c.log.Warn("schedule ignored, an action already ran", slog.String("reason", reason))
		return "", false
	}
	if c.pending {
		previous, alreadyPending = c.pendingReason, true
		c.log.Warn("restart already scheduled, replacing reason",
			slog.String("previous", previous),
			slog.String("reason", reason))
	}
	c.host.Broadcast(IdleAlert)
	c.pending = true
	c.pendingReason = reason
	c.log.Info("restart scheduled for idle", slog.String("reason", reason))
	return previous, alreadyPending
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	s := State{
		Mode:           c.mode,
		PendingReason:  c.pendingReason,
		ManualPending:  c.pending,
		SessionsActive: c.sessionsActive,
		LastActive:     c.lastActive,
		Ticks:          c.ticks,
	}
	if c.hasNext {
		next := c.next
		s.Next = &next
	}
	return s
}
