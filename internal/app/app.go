// Package app wires the restarter: configuration, logging, the supervised
// server, the restart controller and the command surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"serverrestarter/internal/adapter/host"
	"serverrestarter/internal/adapter/httpapi"
	"serverrestarter/internal/adapter/scheduler"
	"serverrestarter/internal/adapter/telegram"
	"serverrestarter/internal/adapter/telegram/handlers"
	"serverrestarter/internal/adapter/telegram/middleware"
	"serverrestarter/internal/adapter/webhook"
	"serverrestarter/internal/command"
	"serverrestarter/internal/config"
	"serverrestarter/internal/platform/logger"
	"serverrestarter/internal/platform/systemd"
	"serverrestarter/internal/restart"
	"serverrestarter/internal/schedule"
	"serverrestarter/internal/shared"
)

const (
	shutdownTimeout = 30 * time.Second
	notifyDrain     = 10 * time.Second
	stallAfter      = 5 * time.Second
)

// ErrNoLauncher is logged when the process was not started by the launcher.
var ErrNoLauncher = shared.MarkKind(errors.New("SERVER_LAUNCHER is not set to true; the restarter cannot relaunch the server"), shared.KindPrecondition)

// App wires application components.
type App struct {
	cfg      config.Config
	log      *slog.Logger
	executor *restart.ActionExecutor
	loop     *scheduler.Loop
	lastTick atomic.Int64
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "serverrestarter",
	})
	return &App{cfg: cfg, log: log}, nil
}

// Run starts the server and blocks until it exits or a signal arrives.
func (a *App) Run() error {
	defer func() { _ = logger.Close(a.log) }()
	a.log.Info("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if reason, ok, err := restart.ReadMarker(a.cfg.MarkerFile); err != nil {
		a.log.Warn("cannot read restart reason", slog.Any("error", err))
	} else if ok {
		a.log.Info("previous run ended with a restart", slog.String("reason", reason))
	}

	counter, err := host.NewLogCounter(a.cfg.Server.JoinPattern, a.cfg.Server.LeavePattern)
	if err != nil {
		return shared.MarkKind(shared.Wrap(err, "session patterns"), shared.KindConfiguration)
	}
	sessions := host.MaxCounter{counter}
	if a.cfg.Server.ProbeURL != "" {
		probe := host.NewProbe(host.NewProbeClient(a.log), a.cfg.Server.ProbeURL, a.cfg.Server.ProbeInterval, a.log)
		go probe.Run(ctx)
		sessions = append(sessions, probe)
	}

	proc := host.NewProcess(host.ProcessOptions{
		Command:         a.cfg.Server.Command,
		Dir:             a.cfg.Server.Dir,
		StopCommand:     a.cfg.Server.StopCommand,
		BroadcastFormat: a.cfg.Server.BroadcastFormat,
		Sessions:        sessions,
		LineObserver:    counter.Observe,
		OnExit:          counter.Reset,
		Logger:          a.log,
	})

	// The bot is built before the command handler because the executor
	// needs its sender for notifications; route is bound afterwards.
	var (
		tg    *telegram.Bot
		route telegram.HandlerFunc
	)
	if a.cfg.Telegram.Token != "" {
		tg, err = telegram.NewBot(a.cfg.Telegram.Token, func(ctx context.Context, s telegram.Sender, upd *telegram.Update) {
			route(ctx, s, upd)
		}, a.log)
		if err != nil {
			return shared.Wrap(err, "telegram")
		}
	}

	if err := proc.Start(); err != nil {
		return err
	}

	sd := systemd.New(a.log)
	cmds, loop := a.scheduling(ctx, proc, tg)
	sd.Ready()
	sd.Status(statusLine(cmds))
	go sd.Watchdog(ctx, a.alive)
	if tg != nil {
		acl := middleware.NewACL(a.cfg.Telegram.AllowedIDs, a.log)
		rate := middleware.NewRateLimiter(time.Second)
		route = middleware.Chain(handlers.NewRouter(cmds, a.log).Handle, rate.Middleware, acl.Middleware)
		go tg.Run(ctx)
	}
	if a.cfg.HTTP.Addr != "" {
		srv := httpapi.NewServer(a.cfg.HTTP.Addr, httpapi.Options{Commands: cmds, Token: a.cfg.HTTP.AdminToken, Logger: a.log})
		go func() {
			if err := srv.Run(ctx); err != nil {
				a.log.Error("admin api failed", slog.Any("error", err))
			}
		}()
	}
	console := &command.Console{Handler: cmds, Forward: proc.Send, Out: os.Stderr, Logger: a.log}
	go func() {
		if err := console.Run(ctx, os.Stdin); err != nil {
			a.log.Warn("console input closed", slog.Any("error", err))
		}
	}()

	select {
	case <-proc.Done():
	case <-ctx.Done():
		a.log.Info("shutdown requested, stopping server")
		proc.Stop()
	}
	sd.Stopping()

	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	exitErr := proc.Wait(waitCtx)
	if loop != nil {
		if err := loop.StopContext(waitCtx); err != nil {
			a.log.Warn("tick loop slow to stop", slog.Any("error", err))
		}
	}
	stop()
	if exec := a.executor; exec != nil {
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), notifyDrain)
		defer cancelDrain()
		if err := exec.Wait(drainCtx); err != nil {
			a.log.Warn("notifications still in flight at exit", slog.Any("error", err))
		}
	}
	a.log.Info("stopped")
	if errors.Is(exitErr, context.DeadlineExceeded) {
		return fmt.Errorf("server did not exit within %s", shutdownTimeout)
	}
	return nil
}

// scheduling builds the restart controller and its tick loop. Without the
// launcher flag or a usable restarter file the controller is not armed;
// without the flag commands are refused as well.
func (a *App) scheduling(ctx context.Context, proc *host.Process, tg *telegram.Bot) (*command.Handler, *scheduler.Loop) {
	if !a.cfg.Launcher {
		a.log.Warn("**********************************************************")
		a.log.Warn("server restarter disabled", slog.Any("error", ErrNoLauncher))
		a.log.Warn("start the server through the launcher to enable restarts")
		a.log.Warn("**********************************************************")
		return command.NewHandler(nil, nil, a.log), nil
	}

	var (
		next       *schedule.NextEvent
		webhookURL string
	)
	switch r := config.LoadRestarter(a.cfg.RestarterFile).(type) {
	case *config.Loaded:
		webhookURL = r.WebhookURL
		if ev, ok := schedule.SelectNext(r.Schedules, time.Now()); ok {
			next = &ev
		}
		a.log.Info("restarter file loaded",
			slog.Int("schedules", len(r.Schedules)),
			slog.Bool("webhook", webhookURL != ""))
	case config.Incomplete:
		a.log.Error("restarter file rejected, scheduled actions disabled", slog.Any("error", r.Err))
	}

	var notifiers restart.Notifiers
	if webhookURL != "" {
		notifiers = append(notifiers, webhook.New(webhook.NewClient(a.log), webhookURL, a.log))
	}
	if tg != nil && a.cfg.Telegram.NotifyChatID != 0 {
		notifiers = append(notifiers, telegram.NewNotifier(tg.Sender(), a.cfg.Telegram.NotifyChatID))
	}
	opts := restart.ExecutorOptions{Host: proc, MarkerPath: a.cfg.MarkerFile, Logger: a.log}
	if len(notifiers) > 0 {
		opts.Notifier = notifiers
	}
	a.executor = restart.NewExecutor(opts)

	ctrl := restart.NewController(restart.Options{
		Host:       proc,
		Executor:   a.executor,
		Next:       next,
		CheckEvery: a.cfg.Tick.CheckEvery,
		IdleGrace:  a.cfg.Tick.IdleGrace,
		Logger:     a.log,
	})
	loop := scheduler.NewWithContext(ctx, scheduler.Config{
		Interval: a.cfg.Tick.Interval,
		Tick:     ctrl.Tick,
		Logger:   a.log,
		Hooks: scheduler.Hooks{
			OnTick: func(now time.Time, _ time.Duration) { a.lastTick.Store(now.UnixNano()) },
		},
	})
	loop.Start()
	a.loop = loop
	return command.NewHandler(loop, ctrl, a.log), loop
}

// alive reports whether the tick loop is running and ticked recently.
// Without a loop there is nothing to stall.
func (a *App) alive() bool {
	if a.loop != nil && !a.loop.IsRunning() {
		return false
	}
	last := a.lastTick.Load()
	if last == 0 {
		return true
	}
	return time.Since(time.Unix(0, last)) < stallAfter
}

func statusLine(cmds *command.Handler) string {
	if !cmds.Enabled() {
		return "server running, restarter disabled"
	}
	return "server running, restarter active"
}
