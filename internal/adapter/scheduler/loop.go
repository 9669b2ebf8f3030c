package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval соответствует 20 тикам в секунду.
const DefaultInterval = 50 * time.Millisecond

// ErrStopped возвращается Do, если цикл уже остановлен.
var ErrStopped = errors.New("scheduler: loop stopped")

// TickFunc вызывается на каждом тике с текущим временем.
type TickFunc func(now time.Time)

// Hooks содержит необязательные хуки для наблюдаемости.
type Hooks struct {
	OnTick  func(now time.Time, duration time.Duration)
	OnPanic func(where string, recovered any)
}

// Config содержит конфигурацию цикла.
type Config struct {
	Interval time.Duration
	Tick     TickFunc
	Logger   *slog.Logger
	Hooks    Hooks
	// Now возвращает текущее время (для тестов, по умолчанию time.Now).
	Now func() time.Time
}

type call struct {
	fn   func()
	done chan struct{}
}

// Loop выполняет тики и команды в одной горутине.
type Loop struct {
	interval  time.Duration
	tick      TickFunc
	logger    *slog.Logger
	hooks     Hooks
	now       func() time.Time
	calls     chan call
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New создает цикл с background контекстом.
func New(cfg Config) *Loop {
	return NewWithContext(context.Background(), cfg)
}

// NewWithContext создает цикл, который остановится вместе с parentCtx.
func NewWithContext(parentCtx context.Context, cfg Config) *Loop {
	ctx, cancel := context.WithCancel(parentCtx)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	tick := cfg.Tick
	if tick == nil {
		tick = func(time.Time) {}
	}

	return &Loop{
		interval: interval,
		tick:     tick,
		logger:   logger.With("component", "tick-loop"),
		hooks:    cfg.Hooks,
		now:      now,
		calls:    make(chan call),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start запускает цикл. Повторные вызовы ничего не делают.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		l.logger.Info("starting tick loop", "interval", l.interval)
		l.wg.Add(1)
		go l.run()
	})
}

func (l *Loop) run() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.runTick(l.now())
		case c := <-l.calls:
			l.runCall(c)
		case <-l.ctx.Done():
			l.logger.Debug("tick loop stopped due to context cancellation")
			return
		}
	}
}

func (l *Loop) runTick(now time.Time) {
	defer l.recoverPanic("tick")
	start := time.Now()
	l.tick(now)
	if l.hooks.OnTick != nil {
		l.hooks.OnTick(now, time.Since(start))
	}
}

func (l *Loop) runCall(c call) {
	defer close(c.done)
	defer l.recoverPanic("call")
	c.fn()
}

func (l *Loop) recoverPanic(where string) {
	if r := recover(); r != nil {
		l.logger.Error("recovered panic in tick loop", "where", where, "panic", fmt.Sprint(r))
		if l.hooks.OnPanic != nil {
			l.hooks.OnPanic(where, r)
		}
	}
}

// Do выполняет fn в горутине цикла и ждет завершения.
// Возвращает ErrStopped, если цикл остановлен, или ошибку ctx.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case l.calls <- c:
	case <-l.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-c.done
	return nil
}

// Stop останавливает цикл и ждет завершения текущего тика.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.logger.Info("stopping tick loop")
		l.cancel()
	})
	l.wg.Wait()
}

// StopContext останавливает цикл с учетом дедлайна ctx.
func (l *Loop) StopContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Stop()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		l.logger.Warn("tick loop stop deadline exceeded, but shutdown will complete")
		<-done
		return ctx.Err()
	}
}

// IsRunning возвращает true, пока цикл не остановлен.
func (l *Loop) IsRunning() bool {
	select {
	case <-l.ctx.Done():
		return false
	default:
		return true
	}
}
