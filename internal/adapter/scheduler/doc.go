// Package scheduler drives the restart controller at a fixed cadence.
//
// Loop owns a single goroutine. Ticks from a time.Ticker and calls submitted
// through Do are executed on that goroutine one at a time, so the state they
// touch needs no locking.
//
// Basic usage:
//
//	loop := scheduler.New(scheduler.Config{
//		Interval: 50 * time.Millisecond,
//		Tick:     controller.Tick,
//		Logger:   logger,
//	})
//	loop.Start()
//	defer loop.Stop()
//
//	err := loop.Do(ctx, func() {
//		controller.RestartNow("manual")
//	})
//
// The loop ensures that:
//   - Ticks and calls never overlap
//   - Panics in a tick or call are recovered and logged
//   - Context cancellation stops the loop
//   - Start/Stop operations are idempotent and thread-safe
//   - Graceful shutdown can be bounded with StopContext
package scheduler
