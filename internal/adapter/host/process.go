// Package host runs the supervised server process and exposes what the
// restart controller needs from it: session count, graceful stop and broadcast.
package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// ProcessOptions configures a Process.
type ProcessOptions struct {
	Command []string
	Dir     string
	// StopCommand is written to stdin to stop the server; empty sends SIGTERM instead.
	StopCommand string
	// BroadcastFormat turns a message into a console command, e.g. "say %s".
	// Empty disables broadcasts.
	BroadcastFormat string
	Sessions        SessionCounter
	// LineObserver receives every line the server prints, e.g. a LogCounter.
	LineObserver func(line string)
	// OnExit runs once the server has exited and its output is drained.
	OnExit func()
	Stdout io.Writer
	Logger *slog.Logger
}

// Process is a supervised server process.
type Process struct {
	opts  ProcessOptions
	log   *slog.Logger
	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu       sync.Mutex
	stopOnce sync.Once
	done     chan struct{}
	err      error
}

// NewProcess creates a Process. Nothing runs until Start.
func NewProcess(opts ProcessOptions) *Process {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Process{opts: opts, log: opts.Logger.With("component", "host"), done: make(chan struct{})}
}

// Start launches the server. It ends only through Stop or by exiting on its own.
func (p *Process) Start() error {
	if len(p.opts.Command) == 0 {
		return errors.New("host: empty server command")
	}
	cmd := exec.Command(p.opts.Command[0], p.opts.Command[1:]...)
	cmd.Dir = p.opts.Dir
	cmd.Env = os.Environ()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("host: start %q: %w", p.opts.Command[0], err)
	}
	p.cmd = cmd
	p.stdin = stdin
	p.log.Info("server started", slog.Int("pid", cmd.Process.Pid), slog.Any("command", p.opts.Command))

	copied := make(chan struct{})
	go func() {
		defer close(copied)
		p.pump(pr)
	}()
	go func() {
		err := cmd.Wait()
		_ = pw.Close()
		<-copied
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		p.log.Info("server exited", slog.Any("error", err))
		if p.opts.OnExit != nil {
			p.opts.OnExit()
		}
		close(p.done)
	}()
	return nil
}

func (p *Process) pump(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		_, _ = fmt.Fprintln(p.opts.Stdout, line)
		if p.opts.LineObserver != nil {
			p.opts.LineObserver(line)
		}
	}
	// keep draining so the child never blocks on a full pipe
	_, _ = io.Copy(p.opts.Stdout, r)
}

// ActiveSessions reports connected users; zero without a counter.
func (p *Process) ActiveSessions() int {
	if p.opts.Sessions == nil {
		return 0
	}
	return p.opts.Sessions.ActiveSessions()
}

// Stop asks the server to shut down gracefully. It returns at once and is safe to call repeatedly.
func (p *Process) Stop() {
	p.stopOnce.Do(func() {
		if p.cmd == nil {
			return
		}
		if p.opts.StopCommand != "" {
			p.log.Info("stopping server", slog.String("command", p.opts.StopCommand))
			err := p.Send(p.opts.StopCommand)
			if err == nil {
				return
			}
			p.log.Warn("stop command failed, sending SIGTERM", slog.Any("error", err))
		}
		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.log.Error("failed to signal server", slog.Any("error", err))
		}
	})
}

// Broadcast shows msg to connected users through the server console.
func (p *Process) Broadcast(msg string) {
	if p.opts.BroadcastFormat == "" {
		return
	}
	if err := p.Send(fmt.Sprintf(p.opts.BroadcastFormat, msg)); err != nil {
		p.log.Warn("broadcast failed", slog.Any("error", err))
	}
}

// Send writes one line to the server console.
func (p *Process) Send(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stdin == nil {
		return errors.New("host: server not started")
	}
	select {
	case <-p.done:
		return errors.New("host: server exited")
	default:
	}
	_, err := io.WriteString(p.stdin, line+"\n")
	return err
}

// Done is closed once the server has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the server exits or ctx is done and returns the exit error.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
