package host

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"sync/atomic"
	"time"

	"serverrestarter/internal/platform/httpclient"
)

// SessionCounter reports how many users are connected to the server.
// Implementations must answer without blocking.
type SessionCounter interface {
	ActiveSessions() int
}

// LogCounter tracks sessions by matching join and leave lines in server output.
type LogCounter struct {
	join  *regexp.Regexp
	leave *regexp.Regexp
	count atomic.Int64
}

// NewLogCounter compiles the join and leave patterns.
func NewLogCounter(joinPattern, leavePattern string) (*LogCounter, error) {
	join, err := regexp.Compile(joinPattern)
	if err != nil {
		return nil, err
	}
	leave, err := regexp.Compile(leavePattern)
	if err != nil {
		return nil, err
	}
	return &LogCounter{join: join, leave: leave}, nil
}

// Observe feeds one line of server output.
func (c *LogCounter) Observe(line string) {
	switch {
	case c.join.MatchString(line):
		c.count.Add(1)
	case c.leave.MatchString(line):
		for {
			n := c.count.Load()
			if n <= 0 || c.count.CompareAndSwap(n, n-1) {
				return
			}
		}
	}
}

// Reset forgets every session, e.g. after the server exits.
func (c *LogCounter) Reset() { c.count.Store(0) }

// ActiveSessions implements SessionCounter.
func (c *LogCounter) ActiveSessions() int { return int(c.count.Load()) }

// Probe polls a status URL returning {"sessions": n} and caches the answer.
type Probe struct {
	client   *httpclient.Client
	url      string
	interval time.Duration
	log      *slog.Logger
	count    atomic.Int64
}

const (
	probeRetries = 2
	probeBackoff = 500 * time.Millisecond
)

// NewProbeClient returns an http client for status polling. Failed polls are
// retried, and logs keep the status path since it carries no secret.
func NewProbeClient(log *slog.Logger) *httpclient.Client {
	return httpclient.New(
		httpclient.WithLogger(log),
		httpclient.WithRetries(probeRetries, probeBackoff),
		httpclient.WithURLRedactor(func(u *url.URL) string { return u.Redacted() }),
	)
}

// NewProbe creates a Probe. Call Run to start polling.
func NewProbe(client *httpclient.Client, url string, interval time.Duration, log *slog.Logger) *Probe {
	if log == nil {
		log = slog.Default()
	}
	return &Probe{client: client, url: url, interval: interval, log: log}
}

type probeResponse struct {
	Sessions *int `json:"sessions"`
	Online   *int `json:"online"`
}

// Poll fetches the status once and updates the cached count.
// On failure the previous count is kept.
func (p *Probe) Poll(ctx context.Context) error {
	var resp probeResponse
	if err := p.client.GetJSON(ctx, p.url, &resp); err != nil {
		return err
	}
	switch {
	case resp.Sessions != nil:
		p.count.Store(int64(*resp.Sessions))
	case resp.Online != nil:
		p.count.Store(int64(*resp.Online))
	}
	return nil
}

// Run polls until ctx is done.
func (p *Probe) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn("session probe failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ActiveSessions implements SessionCounter.
func (p *Probe) ActiveSessions() int { return int(p.count.Load()) }

// MaxCounter reports the highest count among several counters.
type MaxCounter []SessionCounter

// ActiveSessions implements SessionCounter.
func (m MaxCounter) ActiveSessions() int {
	best := 0
	for _, c := range m {
		if n := c.ActiveSessions(); n > best {
			best = n
		}
	}
	return best
}
