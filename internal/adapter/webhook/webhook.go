// Package webhook posts restart notices to a Discord-compatible webhook.
package webhook

import (
	"context"
	"log/slog"

	"serverrestarter/internal/platform/httpclient"
	"serverrestarter/internal/shared"
)

// UserAgent identifies the restarter to the webhook endpoint.
const UserAgent = "DiscordBot (https://github.com/serverrestarter/serverrestarter, v1)"

// Username is the display name of the notice author.
const Username = "Server"

// Payload is the JSON body sent to the webhook.
type Payload struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

// Notifier sends restart notices to a fixed webhook URL.
type Notifier struct {
	client *httpclient.Client
	url    string
	log    *slog.Logger
}

// New creates a Notifier. The client should carry UserAgent, see NewClient.
func New(client *httpclient.Client, url string, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{client: client, url: url, log: log}
}

// NewClient returns an http client configured for webhook delivery.
func NewClient(log *slog.Logger) *httpclient.Client {
	return httpclient.New(
		httpclient.WithLogger(log),
		httpclient.WithUserAgent(UserAgent),
	)
}

// Notify posts "Restart requested: <reason>". Every failure is a notification error.
func (n *Notifier) Notify(ctx context.Context, reason string) error {
	err := n.client.PostJSON(ctx, n.url, Payload{
		Content:  "Restart requested: " + reason,
		Username: Username,
	})
	if err != nil {
		return shared.MarkKind(shared.Wrap(err, "webhook"), shared.KindNotification)
	}
	n.log.Debug("webhook delivered")
	return nil
}
