package telegram

import (
	"context"

	"serverrestarter/internal/shared"
)

// Notifier posts restart notifications to a chat.
type Notifier struct {
	sender Sender
	chatID int64
}

// NewNotifier creates a Notifier for chatID.
func NewNotifier(s Sender, chatID int64) *Notifier {
	return &Notifier{sender: s, chatID: chatID}
}

// Notify implements restart.Notifier.
func (n *Notifier) Notify(ctx context.Context, reason string) error {
	if err := Reply(ctx, n.sender, n.chatID, "Restart requested: "+reason); err != nil {
		return shared.MarkKind(shared.Wrap(err, "telegram notify"), shared.KindNotification)
	}
	return nil
}
