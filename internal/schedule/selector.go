package schedule

import (
	"fmt"
	"time"

	"serverrestarter/internal/shared"
)

// DefaultMessage is used for entries configured without a message.
const DefaultMessage = "Scheduled restart"

// Action is what a scheduled entry does to the host.
type Action int

const (
	// Stop shuts the host down for good.
	Stop Action = iota
	// Restart stops the host and leaves a reason for the launcher to relaunch it.
	Restart
)

func (a Action) String() string {
	switch a {
	case Stop:
		return "Stop"
	case Restart:
		return "Restart"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction maps the configuration names "Stop" and "Restart" to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "Stop":
		return Stop, nil
	case "Restart":
		return Restart, nil
	}
	return 0, shared.NewConfigurationError(fmt.Sprintf("action %q", s), fmt.Errorf("want Stop or Restart"))
}

// Entry is one configured schedule line.
type Entry struct {
	Action  Action
	Expr    Expression
	Message string
}

// NewEntry parses cronExpr and builds an Entry. An empty message becomes DefaultMessage.
func NewEntry(action Action, cronExpr, message string) (Entry, error) {
	expr, err := ParseExpression(cronExpr)
	if err != nil {
		return Entry{}, err
	}
	if message == "" {
		message = DefaultMessage
	}
	return Entry{Action: action, Expr: expr, Message: message}, nil
}

// Set is the ordered list of entries loaded at startup.
type Set []Entry

// NextEvent is the soonest firing entry relative to some reference time.
type NextEvent struct {
	Entry  Entry
	FireAt time.Time
}

// SelectNext returns the entry of set that fires soonest after now.
// On an exact tie the entry listed first wins. ok is false when set is empty
// or no entry has a future occurrence.
func SelectNext(set Set, now time.Time) (NextEvent, bool) {
	var (
		best  NextEvent
		found bool
	)
	for _, entry := range set {
		at, ok := entry.Expr.Next(now)
		if !ok {
			continue
		}
		if !found || at.Before(best.FireAt) {
			best = NextEvent{Entry: entry, FireAt: at}
			found = true
		}
	}
	return best, found
}
