// Package command parses and runs the restarter console commands:
//
//	restart now [reason]
//	restart schedule [reason]
//	restart status
//
// Every surface (console, Telegram, HTTP) goes through Handler so that
// commands reach the controller on the tick goroutine.
package command

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"serverrestarter/internal/restart"
	"serverrestarter/internal/shared"
)

// Kind is the restart subcommand.
type Kind int

const (
	Now Kind = iota + 1
	Schedule
	Status
)

func (k Kind) String() string {
	switch k {
	case Now:
		return "now"
	case Schedule:
		return "schedule"
	case Status:
		return "status"
	default:
		return "unknown"
	}
}

// Default reasons used when the operator gives none.
const (
	DefaultNowReason      = "No reason specified"
	DefaultScheduleReason = "No reason specified!"
)

// Usage is shown for malformed restart commands.
const Usage = "usage: restart now [reason] | restart schedule [reason] | restart status"

// ErrNotCommand is returned by Parse for lines that are not restart commands.
var ErrNotCommand = errors.New("not a restart command")

// ErrDisabled is returned while the restarter runs without the launcher.
var ErrDisabled = shared.MarkKind(errors.New("server restarter is disabled: not started by the launcher"), shared.KindPrecondition)

// ErrShuttingDown is returned once a restart or stop is already under way.
var ErrShuttingDown = shared.MarkKind(errors.New("server is already stopping"), shared.KindPrecondition)

// Command is a parsed restart command.
type Command struct {
	Kind   Kind
	Reason string
}

// Parse reads a console line. A leading slash is accepted so chat
// surfaces can pass "/restart now" as is.
func Parse(line string) (Command, error) {
	name, rest := cutWord(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if !strings.EqualFold(name, "restart") {
		return Command{}, ErrNotCommand
	}
	sub, reason := cutWord(rest)
	if sub == "" {
		return Command{}, shared.MarkKind(errors.New(Usage), shared.KindValidation)
	}
	switch strings.ToLower(sub) {
	case "now":
		return New(Now, reason), nil
	case "schedule":
		return New(Schedule, reason), nil
	case "status":
		return Command{Kind: Status}, nil
	default:
		return Command{}, shared.MarkKind(fmt.Errorf("unknown subcommand %q; %s", sub, Usage), shared.KindValidation)
	}
}

// cutWord splits off the first whitespace-delimited word. rest keeps its
// inner whitespace untouched.
func cutWord(s string) (word, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// New builds a command, filling in the default reason for kind.
func New(kind Kind, reason string) Command {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		switch kind {
		case Now:
			reason = DefaultNowReason
		case Schedule:
			reason = DefaultScheduleReason
		}
	}
	return Command{Kind: kind, Reason: reason}
}

// Result is the outcome of a command.
type Result struct {
	Kind Kind
	// Message is the feedback line for the operator.
	Message string
	// Previous holds a pending reason that a schedule command replaced.
	Previous string
	Replaced bool
	State    restart.State
}

// Lines renders the result for text surfaces. Warnings come first.
func (r Result) Lines() []string {
	var lines []string
	if r.Replaced {
		lines = append(lines, "Restart already scheduled with reason: "+r.Previous)
	}
	if r.Message != "" {
		lines = append(lines, r.Message)
	}
	if r.Kind == Status {
		lines = append(lines, FormatState(r.State)...)
	}
	return lines
}

// FormatState describes a controller state in a few lines.
func FormatState(s restart.State) []string {
	lines := []string{"Scheduler: " + s.Mode.String()}
	if s.Next != nil {
		lines = append(lines, fmt.Sprintf("Next action: %s at %s (%s)",
			s.Next.Entry.Action, s.Next.FireAt.Format(time.RFC3339), s.Next.Entry.Expr))
	}
	if s.ManualPending {
		lines = append(lines, "Pending restart: "+s.PendingReason)
	} else {
		lines = append(lines, "Pending restart: none")
	}
	if s.SessionsActive {
		lines = append(lines, "Sessions: active")
	} else if !s.LastActive.IsZero() {
		lines = append(lines, "Sessions: idle since "+s.LastActive.Format(time.RFC3339))
	} else {
		lines = append(lines, "Sessions: idle")
	}
	return lines
}
