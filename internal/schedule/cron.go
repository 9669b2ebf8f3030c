package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"serverrestarter/internal/shared"
)

// unixParser accepts the five-field UNIX dialect plus descriptors.
// @every is rejected by ParseExpression: it counts seconds, not cron fields.
var unixParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Expression is a parsed cron expression.
type Expression struct {
	raw   string
	sched cron.Schedule
}

// ParseExpression parses expr in the UNIX cron dialect.
// Any parse failure is a *shared.ConfigurationError naming expr.
func ParseExpression(expr string) (Expression, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return Expression{}, shared.NewConfigurationError(fmt.Sprintf("cron %q", expr), fmt.Errorf("empty expression"))
	}
	if isEvery(trimmed) {
		return Expression{}, shared.NewConfigurationError(fmt.Sprintf("cron %q", expr), fmt.Errorf("@every intervals are not supported"))
	}
	sched, err := unixParser.Parse(trimmed)
	if err != nil {
		return Expression{}, shared.NewConfigurationError(fmt.Sprintf("cron %q", expr), err)
	}
	return Expression{raw: trimmed, sched: sched}, nil
}

func isEvery(expr string) bool {
	if strings.HasPrefix(expr, "TZ=") || strings.HasPrefix(expr, "CRON_TZ=") {
		_, expr, _ = strings.Cut(expr, " ")
		expr = strings.TrimSpace(expr)
	}
	return strings.HasPrefix(strings.ToLower(expr), "@every")
}

// String returns the expression as it was written.
func (e Expression) String() string { return e.raw }

// IsZero reports whether e was never parsed.
func (e Expression) IsZero() bool { return e.sched == nil }

// Next returns the earliest matching instant strictly after after.
// ok is false when the expression has no further occurrence.
func (e Expression) Next(after time.Time) (next time.Time, ok bool) {
	if e.sched == nil {
		return time.Time{}, false
	}
	next = e.sched.Next(after)
	if next.IsZero() || !next.After(after) {
		return time.Time{}, false
	}
	return next, true
}

// NextOccurrence parses expr and returns its next occurrence after after.
func NextOccurrence(expr string, after time.Time) (time.Time, bool, error) {
	e, err := ParseExpression(expr)
	if err != nil {
		return time.Time{}, false, err
	}
	next, ok := e.Next(after)
	return next, ok, nil
}
