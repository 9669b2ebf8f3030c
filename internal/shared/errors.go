// Package shared contains the error taxonomy used across the restarter.
package shared

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for every failure class the restarter distinguishes.
// None of them is allowed to take the host process down: callers log and degrade.
var (
	// ErrConfiguration marks a malformed restarter file or cron expression.
	ErrConfiguration = errors.New("configuration error")

	// ErrIO marks a failed local file operation, e.g. the restart reason marker.
	ErrIO = errors.New("io error")

	// ErrNotification marks a failed outbound notification of any kind.
	ErrNotification = errors.New("notification failed")

	// ErrPrecondition marks a missing external precondition such as the launcher flag.
	ErrPrecondition = errors.New("precondition not met")

	// ErrValidation marks invalid user input on a command surface.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks a command issued without elevated permission.
	ErrUnauthorized = errors.New("unauthorized")
)

// Kind represents a category of error for easier classification and handling.
type Kind int

const (
	// KindUnknown represents an unclassified error
	KindUnknown Kind = iota
	// KindConfiguration represents configuration errors
	KindConfiguration
	// KindIO represents local file errors
	KindIO
	// KindNotification represents webhook and chat delivery errors
	KindNotification
	// KindPrecondition represents missing environment preconditions
	KindPrecondition
	// KindValidation represents bad command input
	KindValidation
	// KindUnauthorized represents missing permission
	KindUnauthorized
	// KindCanceled represents context cancellation
	KindCanceled
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "Configuration"
	case KindIO:
		return "IO"
	case KindNotification:
		return "Notification"
	case KindPrecondition:
		return "Precondition"
	case KindValidation:
		return "Validation"
	case KindUnauthorized:
		return "Unauthorized"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// kindOrder is the deterministic classification order used by KindOf.
var kindOrder = []struct {
	kind Kind
	err  error
}{
	{KindConfiguration, ErrConfiguration},
	{KindPrecondition, ErrPrecondition},
	{KindUnauthorized, ErrUnauthorized},
	{KindValidation, ErrValidation},
	{KindNotification, ErrNotification},
	{KindIO, ErrIO},
}

// KindOf classifies err by walking its chain against the known sentinels.
// Cancellation wins over every other kind so shutdown noise is easy to filter.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// HasKind reports whether KindOf(err) equals kind.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// SentinelOf returns the sentinel error for kind, or nil for KindUnknown and KindCanceled.
func SentinelOf(kind Kind) error {
	for _, k := range kindOrder {
		if k.kind == kind {
			return k.err
		}
	}
	return nil
}

// MarkKind wraps err with the sentinel of kind, keeping err reachable via errors.Is.
// Marking an error that already carries kind returns it unchanged.
//
//	if err := os.WriteFile(path, data, 0o644); err != nil {
//	    return shared.MarkKind(err, shared.KindIO)
//	}
func MarkKind(err error, kind Kind) error {
	sentinel := SentinelOf(kind)
	if err == nil {
		return sentinel
	}
	if sentinel == nil || KindOf(err) == kind {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Wrap wraps an error with additional context.
// It returns a new error that formats as "context: err".
// If err is nil, Wrap returns nil.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// ConfigurationError reports which piece of configuration was rejected.
type ConfigurationError struct {
	// Source names the rejected item, e.g. `scheduled_actions[1].cron "61 * * * *"`.
	Source string
	Err    error
}

// NewConfigurationError builds a ConfigurationError for source.
func NewConfigurationError(source string, err error) *ConfigurationError {
	return &ConfigurationError{Source: source, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("configuration error: %s", e.Source)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Source, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfiguration) hold for every ConfigurationError.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsIO reports whether err is a local file error.
func IsIO(err error) bool { return errors.Is(err, ErrIO) }

// IsNotification reports whether err is a notification delivery error.
func IsNotification(err error) bool { return errors.Is(err, ErrNotification) }

// IsPrecondition reports whether err is a missing precondition.
func IsPrecondition(err error) bool { return errors.Is(err, ErrPrecondition) }

// IsUnauthorized reports whether err is a permission failure.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
