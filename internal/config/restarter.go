// Package config loads process settings from the environment and the
// restarter file that lists scheduled actions.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"serverrestarter/internal/schedule"
	"serverrestarter/internal/shared"
)

// Restarter is the outcome of loading the restarter file:
// either *Loaded or Incomplete.
type Restarter interface {
	restarter()
}

// Loaded is a fully validated restarter file.
type Loaded struct {
	WebhookURL string
	Schedules  schedule.Set
}

// Incomplete means the restarter file was missing or rejected.
// Scheduling stays disabled and no webhook is sent.
type Incomplete struct {
	Err error
}

func (*Loaded) restarter()   {}
func (Incomplete) restarter() {}

type fileAction struct {
	Action  string `json:"action" validate:"required,oneof=Stop Restart"`
	Cron    string `json:"cron" validate:"required"`
	Message string `json:"message"`
}

// Both keys must be present; an empty webhook_url and an empty list are allowed.
type fileConfig struct {
	WebhookURL       *string      `json:"webhook_url"`
	ScheduledActions []fileAction `json:"scheduled_actions" validate:"required,dive"`
}

// LoadRestarter reads and validates the restarter file at path.
// It never fails: problems yield Incomplete carrying a configuration error.
func LoadRestarter(path string) Restarter {
	data, err := os.ReadFile(path)
	if err != nil {
		return Incomplete{Err: shared.NewConfigurationError(path, err)}
	}
	loaded, err := ParseRestarter(data)
	if err != nil {
		return Incomplete{Err: shared.Wrap(err, path)}
	}
	return loaded
}

// ParseRestarter decodes and validates the JSON restarter document.
func ParseRestarter(data []byte) (*Loaded, error) {
	var raw fileConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, shared.NewConfigurationError("restarter file", err)
	}
	if raw.WebhookURL == nil {
		return nil, shared.NewConfigurationError("restarter file", errors.New("missing webhook_url"))
	}
	if err := validate.Struct(raw); err != nil {
		return nil, shared.NewConfigurationError("restarter file", describeValidation(err))
	}
	if err := validate.Var(*raw.WebhookURL, "omitempty,url"); err != nil {
		return nil, shared.NewConfigurationError(fmt.Sprintf("webhook_url %q", *raw.WebhookURL), errors.New("not a valid URL"))
	}

	set := make(schedule.Set, 0, len(raw.ScheduledActions))
	for i, a := range raw.ScheduledActions {
		action, err := schedule.ParseAction(a.Action)
		if err != nil {
			return nil, shared.NewConfigurationError(fmt.Sprintf("scheduled_actions[%d].action %q", i, a.Action), err)
		}
		entry, err := schedule.NewEntry(action, a.Cron, a.Message)
		if err != nil {
			return nil, shared.NewConfigurationError(fmt.Sprintf("scheduled_actions[%d].cron %q", i, a.Cron), errors.Unwrap(err))
		}
		set = append(set, entry)
	}
	return &Loaded{WebhookURL: *raw.WebhookURL, Schedules: set}, nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.Join(msgs...)
}
