package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serverrestarter/internal/schedule"
	"serverrestarter/internal/shared"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server_restarter.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRestarter_Valid(t *testing.T) {
	path := writeFile(t, `{
		"webhook_url": "https://discord.example/api/webhooks/1/abc",
		"scheduled_actions": [
			{"action": "Stop", "cron": "0 4 * * *", "message": "bye"},
			{"action": "Restart", "cron": "0 2 * * *"}
		]
	}`)

	r := LoadRestarter(path)
	loaded, ok := r.(*Loaded)
	require.True(t, ok, "got %#v", r)
	assert.Equal(t, "https://discord.example/api/webhooks/1/abc", loaded.WebhookURL)
	require.Len(t, loaded.Schedules, 2)
	assert.Equal(t, schedule.Stop, loaded.Schedules[0].Action)
	assert.Equal(t, "bye", loaded.Schedules[0].Message)
	assert.Equal(t, schedule.Restart, loaded.Schedules[1].Action)
	assert.Equal(t, schedule.DefaultMessage, loaded.Schedules[1].Message)

	next, ok := schedule.SelectNext(loaded.Schedules, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, schedule.Restart, next.Entry.Action)
}

func TestLoadRestarter_EmptyWebhookAndSchedules(t *testing.T) {
	r := LoadRestarter(writeFile(t, `{"webhook_url": "", "scheduled_actions": []}`))
	loaded, ok := r.(*Loaded)
	require.True(t, ok)
	assert.Empty(t, loaded.WebhookURL)
	assert.Empty(t, loaded.Schedules)
}

func TestLoadRestarter_MissingFile(t *testing.T) {
	r := LoadRestarter(filepath.Join(t.TempDir(), "absent.json"))
	inc, ok := r.(Incomplete)
	require.True(t, ok)
	assert.True(t, shared.IsConfiguration(inc.Err))
}

func TestLoadRestarter_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
		source  string
	}{
		{"not json", `{"webhook_url": `, "restarter file"},
		{"bad cron", `{"webhook_url": "", "scheduled_actions": [{"action": "Restart", "cron": "0 2 * *"}]}`, `scheduled_actions[0].cron "0 2 * *"`},
		{"cron out of range", `{"webhook_url": "", "scheduled_actions": [{"action": "Stop", "cron": "0 0 * * *"}, {"action": "Restart", "cron": "99 * * * *"}]}`, `scheduled_actions[1].cron "99 * * * *"`},
		{"unknown action", `{"webhook_url": "", "scheduled_actions": [{"action": "Reboot", "cron": "0 2 * * *"}]}`, "restarter file"},
		{"missing cron", `{"webhook_url": "", "scheduled_actions": [{"action": "Stop"}]}`, "restarter file"},
		{"bad webhook", `{"webhook_url": "not a url", "scheduled_actions": []}`, `webhook_url "not a url"`},
		{"missing webhook_url", `{"scheduled_actions": []}`, "restarter file"},
		{"missing scheduled_actions", `{"webhook_url": ""}`, "restarter file"},
		{"null scheduled_actions", `{"webhook_url": "", "scheduled_actions": null}`, "restarter file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := LoadRestarter(writeFile(t, tt.content))
			inc, ok := r.(Incomplete)
			require.True(t, ok, "got %#v", r)
			require.Error(t, inc.Err)
			assert.True(t, shared.IsConfiguration(inc.Err))

			var ce *shared.ConfigurationError
			require.ErrorAs(t, inc.Err, &ce)
			assert.Equal(t, tt.source, ce.Source)
		})
	}
}

func TestParseRestarter_IgnoresUnknownFields(t *testing.T) {
	loaded, err := ParseRestarter([]byte(`{"webhook_url": "", "extra": 1, "scheduled_actions": [{"action": "Restart", "cron": "@daily", "note": "x"}]}`))
	require.NoError(t, err)
	require.Len(t, loaded.Schedules, 1)
	assert.Equal(t, "@daily", loaded.Schedules[0].Expr.String())
}
