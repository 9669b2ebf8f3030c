package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serverrestarter/internal/shared"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir()) // keep a developer .env out of the test
	t.Setenv("SERVER_COMMAND", "java -jar server.jar nogui")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", c.Env)
	assert.False(t, c.Launcher)
	assert.Equal(t, "config/server_restarter.json", c.RestarterFile)
	assert.Equal(t, ".restart_reason", c.MarkerFile)
	assert.Equal(t, 50*time.Millisecond, c.Tick.Interval)
	assert.Equal(t, 20, c.Tick.CheckEvery)
	assert.Equal(t, 10*time.Second, c.Tick.IdleGrace)
	assert.Equal(t, []string{"java", "-jar", "server.jar", "nogui"}, c.Server.Command)
	assert.Equal(t, "stop", c.Server.StopCommand)
	assert.Equal(t, "say %s", c.Server.BroadcastFormat)
	assert.Equal(t, "info", c.Log.ConsoleLevel)
	assert.Equal(t, "debug", c.Log.FileLevel)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SERVER_LAUNCHER", "true")
	t.Setenv("TICK_INTERVAL", "1s")
	t.Setenv("SCHEDULE_CHECK_TICKS", "5")
	t.Setenv("IDLE_GRACE", "30s")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("ADMIN_TOKEN", "s3cret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ALLOWED_IDS", "1, 2,3")
	t.Setenv("TELEGRAM_NOTIFY_CHAT_ID", "-100500")
	t.Setenv("LOG_CONSOLE_LEVEL", "WARN")

	c, err := Load()
	require.NoError(t, err)
	assert.True(t, c.Launcher)
	assert.Equal(t, time.Second, c.Tick.Interval)
	assert.Equal(t, 5, c.Tick.CheckEvery)
	assert.Equal(t, 30*time.Second, c.Tick.IdleGrace)
	assert.Equal(t, []int64{1, 2, 3}, c.Telegram.AllowedIDs)
	assert.Equal(t, int64(-100500), c.Telegram.NotifyChatID)
	assert.Equal(t, "warn", c.Log.ConsoleLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no server command", map[string]string{"SERVER_COMMAND": " "}},
		{"bad env", map[string]string{"ENV": "staging"}},
		{"bad duration", map[string]string{"TICK_INTERVAL": "soon"}},
		{"zero check window", map[string]string{"SCHEDULE_CHECK_TICKS": "0"}},
		{"http without token", map[string]string{"HTTP_ADDR": ":8080"}},
		{"telegram without acl", map[string]string{"TELEGRAM_BOT_TOKEN": "123:abc"}},
		{"notify without token", map[string]string{"TELEGRAM_NOTIFY_CHAT_ID": "42"}},
		{"bad ids", map[string]string{"TELEGRAM_BOT_TOKEN": "123:abc", "TELEGRAM_ALLOWED_IDS": "1,x"}},
		{"bad probe url", map[string]string{"SESSION_PROBE_URL": "::"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.True(t, shared.IsConfiguration(err))
		})
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs("1, 2,3,\n4")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)

	ids, err = ParseIDs("")
	require.NoError(t, err)
	assert.Nil(t, ids)

	_, err = ParseIDs("1,two")
	assert.Error(t, err)
}
