package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"serverrestarter/internal/shared"
)

// Config holds process settings read from the environment.
type Config struct {
	Env string `validate:"required,oneof=dev prod"`
	// Launcher is true when SERVER_LAUNCHER=true, i.e. a supervising launcher
	// will read the restart reason and relaunch the process.
	Launcher      bool
	RestarterFile string `validate:"required"`
	MarkerFile    string `validate:"required"`
	Tick          struct {
		Interval   time.Duration `validate:"gt=0"`
		CheckEvery int           `validate:"min=1"`
		IdleGrace  time.Duration `validate:"gt=0"`
	}
	Server struct {
		Command         []string `validate:"required,min=1"`
		Dir             string
		StopCommand     string
		BroadcastFormat string
		JoinPattern     string
		LeavePattern    string
		ProbeURL        string        `validate:"omitempty,url"`
		ProbeInterval   time.Duration `validate:"gt=0"`
	}
	HTTP struct {
		Addr       string
		AdminToken string `validate:"required_with=Addr"`
	}
	Telegram struct {
		Token        string
		AllowedIDs   []int64 `validate:"required_with=Token"`
		NotifyChatID int64
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	var errs []error
	c.Env = getenv("ENV", "prod")
	c.Launcher = os.Getenv("SERVER_LAUNCHER") == "true"
	c.RestarterFile = getenv("RESTARTER_CONFIG", "config/server_restarter.json")
	c.MarkerFile = getenv("RESTART_REASON_FILE", ".restart_reason")

	c.Tick.Interval = getduration("TICK_INTERVAL", 50*time.Millisecond, &errs)
	c.Tick.CheckEvery = getint("SCHEDULE_CHECK_TICKS", 20, &errs)
	c.Tick.IdleGrace = getduration("IDLE_GRACE", 10*time.Second, &errs)

	c.Server.Command = strings.Fields(os.Getenv("SERVER_COMMAND"))
	c.Server.Dir = os.Getenv("SERVER_DIR")
	c.Server.StopCommand = getenv("SERVER_STOP_COMMAND", "stop")
	c.Server.BroadcastFormat = getenv("SERVER_BROADCAST_FORMAT", "say %s")
	c.Server.JoinPattern = getenv("SESSION_JOIN_PATTERN", `(\w+) joined the game`)
	c.Server.LeavePattern = getenv("SESSION_LEAVE_PATTERN", `(\w+) left the game`)
	c.Server.ProbeURL = os.Getenv("SESSION_PROBE_URL")
	c.Server.ProbeInterval = getduration("SESSION_PROBE_INTERVAL", 5*time.Second, &errs)

	c.HTTP.Addr = os.Getenv("HTTP_ADDR")
	c.HTTP.AdminToken = os.Getenv("ADMIN_TOKEN")

	c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	ids, err := ParseIDs(os.Getenv("TELEGRAM_ALLOWED_IDS"))
	if err != nil {
		errs = append(errs, shared.Wrap(err, "TELEGRAM_ALLOWED_IDS"))
	}
	c.Telegram.AllowedIDs = ids
	if v := os.Getenv("TELEGRAM_NOTIFY_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, shared.Wrap(err, "TELEGRAM_NOTIFY_CHAT_ID"))
		}
		c.Telegram.NotifyChatID = id
	}

	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "logs/restarter.log")

	if len(errs) > 0 {
		return Config{}, shared.MarkKind(errors.Join(errs...), shared.KindConfiguration)
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, shared.MarkKind(err, shared.KindConfiguration)
	}
	if c.Telegram.NotifyChatID != 0 && c.Telegram.Token == "" {
		return Config{}, shared.MarkKind(errors.New("TELEGRAM_BOT_TOKEN required when TELEGRAM_NOTIFY_CHAT_ID is set"), shared.KindConfiguration)
	}
	return c, nil
}

// ParseIDs parses a comma or newline separated list of numeric IDs.
func ParseIDs(s string) ([]int64, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == '\t' || r == ' ' })
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getduration(k string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, shared.Wrap(err, k))
		return def
	}
	return d
}

func getint(k string, def int, errs *[]error) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, shared.Wrap(err, k))
		return def
	}
	return n
}
