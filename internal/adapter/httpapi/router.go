// Package httpapi serves the restart commands over HTTP with gin.
//
//	POST /api/restart/now       {"reason": "..."}
//	POST /api/restart/schedule  {"reason": "..."}
//	GET  /api/status
//	GET  /healthz
//
// Every /api route requires "Authorization: Bearer <ADMIN_TOKEN>".
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"serverrestarter/internal/command"
	"serverrestarter/internal/restart"
	"serverrestarter/internal/shared"
)

// Options configures the router.
type Options struct {
	Commands *command.Handler
	Token    string
	Logger   *slog.Logger
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"max=512"`
}

type nextEvent struct {
	Action  string    `json:"action"`
	Cron    string    `json:"cron"`
	Message string    `json:"message"`
	FireAt  time.Time `json:"fire_at"`
}

type stateResponse struct {
	Mode           string     `json:"mode"`
	Next           *nextEvent `json:"next,omitempty"`
	PendingRestart bool       `json:"pending_restart"`
	PendingReason  string     `json:"pending_reason,omitempty"`
	SessionsActive bool       `json:"sessions_active"`
	LastActive     *time.Time `json:"last_active,omitempty"`
}

type commandResponse struct {
	Message  string        `json:"message"`
	Previous string        `json:"previous_reason,omitempty"`
	State    stateResponse `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter builds the gin engine.
func NewRouter(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "httpapi")

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api", bearerAuth(opts.Token))
	h := &handlers{cmds: opts.Commands}
	api.POST("/restart/now", h.command(command.Now))
	api.POST("/restart/schedule", h.command(command.Schedule))
	api.GET("/status", h.status)
	return r
}

func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: shared.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)))
	}
}

type handlers struct {
	cmds *command.Handler
}

func (h *handlers) command(kind command.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reasonRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		h.respond(c, command.New(kind, req.Reason))
	}
}

func (h *handlers) status(c *gin.Context) {
	h.respond(c, command.New(command.Status, ""))
}

func (h *handlers) respond(c *gin.Context, cmd command.Command) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	res, err := h.cmds.Execute(ctx, cmd, "http:"+c.ClientIP())
	if err != nil {
		c.JSON(statusOf(err), errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, commandResponse{
		Message:  res.Message,
		Previous: res.Previous,
		State:    toState(res.State),
	})
}

func statusOf(err error) int {
	switch shared.KindOf(err) {
	case shared.KindPrecondition:
		return http.StatusServiceUnavailable
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindUnauthorized:
		return http.StatusUnauthorized
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func toState(s restart.State) stateResponse {
	out := stateResponse{
		Mode:           s.Mode.String(),
		PendingRestart: s.ManualPending,
		PendingReason:  s.PendingReason,
		SessionsActive: s.SessionsActive,
	}
	if s.Next != nil {
		out.Next = &nextEvent{
			Action:  s.Next.Entry.Action.String(),
			Cron:    s.Next.Entry.Expr.String(),
			Message: s.Next.Entry.Message,
			FireAt:  s.Next.FireAt,
		}
	}
	if !s.LastActive.IsZero() {
		t := s.LastActive
		out.LastActive = &t
	}
	return out
}
