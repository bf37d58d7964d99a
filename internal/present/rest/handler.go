package rest

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/roulette/internal/domain"
	"github.com/totegamma/roulette/internal/present/rest/presenter"
)

// CommandRunner executes a slash command to completion.
type CommandRunner interface {
	Handle(ctx context.Context, cmd domain.Command) domain.Outcome
}

type DirectorySize interface {
	Len(ctx context.Context) int
}

type Handler struct {
	roulette  CommandRunner
	directory DirectorySize
	timeout   time.Duration
	inflight  sync.WaitGroup
}

func NewHandler(
	roulette CommandRunner,
	directory DirectorySize,
	timeout time.Duration,
) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Handler{
		roulette:  roulette,
		directory: directory,
		timeout:   timeout,
	}
}

// RegisterRoutes mounts the endpoints. verify guards the slack-facing routes.
func (h *Handler) RegisterRoutes(e *echo.Echo, verify ...echo.MiddlewareFunc) {
	e.GET("/healthz", h.handleHealth)
	e.POST("/slack/commands", h.handleCommand, verify...)
}

// Wait blocks until every accepted command has finished or ctx is done.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{
		"status": "ok",
		"users":  h.directory.Len(c.Request().Context()),
	})
}

func (h *Handler) handleCommand(c echo.Context) error {
	s, err := slack.SlashCommandParse(c.Request())
	if err != nil {
		return presenter.BadRequest(c, err)
	}
	if s.UserID == "" {
		return presenter.BadRequestMessage(c, "missing user_id")
	}

	cmd := domain.Command{
		UserID:      s.UserID,
		UserName:    s.UserName,
		ChannelID:   s.ChannelID,
		ChannelName: s.ChannelName,
		Text:        s.Text,
		ResponseURL: s.ResponseURL,
	}

	// the answer must reach slack within 3 seconds, the work continues after it
	ctx := context.WithoutCancel(c.Request().Context())
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		ctx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()

		outcome := h.roulette.Handle(ctx, cmd)
		slog.InfoContext(
			ctx, "command finished",
			slog.String("module", "rest"),
			slog.String("request", outcome.RequestID),
			slog.String("state", string(outcome.State)),
			slog.Int("groups", len(outcome.Groups)),
			slog.String("trace", trace.SpanContextFromContext(ctx).TraceID().String()),
		)
	}()

	return c.NoContent(http.StatusOK)
}
