// Package stubserver implements the task backend's REST surface in memory.
// The CLI uses it for local development and tests use it as an end-to-end
// fixture; it is not a production storage service.
package stubserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"flowboard/domain"
)

const requestMaxSize = 64 * 1024 // 64 KiB

// Config tunes the stub's behavior.
type Config struct {
	// Auth validates bearer tokens; nil disables authentication.
	Auth *Auth
	// Deduper enables Idempotency-Key replay on task creation; nil disables it.
	Deduper *RedisDeduper
	// LegacyDoneStatus makes the stub emit the old "completed" wire value for
	// done tasks, to exercise client-side normalization.
	LegacyDoneStatus bool
	Logger           *log.Logger
}

// Server serves the stub task API.
type Server struct {
	store *Store
	cfg   Config
	log   *log.Logger
}

// New builds an echo instance with all stub routes registered.
func New(store *Store, cfg Config) *echo.Echo {
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	s := &Server{store: store, cfg: cfg, log: cfg.Logger}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	// Per-instance registry so tests can spin up several servers without
	// colliding on the default prometheus registerer.
	registry := prometheus.NewRegistry()
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "flowboard_stub",
		Registerer: registry,
	}))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: registry}))

	e.GET("/api/tasks", s.getTasks)
	e.PATCH("/api/tasks/:id", s.patchTask)
	e.POST("/api/tasks", s.postTask)
	e.GET("/api/messages", s.getMessages)
	e.POST("/api/messages", s.postMessage)
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func (s *Server) authorize(c echo.Context) (string, error) {
	if s.cfg.Auth == nil {
		return "anonymous", nil
	}
	return s.cfg.Auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
}

type tasksResponse struct {
	Tasks         []domain.Task `json:"tasks"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

func (s *Server) getTasks(c echo.Context) error {
	if _, err := s.authorize(c); err != nil {
		return c.String(http.StatusUnauthorized, err.Error())
	}

	pageSize := 0
	if raw := strings.TrimSpace(c.QueryParam("pageSize")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.String(http.StatusBadRequest, "invalid page size")
		}
		pageSize = n
	}

	tasks, next, err := s.store.List(c.QueryParam("project"), c.QueryParam("pageToken"), pageSize)
	if err != nil {
		var invalidToken InvalidPageTokenError
		if errors.As(err, &invalidToken) {
			return c.String(http.StatusBadRequest, "invalid page token")
		}
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, err.Error())
	}
	for i := range tasks {
		tasks[i] = s.wireTask(tasks[i])
	}
	return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks, NextPageToken: next})
}

type patchTaskRequest struct {
	Status string `json:"status"`
}

func (s *Server) patchTask(c echo.Context) error {
	if _, err := s.authorize(c); err != nil {
		return c.String(http.StatusUnauthorized, err.Error())
	}

	var req patchTaskRequest
	if err := decodeBody(c, &req); err != nil {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	status, ok := domain.NormalizeStatus(req.Status)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid status")
	}

	task, found := s.store.UpdateStatus(c.Param("id"), status)
	if !found {
		return c.String(http.StatusNotFound, "task not found")
	}
	s.log.WithFields(log.Fields{"task_id": task.ID, "status": status}).Debug("task status updated")
	return c.JSON(http.StatusOK, s.wireTask(task))
}

type postTaskRequest struct {
	Title       string `json:"title"`
	Status      string `json:"status"`
	Description string `json:"description"`
	ProjectID   string `json:"projectId"`
}

func (s *Server) postTask(c echo.Context) error {
	if _, err := s.authorize(c); err != nil {
		return c.String(http.StatusUnauthorized, err.Error())
	}

	var req postTaskRequest
	if err := decodeBody(c, &req); err != nil {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.String(http.StatusBadRequest, "title required")
	}
	status := domain.StatusTodo
	if req.Status != "" {
		var ok bool
		status, ok = domain.NormalizeStatus(req.Status)
		if !ok {
			return c.String(http.StatusBadRequest, "invalid status")
		}
	}

	ctx := c.Request().Context()
	idemKey := c.Request().Header.Get("Idempotency-Key")
	if s.cfg.Deduper != nil && idemKey != "" {
		isNew, taskID, err := s.cfg.Deduper.Claim(ctx, idemKey)
		if err != nil {
			// Dedupe is best effort; creation proceeds without it.
			s.log.WithError(err).Warn("idempotency claim failed")
		} else if !isNew && taskID != "" {
			if task, found := s.store.Get(taskID); found {
				return c.JSON(http.StatusOK, s.wireTask(task))
			}
		}
	}

	task := s.store.Create(req.Title, status, req.Description, req.ProjectID)
	if s.cfg.Deduper != nil && idemKey != "" {
		if err := s.cfg.Deduper.Commit(ctx, idemKey, task.ID); err != nil {
			s.log.WithError(err).Warn("idempotency commit failed")
		}
	}
	s.log.WithFields(log.Fields{"task_id": task.ID, "status": status}).Debug("task created")
	return c.JSON(http.StatusCreated, s.wireTask(task))
}

type messagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

func (s *Server) getMessages(c echo.Context) error {
	if _, err := s.authorize(c); err != nil {
		return c.String(http.StatusUnauthorized, err.Error())
	}
	msgs := s.store.Messages(c.QueryParam("channel"), c.QueryParam("after"))
	return c.JSON(http.StatusOK, messagesResponse{Messages: msgs})
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Body    string `json:"body"`
}

func (s *Server) postMessage(c echo.Context) error {
	user, err := s.authorize(c)
	if err != nil {
		return c.String(http.StatusUnauthorized, err.Error())
	}
	var req postMessageRequest
	if err := decodeBody(c, &req); err != nil {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Body) == "" {
		return c.String(http.StatusBadRequest, "body required")
	}
	msg := s.store.AppendMessage(req.Channel, user, req.Body)
	return c.JSON(http.StatusCreated, msg)
}

// wireTask applies the legacy status mapping on the way out when configured.
func (s *Server) wireTask(t domain.Task) domain.Task {
	if s.cfg.LegacyDoneStatus && t.Status == domain.StatusDone {
		t.Status = "completed"
	}
	return t
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, requestMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	return dec.Decode(out)
}
