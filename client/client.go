package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flowboard/domain"
)

const maxResponseSize = 4 * 1024 * 1024 // 4 MiB

// Client talks to the task backend over its REST interface.
type Client struct {
	baseURL string
	bearer  string
	http    *http.Client
	logger  *log.Logger
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for request debug lines.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the given base URL. bearer may be empty when the
// backend does not require authentication.
func New(baseURL, bearer string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		bearer:  bearer,
		http:    &http.Client{},
		logger:  log.StandardLogger(),
		tracer:  otel.Tracer("flowboard/client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListOptions narrows and pages a task listing.
type ListOptions struct {
	Project   string
	PageToken string
	PageSize  int
}

type taskListResponse struct {
	Tasks         []domain.Task `json:"tasks"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

// ListTasks fetches one page of tasks. Statuses are normalized on decode so
// the legacy "completed" value reaches callers as "done"; tasks with
// statuses outside the board columns are passed through untouched and left
// for the partitioner to drop.
func (c *Client) ListTasks(ctx context.Context, opts ListOptions) ([]domain.Task, string, error) {
	q := url.Values{}
	if opts.Project != "" {
		q.Set("project", opts.Project)
	}
	if opts.PageToken != "" {
		q.Set("pageToken", opts.PageToken)
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	path := "/api/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp taskListResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp, false); err != nil {
		return nil, "", err
	}
	for i := range resp.Tasks {
		if status, ok := domain.NormalizeStatus(string(resp.Tasks[i].Status)); ok {
			resp.Tasks[i].Status = status
		}
	}
	return resp.Tasks, resp.NextPageToken, nil
}

// AllTasks fetches every page of a project's task list.
func (c *Client) AllTasks(ctx context.Context, project string) ([]domain.Task, error) {
	var all []domain.Task
	token := ""
	for {
		tasks, next, err := c.ListTasks(ctx, ListOptions{Project: project, PageToken: token})
		if err != nil {
			return nil, err
		}
		all = append(all, tasks...)
		if next == "" {
			return all, nil
		}
		token = next
	}
}

type updateStatusRequest struct {
	Status domain.Status `json:"status"`
}

// UpdateTaskStatus issues a single status update and returns the canonical
// record from the backend.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) (domain.Task, error) {
	var task domain.Task
	path := "/api/tasks/" + url.PathEscape(taskID)
	if err := c.doJSON(ctx, http.MethodPatch, path, updateStatusRequest{Status: status}, &task, false); err != nil {
		return domain.Task{}, err
	}
	if s, ok := domain.NormalizeStatus(string(task.Status)); ok {
		task.Status = s
	}
	return task, nil
}

// CreateTaskRequest is the creation payload. The task id is always assigned
// by the backend; callers never see their draft echoed back.
type CreateTaskRequest struct {
	Title       string        `json:"title"`
	Status      domain.Status `json:"status"`
	Description string        `json:"description,omitempty"`
	ProjectID   string        `json:"projectId,omitempty"`
}

// CreateTask submits a new task. An Idempotency-Key header is attached so a
// retried POST cannot create duplicates.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (domain.Task, error) {
	var task domain.Task
	if err := c.doJSON(ctx, http.MethodPost, "/api/tasks", req, &task, true); err != nil {
		return domain.Task{}, err
	}
	if s, ok := domain.NormalizeStatus(string(task.Status)); ok {
		task.Status = s
	}
	return task, nil
}

// ListMessages fetches channel messages newer than afterID; afterID may be
// empty to fetch the whole history.
func (c *Client) ListMessages(ctx context.Context, channel, afterID string) ([]domain.Message, error) {
	q := url.Values{}
	if channel != "" {
		q.Set("channel", channel)
	}
	if afterID != "" {
		q.Set("after", afterID)
	}
	path := "/api/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp, false); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, withIdempotencyKey bool) (err error) {
	ctx, span := c.tracer.Start(ctx, "client."+method, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		data, merr := sonic.ConfigStd.Marshal(body)
		if merr != nil {
			return fmt.Errorf("encode request: %w", merr)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if withIdempotencyKey {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	c.logger.WithFields(log.Fields{"method": method, "path": path, "status": resp.StatusCode}).Debug("api request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(msg)}
	}
	if out == nil {
		return nil
	}
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(resp.Body, maxResponseSize))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
