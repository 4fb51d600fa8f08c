package client

import (
	"context"

	"flowboard/domain"
)

// BoardAPI binds a Client to a single project so board code does not carry
// request options around. It satisfies board.TaskAPI.
type BoardAPI struct {
	c       *Client
	project string
}

// Board returns a project-scoped view of the client.
func (c *Client) Board(project string) *BoardAPI {
	return &BoardAPI{c: c, project: project}
}

// ListTasks fetches the project's full task list across all pages.
func (b *BoardAPI) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return b.c.AllTasks(ctx, b.project)
}

// UpdateTaskStatus issues a single status update for a task.
func (b *BoardAPI) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) (domain.Task, error) {
	return b.c.UpdateTaskStatus(ctx, taskID, status)
}

// CreateTask submits a new task into the project.
func (b *BoardAPI) CreateTask(ctx context.Context, title string, status domain.Status, description string) (domain.Task, error) {
	return b.c.CreateTask(ctx, CreateTaskRequest{
		Title:       title,
		Status:      status,
		Description: description,
		ProjectID:   b.project,
	})
}
