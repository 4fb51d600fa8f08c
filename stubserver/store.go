package stubserver

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowboard/domain"
)

const defaultPageSize = 50

// InvalidPageTokenError marks a malformed pagination token so handlers can
// answer 400 instead of 500.
type InvalidPageTokenError interface {
	error
	InvalidPageToken()
}

type invalidPageTokenError struct{}

func (invalidPageTokenError) Error() string     { return "invalid page token" }
func (invalidPageTokenError) InvalidPageToken() {}

// Store is the stub backend's in-memory state: tasks in creation order plus
// a flat message log. It stands in for the real product API in tests and
// local development.
type Store struct {
	// StrictProjects excludes tasks without a project id from filtered
	// listings. Off by default so seeded demo fixtures without project ids
	// still show up; turn it on to surface missing client-side filters.
	StrictProjects bool

	mu    sync.Mutex
	tasks []domain.Task
	msgs  []domain.Message
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Seed replaces the store's tasks, used by tests and demo setups.
func (s *Store) Seed(tasks []domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]domain.Task(nil), tasks...)
}

// List returns one page of tasks, optionally filtered by project. The
// continuation token is an opaque base-36 offset.
func (s *Store) List(project, pageToken string, pageSize int) ([]domain.Task, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := 0
	if pageToken != "" {
		n, err := strconv.ParseInt(pageToken, 36, 64)
		if err != nil || n < 0 {
			return nil, "", invalidPageTokenError{}
		}
		offset = int(n)
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	filtered := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if project != "" && t.ProjectID != project {
			// Project-less tasks still list everywhere unless strict.
			if s.StrictProjects || t.ProjectID != "" {
				continue
			}
		}
		filtered = append(filtered, t)
	}
	if offset >= len(filtered) {
		return []domain.Task{}, "", nil
	}

	end := offset + pageSize
	next := ""
	if end < len(filtered) {
		next = strconv.FormatInt(int64(end), 36)
	} else {
		end = len(filtered)
	}
	return append([]domain.Task(nil), filtered[offset:end]...), next, nil
}

// Get looks up a task by id.
func (s *Store) Get(id string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// UpdateStatus rewrites one task's status and returns the updated record.
func (s *Store) UpdateStatus(id string, status domain.Status) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].Status = status
			return s.tasks[i], true
		}
	}
	return domain.Task{}, false
}

// Create appends a new task with a server-assigned id.
func (s *Store) Create(title string, status domain.Status, description, projectID string) domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := domain.Task{
		ID:          "srv-" + uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    domain.PriorityMedium,
		ProjectID:   projectID,
	}
	s.tasks = append(s.tasks, t)
	return t
}

// AppendMessage adds a chat message and returns the stored record.
func (s *Store) AppendMessage(channel, author, body string) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := domain.Message{
		ID:      uuid.NewString(),
		Channel: channel,
		Author:  author,
		Body:    body,
		SentAt:  time.Now().UTC(),
	}
	s.msgs = append(s.msgs, m)
	return m
}

// Messages returns channel messages strictly after the given id; afterID may
// be empty for the full history.
func (s *Store) Messages(channel, afterID string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Message{}
	passed := afterID == ""
	for _, m := range s.msgs {
		if channel != "" && m.Channel != channel {
			continue
		}
		if passed {
			out = append(out, m)
		} else if m.ID == afterID {
			passed = true
		}
	}
	return out
}
