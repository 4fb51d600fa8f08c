package board

import (
	"sync"

	"flowboard/domain"
)

// Store is the single source of UI truth for the board. All mutation goes
// through pure transition functions applied under the store lock, so state
// observed via Snapshot is always a complete, consistent board.
type Store struct {
	mu    sync.RWMutex
	board domain.Board
	gen   uint64
}

// NewStore returns a store holding an empty four-column board.
func NewStore() *Store {
	return &Store{board: domain.NewBoard()}
}

// ReplaceAll swaps the entire board atomically and bumps the generation.
// Used after every fresh fetch; the previous state is discarded.
func (s *Store) ReplaceAll(b domain.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board = b.Clone()
	s.gen++
}

// MoveTask removes the task from one column and inserts it at toIndex in
// another, rewriting its status to match the destination. If either status is
// not a board column, or the task is not found in the source column, the
// board is left untouched and false is returned; no other column is ever
// affected.
func (s *Store) MoveTask(taskID string, from, to domain.Status, toIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := moveTask(s.board, taskID, from, to, toIndex)
	if !ok {
		return false
	}
	s.board = next
	return true
}

// AppendTask pushes a task to the end of a column.
func (s *Store) AppendTask(col domain.Status, t domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board = appendTask(s.board, col, t)
}

// Snapshot returns a deep copy of the current board.
func (s *Store) Snapshot() domain.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board.Clone()
}

// Generation returns the replace-all counter. A rollback that refetches
// ground truth can compare generations to tell whether newer state already
// superseded its optimistic guess.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// moveTask is the pure transition behind Store.MoveTask. It returns the new
// board and whether the move applied. Both endpoints must be real columns;
// anything else would grow the board a fifth key and strand the task outside
// every column, so such moves are refused outright.
func moveTask(b domain.Board, taskID string, from, to domain.Status, toIndex int) (domain.Board, bool) {
	if !domain.IsColumn(from) || !domain.IsColumn(to) {
		return b, false
	}
	src, task, found := removeTask(b[from], taskID)
	if !found {
		return b, false
	}
	next := b.Clone()
	next[from] = src
	task.Status = to
	if from == to {
		next[to] = insertTask(src, task, toIndex)
	} else {
		next[to] = insertTask(next[to], task, toIndex)
	}
	return next, true
}

func appendTask(b domain.Board, col domain.Status, t domain.Task) domain.Board {
	next := b.Clone()
	next[col] = append(next[col], t)
	return next
}

func removeTask(tasks []domain.Task, taskID string) ([]domain.Task, domain.Task, bool) {
	for i, t := range tasks {
		if t.ID == taskID {
			out := make([]domain.Task, 0, len(tasks)-1)
			out = append(out, tasks[:i]...)
			out = append(out, tasks[i+1:]...)
			return out, t, true
		}
	}
	return tasks, domain.Task{}, false
}

// insertTask places t at index i, clamping i into [0, len].
func insertTask(tasks []domain.Task, t domain.Task, i int) []domain.Task {
	if i < 0 {
		i = 0
	}
	if i > len(tasks) {
		i = len(tasks)
	}
	out := make([]domain.Task, 0, len(tasks)+1)
	out = append(out, tasks[:i]...)
	out = append(out, t)
	out = append(out, tasks[i:]...)
	return out
}
