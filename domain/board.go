package domain

// Board maps each status column to its ordered task list. Order within a
// column is presentation state only and is never persisted.
type Board map[Status][]Task

// Columns returns the board's column keys in display order.
func Columns() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}
}

// IsColumn reports whether s is one of the four board columns. Legacy
// aliases do not count; normalize first.
func IsColumn(s Status) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// ColumnTitle returns the display title for a column key.
func ColumnTitle(s Status) string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusReview:
		return "Review"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

// NewBoard returns a board with all four columns present and empty.
func NewBoard() Board {
	b := make(Board, 4)
	for _, col := range Columns() {
		b[col] = []Task{}
	}
	return b
}

// Partition buckets a flat task list into the four status columns. Statuses
// are normalized first, so the legacy "completed" value lands in the done
// column. Tasks whose status matches no column are dropped without error.
func Partition(tasks []Task) Board {
	b := NewBoard()
	for _, t := range tasks {
		status, ok := NormalizeStatus(string(t.Status))
		if !ok {
			continue
		}
		t.Status = status
		b[status] = append(b[status], t)
	}
	return b
}

// Clone returns a deep copy of the board.
func (b Board) Clone() Board {
	out := make(Board, len(b))
	for col, tasks := range b {
		out[col] = append(make([]Task, 0, len(tasks)), tasks...)
	}
	return out
}

// TaskCount returns the total number of tasks across all columns.
func (b Board) TaskCount() int {
	n := 0
	for _, tasks := range b {
		n += len(tasks)
	}
	return n
}

// Find reports the column and index holding the task with the given id.
func (b Board) Find(taskID string) (Status, int, bool) {
	for _, col := range Columns() {
		for i, t := range b[col] {
			if t.ID == taskID {
				return col, i, true
			}
		}
	}
	return "", 0, false
}
