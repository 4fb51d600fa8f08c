package board

import (
	"reflect"
	"testing"

	"flowboard/domain"
)

func boardWith(tasks ...domain.Task) domain.Board {
	return domain.Partition(tasks)
}

func TestStoreMoveTaskAcrossColumns(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(boardWith(
		domain.Task{ID: "a", Status: domain.StatusTodo},
		domain.Task{ID: "b", Status: domain.StatusTodo},
		domain.Task{ID: "c", Status: domain.StatusInProgress},
	))

	if !s.MoveTask("a", domain.StatusTodo, domain.StatusInProgress, 0) {
		t.Fatal("expected move to succeed")
	}

	b := s.Snapshot()
	if _, _, ok := b.Find("a"); !ok {
		t.Fatal("task lost during move")
	}
	if len(b[domain.StatusTodo]) != 1 || b[domain.StatusTodo][0].ID != "b" {
		t.Fatalf("unexpected todo column: %#v", b[domain.StatusTodo])
	}
	got := b[domain.StatusInProgress]
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected in_progress column: %#v", got)
	}
	if got[0].Status != domain.StatusInProgress {
		t.Fatalf("moved task status not rewritten, got %q", got[0].Status)
	}
}

func TestStoreMoveTaskWithinColumn(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(boardWith(
		domain.Task{ID: "a", Status: domain.StatusTodo},
		domain.Task{ID: "b", Status: domain.StatusTodo},
		domain.Task{ID: "c", Status: domain.StatusTodo},
	))

	if !s.MoveTask("a", domain.StatusTodo, domain.StatusTodo, 2) {
		t.Fatal("expected move to succeed")
	}

	col := s.Snapshot()[domain.StatusTodo]
	ids := []string{col[0].ID, col[1].ID, col[2].ID}
	if !reflect.DeepEqual(ids, []string{"b", "c", "a"}) {
		t.Fatalf("unexpected order after reorder: %v", ids)
	}
}

func TestStoreMoveTaskMissingIsNoop(t *testing.T) {
	s := NewStore()
	initial := boardWith(
		domain.Task{ID: "a", Status: domain.StatusTodo},
		domain.Task{ID: "b", Status: domain.StatusReview},
	)
	s.ReplaceAll(initial)

	if s.MoveTask("ghost", domain.StatusTodo, domain.StatusDone, 0) {
		t.Fatal("expected move of unknown task to report false")
	}
	if !reflect.DeepEqual(s.Snapshot(), initial) {
		t.Fatal("board corrupted by no-op move")
	}

	// Task exists but not in the named source column: still a no-op.
	if s.MoveTask("b", domain.StatusTodo, domain.StatusDone, 0) {
		t.Fatal("expected move from wrong source column to report false")
	}
	if !reflect.DeepEqual(s.Snapshot(), initial) {
		t.Fatal("board corrupted by wrong-column move")
	}
}

func TestStoreMoveTaskRejectsNonColumnStatus(t *testing.T) {
	s := NewStore()
	initial := boardWith(domain.Task{ID: "a", Status: domain.StatusTodo})
	s.ReplaceAll(initial)

	if s.MoveTask("a", domain.StatusTodo, domain.Status("archived"), 0) {
		t.Fatal("expected move to unknown destination to report false")
	}
	if s.MoveTask("a", domain.Status("archived"), domain.StatusDone, 0) {
		t.Fatal("expected move from unknown source to report false")
	}

	b := s.Snapshot()
	if !reflect.DeepEqual(b, initial) {
		t.Fatal("board corrupted by rejected move")
	}
	if len(b) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(b))
	}
	if col, _, ok := b.Find("a"); !ok || col != domain.StatusTodo {
		t.Fatalf("task a not in todo column after rejected move (found=%v col=%s)", ok, col)
	}
}

func TestStoreMoveTaskClampsIndex(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(boardWith(domain.Task{ID: "a", Status: domain.StatusTodo}))

	if !s.MoveTask("a", domain.StatusTodo, domain.StatusDone, 99) {
		t.Fatal("expected move to succeed")
	}
	if got := s.Snapshot()[domain.StatusDone]; len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected done column: %#v", got)
	}

	if !s.MoveTask("a", domain.StatusDone, domain.StatusTodo, -5) {
		t.Fatal("expected move to succeed")
	}
	if got := s.Snapshot()[domain.StatusTodo]; len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected todo column: %#v", got)
	}
}

func TestStoreAppendTask(t *testing.T) {
	s := NewStore()
	s.AppendTask(domain.StatusTodo, domain.Task{ID: "a", Status: domain.StatusTodo})
	s.AppendTask(domain.StatusTodo, domain.Task{ID: "b", Status: domain.StatusTodo})

	col := s.Snapshot()[domain.StatusTodo]
	if len(col) != 2 || col[1].ID != "b" {
		t.Fatalf("unexpected column after append: %#v", col)
	}
}

func TestStoreReplaceAllBumpsGeneration(t *testing.T) {
	s := NewStore()
	g0 := s.Generation()
	s.ReplaceAll(domain.NewBoard())
	s.ReplaceAll(domain.NewBoard())
	if got := s.Generation(); got != g0+2 {
		t.Fatalf("expected generation %d, got %d", g0+2, got)
	}
}

func TestStoreSnapshotIsDetached(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(boardWith(domain.Task{ID: "a", Status: domain.StatusTodo}))

	snap := s.Snapshot()
	snap[domain.StatusTodo][0].Title = "mutated"

	if s.Snapshot()[domain.StatusTodo][0].Title == "mutated" {
		t.Fatal("snapshot shares storage with the store")
	}
}
