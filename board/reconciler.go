package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flowboard/domain"
)

// TaskAPI is the backend surface the reconciler needs. client.BoardAPI
// satisfies it; tests use hand-written fakes.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) (domain.Task, error)
	CreateTask(ctx context.Context, title string, status domain.Status, description string) (domain.Task, error)
}

// phase is the reconciler's drag state. Committed and RolledBack are
// reported as Outcome values rather than stored, since both return the
// machine to idle immediately.
type phase int

const (
	phaseIdle phase = iota
	phaseDragging
	phaseReconciling
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseDragging:
		return "dragging"
	case phaseReconciling:
		return "reconciling"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Outcome reports how a drop settled.
type Outcome int

const (
	// OutcomeNoop means the drop targeted the task's original position, or
	// the task was no longer on the board; nothing was sent.
	OutcomeNoop Outcome = iota
	// OutcomeCommitted means the optimistic move was confirmed by the backend.
	OutcomeCommitted
	// OutcomeRolledBack means the update failed and the board was replaced
	// with freshly fetched ground truth.
	OutcomeRolledBack
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoop:
		return "noop"
	case OutcomeCommitted:
		return "committed"
	case OutcomeRolledBack:
		return "rolled_back"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

var (
	// ErrReconcileInFlight is returned when a drag operation arrives while a
	// previous drop is still reconciling against the backend.
	ErrReconcileInFlight = errors.New("board: reconciliation already in flight")
	// ErrNoActiveDrag is returned by Drop when no matching BeginDrag happened.
	ErrNoActiveDrag = errors.New("board: no active drag")
	// ErrEmptyTitle is returned when task creation is attempted with a title
	// that is empty after trimming. Nothing is submitted.
	ErrEmptyTitle = errors.New("board: task title must not be empty")
)

// Gesture describes a completed drag-and-drop: where the task was picked up
// and where it was dropped.
type Gesture struct {
	TaskID    string
	From      domain.Status
	FromIndex int
	To        domain.Status
	ToIndex   int
}

func (g Gesture) noop() bool {
	return g.From == g.To && g.FromIndex == g.ToIndex
}

// Reconciler coordinates optimistic board mutations against the task
// backend. At most one drop reconciles at a time; rollback never reverts to
// a remembered snapshot but refetches the latest truth, so a slow failure
// response cannot clobber state that has since moved on.
type Reconciler struct {
	store  *Store
	api    TaskAPI
	logger *log.Logger
	tracer trace.Tracer

	mu       sync.Mutex
	ph       phase
	dragging string
}

// NewReconciler wires a reconciler to a store and backend client.
func NewReconciler(store *Store, api TaskAPI, logger *log.Logger) *Reconciler {
	if store == nil {
		panic("board.NewReconciler: store is nil")
	}
	if api == nil {
		panic("board.NewReconciler: api is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Reconciler{
		store:  store,
		api:    api,
		logger: logger,
		tracer: otel.Tracer("flowboard/board"),
	}
}

// BeginDrag transitions idle -> dragging. No network or board activity
// happens until the drop.
func (r *Reconciler) BeginDrag(taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.ph {
	case phaseReconciling:
		return ErrReconcileInFlight
	case phaseDragging:
		return fmt.Errorf("board: drag of %s already active", r.dragging)
	}
	r.ph = phaseDragging
	r.dragging = taskID
	return nil
}

// CancelDrag aborts an active drag without touching the board.
func (r *Reconciler) CancelDrag() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ph == phaseDragging {
		r.ph = phaseIdle
		r.dragging = ""
	}
}

// Drop completes the active drag. Dropping at the original position is a
// no-op and sends nothing. Otherwise the board is updated synchronously,
// then exactly one status update is issued; on failure the whole task list
// is refetched and the board replaced. A failed update never escapes as an
// error: the returned error is non-nil only when the recovery fetch itself
// failed, leaving unconfirmed optimistic state on the board.
func (r *Reconciler) Drop(ctx context.Context, g Gesture) (Outcome, error) {
	r.mu.Lock()
	if r.ph == phaseReconciling {
		r.mu.Unlock()
		return OutcomeNoop, ErrReconcileInFlight
	}
	if r.ph != phaseDragging || r.dragging != g.TaskID {
		r.mu.Unlock()
		return OutcomeNoop, ErrNoActiveDrag
	}
	if g.noop() {
		r.ph = phaseIdle
		r.dragging = ""
		r.mu.Unlock()
		return OutcomeNoop, nil
	}
	r.ph = phaseReconciling
	r.mu.Unlock()

	metrics := newDragMetrics(r.logger, g)
	ctx, span := r.tracer.Start(ctx, "board.drop", trace.WithAttributes(
		attribute.String("task.id", g.TaskID),
		attribute.String("column.from", string(g.From)),
		attribute.String("column.to", string(g.To)),
	))
	outcome, err := r.reconcile(ctx, g, metrics)
	span.SetAttributes(attribute.String("drop.outcome", outcome.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	metrics.Log(outcome, err)

	r.mu.Lock()
	r.ph = phaseIdle
	r.dragging = ""
	r.mu.Unlock()
	return outcome, err
}

func (r *Reconciler) reconcile(ctx context.Context, g Gesture, metrics *dragMetrics) (Outcome, error) {
	if !r.store.MoveTask(g.TaskID, g.From, g.To, g.ToIndex) {
		// Either an endpoint is not a board column, or the task vanished from
		// the source column, e.g. a refresh landed between pickup and drop.
		// Nothing to synchronize.
		metrics.SetErrorStage("move_rejected")
		return OutcomeNoop, nil
	}
	metrics.ObserveMove()

	if _, err := r.api.UpdateTaskStatus(ctx, g.TaskID, g.To); err != nil {
		metrics.SetErrorStage("update")
		metrics.SetUpdateError(err)
		return r.rollback(ctx, metrics)
	}
	metrics.ObserveUpdate()
	return OutcomeCommitted, nil
}

// rollback discards all optimism: fetch ground truth and replace the board.
func (r *Reconciler) rollback(ctx context.Context, metrics *dragMetrics) (Outcome, error) {
	tasks, err := r.api.ListTasks(ctx)
	if err != nil {
		metrics.SetErrorStage("rollback_fetch")
		return OutcomeRolledBack, fmt.Errorf("rollback fetch: %w", err)
	}
	metrics.ObserveRefetch()
	r.store.ReplaceAll(domain.Partition(tasks))
	return OutcomeRolledBack, nil
}

// Refresh fetches the full task list and replaces the board.
func (r *Reconciler) Refresh(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "board.refresh")
	defer span.End()

	tasks, err := r.api.ListTasks(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("refresh: %w", err)
	}
	span.SetAttributes(attribute.Int("tasks.fetched", len(tasks)))
	r.store.ReplaceAll(domain.Partition(tasks))
	return nil
}

// Create validates and submits a new task into a column. Titles empty after
// trimming are rejected locally with ErrEmptyTitle and nothing is sent. On
// success the canonical server record is appended, never the local draft, so
// the board only ever shows server-assigned identities.
func (r *Reconciler) Create(ctx context.Context, col domain.Status, title, description string) (domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Task{}, ErrEmptyTitle
	}
	status, ok := domain.NormalizeStatus(string(col))
	if !ok {
		return domain.Task{}, fmt.Errorf("board: unknown column %q", col)
	}

	ctx, span := r.tracer.Start(ctx, "board.create", trace.WithAttributes(
		attribute.String("column", string(status)),
	))
	defer span.End()

	created, err := r.api.CreateTask(ctx, title, status, description)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	target, ok := domain.NormalizeStatus(string(created.Status))
	if !ok {
		target = status
		created.Status = status
	} else {
		created.Status = target
	}
	r.store.AppendTask(target, created)
	r.logger.WithFields(log.Fields{"task_id": created.ID, "column": target}).Debug("task created")
	return created, nil
}
