package board

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"flowboard/domain"
)

func TestDropEmitsSpanWithOutcome(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	api := &fakeAPI{updateErr: errors.New("boom"), listTasks: []domain.Task{{ID: "a", Status: domain.StatusTodo}}}
	r, _ := newTestReconciler(t, api, boardWith(domain.Task{ID: "a", Status: domain.StatusTodo}))

	if err := r.BeginDrag("a"); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	if _, err := r.Drop(context.Background(), Gesture{
		TaskID: "a", From: domain.StatusTodo, FromIndex: 0, To: domain.StatusDone, ToIndex: 0,
	}); err != nil {
		t.Fatalf("drop: %v", err)
	}

	spans := exporter.GetSpans()
	var found bool
	for _, s := range spans {
		if s.Name != "board.drop" {
			continue
		}
		found = true
		var outcome string
		for _, attr := range s.Attributes {
			if string(attr.Key) == "drop.outcome" {
				outcome = attr.Value.AsString()
			}
		}
		if outcome != "rolled_back" {
			t.Fatalf("expected rolled_back outcome attribute, got %q", outcome)
		}
	}
	if !found {
		t.Fatalf("no board.drop span recorded, got %d spans", len(spans))
	}
}
