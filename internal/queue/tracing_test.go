package queue

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestJoinAndLeaveEmitSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	coord, _ := newTestCoordinator(t, Rules{})
	ctx := context.Background()

	entry, err := coord.Join(ctx, "clinic-1", Details{}, "patient-1")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := coord.Leave(ctx, entry.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}

	names := make(map[string]bool)
	clinicAttr := ""
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
		if span.Name() != "queue.join" {
			continue
		}
		for _, attr := range span.Attributes() {
			if attr.Key == "clinicconnect.clinic_id" {
				clinicAttr = attr.Value.AsString()
			}
		}
	}
	if !names["queue.join"] || !names["queue.leave"] {
		t.Fatalf("span names = %v, want queue.join and queue.leave", names)
	}
	if clinicAttr != "clinic-1" {
		t.Errorf("join span clinic id = %q, want %q", clinicAttr, "clinic-1")
	}
}
