package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartAPISpan(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartAPISpan(context.Background(), OperationListSchedules,
		attribute.Int64(SpanAttrUserID, 3))
	if GetTraceID(ctx) == "" {
		t.Error("expected trace id in span context")
	}
	if GetSpanID(ctx) == "" {
		t.Error("expected span id in span context")
	}
	SetSpanSuccess(span)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "api."+OperationListSchedules {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status().Code)
	}

	var sawOperation bool
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == SpanAttrOperation && kv.Value.AsString() == OperationListSchedules {
			sawOperation = true
		}
	}
	if !sawOperation {
		t.Error("operation attribute missing")
	}
}

func TestSetSpanError(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	SetSpanError(span, errors.New("boom"))
	SetSpanError(span, nil)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status().Code)
	}
	if spans[0].Status().Description != "boom" {
		t.Errorf("description = %q", spans[0].Status().Description)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
	if id := GetSpanID(context.Background()); id != "" {
		t.Errorf("expected empty span id, got %q", id)
	}
}

func TestStartSpan_WithUser(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartSpan(context.Background(), "cli.week",
		attribute.String(SpanAttrOperation, "schedcli week"))
	SetSpanUser(ctx, 4)
	SetSpanUser(ctx, 0)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "cli.week" {
		t.Errorf("span name = %q", spans[0].Name())
	}

	var userIDs []int64
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == SpanAttrUserID {
			userIDs = append(userIDs, kv.Value.AsInt64())
		}
	}
	if len(userIDs) != 1 || userIDs[0] != 4 {
		t.Errorf("user id attributes = %v, want [4]", userIDs)
	}
}

func TestActionRecord_WithSpanContext(t *testing.T) {
	withRecorder(t)

	ctx, span := StartSpan(context.Background(), "cli.login")
	defer span.End()

	rec := NewActionRecord(OperationLogin).WithSpanContext(ctx)
	if rec.TraceID == "" || rec.TraceID != GetTraceID(ctx) {
		t.Errorf("trace id = %q, want %q", rec.TraceID, GetTraceID(ctx))
	}
	if rec.SpanID == "" || rec.SpanID != GetSpanID(ctx) {
		t.Errorf("span id = %q, want %q", rec.SpanID, GetSpanID(ctx))
	}
}
