package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"price-matcher/models"
)

func TestNatsHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{Subject: "test"}
	carrier := (*natsHeaderCarrier)(msg)

	if got := carrier.Get("missing"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if keys := carrier.Keys(); keys != nil {
		t.Fatalf("expected nil keys, got %v", keys)
	}

	carrier.Set("traceparent", "00-abc-def-01")
	carrier.Set("traceparent", "00-abc-def-02")
	if got := carrier.Get("traceparent"); got != "00-abc-def-02" {
		t.Fatalf("expected last value, got %q", got)
	}
	if keys := carrier.Keys(); len(keys) != 1 {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestComparisonMessage(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	result := sampleResult()
	msg, err := comparisonMessage(ctx, "pricing.comparisons", runID(result), result.Comparisons[0])
	if err != nil {
		t.Fatalf("comparisonMessage: %v", err)
	}

	if msg.Subject != "pricing.comparisons" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if got := msg.Header.Get(HeaderGroupKey); got != "A1B2C3D4E5F60718" {
		t.Errorf("group key header = %q", got)
	}
	if got := msg.Header.Get(HeaderRunID); got != result.Summary.RunID {
		t.Errorf("run id header = %q", got)
	}
	if got := msg.Header.Get("traceparent"); got != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01" {
		t.Errorf("traceparent = %q", got)
	}

	var decoded models.ComparisonResult
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.CheapestSource != "jumia" || decoded.DealRating != models.DealGreat {
		t.Errorf("unexpected payload: %+v", decoded)
	}
}

func TestComparisonMessageWithoutRunID(t *testing.T) {
	result := sampleResult()
	msg, err := comparisonMessage(context.Background(), "s", "", result.Comparisons[0])
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := msg.Header[HeaderRunID]; ok {
		t.Error("run id header should be omitted when empty")
	}
}
