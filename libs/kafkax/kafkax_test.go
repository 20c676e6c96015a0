package kafkax

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %q", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestEventHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := EventMeta{EventID: "evt-1", EventType: "appointment.created.v1", AggregateID: "a-1"}.Headers(ctx)
	var keys []string
	for _, h := range headers {
		keys = append(keys, h.Key)
	}
	want := []string{HeaderEventID, HeaderEventType, HeaderAggregateID, "traceparent"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("header keys (-want +got):\n%s", diff)
	}

	got := MetaOf(kafka.Message{Headers: headers})
	if got.EventID != "evt-1" || got.EventType != "appointment.created.v1" || got.AggregateID != "a-1" {
		t.Fatalf("unexpected meta %+v", got)
	}
}

func TestHeadersSetReplaces(t *testing.T) {
	h := Headers{{Key: "traceparent", Value: []byte("old")}}
	h.Set("traceparent", "new")
	h.Set("tracestate", "k=v")
	if len(h) != 2 || h.Get("traceparent") != "new" || h.Get("tracestate") != "k=v" {
		t.Fatalf("unexpected headers %+v", h)
	}
}

func TestMetaOfFallbacks(t *testing.T) {
	msg := kafka.Message{Topic: "appointment.created.v1", Key: []byte("a-1")}
	meta := MetaOf(msg)
	if meta.EventID != "a-1" || meta.EventType != "appointment.created.v1" || meta.AggregateID != "a-1" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	msg.Headers = []kafka.Header{{Key: HeaderEventID, Value: []byte("evt-9")}, {Key: HeaderEventType, Value: []byte("custom")}}
	meta = MetaOf(msg)
	if meta.EventID != "evt-9" || meta.EventType != "custom" {
		t.Fatalf("headers should win: %+v", meta)
	}
}

func TestExtractTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	msg := kafka.Message{Headers: EventMeta{EventID: "evt-1"}.Headers(ctx)}
	got := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), msg))
	if got.TraceID() != span.SpanContext().TraceID() || !got.IsRemote() {
		t.Fatalf("trace not restored: %v", got)
	}
}
