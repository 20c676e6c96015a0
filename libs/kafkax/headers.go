package kafkax

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	HeaderEventID     = "event_id"
	HeaderEventType   = "event_type"
	HeaderAggregateID = "aggregate_id"
)

// EventMeta identifies an event message; consumers deduplicate on EventID.
type EventMeta struct {
	EventID     string
	EventType   string
	AggregateID string
}

// Headers returns the event headers followed by the W3C trace context of ctx.
func (m EventMeta) Headers(ctx context.Context) []kafka.Header {
	h := Headers{
		{Key: HeaderEventID, Value: []byte(m.EventID)},
		{Key: HeaderEventType, Value: []byte(m.EventType)},
	}
	if m.AggregateID != "" {
		h.Set(HeaderAggregateID, m.AggregateID)
	}
	otel.GetTextMapPropagator().Inject(ctx, &h)
	return h
}

// MetaOf reads the event headers of msg. Messages from producers that do not
// set them fall back to the message key and topic.
func MetaOf(msg kafka.Message) EventMeta {
	h := Headers(msg.Headers)
	meta := EventMeta{
		EventID:     h.Get(HeaderEventID),
		EventType:   h.Get(HeaderEventType),
		AggregateID: h.Get(HeaderAggregateID),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	if meta.AggregateID == "" {
		meta.AggregateID = string(msg.Key)
	}
	return meta
}

// ExtractTraceContext continues the producer's trace from msg.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	h := Headers(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &h)
}

// Headers is a propagation carrier over Kafka message headers.
type Headers []kafka.Header

var _ propagation.TextMapCarrier = (*Headers)(nil)

func (h *Headers) Get(key string) string {
	for _, kv := range *h {
		if kv.Key == key {
			return string(kv.Value)
		}
	}
	return ""
}

func (h *Headers) Set(key, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = []byte(value)
			return
		}
	}
	*h = append(*h, kafka.Header{Key: key, Value: []byte(value)})
}

func (h *Headers) Keys() []string {
	keys := make([]string, 0, len(*h))
	for _, kv := range *h {
		keys = append(keys, kv.Key)
	}
	return keys
}
