package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/md-rashed-zaman/barberbook/libs/kafkax"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/outbox"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func sampleAppointment() model.Appointment {
	return model.Appointment{
		ID:           "a-1",
		Date:         model.Date(2024, time.March, 8),
		StartTime:    model.NewClock(17, 30),
		Duration:     30 * time.Minute,
		CustomerName: "Ann",
		BarberName:   "Todd",
	}
}

func eventMessage(t *testing.T, topic, price string) kafka.Message {
	t.Helper()
	evt, err := outbox.AppointmentEvent(topic, sampleAppointment(), price)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(evt.AggregateID),
		Value: evt.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte("evt-1")},
			{Key: "event_type", Value: []byte(topic)},
		},
	}
}

func TestDeltaFor(t *testing.T) {
	day := model.Date(2024, time.March, 8)
	cases := []struct {
		topic string
		price string
		want  Delta
	}{
		{outbox.TopicAppointmentCreated, "40.00", Delta{Day: day, Booked: 1, Revenue: decimal.RequireFromString("40.00")}},
		{outbox.TopicAppointmentCreated, "", Delta{Day: day, Booked: 1, Revenue: decimal.Zero}},
		{outbox.TopicAppointmentImported, "", Delta{Day: day, Imported: 1, Revenue: decimal.Zero}},
		{outbox.TopicAppointmentDeleted, "", Delta{Day: day, Cancelled: 1, Revenue: decimal.Zero}},
	}
	for _, tc := range cases {
		msg := eventMessage(t, tc.topic, tc.price)
		got, ok, err := DeltaFor(tc.topic, msg.Value)
		if err != nil || !ok {
			t.Fatalf("%s: ok=%v err=%v", tc.topic, ok, err)
		}
		if !got.Day.Equal(tc.want.Day) || got.Booked != tc.want.Booked || got.Imported != tc.want.Imported ||
			got.Cancelled != tc.want.Cancelled || !got.Revenue.Equal(tc.want.Revenue) {
			t.Fatalf("%s: got %+v want %+v", tc.topic, got, tc.want)
		}
	}
}

func TestDeltaFor_Skips(t *testing.T) {
	msg := eventMessage(t, outbox.TopicAppointmentUpdated, "52.00")
	if _, ok, err := DeltaFor(outbox.TopicAppointmentUpdated, msg.Value); err != nil || ok {
		t.Fatalf("updated events are not counted: ok=%v err=%v", ok, err)
	}
	if _, _, err := DeltaFor(outbox.TopicAppointmentCreated, []byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, _, err := DeltaFor(outbox.TopicAppointmentCreated, []byte(`{"appointment_id":"x"}`)); err == nil {
		t.Fatalf("expected missing starts_at error")
	}
	if _, _, err := DeltaFor(outbox.TopicAppointmentCreated, []byte(`{"starts_at":"2024-03-08T17:30:00Z","price":"abc"}`)); err == nil {
		t.Fatalf("expected invalid price error")
	}
}

type fakeReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	cancel   context.CancelFunc
	closed   bool
	failOnce bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOnce {
		r.failOnce = false
		return kafka.Message{}, errors.New("broker unavailable")
	}
	if len(r.messages) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumerRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel:   cancel,
		failOnce: true,
		messages: []kafka.Message{
			eventMessage(t, outbox.TopicAppointmentCreated, "40.00"),
			eventMessage(t, outbox.TopicAppointmentDeleted, ""),
		},
	}
	var seen []string
	handler := func(_ context.Context, meta kafkax.EventMeta, msg kafka.Message) error {
		seen = append(seen, meta.EventType)
		if msg.Topic == outbox.TopicAppointmentDeleted {
			return errors.New("boom")
		}
		return nil
	}

	c := newConsumer(reader, testLogger(), handler)
	c.retryDelay = time.Millisecond
	c.Run(ctx)

	want := []string{outbox.TopicAppointmentCreated, outbox.TopicAppointmentDeleted}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("handled events (-want +got):\n%s", diff)
	}
	if !reader.closed {
		t.Fatalf("reader not closed")
	}
}

type stubDaily struct {
	got   time.Time
	err   error
	count Counts
}

func (s *stubDaily) Daily(_ context.Context, day time.Time) (Counts, error) {
	s.got = day
	return s.count, s.err
}

func TestDailyHandler(t *testing.T) {
	src := &stubDaily{count: Counts{Day: "2024-03-08", Booked: 2, Imported: 1, Revenue: decimal.RequireFromString("80")}}
	h := NewHandler(src, testLogger())

	rec := httptest.NewRecorder()
	h.Daily(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats/daily?date=2024-03-08", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if !src.got.Equal(model.Date(2024, time.March, 8)) {
		t.Fatalf("day: %v", src.got)
	}
	want := `{"day":"2024-03-08","booked":2,"imported":1,"cancelled":0,"revenue":"80"}`
	if got := rec.Body.String(); got != want {
		t.Fatalf("body: %s", got)
	}

	for _, tc := range []struct {
		method, target string
		status         int
	}{
		{http.MethodPost, "/api/v1/stats/daily?date=2024-03-08", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/stats/daily", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/stats/daily?date=soon", http.StatusBadRequest},
	} {
		rec := httptest.NewRecorder()
		h.Daily(rec, httptest.NewRequest(tc.method, tc.target, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s %s: status %d want %d", tc.method, tc.target, rec.Code, tc.status)
		}
	}

	src.err = errors.New("db down")
	rec = httptest.NewRecorder()
	h.Daily(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats/daily?date=2024-03-08", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: %d", rec.Code)
	}
}
