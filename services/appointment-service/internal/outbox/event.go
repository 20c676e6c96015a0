package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
)

const (
	TopicAppointmentCreated  = "appointment.created.v1"
	TopicAppointmentUpdated  = "appointment.updated.v1"
	TopicAppointmentDeleted  = "appointment.deleted.v1"
	TopicAppointmentImported = "appointment.imported.v1"

	AggregateAppointment = "appointment"
)

// Event is the envelope written to the outbox table. EventType doubles as the Kafka topic.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the JSON body of every appointment event.
type AppointmentPayload struct {
	AppointmentID string    `json:"appointment_id"`
	CustomerName  string    `json:"customer_name"`
	BarberName    string    `json:"barber_name,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Services      []string  `json:"services"`
	IsVIP         bool      `json:"is_vip"`
	Price         string    `json:"price,omitempty"`
}

// AppointmentEvent builds an event for topic. price may be empty, as for
// imports and deletions.
func AppointmentEvent(topic string, appt model.Appointment, price string) (Event, error) {
	styles := make([]string, 0, len(appt.Services))
	for _, s := range appt.Services {
		styles = append(styles, s.Style.String())
	}
	payload, err := json.Marshal(AppointmentPayload{
		AppointmentID: appt.ID,
		CustomerName:  appt.CustomerName,
		BarberName:    appt.BarberName,
		StartsAt:      appt.Start().UTC(),
		EndsAt:        appt.End().UTC(),
		Services:      styles,
		IsVIP:         appt.IsVIP,
		Price:         price,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     topic,
		Payload:       payload,
	}, nil
}
