package legacy

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
)

// ErrorKind classifies a rejected legacy record.
type ErrorKind int

const (
	MissingCompulsoryField ErrorKind = iota + 1
	InvalidDate
	NoServices
)

func (k ErrorKind) String() string {
	switch k {
	case MissingCompulsoryField:
		return "missing_compulsory_field"
	case InvalidDate:
		return "invalid_date"
	case NoServices:
		return "no_services"
	default:
		return fmt.Sprintf("import_error_%d", int(k))
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type Failure struct {
	RecordID string    `json:"record_id"`
	Kind     ErrorKind `json:"kind"`
	Detail   string    `json:"detail,omitempty"`
}

func (f Failure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("record %s: %s", f.RecordID, f.Kind)
	}
	return fmt.Sprintf("record %s: %s (%s)", f.RecordID, f.Kind, f.Detail)
}

// Result keeps successes and failures in input order.
type Result struct {
	Successes []model.Appointment
	Failures  []Failure
}

func (r Result) Total() int {
	return len(r.Successes) + len(r.Failures)
}

var (
	// ErrMalformedDocument is returned, alongside the records decoded so far,
	// when the feed is broken beyond what Repair fixes.
	ErrMalformedDocument = errors.New("legacy: malformed document")
	// ErrUnreadableSource wraps FileReader failures.
	ErrUnreadableSource = errors.New("legacy: unreadable source")
)
