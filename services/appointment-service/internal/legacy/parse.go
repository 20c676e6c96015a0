package legacy

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/catalog"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
)

// RecordElement is the element name of one appointment in the feed.
const RecordElement = "Appointment"

const servicesSeparator = "|"

// Date layouts tried in order: ISO first, then the dotted European form.
var dateLayouts = []string{"2006-01-02", "2.1.2006"}

// Parser turns a well-formed feed into appointments.
type Parser struct {
	codes   CodeTable
	catalog catalog.Provider
	newID   func() string
}

func NewParser(codes CodeTable, cat catalog.Provider, newID func() string) *Parser {
	if codes == nil {
		codes = DefaultCodes()
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Parser{codes: codes, catalog: cat, newID: newID}
}

// rawRecord collects every child element and attribute of a record so that
// field names can be matched without regard to case.
type rawRecord struct {
	Attrs  []xml.Attr `xml:",any,attr"`
	Fields []rawField `xml:",any"`
}

type rawField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

func (r rawRecord) lookup(name string) (string, bool) {
	for _, f := range r.Fields {
		if strings.EqualFold(f.XMLName.Local, name) {
			return strings.TrimSpace(f.Value), true
		}
	}
	for _, a := range r.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return strings.TrimSpace(a.Value), true
		}
	}
	return "", false
}

// Parse walks the record elements directly under the root, or the document
// element itself when it is a record. Rejected records do not stop the batch.
func (p *Parser) Parse(doc string) (Result, error) {
	var res Result
	dec := newDecoder(strings.NewReader(doc))
	depth, position := 0, 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth <= 1 && strings.EqualFold(t.Name.Local, RecordElement) {
				position++
				var rec rawRecord
				if err := dec.DecodeElement(&rec, &t); err != nil {
					return res, fmt.Errorf("%w: record %d: %v", ErrMalformedDocument, position, err)
				}
				appt, failure := p.build(rec, position)
				if failure != nil {
					res.Failures = append(res.Failures, *failure)
				} else {
					res.Successes = append(res.Successes, appt)
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
}

func recordID(rec rawRecord, position int) string {
	if id, ok := rec.lookup("id"); ok && id != "" {
		return id
	}
	return "#" + strconv.Itoa(position)
}

func (p *Parser) build(rec rawRecord, position int) (model.Appointment, *Failure) {
	id := recordID(rec, position)
	fail := func(kind ErrorKind, detail string) (model.Appointment, *Failure) {
		return model.Appointment{}, &Failure{RecordID: id, Kind: kind, Detail: detail}
	}

	customer, ok := rec.lookup("CustomerName")
	if !ok || customer == "" {
		return fail(MissingCompulsoryField, "CustomerName")
	}

	rawDate, ok := rec.lookup("Date")
	if !ok || rawDate == "" {
		return fail(MissingCompulsoryField, "Date")
	}
	date, err := ParseDate(rawDate)
	if err != nil {
		return fail(InvalidDate, rawDate)
	}

	rawStart, _ := rec.lookup("StartTime")
	start, err := model.ParseClock(rawStart)
	if err != nil {
		return fail(MissingCompulsoryField, "StartTime")
	}

	rawDuration, _ := rec.lookup("Duration")
	minutes, err := strconv.Atoi(rawDuration)
	if err != nil || minutes <= 0 {
		return fail(MissingCompulsoryField, "Duration")
	}

	rawServices, ok := rec.lookup("Services")
	if !ok {
		return fail(MissingCompulsoryField, "Services")
	}
	styles, unknown := p.resolveServices(rawServices)
	if unknown != "" {
		return fail(NoServices, "unknown service code "+strconv.Quote(unknown))
	}
	if len(styles) == 0 {
		return fail(NoServices, "")
	}

	barber, _ := rec.lookup("BarberName")
	beverage, _ := rec.lookup("BeverageChoice")
	vip, _ := rec.lookup("IsVip")

	appt := model.Appointment{
		ID:             p.newID(),
		Date:           date,
		StartTime:      start,
		Duration:       time.Duration(minutes) * time.Minute,
		CustomerName:   customer,
		BarberName:     barber,
		BeverageChoice: beverage,
		IsVIP:          parseFlag(vip),
	}
	appt.Services = make([]model.AppointmentService, 0, len(styles))
	for _, style := range styles {
		appt.Services = append(appt.Services, model.AppointmentService{
			ID:            p.newID(),
			Name:          p.serviceName(style),
			Style:         style,
			AppointmentID: appt.ID,
		})
	}
	return appt, nil
}

// resolveServices returns the first unknown code, if any, instead of dropping it.
func (p *Parser) resolveServices(raw string) ([]model.StyleReference, string) {
	var styles []model.StyleReference
	for _, code := range strings.Split(raw, servicesSeparator) {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		ref, ok := p.codes.Resolve(code)
		if !ok {
			return nil, code
		}
		styles = append(styles, ref)
	}
	return styles, ""
}

func (p *Parser) serviceName(ref model.StyleReference) string {
	if p.catalog == nil {
		return ref.String()
	}
	return catalog.DisplayName(p.catalog, ref)
}

// ParseDate accepts YYYY-MM-DD and DD.MM.YYYY and returns midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}
