package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"tavola/internal/adapters/observability"
	"tavola/internal/domain"
	"tavola/internal/guestcount"
)

// Field error codes, stable for localized display.
const (
	FieldRequired   = "required"
	FieldTooShort   = "too_short"
	FieldTooLong    = "too_long"
	FieldInvalid    = "invalid"
	FieldInPast     = "in_past"
	FieldNotOffered = "not_offered"
	FieldOutOfRange = "out_of_range"
)

const maxNotes = 500

type BookingConfig struct {
	Capacity  int
	MaxGuests int
	TimeSlots []string // empty means any time
	// StrictGuestCount fails the availability check when an overlapping
	// event carries no readable guest count instead of counting it as 0.
	StrictGuestCount bool
}

// BookingForm is the raw submission, one string per form field.
type BookingForm struct {
	Name   string
	Email  string
	Phone  string
	Date   string
	Time   string
	Guests string
	Notes  string
	Lang   string
}

type BookingService struct {
	cal      domain.Calendar
	delivery domain.BookingDelivery
	slots    *Slotter
	cfg      BookingConfig
	now      func() time.Time
}

// NewBookingService wires the workflow. cal may be nil when the calendar is
// not configured; availability checks then fail with domain.ErrNotConfigured.
func NewBookingService(cal domain.Calendar, d domain.BookingDelivery, slots *Slotter, cfg BookingConfig) *BookingService {
	if cfg.MaxGuests <= 0 {
		cfg.MaxGuests = 12
	}
	return &BookingService{cal: cal, delivery: d, slots: slots, cfg: cfg, now: time.Now}
}

// WithClock overrides the wall clock used for "not in the past" checks.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

func (s *BookingService) Mode() string { return s.delivery.Mode() }

// CheckAvailability sums the guests already booked in the slot and compares
// against the configured capacity. A negative outcome is not an error.
func (s *BookingService) CheckAvailability(ctx context.Context, date, clock string, guests int) (domain.Availability, error) {
	if s.cal == nil {
		return domain.Availability{}, domain.ErrNotConfigured
	}
	w, err := s.slots.Window(date, clock)
	if err != nil {
		return domain.Availability{}, err
	}
	evs, err := s.cal.ListEvents(ctx, w)
	if err != nil {
		return domain.Availability{}, fmt.Errorf("%w: %w", domain.ErrCalendarCheckFailed, err)
	}

	booked := 0
	for _, ev := range evs {
		if !overlaps(ev, w) {
			continue
		}
		n, ok := guestcount.Decode(ev.Summary, ev.Description)
		if !ok {
			observability.ObserveUnparsedEvent()
			if s.cfg.StrictGuestCount {
				return domain.Availability{}, fmt.Errorf("%w: event %s", domain.ErrUnparseableEvent, ev.ID)
			}
			log.Warn().Str("event_id", ev.ID).Str("summary", ev.Summary).
				Msg("calendar event has no guest count, counting as 0")
			continue
		}
		booked += n
	}
	return Evaluate(s.cfg.Capacity, booked, guests), nil
}

// Evaluate is the capacity rule for one slot.
func Evaluate(capacity, booked, requested int) domain.Availability {
	a := domain.Availability{Capacity: capacity, Booked: booked, Remaining: capacity - booked}
	switch {
	case a.Remaining <= 0:
		a.Reason = domain.ReasonFullyBooked
		a.Remaining = 0
	case a.Remaining < requested:
		a.Reason = domain.ReasonTooManyGuests
	default:
		a.Available = true
	}
	return a
}

// overlaps keeps events whose times are known and fall outside w from counting.
func overlaps(ev domain.CalendarEvent, w domain.TimeWindow) bool {
	if ev.Start.IsZero() || ev.End.IsZero() {
		return true
	}
	return ev.Start.Before(w.End) && ev.End.After(w.Start)
}

// Submit validates the form, checks capacity when the delivery mode needs it,
// and delivers the booking. Every outcome is a BookingResult.
func (s *BookingService) Submit(ctx context.Context, f BookingForm) domain.BookingResult {
	res := s.submit(ctx, f)
	observability.ObserveBooking(string(res.Status), res.Reason)
	return res
}

func (s *BookingService) submit(ctx context.Context, f BookingForm) domain.BookingResult {
	req, fe := s.Validate(f)
	if len(fe) > 0 {
		return domain.BookingResult{Status: domain.BookingValidationError, FieldErrors: fe}
	}

	if s.delivery.NeedsAvailability() {
		av, err := s.CheckAvailability(ctx, req.Date, req.Time, req.Guests)
		if err != nil {
			log.Error().Err(err).Str("date", req.Date).Str("time", req.Time).Msg("availability check failed")
			return domain.BookingResult{Status: domain.BookingCalendarError, Reason: calendarReason(err, domain.ReasonCalendarCheckFailed)}
		}
		if !av.Available {
			out := domain.BookingResult{Status: domain.BookingUnavailable, Reason: av.Reason}
			if av.Reason == domain.ReasonTooManyGuests {
				rem := av.Remaining
				out.Remaining = &rem
			}
			return out
		}
	}

	d, err := s.delivery.Deliver(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("mode", s.delivery.Mode()).Msg("booking delivery failed")
		return domain.BookingResult{Status: domain.BookingCalendarError, Reason: calendarReason(err, domain.ReasonCalendarError)}
	}
	log.Info().Str("mode", s.delivery.Mode()).Str("event_id", d.EventID).Str("date", req.Date).
		Str("time", req.Time).Int("guests", req.Guests).Msg("booking accepted")
	return domain.BookingResult{
		Status:   domain.BookingSuccess,
		EventID:  d.EventID,
		Message:  d.Message,
		DeepLink: d.DeepLink,
	}
}

func calendarReason(err error, def string) string {
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		return domain.ReasonNotConfigured
	case errors.Is(err, domain.ErrInvalidDateTime):
		return domain.ReasonInvalidDateTime
	case errors.Is(err, domain.ErrUnparseableEvent):
		return domain.ReasonUnparseableEvent
	case errors.Is(err, domain.ErrCalendarCheckFailed):
		return domain.ReasonCalendarCheckFailed
	default:
		return def
	}
}

// Validate checks every field and returns per-field error codes keyed by form field name.
func (s *BookingService) Validate(f BookingForm) (domain.BookingRequest, map[string]string) {
	fe := map[string]string{}
	req := domain.BookingRequest{
		Name:  strings.TrimSpace(f.Name),
		Email: strings.TrimSpace(f.Email),
		Phone: strings.TrimSpace(f.Phone),
		Date:  strings.TrimSpace(f.Date),
		Time:  strings.TrimSpace(f.Time),
		Notes: strings.TrimSpace(f.Notes),
		Lang:  normalizeLang(f.Lang),
	}

	switch n := utf8.RuneCountInString(req.Name); {
	case n == 0:
		fe["name"] = FieldRequired
	case n < 2:
		fe["name"] = FieldTooShort
	case n > 100:
		fe["name"] = FieldTooLong
	case strings.IndexFunc(req.Name, unicode.IsControl) >= 0:
		// the name lands on one line of the event description
		fe["name"] = FieldInvalid
	}

	if req.Email == "" {
		fe["email"] = FieldRequired
	} else if a, err := mail.ParseAddress(req.Email); err != nil || a.Address != req.Email {
		fe["email"] = FieldInvalid
	}

	switch {
	case req.Phone == "":
		fe["phone"] = FieldRequired
	case !validPhone(req.Phone):
		fe["phone"] = FieldInvalid
	}

	if req.Date == "" {
		fe["date"] = FieldRequired
	}
	if req.Time == "" {
		fe["time"] = FieldRequired
	}
	if req.Date != "" && req.Time != "" {
		s.validateSlot(req.Date, req.Time, fe)
	}

	g, err := strconv.Atoi(strings.TrimSpace(f.Guests))
	switch {
	case strings.TrimSpace(f.Guests) == "":
		fe["guests"] = FieldRequired
	case err != nil:
		fe["guests"] = FieldInvalid
	case g < 1 || g > s.cfg.MaxGuests:
		fe["guests"] = FieldOutOfRange
	default:
		req.Guests = g
	}

	if utf8.RuneCountInString(req.Notes) > maxNotes {
		fe["notes"] = FieldTooLong
	}
	return req, fe
}

func (s *BookingService) validateSlot(date, clock string, fe map[string]string) {
	loc := s.slots.Location()
	d, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		fe["date"] = FieldInvalid
		return
	}
	now := s.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if d.Before(today) {
		fe["date"] = FieldInPast
		return
	}

	w, err := s.slots.Window(date, clock)
	if err != nil {
		fe["time"] = FieldInvalid
		return
	}
	if w.Start.Before(now) {
		fe["time"] = FieldInPast
		return
	}
	if len(s.cfg.TimeSlots) > 0 && !offered(s.cfg.TimeSlots, clock) {
		fe["time"] = FieldNotOffered
	}
}

func offered(slots []string, clock string) bool {
	for _, sl := range slots {
		if sameClock(sl, clock) {
			return true
		}
	}
	return false
}

func validPhone(p string) bool {
	if n := len(p); n < 6 || n > 20 {
		return false
	}
	digits := 0
	for _, r := range p {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune("+-() ", r):
		default:
			return false
		}
	}
	return digits >= 6
}

func normalizeLang(l string) string {
	l = strings.ToLower(strings.TrimSpace(l))
	if strings.HasPrefix(l, "es") {
		return "es"
	}
	return "en"
}
