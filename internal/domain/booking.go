package domain

import "time"

type BookingRequest struct {
	Name   string
	Email  string
	Phone  string
	Date   string // 2006-01-02
	Time   string // "7:00 PM" or "19:00"
	Guests int
	Notes  string
	Lang   string // en|es, used for prepared messages
}

// TimeWindow is the closed-open interval [Start, End) a booking occupies.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func (w TimeWindow) StartRFC3339() string { return w.Start.Format(time.RFC3339) }
func (w TimeWindow) EndRFC3339() string   { return w.End.Format(time.RFC3339) }

// CalendarEvent is the subset of an external calendar event we read and write.
type CalendarEvent struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// Availability reasons.
const (
	ReasonFullyBooked   = "fully_booked"
	ReasonTooManyGuests = "too_many_guests"
)

type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
	Remaining int    `json:"remaining"`
}

type BookingStatus string

const (
	BookingSuccess         BookingStatus = "success"
	BookingValidationError BookingStatus = "validation_error"
	BookingUnavailable     BookingStatus = "availability_error"
	BookingCalendarError   BookingStatus = "calendar_error"
)

// Calendar-error reason codes.
const (
	ReasonNotConfigured       = "not_configured"
	ReasonCalendarCheckFailed = "calendar_check_failed"
	ReasonCalendarError       = "calendar_error"
	ReasonInvalidDateTime     = "invalid_date_time"
	ReasonUnparseableEvent    = "unparseable_event"
)

// BookingResult is the discriminated outcome of a booking submission.
type BookingResult struct {
	Status      BookingStatus     `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Remaining   *int              `json:"remaining,omitempty"`
	EventID     string            `json:"eventId,omitempty"`
	Message     string            `json:"message,omitempty"`
	DeepLink    string            `json:"deepLink,omitempty"`
}

// Delivery is what a BookingDelivery produced for a confirmed request.
type Delivery struct {
	EventID  string
	Message  string
	DeepLink string
}
