package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"tavola/internal/domain"
	"tavola/internal/guestcount"
)

const summaryPrefix = "Reserva: "

// CalendarDelivery writes one event per booking. No retry, no idempotency key:
// a resubmitted form creates a second event.
type CalendarDelivery struct {
	cal   domain.Calendar
	slots *Slotter
}

func NewCalendarDelivery(cal domain.Calendar, slots *Slotter) *CalendarDelivery {
	return &CalendarDelivery{cal: cal, slots: slots}
}

func (d *CalendarDelivery) Mode() string            { return "calendar" }
func (d *CalendarDelivery) NeedsAvailability() bool { return true }

func (d *CalendarDelivery) Deliver(ctx context.Context, req domain.BookingRequest) (domain.Delivery, error) {
	if d.cal == nil {
		return domain.Delivery{}, domain.ErrNotConfigured
	}
	ev, err := BuildEvent(d.slots, req)
	if err != nil {
		return domain.Delivery{}, err
	}
	id, err := d.cal.InsertEvent(ctx, ev)
	if err != nil {
		return domain.Delivery{}, fmt.Errorf("%w: %w", domain.ErrCalendarCreateFailed, err)
	}
	if id == "" {
		return domain.Delivery{}, fmt.Errorf("%w: calendar returned no event id", domain.ErrCalendarCreateFailed)
	}
	return domain.Delivery{EventID: id}, nil
}

// BuildEvent renders the event for req over the same window the availability check uses.
func BuildEvent(slots *Slotter, req domain.BookingRequest) (domain.CalendarEvent, error) {
	w, err := slots.Window(req.Date, req.Time)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	notes := req.Notes
	if notes == "" {
		notes = "-"
	}
	body := strings.Join([]string{
		"Name: " + req.Name,
		"Email: " + req.Email,
		"Phone: " + req.Phone,
		"Date: " + req.Date,
		"Time: " + req.Time,
		fmt.Sprintf("Guests: %d", req.Guests),
		"Notes: " + notes,
	}, "\n")
	return domain.CalendarEvent{
		Summary:     guestcount.Summary(summaryPrefix+req.Name, req.Guests),
		Description: guestcount.Description(body, req.Guests),
		Start:       w.Start,
		End:         w.End,
		TimeZone:    slots.Location().String(),
	}, nil
}

// MessageDelivery prepares a WhatsApp message for the guest to send by hand.
// It never touches the calendar.
type MessageDelivery struct {
	number     string
	restaurant string
}

func NewMessageDelivery(number, restaurant string) *MessageDelivery {
	return &MessageDelivery{number: digitsOnly(number), restaurant: restaurant}
}

func (d *MessageDelivery) Mode() string            { return "message" }
func (d *MessageDelivery) NeedsAvailability() bool { return false }

func (d *MessageDelivery) Deliver(_ context.Context, req domain.BookingRequest) (domain.Delivery, error) {
	if d.number == "" {
		return domain.Delivery{}, domain.ErrNotConfigured
	}
	msg := d.message(req)
	link := "https://wa.me/" + d.number + "?text=" + strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
	return domain.Delivery{Message: msg, DeepLink: link}, nil
}

func (d *MessageDelivery) message(req domain.BookingRequest) string {
	var b strings.Builder
	if req.Lang == "es" {
		fmt.Fprintf(&b, "Hola %s, me gustaría reservar una mesa.\n", d.restaurant)
		fmt.Fprintf(&b, "Nombre: %s\nFecha: %s\nHora: %s\nComensales: %d\nTeléfono: %s\nEmail: %s",
			req.Name, req.Date, req.Time, req.Guests, req.Phone, req.Email)
		if req.Notes != "" {
			fmt.Fprintf(&b, "\nNotas: %s", req.Notes)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "Hello %s, I would like to book a table.\n", d.restaurant)
	fmt.Fprintf(&b, "Name: %s\nDate: %s\nTime: %s\nGuests: %d\nPhone: %s\nEmail: %s",
		req.Name, req.Date, req.Time, req.Guests, req.Phone, req.Email)
	if req.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", req.Notes)
	}
	return b.String()
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
