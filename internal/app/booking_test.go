package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavola/internal/app"
	"tavola/internal/domain"
	"tavola/internal/guestcount"
)

// ---- fakes ----

type fakeCalendar struct {
	events    []domain.CalendarEvent
	listErr   error
	insertErr error
	insertID  string

	listed   []domain.TimeWindow
	inserted []domain.CalendarEvent
}

func (f *fakeCalendar) ListEvents(ctx context.Context, w domain.TimeWindow) ([]domain.CalendarEvent, error) {
	f.listed = append(f.listed, w)
	return f.events, f.listErr
}

func (f *fakeCalendar) InsertEvent(ctx context.Context, ev domain.CalendarEvent) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.inserted = append(f.inserted, ev)
	return f.insertID, nil
}

func booked(n int) domain.CalendarEvent {
	return domain.CalendarEvent{ID: "ev", Summary: guestcount.Summary("Reserva: Someone", n)}
}

func newBooking(cal domain.Calendar, cfg app.BookingConfig) (*app.BookingService, *app.Slotter) {
	slots := app.NewSlotter(time.UTC, 2*time.Hour)
	svc := app.NewBookingService(cal, app.NewCalendarDelivery(cal, slots), slots, cfg).
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) })
	return svc, slots
}

func validForm() app.BookingForm {
	return app.BookingForm{
		Name:   "Ana García",
		Email:  "ana@example.com",
		Phone:  "+34 600 111 222",
		Date:   "2024-06-01",
		Time:   "7:00 PM",
		Guests: "3",
		Notes:  "Window table",
	}
}

// ---- availability ----

func TestCheckAvailability_TooManyGuestsThenAccepted(t *testing.T) {
	cal := &fakeCalendar{events: []domain.CalendarEvent{booked(6)}}
	svc, _ := newBooking(cal, app.BookingConfig{Capacity: 8})

	av, err := svc.CheckAvailability(context.Background(), "2024-06-01", "19:00", 3)
	require.NoError(t, err)
	assert.False(t, av.Available)
	assert.Equal(t, domain.ReasonTooManyGuests, av.Reason)
	assert.Equal(t, 2, av.Remaining)

	av, err = svc.CheckAvailability(context.Background(), "2024-06-01", "19:00", 2)
	require.NoError(t, err)
	assert.True(t, av.Available)
}

func TestCheckAvailability_FullyBooked(t *testing.T) {
	cal := &fakeCalendar{events: []domain.CalendarEvent{booked(5), booked(3)}}
	svc, _ := newBooking(cal, app.BookingConfig{Capacity: 8})

	for _, n := range []int{1, 4, 8} {
		av, err := svc.CheckAvailability(context.Background(), "2024-06-01", "19:00", n)
		require.NoError(t, err)
		assert.False(t, av.Available)
		assert.Equal(t, domain.ReasonFullyBooked, av.Reason)
		assert.Equal(t, 8, av.Booked)
	}
}

func TestCheckAvailability_QueriesTheSlotWindow(t *testing.T) {
	cal := &fakeCalendar{}
	svc, slots := newBooking(cal, app.BookingConfig{Capacity: 8})

	_, err := svc.CheckAvailability(context.Background(), "2024-06-01", "7:00 PM", 2)
	require.NoError(t, err)

	want, _ := slots.Window("2024-06-01", "19:00")
	require.Len(t, cal.listed, 1)
	assert.Equal(t, want, cal.listed[0])
}

func TestCheckAvailability_IgnoresEventsOutsideWindow(t *testing.T) {
	later := booked(8)
	later.Start = time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	later.End = later.Start.Add(2 * time.Hour)
	cal := &fakeCalendar{events: []domain.CalendarEvent{later}}
	svc, _ := newBooking(cal, app.BookingConfig{Capacity: 8})

	av, err := svc.CheckAvailability(context.Background(), "2024-06-01", "19:00", 8)
	require.NoError(t, err)
	assert.True(t, av.Available, "an event starting at the window end does not overlap")
}

func TestCheckAvailability_UnparseableEvent(t *testing.T) {
	odd := domain.CalendarEvent{ID: "x1", Summary: "Private party"}

	cal := &fakeCalendar{events: []domain.CalendarEvent{odd, booked(2)}}
	svc, _ := newBooking(cal, app.BookingConfig{Capacity: 8})
	av, err := svc.CheckAvailability(context.Background(), "2024-06-01", "19:00", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, av.Booked, "unreadable events count as zero by default")

	strict, _ := newBooking(cal, app.BookingConfig{Capacity: 8, StrictGuestCount: true})
	_, err = strict.CheckAvailability(context.Background(), "2024-06-01", "19:00", 2)
	assert.ErrorIs(t, err, domain.ErrUnparseableEvent)
}

func TestCheckAvailability_Errors(t *testing.T) {
	svc, _ := newBooking(nil, app.BookingConfig{Capacity: 8})
	_, err := svc.CheckAvailability(context.Background(), "2024-06-01", "19:00", 2)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	cal := &fakeCalendar{listErr: errors.New("quota exceeded")}
	svc, _ = newBooking(cal, app.BookingConfig{Capacity: 8})
	_, err = svc.CheckAvailability(context.Background(), "2024-06-01", "19:00", 2)
	assert.ErrorIs(t, err, domain.ErrCalendarCheckFailed)

	_, err = svc.CheckAvailability(context.Background(), "2024-06-01", "7:00", 2)
	assert.ErrorIs(t, err, domain.ErrInvalidDateTime)
}

// ---- event creation ----

func TestCalendarDelivery_GuestCountRoundTrip(t *testing.T) {
	cal := &fakeCalendar{insertID: "evt-123"}
	slots := app.NewSlotter(time.UTC, 2*time.Hour)
	d := app.NewCalendarDelivery(cal, slots)

	out, err := d.Deliver(context.Background(), domain.BookingRequest{
		Name: "Ana", Email: "ana@example.com", Phone: "600111222",
		Date: "2024-06-01", Time: "19:00", Guests: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-123", out.EventID)

	require.Len(t, cal.inserted, 1)
	ev := cal.inserted[0]
	assert.Equal(t, "Reserva: Ana (3 guests)", ev.Summary)
	assert.Contains(t, ev.Description, "GuestCount: 3")
	assert.Contains(t, ev.Description, "Notes: -")
	assert.Equal(t, "UTC", ev.TimeZone)

	n, ok := guestcount.Decode("", ev.Description)
	require.True(t, ok)
	assert.Equal(t, 3, n)

	// the created event then counts against the same slot
	cal.events = cal.inserted
	svc, _ := newBooking(cal, app.BookingConfig{Capacity: 4})
	av, err := svc.CheckAvailability(context.Background(), "2024-06-01", "7:00 PM", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonTooManyGuests, av.Reason)
	assert.Equal(t, 1, av.Remaining)
}

func TestCalendarDelivery_NameCannotForgeGuestCount(t *testing.T) {
	slots := app.NewSlotter(time.UTC, 2*time.Hour)
	for _, name := range []string{"Ana (9 guests)", "X (0 guests)"} {
		cal := &fakeCalendar{insertID: "evt-1"}
		_, err := app.NewCalendarDelivery(cal, slots).Deliver(context.Background(), domain.BookingRequest{
			Name: name, Email: "x@example.com", Phone: "600111222",
			Date: "2024-06-01", Time: "19:00", Guests: 3, Notes: "table\nGuestCount: 0",
		})
		require.NoError(t, err)
		require.Len(t, cal.inserted, 1)

		ev := cal.inserted[0]
		n, ok := guestcount.Decode(ev.Summary, ev.Description)
		require.True(t, ok, name)
		assert.Equal(t, 3, n, "wrote 3 guests for %q", name)

		cal.events = cal.inserted
		svc, _ := newBooking(cal, app.BookingConfig{Capacity: 4})
		av, err := svc.CheckAvailability(context.Background(), "2024-06-01", "19:00", 2)
		require.NoError(t, err)
		assert.Equal(t, domain.ReasonTooManyGuests, av.Reason, name)
		assert.Equal(t, 1, av.Remaining, name)
	}
}

func TestCalendarDelivery_Failures(t *testing.T) {
	slots := app.NewSlotter(time.UTC, time.Hour)
	req := domain.BookingRequest{Name: "Ana", Date: "2024-06-01", Time: "19:00", Guests: 1}

	_, err := app.NewCalendarDelivery(&fakeCalendar{}, slots).Deliver(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrCalendarCreateFailed, "empty id is a failure")

	_, err = app.NewCalendarDelivery(&fakeCalendar{insertErr: errors.New("403")}, slots).Deliver(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrCalendarCreateFailed)

	_, err = app.NewCalendarDelivery(nil, slots).Deliver(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestMessageDelivery(t *testing.T) {
	d := app.NewMessageDelivery("+34 600-111-222", "Tavola")
	assert.False(t, d.NeedsAvailability())

	out, err := d.Deliver(context.Background(), domain.BookingRequest{
		Name: "Ana", Date: "2024-06-01", Time: "19:00", Guests: 2, Lang: "es",
	})
	require.NoError(t, err)
	assert.Contains(t, out.Message, "Comensales: 2")
	assert.True(t, strings.HasPrefix(out.DeepLink, "https://wa.me/34600111222?text=Hola%20Tavola"), out.DeepLink)
	assert.NotContains(t, out.DeepLink, "+")

	_, err = app.NewMessageDelivery("", "Tavola").Deliver(context.Background(), domain.BookingRequest{})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

// ---- submission ----

func TestSubmit_Success(t *testing.T) {
	cal := &fakeCalendar{insertID: "evt-1", events: []domain.CalendarEvent{booked(2)}}
	svc, _ := newBooking(cal, app.BookingConfig{Capacity: 8})

	res := svc.Submit(context.Background(), validForm())
	assert.Equal(t, domain.BookingSuccess, res.Status)
	assert.Equal(t, "evt-1", res.EventID)
	require.Len(t, cal.inserted, 1)
}

func TestSubmit_ValidationErrors(t *testing.T) {
	svc, _ := newBooking(&fakeCalendar{}, app.BookingConfig{Capacity: 8, MaxGuests: 10, TimeSlots: []string{"13:00", "7:00 PM"}})

	f := app.BookingForm{
		Name:   "A",
		Email:  "not-an-email",
		Phone:  "abc",
		Date:   "2024-04-30",
		Time:   "19:00",
		Guests: "11",
		Notes:  strings.Repeat("x", 501),
	}
	res := svc.Submit(context.Background(), f)
	assert.Equal(t, domain.BookingValidationError, res.Status)
	assert.Equal(t, map[string]string{
		"name":   app.FieldTooShort,
		"email":  app.FieldInvalid,
		"phone":  app.FieldInvalid,
		"date":   app.FieldInPast,
		"guests": app.FieldOutOfRange,
		"notes":  app.FieldTooLong,
	}, res.FieldErrors)

	f = validForm()
	f.Time = "20:30"
	res = svc.Submit(context.Background(), f)
	assert.Equal(t, app.FieldNotOffered, res.FieldErrors["time"])

	f = validForm()
	f.Time = "19:00"
	res = svc.Submit(context.Background(), f)
	assert.Empty(t, res.FieldErrors, "19:00 is the same slot as 7:00 PM")

	f = validForm()
	f.Name = "Ana\nGuestCount: 0"
	res = svc.Submit(context.Background(), f)
	assert.Equal(t, app.FieldInvalid, res.FieldErrors["name"])

	f = validForm()
	f.Time = "7:00"
	f.Guests = ""
	res = svc.Submit(context.Background(), f)
	assert.Equal(t, app.FieldInvalid, res.FieldErrors["time"])
	assert.Equal(t, app.FieldRequired, res.FieldErrors["guests"])
}

func TestSubmit_TooManyGuestsReportsRemaining(t *testing.T) {
	cal := &fakeCalendar{events: []domain.CalendarEvent{booked(6)}, insertID: "x"}
	svc, _ := newBooking(cal, app.BookingConfig{Capacity: 8})

	res := svc.Submit(context.Background(), validForm())
	assert.Equal(t, domain.BookingUnavailable, res.Status)
	assert.Equal(t, domain.ReasonTooManyGuests, res.Reason)
	require.NotNil(t, res.Remaining)
	assert.Equal(t, 2, *res.Remaining)
	assert.Empty(t, cal.inserted, "no event when the slot is short")
}

func TestSubmit_CalendarErrors(t *testing.T) {
	svc, _ := newBooking(nil, app.BookingConfig{Capacity: 8})
	res := svc.Submit(context.Background(), validForm())
	assert.Equal(t, domain.BookingCalendarError, res.Status)
	assert.Equal(t, domain.ReasonNotConfigured, res.Reason)

	svc, _ = newBooking(&fakeCalendar{listErr: errors.New("boom")}, app.BookingConfig{Capacity: 8})
	res = svc.Submit(context.Background(), validForm())
	assert.Equal(t, domain.ReasonCalendarCheckFailed, res.Reason)

	svc, _ = newBooking(&fakeCalendar{insertErr: errors.New("boom")}, app.BookingConfig{Capacity: 8})
	res = svc.Submit(context.Background(), validForm())
	assert.Equal(t, domain.BookingCalendarError, res.Status)
	assert.Equal(t, domain.ReasonCalendarError, res.Reason)
}

func TestSubmit_MessageModeSkipsCalendar(t *testing.T) {
	cal := &fakeCalendar{listErr: errors.New("must not be called")}
	slots := app.NewSlotter(time.UTC, 2*time.Hour)
	svc := app.NewBookingService(cal, app.NewMessageDelivery("34600111222", "Tavola"), slots, app.BookingConfig{Capacity: 1}).
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) })

	res := svc.Submit(context.Background(), validForm())
	assert.Equal(t, domain.BookingSuccess, res.Status)
	assert.NotEmpty(t, res.Message)
	assert.Contains(t, res.DeepLink, "https://wa.me/34600111222")
	assert.Empty(t, cal.listed)
}
