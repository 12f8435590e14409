package domain

import "context"

type SheetSource interface {
	FetchCSV(ctx context.Context) (string, error)
}

type Calendar interface {
	// ListEvents returns single (expanded) events overlapping w, ordered by start.
	ListEvents(ctx context.Context, w TimeWindow) ([]CalendarEvent, error)
	InsertEvent(ctx context.Context, ev CalendarEvent) (string, error)
}

// BookingDelivery turns a validated, accepted request into a confirmation.
type BookingDelivery interface {
	Mode() string
	// NeedsAvailability reports whether the request must pass the capacity check first.
	NeedsAvailability() bool
	Deliver(ctx context.Context, req BookingRequest) (Delivery, error)
}

type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
}
