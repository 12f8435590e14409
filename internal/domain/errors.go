package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotConfigured        = errors.New("service not configured")
	ErrFetchFailed          = errors.New("menu fetch failed")
	ErrEmptyPayload         = errors.New("menu payload is empty")
	ErrHeaderMismatch       = errors.New("menu header mismatch")
	ErrInvalidDateTime      = errors.New("invalid date/time")
	ErrCalendarCheckFailed  = errors.New("calendar availability check failed")
	ErrCalendarCreateFailed = errors.New("calendar event creation failed")
	ErrUnparseableEvent     = errors.New("calendar event has no readable guest count")
	ErrBusy                 = errors.New("too many requests in flight")
)

const maxBodyPreview = 512

// FetchError reports a failed menu download. Status is 0 for transport failures.
type FetchError struct {
	URL         string
	Status      int
	BodyPreview string
	Cause       error
}

func NewFetchError(url string, status int, body string, cause error) *FetchError {
	body = strings.Join(strings.Fields(body), " ")
	if len(body) > maxBodyPreview {
		body = body[:maxBodyPreview] + "..."
	}
	return &FetchError{URL: url, Status: status, BodyPreview: body, Cause: cause}
}

func (e *FetchError) Error() string {
	parts := []string{ErrFetchFailed.Error()}
	if e.Status > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.BodyPreview != "" {
		parts = append(parts, fmt.Sprintf("body=%q", e.BodyPreview))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}
	return strings.Join(parts, "; ")
}

func (e *FetchError) Unwrap() error { return ErrFetchFailed }

// HeaderMismatchError lists the required columns missing from the sheet header.
type HeaderMismatchError struct {
	Missing []string
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrHeaderMismatch, strings.Join(e.Missing, ", "))
}

func (e *HeaderMismatchError) Unwrap() error { return ErrHeaderMismatch }
