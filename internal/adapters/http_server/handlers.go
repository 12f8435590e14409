package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"tavola/internal/adapters/observability"
	"tavola/internal/app"
	"tavola/internal/domain"
)

const (
	maxFormBytes = 64 << 10
	maxJSONBytes = 16 << 10
)

type Handlers struct {
	Menu      *app.MenuService
	Booking   *app.BookingService
	Recommend *app.RecommendationService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/api/menu", h.getMenu)
	s.mux.Get("/api/availability", h.getAvailability)
	s.mux.With(RateLimit(s.submitRPS, 2*s.submitRPS)).Post("/api/bookings", h.postBooking)
	s.mux.Post("/api/recommendations", h.postRecommendation)
}

func selectLang(al string) string {
	s := strings.ToLower(al)
	if strings.HasPrefix(s, "fr") {
		return "fr"
	}
	if strings.HasPrefix(s, "es") {
		return "es"
	}
	return "en"
}

func writeProblem(w http.ResponseWriter, status int, title, code, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Code: code, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
// Item IDs change on every fetch, so they are left out of the hash.
func calcETagAndBody(items []domain.MenuItem) (string, []byte) {
	body, err := json.Marshal(items)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal menu")
		return "", nil
	}
	h := sha1.New()
	for _, it := range items {
		it.ID = ""
		b, _ := json.Marshal(it)
		h.Write(b)
	}
	return `W/"` + hex.EncodeToString(h.Sum(nil)) + `"`, body
}

// menuProblem maps pipeline-aborting errors to a stable code. Upstream detail stays in the log.
func menuProblem(w http.ResponseWriter, err error) {
	var hm *domain.HeaderMismatchError
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		writeProblem(w, http.StatusServiceUnavailable, "Menu Unavailable", "not_configured", "menu source is not configured")
	case errors.As(err, &hm):
		writeProblem(w, http.StatusBadGateway, "Menu Unavailable", "header_mismatch", "missing columns: "+strings.Join(hm.Missing, ", "))
	case errors.Is(err, domain.ErrEmptyPayload):
		writeProblem(w, http.StatusBadGateway, "Menu Unavailable", "empty_payload", "menu source returned no data")
	default:
		writeProblem(w, http.StatusBadGateway, "Menu Unavailable", "fetch_failed", "menu source could not be fetched")
	}
}

func (h *Handlers) getMenu(w http.ResponseWriter, r *http.Request) {
	items, st, err := h.Menu.Load(r.Context())
	if err != nil {
		log.Error().Err(err).Str("kind", observability.LabelErr(err)).Msg("menu load failed")
		menuProblem(w, err)
		return
	}

	etag, body := calcETagAndBody(items)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Menu-Hidden", strconv.Itoa(st.Hidden))
	w.Header().Set("X-Menu-Invalid", strconv.Itoa(st.Invalid+st.Skipped))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write menu body")
	}
}

func (h *Handlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	guests := 1
	if gs := q.Get("guests"); gs != "" {
		g, err := strconv.Atoi(gs)
		if err != nil || g <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid guests", "invalid_guests", "guests must be a positive integer")
			return
		}
		guests = g
	}

	av, err := h.Booking.CheckAvailability(r.Context(), q.Get("date"), q.Get("time"), guests)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, av)
	case errors.Is(err, domain.ErrInvalidDateTime):
		writeProblem(w, http.StatusBadRequest, "Invalid date or time", domain.ReasonInvalidDateTime, "use YYYY-MM-DD and 7:00 PM or 19:00")
	case errors.Is(err, domain.ErrNotConfigured):
		writeProblem(w, http.StatusServiceUnavailable, "Booking Unavailable", domain.ReasonNotConfigured, "")
	case errors.Is(err, domain.ErrUnparseableEvent):
		log.Error().Err(err).Msg("availability check failed")
		writeProblem(w, http.StatusBadGateway, "Booking Unavailable", domain.ReasonUnparseableEvent, "")
	default:
		log.Error().Err(err).Msg("availability check failed")
		writeProblem(w, http.StatusBadGateway, "Booking Unavailable", domain.ReasonCalendarCheckFailed, "")
	}
}

func (h *Handlers) postBooking(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxFormBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, domain.BookingResult{
			Status:      domain.BookingValidationError,
			FieldErrors: map[string]string{"form": app.FieldInvalid},
		})
		return
	}

	lang := r.PostFormValue("lang")
	if lang == "" {
		lang = selectLang(r.Header.Get("Accept-Language"))
	}
	res := h.Booking.Submit(r.Context(), app.BookingForm{
		Name:   r.PostFormValue("name"),
		Email:  r.PostFormValue("email"),
		Phone:  r.PostFormValue("phone"),
		Date:   r.PostFormValue("date"),
		Time:   r.PostFormValue("time"),
		Guests: r.PostFormValue("guests"),
		Notes:  r.PostFormValue("notes"),
		Lang:   lang,
	})
	writeJSON(w, bookingStatus(res), res)
}

func bookingStatus(res domain.BookingResult) int {
	switch res.Status {
	case domain.BookingSuccess:
		return http.StatusCreated
	case domain.BookingValidationError:
		return http.StatusUnprocessableEntity
	case domain.BookingUnavailable:
		return http.StatusConflict
	}
	if res.Reason == domain.ReasonNotConfigured {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

type recommendationRequest struct {
	Preferences string `json:"preferences"`
	Lang        string `json:"lang"`
}

func (h *Handlers) postRecommendation(w http.ResponseWriter, r *http.Request) {
	var in recommendationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err := dec.Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "invalid_body", "expected {\"preferences\": \"...\", \"lang\": \"en\"}")
		return
	}
	lang := strings.ToLower(strings.TrimSpace(in.Lang))
	if lang != "en" && lang != "es" && lang != "fr" {
		lang = selectLang(r.Header.Get("Accept-Language"))
	}

	rec, err := h.Recommend.Recommend(r.Context(), in.Preferences, lang)
	switch {
	case err == nil:
		w.Header().Set("Content-Language", rec.Language)
		writeJSON(w, http.StatusOK, rec)
	case errors.Is(err, domain.ErrBusy):
		w.Header().Set("Retry-After", "2")
		writeProblem(w, http.StatusServiceUnavailable, "Recommendations Busy", "busy", "try again in a moment")
	case errors.Is(err, domain.ErrFetchFailed), errors.Is(err, domain.ErrEmptyPayload), errors.Is(err, domain.ErrHeaderMismatch):
		log.Error().Err(err).Msg("recommendation menu load failed")
		menuProblem(w, err)
	case errors.Is(err, domain.ErrNotConfigured):
		writeProblem(w, http.StatusServiceUnavailable, "Recommendations Unavailable", "not_configured", "")
	default:
		log.Error().Err(err).Msg("recommendation failed")
		writeProblem(w, http.StatusBadGateway, "Recommendations Unavailable", "llm_failed", "")
	}
}
