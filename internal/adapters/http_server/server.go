package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct {
	mux       *chi.Mux
	submitRPS int
}

type Option func(*Server)

// WithSubmitRate caps booking submissions per client IP (requests/second).
func WithSubmitRate(rps int) Option { return func(s *Server) { s.submitRPS = rps } }

func New(opts ...Option) *Server {
	m := chi.NewRouter()

	// middlewares first, routes after
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(15 * time.Second))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	s := &Server{mux: m, submitRPS: 2}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
