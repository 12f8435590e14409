package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"tavola/internal/adapters/gcal"
	server "tavola/internal/adapters/http_server"
	"tavola/internal/adapters/llm"
	"tavola/internal/adapters/observability"
	redisad "tavola/internal/adapters/redis"
	"tavola/internal/adapters/sheets"
	"tavola/internal/app"
	"tavola/internal/domain"
	"tavola/internal/shared"
)

func main() {
	// .env is optional; real env wins
	_ = godotenv.Load()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	observability.Serve(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// menu
	var src domain.SheetSource
	if client, err := sheets.New(cfg.MenuCSVURL, cfg.MenuFetchRPS); err != nil {
		log.Warn().Err(err).Msg("menu source disabled")
	} else {
		src = client
	}
	menu := app.NewMenuService(src)

	// booking
	slots := app.NewSlotter(cfg.Location, cfg.SlotDuration())
	var cal domain.Calendar
	if cfg.CalendarConfigured() {
		c, err := gcal.New(ctx, cfg.CalendarID, cfg.CalendarCredJSON, cfg.Location)
		if err != nil {
			log.Error().Err(err).Msg("calendar client failed, bookings will report not_configured")
		} else {
			cal = c
		}
	}
	var delivery domain.BookingDelivery
	switch cfg.BookingMode {
	case shared.BookingModeMessage:
		delivery = app.NewMessageDelivery(cfg.Restaurant.WhatsAppNumber, cfg.Restaurant.Name)
	default:
		delivery = app.NewCalendarDelivery(cal, slots)
	}
	booking := app.NewBookingService(cal, delivery, slots, app.BookingConfig{
		Capacity:         cfg.Restaurant.Capacity,
		MaxGuests:        cfg.Restaurant.MaxGuestsPerBooking,
		TimeSlots:        cfg.Restaurant.TimeSlots,
		StrictGuestCount: cfg.StrictGuestCount,
	})
	log.Info().Str("mode", booking.Mode()).Str("timezone", cfg.Location.String()).
		Int("capacity", cfg.Restaurant.Capacity).Dur("slot", cfg.SlotDuration()).Msg("booking configured")

	// recommendations
	var model domain.LLM
	if m, err := llm.New(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMBaseURL); err != nil {
		log.Warn().Err(err).Msg("recommendations disabled")
	} else {
		model = m
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	var recoCache domain.Cache = cache
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := cache.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, recommendation cache off")
		recoCache = nil
	}
	cancel()
	reco := app.NewRecommendationService(menu, model, recoCache, cfg.RecommendCacheTTL, cfg.RecommendMaxInflight)

	// http
	srv := server.New(server.WithSubmitRate(cfg.BookingRPS))
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Menu: menu, Booking: booking, Recommend: reco})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("restaurant", cfg.Restaurant.Name).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
