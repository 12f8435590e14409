package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

const (
	BookingModeCalendar = "calendar"
	BookingModeMessage  = "message"
)

// Restaurant is the venue profile. It can come from a TOML file
// (RESTAURANT_CONFIG) and every field can be overridden from env.
type Restaurant struct {
	Name                string   `toml:"name"`
	Timezone            string   `toml:"timezone"`
	SlotMinutes         int      `toml:"slot_minutes"`
	Capacity            int      `toml:"capacity"`
	MaxGuestsPerBooking int      `toml:"max_guests_per_booking"`
	TimeSlots           []string `toml:"time_slots"`
	WhatsAppNumber      string   `toml:"whatsapp_number"`
}

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	Restaurant Restaurant
	Location   *time.Location

	MenuCSVURL   string
	MenuFetchRPS int

	BookingMode      string
	BookingRPS       int
	CalendarID       string
	CalendarCredJSON string // service account key, raw JSON
	StrictGuestCount bool

	LLMAPIKey            string
	LLMModel             string
	LLMBaseURL           string
	RecommendCacheTTL    time.Duration
	RecommendMaxInflight int
}

func defaultRestaurant() Restaurant {
	return Restaurant{
		Name:                "Tavola",
		Timezone:            "Europe/Madrid",
		SlotMinutes:         120,
		Capacity:            40,
		MaxGuestsPerBooking: 12,
	}
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric env value")
		}
		return def
	}

	r := defaultRestaurant()
	if path := os.Getenv("RESTAURANT_CONFIG"); path != "" {
		if fr, err := LoadRestaurantFile(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("restaurant profile not loaded, using defaults")
		} else {
			r = mergeRestaurant(r, fr)
		}
	}
	r.Name = env("RESTAURANT_NAME", r.Name)
	r.Timezone = env("RESTAURANT_TIMEZONE", r.Timezone)
	r.SlotMinutes = atoi("BOOKING_SLOT_MINUTES", r.SlotMinutes)
	r.Capacity = atoi("BOOKING_CAPACITY", r.Capacity)
	r.MaxGuestsPerBooking = atoi("MAX_GUESTS_PER_BOOKING", r.MaxGuestsPerBooking)
	if v := os.Getenv("TIME_SLOTS"); v != "" {
		r.TimeSlots = splitList(v)
	}
	r.WhatsAppNumber = env("WHATSAPP_NUMBER", r.WhatsAppNumber)

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		Restaurant: r,
		Location:   loadLocation(r.Timezone),

		MenuCSVURL:   env("MENU_CSV_URL", ""),
		MenuFetchRPS: atoi("MENU_FETCH_RPS", 5),

		BookingMode:      strings.ToLower(env("BOOKING_MODE", BookingModeCalendar)),
		BookingRPS:       atoi("BOOKING_SUBMIT_RPS", 2),
		CalendarID:       env("GOOGLE_CALENDAR_ID", ""),
		CalendarCredJSON: credentialsJSON(),
		StrictGuestCount: envBool("BOOKING_STRICT_GUEST_COUNT", false),

		LLMAPIKey:            env("LLM_API_KEY", ""),
		LLMModel:             env("LLM_MODEL", "gpt-4o-mini"),
		LLMBaseURL:           env("LLM_BASE_URL", ""),
		RecommendCacheTTL:    time.Duration(atoi("RECOMMEND_CACHE_TTL_SECONDS", 600)) * time.Second,
		RecommendMaxInflight: atoi("RECOMMEND_MAX_INFLIGHT", 4),
	}
	for _, p := range c.Problems() {
		log.Warn().Msg(p)
	}
	return c
}

// Problems lists settings that will make some requests fail with
// "not configured". None of them stop the process.
func (c Config) Problems() []string {
	var out []string
	if c.MenuCSVURL == "" {
		out = append(out, "MENU_CSV_URL is empty")
	}
	switch c.BookingMode {
	case BookingModeCalendar:
		if !c.CalendarConfigured() {
			out = append(out, "calendar booking mode needs GOOGLE_CALENDAR_ID and service account credentials")
		}
	case BookingModeMessage:
		if c.Restaurant.WhatsAppNumber == "" {
			out = append(out, "message booking mode needs WHATSAPP_NUMBER")
		}
	default:
		out = append(out, "BOOKING_MODE must be calendar or message, got "+c.BookingMode)
	}
	if c.LLMAPIKey == "" {
		out = append(out, "LLM_API_KEY is empty, recommendations disabled")
	}
	return out
}

func (c Config) CalendarConfigured() bool {
	return c.CalendarID != "" && c.CalendarCredJSON != ""
}

func (c Config) SlotDuration() time.Duration {
	return time.Duration(c.Restaurant.SlotMinutes) * time.Minute
}

func LoadRestaurantFile(path string) (Restaurant, error) {
	var r Restaurant
	_, err := toml.DecodeFile(path, &r)
	return r, err
}

func mergeRestaurant(base, over Restaurant) Restaurant {
	if over.Name != "" {
		base.Name = over.Name
	}
	if over.Timezone != "" {
		base.Timezone = over.Timezone
	}
	if over.SlotMinutes > 0 {
		base.SlotMinutes = over.SlotMinutes
	}
	if over.Capacity > 0 {
		base.Capacity = over.Capacity
	}
	if over.MaxGuestsPerBooking > 0 {
		base.MaxGuestsPerBooking = over.MaxGuestsPerBooking
	}
	if len(over.TimeSlots) > 0 {
		base.TimeSlots = over.TimeSlots
	}
	if over.WhatsAppNumber != "" {
		base.WhatsAppNumber = over.WhatsAppNumber
	}
	return base
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn().Err(err).Str("timezone", name).Msg("unknown timezone, falling back to UTC")
		return time.UTC
	}
	return loc
}

// credentialsJSON reads the service account key inline or from a file path.
func credentialsJSON() string {
	if v := os.Getenv("GOOGLE_CALENDAR_CREDENTIALS_JSON"); v != "" {
		return v
	}
	if p := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("cannot read calendar credentials file")
			return ""
		}
		return string(b)
	}
	return ""
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
