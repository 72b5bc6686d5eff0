// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// The go-env tag syntax splits on commas, so this default lives here.
const defaultTripFrom = "IGI Airport, T3"

// Markup modes accepted by MARKUP_MODE.
const (
	MarkupSanitize = "sanitize"
	MarkupPlain    = "plain"
	MarkupRaw      = "raw"
)

// Config holds application configuration.
type Config struct {
	Host string `env:"HOST,default=0.0.0.0"`
	Port int    `env:"PORT,default=8080"`

	ChatHistoryURL  string        `env:"CHAT_HISTORY_URL,default=https://qa.corider.in/assignment/chat"`
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT,default=10s"`
	StopOnEmptyPage bool          `env:"STOP_ON_EMPTY_PAGE,default=true"`
	MarkupMode      string        `env:"MARKUP_MODE,default=sanitize"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS,default=60"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW,default=1m"`

	// Browser events per page socket. The page sends a scroll frame at most
	// every 150ms plus one when scrolling stops, so the budget sits well
	// above that.
	PageEventRequests int           `env:"PAGE_EVENT_REQUESTS,default=20"`
	PageEventWindow   time.Duration `env:"PAGE_EVENT_WINDOW,default=1s"`

	TripName  string `env:"TRIP_NAME,default=Trip 1"`
	TripFrom  string `env:"TRIP_FROM"`
	TripTo    string `env:"TRIP_TO,default=Sector 28"`
	TripImage string `env:"TRIP_IMAGE,default=/static/trip.svg"`
	ReplyTo   string `env:"REPLY_TO,default=Rohit Yadav"`
}

// Load reads an optional .env file, then parses the environment into Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse environment: %w", err)
	}

	if cfg.TripFrom == "" {
		cfg.TripFrom = defaultTripFrom
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the values that the defaults cannot make safe.
func (c Config) Validate() error {
	u, err := url.Parse(c.ChatHistoryURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: CHAT_HISTORY_URL must be an absolute URL, got %q", c.ChatHistoryURL)
	}

	switch c.MarkupMode {
	case MarkupSanitize, MarkupPlain, MarkupRaw:
	default:
		return fmt.Errorf("config: MARKUP_MODE must be one of sanitize, plain, raw, got %q", c.MarkupMode)
	}

	if c.FetchTimeout <= 0 {
		return errors.New("config: FETCH_TIMEOUT must be positive")
	}

	if c.RateLimitRequests < 1 || c.RateLimitWindow <= 0 {
		return errors.New("config: RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}

	if c.PageEventRequests < 1 || c.PageEventWindow <= 0 {
		return errors.New("config: PAGE_EVENT_REQUESTS and PAGE_EVENT_WINDOW must be positive")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT out of range: %d", c.Port)
	}

	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
