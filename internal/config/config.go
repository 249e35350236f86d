package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the checkout core reads from the environment.
// Poll timeouts intentionally differ between the full guest flow and the
// quick flow; they are tuned per flow and must not be unified.
type Config struct {
	BackendURL        string        `envconfig:"BACKEND_URL" default:"http://localhost:8081"`
	AuthToken         string        `envconfig:"AUTH_TOKEN"`
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
	PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`
	GuestPollTimeout  time.Duration `envconfig:"GUEST_POLL_TIMEOUT" default:"30s"`
	QuickPollTimeout  time.Duration `envconfig:"QUICK_POLL_TIMEOUT" default:"20s"`
	CartDBPath        string        `envconfig:"CART_DB_PATH" default:"cart.db"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	DevServerPort     string        `envconfig:"DEVSERVER_PORT" default:"8081"`
	DraftConfirmDelay time.Duration `envconfig:"DRAFT_CONFIRM_DELAY" default:"4s"`
}

// Load reads .env (best effort) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TABLY", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
