package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

// Gateway modes. The HTTP mode talks to the Clickatell platform REST API,
// the SOAP mode talks to the legacy sms.clickatell.com endpoint.
const (
	GatewayModeHTTP = "http"
	GatewayModeSOAP = "soap"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	SMSEnabled  bool   `env:"SMS_ENABLED,default=true"`
	GatewayMode string `env:"GATEWAY_MODE,default=http"`
	GatewayURL  string `env:"GATEWAY_URL"`

	// HTTP gateway credentials.
	ClickatellAPIKey string `env:"CLICKATELL_API_KEY"`

	// SOAP gateway credentials.
	ClickatellAPIID    int    `env:"CLICKATELL_API_ID"`
	ClickatellUsername string `env:"CLICKATELL_USERNAME"`
	ClickatellPassword string `env:"CLICKATELL_PASSWORD"`

	StoreName       string `env:"STORE_NAME,default=BuyBloem.com"`
	StoreOwnerPhone string `env:"STORE_OWNER_PHONE,required=true"`
	SenderPhone     string `env:"SENDER_PHONE"`

	PhoneCountryCode string `env:"PHONE_COUNTRY_CODE,default=27"`
	PhoneLocalLength int    `env:"PHONE_LOCAL_LENGTH,default=10"`

	RateLimitPerSec int    `env:"RATE_LIMIT_PER_SEC,default=20"`
	APIPort         int    `env:"API_PORT,default=8080"`
	LogLevel        string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.GatewayMode {
	case GatewayModeHTTP:
		if c.ClickatellAPIKey == "" {
			return fmt.Errorf("CLICKATELL_API_KEY is required when GATEWAY_MODE=http")
		}
	case GatewayModeSOAP:
		if c.ClickatellAPIID <= 0 || c.ClickatellUsername == "" || c.ClickatellPassword == "" {
			return fmt.Errorf("CLICKATELL_API_ID, CLICKATELL_USERNAME and CLICKATELL_PASSWORD are required when GATEWAY_MODE=soap")
		}
	default:
		return fmt.Errorf("unknown GATEWAY_MODE %q", c.GatewayMode)
	}
	if c.PhoneLocalLength <= 0 {
		return fmt.Errorf("PHONE_LOCAL_LENGTH must be positive")
	}
	if c.RateLimitPerSec <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SEC must be positive")
	}
	return nil
}
