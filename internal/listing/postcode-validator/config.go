// internal/listing/postcode-validator/config.go
package postcodevalidator

import (
	"time"

	"findmysecurity/internal/common/config"
)

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Debounce time.Duration
	CacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		BaseURL:  "https://api.postcodes.io",
		Timeout:  5 * time.Second,
		Debounce: 300 * time.Millisecond,
	}
}

// ConfigFrom builds a Config from the service configuration.
func ConfigFrom(cfg config.PostcodeConfig) *Config {
	return &Config{
		BaseURL:  cfg.BaseURL,
		Timeout:  config.GetDuration(cfg.Timeout),
		Debounce: config.GetDuration(cfg.Debounce),
		CacheTTL: config.GetDuration(cfg.CacheTTL),
	}
}
