// internal/listing/listing-fetcher/config.go
package listingfetcher

import (
	"time"

	"findmysecurity/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	PageSize int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  10 * time.Second,
		PageSize: 10,
	}
}

func ConfigFrom(cfg config.ListingConfig) *Config {
	return &Config{
		Timeout:  config.GetDuration(cfg.Timeout),
		PageSize: cfg.PageSize,
	}
}
