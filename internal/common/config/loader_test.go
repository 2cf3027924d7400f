package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
listing:
  base_url: http://listings.internal
auth:
  jwt_secret: secret
database:
  redis:
    address: localhost:6379
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, SourceHTTP, cfg.Listing.Source)
	assert.Equal(t, 10000, cfg.Listing.Timeout)
	assert.Equal(t, 10, cfg.Listing.PageSize)
	assert.Equal(t, 300, cfg.Postcode.Debounce)
	assert.Equal(t, "fms_session", cfg.Auth.CookieName)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("FMS_TEST_LISTING_URL", "http://expanded.internal")
	path := writeConfig(t, `
listing:
  base_url: ${FMS_TEST_LISTING_URL}
auth:
  jwt_secret: secret
database:
  redis:
    address: localhost:6379
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://expanded.internal", cfg.Listing.BaseURL)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			Listing:  ListingConfig{BaseURL: "http://listings"},
			Auth:     AuthConfig{JWTSecret: "secret"},
			Database: DatabaseConfig{Redis: RedisConfig{Address: "localhost:6379"}},
		}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "http source without base url",
			mutate:  func(c *Config) { c.Listing.BaseURL = "" },
			wantErr: "listing.base_url",
		},
		{
			name:    "elasticsearch source without addresses",
			mutate:  func(c *Config) { c.Listing.Source = SourceElasticsearch },
			wantErr: "database.elasticsearch.addresses",
		},
		{
			name:    "unknown source",
			mutate:  func(c *Config) { c.Listing.Source = "ftp" },
			wantErr: "listing.source",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: "auth.jwt_secret",
		},
		{
			name:    "session checks without postgres",
			mutate:  func(c *Config) { c.Auth.CheckSessions = true },
			wantErr: "database.postgres",
		},
		{
			name:    "missing redis",
			mutate:  func(c *Config) { c.Database.Redis.Address = "" },
			wantErr: "database.redis.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestListingConfig_EndpointFor(t *testing.T) {
	l := ListingConfig{Endpoints: map[string]string{"companies": "/v2/companies"}}
	assert.Equal(t, "/v2/companies", l.EndpointFor("companies"))
	assert.Equal(t, "/professionals", l.EndpointFor("professionals"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 300*time.Millisecond, GetDuration(300))
}
