// internal/listing/postcode-validator/lookup.go
package postcodevalidator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"findmysecurity/internal/common/database"
	commonhttp "findmysecurity/internal/common/http"
	"findmysecurity/internal/common/logger"
	"findmysecurity/internal/common/metrics"
)

var ErrLookupFailed = errors.New("POSTCODE_LOOKUP_FAILED")

// Lookup answers whether a normalised postcode is a real UK postcode.
type Lookup interface {
	Validate(ctx context.Context, postcode string) (bool, error)
}

// HTTPLookup calls a postcodes.io compatible service.
type HTTPLookup struct {
	baseURL string
	client  *commonhttp.Client
}

func NewHTTPLookup(config *Config) *HTTPLookup {
	return &HTTPLookup{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  commonhttp.NewClient(config.Timeout),
	}
}

// NewHTTPLookupWithClient is used by tests to inject an httptest client.
func NewHTTPLookupWithClient(baseURL string, client *commonhttp.Client) *HTTPLookup {
	return &HTTPLookup{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type validateResponse struct {
	Status int   `json:"status"`
	Result *bool `json:"result"`
}

func (l *HTTPLookup) Validate(ctx context.Context, postcode string) (bool, error) {
	endpoint := fmt.Sprintf("%s/postcodes/%s/validate", l.baseURL, url.PathEscape(postcode))

	resp, err := l.client.Get(ctx, endpoint)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var body validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return false, fmt.Errorf("%w: decode: %v", ErrLookupFailed, err)
	}
	if body.Result == nil {
		return false, fmt.Errorf("%w: response has no result", ErrLookupFailed)
	}
	return *body.Result, nil
}

// Cache is the subset of database.RedisClient the cached lookup needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CachedLookup remembers definite answers from next. Errors are never cached.
type CachedLookup struct {
	next   Lookup
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedLookup(next Lookup, cache Cache, ttl time.Duration, log logger.Logger) *CachedLookup {
	return &CachedLookup{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.ForComponent(log, "postcode-cache"),
	}
}

func cacheKey(postcode string) string {
	return "postcode:valid:" + postcode
}

func (c *CachedLookup) Validate(ctx context.Context, postcode string) (bool, error) {
	key := cacheKey(postcode)

	val, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		metrics.PostcodeCacheLookups.WithLabelValues("hit").Inc()
		return val == "1", nil
	case !errors.Is(err, database.ErrCacheMiss):
		c.logger.Warn("postcode cache read failed", map[string]interface{}{
			"postcode": postcode,
			"error":    err.Error(),
		})
	}
	metrics.PostcodeCacheLookups.WithLabelValues("miss").Inc()

	valid, err := c.next.Validate(ctx, postcode)
	if err != nil {
		return false, err
	}

	stored := "0"
	if valid {
		stored = "1"
	}
	if err := c.cache.Set(ctx, key, stored, c.ttl); err != nil {
		c.logger.Warn("postcode cache write failed", map[string]interface{}{
			"postcode": postcode,
			"error":    err.Error(),
		})
	}
	return valid, nil
}
