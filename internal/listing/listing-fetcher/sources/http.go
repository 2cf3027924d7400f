// Package sources provides Listing API and search-index backends for the listing fetcher.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	commonhttp "findmysecurity/internal/common/http"
	"findmysecurity/internal/common/logger"
	"findmysecurity/internal/common/validation"
	listingfetcher "findmysecurity/internal/listing/listing-fetcher"
	"findmysecurity/internal/listing/schema"
	"findmysecurity/internal/models"
)

const maxResponseBytes = 5 << 20

var envelopeSchema = validation.MustCompile(validation.ListingEnvelopeSchema)

// EndpointResolver returns the Listing API path for an entity.
type EndpointResolver func(s schema.Schema) string

// DefaultEndpoint uses the schema's own endpoint.
func DefaultEndpoint(s schema.Schema) string {
	return s.Endpoint
}

// HTTPSource reads listings from the REST Listing API.
type HTTPSource[T any] struct {
	baseURL  string
	endpoint EndpointResolver
	client   *commonhttp.Client
	logger   logger.Logger
}

func NewHTTPSource[T any](baseURL string, endpoint EndpointResolver, client *commonhttp.Client, log logger.Logger) *HTTPSource[T] {
	if endpoint == nil {
		endpoint = DefaultEndpoint
	}
	return &HTTPSource[T]{
		baseURL:  strings.TrimRight(baseURL, "/"),
		endpoint: endpoint,
		client:   client,
		logger:   logger.ForComponent(log, "listing-http-source"),
	}
}

func (h *HTTPSource[T]) Fetch(ctx context.Context, s schema.Schema, params url.Values) (*models.ListingResult[T], error) {
	endpoint := h.baseURL + h.endpoint(s)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	resp, err := h.client.Get(ctx, endpoint)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", listingfetcher.ErrListingTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", listingfetcher.ErrListingUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", listingfetcher.ErrListingUnavailable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		h.logger.Warn("listing API returned error status", map[string]interface{}{
			"entity": string(s.Entity),
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("%w: status %d", listingfetcher.ErrListingUnavailable, resp.StatusCode)
	}

	if result := envelopeSchema.ValidateBytes(body); !result.Valid {
		return nil, fmt.Errorf("%w: %s", listingfetcher.ErrInvalidListingResponse, result.Summary())
	}

	var out models.ListingResult[T]
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", listingfetcher.ErrInvalidListingResponse, err)
	}
	if out.Items == nil {
		out.Items = []T{}
	}
	return &out, nil
}
