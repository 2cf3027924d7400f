// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_fetches_total",
			Help: "Listing requests by entity and outcome",
		},
		[]string{"entity", "outcome"},
	)

	ListingFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_fetch_duration_seconds",
			Help:    "Duration of listing requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity"},
	)

	// StaleResponsesDiscarded counts responses dropped because a newer request superseded them.
	StaleResponsesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_stale_responses_discarded_total",
			Help: "Responses discarded because a newer request was issued",
		},
		[]string{"component"},
	)

	PostcodeValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postcode_validations_total",
			Help: "Postcode checks by outcome (valid, invalid, error, empty)",
		},
		[]string{"outcome"},
	)

	PostcodeCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postcode_cache_lookups_total",
			Help: "Postcode cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	FilterMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filter_mutations_total",
			Help: "Filter state mutations by entity, operation and outcome",
		},
		[]string{"entity", "op", "outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_http_requests_total",
			Help: "HTTP requests served by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
