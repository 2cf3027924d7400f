// Package listingfetcher loads listing pages for a filter state. Only the most
// recently issued request may update what the page shows.
package listingfetcher

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	apperrors "findmysecurity/internal/common/errors"
	"findmysecurity/internal/common/logger"
	"findmysecurity/internal/common/metrics"
	"findmysecurity/internal/listing/schema"
	"findmysecurity/internal/models"
)

var (
	ErrListingUnavailable     = errors.New("LISTING_FETCH_FAILED")
	ErrListingTimeout         = errors.New("LISTING_TIMEOUT")
	ErrInvalidListingResponse = errors.New("LISTING_INVALID_RESPONSE")
)

// Source executes one listing query against a backend.
type Source[T any] interface {
	Fetch(ctx context.Context, s schema.Schema, params url.Values) (*models.ListingResult[T], error)
}

// View is what the page renders. A failed refresh keeps the previous Result.
type View[T any] struct {
	Loading bool                     `json:"loading"`
	Error   string                   `json:"error,omitempty"`
	Result  *models.ListingResult[T] `json:"result"`
}

type Fetcher[T any] struct {
	config *Config
	schema schema.Schema
	source Source[T]
	logger logger.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	last       models.FilterState
	hasLast    bool
	view       View[T]
	settled    chan struct{}
	pending    bool
	onResult   func(*models.ListingResult[T])
}

func New[T any](config *Config, s schema.Schema, source Source[T], log logger.Logger) *Fetcher[T] {
	return &Fetcher[T]{
		config: config,
		schema: s,
		source: source,
		logger: logger.ForComponent(log, "listing-fetcher").WithFields(map[string]interface{}{
			"entity": string(s.Entity),
		}),
	}
}

// OnResult registers fn for every applied successful result. fn runs on the
// fetch goroutine.
func (f *Fetcher[T]) OnResult(fn func(*models.ListingResult[T])) {
	f.mu.Lock()
	f.onResult = fn
	f.mu.Unlock()
}

// Trigger issues a request for state and supersedes any request in flight.
// It returns the request's generation.
func (f *Fetcher[T]) Trigger(state models.FilterState) uint64 {
	params := f.schema.APIParams(state, f.config.PageSize)

	f.mu.Lock()
	f.generation++
	gen := f.generation
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.config.Timeout)
	f.cancel = cancel
	f.last = state
	f.hasLast = true
	f.view.Loading = true
	if !f.pending {
		f.settled = make(chan struct{})
		f.pending = true
	}
	f.mu.Unlock()

	go f.run(ctx, cancel, gen, params)
	return gen
}

// Retry re-issues the last requested state. It reports false when nothing was requested yet.
func (f *Fetcher[T]) Retry() (uint64, bool) {
	f.mu.Lock()
	state, ok := f.last, f.hasLast
	f.mu.Unlock()
	if !ok {
		return 0, false
	}
	return f.Trigger(state), true
}

func (f *Fetcher[T]) run(ctx context.Context, cancel context.CancelFunc, gen uint64, params url.Values) {
	defer cancel()
	entity := string(f.schema.Entity)

	start := time.Now()
	result, err := f.source.Fetch(ctx, f.schema, params)
	if err == nil && result == nil {
		err = ErrInvalidListingResponse
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = errors.Join(ErrListingTimeout, err)
	}
	metrics.ListingFetchDuration.WithLabelValues(entity).Observe(time.Since(start).Seconds())

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		metrics.ListingFetchesTotal.WithLabelValues(entity, "stale").Inc()
		metrics.StaleResponsesDiscarded.WithLabelValues("listing-fetcher").Inc()
		f.logger.Debug("discarding stale listing response", map[string]interface{}{
			"generation": gen,
		})
		return
	}

	f.view.Loading = false
	var cb func(*models.ListingResult[T])
	if err != nil {
		stdErr := f.classify(err)
		f.view.Error = stdErr.Message
		metrics.ListingFetchesTotal.WithLabelValues(entity, string(stdErr.Code)).Inc()
		f.logger.Warn("listing fetch failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
			"params":    params.Encode(),
		})
	} else {
		f.view.Error = ""
		f.view.Result = result
		cb = f.onResult
		metrics.ListingFetchesTotal.WithLabelValues(entity, "ok").Inc()
	}
	settled := f.release()
	f.mu.Unlock()

	if cb != nil {
		cb(result)
	}
	if settled != nil {
		close(settled)
	}
}

// release marks the latest request resolved and hands back the channel to close
// once callbacks have run. Callers hold f.mu.
func (f *Fetcher[T]) release() chan struct{} {
	if !f.pending {
		return nil
	}
	f.pending = false
	return f.settled
}

func (f *Fetcher[T]) classify(err error) *apperrors.StandardError {
	entity := string(f.schema.Entity)
	switch {
	case errors.Is(err, ErrListingTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewListingTimeoutError(entity, err)
	case errors.Is(err, ErrInvalidListingResponse):
		return apperrors.NewListingInvalidResponseError(entity, err.Error())
	default:
		return apperrors.NewListingFetchFailedError(entity, err)
	}
}

// View returns a snapshot of the current loading, error and result.
func (f *Fetcher[T]) View() View[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Wait blocks until the latest issued request has been applied or ctx ends.
func (f *Fetcher[T]) Wait(ctx context.Context) error {
	f.mu.Lock()
	if !f.pending {
		f.mu.Unlock()
		return nil
	}
	settled := f.settled
	f.mu.Unlock()

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels the request in flight; its response will be discarded.
func (f *Fetcher[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	if f.cancel != nil {
		f.cancel()
	}
	f.view.Loading = false
	if settled := f.release(); settled != nil {
		close(settled)
	}
}
