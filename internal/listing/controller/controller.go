// Package controller wires one listing page: filter store, listing fetcher,
// postcode validator and pagination, for any entity type.
package controller

import (
	"context"
	"errors"
	"sync"

	"findmysecurity/internal/common/logger"
	filterstate "findmysecurity/internal/listing/filter-state"
	listingfetcher "findmysecurity/internal/listing/listing-fetcher"
	"findmysecurity/internal/listing/pagination"
	postcodevalidator "findmysecurity/internal/listing/postcode-validator"
	querycodec "findmysecurity/internal/listing/query-codec"
	"findmysecurity/internal/listing/schema"
	"findmysecurity/internal/models"
)

// PageView is everything a listing page renders.
type PageView[T any] struct {
	Entity          models.EntityType         `json:"entity"`
	Filters         models.FilterState        `json:"filters"`
	Query           string                    `json:"query"`
	Location        string                    `json:"location"`
	AdvancedVisible bool                      `json:"advancedVisible"`
	AdvancedFields  []models.Field            `json:"advancedFields"`
	Postcode        models.PostcodeValidation `json:"postcode"`
	Loading         bool                      `json:"loading"`
	Error           string                    `json:"error,omitempty"`
	Result          *models.ListingResult[T]  `json:"result"`
	Pagination      pagination.View           `json:"pagination"`
}

// Dependencies are the collaborators of one page instance.
type Dependencies[T any] struct {
	Schema         schema.Schema
	Source         listingfetcher.Source[T]
	Lookup         postcodevalidator.Lookup
	Navigator      filterstate.Navigator
	Session        filterstate.SessionEvidence
	Drafts         filterstate.DraftSaver
	StoreOptions   []filterstate.Option
	FetchConfig    *listingfetcher.Config
	PostcodeConfig *postcodevalidator.Config
	Logger         logger.Logger
}

type Controller[T any] struct {
	schema    schema.Schema
	store     *filterstate.Store
	fetcher   *listingfetcher.Fetcher[T]
	validator *postcodevalidator.Validator
	pager     *pagination.Controller
	logger    logger.Logger

	mu           sync.Mutex
	mounted      bool
	lastPostcode string
}

func New[T any](deps Dependencies[T]) *Controller[T] {
	log := logger.ForComponent(deps.Logger, "listing-controller").WithFields(map[string]interface{}{
		"entity": string(deps.Schema.Entity),
	})

	fetchConfig := deps.FetchConfig
	if fetchConfig == nil {
		fetchConfig = listingfetcher.LoadConfig()
	}
	postcodeConfig := deps.PostcodeConfig
	if postcodeConfig == nil {
		postcodeConfig = postcodevalidator.LoadConfig()
	}

	opts := append([]filterstate.Option{}, deps.StoreOptions...)
	if deps.Drafts != nil {
		opts = append(opts, filterstate.WithDrafts(deps.Drafts))
	}

	c := &Controller[T]{
		schema:    deps.Schema,
		store:     filterstate.NewStore(deps.Schema, deps.Navigator, deps.Session, deps.Logger, opts...),
		fetcher:   listingfetcher.New[T](fetchConfig, deps.Schema, deps.Source, deps.Logger),
		validator: postcodevalidator.NewValidator(postcodeConfig, deps.Lookup, deps.Logger),
		logger:    log,
	}
	c.pager = pagination.NewController(c.store, deps.Logger)

	c.store.Subscribe(c.onStateChange)
	c.fetcher.OnResult(c.onResult)
	return c
}

// Mount loads the state from the page URL and issues the first fetch and postcode check.
func (c *Controller[T]) Mount(query string) {
	c.store.Initialize(query)
}

func (c *Controller[T]) onStateChange(state models.FilterState) {
	c.fetcher.Trigger(state)

	c.mu.Lock()
	first := !c.mounted
	changed := first || state.Postcode != c.lastPostcode
	c.mounted = true
	c.lastPostcode = state.Postcode
	c.mu.Unlock()

	if !changed {
		return
	}
	if first {
		c.validator.SubmitNow(state.Postcode)
		return
	}
	c.validator.Submit(state.Postcode)
}

func (c *Controller[T]) onResult(result *models.ListingResult[T]) {
	view := pagination.Build(result)
	c.pager.Update(view)
	c.store.SetTotalPages(view.TotalPages)
}

// Store exposes the filter operations for user edits.
func (c *Controller[T]) Store() *filterstate.Store {
	return c.store
}

// Pagination exposes page-control clicks.
func (c *Controller[T]) Pagination() *pagination.Controller {
	return c.pager
}

// Navigate applies a URL reached through browser back/forward.
func (c *Controller[T]) Navigate(query string) {
	c.store.Restore(query)
}

// Retry re-issues the last listing request after a failure.
func (c *Controller[T]) Retry() bool {
	_, ok := c.fetcher.Retry()
	return ok
}

// ValidatePostcode runs an inline check of raw without touching the page state.
func (c *Controller[T]) ValidatePostcode(ctx context.Context, raw string) models.PostcodeValidation {
	return c.validator.Validate(ctx, raw)
}

// Wait blocks until the latest fetch and postcode check have resolved.
func (c *Controller[T]) Wait(ctx context.Context) error {
	return errors.Join(c.fetcher.Wait(ctx), c.validator.Wait(ctx))
}

func (c *Controller[T]) View() PageView[T] {
	state := c.store.State()
	query := querycodec.Encode(c.schema, state)
	fetch := c.fetcher.View()

	advancedFields := c.schema.AdvancedFields()
	if advancedFields == nil {
		advancedFields = []models.Field{}
	}

	return PageView[T]{
		Entity:          c.schema.Entity,
		Filters:         state,
		Query:           query,
		Location:        querycodec.Location(c.schema.Endpoint, query),
		AdvancedVisible: c.store.AdvancedVisible(),
		AdvancedFields:  advancedFields,
		Postcode:        c.validator.Current(),
		Loading:         fetch.Loading,
		Error:           fetch.Error,
		Result:          fetch.Result,
		Pagination:      c.pager.Render(),
	}
}

// Close cancels outstanding work. The controller must not be used afterwards.
func (c *Controller[T]) Close() {
	c.fetcher.Close()
	c.validator.Close()
}
