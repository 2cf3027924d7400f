package api

import (
	"context"

	"findmysecurity/internal/common/auth"
	"findmysecurity/internal/common/logger"
	"findmysecurity/internal/listing/controller"
	filterstate "findmysecurity/internal/listing/filter-state"
	listingfetcher "findmysecurity/internal/listing/listing-fetcher"
	postcodevalidator "findmysecurity/internal/listing/postcode-validator"
	"findmysecurity/internal/listing/schema"
)

// Page renders one listing page. Each entity type has its own item type, so
// pages are built with NewPage and held behind this interface.
type Page interface {
	Schema() schema.Schema
	Render(ctx context.Context, query string, advanced bool) (interface{}, error)
}

// PageDeps are shared by every page of the service.
type PageDeps struct {
	FetchConfig    *listingfetcher.Config
	PostcodeConfig *postcodevalidator.Config
	Lookup         postcodevalidator.Lookup
	Logger         logger.Logger
}

type listingPage[T any] struct {
	schema schema.Schema
	source listingfetcher.Source[T]
	deps   PageDeps
}

func NewPage[T any](s schema.Schema, source listingfetcher.Source[T], deps PageDeps) Page {
	return &listingPage[T]{schema: s, source: source, deps: deps}
}

func (p *listingPage[T]) Schema() schema.Schema {
	return p.schema
}

// Render mounts a controller on query and waits for the first fetch and
// postcode check. Listing failures are part of the returned view.
func (p *listingPage[T]) Render(ctx context.Context, query string, advanced bool) (interface{}, error) {
	ctl := controller.New(controller.Dependencies[T]{
		Schema:         p.schema,
		Source:         p.source,
		Lookup:         p.deps.Lookup,
		Navigator:      filterstate.NewHistory(p.schema.Endpoint, query),
		Session:        auth.RequestEvidence{},
		StoreOptions:   []filterstate.Option{filterstate.WithAdvancedVisible(advanced)},
		FetchConfig:    p.deps.FetchConfig,
		PostcodeConfig: p.deps.PostcodeConfig,
		Logger:         p.deps.Logger,
	})
	defer ctl.Close()

	ctl.Mount(query)
	if err := ctl.Wait(ctx); err != nil {
		return nil, err
	}
	return ctl.View(), nil
}
