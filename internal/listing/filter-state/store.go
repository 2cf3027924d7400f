// Package filterstate owns one listing page's filter values and keeps them in
// step with the page URL.
package filterstate

import (
	"context"
	"errors"
	"sync"

	"findmysecurity/internal/common/logger"
	"findmysecurity/internal/common/metrics"
	querycodec "findmysecurity/internal/listing/query-codec"
	"findmysecurity/internal/listing/schema"
	"findmysecurity/internal/models"
)

var (
	ErrAuthenticationRequired = errors.New("AUTHENTICATION_REQUIRED")
	ErrAdvancedFiltersHidden  = errors.New("ADVANCED_FILTERS_HIDDEN")
	ErrUnknownField           = errors.New("UNKNOWN_FIELD")
)

// Navigator records a new browser history entry for the page.
type Navigator interface {
	Push(query string)
}

// SessionEvidence reports whether the caller is signed in. It is read-only.
type SessionEvidence interface {
	HasSession(ctx context.Context) bool
}

// DraftSaver persists the last encoded query of a page.
type DraftSaver interface {
	SaveDraft(entity models.EntityType, query string)
}

// Listener receives the state after every change.
type Listener func(models.FilterState)

type Option func(*Store)

// WithDrafts saves every navigated query through d.
func WithDrafts(d DraftSaver) Option {
	return func(s *Store) { s.drafts = d }
}

// WithAdvancedVisible restores the advanced-filter visibility of an existing page.
func WithAdvancedVisible(visible bool) Option {
	return func(s *Store) { s.advanced = visible }
}

// Store holds the filter state of one page instance. Every successful mutation
// pushes exactly one navigation and notifies listeners exactly once; rejected
// mutations change nothing.
//
// Listeners and the navigator run while the store's lock is held so that
// notifications arrive in mutation order. They must not call back into the store.
type Store struct {
	schema    schema.Schema
	navigator Navigator
	session   SessionEvidence
	drafts    DraftSaver
	logger    logger.Logger

	mu         sync.Mutex
	state      models.FilterState
	advanced   bool
	totalPages int
	listeners  []Listener
}

func NewStore(s schema.Schema, navigator Navigator, session SessionEvidence, log logger.Logger, opts ...Option) *Store {
	st := &Store{
		schema:    s,
		navigator: navigator,
		session:   session,
		logger: logger.ForComponent(log, "filter-state").WithFields(map[string]interface{}{
			"entity": string(s.Entity),
		}),
		state: models.DefaultFilterState(),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Subscribe registers fn for every subsequent change.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Initialize loads the state from the page URL at mount. It does not navigate.
func (s *Store) Initialize(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = querycodec.Decode(s.schema, query)
	s.notifyLocked()
}

// Restore applies a URL the browser returned to through back/forward. It does not navigate.
func (s *Store) Restore(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := querycodec.Decode(s.schema, query)
	if next == s.state {
		return
	}
	s.state = next
	s.notifyLocked()
}

// SetCategory replaces the category. The sub-category always depends on the
// category, so it is cleared even when the category is unchanged.
func (s *Store) SetCategory(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Category = value
	s.state.SubCategory = ""
	s.state.Page = 1
	s.commitLocked("setCategory")
}

// SetField updates a text field and resets the page to 1. category is routed
// through SetCategory's rules. Advanced fields are rejected while hidden.
func (s *Store) SetField(field models.Field, value string) error {
	if field == models.FieldCategory {
		s.SetCategory(value)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if field == models.FieldPage || !s.schema.Supports(field) {
		s.reject("setField", ErrUnknownField, field)
		return ErrUnknownField
	}
	if field.IsAdvanced() && !s.advanced {
		s.reject("setField", ErrAdvancedFiltersHidden, field)
		return ErrAdvancedFiltersHidden
	}

	s.state.Set(field, value)
	s.state.Page = 1
	s.commitLocked("setField")
	return nil
}

// SetPage moves to page n, clamped to [1, totalPages] when the page count is known.
// It returns the page actually applied.
func (s *Store) SetPage(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.totalPages >= 1 && n > s.totalPages {
		n = s.totalPages
	}
	if n < 1 {
		n = 1
	}
	s.state.Page = n
	s.commitLocked("setPage")
	return n
}

// ClearAll resets every filter and the page. The advanced flag is left alone.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = models.DefaultFilterState()
	s.commitLocked("clearAll")
}

// ToggleAdvanced flips advanced-filter visibility for signed-in users. Field
// values are never touched. Without a session it returns ErrAuthenticationRequired.
func (s *Store) ToggleAdvanced(ctx context.Context) (bool, error) {
	if s.session == nil || !s.session.HasSession(ctx) {
		s.mu.Lock()
		s.reject("toggleAdvanced", ErrAuthenticationRequired, "")
		s.mu.Unlock()
		return false, ErrAuthenticationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanced = !s.advanced
	s.pushLocked()
	metrics.FilterMutations.WithLabelValues(string(s.schema.Entity), "toggleAdvanced", "ok").Inc()
	return s.advanced, nil
}

// SetTotalPages records the page count of the latest listing result. It is not
// a filter change and does not navigate.
func (s *Store) SetTotalPages(n int) {
	s.mu.Lock()
	s.totalPages = n
	s.mu.Unlock()
}

func (s *Store) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPages
}

func (s *Store) State() models.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) AdvancedVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanced
}

// Query returns the encoded form of the current state.
func (s *Store) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return querycodec.Encode(s.schema, s.state)
}

func (s *Store) Schema() schema.Schema {
	return s.schema
}

func (s *Store) commitLocked(op string) {
	s.pushLocked()
	s.notifyLocked()
	metrics.FilterMutations.WithLabelValues(string(s.schema.Entity), op, "ok").Inc()
}

func (s *Store) pushLocked() {
	query := querycodec.Encode(s.schema, s.state)
	if s.navigator != nil {
		s.navigator.Push(query)
	}
	if s.drafts != nil {
		s.drafts.SaveDraft(s.schema.Entity, query)
	}
}

func (s *Store) notifyLocked() {
	state := s.state
	for _, fn := range s.listeners {
		fn(state)
	}
}

func (s *Store) reject(op string, err error, field models.Field) {
	metrics.FilterMutations.WithLabelValues(string(s.schema.Entity), op, err.Error()).Inc()
	s.logger.Debug("filter change rejected", map[string]interface{}{
		"op":     op,
		"field":  string(field),
		"reason": err.Error(),
	})
}
