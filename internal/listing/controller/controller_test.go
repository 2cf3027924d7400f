package controller

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"findmysecurity/internal/common/logger"
	filterstate "findmysecurity/internal/listing/filter-state"
	listingfetcher "findmysecurity/internal/listing/listing-fetcher"
	"findmysecurity/internal/listing/pagination"
	postcodevalidator "findmysecurity/internal/listing/postcode-validator"
	"findmysecurity/internal/listing/schema"
	"findmysecurity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test helpers
// ==========================

// fakeSource serves professionals from a fixed total, recording every request.
type fakeSource struct {
	mu    sync.Mutex
	total int
	calls []url.Values
	fail  bool
}

func (f *fakeSource) Fetch(_ context.Context, _ schema.Schema, params url.Values) (*models.ListingResult[models.Professional], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	if f.fail {
		return nil, listingfetcher.ErrListingUnavailable
	}
	return &models.ListingResult[models.Professional]{
		TotalCount: f.total,
		Page:       atoi(params.Get("page")),
		PageSize:   10,
		Items:      []models.Professional{{ID: "p1", FullName: "Sam Okafor"}},
	}, nil
}

func (f *fakeSource) requests() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.calls...)
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

type fakeLookup map[string]bool

func (f fakeLookup) Validate(_ context.Context, postcode string) (bool, error) {
	return f[postcode], nil
}

type fakeSession bool

func (f fakeSession) HasSession(context.Context) bool { return bool(f) }

func createTestController(t *testing.T, source *fakeSource, signedIn bool, query string) (*Controller[models.Professional], *filterstate.History) {
	t.Helper()
	s, err := schema.Lookup(models.EntityProfessionals)
	require.NoError(t, err)

	history := filterstate.NewHistory(s.Endpoint, query)
	c := New(Dependencies[models.Professional]{
		Schema:         s,
		Source:         source,
		Lookup:         fakeLookup{"SW1A 1AA": true},
		Navigator:      history,
		Session:        fakeSession(signedIn),
		FetchConfig:    &listingfetcher.Config{Timeout: time.Second, PageSize: 10},
		PostcodeConfig: &postcodevalidator.Config{Timeout: time.Second, Debounce: 10 * time.Millisecond},
		Logger:         logger.NewTestLogger(t),
	})
	t.Cleanup(c.Close)
	return c, history
}

func settle(t *testing.T, c *Controller[models.Professional]) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

// ==========================
// Scenarios
// ==========================

func TestMount_FetchesAndPaginates(t *testing.T) {
	source := &fakeSource{total: 47}
	c, history := createTestController(t, source, false, "category=Door%20Supervisor&page=2")

	c.Mount(history.Current())
	settle(t, c)

	view := c.View()
	assert.Equal(t, models.FilterState{Category: "Door Supervisor", Page: 2}, view.Filters)
	assert.Equal(t, "/professionals?category=Door%20Supervisor&page=2", view.Location)
	assert.Equal(t, 47, view.Result.TotalCount)
	assert.Equal(t, 5, view.Pagination.TotalPages)
	assert.Len(t, view.Pagination.Pages, 5)
	assert.True(t, view.Pagination.Pages[1].Current)
	assert.True(t, view.Postcode.IsValid)
	assert.Equal(t, 0, history.Pushes())

	reqs := source.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Door Supervisor", reqs[0].Get("role"))
	assert.Equal(t, "2", reqs[0].Get("page"))
}

func TestEditRefetchesWithPageReset(t *testing.T) {
	source := &fakeSource{total: 47}
	c, history := createTestController(t, source, false, "category=CCTV&page=3")
	c.Mount(history.Current())
	settle(t, c)

	require.NoError(t, c.Store().SetField(models.FieldPostcode, "SW1A 1AA"))
	settle(t, c)

	assert.Equal(t, "category=CCTV&postcode=SW1A%201AA", history.Current())
	assert.Equal(t, 1, history.Pushes())

	reqs := source.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "1", reqs[1].Get("page"))
	assert.Equal(t, "SW1A 1AA", reqs[1].Get("postcode"))
	assert.True(t, c.View().Postcode.IsValid)
}

func TestInvalidPostcodeDoesNotBlockFetch(t *testing.T) {
	source := &fakeSource{total: 3}
	c, history := createTestController(t, source, false, "")
	c.Mount(history.Current())
	settle(t, c)

	require.NoError(t, c.Store().SetField(models.FieldPostcode, "ZZ9 9ZZ"))
	settle(t, c)

	view := c.View()
	assert.Equal(t, models.PostcodeValidation{IsValid: false, ErrorMessage: postcodevalidator.MessageInvalid}, view.Postcode)

	reqs := source.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "ZZ9 9ZZ", reqs[1].Get("postcode"))
	assert.Empty(t, view.Pagination.Pages, "3 results fit on one page")
}

func TestPaginationClickNavigatesAndFetches(t *testing.T) {
	source := &fakeSource{total: 47}
	c, history := createTestController(t, source, false, "category=CCTV")
	c.Mount(history.Current())
	settle(t, c)

	require.NoError(t, c.Pagination().Click(4))
	settle(t, c)

	assert.Equal(t, "category=CCTV&page=4", history.Current())
	assert.Equal(t, 4, c.View().Pagination.Current)
	assert.Len(t, source.requests(), 2)

	assert.ErrorIs(t, c.Pagination().Click(9), pagination.ErrPageOutOfRange)
}

func TestToggleAdvanced_SignedOut(t *testing.T) {
	source := &fakeSource{total: 1}
	c, history := createTestController(t, source, false, "")
	c.Mount(history.Current())
	settle(t, c)

	_, err := c.Store().ToggleAdvanced(context.Background())
	assert.ErrorIs(t, err, filterstate.ErrAuthenticationRequired)
	assert.False(t, c.View().AdvancedVisible)
	assert.Equal(t, 0, history.Pushes())
	assert.Len(t, source.requests(), 1)
}

func TestBackNavigationRestoresAndRefetches(t *testing.T) {
	source := &fakeSource{total: 47}
	c, history := createTestController(t, source, false, "")
	c.Mount(history.Current())
	settle(t, c)

	c.Store().SetCategory("CCTV")
	settle(t, c)
	c.Store().SetPage(2)
	settle(t, c)

	query, ok := history.Back()
	require.True(t, ok)
	c.Navigate(query)
	settle(t, c)

	assert.Equal(t, models.FilterState{Category: "CCTV", Page: 1}, c.View().Filters)
	assert.Equal(t, 2, history.Pushes())
	assert.Len(t, source.requests(), 4)
}

func TestFailureKeepsPreviousResultAndRetry(t *testing.T) {
	source := &fakeSource{total: 12}
	c, history := createTestController(t, source, false, "")
	c.Mount(history.Current())
	settle(t, c)

	source.mu.Lock()
	source.fail = true
	source.mu.Unlock()
	c.Store().SetCategory("CCTV")
	settle(t, c)

	view := c.View()
	assert.NotEmpty(t, view.Error)
	require.NotNil(t, view.Result)
	assert.Equal(t, 12, view.Result.TotalCount)

	source.mu.Lock()
	source.fail = false
	source.mu.Unlock()
	require.True(t, c.Retry())
	settle(t, c)
	assert.Empty(t, c.View().Error)
}
