package api

import (
	"errors"
	"net/http"
	"strings"

	"findmysecurity/internal/common/auth"
	apperrors "findmysecurity/internal/common/errors"
	filterstate "findmysecurity/internal/listing/filter-state"
	querycodec "findmysecurity/internal/listing/query-codec"
	"findmysecurity/internal/models"

	"github.com/gin-gonic/gin"
)

// Mutation operations accepted by the mutations route.
const (
	OpSetCategory    = "setCategory"
	OpSetField       = "setField"
	OpSetPage        = "setPage"
	OpClearAll       = "clearAll"
	OpToggleAdvanced = "toggleAdvanced"
)

// advancedParam carries advanced-filter visibility on page loads. It is not a filter.
const advancedParam = "advanced"

const listingsPath = "/api/v1/listings/"

// pageLocation is the gateway URL that renders the page for query.
func pageLocation(entity models.EntityType, query string, advanced bool) string {
	location := querycodec.Location(listingsPath+string(entity), query)
	if !advanced {
		return location
	}
	if query == "" {
		return location + "?" + advancedParam + "=1"
	}
	return location + "&" + advancedParam + "=1"
}

type mutationRequest struct {
	Query           string `json:"query"`
	AdvancedVisible bool   `json:"advancedVisible"`
	TotalPages      int    `json:"totalPages"`
	Op              string `json:"op" binding:"required"`
	Field           string `json:"field"`
	Value           string `json:"value"`
	Page            int    `json:"page"`
}

type mutationResponse struct {
	Location        string             `json:"location"`
	Query           string             `json:"query"`
	Filters         models.FilterState `json:"filters"`
	AdvancedVisible bool               `json:"advancedVisible"`
}

type draftResponse struct {
	Entity   models.EntityType `json:"entity"`
	Query    string            `json:"query"`
	Location string            `json:"location"`
}

func (s *Server) page(c *gin.Context) (Page, bool) {
	entity := c.Param("entity")
	p, ok := s.pages[models.EntityType(entity)]
	if !ok {
		s.errors.Respond(c, apperrors.NewUnknownEntityError(entity))
		return nil, false
	}
	return p, true
}

// getListing renders a page for the query in the URL.
func (s *Server) getListing(c *gin.Context) {
	p, ok := s.page(c)
	if !ok {
		return
	}

	advanced := c.Query(advancedParam) == "1" && auth.RequestEvidence{}.HasSession(c.Request.Context())
	view, err := p.Render(c.Request.Context(), c.Request.URL.RawQuery, advanced)
	if err != nil {
		s.errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// postMutation applies one user edit to the page state in the request and
// answers with the single navigation it produces.
func (s *Server) postMutation(c *gin.Context) {
	p, ok := s.page(c)
	if !ok {
		return
	}

	var req mutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errors.Respond(c, apperrors.NewInvalidMutationError(err.Error()))
		return
	}

	ctx := c.Request.Context()
	evidence, _ := auth.EvidenceFrom(ctx)
	sch := p.Schema()

	opts := []filterstate.Option{
		filterstate.WithAdvancedVisible(req.AdvancedVisible && evidence.Authenticated),
	}
	if s.drafts != nil && evidence.Authenticated {
		opts = append(opts, filterstate.WithDrafts(s.drafts.For(ctx, evidence.UserID)))
	}

	history := filterstate.NewHistory(sch.Endpoint, req.Query)
	store := filterstate.NewStore(sch, history, auth.RequestEvidence{}, s.logger, opts...)
	store.Initialize(req.Query)
	store.SetTotalPages(req.TotalPages)

	if err := s.apply(c, store, req); err != nil {
		s.errors.Respond(c, err)
		return
	}

	resp := mutationResponse{
		Location:        history.Location(),
		Query:           store.Query(),
		Filters:         store.State(),
		AdvancedVisible: store.AdvancedVisible(),
	}
	if wantsRedirect(c) {
		c.Redirect(http.StatusSeeOther, pageLocation(sch.Entity, resp.Query, resp.AdvancedVisible))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) apply(c *gin.Context, store *filterstate.Store, req mutationRequest) error {
	switch req.Op {
	case OpSetCategory:
		store.SetCategory(req.Value)
	case OpSetField:
		err := store.SetField(models.Field(req.Field), req.Value)
		switch {
		case errors.Is(err, filterstate.ErrAdvancedFiltersHidden):
			return apperrors.NewAdvancedFiltersHiddenError(req.Field)
		case err != nil:
			return apperrors.NewInvalidMutationError("unsupported field: " + req.Field)
		}
	case OpSetPage:
		store.SetPage(req.Page)
	case OpClearAll:
		store.ClearAll()
	case OpToggleAdvanced:
		if _, err := store.ToggleAdvanced(c.Request.Context()); err != nil {
			return apperrors.NewAuthenticationRequiredError(s.loginURL)
		}
	default:
		return apperrors.NewInvalidMutationError("unknown op: " + req.Op)
	}
	return nil
}

func wantsRedirect(c *gin.Context) bool {
	return c.Query("redirect") == "1" || strings.Contains(c.GetHeader("Accept"), "text/html")
}

// getDraft returns the caller's last saved query for the page.
func (s *Server) getDraft(c *gin.Context) {
	p, ok := s.page(c)
	if !ok {
		return
	}

	evidence, _ := auth.EvidenceFrom(c.Request.Context())
	if !evidence.Authenticated {
		s.errors.Respond(c, apperrors.NewAuthenticationRequiredError(s.loginURL))
		return
	}

	entity := p.Schema().Entity
	if s.drafts == nil {
		s.errors.Respond(c, apperrors.NewDraftNotFoundError(string(entity)))
		return
	}

	query, err := s.drafts.Load(c.Request.Context(), evidence.UserID, entity)
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			s.errors.Respond(c, apperrors.NewDraftNotFoundError(string(entity)))
			return
		}
		s.errors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, draftResponse{
		Entity:   entity,
		Query:    query,
		Location: querycodec.Location(p.Schema().Endpoint, query),
	})
}

// validatePostcode is the inline check used while the user types.
func (s *Server) validatePostcode(c *gin.Context) {
	c.JSON(http.StatusOK, s.validator.Validate(c.Request.Context(), c.Param("postcode")))
}
