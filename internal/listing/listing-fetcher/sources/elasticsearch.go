package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"findmysecurity/internal/common/database"
	"findmysecurity/internal/common/logger"
	listingfetcher "findmysecurity/internal/listing/listing-fetcher"
	"findmysecurity/internal/listing/schema"
	"findmysecurity/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const maxSearchSize = 100

// maxResultWindow is Elasticsearch's default index.max_result_window; from+size
// may not exceed it.
const maxResultWindow = 10000

type clauseKind int

const (
	clauseTerm clauseKind = iota
	clausePrefix
	clauseGTE
	clauseLTE
	clauseIgnored
)

type clause struct {
	kind  clauseKind
	field string
}

// indexFields maps Listing API parameters to document fields per entity.
var indexFields = map[models.EntityType]map[string]clause{
	models.EntityProfessionals: {
		"role":       {clauseTerm, "role"},
		"subRole":    {clauseTerm, "subRole"},
		"postcode":   {clausePrefix, "postcode"},
		"radius":     {kind: clauseIgnored},
		"experience": {clauseGTE, "experienceYears"},
		"minRate":    {clauseGTE, "hourlyRate"},
		"maxRate":    {clauseLTE, "hourlyRate"},
	},
	models.EntityCompanies: {
		"serviceType":  {clauseTerm, "serviceType"},
		"service":      {clauseTerm, "services"},
		"postcode":     {clausePrefix, "postcode"},
		"radius":       {kind: clauseIgnored},
		"yearsTrading": {clauseGTE, "yearsTrading"},
	},
	models.EntityCourseProviders: {
		"courseCategory": {clauseTerm, "courseCategory"},
		"course":         {clauseTerm, "courses"},
		"postcode":       {clausePrefix, "postcode"},
		"radius":         {kind: clauseIgnored},
		"deliveryMode":   {clauseTerm, "deliveryMode"},
	},
}

// ElasticsearchSource reads listings straight from the search index.
type ElasticsearchSource[T any] struct {
	es     *database.ElasticsearchClient
	logger logger.Logger
}

func NewElasticsearchSource[T any](es *database.ElasticsearchClient, log logger.Logger) *ElasticsearchSource[T] {
	return &ElasticsearchSource[T]{
		es:     es,
		logger: logger.ForComponent(log, "listing-es-source"),
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *ElasticsearchSource[T]) Fetch(ctx context.Context, s schema.Schema, params url.Values) (*models.ListingResult[T], error) {
	page, size := paging(params)
	body, err := json.Marshal(BuildSearchBody(s, params))
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", listingfetcher.ErrListingUnavailable, err)
	}

	from := (page - 1) * size
	req := esapi.SearchRequest{
		Index:          []string{e.es.Index(s.Index)},
		Body:           bytes.NewReader(body),
		From:           &from,
		Size:           &size,
		TrackTotalHits: true,
	}

	res, err := req.Do(ctx, e.es.Client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", listingfetcher.ErrListingTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", listingfetcher.ErrListingUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		e.logger.Warn("search query failed", map[string]interface{}{
			"entity": string(s.Entity),
			"status": res.StatusCode,
		})
		return nil, fmt.Errorf("%w: search returned %s", listingfetcher.ErrListingUnavailable, res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %v", listingfetcher.ErrInvalidListingResponse, err)
	}

	items := make([]T, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		var item T
		if err := json.Unmarshal(hit.Source, &item); err != nil {
			return nil, fmt.Errorf("%w: hit %s: %v", listingfetcher.ErrInvalidListingResponse, hit.ID, err)
		}
		items = append(items, item)
	}

	return &models.ListingResult[T]{
		TotalCount: r.Hits.Total.Value,
		Page:       page,
		PageSize:   size,
		Items:      items,
	}, nil
}

func paging(params url.Values) (page, size int) {
	page, err := strconv.Atoi(params.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err = strconv.Atoi(params.Get(schema.PageSizeParam))
	if err != nil || size < 1 {
		size = 10
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}
	if lastPage := maxResultWindow / size; page > lastPage {
		page = lastPage
	}
	return page, size
}

// BuildSearchBody turns Listing API parameters into a bool query. Distance is
// not applied because the index carries no coordinates.
func BuildSearchBody(s schema.Schema, params url.Values) map[string]interface{} {
	fields := indexFields[s.Entity]
	filterClauses := []interface{}{}
	ranges := map[string]map[string]interface{}{}

	for _, f := range s.Fields {
		param := s.Param(f)
		value := strings.TrimSpace(params.Get(param))
		c, ok := fields[param]
		if value == "" || !ok {
			continue
		}

		switch c.kind {
		case clauseTerm:
			filterClauses = append(filterClauses, map[string]interface{}{
				"term": map[string]interface{}{c.field: value},
			})
		case clausePrefix:
			filterClauses = append(filterClauses, map[string]interface{}{
				"prefix": map[string]interface{}{c.field: outwardCode(value)},
			})
		case clauseGTE, clauseLTE:
			n, err := strconv.ParseFloat(strings.TrimSuffix(value, "+"), 64)
			if err != nil {
				continue
			}
			bound := "gte"
			if c.kind == clauseLTE {
				bound = "lte"
			}
			if ranges[c.field] == nil {
				ranges[c.field] = map[string]interface{}{}
			}
			ranges[c.field][bound] = n
		}
	}

	for _, f := range s.Fields {
		field := ""
		if c, ok := fields[s.Param(f)]; ok {
			field = c.field
		}
		if r, ok := ranges[field]; ok {
			filterClauses = append(filterClauses, map[string]interface{}{
				"range": map[string]interface{}{field: r},
			})
			delete(ranges, field)
		}
	}

	boolQuery := map[string]interface{}{
		"must": []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}},
	}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"verified": map[string]interface{}{"order": "desc", "unmapped_type": "boolean"}},
			"_score",
		},
	}
}

// outwardCode returns the first part of a postcode, upper-cased.
func outwardCode(postcode string) string {
	parts := strings.Fields(strings.ToUpper(postcode))
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}
