// Package schema describes each listing page: which filters it supports and how
// they map onto Listing API parameters.
package schema

import (
	"errors"
	"net/url"
	"strconv"

	"findmysecurity/internal/models"
)

var ErrUnknownEntity = errors.New("UNKNOWN_ENTITY")

// PageSizeParam is the Listing API parameter carrying the page size.
const PageSizeParam = "limit"

// Schema is the per-entity configuration shared by every listing component.
type Schema struct {
	Entity   models.EntityType
	Endpoint string
	Index    string
	// Fields lists the supported filter fields in encoding order. page is implicit.
	Fields []models.Field
	params map[models.Field]string
}

var registry = map[models.EntityType]Schema{
	models.EntityProfessionals: {
		Entity:   models.EntityProfessionals,
		Endpoint: "/professionals",
		Index:    "professionals",
		Fields:   models.FilterFields,
		params: map[models.Field]string{
			models.FieldCategory:    "role",
			models.FieldSubCategory: "subRole",
			models.FieldPostcode:    "postcode",
			models.FieldDistance:    "radius",
			models.FieldExperience:  "experience",
			models.FieldMinRate:     "minRate",
			models.FieldMaxRate:     "maxRate",
			models.FieldPage:        "page",
		},
	},
	models.EntityCompanies: {
		Entity:   models.EntityCompanies,
		Endpoint: "/companies",
		Index:    "companies",
		Fields: []models.Field{
			models.FieldCategory,
			models.FieldSubCategory,
			models.FieldPostcode,
			models.FieldDistance,
			models.FieldExperience,
		},
		params: map[models.Field]string{
			models.FieldCategory:    "serviceType",
			models.FieldSubCategory: "service",
			models.FieldPostcode:    "postcode",
			models.FieldDistance:    "radius",
			models.FieldExperience:  "yearsTrading",
			models.FieldPage:        "page",
		},
	},
	models.EntityCourseProviders: {
		Entity:   models.EntityCourseProviders,
		Endpoint: "/course-providers",
		Index:    "course_providers",
		Fields: []models.Field{
			models.FieldCategory,
			models.FieldSubCategory,
			models.FieldPostcode,
			models.FieldDistance,
			models.FieldExperience,
		},
		params: map[models.Field]string{
			models.FieldCategory:    "courseCategory",
			models.FieldSubCategory: "course",
			models.FieldPostcode:    "postcode",
			models.FieldDistance:    "radius",
			models.FieldExperience:  "deliveryMode",
			models.FieldPage:        "page",
		},
	},
}

// Lookup returns the schema for an entity.
func Lookup(entity models.EntityType) (Schema, error) {
	s, ok := registry[entity]
	if !ok {
		return Schema{}, ErrUnknownEntity
	}
	return s, nil
}

// All returns every schema in a stable order.
func All() []Schema {
	return []Schema{
		registry[models.EntityProfessionals],
		registry[models.EntityCompanies],
		registry[models.EntityCourseProviders],
	}
}

// Supports reports whether the page exposes f. page is always supported.
func (s Schema) Supports(f models.Field) bool {
	if f == models.FieldPage {
		return true
	}
	for _, field := range s.Fields {
		if field == f {
			return true
		}
	}
	return false
}

// Param returns the Listing API parameter name for f, or "" when unmapped.
func (s Schema) Param(f models.Field) string {
	return s.params[f]
}

// AdvancedFields returns the supported fields hidden behind the advanced gate.
func (s Schema) AdvancedFields() []models.Field {
	var out []models.Field
	for _, f := range s.Fields {
		if f.IsAdvanced() {
			out = append(out, f)
		}
	}
	return out
}

// APIParams maps a filter state to Listing API parameters. Empty fields are
// omitted; page and the page size are always sent.
func (s Schema) APIParams(state models.FilterState, pageSize int) url.Values {
	params := url.Values{}
	for _, f := range s.Fields {
		if v := state.Get(f); v != "" {
			params.Set(s.params[f], v)
		}
	}
	page := state.Page
	if page < 1 {
		page = 1
	}
	params.Set(s.params[models.FieldPage], strconv.Itoa(page))
	if pageSize > 0 {
		params.Set(PageSizeParam, strconv.Itoa(pageSize))
	}
	return params
}
