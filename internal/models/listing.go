// internal/models/listing.go
package models

// EntityType identifies one of the listing pages.
type EntityType string

const (
	EntityProfessionals   EntityType = "professionals"
	EntityCompanies       EntityType = "companies"
	EntityCourseProviders EntityType = "course-providers"
)

// Field names a filter field. The string value doubles as the URL query key.
type Field string

const (
	FieldCategory    Field = "category"
	FieldSubCategory Field = "subCategory"
	FieldPostcode    Field = "postcode"
	FieldDistance    Field = "distance"
	FieldExperience  Field = "experience"
	FieldMinRate     Field = "minRate"
	FieldMaxRate     Field = "maxRate"
	FieldPage        Field = "page"
)

// FilterFields lists the text fields in their canonical encoding order.
var FilterFields = []Field{
	FieldCategory,
	FieldSubCategory,
	FieldPostcode,
	FieldDistance,
	FieldExperience,
	FieldMinRate,
	FieldMaxRate,
}

// IsAdvanced reports whether the field sits behind the advanced-filters gate.
func (f Field) IsAdvanced() bool {
	switch f {
	case FieldDistance, FieldExperience, FieldMinRate, FieldMaxRate:
		return true
	}
	return false
}

// FilterState is the complete set of filter values for one listing page.
// Empty string means "no filter". Page is 1-based.
type FilterState struct {
	Category    string `json:"category"`
	SubCategory string `json:"subCategory"`
	Postcode    string `json:"postcode"`
	Distance    string `json:"distance"`
	Experience  string `json:"experience"`
	MinRate     string `json:"minRate"`
	MaxRate     string `json:"maxRate"`
	Page        int    `json:"page"`
}

// DefaultFilterState returns the state of a page with no filters applied.
func DefaultFilterState() FilterState {
	return FilterState{Page: 1}
}

// Get returns the value of a text field. Unknown fields and page yield "".
func (s FilterState) Get(f Field) string {
	switch f {
	case FieldCategory:
		return s.Category
	case FieldSubCategory:
		return s.SubCategory
	case FieldPostcode:
		return s.Postcode
	case FieldDistance:
		return s.Distance
	case FieldExperience:
		return s.Experience
	case FieldMinRate:
		return s.MinRate
	case FieldMaxRate:
		return s.MaxRate
	}
	return ""
}

// Set assigns a text field and reports whether the field was recognised.
func (s *FilterState) Set(f Field, value string) bool {
	switch f {
	case FieldCategory:
		s.Category = value
	case FieldSubCategory:
		s.SubCategory = value
	case FieldPostcode:
		s.Postcode = value
	case FieldDistance:
		s.Distance = value
	case FieldExperience:
		s.Experience = value
	case FieldMinRate:
		s.MinRate = value
	case FieldMaxRate:
		s.MaxRate = value
	default:
		return false
	}
	return true
}

// ListingResult is one page of listing records as returned by the Listing API.
type ListingResult[T any] struct {
	TotalCount int `json:"totalCount"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Items      []T `json:"items"`
}

// PostcodeValidation is the outcome of a postcode check.
type PostcodeValidation struct {
	IsValid      bool   `json:"isValid"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}
