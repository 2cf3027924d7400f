package querycodec

import (
	"math/rand"
	"strconv"
	"testing"

	"findmysecurity/internal/listing/schema"
	"findmysecurity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSchema(t *testing.T, entity models.EntityType) schema.Schema {
	t.Helper()
	s, err := schema.Lookup(entity)
	require.NoError(t, err)
	return s
}

// ==========================
// Decode
// ==========================

func TestDecode(t *testing.T) {
	pro := mustSchema(t, models.EntityProfessionals)

	tests := []struct {
		name  string
		query string
		want  models.FilterState
	}{
		{
			name:  "empty query",
			query: "",
			want:  models.FilterState{Page: 1},
		},
		{
			name:  "leading question mark",
			query: "?category=Door%20Supervisor&page=2",
			want:  models.FilterState{Category: "Door Supervisor", Page: 2},
		},
		{
			name:  "plus decodes to space",
			query: "postcode=SW1A+1AA",
			want:  models.FilterState{Postcode: "SW1A 1AA", Page: 1},
		},
		{
			name:  "non-numeric page",
			query: "page=abc",
			want:  models.FilterState{Page: 1},
		},
		{
			name:  "zero page",
			query: "page=0",
			want:  models.FilterState{Page: 1},
		},
		{
			name:  "negative page",
			query: "page=-4",
			want:  models.FilterState{Page: 1},
		},
		{
			name:  "unknown keys ignored",
			query: "colour=red&category=CCTV",
			want:  models.FilterState{Category: "CCTV", Page: 1},
		},
		{
			name:  "malformed escape skips only that pair",
			query: "category=%ZZ&postcode=E1%206AN",
			want:  models.FilterState{Postcode: "E1 6AN", Page: 1},
		},
		{
			name:  "advanced fields decoded",
			query: "distance=10&experience=5&minRate=12&maxRate=20",
			want:  models.FilterState{Distance: "10", Experience: "5", MinRate: "12", MaxRate: "20", Page: 1},
		},
		{
			name:  "last duplicate wins",
			query: "category=A&category=B",
			want:  models.FilterState{Category: "B", Page: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(pro, tt.query))
		})
	}
}

func TestDecode_IgnoresFieldsThePageDoesNotSupport(t *testing.T) {
	companies := mustSchema(t, models.EntityCompanies)

	got := Decode(companies, "minRate=10&maxRate=20&category=CCTV")
	assert.Equal(t, models.FilterState{Category: "CCTV", Page: 1}, got)
}

// ==========================
// Encode
// ==========================

func TestEncode(t *testing.T) {
	pro := mustSchema(t, models.EntityProfessionals)

	tests := []struct {
		name  string
		state models.FilterState
		want  string
	}{
		{
			name:  "default state",
			state: models.DefaultFilterState(),
			want:  "",
		},
		{
			name:  "category with page",
			state: models.FilterState{Category: "Door Supervisor", Page: 2},
			want:  "category=Door%20Supervisor&page=2",
		},
		{
			name:  "postcode space",
			state: models.FilterState{Postcode: "SW1A 1AA", Page: 1},
			want:  "postcode=SW1A%201AA",
		},
		{
			name: "fixed field order",
			state: models.FilterState{
				MaxRate: "20", Postcode: "E1", Category: "CCTV", Distance: "5", Page: 4,
			},
			want: "category=CCTV&postcode=E1&distance=5&maxRate=20&page=4",
		},
		{
			name:  "reserved characters escaped",
			state: models.FilterState{Category: "A&B=C", Page: 1},
			want:  "category=A%26B%3DC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(pro, tt.state))
		})
	}
}

func TestEncode_OmitsUnsupportedFields(t *testing.T) {
	companies := mustSchema(t, models.EntityCompanies)

	got := Encode(companies, models.FilterState{Category: "CCTV", MinRate: "10", Page: 1})
	assert.Equal(t, "category=CCTV", got)
}

// ==========================
// Round trip
// ==========================

func TestRoundTrip_ReachableStates(t *testing.T) {
	values := []string{"", "CCTV", "Door Supervisor", "SW1A 1AA", "a+b", "50%", "x&y=z", "née", "  padded  "}
	rng := rand.New(rand.NewSource(42))

	for _, s := range schema.All() {
		for i := 0; i < 200; i++ {
			state := models.DefaultFilterState()
			for _, f := range s.Fields {
				state.Set(f, values[rng.Intn(len(values))])
			}
			state.Page = 1 + rng.Intn(12)

			encoded := Encode(s, state)
			assert.Equal(t, state, Decode(s, encoded), "%s: %q", s.Entity, encoded)
			assert.Equal(t, state, Decode(s, "?"+encoded), "%s: %q", s.Entity, encoded)
		}
	}
}

func TestRoundTrip_EncodeOfDecodeIsCanonical(t *testing.T) {
	pro := mustSchema(t, models.EntityProfessionals)

	canonical := "category=CCTV&postcode=SW1A%201AA&page=" + strconv.Itoa(3)
	assert.Equal(t, canonical, Encode(pro, Decode(pro, "page=3&postcode=SW1A+1AA&category=CCTV")))
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "/professionals", Location("/professionals", ""))
	assert.Equal(t, "/professionals?page=2", Location("/professionals", "page=2"))
}
