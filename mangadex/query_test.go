package mangadex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryEncode(t *testing.T) {
	var nilInt *int
	year := 2019

	tests := []struct {
		name     string
		query    Query
		expected string
	}{
		{
			name:     "empty",
			query:    Query{},
			expected: "",
		},
		{
			name:     "keys sorted and values escaped",
			query:    Query{"title": "oshi no ko", "limit": 10},
			expected: "limit=10&title=oshi+no+ko",
		},
		{
			name:     "nil values omitted",
			query:    Query{"title": nil, "year": nilInt, "ids": []string(nil), "limit": 5},
			expected: "limit=5",
		},
		{
			name:     "pointers dereferenced",
			query:    Query{"year": &year},
			expected: "year=2019",
		},
		{
			name:     "booleans lower case",
			query:    Query{"hasAvailableChapters": true, "forcePort443": false},
			expected: "forcePort443=false&hasAvailableChapters=true",
		},
		{
			name:     "lists keep order",
			query:    Query{"ids": []string{"b", "a", "c"}},
			expected: "ids[]=b&ids[]=a&ids[]=c",
		},
		{
			name:     "typed string lists",
			query:    Query{"contentRating": []ContentRating{ContentRatingSafe, ContentRatingSuggestive}},
			expected: "contentRating[]=safe&contentRating[]=suggestive",
		},
		{
			name:     "maps with sorted subkeys",
			query:    Query{"order": map[string]Order{"updatedAt": OrderDescending, "createdAt": OrderAscending}},
			expected: "order[createdAt]=asc&order[updatedAt]=desc",
		},
		{
			name:     "time rendered in UTC with Z",
			query:    Query{"createdAtSince": time.Date(2024, 1, 2, 3, 4, 5, 999, time.FixedZone("CET", 3600))},
			expected: "createdAtSince=2024-01-02T02%3A04%3A05Z",
		},
		{
			name:     "durations as ISO-8601",
			query:    Query{"within": 90 * time.Minute},
			expected: "within=PT1H30M",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.query.Encode())
		})
	}
}

func TestQueryValues(t *testing.T) {
	q := Query{"ids": []string{"a", "b"}, "title": "x y"}
	v := q.Values()
	assert.Equal(t, []string{"a", "b"}, v["ids[]"])
	assert.Equal(t, "x y", v.Get("title"))
}

func TestQuerySet(t *testing.T) {
	q := Query{}.Set("limit", 1).Set("offset", 2)
	assert.Equal(t, "limit=1&offset=2", q.Encode())
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2023, 6, 1, 12, 30, 45, 500_000_000, time.UTC)
	assert.Equal(t, "2023-06-01T12:30:45Z", FormatTime(ts))
}

func TestClampLimits(t *testing.T) {
	tests := []struct {
		name           string
		limit, offset  int
		maxLimit       int
		expectedLimit  int
		expectedOffset int
		wantErr        bool
	}{
		{name: "within window", limit: 10, offset: 0, maxLimit: 100, expectedLimit: 10, expectedOffset: 0},
		{name: "limit capped", limit: 500, offset: 20, maxLimit: 100, expectedLimit: 100, expectedOffset: 20},
		{name: "negative values", limit: -1, offset: -5, maxLimit: 100, expectedLimit: 0, expectedOffset: 0},
		{name: "near the end of the window", limit: 10, offset: 9950, maxLimit: 100, expectedLimit: 50, expectedOffset: 9950},
		{name: "offset at depth", limit: 10, offset: MaxDepth, maxLimit: 100, wantErr: true},
		{name: "offset past depth", limit: 10, offset: 20000, maxLimit: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset, err := ClampLimits(tt.limit, tt.offset, tt.maxLimit)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedLimit, limit)
			assert.Equal(t, tt.expectedOffset, offset)
			assert.LessOrEqual(t, limit+offset, MaxDepth)
		})
	}
}

func TestDeltaToISO(t *testing.T) {
	tests := []struct {
		in       time.Duration
		expected string
	}{
		{0, ""},
		{45 * time.Second, "PT45S"},
		{90 * time.Minute, "PT1H30M"},
		{26 * time.Hour, "P1DT2H"},
		{8 * 24 * time.Hour, "P1D1W"},
		{14*24*time.Hour + 5*time.Minute, "P2WT5M"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeltaToISO(tt.in))
		})
	}
}

func TestISOToDelta(t *testing.T) {
	for _, d := range []time.Duration{45 * time.Second, 90 * time.Minute, 26 * time.Hour, 8 * 24 * time.Hour} {
		got, err := ISOToDelta(DeltaToISO(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}

	_, err := ISOToDelta("1 hour")
	assert.Error(t, err)
	_, err = ISOToDelta("PT25H")
	assert.Error(t, err)
}
