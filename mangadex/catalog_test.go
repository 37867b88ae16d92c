package mangadex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *Catalog {
	c := NewCatalog()
	c.SetTags(map[string]string{
		"Action":        "391b0423-d847-456f-aff0-8b0cfc03066b",
		"Romance":       "423e2eae-a7a2-4a8b-ac03-a8351462d71d",
		"Slice of Life": "e5301a23-ebd9-49dd-a0cb-2add944c7fe9",
		"Comedy":        "4d32cc48-9f00-4cca-9b5a-a839f0764984",
	})
	return c
}

func TestCatalogTagID(t *testing.T) {
	c := testCatalog()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"exact", "Action", "391b0423-d847-456f-aff0-8b0cfc03066b"},
		{"case insensitive", "slice of life", "e5301a23-ebd9-49dd-a0cb-2add944c7fe9"},
		{"upper case", "ROMANCE", "423e2eae-a7a2-4a8b-ac03-a8351462d71d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := c.TagID(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestCatalogUnknownTagSuggestions(t *testing.T) {
	c := testCatalog()

	_, err := c.TagID("slice")
	var unknown *UnknownTagError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, []string{"Slice of Life"}, unknown.Suggestions)
	assert.Contains(t, err.Error(), `did you mean Slice of Life?`)

	_, err = c.TagID("Comdey")
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, []string{"Comedy"}, unknown.Suggestions, "typos fall back to edit distance")

	_, err = c.TagID("Psychological")
	require.True(t, errors.As(err, &unknown))
	assert.Empty(t, unknown.Suggestions)
	assert.Equal(t, `unknown tag "Psychological"`, err.Error())
}

func TestCatalogTagIDs(t *testing.T) {
	c := testCatalog()

	ids, err := c.TagIDs("Action", "comedy")
	require.NoError(t, err)
	assert.Equal(t, []string{"391b0423-d847-456f-aff0-8b0cfc03066b", "4d32cc48-9f00-4cca-9b5a-a839f0764984"}, ids)

	_, err = c.TagIDs("Action", "Nope")
	assert.Error(t, err)

	assert.Equal(t, []string{"Action", "Comedy", "Romance", "Slice of Life"}, c.TagNames())
}

func TestNormalizeReasonKey(t *testing.T) {
	tests := map[string]string{
		"Duplicate/Spam":              "duplicate_or_spam",
		"Information to correct":      "information_to_correct",
		"Non-English":                 "nonenglish",
		"Offensive to all reasonable": "offensive_to_all_reasonable",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, NormalizeReasonKey(in), in)
	}
}

func TestCatalogReportReasons(t *testing.T) {
	c := NewCatalog()
	c.SetReportReasons(ReportCategoryManga, map[string]string{"duplicate_or_spam": "r1"})

	id, err := c.ReportReasonID(ReportCategoryManga, "duplicate_or_spam")
	require.NoError(t, err)
	assert.Equal(t, "r1", id)

	id, err = c.ReportReasonID(ReportCategoryManga, "Duplicate/Spam")
	require.NoError(t, err)
	assert.Equal(t, "r1", id)

	_, err = c.ReportReasonID(ReportCategoryManga, "other")
	assert.Error(t, err)
	_, err = c.ReportReasonID(ReportCategoryChapter, "duplicate_or_spam")
	assert.Error(t, err)
}

func TestCatalogFiles(t *testing.T) {
	dir := t.TempDir()
	c := testCatalog()
	c.SetReportReasons(ReportCategoryUser, map[string]string{"spam": "r2"})

	tagsPath := filepath.Join(dir, "nested", "tags.json")
	reasonsPath := filepath.Join(dir, "reasons.json")
	require.NoError(t, c.SaveTags(tagsPath))
	require.NoError(t, c.SaveReportReasons(reasonsPath))

	loaded := NewCatalog()
	require.NoError(t, loaded.LoadTags(tagsPath))
	require.NoError(t, loaded.LoadReportReasons(reasonsPath))
	assert.Equal(t, c.Tags(), loaded.Tags())
	assert.Equal(t, c.ReportReasons(), loaded.ReportReasons())

	assert.Error(t, loaded.LoadTags(filepath.Join(dir, "missing.json")))
}

func TestClientUpdateTags(t *testing.T) {
	env := newTestEnv(t, Credentials{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga/tag", r.URL.Path)
		respondJSON(w, `{"result":"ok","response":"collection","data":[
			{"id":"t1","type":"tag","attributes":{"name":{"en":"Action"},"group":"genre"}},
			{"id":"t2","type":"tag","attributes":{"name":{"en":"Isekai"},"group":"theme"}}
		],"limit":2,"offset":0,"total":2}`)
	})

	tags, err := env.client.UpdateTags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Action": "t1", "Isekai": "t2"}, tags)

	id, err := env.client.Catalog().TagID("isekai")
	require.NoError(t, err)
	assert.Equal(t, "t2", id)
}

func TestClientUpdateReportReasons(t *testing.T) {
	var calls atomic.Int32
	env := newTestEnv(t, passwordCreds(), func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		category := strings.TrimPrefix(r.URL.Path, "/report/reasons/")
		respondJSON(w, fmt.Sprintf(`{"result":"ok","data":[
			{"id":"%s-1","type":"report_reason","attributes":{"reason":{"en":"Duplicate/Spam"},"category":"%s"}}
		],"limit":10,"offset":0,"total":1}`, category, category))
	})

	reasons, err := env.client.UpdateReportReasons(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(len(ReportCategories)), calls.Load())
	assert.Len(t, reasons, len(ReportCategories))
	assert.Equal(t, map[string]string{"duplicate_or_spam": "manga-1"}, reasons[ReportCategoryManga])
	assert.Equal(t, []string{"password"}, env.auth.Grants(), "one login serves every category")

	id, err := env.client.Catalog().ReportReasonID(ReportCategoryChapter, "Duplicate/Spam")
	require.NoError(t, err)
	assert.Equal(t, "chapter-1", id)
}
