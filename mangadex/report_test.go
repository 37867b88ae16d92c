package mangadex

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testReasonID = "4e0d1f2a-3b4c-4d5e-8f60-718293a4b5c6"

func TestCreateReport(t *testing.T) {
	var body map[string]string
	env := newTestEnv(t, passwordCreds(), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/report", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		respondJSON(w, `{"result":"ok"}`)
	})
	env.client.Catalog().SetReportReasons(ReportCategoryManga, map[string]string{"duplicate_or_spam": testReasonID})
	ctx := context.Background()

	err := env.client.CreateReport(ctx, ReportDetails{
		Category: ReportCategoryManga,
		Reason:   "Duplicate/Spam",
		ObjectID: testMangaID,
		Details:  "same as another entry",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"category": "manga",
		"reason":   testReasonID,
		"objectId": testMangaID,
		"details":  "same as another entry",
	}, body)

	err = env.client.CreateReport(ctx, ReportDetails{Category: ReportCategoryManga, Reason: "unknown", ObjectID: testMangaID})
	assert.Error(t, err)

	err = env.client.CreateReport(ctx, ReportDetails{Category: ReportCategoryManga, Reason: testReasonID, ObjectID: "x"})
	assert.ErrorIs(t, err, ErrInvalidID)

	err = env.client.CreateReport(ctx, ReportDetails{Category: ReportCategoryManga, ObjectID: testMangaID})
	assert.Error(t, err)
}

func TestMyReports(t *testing.T) {
	env := newTestEnv(t, passwordCreds(), func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "chapter", q.Get("category"))
		assert.Empty(t, q.Get("objectId"))
		assert.Equal(t, "5", q.Get("limit"))
		respondJSON(w, `{"result":"ok","response":"collection","data":[],"limit":5,"offset":0,"total":0}`)
	})

	resp, err := env.client.MyReports(context.Background(), ReportListOptions{
		ListOptions: ListOptions{Limit: 5},
		Category:    ReportCategoryChapter,
	})
	require.NoError(t, err)
	assert.Zero(t, resp.Total)
}
