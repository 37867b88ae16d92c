package mangadex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mangaIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("a96676e5-8ae2-425e-b549-%012d", i)
	}
	return ids
}

func TestMangaStatisticsBatches(t *testing.T) {
	var mu sync.Mutex
	var sizes []int

	env := newTestEnv(t, Credentials{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/statistics/manga", r.URL.Path)
		ids := r.URL.Query()["manga[]"]

		mu.Lock()
		sizes = append(sizes, len(ids))
		mu.Unlock()

		stats := make(map[string]any, len(ids))
		for _, id := range ids {
			stats[id] = map[string]any{"follows": 7, "rating": map[string]any{"average": 8.5, "bayesian": 8.1}}
		}
		json.NewEncoder(w).Encode(map[string]any{"result": "ok", "statistics": stats})
	})

	ids := mangaIDs(250)
	stats, err := env.client.MangaStatistics(context.Background(), ids...)
	require.NoError(t, err)
	assert.Len(t, stats, 250)

	sort.Ints(sizes)
	assert.Equal(t, []int{50, 100, 100}, sizes)

	s := stats[ids[249]]
	assert.Equal(t, 7, s.Follows)
	require.NotNil(t, s.Rating.Average)
	assert.InDelta(t, 8.5, *s.Rating.Average, 0.001)
}

func TestMangaStatisticsSingle(t *testing.T) {
	env := newTestEnv(t, Credentials{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/statistics/manga/"+testMangaID, r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		respondJSON(w, fmt.Sprintf(`{"result":"ok","statistics":{"%s":{"follows":3,"rating":{"average":null,"bayesian":0}}}}`, testMangaID))
	})

	stats, err := env.client.MangaStatistics(context.Background(), testMangaID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats[testMangaID].Follows)
	assert.Nil(t, stats[testMangaID].Rating.Average)
}

func TestStatisticsRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, Credentials{}, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})

	_, err := env.client.ChapterStatistics(context.Background())
	assert.Error(t, err)

	_, err = env.client.GroupStatistics(context.Background(), testMangaID, "nope")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestRatings(t *testing.T) {
	var body map[string]int
	env := newTestEnv(t, passwordCreds(), func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, []string{testMangaID}, r.URL.Query()["manga[]"])
			respondJSON(w, fmt.Sprintf(`{"result":"ok","ratings":{"%s":{"rating":9,"createdAt":"2024-01-02T03:04:05+00:00"}}}`, testMangaID))
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			respondJSON(w, `{"result":"ok"}`)
		case http.MethodDelete:
			respondJSON(w, `{"result":"ok"}`)
		}
	})
	ctx := context.Background()

	ratings, err := env.client.MyRatings(ctx, testMangaID)
	require.NoError(t, err)
	assert.Equal(t, 9, ratings[testMangaID].Rating)

	assert.Error(t, env.client.SetRating(ctx, testMangaID, 11))
	require.NoError(t, env.client.SetRating(ctx, testMangaID, 10))
	assert.Equal(t, map[string]int{"rating": 10}, body)

	require.NoError(t, env.client.DeleteRating(ctx, testMangaID))
}
