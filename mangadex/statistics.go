package mangadex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	// statisticsBatchSize is how many ids one statistics request carries.
	statisticsBatchSize = 100
	// statisticsWorkers bounds the batches fetched concurrently.
	statisticsWorkers = 3
)

// MangaStatistics fetches the public statistics of the given manga, keyed by
// manga id.
func (c *Client) MangaStatistics(ctx context.Context, ids ...string) (map[string]MangaStatistics, error) {
	return batchStatistics(ctx, c, "/statistics/manga", "/statistics/manga/{manga_id}", "manga_id", "manga", ids,
		func(r *mangaStatisticsResponse) map[string]MangaStatistics { return r.Statistics })
}

// ChapterStatistics fetches the comment statistics of the given chapters.
func (c *Client) ChapterStatistics(ctx context.Context, ids ...string) (map[string]CommentStatistics, error) {
	return batchStatistics(ctx, c, "/statistics/chapter", "/statistics/chapter/{chapter_id}", "chapter_id", "chapter", ids,
		func(r *commentStatisticsResponse) map[string]CommentStatistics { return r.Statistics })
}

// GroupStatistics fetches the comment statistics of the given scanlation
// groups.
func (c *Client) GroupStatistics(ctx context.Context, ids ...string) (map[string]CommentStatistics, error) {
	return batchStatistics(ctx, c, "/statistics/group", "/statistics/group/{group_id}", "group_id", "group", ids,
		func(r *commentStatisticsResponse) map[string]CommentStatistics { return r.Statistics })
}

// batchStatistics fetches one id through the single-entity route and many
// ids in concurrent batches through the list route, merging the results.
func batchStatistics[R any, S any](
	ctx context.Context,
	c *Client,
	listTemplate, oneTemplate, param, key string,
	ids []string,
	extract func(*R) map[string]S,
) (map[string]S, error) {
	if len(ids) == 0 {
		return nil, errors.New("at least one id is required")
	}
	if err := validateIDs(ids...); err != nil {
		return nil, err
	}

	if len(ids) == 1 {
		route := MustRoute(http.MethodGet, oneTemplate, map[string]string{param: ids[0]})
		resp, err := fetch[R](ctx, c, route, nil)
		if err != nil {
			return nil, err
		}
		return extract(resp), nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(statisticsWorkers)

	var mu sync.Mutex
	out := make(map[string]S, len(ids))

	for start := 0; start < len(ids); start += statisticsBatchSize {
		batch := ids[start:min(start+statisticsBatchSize, len(ids))]
		g.Go(func() error {
			route := MustRoute(http.MethodGet, listTemplate, nil).WithQuery(Query{key: batch})
			resp, err := fetch[R](ctx, c, route, nil)
			if err != nil {
				return fmt.Errorf("failed to fetch statistics batch: %w", err)
			}
			mu.Lock()
			for id, stats := range extract(resp) {
				out[id] = stats
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MyRatings returns the current user's ratings of the given manga.
func (c *Client) MyRatings(ctx context.Context, mangaIDs ...string) (map[string]PersonalRating, error) {
	if err := validateIDs(mangaIDs...); err != nil {
		return nil, err
	}
	route := MustRoute(http.MethodGet, "/rating", nil).WithAuth().WithQuery(Query{"manga": optSlice(mangaIDs)})
	resp, err := fetch[ratingsResponse](ctx, c, route, nil)
	if err != nil {
		return nil, err
	}
	return resp.Ratings, nil
}

// SetRating rates a manga from 1 to 10.
func (c *Client) SetRating(ctx context.Context, mangaID string, rating int) error {
	if rating < 1 || rating > 10 {
		return fmt.Errorf("rating must be between 1 and 10, got %d", rating)
	}
	route, err := idRoute(http.MethodPost, "/rating/{manga_id}", "manga_id", mangaID)
	if err != nil {
		return err
	}
	body := struct {
		Rating int `json:"rating"`
	}{Rating: rating}
	_, err = c.Request(ctx, route.WithAuth(), body)
	return err
}

// DeleteRating removes the current user's rating of a manga.
func (c *Client) DeleteRating(ctx context.Context, mangaID string) error {
	route, err := idRoute(http.MethodDelete, "/rating/{manga_id}", "manga_id", mangaID)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, route.WithAuth(), nil)
	return err
}
