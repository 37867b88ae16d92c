package mangadex

import (
	"context"
	"fmt"
	"net/http"
)

// ChapterListOptions filters the chapter search endpoint.
type ChapterListOptions struct {
	FeedOptions
	IDs      []string
	Title    string
	Groups   []string
	Uploader string
	Manga    string
	Volume   []string
	Chapter  []string
}

func (o ChapterListOptions) query() (Query, error) {
	q, err := o.FeedOptions.query()
	if err != nil {
		return nil, err
	}
	q["ids"] = optSlice(o.IDs)
	q["title"] = optString(o.Title)
	q["groups"] = optSlice(o.Groups)
	q["uploader"] = optString(o.Uploader)
	q["manga"] = optString(o.Manga)
	q["volume"] = optSlice(o.Volume)
	q["chapter"] = optSlice(o.Chapter)

	// the chapter list caps page size at 100, unlike feeds
	limit, offset, err := ClampLimits(q["limit"].(int), o.Offset, 100)
	if err != nil {
		return nil, err
	}
	q["limit"], q["offset"] = limit, offset
	return q, nil
}

// ListChapters searches chapters.
func (c *Client) ListChapters(ctx context.Context, opts ChapterListOptions) (*CollectionResponse[ChapterAttributes], error) {
	q, err := opts.query()
	if err != nil {
		return nil, err
	}
	return fetch[CollectionResponse[ChapterAttributes]](ctx, c, MustRoute(http.MethodGet, "/chapter", nil).WithQuery(q), nil)
}

// GetChapter fetches a single chapter.
func (c *Client) GetChapter(ctx context.Context, id string, includes ...string) (*Chapter, error) {
	route, err := idRoute(http.MethodGet, "/chapter/{chapter_id}", "chapter_id", id)
	if err != nil {
		return nil, err
	}
	resp, err := fetch[EntityResponse[ChapterAttributes]](ctx, c, route.WithQuery(Query{"includes": optSlice(includes)}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter %s: %w", id, err)
	}
	return &resp.Data, nil
}

// DeleteChapter deletes a chapter the user owns.
func (c *Client) DeleteChapter(ctx context.Context, id string) error {
	route, err := idRoute(http.MethodDelete, "/chapter/{chapter_id}", "chapter_id", id)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, route.WithAuth(), nil)
	return err
}

// ReadHistory returns the chapters the user read recently.
func (c *Client) ReadHistory(ctx context.Context) ([]ChapterReadMarker, error) {
	resp, err := fetch[readHistoryResponse](ctx, c, MustRoute(http.MethodGet, "/user/history", nil).WithAuth(), nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// AtHome returns the image server assigned to a chapter. forcePort443
// requests a server reachable on the standard HTTPS port.
func (c *Client) AtHome(ctx context.Context, chapterID string, forcePort443 bool) (*AtHomeServer, error) {
	route, err := idRoute(http.MethodGet, "/at-home/server/{chapter_id}", "chapter_id", chapterID)
	if err != nil {
		return nil, err
	}
	return fetch[AtHomeServer](ctx, c, route.WithQuery(Query{"forcePort443": forcePort443}), nil)
}
