package mangadex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// MangaListOptions filters the manga search endpoint.
type MangaListOptions struct {
	ListOptions
	Title                       string
	AuthorOrArtist              string
	Authors                     []string
	Artists                     []string
	Year                        *int
	IncludedTags                []string
	IncludedTagsMode            string
	ExcludedTags                []string
	ExcludedTagsMode            string
	Status                      []MangaStatus
	OriginalLanguage            []string
	AvailableTranslatedLanguage []string
	PublicationDemographic      []Demographic
	IDs                         []string
	ContentRating               []ContentRating
	CreatedAtSince              *time.Time
	UpdatedAtSince              *time.Time
	HasAvailableChapters        *bool
	Group                       string
}

func (o MangaListOptions) query() (Query, error) {
	q := Query{
		"title":                       optString(o.Title),
		"authorOrArtist":              optString(o.AuthorOrArtist),
		"authors":                     optSlice(o.Authors),
		"artists":                     optSlice(o.Artists),
		"year":                        optInt(o.Year),
		"includedTags":                optSlice(o.IncludedTags),
		"includedTagsMode":            optString(o.IncludedTagsMode),
		"excludedTags":                optSlice(o.ExcludedTags),
		"excludedTagsMode":            optString(o.ExcludedTagsMode),
		"status":                      optSlice(o.Status),
		"originalLanguage":            optSlice(o.OriginalLanguage),
		"availableTranslatedLanguage": optSlice(o.AvailableTranslatedLanguage),
		"publicationDemographic":      optSlice(o.PublicationDemographic),
		"ids":                         optSlice(o.IDs),
		"contentRating":               optSlice(o.ContentRating),
		"createdAtSince":              optTime(o.CreatedAtSince),
		"updatedAtSince":              optTime(o.UpdatedAtSince),
		"hasAvailableChapters":        optBool(o.HasAvailableChapters),
		"group":                       optString(o.Group),
	}
	if err := o.ListOptions.apply(q, 100); err != nil {
		return nil, err
	}
	return q, nil
}

// ListManga searches manga.
func (c *Client) ListManga(ctx context.Context, opts MangaListOptions) (*CollectionResponse[MangaAttributes], error) {
	q, err := opts.query()
	if err != nil {
		return nil, err
	}
	route := MustRoute(http.MethodGet, "/manga", nil).WithQuery(q)
	return fetch[CollectionResponse[MangaAttributes]](ctx, c, route, nil)
}

// GetManga fetches a single manga.
func (c *Client) GetManga(ctx context.Context, id string, includes ...string) (*Manga, error) {
	route, err := idRoute(http.MethodGet, "/manga/{manga_id}", "manga_id", id)
	if err != nil {
		return nil, err
	}
	route = route.WithQuery(Query{"includes": optSlice(includes)})

	resp, err := fetch[EntityResponse[MangaAttributes]](ctx, c, route, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get manga %s: %w", id, err)
	}
	return &resp.Data, nil
}

// RandomManga returns a random manga matching the content ratings.
func (c *Client) RandomManga(ctx context.Context, ratings []ContentRating, includes ...string) (*Manga, error) {
	route := MustRoute(http.MethodGet, "/manga/random", nil).WithQuery(Query{
		"contentRating": optSlice(ratings),
		"includes":      optSlice(includes),
	})
	resp, err := fetch[EntityResponse[MangaAttributes]](ctx, c, route, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// FeedOptions filters chapter feeds.
type FeedOptions struct {
	ListOptions
	TranslatedLanguage   []string
	OriginalLanguage     []string
	ContentRating        []ContentRating
	ExcludedGroups       []string
	CreatedAtSince       *time.Time
	UpdatedAtSince       *time.Time
	PublishAtSince       *time.Time
	IncludeFutureUpdates *bool
	IncludeEmptyPages    *bool
}

func (o FeedOptions) query() (Query, error) {
	q := Query{
		"translatedLanguage":   optSlice(o.TranslatedLanguage),
		"originalLanguage":     optSlice(o.OriginalLanguage),
		"contentRating":        optSlice(o.ContentRating),
		"excludedGroups":       optSlice(o.ExcludedGroups),
		"createdAtSince":       optTime(o.CreatedAtSince),
		"updatedAtSince":       optTime(o.UpdatedAtSince),
		"publishAtSince":       optTime(o.PublishAtSince),
		"includeFutureUpdates": optBool(o.IncludeFutureUpdates),
		"includeEmptyPages":    optBool(o.IncludeEmptyPages),
	}
	if err := o.ListOptions.apply(q, 500); err != nil {
		return nil, err
	}
	return q, nil
}

// MangaFeed lists the chapters of a manga.
func (c *Client) MangaFeed(ctx context.Context, id string, opts FeedOptions) (*CollectionResponse[ChapterAttributes], error) {
	route, err := idRoute(http.MethodGet, "/manga/{manga_id}/feed", "manga_id", id)
	if err != nil {
		return nil, err
	}
	q, err := opts.query()
	if err != nil {
		return nil, err
	}
	return fetch[CollectionResponse[ChapterAttributes]](ctx, c, route.WithQuery(q), nil)
}

// MangaAggregate returns the volume and chapter structure of a manga.
func (c *Client) MangaAggregate(ctx context.Context, id string, languages []string, groups []string) (map[string]VolumeAggregate, error) {
	route, err := idRoute(http.MethodGet, "/manga/{manga_id}/aggregate", "manga_id", id)
	if err != nil {
		return nil, err
	}
	route = route.WithQuery(Query{
		"translatedLanguage": optSlice(languages),
		"groups":             optSlice(groups),
	})
	resp, err := fetch[aggregateResponse](ctx, c, route, nil)
	if err != nil {
		return nil, err
	}
	return resp.Volumes, nil
}

// FollowManga adds a manga to the current user's follows.
func (c *Client) FollowManga(ctx context.Context, id string) error {
	route, err := idRoute(http.MethodPost, "/manga/{manga_id}/follow", "manga_id", id)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, route.WithAuth(), nil)
	return err
}

// UnfollowManga removes a manga from the current user's follows.
func (c *Client) UnfollowManga(ctx context.Context, id string) error {
	route, err := idRoute(http.MethodDelete, "/manga/{manga_id}/follow", "manga_id", id)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, route.WithAuth(), nil)
	return err
}

// IsMangaFollowed reports whether the current user follows the manga.
func (c *Client) IsMangaFollowed(ctx context.Context, id string) (bool, error) {
	route, err := idRoute(http.MethodGet, "/user/follows/manga/{manga_id}", "manga_id", id)
	if err != nil {
		return false, err
	}
	return c.exists(ctx, route.WithAuth())
}

// exists maps the 200/404 convention of the "is followed" endpoints to a bool.
func (c *Client) exists(ctx context.Context, route Route) (bool, error) {
	_, err := c.Request(ctx, route, nil)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// GetReadingStatus returns the current user's reading status for a manga.
// The result is empty when none is set.
func (c *Client) GetReadingStatus(ctx context.Context, id string) (ReadingStatus, error) {
	route, err := idRoute(http.MethodGet, "/manga/{manga_id}/status", "manga_id", id)
	if err != nil {
		return "", err
	}
	resp, err := fetch[readingStatusResponse](ctx, c, route.WithAuth(), nil)
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// UpdateReadingStatus sets the reading status. An empty status clears it.
func (c *Client) UpdateReadingStatus(ctx context.Context, id string, status ReadingStatus) error {
	if status != "" && !status.Valid() {
		return fmt.Errorf("invalid reading status %q", status)
	}
	route, err := idRoute(http.MethodPost, "/manga/{manga_id}/status", "manga_id", id)
	if err != nil {
		return err
	}
	var body struct {
		Status *ReadingStatus `json:"status"`
	}
	if status != "" {
		body.Status = &status
	}
	_, err = c.Request(ctx, route.WithAuth(), body)
	return err
}

// ReadingStatuses returns every reading status of the current user, keyed by
// manga id. A non-empty filter restricts the result to one status.
func (c *Client) ReadingStatuses(ctx context.Context, filter ReadingStatus) (map[string]ReadingStatus, error) {
	route := MustRoute(http.MethodGet, "/manga/status", nil).WithAuth().WithQuery(Query{
		"status": optString(string(filter)),
	})
	resp, err := fetch[readingStatusesResponse](ctx, c, route, nil)
	if err != nil {
		return nil, err
	}
	return resp.Statuses, nil
}

// ReadMarkers returns the ids of chapters the user has read in a manga.
func (c *Client) ReadMarkers(ctx context.Context, id string) ([]string, error) {
	route, err := idRoute(http.MethodGet, "/manga/{manga_id}/read", "manga_id", id)
	if err != nil {
		return nil, err
	}
	resp, err := fetch[struct {
		Data []string `json:"data"`
	}](ctx, c, route.WithAuth(), nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UpdateReadMarkers marks chapters of a manga as read or unread.
func (c *Client) UpdateReadMarkers(ctx context.Context, mangaID string, read, unread []string) error {
	if err := validateIDs(append(append([]string{}, read...), unread...)...); err != nil {
		return err
	}
	route, err := idRoute(http.MethodPost, "/manga/{manga_id}/read", "manga_id", mangaID)
	if err != nil {
		return err
	}
	body := map[string][]string{
		"chapterIdsRead":   nonNil(read),
		"chapterIdsUnread": nonNil(unread),
	}
	_, err = c.Request(ctx, route.WithAuth(), body)
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ListTags fetches every manga tag.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	resp, err := fetch[CollectionResponse[TagAttributes]](ctx, c, MustRoute(http.MethodGet, "/manga/tag", nil), nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// MangaRelations lists the relations of a manga.
func (c *Client) MangaRelations(ctx context.Context, id string, includes ...string) ([]Entity[MangaRelationAttributes], error) {
	route, err := idRoute(http.MethodGet, "/manga/{manga_id}/relation", "manga_id", id)
	if err != nil {
		return nil, err
	}
	resp, err := fetch[CollectionResponse[MangaRelationAttributes]](ctx, c, route.WithQuery(Query{"includes": optSlice(includes)}), nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// MangaRelationAttributes describes a relation between two manga.
type MangaRelationAttributes struct {
	Relation MangaRelation `json:"relation"`
	Version  int           `json:"version"`
}
