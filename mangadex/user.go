package mangadex

import (
	"context"
	"net/http"
	"net/url"
)

// Me returns the logged in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	resp, err := fetch[EntityResponse[UserAttributes]](ctx, c, MustRoute(http.MethodGet, "/user/me", nil).WithAuth(), nil)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	route, err := idRoute(http.MethodGet, "/user/{user_id}", "user_id", id)
	if err != nil {
		return nil, err
	}
	resp, err := fetch[EntityResponse[UserAttributes]](ctx, c, route, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// FollowedManga lists the manga the current user follows.
func (c *Client) FollowedManga(ctx context.Context, opts ListOptions) (*CollectionResponse[MangaAttributes], error) {
	q := Query{}
	if err := opts.apply(q, 100); err != nil {
		return nil, err
	}
	route := MustRoute(http.MethodGet, "/user/follows/manga", nil).WithAuth().WithQuery(q)
	return fetch[CollectionResponse[MangaAttributes]](ctx, c, route, nil)
}

// FollowedGroups lists the scanlation groups the current user follows.
func (c *Client) FollowedGroups(ctx context.Context, opts ListOptions) (*CollectionResponse[ScanlationGroupAttributes], error) {
	q := Query{}
	if err := opts.apply(q, 100); err != nil {
		return nil, err
	}
	route := MustRoute(http.MethodGet, "/user/follows/group", nil).WithAuth().WithQuery(q)
	return fetch[CollectionResponse[ScanlationGroupAttributes]](ctx, c, route, nil)
}

// Feed lists new chapters of the manga the current user follows.
func (c *Client) Feed(ctx context.Context, opts FeedOptions) (*CollectionResponse[ChapterAttributes], error) {
	q, err := opts.query()
	if err != nil {
		return nil, err
	}
	route := MustRoute(http.MethodGet, "/user/follows/manga/feed", nil).WithAuth().WithQuery(q)
	return fetch[CollectionResponse[ChapterAttributes]](ctx, c, route, nil)
}

// AccountAvailable reports whether a username can still be registered.
func (c *Client) AccountAvailable(ctx context.Context, username string) (bool, error) {
	route := MustRoute(http.MethodGet, "/account/available", nil).WithQuery(Query{"username": username})
	resp, err := fetch[accountAvailableResponse](ctx, c, route, nil)
	if err != nil {
		return false, err
	}
	return resp.Available, nil
}

// LegacyMapping resolves pre-v5 numeric ids of the given type ("manga",
// "chapter", "group", "tag") to UUIDs.
func (c *Client) LegacyMapping(ctx context.Context, typ string, ids []int) ([]LegacyMapping, error) {
	body := struct {
		Type string `json:"type"`
		IDs  []int  `json:"ids"`
	}{Type: typ, IDs: ids}

	resp, err := fetch[CollectionResponse[LegacyMappingAttributes]](ctx, c, MustRoute(http.MethodPost, "/legacy/mapping", nil), body)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UserURL returns the public profile URL of a user.
func UserURL(id string) string {
	return SiteURL + "/user/" + url.PathEscape(id)
}
