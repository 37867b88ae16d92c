package mangadex

import (
	"context"
	"net/http"
)

// GroupListOptions filters the scanlation group endpoint.
type GroupListOptions struct {
	ListOptions
	IDs             []string
	Name            string
	FocusedLanguage string
}

// ListGroups searches scanlation groups.
func (c *Client) ListGroups(ctx context.Context, opts GroupListOptions) (*CollectionResponse[ScanlationGroupAttributes], error) {
	q := Query{
		"ids":             optSlice(opts.IDs),
		"name":            optString(opts.Name),
		"focusedLanguage": optString(opts.FocusedLanguage),
	}
	if err := opts.apply(q, 100); err != nil {
		return nil, err
	}
	return fetch[CollectionResponse[ScanlationGroupAttributes]](ctx, c, MustRoute(http.MethodGet, "/group", nil).WithQuery(q), nil)
}

// GetGroup fetches a single scanlation group.
func (c *Client) GetGroup(ctx context.Context, id string, includes ...string) (*ScanlationGroup, error) {
	route, err := idRoute(http.MethodGet, "/group/{group_id}", "group_id", id)
	if err != nil {
		return nil, err
	}
	resp, err := fetch[EntityResponse[ScanlationGroupAttributes]](ctx, c, route.WithQuery(Query{"includes": optSlice(includes)}), nil)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// FollowGroup follows a scanlation group.
func (c *Client) FollowGroup(ctx context.Context, id string) error {
	route, err := idRoute(http.MethodPost, "/group/{group_id}/follow", "group_id", id)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, route.WithAuth(), nil)
	return err
}

// UnfollowGroup unfollows a scanlation group.
func (c *Client) UnfollowGroup(ctx context.Context, id string) error {
	route, err := idRoute(http.MethodDelete, "/group/{group_id}/follow", "group_id", id)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, route.WithAuth(), nil)
	return err
}

// IsGroupFollowed reports whether the current user follows the group.
func (c *Client) IsGroupFollowed(ctx context.Context, id string) (bool, error) {
	route, err := idRoute(http.MethodGet, "/user/follows/group/{group_id}", "group_id", id)
	if err != nil {
		return false, err
	}
	return c.exists(ctx, route.WithAuth())
}
