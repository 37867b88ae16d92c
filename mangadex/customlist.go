package mangadex

import (
	"context"
	"errors"
	"net/http"
)

// CreateCustomList creates a custom list owned by the current user.
func (c *Client) CreateCustomList(ctx context.Context, name string, visibility CustomListVisibility, manga ...string) (*CustomList, error) {
	if name == "" {
		return nil, errors.New("custom list name is required")
	}
	if err := validateIDs(manga...); err != nil {
		return nil, err
	}
	body := struct {
		Name       string               `json:"name"`
		Visibility CustomListVisibility `json:"visibility,omitempty"`
		Manga      []string             `json:"manga"`
	}{Name: name, Visibility: visibility, Manga: nonNil(manga)}

	resp, err := fetch[EntityResponse[CustomListAttributes]](ctx, c, MustRoute(http.MethodPost, "/list", nil).WithAuth(), body)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// GetCustomList fetches a custom list. Private lists need authentication,
// so the request is authenticated whenever the session can be.
func (c *Client) GetCustomList(ctx context.Context, id string) (*CustomList, error) {
	route, err := idRoute(http.MethodGet, "/list/{custom_list_id}", "custom_list_id", id)
	if err != nil {
		return nil, err
	}
	if c.session.canAuthenticate() {
		route = route.WithAuth()
	}
	resp, err := fetch[EntityResponse[CustomListAttributes]](ctx, c, route, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// DeleteCustomList deletes a custom list.
func (c *Client) DeleteCustomList(ctx context.Context, id string) error {
	route, err := idRoute(http.MethodDelete, "/list/{custom_list_id}", "custom_list_id", id)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, route.WithAuth(), nil)
	return err
}

// AddMangaToList adds a manga to a custom list.
func (c *Client) AddMangaToList(ctx context.Context, listID, mangaID string) error {
	return c.listMembership(ctx, http.MethodPost, listID, mangaID)
}

// RemoveMangaFromList removes a manga from a custom list.
func (c *Client) RemoveMangaFromList(ctx context.Context, listID, mangaID string) error {
	return c.listMembership(ctx, http.MethodDelete, listID, mangaID)
}

func (c *Client) listMembership(ctx context.Context, method, listID, mangaID string) error {
	if err := validateIDs(listID, mangaID); err != nil {
		return err
	}
	route := MustRoute(method, "/manga/{manga_id}/list/{custom_list_id}", map[string]string{
		"manga_id":       mangaID,
		"custom_list_id": listID,
	})
	_, err := c.Request(ctx, route.WithAuth(), nil)
	return err
}

// MyCustomLists lists the current user's custom lists.
func (c *Client) MyCustomLists(ctx context.Context, opts ListOptions) (*CollectionResponse[CustomListAttributes], error) {
	q := Query{}
	if err := opts.apply(q, 100); err != nil {
		return nil, err
	}
	route := MustRoute(http.MethodGet, "/user/list", nil).WithAuth().WithQuery(q)
	return fetch[CollectionResponse[CustomListAttributes]](ctx, c, route, nil)
}

// CustomListFeed lists the chapters of the manga in a custom list.
func (c *Client) CustomListFeed(ctx context.Context, id string, opts FeedOptions) (*CollectionResponse[ChapterAttributes], error) {
	route, err := idRoute(http.MethodGet, "/list/{custom_list_id}/feed", "custom_list_id", id)
	if err != nil {
		return nil, err
	}
	q, err := opts.query()
	if err != nil {
		return nil, err
	}
	if c.session.canAuthenticate() {
		route = route.WithAuth()
	}
	return fetch[CollectionResponse[ChapterAttributes]](ctx, c, route.WithQuery(q), nil)
}
