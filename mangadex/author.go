package mangadex

import (
	"context"
	"net/http"
)

// AuthorListOptions filters the author search endpoint.
type AuthorListOptions struct {
	ListOptions
	IDs  []string
	Name string
}

// ListAuthors searches authors and artists.
func (c *Client) ListAuthors(ctx context.Context, opts AuthorListOptions) (*CollectionResponse[AuthorAttributes], error) {
	q := Query{
		"ids":  optSlice(opts.IDs),
		"name": optString(opts.Name),
	}
	if err := opts.apply(q, 100); err != nil {
		return nil, err
	}
	return fetch[CollectionResponse[AuthorAttributes]](ctx, c, MustRoute(http.MethodGet, "/author", nil).WithQuery(q), nil)
}

// GetAuthor fetches a single author or artist.
func (c *Client) GetAuthor(ctx context.Context, id string, includes ...string) (*Author, error) {
	route, err := idRoute(http.MethodGet, "/author/{author_id}", "author_id", id)
	if err != nil {
		return nil, err
	}
	resp, err := fetch[EntityResponse[AuthorAttributes]](ctx, c, route.WithQuery(Query{"includes": optSlice(includes)}), nil)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// CoverListOptions filters the cover art endpoint.
type CoverListOptions struct {
	ListOptions
	Manga   []string
	IDs     []string
	Uploads []string
	Locales []string
}

// ListCovers lists cover art.
func (c *Client) ListCovers(ctx context.Context, opts CoverListOptions) (*CollectionResponse[CoverAttributes], error) {
	q := Query{
		"manga":   optSlice(opts.Manga),
		"ids":     optSlice(opts.IDs),
		"uploads": optSlice(opts.Uploads),
		"locales": optSlice(opts.Locales),
	}
	if err := opts.apply(q, 100); err != nil {
		return nil, err
	}
	return fetch[CollectionResponse[CoverAttributes]](ctx, c, MustRoute(http.MethodGet, "/cover", nil).WithQuery(q), nil)
}

// GetCover fetches a single cover.
func (c *Client) GetCover(ctx context.Context, id string, includes ...string) (*Cover, error) {
	route, err := idRoute(http.MethodGet, "/cover/{cover_id}", "cover_id", id)
	if err != nil {
		return nil, err
	}
	resp, err := fetch[EntityResponse[CoverAttributes]](ctx, c, route.WithQuery(Query{"includes": optSlice(includes)}), nil)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// CoverURL builds the uploads URL of a cover image. size is "", "256" or
// "512" for the thumbnails.
func CoverURL(mangaID, fileName, size string) string {
	u := "https://uploads.mangadex.org/covers/" + mangaID + "/" + fileName
	if size != "" {
		u += "." + size + ".jpg"
	}
	return u
}
