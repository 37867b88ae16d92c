package mangadex

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/google/uuid"
)

// SiteURL is the MangaDex website.
const SiteURL = "https://mangadex.org"

var siteURLPattern = regexp.MustCompile(
	`^(?:https?://)?(?:www\.)?mangadex\.org/(title|chapter|author|tag)/([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})(?:/([^?#]*))?`,
)

// ParsedURL is what ParseURL extracts from a website link.
type ParsedURL struct {
	// Kind is "title", "chapter", "author" or "tag".
	Kind string
	ID   string
	// Slug is the trailing human readable part, if present.
	Slug string
}

// ParseURL extracts the entity kind and id from a mangadex.org link such as
// https://mangadex.org/title/<id>/some-title.
func ParseURL(raw string) (ParsedURL, error) {
	m := siteURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return ParsedURL{}, fmt.Errorf("not a MangaDex link: %q", raw)
	}
	id, err := uuid.Parse(m[2])
	if err != nil {
		return ParsedURL{}, fmt.Errorf("%w: %q", ErrInvalidID, m[2])
	}
	slug, err := url.PathUnescape(m[3])
	if err != nil {
		slug = m[3]
	}
	return ParsedURL{Kind: m[1], ID: id.String(), Slug: slug}, nil
}

// MangaURL returns the website link of a manga.
func MangaURL(id string) string {
	return SiteURL + "/title/" + url.PathEscape(id)
}

// ChapterURL returns the website link of a chapter.
func ChapterURL(id string) string {
	return SiteURL + "/chapter/" + url.PathEscape(id)
}

// AuthorURL returns the website link of an author or artist.
func AuthorURL(id string) string {
	return SiteURL + "/author/" + url.PathEscape(id)
}
