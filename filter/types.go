package filter

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/s0up4200/dexter/mangadex"
)

// MangaInfo is the flattened view of a manga that filter expressions run
// against. Titles and tag names are resolved in one language.
type MangaInfo struct {
	ID               string
	Title            string
	AltTitles        []string
	Status           string
	ContentRating    string
	Demographic      string
	Year             int
	OriginalLanguage string
	Languages        []string
	Tags             []string
	Authors          []string
	LastChapter      float64
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Statistics are only set when they were fetched.
	Follows  int
	Rating   float64
	Bayesian float64
}

// NewMangaInfo flattens m for filtering, resolving text in lang. stats may
// be nil.
func NewMangaInfo(m mangadex.Manga, stats *mangadex.MangaStatistics, lang string) MangaInfo {
	a := m.Attributes
	info := MangaInfo{
		ID:               m.ID,
		Title:            a.Title.Get(lang),
		Status:           string(a.Status),
		ContentRating:    string(a.ContentRating),
		OriginalLanguage: a.OriginalLanguage,
		Languages:        a.AvailableTranslatedLanguages,
		CreatedAt:        a.CreatedAt.Time,
		UpdatedAt:        a.UpdatedAt.Time,
	}

	if a.PublicationDemographic != nil {
		info.Demographic = string(*a.PublicationDemographic)
	}
	if a.Year != nil {
		info.Year = *a.Year
	}
	if a.LastChapter != nil {
		info.LastChapter, _ = strconv.ParseFloat(*a.LastChapter, 64)
	}

	for _, alt := range a.AltTitles {
		if t := alt.Get(lang); t != "" {
			info.AltTitles = append(info.AltTitles, t)
		}
	}
	for _, tag := range a.Tags {
		info.Tags = append(info.Tags, tag.Attributes.Name.Get(lang))
	}

	// Author names are present when the manga was fetched with
	// includes[]=author and includes[]=artist.
	seen := make(map[string]bool)
	for _, rel := range m.Relationships {
		if (rel.Type != "author" && rel.Type != "artist") || len(rel.Attributes) == 0 {
			continue
		}
		var person struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(rel.Attributes, &person); err != nil || person.Name == "" || seen[person.Name] {
			continue
		}
		seen[person.Name] = true
		info.Authors = append(info.Authors, person.Name)
	}

	if stats != nil {
		info.Follows = stats.Follows
		if stats.Rating.Average != nil {
			info.Rating = *stats.Rating.Average
		}
		if stats.Rating.Bayesian != nil {
			info.Bayesian = *stats.Rating.Bayesian
		}
	}

	return info
}
