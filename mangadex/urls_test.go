package mangadex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ParsedURL
		wantErr  bool
	}{
		{
			name:     "title with slug",
			input:    "https://mangadex.org/title/a96676e5-8ae2-425e-b549-7f15dd34a6d8/komi-san-wa-komyushou-desu",
			expected: ParsedURL{Kind: "title", ID: testMangaID, Slug: "komi-san-wa-komyushou-desu"},
		},
		{
			name:     "chapter without scheme",
			input:    "mangadex.org/chapter/A96676E5-8AE2-425E-B549-7F15DD34A6D8",
			expected: ParsedURL{Kind: "chapter", ID: testMangaID},
		},
		{
			name:     "www and query",
			input:    "https://www.mangadex.org/author/a96676e5-8ae2-425e-b549-7f15dd34a6d8?tab=works",
			expected: ParsedURL{Kind: "author", ID: testMangaID},
		},
		{
			name:     "escaped slug",
			input:    "https://mangadex.org/tag/a96676e5-8ae2-425e-b549-7f15dd34a6d8/slice%20of%20life",
			expected: ParsedURL{Kind: "tag", ID: testMangaID, Slug: "slice of life"},
		},
		{name: "other site", input: "https://example.org/title/a96676e5-8ae2-425e-b549-7f15dd34a6d8", wantErr: true},
		{name: "unknown kind", input: "https://mangadex.org/group/a96676e5-8ae2-425e-b549-7f15dd34a6d8", wantErr: true},
		{name: "no id", input: "https://mangadex.org/title/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSiteURLs(t *testing.T) {
	assert.Equal(t, "https://mangadex.org/title/"+testMangaID, MangaURL(testMangaID))
	assert.Equal(t, "https://mangadex.org/chapter/"+testMangaID, ChapterURL(testMangaID))
	assert.Equal(t, "https://mangadex.org/author/"+testMangaID, AuthorURL(testMangaID))
	assert.Equal(t, "https://mangadex.org/user/"+testMangaID, UserURL(testMangaID))

	parsed, err := ParseURL(MangaURL(testMangaID))
	require.NoError(t, err)
	assert.Equal(t, testMangaID, parsed.ID)
}
