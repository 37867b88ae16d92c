package mangadex

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// LocalizedString maps language codes to text.
type LocalizedString map[string]string

// Get returns the text for lang, falling back to English and then to any
// available language in a stable order.
func (l LocalizedString) Get(lang string) string {
	if v, ok := l[lang]; ok && v != "" {
		return v
	}
	if v, ok := l["en"]; ok && v != "" {
		return v
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if l[k] != "" {
			return l[k]
		}
	}
	return ""
}

// Relationship links an entity to another. Attributes is only populated
// when the relationship was expanded with includes[].
type Relationship struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Related    string          `json:"related,omitempty"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

// Entity is the common document shape: an id, a type and typed attributes.
type Entity[A any] struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Attributes    A              `json:"attributes"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// Related returns the relationships of type t.
func (e Entity[A]) Related(t string) []Relationship {
	var out []Relationship
	for _, r := range e.Relationships {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// EntityResponse is the envelope for single-entity endpoints.
type EntityResponse[A any] struct {
	Result   string    `json:"result"`
	Response string    `json:"response"`
	Data     Entity[A] `json:"data"`
}

// CollectionResponse is the envelope for list endpoints.
type CollectionResponse[A any] struct {
	Result   string      `json:"result"`
	Response string      `json:"response"`
	Data     []Entity[A] `json:"data"`
	Limit    int         `json:"limit"`
	Offset   int         `json:"offset"`
	Total    int         `json:"total"`
}

// Timestamp parses the API's RFC 3339 timestamps.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// TagAttributes describes a manga tag.
type TagAttributes struct {
	Name        LocalizedString `json:"name"`
	Description LocalizedString `json:"description"`
	Group       string          `json:"group"`
	Version     int             `json:"version"`
}

type Tag = Entity[TagAttributes]

// MangaAttributes describes a manga.
type MangaAttributes struct {
	Title                          LocalizedString   `json:"title"`
	AltTitles                      []LocalizedString `json:"altTitles"`
	Description                    LocalizedString   `json:"description"`
	IsLocked                       bool              `json:"isLocked"`
	Links                          map[string]string `json:"links"`
	OriginalLanguage               string            `json:"originalLanguage"`
	LastVolume                     *string           `json:"lastVolume"`
	LastChapter                    *string           `json:"lastChapter"`
	PublicationDemographic         *Demographic      `json:"publicationDemographic"`
	Status                         MangaStatus       `json:"status"`
	Year                           *int              `json:"year"`
	ContentRating                  ContentRating     `json:"contentRating"`
	ChapterNumbersResetOnNewVolume bool              `json:"chapterNumbersResetOnNewVolume"`
	LatestUploadedChapter          string            `json:"latestUploadedChapter"`
	AvailableTranslatedLanguages   []string          `json:"availableTranslatedLanguages"`
	Tags                           []Tag             `json:"tags"`
	State                          string            `json:"state"`
	Version                        int               `json:"version"`
	CreatedAt                      Timestamp         `json:"createdAt"`
	UpdatedAt                      Timestamp         `json:"updatedAt"`
}

type Manga = Entity[MangaAttributes]

// ChapterAttributes describes a chapter.
type ChapterAttributes struct {
	Title              *string   `json:"title"`
	Volume             *string   `json:"volume"`
	Chapter            *string   `json:"chapter"`
	Pages              int       `json:"pages"`
	TranslatedLanguage string    `json:"translatedLanguage"`
	ExternalURL        *string   `json:"externalUrl"`
	IsUnavailable      bool      `json:"isUnavailable"`
	Version            int       `json:"version"`
	CreatedAt          Timestamp `json:"createdAt"`
	UpdatedAt          Timestamp `json:"updatedAt"`
	PublishAt          Timestamp `json:"publishAt"`
	ReadableAt         Timestamp `json:"readableAt"`
}

type Chapter = Entity[ChapterAttributes]

// AuthorAttributes describes an author or artist.
type AuthorAttributes struct {
	Name      string          `json:"name"`
	ImageURL  *string         `json:"imageUrl"`
	Biography LocalizedString `json:"biography"`
	Twitter   *string         `json:"twitter"`
	Pixiv     *string         `json:"pixiv"`
	Website   *string         `json:"website"`
	Version   int             `json:"version"`
	CreatedAt Timestamp       `json:"createdAt"`
	UpdatedAt Timestamp       `json:"updatedAt"`
}

type Author = Entity[AuthorAttributes]

// CoverAttributes describes a cover art entry.
type CoverAttributes struct {
	Volume      *string   `json:"volume"`
	FileName    string    `json:"fileName"`
	Description *string   `json:"description"`
	Locale      *string   `json:"locale"`
	Version     int       `json:"version"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

type Cover = Entity[CoverAttributes]

// ScanlationGroupAttributes describes a scanlation group.
type ScanlationGroupAttributes struct {
	Name             string            `json:"name"`
	AltNames         []LocalizedString `json:"altNames"`
	Website          *string           `json:"website"`
	Discord          *string           `json:"discord"`
	ContactEmail     *string           `json:"contactEmail"`
	Description      *string           `json:"description"`
	Twitter          *string           `json:"twitter"`
	FocusedLanguages []string          `json:"focusedLanguages"`
	Locked           bool              `json:"locked"`
	Official         bool              `json:"official"`
	Verified         bool              `json:"verified"`
	Inactive         bool              `json:"inactive"`
	PublishDelay     *string           `json:"publishDelay"`
	Version          int               `json:"version"`
	CreatedAt        Timestamp         `json:"createdAt"`
	UpdatedAt        Timestamp         `json:"updatedAt"`
}

type ScanlationGroup = Entity[ScanlationGroupAttributes]

// UserAttributes describes a user.
type UserAttributes struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Version  int      `json:"version"`
}

type User = Entity[UserAttributes]

// CustomListAttributes describes a custom list.
type CustomListAttributes struct {
	Name       string               `json:"name"`
	Visibility CustomListVisibility `json:"visibility"`
	Version    int                  `json:"version"`
}

type CustomList = Entity[CustomListAttributes]

// UploadSessionAttributes describes a chapter upload session.
type UploadSessionAttributes struct {
	IsCommitted bool      `json:"isCommitted"`
	IsProcessed bool      `json:"isProcessed"`
	IsDeleted   bool      `json:"isDeleted"`
	Version     int       `json:"version"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

type UploadSession = Entity[UploadSessionAttributes]

// UploadSessionFileAttributes describes an image stored in an upload session.
type UploadSessionFileAttributes struct {
	OriginalFileName string `json:"originalFileName"`
	FileHash         string `json:"fileHash"`
	FileSize         int64  `json:"fileSize"`
	MimeType         string `json:"mimeType"`
	Source           string `json:"source"`
	Version          int    `json:"version"`
}

type UploadSessionFile = Entity[UploadSessionFileAttributes]

// UploadFilesResponse is returned when images are added to a session.
type UploadFilesResponse struct {
	Result string              `json:"result"`
	Errors []APIError          `json:"errors"`
	Data   []UploadSessionFile `json:"data"`
}

// ReportReasonAttributes describes a report reason.
type ReportReasonAttributes struct {
	Reason          LocalizedString `json:"reason"`
	DetailsRequired bool            `json:"detailsRequired"`
	Category        ReportCategory  `json:"category"`
	Version         int             `json:"version"`
}

type ReportReason = Entity[ReportReasonAttributes]

// ReportAttributes describes a report filed by the current user.
type ReportAttributes struct {
	Details   string       `json:"details"`
	ObjectID  string       `json:"objectId"`
	Status    ReportStatus `json:"status"`
	CreatedAt Timestamp    `json:"createdAt"`
}

type Report = Entity[ReportAttributes]

// Rating is the rating summary of a manga.
type Rating struct {
	Average      *float64       `json:"average"`
	Bayesian     *float64       `json:"bayesian"`
	Distribution map[string]int `json:"distribution,omitempty"`
}

// Comments is the forum thread summary attached to statistics.
type Comments struct {
	ThreadID     int `json:"threadId"`
	RepliesCount int `json:"repliesCount"`
}

// MangaStatistics are the public statistics of a manga.
type MangaStatistics struct {
	Comments *Comments `json:"comments"`
	Rating   Rating    `json:"rating"`
	Follows  int       `json:"follows"`
}

// CommentStatistics are the statistics of a chapter or group.
type CommentStatistics struct {
	Comments *Comments `json:"comments"`
}

type mangaStatisticsResponse struct {
	Result     string                     `json:"result"`
	Statistics map[string]MangaStatistics `json:"statistics"`
}

type commentStatisticsResponse struct {
	Result     string                       `json:"result"`
	Statistics map[string]CommentStatistics `json:"statistics"`
}

// PersonalRating is a rating the current user gave.
type PersonalRating struct {
	Rating    int       `json:"rating"`
	CreatedAt Timestamp `json:"createdAt"`
}

type ratingsResponse struct {
	Result  string                    `json:"result"`
	Ratings map[string]PersonalRating `json:"ratings"`
}

type readingStatusResponse struct {
	Result string        `json:"result"`
	Status ReadingStatus `json:"status"`
}

type readingStatusesResponse struct {
	Result   string                   `json:"result"`
	Statuses map[string]ReadingStatus `json:"statuses"`
}

type accountAvailableResponse struct {
	Available bool `json:"available"`
}

// LegacyMappingAttributes maps a pre-v5 numeric id to a UUID.
type LegacyMappingAttributes struct {
	Type     string `json:"type"`
	LegacyID int    `json:"legacyId"`
	NewID    string `json:"newId"`
}

type LegacyMapping = Entity[LegacyMappingAttributes]

// ChapterReadMarker is an entry of the user's read history.
type ChapterReadMarker struct {
	ChapterID string    `json:"chapterId"`
	ReadDate  Timestamp `json:"readDate"`
}

type readHistoryResponse struct {
	Result string              `json:"result"`
	Data   []ChapterReadMarker `json:"data"`
}

// AtHomeServer is the image server assignment for a chapter.
type AtHomeServer struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash      string   `json:"hash"`
		Data      []string `json:"data"`
		DataSaver []string `json:"dataSaver"`
	} `json:"chapter"`
}

// VolumeAggregate summarises the chapters of one volume.
type VolumeAggregate struct {
	Volume   string                    `json:"volume"`
	Count    int                       `json:"count"`
	Chapters flexMap[ChapterAggregate] `json:"chapters"`
}

// ChapterAggregate summarises one chapter number.
type ChapterAggregate struct {
	Chapter string   `json:"chapter"`
	ID      string   `json:"id"`
	Others  []string `json:"others"`
	Count   int      `json:"count"`
}

type aggregateResponse struct {
	Result  string                   `json:"result"`
	Volumes flexMap[VolumeAggregate] `json:"volumes"`
}

// flexMap decodes an object, or an array keyed by position. The aggregate
// endpoint sends [] instead of {} when a level is empty or unnumbered.
type flexMap[V any] map[string]V

func (m *flexMap[V]) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []V
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		out := make(flexMap[V], len(list))
		for i, v := range list {
			out[strconv.Itoa(i)] = v
		}
		*m = out
		return nil
	}
	var obj map[string]V
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*m = obj
	return nil
}
