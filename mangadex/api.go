package mangadex

import (
	"context"
	"encoding/json"
)

// API is the subset of Client the command line tool depends on.
type API interface {
	// Request performs a raw call through the request pipeline
	Request(ctx context.Context, route Route, body any) (json.RawMessage, error)

	// Login authenticates with the given credentials
	Login(ctx context.Context, creds Credentials) error

	// Logout revokes the session
	Logout(ctx context.Context) error

	// Me returns the logged in user
	Me(ctx context.Context) (*User, error)

	// ListManga searches manga
	ListManga(ctx context.Context, opts MangaListOptions) (*CollectionResponse[MangaAttributes], error)

	// GetManga fetches a single manga
	GetManga(ctx context.Context, id string, includes ...string) (*Manga, error)

	// Feed lists new chapters of followed manga
	Feed(ctx context.Context, opts FeedOptions) (*CollectionResponse[ChapterAttributes], error)

	// MangaStatistics fetches public statistics keyed by manga id
	MangaStatistics(ctx context.Context, ids ...string) (map[string]MangaStatistics, error)
}

// Uploader opens chapter upload sessions.
type Uploader interface {
	CurrentUploadSession(ctx context.Context) (*UploadSession, error)
	BeginUpload(ctx context.Context, opts UploadOptions) (*ChapterUpload, error)
	AbandonUpload(ctx context.Context, sessionID string) error
}

// CatalogUpdater refreshes the local lookup tables from the API.
type CatalogUpdater interface {
	UpdateTags(ctx context.Context) (map[string]string, error)
	UpdateReportReasons(ctx context.Context) (map[ReportCategory]map[string]string, error)
}

var (
	_ API            = (*Client)(nil)
	_ Uploader       = (*Client)(nil)
	_ CatalogUpdater = (*Client)(nil)
)
