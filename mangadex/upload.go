package mangadex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"
)

const (
	// uploadBatchSize is how many images one upload request carries.
	uploadBatchSize = 10
	// maxUploadGroups is the most scanlation groups a chapter can credit.
	maxUploadGroups = 10
)

// ErrTermsNotAccepted indicates a commit without accepting the terms of
// service.
var ErrTermsNotAccepted = errors.New("the terms of service must be accepted to commit an upload")

var pageNamePattern = regexp.MustCompile(`^(\d+)(-?\w*)?\.(png|jpe?g|gif)$`)

// SortPageNames orders page file names by their leading number, so that
// 1.png, 2.png and 11.png keep that order. Names must look like "1.png" or
// "1-extra.png".
func SortPageNames(names []string) error {
	keys := make(map[string]string, len(names))
	for _, name := range names {
		m := pageNamePattern.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid page file name %q", name)
		}
		keys[name] = m[1]
	}
	sort.SliceStable(names, func(i, j int) bool {
		a, b := keys[names[i]], keys[names[j]]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return nil
}

// UploadImage is one page of a chapter upload.
type UploadImage struct {
	Name string
	Data []byte
}

// UploadOptions describe the chapter an upload session is opened for.
type UploadOptions struct {
	MangaID string
	Groups  []string
	// ChapterID opens an edit session for an existing chapter, in which case
	// Version must be the chapter's current version.
	ChapterID string
	Version   int
	// SessionID resumes an already open session instead of starting one.
	SessionID string
}

func (o UploadOptions) validate() error {
	if err := ValidateID(o.MangaID); err != nil {
		return err
	}
	if len(o.Groups) > maxUploadGroups {
		return fmt.Errorf("at most %d scanlation groups can be credited, got %d", maxUploadGroups, len(o.Groups))
	}
	if err := validateIDs(o.Groups...); err != nil {
		return err
	}
	if o.ChapterID != "" {
		if err := ValidateID(o.ChapterID); err != nil {
			return err
		}
		if o.Version == 0 {
			return errors.New("a version is required to edit a chapter")
		}
	}
	return nil
}

// ChapterDraft is the chapter metadata sent on commit.
type ChapterDraft struct {
	Volume             *string    `json:"volume"`
	Chapter            *string    `json:"chapter"`
	Title              *string    `json:"title"`
	TranslatedLanguage string     `json:"translatedLanguage"`
	ExternalURL        string     `json:"externalUrl,omitempty"`
	PublishAt          *Timestamp `json:"publishAt,omitempty"`
}

// UploadResult summarises the batches sent by UploadImages.
type UploadResult struct {
	Files  []UploadSessionFile
	Errors []APIError
	// Failed lists the submitted names the server did not store.
	Failed []string
}

// ChapterUpload is an open upload session. It is safe for concurrent use,
// although batches are always sent one after another.
type ChapterUpload struct {
	client    *Client
	sessionID string

	mu        sync.Mutex
	pages     []string
	closed    bool
	submitted int
}

// CurrentUploadSession returns the user's open upload session, or nil when
// there is none.
func (c *Client) CurrentUploadSession(ctx context.Context) (*UploadSession, error) {
	resp, err := fetch[EntityResponse[UploadSessionAttributes]](ctx, c, MustRoute(http.MethodGet, "/upload", nil).WithAuth(), nil)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// BeginUpload opens an upload session. Unless opts.SessionID resumes one,
// an existing session is reported as *UploadInProgressError.
func (c *Client) BeginUpload(ctx context.Context, opts UploadOptions) (*ChapterUpload, error) {
	if opts.SessionID != "" {
		if err := ValidateID(opts.SessionID); err != nil {
			return nil, err
		}
		return &ChapterUpload{client: c, sessionID: opts.SessionID}, nil
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	existing, err := c.CurrentUploadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for an open upload session: %w", err)
	}
	if existing != nil {
		return nil, &UploadInProgressError{SessionID: existing.ID}
	}

	body := struct {
		Manga   string   `json:"manga"`
		Groups  []string `json:"groups"`
		Version *int     `json:"version,omitempty"`
	}{Manga: opts.MangaID, Groups: nonNil(opts.Groups)}

	route := MustRoute(http.MethodPost, "/upload/begin", nil)
	if opts.ChapterID != "" {
		route = MustRoute(http.MethodPost, "/upload/begin/{chapter_id}", map[string]string{"chapter_id": opts.ChapterID})
		body.Version = &opts.Version
	}

	resp, err := fetch[EntityResponse[UploadSessionAttributes]](ctx, c, route.WithAuth(), body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("session", resp.Data.ID).
		Str("manga", opts.MangaID).
		Msg("Opened upload session")

	return &ChapterUpload{client: c, sessionID: resp.Data.ID}, nil
}

// SessionID returns the id of the upload session.
func (u *ChapterUpload) SessionID() string {
	return u.sessionID
}

// Pages returns the ids of the stored images in page order.
func (u *ChapterUpload) Pages() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.pages...)
}

// UploadImages sends images in batches of ten, in the order given. Images
// the server rejects are reported in the result, not as an error; an error
// is returned only when a batch request itself fails.
func (u *ChapterUpload) UploadImages(ctx context.Context, images []UploadImage) (*UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil, errors.New("upload session is closed")
	}

	route := MustRoute(http.MethodPost, "/upload/{session_id}", map[string]string{"session_id": u.sessionID}).WithAuth()
	result := &UploadResult{}
	stored := make(map[string]bool, len(images))

	for start := 0; start < len(images); start += uploadBatchSize {
		batch := images[start:min(start+uploadBatchSize, len(images))]

		body := &MultipartBody{}
		for _, img := range batch {
			u.submitted++
			body.Files = append(body.Files, MultipartFile{
				Field: "file" + strconv.Itoa(u.submitted),
				Name:  img.Name,
				Data:  img.Data,
			})
		}

		resp, err := fetch[UploadFilesResponse](ctx, u.client, route, body)
		if err != nil {
			return result, fmt.Errorf("failed to upload batch starting at page %d: %w", start+1, err)
		}

		for _, f := range resp.Data {
			u.pages = append(u.pages, f.ID)
			stored[f.Attributes.OriginalFileName] = true
		}
		result.Files = append(result.Files, resp.Data...)
		result.Errors = append(result.Errors, resp.Errors...)

		u.client.logger.Debug().
			Str("session", u.sessionID).
			Int("sent", len(batch)).
			Int("stored", len(resp.Data)).
			Msg("Uploaded image batch")
	}

	for _, img := range images {
		if !stored[img.Name] {
			result.Failed = append(result.Failed, img.Name)
		}
	}
	return result, nil
}

// DeleteImages removes stored images from the session.
func (u *ChapterUpload) DeleteImages(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := validateIDs(ids...); err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	var err error
	if len(ids) == 1 {
		route := MustRoute(http.MethodDelete, "/upload/{session_id}/{image_id}", map[string]string{
			"session_id": u.sessionID,
			"image_id":   ids[0],
		})
		_, err = u.client.Request(ctx, route.WithAuth(), nil)
	} else {
		route := MustRoute(http.MethodDelete, "/upload/{session_id}/batch", map[string]string{"session_id": u.sessionID})
		_, err = u.client.Request(ctx, route.WithAuth(), ids)
	}
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := u.pages[:0]
	for _, id := range u.pages {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	u.pages = kept
	return nil
}

// Commit publishes the session as a chapter, using the stored images as
// pages in upload order.
func (u *ChapterUpload) Commit(ctx context.Context, draft ChapterDraft, termsAccepted bool) (*Chapter, error) {
	if !termsAccepted {
		return nil, ErrTermsNotAccepted
	}
	if draft.TranslatedLanguage == "" {
		return nil, errors.New("translated language is required")
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil, errors.New("upload session is closed")
	}

	body := struct {
		ChapterDraft  ChapterDraft `json:"chapterDraft"`
		PageOrder     []string     `json:"pageOrder"`
		TermsAccepted bool         `json:"termsAccepted"`
	}{ChapterDraft: draft, PageOrder: nonNil(u.pages), TermsAccepted: true}

	route := MustRoute(http.MethodPost, "/upload/{session_id}/commit", map[string]string{"session_id": u.sessionID})
	resp, err := fetch[EntityResponse[ChapterAttributes]](ctx, u.client, route.WithAuth(), body)
	if err != nil {
		return nil, err
	}
	u.closed = true
	return &resp.Data, nil
}

// Abandon discards the session and every image stored in it.
func (u *ChapterUpload) Abandon(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil
	}
	if err := u.client.AbandonUpload(ctx, u.sessionID); err != nil {
		return err
	}
	u.closed = true
	return nil
}

// AbandonUpload discards an upload session by id.
func (c *Client) AbandonUpload(ctx context.Context, sessionID string) error {
	route, err := idRoute(http.MethodDelete, "/upload/{session_id}", "session_id", sessionID)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, route.WithAuth(), nil)
	return err
}

// ApprovalRequired reports whether uploading to the manga in the given
// language needs moderator approval.
func (c *Client) ApprovalRequired(ctx context.Context, mangaID, locale string) (bool, error) {
	if err := ValidateID(mangaID); err != nil {
		return false, err
	}
	body := struct {
		Manga  string `json:"manga"`
		Locale string `json:"locale"`
	}{Manga: mangaID, Locale: locale}

	resp, err := fetch[struct {
		RequiresApproval bool `json:"requiresApproval"`
	}](ctx, c, MustRoute(http.MethodPost, "/upload/check-approval-required", nil).WithAuth(), body)
	if err != nil {
		return false, err
	}
	return resp.RequiresApproval, nil
}

// PublishAt is a helper for ChapterDraft.PublishAt.
func PublishAt(t time.Time) *Timestamp {
	return &Timestamp{Time: t.UTC().Truncate(time.Second)}
}
