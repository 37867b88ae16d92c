package mangadex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSessionID = "6a1c1a0c-6d1e-4c1f-9b6a-0d9f0e4b1a11"
	testGroupID   = "f3a6f0e1-1b7a-4d5e-8f2c-1d2e3f4a5b6c"
)

func TestSortPageNames(t *testing.T) {
	names := []string{"11.png", "2.png", "1.png", "10-b.jpg", "10-a.jpg", "3.gif"}
	require.NoError(t, SortPageNames(names))
	assert.Equal(t, []string{"1.png", "2.png", "3.gif", "10-b.jpg", "10-a.jpg", "11.png"}, names)

	err := SortPageNames([]string{"cover.png"})
	assert.Error(t, err)
}

func TestMultipartBodyKeepsOrder(t *testing.T) {
	body := &MultipartBody{
		Fields: []MultipartField{{Name: "note", Value: "hi"}},
		Files: []MultipartFile{
			{Field: "file1", Name: "b.png", Data: []byte("\x89PNG\r\n\x1a\nxxxx")},
			{Field: "file2", Name: "a \"quoted\".png", ContentType: "image/png", Data: []byte("yy")},
		},
	}
	assert.Equal(t, int64(14), body.Size())

	data, contentType, err := body.encode()
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	r := multipart.NewReader(strings.NewReader(string(data)), params["boundary"])

	var names []string
	for {
		part, err := r.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, part.FormName()+":"+part.FileName())
		if part.FileName() == "b.png" {
			assert.Equal(t, "image/png", part.Header.Get("Content-Type"))
		}
	}
	assert.Equal(t, []string{"note:", "file1:b.png", `file2:a "quoted".png`}, names)
}

// fakeUploadAPI records upload traffic and answers like the upload endpoints.
type fakeUploadAPI struct {
	mu       sync.Mutex
	existing string
	batches  [][]string
	deleted  []string
	commit   map[string]any
	abandons int
	reject   map[string]bool
	nextFile int
}

func (f *fakeUploadAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/upload":
		if f.existing == "" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"result":"error","errors":[{"id":"x","status":404,"title":"not_found_http_exception","detail":"No upload session"}]}`)
			return
		}
		respondJSON(w, fmt.Sprintf(`{"result":"ok","data":{"id":"%s","type":"upload_session","attributes":{}}}`, f.existing))

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/upload/begin"):
		respondJSON(w, fmt.Sprintf(`{"result":"ok","data":{"id":"%s","type":"upload_session","attributes":{"isCommitted":false}}}`, testSessionID))

	case r.Method == http.MethodPost && r.URL.Path == "/upload/"+testSessionID:
		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var names []string
		var files []string
		var errs []string
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			names = append(names, part.FileName())
			if f.reject[part.FileName()] {
				errs = append(errs, fmt.Sprintf(`{"id":"e","status":400,"title":"file_rejected","detail":"%s"}`, part.FileName()))
				continue
			}
			f.nextFile++
			files = append(files, fmt.Sprintf(`{"id":"%s","type":"upload_session_file","attributes":{"originalFileName":"%s"}}`, fileID(f.nextFile), part.FileName()))
		}
		f.batches = append(f.batches, names)
		respondJSON(w, fmt.Sprintf(`{"result":"ok","errors":[%s],"data":[%s]}`, strings.Join(errs, ","), strings.Join(files, ",")))

	case r.Method == http.MethodDelete && r.URL.Path == "/upload/"+testSessionID+"/batch":
		var ids []string
		json.NewDecoder(r.Body).Decode(&ids)
		f.deleted = append(f.deleted, ids...)
		respondJSON(w, `{"result":"ok"}`)

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/upload/"+testSessionID+"/"):
		f.deleted = append(f.deleted, strings.TrimPrefix(r.URL.Path, "/upload/"+testSessionID+"/"))
		respondJSON(w, `{"result":"ok"}`)

	case r.Method == http.MethodPost && r.URL.Path == "/upload/"+testSessionID+"/commit":
		json.NewDecoder(r.Body).Decode(&f.commit)
		respondJSON(w, `{"result":"ok","data":{"id":"c1","type":"chapter","attributes":{"chapter":"1","translatedLanguage":"en"}}}`)

	case r.Method == http.MethodDelete && r.URL.Path == "/upload/"+testSessionID:
		f.abandons++
		w.WriteHeader(http.StatusNoContent)

	default:
		http.NotFound(w, r)
	}
}

func fileID(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}

func pages(n int) []UploadImage {
	images := make([]UploadImage, n)
	for i := range images {
		images[i] = UploadImage{Name: fmt.Sprintf("%d.png", i+1), Data: []byte("\x89PNG\r\n\x1a\n")}
	}
	return images
}

func TestChapterUploadFlow(t *testing.T) {
	api := &fakeUploadAPI{reject: map[string]bool{"12.png": true}}
	env := newTestEnv(t, passwordCreds(), api.ServeHTTP)
	ctx := context.Background()

	upload, err := env.client.BeginUpload(ctx, UploadOptions{MangaID: testMangaID, Groups: []string{testGroupID}})
	require.NoError(t, err)
	assert.Equal(t, testSessionID, upload.SessionID())

	result, err := upload.UploadImages(ctx, pages(23))
	require.NoError(t, err)

	require.Len(t, api.batches, 3, "images go out in batches of ten")
	assert.Len(t, api.batches[0], 10)
	assert.Len(t, api.batches[1], 10)
	assert.Len(t, api.batches[2], 3)
	assert.Equal(t, "1.png", api.batches[0][0])
	assert.Equal(t, "11.png", api.batches[1][0])
	assert.Equal(t, "23.png", api.batches[2][2])

	assert.Len(t, result.Files, 22)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, []string{"12.png"}, result.Failed)

	require.NoError(t, upload.DeleteImages(ctx, fileID(1)))
	require.NoError(t, upload.DeleteImages(ctx, fileID(2), fileID(3)))
	assert.Equal(t, []string{fileID(1), fileID(2), fileID(3)}, api.deleted)
	assert.Len(t, upload.Pages(), 19)
	assert.Equal(t, fileID(4), upload.Pages()[0])
	assert.ErrorIs(t, upload.DeleteImages(ctx, "file-5"), ErrInvalidID)

	chapterNumber := "1"
	_, err = upload.Commit(ctx, ChapterDraft{Chapter: &chapterNumber, TranslatedLanguage: "en"}, false)
	assert.ErrorIs(t, err, ErrTermsNotAccepted)

	chapter, err := upload.Commit(ctx, ChapterDraft{Chapter: &chapterNumber, TranslatedLanguage: "en"}, true)
	require.NoError(t, err)
	assert.Equal(t, "c1", chapter.ID)

	assert.Equal(t, true, api.commit["termsAccepted"])
	order, ok := api.commit["pageOrder"].([]any)
	require.True(t, ok)
	assert.Len(t, order, 19)
	assert.Equal(t, fileID(4), order[0])
	draft := api.commit["chapterDraft"].(map[string]any)
	assert.Equal(t, "1", draft["chapter"])
	assert.Nil(t, draft["volume"])

	require.NoError(t, upload.Abandon(ctx))
	assert.Zero(t, api.abandons, "a committed session is not abandoned")
}

func TestBeginUploadWithOpenSession(t *testing.T) {
	api := &fakeUploadAPI{existing: "0c2b8b0e-6a37-4f4d-9a1c-3f3f8b8f1e2d"}
	env := newTestEnv(t, passwordCreds(), api.ServeHTTP)

	_, err := env.client.BeginUpload(context.Background(), UploadOptions{MangaID: testMangaID})
	var inProgress *UploadInProgressError
	require.True(t, errors.As(err, &inProgress))
	assert.Equal(t, api.existing, inProgress.SessionID)

	require.NoError(t, env.client.AbandonUpload(context.Background(), inProgress.SessionID))
}

func TestBeginUploadResume(t *testing.T) {
	api := &fakeUploadAPI{existing: testSessionID}
	env := newTestEnv(t, passwordCreds(), api.ServeHTTP)

	upload, err := env.client.BeginUpload(context.Background(), UploadOptions{SessionID: testSessionID})
	require.NoError(t, err)
	require.NoError(t, upload.Abandon(context.Background()))
	assert.Equal(t, 1, api.abandons)

	_, err = upload.UploadImages(context.Background(), pages(1))
	assert.Error(t, err, "an abandoned session takes no more images")
}

func TestUploadOptionsValidation(t *testing.T) {
	groups := make([]string, 11)
	for i := range groups {
		groups[i] = testGroupID
	}

	tests := []struct {
		name string
		opts UploadOptions
	}{
		{"bad manga id", UploadOptions{MangaID: "x"}},
		{"too many groups", UploadOptions{MangaID: testMangaID, Groups: groups}},
		{"edit without version", UploadOptions{MangaID: testMangaID, ChapterID: testGroupID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.opts.validate())
		})
	}
}

func TestApprovalRequired(t *testing.T) {
	env := newTestEnv(t, passwordCreds(), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/check-approval-required", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "en", body["locale"])
		respondJSON(w, `{"result":"ok","requiresApproval":true}`)
	})

	required, err := env.client.ApprovalRequired(context.Background(), testMangaID, "en")
	require.NoError(t, err)
	assert.True(t, required)
}
