package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/joseph-ayodele/filings-tracker/internal/common"
)

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("c000980113011140304.pdf"))
	assert.NoError(t, ValidateName("REPORT.PDF"))
	for _, bad := range []string{"", "  ", "notes.txt", "noext", "../x.pdf", `dir\x.pdf`} {
		assert.ErrorIs(t, ValidateName(bad), common.ErrInvalidInput, bad)
	}
}

func TestBlobUploaderFS(t *testing.T) {
	root := t.TempDir()
	u := NewBlobUploader(FSStore{Root: root}, nil)

	first, err := u.Upload(context.Background(), "", "a.pdf", strings.NewReader("not really a pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, 0, first.ChunkCount, "unreadable pdf counts as zero pages")

	assert.Equal(t, filepath.Join(root, first.SessionID), filepath.Dir(filepath.Dir(first.ContentRef)))
	assert.Equal(t, "a.pdf", filepath.Base(first.ContentRef))
	got, err := os.ReadFile(first.ContentRef)
	require.NoError(t, err)
	assert.Equal(t, "not really a pdf", string(got))

	second, err := u.Upload(context.Background(), first.SessionID, "b.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	_, err = u.Upload(context.Background(), "", "b.docx", strings.NewReader("x"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestBlobUploaderKeepsDuplicateNamesApart(t *testing.T) {
	u := NewBlobUploader(FSStore{Root: t.TempDir()}, nil)

	first, err := u.Upload(context.Background(), "req-1", "a.pdf", strings.NewReader("first"))
	require.NoError(t, err)
	second, err := u.Upload(context.Background(), "req-1", "a.pdf", strings.NewReader("second"))
	require.NoError(t, err)
	require.NotEqual(t, first.ContentRef, second.ContentRef)

	got, err := os.ReadFile(first.ContentRef)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
	got, err = os.ReadFile(second.ContentRef)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestFSStoreRefusesOverwrite(t *testing.T) {
	store := FSStore{Root: t.TempDir()}
	key := BlobKey("req-1", "u1", "a.pdf")

	ref, err := store.Put(context.Background(), key, []byte("first"))
	require.NoError(t, err)
	_, err = store.Put(context.Background(), key, []byte("second"))
	require.ErrorIs(t, err, ErrBlobExists)

	got, err := os.ReadFile(ref)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
}

func TestPreconditionFailed(t *testing.T) {
	assert.True(t, preconditionFailed(fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})))
	assert.False(t, preconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, preconditionFailed(errors.New("network down")))
}

func TestHTTPUploader(t *testing.T) {
	var gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(b)
		_, _ = w.Write([]byte(`{"request_id":"req-42","chunks":3}`))
	}))
	defer srv.Close()

	u, err := NewHTTPUploader(srv.URL, 0, nil)
	require.NoError(t, err)
	rec, err := u.Upload(context.Background(), "ignored", "a.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", gotName)
	assert.Equal(t, "%PDF-1.4", gotBody)
	assert.Equal(t, "req-42", rec.SessionID)
	assert.Equal(t, 3, rec.ChunkCount)
}

func TestHTTPUploaderErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"missing request id", http.StatusOK, `{"chunks":1}`, common.ErrMalformedResponse},
		{"not json", http.StatusOK, `ok`, common.ErrMalformedResponse},
		{"bad gateway", http.StatusBadGateway, `{}`, common.ErrStageTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			u, err := NewHTTPUploader(srv.URL, 0, nil)
			require.NoError(t, err)
			_, err = u.Upload(context.Background(), "", "a.pdf", strings.NewReader("x"))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
