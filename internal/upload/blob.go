package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"google.golang.org/api/googleapi"

	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

func init() {
	// Page counting must not create pdfcpu config files in the user's home.
	api.DisableConfigDir()
}

// ErrBlobExists is returned by a BlobStore when the key is already taken.
// Stores never overwrite.
var ErrBlobExists = errors.New("blob already exists")

// BlobStore persists document bytes under a new key and returns a reference the
// stage services can resolve.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// BlobUploader writes documents into a BlobStore under
// {uploadSessionID}/{uploadID}/{name}. Every upload reuses the session hint so
// one operator session maps to one folder, and gets its own upload id so
// duplicate names keep their own bytes. The chunk count is the PDF page count.
type BlobUploader struct {
	store  BlobStore
	logger *slog.Logger
}

func NewBlobUploader(store BlobStore, logger *slog.Logger) *BlobUploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobUploader{store: store, logger: logger}
}

func (u *BlobUploader) Upload(ctx context.Context, sessionHint, name string, r io.Reader) (entity.UploadReceipt, error) {
	if err := ValidateName(name); err != nil {
		return entity.UploadReceipt{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return entity.UploadReceipt{}, fmt.Errorf("read upload: %w", err)
	}

	sessionID := sessionHint
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ref, err := u.store.Put(ctx, BlobKey(sessionID, uuid.NewString(), name), data)
	if err != nil {
		u.logger.Error("upload.blob.put_error", "file", name, "upload_session_id", sessionID, "error", err)
		return entity.UploadReceipt{}, err
	}

	pages, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		u.logger.Warn("upload.blob.page_count_failed", "file", name, "error", err)
		pages = 0
	}
	u.logger.Info("upload.blob.ok", "file", name, "upload_session_id", sessionID, "bytes", len(data), "pages", pages)
	return entity.UploadReceipt{SessionID: sessionID, ChunkCount: pages, ContentRef: ref}, nil
}

// BlobKey joins the parts of an object key.
func BlobKey(sessionID, uploadID, name string) string {
	return sessionID + "/" + uploadID + "/" + name
}

// FSStore keeps blobs under a local directory.
type FSStore struct {
	Root string
}

func (s FSStore) Put(_ context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrBlobExists, key)
		}
		return "", fmt.Errorf("create blob: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close blob: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// GCSStore writes blobs to a bucket. Objects are never overwritten.
type GCSStore struct {
	Bucket *storage.BucketHandle
	Name   string
	Logger *slog.Logger
}

func NewGCSStore(client *storage.Client, bucket string, logger *slog.Logger) *GCSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSStore{Bucket: client.Bucket(bucket), Name: bucket, Logger: logger}
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	ref := fmt.Sprintf("gs://%s/%s", s.Name, key)
	w := s.Bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/pdf"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gcs object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		if preconditionFailed(err) {
			s.Logger.Warn("upload.gcs.exists", "object", key)
			return "", fmt.Errorf("%w: %s", ErrBlobExists, ref)
		}
		return "", fmt.Errorf("finalize gcs object %s: %w", key, err)
	}
	return ref, nil
}

func preconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
