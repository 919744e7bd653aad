package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
	"github.com/joseph-ayodele/filings-tracker/internal/stage"
)

var receiptSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"request_id": map[string]any{"type": "string", "minLength": 1},
		"chunks":     map[string]any{"type": "integer", "minimum": 0},
	},
	"required": []string{"request_id"},
}

// HTTPUploader posts each file as multipart form field "file" to
// {BaseURL}/upload. The remote side picks the upload session id.
type HTTPUploader struct {
	baseURL string
	http    *http.Client
	schema  *jsonschema.Schema
	logger  *slog.Logger
}

func NewHTTPUploader(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTPUploader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	schema, err := stage.CompileSchema(receiptSchema)
	if err != nil {
		return nil, err
	}
	return &HTTPUploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		schema:  schema,
		logger:  logger,
	}, nil
}

func (u *HTTPUploader) Upload(ctx context.Context, _ string, name string, r io.Reader) (entity.UploadReceipt, error) {
	if err := ValidateName(name); err != nil {
		return entity.UploadReceipt{}, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return entity.UploadReceipt{}, fmt.Errorf("create form file: %w", err)
	}
	size, err := io.Copy(part, r)
	if err != nil {
		return entity.UploadReceipt{}, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return entity.UploadReceipt{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/upload", &body)
	if err != nil {
		return entity.UploadReceipt{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := u.http.Do(req)
	if err != nil {
		u.logger.Error("upload.http.send_error", "file", name, "error", err)
		return entity.UploadReceipt{}, fmt.Errorf("%w: upload %s: %v", common.ErrStageTransport, name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return entity.UploadReceipt{}, fmt.Errorf("%w: read upload response: %v", common.ErrStageTransport, err)
	}
	if resp.StatusCode/100 != 2 {
		u.logger.Error("upload.http.status", "file", name, "status", resp.StatusCode)
		return entity.UploadReceipt{}, fmt.Errorf("%w: upload %s: status %d", common.ErrStageTransport, name, resp.StatusCode)
	}
	if err := stage.ValidateJSON(u.schema, raw); err != nil {
		return entity.UploadReceipt{}, fmt.Errorf("%w: upload %s: %v", common.ErrMalformedResponse, name, err)
	}

	var rec entity.UploadReceipt
	if err := json.Unmarshal(raw, &rec); err != nil {
		return entity.UploadReceipt{}, fmt.Errorf("%w: upload %s: %v", common.ErrMalformedResponse, name, err)
	}
	u.logger.Info("upload.http.ok",
		"file", name,
		"bytes", size,
		"request_id", rec.SessionID,
		"chunks", rec.ChunkCount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}
