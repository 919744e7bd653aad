package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
)

// RequestIDHeader carries the caller's request id to the stage services.
const RequestIDHeader = "X-Request-ID"

// postStage posts body as JSON to one stage endpoint and returns the raw
// response body. The operator request id travels in RequestIDHeader; a fresh
// one is minted when the context has none. Every failure, including a non-2xx
// status, wraps ErrStageTransport and names the stage.
func postStage(ctx context.Context, client *http.Client, url string, st constants.Stage, body wireRequest, logger *slog.Logger) ([]byte, error) {
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: encode json: %v", common.ErrStageTransport, st, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: build request: %v", common.ErrStageTransport, st, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	logger.Info("stage.http.request",
		"req_id", reqID,
		"stage", st,
		"url", url,
		"files", len(body.FileNames),
	)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("stage.http.send_error", "req_id", reqID, "stage", st, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: %s: %v", common.ErrStageTransport, st, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("stage.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("stage.http.read_error", "req_id", reqID, "stage", st, "error", err)
		return nil, fmt.Errorf("%w: %s: read body: %v", common.ErrStageTransport, st, err)
	}

	logger.Info("stage.http.response",
		"req_id", reqID,
		"stage", st,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: %s: status=%d", common.ErrStageTransport, st, resp.StatusCode)
	}
	return raw, nil
}
