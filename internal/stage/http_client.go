package stage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

// HTTPConfig locates the stage services over HTTP.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPClient calls the stage services' JSON endpoints.
type HTTPClient struct {
	cfg     HTTPConfig
	http    *http.Client
	schemas schemaCache
	logger  *slog.Logger
}

func NewHTTPClient(cfg HTTPConfig, logger *slog.Logger) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Extract implements Client. There is no retry.
func (c *HTTPClient) Extract(ctx context.Context, req Request) (entity.StageResult, error) {
	ep, ok := constants.EndpointFor(req.Stage)
	if !ok {
		return entity.StageResult{}, fmt.Errorf("%w: unknown stage %q", common.ErrInvalidInput, req.Stage)
	}
	schema, err := c.schemas.get(req.Stage, ep.ValueKey)
	if err != nil {
		return entity.StageResult{}, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + ep.Path
	raw, err := postStage(ctx, c.http, url, req.Stage, wireRequest{FileNames: req.FileNames, SessionID: req.SessionID}, c.logger)
	if err != nil {
		return entity.StageResult{}, err
	}

	res, err := ParseResults(req, ep.ValueKey, schema, raw)
	if err != nil {
		c.logger.Error("stage.http.decode_error", "stage", req.Stage, "error", err, "raw_bytes", len(raw))
		return entity.StageResult{}, err
	}
	c.logger.Info("stage.http.ok", "stage", req.Stage, "requested", len(req.FileNames), "answered", len(res.Values))
	return res, nil
}
