// Package bootstrap builds the collaborators both binaries share from a
// loaded configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/repository"
	"github.com/joseph-ayodele/filings-tracker/internal/stage"
	"github.com/joseph-ayodele/filings-tracker/internal/upload"
)

// InMemoryDSN is a private SQLite database that lives as long as the process.
const InMemoryDSN = "file:filings?mode=memory&cache=shared&_pragma=foreign_keys(1)"

// DBResult holds an open database and its cleanup.
type DBResult struct {
	DB      *repository.DB
	Cleanup func()
}

// InitDatabase opens the configured database, or an in-memory SQLite one
// when inmem is set.
func InitDatabase(ctx context.Context, cfg *common.Config, inmem bool, logger *slog.Logger) (*DBResult, error) {
	rc := repository.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}
	if inmem {
		rc.Driver, rc.DSN = "sqlite", InMemoryDSN
		logger.Info("using in-memory sqlite database")
	}
	db, err := repository.Open(ctx, rc, logger)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "open database", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	return &DBResult{DB: db, Cleanup: func() { repository.Close(db, logger) }}, nil
}

// NewStageClient returns the stage client for the configured transport and
// a cleanup for any connection it opened.
func NewStageClient(cfg *common.Config, logger *slog.Logger) (stage.Client, func(), error) {
	switch cfg.Stage.Transport {
	case "grpc":
		conn, err := grpc.NewClient(cfg.Stage.GRPCTarget, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, fmt.Errorf("dial stage services: %w", err)
		}
		cleanup := func() {
			if err := conn.Close(); err != nil {
				logger.Warn("stage.grpc.close_error", "error", err)
			}
		}
		logger.Info("stage transport ready", "transport", "grpc", "target", cfg.Stage.GRPCTarget)
		return stage.NewGRPCClient(conn, cfg.Stage.Timeout, logger), cleanup, nil
	default:
		logger.Info("stage transport ready", "transport", "http", "base_url", cfg.Stage.BaseURL)
		return stage.NewHTTPClient(stage.HTTPConfig{BaseURL: cfg.Stage.BaseURL, Timeout: cfg.Stage.Timeout}, logger), func() {}, nil
	}
}

// NewUploader returns the uploader for the configured backend and a cleanup.
func NewUploader(ctx context.Context, cfg *common.Config, logger *slog.Logger) (upload.Uploader, func(), error) {
	switch cfg.Upload.Backend {
	case "fs":
		logger.Info("upload backend ready", "backend", "fs", "dir", cfg.Upload.Dir)
		return upload.NewBlobUploader(upload.FSStore{Root: cfg.Upload.Dir}, logger), func() {}, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				logger.Warn("upload.gcs.close_error", "error", err)
			}
		}
		logger.Info("upload backend ready", "backend", "gcs", "bucket", cfg.Upload.Bucket)
		return upload.NewBlobUploader(upload.NewGCSStore(client, cfg.Upload.Bucket, logger), logger), cleanup, nil
	default:
		u, err := upload.NewHTTPUploader(cfg.Stage.BaseURL, cfg.Stage.Timeout, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("upload backend ready", "backend", "remote", "base_url", cfg.Stage.BaseURL)
		return u, func() {}, nil
	}
}
