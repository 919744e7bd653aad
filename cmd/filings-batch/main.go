package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/async"
	"github.com/joseph-ayodele/filings-tracker/internal/bootstrap"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
	"github.com/joseph-ayodele/filings-tracker/internal/export"
	"github.com/joseph-ayodele/filings-tracker/internal/pipeline"
	"github.com/joseph-ayodele/filings-tracker/internal/repository"
	"github.com/joseph-ayodele/filings-tracker/internal/session"
	"github.com/joseph-ayodele/filings-tracker/internal/upload"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type uploaded struct {
	doc     entity.Document
	receipt entity.UploadReceipt
	err     error
}

func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir     = flag.String("dir", "", "directory of filing PDFs to process (required)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		workers = flag.Int("workers", 4, "concurrent uploads")
		noStore = flag.Bool("no-store", false, "skip persisting records; export only this run")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), constants.ExportFileName)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	dbResult, err := bootstrap.InitDatabase(ctx, cfg, *inmem, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbResult.Cleanup()

	stages, closeStages, err := bootstrap.NewStageClient(cfg, logger)
	if err != nil {
		logger.Error("failed to create stage client", "error", err)
		os.Exit(1)
	}
	defer closeStages()

	uploader, closeUploader, err := bootstrap.NewUploader(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create uploader", "error", err)
		os.Exit(1)
	}
	defer closeUploader()

	names, err := listDocuments(*dir)
	if err != nil {
		logger.Error("failed to read directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		logger.Warn("no PDF files found", "dir", *dir)
		os.Exit(0)
	}

	sess := session.New(uuid.NewString(), logger)
	if err := sess.BeginUpload(); err != nil {
		logger.Error("failed to begin upload", "error", err)
		os.Exit(1)
	}
	results := uploadAll(ctx, uploader, *dir, names, *workers, cfg.Stage.Timeout, logger)

	failures := 0
	for _, r := range results {
		if r.err != nil {
			logger.Error("upload failed", "file", r.doc.ID, "error", r.err)
			failures++
			continue
		}
		if err := sess.RegisterUpload(r.doc, r.receipt); err != nil {
			logger.Error("failed to register upload", "file", r.doc.ID, "error", err)
			failures++
		}
	}
	if err := sess.FinishUpload(nil); err != nil {
		logger.Error("no documents uploaded", "error", err)
		os.Exit(1)
	}

	records := repository.NewRecordRepository(dbResult.DB, logger)
	orch := pipeline.NewOrchestrator(stages, records, logger)

	sess.SelectAll()
	outcome, err := orch.RunQuery(ctx, sess)
	if err != nil {
		logger.Error("query failed", "error", err)
		os.Exit(1)
	}
	if outcome.Skipped {
		logger.Error("query skipped: nothing uploaded successfully")
		os.Exit(1)
	}

	var lister export.RecordLister = records
	if *noStore {
		lister = sessionRecords{sess}
	} else if err := orch.Store(ctx, sess); err != nil {
		logger.Error("failed to store records", "error", err)
		os.Exit(1)
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := export.NewService(lister, logger).WorkbookXLSX(ctx)
	if err != nil {
		logger.Error("failed to export records", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files", len(names),
		"records", len(outcome.Records),
		"upload_failures", failures,
		"output", *out,
	)
}

// listDocuments returns the uploadable files directly inside dir, sorted.
func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || upload.ValidateName(e.Name()) != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// uploadAll uploads the first file alone so its upload session id can be
// passed to the rest, then fans the remainder out over a worker pool.
// Results keep the order of names.
func uploadAll(ctx context.Context, up upload.Uploader, dir string, names []string, workers int, timeout time.Duration, logger *slog.Logger) []uploaded {
	results := make([]uploaded, len(names))
	uploadOne := func(ctx context.Context, i int, hint string) {
		results[i] = uploadFile(ctx, up, dir, names[i], hint)
	}

	uploadOne(ctx, 0, "")
	hint := results[0].receipt.SessionID

	pool := async.NewPool(logger, async.WithWorkers(workers), async.WithJobTimeout(timeout))
	var wg sync.WaitGroup
	for i := 1; i < len(names); i++ {
		wg.Add(1)
		err := pool.Enqueue(ctx, async.Job{
			Name: names[i],
			Run: func(ctx context.Context) error {
				defer wg.Done()
				uploadOne(ctx, i, hint)
				return results[i].err
			},
		})
		if err != nil {
			wg.Done()
			results[i] = uploaded{doc: entity.Document{ID: names[i]}, err: err}
		}
	}
	wg.Wait()
	pool.Shutdown(ctx)
	return results
}

func uploadFile(ctx context.Context, up upload.Uploader, dir, name, hint string) uploaded {
	doc := entity.Document{ID: name}
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return uploaded{doc: doc, err: err}
	}
	defer func() { _ = f.Close() }()

	if info, err := f.Stat(); err == nil {
		doc.Size = info.Size()
	}
	receipt, err := up.Upload(ctx, hint, name, f)
	if err != nil {
		return uploaded{doc: doc, err: err}
	}
	doc.ContentRef = receipt.ContentRef
	doc.UploadedAt = time.Now().UTC()
	return uploaded{doc: doc, receipt: receipt}
}

// sessionRecords exposes a session's current records to the exporter.
type sessionRecords struct{ sess *session.Session }

func (s sessionRecords) List(context.Context) ([]entity.StoredRecord, error) {
	snap := s.sess.Snapshot()
	out := make([]entity.StoredRecord, len(snap.Records))
	for i, r := range snap.Records {
		out[i] = entity.StoredRecord{CombinedRecord: r, SessionID: snap.ID}
	}
	return out, nil
}
