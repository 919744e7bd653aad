package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

// storedAtLayout is fixed width so the text column sorts chronologically.
const storedAtLayout = "2006-01-02T15:04:05.000000000Z"

type RecordRepository interface {
	// Save appends records for sessionID in one transaction.
	Save(ctx context.Context, sessionID string, records []entity.CombinedRecord) error
	// List returns every stored record, oldest save first and in the order
	// each save received them.
	List(ctx context.Context) ([]entity.StoredRecord, error)
}

type recordRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewRecordRepository(db *DB, logger *slog.Logger) RecordRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &recordRepository{db: db, logger: logger, now: time.Now}
}

func (r *recordRepository) Save(ctx context.Context, sessionID string, records []entity.CombinedRecord) error {
	if len(records) == 0 {
		return common.ErrStoreEmpty
	}
	storedAt := r.now().UTC().Format(storedAtLayout)

	ins := entsql.Dialect(r.db.Dialect()).
		Insert(recordsTable).
		Columns("id", "session_id", "position", "document_id", "filer_code",
			"filing_date", "category", "fined_amount", "upload_date", "stored_at")
	for i, rec := range records {
		ins.Values(uuid.NewString(), sessionID, i, rec.DocumentID, rec.FilerCode,
			rec.FilingDate, rec.Category, rec.FinedAmount, rec.UploadDate, storedAt)
	}
	query, args := ins.Query()

	tx, err := r.db.Driver.Tx(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", common.ErrDatabase, err)
	}
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		_ = tx.Rollback()
		r.logger.Error("records.save.failed", "session_id", sessionID, "records", len(records), "error", err)
		return fmt.Errorf("%w: insert records: %v", common.ErrDatabase, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	r.logger.Info("records.save.ok", "session_id", sessionID, "records", len(records))
	return nil
}

func (r *recordRepository) List(ctx context.Context) ([]entity.StoredRecord, error) {
	query, args := entsql.Dialect(r.db.Dialect()).
		Select("id", "session_id", "document_id", "filer_code",
			"filing_date", "category", "fined_amount", "upload_date", "stored_at").
		From(entsql.Table(recordsTable)).
		OrderBy("stored_at", "position").
		Query()

	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("%w: list records: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.StoredRecord
	for rows.Next() {
		var rec entity.StoredRecord
		var storedAt string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.DocumentID, &rec.FilerCode,
			&rec.FilingDate, &rec.Category, &rec.FinedAmount, &rec.UploadDate, &storedAt); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", common.ErrDatabase, err)
		}
		if ts, err := time.Parse(storedAtLayout, storedAt); err == nil {
			rec.StoredAt = ts
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %v", common.ErrDatabase, err)
	}
	return out, nil
}
