// Package pipeline runs the three extraction stages for a session's selection
// and joins their answers into combined records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
	"github.com/joseph-ayodele/filings-tracker/internal/session"
	"github.com/joseph-ayodele/filings-tracker/internal/stage"
)

// RecordStore is the persistence side of the export gateway.
type RecordStore interface {
	Save(ctx context.Context, sessionID string, records []entity.CombinedRecord) error
}

// Outcome describes what one RunQuery call did.
type Outcome struct {
	Token   uint64
	Records []entity.CombinedRecord
	// Skipped is set when the preconditions did not hold and nothing ran.
	Skipped bool
	// Stale is set when a newer attempt started before this one settled;
	// its records were discarded.
	Stale bool
}

type Orchestrator struct {
	client stage.Client
	store  RecordStore
	logger *slog.Logger
}

func NewOrchestrator(client stage.Client, store RecordStore, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{client: client, store: store, logger: logger}
}

// RunQuery dispatches the filing-date, category and fine-amount stages
// concurrently over the session's current selection and waits for all of
// them. Any stage failure fails the whole attempt and no records are kept.
func (o *Orchestrator) RunQuery(ctx context.Context, sess *session.Session) (Outcome, error) {
	ticket, ok, err := sess.BeginQuery()
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		o.logger.Info("pipeline.query.skipped", "session_id", sess.ID())
		return Outcome{Skipped: true}, nil
	}

	log := o.logger.With("session_id", sess.ID(), "token", ticket.Token)
	log.Info("pipeline.query.start", "documents", len(ticket.SelectedIDs))
	start := time.Now()

	results, err := o.fanOut(ctx, ticket)
	if err != nil {
		log.Error("pipeline.query.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		stale := !sess.FailQuery(ticket.Token, err)
		return Outcome{Token: ticket.Token, Stale: stale}, err
	}

	records := Correlate(
		results[constants.StageFilingDate],
		results[constants.StageCategory],
		results[constants.StageFineAmount],
		ticket.SelectedIDs,
	)
	if !sess.CompleteQuery(ticket.Token, records) {
		log.Info("pipeline.query.discarded", "elapsed_ms", time.Since(start).Milliseconds())
		return Outcome{Token: ticket.Token, Stale: true}, nil
	}
	log.Info("pipeline.query.ok", "records", len(records), "elapsed_ms", time.Since(start).Milliseconds())
	return Outcome{Token: ticket.Token, Records: records}, nil
}

func (o *Orchestrator) fanOut(ctx context.Context, ticket session.QueryTicket) (map[constants.Stage]entity.StageResult, error) {
	out := make([]entity.StageResult, len(constants.AllStages))
	g, gctx := errgroup.WithContext(ctx)
	for i, st := range constants.AllStages {
		g.Go(func() error {
			res, err := o.client.Extract(gctx, stage.Request{
				Stage:     st,
				SessionID: ticket.SessionID,
				FileNames: ticket.SelectedIDs,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", st, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byStage := make(map[constants.Stage]entity.StageResult, len(out))
	for i, st := range constants.AllStages {
		byStage[st] = out[i]
	}
	return byStage, nil
}

// Store hands the session's records to the record store. It returns
// common.ErrStoreEmpty without calling the store when there is nothing to
// save. A store failure leaves the records in place for a retry.
func (o *Orchestrator) Store(ctx context.Context, sess *session.Session) error {
	if o.store == nil {
		return common.NewAppError("STORE_UNAVAILABLE", "no record store configured", common.ErrInternal)
	}
	records, err := sess.BeginStore()
	if err != nil {
		return err
	}

	saveErr := o.store.Save(ctx, sess.ID(), records)
	if saveErr != nil {
		o.logger.Error("pipeline.store.failed", "session_id", sess.ID(), "records", len(records), "error", saveErr)
		saveErr = fmt.Errorf("store records: %w", saveErr)
	} else {
		o.logger.Info("pipeline.store.ok", "session_id", sess.ID(), "records", len(records))
	}
	if err := sess.FinishStore(saveErr); err != nil {
		return errors.Join(saveErr, err)
	}
	return saveErr
}
