package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"pledgeboard/internal/logging"
	"pledgeboard/internal/pledge"
)

// Engine runs ingestion: it reads a pledge file, normalizes each row,
// and reconciles the candidates against the store. Rows are processed
// sequentially in file order, so a later row carrying the same mobile
// number always wins and error indices stay stable.
type Engine struct {
	store pledge.Store
}

// NewEngine creates an engine bound to a persistence collaborator.
func NewEngine(store pledge.Store) *Engine {
	return &Engine{store: store}
}

// Run ingests one file and returns its report. A non-nil error means a
// structural failure (undecodable file, missing header, unresolvable
// required column, or a store outage before the first success); row
// failures are accumulated in the report instead.
//
// On context cancellation the partial report is returned alongside the
// context error: already-reconciled rows stay committed and the report
// accounts only for rows processed before the cancel.
func (e *Engine) Run(ctx context.Context, filename string, file io.Reader) (*RunReport, error) {
	logger := logging.WithFields(ctx, "filename", filename)
	logger.Debug("ingestion run", "phase", PhaseStarted)

	reader, err := OpenTable(filename, file)
	if err != nil {
		logger.Warn("ingestion run", "phase", PhaseFailed, "error", err)
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	defer reader.Close()
	logger.Debug("ingestion run", "phase", PhaseReading, "columns", len(reader.Headers()))

	cols, err := ResolveColumns(reader.Headers())
	if err != nil {
		logger.Warn("ingestion run", "phase", PhaseFailed, "error", err)
		return nil, fmt.Errorf("resolve columns in %s: %w", filename, err)
	}
	logger.Debug("ingestion run", "phase", PhaseReconciling)

	report := &RunReport{}
	for {
		if err := ctx.Err(); err != nil {
			logger.Info("ingestion run cancelled",
				"rows_seen", report.TotalRowsSeen,
				"created", report.CreatedCount,
				"updated", report.UpdatedCount,
			)
			return report, err
		}

		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("ingestion run", "phase", PhaseFailed, "error", err)
			return nil, fmt.Errorf("read %s: %w", filename, err)
		}

		report.TotalRowsSeen++

		cand, rowErr := NormalizeRow(row, cols)
		if rowErr != nil {
			report.rowErrored(row, rowErr.Reason)
			continue
		}

		created, err := e.reconcile(ctx, cand)
		if err != nil {
			// A store that cannot take writes before anything
			// succeeded is down, not degraded.
			if pledge.IsTransient(err) && report.CreatedCount+report.UpdatedCount == 0 {
				logger.Warn("ingestion run", "phase", PhaseFailed, "error", err)
				return nil, fmt.Errorf("pledge store unavailable: %w", err)
			}
			report.rowErrored(row, err.Error())
			continue
		}
		if created {
			report.rowCreated(cand.MobileNumber)
		} else {
			report.rowUpdated(cand.MobileNumber)
		}
	}

	logger.Info("ingestion run completed",
		"phase", PhaseCompleted,
		"rows_seen", report.TotalRowsSeen,
		"created", report.CreatedCount,
		"updated", report.UpdatedCount,
		"errors", report.ErrorCount,
	)
	return report, nil
}

// reconcile applies upsert policy for one candidate: create when the
// mobile number is unseen, otherwise merge into the existing record. A
// transiently failing read-modify-write is retried once.
func (e *Engine) reconcile(ctx context.Context, cand *Candidate) (created bool, err error) {
	created, err = e.upsert(ctx, cand)
	if err != nil && pledge.IsTransient(err) {
		created, err = e.upsert(ctx, cand)
	}
	return created, err
}

func (e *Engine) upsert(ctx context.Context, cand *Candidate) (bool, error) {
	existing, err := e.store.GetByMobile(ctx, cand.MobileNumber)
	if errors.Is(err, pledge.ErrNotFound) {
		rec := &pledge.Record{
			MobileNumber: cand.MobileNumber,
			Name:         cand.Name,
			Pledge:       cand.Pledge,
			Paid:         cand.Paid,
			Remaining:    cand.Remaining,
			CardCapacity: cand.CardCapacity,
		}
		return true, e.store.Insert(ctx, rec)
	}
	if err != nil {
		return false, err
	}

	// Merge: upload-owned fields are overwritten, message flags and
	// created_at stay untouched.
	existing.Name = cand.Name
	existing.Pledge = cand.Pledge
	existing.Paid = cand.Paid
	existing.Remaining = cand.Remaining
	existing.CardCapacity = cand.CardCapacity
	return false, e.store.Update(ctx, existing)
}
