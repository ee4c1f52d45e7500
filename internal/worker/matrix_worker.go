// Package worker consumes matrix-saved messages and maintains the derived
// artifacts: per-account annual summaries and the external grid mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"esgrec/internal/amqp"
	"esgrec/internal/core"
	"esgrec/internal/matrix"
	"esgrec/internal/mirror"
)

// SummaryStore persists the per-account annual totals.
type SummaryStore interface {
	ReplaceAnnualSummaries(ctx context.Context, companyID int64, year int, summaries []core.AnnualSummary) error
}

// MatrixWorker refetches the saved matrix from the store and derives the
// summaries and mirror sheet from it. Messages carry only the scope, so
// processing is idempotent and duplicate deliveries are harmless.
type MatrixWorker struct {
	loader    *matrix.Loader
	summaries SummaryStore
	mirror    mirror.GridMirror
}

func NewMatrixWorker(accounts matrix.AccountSource, source matrix.MatrixSource, summaries SummaryStore, m mirror.GridMirror) *MatrixWorker {
	return &MatrixWorker{
		loader:    matrix.NewLoader(accounts, source),
		summaries: summaries,
		mirror:    m,
	}
}

// HandleMatrixSaved processes a single matrix-saved message.
func (w *MatrixWorker) HandleMatrixSaved(ctx context.Context, msg *amqp.MatrixSavedMessage) error {
	slog.InfoContext(ctx, "Processing matrix saved message",
		"company_id", msg.CompanyID,
		"year", msg.Year)

	rows, err := w.loader.Load(ctx, msg.CompanyID, msg.Year)
	if errors.Is(err, matrix.ErrNoAccounts) {
		// Nothing to summarize; requeueing would loop forever.
		slog.WarnContext(ctx, "No accounts for saved matrix, skipping",
			"company_id", msg.CompanyID, "year", msg.Year)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load matrix: %w", err)
	}

	summaries := Summarize(rows)
	if err := w.summaries.ReplaceAnnualSummaries(ctx, msg.CompanyID, msg.Year, summaries); err != nil {
		return fmt.Errorf("replace annual summaries: %w", err)
	}

	if w.mirror != nil {
		if err := w.mirror.PublishGrid(ctx, msg.CompanyID, msg.Year, rows); err != nil {
			// The message is requeued; summaries were replaced idempotently.
			return fmt.Errorf("publish grid mirror: %w", err)
		}
	}

	slog.InfoContext(ctx, "Matrix derivations updated",
		"company_id", msg.CompanyID,
		"year", msg.Year,
		"accounts", len(summaries))

	return nil
}

// Summarize computes exact per-row annual totals. The grid's float64 totals
// are fine for display, but the stored summary is accounting data, so each
// cell goes through decimal arithmetic and the result is kept as a string.
func Summarize(rows []core.GridRow) []core.AnnualSummary {
	summaries := make([]core.AnnualSummary, 0, len(rows))
	for _, row := range rows {
		total := decimal.Zero
		for _, cell := range row.Months {
			if cell.Valid {
				total = total.Add(decimal.NewFromFloat(cell.Value))
			}
		}
		summaries = append(summaries, core.AnnualSummary{
			AccountID:   row.AccountID,
			AccountName: row.AccountName,
			Total:       total.String(),
		})
	}
	return summaries
}
