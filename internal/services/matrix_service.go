package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"esgrec/internal/core"
	"esgrec/internal/matrix"
)

// ErrSaveInFlight is returned when a save is requested while another save is
// still running. Overlapping saves can race the per-month check-then-write
// into duplicate records, so only one may run at a time.
var ErrSaveInFlight = errors.New("a matrix save is already in flight")

// Publisher announces persisted matrices to the worker queue.
type Publisher interface {
	PublishMatrixSaved(ctx context.Context, companyID int64, year int) error
}

// MatrixService orchestrates grid loads and saves across the cached sources,
// the record store and AMQP.
type MatrixService struct {
	loader    *matrix.Loader
	saver     *matrix.Saver
	bulk      matrix.MatrixWriter
	accounts  *matrix.CachedAccounts
	matrixSrc *matrix.CachedMatrix
	publisher Publisher

	saving atomic.Bool
}

func NewMatrixService(
	accounts *matrix.CachedAccounts,
	matrixSrc *matrix.CachedMatrix,
	saver *matrix.Saver,
	bulk matrix.MatrixWriter,
	publisher Publisher,
) *MatrixService {
	return &MatrixService{
		loader:    matrix.NewLoader(accounts, matrixSrc),
		saver:     saver,
		bulk:      bulk,
		accounts:  accounts,
		matrixSrc: matrixSrc,
		publisher: publisher,
	}
}

// Grid returns the merged dense grid for one (company, year).
func (s *MatrixService) Grid(ctx context.Context, companyID int64, year int) ([]core.GridRow, error) {
	return s.loader.Load(ctx, companyID, year)
}

// SaveCells persists the non-blank cells of the given rows as per-month
// upserts. Succeeded writes stay in place even when others fail; the
// returned *matrix.PartialSaveError tells the caller to refetch.
func (s *MatrixService) SaveCells(ctx context.Context, companyID int64, year int, rows []core.GridRow) error {
	if !s.saving.CompareAndSwap(false, true) {
		return ErrSaveInFlight
	}
	defer s.saving.Store(false)

	err := s.saver.Save(ctx, companyID, year, rows)
	// Even a partial save changed server state, so the cache is stale.
	s.matrixSrc.Invalidate(companyID, year)
	if err != nil {
		return err
	}

	s.publishSaved(ctx, companyID, year)
	return nil
}

// SaveMatrix persists the whole grid in one transactional call. Blank cells
// are submitted as explicit nulls, clearing whatever the store held for them.
func (s *MatrixService) SaveMatrix(ctx context.Context, companyID int64, year int, rows []core.GridRow) error {
	if !s.saving.CompareAndSwap(false, true) {
		return ErrSaveInFlight
	}
	defer s.saving.Store(false)

	if companyID == 0 || year == 0 {
		return matrix.ErrMissingScope
	}

	req, err := matrix.ToMatrixPayload(companyID, year, rows)
	if err != nil {
		return err
	}
	if err := s.bulk.SaveMatrix(ctx, req); err != nil {
		return fmt.Errorf("save matrix: %w", err)
	}
	s.matrixSrc.Invalidate(companyID, year)

	s.publishSaved(ctx, companyID, year)
	return nil
}

// publishSaved notifies the worker queue. The matrix is already persisted, so
// a publish failure is logged and swallowed rather than failing the request.
func (s *MatrixService) publishSaved(ctx context.Context, companyID int64, year int) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping matrix saved message")
		return
	}
	if err := s.publisher.PublishMatrixSaved(ctx, companyID, year); err != nil {
		slog.ErrorContext(ctx, "Failed to publish matrix saved message",
			"company_id", companyID, "year", year, "error", err)
	}
}
