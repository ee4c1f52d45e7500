package matrix

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"esgrec/internal/core"
)

const defaultSaveConcurrency = 8

// ErrMissingScope reports a save or load without a (company, year) scope.
var ErrMissingScope = errors.New("company id and year are required")

// PartialSaveError reports that some per-month writes failed after all
// in-flight operations settled. Writes that succeeded are not rolled back;
// the caller must refetch so the grid reflects actual server state.
type PartialSaveError struct {
	Attempted int
	Failed    []error
}

func (e *PartialSaveError) Error() string {
	return fmt.Sprintf("%d of %d month writes failed: %v", len(e.Failed), e.Attempted, e.Failed[0])
}

func (e *PartialSaveError) Unwrap() []error { return e.Failed }

// Saver decomposes edited grid rows into per-month upserts and issues them
// concurrently against the record store.
//
// Each month's check-then-write is not atomic, so two overlapping Save calls
// on the same (account, month) can race into a duplicate create. Callers must
// not run overlapping saves; services.MatrixService enforces that.
type Saver struct {
	finder RecordFinder
	writer RecordWriter
	limit  int
}

// NewSaver returns a Saver with the given write concurrency limit
// (<= 0 selects the default).
func NewSaver(finder RecordFinder, writer RecordWriter, limit int) *Saver {
	if limit <= 0 {
		limit = defaultSaveConcurrency
	}
	return &Saver{finder: finder, writer: writer, limit: limit}
}

type monthWrite struct {
	row      core.GridRow
	month    int
	quantity float64
}

// Save persists every non-blank cell of the given rows. Rows left entirely
// blank are skipped so an untouched grid never manufactures zero-records.
// All candidate writes run concurrently; Save waits for every one to settle
// and reports the failures, if any, as a single *PartialSaveError.
func (s *Saver) Save(ctx context.Context, companyID int64, year int, rows []core.GridRow) error {
	if companyID == 0 || year == 0 {
		return ErrMissingScope
	}

	var writes []monthWrite
	for i, row := range rows {
		blank := true
		for _, c := range row.Months {
			if c.Valid {
				blank = false
				break
			}
		}
		if blank {
			continue
		}
		if row.AccountID == 0 {
			return fmt.Errorf("row %d: %w", i, core.ErrInvalidAccountID)
		}
		for m := 1; m <= core.MonthsPerYear; m++ {
			if cell := row.Months[m-1]; cell.Valid {
				writes = append(writes, monthWrite{row: row, month: m, quantity: cell.Value})
			}
		}
	}
	if len(writes) == 0 {
		return nil
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []error
	)
	g.SetLimit(s.limit)
	for _, w := range writes {
		g.Go(func() error {
			if err := s.upsertMonth(ctx, companyID, year, w); err != nil {
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // every write settles before we report anything

	if len(failed) > 0 {
		return &PartialSaveError{Attempted: len(writes), Failed: failed}
	}
	return nil
}

func (s *Saver) upsertMonth(ctx context.Context, companyID int64, year int, w monthWrite) error {
	id, found, err := s.finder.FindRecord(ctx, companyID, w.row.AccountID, year, w.month)
	if err != nil {
		return fmt.Errorf("find record account=%d month=%d: %w", w.row.AccountID, w.month, err)
	}
	up := core.RecordUpsert{
		CompanyID:    companyID,
		AccountID:    w.row.AccountID,
		AccountName:  w.row.AccountName,
		Unit:         w.row.Unit,
		StyleCaption: w.row.StyleName,
		Year:         year,
		Month:        w.month,
		Quantity:     w.quantity,
	}
	if found {
		if err := s.writer.UpdateRecord(ctx, id, up); err != nil {
			return fmt.Errorf("update record %d: %w", id, err)
		}
		return nil
	}
	if err := s.writer.CreateRecord(ctx, up); err != nil {
		return fmt.Errorf("create record account=%d month=%d: %w", w.row.AccountID, w.month, err)
	}
	return nil
}
