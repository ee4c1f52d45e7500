package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"esgrec/internal/core"
)

// Loader produces the merged grid for one (company, year): it fetches the
// dimension list and the fact matrix concurrently, joins on both results,
// and falls back to an all-blank matrix when the fact source fails or is
// empty. Concurrent loads of the same scope are deduplicated.
type Loader struct {
	accounts AccountSource
	matrix   MatrixSource
	sf       singleflight.Group
}

func NewLoader(accounts AccountSource, matrix MatrixSource) *Loader {
	return &Loader{accounts: accounts, matrix: matrix}
}

// Load returns a fresh row set the caller owns exclusively. No reference to
// it is retained across calls.
func (l *Loader) Load(ctx context.Context, companyID int64, year int) ([]core.GridRow, error) {
	key := fmt.Sprintf("%d/%d", companyID, year)
	v, err, _ := l.sf.Do(key, func() (any, error) {
		return l.load(ctx, companyID, year)
	})
	if err != nil {
		return nil, err
	}
	// Deduplicated callers each get their own copy.
	return slices.Clone(v.([]core.GridRow)), nil
}

func (l *Loader) load(ctx context.Context, companyID int64, year int) ([]core.GridRow, error) {
	if companyID == 0 || year == 0 {
		return nil, ErrMissingScope
	}

	var (
		accounts []core.Account
		resp     core.RecordMatrixResponse
		fetchErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = l.accounts.ListAccounts(gctx, companyID)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// A fact-source failure is recovered with the empty fallback below,
		// so it must not cancel the dimension fetch.
		resp, fetchErr = l.matrix.FetchMatrix(gctx, companyID, year)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	if fetchErr != nil || len(resp.Records) == 0 {
		if fetchErr != nil {
			slog.WarnContext(ctx, "matrix fetch failed, rendering empty grid",
				"company_id", companyID, "year", year, "error", fetchErr)
		}
		empty, err := BuildEmpty(accounts, companyID, year)
		if err != nil {
			return nil, err
		}
		return Merge(accounts, empty.Records), nil
	}
	return Merge(accounts, resp.Records), nil
}
