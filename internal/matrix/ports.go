package matrix

import (
	"context"

	"esgrec/internal/core"
)

// Ports for the data sources and sinks the engine reconciles between.
// Implemented by internal/storage (SQLite) and internal/storage/memory.
type (
	// AccountSource lists the active dimension entries for a company.
	AccountSource interface {
		ListAccounts(ctx context.Context, companyID int64) ([]core.Account, error)
	}

	// MatrixSource fetches the sparse fact matrix for one (company, year).
	MatrixSource interface {
		FetchMatrix(ctx context.Context, companyID int64, year int) (core.RecordMatrixResponse, error)
	}

	// RecordFinder looks up an existing per-month record by its natural key.
	RecordFinder interface {
		FindRecord(ctx context.Context, companyID int64, accountID core.AccountID, year, month int) (recordID int64, found bool, err error)
	}

	// RecordWriter performs the two halves of a per-month upsert.
	RecordWriter interface {
		CreateRecord(ctx context.Context, up core.RecordUpsert) error
		UpdateRecord(ctx context.Context, recordID int64, up core.RecordUpsert) error
	}

	// MatrixWriter persists a whole matrix in one call (the grid save button).
	MatrixWriter interface {
		SaveMatrix(ctx context.Context, req core.RecordMatrixRequest) error
	}
)
