// Package backend selects and constructs the record store implementation.
package backend

import (
	"context"

	"esgrec/internal/core"
)

// Store is the full persistence surface the engine needs. Both the SQLite
// repository and the in-memory store implement it.
type Store interface {
	// Connectivity, for readiness probes.
	Ping(ctx context.Context) error

	// Dimension list.
	ListAccounts(ctx context.Context, companyID int64) ([]core.Account, error)
	GetAccount(ctx context.Context, companyID int64, id core.AccountID) (core.Account, error)
	CreateAccount(ctx context.Context, companyID int64, a core.Account) (core.Account, error)
	UpdateAccount(ctx context.Context, companyID int64, a core.Account) error
	DeactivateAccount(ctx context.Context, companyID int64, id core.AccountID) error

	// Fact records.
	FetchMatrix(ctx context.Context, companyID int64, year int) (core.RecordMatrixResponse, error)
	FindRecord(ctx context.Context, companyID int64, accountID core.AccountID, year, month int) (int64, bool, error)
	CreateRecord(ctx context.Context, up core.RecordUpsert) error
	UpdateRecord(ctx context.Context, recordID int64, up core.RecordUpsert) error
	SaveMatrix(ctx context.Context, req core.RecordMatrixRequest) error
	ListRecordHistory(ctx context.Context, companyID int64, accountID core.AccountID, year int) ([]core.RecordHistoryEntry, error)

	// Derived artifacts.
	ReplaceAnnualSummaries(ctx context.Context, companyID int64, year int, summaries []core.AnnualSummary) error
	ListAnnualSummaries(ctx context.Context, companyID int64, year int) ([]core.AnnualSummary, error)
}

// CleanupFunc releases resources held by a store.
type CleanupFunc func() error

// Result contains the store instance and optional cleanup function.
type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// Type names a store implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
