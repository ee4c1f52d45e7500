// Package storage implements the SQLite-backed account and record store.
// Records carry a copy of the account metadata at write time, so a matrix
// fetched after an account was removed still renders its orphan rows.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"esgrec/internal/core"

	_ "modernc.org/sqlite"
)

var ErrAccountNotFound = errors.New("account not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping verifies the database connection is still usable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListAccounts implements matrix.AccountSource. Only active accounts are
// part of the dimension list.
func (r *SQLiteRepository) ListAccounts(ctx context.Context, companyID int64) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, unit, style_name, is_use
		 FROM accounts
		 WHERE company_id = ? AND is_use = 1
		 ORDER BY id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Unit, &a.StyleName, &a.IsUse); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// GetAccount retrieves a single account by ID, active or not.
func (r *SQLiteRepository) GetAccount(ctx context.Context, companyID int64, id core.AccountID) (core.Account, error) {
	var a core.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, unit, style_name, is_use
		 FROM accounts WHERE company_id = ? AND id = ?`, companyID, id).
		Scan(&a.ID, &a.Name, &a.Unit, &a.StyleName, &a.IsUse)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// CreateAccount inserts a new dimension entry and returns it with its ID set.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, companyID int64, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (company_id, name, unit, style_name, is_use)
		 VALUES (?, ?, ?, ?, ?)`,
		companyID, a.Name, a.Unit, a.StyleName, a.IsUse)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID = core.AccountID(id)

	slog.InfoContext(ctx, "Account created",
		"account_id", a.ID,
		"account_name", a.Name,
		"company_id", companyID)

	return a, nil
}

// UpdateAccount overwrites the display metadata of an existing account.
func (r *SQLiteRepository) UpdateAccount(ctx context.Context, companyID int64, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET name = ?, unit = ?, style_name = ?, is_use = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE company_id = ? AND id = ?`,
		a.Name, a.Unit, a.StyleName, a.IsUse, companyID, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DeactivateAccount removes an account from the dimension list without
// touching its fact records. Records it leaves behind surface as orphan rows.
func (r *SQLiteRepository) DeactivateAccount(ctx context.Context, companyID int64, id core.AccountID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET is_use = 0, updated_at = CURRENT_TIMESTAMP
		 WHERE company_id = ? AND id = ?`, companyID, id)
	if err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}

	slog.InfoContext(ctx, "Account deactivated", "account_id", id, "company_id", companyID)
	return nil
}

// FetchMatrix implements matrix.MatrixSource. Each returned record carries
// twelve quantity slots; months never written stay nil.
func (r *SQLiteRepository) FetchMatrix(ctx context.Context, companyID int64, year int) (core.RecordMatrixResponse, error) {
	resp := core.RecordMatrixResponse{CompanyID: companyID, AccountYear: year}

	rows, err := r.db.QueryContext(ctx,
		`SELECT account_id, account_name, unit, style_caption, month, quantity
		 FROM records
		 WHERE company_id = ? AND account_year = ?
		 ORDER BY id`, companyID, year)
	if err != nil {
		return resp, fmt.Errorf("fetch matrix: %w", err)
	}
	defer rows.Close()

	index := make(map[core.AccountID]int)
	for rows.Next() {
		var (
			accountID    core.AccountID
			accountName  string
			unit         string
			styleCaption string
			month        int
			quantity     float64
		)
		if err := rows.Scan(&accountID, &accountName, &unit, &styleCaption, &month, &quantity); err != nil {
			return resp, fmt.Errorf("scan record: %w", err)
		}

		i, ok := index[accountID]
		if !ok {
			resp.Records = append(resp.Records, core.MonthlyRecord{
				AccountID:         accountID,
				AccountName:       accountName,
				Unit:              unit,
				StyleCaption:      styleCaption,
				MonthlyQuantities: make([]*float64, core.MonthsPerYear),
			})
			i = len(resp.Records) - 1
			index[accountID] = i
		}
		q := quantity
		resp.Records[i].MonthlyQuantities[month-1] = &q
	}
	if err := rows.Err(); err != nil {
		return resp, fmt.Errorf("fetch matrix: %w", err)
	}
	return resp, nil
}

// FindRecord implements matrix.RecordFinder.
func (r *SQLiteRepository) FindRecord(ctx context.Context, companyID int64, accountID core.AccountID, year, month int) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM records
		 WHERE company_id = ? AND account_id = ? AND account_year = ? AND month = ?`,
		companyID, accountID, year, month).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find record: %w", err)
	}
	return id, true, nil
}

// CreateRecord implements matrix.RecordWriter.
func (r *SQLiteRepository) CreateRecord(ctx context.Context, up core.RecordUpsert) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO records (company_id, account_id, account_name, unit, style_caption, account_year, month, quantity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		up.CompanyID, up.AccountID, up.AccountName, up.Unit, up.StyleCaption, up.Year, up.Month, up.Quantity)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	if err := r.appendHistory(ctx, r.db, up, &up.Quantity, "create"); err != nil {
		return err
	}
	return nil
}

// UpdateRecord implements matrix.RecordWriter.
func (r *SQLiteRepository) UpdateRecord(ctx context.Context, recordID int64, up core.RecordUpsert) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE records
		 SET quantity = ?, account_name = ?, unit = ?, style_caption = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		up.Quantity, up.AccountName, up.Unit, up.StyleCaption, recordID)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update record %d: no such record", recordID)
	}
	if err := r.appendHistory(ctx, r.db, up, &up.Quantity, "update"); err != nil {
		return err
	}
	return nil
}

// execer lets appendHistory run inside or outside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) appendHistory(ctx context.Context, ex execer, up core.RecordUpsert, quantity *float64, action string) error {
	var q any
	if quantity != nil {
		q = *quantity
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO record_history (company_id, account_id, account_year, month, quantity, action)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		up.CompanyID, up.AccountID, up.Year, up.Month, q, action)
	if err != nil {
		return fmt.Errorf("append record history: %w", err)
	}
	return nil
}

// SaveMatrix implements matrix.MatrixWriter: one transaction replacing the
// stored cells of every submitted row. Months present in the payload are
// upserted; months submitted as null are deleted, so a cleared cell goes
// back to "never measured" instead of lingering as a stored value.
func (r *SQLiteRepository) SaveMatrix(ctx context.Context, req core.RecordMatrixRequest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save matrix: %w", err)
	}
	defer tx.Rollback()

	upserted, cleared := 0, 0
	for _, rec := range req.Records {
		if rec.AccountID == 0 {
			return core.ErrInvalidAccountID
		}
		for m, quantity := range rec.MonthlyQuantities {
			if m >= core.MonthsPerYear {
				break
			}
			month := m + 1
			up := core.RecordUpsert{
				CompanyID:   req.CompanyID,
				AccountID:   rec.AccountID,
				AccountName: rec.AccountName,
				Year:        req.AccountYear,
				Month:       month,
			}

			if quantity == nil {
				res, err := tx.ExecContext(ctx,
					`DELETE FROM records
					 WHERE company_id = ? AND account_id = ? AND account_year = ? AND month = ?`,
					req.CompanyID, rec.AccountID, req.AccountYear, month)
				if err != nil {
					return fmt.Errorf("clear record: %w", err)
				}
				if n, _ := res.RowsAffected(); n > 0 {
					cleared++
					if err := r.appendHistory(ctx, tx, up, nil, "clear"); err != nil {
						return err
					}
				}
				continue
			}

			_, err := tx.ExecContext(ctx,
				`INSERT INTO records (company_id, account_id, account_name, account_year, month, quantity)
				 VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT (company_id, account_id, account_year, month)
				 DO UPDATE SET quantity = excluded.quantity,
				               account_name = excluded.account_name,
				               updated_at = CURRENT_TIMESTAMP`,
				req.CompanyID, rec.AccountID, rec.AccountName, req.AccountYear, month, *quantity)
			if err != nil {
				return fmt.Errorf("upsert record: %w", err)
			}
			upserted++
			if err := r.appendHistory(ctx, tx, up, quantity, "save"); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save matrix: %w", err)
	}

	slog.InfoContext(ctx, "Matrix saved",
		"company_id", req.CompanyID,
		"year", req.AccountYear,
		"rows", len(req.Records),
		"upserted", upserted,
		"cleared", cleared)

	return nil
}

// ListRecordHistory returns the audit trail for one account's year, newest
// first.
func (r *SQLiteRepository) ListRecordHistory(ctx context.Context, companyID int64, accountID core.AccountID, year int) ([]core.RecordHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, company_id, account_id, account_year, month, quantity, action, recorded_at
		 FROM record_history
		 WHERE company_id = ? AND account_id = ? AND account_year = ?
		 ORDER BY id DESC`, companyID, accountID, year)
	if err != nil {
		return nil, fmt.Errorf("list record history: %w", err)
	}
	defer rows.Close()

	var entries []core.RecordHistoryEntry
	for rows.Next() {
		var (
			e core.RecordHistoryEntry
			q sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.AccountID, &e.Year, &e.Month, &q, &e.Action, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if q.Valid {
			v := q.Float64
			e.Quantity = &v
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list record history: %w", err)
	}
	return entries, nil
}

// ReplaceAnnualSummaries swaps the stored per-account totals for one
// (company, year) with the given set.
func (r *SQLiteRepository) ReplaceAnnualSummaries(ctx context.Context, companyID int64, year int, summaries []core.AnnualSummary) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace summaries: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM annual_summaries WHERE company_id = ? AND account_year = ?`,
		companyID, year); err != nil {
		return fmt.Errorf("clear summaries: %w", err)
	}

	for _, s := range summaries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO annual_summaries (company_id, account_id, account_name, account_year, total)
			 VALUES (?, ?, ?, ?, ?)`,
			companyID, s.AccountID, s.AccountName, year, s.Total); err != nil {
			return fmt.Errorf("insert summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace summaries: %w", err)
	}
	return nil
}

// ListAnnualSummaries returns the stored per-account totals for one
// (company, year) in account order.
func (r *SQLiteRepository) ListAnnualSummaries(ctx context.Context, companyID int64, year int) ([]core.AnnualSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT company_id, account_id, account_name, account_year, total
		 FROM annual_summaries
		 WHERE company_id = ? AND account_year = ?
		 ORDER BY account_id`, companyID, year)
	if err != nil {
		return nil, fmt.Errorf("list annual summaries: %w", err)
	}
	defer rows.Close()

	var summaries []core.AnnualSummary
	for rows.Next() {
		var s core.AnnualSummary
		if err := rows.Scan(&s.CompanyID, &s.AccountID, &s.AccountName, &s.Year, &s.Total); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list annual summaries: %w", err)
	}
	return summaries, nil
}
