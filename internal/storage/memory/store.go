// Package memory holds an in-memory store implementing the same ports as the
// SQLite repository. It backs the memory data backend and the handler tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"esgrec/internal/core"
	"esgrec/internal/storage"
)

type recordKey struct {
	companyID int64
	accountID core.AccountID
	year      int
	month     int
}

type storedRecord struct {
	id       int64
	up       core.RecordUpsert
	quantity float64
}

type summaryKey struct {
	companyID int64
	year      int
}

type Store struct {
	mu        sync.Mutex
	nextID    int64
	accounts  map[int64][]core.Account // keyed by company
	records   map[recordKey]*storedRecord
	history   []core.RecordHistoryEntry
	summaries map[summaryKey][]core.AnnualSummary
}

func NewStore() *Store {
	return &Store{
		nextID:    1,
		accounts:  make(map[int64][]core.Account),
		records:   make(map[recordKey]*storedRecord),
		summaries: make(map[summaryKey][]core.AnnualSummary),
	}
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) ListAccounts(_ context.Context, companyID int64) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []core.Account
	for _, a := range s.accounts[companyID] {
		if a.IsUse {
			active = append(active, a)
		}
	}
	return active, nil
}

func (s *Store) GetAccount(_ context.Context, companyID int64, id core.AccountID) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts[companyID] {
		if a.ID == id {
			return a, nil
		}
	}
	return core.Account{}, storage.ErrAccountNotFound
}

func (s *Store) CreateAccount(_ context.Context, companyID int64, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = core.AccountID(s.allocID())
	s.accounts[companyID] = append(s.accounts[companyID], a)
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, companyID int64, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.accounts[companyID] {
		if existing.ID == a.ID {
			s.accounts[companyID][i] = a
			return nil
		}
	}
	return storage.ErrAccountNotFound
}

func (s *Store) DeactivateAccount(_ context.Context, companyID int64, id core.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.accounts[companyID] {
		if existing.ID == id {
			s.accounts[companyID][i].IsUse = false
			return nil
		}
	}
	return storage.ErrAccountNotFound
}

func (s *Store) FetchMatrix(_ context.Context, companyID int64, year int) (core.RecordMatrixResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := core.RecordMatrixResponse{CompanyID: companyID, AccountYear: year}

	// Stable order: by first write, like an id-ordered scan.
	var found []*storedRecord
	for key, rec := range s.records {
		if key.companyID == companyID && key.year == year {
			found = append(found, rec)
		}
	}
	slices.SortFunc(found, func(a, b *storedRecord) int {
		return int(a.id - b.id)
	})

	index := make(map[core.AccountID]int)
	for _, rec := range found {
		i, ok := index[rec.up.AccountID]
		if !ok {
			resp.Records = append(resp.Records, core.MonthlyRecord{
				AccountID:         rec.up.AccountID,
				AccountName:       rec.up.AccountName,
				Unit:              rec.up.Unit,
				StyleCaption:      rec.up.StyleCaption,
				MonthlyQuantities: make([]*float64, core.MonthsPerYear),
			})
			i = len(resp.Records) - 1
			index[rec.up.AccountID] = i
		}
		q := rec.quantity
		resp.Records[i].MonthlyQuantities[rec.up.Month-1] = &q
	}
	return resp, nil
}

func (s *Store) FindRecord(_ context.Context, companyID int64, accountID core.AccountID, year, month int) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[recordKey{companyID, accountID, year, month}]; ok {
		return rec.id, true, nil
	}
	return 0, false, nil
}

func (s *Store) CreateRecord(_ context.Context, up core.RecordUpsert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{up.CompanyID, up.AccountID, up.Year, up.Month}
	if _, exists := s.records[key]; exists {
		return fmt.Errorf("record already exists for account %d month %d", up.AccountID, up.Month)
	}
	s.records[key] = &storedRecord{id: s.allocID(), up: up, quantity: up.Quantity}
	s.appendHistoryLocked(up, &up.Quantity, "create")
	return nil
}

func (s *Store) UpdateRecord(_ context.Context, recordID int64, up core.RecordUpsert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.id == recordID {
			rec.up = up
			rec.quantity = up.Quantity
			s.appendHistoryLocked(up, &up.Quantity, "update")
			return nil
		}
	}
	return fmt.Errorf("update record %d: no such record", recordID)
}

func (s *Store) SaveMatrix(_ context.Context, req core.RecordMatrixRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range req.Records {
		if rec.AccountID == 0 {
			return core.ErrInvalidAccountID
		}
		for m, quantity := range rec.MonthlyQuantities {
			if m >= core.MonthsPerYear {
				break
			}
			month := m + 1
			key := recordKey{req.CompanyID, rec.AccountID, req.AccountYear, month}
			up := core.RecordUpsert{
				CompanyID:   req.CompanyID,
				AccountID:   rec.AccountID,
				AccountName: rec.AccountName,
				Year:        req.AccountYear,
				Month:       month,
			}

			if quantity == nil {
				if _, exists := s.records[key]; exists {
					delete(s.records, key)
					s.appendHistoryLocked(up, nil, "clear")
				}
				continue
			}

			up.Quantity = *quantity
			if existing, exists := s.records[key]; exists {
				existing.up = up
				existing.quantity = *quantity
			} else {
				s.records[key] = &storedRecord{id: s.allocID(), up: up, quantity: *quantity}
			}
			s.appendHistoryLocked(up, quantity, "save")
		}
	}
	return nil
}

func (s *Store) appendHistoryLocked(up core.RecordUpsert, quantity *float64, action string) {
	var q *float64
	if quantity != nil {
		v := *quantity
		q = &v
	}
	s.history = append(s.history, core.RecordHistoryEntry{
		ID:         s.allocID(),
		CompanyID:  up.CompanyID,
		AccountID:  up.AccountID,
		Year:       up.Year,
		Month:      up.Month,
		Quantity:   q,
		Action:     action,
		RecordedAt: time.Now(),
	})
}

func (s *Store) ListRecordHistory(_ context.Context, companyID int64, accountID core.AccountID, year int) ([]core.RecordHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []core.RecordHistoryEntry
	for i := len(s.history) - 1; i >= 0; i-- {
		e := s.history[i]
		if e.CompanyID == companyID && e.AccountID == accountID && e.Year == year {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *Store) ReplaceAnnualSummaries(_ context.Context, companyID int64, year int, summaries []core.AnnualSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]core.AnnualSummary, len(summaries))
	for i, sum := range summaries {
		sum.CompanyID = companyID
		sum.Year = year
		stored[i] = sum
	}
	s.summaries[summaryKey{companyID, year}] = stored
	return nil
}

func (s *Store) ListAnnualSummaries(_ context.Context, companyID int64, year int) ([]core.AnnualSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.summaries[summaryKey{companyID, year}]), nil
}
