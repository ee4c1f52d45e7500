package matrix

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"esgrec/internal/core"
)

type fakeStore struct {
	mu       sync.Mutex
	existing map[string]int64 // "account/month" -> record id
	finds    []string
	creates  []core.RecordUpsert
	updates  map[int64]core.RecordUpsert
	failOn   func(up core.RecordUpsert) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		existing: map[string]int64{},
		updates:  map[int64]core.RecordUpsert{},
	}
}

func key(accountID core.AccountID, month int) string {
	return fmt.Sprintf("%d/%d", accountID, month)
}

func (f *fakeStore) FindRecord(_ context.Context, _ int64, accountID core.AccountID, _ int, month int) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds = append(f.finds, key(accountID, month))
	id, ok := f.existing[key(accountID, month)]
	return id, ok, nil
}

func (f *fakeStore) CreateRecord(_ context.Context, up core.RecordUpsert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		if err := f.failOn(up); err != nil {
			return err
		}
	}
	f.creates = append(f.creates, up)
	return nil
}

func (f *fakeStore) UpdateRecord(_ context.Context, id int64, up core.RecordUpsert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		if err := f.failOn(up); err != nil {
			return err
		}
	}
	f.updates[id] = up
	return nil
}

func TestSaveSingleEditedMonth(t *testing.T) {
	store := newFakeStore()
	saver := NewSaver(store, store, 0)

	var row core.GridRow
	row.AccountID = 1
	row.AccountName = "Electricity"
	row.SetCell(core.SlotJan, 1200)

	if err := saver.Save(context.Background(), 7, 2024, []core.GridRow{row}); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Exactly one existence-check/write pair, for January only.
	if len(store.finds) != 1 || store.finds[0] != "1/1" {
		t.Fatalf("expected one find for jan, got %v", store.finds)
	}
	if len(store.creates) != 1 || len(store.updates) != 0 {
		t.Fatalf("expected one create, got creates=%d updates=%d", len(store.creates), len(store.updates))
	}
	up := store.creates[0]
	if up.CompanyID != 7 || up.Year != 2024 || up.Month != 1 || up.Quantity != 1200 {
		t.Fatalf("wrong upsert payload: %+v", up)
	}
}

func TestSaveUpdatesExisting(t *testing.T) {
	store := newFakeStore()
	store.existing["1/3"] = 42
	saver := NewSaver(store, store, 0)

	var row core.GridRow
	row.AccountID = 1
	row.SetCell(core.SlotMar, 9)
	row.SetCell(core.SlotApr, 0) // measured zero is persisted too

	if err := saver.Save(context.Background(), 7, 2024, []core.GridRow{row}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if up, ok := store.updates[42]; !ok || up.Quantity != 9 || up.Month != 3 {
		t.Fatalf("expected update of record 42, got %+v", store.updates)
	}
	if len(store.creates) != 1 || store.creates[0].Month != 4 || store.creates[0].Quantity != 0 {
		t.Fatalf("expected create for apr=0, got %+v", store.creates)
	}
}

func TestSaveSkipsBlankRows(t *testing.T) {
	store := newFakeStore()
	saver := NewSaver(store, store, 0)

	var blank core.GridRow
	blank.AccountID = 5

	if err := saver.Save(context.Background(), 7, 2024, []core.GridRow{blank}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(store.finds) != 0 || len(store.creates) != 0 {
		t.Fatalf("blank row must not reach the store: finds=%v creates=%v", store.finds, store.creates)
	}
}

func TestSavePartialFailureSettlesAll(t *testing.T) {
	store := newFakeStore()
	boom := errors.New("backend down")
	store.failOn = func(up core.RecordUpsert) error {
		if up.Month == 2 {
			return boom
		}
		return nil
	}
	saver := NewSaver(store, store, 0)

	var row core.GridRow
	row.AccountID = 1
	row.SetCell(core.SlotJan, 1)
	row.SetCell(core.SlotFeb, 2)
	row.SetCell(core.SlotMar, 3)

	err := saver.Save(context.Background(), 7, 2024, []core.GridRow{row})
	var partial *PartialSaveError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialSaveError, got %v", err)
	}
	if partial.Attempted != 3 || len(partial.Failed) != 1 {
		t.Fatalf("expected 1 of 3 failed, got %+v", partial)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("underlying cause lost: %v", err)
	}
	// The other writes still went through; nothing is rolled back.
	if len(store.creates) != 2 {
		t.Fatalf("expected 2 surviving creates, got %d", len(store.creates))
	}
}

func TestSavePreconditions(t *testing.T) {
	store := newFakeStore()
	saver := NewSaver(store, store, 0)

	var row core.GridRow
	row.SetCell(core.SlotJan, 1) // no account id

	if err := saver.Save(context.Background(), 0, 2024, nil); !errors.Is(err, ErrMissingScope) {
		t.Fatalf("expected ErrMissingScope for company 0, got %v", err)
	}
	if err := saver.Save(context.Background(), 1, 0, nil); !errors.Is(err, ErrMissingScope) {
		t.Fatalf("expected ErrMissingScope for year 0, got %v", err)
	}
	if err := saver.Save(context.Background(), 1, 2024, []core.GridRow{row}); !errors.Is(err, core.ErrInvalidAccountID) {
		t.Fatalf("expected ErrInvalidAccountID, got %v", err)
	}
}
