package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"esgrec/internal/core"
	"esgrec/internal/matrix"
	"esgrec/internal/storage/memory"
)

type fakePublisher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *fakePublisher) PublishMatrixSaved(_ context.Context, companyID int64, year int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf("%d/%d", companyID, year))
	return p.err
}

func newMatrixService(store *memory.Store, pub Publisher) *MatrixService {
	opts := matrix.SourceOptions{TTL: time.Minute}
	accounts := matrix.NewCachedAccounts(store, opts)
	src := matrix.NewCachedMatrix(store, opts)
	saver := matrix.NewSaver(store, store, 0)
	return NewMatrixService(accounts, src, saver, store, pub)
}

func TestGridSaveCellsRoundTrip(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	if _, err := store.CreateAccount(ctx, 7, core.Account{Name: "Electricity", Unit: "kWh", IsUse: true}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	pub := &fakePublisher{}
	svc := newMatrixService(store, pub)

	rows, err := svc.Grid(ctx, 7, 2024)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if len(rows) != 1 || rows[0].IsNewAccount || rows[0].IsOrphanRecord {
		t.Fatalf("expected one unflagged fallback row, got %+v", rows)
	}

	rows[0].SetCell(core.SlotJan, 1200.0)
	if err := svc.SaveCells(ctx, 7, 2024, rows); err != nil {
		t.Fatalf("save cells: %v", err)
	}

	// The save invalidated the cached matrix, so the next load sees the write.
	rows, err = svc.Grid(ctx, 7, 2024)
	if err != nil {
		t.Fatalf("grid after save: %v", err)
	}
	if jan := rows[0].CellAt(core.SlotJan); !jan.Valid || jan.Value != 1200 {
		t.Fatalf("january not persisted: %+v", jan)
	}
	if rows[0].Total != 1200 {
		t.Fatalf("total not recomputed: %v", rows[0].Total)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.calls) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.calls))
	}
}

func TestSaveMatrixClearsCells(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	if _, err := store.CreateAccount(ctx, 7, core.Account{Name: "Water", Unit: "m3", IsUse: true}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	svc := newMatrixService(store, nil)

	rows, err := svc.Grid(ctx, 7, 2024)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	rows[0].SetCell(core.SlotMar, 50.0)
	rows[0].SetCell(core.SlotDec, 0.0)
	if err := svc.SaveMatrix(ctx, 7, 2024, rows); err != nil {
		t.Fatalf("save matrix: %v", err)
	}

	rows, _ = svc.Grid(ctx, 7, 2024)
	if dec := rows[0].CellAt(core.SlotDec); !dec.Valid || dec.Value != 0 {
		t.Fatalf("measured zero lost: %+v", dec)
	}

	// Clearing March submits an explicit null and removes the stored record.
	rows[0].SetCell(core.SlotMar, nil)
	if err := svc.SaveMatrix(ctx, 7, 2024, rows); err != nil {
		t.Fatalf("save matrix: %v", err)
	}
	rows, _ = svc.Grid(ctx, 7, 2024)
	if mar := rows[0].CellAt(core.SlotMar); mar.Valid {
		t.Fatalf("cleared cell must be blank, got %+v", mar)
	}
}

type blockingBulk struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingBulk) SaveMatrix(context.Context, core.RecordMatrixRequest) error {
	b.started <- struct{}{}
	<-b.release
	return nil
}

func TestSaveGuardRejectsOverlap(t *testing.T) {
	store := memory.NewStore()
	opts := matrix.SourceOptions{TTL: time.Minute}
	bulk := &blockingBulk{started: make(chan struct{}, 1), release: make(chan struct{})}
	svc := NewMatrixService(
		matrix.NewCachedAccounts(store, opts),
		matrix.NewCachedMatrix(store, opts),
		matrix.NewSaver(store, store, 0),
		bulk,
		nil,
	)

	rows := []core.GridRow{{AccountID: 1, AccountName: "a"}}
	done := make(chan error, 1)
	go func() {
		done <- svc.SaveMatrix(context.Background(), 7, 2024, rows)
	}()
	<-bulk.started

	if err := svc.SaveMatrix(context.Background(), 7, 2024, rows); !errors.Is(err, ErrSaveInFlight) {
		t.Fatalf("expected ErrSaveInFlight, got %v", err)
	}
	if err := svc.SaveCells(context.Background(), 7, 2024, rows); !errors.Is(err, ErrSaveInFlight) {
		t.Fatalf("expected ErrSaveInFlight for cell save too, got %v", err)
	}

	close(bulk.release)
	if err := <-done; err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	// Guard releases once the save settles.
	if err := svc.SaveMatrix(context.Background(), 7, 2024, rows); err != nil {
		t.Fatalf("save after release: %v", err)
	}
}

func TestPublishFailureDoesNotFailSave(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	if _, err := store.CreateAccount(ctx, 7, core.Account{Name: "Gas", IsUse: true}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newMatrixService(store, pub)

	rows, _ := svc.Grid(ctx, 7, 2024)
	rows[0].SetCell(core.SlotJun, 3.0)
	if err := svc.SaveCells(ctx, 7, 2024, rows); err != nil {
		t.Fatalf("a failed publish must not fail the save: %v", err)
	}
}

func TestSaveCellsMissingScope(t *testing.T) {
	svc := newMatrixService(memory.NewStore(), nil)
	if err := svc.SaveCells(context.Background(), 0, 2024, nil); !errors.Is(err, matrix.ErrMissingScope) {
		t.Fatalf("expected ErrMissingScope, got %v", err)
	}
	if err := svc.SaveMatrix(context.Background(), 7, 0, nil); !errors.Is(err, matrix.ErrMissingScope) {
		t.Fatalf("expected ErrMissingScope, got %v", err)
	}
}
