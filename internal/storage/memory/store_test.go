package memory

import (
	"context"
	"errors"
	"testing"

	"esgrec/internal/core"
	"esgrec/internal/storage"
)

func ptr(f float64) *float64 { return &f }

func TestStoreAccounts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a, err := s.CreateAccount(ctx, 7, core.Account{Name: "Electricity", Unit: "kWh", IsUse: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.DeactivateAccount(ctx, 7, a.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, _ := s.ListAccounts(ctx, 7)
	if len(active) != 0 {
		t.Fatalf("deactivated account still listed: %v", active)
	}
	if _, err := s.GetAccount(ctx, 8, a.ID); !errors.Is(err, storage.ErrAccountNotFound) {
		t.Fatalf("accounts must be company scoped, got %v", err)
	}
}

func TestStoreSaveMatrixRoundTrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	quantities := make([]*float64, core.MonthsPerYear)
	quantities[0] = ptr(1200)
	quantities[11] = ptr(0)

	err := s.SaveMatrix(ctx, core.RecordMatrixRequest{
		CompanyID:   7,
		AccountYear: 2024,
		Records:     []core.RecordPayload{{AccountID: 1, AccountName: "Electricity", MonthlyQuantities: quantities}},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	resp, err := s.FetchMatrix(ctx, 7, 2024)
	if err != nil || len(resp.Records) != 1 {
		t.Fatalf("fetch: got %+v err %v", resp, err)
	}
	q := resp.Records[0].MonthlyQuantities
	if q[0] == nil || *q[0] != 1200 || q[11] == nil || *q[11] != 0 {
		t.Fatalf("quantities lost: %v %v", q[0], q[11])
	}
	if q[5] != nil {
		t.Fatalf("unwritten month must stay null")
	}

	// Clearing December removes the stored record.
	quantities[11] = nil
	err = s.SaveMatrix(ctx, core.RecordMatrixRequest{
		CompanyID:   7,
		AccountYear: 2024,
		Records:     []core.RecordPayload{{AccountID: 1, AccountName: "Electricity", MonthlyQuantities: quantities}},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	resp, _ = s.FetchMatrix(ctx, 7, 2024)
	if resp.Records[0].MonthlyQuantities[11] != nil {
		t.Fatalf("cleared month must go back to null")
	}
}

func TestStorePerMonthWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	up := core.RecordUpsert{CompanyID: 7, AccountID: 3, Year: 2024, Month: 4, Quantity: 9}
	if err := s.CreateRecord(ctx, up); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateRecord(ctx, up); err == nil {
		t.Fatalf("duplicate natural key must fail")
	}

	id, found, err := s.FindRecord(ctx, 7, 3, 2024, 4)
	if err != nil || !found {
		t.Fatalf("find: (%d,%v,%v)", id, found, err)
	}
	up.Quantity = 11
	if err := s.UpdateRecord(ctx, id, up); err != nil {
		t.Fatalf("update: %v", err)
	}

	history, _ := s.ListRecordHistory(ctx, 7, 3, 2024)
	if len(history) != 2 || history[0].Action != "update" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestStoreSummaries(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.ReplaceAnnualSummaries(ctx, 7, 2024, []core.AnnualSummary{
		{AccountID: 1, AccountName: "Electricity", Total: "100"},
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ := s.ListAnnualSummaries(ctx, 7, 2024)
	if len(got) != 1 || got[0].CompanyID != 7 || got[0].Year != 2024 {
		t.Fatalf("scope not stamped: %+v", got)
	}
}

func TestStorePing(t *testing.T) {
	if err := NewStore().Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
