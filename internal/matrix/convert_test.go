package matrix

import (
	"errors"
	"reflect"
	"testing"

	"esgrec/internal/core"
)

func ptr(f float64) *float64 { return &f }

func TestToGridRowsNullZeroPreserved(t *testing.T) {
	rows := ToGridRows([]core.MonthlyRecord{{
		AccountID:         1,
		AccountName:       "Electricity",
		MonthlyQuantities: []*float64{ptr(0), nil, ptr(3), nil, ptr(0), nil, nil, nil, nil, nil, nil, nil},
	}})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if !r.Months[0].Valid || r.Months[0].Value != 0 {
		t.Fatalf("jan must be a measured 0, got %+v", r.Months[0])
	}
	if r.Months[1].Valid {
		t.Fatalf("feb must stay blank, got %+v", r.Months[1])
	}
	if r.Total != 3 {
		t.Fatalf("expected total 3, got %v", r.Total)
	}
}

func TestToGridRowsMalformedQuantities(t *testing.T) {
	cases := [][]*float64{
		nil,
		{},
		{ptr(1), ptr(2)},                // too short
		make([]*float64, 13),            // too long
	}
	for i, qs := range cases {
		rows := ToGridRows([]core.MonthlyRecord{{AccountID: 5, MonthlyQuantities: qs}})
		r := rows[0]
		for m, c := range r.Months {
			if c.Valid {
				t.Fatalf("case %d: month %d should be blank", i, m+1)
			}
		}
		if r.Total != 0 {
			t.Fatalf("case %d: expected total 0, got %v", i, r.Total)
		}
	}
}

func TestToMatrixPayloadRejectsMissingAccountID(t *testing.T) {
	var row core.GridRow
	row.SetCell(core.SlotJan, 1)
	_, err := ToMatrixPayload(1, 2024, []core.GridRow{row})
	if !errors.Is(err, core.ErrInvalidAccountID) {
		t.Fatalf("expected ErrInvalidAccountID, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := [][]*float64{
		{ptr(0), nil, ptr(3.5), nil, ptr(0), nil, ptr(-2), nil, nil, nil, nil, ptr(100)},
		make([]*float64, 12),
		{ptr(1), ptr(2), ptr(3), ptr(4), ptr(5), ptr(6), ptr(7), ptr(8), ptr(9), ptr(10), ptr(11), ptr(12)},
	}
	for i, qs := range cases {
		rec := core.MonthlyRecord{AccountID: 9, AccountName: "Gas", MonthlyQuantities: qs}
		req, err := ToMatrixPayload(1, 2024, ToGridRows([]core.MonthlyRecord{rec}))
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if len(req.Records) != 1 || len(req.Records[0].MonthlyQuantities) != core.MonthsPerYear {
			t.Fatalf("case %d: malformed payload %+v", i, req)
		}
		got := req.Records[0].MonthlyQuantities
		for m := range qs {
			switch {
			case qs[m] == nil && got[m] != nil:
				t.Fatalf("case %d month %d: null became %v", i, m+1, *got[m])
			case qs[m] != nil && got[m] == nil:
				t.Fatalf("case %d month %d: %v became null", i, m+1, *qs[m])
			case qs[m] != nil && *qs[m] != *got[m]:
				t.Fatalf("case %d month %d: %v became %v", i, m+1, *qs[m], *got[m])
			}
		}
	}
}

func TestToMatrixPayloadScope(t *testing.T) {
	req, err := ToMatrixPayload(3, 2025, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := core.RecordMatrixRequest{CompanyID: 3, AccountYear: 2025, Records: []core.RecordPayload{}}
	if !reflect.DeepEqual(req, want) {
		t.Fatalf("got %+v want %+v", req, want)
	}
}
