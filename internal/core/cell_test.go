package core

import (
	"encoding/json"
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	zero := 0.0
	cases := []struct {
		raw  any
		want float64
		ok   bool
	}{
		{nil, 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"0", 0, true},
		{"1200", 1200, true},
		{"12.5", 12.5, true},
		{"-3", -3, true},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{float64(0), 0, true},
		{float64(42.5), 42.5, true},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
		{int(7), 7, true},
		{int64(-1), -1, true},
		{json.Number("99"), 99, true},
		{(*float64)(nil), 0, false},
		{&zero, 0, true},
		{Cell{}, 0, false},
		{Cell{Value: 5, Valid: true}, 5, true},
		{struct{}{}, 0, false},
	}
	for i, tc := range cases {
		got, ok := Normalize(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("case %d (%v): got (%v,%v) want (%v,%v)", i, tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCellJSON(t *testing.T) {
	cases := []struct {
		in   string
		want Cell
	}{
		{`""`, Cell{}},
		{`null`, Cell{}},
		{`0`, Cell{Value: 0, Valid: true}},
		{`1200`, Cell{Value: 1200, Valid: true}},
		{`"50"`, Cell{Value: 50, Valid: true}},
		{`"x"`, Cell{}},
	}
	for i, tc := range cases {
		var c Cell
		if err := json.Unmarshal([]byte(tc.in), &c); err != nil {
			t.Fatalf("case %d: unmarshal %s: %v", i, tc.in, err)
		}
		if c != tc.want {
			t.Fatalf("case %d: got %+v want %+v", i, c, tc.want)
		}
	}

	// Blank marshals as "", numbers as numbers; zero stays zero.
	b, err := json.Marshal(Cell{})
	if err != nil || string(b) != `""` {
		t.Fatalf("blank cell: got %s err %v", b, err)
	}
	b, err = json.Marshal(Cell{Value: 0, Valid: true})
	if err != nil || string(b) != `0` {
		t.Fatalf("zero cell: got %s err %v", b, err)
	}
}

func TestCellPtr(t *testing.T) {
	if p := (Cell{}).Ptr(); p != nil {
		t.Fatalf("blank cell should have nil wire form, got %v", *p)
	}
	p := (Cell{Value: 0, Valid: true}).Ptr()
	if p == nil || *p != 0 {
		t.Fatalf("zero cell must survive as 0, got %v", p)
	}
}
