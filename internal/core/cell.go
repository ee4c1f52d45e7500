// Package core holds the domain model for monthly usage collection: the
// Account dimension, the sparse MonthlyRecord fact, and the dense GridRow
// representation the editing grid works on.
//
// This file is the single point of truth for null-vs-zero handling. A blank
// cell ("" in the grid, null on the wire) and a measured 0 are different
// values and must never be conflated; every conversion goes through Normalize.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Normalize canonicalizes a raw cell value into either a finite number or
// "absent". Empty strings, nils and anything that does not coerce to a finite
// number report ok=false; a measured zero survives as (0, true).
func Normalize(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case json.Number:
		return Normalize(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case float32:
		return Normalize(float64(v))
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case *float64:
		if v == nil {
			return 0, false
		}
		return Normalize(*v)
	case Cell:
		if !v.Valid {
			return 0, false
		}
		return Normalize(v.Value)
	default:
		return 0, false
	}
}

// Cell is one dense grid cell: either blank or a finite number.
// The zero value is a blank cell.
type Cell struct {
	Value float64
	Valid bool
}

// NewCell returns a cell holding v. Non-finite input yields a blank cell.
func NewCell(v float64) Cell {
	f, ok := Normalize(v)
	return Cell{Value: f, Valid: ok}
}

// CellOf normalizes any raw value into a cell.
func CellOf(raw any) Cell {
	f, ok := Normalize(raw)
	return Cell{Value: f, Valid: ok}
}

// Ptr returns the wire form of the cell: nil when blank, else the number.
func (c Cell) Ptr() *float64 {
	if !c.Valid {
		return nil
	}
	v := c.Value
	return &v
}

// MarshalJSON encodes a blank cell as "" (the grid's empty-cell encoding)
// and a filled cell as a plain number.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte(`""`), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts null, "", a number, or a numeric string.
func (c *Cell) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = Cell{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("cell: %w", err)
		}
		*c = CellOf(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("cell: %w", err)
	}
	*c = NewCell(f)
	return nil
}
