package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// AccountID identifies one managed account (the dimension key).
type AccountID int64

// Account is one entry of the authoritative dimension list: the managed item a
// company reports monthly usage against. Display metadata (name, unit, style)
// on the account always wins over whatever a fact record has embedded.
type Account struct {
	ID        AccountID `json:"id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	StyleName string    `json:"styleName"`
	IsUse     bool      `json:"isUse"`
}

var (
	ErrEmptyAccountName = errors.New("empty account name")
	ErrInvalidAccountID = errors.New("invalid account id")
)

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if len(a.Name) > 200 {
		return errors.New("account name too long (max 200 characters)")
	}
	return nil
}

// MonthlyRecord is the sparse wire form of one fact row: twelve nullable
// quantities, index 0 = January. A nil entry means "never measured", which is
// not the same as a measured 0.
type MonthlyRecord struct {
	AccountID         AccountID  `json:"accountId"`
	AccountName       string     `json:"accountName"`
	Unit              string     `json:"unit"`
	StyleCaption      string     `json:"styleCaption"`
	MonthlyQuantities []*float64 `json:"monthlyQuantities"`
}

// RecordMatrixResponse is the fact-source response for one (company, year).
type RecordMatrixResponse struct {
	CompanyID   int64           `json:"companyId"`
	AccountYear int             `json:"accountYear"`
	Records     []MonthlyRecord `json:"records"`
}

// RecordPayload is one record of a bulk save request.
type RecordPayload struct {
	AccountID         AccountID  `json:"accountId"`
	AccountName       string     `json:"accountName"`
	MonthlyQuantities []*float64 `json:"monthlyQuantities"`
}

// RecordMatrixRequest is the bulk save payload for one (company, year).
type RecordMatrixRequest struct {
	CompanyID   int64           `json:"companyId"`
	AccountYear int             `json:"accountYear"`
	Records     []RecordPayload `json:"records"`
}

// RecordUpsert is a single per-month write: create-if-absent, else update,
// keyed by (company, account, year, month).
type RecordUpsert struct {
	CompanyID    int64
	AccountID    AccountID
	AccountName  string
	Unit         string
	StyleCaption string
	Year         int
	Month        int
	Quantity     float64
}

// GridRow is the dense, editable representation of one account's year.
// It is a closed record: the grid never attaches ad hoc fields to it.
//
// IsNewAccount marks a dimension entry with no fact data yet; IsOrphanRecord
// marks fact data whose dimension entry was removed or deactivated. The two
// are mutually exclusive, and both false on the fallback (empty-matrix) path.
type GridRow struct {
	AccountID      AccountID
	AccountName    string
	Unit           string
	StyleName      string
	Months         [MonthsPerYear]Cell
	Total          float64
	IsNewAccount   bool
	IsOrphanRecord bool
}

// CellAt returns the cell for a slot.
func (r GridRow) CellAt(slot MonthSlot) Cell {
	return r.Months[slot.Month()-1]
}

// SetCell normalizes raw into the slot's cell and recomputes the total.
// Total is derived state: it is never written independently of a cell.
func (r *GridRow) SetCell(slot MonthSlot, raw any) {
	r.Months[slot.Month()-1] = CellOf(raw)
	r.RecalcTotal()
}

// RecalcTotal recomputes the row total, treating blank cells as 0.
func (r *GridRow) RecalcTotal() {
	var sum float64
	for _, c := range r.Months {
		if c.Valid {
			sum += c.Value
		}
	}
	r.Total = sum
}

// gridRowJSON is the grid-facing JSON shape with one key per month slot.
type gridRowJSON struct {
	AccountID      AccountID `json:"accountId"`
	AccountName    string    `json:"accountName"`
	Unit           string    `json:"unit"`
	StyleName      string    `json:"styleName"`
	Jan            Cell      `json:"jan"`
	Feb            Cell      `json:"feb"`
	Mar            Cell      `json:"mar"`
	Apr            Cell      `json:"apr"`
	May            Cell      `json:"may"`
	Jun            Cell      `json:"jun"`
	Jul            Cell      `json:"jul"`
	Aug            Cell      `json:"aug"`
	Sep            Cell      `json:"sep"`
	Oct            Cell      `json:"oct"`
	Nov            Cell      `json:"nov"`
	Dec            Cell      `json:"dec"`
	Total          float64   `json:"total"`
	IsNewAccount   bool      `json:"isNewAccount"`
	IsOrphanRecord bool      `json:"isOrphanRecord"`
}

func (r GridRow) MarshalJSON() ([]byte, error) {
	j := gridRowJSON{
		AccountID:      r.AccountID,
		AccountName:    r.AccountName,
		Unit:           r.Unit,
		StyleName:      r.StyleName,
		Total:          r.Total,
		IsNewAccount:   r.IsNewAccount,
		IsOrphanRecord: r.IsOrphanRecord,
	}
	cells := []*Cell{&j.Jan, &j.Feb, &j.Mar, &j.Apr, &j.May, &j.Jun, &j.Jul, &j.Aug, &j.Sep, &j.Oct, &j.Nov, &j.Dec}
	for i := range cells {
		*cells[i] = r.Months[i]
	}
	return json.Marshal(j)
}

func (r *GridRow) UnmarshalJSON(b []byte) error {
	var j gridRowJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*r = GridRow{
		AccountID:      j.AccountID,
		AccountName:    j.AccountName,
		Unit:           j.Unit,
		StyleName:      j.StyleName,
		IsNewAccount:   j.IsNewAccount,
		IsOrphanRecord: j.IsOrphanRecord,
	}
	copy(r.Months[:], []Cell{j.Jan, j.Feb, j.Mar, j.Apr, j.May, j.Jun, j.Jul, j.Aug, j.Sep, j.Oct, j.Nov, j.Dec})
	// Total is derived; recompute rather than trusting the payload.
	r.RecalcTotal()
	return nil
}

// RecordHistoryEntry is one audit entry for a per-month record write.
type RecordHistoryEntry struct {
	ID         int64     `json:"id"`
	CompanyID  int64     `json:"companyId"`
	AccountID  AccountID `json:"accountId"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	Quantity   *float64  `json:"quantity"`
	Action     string    `json:"action"`
	RecordedAt time.Time `json:"recordedAt"`
}

// AnnualSummary is the per-account yearly total maintained by the worker.
// Total is a decimal string so the stored value is exact.
type AnnualSummary struct {
	CompanyID   int64     `json:"companyId"`
	AccountID   AccountID `json:"accountId"`
	AccountName string    `json:"accountName"`
	Year        int       `json:"year"`
	Total       string    `json:"total"`
}
