package matrix

import (
	"errors"

	"esgrec/internal/core"
)

// ErrNoAccounts reports that there is no dimension list to build a grid from.
// An empty matrix without accounts is a precondition failure, not something
// to paper over with an empty response.
var ErrNoAccounts = errors.New("no accounts to build matrix from")

// BuildEmpty constructs a well-formed, all-null matrix straight from the
// dimension list. Used when the fact source is unavailable or has no rows,
// so the grid always renders a complete, editable shape.
func BuildEmpty(accounts []core.Account, companyID int64, year int) (core.RecordMatrixResponse, error) {
	if len(accounts) == 0 {
		return core.RecordMatrixResponse{}, ErrNoAccounts
	}
	resp := core.RecordMatrixResponse{
		CompanyID:   companyID,
		AccountYear: year,
		Records:     make([]core.MonthlyRecord, 0, len(accounts)),
	}
	for _, acc := range accounts {
		resp.Records = append(resp.Records, core.MonthlyRecord{
			AccountID:         acc.ID,
			AccountName:       acc.Name,
			Unit:              acc.Unit,
			StyleCaption:      acc.StyleName,
			MonthlyQuantities: make([]*float64, core.MonthsPerYear),
		})
	}
	return resp, nil
}
