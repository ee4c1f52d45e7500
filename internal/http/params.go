package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"esgrec/internal/core"
)

// scope is the (company, year) pair every matrix operation is keyed on.
type scope struct {
	CompanyID int64
	Year      int
}

func parseScope(r *http.Request) (scope, error) {
	companyID, err := queryInt64(r, "company_id")
	if err != nil {
		return scope{}, err
	}
	year, err := queryInt(r, "year")
	if err != nil {
		return scope{}, err
	}
	if year < 1900 || year > 9999 {
		return scope{}, errBadParam("year", strconv.Itoa(year))
	}
	return scope{CompanyID: companyID, Year: year}, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, errMissingParam(name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, errBadParam(name, raw)
	}
	return v, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	v, err := queryInt64(r, name)
	return int(v), err
}

func pathAccountID(r *http.Request) (core.AccountID, error) {
	raw := r.PathValue("id")
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, errBadParam("id", raw)
	}
	return core.AccountID(v), nil
}

type paramError struct{ msg string }

func (e paramError) Error() string { return e.msg }

func errMissingParam(name string) error {
	return paramError{msg: fmt.Sprintf("missing required parameter %q", name)}
}

func errBadParam(name, got string) error {
	return paramError{msg: fmt.Sprintf("invalid parameter %q: %q", name, got)}
}
