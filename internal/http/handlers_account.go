package http

import (
	"log/slog"
	"net/http"

	"esgrec/internal/core"
)

// accountPayload is the request body for account create and update.
type accountPayload struct {
	Name      string `json:"name" validate:"required,min=1,max=200"`
	Unit      string `json:"unit" validate:"max=50"`
	StyleName string `json:"styleName" validate:"max=100"`
	IsUse     *bool  `json:"isUse"`
}

func (p accountPayload) toAccount(id core.AccountID) core.Account {
	isUse := true
	if p.IsUse != nil {
		isUse = *p.IsUse
	}
	return core.Account{
		ID:        id,
		Name:      p.Name,
		Unit:      p.Unit,
		StyleName: p.StyleName,
		IsUse:     isUse,
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	companyID, err := queryInt64(r, "company_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	accounts, err := s.accountSvc.List(r.Context(), companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	companyID, err := queryInt64(r, "company_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathAccountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.accountSvc.Get(r.Context(), companyID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	companyID, err := queryInt64(r, "company_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload accountPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.accountSvc.Create(r.Context(), companyID, payload.toAccount(0))
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Account created",
		"company_id", companyID, "account_id", created.ID, "name", created.Name)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	companyID, err := queryInt64(r, "company_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathAccountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload accountPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.accountSvc.Update(r.Context(), companyID, payload.toAccount(id)); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Account updated",
		"company_id", companyID, "account_id", id)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	companyID, err := queryInt64(r, "company_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathAccountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.accountSvc.Deactivate(r.Context(), companyID, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Account deactivated",
		"company_id", companyID, "account_id", id)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRecordHistory(w http.ResponseWriter, r *http.Request) {
	sc, err := parseScope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathAccountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := s.accountSvc.History(r.Context(), sc.CompanyID, id, sc.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.RecordHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
