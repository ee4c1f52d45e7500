package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"esgrec/internal/core"
	"esgrec/internal/export"
)

// matrixResponse is the dense grid for one (company, year).
type matrixResponse struct {
	CompanyID int64          `json:"companyId"`
	Year      int            `json:"year"`
	Rows      []core.GridRow `json:"rows"`
}

// saveMatrixRequest carries the full grid for a transactional save. Blank
// cells become explicit nulls and clear whatever the store held.
type saveMatrixRequest struct {
	CompanyID int64          `json:"companyId" validate:"required,gt=0"`
	Year      int            `json:"year" validate:"required,gte=1900,lte=9999"`
	Rows      []core.GridRow `json:"rows" validate:"required,min=1,dive"`
}

// saveCellsRequest carries edited rows for the per-month upsert path. Only
// non-blank cells are written; nothing is cleared.
type saveCellsRequest struct {
	CompanyID int64          `json:"companyId" validate:"required,gt=0"`
	Year      int            `json:"year" validate:"required,gte=1900,lte=9999"`
	Rows      []core.GridRow `json:"rows" validate:"required,min=1,dive"`
}

func (s *Server) handleGetMatrix(w http.ResponseWriter, r *http.Request) {
	sc, err := parseScope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := s.matrixSvc.Grid(r.Context(), sc.CompanyID, sc.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, matrixResponse{
		CompanyID: sc.CompanyID,
		Year:      sc.Year,
		Rows:      rows,
	})
}

func (s *Server) handleSaveMatrix(w http.ResponseWriter, r *http.Request) {
	var req saveMatrixRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.matrixSvc.SaveMatrix(r.Context(), req.CompanyID, req.Year, req.Rows); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Matrix saved",
		"company_id", req.CompanyID, "year", req.Year, "rows", len(req.Rows))
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSaveCells(w http.ResponseWriter, r *http.Request) {
	var req saveCellsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.matrixSvc.SaveCells(r.Context(), req.CompanyID, req.Year, req.Rows); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Matrix cells saved",
		"company_id", req.CompanyID, "year", req.Year, "rows", len(req.Rows))
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleExportMatrix(w http.ResponseWriter, r *http.Request) {
	sc, err := parseScope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := s.matrixSvc.Grid(r.Context(), sc.CompanyID, sc.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("matrix_%d_%d.xlsx", sc.CompanyID, sc.Year)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.Write(w, sc.CompanyID, sc.Year, rows); err != nil {
		// Headers are out the door; all we can do is log.
		slog.ErrorContext(r.Context(), "Failed to stream workbook",
			"company_id", sc.CompanyID, "year", sc.Year, "error", err)
	}
}
