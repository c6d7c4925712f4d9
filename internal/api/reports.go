package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/erazemk/ossms/internal/command"
	"github.com/erazemk/ossms/internal/model"
	"github.com/erazemk/ossms/internal/report"
)

// ReportsHandler serves plain-text inventory reports.
type ReportsHandler struct {
	Commands *command.Service
}

// LowStock handles GET /api/reports/low-stock.
func (h *ReportsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	supplies, err := h.Commands.LowStock(r.Context())
	if err != nil {
		commandError(w, err)
		return
	}
	text(w, supplies, report.LowStock)
}

// Valuation handles GET /api/reports/valuation.
func (h *ReportsHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	supplies, err := h.Commands.ListSupplies(r.Context())
	if err != nil {
		commandError(w, err)
		return
	}
	text(w, supplies, report.Valuation)
}

func text(w http.ResponseWriter, supplies []model.Supply, render func(io.Writer, []model.Supply) error) {
	var buf bytes.Buffer
	if err := render(&buf, supplies); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
