package api

import (
	"net/http"
	"time"

	"github.com/erazemk/ossms/internal/command"
	"github.com/erazemk/ossms/internal/model"
)

// HistoryHandler handles supply history endpoints.
type HistoryHandler struct {
	Commands *command.Service
}

// List handles GET /api/history. Optional from/to query parameters take an
// RFC 3339 timestamp or a YYYY-MM-DD date.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	var req command.HistoryRequest
	var err error
	q := r.URL.Query()
	if req.From, err = parseTime(q.Get("from")); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid from")
		return
	}
	if req.To, err = parseTime(q.Get("to")); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid to")
		return
	}
	req.SupplyID = q.Get("supply_id")
	h.list(w, r, req)
}

// ForSupply handles GET /api/supplies/{id}/history.
func (h *HistoryHandler) ForSupply(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, command.HistoryRequest{SupplyID: r.PathValue("id")})
}

func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request, req command.HistoryRequest) {
	entries, err := h.Commands.ListSupplyHistory(r.Context(), req)
	if err != nil {
		commandError(w, err)
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Delete handles DELETE /api/history/{id}.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	msg, err := h.Commands.DeleteSupplyHistory(r.Context(), command.DeleteHistoryRequest{
		ID:     r.PathValue("id"),
		UserID: GetUser(r.Context()).ID,
	})
	if err != nil {
		commandError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": msg})
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}
