package api

import (
	"context"
	"net/http"

	"github.com/erazemk/ossms/internal/command"
	"github.com/erazemk/ossms/internal/model"
)

// SuppliesHandler handles supply and stock endpoints.
type SuppliesHandler struct {
	Commands *command.Service
}

type stockRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// List handles GET /api/supplies.
func (h *SuppliesHandler) List(w http.ResponseWriter, r *http.Request) {
	supplies, err := h.Commands.ListSupplies(r.Context())
	if err != nil {
		commandError(w, err)
		return
	}
	if supplies == nil {
		supplies = []model.Supply{}
	}
	jsonResponse(w, http.StatusOK, supplies)
}

// Create handles POST /api/supplies.
func (h *SuppliesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req command.CreateSupplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = GetUser(r.Context()).ID

	id, err := h.Commands.CreateSupply(r.Context(), req)
	if err != nil {
		commandError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"id": id})
}

// Get handles GET /api/supplies/{id}.
func (h *SuppliesHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Commands.GetSupply(r.Context(), r.PathValue("id"))
	if err != nil {
		commandError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Update handles PUT /api/supplies/{id}.
func (h *SuppliesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req command.UpdateSupplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = r.PathValue("id")
	req.UserID = GetUser(r.Context()).ID

	msg, err := h.Commands.UpdateSupply(r.Context(), req)
	if err != nil {
		commandError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": msg})
}

// Delete handles DELETE /api/supplies/{id}.
func (h *SuppliesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	msg, err := h.Commands.DeleteSupply(r.Context(), command.DeleteSupplyRequest{
		ID:     r.PathValue("id"),
		UserID: GetUser(r.Context()).ID,
	})
	if err != nil {
		commandError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": msg})
}

// StockIn handles POST /api/supplies/{id}/stock-in.
func (h *SuppliesHandler) StockIn(w http.ResponseWriter, r *http.Request) {
	h.stock(w, r, h.Commands.StockIn)
}

// StockOut handles POST /api/supplies/{id}/stock-out.
func (h *SuppliesHandler) StockOut(w http.ResponseWriter, r *http.Request) {
	h.stock(w, r, h.Commands.StockOut)
}

func (h *SuppliesHandler) stock(w http.ResponseWriter, r *http.Request,
	move func(ctx context.Context, req command.StockRequest) (*model.Supply, error)) {
	var req stockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := move(r.Context(), command.StockRequest{
		ID:     r.PathValue("id"),
		UserID: GetUser(r.Context()).ID,
		Amount: req.Amount,
		Reason: req.Reason,
	})
	if err != nil {
		commandError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Recalculate handles POST /api/supplies/recalculate-status.
func (h *SuppliesHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	msg, err := h.Commands.RecalculateStockStatus(r.Context())
	if err != nil {
		commandError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": msg})
}
