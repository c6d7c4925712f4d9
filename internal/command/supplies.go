package command

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/ossms/internal/errs"
	"github.com/erazemk/ossms/internal/ledger"
	"github.com/erazemk/ossms/internal/metrics"
	"github.com/erazemk/ossms/internal/model"
)

type CreateSupplyRequest struct {
	UserID          string           `json:"user_id" validate:"required"`
	Name            string           `json:"name" validate:"required"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	Subcategory     string           `json:"subcategory"`
	Variation       string           `json:"variation"`
	Brand           string           `json:"brand"`
	Quantity        int              `json:"quantity" validate:"lte=1000000000"`
	Unit            string           `json:"unit"`
	MinQuantity     int              `json:"min_quantity" validate:"gte=0,lte=1000000000"`
	Location        string           `json:"location"`
	Supplier        string           `json:"supplier"`
	SupplierName    string           `json:"supplier_name"`
	SupplierContact string           `json:"supplier_contact"`
	SupplierNotes   string           `json:"supplier_notes"`
	Cost            *decimal.Decimal `json:"cost"`
	PiecesPerBulk   int              `json:"pieces_per_bulk" validate:"gte=0"`
	Notes           string           `json:"notes"`
}

// UpdateSupplyRequest carries a field mask plus an optional absolute
// quantity. Reasons become the history note of a resulting movement.
type UpdateSupplyRequest struct {
	ID     string `json:"id" validate:"required"`
	UserID string `json:"user_id" validate:"required"`
	model.SupplyPatch
	Quantity       *int   `json:"quantity,omitempty" validate:"omitempty,lte=1000000000"`
	StockInReason  string `json:"stock_in_reason,omitempty"`
	StockOutReason string `json:"stock_out_reason,omitempty"`
}

type DeleteSupplyRequest struct {
	ID     string `json:"id" validate:"required"`
	UserID string `json:"user_id" validate:"required"`
}

type StockRequest struct {
	ID     string `json:"id" validate:"required"`
	UserID string `json:"user_id" validate:"required"`
	Amount int    `json:"amount" validate:"gt=0,lte=1000000000"`
	Reason string `json:"reason"`
}

// ListSupplies returns every supply.
func (s *Service) ListSupplies(ctx context.Context) ([]model.Supply, error) {
	defer metrics.ObserveCommand("list_supplies", time.Now())

	supplies, err := s.ledger.Supplies(ctx)
	if err != nil {
		return nil, public(ctx, "list_supplies", err)
	}
	return supplies, nil
}

// GetSupply returns one supply.
func (s *Service) GetSupply(ctx context.Context, id string) (*model.Supply, error) {
	defer metrics.ObserveCommand("get_supply", time.Now())

	sup, err := s.ledger.Supply(ctx, id)
	if err != nil {
		return nil, public(ctx, "get_supply", err)
	}
	return sup, nil
}

// LowStock returns the supplies currently at or below their threshold.
func (s *Service) LowStock(ctx context.Context) ([]model.Supply, error) {
	defer metrics.ObserveCommand("low_stock", time.Now())

	supplies, err := s.ledger.LowStock(ctx)
	if err != nil {
		return nil, public(ctx, "low_stock", err)
	}
	return supplies, nil
}

// CreateSupply creates a supply with its initial stock entry and returns its
// id.
func (s *Service) CreateSupply(ctx context.Context, req CreateSupplyRequest) (string, error) {
	defer metrics.ObserveCommand("create_supply", time.Now())

	if err := check(req); err != nil {
		return "", err
	}
	if req.Cost != nil && req.Cost.IsNegative() {
		return "", errs.Validation("cost must not be negative")
	}

	sup := &model.Supply{
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		Subcategory:     req.Subcategory,
		Variation:       req.Variation,
		Brand:           req.Brand,
		Quantity:        req.Quantity,
		Unit:            req.Unit,
		MinQuantity:     req.MinQuantity,
		Location:        req.Location,
		Supplier:        req.Supplier,
		SupplierName:    req.SupplierName,
		SupplierContact: req.SupplierContact,
		SupplierNotes:   req.SupplierNotes,
		PiecesPerBulk:   req.PiecesPerBulk,
	}
	if req.Cost != nil {
		sup.Cost = decimal.NewNullDecimal(*req.Cost)
	}

	created, err := s.ledger.Create(ctx, req.UserID, sup, req.Notes)
	if err != nil {
		return "", public(ctx, "create_supply", err)
	}
	return created.ID, nil
}

// UpdateSupply applies a change request to a supply.
func (s *Service) UpdateSupply(ctx context.Context, req UpdateSupplyRequest) (string, error) {
	defer metrics.ObserveCommand("update_supply", time.Now())

	if err := check(req); err != nil {
		return "", err
	}
	if req.Cost != nil && req.Cost.IsNegative() {
		return "", errs.Validation("cost must not be negative")
	}

	_, err := s.ledger.Update(ctx, req.UserID, req.ID, ledger.Change{
		Patch:          req.SupplyPatch,
		Quantity:       req.Quantity,
		StockInReason:  req.StockInReason,
		StockOutReason: req.StockOutReason,
	})
	if err != nil {
		return "", public(ctx, "update_supply", err)
	}
	return "Supply updated successfully", nil
}

// DeleteSupply removes a supply after recording its terminal history entry.
func (s *Service) DeleteSupply(ctx context.Context, req DeleteSupplyRequest) (string, error) {
	defer metrics.ObserveCommand("delete_supply", time.Now())

	if err := check(req); err != nil {
		return "", err
	}
	if err := s.ledger.Delete(ctx, req.UserID, req.ID); err != nil {
		return "", public(ctx, "delete_supply", err)
	}
	return "Supply deleted successfully", nil
}

// StockIn adds stock to a supply.
func (s *Service) StockIn(ctx context.Context, req StockRequest) (*model.Supply, error) {
	defer metrics.ObserveCommand("stock_in", time.Now())

	if err := check(req); err != nil {
		return nil, err
	}
	sup, err := s.ledger.StockIn(ctx, req.UserID, req.ID, req.Amount, req.Reason)
	if err != nil {
		return nil, public(ctx, "stock_in", err)
	}
	return sup, nil
}

// StockOut releases stock from a supply, stopping at zero.
func (s *Service) StockOut(ctx context.Context, req StockRequest) (*model.Supply, error) {
	defer metrics.ObserveCommand("stock_out", time.Now())

	if err := check(req); err != nil {
		return nil, err
	}
	sup, err := s.ledger.StockOut(ctx, req.UserID, req.ID, req.Amount, req.Reason)
	if err != nil {
		return nil, public(ctx, "stock_out", err)
	}
	return sup, nil
}

// RecalculateStockStatus rewrites stale stock statuses.
func (s *Service) RecalculateStockStatus(ctx context.Context) (string, error) {
	defer metrics.ObserveCommand("recalculate_stock_status", time.Now())

	n, err := s.ledger.Recalculate(ctx)
	if err != nil {
		return "", public(ctx, "recalculate_stock_status", err)
	}
	return fmt.Sprintf("Stock status recalculated for %d items", n), nil
}
