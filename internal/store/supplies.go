package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/ossms/internal/model"
)

const supplyColumns = `id, name, description, category, subcategory, variation, brand, quantity, unit,
	min_quantity, status, location, supplier, supplier_name, supplier_contact, supplier_notes,
	cost, pieces_per_bulk, created_at, updated_at`

// CreateSupply inserts a supply. ID and timestamps are filled in when empty.
func CreateSupply(ctx context.Context, q Querier, s *model.Supply) error {
	if s.ID == "" {
		s.ID = newID()
	}
	s.CreatedAt = orNow(s.CreatedAt)
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}

	_, err := q.NamedExecContext(ctx,
		`INSERT INTO supplies (`+supplyColumns+`)
		 VALUES (:id, :name, :description, :category, :subcategory, :variation, :brand, :quantity, :unit,
		         :min_quantity, :status, :location, :supplier, :supplier_name, :supplier_contact, :supplier_notes,
		         :cost, :pieces_per_bulk, :created_at, :updated_at)`,
		s,
	)
	if err != nil {
		return fmt.Errorf("creating supply: %w", err)
	}
	return nil
}

// GetSupply returns a supply by ID.
func GetSupply(ctx context.Context, q Querier, id string) (*model.Supply, error) {
	s := &model.Supply{}
	err := q.GetContext(ctx, s, `SELECT `+supplyColumns+` FROM supplies WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting supply: %w", err)
	}
	return s, nil
}

// ListSupplies returns all supplies ordered by name.
func ListSupplies(ctx context.Context, q Querier) ([]model.Supply, error) {
	var supplies []model.Supply
	if err := q.SelectContext(ctx, &supplies, `SELECT `+supplyColumns+` FROM supplies ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("listing supplies: %w", err)
	}
	return supplies, nil
}

// ListSuppliesByStatus returns supplies with the given stock status.
func ListSuppliesByStatus(ctx context.Context, q Querier, status string) ([]model.Supply, error) {
	var supplies []model.Supply
	err := q.SelectContext(ctx, &supplies,
		`SELECT `+supplyColumns+` FROM supplies WHERE status = ? ORDER BY name, id`, status,
	)
	if err != nil {
		return nil, fmt.Errorf("listing supplies by status: %w", err)
	}
	return supplies, nil
}

// CountSuppliesByNames returns how many supplies carry one of the names.
func CountSuppliesByNames(ctx context.Context, q Querier, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM supplies WHERE name IN (?)`, names)
	if err != nil {
		return 0, fmt.Errorf("building supply name query: %w", err)
	}

	var n int
	if err := q.GetContext(ctx, &n, q.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("counting supplies by name: %w", err)
	}
	return n, nil
}

// supplyUpdate binds a field mask plus the ledger-owned columns.
type supplyUpdate struct {
	model.SupplyPatch
	ID        string    `db:"id"`
	Quantity  int       `db:"quantity"`
	Status    string    `db:"status"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UpdateSupply applies patch to a supply. Nil patch fields keep their stored
// value; quantity, status and updated_at are always written.
func UpdateSupply(ctx context.Context, q Querier, id string, patch model.SupplyPatch, quantity int, status string, updatedAt time.Time) error {
	arg := supplyUpdate{
		SupplyPatch: patch,
		ID:          id,
		Quantity:    quantity,
		Status:      status,
		UpdatedAt:   orNow(updatedAt),
	}
	_, err := q.NamedExecContext(ctx,
		`UPDATE supplies SET
		     name             = COALESCE(:name, name),
		     description      = COALESCE(:description, description),
		     category         = COALESCE(:category, category),
		     subcategory      = COALESCE(:subcategory, subcategory),
		     variation        = COALESCE(:variation, variation),
		     brand            = COALESCE(:brand, brand),
		     unit             = COALESCE(:unit, unit),
		     min_quantity     = COALESCE(:min_quantity, min_quantity),
		     location         = COALESCE(:location, location),
		     supplier         = COALESCE(:supplier, supplier),
		     supplier_name    = COALESCE(:supplier_name, supplier_name),
		     supplier_contact = COALESCE(:supplier_contact, supplier_contact),
		     supplier_notes   = COALESCE(:supplier_notes, supplier_notes),
		     cost             = COALESCE(:cost, cost),
		     pieces_per_bulk  = COALESCE(:pieces_per_bulk, pieces_per_bulk),
		     quantity         = :quantity,
		     status           = :status,
		     updated_at       = :updated_at
		 WHERE id = :id`,
		arg,
	)
	if err != nil {
		return fmt.Errorf("updating supply: %w", err)
	}
	return nil
}

// SetSupplyStatus overwrites the stored stock status.
func SetSupplyStatus(ctx context.Context, q Querier, id, status string) error {
	_, err := q.ExecContext(ctx, `UPDATE supplies SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("setting supply status: %w", err)
	}
	return nil
}

// DeleteSupply hard-deletes a supply. History rows are kept.
func DeleteSupply(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM supplies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting supply: %w", err)
	}
	return nil
}
