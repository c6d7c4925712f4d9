package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/ossms/internal/model"
)

const historyColumns = `id, supply_id, supply_name, action, quantity, previous_quantity, new_quantity, notes, user_id, created_at`

// historyEntrySelect resolves the supply and actor names of history rows.
// Both are weak references: a vanished supply falls back to the name stored
// with the row, a vanished user to a placeholder.
const historyEntrySelect = `
SELECT sh.id, sh.supply_id, sh.supply_name, sh.action, sh.quantity, sh.previous_quantity,
       sh.new_quantity, sh.notes, sh.user_id, sh.created_at,
       COALESCE(s.name, NULLIF(sh.supply_name, ''), '` + model.DeletedItemName + `') AS item_name,
       COALESCE(NULLIF(TRIM(COALESCE(u.firstname, '') || ' ' || COALESCE(u.lastname, '')), ''),
                u.username, '` + model.UnknownUserName + `') AS user_name
FROM supply_histories sh
LEFT JOIN supplies s ON s.id = sh.supply_id
LEFT JOIN users u ON u.id = sh.user_id`

const historyOrder = ` ORDER BY sh.created_at DESC, sh.rowid DESC`

// CreateSupplyHistory appends a history row. ID and created_at are filled in
// when empty.
func CreateSupplyHistory(ctx context.Context, q Querier, h *model.SupplyHistory) error {
	if h.ID == "" {
		h.ID = newID()
	}
	h.CreatedAt = orNow(h.CreatedAt)

	_, err := q.NamedExecContext(ctx,
		`INSERT INTO supply_histories (`+historyColumns+`)
		 VALUES (:id, :supply_id, :supply_name, :action, :quantity, :previous_quantity, :new_quantity, :notes, :user_id, :created_at)`,
		h,
	)
	if err != nil {
		return fmt.Errorf("creating supply history: %w", err)
	}
	return nil
}

// GetSupplyHistory returns a single history row by ID.
func GetSupplyHistory(ctx context.Context, q Querier, id string) (*model.SupplyHistory, error) {
	h := &model.SupplyHistory{}
	err := q.GetContext(ctx, h, `SELECT `+historyColumns+` FROM supply_histories WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting supply history: %w", err)
	}
	return h, nil
}

// ListSupplyHistory returns all history rows, newest first.
func ListSupplyHistory(ctx context.Context, q Querier) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	if err := q.SelectContext(ctx, &entries, historyEntrySelect+historyOrder); err != nil {
		return nil, fmt.Errorf("listing supply history: %w", err)
	}
	return entries, nil
}

// ListSupplyHistoryForSupply returns the history of one supply, newest first.
func ListSupplyHistoryForSupply(ctx context.Context, q Querier, supplyID string) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := q.SelectContext(ctx, &entries, historyEntrySelect+` WHERE sh.supply_id = ?`+historyOrder, supplyID)
	if err != nil {
		return nil, fmt.Errorf("listing supply history for supply: %w", err)
	}
	return entries, nil
}

// ListSupplyHistoryBetween returns history rows created in [from, to),
// newest first.
func ListSupplyHistoryBetween(ctx context.Context, q Querier, from, to time.Time) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := q.SelectContext(ctx, &entries,
		historyEntrySelect+` WHERE julianday(sh.created_at) >= julianday(?) AND julianday(sh.created_at) < julianday(?)`+historyOrder,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing supply history by date: %w", err)
	}
	return entries, nil
}

// DeleteSupplyHistory removes a history row.
func DeleteSupplyHistory(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM supply_histories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting supply history: %w", err)
	}
	return nil
}
