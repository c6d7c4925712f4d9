// Package ledger is the only writer of supply quantity and status and the
// only producer of supply history rows.
//
// The package-level functions run inside a caller's transaction and take the
// timestamp to record, so seeding can write backdated entries through the
// same rules. Ledger wraps them in store transactions for live commands.
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/erazemk/ossms/internal/errs"
	"github.com/erazemk/ossms/internal/model"
	"github.com/erazemk/ossms/internal/store"
)

// Default history notes.
const (
	NoteStockAdded    = "Stock added"
	NoteStockReleased = "Stock released"
	NoteItemUpdated   = "Item details updated"
	NoteDeleted       = "Item permanently removed from inventory"
	NoteInitialStock  = "Initial stock"
)

// MaxQuantity bounds stored quantities, thresholds and single movements so
// that quantity arithmetic and StatusFor cannot overflow.
const MaxQuantity = 1_000_000_000

// Change is a supply mutation request. Quantity is the requested absolute
// quantity; nil keeps the current one. The reasons become the history note
// for the matching direction.
type Change struct {
	Patch          model.SupplyPatch
	Quantity       *int
	StockInReason  string
	StockOutReason string
}

// CreateSupply inserts s and its initial "Stock In" row attributed to
// actorID. Status and pieces per bulk are derived when not meaningful.
func CreateSupply(ctx context.Context, q store.Querier, actorID string, s *model.Supply, reason string, at time.Time) (*model.SupplyHistory, error) {
	if err := requireActor(ctx, q, actorID); err != nil {
		return nil, err
	}
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return nil, errs.Validation("supply name is required")
	}
	if s.MinQuantity < 0 {
		return nil, errs.Validation("minimum quantity must not be negative")
	}
	if s.MinQuantity > MaxQuantity {
		return nil, errs.Validation("minimum quantity must not exceed %d", MaxQuantity)
	}
	if s.Quantity > MaxQuantity {
		return nil, errs.Validation("quantity must not exceed %d", MaxQuantity)
	}
	if s.PiecesPerBulk <= 0 {
		s.PiecesPerBulk = model.DefaultPiecesPerBulk(s.Unit)
	}
	s.Quantity = Clamp(s.Quantity)
	s.Status = StatusFor(s.Quantity, s.MinQuantity)
	s.CreatedAt, s.UpdatedAt = at, at

	if err := store.CreateSupply(ctx, q, s); err != nil {
		return nil, err
	}

	h := &model.SupplyHistory{
		SupplyID:         s.ID,
		SupplyName:       s.Name,
		Action:           model.ActionStockIn,
		Quantity:         s.Quantity,
		PreviousQuantity: 0,
		NewQuantity:      s.Quantity,
		Notes:            orDefault(reason, NoteInitialStock),
		UserID:           actorID,
		CreatedAt:        at,
	}
	if err := store.CreateSupplyHistory(ctx, q, h); err != nil {
		return nil, err
	}
	return h, nil
}

// UpdateSupply applies ch to supply id. It writes exactly one history row
// when anything was supplied: a stock movement if the quantity changed,
// otherwise "Item Updated". A request with nothing supplied only refreshes
// updated_at. The returned history is nil when no row was written.
func UpdateSupply(ctx context.Context, q store.Querier, actorID, id string, ch Change, at time.Time) (*model.Supply, *model.SupplyHistory, error) {
	target := func(current int) int {
		if ch.Quantity == nil {
			return current
		}
		return *ch.Quantity
	}
	return apply(ctx, q, actorID, id, ch.Patch, target, ch.StockInReason, ch.StockOutReason, at)
}

// AdjustStock adds delta to the quantity of supply id, clamping at zero.
// The recorded magnitude is the amount actually moved.
func AdjustStock(ctx context.Context, q store.Querier, actorID, id string, delta int, reason string, at time.Time) (*model.Supply, *model.SupplyHistory, error) {
	if delta == 0 {
		return nil, nil, errs.Validation("amount must be non-zero")
	}
	if delta > MaxQuantity {
		return nil, nil, errs.Validation("amount must not exceed %d", MaxQuantity)
	}
	// Stored quantities never exceed MaxQuantity, so a larger removal empties
	// the supply all the same.
	delta = max(delta, -MaxQuantity)
	target := func(current int) int { return current + delta }
	return apply(ctx, q, actorID, id, model.SupplyPatch{}, target, reason, reason, at)
}

func apply(ctx context.Context, q store.Querier, actorID, id string, patch model.SupplyPatch, target func(int) int, inReason, outReason string, at time.Time) (*model.Supply, *model.SupplyHistory, error) {
	if err := requireActor(ctx, q, actorID); err != nil {
		return nil, nil, err
	}
	if err := validatePatch(patch); err != nil {
		return nil, nil, err
	}

	current, err := store.GetSupply(ctx, q, id)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		return nil, nil, errs.NotFound("supply not found")
	}

	previous := current.Quantity
	next := Clamp(target(previous))
	if next > MaxQuantity {
		return nil, nil, errs.Validation("quantity must not exceed %d", MaxQuantity)
	}
	minQuantity := current.MinQuantity
	if patch.MinQuantity != nil {
		minQuantity = *patch.MinQuantity
	}

	if err := store.UpdateSupply(ctx, q, id, patch, next, StatusFor(next, minQuantity), at); err != nil {
		return nil, nil, err
	}

	name := current.Name
	if patch.Name != nil {
		name = *patch.Name
	}

	var h *model.SupplyHistory
	if action, magnitude, changed := Movement(previous, next); changed {
		note := orDefault(inReason, NoteStockAdded)
		if action == model.ActionStockOut {
			note = orDefault(outReason, NoteStockReleased)
		}
		h = &model.SupplyHistory{
			SupplyID:         id,
			SupplyName:       name,
			Action:           action,
			Quantity:         magnitude,
			PreviousQuantity: previous,
			NewQuantity:      next,
			Notes:            note,
			UserID:           actorID,
			CreatedAt:        at,
		}
	} else if !patch.IsEmpty() {
		h = &model.SupplyHistory{
			SupplyID:         id,
			SupplyName:       name,
			Action:           model.ActionItemUpdated,
			PreviousQuantity: previous,
			NewQuantity:      previous,
			Notes:            NoteItemUpdated,
			UserID:           actorID,
			CreatedAt:        at,
		}
	}
	if h != nil {
		if err := store.CreateSupplyHistory(ctx, q, h); err != nil {
			return nil, nil, err
		}
	}

	updated, err := store.GetSupply(ctx, q, id)
	if err != nil {
		return nil, nil, err
	}
	return updated, h, nil
}

// DeleteSupply records a terminal "Delete" row for supply id and then removes
// the supply.
func DeleteSupply(ctx context.Context, q store.Querier, actorID, id string, at time.Time) (*model.SupplyHistory, error) {
	if err := requireActor(ctx, q, actorID); err != nil {
		return nil, err
	}
	current, err := store.GetSupply(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errs.NotFound("supply not found")
	}

	h := &model.SupplyHistory{
		SupplyID:         id,
		SupplyName:       current.Name,
		Action:           model.ActionDeleted,
		Quantity:         current.Quantity,
		PreviousQuantity: current.Quantity,
		NewQuantity:      0,
		Notes:            NoteDeleted,
		UserID:           actorID,
		CreatedAt:        at,
	}
	if err := store.CreateSupplyHistory(ctx, q, h); err != nil {
		return nil, err
	}
	if err := store.DeleteSupply(ctx, q, id); err != nil {
		return nil, err
	}
	return h, nil
}

// RecalculateStatuses rewrites every stale stock status and returns how many
// supplies were checked.
func RecalculateStatuses(ctx context.Context, q store.Querier) (checked, changed int, err error) {
	supplies, err := store.ListSupplies(ctx, q)
	if err != nil {
		return 0, 0, err
	}
	for _, s := range supplies {
		status := StatusFor(s.Quantity, s.MinQuantity)
		if status == s.Status {
			continue
		}
		if err := store.SetSupplyStatus(ctx, q, s.ID, status); err != nil {
			return 0, 0, err
		}
		changed++
	}
	return len(supplies), changed, nil
}

func requireActor(ctx context.Context, q store.Querier, actorID string) error {
	if actorID == "" {
		return errs.Validation("acting user is required")
	}
	u, err := store.GetUser(ctx, q, actorID)
	if err != nil {
		return err
	}
	if u == nil {
		return errs.NotFound("user not found")
	}
	return nil
}

func validatePatch(p model.SupplyPatch) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return errs.Validation("supply name must not be empty")
	}
	if p.MinQuantity != nil && *p.MinQuantity < 0 {
		return errs.Validation("minimum quantity must not be negative")
	}
	if p.MinQuantity != nil && *p.MinQuantity > MaxQuantity {
		return errs.Validation("minimum quantity must not exceed %d", MaxQuantity)
	}
	if p.PiecesPerBulk != nil && *p.PiecesPerBulk <= 0 {
		return errs.Validation("pieces per bulk must be positive")
	}
	return nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
