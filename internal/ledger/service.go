package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/erazemk/ossms/internal/errs"
	"github.com/erazemk/ossms/internal/metrics"
	"github.com/erazemk/ossms/internal/model"
	"github.com/erazemk/ossms/internal/store"
)

// Ledger runs supply mutations as single store transactions.
type Ledger struct {
	store *store.Store
	now   func() time.Time
}

// New returns a Ledger over st.
func New(st *store.Store) *Ledger {
	return &Ledger{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new supply with its initial stock entry.
func (l *Ledger) Create(ctx context.Context, actorID string, s *model.Supply, reason string) (*model.Supply, error) {
	var h *model.SupplyHistory
	err := l.store.Update(ctx, func(q store.Querier) error {
		var err error
		h, err = CreateSupply(ctx, q, actorID, s, reason, l.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	recorded(h)
	slog.Info("supply created", "supply_id", s.ID, "name", s.Name, "quantity", s.Quantity, "user_id", actorID)
	return s, nil
}

// Update applies a change request to a supply.
func (l *Ledger) Update(ctx context.Context, actorID, id string, ch Change) (*model.Supply, error) {
	var (
		s *model.Supply
		h *model.SupplyHistory
	)
	err := l.store.Update(ctx, func(q store.Querier) error {
		var err error
		s, h, err = UpdateSupply(ctx, q, actorID, id, ch, l.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	recorded(h)
	if h != nil {
		slog.Info("supply updated", "supply_id", id, "action", h.Action,
			"previous", h.PreviousQuantity, "new", h.NewQuantity, "user_id", actorID)
	}
	return s, nil
}

// StockIn adds amount units to a supply.
func (l *Ledger) StockIn(ctx context.Context, actorID, id string, amount int, reason string) (*model.Supply, error) {
	if amount <= 0 {
		return nil, errs.Validation("amount must be positive")
	}
	return l.adjust(ctx, actorID, id, amount, reason)
}

// StockOut removes up to amount units from a supply. Removing more than is
// held empties it.
func (l *Ledger) StockOut(ctx context.Context, actorID, id string, amount int, reason string) (*model.Supply, error) {
	if amount <= 0 {
		return nil, errs.Validation("amount must be positive")
	}
	return l.adjust(ctx, actorID, id, -amount, reason)
}

func (l *Ledger) adjust(ctx context.Context, actorID, id string, delta int, reason string) (*model.Supply, error) {
	var (
		s *model.Supply
		h *model.SupplyHistory
	)
	err := l.store.Update(ctx, func(q store.Querier) error {
		var err error
		s, h, err = AdjustStock(ctx, q, actorID, id, delta, reason, l.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	recorded(h)
	if h != nil {
		slog.Info("stock adjusted", "supply_id", id, "action", h.Action,
			"previous", h.PreviousQuantity, "new", h.NewQuantity, "user_id", actorID)
	}
	return s, nil
}

// Delete removes a supply after recording its deletion.
func (l *Ledger) Delete(ctx context.Context, actorID, id string) error {
	var h *model.SupplyHistory
	err := l.store.Update(ctx, func(q store.Querier) error {
		var err error
		h, err = DeleteSupply(ctx, q, actorID, id, l.now())
		return err
	})
	if err != nil {
		return err
	}

	recorded(h)
	slog.Info("supply deleted", "supply_id", id, "name", h.SupplyName, "quantity", h.PreviousQuantity, "user_id", actorID)
	return nil
}

// Recalculate recomputes the stock status of every supply and returns how
// many supplies were checked.
func (l *Ledger) Recalculate(ctx context.Context) (int, error) {
	var checked, changed int
	err := l.store.Update(ctx, func(q store.Querier) error {
		var err error
		checked, changed, err = RecalculateStatuses(ctx, q)
		return err
	})
	if err != nil {
		return 0, err
	}

	slog.Info("stock status recalculated", "checked", checked, "changed", changed)
	return checked, nil
}

// PurgeHistory deletes a history row. The purge itself is not recorded in
// the history.
func (l *Ledger) PurgeHistory(ctx context.Context, actorID, historyID string) error {
	var h *model.SupplyHistory
	err := l.store.Update(ctx, func(q store.Querier) error {
		var err error
		h, err = store.GetSupplyHistory(ctx, q, historyID)
		if err != nil {
			return err
		}
		if h == nil {
			return errs.NotFound("history entry not found")
		}
		return store.DeleteSupplyHistory(ctx, q, historyID)
	})
	if err != nil {
		return err
	}

	slog.Warn("supply history entry purged", "history_id", historyID, "supply_id", h.SupplyID,
		"action", h.Action, "user_id", actorID)
	return nil
}

// Supplies returns every supply ordered by name.
func (l *Ledger) Supplies(ctx context.Context) ([]model.Supply, error) {
	var supplies []model.Supply
	err := l.store.View(ctx, func(q store.Querier) error {
		var err error
		supplies, err = store.ListSupplies(ctx, q)
		return err
	})
	return supplies, err
}

// Supply returns one supply.
func (l *Ledger) Supply(ctx context.Context, id string) (*model.Supply, error) {
	var s *model.Supply
	err := l.store.View(ctx, func(q store.Querier) error {
		var err error
		s, err = store.GetSupply(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errs.NotFound("supply not found")
	}
	return s, nil
}

// LowStock returns the supplies whose status is Low.
func (l *Ledger) LowStock(ctx context.Context) ([]model.Supply, error) {
	var supplies []model.Supply
	err := l.store.View(ctx, func(q store.Querier) error {
		var err error
		supplies, err = store.ListSuppliesByStatus(ctx, q, model.StatusLow)
		return err
	})
	return supplies, err
}

// HistoryFilter narrows History to one supply and/or the range [From, To).
// Zero fields do not filter.
type HistoryFilter struct {
	SupplyID string
	From     time.Time
	To       time.Time
}

// History returns history entries newest first with supply and actor names
// resolved.
func (l *Ledger) History(ctx context.Context, f HistoryFilter) ([]model.HistoryEntry, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, errs.Validation("end of range is before its start")
	}

	var entries []model.HistoryEntry
	err := l.store.View(ctx, func(q store.Querier) error {
		var err error
		switch {
		case f.SupplyID != "":
			entries, err = store.ListSupplyHistoryForSupply(ctx, q, f.SupplyID)
		case !f.From.IsZero() || !f.To.IsZero():
			to := f.To
			if to.IsZero() {
				to = l.now()
			}
			entries, err = store.ListSupplyHistoryBetween(ctx, q, f.From, to)
		default:
			entries, err = store.ListSupplyHistory(ctx, q)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if f.SupplyID != "" && (!f.From.IsZero() || !f.To.IsZero()) {
		entries = within(entries, f.From, f.To)
	}
	return entries, nil
}

func within(entries []model.HistoryEntry, from, to time.Time) []model.HistoryEntry {
	out := entries[:0]
	for _, e := range entries {
		if !from.IsZero() && e.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func recorded(h *model.SupplyHistory) {
	if h != nil {
		metrics.HistoryWritten(h.Action)
	}
}
