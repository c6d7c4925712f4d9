package command

import (
	"context"
	"time"

	"github.com/erazemk/ossms/internal/ledger"
	"github.com/erazemk/ossms/internal/metrics"
	"github.com/erazemk/ossms/internal/model"
)

// HistoryRequest optionally narrows the history listing.
type HistoryRequest struct {
	SupplyID string    `json:"supply_id,omitempty"`
	From     time.Time `json:"from,omitzero"`
	To       time.Time `json:"to,omitzero"`
}

type DeleteHistoryRequest struct {
	ID     string `json:"id" validate:"required"`
	UserID string `json:"user_id" validate:"required"`
}

// ListSupplyHistory returns history entries newest first, with the supply
// and actor names resolved.
func (s *Service) ListSupplyHistory(ctx context.Context, req HistoryRequest) ([]model.HistoryEntry, error) {
	defer metrics.ObserveCommand("list_supply_history", time.Now())

	entries, err := s.ledger.History(ctx, ledger.HistoryFilter{
		SupplyID: req.SupplyID,
		From:     req.From,
		To:       req.To,
	})
	if err != nil {
		return nil, public(ctx, "list_supply_history", err)
	}
	return entries, nil
}

// DeleteSupplyHistory purges one history entry.
func (s *Service) DeleteSupplyHistory(ctx context.Context, req DeleteHistoryRequest) (string, error) {
	defer metrics.ObserveCommand("delete_supply_history", time.Now())

	if err := check(req); err != nil {
		return "", err
	}
	if err := s.ledger.PurgeHistory(ctx, req.UserID, req.ID); err != nil {
		return "", public(ctx, "delete_supply_history", err)
	}
	return "History record deleted successfully", nil
}
