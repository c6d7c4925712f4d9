package model

import "time"

// SupplyHistory is an append-only ledger entry for a supply mutation.
// SupplyID and UserID are plain data, not enforced references: the supply or
// the user may no longer exist.
type SupplyHistory struct {
	ID               string    `db:"id" json:"id"`
	SupplyID         string    `db:"supply_id" json:"supply_id"`
	SupplyName       string    `db:"supply_name" json:"-"`
	Action           string    `db:"action" json:"action"`
	Quantity         int       `db:"quantity" json:"quantity"`
	PreviousQuantity int       `db:"previous_quantity" json:"previous_quantity"`
	NewQuantity      int       `db:"new_quantity" json:"new_quantity"`
	Notes            string    `db:"notes" json:"notes"`
	UserID           string    `db:"user_id" json:"user_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// HistoryEntry is a history row with the supply and actor names resolved.
type HistoryEntry struct {
	SupplyHistory
	ItemName string `db:"item_name" json:"item_name"`
	UserName string `db:"user_name" json:"user_name"`
}

// History actions.
const (
	ActionStockIn     = "Stock In"
	ActionStockOut    = "Stock Out"
	ActionItemUpdated = "Item Updated"
	ActionDeleted     = "Delete"
)

// Placeholders rendered for history rows whose references no longer resolve.
const (
	DeletedItemName = "(deleted item)"
	UnknownUserName = "(unknown user)"
)

// PasswordResetToken is a single-use credential reset grant.
type PasswordResetToken struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Used      bool      `db:"used" json:"used"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
