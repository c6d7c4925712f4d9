package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Supply is an inventory item tracked by quantity.
type Supply struct {
	ID              string              `db:"id" json:"id"`
	Name            string              `db:"name" json:"name"`
	Description     string              `db:"description" json:"description"`
	Category        string              `db:"category" json:"category"`
	Subcategory     string              `db:"subcategory" json:"subcategory"`
	Variation       string              `db:"variation" json:"variation"`
	Brand           string              `db:"brand" json:"brand"`
	Quantity        int                 `db:"quantity" json:"quantity"`
	Unit            string              `db:"unit" json:"unit"`
	MinQuantity     int                 `db:"min_quantity" json:"min_quantity"`
	Status          string              `db:"status" json:"status"`
	Location        string              `db:"location" json:"location"`
	Supplier        string              `db:"supplier" json:"supplier"`
	SupplierName    string              `db:"supplier_name" json:"supplier_name"`
	SupplierContact string              `db:"supplier_contact" json:"supplier_contact"`
	SupplierNotes   string              `db:"supplier_notes" json:"supplier_notes"`
	Cost            decimal.NullDecimal `db:"cost" json:"cost"`
	PiecesPerBulk   int                 `db:"pieces_per_bulk" json:"pieces_per_bulk"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// Stock statuses.
const (
	StatusLow      = "Low"
	StatusModerate = "Moderate"
	StatusHigh     = "High"
)

// SupplyPatch is a field mask over the editable, non-quantity attributes of a
// supply. A nil field is left unchanged.
type SupplyPatch struct {
	Name            *string          `db:"name" json:"name,omitempty"`
	Description     *string          `db:"description" json:"description,omitempty"`
	Category        *string          `db:"category" json:"category,omitempty"`
	Subcategory     *string          `db:"subcategory" json:"subcategory,omitempty"`
	Variation       *string          `db:"variation" json:"variation,omitempty"`
	Brand           *string          `db:"brand" json:"brand,omitempty"`
	Unit            *string          `db:"unit" json:"unit,omitempty"`
	MinQuantity     *int             `db:"min_quantity" json:"min_quantity,omitempty"`
	Location        *string          `db:"location" json:"location,omitempty"`
	Supplier        *string          `db:"supplier" json:"supplier,omitempty"`
	SupplierName    *string          `db:"supplier_name" json:"supplier_name,omitempty"`
	SupplierContact *string          `db:"supplier_contact" json:"supplier_contact,omitempty"`
	SupplierNotes   *string          `db:"supplier_notes" json:"supplier_notes,omitempty"`
	Cost            *decimal.Decimal `db:"cost" json:"cost,omitempty"`
	PiecesPerBulk   *int             `db:"pieces_per_bulk" json:"pieces_per_bulk,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p SupplyPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil &&
		p.Subcategory == nil && p.Variation == nil && p.Brand == nil &&
		p.Unit == nil && p.MinQuantity == nil && p.Location == nil &&
		p.Supplier == nil && p.SupplierName == nil && p.SupplierContact == nil &&
		p.SupplierNotes == nil && p.Cost == nil && p.PiecesPerBulk == nil
}

// DefaultPiecesPerBulk returns the usual pack size for a unit of measure.
func DefaultPiecesPerBulk(unit string) int {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "box", "bulk":
		return 12
	case "pack":
		return 10
	case "ream":
		return 500
	case "set":
		return 5
	case "carton":
		return 24
	case "roll", "bottle", "unit", "piece", "item":
		return 1
	default:
		return 12
	}
}

// StockValue returns quantity multiplied by cost, or zero when cost is unknown.
func (s *Supply) StockValue() decimal.Decimal {
	if !s.Cost.Valid {
		return decimal.Zero
	}
	return s.Cost.Decimal.Mul(decimal.NewFromInt(int64(s.Quantity)))
}
