// Package report renders plain-text inventory reports.
package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/erazemk/ossms/internal/model"
)

const nameWidth = 24

// LowStock writes the supplies at or below their minimum quantity.
func LowStock(w io.Writer, supplies []model.Supply) error {
	if _, err := fmt.Fprintf(w, "LOW STOCK REPORT\n%-*s %6s %6s  %-8s %s\n",
		nameWidth, "NAME", "QTY", "MIN", "UNIT", "LOCATION"); err != nil {
		return err
	}
	for _, s := range supplies {
		if _, err := fmt.Fprintf(w, "%-*s %6d %6d  %-8s %s\n",
			nameWidth, clip(s.Name), s.Quantity, s.MinQuantity, s.Unit, s.Location); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d item(s) at or below minimum quantity\n", len(supplies))
	return err
}

// Valuation writes quantity times cost per supply and the grand total.
// Supplies without a cost count as zero.
func Valuation(w io.Writer, supplies []model.Supply) error {
	if _, err := fmt.Fprintf(w, "STOCK VALUATION\n%-*s %6s %10s %12s\n",
		nameWidth, "NAME", "QTY", "COST", "VALUE"); err != nil {
		return err
	}

	total := decimal.Zero
	for _, s := range supplies {
		cost, value := "-", "-"
		if s.Cost.Valid {
			v := s.StockValue()
			total = total.Add(v)
			cost, value = s.Cost.Decimal.StringFixed(2), v.StringFixed(2)
		}
		if _, err := fmt.Fprintf(w, "%-*s %6d %10s %12s\n",
			nameWidth, clip(s.Name), s.Quantity, cost, value); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%-*s %6s %10s %12s\n", nameWidth, "TOTAL", "", "", total.StringFixed(2))
	return err
}

func clip(name string) string {
	if len(name) <= nameWidth {
		return name
	}
	return name[:nameWidth-3] + "..."
}
