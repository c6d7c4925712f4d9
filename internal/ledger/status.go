package ledger

import "github.com/erazemk/ossms/internal/model"

// StatusFor derives the stock status of a supply:
// Low at or below the threshold, Moderate up to one and a half times the
// threshold (rounded down), High above that.
func StatusFor(quantity, minQuantity int) string {
	switch {
	case quantity <= minQuantity:
		return model.StatusLow
	case quantity <= minQuantity*3/2:
		return model.StatusModerate
	default:
		return model.StatusHigh
	}
}

// Clamp returns quantity, or zero if it is negative.
func Clamp(quantity int) int {
	return max(quantity, 0)
}

// Movement classifies a quantity change from previous to next.
// changed is false when the quantities are equal.
func Movement(previous, next int) (action string, magnitude int, changed bool) {
	switch {
	case next > previous:
		return model.ActionStockIn, next - previous, true
	case next < previous:
		return model.ActionStockOut, previous - next, true
	default:
		return "", 0, false
	}
}
