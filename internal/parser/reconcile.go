package parser

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/calimingo/order-dashboard-service/internal/models"
)

// DefaultTolerance is the allowed absolute difference, in currency units,
// between the line-item sum and the document's declared grand total.
const DefaultTolerance = 0.01

// Reconciler validates the parsed line items against the grand total field.
// Its verdict is advisory: it is surfaced to the user as a warning and never
// blocks saving.
type Reconciler struct {
	tolerance decimal.Decimal
}

// NewReconciler creates a reconciler. A non-positive tolerance falls back
// to the default of 0.01.
func NewReconciler(tolerance float64) *Reconciler {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Reconciler{tolerance: decimal.NewFromFloat(tolerance)}
}

// Reconcile sums every line item's amount (category headers contribute
// nothing, non-positive amounts are excluded as noise) and compares the
// result against the grand total. A missing or zero grand total is its own
// failure reason, distinct from a numeric mismatch.
func (r *Reconciler) Reconcile(items []models.OrderItem, grandTotal *decimal.Decimal) models.ReconcileResult {
	itemsTotal := decimal.Zero
	for _, item := range items {
		if !item.IsLineItem() {
			continue
		}
		if item.Amount.IsPositive() {
			itemsTotal = itemsTotal.Add(item.Amount)
		}
	}

	if grandTotal == nil || grandTotal.IsZero() {
		return models.ReconcileResult{
			IsValid:    false,
			ItemsTotal: itemsTotal,
			Difference: itemsTotal,
			Message:    "grand total missing from document; cannot validate item amounts",
		}
	}

	difference := itemsTotal.Sub(*grandTotal).Abs()
	result := models.ReconcileResult{
		IsValid:    difference.LessThanOrEqual(r.tolerance),
		ItemsTotal: itemsTotal,
		Difference: difference,
	}
	if !result.IsValid {
		result.Message = fmt.Sprintf(
			"line items sum to %s but document grand total is %s (difference %s)",
			itemsTotal.StringFixed(2), grandTotal.StringFixed(2), difference.StringFixed(2),
		)
	}
	return result
}
