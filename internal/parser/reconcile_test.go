package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calimingo/order-dashboard-service/internal/models"
)

func lineItem(amount string) models.OrderItem {
	return models.OrderItem{
		Kind:   models.KindLineItem,
		Label:  "item",
		Amount: decimal.RequireFromString(amount),
	}
}

func TestReconcileRoundTrip(t *testing.T) {
	items := []models.OrderItem{
		models.NewMainCategory("0020 Calimingo Pools:"),
		lineItem("100.00"),
		lineItem("250.50"),
		lineItem("249.50"),
	}
	total := decimal.RequireFromString("600.00")

	result := NewReconciler(0).Reconcile(items, &total)
	assert.True(t, result.IsValid)
	assert.True(t, decimal.RequireFromString("600").Equal(result.ItemsTotal))
	assert.True(t, result.Difference.IsZero())
	assert.Empty(t, result.Message)
}

func TestReconcileMismatch(t *testing.T) {
	items := []models.OrderItem{lineItem("600.00")}
	total := decimal.RequireFromString("601.00")

	result := NewReconciler(0.01).Reconcile(items, &total)
	assert.False(t, result.IsValid)
	assert.True(t, decimal.RequireFromString("1").Equal(result.Difference), "difference = %s", result.Difference)
	assert.Contains(t, result.Message, "600.00")
	assert.Contains(t, result.Message, "601.00")
}

func TestReconcileWithinTolerance(t *testing.T) {
	items := []models.OrderItem{lineItem("599.99")}
	total := decimal.RequireFromString("600.00")

	result := NewReconciler(0.01).Reconcile(items, &total)
	assert.True(t, result.IsValid)
}

func TestReconcileMissingGrandTotal(t *testing.T) {
	items := []models.OrderItem{lineItem("100.00")}

	// Missing and zero grand totals are the same failure reason, distinct
	// from a numeric mismatch.
	for name, total := range map[string]*decimal.Decimal{
		"nil":  nil,
		"zero": decimalPtr("0"),
	} {
		t.Run(name, func(t *testing.T) {
			result := NewReconciler(0).Reconcile(items, total)
			assert.False(t, result.IsValid)
			assert.Contains(t, result.Message, "grand total missing")
		})
	}
}

func TestReconcileExcludesNonPositiveAndHeaderAmounts(t *testing.T) {
	items := []models.OrderItem{
		models.NewMainCategory("Cat:"),
		models.NewSubcategory("Sub:"),
		lineItem("100.00"),
		lineItem("-40.00"), // negative-amount noise must not reduce the sum
		lineItem("0"),
	}
	total := decimal.RequireFromString("100.00")

	result := NewReconciler(0).Reconcile(items, &total)
	require.True(t, result.IsValid)
	assert.True(t, decimal.RequireFromString("100").Equal(result.ItemsTotal))
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
