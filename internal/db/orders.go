package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calimingo/order-dashboard-service/internal/models"
)

// SaveOrder inserts a parsed order and fills in the generated ID and
// creation timestamp.
func SaveOrder(ctx context.Context, order *models.SavedOrder) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	query := `
		INSERT INTO orders (
			id, order_no, client_name, address,
			grand_total, items_total, totals_valid,
			document_url, items_json
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := Pool.QueryRow(ctx, query,
		order.ID, order.OrderNo, order.ClientName, order.Address,
		order.GrandTotal, order.ItemsTotal, order.TotalsValid,
		order.DocumentURL, order.ItemsJSON,
	).Scan(&order.CreatedAt)

	return err
}

func GetOrders(ctx context.Context, limit int) ([]models.SavedOrder, error) {
	query := `
		SELECT id, COALESCE(order_no, ''), COALESCE(client_name, ''), COALESCE(address, ''),
		       COALESCE(grand_total, 0), COALESCE(items_total, 0), totals_valid,
		       COALESCE(document_url, ''), created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.SavedOrder
	for rows.Next() {
		var o models.SavedOrder
		err := rows.Scan(
			&o.ID, &o.OrderNo, &o.ClientName, &o.Address,
			&o.GrandTotal, &o.ItemsTotal, &o.TotalsValid,
			&o.DocumentURL, &o.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, nil
}

// GetOrderByID retrieves a single saved order, items included.
func GetOrderByID(ctx context.Context, orderID string) (*models.SavedOrder, error) {
	query := `
		SELECT id, COALESCE(order_no, ''), COALESCE(client_name, ''), COALESCE(address, ''),
		       COALESCE(grand_total, 0), COALESCE(items_total, 0), totals_valid,
		       COALESCE(document_url, ''), COALESCE(items_json::text, ''), created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o models.SavedOrder
	err := Pool.QueryRow(ctx, query, orderID).Scan(
		&o.ID, &o.OrderNo, &o.ClientName, &o.Address,
		&o.GrandTotal, &o.ItemsTotal, &o.TotalsValid,
		&o.DocumentURL, &o.ItemsJSON, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// allowedOrderFields limits dynamic updates to columns the dashboard may
// actually edit.
var allowedOrderFields = map[string]bool{
	"order_no":     true,
	"client_name":  true,
	"address":      true,
	"grand_total":  true,
	"items_total":  true,
	"totals_valid": true,
	"document_url": true,
	"items_json":   true,
}

// UpdateOrder updates order fields
func UpdateOrder(ctx context.Context, orderID string, updates map[string]interface{}) error {
	// Build dynamic UPDATE query
	sets := []string{}
	args := []interface{}{}
	i := 1
	for key, value := range updates {
		if !allowedOrderFields[key] {
			return fmt.Errorf("field %q cannot be updated", key)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", key, i))
		args = append(args, value)
		i++
	}
	if len(sets) == 0 {
		return fmt.Errorf("no fields to update")
	}

	// Add updated_at
	sets = append(sets, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now())
	i++

	// Add order ID as last parameter
	args = append(args, orderID)

	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d",
		strings.Join(sets, ", "), i)

	_, err := Pool.Exec(ctx, query, args...)
	return err
}

// DeleteOrder removes a saved order
func DeleteOrder(ctx context.Context, orderID string) error {
	_, err := Pool.Exec(ctx, "DELETE FROM orders WHERE id = $1", orderID)
	return err
}

// MonthlyStats represents monthly statistics
type MonthlyStats struct {
	Month         string  `json:"month"`
	TotalOrders   int     `json:"total_orders"`
	TotalAmount   float64 `json:"total_amount"`
	InvalidTotals int     `json:"invalid_totals"`
}

// GetMonthlyStats returns statistics for current month
func GetMonthlyStats(ctx context.Context) (*MonthlyStats, error) {
	query := `
		SELECT
			COUNT(*) as total_orders,
			COALESCE(SUM(grand_total), 0) as total_amount,
			COUNT(*) FILTER (WHERE NOT totals_valid) as invalid_totals
		FROM orders
		WHERE DATE_TRUNC('month', created_at) = DATE_TRUNC('month', CURRENT_DATE)
	`

	stats := &MonthlyStats{
		Month: time.Now().Format("2006-01"),
	}

	err := Pool.QueryRow(ctx, query).Scan(
		&stats.TotalOrders,
		&stats.TotalAmount,
		&stats.InvalidTotals,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
