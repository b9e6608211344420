package parser

import (
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/calimingo/order-dashboard-service/internal/models"
)

// ExtractOrderItems parses the HTML view of an order document into the
// ordered item sequence: category headers, subcategory headers and priced
// line items, in source order. The only error is ErrTableNotFound (wrapped);
// unrecognized rows are dropped, not errored.
func ExtractOrderItems(html string) ([]models.OrderItem, error) {
	items, _, err := extractOrderItems(html)
	return items, err
}

func extractOrderItems(html string) ([]models.OrderItem, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse document HTML: %w", err)
	}

	table, err := findOrderTable(doc)
	if err != nil {
		return nil, 0, err
	}

	selections := directRows(table)
	rows := make([]RowData, len(selections))
	for i, sel := range selections {
		rows[i] = snapshotRow(sel)
	}

	items := []models.OrderItem{}
	state := categoryState{}
	dropped := 0
	for i, rd := range rows {
		nextIsSubtotal := i+1 < len(rows) && isSubtotalRow(rows[i+1])
		res := classifyStep(state, rd, nextIsSubtotal)
		items = append(items, res.emitted...)
		state = res.state
		if res.dropped {
			dropped++
			log.Printf("[Parser] Dropped unclassified row %d: %q", i, rd.firstCellText())
		}
		if res.stop {
			break
		}
	}

	return items, dropped, nil
}

// ParseDocument runs both extraction passes over the same document — the
// field extractor on the text view, the item parser on the HTML view — and
// reconciles the line-item sum against the declared grand total.
func ParseDocument(html, text string, tolerance float64) (*models.ParseResult, error) {
	items, dropped, err := extractOrderItems(html)
	if err != nil {
		return nil, err
	}

	location := ExtractLocation(text)
	reconciled := NewReconciler(tolerance).Reconcile(items, location.GrandTotal)
	if !reconciled.IsValid {
		log.Printf("[Parser] Order %s totals check: %s", location.OrderNo, reconciled.Message)
	}

	return &models.ParseResult{
		Location:    location,
		Items:       items,
		Reconciled:  reconciled,
		DroppedRows: dropped,
	}, nil
}
