package parser

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrTableNotFound is the parser's only fatal error: neither locator
// strategy found an order table, so no partial result is meaningful.
var ErrTableNotFound = errors.New("order table not found")

// findOrderTable locates the line-item table. Older documents tag it with
// the "pos" class; newer ones are found structurally, by the first table
// containing a DESCRIPTION / QTY / EXTENDED header row.
func findOrderTable(doc *goquery.Document) (*goquery.Selection, error) {
	if legacy := doc.Find("table." + legacyTableClass).First(); legacy.Length() > 0 {
		return legacy, nil
	}

	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if hasOrderHeaderRow(table) {
			found = table
			return false
		}
		return true
	})
	if found == nil {
		return nil, ErrTableNotFound
	}
	return found, nil
}

// hasOrderHeaderRow reports whether any row's first three cells read
// DESCRIPTION, QTY and EXTENDED, case-insensitively and in that order.
func hasOrderHeaderRow(table *goquery.Selection) bool {
	match := false
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find("td, th")
		if cells.Length() < 3 {
			return true
		}
		c0 := strings.ToUpper(cells.Eq(0).Text())
		c1 := strings.ToUpper(cells.Eq(1).Text())
		c2 := strings.ToUpper(cells.Eq(2).Text())
		if strings.Contains(c0, "DESCRIPTION") &&
			strings.Contains(c1, "QTY") &&
			strings.Contains(c2, "EXTENDED") {
			match = true
			return false
		}
		return true
	})
	return match
}
