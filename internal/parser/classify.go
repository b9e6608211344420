package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/calimingo/order-dashboard-service/internal/models"
)

// Heuristic row classification. ProDBX has rendered these documents two ways
// over the years: an older markup that flags categories with bold/large-font
// spans, and a newer one that draws a border-top rule above them. One named
// predicate per variant keeps a third historical format additive.

const (
	// Inline-style markers the vendor's renderer emits.
	borderTopRule     = "border-top:solid 1px #666"
	letterSpacingRule = "letter-spacing"
	indentRule        = "padding-left: 30px"

	// Legacy class markers.
	legacyTableClass       = "pos"
	legacySubcategoryClass = "subcat"
)

var (
	modernCategoryRe = regexp.MustCompile(`^\d{4}\s+Calimingo`)
	addendumRe       = regexp.MustCompile(`(?i)addendum\s*#\s*(\d+)`)
	dateTokenRe      = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	nameCutRe        = regexp.MustCompile(`(?i)<br|<em`)
)

// summaryKeywords are trailer rows carrying document totals, not items.
var summaryKeywords = map[string]bool{
	"subtotal":            true,
	"tax":                 true,
	"grand total":         true,
	"current balance":     true,
	"current job balance": true,
}

func isBoldSpanStyle(style string) bool {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(s, "font-weight:bold") || strings.Contains(s, "font-size:14")
}

func hasClass(attr, class string) bool {
	for _, c := range strings.Fields(attr) {
		if c == class {
			return true
		}
	}
	return false
}

// isSummaryText reports whether a trimmed string is one of the trailer
// keywords (subtotal, tax, grand total, balances).
func isSummaryText(s string) bool {
	return summaryKeywords[strings.ToLower(strings.TrimSpace(s))]
}

// isSubtotalRow matches the one trailer variant that triggers the
// empty-category synthesis: a row whose first cell (or whole text) says
// "subtotal".
func isSubtotalRow(rd RowData) bool {
	if strings.EqualFold(strings.TrimSpace(rd.firstCellText()), "subtotal") {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(rd.allText()), "subtotal")
}

// isSummaryRow matches all discardable trailer/noise rows: total keywords,
// progress-payment column headers, and dated addendum reference lines.
func isSummaryRow(rd RowData) bool {
	if isSummaryText(rd.firstCellText()) || isSummaryText(rd.allText()) {
		return true
	}
	text := strings.ToLower(rd.allText())
	if isHeaderRowText(text) {
		return true
	}
	if isProgressHeaderText(text) {
		return true
	}
	return isAddendumDatedText(text)
}

// isProgressHeaderText spots the column-header row of a progress-payments
// block rendered inline rather than nested.
func isProgressHeaderText(lower string) bool {
	if !strings.Contains(lower, "phase") {
		return false
	}
	return strings.Contains(lower, "completed") ||
		strings.Contains(lower, "amt paid") ||
		strings.Contains(lower, "date paid")
}

// isAddendumDatedText spots an "Addendum #N ... 3/14/24" reference line.
func isAddendumDatedText(lower string) bool {
	return addendumRe.MatchString(lower) && dateTokenRe.MatchString(lower)
}

// classifySubcategory recognizes both subcategory markups and returns the
// raw (uncomposed) name.
func classifySubcategory(rd RowData) (string, bool) {
	// Legacy: the row or its first cell carries the marker class.
	if hasClass(rd.Class, legacySubcategoryClass) {
		return rd.firstCellText(), rd.firstCellText() != ""
	}
	for _, c := range rd.Cells {
		if hasClass(c.Class, legacySubcategoryClass) {
			return c.Text, c.Text != ""
		}
	}
	// Modern: empty lead cell, then a bordered letter-spaced cell with a
	// <strong> carrying the name.
	if len(rd.Cells) >= 2 && rd.Cells[0].Text == "" {
		second := rd.Cells[1]
		if strings.Contains(second.Style, borderTopRule) &&
			strings.Contains(second.Style, letterSpacingRule) &&
			second.HasStrong && second.StrongText != "" {
			return second.StrongText, true
		}
	}
	return "", false
}

// isLegacyCategoryMarkup recognizes the old bold-span category cell.
// The name comes from the bold span (or the <strong> when the cell pairs
// <strong> with <em>), the optional description from the <em>.
func isLegacyCategoryMarkup(cell CellData) (name, desc string, ok bool) {
	if cell.BoldSpanText != "" {
		return cell.BoldSpanText, cell.EmText, true
	}
	if cell.HasStrong && cell.StrongText != "" && cell.EmText != "" {
		return cell.StrongText, cell.EmText, true
	}
	return "", "", false
}

// isModernCategoryMarkup recognizes the newer border-top category cell.
// The name is the cell HTML up to the first <br> or <em>.
func isModernCategoryMarkup(cell CellData) (name, desc string, ok bool) {
	if !strings.Contains(cell.Style, borderTopRule) {
		return "", "", false
	}
	if !modernCategoryRe.MatchString(cell.Text) {
		return "", "", false
	}
	raw := cell.HTML
	if loc := nameCutRe.FindStringIndex(raw); loc != nil {
		raw = raw[:loc[0]]
	}
	return cleanDescription(raw), cell.EmText, true
}

// classifyMainCategory tries both category markups. A category row needs at
// least three cells with non-empty quantity and amount text.
func classifyMainCategory(rd RowData) (name, desc string, ok bool) {
	if len(rd.Cells) < 3 || rd.Cells[1].Text == "" || rd.Cells[2].Text == "" {
		return "", "", false
	}
	if n, d, legacy := isLegacyCategoryMarkup(rd.Cells[0]); legacy {
		return n, d, true
	}
	return isModernCategoryMarkup(rd.Cells[0])
}

// composeCategoryLabel joins code+name and optional description, always
// ending with a colon even when the source omits it.
func composeCategoryLabel(name, desc string) string {
	label := strings.TrimSpace(name)
	if desc = strings.TrimSpace(desc); desc != "" && !strings.Contains(label, desc) {
		label += " - " + desc
	}
	label = strings.TrimSuffix(label, ":")
	return label + ":"
}

// categoryBaseName is the label without its trailing colon, used for the
// synthetic line item of a childless category.
func categoryBaseName(label string) string {
	return strings.TrimSuffix(label, ":")
}

// isIndentedCell reports the structural indent marker that promotes a
// zero-amount row to a genuine line item.
func isIndentedCell(cell CellData) bool {
	return strings.Contains(cell.Style, indentRule)
}

// isHeaderRowText spots the DESCRIPTION/QTY column-header row so it is not
// mistaken for a line item.
func isHeaderRowText(desc string) bool {
	lower := strings.ToLower(desc)
	return strings.Contains(lower, "description") && strings.Contains(lower, "qty")
}

// extractAddendums scans a nested table's rows for addendum entries. The
// amount is read from the third sub-cell; when that cell does not hold a
// usable value, the largest plausible number anywhere in the row is used.
func extractAddendums(nestedRows [][]string) []models.AddendumBlock {
	var blocks []models.AddendumBlock
	for _, cells := range nestedRows {
		joined := strings.Join(cells, " ")
		m := addendumRe.FindStringSubmatch(joined)
		if m == nil {
			continue
		}
		num := 0
		for _, r := range m[1] {
			num = num*10 + int(r-'0')
		}

		amount := decimal.Zero
		if len(cells) >= 3 {
			amount = parseMoney(cells[2])
		}
		if !amount.IsPositive() {
			amount = largestPlausibleAmount(cells)
		}
		blocks = append(blocks, models.AddendumBlock{AddendumNumber: num, Amount: amount})
	}
	return blocks
}
