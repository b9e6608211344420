package parser

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/calimingo/order-dashboard-service/internal/models"
)

// categoryState is the implicit hierarchy threaded across the row scan:
// the main category and subcategory labels in effect at this point of the
// document. Values are immutable; every step returns a fresh state.
type categoryState struct {
	mainCategory *string
	subCategory  *string
}

// stepResult is what one classification step yields.
type stepResult struct {
	state   categoryState
	emitted []models.OrderItem
	stop    bool
	dropped bool // a plausible row that matched no rule
}

// classifyStep folds one row into the category state, emitting zero or more
// order items. Precedence follows the document's structure: nested addendum
// table, empty row, trailer row, subcategory, main category, line item.
// nextIsSubtotal flags a category immediately followed by a subtotal row,
// which means the category's own cells carry its only value.
func classifyStep(st categoryState, rd RowData, nextIsSubtotal bool) stepResult {
	// 1. Nested progress-payments table. Always the last structural feature
	// in these documents, so processing stops here.
	if rd.HasNestedTable() {
		res := stepResult{state: st, stop: true}
		for _, block := range extractAddendums(rd.NestedRows) {
			label := fmt.Sprintf("Addendum #%d:", block.AddendumNumber)
			main := label
			res.emitted = append(res.emitted,
				models.NewMainCategory(label),
				models.NewLineItem(categoryBaseName(label), decimal.NewFromInt(1), block.Amount, &main, nil),
			)
		}
		res.state = categoryState{}
		return res
	}

	// 2. Blank separator row.
	if len(rd.Cells) == 0 {
		return stepResult{state: st}
	}

	// 3. Summary/trailer noise. Some variants place trailer rows before real
	// content, so these skip rather than stop.
	if isSummaryRow(rd) {
		return stepResult{state: st}
	}

	// 4. Subcategory header. Does not reset the main category.
	if name, ok := classifySubcategory(rd); ok {
		label := composeCategoryLabel(name, "")
		next := categoryState{mainCategory: st.mainCategory, subCategory: &label}
		return stepResult{
			state:   next,
			emitted: []models.OrderItem{models.NewSubcategory(label)},
		}
	}

	// 5. Main category header. Resets the subcategory.
	if name, desc, ok := classifyMainCategory(rd); ok {
		label := composeCategoryLabel(name, desc)
		next := categoryState{mainCategory: &label}
		emitted := []models.OrderItem{models.NewMainCategory(label)}

		// A category directly followed by a subtotal row has no child line
		// items; its own quantity/amount cells hold the value. Synthesize a
		// line item so it is not silently dropped. Rate falls back to the
		// amount itself when the quantity is zero.
		if nextIsSubtotal {
			qty := parseLeadingQuantity(rd.Cells[1].Text)
			amount := amountFromCell(rd.Cells[2])
			rate := amount
			if qty.IsPositive() {
				rate = amount.Div(qty)
			}
			main := label
			emitted = append(emitted, models.OrderItem{
				Kind:         models.KindLineItem,
				Label:        categoryBaseName(label),
				Quantity:     qty,
				UnitRate:     rate,
				Amount:       amount,
				MainCategory: &main,
			})
		}
		return stepResult{state: next, emitted: emitted}
	}

	// 6. Regular line item.
	if item, ok := classifyLineItem(st, rd); ok {
		return stepResult{state: st, emitted: []models.OrderItem{item}}
	}

	// Unmatched. Count rows that look like real content so the data loss is
	// observable; everything else is decorative noise.
	plausible := len(rd.Cells) >= 3 && rd.firstCellText() != ""
	return stepResult{state: st, dropped: plausible}
}

// amountFromCell prefers a <strong>-wrapped value over the plain cell text.
func amountFromCell(cell CellData) decimal.Decimal {
	if cell.HasStrong && cell.StrongText != "" {
		return parseMoney(cell.StrongText)
	}
	return parseMoney(cell.Text)
}

// classifyLineItem applies the line-item gates: three cells minimum, a
// non-empty cleaned description that is neither a column header nor a
// summary keyword, and either an indent marker or populated quantity and
// amount cells. Zero-amount rows survive only when indented.
func classifyLineItem(st categoryState, rd RowData) (models.OrderItem, bool) {
	if len(rd.Cells) < 3 {
		return models.OrderItem{}, false
	}

	desc := cleanDescription(rd.Cells[0].HTML)
	if desc == "" || isHeaderRowText(desc) || isSummaryText(desc) {
		return models.OrderItem{}, false
	}

	indented := isIndentedCell(rd.Cells[0])
	if !indented && (rd.Cells[1].Text == "" || rd.Cells[2].Text == "") {
		return models.OrderItem{}, false
	}

	qty := parseLeadingQuantity(rd.Cells[1].Text)
	amount := amountFromCell(rd.Cells[2])
	if !amount.IsPositive() && !indented {
		return models.OrderItem{}, false
	}

	return models.NewLineItem(desc, qty, amount, st.mainCategory, st.subCategory), true
}
