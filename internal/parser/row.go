package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CellData is a plain-string snapshot of one <td>/<th>. The classifier works
// exclusively on these snapshots so its heuristics never touch the DOM.
type CellData struct {
	Text  string // trimmed visible text
	HTML  string // inner HTML, as authored
	Style string // inline style attribute
	Class string // class attribute

	HasStrong    bool
	StrongText   string // text of the first <strong>, if any
	EmText       string // text of the first <em>, if any
	BoldSpanText string // text of the first bold/large-font styled <span>
}

// RowData is a snapshot of one table row: its cells, its own attributes and
// the cell texts of any table nested inside it.
type RowData struct {
	Cells []CellData
	Class string

	// NestedRows holds the per-row cell texts of a table nested inside one
	// of this row's cells (the progress-payments addendum block).
	NestedRows [][]string
}

// HasNestedTable reports whether a <table> was found inside the row.
func (r RowData) HasNestedTable() bool { return len(r.NestedRows) > 0 }

// firstCellText returns the trimmed text of the first cell, or "".
func (r RowData) firstCellText() string {
	if len(r.Cells) == 0 {
		return ""
	}
	return r.Cells[0].Text
}

// allText joins every cell's text with single spaces.
func (r RowData) allText() string {
	parts := make([]string, 0, len(r.Cells))
	for _, c := range r.Cells {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, " ")
}

// snapshotRow captures a goquery row selection into a RowData.
func snapshotRow(tr *goquery.Selection) RowData {
	rd := RowData{}
	rd.Class, _ = tr.Attr("class")

	tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
		cd := CellData{}
		cd.Text = strings.TrimSpace(cell.Text())
		if h, err := cell.Html(); err == nil {
			cd.HTML = h
		}
		cd.Style, _ = cell.Attr("style")
		cd.Class, _ = cell.Attr("class")

		if strong := cell.Find("strong").First(); strong.Length() > 0 {
			cd.HasStrong = true
			cd.StrongText = strings.TrimSpace(strong.Text())
		}
		if em := cell.Find("em").First(); em.Length() > 0 {
			cd.EmText = strings.TrimSpace(em.Text())
		}
		cell.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
			style, _ := span.Attr("style")
			if isBoldSpanStyle(style) {
				cd.BoldSpanText = strings.TrimSpace(span.Text())
				return false
			}
			return true
		})

		rd.Cells = append(rd.Cells, cd)
	})

	tr.Find("table").First().Find("tr").Each(func(_ int, sub *goquery.Selection) {
		var texts []string
		sub.Find("td, th").Each(func(_ int, c *goquery.Selection) {
			texts = append(texts, strings.TrimSpace(c.Text()))
		})
		rd.NestedRows = append(rd.NestedRows, texts)
	})

	return rd
}

// directRows returns the table's own rows in document order, explicitly
// excluding rows that belong to nested tables so the addendum block is not
// processed twice.
func directRows(table *goquery.Selection) []*goquery.Selection {
	var rows []*goquery.Selection
	collect := func(_ int, tr *goquery.Selection) {
		rows = append(rows, tr)
	}
	table.ChildrenFiltered("thead, tbody, tfoot").ChildrenFiltered("tr").Each(collect)
	// The html5 parser re-homes stray <tr> children into a tbody, but guard
	// against documents where that did not happen.
	table.ChildrenFiltered("tr").Each(collect)
	return rows
}
