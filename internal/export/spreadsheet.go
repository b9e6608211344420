package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/calimingo/order-dashboard-service/internal/models"
)

// Generator writes a parsed order into an xlsx workbook: a location header
// block followed by the item rows, categories styled as section headers.
type Generator struct {
	cfg models.ExportConfig
}

// NewGenerator creates a spreadsheet generator.
func NewGenerator(cfg models.ExportConfig) *Generator {
	if cfg.SheetName == "" {
		cfg.SheetName = "Order"
	}
	return &Generator{cfg: cfg}
}

// Options are the caller-side filtering flags from the approval UI. The
// parser always emits category rows; filtering happens here, post-parse.
type Options struct {
	IncludeMainCategories bool
	IncludeSubcategories  bool
}

// Generate renders the parse result into xlsx bytes.
func (g *Generator) Generate(result *models.ParseResult, opts Options) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := g.cfg.SheetName
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	row := g.writeLocationBlock(f, sheet, result.Location, boldStyle)

	// Item table header.
	headers := []string{"Description", "Qty", "Unit Rate", "Amount"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}
	row++

	for _, item := range result.Items {
		switch item.Kind {
		case models.KindMainCategory:
			if !opts.IncludeMainCategories {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			f.SetCellValue(sheet, cell, item.Label)
			f.SetCellStyle(sheet, cell, cell, boldStyle)
			row++
		case models.KindSubcategory:
			if !opts.IncludeSubcategories {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			f.SetCellValue(sheet, cell, "  "+item.Label)
			f.SetCellStyle(sheet, cell, cell, boldStyle)
			row++
		case models.KindLineItem:
			descCell, _ := excelize.CoordinatesToCellName(1, row)
			qtyCell, _ := excelize.CoordinatesToCellName(2, row)
			rateCell, _ := excelize.CoordinatesToCellName(3, row)
			amountCell, _ := excelize.CoordinatesToCellName(4, row)

			f.SetCellValue(sheet, descCell, item.Label)
			f.SetCellValue(sheet, qtyCell, item.Quantity.InexactFloat64())
			f.SetCellValue(sheet, rateCell, item.UnitRate.InexactFloat64())
			f.SetCellValue(sheet, amountCell, item.Amount.InexactFloat64())
			f.SetCellStyle(sheet, rateCell, amountCell, moneyStyle)
			row++
		}
	}

	// Totals footer mirrors the reconciler verdict so a mismatch is visible
	// in the exported sheet, not only in the dashboard banner.
	row++
	labelCell, _ := excelize.CoordinatesToCellName(3, row)
	totalCell, _ := excelize.CoordinatesToCellName(4, row)
	f.SetCellValue(sheet, labelCell, "Items Total")
	f.SetCellStyle(sheet, labelCell, labelCell, boldStyle)
	f.SetCellValue(sheet, totalCell, result.Reconciled.ItemsTotal.InexactFloat64())
	f.SetCellStyle(sheet, totalCell, totalCell, moneyStyle)
	if !result.Reconciled.IsValid && result.Reconciled.Message != "" {
		row++
		warnCell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetCellValue(sheet, warnCell, "WARNING: "+result.Reconciled.Message)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeLocationBlock writes the customer/order header fields and returns the
// first free row below them.
func (g *Generator) writeLocationBlock(f *excelize.File, sheet string, loc *models.Location, boldStyle int) int {
	row := 1
	write := func(label, value string) {
		if value == "" {
			return
		}
		labelCell, _ := excelize.CoordinatesToCellName(1, row)
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		f.SetCellValue(sheet, labelCell, label)
		f.SetCellStyle(sheet, labelCell, labelCell, boldStyle)
		f.SetCellValue(sheet, valueCell, value)
		row++
	}

	if loc != nil {
		write("Order #", loc.OrderNo)
		write("Client", loc.ClientName)
		write("Customer Id", loc.CustomerID)
		write("Address", loc.Address)
		write("City", loc.City)
		write("State", loc.State)
		write("Zip", loc.Zip)
		if loc.OrderDate != nil {
			write("Order Date", *loc.OrderDate)
		}
		if loc.OrderPO != nil {
			write("PO #", *loc.OrderPO)
		}
		if loc.SalesRep != nil {
			write("Sales Rep", *loc.SalesRep)
		}
		if loc.GrandTotal != nil {
			write("Grand Total", loc.GrandTotal.StringFixed(2))
		}
	}

	return row + 1
}
