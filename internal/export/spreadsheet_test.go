package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/calimingo/order-dashboard-service/internal/models"
)

func sampleResult() *models.ParseResult {
	main := "0020 Calimingo - Pools and Spas - R2:"
	sub := "Plumbing:"
	gt := decimal.RequireFromString("450.00")
	return &models.ParseResult{
		Location: &models.Location{
			OrderNo:    "2063",
			ClientName: "John Smith",
			Address:    "123 Main St",
			GrandTotal: &gt,
		},
		Items: []models.OrderItem{
			models.NewMainCategory(main),
			models.NewSubcategory(sub),
			models.NewLineItem("Excavation", decimal.NewFromInt(3), decimal.RequireFromString("450.00"), &main, &sub),
		},
		Reconciled: models.ReconcileResult{
			IsValid:    true,
			ItemsTotal: decimal.RequireFromString("450.00"),
		},
	}
}

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func findRow(rows [][]string, firstCell string) []string {
	for _, row := range rows {
		if len(row) > 0 && row[0] == firstCell {
			return row
		}
	}
	return nil
}

func TestGenerateWorkbook(t *testing.T) {
	data, err := NewGenerator(models.ExportConfig{}).Generate(sampleResult(), Options{
		IncludeMainCategories: true,
		IncludeSubcategories:  true,
	})
	require.NoError(t, err)

	rows := readRows(t, data, "Order")

	orderRow := findRow(rows, "Order #")
	require.NotNil(t, orderRow)
	assert.Equal(t, "2063", orderRow[1])

	header := findRow(rows, "Description")
	require.NotNil(t, header)
	assert.Equal(t, []string{"Description", "Qty", "Unit Rate", "Amount"}, header)

	assert.NotNil(t, findRow(rows, "0020 Calimingo - Pools and Spas - R2:"))
	assert.NotNil(t, findRow(rows, "  Plumbing:"))

	item := findRow(rows, "Excavation")
	require.NotNil(t, item)
	assert.Equal(t, []string{"Excavation", "3", "150.00", "450.00"}, item)

	for _, row := range rows {
		if len(row) >= 4 && row[2] == "Items Total" {
			assert.Equal(t, "450.00", row[3])
			return
		}
	}
	t.Fatal("Items Total footer row not found")
}

func TestGenerateFiltersCategories(t *testing.T) {
	data, err := NewGenerator(models.ExportConfig{}).Generate(sampleResult(), Options{})
	require.NoError(t, err)

	rows := readRows(t, data, "Order")
	assert.Nil(t, findRow(rows, "0020 Calimingo - Pools and Spas - R2:"))
	assert.Nil(t, findRow(rows, "  Plumbing:"))
	assert.NotNil(t, findRow(rows, "Excavation"))
}

func TestGenerateWarningOnInvalidTotals(t *testing.T) {
	result := sampleResult()
	result.Reconciled.IsValid = false
	result.Reconciled.Message = "line items sum to 450.00 but document grand total is 500.00 (difference 50.00)"

	data, err := NewGenerator(models.ExportConfig{}).Generate(result, Options{})
	require.NoError(t, err)

	rows := readRows(t, data, "Order")
	found := false
	for _, row := range rows {
		if len(row) > 0 && row[0] == "WARNING: "+result.Reconciled.Message {
			found = true
		}
	}
	assert.True(t, found, "expected a WARNING footer row")
}

func TestGenerateCustomSheetName(t *testing.T) {
	data, err := NewGenerator(models.ExportConfig{SheetName: "Parsed"}).Generate(sampleResult(), Options{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, f.GetSheetList(), "Parsed")
}
